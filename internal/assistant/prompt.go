package assistant

import (
	"fmt"
	"strings"
	"time"
)

// Flags toggle assistant behaviour around the model call.
type Flags struct {
	// ShowToolCalls prefixes replies with a line per tool invocation.
	ShowToolCalls             bool
	Markdown                  bool
	AddChatHistoryToMessages  bool
	NumHistoryMessages        int
	AddDatetimeToInstructions bool
	SearchKnowledge           bool
	ReadChatHistory           bool
}

func DefaultFlags() Flags {
	return Flags{
		ShowToolCalls:             true,
		Markdown:                  true,
		AddChatHistoryToMessages:  true,
		NumHistoryMessages:        6,
		AddDatetimeToInstructions: true,
		SearchKnowledge:           true,
		ReadChatHistory:           true,
	}
}

// SystemPrompt renders the description, the numbered instructions and the optional template block.
func SystemPrompt(p Persona, flags Flags, now time.Time) string {
	instructions := append([]string(nil), p.Instructions...)
	if flags.Markdown {
		instructions = append(instructions, "Use markdown to format your answers.")
	}
	if flags.AddDatetimeToInstructions {
		instructions = append(instructions, fmt.Sprintf("The current time is %s", now.Format("2006-01-02 15:04:05")))
	}

	var b strings.Builder
	b.WriteString(p.Description)

	if len(instructions) > 0 {
		b.WriteString("\n\n## Instructions\n")
		for i, instruction := range instructions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, instruction)
		}
	}

	if p.Template != "" {
		b.WriteString("\n")
		b.WriteString(p.Template)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
