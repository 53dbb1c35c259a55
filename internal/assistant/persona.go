package assistant

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	PersonaAutoRAG = "autorag"
	PersonaETIO    = "etio"
)

// Persona is the prompt configuration an assistant is built with.
type Persona struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Instructions []string `yaml:"instructions"`
	// Template is appended verbatim to the system prompt when set.
	Template string `yaml:"template,omitempty"`
}

type personaFile struct {
	Personas []Persona `yaml:"personas"`
}

var autoRAG = Persona{
	Name:        PersonaAutoRAG,
	Description: "You are an Assistant called 'AutoRAG' that answers questions by calling functions.",
	Instructions: []string{
		"First get additional information about the users question.",
		"You can either use the `search_knowledge_base` tool to search your knowledge base or the `duckduckgo_search` tool to search the internet.",
		"If the user asks about current events, use the `duckduckgo_search` tool to search the internet.",
		"If the user asks to summarize the conversation, use the `get_chat_history` tool to get your chat history with the user.",
		"Carefully process the information you have gathered and provide a clear and concise answer to the user.",
		"Respond directly to the user with your answer, do not say 'here is the answer' or 'this is the answer' or 'According to the information provided' or 'I found ...'",
		"Don't include the tool name you used in your answer.",
		"NEVER mention your knowledge base or say 'According to the search_knowledge_base tool' or 'According to {some_tool} tool'.",
		"Show your reference document in short APA format.",
		"Show the page number of your reference like (p33).",
	},
}

var etio = Persona{
	Name:        PersonaETIO,
	Description: "You are an Assistant called 'ETIO Chatbot' that answers questions by calling functions.",
	Instructions: []string{
		"Respond to greetings with a nice greeting.",
		"Give as possible as short answers.",
		"Answer all questions according to ETIO Consulting Services. Do not answer unrelated questions.",
		"When the question is general like no relation to ETIO or no mentions about ETIO, do not give the answer to that question and say 'I can answer your specific questions about ETIO services.'.",
		"Answer the questions directly. Don't include the tool name you used in your answer.",
		"NEVER mention your knowledge base or say 'According to the search_knowledge_base tool' or 'According to {some_tool} tool'.",
		"When the user ask about you, say 'I am a robot to help you about ETIO services.'",
		"Answer the users question by only using `search_knowledge_base` tool.",
		"If the user asks to summarize the conversation, use the `get_chat_history` tool to get your chat history with the user.",
		"Respond directly to the user with your answer, do not say 'here is the answer' or 'this is the answer' or 'According to the information provided' or 'I found ...'",
		"Show your reference in short APA format.",
	},
	Template: `When the answer describes an ETIO service, use this structure:
<answer_template>
### {service name}
{one or two sentence answer}

**Details**
- {key point}
- {key point}

**Reference:** {short APA reference}
</answer_template>`,
}

// Personas returns the built-in personas keyed by name.
func Personas() map[string]Persona {
	return map[string]Persona{
		PersonaAutoRAG: clonePersona(autoRAG),
		PersonaETIO:    clonePersona(etio),
	}
}

// LoadPersonas reads a YAML persona file and merges it over the built-ins.
// A persona with a built-in name replaces it.
func LoadPersonas(path string) (map[string]Persona, error) {
	personas := Personas()
	if path == "" {
		return personas, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona file: %w", err)
	}

	var file personaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse persona file: %w", err)
	}

	for i, p := range file.Personas {
		if p.Name == "" {
			return nil, fmt.Errorf("persona %d has no name", i)
		}
		if p.Description == "" {
			return nil, fmt.Errorf("persona %s has no description", p.Name)
		}
		personas[p.Name] = p
	}
	return personas, nil
}

// ResolvePersona loads the persona file, if any, and picks name from it.
func ResolvePersona(name, path string) (Persona, error) {
	personas, err := LoadPersonas(path)
	if err != nil {
		return Persona{}, err
	}
	p, ok := personas[name]
	if !ok {
		return Persona{}, fmt.Errorf("unknown persona: %s", name)
	}
	return p, nil
}

func clonePersona(p Persona) Persona {
	p.Instructions = append([]string(nil), p.Instructions...)
	return p
}
