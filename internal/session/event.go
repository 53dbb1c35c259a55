package session

import "github.com/halit-vural/autorag/internal/models"

// Selection is the value of the two model selectors.
type Selection struct {
	LLMModel        string
	EmbeddingsModel string
}

type Upload struct {
	Name string
	Data []byte
}

// Event carries the widget values of one UI interaction. At most one action is expected per event.
type Event struct {
	Selection Selection
	Prompt    string

	// URL is set when "Add URL" was pressed.
	URL    string
	Upload *Upload

	Folder    string
	AddFolder bool

	ClearKnowledgeBase bool
	NewRun             bool
	SelectRunID        string

	// Progress receives transient notices while an action runs. May be nil.
	Progress func(Notice)
}

// WidgetsOnly is the event a rerun sees: the same selection with the consumed action dropped.
func (e Event) WidgetsOnly() Event {
	return Event{Selection: e.Selection, Progress: e.Progress}
}

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Notice struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// View is what a front end renders after a cycle.
type View struct {
	// Ready is false when no run could be opened.
	Ready    bool
	Messages []models.Message
	Notices  []Notice
	RunIDs   []string
	RunID    string

	Selection         Selection
	URLScrapeKey      int
	FileUploaderKey   int
	FolderUploaderKey int
}

func (v *View) notify(level Level, text string) {
	v.Notices = append(v.Notices, Notice{Level: level, Text: text})
}
