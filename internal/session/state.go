package session

import "github.com/halit-vural/autorag/internal/models"

const (
	initialURLScrapeKey      = 0
	initialFileUploaderKey   = 1000
	initialFolderUploaderKey = 101
)

// State is everything one browser or terminal session remembers between events.
type State struct {
	LLMModel        string
	EmbeddingsModel string

	// Assistant is nil until the next cycle builds it for the current selection and run.
	Assistant Assistant
	RunID     string
	Messages  []models.Message

	// Uploaded marks knowledge items already ingested, keyed by URL or derived file name.
	Uploaded map[string]bool

	EmbeddingsModelUpdated bool

	// Widget keys change whenever the matching input must be reset.
	URLScrapeKey      int
	FileUploaderKey   int
	FolderUploaderKey int
}

func NewState() *State {
	return &State{
		Uploaded:          map[string]bool{},
		URLScrapeKey:      initialURLScrapeKey,
		FileUploaderKey:   initialFileUploaderKey,
		FolderUploaderKey: initialFolderUploaderKey,
	}
}

// Restart drops the assistant and its run so the next cycle rebuilds both,
// and rotates the upload widget keys so the inputs come back empty.
func (s *State) Restart() {
	s.Assistant = nil
	s.RunID = ""
	s.URLScrapeKey++
	s.FileUploaderKey++
}

func (s *State) markUploaded(key string) {
	if s.Uploaded == nil {
		s.Uploaded = map[string]bool{}
	}
	s.Uploaded[key] = true
}
