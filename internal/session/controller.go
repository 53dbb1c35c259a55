package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/halit-vural/autorag/internal/assistant"
	"github.com/halit-vural/autorag/internal/config"
	"github.com/halit-vural/autorag/internal/models"
	"github.com/halit-vural/autorag/internal/parsing"
	"github.com/halit-vural/autorag/pkg/utils"
)

const (
	Greeting = "Welcome to ETIO Services... How can I help you?"

	noticeStoreUnavailable    = "Could not create assistant, is the database running?"
	noticeEmbeddingsChanged   = "Please add documents again as the embeddings model has changed."
	noticeProcessingURL       = "Processing URLs..."
	noticeProcessingPDF       = "Processing PDF..."
	noticeProcessingFile      = "Processing : "
	noticeWebsiteUnreadable   = "Could not read website"
	noticePDFUnreadable       = "Could not read PDF"
	noticeFolderPDFUnreadable = "Could not read PDF:"
	noticeNoFolder            = "Enter a folder path first.."
	noticeKnowledgeCleared    = "Knowledge base cleared"
	noticeRunNotFound         = "Run not found: "

	defaultMaxReruns = 3
)

// Assistant is what the controller needs from an assistant.
type Assistant interface {
	CreateRun(ctx context.Context) (string, error)
	ChatHistory() []models.Message
	Run(ctx context.Context, question string) (string, error)
	LoadDocuments(ctx context.Context, docs []models.Document) error
	ClearKnowledge(ctx context.Context) error
	RunIDs(ctx context.Context) ([]string, error)
}

type BuildRequest struct {
	LLMModel        string
	EmbeddingsModel string
	RunID           string
}

type Builder interface {
	Build(req BuildRequest) (Assistant, error)
}

type BuilderFunc func(req BuildRequest) (Assistant, error)

func (f BuilderFunc) Build(req BuildRequest) (Assistant, error) { return f(req) }

// FactoryBuilder adapts an assistant factory, stamping every assistant with the user and debug flag.
func FactoryBuilder(f *assistant.Factory, userID string, debug bool) Builder {
	return BuilderFunc(func(req BuildRequest) (Assistant, error) {
		a, err := f.Build(assistant.Options{
			LLMModel:        req.LLMModel,
			EmbeddingsModel: req.EmbeddingsModel,
			UserID:          userID,
			RunID:           req.RunID,
			Debug:           debug,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	})
}

type PDFReader interface {
	Read(name string, data io.ReaderAt, size int64) ([]models.Document, error)
	ReadFile(path string) ([]models.Document, error)
}

type WebsiteReader interface {
	Read(ctx context.Context, url string) ([]models.Document, error)
}

// Controller runs one cycle of the chat page per UI event.
type Controller struct {
	builder   Builder
	pdf       PDFReader
	web       WebsiteReader
	logger    *zap.Logger
	maxReruns int
}

func NewController(builder Builder, pdf PDFReader, web WebsiteReader, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		builder:   builder,
		pdf:       pdf,
		web:       web,
		logger:    logger,
		maxReruns: defaultMaxReruns,
	}
}

type outcome int

const (
	done outcome = iota
	rerun
)

// Handle applies ev to s and returns what to render. Actions that restart the session
// rerun the cycle with the same widget values and without the action.
// Errors other than an unreachable run store are returned to the caller.
func (c *Controller) Handle(ctx context.Context, s *State, ev Event) (*View, error) {
	view := &View{}

	for runs := 0; ; runs++ {
		next, err := c.cycle(ctx, s, ev, view)
		if err != nil {
			return nil, err
		}
		if next == done {
			break
		}
		if runs == c.maxReruns {
			c.logger.Warn("rerun limit reached", zap.Int("reruns", runs))
			break
		}
		ev = ev.WidgetsOnly()
	}

	view.Selection = Selection{LLMModel: s.LLMModel, EmbeddingsModel: s.EmbeddingsModel}
	view.RunID = s.RunID
	view.URLScrapeKey = s.URLScrapeKey
	view.FileUploaderKey = s.FileUploaderKey
	view.FolderUploaderKey = s.FolderUploaderKey
	return view, nil
}

func (c *Controller) cycle(ctx context.Context, s *State, ev Event, view *View) (outcome, error) {
	view.Ready = false
	view.Messages = nil
	view.RunIDs = nil

	sel := withDefaults(ev.Selection)

	if s.LLMModel == "" {
		s.LLMModel = sel.LLMModel
	} else if s.LLMModel != sel.LLMModel {
		s.LLMModel = sel.LLMModel
		s.Restart()
		return rerun, nil
	}

	if s.EmbeddingsModel == "" {
		s.EmbeddingsModel = sel.EmbeddingsModel
	} else if s.EmbeddingsModel != sel.EmbeddingsModel {
		s.EmbeddingsModel = sel.EmbeddingsModel
		s.EmbeddingsModelUpdated = true
		s.Restart()
		return rerun, nil
	}

	if s.Assistant == nil {
		c.logger.Info("creating assistant", zap.String("llm_model", s.LLMModel), zap.String("embeddings_model", s.EmbeddingsModel))
		a, err := c.builder.Build(BuildRequest{LLMModel: s.LLMModel, EmbeddingsModel: s.EmbeddingsModel})
		if err != nil {
			return done, fmt.Errorf("failed to build assistant: %w", err)
		}
		s.Assistant = a
	}

	runID, err := s.Assistant.CreateRun(ctx)
	if err != nil {
		if errors.Is(err, assistant.ErrStoreUnavailable) {
			c.logger.Warn("could not create run", zap.Error(err))
			view.notify(LevelWarning, noticeStoreUnavailable)
			return done, nil
		}
		return done, err
	}
	s.RunID = runID
	view.Ready = true

	if history := s.Assistant.ChatHistory(); len(history) > 0 {
		c.logChatLength(history)
		s.Messages = history
	} else {
		c.logger.Debug("no chat history found")
		s.Messages = []models.Message{{Role: models.RoleAssistant, Content: Greeting}}
	}

	if prompt := strings.TrimSpace(ev.Prompt); prompt != "" {
		s.Messages = append(s.Messages, models.Message{Role: models.RoleUser, Content: prompt})
	}

	if last := s.Messages[len(s.Messages)-1]; last.Role == models.RoleUser {
		response, err := s.Assistant.Run(ctx, last.Content)
		if err != nil {
			return done, err
		}
		c.logger.Debug("answered question", zap.String("question", last.Content), zap.String("response", response))
		s.Messages = append(s.Messages, models.Message{Role: models.RoleAssistant, Content: response})
	}
	view.Messages = visible(s.Messages)

	if url := strings.TrimSpace(ev.URL); url != "" {
		if next, err := c.addURL(ctx, s, ev, view, url); err != nil || next == rerun {
			return next, err
		}
	}

	if ev.Upload != nil {
		if next, err := c.addPDF(ctx, s, ev, view, ev.Upload); err != nil || next == rerun {
			return next, err
		}
	}

	if ev.AddFolder {
		if next, err := c.addFolder(ctx, s, ev, view, strings.TrimSpace(ev.Folder)); err != nil || next == rerun {
			return next, err
		}
	}

	if ev.ClearKnowledgeBase {
		if err := s.Assistant.ClearKnowledge(ctx); err != nil {
			return done, err
		}
		view.notify(LevelSuccess, noticeKnowledgeCleared)
		s.Restart()
		return rerun, nil
	}

	runIDs, err := s.Assistant.RunIDs(ctx)
	if err != nil {
		return done, fmt.Errorf("failed to list runs: %w", err)
	}
	view.RunIDs = runIDs

	switch selected := ev.SelectRunID; {
	case selected == "" || selected == s.RunID:
	case !slices.Contains(runIDs, selected):
		c.logger.Warn("unknown run selected", zap.String("run_id", selected))
		view.notify(LevelError, noticeRunNotFound+selected)
	default:
		c.logger.Info("loading run", zap.String("llm_model", s.LLMModel), zap.String("run_id", selected))
		a, err := c.builder.Build(BuildRequest{LLMModel: s.LLMModel, EmbeddingsModel: s.EmbeddingsModel, RunID: selected})
		if err != nil {
			return done, fmt.Errorf("failed to build assistant: %w", err)
		}
		s.Assistant = a
		return rerun, nil
	}

	if ev.NewRun {
		s.Restart()
		return rerun, nil
	}

	if s.EmbeddingsModelUpdated {
		view.notify(LevelInfo, noticeEmbeddingsChanged)
		s.EmbeddingsModelUpdated = false
	}

	return done, nil
}

func (c *Controller) addURL(ctx context.Context, s *State, ev Event, view *View, url string) (outcome, error) {
	progress(ev, LevelInfo, noticeProcessingURL)

	if !s.Uploaded[url] {
		docs, err := c.web.Read(ctx, url)
		if err != nil {
			return done, fmt.Errorf("failed to read website: %w", err)
		}
		if len(docs) == 0 {
			view.notify(LevelError, noticeWebsiteUnreadable)
			return done, nil
		}
		if err := s.Assistant.LoadDocuments(ctx, docs); err != nil {
			return done, err
		}
		s.markUploaded(url)
	}

	s.Restart()
	return rerun, nil
}

func (c *Controller) addPDF(ctx context.Context, s *State, ev Event, view *View, up *Upload) (outcome, error) {
	progress(ev, LevelInfo, noticeProcessingPDF)

	key := utils.DerivedName(up.Name)
	if !s.Uploaded[key] {
		docs, err := c.pdf.Read(up.Name, bytes.NewReader(up.Data), int64(len(up.Data)))
		if err != nil {
			return done, fmt.Errorf("failed to read PDF: %w", err)
		}
		if len(docs) == 0 {
			view.notify(LevelError, noticePDFUnreadable)
			return done, nil
		}
		if err := s.Assistant.LoadDocuments(ctx, docs); err != nil {
			return done, err
		}
		s.markUploaded(key)
	}

	s.Restart()
	return rerun, nil
}

// addFolder ingests every PDF directly inside dir in name order. Files that fail to read are logged and skipped.
func (c *Controller) addFolder(ctx context.Context, s *State, ev Event, view *View, dir string) (outcome, error) {
	info, err := os.Stat(dir)
	if dir == "" || err != nil || !info.IsDir() {
		c.logger.Debug("not a folder path", zap.String("folder", dir))
		view.notify(LevelError, noticeNoFolder)
		return done, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return done, fmt.Errorf("failed to list folder: %w", err)
	}

	var fileNames []string
	for _, e := range entries {
		if !e.IsDir() && parsing.IsPDF(e.Name()) {
			fileNames = append(fileNames, e.Name())
		}
	}
	c.logger.Debug("loading files", zap.String("folder", dir), zap.Strings("files", fileNames))

	for _, name := range fileNames {
		progress(ev, LevelInfo, noticeProcessingFile+name)

		key := utils.DerivedName(name)
		if !s.Uploaded[key] {
			docs, err := c.pdf.ReadFile(filepath.Join(dir, name))
			if err != nil {
				c.logger.Error("failed to read PDF", zap.String("file", name), zap.Error(err))
				continue
			}
			if len(docs) == 0 {
				view.notify(LevelError, noticeFolderPDFUnreadable+name)
			} else {
				if err := s.Assistant.LoadDocuments(ctx, docs); err != nil {
					return done, err
				}
				s.markUploaded(key)
			}
		}
		s.FileUploaderKey++
	}

	s.Restart()
	return rerun, nil
}

func (c *Controller) logChatLength(history []models.Message) {
	if ce := c.logger.Check(zap.DebugLevel, "loading chat history"); ce != nil {
		fields := []zap.Field{zap.Int("messages", len(history)), zap.Int("chat_length", chatLength(history))}
		if tokens, err := chatTokens(history); err == nil {
			fields = append(fields, zap.Int("chat_tokens", tokens))
		}
		ce.Write(fields...)
	}
}

func withDefaults(sel Selection) Selection {
	if sel.LLMModel == "" {
		sel.LLMModel = config.DefaultLLMModel
	}
	if sel.EmbeddingsModel == "" {
		sel.EmbeddingsModel = config.DefaultEmbeddingsModel
	}
	return sel
}

// visible drops system messages, which are never rendered.
func visible(messages []models.Message) []models.Message {
	out := make([]models.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role != models.RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

func progress(ev Event, level Level, text string) {
	if ev.Progress != nil {
		ev.Progress(Notice{Level: level, Text: text})
	}
}
