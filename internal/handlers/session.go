package handlers

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"go.uber.org/zap"

	api "github.com/halit-vural/autorag/internal/api/chat"
	"github.com/halit-vural/autorag/internal/auth"
	"github.com/halit-vural/autorag/internal/config"
	"github.com/halit-vural/autorag/internal/parsing"
	"github.com/halit-vural/autorag/internal/session"
)

// MaxUploadSize caps a PDF upload request.
const MaxUploadSize = 10 * 1024 * 1024 // 10 MB

const (
	noticeUploadTooBig  = "The uploaded file is too big. Please choose a file that's less than 10MB in size"
	noticeInvalidUpload = "Invalid file upload"
	noticeNotPDF        = "Please upload a PDF file"
	noticeInvalidURL    = "Could not read website"
	noticeUnknownModel  = "Unknown model, choose one from the list"
)

//go:embed templates/*.html
var templateFS embed.FS

// SessionHandler serves the chat page. Every POST runs one controller cycle for the
// caller's session and redirects back to the page, which shows the notices it produced.
type SessionHandler struct {
	Controller *session.Controller
	Registry   *session.Registry
	Logger     *zap.Logger

	tmpl *template.Template
}

type pageData struct {
	View             *session.View
	Notices          []session.Notice
	LLMModels        []string
	EmbeddingsModels []string
	EmbeddingsHelp   string
}

func NewSessionHandler(controller *session.Controller, registry *session.Registry, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{
		Controller: controller,
		Registry:   registry,
		Logger:     logger,
		tmpl:       template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
}

func (h *SessionHandler) Register(r gin.IRoutes) {
	r.GET("/", h.Index)
	r.POST("/chat", h.Chat)
	r.POST("/settings", h.Settings)
	r.POST("/knowledge/url", h.AddURL)
	r.POST("/knowledge/pdf", h.UploadPDF)
	r.POST("/knowledge/folder", h.AddFolder)
	r.POST("/knowledge/clear", h.ClearKnowledge)
	r.POST("/runs/new", h.NewRun)
	r.POST("/runs/select", h.SelectRun)
}

func (h *SessionHandler) Index(c *gin.Context) {
	id := auth.SessionID(c)
	sess, release := h.Registry.Lock(id)
	defer release()

	flash := sess.TakeFlash()
	view, err := h.Controller.Handle(c.Request.Context(), sess.State, h.event(id, sess.State))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Render(http.StatusOK, render.HTML{
		Template: h.tmpl,
		Name:     "page.html",
		Data: pageData{
			View:             view,
			Notices:          append(flash, view.Notices...),
			LLMModels:        config.LLMModels,
			EmbeddingsModels: config.EmbeddingsModels,
			EmbeddingsHelp:   config.EmbeddingsHelp,
		},
	})
}

func (h *SessionHandler) Chat(c *gin.Context) {
	var req api.ChatRequest
	if err := c.ShouldBind(&req); err != nil {
		h.redirect(c)
		return
	}
	h.act(c, func(ev *session.Event) { ev.Prompt = req.Prompt })
}

func (h *SessionHandler) Settings(c *gin.Context) {
	var req api.SettingsRequest
	if err := c.ShouldBind(&req); err != nil {
		h.Logger.Debug("invalid settings", zap.Error(err))
		h.flash(c, session.Notice{Level: session.LevelError, Text: noticeUnknownModel})
		return
	}
	h.act(c, func(ev *session.Event) {
		if req.LLMModel != "" {
			ev.Selection.LLMModel = req.LLMModel
		}
		if req.EmbeddingsModel != "" {
			ev.Selection.EmbeddingsModel = req.EmbeddingsModel
		}
	})
}

func (h *SessionHandler) AddURL(c *gin.Context) {
	var req api.AddURLRequest
	if err := c.ShouldBind(&req); err != nil {
		h.Logger.Debug("invalid url", zap.Error(err))
		h.flash(c, session.Notice{Level: session.LevelError, Text: noticeInvalidURL})
		return
	}
	h.act(c, func(ev *session.Event) { ev.URL = req.URL })
}

func (h *SessionHandler) UploadPDF(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)

	if err := c.Request.ParseMultipartForm(MaxUploadSize); err != nil {
		h.Logger.Warn("error parsing multipart form", zap.Error(err))
		text := noticeUploadTooBig
		if errors.Is(err, http.ErrNotMultipart) {
			text = noticeInvalidUpload
		}
		h.flash(c, session.Notice{Level: session.LevelError, Text: text})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		h.Logger.Warn("error retrieving the file", zap.Error(err))
		h.flash(c, session.Notice{Level: session.LevelError, Text: noticeInvalidUpload})
		return
	}

	if !parsing.IsPDF(header.Filename) {
		h.Logger.Warn("invalid file type uploaded", zap.String("file", header.Filename))
		h.flash(c, session.Notice{Level: session.LevelError, Text: noticeNotPDF})
		return
	}

	file, err := header.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.Logger.Debug("uploaded file", zap.String("file", header.Filename), zap.Int("bytes", len(data)))

	h.act(c, func(ev *session.Event) {
		ev.Upload = &session.Upload{Name: header.Filename, Data: data}
	})
}

func (h *SessionHandler) AddFolder(c *gin.Context) {
	var req api.AddFolderRequest
	if err := c.ShouldBind(&req); err != nil {
		h.Logger.Debug("invalid folder form", zap.Error(err))
		h.redirect(c)
		return
	}
	h.act(c, func(ev *session.Event) {
		ev.Folder = req.Folder
		ev.AddFolder = true
	})
}

func (h *SessionHandler) ClearKnowledge(c *gin.Context) {
	h.act(c, func(ev *session.Event) { ev.ClearKnowledgeBase = true })
}

func (h *SessionHandler) NewRun(c *gin.Context) {
	h.act(c, func(ev *session.Event) { ev.NewRun = true })
}

func (h *SessionHandler) SelectRun(c *gin.Context) {
	var req api.SelectRunRequest
	if err := c.ShouldBind(&req); err != nil {
		h.redirect(c)
		return
	}
	h.act(c, func(ev *session.Event) { ev.SelectRunID = req.RunID })
}

func (h *SessionHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.Registry.Len()})
}

// act runs one cycle with the session's current selection plus the action set by apply,
// keeps the resulting notices for the next render and redirects to the page.
func (h *SessionHandler) act(c *gin.Context, apply func(ev *session.Event)) {
	id := auth.SessionID(c)
	sess, release := h.Registry.Lock(id)
	defer release()

	ev := h.event(id, sess.State)
	apply(&ev)

	view, err := h.Controller.Handle(c.Request.Context(), sess.State, ev)
	if err != nil {
		h.fail(c, err)
		return
	}
	sess.Flash = append(sess.Flash, view.Notices...)
	h.redirect(c)
}

func (h *SessionHandler) flash(c *gin.Context, notice session.Notice) {
	sess, release := h.Registry.Lock(auth.SessionID(c))
	sess.Flash = append(sess.Flash, notice)
	release()
	h.redirect(c)
}

func (h *SessionHandler) event(id string, s *session.State) session.Event {
	return session.Event{
		Selection: session.Selection{LLMModel: s.LLMModel, EmbeddingsModel: s.EmbeddingsModel},
		Progress: func(n session.Notice) {
			h.Logger.Info(n.Text, zap.String("session_id", id), zap.String("level", string(n.Level)))
		},
	}
}

func (h *SessionHandler) redirect(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *SessionHandler) fail(c *gin.Context, err error) {
	h.Logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.Render(http.StatusInternalServerError, render.HTML{
		Template: h.tmpl,
		Name:     "error.html",
		Data:     gin.H{"Message": err.Error()},
	})
}
