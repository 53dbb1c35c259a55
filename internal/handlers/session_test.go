package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halit-vural/autorag/internal/auth"
	"github.com/halit-vural/autorag/internal/models"
	"github.com/halit-vural/autorag/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type store struct {
	runs    map[string][]models.Message
	nextRun int
	loaded  []models.Document
	cleared int
	runErr  error
}

type fakeAssistant struct {
	store *store
	req   session.BuildRequest
	runID string
}

func (a *fakeAssistant) CreateRun(context.Context) (string, error) {
	if a.runID == "" {
		a.runID = a.req.RunID
	}
	if a.runID == "" {
		a.store.nextRun++
		a.runID = fmt.Sprintf("run-%d", a.store.nextRun)
	}
	if _, ok := a.store.runs[a.runID]; !ok {
		a.store.runs[a.runID] = nil
	}
	return a.runID, nil
}

func (a *fakeAssistant) ChatHistory() []models.Message {
	return append([]models.Message(nil), a.store.runs[a.runID]...)
}

func (a *fakeAssistant) Run(_ context.Context, question string) (string, error) {
	if a.store.runErr != nil {
		return "", a.store.runErr
	}
	answer := "answer to: " + question
	a.store.runs[a.runID] = append(a.store.runs[a.runID],
		models.Message{Role: models.RoleUser, Content: question},
		models.Message{Role: models.RoleAssistant, Content: answer},
	)
	return answer, nil
}

func (a *fakeAssistant) LoadDocuments(_ context.Context, docs []models.Document) error {
	a.store.loaded = append(a.store.loaded, docs...)
	return nil
}

func (a *fakeAssistant) ClearKnowledge(context.Context) error {
	a.store.cleared++
	return nil
}

func (a *fakeAssistant) RunIDs(context.Context) ([]string, error) {
	var ids []string
	for id := range a.store.runs {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakePDF struct{}

func (fakePDF) Read(name string, data io.ReaderAt, size int64) ([]models.Document, error) {
	buf := make([]byte, size)
	if _, err := data.ReadAt(buf, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return []models.Document{{ID: name + "_1", Name: name, Content: string(buf)}}, nil
}

func (fakePDF) ReadFile(path string) ([]models.Document, error) {
	return []models.Document{{ID: path, Name: path, Content: "file"}}, nil
}

type fakeWeb struct{}

func (fakeWeb) Read(_ context.Context, u string) ([]models.Document, error) {
	return []models.Document{{ID: u, Name: u, Content: "page"}}, nil
}

type client struct {
	t      *testing.T
	router *gin.Engine
	cookie *http.Cookie
}

func newTestServer(t *testing.T) (*client, *store, *SessionHandler) {
	t.Helper()
	st := &store{runs: map[string][]models.Message{}}
	builder := session.BuilderFunc(func(req session.BuildRequest) (session.Assistant, error) {
		return &fakeAssistant{store: st, req: req}, nil
	})
	h := NewSessionHandler(
		session.NewController(builder, fakePDF{}, fakeWeb{}, nil),
		session.NewRegistry(time.Hour),
		nil,
	)

	r := gin.New()
	r.GET("/healthz", h.Health)
	r.Use(auth.SessionCookie())
	h.Register(r)

	return &client{t: t, router: r}, st, h
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == auth.SessionCookieName {
			c.cookie = ck
		}
	}
	return w
}

func (c *client) get() *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, "/", nil))
}

func (c *client) postForm(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) upload(filename string, content []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(c.t, err)
	_, err = part.Write(content)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/knowledge/pdf", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestSessionHandler_IndexShowsGreeting(t *testing.T) {
	c, _, _ := newTestServer(t)

	w := c.get()
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, session.Greeting)
	assert.Contains(t, body, `<option value="llama3-70b-8192" selected>`)
	assert.Contains(t, body, `<option value="text-embedding-3-small" selected>`)
	assert.Contains(t, body, "When you change the embeddings model")
	require.NotNil(t, c.cookie)
}

func TestSessionHandler_ChatPostRedirectGet(t *testing.T) {
	c, st, _ := newTestServer(t)
	c.get()

	w := c.postForm("/chat", url.Values{"prompt": {"what is etio?"}})
	assertRedirect(t, w)
	assert.Len(t, st.runs["run-1"], 2)

	body := c.get().Body.String()
	assert.Contains(t, body, "what is etio?")
	assert.Contains(t, body, "answer to: what is etio?")

	w = c.postForm("/chat", url.Values{"prompt": {""}})
	assertRedirect(t, w)
	assert.Len(t, st.runs["run-1"], 2)
}

func TestSessionHandler_SessionsAreIsolated(t *testing.T) {
	c, _, h := newTestServer(t)
	c.get()
	c.postForm("/chat", url.Values{"prompt": {"first user question"}})

	other := &client{t: t, router: c.router}
	body := other.get().Body.String()
	assert.NotContains(t, body, "first user question")
	assert.Contains(t, body, session.Greeting)
	assert.Equal(t, 2, h.Registry.Len())
}

func TestSessionHandler_UploadPDF(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		content    []byte
		wantNotice string
		wantLoaded int
	}{
		{name: "pdf is ingested", filename: "Report.v2.PDF", content: []byte("%PDF-1.4 body"), wantLoaded: 1},
		{name: "other files are rejected", filename: "notes.txt", content: []byte("text"), wantNotice: noticeNotPDF},
		{
			name:       "large files are rejected",
			filename:   "big.pdf",
			content:    bytes.Repeat([]byte("a"), MaxUploadSize+1),
			wantNotice: "The uploaded file is too big.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, st, _ := newTestServer(t)
			c.get()

			assertRedirect(t, c.upload(tt.filename, tt.content))
			assert.Len(t, st.loaded, tt.wantLoaded)

			body := c.get().Body.String()
			if tt.wantNotice != "" {
				assert.Contains(t, strings.ReplaceAll(body, "&#39;", "'"), tt.wantNotice)
			}
		})
	}
}

func TestSessionHandler_AddURL(t *testing.T) {
	c, st, _ := newTestServer(t)
	c.get()

	assertRedirect(t, c.postForm("/knowledge/url", url.Values{"url": {"not a url"}}))
	assert.Empty(t, st.loaded)
	assert.Contains(t, c.get().Body.String(), noticeInvalidURL)

	assertRedirect(t, c.postForm("/knowledge/url", url.Values{"url": {"https://example.com/docs"}}))
	require.Len(t, st.loaded, 1)
	assert.Equal(t, "https://example.com/docs", st.loaded[0].Name)
}

func TestSessionHandler_AddFolderWithoutPath(t *testing.T) {
	c, _, _ := newTestServer(t)
	c.get()

	assertRedirect(t, c.postForm("/knowledge/folder", url.Values{"folder": {""}}))
	assert.Contains(t, c.get().Body.String(), "Enter a folder path first..")
}

func TestSessionHandler_ClearKnowledgeFlashesOnce(t *testing.T) {
	c, st, _ := newTestServer(t)
	c.get()

	assertRedirect(t, c.postForm("/knowledge/clear", nil))
	assert.Equal(t, 1, st.cleared)
	assert.Contains(t, c.get().Body.String(), "Knowledge base cleared")
	assert.NotContains(t, c.get().Body.String(), "Knowledge base cleared")
}

func TestSessionHandler_Runs(t *testing.T) {
	c, _, _ := newTestServer(t)
	c.get()
	c.postForm("/chat", url.Values{"prompt": {"question in first run"}})

	assertRedirect(t, c.postForm("/runs/new", nil))
	body := c.get().Body.String()
	assert.NotContains(t, body, "question in first run")
	assert.Contains(t, body, `<option value="run-1">`)
	assert.Contains(t, body, `<option value="run-2" selected>`)

	assertRedirect(t, c.postForm("/runs/select", url.Values{"run_id": {"run-1"}}))
	body = c.get().Body.String()
	assert.Contains(t, body, "question in first run")
	assert.Contains(t, body, `<option value="run-1" selected>`)
}

func TestSessionHandler_SelectUnknownRun(t *testing.T) {
	c, st, _ := newTestServer(t)
	c.get()
	c.postForm("/chat", url.Values{"prompt": {"question in first run"}})

	assertRedirect(t, c.postForm("/runs/select", url.Values{"run_id": {"forged-id"}}))
	assert.NotContains(t, st.runs, "forged-id")

	body := c.get().Body.String()
	assert.Contains(t, body, "Run not found: forged-id")
	assert.Contains(t, body, "question in first run")
	assert.Contains(t, body, `<option value="run-1" selected>`)
	assert.NotContains(t, body, `<option value="forged-id"`)
}

func TestSessionHandler_SettingsChangeStartsNewRun(t *testing.T) {
	c, _, _ := newTestServer(t)
	c.get()

	assertRedirect(t, c.postForm("/settings", url.Values{"llm_model": {"llama3-8b-8192"}}))
	body := c.get().Body.String()
	assert.Contains(t, body, `<option value="llama3-8b-8192" selected>`)
	assert.Contains(t, body, `<option value="text-embedding-3-small" selected>`)

	assertRedirect(t, c.postForm("/settings", url.Values{"embeddings_model": {"nomic-embed-text"}}))
	body = c.get().Body.String()
	assert.Contains(t, body, "Please add documents again as the embeddings model has changed.")
	assert.Contains(t, body, `<option value="llama3-8b-8192" selected>`)
}

func TestSessionHandler_SettingsRejectsUnknownModels(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
	}{
		{name: "llm", values: url.Values{"llm_model": {"gpt-2"}}},
		{name: "embeddings", values: url.Values{"embeddings_model": {"word2vec"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, st, _ := newTestServer(t)
			c.get()

			assertRedirect(t, c.postForm("/settings", tt.values))
			assert.Len(t, st.runs, 1, "no new run is started")

			body := c.get().Body.String()
			assert.Contains(t, body, noticeUnknownModel)
			assert.Contains(t, body, `<option value="llama3-70b-8192" selected>`)
			assert.Contains(t, body, `<option value="text-embedding-3-small" selected>`)
			assert.NotContains(t, body, "Please add documents again")
		})
	}
}

func TestSessionHandler_AddFolderMalformedForm(t *testing.T) {
	c, _, _ := newTestServer(t)
	c.get()

	req := httptest.NewRequest(http.MethodPost, "/knowledge/folder", strings.NewReader("folder=%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assertRedirect(t, c.do(req))
	assert.NotContains(t, c.get().Body.String(), "Enter a folder path first..")
}

func TestSessionHandler_ErrorsRenderErrorPage(t *testing.T) {
	c, st, _ := newTestServer(t)
	c.get()
	st.runErr = errors.New("llm unreachable")

	w := c.postForm("/chat", url.Values{"prompt": {"hello"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "llm unreachable")
}

func TestSessionHandler_Health(t *testing.T) {
	c, _, _ := newTestServer(t)

	w := c.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":0}`, w.Body.String())
}
