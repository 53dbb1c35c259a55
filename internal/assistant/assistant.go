package assistant

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/halit-vural/autorag/internal/db"
	"github.com/halit-vural/autorag/internal/embedder"
	"github.com/halit-vural/autorag/internal/knowledge"
	"github.com/halit-vural/autorag/internal/llm"
	"github.com/halit-vural/autorag/internal/models"
	"github.com/halit-vural/autorag/internal/tools"
	"github.com/halit-vural/autorag/pkg/utils"
)

const (
	// Name is both the assistant name and the run store table.
	Name         = "auto_rag_assistant_groq"
	StorageTable = "auto_rag_assistant_groq"

	maxToolRounds = 8
)

// ErrStoreUnavailable wraps run store failures while opening a run.
var ErrStoreUnavailable = errors.New("run store unavailable")

type Options struct {
	LLMModel        string
	EmbeddingsModel string
	UserID          string
	RunID           string
	Debug           bool
	Persona         Persona
}

// Deps are the collaborators shared by every assistant the factory builds.
type Deps struct {
	LLM      llm.Client
	Storage  db.RunStorage
	VectorDB func(spec embedder.Spec) (db.VectorDB, error)
	Embedder func(spec embedder.Spec) (embedder.Embedder, error)
	Search   WebSearcher
	// Persona is used when Options.Persona is unset.
	Persona Persona
	Flags   Flags
	Policy  Policy
	Logger  *zap.Logger
	Now     func() time.Time
}

type Assistant struct {
	opts    Options
	flags   Flags
	policy  Policy
	llm     llm.Client
	storage db.RunStorage
	kb      *knowledge.Base
	tools   map[string]Tool
	defs    []openai.Tool
	logger  *zap.Logger
	now     func() time.Time

	run          *models.Run
	storageReady bool
}

// New builds an assistant for opts. Nothing is contacted until the first call.
func New(opts Options, deps Deps) (*Assistant, error) {
	if deps.LLM == nil || deps.Storage == nil || deps.VectorDB == nil || deps.Embedder == nil {
		return nil, errors.New("assistant dependencies are incomplete")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Policy == (Policy{}) {
		deps.Policy = DefaultPolicy()
	}
	if opts.Persona.Description == "" {
		opts.Persona = deps.Persona
	}

	spec := embedder.Select(opts.EmbeddingsModel)
	emb, err := deps.Embedder(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	vdb, err := deps.VectorDB(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", spec.Collection, err)
	}

	a := &Assistant{
		opts:    opts,
		flags:   deps.Flags,
		policy:  deps.Policy,
		llm:     deps.LLM,
		storage: deps.Storage,
		kb:      knowledge.New(vdb, emb),
		tools:   map[string]Tool{},
		logger: deps.Logger.With(
			zap.String("llm_model", opts.LLMModel),
			zap.String("embeddings_model", opts.EmbeddingsModel),
			zap.String("persona", opts.Persona.Name),
		),
		now: deps.Now,
	}

	if a.flags.SearchKnowledge {
		a.register(knowledgeSearchTool{kb: a.kb})
	}
	if deps.Search != nil {
		a.register(webSearchTool{searcher: deps.Search, maxResults: tools.DefaultMaxResults})
	}
	if a.flags.ReadChatHistory {
		a.register(chatHistoryTool{history: a.ChatHistory})
	}

	return a, nil
}

func (a *Assistant) register(t Tool) {
	def := t.Definition()
	a.tools[def.Function.Name] = t
	a.defs = append(a.defs, def)
}

func (a *Assistant) Options() Options           { return a.opts }
func (a *Assistant) Knowledge() *knowledge.Base { return a.kb }

// RunID is empty until CreateRun succeeds.
func (a *Assistant) RunID() string {
	if a.run == nil {
		return ""
	}
	return a.run.RunID
}

// CreateRun opens the run named by Options.RunID, creating it when it does not exist yet.
// Failures wrap ErrStoreUnavailable.
func (a *Assistant) CreateRun(ctx context.Context) (string, error) {
	if a.run != nil {
		return a.run.RunID, nil
	}

	run, err := withPolicy(ctx, a.policy, a.policy.StoreTimeout, func(ctx context.Context) (*models.Run, error) {
		if !a.storageReady {
			if err := a.storage.Create(ctx); err != nil {
				return nil, err
			}
			a.storageReady = true
		}

		if a.opts.RunID != "" {
			existing, err := a.storage.Read(ctx, a.opts.RunID)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return existing, nil
			}
		}

		runID := a.opts.RunID
		if runID == "" {
			runID = utils.GenerateUUID()
		}
		return a.storage.Upsert(ctx, models.Run{
			RunID:  runID,
			Name:   Name,
			UserID: a.opts.UserID,
			LLM: map[string]any{
				"provider":         "Groq",
				"model":            a.opts.LLMModel,
				"embeddings_model": a.opts.EmbeddingsModel,
			},
		})
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	a.run = run
	a.logger.Debug("run opened", zap.String("run_id", run.RunID), zap.Int("messages", len(run.Memory.ChatHistory)))
	return run.RunID, nil
}

// ChatHistory returns a copy of the run's transcript.
func (a *Assistant) ChatHistory() []models.Message {
	if a.run == nil {
		return nil
	}
	return append([]models.Message(nil), a.run.Memory.ChatHistory...)
}

// Run answers question, letting the model call tools for up to maxToolRounds rounds.
// The question and the reply are appended to the run's memory and persisted.
func (a *Assistant) Run(ctx context.Context, question string) (string, error) {
	if _, err := a.CreateRun(ctx); err != nil {
		return "", err
	}

	messages := a.buildMessages(question)

	var calls []string
	var answer string
	for round := 0; ; round++ {
		if round == maxToolRounds {
			return "", fmt.Errorf("model kept calling tools after %d rounds", maxToolRounds)
		}

		reply, err := withPolicy(ctx, a.policy, a.policy.LLMTimeout, func(ctx context.Context) (openai.ChatCompletionMessage, error) {
			return a.llm.Chat(ctx, a.opts.LLMModel, messages, a.defs)
		})
		if err != nil {
			return "", err
		}

		if len(reply.ToolCalls) == 0 {
			answer = reply.Content
			break
		}

		messages = append(messages, reply)
		for _, call := range reply.ToolCalls {
			calls = append(calls, formatToolCall(call.Function.Name, call.Function.Arguments))
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    a.callTool(ctx, call),
				Name:       call.Function.Name,
				ToolCallID: call.ID,
			})
		}
	}

	response := answer
	if a.flags.ShowToolCalls && len(calls) > 0 {
		var b strings.Builder
		for _, c := range calls {
			b.WriteString(" - Running: ")
			b.WriteString(c)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(answer)
		response = b.String()
	}

	// The turn only enters memory once the store has it.
	run := *a.run
	run.Memory.ChatHistory = append(slices.Clone(a.run.Memory.ChatHistory),
		models.Message{Role: models.RoleUser, Content: question},
		models.Message{Role: models.RoleAssistant, Content: response},
	)
	if err := a.persist(ctx, run); err != nil {
		return "", err
	}

	if a.opts.Debug {
		a.logger.Debug("run completed", zap.String("question", question), zap.String("response", response), zap.Int("tool_calls", len(calls)))
	}
	return response, nil
}

func (a *Assistant) buildMessages(question string) []openai.ChatCompletionMessage {
	messages := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: SystemPrompt(a.opts.Persona, a.flags, a.now()),
	}}

	if a.flags.AddChatHistoryToMessages {
		history := a.run.Memory.ChatHistory
		if n := a.flags.NumHistoryMessages; n > 0 && len(history) > n {
			history = history[len(history)-n:]
		}
		for _, m := range history {
			if m.Role != models.RoleUser && m.Role != models.RoleAssistant {
				continue
			}
			messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
		}
	}

	return append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: question})
}

// callTool returns the tool output, or the error text so the model can recover.
func (a *Assistant) callTool(ctx context.Context, call openai.ToolCall) string {
	t, ok := a.tools[call.Function.Name]
	if !ok {
		a.logger.Warn("model called an unknown tool", zap.String("tool", call.Function.Name))
		return fmt.Sprintf("Error: unknown function %s", call.Function.Name)
	}

	out, err := t.Call(ctx, call.Function.Arguments)
	if err != nil {
		a.logger.Warn("tool call failed", zap.String("tool", call.Function.Name), zap.Error(err))
		return fmt.Sprintf("Error: %v", err)
	}
	return out
}

func (a *Assistant) persist(ctx context.Context, run models.Run) error {
	saved, err := withPolicy(ctx, a.policy, a.policy.StoreTimeout, func(ctx context.Context) (*models.Run, error) {
		return a.storage.Upsert(ctx, run)
	})
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	a.run = saved
	return nil
}

// LoadDocuments embeds docs into the assistant's knowledge base.
func (a *Assistant) LoadDocuments(ctx context.Context, docs []models.Document) error {
	if err := a.kb.LoadDocuments(ctx, docs); err != nil {
		return fmt.Errorf("failed to load documents into %s: %w", a.kb.Collection(), err)
	}
	a.logger.Info("documents loaded", zap.String("collection", a.kb.Collection()), zap.Int("documents", len(docs)))
	return nil
}

func (a *Assistant) ClearKnowledge(ctx context.Context) error {
	if err := a.kb.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear %s: %w", a.kb.Collection(), err)
	}
	a.logger.Info("knowledge base cleared", zap.String("collection", a.kb.Collection()))
	return nil
}

// RunIDs lists the runs of the assistant's user, newest first.
func (a *Assistant) RunIDs(ctx context.Context) ([]string, error) {
	return withPolicy(ctx, a.policy, a.policy.StoreTimeout, func(ctx context.Context) ([]string, error) {
		return a.storage.GetAllRunIDs(ctx, a.opts.UserID)
	})
}

// Factory builds assistants that share one set of Deps.
type Factory struct {
	deps Deps
}

func NewFactory(deps Deps) *Factory {
	return &Factory{deps: deps}
}

func (f *Factory) Build(opts Options) (*Assistant, error) {
	return New(opts, f.deps)
}
