package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/kbchat/internal/cache"
	"github.com/MikeSquared-Agency/kbchat/internal/chat"
	"github.com/MikeSquared-Agency/kbchat/internal/condense"
	"github.com/MikeSquared-Agency/kbchat/internal/hermes"
	"github.com/MikeSquared-Agency/kbchat/internal/retrieval"
	"github.com/MikeSquared-Agency/kbchat/internal/store"
)

// Model is a single-shot chat completion backend.
type Model interface {
	Chat(ctx context.Context, messages []chat.Message) (chat.Message, error)
	Model() string
}

// Cache stores finished replies keyed by the retrieval query set.
type Cache interface {
	Get(ctx context.Context, key string) (*chat.Reply, bool, error)
	Set(ctx context.Context, key string, reply *chat.Reply) error
}

// Recorder persists answered turns.
type Recorder interface {
	WriteAnswer(ctx context.Context, rec store.AnswerRecord) (uuid.UUID, error)
}

// Publisher announces answered turns.
type Publisher interface {
	PublishAnswer(ctx context.Context, evt hermes.AnswerEvent) error
}

// Config bounds the history condensation.
type Config struct {
	UserLookback    int // user messages used as individual queries
	MessageLookback int // messages joined into the combined query
	NResults        int // hits requested per query
	AssistantKeep   int // assistant turns forwarded to the model
}

// DefaultConfig matches the values the service has always run with.
func DefaultConfig() Config {
	return Config{UserLookback: 2, MessageLookback: 3, NResults: 5, AssistantKeep: 2}
}

// Pipeline answers a conversation: it selects retrieval queries, condenses
// the retrieved evidence into a prompt and asks the model.
type Pipeline struct {
	retriever retrieval.Retriever
	model     Model
	cfg       Config
	logger    *slog.Logger

	cache     Cache
	recorder  Recorder
	publisher Publisher
}

type Option func(*Pipeline)

// WithCache short-circuits repeated query sets with stored replies.
func WithCache(c Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

func WithPublisher(pb Publisher) Option {
	return func(p *Pipeline) { p.publisher = pb }
}

func New(r retrieval.Retriever, m Model, cfg Config, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		retriever: r,
		model:     m,
		cfg:       cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type requestIDKey struct{}

// ContextWithRequestID attaches a caller-chosen request ID used in logs,
// records and events.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the ID set by ContextWithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestID(ctx context.Context) string {
	if id := RequestIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// Answer runs the full pipeline for history and returns the model's reply.
func (p *Pipeline) Answer(ctx context.Context, history []chat.Message) (*chat.Reply, error) {
	start := time.Now()
	reqID := requestID(ctx)
	logger := p.logger.With("request_id", reqID)

	if err := chat.ValidateHistory(history); err != nil {
		return nil, err
	}

	queries := condense.SelectQueries(history, p.cfg.UserLookback, p.cfg.MessageLookback).All()
	logger.Debug("queries selected", "queries", queries)

	var key string
	if p.cache != nil {
		key = cache.Key(queries)
		cached, ok, err := p.cache.Get(ctx, key)
		switch {
		case err != nil:
			logger.Warn("cache lookup failed", "error", err)
		case ok:
			logger.Info("answer served from cache", "duration_ms", time.Since(start).Milliseconds())
			p.finish(ctx, logger, turn{
				requestID: reqID,
				question:  chat.LastUserQuestion(history),
				reply:     cached,
				cacheHit:  true,
				started:   start,
			})
			return cached, nil
		}
	}

	results, err := p.retriever.Retrieve(ctx, queries, p.cfg.NResults)
	if err != nil {
		return nil, fmt.Errorf("retrieve evidence: %w", err)
	}
	if len(results) != len(queries) {
		return nil, fmt.Errorf("%w: %d queries but %d result sets", chat.ErrMalformedUpstream, len(queries), len(results))
	}

	evidence := condense.DedupeAndGroup(results)
	question := chat.LastUserQuestion(history)
	prompt := condense.ComposePrompt(question, evidence)
	outbound := condense.TrimHistory(history, chat.RoleAssistant, p.cfg.AssistantKeep, prompt)

	logger.Info("prompt composed",
		"evidence", len(evidence),
		"outbound_messages", len(outbound),
		"prompt_len", len(prompt),
	)

	// Nothing has been sent yet, so a canceled caller costs no model call.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("canceled before dispatch: %w", err)
	}

	msg, err := p.model.Chat(ctx, outbound)
	if err != nil {
		return nil, fmt.Errorf("dispatch to model: %w", err)
	}

	reply := &chat.Reply{Model: p.model.Model(), Message: msg}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, reply); err != nil {
			logger.Warn("cache store failed", "error", err)
		}
	}

	p.finish(ctx, logger, turn{
		requestID: reqID,
		question:  question,
		prompt:    prompt,
		reply:     reply,
		evidence:  len(evidence),
		started:   start,
	})

	logger.Info("answer complete",
		"model", reply.Model,
		"evidence", len(evidence),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return reply, nil
}

type turn struct {
	requestID string
	question  string
	prompt    string
	reply     *chat.Reply
	evidence  int
	cacheHit  bool
	started   time.Time
}

// finish records and announces a turn. Both collaborators are optional and
// their failures never change the reply already produced.
func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, t turn) {
	if p.recorder != nil {
		_, err := p.recorder.WriteAnswer(ctx, store.AnswerRecord{
			RequestID:     t.requestID,
			Question:      t.question,
			Prompt:        t.prompt,
			Reply:         t.reply.Message.Content,
			Model:         t.reply.Model,
			EvidenceCount: t.evidence,
			CacheHit:      t.cacheHit,
		})
		if err != nil {
			logger.Error("failed to record answer", "error", err)
		}
	}

	if p.publisher != nil {
		err := p.publisher.PublishAnswer(ctx, hermes.AnswerEvent{
			RequestID:     t.requestID,
			Model:         t.reply.Model,
			EvidenceCount: t.evidence,
			CacheHit:      t.cacheHit,
			DurationMS:    time.Since(t.started).Milliseconds(),
			Timestamp:     time.Now().UTC(),
		})
		if err != nil {
			logger.Warn("failed to publish answer event", "error", err)
		}
	}
}
