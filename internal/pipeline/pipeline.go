// Package pipeline turns one user message into one reply: recall memories,
// let the planner decide on a web search, generate the answer, and persist
// what was said.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oscillatelabsllc/recall/internal/llm"
	"github.com/oscillatelabsllc/recall/internal/models"
	"github.com/rs/zerolog"
)

// FallbackMessage is what users see when a turn fails
const FallbackMessage = "Sorry, something went wrong. Please try again."

// Steps of a turn, used to label failures
const (
	StepRecall  = "recall"
	StepPlan    = "plan"
	StepRespond = "respond"
	StepPersist = "persist"
)

// Embedder converts text into a vector
type Embedder interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}

// MemoryStore is the subset of db.Store the pipeline needs
type MemoryStore interface {
	Match(ctx context.Context, params models.MatchParams) ([]models.Memory, error)
	Insert(ctx context.Context, mem *models.Memory) error
}

// Planner decides whether a turn needs a web search
type Planner interface {
	Plan(ctx context.Context, message string) (models.Decision, error)
}

// Responder writes the final answer
type Responder interface {
	Respond(ctx context.Context, in llm.ResponseInput) (string, error)
}

// Searcher runs a web search
type Searcher interface {
	Search(ctx context.Context, query string) (models.SearchResults, error)
}

// StepError records which step of a turn failed
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a turn: either Text or Err is set
type Result struct {
	Text string
	Err  error
}

// OK reports whether the turn produced an answer
func (r Result) OK() bool {
	return r.Err == nil
}

// Reply is the text to show the user: the answer, or FallbackMessage
func (r Result) Reply() string {
	if r.Err != nil {
		return FallbackMessage
	}
	return r.Text
}

// FailedStep names the step that failed, or "" on success
func (r Result) FailedStep() string {
	var se *StepError
	if errors.As(r.Err, &se) {
		return se.Step
	}
	return ""
}

// Dependencies are the collaborators a Pipeline needs
type Dependencies struct {
	Embedder  Embedder
	Store     MemoryStore
	Planner   Planner
	Responder Responder
	Searcher  Searcher
	Metrics   *Metrics
	Logger    zerolog.Logger
}

// Pipeline handles turns. It holds no per-turn state and is safe for
// concurrent use as long as its dependencies are.
type Pipeline struct {
	embedder  Embedder
	store     MemoryStore
	planner   Planner
	responder Responder
	searcher  Searcher
	metrics   *Metrics
	logger    zerolog.Logger
}

// New creates a pipeline
func New(deps Dependencies) *Pipeline {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Pipeline{
		embedder:  deps.Embedder,
		store:     deps.Store,
		planner:   deps.Planner,
		responder: deps.Responder,
		searcher:  deps.Searcher,
		metrics:   metrics,
		logger:    deps.Logger.With().Str("component", "pipeline").Logger(),
	}
}

// HandleTurn runs a full turn for userID. It never panics outward and
// never returns a partial answer: on any failure Result.Err is set and
// Result.Text is empty.
func (p *Pipeline) HandleTurn(ctx context.Context, userID int64, message string) (res Result) {
	start := time.Now()
	logger := p.logger.With().Int64("user_id", userID).Logger()

	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: &StepError{Step: "panic", Err: fmt.Errorf("%v", r)}}
		}

		p.metrics.TurnDuration.Observe(time.Since(start).Seconds())
		if res.Err != nil {
			p.metrics.Turns.WithLabelValues("failed", res.FailedStep()).Inc()
			logger.Error().Err(res.Err).Str("step", res.FailedStep()).Msg("turn failed")
			return
		}
		p.metrics.Turns.WithLabelValues("ok", "").Inc()
		logger.Info().Dur("elapsed", time.Since(start)).Msg("turn handled")
	}()

	answer, err := p.run(ctx, logger, userID, message)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Text: answer}
}

func (p *Pipeline) run(ctx context.Context, logger zerolog.Logger, userID int64, message string) (string, error) {
	// 1. memory recall
	memories, err := p.Recall(ctx, userID, message, models.DefaultMatchCount)
	if err != nil {
		return "", &StepError{Step: StepRecall, Err: err}
	}
	logger.Debug().Int("memories", len(memories)).Msg("recalled memories")
	memoryContext := formatMemories(memories)

	// 2. planning
	decision, err := p.planner.Plan(ctx, message)
	if err != nil {
		return "", &StepError{Step: StepPlan, Err: err}
	}
	logger.Debug().Stringer("decision", decision).Msg("planner decided")

	// 3. optional web search, failures degrade to inline text
	var webContext string
	if decision.IsSearch() {
		webContext = formatWebResults(p.webSearch(ctx, logger, decision.Query))
	}

	// 4. response generation
	answer, err := p.responder.Respond(ctx, llm.ResponseInput{
		ContextBlock: buildContextBlock(memoryContext, webContext),
		Message:      message,
	})
	if err != nil {
		return "", &StepError{Step: StepRespond, Err: err}
	}

	// 5. persistence, on every branch
	if err := p.remember(ctx, userID, userSaidMemory(message), "message"); err != nil {
		return "", &StepError{Step: StepPersist, Err: err}
	}
	if name := ExtractName(message); name != "" {
		if err := p.remember(ctx, userID, nameMemory(name), "name"); err != nil {
			return "", &StepError{Step: StepPersist, Err: err}
		}
		logger.Debug().Str("name", name).Msg("saved name memory")
	}

	return answer, nil
}

// Recall returns up to count of the user's memories similar to text
func (p *Pipeline) Recall(ctx context.Context, userID int64, text string, count int) ([]models.Memory, error) {
	embedding, err := p.embedder.Generate(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	memories, err := p.store.Match(ctx, models.MatchParams{
		UserID:         userID,
		QueryEmbedding: embedding,
		Threshold:      models.DefaultMatchThreshold,
		Count:          count,
	})
	if err != nil {
		return nil, fmt.Errorf("match memories: %w", err)
	}

	return memories, nil
}

func (p *Pipeline) webSearch(ctx context.Context, logger zerolog.Logger, query string) string {
	results, err := p.searcher.Search(ctx, query)
	if err != nil {
		p.metrics.WebSearches.WithLabelValues("degraded").Inc()
		logger.Warn().Err(err).Str("query", query).Msg("web search failed, continuing without results")
		return fmt.Sprintf(webSearchFailed, err)
	}

	p.metrics.WebSearches.WithLabelValues("ok").Inc()
	logger.Debug().Str("query", query).Int("snippets", len(results.Snippets)).Bool("answer_box", results.AnswerBox != "").Msg("web search done")
	return results.Summary()
}

func (p *Pipeline) remember(ctx context.Context, userID int64, content, kind string) error {
	embedding, err := p.embedder.Generate(ctx, content)
	if err != nil {
		return fmt.Errorf("embed %s memory: %w", kind, err)
	}

	if err := p.store.Insert(ctx, &models.Memory{
		UserID:    userID,
		Content:   content,
		Embedding: embedding,
	}); err != nil {
		return fmt.Errorf("insert %s memory: %w", kind, err)
	}

	p.metrics.MemoriesSaved.WithLabelValues(kind).Inc()
	return nil
}
