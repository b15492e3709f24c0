package agentloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/martinemde/agentic/memory"
	"github.com/martinemde/agentic/unifiedllm"
)

const tracerName = "github.com/martinemde/agentic/agentloop"

func defaultTracer() trace.Tracer { return otel.Tracer(tracerName) }

// Completer produces a completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Memory is the document store an agent reads and writes.
type Memory interface {
	ResultStore
	SegmentExtractor
	PromptString() string
	QueryAll(ctx context.Context, query string) (memory.QueryResult, error)
	QueryOne(ctx context.Context, query string) (memory.QueryResult, error)
	GetDocument(ctx context.Context, name, query string, maxLength int) (string, error)
}

// TokenCounter counts the tokens of a prompt.
type TokenCounter interface {
	Count(text string) int
}

type approxCounter struct{}

func (approxCounter) Count(text string) int { return len(text) / 4 }

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeCompleted       Outcome = "completed"
	OutcomeBudgetExhausted Outcome = "budget_exhausted"
	OutcomeFailed          Outcome = "failed"
)

// RunResult summarises a finished run.
type RunResult struct {
	Outcome      Outcome
	Steps        int
	ActionsTaken []CommandRecord
	Context      string
}

// Config holds the tunable limits of an agent.
type Config struct {
	// Model selects catalog defaults for MaxContextChars and ContextWindow.
	Model               string
	MaxSteps            int
	MaxContextChars     int // 0 = from the model catalog
	ContextWindow       int // tokens; 0 = from the model catalog
	EnableLoopDetection bool
	LoopDetectionWindow int
	Naming              NamingPolicy
	ClarifyTimeout      time.Duration
	// Verbose logs prompts and completions at info instead of debug.
	Verbose bool
}

// DefaultConfig returns the default agent configuration.
func DefaultConfig() Config {
	return Config{
		MaxSteps:            100,
		EnableLoopDetection: true,
		LoopDetectionWindow: 6,
		Naming:              PrefixNaming,
		ClarifyTimeout:      5 * time.Minute,
	}
}

// Agent drives an objective through repeated prompt, completion and
// dispatch steps.
type Agent struct {
	id         string
	completer  Completer
	memory     Memory
	registry   *ActionRegistry
	dispatcher *Dispatcher
	contexts   ContextProvider
	tokens     TokenCounter
	human      HumanInput
	emitter    *EventEmitter
	logger     *slog.Logger
	tracer     trace.Tracer
	config     Config

	userActions []Action
	loaded      []CommandRecord

	mu    sync.Mutex
	state ExecutionState
}

// Option configures an Agent.
type Option func(*Agent)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(a *Agent) { a.config = cfg }
}

// WithActions registers user actions.
func WithActions(actions ...Action) Option {
	return func(a *Agent) { a.userActions = append(a.userActions, actions...) }
}

// WithLogger sets the agent's logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// WithHumanInput enables the ask_user_to_clarify action.
func WithHumanInput(h HumanInput) Option {
	return func(a *Agent) { a.human = h }
}

// WithContextProvider replaces the default CompactingContext.
func WithContextProvider(p ContextProvider) Option {
	return func(a *Agent) { a.contexts = p }
}

// WithTokenCounter sets the counter used for context-window warnings.
func WithTokenCounter(c TokenCounter) Option {
	return func(a *Agent) { a.tokens = c }
}

// WithTracer sets the tracer for run, step and dispatch spans.
func WithTracer(t trace.Tracer) Option {
	return func(a *Agent) { a.tracer = t }
}

// WithInitialContext seeds the running context.
func WithInitialContext(text string) Option {
	return func(a *Agent) { a.state.Context = text }
}

// New creates an agent for objective. It fails with a *NameCollisionError
// when a user action reuses a reserved or already registered name.
func New(objective string, completer Completer, mem Memory, opts ...Option) (*Agent, error) {
	if completer == nil {
		return nil, errors.New("agent needs a completer")
	}
	if mem == nil {
		return nil, errors.New("agent needs a memory store")
	}

	a := &Agent{
		id:        uuid.NewString(),
		completer: completer,
		memory:    mem,
		logger:    slog.Default(),
		config:    DefaultConfig(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.config.MaxSteps <= 0 {
		a.config.MaxSteps = DefaultConfig().MaxSteps
	}
	if a.config.MaxContextChars <= 0 {
		a.config.MaxContextChars = unifiedllm.MaxContextChars(a.config.Model)
	}
	if a.config.ContextWindow <= 0 {
		if info := unifiedllm.GetModelInfo(a.config.Model); info != nil {
			a.config.ContextWindow = info.ContextWindow
		}
	}
	if a.tracer == nil {
		a.tracer = defaultTracer()
	}
	if a.tokens == nil {
		a.tokens = approxCounter{}
	}
	a.logger = a.logger.With("component", "agent", "agent_id", a.id)

	a.registry = NewActionRegistry(a.reservedActions()...)
	if err := a.registry.Register(a.userActions...); err != nil {
		return nil, err
	}
	if a.contexts == nil {
		a.contexts = &CompactingContext{Extractor: mem, MaxChars: a.config.MaxContextChars, Logger: a.logger}
	}
	a.dispatcher = NewDispatcher(a.registry, mem, a.config.Naming, a.logger, a.tracer)
	a.emitter = NewEventEmitter(a.id, 256)

	a.state.Objective = objective
	a.state.MaxSteps = a.config.MaxSteps
	return a, nil
}

// ID returns the agent identifier.
func (a *Agent) ID() string { return a.id }

// Registry returns the agent's actions.
func (a *Agent) Registry() *ActionRegistry { return a.registry }

// Memory returns the agent's document store.
func (a *Agent) Memory() Memory { return a.memory }

// Events returns the event channel for the host application.
func (a *Agent) Events() <-chan Event { return a.emitter.Events() }

// Close closes the event channel.
func (a *Agent) Close() { a.emitter.Close() }

// State returns a copy of the execution state.
func (a *Agent) State() ExecutionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.state
	st.ActionsTaken = append([]CommandRecord(nil), a.state.ActionsTaken...)
	return st
}

func (a *Agent) commit(st ExecutionState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = st
}

// ActionsTaken returns the successfully dispatched commands in order.
func (a *Agent) ActionsTaken() []CommandRecord { return a.State().ActionsTaken }

// Prompt renders the prompt the next step would send.
func (a *Agent) Prompt(ctx context.Context) string {
	st := a.State()
	return a.buildPrompt(ctx, &st)
}

func (a *Agent) buildPrompt(ctx context.Context, st *ExecutionState) string {
	return BuildPrompt(PromptData{
		Objective: st.Objective,
		Actions:   a.registry.Describe(),
		Memory:    a.memory.PromptString(),
		History:   FormatHistory(st.ActionsTaken),
		Context:   a.contexts.Context(ctx, st.Objective, st.Context),
	})
}

// Run steps until the done action is dispatched or the step budget is
// spent. Completion failures and cancellation end the run with an error and
// the partial result.
func (a *Agent) Run(ctx context.Context) (*RunResult, error) {
	st := a.State()
	ctx, span := a.tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.String("agentic.agent_id", a.id),
		attribute.String("agentic.objective", st.Objective),
		attribute.Int("agentic.max_steps", st.MaxSteps),
	))
	defer span.End()

	a.logger.Info("starting run", "objective", st.Objective, "max_steps", st.MaxSteps)
	a.emitter.Emit(EventRunStart, st.StepCount, map[string]any{"objective": st.Objective})

	for {
		st := a.State()
		if st.StepCount >= st.MaxSteps {
			a.logger.Warn("step budget exhausted", "steps", st.StepCount)
			a.emitter.Emit(EventStepLimit, st.StepCount, map[string]any{"max_steps": st.MaxSteps})
			return a.finish(span, OutcomeBudgetExhausted, nil)
		}
		if err := ctx.Err(); err != nil {
			return a.finish(span, OutcomeFailed, fmt.Errorf("run cancelled: %w", err))
		}

		done, err := a.step(ctx)
		if err != nil {
			return a.finish(span, OutcomeFailed, err)
		}
		if done {
			a.logger.Info("objective completed", "steps", a.State().StepCount)
			return a.finish(span, OutcomeCompleted, nil)
		}
	}
}

func (a *Agent) finish(span trace.Span, outcome Outcome, err error) (*RunResult, error) {
	st := a.State()
	res := &RunResult{
		Outcome:      outcome,
		Steps:        st.StepCount,
		ActionsTaken: st.ActionsTaken,
		Context:      st.Context,
	}
	span.SetAttributes(
		attribute.String("agentic.outcome", string(outcome)),
		attribute.Int("agentic.steps", st.StepCount),
	)
	data := map[string]any{"outcome": string(outcome)}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		data["error"] = err.Error()
		a.emitter.Emit(EventError, st.StepCount, map[string]any{"error": err.Error()})
	}
	a.emitter.Emit(EventRunEnd, st.StepCount, data)
	return res, err
}

// step performs one prompt, completion and dispatch cycle. It reports
// whether the done action was dispatched.
func (a *Agent) step(ctx context.Context) (bool, error) {
	st := a.State()
	step := st.StepCount + 1
	ctx, span := a.tracer.Start(ctx, "agent.step", trace.WithAttributes(attribute.Int("agentic.step", step)))
	defer span.End()

	a.emitter.Emit(EventStepStart, step, nil)
	prompt := a.buildPrompt(ctx, &st)
	a.checkTokenUsage(prompt, step)
	a.logPayload("prompt", prompt)

	completion, err := a.completer.Complete(ctx, prompt)
	st.StepCount++
	if err != nil {
		a.commit(st)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("step %d: completion: %w", step, err)
	}
	a.logger.Info("taken step", "step", step, "max_steps", st.MaxSteps)
	a.logPayload("completion", completion)
	a.emitter.Emit(EventCompletion, step, map[string]any{"text": completion})

	rec, err := ParseResponse(completion)
	if err != nil {
		var formatErr *ResponseFormatError
		errors.As(err, &formatErr)
		st.Context = fmt.Sprintf("You gave the answer: %s\nCould not decode answer as JSON: %v\nPlease try again.", completion, formatErr.Err)
		a.logger.Warn("invalid JSON response", "step", step, "error", formatErr.Err)
		a.emitter.Emit(EventFormatError, step, map[string]any{"error": formatErr.Err.Error(), "raw": completion})
		a.commit(st)
		return false, nil
	}

	cmd := rec.Command
	if rec.Thoughts != nil {
		a.logger.Info("thoughts", "text", rec.Thoughts.Text, "reasoning", rec.Thoughts.Reasoning)
	}
	a.logger.Info("chosen action", "action", cmd.Action)
	a.emitter.Emit(EventActionStart, step, map[string]any{"action": cmd.Action, "args": cmd.Args, "kwargs": cmd.Kwargs})

	res, err := a.dispatcher.Dispatch(ctx, &st, cmd)
	if err != nil {
		st.Context = fmt.Sprintf("Just tried running action `%s` given args %s and given kwargs %s\nIt threw an error: %v",
			cmd.Action, formatArgs(cmd.Args), formatKwargs(cmd.Kwargs), err)
		a.logger.Warn("action failed", "action", cmd.Action, "error", err)
		a.emitter.Emit(EventActionError, step, map[string]any{"action": cmd.Action, "error": err.Error()})
		a.commit(st)
		return false, nil
	}

	st.ActionsTaken = append(st.ActionsTaken, *rec)
	a.emitter.Emit(EventActionEnd, step, map[string]any{"action": cmd.Action, "stored_as": res.StoredAs})
	if cmd.Action == ActionDeclareDone {
		a.commit(st)
		return true, nil
	}

	if a.config.EnableLoopDetection && DetectLoop(st.ActionsTaken, a.config.LoopDetectionWindow) {
		warning := fmt.Sprintf("Loop detected: the last %d actions follow a repeating pattern. Try a different approach.", a.config.LoopDetectionWindow)
		st.Context += "\n\n" + warning
		a.logger.Warn("loop detected", "window", a.config.LoopDetectionWindow)
		a.emitter.Emit(EventLoopDetection, step, map[string]any{"message": warning})
	}
	a.commit(st)
	return false, nil
}

func (a *Agent) logPayload(kind, text string) {
	if a.config.Verbose {
		a.logger.Info(kind, "text", text)
		return
	}
	a.logger.Debug(kind, "text", text)
}

// checkTokenUsage warns once a prompt passes 80% of the context window.
func (a *Agent) checkTokenUsage(prompt string, step int) {
	window := a.config.ContextWindow
	if window <= 0 {
		return
	}
	tokens := a.tokens.Count(prompt)
	if tokens <= int(float64(window)*0.8) {
		return
	}
	pct := tokens * 100 / window
	msg := fmt.Sprintf("Prompt uses ~%d%% of the context window", pct)
	a.logger.Warn(msg, "tokens", tokens, "window", window)
	a.emitter.Emit(EventWarning, step, map[string]any{"message": msg, "tokens": tokens})
}
