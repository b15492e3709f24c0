package agentloop

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ResultStore is the memory surface the dispatcher needs.
type ResultStore interface {
	DocumentLookup
	Names() []string
	AddDocument(ctx context.Context, name, text string) error
}

// ExecutionState is the mutable state of one agent run.
type ExecutionState struct {
	Objective    string
	StepCount    int
	MaxSteps     int
	Context      string
	ActionsTaken []CommandRecord
}

// DispatchResult describes a successfully dispatched command.
type DispatchResult struct {
	Action   string
	Result   any
	StoredAs string
}

// Dispatcher resolves, invokes and records commands.
type Dispatcher struct {
	registry *ActionRegistry
	store    ResultStore
	naming   NamingPolicy
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewDispatcher creates a Dispatcher over registry and store.
func NewDispatcher(registry *ActionRegistry, store ResultStore, naming NamingPolicy, logger *slog.Logger, tracer trace.Tracer) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = defaultTracer()
	}
	return &Dispatcher{registry: registry, store: store, naming: naming, logger: logger, tracer: tracer}
}

// Dispatch runs cmd against state. Every returned error is recoverable.
func (d *Dispatcher) Dispatch(ctx context.Context, state *ExecutionState, cmd Command) (*DispatchResult, error) {
	ctx, span := d.tracer.Start(ctx, "agent.dispatch", trace.WithAttributes(
		attribute.String("agentic.action", cmd.Action),
		attribute.Int("agentic.step", state.StepCount),
	))
	defer span.End()

	res, err := d.dispatch(ctx, state, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if res.StoredAs != "" {
		span.SetAttributes(attribute.String("agentic.stored_as", res.StoredAs))
	}
	return res, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, state *ExecutionState, cmd Command) (*DispatchResult, error) {
	args, kwargs, err := ResolveCommand(cmd, d.store)
	if err != nil {
		return nil, err
	}

	action := d.registry.Get(cmd.Action)
	if action == nil {
		return nil, &ActionNotFoundError{Name: cmd.Action}
	}

	d.logger.Debug("invoking action", "action", action.Name, "args", args, "kwargs", kwargs)
	result, err := invoke(ctx, action, args, kwargs)
	if err != nil {
		return nil, &ActionExecutionError{Action: action.Name, Err: err}
	}

	if c, ok := resultContext(result); ok {
		state.Context = c
	}

	var serialized []byte
	if result != nil {
		serialized, err = marshalJSON(result, "")
		if err != nil {
			return nil, &ActionSerializationError{Action: action.Name, Err: err}
		}
	}

	res := &DispatchResult{Action: action.Name, Result: result}
	state.Context += "\n\nCommand " + action.Name + " executed."
	if result != nil {
		name := ResultName(action.Name, d.store.Names(), d.naming)
		if err := d.store.AddDocument(ctx, name, string(serialized)); err != nil {
			return nil, &MemoryWriteError{Name: name, Err: err}
		}
		res.StoredAs = name
		state.Context += "\nResult is stored in Memory as: " + name
	}

	d.logger.Info("completed action", "action", action.Name, "stored_as", res.StoredAs)
	return res, nil
}

// resultContext returns the "context" entry of a map result.
func resultContext(result any) (string, bool) {
	switch m := result.(type) {
	case map[string]string:
		c, ok := m["context"]
		return c, ok
	case map[string]any:
		c, ok := m["context"]
		if !ok {
			return "", false
		}
		if s, ok := c.(string); ok {
			return s, true
		}
		return formatValue(c), true
	}
	return "", false
}

// invoke binds and runs an action, converting a panic into an error.
func invoke(ctx context.Context, action *Action, args []any, kwargs map[string]any) (result any, err error) {
	bound, err := action.bind(args, kwargs)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return action.Func(ctx, bound)
}
