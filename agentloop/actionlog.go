package agentloop

import (
	"context"
	"fmt"
	"os"

	"github.com/titanous/json5"
)

// ActionLog is the persisted form of a run: its objective and the commands
// that were dispatched.
type ActionLog struct {
	Objective string          `json:"objective"`
	Actions   []CommandRecord `json:"actions"`
}

// SaveActions writes the agent's dispatched commands to path. Clarification
// requests are left out since they cannot be replayed without a person.
func (a *Agent) SaveActions(path string) error {
	st := a.State()
	log := ActionLog{Objective: st.Objective, Actions: []CommandRecord{}}
	for _, rec := range st.ActionsTaken {
		if rec.Command.Action == ActionAskUserClarify {
			continue
		}
		log.Actions = append(log.Actions, rec)
	}

	data, err := marshalJSON(log, "  ")
	if err != nil {
		return fmt.Errorf("encode action log: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write action log: %w", err)
	}
	a.logger.Info("saved action log", "path", path, "actions", len(log.Actions))
	return nil
}

// LoadActionLog reads an action log. Hand-edited logs may use JSON5 syntax.
func LoadActionLog(path string) (*ActionLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read action log: %w", err)
	}
	var log ActionLog
	if err := json5.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("parse action log %s: %w", path, err)
	}
	for i, rec := range log.Actions {
		if rec.Command.Action == "" {
			return nil, fmt.Errorf("action log %s: record %d has no action", path, i)
		}
	}
	return &log, nil
}

// FromActionLog creates an agent for the log's objective, ready to Replay
// its commands.
func FromActionLog(log *ActionLog, completer Completer, mem Memory, opts ...Option) (*Agent, error) {
	a, err := New(log.Objective, completer, mem, opts...)
	if err != nil {
		return nil, err
	}
	a.loaded = append([]CommandRecord(nil), log.Actions...)
	a.logger.Info("loaded action log", "actions", len(a.loaded))
	return a, nil
}

// Loaded returns the commands waiting to be replayed.
func (a *Agent) Loaded() []CommandRecord {
	return append([]CommandRecord(nil), a.loaded...)
}

// Replay dispatches the loaded commands in order without consulting the
// model. It stops at the first failure, returned as a *ReplayError.
func (a *Agent) Replay(ctx context.Context) error {
	for i, rec := range a.loaded {
		if err := ctx.Err(); err != nil {
			return &ReplayError{Step: i, Action: rec.Command.Action, Err: err}
		}
		st := a.State()
		a.logger.Info("replaying action", "step", i, "action", rec.Command.Action)
		if _, err := a.dispatcher.Dispatch(ctx, &st, rec.Command); err != nil {
			a.emitter.Emit(EventActionError, i, map[string]any{"action": rec.Command.Action, "error": err.Error()})
			return &ReplayError{Step: i, Action: rec.Command.Action, Err: err}
		}
		st.StepCount++
		st.ActionsTaken = append(st.ActionsTaken, rec)
		a.commit(st)
		a.emitter.Emit(EventActionEnd, i, map[string]any{"action": rec.Command.Action})
	}
	return nil
}
