package agentloop

import (
	"fmt"
	"strings"
	"sync"
)

// ActionRegistry holds the actions available to the model. User actions are
// listed first, in registration order, followed by the reserved actions.
type ActionRegistry struct {
	actions  map[string]*Action
	user     []string
	reserved []string
	mu       sync.RWMutex
}

// NewActionRegistry creates a registry holding the given reserved actions.
func NewActionRegistry(reserved ...Action) *ActionRegistry {
	r := &ActionRegistry{actions: make(map[string]*Action)}
	for _, a := range reserved {
		a := a
		r.actions[a.Name] = &a
		r.reserved = append(r.reserved, a.Name)
	}
	return r
}

// Register adds user actions. A name that is reserved or already registered
// yields a *NameCollisionError and nothing from the call is added.
func (r *ActionRegistry) Register(actions ...Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(actions))
	for _, a := range actions {
		if a.Name == "" {
			return fmt.Errorf("action has no name")
		}
		if a.Func == nil {
			return fmt.Errorf("action %q has no function", a.Name)
		}
		if r.isReserved(a.Name) {
			return &NameCollisionError{Name: a.Name, Reserved: true}
		}
		if _, ok := r.actions[a.Name]; ok || seen[a.Name] {
			return &NameCollisionError{Name: a.Name}
		}
		seen[a.Name] = true
	}
	for _, a := range actions {
		a := a
		r.actions[a.Name] = &a
		r.user = append(r.user, a.Name)
	}
	return nil
}

// Get returns the named action, or nil if none is registered.
func (r *ActionRegistry) Get(name string) *Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.actions[name]
}

// IsReserved reports whether name belongs to a reserved action.
func (r *ActionRegistry) IsReserved(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isReserved(name)
}

func (r *ActionRegistry) isReserved(name string) bool {
	for _, n := range r.reserved {
		if n == name {
			return true
		}
	}
	return false
}

// Names returns action names in prompt order.
func (r *ActionRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.user)+len(r.reserved))
	names = append(names, r.user...)
	return append(names, r.reserved...)
}

// Len returns the number of registered actions.
func (r *ActionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions)
}

// Describe renders one prompt bullet per action.
func (r *ActionRegistry) Describe() string {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = "- " + r.actions[name].String()
	}
	return strings.Join(lines, "\n")
}
