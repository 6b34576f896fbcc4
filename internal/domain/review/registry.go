package review

import (
	"fmt"
	"sync"

	"github.com/closebooks/backend/internal/domain/shared"
)

// Registry holds the rules available to a run, keyed by rule id.
// Registration order is preserved: it defines both execution order and
// catalog order. The registry is populated once at startup and treated as
// read-only during runs.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
	order []string
}

// NewRegistry creates an empty rule registry
func NewRegistry() *Registry {
	return &Registry{
		rules: make(map[string]Rule),
	}
}

// Register adds a rule. Nil rules, empty ids and duplicate ids are rejected.
func (r *Registry) Register(rule Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule cannot be nil", shared.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := rule.ID()
	if id == "" {
		return fmt.Errorf("%w: rule id cannot be empty", shared.ErrInvalidInput)
	}
	if _, exists := r.rules[id]; exists {
		return fmt.Errorf("%w: rule '%s' already registered", shared.ErrAlreadyExists, id)
	}

	r.rules[id] = rule
	r.order = append(r.order, id)
	return nil
}

// MustRegister registers a rule and panics on failure. Intended for startup
// wiring where a duplicate id is a programming error.
func (r *Registry) MustRegister(rule Rule) {
	if err := r.Register(rule); err != nil {
		panic(err)
	}
}

// Get returns a rule by id
func (r *Registry) Get(id string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, exists := r.rules[id]
	return rule, exists
}

// Rules returns all rules in registration order
func (r *Registry) Rules() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Rule, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rules[id])
	}
	return out
}

// IDs returns all rule ids in registration order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Unregister removes a rule (useful for testing)
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[id]; !exists {
		return fmt.Errorf("%w: rule '%s' not found", shared.ErrNotFound, id)
	}

	delete(r.rules, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of registered rules
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}
