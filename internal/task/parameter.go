package task

import (
	"cmp"
	"context"
	"slices"
)

// Logical parameter names, usable with Set.ByName.
const (
	NameBefore             = "before"
	NameAfter              = "after"
	NameFailed             = "failed"
	NameSkip               = "skip"
	NameWithoutOverlapping = "without_overlapping"
	NameMonitor            = "monitor"
)

// Parameter is a behavior modifier attached to a task. What a parameter
// does is expressed through the handler interfaces it implements; a single
// parameter may implement several of them.
type Parameter interface {
	// Name returns the logical name used by Set.ByName.
	Name() string

	// Priority orders handlers. Before and failed handlers run highest
	// first, after handlers run highest last.
	Priority() int
}

// BeforeHandler runs before the task body. Returning a *SkipError skips the
// task; any other error fails it.
type BeforeHandler interface {
	Parameter
	BeforeTask(ctx context.Context, env *Env, t *Task) error
}

// AfterHandler runs after a successful task body.
type AfterHandler interface {
	Parameter
	AfterTask(ctx context.Context, env *Env, r *Result) error
}

// FailedHandler runs after a failed before-handler or task body.
type FailedHandler interface {
	Parameter
	FailedTask(ctx context.Context, env *Env, r *Result) error
}

// Set is an ordered collection of parameters. Insertion order is the
// default order. Filtering and sorting return new sets referencing the same
// parameters; only Add modifies the receiver. Not safe for concurrent
// mutation: parameters are attached during configuration.
type Set struct {
	items []Parameter
}

// NewSet returns a set holding params in order.
func NewSet(params ...Parameter) *Set {
	s := &Set{}
	for _, p := range params {
		s.Add(p)
	}
	return s
}

// Add appends p.
func (s *Set) Add(p Parameter) *Set {
	s.items = append(s.items, p)
	return s
}

// All returns the parameters in order.
func (s *Set) All() []Parameter {
	return slices.Clone(s.items)
}

// Len returns the number of parameters.
func (s *Set) Len() int { return len(s.items) }

// First returns the first parameter, if any.
func (s *Set) First() (Parameter, bool) {
	if len(s.items) == 0 {
		return nil, false
	}
	return s.items[0], true
}

// Filter returns a new set with the parameters keep accepts.
func (s *Set) Filter(keep func(Parameter) bool) *Set {
	out := &Set{}
	for _, p := range s.items {
		if keep(p) {
			out.items = append(out.items, p)
		}
	}
	return out
}

// ByName returns a new set with the parameters whose Name equals name.
func (s *Set) ByName(name string) *Set {
	return s.Filter(func(p Parameter) bool { return p.Name() == name })
}

// SortDescending returns a new set ordered by priority, highest first.
// Equal priorities keep their insertion order.
func (s *Set) SortDescending() *Set {
	out := &Set{items: slices.Clone(s.items)}
	slices.SortStableFunc(out.items, func(a, b Parameter) int {
		return cmp.Compare(b.Priority(), a.Priority())
	})
	return out
}

// SortAscending returns a new set ordered by priority, highest last.
// Equal priorities keep their insertion order.
func (s *Set) SortAscending() *Set {
	out := &Set{items: slices.Clone(s.items)}
	slices.SortStableFunc(out.items, func(a, b Parameter) int {
		return cmp.Compare(a.Priority(), b.Priority())
	})
	return out
}

// Handlers returns the parameters of s implementing T, in the set's order.
func Handlers[T any](s *Set) []T {
	var out []T
	for _, p := range s.items {
		if h, ok := p.(T); ok {
			out = append(out, h)
		}
	}
	return out
}
