// Package suite runs registered conformance cases against a secure
// environment and aggregates their outcome.
//
// Cases are registered explicitly at process start. A case splits its work
// into subcases, every subcase is bracketed by begin and end markers and its
// outcome is recorded before the next one starts. A failing subcase never
// stops its siblings; only a fatal error halts the run.
package suite

import (
	"fmt"
)

// Case describes one registered conformance case.
type Case struct {
	// ID is the unique identifier of the case. For example: "10001"
	ID string
	// Title is a one line summary.
	Title string
	// Description is a short description of what is tested.
	Description string
	// Requirement references the requirement the case covers.
	Requirement string
	// Run executes the case. Failures are reported through t.
	Run func(t *T)
}

// Registry is an ordered collection of cases.
type Registry struct {
	cases []Case
	ids   map[string]struct{}
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		ids: make(map[string]struct{}),
	}
}

// Register appends c to the registry. Case ids must be unique.
func (r *Registry) Register(c Case) error {
	if c.ID == "" {
		return fmt.Errorf("suite: case without id")
	}
	if c.Run == nil {
		return fmt.Errorf("suite: case %q has no run function", c.ID)
	}
	if _, ok := r.ids[c.ID]; ok {
		return fmt.Errorf("suite: case %q registered twice", c.ID)
	}

	r.ids[c.ID] = struct{}{}
	r.cases = append(r.cases, c)
	return nil
}

// Cases returns all cases in registration order.
func (r *Registry) Cases() []Case {
	out := make([]Case, len(r.cases))
	copy(out, r.cases)
	return out
}

// Select returns the cases with the given ids in registration order. Without
// ids all cases are returned.
func (r *Registry) Select(ids ...string) ([]Case, error) {
	if len(ids) == 0 {
		return r.Cases(), nil
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := r.ids[id]; !ok {
			return nil, fmt.Errorf("suite: unknown case %q", id)
		}
		want[id] = true
	}

	var out []Case
	for _, c := range r.cases {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}
