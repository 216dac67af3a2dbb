// Package overlay generates the matrix of named parameter overlays that the
// regression driver materializes and runs.
//
// A Catalogue is an ordered list of typed sweep rules (Point, Linear, Cross,
// Joint, Grid). Generate interprets every rule in order and returns the
// overlays it expands to. Generation is pure: the same catalogue always yields
// the same overlays in the same order.
package overlay

import (
	"fmt"

	"github.com/nvandessel/cambtest/internal/pathutil"
)

// Overlay is a named set of configuration override directives layered on a
// shared base settings file.
type Overlay struct {
	// Name is unique within one generation run and safe to use as a file name.
	Name string `json:"name" yaml:"name"`

	// Directives are raw "key = value" lines. Order is preserved verbatim and
	// repeated keys are passed through; the consumer decides which one wins.
	Directives []string `json:"directives" yaml:"directives"`
}

// Rule is one declarative sweep rule. The set of implementations is closed.
type Rule interface {
	// Kind names the rule variant ("point", "linear", "cross", "joint", "grid").
	Kind() string

	expand() ([]Overlay, error)
}

// Catalogue is an ordered list of sweep rules.
type Catalogue struct {
	Rules []Rule
}

// Generate expands every rule of the catalogue in order. Names are mapped
// onto the portable file-name alphabet; a name that is empty or collides with
// an earlier one is an error.
func (c Catalogue) Generate() ([]Overlay, error) {
	if len(c.Rules) == 0 {
		return nil, fmt.Errorf("catalogue has no rules")
	}

	var overlays []Overlay
	seen := make(map[string]int)
	for i, rule := range c.Rules {
		if rule == nil {
			return nil, fmt.Errorf("rule %d is nil", i)
		}
		expanded, err := rule.expand()
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rule.Kind(), err)
		}
		for _, o := range expanded {
			o.Name = pathutil.SafeName(o.Name)
			if o.Name == "" {
				return nil, fmt.Errorf("rule %d (%s): empty overlay name", i, rule.Kind())
			}
			if prev, ok := seen[o.Name]; ok {
				return nil, fmt.Errorf("rule %d (%s): duplicate overlay name %q (first produced by rule %d)", i, rule.Kind(), o.Name, prev)
			}
			seen[o.Name] = i
			overlays = append(overlays, o)
		}
	}
	return overlays, nil
}

// Generate expands the built-in CAMB catalogue. The catalogue is compiled
// into the binary, so a malformed rule is a programming error and panics.
func Generate() []Overlay {
	overlays, err := Default().Generate()
	if err != nil {
		panic(fmt.Sprintf("overlay: built-in catalogue is invalid: %v", err))
	}
	return overlays
}

// Names returns the overlay names in order.
func Names(overlays []Overlay) []string {
	names := make([]string, len(overlays))
	for i, o := range overlays {
		names[i] = o.Name
	}
	return names
}
