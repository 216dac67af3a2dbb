package overlay

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nvandessel/cambtest/internal/constants"
)

// Point is a single named overlay with fixed directives.
type Point struct {
	Name       string
	Directives []string
}

// Kind implements Rule.
func (Point) Kind() string { return "point" }

func (r Point) expand() ([]Overlay, error) {
	if r.Name == "" {
		return nil, fmt.Errorf("point rule needs a name")
	}
	return []Overlay{{Name: r.Name, Directives: cloneLines(r.Directives)}}, nil
}

// Linear sweeps one parameter over an explicit ordered list of values. Each
// value yields one overlay named Prefix+value whose directives are the
// templates with the value substituted (see Expand for the placeholder forms).
type Linear struct {
	Prefix     string
	Values     []string
	Directives []string
}

// Kind implements Rule.
func (Linear) Kind() string { return "linear" }

func (r Linear) expand() ([]Overlay, error) {
	if len(r.Values) == 0 {
		return nil, fmt.Errorf("linear rule %q has no values", r.Prefix)
	}
	if len(r.Directives) == 0 {
		return nil, fmt.Errorf("linear rule %q has no directives", r.Prefix)
	}

	overlays := make([]Overlay, 0, len(r.Values))
	for _, v := range r.Values {
		lines := make([]string, len(r.Directives))
		for i, tmpl := range r.Directives {
			line, err := Expand(tmpl, v)
			if err != nil {
				return nil, fmt.Errorf("linear rule %q: %w", r.Prefix, err)
			}
			lines[i] = line
		}
		overlays = append(overlays, Overlay{Name: r.Prefix + v, Directives: lines})
	}
	return overlays, nil
}

// Cross sweeps each parameter independently: one overlay per
// (parameter, value) pair, never the cartesian product across parameters.
// Every overlay carries the Fixed companion directives followed by
// "parameter = value". Parameters are visited in sorted order.
type Cross struct {
	Fixed  []string
	Params map[string][]float64

	// Precision is the number of decimals of the value in the overlay name.
	// Zero selects constants.DefaultCrossPrecision.
	Precision int
}

// Kind implements Rule.
func (Cross) Kind() string { return "cross" }

func (r Cross) expand() ([]Overlay, error) {
	if len(r.Params) == 0 {
		return nil, fmt.Errorf("cross rule has no parameters")
	}
	prec := precisionOrDefault(r.Precision)

	var overlays []Overlay
	for _, par := range sortedKeys(r.Params) {
		vals := r.Params[par]
		if len(vals) == 0 {
			return nil, fmt.Errorf("cross rule parameter %q has no values", par)
		}
		for _, v := range vals {
			lines := append(cloneLines(r.Fixed), par+" = "+formatValue(v))
			overlays = append(overlays, Overlay{
				Name:       par + "_" + strconv.FormatFloat(v, 'f', prec, 64),
				Directives: lines,
			})
		}
	}
	return overlays, nil
}

// Column is one parameter of a Joint rule with one value per overlay.
type Column struct {
	Key    string
	Values []string
}

// Joint varies two or more parameters together in lockstep. Overlay i is
// named Names[i] and carries Fixed, then "Key=Values[i]" for every column in
// declared order, then Trailing.
type Joint struct {
	Names    []string
	Fixed    []string
	Columns  []Column
	Trailing []string
}

// Kind implements Rule.
func (Joint) Kind() string { return "joint" }

func (r Joint) expand() ([]Overlay, error) {
	if len(r.Names) == 0 {
		return nil, fmt.Errorf("joint rule has no names")
	}
	if len(r.Columns) == 0 {
		return nil, fmt.Errorf("joint rule %q has no columns", r.Names[0])
	}
	for _, c := range r.Columns {
		if c.Key == "" {
			return nil, fmt.Errorf("joint rule %q has a column without key", r.Names[0])
		}
		if len(c.Values) != len(r.Names) {
			return nil, fmt.Errorf("joint rule %q: column %q has %d values for %d names",
				r.Names[0], c.Key, len(c.Values), len(r.Names))
		}
	}

	overlays := make([]Overlay, len(r.Names))
	for i, name := range r.Names {
		lines := cloneLines(r.Fixed)
		for _, c := range r.Columns {
			lines = append(lines, c.Key+"="+c.Values[i])
		}
		lines = append(lines, r.Trailing...)
		overlays[i] = Overlay{Name: name, Directives: lines}
	}
	return overlays, nil
}

// Grid is the full cartesian product of its parameters. Each overlay carries
// Fixed followed by one "parameter = value" line per parameter, parameters in
// sorted order, and is named Prefix followed by "_<parameter>_<value>" for
// every parameter.
type Grid struct {
	Prefix    string
	Fixed     []string
	Params    map[string][]float64
	Precision int
}

// Kind implements Rule.
func (Grid) Kind() string { return "grid" }

func (r Grid) expand() ([]Overlay, error) {
	if len(r.Params) == 0 {
		return nil, fmt.Errorf("grid rule %q has no parameters", r.Prefix)
	}
	keys := sortedKeys(r.Params)
	for _, k := range keys {
		if len(r.Params[k]) == 0 {
			return nil, fmt.Errorf("grid rule %q: parameter %q has no values", r.Prefix, k)
		}
	}
	prec := precisionOrDefault(r.Precision)

	// idx is an odometer over the parameter value lists, last key fastest.
	idx := make([]int, len(keys))
	var overlays []Overlay
	for {
		parts := []string{}
		if r.Prefix != "" {
			parts = append(parts, r.Prefix)
		}
		lines := cloneLines(r.Fixed)
		for i, k := range keys {
			v := r.Params[k][idx[i]]
			parts = append(parts, k, strconv.FormatFloat(v, 'f', prec, 64))
			lines = append(lines, k+" = "+formatValue(v))
		}
		overlays = append(overlays, Overlay{Name: strings.Join(parts, "_"), Directives: lines})

		pos := len(keys) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(r.Params[keys[pos]]) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			return overlays, nil
		}
	}
}

func precisionOrDefault(p int) int {
	if p <= 0 {
		return constants.DefaultCrossPrecision
	}
	return p
}

// formatValue writes v with the fewest digits that round-trip, so 62 is "62"
// and 0.0219 is "0.0219".
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneLines(lines []string) []string {
	out := make([]string, len(lines), len(lines)+4)
	copy(out, lines)
	return out
}
