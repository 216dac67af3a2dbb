package overlay

import (
	"fmt"
	"regexp"
	"strconv"
)

// placeholder matches {v}, {v*F} and {v/F} with optional inner spaces.
var placeholder = regexp.MustCompile(`\{\s*v\s*(?:([*/])\s*([^}\s]+)\s*)?\}`)

// Expand substitutes value into a directive template.
//
//	{v}    the value exactly as written
//	{v*F}  the value multiplied by the constant F
//	{v/F}  the value divided by the constant F
//
// Derived values are written with the shortest decimal that round-trips.
// A template without placeholders is returned unchanged, which is how fixed
// companion directives ride along in a sweep.
func Expand(tmpl, value string) (string, error) {
	var firstErr error
	out := placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		if firstErr != nil {
			return m
		}
		sub := placeholder.FindStringSubmatch(m)
		op, factorText := sub[1], sub[2]
		if op == "" {
			return value
		}

		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			firstErr = fmt.Errorf("template %q: value %q is not numeric", tmpl, value)
			return m
		}
		factor, err := strconv.ParseFloat(factorText, 64)
		if err != nil {
			firstErr = fmt.Errorf("template %q: bad factor %q", tmpl, factorText)
			return m
		}
		if op == "/" {
			if factor == 0 {
				firstErr = fmt.Errorf("template %q: division by zero", tmpl)
				return m
			}
			return formatValue(v / factor)
		}
		return formatValue(v * factor)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
