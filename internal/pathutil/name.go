package pathutil

import "strings"

// SafeName maps name onto the portable file-name alphabet [A-Za-z0-9._+-].
// Parentheses are dropped ("scalar_nrun(1)" becomes "scalar_nrun1") and every
// other character outside the alphabet becomes an underscore.
func SafeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '(' || r == ')':
			continue
		case isSafeRune(r):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// IsSafeName reports whether name is non-empty, already in the portable
// alphabet, and not a relative path element.
func IsSafeName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	for _, r := range name {
		if !isSafeRune(r) {
			return false
		}
	}
	return true
}

func isSafeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.' || r == '_' || r == '-' || r == '+':
		return true
	}
	return false
}
