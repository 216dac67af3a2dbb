package pathutil

import "testing"

func TestSafeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already safe", "lmax1000", "lmax1000"},
		{"decimal point kept", "accuracy_boost0.95", "accuracy_boost0.95"},
		{"negative value kept", "w_-1.200", "w_-1.200"},
		{"parentheses dropped", "scalar_nrun(1)_0.030", "scalar_nrun1_0.030"},
		{"space replaced", "a b", "a_b"},
		{"slash replaced", "a/b", "a_b"},
		{"equals replaced", "a=b", "a_b"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeName(tt.input); got != tt.want {
				t.Errorf("SafeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsSafeName(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"base", true},
		{"omk_-0.030", true},
		{"", false},
		{".", false},
		{"..", false},
		{"a/b", false},
		{"x(1)", false},
	}
	for _, tt := range tests {
		if got := IsSafeName(tt.input); got != tt.want {
			t.Errorf("IsSafeName(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
