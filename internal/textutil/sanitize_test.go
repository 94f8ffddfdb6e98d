package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"promo", "promo"},
		{"Q3: Launch/Recap", "Q3- Launch-Recap"},
		{"what?  <now>", "what now"},
		{"  spaced\tout\n", "spaced out"},
		{"a\x00b\x7fc", "a b c"},
		{"..hidden", "hidden"},
		{"", "export"},
		{"???", "export"},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in, "export"); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
