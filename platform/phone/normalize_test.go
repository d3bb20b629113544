package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"national format", "098765 43210", "+919876543210"},
		{"already e164", "+919876543210", "+919876543210"},
		{"with spaces", "  +91 98765 43210 ", "+919876543210"},
		{"empty", "", ""},
		{"garbage passes through", "not-a-number", "not-a-number"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeE164(tc.input); got != tc.want {
				t.Errorf("NormalizeE164(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
