package sqlutil

import "testing"

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"users", "`users`"},
		{"select", "`select`"},
		{"first name", "`first name`"},
		{"user`data", "`user``data`"},
		{"", "``"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := QuoteIdentifier(tt.input)
			if result != tt.expected {
				t.Errorf("QuoteIdentifier(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestQuoteANSIIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"main", `"main"`},
		{"order", `"order"`},
		{"my schema", `"my schema"`},
		{`a"b`, `"a""b"`},
		{"", `""`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := QuoteANSIIdentifier(tt.input)
			if result != tt.expected {
				t.Errorf("QuoteANSIIdentifier(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
