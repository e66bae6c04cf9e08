package cmd

import (
	"testing"
)

func TestParseCommaSeparatedList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single value",
			input:    "Work",
			expected: []string{"Work"},
		},
		{
			name:     "multiple values",
			input:    "Work,Receipts",
			expected: []string{"Work", "Receipts"},
		},
		{
			name:     "values with spaces around comma",
			input:    "Work, Receipts",
			expected: []string{"Work", "Receipts"},
		},
		{
			name:     "label names keep inner spaces",
			input:    "  Old Projects  ,  Travel  ",
			expected: []string{"Old Projects", "Travel"},
		},
		{
			name:     "trailing comma",
			input:    "Work,Receipts,",
			expected: []string{"Work", "Receipts"},
		},
		{
			name:     "multiple consecutive commas",
			input:    "Work,,Receipts",
			expected: []string{"Work", "Receipts"},
		},
		{
			name:     "only commas and spaces",
			input:    ",  , , ",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseCommaSeparatedList(tt.input)

			if tt.expected == nil {
				if result != nil {
					t.Errorf("parseCommaSeparatedList(%q) = %v, want nil", tt.input, result)
				}
				return
			}

			if len(result) != len(tt.expected) {
				t.Errorf("parseCommaSeparatedList(%q) = %v (len %d), want %v (len %d)",
					tt.input, result, len(result), tt.expected, len(tt.expected))
				return
			}

			for i, v := range result {
				if v != tt.expected[i] {
					t.Errorf("parseCommaSeparatedList(%q)[%d] = %q, want %q",
						tt.input, i, v, tt.expected[i])
				}
			}
		})
	}
}
