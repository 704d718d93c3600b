package common

import (
	"testing"
)

func TestValidateOutputFormat(t *testing.T) {
	all := []string{"json", "text", "markdown"}

	tests := []struct {
		name          string
		format        string
		configured    []string
		expectError   bool
		expectedError string
	}{
		{name: "json", format: "json", configured: all},
		{name: "text", format: "text", configured: all},
		{name: "markdown", format: "markdown", configured: all},
		{
			name:          "unknown format",
			format:        "xml",
			configured:    all,
			expectError:   true,
			expectedError: "unsupported output format 'xml'. Supported formats: [json text markdown]",
		},
		{
			name:          "case sensitive",
			format:        "JSON",
			configured:    all,
			expectError:   true,
			expectedError: "unsupported output format 'JSON'. Supported formats: [json text markdown]",
		},
		{
			name:          "empty format",
			format:        "",
			configured:    all,
			expectError:   true,
			expectedError: "unsupported output format ''. Supported formats: [json text markdown]",
		},
		{name: "empty config allows renderable formats", format: "markdown", configured: nil},
		{
			name:          "empty config still rejects unrenderable formats",
			format:        "yaml",
			configured:    nil,
			expectError:   true,
			expectedError: "unsupported output format 'yaml'. Supported formats: [json markdown text]",
		},
		{
			name:          "configured but not renderable",
			format:        "csv",
			configured:    []string{"json", "csv"},
			expectError:   true,
			expectedError: "unsupported output format 'csv'. Supported formats: [json]",
		},
		{
			name:          "renderable but not configured",
			format:        "text",
			configured:    []string{"json"},
			expectError:   true,
			expectedError: "unsupported output format 'text'. Supported formats: [json]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.configured)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
					return
				}
				if tt.expectedError != "" && err.Error() != tt.expectedError {
					t.Errorf("Expected error '%s', got '%s'", tt.expectedError, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestSupportedFormats(t *testing.T) {
	tests := []struct {
		name       string
		configured []string
		expected   []string
	}{
		{name: "keeps configured order", configured: []string{"markdown", "json"}, expected: []string{"markdown", "json"}},
		{name: "drops unknown formats", configured: []string{"xml", "text"}, expected: []string{"text"}},
		{name: "empty config lists registry", configured: []string{}, expected: []string{"json", "markdown", "text"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SupportedFormats(tt.configured)

			if len(result) != len(tt.expected) {
				t.Fatalf("Expected %v, got %v", tt.expected, result)
			}
			for i, expected := range tt.expected {
				if result[i] != expected {
					t.Errorf("Expected format[%d] = '%s', got '%s'", i, expected, result[i])
				}
			}
		})
	}
}

func BenchmarkValidateOutputFormat(b *testing.B) {
	configured := []string{"json", "text", "markdown"}

	b.Run("valid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("json", configured)
		}
	})

	b.Run("invalid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("xml", configured)
		}
	})
}
