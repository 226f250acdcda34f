package errors

import (
	"strings"
	"testing"
)

func TestValidatePrompt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "turn it into a watercolor", false},
		{"multiline", "make it glow\nkeep the teal", false},
		{"tab", "neon\tcity", false},
		{"at limit", strings.Repeat("a", MaxPromptLength), false},

		{"empty", "", true},
		{"whitespace", "   \n", true},
		{"too long", strings.Repeat("a", MaxPromptLength+1), true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePrompt(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePrompt(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("code = %v, want %v", GetCode(err), ErrCodeInvalidInput)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"http", "http://localhost:3001/api/evolve", false},
		{"https", "https://example.com/api/evolve", false},

		{"empty", "", true},
		{"ftp", "ftp://example.com", true},
		{"no scheme", "example.com/api", true},
		{"no host", "http:///api", true},
		{"bad escape", "http://%zz", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateOutputPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"png", "chroma-scribe.png", false},
		{"upper png", "out/SNAP.PNG", false},
		{"no extension", "snapshot", false},
		{"dotted dir", "out.d/snapshot", false},

		{"empty", "", true},
		{"jpeg", "snap.jpg", true},
		{"control", "snap\x07.png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputPath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOutputPath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
