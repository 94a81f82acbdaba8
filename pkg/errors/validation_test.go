package errors

import (
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"absolute", "/usr/share/fonts/DejaVuSans.ttf", false},
		{"relative", "fonts/Inter.ttf", false},
		{"parent reference", "../assets", false},
		{"with spaces", "My Fonts/Noto Sans.otf", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 5000), true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
		{"control char", "foo\x01bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath("font_files", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeConfigInvalid) {
				t.Errorf("ValidatePath(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeConfigInvalid)
			}
		})
	}
}

func TestValidatePaths(t *testing.T) {
	if err := ValidatePaths("font_dirs", []string{"/a", "b/c"}); err != nil {
		t.Errorf("valid paths should pass: %v", err)
	}
	if err := ValidatePaths("font_dirs", []string{"/a", ""}); err == nil {
		t.Error("empty entry should fail")
	}
	if err := ValidatePaths("font_dirs", nil); err != nil {
		t.Errorf("nil list should pass: %v", err)
	}
}

func TestValidateFamilyName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"Times New Roman", false},
		{"Noto Sans CJK JP", false},
		{"", true},
		{"   ", true},
		{"Arial\x07", true},
	}

	for _, tt := range tests {
		err := ValidateFamilyName("font_family", tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFamilyName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}
