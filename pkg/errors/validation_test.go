package errors

import (
	"strings"
	"testing"
)

func TestValidateDocumentName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "ideas", false},
		{"valid with dash", "project-plan", false},
		{"valid with underscore", "q3_review", false},
		{"valid with dot", "notes.v2", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 200), true},
		{"path traversal", "a..b", true},
		{"slash", "foo/bar", true},
		{"backslash", "foo\\bar", true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
		{"leading dot", ".hidden", true},
		{"space", "my plan", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocumentName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDocumentName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("ValidateDocumentName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidInput)
			}
		})
	}
}

func TestValidateDocumentPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative json", "map.json", false},
		{"absolute json", "/tmp/maps/map.json", false},
		{"upper case ext", "MAP.JSON", false},

		{"empty", "", true},
		{"no extension", "map", true},
		{"wrong extension", "map.png", true},
		{"null byte", "ma\x00p.json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocumentPath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDocumentPath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
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
		{"https", "https://example.com", false},
		{"http", "http://localhost:8080/x", false},
		{"empty", "", true},
		{"file scheme", "file:///etc/passwd", true},
		{"javascript", "javascript:alert(1)", true},
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

func TestValidateStruct(t *testing.T) {
	type inner struct {
		Mode string `toml:"mode" validate:"oneof=a b"`
	}
	type request struct {
		Text  string  `json:"text" validate:"required"`
		Count int     `json:"count" validate:"gte=1,lte=5"`
		Inner inner   `toml:"inner"`
		Skip  float64 `json:"-"`
	}

	tests := []struct {
		name string
		in   request
		want []string
	}{
		{"valid", request{Text: "x", Count: 2, Inner: inner{Mode: "a"}}, nil},
		{"missing text", request{Count: 1, Inner: inner{Mode: "b"}}, []string{"text is required"}},
		{"several", request{Count: 9, Inner: inner{Mode: "z"}}, []string{"text is required", "count must be at most 5", "inner.mode must be one of: a b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.in)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("ValidateStruct() = %v", err)
				}
				return
			}
			if !Is(err, ErrCodeInvalidInput) {
				t.Fatalf("err = %v, want INVALID_INPUT", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("err = %q, missing %q", err, w)
				}
			}
		})
	}
}
