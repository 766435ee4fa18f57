package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/tendant/simple-admission/pkg/domain"
)

type submission struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Email   string  `json:"email" validate:"required,email"`
	Website *string `json:"website,omitempty" validate:"omitempty,url"`
	Ignored string  `json:"-" validate:"omitempty,max=1"`
}

func TestStruct(t *testing.T) {
	badURL := "not a url"
	goodURL := "https://example.com"

	tests := []struct {
		name       string
		input      interface{}
		wantFields map[string]string
		wantErr    bool
	}{
		{
			name:  "valid",
			input: &submission{Name: "João Silva", Email: "joao@empresa.com", Website: &goodURL},
		},
		{
			name:    "missing fields use json names",
			input:   submission{},
			wantErr: true,
			wantFields: map[string]string{
				"name":  "is required",
				"email": "is required",
			},
		},
		{
			name:    "bad email and url",
			input:   &submission{Name: "x", Email: "nope", Website: &badURL},
			wantErr: true,
			wantFields: map[string]string{
				"email":   "must be a valid email address",
				"website": "must be a valid URL",
			},
		},
		{
			name:    "too long",
			input:   &submission{Name: strings.Repeat("a", 201), Email: "a@b.co"},
			wantErr: true,
			wantFields: map[string]string{
				"name": "must be at most 200 characters",
			},
		},
		{
			name:    "nil",
			input:   nil,
			wantErr: true,
		},
		{
			name:    "not a struct",
			input:   "string",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Struct() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantFields == nil {
				return
			}

			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Struct() error = %T, want *domain.ValidationError", err)
			}
			if len(verr.Fields) != len(tt.wantFields) {
				t.Errorf("Fields = %v, want %v", verr.Fields, tt.wantFields)
			}
			for field, msg := range tt.wantFields {
				if verr.Fields[field] != msg {
					t.Errorf("Fields[%s] = %q, want %q", field, verr.Fields[field], msg)
				}
			}
		})
	}
}

func TestEmailPolicy_Email(t *testing.T) {
	tests := []struct {
		name    string
		policy  EmailPolicy
		email   string
		wantErr bool
	}{
		{name: "valid email", email: "test@example.com"},
		{name: "valid email with subdomain", email: "test@mail.example.com"},
		{name: "valid email with plus", email: "test+tag@example.com"},
		{name: "uppercase is normalized", email: "  Joao@Empresa.COM "},
		{name: "empty email", email: "", wantErr: true},
		{name: "no @", email: "invalid.com", wantErr: true},
		{name: "no domain", email: "test@", wantErr: true},
		{name: "no local part", email: "@example.com", wantErr: true},
		{name: "display name rejected", email: "Joao <joao@empresa.com>", wantErr: true},
		{name: "too long", email: strings.Repeat("a", 300) + "@example.com", wantErr: true},
		{name: "disposable allowed by default", email: "x@mailinator.com"},
		{name: "disposable blocked", policy: EmailPolicy{BlockDisposable: true}, email: "x@Mailinator.com", wantErr: true},
		{name: "strict rejects quoted local part", policy: EmailPolicy{Strict: true}, email: `"a b"@example.com`, wantErr: true},
		{name: "strict accepts plain address", policy: EmailPolicy{Strict: true}, email: "joao@empresa.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Email(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("Email(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Joao@Empresa.COM "); got != "joao@empresa.com" {
		t.Errorf("NormalizeEmail() = %q, want %q", got, "joao@empresa.com")
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain text", input: "Hello World", want: "Hello World"},
		{name: "trim spaces", input: "  Empresa XYZ  ", want: "Empresa XYZ"},
		{name: "keeps markup as typed", input: "Test & Co. <b>", want: "Test & Co. <b>"},
		{name: "unicode", input: "José García", want: "José García"},
		{name: "control chars removed", input: "a\x00b\x07c", want: "abc"},
		{name: "newlines kept", input: "line one\nline two", want: "line one\nline two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.input); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLine(t *testing.T) {
	if got := Line("  João \n\t Silva\x00 "); got != "João Silva" {
		t.Errorf("Line() = %q, want %q", got, "João Silva")
	}
}

func TestOptionalText(t *testing.T) {
	if got := OptionalText(nil); got != nil {
		t.Errorf("OptionalText(nil) = %v, want nil", *got)
	}
	blank := "   "
	if got := OptionalText(&blank); got != nil {
		t.Errorf("OptionalText(blank) = %q, want nil", *got)
	}
	v := " CTO "
	if got := OptionalText(&v); got == nil || *got != "CTO" {
		t.Errorf("OptionalText() = %v, want CTO", got)
	}
}
