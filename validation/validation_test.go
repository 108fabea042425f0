package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestValidatorRequired(t *testing.T) {
	if New().Required("name", "John").HasErrors() {
		t.Error("expected no errors for valid input")
	}
	if !New().Required("name", "").HasErrors() {
		t.Error("expected error for empty required field")
	}
	if !New().Required("name", "   ").HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorRequiredUUID(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
	}{
		{uuid.New().String(), false},
		{"", true},
		{"not-a-uuid", true},
		{uuid.Nil.String(), true},
	}
	for _, tt := range tests {
		v := New().RequiredUUID("id", tt.value)
		if v.HasErrors() != tt.wantErr {
			t.Errorf("RequiredUUID(%q) errors = %v, want %v", tt.value, v.Fields(), tt.wantErr)
		}
	}
}

func TestValidatorOptionalUUID(t *testing.T) {
	if New().OptionalUUID("id", "").HasErrors() {
		t.Error("expected no error for empty optional UUID")
	}
	if New().OptionalUUID("id", uuid.New().String()).HasErrors() {
		t.Error("expected no error for valid optional UUID")
	}
	if !New().OptionalUUID("id", "bad-uuid").HasErrors() {
		t.Error("expected error for invalid optional UUID")
	}
}

func TestValidatorLengthAndRange(t *testing.T) {
	tests := []struct {
		name    string
		v       *Validator
		wantErr bool
	}{
		{"max ok", New().MaxLength("desc", "short", 10), false},
		{"max fail", New().MaxLength("desc", "this is too long", 5), true},
		{"min ok", New().MinLength("pass", "abcdef", 6), false},
		{"min fail", New().MinLength("pass", "ab", 6), true},
		{"range ok", New().Range("age", 25, 18, 100), false},
		{"range low", New().Range("age", 5, 18, 100), true},
		{"range high", New().Range("age", 101, 18, 100), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.v.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors() = %v, want %v", tt.v.HasErrors(), tt.wantErr)
			}
		})
	}
}

func TestValidatorOneOf(t *testing.T) {
	if New().OneOf("mode", "solo", []string{"solo", "duel"}).HasErrors() {
		t.Error("expected no error for valid value")
	}
	if !New().OneOf("mode", "trio", []string{"solo", "duel"}).HasErrors() {
		t.Error("expected error for invalid value")
	}
	if New().OneOf("mode", "", []string{"solo"}).HasErrors() {
		t.Error("expected empty value to be skipped")
	}
}

func TestValidatorErr(t *testing.T) {
	if err := New().Required("name", "John").Err(); err != nil {
		t.Errorf("expected nil for valid input, got %v", err)
	}

	err := New().Required("name", "").Required("email", "").Err()
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if len(verr.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(verr.Fields))
	}
	if verr.Detail() != "name: is required; email: is required" {
		t.Errorf("unexpected detail %q", verr.Detail())
	}
	if !strings.HasPrefix(verr.Error(), "validation failed: ") {
		t.Errorf("unexpected message %q", verr.Error())
	}
}

func TestValidatorChaining(t *testing.T) {
	v := New()
	result := v.Required("name", "John").MaxLength("name", "John", 100).Check(true, "age", "too young")
	if result != v {
		t.Error("expected chaining to return same validator")
	}
	if v.HasErrors() {
		t.Error("expected no errors for valid chained validation")
	}
}

type createPlayer struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `validate:"max=5"`
}

func TestStructValid(t *testing.T) {
	if err := Struct(createPlayer{Name: "John", Email: "john@example.com"}); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestStructInvalid(t *testing.T) {
	err := Struct(createPlayer{Name: "", Email: "not-an-email", DisplayName: "toolongname"})

	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %v", err)
	}

	want := map[string]string{
		"name":         "is required",
		"email":        "must be a valid email address",
		"display_name": "must be at most 5",
	}
	if len(verr.Fields) != len(want) {
		t.Fatalf("expected %d fields, got %+v", len(want), verr.Fields)
	}
	for _, f := range verr.Fields {
		if want[f.Field] != f.Message {
			t.Errorf("field %s: got %q, want %q", f.Field, f.Message, want[f.Field])
		}
	}
}

func TestStructNotAStruct(t *testing.T) {
	err := Struct(42)
	if err == nil {
		t.Fatal("expected an error")
	}
	var verr *Error
	if errors.As(err, &verr) {
		t.Error("non-struct input is not a field failure")
	}
}

func TestParseUUID(t *testing.T) {
	want := uuid.New()
	got, err := ParseUUID("player_id", want.String())
	if err != nil || got != want {
		t.Fatalf("expected %s, got %s %v", want, got, err)
	}

	if _, err := ParseUUID("player_id", "bad"); err == nil {
		t.Error("expected error for invalid UUID")
	}
	if _, err := ParseUUID("player_id", ""); err == nil {
		t.Error("expected error for empty UUID")
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Name":        "name",
		"DisplayName": "display_name",
		"id":          "id",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
