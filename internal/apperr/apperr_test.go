package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatsCodeAndCause(t *testing.T) {
	cause := errors.New("row missing")
	err := NotFound("ingredients.get", "ingredient_missing", cause)

	if err.Error() != "ingredients.get.ingredient_missing: row missing" {
		t.Fatalf("unexpected error text: %s", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to survive errors.Is")
	}
}

func TestErrorFormatsCodeWithoutCause(t *testing.T) {
	err := Validation("foodlog.create", "missing_date", nil)
	if err.Error() != "foodlog.create.missing_date" {
		t.Fatalf("unexpected error text: %s", err.Error())
	}
}

func TestKindOfClassifiesErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "not-found", err: NotFound("recipes.get", "recipe_missing", nil), want: KindNotFound},
		{name: "conflict", err: Conflict("ingredients.create", "duplicate_name", nil), want: KindConflict},
		{name: "validation", err: Validation("body.create", "missing_measurement", nil), want: KindValidation},
		{name: "internal", err: Internal("macros.snapshot", "query_failed", nil), want: KindInternal},
		{name: "wrapped", err: fmt.Errorf("outer: %w", Conflict("recipes.create", "duplicate_name", nil)), want: KindConflict},
		{name: "foreign", err: errors.New("plain"), want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Fatalf("expected kind %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCodeOfForeignErrorIsEmpty(t *testing.T) {
	if code := CodeOf(errors.New("plain")); code != "" {
		t.Fatalf("expected empty code, got %q", code)
	}
}
