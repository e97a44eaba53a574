package prompt_test

import (
	"errors"
	"testing"

	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/prompt"
)

func TestRender_SubstitutesDeclaredPlaceholders(t *testing.T) {
	tpl, err := prompt.New("Rephrase {JSON_resume_object} applying {Treatment_object}.", "JSON_resume_object", "Treatment_object")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := tpl.Render(map[string]string{
		"JSON_resume_object": "{\"name\":\"x\"}",
		"Treatment_object":   "{\"degree\":\"MBA\"}",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "Rephrase {\"name\":\"x\"} applying {\"degree\":\"MBA\"}."
	if out != want {
		t.Fatalf("Render = %q, want %q", out, want)
	}
}

func TestRender_MissingValueFails(t *testing.T) {
	tpl, err := prompt.New("Use {style_guide} here.", "style_guide")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, renderErr := tpl.Render(map[string]string{})
	var missing *prompt.MissingPlaceholderError
	if !errors.As(renderErr, &missing) {
		t.Fatalf("expected MissingPlaceholderError, got %v", renderErr)
	}
	if missing.Name != "style_guide" {
		t.Fatalf("missing placeholder = %q, want style_guide", missing.Name)
	}
}

func TestNew_PlaceholderAbsentFromBody(t *testing.T) {
	if _, err := prompt.New("no tokens here", "treatment_type"); err == nil {
		t.Fatal("expected error for placeholder absent from template body")
	}
}

func TestNew_EmptyBody(t *testing.T) {
	if _, err := prompt.New("   \n"); err == nil {
		t.Fatal("expected error for empty template")
	}
}

func TestRender_ValueBracesSurvive(t *testing.T) {
	tpl, err := prompt.New("resume: {JSON_resume_object}", "JSON_resume_object")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// JSON values are full of braces; they must pass through untouched.
	out, err := tpl.Render(map[string]string{"JSON_resume_object": "{\"work\":[{\"company\":\"Acme\"}]}"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "resume: {\"work\":[{\"company\":\"Acme\"}]}"
	if out != want {
		t.Fatalf("Render = %q, want %q", out, want)
	}
}
