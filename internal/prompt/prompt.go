// Package prompt loads markdown prompt templates and substitutes named
// placeholders of the form {placeholder_name}.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	emptyTemplateErrorMessage           = "prompt template is empty"
	templateReadErrorFormat             = "read prompt template %s: %w"
	templateMissingPlaceholderFormat    = "prompt template is missing placeholder {%s}"
	renderMissingPlaceholderValueFormat = "no value provided for placeholder {%s}"
)

// MissingPlaceholderError reports a placeholder the render mapping did not
// cover.
type MissingPlaceholderError struct {
	Name string
}

func (e *MissingPlaceholderError) Error() string {
	return fmt.Sprintf(renderMissingPlaceholderValueFormat, e.Name)
}

// Template is an immutable prompt body with a declared placeholder set.
type Template struct {
	text         string
	placeholders []string
}

// New validates that every declared placeholder occurs in the body.
func New(text string, placeholders ...string) (Template, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Template{}, errors.New(emptyTemplateErrorMessage)
	}
	for _, name := range placeholders {
		if !strings.Contains(trimmed, token(name)) {
			return Template{}, fmt.Errorf(templateMissingPlaceholderFormat, name)
		}
	}
	return Template{text: trimmed, placeholders: placeholders}, nil
}

// Load reads a template file from disk.
func Load(path string, placeholders ...string) (Template, error) {
	data, readErr := os.ReadFile(filepath.Clean(path))
	if readErr != nil {
		return Template{}, fmt.Errorf(templateReadErrorFormat, path, readErr)
	}
	template, newErr := New(string(data), placeholders...)
	if newErr != nil {
		return Template{}, fmt.Errorf("%s: %w", path, newErr)
	}
	return template, nil
}

// Text returns the raw template body.
func (t Template) Text() string { return t.text }

// Render substitutes each declared placeholder exactly once. Every declared
// placeholder must have a value; extra keys in the mapping are ignored.
// Substitution is a single pass, so placeholder-shaped text inside a value is
// not expanded further.
func (t Template) Render(values map[string]string) (string, error) {
	rendered := t.text
	for _, name := range t.placeholders {
		value, ok := values[name]
		if !ok {
			return "", &MissingPlaceholderError{Name: name}
		}
		rendered = strings.ReplaceAll(rendered, token(name), value)
	}
	return rendered, nil
}

func token(name string) string { return "{" + name + "}" }
