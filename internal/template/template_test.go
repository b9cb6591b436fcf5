package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender_Substitution(t *testing.T) {
	vars := map[string]any{
		"name":  "World",
		"count": float64(3),
		"ratio": 0.92,
		"label": nil,
	}

	out, err := Render("Hello {{name}}, {{ count }} items at {{ratio}}:{{label}}", vars)

	assert.NoError(t, err)
	assert.Equal(t, "Hello World, 3 items at 0.92:", out)
}

func TestRender_MissingVariableFails(t *testing.T) {
	_, err := Render(`{"text": "{{input_text}}"}`, map[string]any{})

	var rerr *RenderError
	assert.True(t, errors.As(err, &rerr))
	assert.Equal(t, "input_text", rerr.Variable)
}

func TestRender_IgnoresMalformedPlaceholders(t *testing.T) {
	// Single braces and unclosed placeholders are literal text.
	out, err := Render("{name} {{name} {{1bad}}", map[string]any{"name": "x"})

	assert.NoError(t, err)
	assert.Equal(t, "{name} {{name} {{1bad}}", out)
}

func TestRenderJSON(t *testing.T) {
	body, err := RenderJSON(`{"text": "{{input_text}}", "lang": "en"}`, map[string]any{"input_text": "note"})

	assert.NoError(t, err)
	assert.Equal(t, "note", body["text"])
	assert.Equal(t, "en", body["lang"])
}

func TestRenderJSON_NotAnObject(t *testing.T) {
	_, err := RenderJSON("just text {{v}}", map[string]any{"v": "x"})

	assert.Error(t, err)
}

func TestVariables(t *testing.T) {
	names := Variables(`{"a": "{{summary}}", "b": "{{icd10_code}}", "c": "{{summary}}"}`)

	assert.Equal(t, []string{"summary", "icd10_code"}, names)
}
