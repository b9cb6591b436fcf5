// Package template implements the request/content renderer. The grammar is
// deliberately closed: `{{name}}` substitution against a supplied variable
// map and nothing else. No expressions, no conditionals, no function calls.
// Operator-authored templates must not be able to reach outside the map.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// RenderError reports a placeholder referencing an undefined variable.
// Rendering is fail-closed: a missing variable is an error, never an empty
// substitution.
type RenderError struct {
	Variable string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("template references undefined variable %q", e.Variable)
}

// Render substitutes every {{name}} placeholder in tmpl with the string form
// of vars[name].
func Render(tmpl string, vars map[string]any) (string, error) {
	var missing string
	out := placeholderPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		v, ok := vars[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return m
		}
		return stringify(v)
	})
	if missing != "" {
		return "", &RenderError{Variable: missing}
	}
	return out, nil
}

// RenderJSON renders tmpl and parses the result as a JSON object.
func RenderJSON(tmpl string, vars map[string]any) (map[string]any, error) {
	rendered, err := Render(tmpl, vars)
	if err != nil {
		return nil, err
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(rendered), &body); err != nil {
		return nil, fmt.Errorf("rendered template is not valid JSON: %w", err)
	}
	return body, nil
}

// Variables lists the distinct placeholder names referenced by tmpl, in order
// of first appearance. Used by the loader to cross-check mappings.
func Variables(tmpl string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// JSON numbers arrive as float64; render integers without a decimal.
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
