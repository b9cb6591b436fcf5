package extract

import (
	"fmt"

	"fieldbridge/pkg/models"
)

// MissingFieldError reports a required response mapping that produced no
// value. It aborts the workflow; no partial variable set is ever used for
// insertions.
type MissingFieldError struct {
	Variable string
	Path     string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required output variable %q not found at path %q", e.Variable, e.Path)
}

// Fields applies every response mapping to the decoded connector response.
// Optional mappings that miss are kept as nil so downstream templates render
// them empty rather than failing closed.
func Fields(mappings []models.ResponseMapping, doc map[string]any) (map[string]any, error) {
	vars := make(map[string]any, len(mappings))
	for _, m := range mappings {
		p, err := Parse(m.Path)
		if err != nil {
			return nil, err
		}
		v, found := p.Eval(doc)
		if !found {
			if m.Required {
				return nil, &MissingFieldError{Variable: m.Variable, Path: m.Path}
			}
			vars[m.Variable] = nil
			continue
		}
		vars[m.Variable] = v
	}
	return vars, nil
}
