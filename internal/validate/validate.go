// Package validate holds the input, field, and whitelist checks a workflow
// execution must pass before any insertion instruction is produced.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"fieldbridge/pkg/models"
)

// Diagnosis codes: one uppercase letter, two digits, optional dot plus 1-4
// alphanumerics (J18.9, I10, S06.0X0A).
var codePattern = regexp.MustCompile(`^[A-Z][0-9]{2}(\.[0-9A-Z]{1,4})?$`)

// Input checks the workflow's input text against its inputSpec. Bounds are
// inclusive and counted in runes. Whitespace-only text is always invalid
// regardless of bounds: it carries nothing for the request template.
func Input(spec models.InputSpec, text string) models.ValidationResult {
	if strings.TrimSpace(text) == "" {
		return models.ValidationResult{Valid: false, Error: "input text is empty"}
	}
	length := utf8.RuneCountInString(text)
	if spec.MinLength > 0 && length < spec.MinLength {
		return models.ValidationResult{
			Valid:   false,
			Error:   fmt.Sprintf("input too short: %d chars (min %d)", length, spec.MinLength),
			Details: map[string]any{"length": length, "min": spec.MinLength},
		}
	}
	if spec.MaxLength > 0 && length > spec.MaxLength {
		return models.ValidationResult{
			Valid:   false,
			Error:   fmt.Sprintf("input too long: %d chars (max %d)", length, spec.MaxLength),
			Details: map[string]any{"length": length, "max": spec.MaxLength},
		}
	}
	return models.ValidationResult{Valid: true}
}

// CodeFormat checks a diagnosis code against the structural pattern. The
// check is case-sensitive: "j18.9" is malformed, not a variant spelling.
func CodeFormat(code string) models.ValidationResult {
	if !codePattern.MatchString(code) {
		return models.ValidationResult{
			Valid:   false,
			Error:   fmt.Sprintf("invalid diagnosis code format: %q (expected A00 or A00.0)", code),
			Details: map[string]any{"code": code},
		}
	}
	return models.ValidationResult{Valid: true}
}

// Catalog is an optional diagnosis-code catalog keyed by normalized code.
type Catalog map[string]models.CatalogCode

// Exists checks format and, when the catalog is non-empty, membership.
func (c Catalog) Exists(code string) models.ValidationResult {
	if res := CodeFormat(code); !res.Valid {
		return res
	}
	if len(c) == 0 {
		return models.ValidationResult{Valid: true}
	}
	// A code that passed the format check is already in canonical form.
	if _, ok := c[code]; !ok {
		return models.ValidationResult{
			Valid:   false,
			Error:   fmt.Sprintf("diagnosis code %q not found in catalog", code),
			Details: map[string]any{"code": code, "catalog_size": len(c)},
		}
	}
	return models.ValidationResult{Valid: true}
}

// Fields re-checks required output variables and applies the code-format rule
// to every code-bearing variable. Extraction already aborts on required
// misses; the presence re-check guards against mapping and rule drift.
func Fields(rules models.ValidationRules, vars map[string]any, catalog Catalog) error {
	var missing []string
	for _, name := range rules.RequiredVariables {
		if v, ok := vars[name]; !ok || v == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required output variables: %s", strings.Join(missing, ", "))
	}

	if !rules.CodeFormat {
		return nil
	}
	for name, v := range vars {
		if v == nil || !isCodeVariable(name) {
			continue
		}
		code := fmt.Sprintf("%v", v)
		res := CodeFormat(code)
		if res.Valid && rules.CodeExists {
			res = catalog.Exists(code)
		}
		if !res.Valid {
			return fmt.Errorf("variable %q: %s", name, res.Error)
		}
	}
	return nil
}

// Whitelist enforces the output allow-list. Absence from the list is a
// rejection, never a default-allow. Matching is case-insensitive, as field
// names come from hand-written configs.
func Whitelist(allowed []string, outputs []models.OutputSpec) error {
	set := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		set[strings.ToLower(f)] = true
	}
	for _, out := range outputs {
		if !set[strings.ToLower(out.TargetField)] {
			return fmt.Errorf("target field %q is not in the allowed field list", out.TargetField)
		}
	}
	return nil
}

func isCodeVariable(name string) bool {
	return strings.Contains(strings.ToLower(name), "code")
}
