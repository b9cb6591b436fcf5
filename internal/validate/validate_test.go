package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"fieldbridge/pkg/models"
)

func TestInput_Bounds(t *testing.T) {
	spec := models.InputSpec{MinLength: 10, MaxLength: 100}

	tests := []struct {
		name  string
		text  string
		valid bool
	}{
		{"valid", "patient presents with cough", true},
		{"exactly min", strings.Repeat("a", 10), true},
		{"exactly max", strings.Repeat("a", 100), true},
		{"too short", "short", false},
		{"too long", strings.Repeat("a", 101), false},
		{"empty", "", false},
		{"whitespace only", "   \n\t  ", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Input(spec, tc.text)
			assert.Equal(t, tc.valid, res.Valid, res.Error)
		})
	}
}

func TestInput_RuneCounting(t *testing.T) {
	// 10 multibyte runes fit maxLength 10 even though the byte count is 20.
	res := Input(models.InputSpec{MaxLength: 10}, strings.Repeat("ü", 10))
	assert.True(t, res.Valid, res.Error)
}

func TestInput_ZeroBoundsDisabled(t *testing.T) {
	res := Input(models.InputSpec{}, strings.Repeat("a", 50000))
	assert.True(t, res.Valid)
}

func TestCodeFormat(t *testing.T) {
	valid := []string{"J18.9", "I10", "E11.9", "M54.5", "S06.0X0A"}
	for _, code := range valid {
		assert.True(t, CodeFormat(code).Valid, code)
	}

	// Lowercase and padded spellings are malformed, not variants.
	invalid := []string{"XYZ", "12A.1", "J18.", "J1", "J18.99999", "", "J18-9", "j18.9", " J18.9 ", "J18.9a"}
	for _, code := range invalid {
		assert.False(t, CodeFormat(code).Valid, code)
	}
}

func TestCatalogExists(t *testing.T) {
	catalog := Catalog{
		"J18.9": {Code: "J18.9", Label: "Pneumonia, unspecified organism"},
		"I10":   {Code: "I10"},
	}

	assert.True(t, catalog.Exists("J18.9").Valid)
	assert.False(t, catalog.Exists("j18.9").Valid, "lowercase fails the format check")
	assert.False(t, catalog.Exists("E11.9").Valid, "well-formed but not in catalog")
	assert.False(t, catalog.Exists("ZZ9").Valid, "format fails before membership")

	empty := Catalog{}
	assert.True(t, empty.Exists("E11.9").Valid, "empty catalog checks format only")
}

func TestFields(t *testing.T) {
	catalog := Catalog{"J18.9": {Code: "J18.9"}}
	rules := models.ValidationRules{
		RequiredVariables: []string{"summary", "icd10_code"},
		CodeFormat:        true,
		CodeExists:        true,
	}

	t.Run("valid", func(t *testing.T) {
		err := Fields(rules, map[string]any{"summary": "note", "icd10_code": "J18.9"}, catalog)
		assert.NoError(t, err)
	})

	t.Run("missing required", func(t *testing.T) {
		err := Fields(rules, map[string]any{"summary": "note"}, catalog)
		assert.ErrorContains(t, err, "icd10_code")
	})

	t.Run("nil counts as missing", func(t *testing.T) {
		err := Fields(rules, map[string]any{"summary": "note", "icd10_code": nil}, catalog)
		assert.ErrorContains(t, err, "icd10_code")
	})

	t.Run("bad code format", func(t *testing.T) {
		err := Fields(rules, map[string]any{"summary": "note", "icd10_code": "ZZ9"}, catalog)
		assert.ErrorContains(t, err, "icd10_code")
	})

	t.Run("code not in catalog", func(t *testing.T) {
		err := Fields(rules, map[string]any{"summary": "note", "icd10_code": "E11.9"}, catalog)
		assert.ErrorContains(t, err, "not found in catalog")
	})

	t.Run("code rule only applies to code-bearing names", func(t *testing.T) {
		err := Fields(models.ValidationRules{CodeFormat: true},
			map[string]any{"summary": "not a code at all"}, nil)
		assert.NoError(t, err)
	})
}

func TestWhitelist(t *testing.T) {
	allowed := []string{"DiagnosisText", "DiagnosisCode"}

	ok := []models.OutputSpec{
		{TargetField: "DiagnosisText"},
		{TargetField: "diagnosiscode"}, // case-insensitive
	}
	assert.NoError(t, Whitelist(allowed, ok))

	bad := []models.OutputSpec{
		{TargetField: "DiagnosisText"},
		{TargetField: "PatientName"},
	}
	assert.ErrorContains(t, Whitelist(allowed, bad), "PatientName")

	assert.Error(t, Whitelist(nil, ok), "empty whitelist rejects everything")
}
