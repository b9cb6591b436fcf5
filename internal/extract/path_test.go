package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestParse_AcceptsDollarPrefix(t *testing.T) {
	for _, expr := range []string{"$.icd10.code", "icd10.code", "$icd10.code"} {
		p, err := Parse(expr)
		assert.NoError(t, err, expr)
		assert.Equal(t, expr, p.String())
	}
}

func TestParse_RejectsWildcardsAndSlices(t *testing.T) {
	for _, expr := range []string{"items[*].name", "$..code", "items[0:2]", "items[]", "", "$.", "*.code"} {
		_, err := Parse(expr)
		assert.Error(t, err, expr)
	}

	// Bracketed wildcards and slices are named for what they are, not
	// reported as malformed integers.
	for _, expr := range []string{"items[*]", "items[0:2]"} {
		_, err := Parse(expr)
		assert.ErrorContains(t, err, "wildcards and slices are not supported", expr)
	}
}

func TestEval(t *testing.T) {
	doc := decode(t, `{
		"summary": "text",
		"icd10": {"code": "J18.9", "label": "Pneumonia"},
		"confidence": 0.92,
		"items": [{"name": "first"}, {"name": "second"}]
	}`)

	tests := []struct {
		expr  string
		want  any
		found bool
	}{
		{"$.summary", "text", true},
		{"$.icd10.code", "J18.9", true},
		{"confidence", 0.92, true},
		{"items[1].name", "second", true},
		{"$.icd10.missing", nil, false},
		{"items[5].name", nil, false},
		{"summary.nested", nil, false}, // string is not an object
		{"icd10[0]", nil, false},       // object is not an array
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			p, err := Parse(tc.expr)
			require.NoError(t, err)
			got, found := p.Eval(doc)
			assert.Equal(t, tc.found, found)
			if tc.found {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}
