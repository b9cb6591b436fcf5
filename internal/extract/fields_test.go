package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldbridge/pkg/models"
)

func TestFields_RequiredAndOptional(t *testing.T) {
	doc := decode(t, `{"summary": "note", "icd10": {"code": "J18.9"}}`)
	mappings := []models.ResponseMapping{
		{Variable: "summary", Path: "$.summary", Required: true},
		{Variable: "icd10_code", Path: "$.icd10.code", Required: true},
		{Variable: "icd10_label", Path: "$.icd10.label", Required: false},
	}

	vars, err := Fields(mappings, doc)

	require.NoError(t, err)
	assert.Equal(t, "note", vars["summary"])
	assert.Equal(t, "J18.9", vars["icd10_code"])
	label, present := vars["icd10_label"]
	assert.True(t, present, "optional miss still produces an entry")
	assert.Nil(t, label)
}

func TestFields_RequiredMissAborts(t *testing.T) {
	doc := decode(t, `{"summary": "note"}`)
	mappings := []models.ResponseMapping{
		{Variable: "summary", Path: "$.summary", Required: true},
		{Variable: "icd10_code", Path: "$.icd10.code", Required: true},
	}

	vars, err := Fields(mappings, doc)

	var merr *MissingFieldError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, "icd10_code", merr.Variable)
	assert.Equal(t, "$.icd10.code", merr.Path)
	assert.Nil(t, vars, "no partial variable set on abort")
}
