package tools

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSearchArgsCollectsAllIssues(t *testing.T) {
	_, err := parseSearchArgs(map[string]any{
		"model":  42.0,
		"domain": []any{[]any{"name", "=", "x"}, "oops"},
		"fields": []any{"name", 7.0},
	})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []Issue{
		{Path: "model", Reason: "must be a string, got number"},
		{Path: "domain[1]", Reason: "must be an array, got string"},
		{Path: "fields[1]", Reason: "must be a string, got number"},
	}, verr.Issues)
}

func TestParseSearchArgsTreatsNullAsAbsent(t *testing.T) {
	args, err := parseSearchArgs(map[string]any{
		"model":  "res.partner",
		"domain": nil,
		"fields": nil,
	})

	require.NoError(t, err)
	assert.Equal(t, [][]any{}, args.Domain)
	assert.Nil(t, args.Fields)
}

func TestParseCountArgsRejectsFlatDomain(t *testing.T) {
	_, err := parseCountArgs(map[string]any{
		"model":  "res.partner",
		"domain": map[string]any{"name": "x"},
	})

	require.Error(t, err)
	assert.Equal(t, "domain: must be an array of clauses, got object", err.Error())
}

func TestParseModelArgsRejectsBlank(t *testing.T) {
	_, err := parseModelArgs(map[string]any{"model": "   "})
	require.Error(t, err)
	assert.Equal(t, "model: must not be empty", err.Error())
}

func TestParseGetArgsRequiresIDs(t *testing.T) {
	_, err := parseGetArgs(map[string]any{"model": "res.partner"})
	require.Error(t, err)
	assert.Equal(t, "ids: required", err.Error())
}

func TestParseGetArgsAllowsEmptyIDs(t *testing.T) {
	args, err := parseGetArgs(map[string]any{"model": "res.partner", "ids": []any{}})
	require.NoError(t, err)
	assert.Empty(t, args.IDs)
}

func TestCoerceID(t *testing.T) {
	valid := map[string]struct {
		in   any
		want int64
	}{
		"float":       {float64(7), 7},
		"json number": {json.Number("12"), 12},
		"int":         {3, 3},
		"digits":      {"0042", 42},
	}
	for name, tt := range valid {
		got, ok := coerceID(tt.in)
		assert.True(t, ok, name)
		assert.Equal(t, tt.want, got, name)
	}

	for _, in := range []any{"0", "-3", "3a", "", 0.5, float64(0), json.Number("1.5"), true, nil, "99999999999999999999"} {
		_, ok := coerceID(in)
		assert.False(t, ok, "%v should be rejected", in)
	}
}

func TestErrorResult(t *testing.T) {
	assert.Equal(t, Result{Content: []string{"Error: Unknown error"}, IsError: true}, ErrorResult(errors.New("")))
	assert.Equal(t, Result{Content: []string{"Error: Unknown error"}, IsError: true}, ErrorResult(nil))
	assert.Equal(t, "Error: HTTP 502", ErrorResult(errors.New("HTTP 502")).Text())

	verr := &ValidationError{Issues: []Issue{{Path: "model", Reason: "required"}, {Path: "ids", Reason: "required"}}}
	assert.Equal(t, "Validation Error: model: required; ids: required", ErrorResult(verr).Text())
}

func TestCatalog(t *testing.T) {
	defs := Catalog()
	require.Len(t, defs, 5)

	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
		require.NotNil(t, def.InputSchema, def.Name)
		assert.Equal(t, "object", def.InputSchema.Type, def.Name)
	}
	assert.Equal(t, []string{SearchRecords, CountRecords, GetRecord, ListModels, GetModelFields}, names)

	get, ok := Lookup(GetRecord)
	require.True(t, ok)
	assert.Equal(t, []string{"model", "ids"}, get.InputSchema.Required)

	defs[0] = Definition{Name: "mutated"}
	first, _ := Lookup(SearchRecords)
	assert.Equal(t, SearchRecords, first.Name)
}
