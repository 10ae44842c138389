package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

type modelInfo struct {
	Model string
	Name  string
}

// decodeList accepts a JSON array; null counts as empty.
func decodeList(raw json.RawMessage) ([]json.RawMessage, error) {
	var list []json.RawMessage
	if len(bytes.TrimSpace(raw)) == 0 {
		return list, nil
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// decodeObject accepts a JSON object; null counts as empty.
func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	obj := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return obj, nil
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		obj = map[string]json.RawMessage{}
	}
	return obj, nil
}

func decodeModels(raw json.RawMessage) ([]modelInfo, error) {
	rows, err := decodeList(raw)
	if err != nil {
		return nil, err
	}
	models := make([]modelInfo, 0, len(rows))
	for _, row := range rows {
		var rec map[string]any
		if err := json.Unmarshal(row, &rec); err != nil {
			return nil, err
		}
		models = append(models, modelInfo{
			Model: displayString(rec["model"]),
			Name:  displayString(rec["name"]),
		})
	}
	return models, nil
}

// formatModels sorts by technical name and renders one bullet per model.
func formatModels(models []modelInfo) string {
	slices.SortStableFunc(models, func(a, b modelInfo) int {
		return strings.Compare(a.Model, b.Model)
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d available Odoo models", len(models))
	for _, m := range models {
		fmt.Fprintf(&b, "\n- %s: %s", m.Model, m.Name)
	}
	return b.String()
}

// displayString renders an Odoo value; Odoo uses false for empty fields.
func displayString(v any) string {
	switch s := v.(type) {
	case nil, bool:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func indent(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
