// Package tools implements the read-only Odoo query tools: their catalog,
// argument validation, dispatch and result formatting.
package tools

import (
	"slices"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool names.
const (
	SearchRecords  = "search_records"
	CountRecords   = "count_records"
	GetRecord      = "get_record"
	ListModels     = "list_models"
	GetModelFields = "get_model_fields"
)

// SearchLimit caps the rows returned by search_records.
const SearchLimit = 1000

// Definition describes one tool as advertised to MCP clients.
type Definition struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

var (
	modelSchema = &jsonschema.Schema{
		Type:        "string",
		Description: "Technical model name, e.g. res.partner",
	}
	domainSchema = &jsonschema.Schema{
		Type:        "array",
		Description: "Odoo domain: a list of [field, operator, value] clauses",
		Items:       &jsonschema.Schema{Type: "array"},
	}
	fieldsSchema = &jsonschema.Schema{
		Type:        "array",
		Description: "Field names to return; omit for the model's default fields",
		Items:       &jsonschema.Schema{Type: "string"},
	}
	idsSchema = &jsonschema.Schema{
		Type:        "array",
		Description: "Record IDs as integers or digit strings",
		Items: &jsonschema.Schema{
			AnyOf: []*jsonschema.Schema{
				{Type: "integer"},
				{Type: "string", Pattern: "^[0-9]+$"},
			},
		},
	}
)

// catalog is fixed at build time; order is the order advertised to clients.
var catalog = []Definition{
	{
		Name:        SearchRecords,
		Description: "Search records inside a Model that satisfy the given Domain",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"model":  modelSchema,
				"domain": domainSchema,
				"fields": fieldsSchema,
			},
			Required: []string{"model"},
		},
	},
	{
		Name:        CountRecords,
		Description: "Count records inside a Model that satisfy the given Domain",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"model":  modelSchema,
				"domain": domainSchema,
			},
			Required: []string{"model"},
		},
	},
	{
		Name:        GetRecord,
		Description: "Get records inside a Model that satisfy the given IDs",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"model":  modelSchema,
				"ids":    idsSchema,
				"fields": fieldsSchema,
			},
			Required: []string{"model", "ids"},
		},
	},
	{
		Name:        ListModels,
		Description: "List all Models",
		InputSchema: &jsonschema.Schema{Type: "object"},
	},
	{
		Name:        GetModelFields,
		Description: "List all Fields in a Model",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"model": modelSchema,
			},
			Required: []string{"model"},
		},
	},
}

// Catalog returns the tool definitions in advertised order.
// The schemas are shared and must be treated as read-only.
func Catalog() []Definition {
	return slices.Clone(catalog)
}

// Lookup returns the definition for name.
func Lookup(name string) (Definition, bool) {
	for _, def := range catalog {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}
