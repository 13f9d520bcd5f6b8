package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// contractDataSchema is the JSON Schema the model's response must satisfy.
// It is deliberately tolerant of missing sections (chunks of a long
// document may only cover some of them) but strict about value types.
func contractDataSchema() map[string]any {
	nullable := func(t string) []string { return []string{t, "null"} }

	contact := map[string]any{
		"type": nullable("object"),
		"properties": map[string]any{
			"email":      map[string]any{"type": nullable("string")},
			"phone":      map[string]any{"type": nullable("string")},
			"address":    map[string]any{"type": nullable("string")},
			"department": map[string]any{"type": nullable("string")},
		},
	}

	party := map[string]any{
		"type": nullable("object"),
		"properties": map[string]any{
			"name":                 map[string]any{"type": nullable("string")},
			"legal_entity":         map[string]any{"type": nullable("string")},
			"registration_details": map[string]any{"type": nullable("string")},
			"address":              map[string]any{"type": nullable("string")},
			"signatories": map[string]any{
				"type": nullable("array"),
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":  map[string]any{"type": nullable("string")},
						"role":  map[string]any{"type": nullable("string")},
						"title": map[string]any{"type": nullable("string")},
					},
				},
			},
			"confidence_score": map[string]any{"type": nullable("number")},
		},
	}

	return map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type":    "object",
		"properties": map[string]any{
			"contract_title": map[string]any{"type": nullable("string")},
			"contract_type":  map[string]any{"type": nullable("string")},
			"description":    map[string]any{"type": nullable("string")},
			"contract_dates": map[string]any{
				"type": nullable("object"),
				"properties": map[string]any{
					"effective_date":  map[string]any{"type": nullable("string")},
					"expiration_date": map[string]any{"type": nullable("string")},
					"signature_date":  map[string]any{"type": nullable("string")},
				},
			},
			"customer": party,
			"vendor":   party,
			"account_info": map[string]any{
				"type": nullable("object"),
				"properties": map[string]any{
					"billing_details":   map[string]any{"type": nullable("string")},
					"account_numbers":   map[string]any{"type": nullable("array"), "items": map[string]any{"type": "string"}},
					"contact_info":      contact,
					"billing_contact":   contact,
					"technical_contact": contact,
					"confidence_score":  map[string]any{"type": nullable("number")},
				},
			},
			"financial_details": map[string]any{
				"type": nullable("object"),
				"properties": map[string]any{
					"line_items": map[string]any{
						"type": nullable("array"),
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"description": map[string]any{"type": nullable("string")},
								"quantity":    map[string]any{"type": nullable("number")},
								"unit_price":  map[string]any{"type": nullable("number")},
								"total_price": map[string]any{"type": nullable("number")},
								"unit":        map[string]any{"type": nullable("string")},
							},
						},
					},
					"total_value":      map[string]any{"type": nullable("number")},
					"currency":         map[string]any{"type": nullable("string")},
					"tax_info":         map[string]any{"type": nullable("string")},
					"tax_amount":       map[string]any{"type": nullable("number")},
					"subtotal":         map[string]any{"type": nullable("number")},
					"confidence_score": map[string]any{"type": nullable("number")},
				},
			},
			"payment_structure": map[string]any{
				"type": nullable("object"),
				"properties": map[string]any{
					"payment_terms": map[string]any{"type": nullable("string")},
					"schedules": map[string]any{
						"type": nullable("array"),
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"due_date":    map[string]any{"type": nullable("string")},
								"amount":      map[string]any{"type": nullable("number")},
								"description": map[string]any{"type": nullable("string")},
							},
						},
					},
					"due_dates":            map[string]any{"type": nullable("array"), "items": map[string]any{"type": "string"}},
					"methods":              map[string]any{"type": nullable("array"), "items": map[string]any{"type": "string"}},
					"banking_details":      map[string]any{"type": nullable("string")},
					"late_payment_penalty": map[string]any{"type": nullable("string")},
					"confidence_score":     map[string]any{"type": nullable("number")},
				},
			},
			"revenue_classification": map[string]any{
				"type": nullable("object"),
				"properties": map[string]any{
					"recurring_payment":     map[string]any{"type": nullable("boolean")},
					"one_time_payment":      map[string]any{"type": nullable("boolean")},
					"subscription_model":    map[string]any{"type": nullable("string")},
					"billing_cycle":         map[string]any{"type": nullable("string")},
					"renewal_terms":         map[string]any{"type": nullable("string")},
					"auto_renewal":          map[string]any{"type": nullable("boolean")},
					"renewal_notice_period": map[string]any{"type": nullable("string")},
					"confidence_score":      map[string]any{"type": nullable("number")},
				},
			},
			"sla": map[string]any{
				"type": nullable("object"),
				"properties": map[string]any{
					"performance_metrics": map[string]any{
						"type": nullable("array"),
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"name":        map[string]any{"type": nullable("string")},
								"target":      map[string]any{"type": nullable("string")},
								"measurement": map[string]any{"type": nullable("string")},
							},
						},
					},
					"penalty_clauses":  map[string]any{"type": nullable("array"), "items": map[string]any{"type": "string"}},
					"support_terms":    map[string]any{"type": nullable("string")},
					"uptime_guarantee": map[string]any{"type": nullable("string")},
					"response_time":    map[string]any{"type": nullable("string")},
					"resolution_time":  map[string]any{"type": nullable("string")},
					"confidence_score": map[string]any{"type": nullable("number")},
				},
			},
		},
	}
}

// compileContractSchema compiles the response schema once at startup.
func compileContractSchema() (*jsonschema.Schema, error) {
	raw, err := json.Marshal(contractDataSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("contract-data.json", strings.NewReader(string(raw))); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile("contract-data.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
