package parser

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nuam/calificaciones/constants"
)

// ExtractionResultSchema returns the JSON Schema a reviewed extraction payload must satisfy.
func ExtractionResultSchema() map[string]any {
	movement := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"fecha":              map[string]any{"type": "string", "minLength": 1},
			"rut_propietario":    nullableString(),
			"nombre_propietario": nullableString(),
			"tipo":               map[string]any{"type": "string", "enum": constants.MovementTypes()},
			"imputacion":         map[string]any{"type": "string", "enum": constants.AttributionCodes()},
			"monto":              map[string]any{"type": "integer", "minimum": 0},
			"codigo":             nullableString(),
			"original_line":      map[string]any{"type": "string"},
		},
		"required": []string{"fecha", "tipo", "monto"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"rut_empresa":     nullableString(),
			"rut_propietario": nullableString(),
			"fecha":           nullableString(),
			"estrategia":      map[string]any{"type": "string"},
			"calificaciones":  map[string]any{"type": "array", "items": movement},
		},
		"required": []string{"calificaciones"},
	}
}

func nullableString() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}

// ValidateJSONAgainstSchema validates data against schemaMap.
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("extraction.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("extraction.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// DecodeReviewed validates a reviewed payload and decodes it. Missing
// attribution codes are read as unclassified.
func DecodeReviewed(data []byte) (ExtractionResult, error) {
	if err := ValidateJSONAgainstSchema(ExtractionResultSchema(), data); err != nil {
		return ExtractionResult{}, err
	}
	var res ExtractionResult
	if err := json.Unmarshal(data, &res); err != nil {
		return ExtractionResult{}, fmt.Errorf("decode extraction: %w", err)
	}
	for i := range res.Movements {
		if res.Movements[i].Attribution == "" {
			res.Movements[i].Attribution = constants.Unclassified
		}
	}
	return res, nil
}
