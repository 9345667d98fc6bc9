package llm

// BuildDocumentJSONSchema returns the JSON Schema the model output must satisfy:
// a flat object of scalars with a few typed well-known keys.
func BuildDocumentJSONSchema() map[string]any {
	str := map[string]any{"type": "string"}
	props := map[string]any{
		FieldTipoDocumento:    map[string]any{"type": "string", "minLength": 1},
		FieldDocumentType:     map[string]any{"type": "string", "minLength": 1},
		FieldNumeroNF:         map[string]any{"type": []string{"string", "integer"}},
		FieldCNPJEmitente:     str,
		FieldNomeEmitente:     str,
		FieldCNPJDestinatario: str,
		FieldNomeDestinatario: str,
		FieldDataEmissao:      map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		FieldValorTotal:       map[string]any{"type": "number"},
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": map[string]any{"type": []string{"string", "number", "integer", "boolean"}},
	}
}
