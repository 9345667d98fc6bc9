package llm

import "context"

// Enricher extracts structured fields from document text.
type Enricher interface {
	// ExtractDetails returns a flat JSON object decoded into scalars. It never
	// returns partial data: any malformed response is an EnrichmentFailed error.
	ExtractDetails(ctx context.Context, text string) (map[string]any, error)
}

// Field names the model is asked for.
const (
	FieldDocumentType     = "document_type"
	FieldTipoDocumento    = "tipo_documento"
	FieldNumeroNF         = "numero_nf"
	FieldCNPJEmitente     = "cnpj_emitente"
	FieldNomeEmitente     = "nome_emitente"
	FieldCNPJDestinatario = "cnpj_destinatario"
	FieldNomeDestinatario = "nome_destinatario"
	FieldDataEmissao      = "data_emissao"
	FieldValorTotal       = "valor_total"
)
