package constants

import (
	"strings"
)

type DocumentType string

// Sentinels written by the pipeline itself.
const (
	Unclassified     DocumentType = "unclassified"
	EmptyOrIllegible DocumentType = "empty-or-illegible"
)

// Types the enrichment prompt suggests to the model.
const (
	NotaFiscal      DocumentType = "Nota Fiscal"
	ContratoAluguel DocumentType = "Contrato de Aluguel"
	FaturaCartao    DocumentType = "Fatura de Cartão"
	CNH             DocumentType = "CNH"
	Orcamento       DocumentType = "Orçamento"
)

var knownDocumentTypes = []DocumentType{
	NotaFiscal,
	ContratoAluguel,
	FaturaCartao,
	CNH,
	Orcamento,
}

// KnownDocumentTypes returns the suggested classification labels.
func KnownDocumentTypes() []string {
	result := make([]string, len(knownDocumentTypes))
	for i, t := range knownDocumentTypes {
		result[i] = string(t)
	}
	return result
}

// CanonicalDocumentType maps a model label onto a known type.
// Unknown labels are returned trimmed with ok=false; empty input yields Unclassified.
func CanonicalDocumentType(input string) (DocumentType, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Unclassified, false
	}

	normalized := strings.ToLower(trimmed)

	synonyms := map[string]DocumentType{
		"nf":                     NotaFiscal,
		"nfe":                    NotaFiscal,
		"nf-e":                   NotaFiscal,
		"nfs-e":                  NotaFiscal,
		"nota fiscal eletrônica": NotaFiscal,
		"invoice":                NotaFiscal,
		"contrato de locação":    ContratoAluguel,
		"lease agreement":        ContratoAluguel,
		"fatura do cartão":       FaturaCartao,
		"credit card bill":       FaturaCartao,
		"carteira de motorista":  CNH,
		"driver's license":       CNH,
		"orcamento":              Orcamento,
		"quote":                  Orcamento,
	}

	if t, ok := synonyms[normalized]; ok {
		return t, true
	}

	for _, t := range knownDocumentTypes {
		if normalized == strings.ToLower(string(t)) {
			return t, true
		}
	}
	if normalized == string(Unclassified) || normalized == string(EmptyOrIllegible) {
		return DocumentType(normalized), true
	}

	return DocumentType(trimmed), false
}
