package llm

import (
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/docintake/constants"
)

// MaxPromptRunes caps the document text sent to the model.
const MaxPromptRunes = 12000

// SystemPrompt is sent as the system message on every request.
const SystemPrompt = "Você é um assistente especialista em extração de dados de documentos e responde em formato JSON."

// BuildUserPrompt asks for the document fields as a single flat JSON object.
func BuildUserPrompt(text string) string {
	types := constants.KnownDocumentTypes()
	quoted := make([]string, len(types))
	for i, t := range types {
		quoted[i] = `"` + t + `"`
	}

	var b strings.Builder
	b.WriteString("Analise o texto do documento abaixo e extraia as seguintes informações em formato JSON:\n")
	b.WriteString(`1. "tipo_documento": Classifique o documento (ex: ` + strings.Join(quoted, ", ") + ").\n")
	b.WriteString(`2. "numero_nf": Se for uma nota fiscal, o número dela.` + "\n")
	b.WriteString(`3. "cnpj_emitente": O CNPJ do emissor do documento, se aplicável.` + "\n")
	b.WriteString(`4. "nome_emitente": O nome do emissor do documento, se aplicável.` + "\n")
	b.WriteString(`5. "cnpj_destinatario": O CNPJ do destinatário, se aplicável.` + "\n")
	b.WriteString(`6. "nome_destinatario": O nome do destinatário, se aplicável.` + "\n")
	b.WriteString(`7. "data_emissao": A data de emissão do documento (formato AAAA-MM-DD).` + "\n")
	b.WriteString(`8. "valor_total": O valor total, se for um documento financeiro (formato numérico).` + "\n\n")
	b.WriteString("Se uma informação não for encontrada, omita a chave correspondente do JSON.\n")
	b.WriteString("Responda APENAS com o objeto JSON, sem nenhum texto, explicação ou formatação adicional.\n\n")
	b.WriteString("Texto do documento:\n---\n")
	b.WriteString(TruncateRunes(text, MaxPromptRunes))
	b.WriteString("\n---\n")
	return b.String()
}

// TruncateRunes keeps at most max runes of s without splitting a character.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
