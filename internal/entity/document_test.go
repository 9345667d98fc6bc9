package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/common"
)

func TestNewDocument_Defaults(t *testing.T) {
	before := time.Now().UTC()
	doc, err := NewDocument("nota.pdf")
	require.NoError(t, err)

	assert.Equal(t, "nota.pdf", doc.FileName())
	assert.Equal(t, string(constants.Unclassified), doc.DocumentType())
	assert.False(t, doc.ProcessedAt().Before(before))
	assert.Empty(t, doc.DynamicFields())
	assert.Equal(t, int64(0), doc.ID())
	assert.False(t, doc.Sealed())
	require.NoError(t, doc.Validate())
}

func TestNewDocument_RequiresName(t *testing.T) {
	_, err := NewDocument("   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestNewDocument_Options(t *testing.T) {
	fixed := time.Date(2024, 3, 15, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	doc, err := NewDocument("a.xml", WithDocumentType("Nota Fiscal"), WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	assert.Equal(t, "Nota Fiscal", doc.DocumentType())
	assert.Equal(t, time.UTC, doc.ProcessedAt().Location())
	assert.Equal(t, "2024-03-15T15:00:00Z", doc.ProcessedAtISO())
}

func TestSetContent_Once(t *testing.T) {
	doc, err := NewDocument("a.pdf")
	require.NoError(t, err)

	require.NoError(t, doc.SetContent("first"))
	assert.ErrorIs(t, doc.SetContent("second"), ErrContentAlreadySet)
	assert.Equal(t, "first", doc.ExtractedContent())
}

func TestSetContent_EmptyStillCounts(t *testing.T) {
	doc, err := NewDocument("blank.png")
	require.NoError(t, err)

	require.NoError(t, doc.SetContent(""))
	assert.ErrorIs(t, doc.SetContent("late"), ErrContentAlreadySet)
}

func TestMergeFields_NamespacesFixedNames(t *testing.T) {
	doc, err := NewDocument("a.pdf")
	require.NoError(t, err)

	require.NoError(t, doc.MergeFields(map[string]any{
		"valor_total":       99.9,
		"file_name":         "evil.pdf",
		"processed_at":      "1999-01-01",
		"extracted_content": "override",
		"document_type":     "Contrato",
		"skip_me":           nil,
	}))

	assert.Equal(t, "a.pdf", doc.FileName())
	assert.Equal(t, string(constants.Unclassified), doc.DocumentType())
	assert.Equal(t, map[string]any{
		"valor_total":                99.9,
		"enriched.file_name":         "evil.pdf",
		"enriched.processed_at":      "1999-01-01",
		"enriched.extracted_content": "override",
		"enriched.document_type":     "Contrato",
	}, doc.DynamicFields())
}

func TestMergeFields_DropsNilAndEmptyKeys(t *testing.T) {
	doc, err := NewDocument("a.pdf")
	require.NoError(t, err)

	require.NoError(t, doc.MergeFields(map[string]any{"": "x", "numero_nf": nil, "valor_total": 1.0}))
	assert.Equal(t, map[string]any{"valor_total": 1.0}, doc.DynamicFields())
	_, ok := doc.Field("numero_nf")
	assert.False(t, ok)
}

func TestMergeFields_NamespacedNameWinsOverLiteralPrefix(t *testing.T) {
	for i := 0; i < 50; i++ {
		doc, err := NewDocument("a.pdf")
		require.NoError(t, err)
		require.NoError(t, doc.MergeFields(map[string]any{
			"enriched.file_name": "literal.pdf",
			"file_name":          "model.pdf",
			"enriched.outro":     "kept",
		}))
		assert.Equal(t, map[string]any{
			"enriched.file_name": "model.pdf",
			"enriched.outro":     "kept",
		}, doc.DynamicFields())
	}
}

func TestMergeFields_Scalars(t *testing.T) {
	doc, err := NewDocument("a.pdf")
	require.NoError(t, err)

	require.NoError(t, doc.MergeFields(map[string]any{
		"int_number":   json.Number("42"),
		"float_number": json.Number("1.5"),
		"nested":       map[string]any{"a": 1},
		"flag":         true,
	}))

	fields := doc.DynamicFields()
	assert.Equal(t, int64(42), fields["int_number"])
	assert.Equal(t, 1.5, fields["float_number"])
	assert.Equal(t, `{"a":1}`, fields["nested"])
	assert.Equal(t, true, fields["flag"])
}

func TestDynamicFields_ReturnsCopy(t *testing.T) {
	doc, err := NewDocument("a.pdf")
	require.NoError(t, err)
	require.NoError(t, doc.MergeFields(map[string]any{"numero_nf": "123"}))

	fields := doc.DynamicFields()
	fields["numero_nf"] = "changed"

	v, ok := doc.Field("numero_nf")
	require.True(t, ok)
	assert.Equal(t, "123", v)
}

func TestSeal_BlocksMutation(t *testing.T) {
	doc, err := NewDocument("a.pdf")
	require.NoError(t, err)
	doc.Seal()

	assert.ErrorIs(t, doc.SetContent("x"), ErrSealed)
	assert.ErrorIs(t, doc.SetDocumentType("CNH"), ErrSealed)
	assert.ErrorIs(t, doc.MergeFields(map[string]any{"a": 1}), ErrSealed)
	assert.ErrorIs(t, doc.SetSourceObject("k"), ErrSealed)
}

func TestMarkPersisted(t *testing.T) {
	doc, err := NewDocument("a.pdf")
	require.NoError(t, err)

	doc.MarkPersisted(7)
	assert.Equal(t, int64(7), doc.ID())
	assert.True(t, doc.Sealed())
}

func TestSetDocumentType_EmptyRestoresDefault(t *testing.T) {
	doc, err := NewDocument("a.pdf", WithDocumentType("CNH"))
	require.NoError(t, err)

	require.NoError(t, doc.SetDocumentType(""))
	assert.Equal(t, string(constants.Unclassified), doc.DocumentType())
}

func TestSerialization(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	doc, err := NewDocument("nf.xml", WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	require.NoError(t, doc.SetContent("texto"))
	require.NoError(t, doc.SetDocumentType("Nota Fiscal"))
	require.NoError(t, doc.MergeFields(map[string]any{"valor_total": 99.9, "cnpj_emitente": "00.000.000/0001-00"}))

	dyn, err := doc.DynamicJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"valor_total":99.9,"cnpj_emitente":"00.000.000/0001-00"}`, string(dyn))
	assert.Equal(t, []string{"cnpj_emitente", "valor_total"}, doc.DynamicKeys())

	flat := doc.Fields()
	assert.Equal(t, "nf.xml", flat[FieldFileName])
	assert.Equal(t, "Nota Fiscal", flat[FieldDocumentType])
	assert.Equal(t, "2024-01-02T03:04:05Z", flat[FieldProcessedAt])
	assert.Equal(t, "texto", flat[FieldExtractedContent])
	assert.Equal(t, 99.9, flat["valor_total"])

	b, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"file_name": "nf.xml",
		"document_type": "Nota Fiscal",
		"processed_at": "2024-01-02T03:04:05Z",
		"extracted_content": "texto",
		"dynamic_fields": {"valor_total": 99.9, "cnpj_emitente": "00.000.000/0001-00"}
	}`, string(b))
}

func TestRestoreDocument(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	doc := RestoreDocument(3, "a.pdf", "CNH", at, "body", nil, "uploads/x.pdf")

	assert.Equal(t, int64(3), doc.ID())
	assert.True(t, doc.Sealed())
	assert.Equal(t, "uploads/x.pdf", doc.SourceObject())
	assert.NotNil(t, doc.DynamicFields())
	assert.ErrorIs(t, doc.SetContent("x"), ErrSealed)
}
