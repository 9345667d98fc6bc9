package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/common"
)

// Fixed field names; dynamic fields never use them.
const (
	FieldFileName         = "file_name"
	FieldDocumentType     = "document_type"
	FieldProcessedAt      = "processed_at"
	FieldExtractedContent = "extracted_content"

	// NamespacePrefix is prepended to enrichment keys that collide with a fixed field.
	NamespacePrefix = "enriched."
)

var (
	ErrSealed            = errors.New("document is sealed")
	ErrContentAlreadySet = errors.New("extracted content already set")
)

var fixedFields = map[string]struct{}{
	FieldFileName:         {},
	FieldDocumentType:     {},
	FieldProcessedAt:      {},
	FieldExtractedContent: {},
}

// Document is one processed document: four fixed fields plus an open set of
// enrichment fields. It is owned by a single workflow until Seal is called.
type Document struct {
	id               int64
	fileName         string
	documentType     string
	processedAt      time.Time
	extractedContent string
	contentSet       bool
	dynamicFields    map[string]any
	sourceObject     string
	sealed           bool
}

type DocumentOption func(*Document)

// WithDocumentType sets the initial classification.
func WithDocumentType(t string) DocumentOption {
	return func(d *Document) {
		if t != "" {
			d.documentType = t
		}
	}
}

// WithClock overrides the processed_at source.
func WithClock(now func() time.Time) DocumentOption {
	return func(d *Document) {
		if now != nil {
			d.processedAt = now().UTC()
		}
	}
}

// NewDocument creates a record for fileName stamped with the current time.
func NewDocument(fileName string, opts ...DocumentOption) (*Document, error) {
	v := common.NewValidator().
		Field(FieldFileName, fileName, common.Required, common.MaxLength(1024))
	if err := v.Error(); err != nil {
		return nil, err
	}
	d := &Document{
		fileName:      fileName,
		documentType:  string(constants.Unclassified),
		processedAt:   time.Now().UTC(),
		dynamicFields: map[string]any{},
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// RestoreDocument rebuilds a persisted record. The result is sealed.
func RestoreDocument(id int64, fileName, documentType string, processedAt time.Time, content string, dynamic map[string]any, sourceObject string) *Document {
	if dynamic == nil {
		dynamic = map[string]any{}
	}
	return &Document{
		id:               id,
		fileName:         fileName,
		documentType:     documentType,
		processedAt:      processedAt.UTC(),
		extractedContent: content,
		contentSet:       true,
		dynamicFields:    dynamic,
		sourceObject:     sourceObject,
		sealed:           true,
	}
}

func (d *Document) ID() int64                { return d.id }
func (d *Document) FileName() string         { return d.fileName }
func (d *Document) DocumentType() string     { return d.documentType }
func (d *Document) ProcessedAt() time.Time   { return d.processedAt }
func (d *Document) ExtractedContent() string { return d.extractedContent }
func (d *Document) SourceObject() string     { return d.sourceObject }
func (d *Document) Sealed() bool             { return d.sealed }

// DynamicFields returns a copy of the enrichment fields.
func (d *Document) DynamicFields() map[string]any {
	return maps.Clone(d.dynamicFields)
}

// Field returns a single dynamic field.
func (d *Document) Field(key string) (any, bool) {
	v, ok := d.dynamicFields[key]
	return v, ok
}

// SetContent stores the extracted text. It may be called once.
func (d *Document) SetContent(text string) error {
	if d.sealed {
		return ErrSealed
	}
	if d.contentSet {
		return ErrContentAlreadySet
	}
	d.extractedContent = text
	d.contentSet = true
	return nil
}

// SetDocumentType replaces the classification; empty input restores the default.
func (d *Document) SetDocumentType(t string) error {
	if d.sealed {
		return ErrSealed
	}
	if t == "" {
		t = string(constants.Unclassified)
	}
	d.documentType = t
	return nil
}

// SetSourceObject records where the original bytes were archived.
func (d *Document) SetSourceObject(key string) error {
	if d.sealed {
		return ErrSealed
	}
	d.sourceObject = key
	return nil
}

// MergeFields copies enrichment fields into the record. Keys equal to a fixed
// field name are stored under NamespacePrefix+key. When the input also holds
// that prefixed key literally, the namespaced fixed-name value wins. Empty keys
// and nil values are dropped; non-scalar values are stored as their JSON text.
func (d *Document) MergeFields(fields map[string]any) error {
	if d.sealed {
		return ErrSealed
	}
	var renamed []string
	for k, v := range fields {
		if k == "" || v == nil {
			continue
		}
		if _, fixed := fixedFields[k]; fixed {
			renamed = append(renamed, k)
			continue
		}
		d.dynamicFields[k] = scalar(v)
	}
	for _, k := range renamed {
		d.dynamicFields[NamespacePrefix+k] = scalar(fields[k])
	}
	return nil
}

func scalar(v any) any {
	switch t := v.(type) {
	case string, bool, float64, float32, int, int32, int64:
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// Seal freezes the record; every mutator fails afterwards.
func (d *Document) Seal() {
	d.sealed = true
}

// MarkPersisted records the store identifier and seals the record.
func (d *Document) MarkPersisted(id int64) {
	d.id = id
	d.sealed = true
}

// Validate checks the invariants required before persistence.
func (d *Document) Validate() error {
	v := common.NewValidator().
		Field(FieldFileName, d.fileName, common.Required).
		Field(FieldDocumentType, d.documentType, common.Required)
	if d.processedAt.IsZero() {
		v.Field(FieldProcessedAt, "", common.Required)
	}
	return v.Error()
}

// ProcessedAtISO formats processed_at the way it is persisted.
func (d *Document) ProcessedAtISO() string {
	return d.processedAt.Format(time.RFC3339Nano)
}

// DynamicJSON serializes the dynamic fields (keys sorted).
func (d *Document) DynamicJSON() ([]byte, error) {
	return json.Marshal(d.dynamicFields)
}

// DynamicKeys returns the dynamic field names in sorted order.
func (d *Document) DynamicKeys() []string {
	return slices.Sorted(maps.Keys(d.dynamicFields))
}

// Fields flattens fixed and dynamic fields into one map.
func (d *Document) Fields() map[string]any {
	out := make(map[string]any, len(d.dynamicFields)+4)
	for k, v := range d.dynamicFields {
		out[k] = v
	}
	out[FieldFileName] = d.fileName
	out[FieldDocumentType] = d.documentType
	out[FieldProcessedAt] = d.ProcessedAtISO()
	out[FieldExtractedContent] = d.extractedContent
	return out
}

type documentJSON struct {
	ID               int64          `json:"id,omitempty"`
	FileName         string         `json:"file_name"`
	DocumentType     string         `json:"document_type"`
	ProcessedAt      string         `json:"processed_at"`
	ExtractedContent string         `json:"extracted_content,omitempty"`
	DynamicFields    map[string]any `json:"dynamic_fields"`
	SourceObject     string         `json:"source_object,omitempty"`
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(documentJSON{
		ID:               d.id,
		FileName:         d.fileName,
		DocumentType:     d.documentType,
		ProcessedAt:      d.ProcessedAtISO(),
		ExtractedContent: d.extractedContent,
		DynamicFields:    d.dynamicFields,
		SourceObject:     d.sourceObject,
	})
}
