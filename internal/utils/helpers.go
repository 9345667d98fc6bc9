package utils

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/docintake/internal/entity"
)

func StrOrEmpty(p sql.NullString) string {
	if !p.Valid {
		return ""
	}
	return p.String
}

// ParseTimestamp reads a stored processed_at value; unparsable input yields the zero time.
func ParseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// DecodeDynamic parses a stored dynamic_fields column. JSON numbers come back
// as int64 when integral and float64 otherwise; strings stay strings.
func DecodeDynamic(s string) (map[string]any, error) {
	out := map[string]any{}
	if s == "" {
		return out, nil
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode dynamic fields: %w", err)
	}
	for k, v := range out {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		if i, err := n.Int64(); err == nil {
			out[k] = i
			continue
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("decode dynamic field %q: %w", k, err)
		}
		out[k] = f
	}
	return out, nil
}

// ToPBDocument flattens a record into a protobuf Struct for the RPC surface.
func ToPBDocument(d *entity.Document) (*structpb.Struct, error) {
	fields := d.Fields()
	fields["id"] = d.ID()
	if so := d.SourceObject(); so != "" {
		fields["source_object"] = so
	}
	return structpb.NewStruct(fields)
}

func ToPBDocuments(docs []*entity.Document) ([]any, error) {
	out := make([]any, 0, len(docs))
	for _, d := range docs {
		s, err := ToPBDocument(d)
		if err != nil {
			return nil, fmt.Errorf("convert document %d: %w", d.ID(), err)
		}
		out = append(out, s.AsMap())
	}
	return out, nil
}
