package llm

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/docintake/internal/common"
)

// DecodeDetails turns the model's message content into a flat field map.
// Content must be a JSON object of scalars; a failed strict validation gets
// one lenient pass through SanitizeFields before giving up.
func DecodeDetails(content string, logger *slog.Logger) (map[string]any, error) {
	if logger == nil {
		logger = slog.Default()
	}
	content = stripCodeFence(content)
	if content == "" {
		return nil, common.EnrichmentFailed("model returned empty content", nil)
	}

	var v any
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return nil, common.EnrichmentFailed("model returned non-json content", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, common.EnrichmentFailed("model returned a json value that is not an object", nil)
	}

	schema := BuildDocumentJSONSchema()
	err := ValidateJSONAgainstSchema(schema, []byte(content))
	if err == nil {
		return m, nil
	}

	cleaned, dropped := SanitizeFields(m)
	b, mErr := json.Marshal(cleaned)
	if mErr != nil {
		return nil, common.EnrichmentFailed("re-encode sanitized fields", mErr)
	}
	if vErr := ValidateJSONAgainstSchema(schema, b); vErr != nil {
		logger.Error("llm.extract.schema_validation_failed", "error", vErr, "content", content)
		return nil, common.EnrichmentFailed("model output does not match schema", vErr)
	}
	logger.Warn("llm.extract.lenient_sanitize_applied", "dropped", dropped, "first_error", err)
	return cleaned, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
