package llm

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reAmountJunk = regexp.MustCompile(`[^0-9,.\-]`)
	dateLayouts  = []string{"2006-01-02", "02/01/2006", "02-01-2006", "02.01.2006", "2006/01/02", time.RFC3339}
)

// SanitizeFields drops null/empty values and coerces the typed well-known keys
// so a near-miss response can still validate. Keys that cannot be coerced are
// dropped. Nested values are left untouched for the validator to reject.
func SanitizeFields(m map[string]any) (map[string]any, []string) {
	out := make(map[string]any, len(m))
	var dropped []string

	for k, v := range m {
		switch t := v.(type) {
		case nil:
			dropped = append(dropped, k+"(null)")
			continue
		case string:
			s := strings.TrimSpace(t)
			if s == "" || strings.EqualFold(s, "null") {
				dropped = append(dropped, k+"(empty)")
				continue
			}
			v = s
		}

		switch k {
		case FieldValorTotal:
			if s, ok := v.(string); ok {
				f, ok := ParseAmount(s)
				if !ok {
					dropped = append(dropped, k+"(amount)")
					continue
				}
				v = f
			}
		case FieldDataEmissao:
			s, ok := v.(string)
			if !ok {
				dropped = append(dropped, k+"(type)")
				continue
			}
			iso, ok := NormalizeDate(s)
			if !ok {
				dropped = append(dropped, k+"(date)")
				continue
			}
			v = iso
		case FieldNumeroNF:
			if f, ok := v.(float64); ok {
				v = strconv.FormatFloat(f, 'f', -1, 64)
			}
		}
		out[k] = v
	}
	return out, dropped
}

// ParseAmount reads money written either way round: "R$ 1.234,56", "1,234.56", "99.9".
func ParseAmount(s string) (float64, bool) {
	s = reAmountJunk.ReplaceAllString(s, "")
	if s == "" {
		return 0, false
	}
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 1,234.56
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 != 3 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// NormalizeDate converts the usual Brazilian and ISO layouts to YYYY-MM-DD.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}
