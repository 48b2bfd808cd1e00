package executor

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"freightrates/internal/domain"
)

// ErrMalformedResponse is returned when no JSON object can be recovered from a reply.
var ErrMalformedResponse = errors.New("malformed extraction response")

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)\\s*```")

const responseSchemaText = `{
  "type": "object",
  "properties": {
    "prices":          {"$ref": "#/$defs/records"},
    "surchargeItems":  {"$ref": "#/$defs/records"},
    "surcharge_items": {"$ref": "#/$defs/records"},
    "otherRemarks":    {"$ref": "#/$defs/records"},
    "other_remarks":   {"$ref": "#/$defs/records"}
  },
  "$defs": {
    "records": {
      "type": ["array", "null"],
      "items": {"type": "object"}
    }
  }
}`

var responseSchema = jsonschema.MustCompileString("extraction-response.json", responseSchemaText)

// RepairJSON recovers a JSON object from a model reply. Candidates are tried
// in order: the whole text, the body of a Markdown code fence, the first
// balanced {...} span, and the span from the first '{' to the last '}'.
func RepairJSON(content string) (map[string]interface{}, error) {
	for _, candidate := range candidates(content) {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(candidate), &obj); err == nil && obj != nil {
			return obj, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, truncate(content, 200))
}

func candidates(content string) []string {
	content = strings.TrimSpace(content)
	out := []string{content}
	if m := fencePattern.FindStringSubmatch(content); m != nil {
		out = append(out, m[1])
	}
	if s, ok := balancedObject(content); ok {
		out = append(out, s)
	}
	first, last := strings.Index(content, "{"), strings.LastIndex(content, "}")
	if first >= 0 && last > first {
		out = append(out, content[first:last+1])
	}
	return out
}

// balancedObject returns the first brace-balanced object, ignoring braces
// inside string literals.
func balancedObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// decodeResponse repairs and validates a reply, returning it as a result.
// Both camelCase and snake_case bucket keys are accepted.
func decodeResponse(content string) (*domain.ExtractionResult, error) {
	obj, err := RepairJSON(content)
	if err != nil {
		return nil, err
	}
	if err := responseSchema.Validate(obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	result := domain.NewExtractionResult()
	result.Prices = append(result.Prices, records(obj["prices"])...)
	result.SurchargeItems = append(result.SurchargeItems, records(obj["surchargeItems"])...)
	result.SurchargeItems = append(result.SurchargeItems, records(obj["surcharge_items"])...)
	result.OtherRemarks = append(result.OtherRemarks, records(obj["otherRemarks"])...)
	result.OtherRemarks = append(result.OtherRemarks, records(obj["other_remarks"])...)
	return result, nil
}

func records(v interface{}) []domain.Record {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]domain.Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, domain.Record(m))
		}
	}
	return out
}

// truncate shortens s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
