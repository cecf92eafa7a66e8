// Package extract recovers a single JSON object from a free-text agent reply.
package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const fence = "```"

// Outcome is either parsed fields (OK) or a failure that keeps the raw reply.
type Outcome struct {
	Fields *Fields
	Raw    string
	// Reason describes why nothing could be recovered.
	Reason string
}

func (o Outcome) OK() bool {
	return o.Fields != nil
}

func failed(raw, reason string) Outcome {
	return Outcome{Raw: raw, Reason: reason}
}

// Extract returns the first balanced JSON object in reply. An object without
// keys counts as a failure.
// When the first attempt fails, code fences and surrounding prose are stripped
// and the search runs once more. It never panics and never returns an error:
// failure is reported through Outcome.
func Extract(reply string) Outcome {
	fields, reason := parseFirstObject(reply)
	if fields != nil {
		return Outcome{Fields: fields, Raw: reply}
	}

	cleaned := stripWrapping(reply)
	if cleaned == "" || cleaned == reply {
		return failed(reply, reason)
	}

	fields, retryReason := parseFirstObject(cleaned)
	if fields != nil {
		return Outcome{Fields: fields, Raw: reply}
	}

	return failed(reply, fmt.Sprintf("%s; after cleanup: %s", reason, retryReason))
}

func parseFirstObject(text string) (*Fields, string) {
	region, ok := firstBalanced(text)
	if !ok {
		return nil, "no balanced json object"
	}

	fields, err := decodeObject(region)
	if err != nil {
		return nil, fmt.Sprintf("invalid json object: %v", err)
	}

	// An agent that found nothing often answers with {}.
	if fields.Len() == 0 {
		return nil, "empty json object"
	}

	return fields, ""
}

// firstBalanced returns the substring from the first '{' to its matching '}'.
// Braces inside double-quoted strings do not count.
func firstBalanced(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}

// stripWrapping removes a markdown code fence and any prose around the outermost braces.
func stripWrapping(raw string) string {
	text := strings.TrimSpace(raw)

	if start := strings.Index(text, fence); start != -1 {
		body := text[start+len(fence):]
		// drop the info string, e.g. ```json
		if nl := strings.IndexByte(body, '\n'); nl != -1 && !strings.Contains(body[:nl], "{") {
			body = body[nl+1:]
		}
		if end := strings.Index(body, fence); end != -1 {
			body = body[:end]
		}
		text = strings.TrimSpace(body)
	}

	text = strings.Trim(text, "`")

	if i := strings.IndexByte(text, '{'); i > 0 {
		text = text[i:]
	}
	if j := strings.LastIndexByte(text, '}'); j != -1 {
		text = text[:j+1]
	}

	return strings.TrimSpace(text)
}

// String renders a decoded JSON value as a flat cell value.
func String(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			switch item.(type) {
			case map[string]any, []any:
				return marshalString(v)
			}
			parts = append(parts, String(item))
		}
		return strings.Join(parts, ", ")
	default:
		return marshalString(v)
	}
}

func marshalString(v any) string {
	bytes, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(bytes)
}
