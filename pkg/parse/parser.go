package parse

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// Kind selects the validation applied to parsed objects.
type Kind string

const (
	KindEntity       Kind = "entity"
	KindRelationship Kind = "relationship"
)

var (
	codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")
	arrayPattern     = regexp.MustCompile(`(?s)\[.*\]`)
	// objectPattern matches individual {...} blobs with one nesting level,
	// used by the salvage pass.
	objectPattern = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
)

// ExtractObjects parses a JSON array of objects of the given kind from raw
// LLM output. Extraction strategies are tried in order (fenced block, regex
// array, full response), each followed by a repair pass; if array parsing
// fails, individual objects are salvaged. Returns a ParseError when nothing
// can be recovered.
//
// Relationship objects accept two shapes: the canonical
// {source, target, type} and the alternate {subject, predicate, object},
// which is normalized to the canonical form with the predicate folded into
// an UPPER_SNAKE type.
func ExtractObjects(response string, kind Kind) ([]map[string]any, error) {
	jsonStr, strategy := extractArray(response)

	repaired := Repair(strings.TrimSpace(jsonStr))

	var data []any
	if err := json.Unmarshal([]byte(repaired), &data); err == nil {
		valid := validateItems(data, kind)
		slog.Debug("json_parse_success",
			"strategy", strategy,
			"kind", string(kind),
			"total_items", len(data),
			"valid_items", len(valid))
		return valid, nil
	}

	// Array parsing failed; salvage whatever objects survive individually.
	salvaged := salvageObjects(response, kind)
	if len(salvaged) > 0 {
		slog.Warn("json_array_unparseable_objects_salvaged",
			"strategy", strategy,
			"kind", string(kind),
			"salvaged", len(salvaged))
		return salvaged, nil
	}

	return nil, newParseError(strategy, response)
}

// extractArray locates the JSON array candidate in the response.
func extractArray(response string) (string, string) {
	if m := codeFencePattern.FindStringSubmatch(response); m != nil {
		return m[1], "code_fence"
	}
	if m := arrayPattern.FindString(response); m != "" {
		return m, "regex_array"
	}
	return strings.TrimSpace(response), "full_response"
}

// validateItems filters parsed items down to objects carrying the required
// fields for the kind, normalizing the alternate relationship shape.
func validateItems(data []any, kind Kind) []map[string]any {
	valid := make([]map[string]any, 0, len(data))
	for i, item := range data {
		obj, ok := item.(map[string]any)
		if !ok {
			slog.Warn("invalid_item_type", "kind", string(kind), "index", i)
			continue
		}
		if normalized, ok := validateObject(obj, kind); ok {
			valid = append(valid, normalized)
		} else {
			slog.Warn("invalid_item_structure", "kind", string(kind), "index", i)
		}
	}
	return valid
}

// validateObject checks required fields and normalizes the alternate
// relationship shape. Returns the (possibly rewritten) object.
func validateObject(obj map[string]any, kind Kind) (map[string]any, bool) {
	switch kind {
	case KindEntity:
		if hasString(obj, "name") && hasString(obj, "type") {
			return obj, true
		}
		return nil, false
	case KindRelationship:
		if hasString(obj, "source") && hasString(obj, "target") && hasString(obj, "type") {
			return obj, true
		}
		if hasString(obj, "subject") && hasString(obj, "object") {
			predicate, _ := obj["predicate"].(string)
			normalized := map[string]any{
				"source":      obj["subject"],
				"target":      obj["object"],
				"type":        NormalizePredicate(predicate),
				"description": predicate,
			}
			for _, key := range []string{"strength", "evidence_span", "confidence"} {
				if v, ok := obj[key]; ok {
					normalized[key] = v
				}
			}
			return normalized, true
		}
		return nil, false
	default:
		return obj, true
	}
}

func hasString(obj map[string]any, key string) bool {
	v, ok := obj[key]
	if !ok {
		return false
	}
	s, ok := v.(string)
	return ok && s != ""
}

// salvageObjects repairs and parses each {...} blob independently,
// discarding invalid ones.
func salvageObjects(response string, kind Kind) []map[string]any {
	var objects []map[string]any
	for _, blob := range objectPattern.FindAllString(response, -1) {
		repaired := Repair(blob)
		var obj map[string]any
		if err := json.Unmarshal([]byte(repaired), &obj); err != nil {
			continue
		}
		if normalized, ok := validateObject(obj, kind); ok {
			objects = append(objects, normalized)
		}
	}
	return objects
}
