package qa

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"docgenie/apps/indexer/internal/text"
)

var ErrUnparsable = errors.New("model output is not a question-answer list")

// Pair is one synthesized question-answer entry.
type Pair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

var (
	controlRunsRe = regexp.MustCompile(`[\x00-\x1F]+`)
	arrayRe       = regexp.MustCompile(`(?s)\[.*\]`)
)

// ParsePairs recovers a question-answer list from raw model output. Models
// wrap JSON in markdown fences, double-encode it, emit Python-style single
// quotes, or bury the array in prose, so parsing tries progressively looser
// strategies before giving up. Entries that are not objects, and pairs that
// normalize to empty, are dropped.
func ParsePairs(raw string) ([]Pair, error) {
	cleaned := stripFence(raw)
	cleaned = controlRunsRe.ReplaceAllString(cleaned, " ")

	items, ok := parseStrict(cleaned)
	if !ok {
		items, ok = parseStrict(relaxLiterals(cleaned))
	}
	if !ok {
		if m := arrayRe.FindString(cleaned); m != "" {
			items, ok = parseStrict(m)
			if !ok {
				items, ok = parseStrict(relaxLiterals(m))
			}
		}
	}
	if !ok {
		return nil, ErrUnparsable
	}

	pairs := make([]Pair, 0, len(items))
	for _, item := range items {
		obj, isObj := item.(map[string]interface{})
		if !isObj {
			continue
		}
		q, _ := obj["question"].(string)
		a, _ := obj["answer"].(string)
		q = text.NormalizeSpace(q)
		a = text.NormalizeSpace(a)
		if q == "" || a == "" {
			continue
		}
		pairs = append(pairs, Pair{Question: q, Answer: a})
	}
	return pairs, nil
}

// parseStrict JSON-decodes s into a list, unwrapping one level of double
// encoding when the payload itself is a JSON string.
func parseStrict(s string) ([]interface{}, bool) {
	var v interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &v); err != nil {
		return nil, false
	}
	if inner, isStr := v.(string); isStr {
		if err := json.Unmarshal([]byte(inner), &v); err != nil {
			return nil, false
		}
	}
	list, isList := v.([]interface{})
	return list, isList
}

// stripFence removes a surrounding markdown code fence, with or without a
// language tag.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		first := strings.TrimSpace(s[:i])
		// A language tag has no spaces; anything else is content.
		if first == "" || !strings.ContainsAny(first, " \t{[") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// relaxLiterals rewrites Python-flavored literals into JSON: single-quoted
// strings become double-quoted and trailing commas are dropped. Escapes
// inside strings are preserved.
func relaxLiterals(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	inSingle, inDouble := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case inDouble:
			out.WriteByte(ch)
			if ch == '\\' && i+1 < len(s) {
				i++
				out.WriteByte(s[i])
			} else if ch == '"' {
				inDouble = false
			}
		case inSingle:
			switch {
			case ch == '\\' && i+1 < len(s):
				i++
				if s[i] == '\'' {
					out.WriteByte('\'')
				} else {
					out.WriteByte('\\')
					out.WriteByte(s[i])
				}
			case ch == '\'':
				out.WriteByte('"')
				inSingle = false
			case ch == '"':
				out.WriteString(`\"`)
			default:
				out.WriteByte(ch)
			}
		case ch == '"':
			inDouble = true
			out.WriteByte(ch)
		case ch == '\'':
			inSingle = true
			out.WriteByte('"')
		case ch == ',':
			// Drop the comma when the next non-space byte closes a scope.
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\n' || s[j] == '\t' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == ']' || s[j] == '}') {
				continue
			}
			out.WriteByte(ch)
		default:
			out.WriteByte(ch)
		}
	}
	return out.String()
}
