// Package extract maps raw extraction results onto the display fields configured in
// doclane.yaml (results.fields: name -> JSONPath).
package extract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"github.com/aalvaropc/doclane/internal/ports"
)

// Field reports the outcome of one rule.
type Field struct {
	Name    string
	OK      bool
	Message string
}

// Extractor applies a fixed rule set to result payloads.
type Extractor struct {
	rules map[string]string
}

func New(rules map[string]string) *Extractor {
	cp := make(map[string]string, len(rules))
	for k, v := range rules {
		cp[k] = v
	}
	return &Extractor{rules: cp}
}

var _ ports.FieldExtractor = (*Extractor)(nil)

// Extract returns the fields that resolved to a value. Missing fields are omitted.
func (e *Extractor) Extract(doc map[string]any) map[string]string {
	fields, _ := ApplyDoc(doc, e.rules)
	return fields
}

// Apply decodes body and extracts fields from it.
// If body is not JSON every rule fails; a failing rule never stops the others.
func Apply(body []byte, rules map[string]string) (map[string]string, []Field) {
	if len(rules) == 0 {
		return map[string]string{}, []Field{}
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		keys := sortedKeys(rules)
		out := make([]Field, 0, len(keys))
		for _, name := range keys {
			out = append(out, Field{
				Name:    name,
				Message: fmt.Sprintf("field %q (%s): result body is not valid JSON", name, strings.TrimSpace(rules[name])),
			})
		}
		return map[string]string{}, out
	}
	return ApplyDoc(doc, rules)
}

// ApplyDoc extracts fields from an already decoded document.
func ApplyDoc(doc any, rules map[string]string) (map[string]string, []Field) {
	extracted := map[string]string{}
	keys := sortedKeys(rules)
	results := make([]Field, 0, len(keys))

	for _, name := range keys {
		expr := strings.TrimSpace(rules[name])
		if expr == "" {
			results = append(results, Field{
				Name:    name,
				Message: fmt.Sprintf("field %q: empty jsonpath expression", name),
			})
			continue
		}

		val, err := jsonpath.Get(expr, doc)
		if err != nil {
			results = append(results, Field{
				Name:    name,
				Message: fmt.Sprintf("field %q (%s): jsonpath error: %v", name, expr, err),
			})
			continue
		}

		if isEmptyValue(val) {
			results = append(results, Field{
				Name:    name,
				Message: fmt.Sprintf("field %q (%s): no value", name, expr),
			})
			continue
		}

		s, err := toString(val)
		if err != nil {
			results = append(results, Field{
				Name:    name,
				Message: fmt.Sprintf("field %q (%s): cannot convert value to string: %v", name, expr, err),
			})
			continue
		}

		extracted[name] = s
		results = append(results, Field{Name: name, OK: true, Message: fmt.Sprintf("extracted %q", name)})
	}

	return extracted, results
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

func toString(v any) (string, error) {
	if arr, ok := v.([]any); ok {
		if len(arr) == 1 {
			return toString(arr[0])
		}
		b, err := json.Marshal(arr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		// Amounts must not render in exponent form.
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool, int, int64:
		return fmt.Sprint(t), nil
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return fmt.Sprint(t), nil
	}
}
