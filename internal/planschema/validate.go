package planschema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// ValidationError carries the user-facing message for a model output that
// failed the structural re-check. The message text is returned verbatim to
// callers in the error envelope.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func shapeErrf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Validate re-checks raw model output against the rule table, independently
// of whatever schema enforcement the provider claims to perform. It
// short-circuits on the first failing check and never mutates the input; a
// nil return means raw may be released to the caller verbatim.
func (s *Schema) Validate(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return &ValidationError{Message: "Model returned non-JSON output"}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return &ValidationError{Message: "Model output is not a JSON object"}
	}

	if err := s.checkKeys(obj); err != nil {
		return err
	}

	for _, f := range fieldRules {
		if err := s.checkField(f, obj[f.name]); err != nil {
			return err
		}
	}
	return nil
}

// checkKeys enforces the exact-property whitelist. Keys are visited in
// sorted order so the reported property is deterministic.
func (s *Schema) checkKeys(obj map[string]any) error {
	allowed := make(map[string]bool, len(fieldRules))
	for _, f := range fieldRules {
		allowed[f.name] = true
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !allowed[k] {
			return shapeErrf("Model output has unexpected property %q", k)
		}
	}
	for _, f := range fieldRules {
		if _, ok := obj[f.name]; !ok {
			return shapeErrf("Model output is missing required property %q", f.name)
		}
	}
	return nil
}

// trimmedLen counts characters, not bytes; the rule table's minimums are
// defined in characters.
func trimmedLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

func (s *Schema) checkField(f fieldRule, v any) error {
	if !f.array {
		str, ok := v.(string)
		if !ok {
			return shapeErrf("Property %q must be a string", f.name)
		}
		if trimmedLen(str) < f.minLen {
			return shapeErrf("Property %q must be at least %d characters", f.name, f.minLen)
		}
		return nil
	}

	arr, ok := v.([]any)
	if !ok {
		return shapeErrf("Property %q must be an array", f.name)
	}
	if len(arr) < f.minItems || len(arr) > f.maxItems {
		return shapeErrf("Property %q must contain between %d and %d items", f.name, f.minItems, f.maxItems)
	}
	for i, item := range arr {
		str, ok := item.(string)
		if !ok {
			return shapeErrf("Property %q item %d must be a string", f.name, i)
		}
		if trimmedLen(str) < f.minLen {
			return shapeErrf("Property %q item %d must be at least %d characters", f.name, i, f.minLen)
		}
		if f.name == nextStepsField && !s.stepPattern.MatchString(str) {
			return shapeErrf("Property %q item %d %s", f.name, i, s.stepHint)
		}
	}
	return nil
}
