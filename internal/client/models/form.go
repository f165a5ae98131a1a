package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FromForm decodes text form fields (JSON field name -> typed text) into T.
// Blank values are dropped so they keep T's zero value.
func FromForm[T any](fields map[string]string) (T, error) {
	var out T

	m := make(map[string]string, len(fields))
	for k, v := range fields {
		if strings.TrimSpace(v) == "" {
			continue
		}
		m[k] = v
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("form: %w", err)
	}
	return out, nil
}

// Patch applies the non-blank form fields on top of current. Fields are
// matched by JSON name; values keep the same text coercion as FromForm.
func Patch[T any](current T, fields map[string]string) (T, error) {
	raw, err := json.Marshal(current)
	if err != nil {
		return current, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return current, err
	}
	for k, v := range fields {
		if strings.TrimSpace(v) == "" {
			continue
		}
		m[k] = v
	}

	raw, err = json.Marshal(m)
	if err != nil {
		return current, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return current, fmt.Errorf("form: %w", err)
	}
	return out, nil
}
