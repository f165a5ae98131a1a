package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeList decodes a collection response. Accepted shapes are a bare
// JSON array and an object whose "data" member is an array; null or an
// empty body is an empty collection. Anything else is ErrMalformedResponse.
func DecodeList[T any](data []byte) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []T{}, nil
	}

	switch data[0] {
	case '[':
		out := []T{}
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return out, nil
	case '{':
		var env map[string]json.RawMessage
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		inner, ok := env["data"]
		inner = bytes.TrimSpace(inner)
		if !ok || len(inner) == 0 || (inner[0] != '[' && !bytes.Equal(inner, []byte("null"))) {
			return nil, fmt.Errorf("%w: object without a data array", ErrMalformedResponse)
		}
		return DecodeList[T](inner)
	default:
		return nil, fmt.Errorf("%w: expected array, got %.20s", ErrMalformedResponse, data)
	}
}

// DecodeOne decodes a single-entity response: an object, or an object
// whose only member is "data".
func DecodeOne[T any](data []byte) (T, error) {
	var out T

	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return out, fmt.Errorf("%w: expected object", ErrMalformedResponse)
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if inner, ok := env["data"]; ok && len(env) == 1 {
		return DecodeOne[T](inner)
	}

	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}
