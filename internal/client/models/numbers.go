package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrNotNumeric = errors.New("value is not numeric")

// ForeignKey is a numeric reference to another entity. Zero means unset
// and is encoded as null.
type ForeignKey int64

func (k ForeignKey) Int64() int64 { return int64(k) }

func (k ForeignKey) MarshalJSON() ([]byte, error) {
	if k == 0 {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(int64(k), 10)), nil
}

func (k *ForeignKey) UnmarshalJSON(data []byte) error {
	s, err := numericText(data)
	if err != nil {
		return err
	}
	if s == "" {
		*k = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// "3.0" from a spreadsheet paste
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int64(f)) {
			return fmt.Errorf("foreign key %q: %w", s, ErrNotNumeric)
		}
		v = int64(f)
	}
	*k = ForeignKey(v)
	return nil
}

// ParseForeignKey converts form text to a ForeignKey.
func ParseForeignKey(s string) (ForeignKey, error) {
	var k ForeignKey
	err := k.UnmarshalJSON([]byte(strconv.Quote(s)))
	return k, err
}

// Number is a decimal quantity (price, stock level, mileage).
type Number float64

func (n Number) Float64() float64 { return float64(n) }

func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(n))
}

func (n *Number) UnmarshalJSON(data []byte) error {
	s, err := numericText(data)
	if err != nil {
		return err
	}
	if s == "" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("number %q: %w", s, ErrNotNumeric)
	}
	*n = Number(v)
	return nil
}

// numericText returns the textual number held by a JSON number, a JSON
// string or null. null and blank strings yield "".
func numericText(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	if data[0] == '-' || (data[0] >= '0' && data[0] <= '9') {
		return string(data), nil
	}
	return "", fmt.Errorf("%s: %w", data, ErrNotNumeric)
}
