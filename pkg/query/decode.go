package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Decoder validates a raw JSON value and converts it into a bind value
type Decoder func(raw json.RawMessage) (interface{}, error)

var errNull = errors.New("must not be null")

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func nullable(d Decoder) Decoder {
	return func(raw json.RawMessage) (interface{}, error) {
		if isNull(raw) {
			return nil, nil
		}
		return d(raw)
	}
}

func decodeString(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", errNull
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errors.New("must be a string")
	}
	return strings.TrimSpace(s), nil
}

// Text accepts a non-empty string of at most maxLen characters
func Text(maxLen int) Decoder {
	return func(raw json.RawMessage) (interface{}, error) {
		s, err := decodeString(raw)
		if err != nil {
			return nil, err
		}
		if s == "" {
			return nil, errors.New("must not be empty")
		}
		if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
			return nil, fmt.Errorf("must be at most %d characters", maxLen)
		}
		return s, nil
	}
}

// NullableText is like Text but accepts null and the empty string
func NullableText(maxLen int) Decoder {
	return nullable(func(raw json.RawMessage) (interface{}, error) {
		s, err := decodeString(raw)
		if err != nil {
			return nil, err
		}
		if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
			return nil, fmt.Errorf("must be at most %d characters", maxLen)
		}
		return s, nil
	})
}

// Int accepts an integer within [min, max]
func Int(min, max int64) Decoder {
	return func(raw json.RawMessage) (interface{}, error) {
		if isNull(raw) {
			return nil, errNull
		}
		var decoded interface{}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&decoded); err != nil {
			return nil, errors.New("must be an integer")
		}
		n, ok := decoded.(json.Number)
		if !ok {
			return nil, errors.New("must be an integer")
		}
		v, err := n.Int64()
		if err != nil {
			return nil, errors.New("must be an integer")
		}
		if v < min || v > max {
			return nil, fmt.Errorf("must be between %d and %d", min, max)
		}
		return v, nil
	}
}

// NullableInt is like Int but accepts null
func NullableInt(min, max int64) Decoder {
	return nullable(Int(min, max))
}

// NullableID accepts a positive id; null and 0 both clear the reference
func NullableID() Decoder {
	return nullable(func(raw json.RawMessage) (interface{}, error) {
		v, err := Int(0, 1<<62)(raw)
		if err != nil {
			return nil, err
		}
		if v.(int64) == 0 {
			return nil, nil
		}
		return v, nil
	})
}

// MaxMoney is the largest amount a NUMERIC(12,2) column holds
var MaxMoney = decimal.RequireFromString("9999999999.99")

// CheckMoney rejects negative amounts and amounts above MaxMoney
func CheckMoney(d decimal.Decimal) error {
	if d.IsNegative() {
		return errors.New("must not be negative")
	}
	if d.Round(2).GreaterThan(MaxMoney) {
		return fmt.Errorf("must not exceed %s", MaxMoney.StringFixed(2))
	}
	return nil
}

// Money accepts an amount within CheckMoney bounds given as a number or numeric string
func Money() Decoder {
	return func(raw json.RawMessage) (interface{}, error) {
		if isNull(raw) {
			return nil, errNull
		}
		var d decimal.Decimal
		if err := d.UnmarshalJSON(raw); err != nil {
			return nil, errors.New("must be a number")
		}
		if err := CheckMoney(d); err != nil {
			return nil, err
		}
		return d.Round(2), nil
	}
}

// NullableMoney is like Money but accepts null
func NullableMoney() Decoder {
	return nullable(Money())
}

// Date accepts a YYYY-MM-DD string
func Date() Decoder {
	return layout("2006-01-02", "must be a date in YYYY-MM-DD format")
}

// Clock accepts an HH:MM string
func Clock() Decoder {
	return layout("15:04", "must be a time in HH:MM format")
}

// NullableClock is like Clock but accepts null and the empty string
func NullableClock() Decoder {
	return nullable(func(raw json.RawMessage) (interface{}, error) {
		if s, err := decodeString(raw); err == nil && s == "" {
			return nil, nil
		}
		return Clock()(raw)
	})
}

func layout(format, msg string) Decoder {
	return func(raw json.RawMessage) (interface{}, error) {
		s, err := decodeString(raw)
		if err != nil {
			return nil, err
		}
		if _, err := time.Parse(format, s); err != nil {
			return nil, errors.New(msg)
		}
		return s, nil
	}
}

// Enum accepts one of the listed values
func Enum[T ~string](allowed ...T) Decoder {
	return func(raw json.RawMessage) (interface{}, error) {
		s, err := decodeString(raw)
		if err != nil {
			return nil, err
		}
		for _, a := range allowed {
			if string(a) == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("must be one of %v", allowed)
	}
}

// NullableEnum is like Enum but null and the empty string clear the value
func NullableEnum[T ~string](allowed ...T) Decoder {
	enum := Enum(allowed...)
	return nullable(func(raw json.RawMessage) (interface{}, error) {
		if s, err := decodeString(raw); err == nil && s == "" {
			return nil, nil
		}
		return enum(raw)
	})
}

// JSON decodes raw into T, runs check and rebinds the normalized encoding
// as text for a jsonb column. null and empty collections bind as NULL.
func JSON[T any](check func(T) (T, error)) Decoder {
	return nullable(func(raw json.RawMessage) (interface{}, error) {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("must be %T", v)
		}
		if check != nil {
			var err error
			if v, err = check(v); err != nil {
				return nil, err
			}
		}
		out, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		switch string(out) {
		case "null", "[]", "{}":
			return nil, nil
		}
		return string(out), nil
	})
}
