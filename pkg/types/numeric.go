package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FlexDecimal accepts a JSON number or a numeric string. Anything else is
// rejected instead of being read as zero.
type FlexDecimal struct {
	decimal.Decimal
}

func (d *FlexDecimal) UnmarshalJSON(data []byte) error {
	raw, err := flexRaw(data)
	if err != nil {
		return err
	}
	parsed, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("value %q is not a valid number", raw)
	}
	d.Decimal = parsed
	return nil
}

func (d FlexDecimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Decimal.StringFixed(2))
}

// FlexInt accepts a JSON integer or an integer string.
type FlexInt int

func (i *FlexInt) UnmarshalJSON(data []byte) error {
	raw, err := flexRaw(data)
	if err != nil {
		return err
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("value %q is not a valid integer", raw)
	}
	*i = FlexInt(parsed)
	return nil
}

func (i FlexInt) Int() int {
	return int(i)
}

func flexRaw(data []byte) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", fmt.Errorf("value is required")
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", fmt.Errorf("value is required")
		}
		return s, nil
	}
	if trimmed[0] == '{' || trimmed[0] == '[' || trimmed[0] == 't' || trimmed[0] == 'f' {
		return "", fmt.Errorf("value %s is not a number", string(trimmed))
	}
	return string(trimmed), nil
}
