package render

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dot5enko/virtual-grid/schema"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidValue = errors.New("invalid cell value")
)

// Format renders a cell value as text for its column type. nil renders empty.
func Format(typ schema.ColumnType, v any) string {

	if v == nil {
		return ""
	}

	switch typ {
	case schema.IntegerColumn:
		if n, ok := asInt(v); ok {
			return strconv.FormatInt(n, 10)
		}
	case schema.DecimalColumn:
		if d, ok := asDecimal(v); ok {
			return d.String()
		}
	case schema.DateColumn:
		switch t := v.(type) {
		case time.Time:
			return t.Format(DateLayout)
		case string:
			if parsed, err := parseDate(t); err == nil {
				return parsed.Format(DateLayout)
			}
		}
	case schema.UserRefColumn:
		switch u := v.(type) {
		case uuid.UUID:
			return u.String()
		}
	}

	return fmt.Sprint(v)
}

// Parse turns user input into a value for the column type. Empty input means
// nil for every type except text.
func Parse(typ schema.ColumnType, text string) (any, error) {

	text = strings.TrimSpace(text)

	if text == "" {
		if typ == schema.TextColumn {
			return "", nil
		}
		return nil, nil
	}

	switch typ {
	case schema.TextColumn, schema.LookupRefColumn:
		return text, nil

	case schema.IntegerColumn:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: `%s` is not an integer", ErrInvalidValue, text)
		}
		return n, nil

	case schema.DecimalColumn:
		d, err := decimal.NewFromString(text)
		if err != nil {
			return nil, fmt.Errorf("%w: `%s` is not a number", ErrInvalidValue, text)
		}
		return d.String(), nil

	case schema.DateColumn:
		t, err := parseDate(text)
		if err != nil {
			return nil, fmt.Errorf("%w: `%s` is not a date (%s)", ErrInvalidValue, text, DateLayout)
		}
		return t.Format(DateLayout), nil

	case schema.UserRefColumn:
		u, err := uuid.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("%w: `%s` is not a user id", ErrInvalidValue, text)
		}
		return u.String(), nil

	case schema.ImageURLColumn:
		u, err := url.Parse(text)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("%w: `%s` is not an http(s) url", ErrInvalidValue, text)
		}
		return u.String(), nil

	default:
		return nil, fmt.Errorf("unsupported column type %d", uint8(typ))
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	case string:
		if parsed, err := strconv.ParseInt(n, 10, 64); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

func asDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case float64:
		return decimal.NewFromFloat(n), true
	case int64:
		return decimal.NewFromInt(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case string:
		if d, err := decimal.NewFromString(n); err == nil {
			return d, true
		}
	}
	return decimal.Decimal{}, false
}
