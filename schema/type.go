package schema

import (
	"fmt"
	"strings"
)

type ColumnType uint8

const (
	TextColumn ColumnType = iota
	IntegerColumn
	DateColumn
	ImageURLColumn
	UserRefColumn
	LookupRefColumn

	DecimalColumn
)

func (c ColumnType) String() string {
	switch c {
	case TextColumn:
		return "text"
	case IntegerColumn:
		return "integer"
	case DateColumn:
		return "date"
	case ImageURLColumn:
		return "image_url"
	case UserRefColumn:
		return "user_ref"
	case LookupRefColumn:
		return "lookup_ref"
	case DecimalColumn:
		return "decimal"
	default:
		return ""
	}
}

func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return TextColumn, nil
	case "integer", "int":
		return IntegerColumn, nil
	case "date":
		return DateColumn, nil
	case "image_url", "image":
		return ImageURLColumn, nil
	case "user_ref", "user":
		return UserRefColumn, nil
	case "lookup_ref", "lookup":
		return LookupRefColumn, nil
	case "decimal":
		return DecimalColumn, nil
	default:
		return TextColumn, fmt.Errorf("unknown column type `%s`", s)
	}
}

func (c ColumnType) MarshalText() ([]byte, error) {
	name := c.String()
	if name == "" {
		return nil, fmt.Errorf("unknown column type %d", uint8(c))
	}
	return []byte(name), nil
}

func (c *ColumnType) UnmarshalText(text []byte) error {
	parsed, err := ParseColumnType(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
