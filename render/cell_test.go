package render

import (
	"errors"
	"testing"
	"time"

	"github.com/dot5enko/virtual-grid/schema"
	"github.com/mattn/go-runewidth"
)

func TestParseByType(t *testing.T) {

	cases := []struct {
		typ      schema.ColumnType
		input    string
		expected any
	}{
		{schema.TextColumn, "  hello ", "hello"},
		{schema.TextColumn, "", ""},
		{schema.IntegerColumn, "42", int64(42)},
		{schema.IntegerColumn, "", nil},
		{schema.DecimalColumn, "10.50", "10.5"},
		{schema.DateColumn, "2024-03-01", "2024-03-01"},
		{schema.UserRefColumn, "0190b6a4-6f50-7a6c-9d5e-2b1c3a4d5e6f", "0190b6a4-6f50-7a6c-9d5e-2b1c3a4d5e6f"},
		{schema.ImageURLColumn, "https://cdn.example.com/a.png", "https://cdn.example.com/a.png"},
		{schema.LookupRefColumn, "ORD-1", "ORD-1"},
	}

	for _, tc := range cases {
		v, err := Parse(tc.typ, tc.input)
		if err != nil {
			t.Errorf("%s `%s`: unexpected error %v", tc.typ.String(), tc.input, err)
		} else if v != tc.expected {
			t.Errorf("%s `%s`: expected %#v, got %#v", tc.typ.String(), tc.input, tc.expected, v)
		}
	}
}

func TestParseRejects(t *testing.T) {

	cases := []struct {
		typ   schema.ColumnType
		input string
	}{
		{schema.IntegerColumn, "4.2"},
		{schema.DecimalColumn, "ten"},
		{schema.DateColumn, "03/01/2024"},
		{schema.UserRefColumn, "bob"},
		{schema.ImageURLColumn, "ftp://example.com/a.png"},
		{schema.ImageURLColumn, "not a url"},
	}

	for _, tc := range cases {
		if _, err := Parse(tc.typ, tc.input); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("%s `%s`: expected ErrInvalidValue, got %v", tc.typ.String(), tc.input, err)
		}
	}
}

func TestFormat(t *testing.T) {

	if s := Format(schema.IntegerColumn, float64(7)); s != "7" {
		t.Errorf("expected 7, got %s", s)
	}
	if s := Format(schema.DateColumn, time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)); s != "2024-01-02" {
		t.Errorf("expected 2024-01-02, got %s", s)
	}
	if s := Format(schema.DecimalColumn, "3.1400"); s != "3.14" {
		t.Errorf("expected 3.14, got %s", s)
	}
	if s := Format(schema.TextColumn, nil); s != "" {
		t.Errorf("expected empty, got %s", s)
	}
}

func TestTruncate(t *testing.T) {

	if s := Truncate("abc", 6); s != "abc   " {
		t.Errorf("expected padded string, got `%s`", s)
	}

	s := Truncate("a very long value", 8)
	if runewidth.StringWidth(s) != 8 {
		t.Errorf("expected width 8, got %d (`%s`)", runewidth.StringWidth(s), s)
	}

	if s := Truncate("x", 0); s != "" {
		t.Errorf("expected empty string, got `%s`", s)
	}
}
