package schema

import "testing"

func TestColumnTypeRoundTrip(t *testing.T) {

	for _, typ := range []ColumnType{TextColumn, IntegerColumn, DateColumn, ImageURLColumn, UserRefColumn, LookupRefColumn, DecimalColumn} {
		parsed, err := ParseColumnType(typ.String())
		if err != nil {
			t.Errorf("unexpected error for %s: %v", typ.String(), err)
		} else if parsed != typ {
			t.Errorf("expected %s, got %s", typ.String(), parsed.String())
		}
	}

	if _, err := ParseColumnType("blob"); err == nil {
		t.Errorf("expected error for unknown column type")
	}
}

func TestFetchRangeClamp(t *testing.T) {

	r := FetchRange{Skip: 990, Take: 50}.Clamp(1000)
	if r.Skip != 990 || r.Take != 10 {
		t.Errorf("expected skip=990,take=10, got %s", r.String())
	}

	r = FetchRange{Skip: -5, Take: 10}.Clamp(1000)
	if r.Skip != 0 || r.Take != 5 {
		t.Errorf("expected skip=0,take=5, got %s", r.String())
	}

	r = FetchRange{Skip: 1200, Take: 10}.Clamp(1000)
	if r.Take != 0 || r.Valid() {
		t.Errorf("expected empty range, got %s", r.String())
	}
}

func TestFetchRangeOverlaps(t *testing.T) {

	a := FetchRange{Skip: 0, Take: 50}
	b := FetchRange{Skip: 50, Take: 50}
	c := FetchRange{Skip: 49, Take: 2}

	if a.Overlaps(b) {
		t.Errorf("adjacent ranges must not overlap")
	}
	if !a.Overlaps(c) || !b.Overlaps(c) {
		t.Errorf("expected %s to overlap both neighbours", c.String())
	}
}
