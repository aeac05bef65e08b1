package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/dot5enko/virtual-grid/schema"
	"github.com/dot5enko/virtual-grid/window"
)

func openMemory(t *testing.T) *Store {
	t.Helper()

	s, err := Open(":memory:", nil)
	if err != nil {
		t.Fatalf("unable to open store: %s", err.Error())
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func insertNumbered(t *testing.T, s *Store, parentID string, n int) {
	t.Helper()

	ctx := context.Background()
	for i := range n {
		err := s.Insert(ctx, parentID, fmt.Sprintf("r%03d", i), map[string]any{
			"name": fmt.Sprintf("item-%03d", i),
			"qty":  i * 10,
		})
		if err != nil {
			t.Fatalf("insert failed: %s", err.Error())
		}
	}
}

func TestCountPerParent(t *testing.T) {

	s := openMemory(t)
	insertNumbered(t, s, "a", 12)
	insertNumbered(t, s, "b", 0)

	ctx := context.Background()

	if n, err := s.Count(ctx, schema.Query{ParentID: "a"}); err != nil || n != 12 {
		t.Errorf("expected 12 rows, got %d (%v)", n, err)
	} else if n, err := s.Count(ctx, schema.Query{ParentID: "b"}); err != nil || n != 0 {
		t.Errorf("expected 0 rows, got %d (%v)", n, err)
	}
}

func TestConcurrentCountsAgree(t *testing.T) {

	s := openMemory(t)
	insertNumbered(t, s, "a", 40)

	var wg sync.WaitGroup
	results := make([]int, 16)

	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = s.Count(context.Background(), schema.Query{ParentID: "a"})
		}()
	}
	wg.Wait()

	for i, n := range results {
		if n != 40 {
			t.Errorf("call %d: expected 40, got %d", i, n)
		}
	}
}

func TestFetchSortsAndProjects(t *testing.T) {

	s := openMemory(t)
	insertNumbered(t, s, "a", 30)

	ctx := context.Background()

	req := window.FetchRequest{
		Query:   schema.Query{ParentID: "a", SortKey: "qty", SortOrder: schema.Desc},
		Range:   schema.FetchRange{Skip: 5, Take: 3},
		Columns: []string{"qty", "name", "missing"},
	}

	records, err := s.Fetch(ctx, req)
	if err != nil {
		t.Fatalf("fetch failed: %s", err.Error())
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	first := records[0]
	if first.ID != "r024" || first.Values[0] != int64(240) || first.Values[1] != "item-024" || first.Values[2] != nil {
		t.Errorf("unexpected first record %s", spew.Sdump(first))
	}
}

func TestFetchPastEndIsShort(t *testing.T) {

	s := openMemory(t)
	insertNumbered(t, s, "a", 10)

	records, err := s.Fetch(context.Background(), window.FetchRequest{
		Query:   schema.Query{ParentID: "a", SortKey: "name"},
		Range:   schema.FetchRange{Skip: 8, Take: 25},
		Columns: []string{"name"},
	})

	if err != nil {
		t.Fatalf("fetch failed: %s", err.Error())
	} else if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}

func TestFetchRejectsInjectedSortKey(t *testing.T) {

	s := openMemory(t)

	_, err := s.Fetch(context.Background(), window.FetchRequest{
		Query:   schema.Query{ParentID: "a", SortKey: "name') DESC; DROP TABLE child_rows; --"},
		Range:   schema.FetchRange{Skip: 0, Take: 1},
		Columns: []string{"name"},
	})

	if !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestLayoutRoundTrip(t *testing.T) {

	s := openMemory(t)
	ctx := context.Background()
	layouts := s.Layouts()

	empty, err := layouts.Load(ctx, "a")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no layout, got %v (%v)", empty, err)
	}

	cols := DemoColumns()
	cols[2].Width = 340

	if err := layouts.Save(ctx, "a", cols); err != nil {
		t.Fatalf("save failed: %s", err.Error())
	}
	// last write wins
	if err := layouts.Save(ctx, "a", cols[:3]); err != nil {
		t.Fatalf("second save failed: %s", err.Error())
	}

	loaded, err := layouts.Load(ctx, "a")
	if err != nil {
		t.Fatalf("load failed: %s", err.Error())
	}

	if len(loaded) != 3 {
		t.Fatalf("expected 3 columns, got %s", spew.Sdump(loaded))
	} else if loaded[2].Width != 340 || loaded[2].Type != schema.IntegerColumn {
		t.Errorf("column not restored: %s", spew.Sdump(loaded[2]))
	}
}

func TestCellSaveUpdatesDocument(t *testing.T) {

	s := openMemory(t)
	insertNumbered(t, s, "a", 3)

	ctx := context.Background()
	cells := s.Cells()

	if err := cells.Save(ctx, "r001", "qty", int64(77)); err != nil {
		t.Fatalf("cell save failed: %s", err.Error())
	}

	records, _ := s.Fetch(ctx, window.FetchRequest{
		Query:   schema.Query{ParentID: "a"},
		Range:   schema.FetchRange{Skip: 1, Take: 1},
		Columns: []string{"qty"},
	})

	if len(records) != 1 || records[0].Values[0] != int64(77) {
		t.Errorf("unexpected record after save %s", spew.Sdump(records))
	}

	if err := cells.Save(ctx, "nope", "qty", 1); !errors.Is(err, ErrRowNotFound) {
		t.Errorf("expected ErrRowNotFound, got %v", err)
	}
	if err := cells.Save(ctx, "r001", "bad key", 1); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestScrollOffsets(t *testing.T) {

	s := openMemory(t)
	ctx := context.Background()

	if off, err := s.LoadOffset(ctx, "a"); err != nil || off != 0 {
		t.Errorf("expected zero offset, got %v (%v)", off, err)
	}

	s.SaveOffset(ctx, "a", 1280)
	s.SaveOffset(ctx, "a", 2560)

	if off, _ := s.LoadOffset(ctx, "a"); off != 2560 {
		t.Errorf("expected 2560, got %v", off)
	}
}

func TestSeed(t *testing.T) {

	s := openMemory(t)
	ctx := context.Background()

	if err := s.Seed(ctx, "quote", 120, 7); err != nil {
		t.Fatalf("seed failed: %s", err.Error())
	}

	n, _ := s.Count(ctx, schema.Query{ParentID: "quote"})
	if n != 120 {
		t.Fatalf("expected 120 rows, got %d", n)
	}

	cols := DemoColumns()
	records, err := s.Fetch(ctx, window.FetchRequest{
		Query:   schema.Query{ParentID: "quote", SortKey: "sku"},
		Range:   schema.FetchRange{Skip: 0, Take: 1},
		Columns: schema.ColumnKeys(cols),
	})
	if err != nil || len(records) != 1 {
		t.Fatalf("fetch failed: %v", err)
	}

	if records[0].Values[0] != "SKU-000000" {
		t.Errorf("unexpected first sku %v", records[0].Values[0])
	}
	if _, ok := records[0].Values[2].(int64); !ok {
		t.Errorf("qty should decode as int64, got %T", records[0].Values[2])
	}
}
