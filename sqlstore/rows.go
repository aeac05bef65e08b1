package sqlstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dot5enko/virtual-grid/schema"
	"github.com/dot5enko/virtual-grid/window"
)

// Fetch returns one page of the query, values projected onto req.Columns.
func (s *Store) Fetch(ctx context.Context, req window.FetchRequest) ([]schema.RowRecord, error) {

	if req.Range.Take == 0 {
		return []schema.RowRecord{}, nil
	}
	if !req.Range.Valid() {
		return nil, fmt.Errorf("invalid range %s", req.Range.String())
	}

	order := "id ASC"
	args := []any{req.Query.ParentID}

	if req.Query.SortKey != "" {
		path, err := jsonPath(req.Query.SortKey)
		if err != nil {
			return nil, err
		}

		dir := "ASC"
		if req.Query.SortOrder == schema.Desc {
			dir = "DESC"
		}

		order = "json_extract(data, ?) " + dir + ", id " + dir
		args = append(args, path)
	}

	args = append(args, req.Range.Take, req.Range.Skip)

	query := "SELECT id, data FROM child_rows WHERE parent_id = ? ORDER BY " + order + " LIMIT ? OFFSET ?"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch %s: %w", req.Range.String(), err)
	}
	defer rows.Close()

	out := make([]schema.RowRecord, 0, req.Range.Take)

	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("unable to scan row: %w", err)
		}

		doc, err := decodeDoc(data)
		if err != nil {
			return nil, fmt.Errorf("unable to decode row %s: %w", id, err)
		}

		values := make([]any, len(req.Columns))
		for i, key := range req.Columns {
			values[i] = doc[key]
		}

		out = append(out, schema.RowRecord{ID: id, Values: values})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to fetch %s: %w", req.Range.String(), err)
	}

	return out, nil
}

// decodeDoc keeps integral JSON numbers as int64.
func decodeDoc(data []byte) (map[string]any, error) {

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	doc := map[string]any{}
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	for k, v := range doc {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		if i, err := n.Int64(); err == nil {
			doc[k] = i
		} else if f, err := strconv.ParseFloat(n.String(), 64); err == nil {
			doc[k] = f
		}
	}

	return doc, nil
}

// Count reports the number of child rows of the parent. Concurrent calls for
// the same parent share one query.
func (s *Store) Count(ctx context.Context, q schema.Query) (int, error) {

	v, err, shared := s.counts.Do(q.ParentID, func() (any, error) {
		var n int
		row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM child_rows WHERE parent_id = ?", q.ParentID)
		if err := row.Scan(&n); err != nil {
			return 0, fmt.Errorf("unable to count rows of %s: %w", q.ParentID, err)
		}
		return n, nil
	})
	if err != nil {
		return 0, err
	}

	if shared {
		s.logger.Debug("row count shared", "parent_id", q.ParentID)
	}

	return v.(int), nil
}

// Insert adds one child row.
func (s *Store) Insert(ctx context.Context, parentID, id string, doc map[string]any) error {

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("unable to encode row %s: %w", id, err)
	}

	_, err = s.db.ExecContext(ctx, "INSERT INTO child_rows (id, parent_id, data) VALUES (?, ?, ?)", id, parentID, string(data))
	if err != nil {
		return fmt.Errorf("unable to insert row %s: %w", id, err)
	}
	return nil
}
