package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dot5enko/virtual-grid/schema"
)

type LayoutStore struct {
	db *sql.DB
}

// Save replaces the stored column configuration of the parent.
func (l *LayoutStore) Save(ctx context.Context, parentID string, cols []schema.Column) error {

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin layout save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM column_layouts WHERE parent_id = ?", parentID); err != nil {
		return fmt.Errorf("unable to clear layout of %s: %w", parentID, err)
	}

	for _, c := range cols {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO column_layouts (parent_id, column_id, column_key, label, column_type, width, order_priority, hidden)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			parentID, c.ID, c.Key, c.Label, c.Type.String(), c.Width, c.OrderPriority, c.Hidden,
		)
		if err != nil {
			return fmt.Errorf("unable to save column %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

func (l *LayoutStore) Load(ctx context.Context, parentID string) ([]schema.Column, error) {

	rows, err := l.db.QueryContext(ctx,
		`SELECT column_id, column_key, label, column_type, width, order_priority, hidden
		FROM column_layouts WHERE parent_id = ? ORDER BY order_priority, column_id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("unable to load layout of %s: %w", parentID, err)
	}
	defer rows.Close()

	out := []schema.Column{}

	for rows.Next() {
		var (
			c   schema.Column
			typ string
		)
		if err := rows.Scan(&c.ID, &c.Key, &c.Label, &typ, &c.Width, &c.OrderPriority, &c.Hidden); err != nil {
			return nil, fmt.Errorf("unable to scan column: %w", err)
		}

		c.Type, err = schema.ParseColumnType(typ)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.ID, err)
		}

		out = append(out, c)
	}

	return out, rows.Err()
}

type CellStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Save writes a single cell value into the row document.
func (c *CellStore) Save(ctx context.Context, rowID, columnKey string, value any) error {

	path, err := jsonPath(columnKey)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("unable to encode value for %s: %w", columnKey, err)
	}

	res, err := c.db.ExecContext(ctx,
		"UPDATE child_rows SET data = json_set(data, ?, json(?)) WHERE id = ?",
		path, string(encoded), rowID,
	)
	if err != nil {
		return fmt.Errorf("unable to update %s.%s: %w", rowID, columnKey, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRowNotFound, rowID)
	}

	c.logger.Debug("cell saved", "row_id", rowID, "column", columnKey)

	return nil
}

// LoadOffset returns the saved scroll position, 0 when none was saved.
func (s *Store) LoadOffset(ctx context.Context, parentID string) (float64, error) {

	var offset float64

	err := s.db.QueryRowContext(ctx, "SELECT scroll_top FROM scroll_offsets WHERE parent_id = ?", parentID).Scan(&offset)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("unable to load scroll offset of %s: %w", parentID, err)
	}

	return offset, nil
}

func (s *Store) SaveOffset(ctx context.Context, parentID string, offset float64) error {

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scroll_offsets (parent_id, scroll_top, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(parent_id) DO UPDATE SET scroll_top = excluded.scroll_top, updated_at = excluded.updated_at`,
		parentID, offset, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("unable to save scroll offset of %s: %w", parentID, err)
	}
	return nil
}
