package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/dot5enko/virtual-grid/schema"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var demoCategories = []string{"hardware", "software", "service", "license", "support"}

// DemoColumns describes the documents written by Seed.
func DemoColumns() []schema.Column {
	return []schema.Column{
		{ID: "col_sku", Key: "sku", Label: "SKU", Type: schema.TextColumn, Width: 110, OrderPriority: 0},
		{ID: "col_name", Key: "name", Label: "Item", Type: schema.TextColumn, Width: 220, OrderPriority: 1},
		{ID: "col_qty", Key: "qty", Label: "Qty", Type: schema.IntegerColumn, Width: 70, OrderPriority: 2},
		{ID: "col_price", Key: "price", Label: "Unit price", Type: schema.DecimalColumn, Width: 110, OrderPriority: 3},
		{ID: "col_delivery", Key: "delivery", Label: "Delivery", Type: schema.DateColumn, Width: 110, OrderPriority: 4},
		{ID: "col_category", Key: "category", Label: "Category", Type: schema.LookupRefColumn, Width: 110, OrderPriority: 5},
		{ID: "col_owner", Key: "owner", Label: "Owner", Type: schema.UserRefColumn, Width: 300, OrderPriority: 6},
		{ID: "col_image", Key: "image", Label: "Image", Type: schema.ImageURLColumn, Width: 260, OrderPriority: 7, Hidden: true},
	}
}

// Seed inserts n generated child rows under parentID in one transaction.
// The same seed value yields the same cell values; row ids are fresh.
func (s *Store) Seed(ctx context.Context, parentID string, n int, seed uint64) error {

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	owners := make([]string, 8)
	for i := range owners {
		owners[i] = uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("owner-%d", i))).String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin seed: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO child_rows (id, parent_id, data) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("unable to prepare seed: %w", err)
	}
	defer stmt.Close()

	for i := range n {

		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("unable to generate row id: %w", err)
		}

		price := decimal.NewFromInt(rng.Int64N(500000)).Shift(-2)

		doc := map[string]any{
			"sku":      fmt.Sprintf("SKU-%06d", i),
			"name":     fmt.Sprintf("%s item %d", demoCategories[i%len(demoCategories)], rng.IntN(10000)),
			"qty":      rng.IntN(500) + 1,
			"price":    price.StringFixed(2),
			"delivery": base.AddDate(0, 0, rng.IntN(365)).Format("2006-01-02"),
			"category": demoCategories[rng.IntN(len(demoCategories))],
			"owner":    owners[rng.IntN(len(owners))],
			"image":    fmt.Sprintf("https://img.example.com/sku/%06d.png", i),
		}

		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("unable to encode seed row: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, id.String(), parentID, string(data)); err != nil {
			return fmt.Errorf("unable to insert seed row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("unable to commit seed: %w", err)
	}

	s.logger.Info("seeded rows", "parent_id", parentID, "rows", n)

	return nil
}
