package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/abszero/smartledger/internal/models"
)

// GetItem retrieves a catalog item by ID.
func (s *SQLiteStore) GetItem(ctx context.Context, itemID string) (*models.Item, error) {
	item := &models.Item{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, unit_price, usage_count FROM items WHERE id = ?",
		itemID,
	).Scan(&item.ID, &item.Name, &item.Description, &item.UnitPrice, &item.UsageCount)
	if err == sql.ErrNoRows {
		return nil, notFound("item", itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// FindItem looks up a catalog item by its (name, description, unit_price)
// identity key.
func (s *SQLiteStore) FindItem(ctx context.Context, name, description string, unitPrice float64) (*models.Item, error) {
	item := &models.Item{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, unit_price, usage_count FROM items
		 WHERE name = ? AND description = ? AND unit_price = ?`,
		name, description, unitPrice,
	).Scan(&item.ID, &item.Name, &item.Description, &item.UnitPrice, &item.UsageCount)
	if err == sql.ErrNoRows {
		return nil, notFound("item", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find item: %w", err)
	}
	return item, nil
}

// CreateItem resolves the catalog row for the item's identity key, inserting
// it with a single reference or incrementing the existing row's usage count.
// Concurrent creates for the same key converge on one record via the unique
// constraint. The item is updated in place with the canonical id and count.
func (s *SQLiteStore) CreateItem(ctx context.Context, item *models.Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (id, name, description, unit_price, usage_count)
		 VALUES (?, ?, ?, ?, 1)
		 ON CONFLICT (name, description, unit_price)
		 DO UPDATE SET usage_count = usage_count + 1`,
		item.ID, item.Name, item.Description, item.UnitPrice,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}

	// Another writer may have won the insert; read the canonical row back.
	existing, err := s.FindItem(ctx, item.Name, item.Description, item.UnitPrice)
	if err != nil {
		return err
	}
	*item = *existing
	return nil
}

// AddItemReference atomically increments the item's usage count.
func (s *SQLiteStore) AddItemReference(ctx context.Context, itemID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET usage_count = usage_count + 1 WHERE id = ?", itemID)
	if err != nil {
		return fmt.Errorf("failed to increment usage count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("item", itemID)
	}
	return nil
}

// RemoveItemReference atomically decrements the item's usage count and
// deletes the item once no references remain.
func (s *SQLiteStore) RemoveItemReference(ctx context.Context, itemID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE items SET usage_count = usage_count - 1 WHERE id = ?", itemID)
	if err != nil {
		return false, fmt.Errorf("failed to decrement usage count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, notFound("item", itemID)
	}

	res, err = tx.ExecContext(ctx,
		"DELETE FROM items WHERE id = ? AND usage_count <= 0", itemID)
	if err != nil {
		return false, fmt.Errorf("failed to delete unreferenced item: %w", err)
	}
	deleted, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return deleted > 0, nil
}
