// Package catalog manages the shared item catalog and its reference counts.
//
// Items are identified by the (name, description, unit price) key. Every
// transaction line referencing an item holds one reference; the item is
// removed from the catalog when its last reference is released.
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abszero/smartledger/internal/models"
	"github.com/abszero/smartledger/internal/storage"
)

// Catalog resolves transaction line items against the shared item store.
type Catalog struct {
	store  storage.Store
	logger *slog.Logger
}

// New creates a Catalog backed by the given store.
func New(store storage.Store, logger *slog.Logger) *Catalog {
	return &Catalog{store: store, logger: logger}
}

// ResolveOrCreate returns the catalog item for the given identity key,
// creating it with a usage count of one if it does not exist. When the item
// already exists its usage count is incremented instead.
func (c *Catalog) ResolveOrCreate(ctx context.Context, name, description string, unitPrice float64) (*models.Item, error) {
	if name == "" {
		return nil, fmt.Errorf("item name is required: %w", models.ErrValidation)
	}
	if unitPrice <= 0 {
		return nil, fmt.Errorf("item unit price must be positive, got %f: %w", unitPrice, models.ErrValidation)
	}

	// CreateItem takes the caller's reference as part of the upsert, so no
	// separate AddReference round-trip is needed here.
	item := &models.Item{
		Name:        name,
		Description: description,
		UnitPrice:   unitPrice,
	}
	if err := c.store.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to resolve item %q: %w", name, err)
	}
	return item, nil
}

// AddReference records one more transaction line holding the item.
func (c *Catalog) AddReference(ctx context.Context, itemID string) error {
	if err := c.store.AddItemReference(ctx, itemID); err != nil {
		return fmt.Errorf("failed to add item reference: %w", err)
	}
	return nil
}

// RemoveReference releases one reference, deleting the item when none remain.
func (c *Catalog) RemoveReference(ctx context.Context, itemID string) error {
	deleted, err := c.store.RemoveItemReference(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to remove item reference: %w", err)
	}
	if deleted {
		c.logger.Debug("removed unreferenced item", "item_id", itemID)
	}
	return nil
}

// Get retrieves a catalog item by id.
func (c *Catalog) Get(ctx context.Context, itemID string) (*models.Item, error) {
	item, err := c.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}
