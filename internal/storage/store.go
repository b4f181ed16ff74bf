// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/abszero/smartledger/internal/models"
)

// Store defines the interface for persistence operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
//
// Writes are atomic at single-record granularity: saving a group persists its
// ledger, balances, members, and transaction list together or not at all. No
// cross-record transactions are assumed; the ledger apply/revert protocol
// substitutes for them.
//
// Lookups for missing records return an error wrapping models.ErrNotFound.
type Store interface {
	// CreatePerson persists a new person. The email must be unique.
	CreatePerson(ctx context.Context, person *models.Person) error

	// GetPerson retrieves a person by their Sub.
	GetPerson(ctx context.Context, sub string) (*models.Person, error)

	// GetPersonByEmail retrieves a person by email.
	GetPersonByEmail(ctx context.Context, email string) (*models.Person, error)

	// UpdatePerson replaces a person's stored state, including group and
	// invite lists.
	UpdatePerson(ctx context.Context, person *models.Person) error

	// CreateGroup persists a new group. The group.ID field will be populated
	// by the store if empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group by ID, including ledger, balances, members,
	// invites, settings, and the ordered transaction list.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// UpdateGroup atomically replaces the group's stored state.
	UpdateGroup(ctx context.Context, group *models.Group) error

	// DeleteGroup removes a group and its dependent rows.
	DeleteGroup(ctx context.Context, groupID string) error

	// ListGroupIDs returns the ids of all groups, for audit sweeps.
	ListGroupIDs(ctx context.Context) ([]string, error)

	// CreateTransaction persists a committed transaction with its deltas.
	CreateTransaction(ctx context.Context, tx *models.Transaction) error

	// GetTransaction retrieves a transaction by ID, including items, payments,
	// and deltas.
	GetTransaction(ctx context.Context, txID string) (*models.Transaction, error)

	// DeleteTransaction removes a transaction and its dependent rows.
	DeleteTransaction(ctx context.Context, txID string) error

	// GetItem retrieves a catalog item by ID.
	GetItem(ctx context.Context, itemID string) (*models.Item, error)

	// FindItem looks up a catalog item by its identity key.
	FindItem(ctx context.Context, name, description string, unitPrice float64) (*models.Item, error)

	// CreateItem resolves the catalog record for the item's identity key,
	// creating it with one reference or incrementing the existing record's
	// usage count. The (name, description, unit_price) key is unique;
	// concurrent creates for the same key converge to one record.
	CreateItem(ctx context.Context, item *models.Item) error

	// AddItemReference atomically increments an item's usage count.
	AddItemReference(ctx context.Context, itemID string) error

	// RemoveItemReference atomically decrements an item's usage count and
	// deletes the item when the count reaches zero. It reports whether the
	// item was deleted.
	RemoveItemReference(ctx context.Context, itemID string) (deleted bool, err error)

	// Close releases any resources held by the store.
	Close() error
}
