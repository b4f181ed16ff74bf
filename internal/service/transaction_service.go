package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abszero/smartledger/internal/catalog"
	"github.com/abszero/smartledger/internal/ledger"
	"github.com/abszero/smartledger/internal/models"
	"github.com/abszero/smartledger/internal/storage"
)

// ItemInput is one itemized line of a transaction request. The line is
// resolved against the shared item catalog before the transaction commits.
type ItemInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	OwedBy      string  `json:"owed_by"`
}

// TransactionInput carries everything needed to commit a new transaction.
type TransactionInput struct {
	GroupID       string             `json:"group_id"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	Vendor        string             `json:"vendor"`
	WhoPaid       map[string]float64 `json:"who_paid"`
	Items         []ItemInput        `json:"items"`
	DatePurchased int64              `json:"date_purchased"`
}

// TransactionUpdate describes a partial edit. Nil fields keep the committed
// transaction's values; WhoPaid and Items replace wholesale when present.
type TransactionUpdate struct {
	Title         *string            `json:"title"`
	Description   *string            `json:"description"`
	Vendor        *string            `json:"vendor"`
	WhoPaid       map[string]float64 `json:"who_paid"`
	Items         []ItemInput        `json:"items"`
	DatePurchased *int64             `json:"date_purchased"`
}

// TransactionService is the transaction lifecycle controller. Every mutation
// runs under the owning group's lock so apply and revert never interleave.
type TransactionService struct {
	store   storage.Store
	catalog *catalog.Catalog
	locks   *GroupLocks
	metrics *Metrics
	logger  *slog.Logger
}

// NewTransactionService creates a TransactionService.
func NewTransactionService(store storage.Store, cat *catalog.Catalog, locks *GroupLocks, metrics *Metrics, logger *slog.Logger) *TransactionService {
	return &TransactionService{
		store:   store,
		catalog: cat,
		locks:   locks,
		metrics: metrics,
		logger:  logger,
	}
}

// Create validates, itemizes, and commits a new transaction, applying its
// deltas to the group. Any failure after catalog references were taken
// releases them again, so a failed create leaves no trace.
func (s *TransactionService) Create(ctx context.Context, requester string, input *TransactionInput) (*models.Transaction, error) {
	unlock := s.locks.Lock(input.GroupID)
	defer unlock()

	group, err := s.store.GetGroup(ctx, input.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group: %w", err)
	}
	if !group.HasMember(requester) {
		return nil, fmt.Errorf("person %s is not a member of group %s: %w", requester, group.ID, models.ErrUnauthorized)
	}
	if err := validateInput(group, input); err != nil {
		return nil, err
	}

	tx, err := s.commit(ctx, group, requester, requester, input)
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction committed",
		"transaction_id", tx.ID,
		"group_id", group.ID,
		"total", tx.TotalPrice,
	)
	s.metrics.TransactionsCommitted.Inc()
	return tx, nil
}

// Get retrieves a transaction, restricted to members of its group.
func (s *TransactionService) Get(ctx context.Context, requester, txID string) (*models.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	group, err := s.store.GetGroup(ctx, tx.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group: %w", err)
	}
	if !group.HasMember(requester) {
		return nil, fmt.Errorf("person %s is not a member of group %s: %w", requester, group.ID, models.ErrUnauthorized)
	}
	return tx, nil
}

// Update edits a committed transaction by reverting it and committing a
// replacement under a new id. Fields absent from the update carry over from
// the committed transaction; the replacement keeps the original creator and
// records the requester as modifier.
func (s *TransactionService) Update(ctx context.Context, requester, txID string, update *TransactionUpdate) (*models.Transaction, error) {
	old, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}

	unlock := s.locks.Lock(old.GroupID)
	defer unlock()

	// Reload under the lock so the revert sees current group state.
	old, err = s.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	group, err := s.store.GetGroup(ctx, old.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group: %w", err)
	}
	if err := authorizeModify(group, requester, old); err != nil {
		return nil, err
	}

	input, err := s.carryOver(ctx, old, update)
	if err != nil {
		return nil, err
	}
	if err := validateInput(group, input); err != nil {
		return nil, err
	}

	if err := s.remove(ctx, group, old); err != nil {
		return nil, err
	}

	tx, err := s.commit(ctx, group, old.CreatedBy, requester, input)
	if err != nil {
		// The old transaction is already gone; surface the failure rather
		// than guessing at a re-commit of stale state.
		s.logger.Error("update failed after revert", "transaction_id", txID, "error", err)
		return nil, err
	}

	s.logger.Info("transaction replaced",
		"old_transaction_id", txID,
		"transaction_id", tx.ID,
		"group_id", group.ID,
	)
	s.metrics.TransactionsCommitted.Inc()
	return tx, nil
}

// Delete reverts a transaction's deltas, removes it, and releases its item
// references, subject to the group's delete authorization flags.
func (s *TransactionService) Delete(ctx context.Context, requester, txID string) error {
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return fmt.Errorf("failed to load transaction: %w", err)
	}

	unlock := s.locks.Lock(tx.GroupID)
	defer unlock()

	tx, err = s.store.GetTransaction(ctx, txID)
	if err != nil {
		return fmt.Errorf("failed to load transaction: %w", err)
	}
	group, err := s.store.GetGroup(ctx, tx.GroupID)
	if err != nil {
		return fmt.Errorf("failed to load group: %w", err)
	}
	if err := authorizeDelete(group, requester, tx); err != nil {
		return err
	}

	if err := s.remove(ctx, group, tx); err != nil {
		return err
	}

	s.logger.Info("transaction deleted",
		"transaction_id", txID,
		"group_id", group.ID,
		"requested_by", requester,
	)
	s.metrics.TransactionsReverted.Inc()
	return nil
}

// commit resolves the items, builds the deltas, persists the transaction,
// and applies it to the group. The caller holds the group lock.
func (s *TransactionService) commit(ctx context.Context, group *models.Group, createdBy, modifiedBy string, input *TransactionInput) (*models.Transaction, error) {
	deltas := ledger.NewDeltas(input.WhoPaid)

	var resolved []string
	unwind := func() {
		for _, itemID := range resolved {
			if err := s.catalog.RemoveReference(ctx, itemID); err != nil {
				s.logger.Error("failed to release item reference during unwind",
					"item_id", itemID, "error", err)
			}
		}
	}

	items := make([]models.TransactionItem, 0, len(input.Items))
	total := 0.0
	for _, line := range input.Items {
		item, err := s.catalog.ResolveOrCreate(ctx, line.Name, line.Description, line.UnitPrice)
		if err != nil {
			unwind()
			return nil, err
		}
		resolved = append(resolved, item.ID)

		cost := line.UnitPrice * float64(line.Quantity)
		deltas.AddItem(line.OwedBy, cost)
		items = append(items, models.TransactionItem{
			ItemID:   item.ID,
			OwedBy:   line.OwedBy,
			Quantity: line.Quantity,
			ItemCost: cost,
		})
		total += cost
	}

	if !deltas.Balanced() {
		unwind()
		return nil, fmt.Errorf("paid %v but items total %v: %w",
			deltas.Paid(), deltas.Used(), models.ErrValidation)
	}

	tx := &models.Transaction{
		GroupID:       group.ID,
		Title:         input.Title,
		Description:   input.Description,
		Vendor:        input.Vendor,
		WhoPaid:       input.WhoPaid,
		Items:         items,
		TotalPrice:    total,
		LedgerDeltas:  deltas.Ledger,
		BalanceDeltas: deltas.Balances,
		CreatedBy:     createdBy,
		ModifiedBy:    modifiedBy,
		DatePurchased: input.DatePurchased,
	}
	if tx.DatePurchased == 0 {
		tx.DatePurchased = time.Now().Unix()
	}

	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		unwind()
		return nil, fmt.Errorf("failed to persist transaction: %w", err)
	}

	if err := ledger.Apply(group, tx); err != nil {
		s.logger.Error("transaction deltas violate antisymmetry",
			"transaction_id", tx.ID, "group_id", group.ID, "error", err)
		if derr := s.store.DeleteTransaction(ctx, tx.ID); derr != nil {
			s.logger.Error("failed to remove transaction during unwind",
				"transaction_id", tx.ID, "error", derr)
		}
		unwind()
		return nil, err
	}

	group.Transactions = append(group.Transactions, tx.ID)
	if err := s.store.UpdateGroup(ctx, group); err != nil {
		if derr := s.store.DeleteTransaction(ctx, tx.ID); derr != nil {
			s.logger.Error("failed to remove transaction during unwind",
				"transaction_id", tx.ID, "error", derr)
		}
		unwind()
		return nil, fmt.Errorf("failed to save group: %w", err)
	}
	return tx, nil
}

// remove reverts the transaction's deltas, deletes its record, updates the
// group, and releases its item references. The caller holds the group lock.
func (s *TransactionService) remove(ctx context.Context, group *models.Group, tx *models.Transaction) error {
	if err := ledger.Revert(group, tx); err != nil {
		s.logger.Error("revert produced inconsistent balances",
			"transaction_id", tx.ID, "group_id", group.ID, "error", err)
		return err
	}

	if err := s.store.DeleteTransaction(ctx, tx.ID); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	group.RemoveTransaction(tx.ID)
	if err := s.store.UpdateGroup(ctx, group); err != nil {
		return fmt.Errorf("failed to save group: %w", err)
	}

	for _, line := range tx.Items {
		if err := s.catalog.RemoveReference(ctx, line.ItemID); err != nil {
			s.logger.Error("failed to release item reference",
				"item_id", line.ItemID, "transaction_id", tx.ID, "error", err)
		}
	}
	return nil
}

// carryOver builds a full TransactionInput from a committed transaction and a
// partial update. Item lines not replaced by the update are rebuilt from the
// catalog records the committed transaction references.
func (s *TransactionService) carryOver(ctx context.Context, old *models.Transaction, update *TransactionUpdate) (*TransactionInput, error) {
	input := &TransactionInput{
		GroupID:       old.GroupID,
		Title:         old.Title,
		Description:   old.Description,
		Vendor:        old.Vendor,
		WhoPaid:       old.WhoPaid,
		DatePurchased: old.DatePurchased,
	}
	if update.Title != nil {
		input.Title = *update.Title
	}
	if update.Description != nil {
		input.Description = *update.Description
	}
	if update.Vendor != nil {
		input.Vendor = *update.Vendor
	}
	if update.WhoPaid != nil {
		input.WhoPaid = update.WhoPaid
	}
	if update.DatePurchased != nil {
		input.DatePurchased = *update.DatePurchased
	}

	if update.Items != nil {
		input.Items = update.Items
		return input, nil
	}

	// Rebuild the item lines before the old transaction's references are
	// released, while the catalog records still exist.
	input.Items = make([]ItemInput, 0, len(old.Items))
	for _, line := range old.Items {
		item, err := s.catalog.Get(ctx, line.ItemID)
		if err != nil {
			return nil, fmt.Errorf("failed to load item %s for carry-over: %w", line.ItemID, err)
		}
		input.Items = append(input.Items, ItemInput{
			Name:        item.Name,
			Description: item.Description,
			UnitPrice:   item.UnitPrice,
			Quantity:    line.Quantity,
			OwedBy:      line.OwedBy,
		})
	}
	return input, nil
}

// validateInput checks the structural and membership requirements of a
// transaction request.
func validateInput(group *models.Group, input *TransactionInput) error {
	if len(input.WhoPaid) == 0 {
		return fmt.Errorf("at least one payer is required: %w", models.ErrValidation)
	}
	if len(input.Items) == 0 {
		return fmt.Errorf("at least one item is required: %w", models.ErrValidation)
	}
	for p, amount := range input.WhoPaid {
		if amount <= 0 {
			return fmt.Errorf("payment by %s must be positive, got %v: %w", p, amount, models.ErrValidation)
		}
		if !group.HasMember(p) {
			return fmt.Errorf("payer %s is not a member of group %s: %w", p, group.ID, models.ErrValidation)
		}
	}
	for i, line := range input.Items {
		if line.Quantity < 1 {
			return fmt.Errorf("item %d quantity must be at least 1: %w", i, models.ErrValidation)
		}
		if !group.HasMember(line.OwedBy) {
			return fmt.Errorf("item %d charged to non-member %s: %w", i, line.OwedBy, models.ErrValidation)
		}
	}
	return nil
}

// authorizeDelete applies the group's delete flags in precedence order:
// admin overrule, then any-member delete, then owner-only delete.
func authorizeDelete(group *models.Group, requester string, tx *models.Transaction) error {
	switch {
	case group.Settings.AdminOverruleDeleteTransaction && requester == group.Admin:
		return nil
	case group.Settings.UserDeleteTransaction && group.HasMember(requester):
		return nil
	case group.Settings.OnlyOwnerDeleteTransaction && requester == tx.CreatedBy:
		return nil
	}
	return fmt.Errorf("person %s may not delete transaction %s: %w", requester, tx.ID, models.ErrUnauthorized)
}

// authorizeModify applies the group's modify flags: admin overrule, then
// owner modification when the owner-modify flag is on. With both flags off
// nobody may edit.
func authorizeModify(group *models.Group, requester string, tx *models.Transaction) error {
	switch {
	case group.Settings.AdminOverruleModifyTransaction && requester == group.Admin:
		return nil
	case group.Settings.OnlyOwnerModifyTransaction && requester == tx.CreatedBy && group.HasMember(requester):
		return nil
	}
	return fmt.Errorf("person %s may not modify transaction %s: %w", requester, tx.ID, models.ErrUnauthorized)
}
