package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abszero/smartledger/internal/models"
)

// CreateTransaction persists a committed transaction with its payments,
// items, and deltas.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if txn.DateCreated == 0 {
		txn.DateCreated = now
	}
	if txn.DateModified == 0 {
		txn.DateModified = now
	}
	if txn.DatePurchased == 0 {
		txn.DatePurchased = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (id, group_id, title, description, vendor, total_price,
		    created_by, modified_by, date_purchased, date_created, date_modified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.GroupID, txn.Title, txn.Description, txn.Vendor, txn.TotalPrice,
		txn.CreatedBy, txn.ModifiedBy, txn.DatePurchased, txn.DateCreated, txn.DateModified,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	for sub, amount := range txn.WhoPaid {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO transaction_payers (transaction_id, sub, amount) VALUES (?, ?, ?)",
			txn.ID, sub, amount); err != nil {
			return fmt.Errorf("failed to insert payer: %w", err)
		}
	}

	for i, item := range txn.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transaction_items (transaction_id, position, item_id, owed_by, quantity, item_cost)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			txn.ID, i, item.ItemID, item.OwedBy, item.Quantity, item.ItemCost); err != nil {
			return fmt.Errorf("failed to insert transaction item: %w", err)
		}
	}

	for sub, amount := range txn.LedgerDeltas {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO transaction_ledger_deltas (transaction_id, sub, amount) VALUES (?, ?, ?)",
			txn.ID, sub, amount); err != nil {
			return fmt.Errorf("failed to insert ledger delta: %w", err)
		}
	}

	for owedTo, row := range txn.BalanceDeltas {
		for owedBy, amount := range row {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO transaction_balance_deltas (transaction_id, owed_to, owed_by, amount) VALUES (?, ?, ?, ?)",
				txn.ID, owedTo, owedBy, amount); err != nil {
				return fmt.Errorf("failed to insert balance delta: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetTransaction retrieves a transaction by ID with its full state.
func (s *SQLiteStore) GetTransaction(ctx context.Context, txID string) (*models.Transaction, error) {
	txn := &models.Transaction{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, title, description, vendor, total_price,
		    created_by, modified_by, date_purchased, date_created, date_modified
		 FROM transactions WHERE id = ?`, txID,
	).Scan(&txn.ID, &txn.GroupID, &txn.Title, &txn.Description, &txn.Vendor, &txn.TotalPrice,
		&txn.CreatedBy, &txn.ModifiedBy, &txn.DatePurchased, &txn.DateCreated, &txn.DateModified)
	if err == sql.ErrNoRows {
		return nil, notFound("transaction", txID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	txn.WhoPaid = make(map[string]float64)
	payerRows, err := s.db.QueryContext(ctx,
		"SELECT sub, amount FROM transaction_payers WHERE transaction_id = ?", txID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payers: %w", err)
	}
	defer payerRows.Close()
	for payerRows.Next() {
		var sub string
		var amount float64
		if err := payerRows.Scan(&sub, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan payer: %w", err)
		}
		txn.WhoPaid[sub] = amount
	}
	if err := payerRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payers: %w", err)
	}

	itemRows, err := s.db.QueryContext(ctx,
		`SELECT item_id, owed_by, quantity, item_cost FROM transaction_items
		 WHERE transaction_id = ? ORDER BY position`, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var item models.TransactionItem
		if err := itemRows.Scan(&item.ItemID, &item.OwedBy, &item.Quantity, &item.ItemCost); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		txn.Items = append(txn.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	txn.LedgerDeltas = make(map[string]float64)
	ledgerRows, err := s.db.QueryContext(ctx,
		"SELECT sub, amount FROM transaction_ledger_deltas WHERE transaction_id = ?", txID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger deltas: %w", err)
	}
	defer ledgerRows.Close()
	for ledgerRows.Next() {
		var sub string
		var amount float64
		if err := ledgerRows.Scan(&sub, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan ledger delta: %w", err)
		}
		txn.LedgerDeltas[sub] = amount
	}
	if err := ledgerRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger deltas: %w", err)
	}

	txn.BalanceDeltas = make(map[string]map[string]float64)
	balRows, err := s.db.QueryContext(ctx,
		"SELECT owed_to, owed_by, amount FROM transaction_balance_deltas WHERE transaction_id = ?", txID)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance deltas: %w", err)
	}
	defer balRows.Close()
	for balRows.Next() {
		var owedTo, owedBy string
		var amount float64
		if err := balRows.Scan(&owedTo, &owedBy, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan balance delta: %w", err)
		}
		row, ok := txn.BalanceDeltas[owedTo]
		if !ok {
			row = make(map[string]float64)
			txn.BalanceDeltas[owedTo] = row
		}
		row[owedBy] = amount
	}
	if err := balRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance deltas: %w", err)
	}

	return txn, nil
}

// DeleteTransaction removes a transaction; dependent rows cascade.
func (s *SQLiteStore) DeleteTransaction(ctx context.Context, txID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", txID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("transaction", txID)
	}
	return nil
}
