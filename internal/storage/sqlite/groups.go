package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abszero/smartledger/internal/models"
)

// CreateGroup persists a new group, including settings, members, invites, and
// monetary state.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	group.UpdatedAt = group.CreatedAt

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, description, admin,
		    only_admin_invite, only_owner_modify, admin_overrule_modify,
		    user_delete, only_owner_delete, admin_overrule_delete,
		    only_admin_remove, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.Description, group.Admin,
		group.Settings.OnlyAdminInvite, group.Settings.OnlyOwnerModifyTransaction,
		group.Settings.AdminOverruleModifyTransaction, group.Settings.UserDeleteTransaction,
		group.Settings.OnlyOwnerDeleteTransaction, group.Settings.AdminOverruleDeleteTransaction,
		group.Settings.OnlyAdminRemoveMember, group.CreatedAt, group.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if err := writeGroupChildren(ctx, tx, group); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID with its full state.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, admin,
		    only_admin_invite, only_owner_modify, admin_overrule_modify,
		    user_delete, only_owner_delete, admin_overrule_delete,
		    only_admin_remove, created_at, updated_at
		 FROM groups WHERE id = ?`, groupID,
	).Scan(&group.ID, &group.Name, &group.Description, &group.Admin,
		&group.Settings.OnlyAdminInvite, &group.Settings.OnlyOwnerModifyTransaction,
		&group.Settings.AdminOverruleModifyTransaction, &group.Settings.UserDeleteTransaction,
		&group.Settings.OnlyOwnerDeleteTransaction, &group.Settings.AdminOverruleDeleteTransaction,
		&group.Settings.OnlyAdminRemoveMember, &group.CreatedAt, &group.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, notFound("group", groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	if group.Members, err = s.stringList(ctx,
		"SELECT sub FROM group_members WHERE group_id = ? ORDER BY sub", groupID); err != nil {
		return nil, err
	}
	if group.Invites, err = s.stringList(ctx,
		"SELECT email FROM group_invites WHERE group_id = ? ORDER BY email", groupID); err != nil {
		return nil, err
	}
	if group.Transactions, err = s.stringList(ctx,
		"SELECT transaction_id FROM group_transactions WHERE group_id = ? ORDER BY position", groupID); err != nil {
		return nil, err
	}

	group.Ledger = make(map[string]float64)
	rows, err := s.db.QueryContext(ctx,
		"SELECT sub, amount FROM group_ledger WHERE group_id = ?", groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group ledger: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sub string
		var amount float64
		if err := rows.Scan(&sub, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		group.Ledger[sub] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger rows: %w", err)
	}

	group.Balances = make(map[string]map[string]float64)
	balRows, err := s.db.QueryContext(ctx,
		"SELECT owed_to, owed_by, amount FROM group_balances WHERE group_id = ?", groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group balances: %w", err)
	}
	defer balRows.Close()
	for balRows.Next() {
		var owedTo, owedBy string
		var amount float64
		if err := balRows.Scan(&owedTo, &owedBy, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan balance row: %w", err)
		}
		row, ok := group.Balances[owedTo]
		if !ok {
			row = make(map[string]float64)
			group.Balances[owedTo] = row
		}
		row[owedBy] = amount
	}
	if err := balRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance rows: %w", err)
	}

	return group, nil
}

// UpdateGroup atomically replaces the group's stored state.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, group *models.Group) error {
	group.UpdatedAt = time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE groups SET name = ?, description = ?, admin = ?,
		    only_admin_invite = ?, only_owner_modify = ?, admin_overrule_modify = ?,
		    user_delete = ?, only_owner_delete = ?, admin_overrule_delete = ?,
		    only_admin_remove = ?, updated_at = ?
		 WHERE id = ?`,
		group.Name, group.Description, group.Admin,
		group.Settings.OnlyAdminInvite, group.Settings.OnlyOwnerModifyTransaction,
		group.Settings.AdminOverruleModifyTransaction, group.Settings.UserDeleteTransaction,
		group.Settings.OnlyOwnerDeleteTransaction, group.Settings.AdminOverruleDeleteTransaction,
		group.Settings.OnlyAdminRemoveMember, group.UpdatedAt, group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("group", group.ID)
	}

	for _, table := range []string{"group_members", "group_invites", "group_ledger", "group_balances", "group_transactions"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE group_id = ?", group.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := writeGroupChildren(ctx, tx, group); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteGroup removes a group; dependent rows cascade.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("group", groupID)
	}
	return nil
}

// ListGroupIDs returns the ids of all groups.
func (s *SQLiteStore) ListGroupIDs(ctx context.Context) ([]string, error) {
	return s.stringList(ctx, "SELECT id FROM groups ORDER BY created_at", "")
}

func (s *SQLiteStore) stringList(ctx context.Context, query, arg string) ([]string, error) {
	var rows *sql.Rows
	var err error
	if arg == "" {
		rows, err = s.db.QueryContext(ctx, query)
	} else {
		rows, err = s.db.QueryContext(ctx, query, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query list: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan list row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// writeGroupChildren inserts the group's members, invites, ledger, balances,
// and ordered transaction list inside an existing database transaction.
func writeGroupChildren(ctx context.Context, tx *sql.Tx, group *models.Group) error {
	for _, sub := range group.Members {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO group_members (group_id, sub) VALUES (?, ?)", group.ID, sub); err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}
	for _, email := range group.Invites {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO group_invites (group_id, email) VALUES (?, ?)", group.ID, email); err != nil {
			return fmt.Errorf("failed to insert invite: %w", err)
		}
	}
	for sub, amount := range group.Ledger {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO group_ledger (group_id, sub, amount) VALUES (?, ?, ?)",
			group.ID, sub, amount); err != nil {
			return fmt.Errorf("failed to insert ledger row: %w", err)
		}
	}
	for owedTo, row := range group.Balances {
		for owedBy, amount := range row {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO group_balances (group_id, owed_to, owed_by, amount) VALUES (?, ?, ?, ?)",
				group.ID, owedTo, owedBy, amount); err != nil {
				return fmt.Errorf("failed to insert balance row: %w", err)
			}
		}
	}
	for i, txID := range group.Transactions {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO group_transactions (group_id, transaction_id, position) VALUES (?, ?, ?)",
			group.ID, txID, i); err != nil {
			return fmt.Errorf("failed to insert transaction link: %w", err)
		}
	}
	return nil
}
