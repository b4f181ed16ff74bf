package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/abszero/smartledger/internal/models"
)

// CreatePerson persists a new person to the database, including any group
// and invite memberships already on the record.
func (s *SQLiteStore) CreatePerson(ctx context.Context, person *models.Person) error {
	if person.CreatedAt == 0 {
		person.CreatedAt = time.Now().Unix()
	}
	if person.UpdatedAt == 0 {
		person.UpdatedAt = person.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO people (sub, first_name, last_name, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		person.Sub, person.FirstName, person.LastName, person.Email,
		person.PasswordHash, person.CreatedAt, person.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert person: %w", err)
	}

	if err := writePersonChildren(ctx, tx, person); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPerson retrieves a person by Sub.
func (s *SQLiteStore) GetPerson(ctx context.Context, sub string) (*models.Person, error) {
	return s.getPerson(ctx, "sub = ?", sub)
}

// GetPersonByEmail retrieves a person by email.
func (s *SQLiteStore) GetPersonByEmail(ctx context.Context, email string) (*models.Person, error) {
	return s.getPerson(ctx, "email = ?", email)
}

func (s *SQLiteStore) getPerson(ctx context.Context, where string, arg string) (*models.Person, error) {
	person := &models.Person{}
	err := s.db.QueryRowContext(ctx,
		`SELECT sub, first_name, last_name, email, password_hash, created_at, updated_at
		 FROM people WHERE `+where, arg,
	).Scan(&person.Sub, &person.FirstName, &person.LastName, &person.Email,
		&person.PasswordHash, &person.CreatedAt, &person.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, notFound("person", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}

	person.Groups, err = s.personList(ctx, "person_groups", person.Sub)
	if err != nil {
		return nil, err
	}
	person.Invites, err = s.personList(ctx, "person_invites", person.Sub)
	if err != nil {
		return nil, err
	}
	return person, nil
}

func (s *SQLiteStore) personList(ctx context.Context, table, sub string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT group_id FROM "+table+" WHERE sub = ? ORDER BY group_id", sub)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdatePerson replaces the person's stored state, including group and invite lists.
func (s *SQLiteStore) UpdatePerson(ctx context.Context, person *models.Person) error {
	person.UpdatedAt = time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE people SET first_name = ?, last_name = ?, email = ?, password_hash = ?, updated_at = ?
		 WHERE sub = ?`,
		person.FirstName, person.LastName, person.Email, person.PasswordHash,
		person.UpdatedAt, person.Sub,
	)
	if err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("person", person.Sub)
	}

	for table := range personChildTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE sub = ?", person.Sub); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := writePersonChildren(ctx, tx, person); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var personChildTables = map[string]func(*models.Person) []string{
	"person_groups":  func(p *models.Person) []string { return p.Groups },
	"person_invites": func(p *models.Person) []string { return p.Invites },
}

func writePersonChildren(ctx context.Context, tx *sql.Tx, person *models.Person) error {
	for table, ids := range personChildTables {
		for _, id := range ids(person) {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO "+table+" (sub, group_id) VALUES (?, ?)", person.Sub, id); err != nil {
				return fmt.Errorf("failed to insert into %s: %w", table, err)
			}
		}
	}
	return nil
}
