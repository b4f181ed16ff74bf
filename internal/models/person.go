package models

import (
	"time"

	"github.com/google/uuid"
)

// Person represents a registered account.
//
// Every monetary structure in the system (ledger, balances, who_paid) is keyed
// by Sub, so a Person is never embedded anywhere, only referenced.
type Person struct {
	// Sub is the opaque identifier used as the key into ledgers and balances.
	Sub string

	FirstName string
	LastName  string

	// Email is unique and used for login and invites.
	Email string

	// PasswordHash is the bcrypt hash of the account password.
	PasswordHash string

	// Groups is the list of group ids this person belongs to.
	Groups []string

	// Invites is the list of group ids this person has been invited to.
	Invites []string

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// NewPerson creates a Person with a fresh Sub and timestamps.
func NewPerson(email, firstName, lastName, passwordHash string) *Person {
	now := time.Now().Unix()
	return &Person{
		Sub:          uuid.New().String(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// InGroup reports whether the person already belongs to the group.
func (p *Person) InGroup(groupID string) bool {
	for _, id := range p.Groups {
		if id == groupID {
			return true
		}
	}
	return false
}
