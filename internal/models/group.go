package models

// GroupSettings holds the boolean authorization flags evaluated when members
// try to modify or delete transactions, or invite new people.
// All flags default to true for a newly created group.
type GroupSettings struct {
	// OnlyAdminInvite restricts sending invites to the group admin.
	OnlyAdminInvite bool

	// OnlyOwnerModifyTransaction allows the creator of a transaction to modify it.
	OnlyOwnerModifyTransaction bool

	// AdminOverruleModifyTransaction lets the admin modify any transaction.
	AdminOverruleModifyTransaction bool

	// UserDeleteTransaction lets any member delete any transaction.
	UserDeleteTransaction bool

	// OnlyOwnerDeleteTransaction allows the creator of a transaction to delete it.
	OnlyOwnerDeleteTransaction bool

	// AdminOverruleDeleteTransaction lets the admin delete any transaction.
	AdminOverruleDeleteTransaction bool

	// OnlyAdminRemoveMember restricts removing other members to the group
	// admin. Members may always remove themselves.
	OnlyAdminRemoveMember bool
}

// DefaultGroupSettings mirrors the defaults applied when a group is created.
func DefaultGroupSettings() GroupSettings {
	return GroupSettings{
		OnlyAdminInvite:                true,
		OnlyOwnerModifyTransaction:     true,
		AdminOverruleModifyTransaction: true,
		UserDeleteTransaction:          true,
		OnlyOwnerDeleteTransaction:     true,
		AdminOverruleDeleteTransaction: true,
		OnlyAdminRemoveMember:          true,
	}
}

// Group represents a set of people sharing expenses.
//
// Ledger and Balances are the group's accumulated monetary state. They are
// written exclusively through ledger.Apply and ledger.Revert; handlers and
// services treat them as read-only.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	Name        string
	Description string

	// Admin is the Sub of the group administrator.
	Admin string

	// Members is the set of Subs belonging to the group.
	Members []string

	// Invites is the list of email addresses invited to join.
	Invites []string

	Settings GroupSettings

	// Ledger maps Sub -> cumulative net contribution (total paid minus total
	// used) across all of the group's transactions. Missing keys read as zero.
	Ledger map[string]float64

	// Balances maps Sub -> Sub -> signed amount: Balances[a][b] is how much a
	// is owed by b. Antisymmetric: Balances[a][b] == -Balances[b][a].
	Balances map[string]map[string]float64

	// Transactions is the ordered list of transaction ids committed to the group.
	Transactions []string

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// HasMember reports whether sub belongs to the group.
func (g *Group) HasMember(sub string) bool {
	for _, m := range g.Members {
		if m == sub {
			return true
		}
	}
	return false
}

// HasInvite reports whether email has a pending invite.
func (g *Group) HasInvite(email string) bool {
	for _, e := range g.Invites {
		if e == email {
			return true
		}
	}
	return false
}

// HasTransaction reports whether the transaction id is committed to the group.
func (g *Group) HasTransaction(id string) bool {
	for _, t := range g.Transactions {
		if t == id {
			return true
		}
	}
	return false
}

// RemoveTransaction deletes the transaction id from the ordered list.
func (g *Group) RemoveTransaction(id string) {
	for i, t := range g.Transactions {
		if t == id {
			g.Transactions = append(g.Transactions[:i], g.Transactions[i+1:]...)
			return
		}
	}
}

// RemoveInvite deletes a pending invite, if present.
func (g *Group) RemoveInvite(email string) {
	for i, e := range g.Invites {
		if e == email {
			g.Invites = append(g.Invites[:i], g.Invites[i+1:]...)
			return
		}
	}
}

// RemoveMember deletes sub from the member set, if present.
func (g *Group) RemoveMember(sub string) {
	for i, m := range g.Members {
		if m == sub {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			return
		}
	}
}
