package models

// TransactionItem is one line of itemized usage: a reference to a catalog
// item, the person who used it, and the cost charged for it.
type TransactionItem struct {
	// ItemID references the deduplicated catalog Item.
	ItemID string

	// OwedBy is the Sub of the person this line is charged to.
	OwedBy string

	// Quantity is the number of units, always >= 1.
	Quantity int

	// ItemCost is unit_price * quantity, frozen at the time the line was added.
	ItemCost float64
}

// Transaction represents a single purchase shared by a group.
//
// WhoPaid records the money put in; Items records the money used. A
// transaction only commits when the two total to the same amount. The deltas
// it contributed to the group's ledger and balances are stored on the
// transaction itself so that deleting it can subtract them back out exactly.
type Transaction struct {
	// ID is the unique identifier for the transaction (UUID format).
	ID string

	// GroupID is the group this transaction belongs to.
	GroupID string

	Title       string
	Description string
	Vendor      string

	// WhoPaid maps Sub -> amount that person contributed.
	WhoPaid map[string]float64

	// Items is the ordered list of itemized usage. Order matters: the
	// settlement algorithm allocates debt against payer credit in the order
	// lines were added.
	Items []TransactionItem

	// TotalPrice is the sum of all item costs.
	TotalPrice float64

	// LedgerDeltas maps Sub -> this transaction's contribution to the group
	// ledger (paid minus used, for this transaction only).
	LedgerDeltas map[string]float64

	// BalanceDeltas maps Sub -> Sub -> this transaction's contribution to the
	// group balance matrix. Antisymmetric, like Group.Balances.
	BalanceDeltas map[string]map[string]float64

	// CreatedBy and ModifiedBy are Subs; the timestamps are Unix seconds.
	CreatedBy     string
	ModifiedBy    string
	DatePurchased int64
	DateCreated   int64
	DateModified  int64
}
