package models

// Item is a deduplicated catalog entry for a priced line item.
//
// Identity is the (Name, Description, UnitPrice) triple; no two items with the
// same triple coexist. Once referenced, an item is never mutated except for
// UsageCount, and it is deleted when UsageCount drops to zero.
type Item struct {
	// ID is the unique identifier for the item (UUID format).
	ID string

	Name        string
	Description string

	// UnitPrice is the price per unit, always > 0.
	UnitPrice float64

	// UsageCount is the number of live transaction-item references.
	UsageCount int
}
