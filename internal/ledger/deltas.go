// Package ledger implements the balance engine: the incremental settlement
// algorithm that turns a transaction's payments and itemized usage into
// ledger and balance deltas, and the apply/revert protocol that merges those
// deltas into group state and subtracts them back out exactly on deletion.
package ledger

import "math"

// Deltas accumulates a single transaction's contribution to its group's
// ledger and balance matrix, one item at a time.
//
// Two views are kept. Ledger is the durable per-person net (paid minus used)
// that the accumulator later merges into the group ledger. credit is the
// working settlement state: it starts from the payments and is consumed as
// item debt is allocated against it, so each payer's money covers each
// consumer's usage at most once.
type Deltas struct {
	whoPaid   map[string]float64
	credit    map[string]float64
	totalUsed float64

	// Ledger maps Sub -> paid minus used for this transaction.
	Ledger map[string]float64

	// Balances holds the pairwise debt this transaction introduced.
	Balances Matrix
}

// NewDeltas starts a delta accumulation seeded with the transaction's
// payments: every payer begins with their contribution as available credit.
func NewDeltas(whoPaid map[string]float64) *Deltas {
	d := &Deltas{
		whoPaid:  make(map[string]float64, len(whoPaid)),
		credit:   make(map[string]float64, len(whoPaid)),
		Ledger:   make(map[string]float64, len(whoPaid)),
		Balances: NewMatrix(),
	}
	for p, amount := range whoPaid {
		d.whoPaid[p] += amount
		d.credit[p] += amount
		d.Ledger[p] += amount
	}
	return d
}

// AddItem charges itemCost to owedBy and settles the new debt against the
// payers' remaining credit. Items must be added in insertion order: the
// allocation is streaming, not a closed-form split, so which payer ends up
// owed by which consumer depends on the order lines arrive.
//
// A consumer's debt is matched against payers in a fixed (sorted) order. A
// payer whose credit covers the whole remaining debt absorbs all of it;
// otherwise the payer's remaining credit is transferred and the next payer is
// tried. owedBy never settles against themselves.
func (d *Deltas) AddItem(owedBy string, itemCost float64) {
	d.Ledger[owedBy] -= itemCost
	d.credit[owedBy] -= itemCost
	d.totalUsed += itemCost

	for _, p := range sortedKeys(d.whoPaid) {
		if p == owedBy {
			continue
		}
		used := d.credit[owedBy]
		if used >= 0 {
			break
		}
		paid := d.credit[p]
		if paid <= 0 {
			continue
		}
		if used+paid > 0 {
			// The payer still has unconsumed credit covering the whole
			// remaining debt: transfer the full debt.
			d.Balances.Add(p, owedBy, -used)
			d.credit[p] += used
			d.credit[owedBy] = 0
		} else {
			// The payer's credit is exhausted by this debt: transfer only the
			// remaining credit and move on to the next payer.
			d.Balances.Add(p, owedBy, paid)
			d.credit[owedBy] += paid
			d.credit[p] = 0
		}
	}
}

// Paid returns the total contributed across all payers.
func (d *Deltas) Paid() float64 {
	return Sum(d.whoPaid)
}

// Used returns the total item cost charged so far.
func (d *Deltas) Used() float64 {
	return d.totalUsed
}

// Balanced reports whether total paid equals total used, which is required
// before the transaction may commit.
func (d *Deltas) Balanced() bool {
	return math.Abs(d.Paid()-d.Used()) <= Tolerance
}
