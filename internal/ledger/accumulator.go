package ledger

import (
	"fmt"
	"math"

	"github.com/abszero/smartledger/internal/models"
)

// Apply merges a committed transaction's deltas into the group's ledger and
// balance matrix, creating keys at zero where absent. It returns a
// consistency error if the resulting balances are no longer antisymmetric;
// the group state must then be considered corrupt and not saved.
func Apply(g *models.Group, tx *models.Transaction) error {
	if err := accumulate(g, tx, 1); err != nil {
		return fmt.Errorf("apply transaction %s: %w", tx.ID, err)
	}
	return nil
}

// Revert is the exact inverse of Apply: it subtracts the transaction's deltas
// over the same key sets, so Revert(Apply(G, T)) reproduces G within float
// tolerance.
func Revert(g *models.Group, tx *models.Transaction) error {
	if err := accumulate(g, tx, -1); err != nil {
		return fmt.Errorf("revert transaction %s: %w", tx.ID, err)
	}
	return nil
}

func accumulate(g *models.Group, tx *models.Transaction, sign float64) error {
	if g.Ledger == nil {
		g.Ledger = make(map[string]float64)
	}
	if g.Balances == nil {
		g.Balances = make(map[string]map[string]float64)
	}

	for p, v := range tx.LedgerDeltas {
		g.Ledger[p] += sign * v
	}

	// The transaction's balance deltas already contain both mirrored cells of
	// every pair, so each cell is added directly rather than through
	// Matrix.Add, which would double the write.
	bal := Matrix(g.Balances)
	for a, row := range tx.BalanceDeltas {
		for b, v := range row {
			bal.cell(a)[b] += sign * v
		}
	}

	return bal.CheckAntisymmetry()
}

// Verify recomputes the group's monetary state from the stored deltas of the
// given transactions and checks it against the state the group carries.
// It returns a consistency error on any mismatch, antisymmetry violation, or
// nonzero ledger sum.
func Verify(g *models.Group, txs []*models.Transaction) error {
	fresh := &models.Group{ID: g.ID}
	for _, tx := range txs {
		if err := Apply(fresh, tx); err != nil {
			return err
		}
	}

	if err := Matrix(g.Balances).CheckAntisymmetry(); err != nil {
		return err
	}
	if s := Sum(g.Ledger); math.Abs(s) > Tolerance {
		return fmt.Errorf("%w: group %s ledger sums to %v, want 0", models.ErrConsistency, g.ID, s)
	}

	for p := range merged(fresh.Ledger, g.Ledger) {
		if math.Abs(fresh.Ledger[p]-g.Ledger[p]) > Tolerance {
			return fmt.Errorf("%w: group %s ledger[%s]=%v but transactions total %v",
				models.ErrConsistency, g.ID, p, g.Ledger[p], fresh.Ledger[p])
		}
	}

	stored := Matrix(g.Balances)
	recomputed := Matrix(fresh.Balances)
	for _, pair := range pairKeys(stored, recomputed) {
		if math.Abs(stored.Get(pair[0], pair[1])-recomputed.Get(pair[0], pair[1])) > Tolerance {
			return fmt.Errorf("%w: group %s balances[%s][%s]=%v but transactions total %v",
				models.ErrConsistency, g.ID, pair[0], pair[1],
				stored.Get(pair[0], pair[1]), recomputed.Get(pair[0], pair[1]))
		}
	}
	return nil
}

func merged(a, b map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

func pairKeys(ms ...Matrix) [][2]string {
	seen := make(map[[2]string]bool)
	var pairs [][2]string
	for _, m := range ms {
		for a, row := range m {
			for b := range row {
				key := [2]string{a, b}
				if !seen[key] {
					seen[key] = true
					pairs = append(pairs, key)
				}
			}
		}
	}
	return pairs
}
