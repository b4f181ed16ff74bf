package ledger

import (
	"fmt"
	"math"
	"sort"

	"github.com/abszero/smartledger/internal/models"
)

// Tolerance is the floating-point slack allowed when comparing accumulated
// amounts. Deltas are added and subtracted in matching pairs, so any drift
// beyond this is a bug, not rounding.
const Tolerance = 1e-9

// Matrix is a pairwise antisymmetric amount table: m[a][b] is how much a is
// owed by b, and m[a][b] == -m[b][a] always holds for values written through
// Add. Missing cells read as zero.
type Matrix map[string]map[string]float64

// NewMatrix returns an empty matrix.
func NewMatrix() Matrix {
	return make(Matrix)
}

// Get returns m[a][b], defaulting to zero for missing keys.
func (m Matrix) Get(a, b string) float64 {
	return m[a][b]
}

// Add records that b owes a an additional amount, mirroring the negated value
// on the transposed cell in the same call so antisymmetry holds by
// construction.
func (m Matrix) Add(a, b string, amount float64) {
	m.cell(a)[b] += amount
	m.cell(b)[a] -= amount
}

func (m Matrix) cell(key string) map[string]float64 {
	row, ok := m[key]
	if !ok {
		row = make(map[string]float64)
		m[key] = row
	}
	return row
}

// Clone returns a deep copy of the matrix.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for a, row := range m {
		cp := make(map[string]float64, len(row))
		for b, v := range row {
			cp[b] = v
		}
		out[a] = cp
	}
	return out
}

// CheckAntisymmetry verifies m[a][b] == -m[b][a] for every recorded pair.
// A violation is a programming bug and is reported as a consistency error.
func (m Matrix) CheckAntisymmetry() error {
	for a, row := range m {
		for b, v := range row {
			if math.Abs(v+m.Get(b, a)) > Tolerance {
				return fmt.Errorf("%w: balances[%s][%s]=%v but balances[%s][%s]=%v",
					models.ErrConsistency, a, b, v, b, a, m.Get(b, a))
			}
		}
	}
	return nil
}

// Sum returns the total of all values in a person->amount map.
func Sum(amounts map[string]float64) float64 {
	var total float64
	for _, v := range amounts {
		total += v
	}
	return total
}

// sortedKeys returns the keys of a person->amount map in a fixed order, so
// settlement results do not depend on map iteration order.
func sortedKeys(amounts map[string]float64) []string {
	keys := make([]string, 0, len(amounts))
	for k := range amounts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
