package lowering

import (
	"math/big"

	"github.com/veristruct/structc/circuit"
)

// Assigner supplies the witness value of a cell during compute-function
// generation. Advice and fixed cells are both resolved through it; instance
// cells are function arguments and are never asked for.
type Assigner interface {
	Assign(col circuit.ColumnID, row int) (*big.Int, bool)
}

// WitnessMap is a map-backed Assigner.
type WitnessMap map[circuit.Cell]*big.Int

func (w WitnessMap) Assign(col circuit.ColumnID, row int) (*big.Int, bool) {
	v, ok := w[circuit.Cell{Col: col, Row: row}]
	return v, ok
}
