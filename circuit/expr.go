package circuit

import "math/big"

// ExprKind enumerates the operators allowed in a gate polynomial.
type ExprKind int

const (
	_ ExprKind = iota
	ExprConst
	ExprQuery
	ExprAdd
	ExprMul
	ExprNeg
)

// Expression is a symbolic polynomial over column queries at relative row
// offsets. Expressions are built once at gate declaration time and never
// mutated afterwards.
type Expression struct {
	Kind     ExprKind
	Value    *big.Int // ExprConst
	Col      ColumnID // ExprQuery
	Rotation int      // ExprQuery, relative row offset
	A, B     *Expression
}

// Const returns a field constant literal.
func Const(v *big.Int) *Expression {
	return &Expression{Kind: ExprConst, Value: new(big.Int).Set(v)}
}

// ConstInt64 is a convenience wrapper around Const.
func ConstInt64(v int64) *Expression {
	return &Expression{Kind: ExprConst, Value: big.NewInt(v)}
}

// Query references the cell of col at the gate's row plus rotation.
func Query(col ColumnID, rotation int) *Expression {
	return &Expression{Kind: ExprQuery, Col: col, Rotation: rotation}
}

func Add(a, b *Expression) *Expression {
	return &Expression{Kind: ExprAdd, A: a, B: b}
}

func Mul(a, b *Expression) *Expression {
	return &Expression{Kind: ExprMul, A: a, B: b}
}

func Neg(a *Expression) *Expression {
	return &Expression{Kind: ExprNeg, A: a}
}

// Columns appends every column queried by e to dst, in visit order.
func (e *Expression) Columns(dst []ColumnID) []ColumnID {
	if e == nil {
		return dst
	}
	if e.Kind == ExprQuery {
		dst = append(dst, e.Col)
	}
	dst = e.A.Columns(dst)
	dst = e.B.Columns(dst)
	return dst
}
