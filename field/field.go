// Package field selects the finite field all circuit arithmetic runs in.
// Field elements are stored as gnark constraint.Element values and every
// arithmetic result is a canonical residue modulo the field order.
package field

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark/constraint"

	"github.com/veristruct/structc/field/bn254"
	"github.com/veristruct/structc/field/m31"
)

// ErrNotInvertible is returned by Invert on zero.
var ErrNotInvertible = errors.New("not invertible")

type Field interface {
	constraint.Field
	Field() *big.Int
	FieldBitLen() int
}

func GetFieldFromOrder(x *big.Int) Field {
	if x.Cmp(bn254.ScalarField) == 0 {
		return &bn254.Field{}
	}
	if x.Cmp(m31.ScalarField) == 0 {
		return &m31.Field{}
	}
	panic(fmt.Sprintf("unknown field %v", x))
}

// Invert returns the multiplicative inverse of a, or ErrNotInvertible when
// a is zero.
func Invert(f Field, a constraint.Element) (constraint.Element, error) {
	r, ok := f.Inverse(a)
	if !ok {
		return r, ErrNotInvertible
	}
	return r, nil
}
