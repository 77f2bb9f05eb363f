package ir

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark/constraint"
)

// ErrUnsatisfied is returned by EvalConstrain when an asserted equality does
// not hold under the given assignment.
var ErrUnsatisfied = errors.New("constraint unsatisfied")

// Value is a runtime value of the interpreter: either a field element or a
// struct instance.
type Value struct {
	Type    string
	Felt    constraint.Element
	Members map[string]constraint.Element
}

func FeltValue(v constraint.Element) Value {
	return Value{Type: TypeFelt, Felt: v}
}

func StructValue(typ string, members map[string]constraint.Element) Value {
	if members == nil {
		members = make(map[string]constraint.Element)
	}
	return Value{Type: typ, Members: members}
}

// evalFunction interprets the operation table and returns the full value
// table. Used by both EvalCompute and EvalConstrain.
func (m *Module) evalFunction(f *Function, args []Value) ([]Value, error) {
	if len(args) != len(f.Args) {
		return nil, fmt.Errorf("want %d arguments, got %d", len(f.Args), len(args))
	}
	for i, a := range args {
		if a.Type != f.Args[i] {
			return nil, fmt.Errorf("argument %d: want type %q, got %q", i, f.Args[i], a.Type)
		}
	}
	values := append([]Value(nil), args...)
	for i, op := range f.Ops {
		switch op.Kind {
		case OpConst:
			values = append(values, FeltValue(op.Value))
		case OpAdd:
			values = append(values, FeltValue(m.Field.Add(values[op.Operands[0]].Felt, values[op.Operands[1]].Felt)))
		case OpMul:
			values = append(values, FeltValue(m.Field.Mul(values[op.Operands[0]].Felt, values[op.Operands[1]].Felt)))
		case OpNeg:
			values = append(values, FeltValue(m.Field.Neg(values[op.Operands[0]].Felt)))
		case OpRead:
			base := values[op.Operands[0]]
			v, ok := base.Members[op.Member]
			if !ok {
				return nil, fmt.Errorf("operation %d: member %q of %q is not assigned", i, op.Member, base.Type)
			}
			values = append(values, FeltValue(v))
		case OpWrite:
			values[op.Operands[0]].Members[op.Member] = values[op.Operands[1]].Felt
		case OpNew:
			values = append(values, StructValue(op.Type, nil))
		case OpAssertEq:
			a := values[op.Operands[0]].Felt
			b := values[op.Operands[1]].Felt
			if a != b {
				return nil, fmt.Errorf("%w: operation %d asserts %s == %s",
					ErrUnsatisfied, i, m.Field.String(a), m.Field.String(b))
			}
		default:
			return nil, fmt.Errorf("operation %d has invalid kind", i)
		}
	}
	return values, nil
}

// EvalCompute runs the struct's compute function and returns the built
// instance.
func (m *Module) EvalCompute(s *StructDef, args []Value) (Value, error) {
	if s.Compute == nil {
		return Value{}, fmt.Errorf("struct %q has no compute function", s.Name)
	}
	values, err := m.evalFunction(s.Compute, args)
	if err != nil {
		return Value{}, err
	}
	for _, op := range s.Compute.Ops {
		if op.Kind == OpNew && op.Type == s.Name {
			return values[op.ResultID], nil
		}
	}
	return Value{}, fmt.Errorf("struct %q compute builds no instance", s.Name)
}

// EvalConstrain runs the struct's constrain function. args[0] must be the
// instance. It returns nil when every asserted equality holds.
func (m *Module) EvalConstrain(s *StructDef, args []Value) error {
	if s.Constrain == nil {
		return fmt.Errorf("struct %q has no constrain function", s.Name)
	}
	_, err := m.evalFunction(s.Constrain, args)
	return err
}
