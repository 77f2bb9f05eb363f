package ir

import "github.com/consensys/gnark/constraint"

// OpKind enumerates the operations of the struct IR. The set is closed so
// that the optimizer's rewrite rules can match exhaustively.
type OpKind int

const (
	_ OpKind = iota
	OpConst
	OpAdd
	OpMul
	OpNeg
	OpRead
	OpWrite
	OpNew
	OpAssertEq
)

func (k OpKind) String() string {
	switch k {
	case OpConst:
		return "felt.const"
	case OpAdd:
		return "felt.add"
	case OpMul:
		return "felt.mul"
	case OpNeg:
		return "felt.neg"
	case OpRead:
		return "struct.readm"
	case OpWrite:
		return "struct.writem"
	case OpNew:
		return "struct.new"
	case OpAssertEq:
		return "constrain.eq"
	}
	return "invalid"
}

// HasResult reports whether the operation produces a value.
func (k OpKind) HasResult() bool {
	return k != OpWrite && k != OpAssertEq
}

// Operation is one node of a function's flat operation table. Operands
// reference earlier values by id: the function arguments occupy ids
// 0..len(Args)-1 and each result-producing operation takes the next id.
type Operation struct {
	Kind     OpKind
	Value    constraint.Element // OpConst only
	Operands []int
	Member   string // OpRead, OpWrite
	Type     string // OpNew: name of the instantiated struct
	ResultID int    // -1 when the operation produces no value
}

func NewConstOperation(v constraint.Element, result int) Operation {
	return Operation{Kind: OpConst, Value: v, ResultID: result}
}

func NewAddOperation(a, b, result int) Operation {
	return Operation{Kind: OpAdd, Operands: []int{a, b}, ResultID: result}
}

func NewMulOperation(a, b, result int) Operation {
	return Operation{Kind: OpMul, Operands: []int{a, b}, ResultID: result}
}

func NewNegOperation(a, result int) Operation {
	return Operation{Kind: OpNeg, Operands: []int{a}, ResultID: result}
}

func NewReadOperation(base int, member string, result int) Operation {
	return Operation{Kind: OpRead, Operands: []int{base}, Member: member, ResultID: result}
}

func NewWriteOperation(base int, member string, value int) Operation {
	return Operation{Kind: OpWrite, Operands: []int{base, value}, Member: member, ResultID: -1}
}

func NewStructNewOperation(typ string, result int) Operation {
	return Operation{Kind: OpNew, Type: typ, ResultID: result}
}

func NewAssertEqOperation(a, b int) Operation {
	return Operation{Kind: OpAssertEq, Operands: []int{a, b}, ResultID: -1}
}
