// Package lowering translates a circuit snapshot into an unoptimized struct
// IR module. Gate polynomials become equality assertions against zero in the
// constrain function; every distinct advice or fixed cell becomes a struct
// member written by the compute function from the injected witness assigner;
// instance cells become Signal-typed function arguments.
package lowering

import (
	"errors"
	"fmt"

	"github.com/veristruct/structc/circuit"
	"github.com/veristruct/structc/field"
	"github.com/veristruct/structc/ir"
)

var (
	ErrMissingWitness        = errors.New("missing witness")
	ErrUnsupportedExpression = errors.New("unsupported expression")
)

// SignalStruct is the struct type wrapping a single public input, with one
// public member holding the raw value.
const (
	SignalStruct = "Signal"
	SignalMember = "reg"
)

type lowerer struct {
	snap     *circuit.Snapshot
	field    field.Field
	assigner Assigner

	main      *ir.StructDef
	constrain *ir.Function
	nextValue int

	// one member per distinct advice/fixed cell, in first-reference order
	memberOf   map[circuit.Cell]int
	memberCell []circuit.Cell
	nbAdvice   int
	nbFixed    int

	// one Signal argument per distinct instance cell
	argOf    map[circuit.Cell]int
	argCells []circuit.Cell
}

// defineSignalStruct builds the Signal struct: compute wraps a raw field
// element, constrain asserts the wrapped value matches.
func defineSignalStruct() *ir.StructDef {
	compute := &ir.Function{
		Kind: ir.FuncCompute,
		Args: []string{ir.TypeFelt},
	}
	compute.Ops = append(compute.Ops,
		ir.NewStructNewOperation(SignalStruct, 1),
		ir.NewWriteOperation(1, SignalMember, 0),
	)
	constrain := &ir.Function{
		Kind: ir.FuncConstrain,
		Args: []string{SignalStruct, ir.TypeFelt},
	}
	constrain.Ops = append(constrain.Ops,
		ir.NewReadOperation(0, SignalMember, 2),
		ir.NewAssertEqOperation(2, 1),
	)
	return &ir.StructDef{
		Name:      SignalStruct,
		Members:   []ir.Member{{Name: SignalMember, Public: true}},
		Compute:   compute,
		Constrain: constrain,
	}
}

// Lower produces a fresh unoptimized module for the snapshot. Iteration is
// ascending row index, then gate declaration order, then copy constraints and
// outputs in declaration order, so two lowerings of the same snapshot are
// structurally identical.
func Lower(snap *circuit.Snapshot, f field.Field, assigner Assigner) (*ir.Module, error) {
	l := &lowerer{
		snap:     snap,
		field:    f,
		assigner: assigner,
		main:     &ir.StructDef{Name: snap.Name()},
		memberOf: make(map[circuit.Cell]int),
		argOf:    make(map[circuit.Cell]int),
	}
	if err := l.collectArgs(); err != nil {
		return nil, err
	}

	args := []string{l.main.Name}
	for range l.argCells {
		args = append(args, SignalStruct)
	}
	l.constrain = &ir.Function{Kind: ir.FuncConstrain, Args: args}
	l.nextValue = len(args)

	if err := l.lowerConstraints(); err != nil {
		return nil, err
	}
	if err := l.buildCompute(); err != nil {
		return nil, err
	}

	m := &ir.Module{
		Field:   f,
		Structs: []*ir.StructDef{defineSignalStruct(), l.main},
	}
	if err := ir.Validate(m); err != nil {
		return nil, fmt.Errorf("lowering produced an invalid module: %v", err)
	}
	return m, nil
}

// collectArgs walks the snapshot in lowering order and allocates one Signal
// argument per distinct instance cell. Arguments must be known before any
// operation is emitted because they occupy the first value ids.
func (l *lowerer) collectArgs() error {
	visit := func(cell circuit.Cell) error {
		kind, err := l.snap.ColumnKind(cell.Col)
		if err != nil {
			return err
		}
		if kind != circuit.Instance {
			return nil
		}
		if _, ok := l.argOf[cell]; !ok {
			l.argOf[cell] = len(l.argCells)
			l.argCells = append(l.argCells, cell)
		}
		return nil
	}
	var walk func(e *circuit.Expression, row int) error
	walk = func(e *circuit.Expression, row int) error {
		if e == nil {
			return nil
		}
		if e.Kind == circuit.ExprQuery {
			return visit(circuit.Cell{Col: e.Col, Row: row + e.Rotation})
		}
		if err := walk(e.A, row); err != nil {
			return err
		}
		return walk(e.B, row)
	}
	gates := l.snap.Gates()
	for _, row := range l.snap.Rows() {
		for gi := range gates {
			if !l.snap.GateActiveAt(&gates[gi], row) {
				continue
			}
			if err := walk(gates[gi].Poly, row); err != nil {
				return err
			}
		}
	}
	for _, cc := range l.snap.CopyConstraints() {
		if err := visit(cc.A); err != nil {
			return err
		}
		if err := visit(cc.B); err != nil {
			return err
		}
	}
	return nil
}

func (l *lowerer) emit(op ir.Operation) int {
	l.constrain.Ops = append(l.constrain.Ops, op)
	return op.ResultID
}

func (l *lowerer) newValue() int {
	id := l.nextValue
	l.nextValue++
	return id
}

// memberFor returns the index of the member backing an advice or fixed cell,
// creating it on first reference.
func (l *lowerer) memberFor(cell circuit.Cell, kind circuit.ColumnKind) int {
	if idx, ok := l.memberOf[cell]; ok {
		return idx
	}
	var name string
	if kind == circuit.Fixed {
		name = fmt.Sprintf("fix_%d", l.nbFixed)
		l.nbFixed++
	} else {
		name = fmt.Sprintf("adv_%d", l.nbAdvice)
		l.nbAdvice++
	}
	idx := len(l.main.Members)
	l.main.Members = append(l.main.Members, ir.Member{Name: name})
	l.memberCell = append(l.memberCell, cell)
	l.memberOf[cell] = idx
	return idx
}

// cellValue emits the read producing the value of a cell inside the
// constrain function and returns its value id.
func (l *lowerer) cellValue(cell circuit.Cell) (int, error) {
	kind, err := l.snap.ColumnKind(cell.Col)
	if err != nil {
		return 0, err
	}
	if kind == circuit.Instance {
		arg := l.argOf[cell] + 1 // constrain value 0 is the instance
		return l.emit(ir.NewReadOperation(arg, SignalMember, l.newValue())), nil
	}
	idx := l.memberFor(cell, kind)
	return l.emit(ir.NewReadOperation(0, l.main.Members[idx].Name, l.newValue())), nil
}

func (l *lowerer) lowerExpr(e *circuit.Expression, row int, gate string) (int, error) {
	switch e.Kind {
	case circuit.ExprConst:
		v := l.field.FromInterface(e.Value)
		return l.emit(ir.NewConstOperation(v, l.newValue())), nil
	case circuit.ExprQuery:
		return l.cellValue(circuit.Cell{Col: e.Col, Row: row + e.Rotation})
	case circuit.ExprAdd:
		a, err := l.lowerExpr(e.A, row, gate)
		if err != nil {
			return 0, err
		}
		b, err := l.lowerExpr(e.B, row, gate)
		if err != nil {
			return 0, err
		}
		return l.emit(ir.NewAddOperation(a, b, l.newValue())), nil
	case circuit.ExprMul:
		a, err := l.lowerExpr(e.A, row, gate)
		if err != nil {
			return 0, err
		}
		b, err := l.lowerExpr(e.B, row, gate)
		if err != nil {
			return 0, err
		}
		return l.emit(ir.NewMulOperation(a, b, l.newValue())), nil
	case circuit.ExprNeg:
		a, err := l.lowerExpr(e.A, row, gate)
		if err != nil {
			return 0, err
		}
		return l.emit(ir.NewNegOperation(a, l.newValue())), nil
	default:
		return 0, fmt.Errorf("%w: gate %q", ErrUnsupportedExpression, gate)
	}
}

func (l *lowerer) lowerConstraints() error {
	gates := l.snap.Gates()
	for _, row := range l.snap.Rows() {
		for gi := range gates {
			g := &gates[gi]
			if !l.snap.GateActiveAt(g, row) {
				continue
			}
			lhs, err := l.lowerExpr(g.Poly, row, g.Name)
			if err != nil {
				return err
			}
			zero := l.emit(ir.NewConstOperation(l.field.FromInterface(0), l.newValue()))
			l.emit(ir.NewAssertEqOperation(lhs, zero))
		}
	}
	for _, cc := range l.snap.CopyConstraints() {
		a, err := l.cellValue(cc.A)
		if err != nil {
			return err
		}
		b, err := l.cellValue(cc.B)
		if err != nil {
			return err
		}
		l.emit(ir.NewAssertEqOperation(a, b))
	}
	for i, cell := range l.snap.Outputs() {
		src, err := l.cellValue(cell)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("out_%d", i)
		l.main.Members = append(l.main.Members, ir.Member{Name: name, Public: true})
		l.memberCell = append(l.memberCell, cell)
		out := l.emit(ir.NewReadOperation(0, name, l.newValue()))
		l.emit(ir.NewAssertEqOperation(src, out))
	}
	return nil
}

// buildCompute generates the compute function: a struct.new followed by one
// witness constant and member write per member, in member order.
func (l *lowerer) buildCompute() error {
	args := make([]string, len(l.argCells))
	for i := range args {
		args[i] = SignalStruct
	}
	f := &ir.Function{Kind: ir.FuncCompute, Args: args}
	next := len(args)
	self := next
	next++
	f.Ops = append(f.Ops, ir.NewStructNewOperation(l.main.Name, self))
	for i, mem := range l.main.Members {
		cell := l.memberCell[i]
		v, ok := l.assigner.Assign(cell.Col, cell.Row)
		if !ok {
			return fmt.Errorf("%w: column %d row %d (member %s)", ErrMissingWitness, cell.Col, cell.Row, mem.Name)
		}
		c := next
		next++
		f.Ops = append(f.Ops, ir.NewConstOperation(l.field.FromInterface(v), c))
		f.Ops = append(f.Ops, ir.NewWriteOperation(self, mem.Name, c))
	}
	l.main.Compute = f
	l.main.Constrain = l.constrain
	return nil
}
