// Package circuit models a column-and-gate arithmetic circuit description:
// advice/fixed/instance columns, selectors, polynomial gates applied at rows,
// copy constraints between cells, and declared public outputs. The model is
// mutable while it is being declared and is handed to the lowering engine as
// an immutable Snapshot.
package circuit

import (
	"errors"
	"fmt"
	"sort"
)

type ColumnKind int

const (
	_ ColumnKind = iota
	Advice
	Fixed
	Instance
)

func (k ColumnKind) String() string {
	switch k {
	case Advice:
		return "advice"
	case Fixed:
		return "fixed"
	case Instance:
		return "instance"
	}
	return fmt.Sprintf("ColumnKind(%d)", int(k))
}

type ColumnID int

type SelectorID int

// NoSelector marks a gate that is active at all of its rows.
const NoSelector SelectorID = -1

type GateID int

// Cell addresses one row of one column.
type Cell struct {
	Col ColumnID
	Row int
}

// CopyConstraint requires the two cells to hold equal values.
type CopyConstraint struct {
	A, B Cell
}

// Gate applies the polynomial Poly == 0 at every row in Rows where its
// selector (if any) is enabled.
type Gate struct {
	Name     string
	Poly     *Expression
	Selector SelectorID
	Rows     []int
}

var (
	ErrUnknownColumn         = errors.New("unknown column")
	ErrInvalidCopyConstraint = errors.New("invalid copy constraint")
	ErrUnknownSelector       = errors.New("unknown selector")
)

type Circuit struct {
	name      string
	columns   []ColumnKind
	selectors []map[int]bool
	gates     []Gate
	copies    []CopyConstraint
	outputs   []Cell
}

// New returns an empty circuit. The name becomes the name of the generated
// top-level struct; an empty name defaults to "Main".
func New(name string) *Circuit {
	if name == "" {
		name = "Main"
	}
	return &Circuit{name: name}
}

func (c *Circuit) DeclareColumn(kind ColumnKind) ColumnID {
	c.columns = append(c.columns, kind)
	return ColumnID(len(c.columns) - 1)
}

func (c *Circuit) DeclareSelector() SelectorID {
	c.selectors = append(c.selectors, make(map[int]bool))
	return SelectorID(len(c.selectors) - 1)
}

func (c *Circuit) EnableSelector(s SelectorID, row int) error {
	if s < 0 || int(s) >= len(c.selectors) {
		return fmt.Errorf("%w: selector %d", ErrUnknownSelector, s)
	}
	c.selectors[s][row] = true
	return nil
}

func (c *Circuit) columnKind(col ColumnID) (ColumnKind, error) {
	if col < 0 || int(col) >= len(c.columns) {
		return 0, fmt.Errorf("%w: column %d", ErrUnknownColumn, col)
	}
	return c.columns[col], nil
}

// DeclareGate registers poly == 0 at the given rows, gated by sel (which may
// be NoSelector). Every column the polynomial queries must already be
// declared.
func (c *Circuit) DeclareGate(name string, sel SelectorID, poly *Expression, rows ...int) (GateID, error) {
	if sel != NoSelector && (sel < 0 || int(sel) >= len(c.selectors)) {
		return 0, fmt.Errorf("%w: selector %d in gate %q", ErrUnknownSelector, sel, name)
	}
	for _, col := range poly.Columns(nil) {
		if _, err := c.columnKind(col); err != nil {
			return 0, fmt.Errorf("gate %q: %w", name, err)
		}
	}
	r := make([]int, len(rows))
	copy(r, rows)
	sort.Ints(r)
	c.gates = append(c.gates, Gate{Name: name, Poly: poly, Selector: sel, Rows: r})
	return GateID(len(c.gates) - 1), nil
}

// DeclareCopyConstraint requires cells a and b to be equal. Two fixed cells
// carry no independent witness, so that combination is rejected.
func (c *Circuit) DeclareCopyConstraint(a, b Cell) error {
	ka, err := c.columnKind(a.Col)
	if err != nil {
		return err
	}
	kb, err := c.columnKind(b.Col)
	if err != nil {
		return err
	}
	if ka == Fixed && kb == Fixed {
		return fmt.Errorf("%w: both cells are fixed columns (%d, %d)", ErrInvalidCopyConstraint, a.Col, b.Col)
	}
	c.copies = append(c.copies, CopyConstraint{A: a, B: b})
	return nil
}

// DeclareOutput exposes an advice cell as a public output of the circuit.
func (c *Circuit) DeclareOutput(cell Cell) error {
	kind, err := c.columnKind(cell.Col)
	if err != nil {
		return err
	}
	if kind != Advice {
		return fmt.Errorf("%w: output cell must be an advice cell, got %s column %d", ErrInvalidCopyConstraint, kind, cell.Col)
	}
	c.outputs = append(c.outputs, cell)
	return nil
}

// Snapshot is an immutable copy of a circuit, safe to lower while the
// original keeps being mutated.
type Snapshot struct {
	name      string
	columns   []ColumnKind
	selectors []map[int]bool
	gates     []Gate
	copies    []CopyConstraint
	outputs   []Cell
}

func (c *Circuit) Snapshot() *Snapshot {
	s := &Snapshot{
		name:      c.name,
		columns:   append([]ColumnKind(nil), c.columns...),
		selectors: make([]map[int]bool, len(c.selectors)),
		gates:     make([]Gate, len(c.gates)),
		copies:    append([]CopyConstraint(nil), c.copies...),
		outputs:   append([]Cell(nil), c.outputs...),
	}
	for i, rows := range c.selectors {
		m := make(map[int]bool, len(rows))
		for r, on := range rows {
			m[r] = on
		}
		s.selectors[i] = m
	}
	for i, g := range c.gates {
		s.gates[i] = Gate{
			Name:     g.Name,
			Poly:     g.Poly,
			Selector: g.Selector,
			Rows:     append([]int(nil), g.Rows...),
		}
	}
	return s
}

func (s *Snapshot) Name() string { return s.name }

func (s *Snapshot) ColumnKind(col ColumnID) (ColumnKind, error) {
	if col < 0 || int(col) >= len(s.columns) {
		return 0, fmt.Errorf("%w: column %d", ErrUnknownColumn, col)
	}
	return s.columns[col], nil
}

func (s *Snapshot) Gates() []Gate { return s.gates }

func (s *Snapshot) CopyConstraints() []CopyConstraint { return s.copies }

func (s *Snapshot) Outputs() []Cell { return s.outputs }

// SelectorEnabled reports whether selector sel is on at row.
func (s *Snapshot) SelectorEnabled(sel SelectorID, row int) bool {
	if sel < 0 || int(sel) >= len(s.selectors) {
		return false
	}
	return s.selectors[sel][row]
}

// GateActiveAt reports whether gate g fires at row: the row must be one of
// the gate's rows and the gate's selector (if any) must be enabled there.
func (s *Snapshot) GateActiveAt(g *Gate, row int) bool {
	found := false
	for _, r := range g.Rows {
		if r == row {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	if g.Selector == NoSelector {
		return true
	}
	return s.SelectorEnabled(g.Selector, row)
}

// Rows returns the ascending list of rows at which any gate may fire.
func (s *Snapshot) Rows() []int {
	seen := make(map[int]bool)
	var rows []int
	for _, g := range s.gates {
		for _, r := range g.Rows {
			if !seen[r] {
				seen[r] = true
				rows = append(rows, r)
			}
		}
	}
	sort.Ints(rows)
	return rows
}
