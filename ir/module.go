// Package ir defines the two-phase struct intermediate representation: named
// struct types whose members are field elements, each carrying a compute
// function (builds an instance from witness values) and a constrain function
// (pure equality assertions over an already-built instance).
package ir

import (
	"github.com/veristruct/structc/field"
)

// TypeFelt is the type name of a plain field-element value.
const TypeFelt = "felt"

type FuncKind int

const (
	_ FuncKind = iota
	FuncCompute
	FuncConstrain
)

func (k FuncKind) String() string {
	switch k {
	case FuncCompute:
		return "compute"
	case FuncConstrain:
		return "constrain"
	}
	return "invalid"
}

// Member is a typed field of a struct. All members are field elements;
// public members mirror instance columns of the source circuit.
type Member struct {
	Name   string
	Public bool
}

// Function is a straight-line operation table. For constrain functions the
// first argument is the instance being constrained.
type Function struct {
	Kind FuncKind
	// Args holds the argument types: TypeFelt or a struct name.
	Args []string
	Ops  []Operation
}

// NbValues returns the size of the function's value id space.
func (f *Function) NbValues() int {
	n := len(f.Args)
	for _, op := range f.Ops {
		if op.Kind.HasResult() {
			n++
		}
	}
	return n
}

type StructDef struct {
	Name      string
	Members   []Member
	Compute   *Function
	Constrain *Function
}

func (s *StructDef) Member(name string) (Member, bool) {
	for _, m := range s.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// Module is an ordered collection of struct definitions over one field.
type Module struct {
	Field   field.Field
	Structs []*StructDef
}

func (m *Module) Struct(name string) *StructDef {
	for _, s := range m.Structs {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// NbOps returns the total operation count of the module, the quantity the
// optimizer monotonically reduces.
func (m *Module) NbOps() int {
	n := 0
	for _, s := range m.Structs {
		for _, f := range []*Function{s.Compute, s.Constrain} {
			if f != nil {
				n += len(f.Ops)
			}
		}
	}
	return n
}

func cloneFunction(f *Function) *Function {
	if f == nil {
		return nil
	}
	res := &Function{
		Kind: f.Kind,
		Args: append([]string(nil), f.Args...),
		Ops:  make([]Operation, len(f.Ops)),
	}
	for i, op := range f.Ops {
		op.Operands = append([]int(nil), op.Operands...)
		res.Ops[i] = op
	}
	return res
}

// Clone deep-copies the module so the optimizer can rewrite one copy while
// the caller keeps the unoptimized artifact.
func (m *Module) Clone() *Module {
	res := &Module{
		Field:   m.Field,
		Structs: make([]*StructDef, len(m.Structs)),
	}
	for i, s := range m.Structs {
		res.Structs[i] = &StructDef{
			Name:      s.Name,
			Members:   append([]Member(nil), s.Members...),
			Compute:   cloneFunction(s.Compute),
			Constrain: cloneFunction(s.Constrain),
		}
	}
	return res
}
