package ir

import "fmt"

// Validate checks the structural invariants of a module: sequential result
// ids, define-before-use operands, well-typed member accesses, and the
// compute/constrain phase legality of every operation.
func Validate(m *Module) error {
	if m.Field == nil {
		return fmt.Errorf("module has no field")
	}
	names := make(map[string]bool)
	for _, s := range m.Structs {
		if names[s.Name] {
			return fmt.Errorf("duplicate struct %q", s.Name)
		}
		names[s.Name] = true
		memberNames := make(map[string]bool)
		for _, mem := range s.Members {
			if memberNames[mem.Name] {
				return fmt.Errorf("struct %q: duplicate member %q", s.Name, mem.Name)
			}
			memberNames[mem.Name] = true
		}
	}
	for _, s := range m.Structs {
		if s.Compute != nil {
			if s.Compute.Kind != FuncCompute {
				return fmt.Errorf("struct %q: compute function has kind %v", s.Name, s.Compute.Kind)
			}
			if err := validateFunction(m, s, s.Compute); err != nil {
				return fmt.Errorf("struct %q compute: %v", s.Name, err)
			}
		}
		if s.Constrain != nil {
			if s.Constrain.Kind != FuncConstrain {
				return fmt.Errorf("struct %q: constrain function has kind %v", s.Name, s.Constrain.Kind)
			}
			if len(s.Constrain.Args) == 0 || s.Constrain.Args[0] != s.Name {
				return fmt.Errorf("struct %q constrain: first argument must be the instance", s.Name)
			}
			if err := validateFunction(m, s, s.Constrain); err != nil {
				return fmt.Errorf("struct %q constrain: %v", s.Name, err)
			}
		}
	}
	return nil
}

var operandCount = map[OpKind]int{
	OpConst:    0,
	OpAdd:      2,
	OpMul:      2,
	OpNeg:      1,
	OpRead:     1,
	OpWrite:    2,
	OpNew:      0,
	OpAssertEq: 2,
}

func validateFunction(m *Module, s *StructDef, f *Function) error {
	for i, t := range f.Args {
		if t != TypeFelt && m.Struct(t) == nil {
			return fmt.Errorf("argument %d has unknown type %q", i, t)
		}
	}
	// valueType[id] is TypeFelt or a struct name
	valueType := append([]string(nil), f.Args...)
	for i, op := range f.Ops {
		want, ok := operandCount[op.Kind]
		if !ok {
			return fmt.Errorf("operation %d has invalid kind", i)
		}
		if len(op.Operands) != want {
			return fmt.Errorf("operation %d (%v): want %d operands, got %d", i, op.Kind, want, len(op.Operands))
		}
		for _, v := range op.Operands {
			if v < 0 || v >= len(valueType) {
				return fmt.Errorf("operation %d (%v): operand %d is not defined yet", i, op.Kind, v)
			}
		}
		switch op.Kind {
		case OpWrite, OpNew:
			if f.Kind != FuncCompute {
				return fmt.Errorf("operation %d: %v is only legal in compute functions", i, op.Kind)
			}
		case OpAssertEq:
			if f.Kind != FuncConstrain {
				return fmt.Errorf("operation %d: %v is only legal in constrain functions", i, op.Kind)
			}
		}
		switch op.Kind {
		case OpAdd, OpMul, OpAssertEq:
			for _, v := range op.Operands {
				if valueType[v] != TypeFelt {
					return fmt.Errorf("operation %d (%v): operand %d is not a field element", i, op.Kind, v)
				}
			}
		case OpNeg:
			if valueType[op.Operands[0]] != TypeFelt {
				return fmt.Errorf("operation %d (felt.neg): operand is not a field element", i)
			}
		case OpRead:
			base := valueType[op.Operands[0]]
			sd := m.Struct(base)
			if sd == nil {
				return fmt.Errorf("operation %d (struct.readm): base value is not a struct", i)
			}
			if _, ok := sd.Member(op.Member); !ok {
				return fmt.Errorf("operation %d (struct.readm): struct %q has no member %q", i, base, op.Member)
			}
		case OpWrite:
			base := valueType[op.Operands[0]]
			sd := m.Struct(base)
			if sd == nil {
				return fmt.Errorf("operation %d (struct.writem): base value is not a struct", i)
			}
			if _, ok := sd.Member(op.Member); !ok {
				return fmt.Errorf("operation %d (struct.writem): struct %q has no member %q", i, base, op.Member)
			}
			if valueType[op.Operands[1]] != TypeFelt {
				return fmt.Errorf("operation %d (struct.writem): written value is not a field element", i)
			}
		case OpNew:
			if m.Struct(op.Type) == nil {
				return fmt.Errorf("operation %d (struct.new): unknown struct %q", i, op.Type)
			}
		}
		if op.Kind.HasResult() {
			if op.ResultID != len(valueType) {
				return fmt.Errorf("operation %d (%v): result id %d is not sequential", i, op.Kind, op.ResultID)
			}
			if op.Kind == OpNew {
				valueType = append(valueType, op.Type)
			} else {
				valueType = append(valueType, TypeFelt)
			}
		} else if op.ResultID != -1 {
			return fmt.Errorf("operation %d (%v): unexpected result id %d", i, op.Kind, op.ResultID)
		}
	}
	return nil
}
