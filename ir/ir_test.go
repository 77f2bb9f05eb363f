package ir

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veristruct/structc/field"
	"github.com/veristruct/structc/field/m31"
)

// accModule builds a minimal valid module by hand: a struct with one public
// and one private member, a compute that fills both, and a constrain that
// checks them.
func accModule() *Module {
	f := field.GetFieldFromOrder(m31.ScalarField)
	compute := &Function{
		Kind: FuncCompute,
		Args: []string{TypeFelt},
	}
	compute.Ops = append(compute.Ops,
		NewStructNewOperation("Acc", 1),
		NewWriteOperation(1, "x", 0),
		NewConstOperation(f.FromInterface(7), 2),
		NewWriteOperation(1, "y", 2),
	)
	constrain := &Function{
		Kind: FuncConstrain,
		Args: []string{"Acc", TypeFelt},
	}
	constrain.Ops = append(constrain.Ops,
		NewReadOperation(0, "x", 2),
		NewAssertEqOperation(2, 1),
		NewReadOperation(0, "y", 3),
		NewConstOperation(f.FromInterface(7), 4),
		NewAssertEqOperation(3, 4),
	)
	return &Module{
		Field: f,
		Structs: []*StructDef{{
			Name:      "Acc",
			Members:   []Member{{Name: "x", Public: true}, {Name: "y"}},
			Compute:   compute,
			Constrain: constrain,
		}},
	}
}

func TestValidateAccepts(t *testing.T) {
	require.NoError(t, Validate(accModule()))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Module)
	}{
		{"non-sequential result id", func(m *Module) {
			m.Structs[0].Constrain.Ops[0].ResultID = 9
		}},
		{"unknown member", func(m *Module) {
			m.Structs[0].Constrain.Ops[0].Member = "nope"
		}},
		{"write in constrain", func(m *Module) {
			f := m.Structs[0].Constrain
			f.Ops = append(f.Ops, NewWriteOperation(0, "x", 1))
		}},
		{"assert in compute", func(m *Module) {
			f := m.Structs[0].Compute
			f.Ops = append(f.Ops, NewAssertEqOperation(0, 2))
		}},
		{"operand out of range", func(m *Module) {
			m.Structs[0].Constrain.Ops[1].Operands[0] = 99
		}},
		{"duplicate member", func(m *Module) {
			s := m.Structs[0]
			s.Members = append(s.Members, Member{Name: "x"})
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := accModule()
			tc.mutate(m)
			require.Error(t, Validate(m))
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := accModule()
	c := m.Clone()
	require.True(t, reflect.DeepEqual(m, c))

	c.Structs[0].Constrain.Ops[0].Member = "changed"
	c.Structs[0].Members[0].Name = "changed"
	if m.Structs[0].Constrain.Ops[0].Member != "x" {
		t.Fatal("clone shares operation storage with the original")
	}
	if m.Structs[0].Members[0].Name != "x" {
		t.Fatal("clone shares member storage with the original")
	}
}

func TestEval(t *testing.T) {
	m := accModule()
	s := m.Structs[0]
	five := m.Field.FromInterface(5)

	inst, err := m.EvalCompute(s, []Value{FeltValue(five)})
	require.NoError(t, err)
	require.Equal(t, five, inst.Members["x"])
	require.Equal(t, m.Field.FromInterface(7), inst.Members["y"])

	require.NoError(t, m.EvalConstrain(s, []Value{inst, FeltValue(five)}))

	err = m.EvalConstrain(s, []Value{inst, FeltValue(m.Field.FromInterface(6))})
	require.ErrorIs(t, err, ErrUnsatisfied)
}

func TestSerializeRoundTrip(t *testing.T) {
	m := accModule()
	data := m.Serialize()
	back, err := Deserialize(data)
	require.NoError(t, err)
	require.True(t, reflect.DeepEqual(m, back), "binary round trip must be lossless")

	_, err = Deserialize(data[:len(data)-3])
	require.Error(t, err)
	_, err = Deserialize(append(data, 0))
	require.Error(t, err)
}
