package structc

import (
	"math/big"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veristruct/structc/circuit"
	"github.com/veristruct/structc/emitter"
	"github.com/veristruct/structc/field/m31"
	"github.com/veristruct/structc/ir"
	"github.com/veristruct/structc/lowering"
	"github.com/veristruct/structc/optimize"
)

func exampleCircuit(t *testing.T) (*circuit.Circuit, lowering.WitnessMap) {
	t.Helper()
	c := circuit.New("Main")
	w := c.DeclareColumn(circuit.Advice)
	pi := c.DeclareColumn(circuit.Instance)

	negPoly := circuit.Add(
		circuit.Mul(circuit.ConstInt64(1), circuit.Query(w, 0)),
		circuit.Query(w, 1))
	_, err := c.DeclareGate("neg", circuit.NoSelector, negPoly, 0)
	require.NoError(t, err)
	mulPoly := circuit.Add(
		circuit.Mul(circuit.Query(w, 0), circuit.Query(w, 1)),
		circuit.Mul(circuit.ConstInt64(-1), circuit.Query(w, 2)))
	_, err = c.DeclareGate("mul", circuit.NoSelector, mulPoly, 0)
	require.NoError(t, err)
	require.NoError(t, c.DeclareCopyConstraint(circuit.Cell{Col: w, Row: 0}, circuit.Cell{Col: pi, Row: 0}))
	require.NoError(t, c.DeclareOutput(circuit.Cell{Col: w, Row: 2}))

	wit := lowering.WitnessMap{
		{Col: w, Row: 0}: big.NewInt(3),
		{Col: w, Row: 1}: big.NewInt(m31.P - 3),
		{Col: w, Row: 2}: big.NewInt(m31.P - 9),
	}
	return c, wit
}

func TestCompile(t *testing.T) {
	c, wit := exampleCircuit(t)
	res, err := Compile(m31.ScalarField, c, wit)
	require.NoError(t, err)

	unopt := res.GetUnoptimizedModule()
	opt := res.GetModule()
	require.NoError(t, ir.Validate(unopt))
	require.NoError(t, ir.Validate(opt))
	require.Less(t, opt.NbOps(), unopt.NbOps())

	// both modules accept the same assignment
	f := opt.Field
	for _, m := range []*ir.Module{unopt, opt} {
		signal := m.Struct(lowering.SignalStruct)
		main := m.Struct("Main")
		pi, err := m.EvalCompute(signal, []ir.Value{ir.FeltValue(f.FromInterface(3))})
		require.NoError(t, err)
		inst, err := m.EvalCompute(main, []ir.Value{pi})
		require.NoError(t, err)
		require.NoError(t, m.EvalConstrain(main, []ir.Value{inst, pi}))
		require.Equal(t, f.FromInterface(m31.P-9), inst.Members["out_0"])
	}
}

func TestCompileEmitAndSerialize(t *testing.T) {
	c, wit := exampleCircuit(t)
	res, err := Compile(m31.ScalarField, c, wit)
	require.NoError(t, err)

	text := res.Emit()
	require.True(t, strings.Contains(text, "struct.def @Main {"))
	require.True(t, strings.Contains(text, "member @out_0 : !felt public"))
	parsed, err := emitter.Parse(text)
	require.NoError(t, err)
	require.True(t, reflect.DeepEqual(res.GetModule(), parsed))

	back, err := ir.Deserialize(res.Serialize())
	require.NoError(t, err)
	require.True(t, reflect.DeepEqual(res.GetModule(), back))
}

func TestCompileWithoutFusion(t *testing.T) {
	c, wit := exampleCircuit(t)
	res, err := Compile(m31.ScalarField, c, wit,
		WithOptimizeOptions(optimize.Options{EqualityFusion: false}))
	require.NoError(t, err)

	// gate constraints keep their compare-against-zero shape
	main := res.GetModule().Struct("Main")
	hasConst := false
	for _, op := range main.Constrain.Ops {
		if op.Kind == ir.OpConst {
			hasConst = true
		}
	}
	require.True(t, hasConst)
}

func TestCompileMissingWitness(t *testing.T) {
	c, wit := exampleCircuit(t)
	for cell := range wit {
		if cell.Row == 1 {
			delete(wit, cell)
		}
	}
	_, err := Compile(m31.ScalarField, c, wit)
	require.ErrorIs(t, err, lowering.ErrMissingWitness)
}
