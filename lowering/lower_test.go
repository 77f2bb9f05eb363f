package lowering

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veristruct/structc/circuit"
	"github.com/veristruct/structc/emitter"
	"github.com/veristruct/structc/field"
	"github.com/veristruct/structc/field/m31"
	"github.com/veristruct/structc/ir"
)

// mulScenario declares a small circuit with one advice and one instance
// column: a gate forcing w[0] + w[1] = 0, a gate forcing w[0]*w[1] = w[2],
// a copy tying w[0] to the public input, and w[2] exposed as an output.
func mulScenario(t *testing.T) (*circuit.Circuit, circuit.ColumnID, circuit.ColumnID) {
	t.Helper()
	c := circuit.New("Main")
	w := c.DeclareColumn(circuit.Advice)
	pi := c.DeclareColumn(circuit.Instance)

	negPoly := circuit.Add(
		circuit.Mul(circuit.ConstInt64(1), circuit.Query(w, 0)),
		circuit.Query(w, 1))
	if _, err := c.DeclareGate("neg", circuit.NoSelector, negPoly, 0); err != nil {
		t.Fatal(err)
	}
	mulPoly := circuit.Add(
		circuit.Mul(circuit.Query(w, 0), circuit.Query(w, 1)),
		circuit.Mul(circuit.ConstInt64(-1), circuit.Query(w, 2)))
	if _, err := c.DeclareGate("mul", circuit.NoSelector, mulPoly, 0); err != nil {
		t.Fatal(err)
	}
	if err := c.DeclareCopyConstraint(circuit.Cell{Col: w, Row: 0}, circuit.Cell{Col: pi, Row: 0}); err != nil {
		t.Fatal(err)
	}
	if err := c.DeclareOutput(circuit.Cell{Col: w, Row: 2}); err != nil {
		t.Fatal(err)
	}
	return c, w, pi
}

func mulWitness(w circuit.ColumnID) WitnessMap {
	return WitnessMap{
		{Col: w, Row: 0}: big.NewInt(3),
		{Col: w, Row: 1}: big.NewInt(m31.P - 3),
		{Col: w, Row: 2}: big.NewInt(m31.P - 9),
	}
}

func TestLowerStructure(t *testing.T) {
	c, w, _ := mulScenario(t)
	f := field.GetFieldFromOrder(m31.ScalarField)

	m, err := Lower(c.Snapshot(), f, mulWitness(w))
	require.NoError(t, err)
	require.NoError(t, ir.Validate(m))

	require.NotNil(t, m.Struct(SignalStruct))
	main := m.Struct("Main")
	require.NotNil(t, main)

	var names []string
	for _, mem := range main.Members {
		names = append(names, mem.Name)
	}
	require.Equal(t, []string{"adv_0", "adv_1", "adv_2", "out_0"}, names)
	for _, mem := range main.Members {
		require.Equal(t, mem.Name == "out_0", mem.Public, "only outputs are public")
	}

	// one Signal argument for the single instance cell
	require.Equal(t, []string{"Main", SignalStruct}, main.Constrain.Args)
	require.Equal(t, []string{SignalStruct}, main.Compute.Args)

	// the raw lowering keeps the literal form: constants (including the
	// explicit zero of every gate) and no negations
	nbConst, nbNeg := 0, 0
	zero := f.FromInterface(0)
	sawZero := false
	for _, op := range main.Constrain.Ops {
		switch op.Kind {
		case ir.OpConst:
			nbConst++
			if op.Value == zero {
				sawZero = true
			}
		case ir.OpNeg:
			nbNeg++
		}
	}
	require.Equal(t, 4, nbConst, "consts 1, -1 and one zero per gate")
	require.True(t, sawZero)
	require.Zero(t, nbNeg)
}

func TestLowerComputeValues(t *testing.T) {
	c, w, _ := mulScenario(t)
	f := field.GetFieldFromOrder(m31.ScalarField)
	m, err := Lower(c.Snapshot(), f, mulWitness(w))
	require.NoError(t, err)

	signal := m.Struct(SignalStruct)
	main := m.Struct("Main")

	pi, err := m.EvalCompute(signal, []ir.Value{ir.FeltValue(f.FromInterface(3))})
	require.NoError(t, err)
	inst, err := m.EvalCompute(main, []ir.Value{pi})
	require.NoError(t, err)

	require.Equal(t, f.FromInterface(3), inst.Members["adv_0"])
	require.Equal(t, f.FromInterface(m31.P-3), inst.Members["adv_1"])
	require.Equal(t, f.FromInterface(m31.P-9), inst.Members["adv_2"])
	require.Equal(t, inst.Members["adv_2"], inst.Members["out_0"])

	require.NoError(t, m.EvalConstrain(main, []ir.Value{inst, pi}))

	// a wrong public input violates the copy constraint
	badPi, err := m.EvalCompute(signal, []ir.Value{ir.FeltValue(f.FromInterface(4))})
	require.NoError(t, err)
	err = m.EvalConstrain(main, []ir.Value{inst, badPi})
	require.ErrorIs(t, err, ir.ErrUnsatisfied)
}

func TestLowerIsDeterministic(t *testing.T) {
	f := field.GetFieldFromOrder(m31.ScalarField)

	c1, w1, _ := mulScenario(t)
	m1, err := Lower(c1.Snapshot(), f, mulWitness(w1))
	require.NoError(t, err)

	c2, w2, _ := mulScenario(t)
	m2, err := Lower(c2.Snapshot(), f, mulWitness(w2))
	require.NoError(t, err)

	require.Equal(t, emitter.Emit(m1), emitter.Emit(m2))
	require.Equal(t, m1.Serialize(), m2.Serialize())
}

func TestLowerMissingWitness(t *testing.T) {
	c, w, _ := mulScenario(t)
	f := field.GetFieldFromOrder(m31.ScalarField)
	wit := mulWitness(w)
	delete(wit, circuit.Cell{Col: w, Row: 2})

	_, err := Lower(c.Snapshot(), f, wit)
	require.ErrorIs(t, err, ErrMissingWitness)
	require.Contains(t, err.Error(), "adv_2")
}

func TestLowerUnsupportedExpression(t *testing.T) {
	c := circuit.New("Main")
	w := c.DeclareColumn(circuit.Advice)
	poly := circuit.Add(circuit.Query(w, 0), &circuit.Expression{})
	_, err := c.DeclareGate("bad", circuit.NoSelector, poly, 0)
	require.NoError(t, err)

	f := field.GetFieldFromOrder(m31.ScalarField)
	_, err = Lower(c.Snapshot(), f, WitnessMap{{Col: w, Row: 0}: big.NewInt(1)})
	require.True(t, errors.Is(err, ErrUnsupportedExpression))
	require.Contains(t, err.Error(), `gate "bad"`)
}

func TestLowerFixedColumn(t *testing.T) {
	c := circuit.New("Main")
	w := c.DeclareColumn(circuit.Advice)
	q := c.DeclareColumn(circuit.Fixed)
	_, err := c.DeclareGate("gated", circuit.NoSelector,
		circuit.Mul(circuit.Query(q, 0), circuit.Query(w, 0)), 0)
	require.NoError(t, err)

	f := field.GetFieldFromOrder(m31.ScalarField)
	m, err := Lower(c.Snapshot(), f, WitnessMap{
		{Col: w, Row: 0}: big.NewInt(0),
		{Col: q, Row: 0}: big.NewInt(5),
	})
	require.NoError(t, err)

	main := m.Struct("Main")
	var names []string
	for _, mem := range main.Members {
		names = append(names, mem.Name)
	}
	require.Equal(t, []string{"fix_0", "adv_0"}, names, "members appear in first-reference order")

	inst, err := m.EvalCompute(main, nil)
	require.NoError(t, err)
	require.Equal(t, f.FromInterface(5), inst.Members["fix_0"])
	require.NoError(t, m.EvalConstrain(main, []ir.Value{inst}))
}

func TestLowerSelectorGating(t *testing.T) {
	c := circuit.New("Main")
	w := c.DeclareColumn(circuit.Advice)
	s := c.DeclareSelector()
	require.NoError(t, c.EnableSelector(s, 1))
	_, err := c.DeclareGate("g", s, circuit.Query(w, 0), 0, 1)
	require.NoError(t, err)

	f := field.GetFieldFromOrder(m31.ScalarField)
	m, err := Lower(c.Snapshot(), f, WitnessMap{{Col: w, Row: 1}: big.NewInt(0)})
	require.NoError(t, err)

	// only row 1 fires, so only w[1] gets a member
	main := m.Struct("Main")
	require.Len(t, main.Members, 1)
	require.Equal(t, "adv_0", main.Members[0].Name)
}
