package structc

import (
	"math/big"

	"github.com/consensys/gnark/logger"

	"github.com/veristruct/structc/circuit"
	"github.com/veristruct/structc/field"
	"github.com/veristruct/structc/lowering"
	"github.com/veristruct/structc/optimize"
)

// Compile lowers the circuit over the field of the given order and optimizes
// the result. The assigner supplies advice and fixed cell values for the
// generated compute function.
func Compile(fieldOrder *big.Int, c *circuit.Circuit, assigner lowering.Assigner, opts ...CompileOption) (*CompileResult, error) {
	cfg := compileConfig{
		optimizeOptions: optimize.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	f := field.GetFieldFromOrder(fieldOrder)
	snap := c.Snapshot()

	unopt, err := lowering.Lower(snap, f, assigner)
	if err != nil {
		return nil, err
	}
	opt := optimize.Optimize(unopt.Clone(), cfg.optimizeOptions)

	log := logger.Logger()
	log.Info().
		Int("nbStructs", len(opt.Structs)).
		Int("nbOpsBefore", unopt.NbOps()).
		Int("nbOpsAfter", opt.NbOps()).
		Msg("compiled")

	return &CompileResult{
		unoptimized: unopt,
		optimized:   opt,
	}, nil
}
