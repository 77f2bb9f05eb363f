// Package structc compiles a column-and-gate circuit description into a
// two-phase struct IR: a compute function that fills struct members from
// witness values and a constrain function that asserts the circuit's
// relations. The pipeline is circuit snapshot -> lowering -> optimizer ->
// emitter; each invocation owns its module, so independent circuits may be
// compiled concurrently.
package structc

import (
	"github.com/veristruct/structc/emitter"
	"github.com/veristruct/structc/ir"
	"github.com/veristruct/structc/optimize"
)

// CompileResult carries both the raw lowering output and the optimized
// module. The two accept exactly the same witness assignments.
type CompileResult struct {
	unoptimized *ir.Module
	optimized   *ir.Module
}

// GetUnoptimizedModule returns the module as produced by the lowering
// engine, before any rewrite.
func (c *CompileResult) GetUnoptimizedModule() *ir.Module {
	return c.unoptimized
}

// GetModule returns the optimized module.
func (c *CompileResult) GetModule() *ir.Module {
	return c.optimized
}

// Emit renders the optimized module in its textual form.
func (c *CompileResult) Emit() string {
	return emitter.Emit(c.optimized)
}

// Serialize encodes the optimized module in its binary form.
func (c *CompileResult) Serialize() []byte {
	return c.optimized.Serialize()
}

type compileConfig struct {
	optimizeOptions optimize.Options
}

type CompileOption func(*compileConfig)

// WithOptimizeOptions overrides the optimizer's rewrite configuration.
func WithOptimizeOptions(opts optimize.Options) CompileOption {
	return func(c *compileConfig) {
		c.optimizeOptions = opts
	}
}
