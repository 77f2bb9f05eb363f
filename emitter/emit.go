// Package emitter serializes a struct-IR module to its textual external form
// and parses it back. The form is deterministic: operation and member order
// is exactly the order established by the lowering engine and optimizer, and
// field constants print as canonical non-negative residues.
package emitter

import (
	"fmt"
	"strings"

	"github.com/veristruct/structc/ir"
)

func valueName(f *ir.Function, id int) string {
	if id < len(f.Args) {
		return fmt.Sprintf("%%arg%d", id)
	}
	return fmt.Sprintf("%%%d", id)
}

func typeName(t string) string {
	if t == ir.TypeFelt {
		return "!felt"
	}
	return fmt.Sprintf("!struct<@%s>", t)
}

func emitFunction(b *strings.Builder, m *ir.Module, s *ir.StructDef, f *ir.Function) {
	args := make([]string, len(f.Args))
	for i, t := range f.Args {
		args[i] = fmt.Sprintf("%%arg%d: %s", i, typeName(t))
	}
	switch f.Kind {
	case ir.FuncCompute:
		fmt.Fprintf(b, "    function.def @compute(%s) -> %s attributes {allow_witness} {\n",
			strings.Join(args, ", "), typeName(s.Name))
	case ir.FuncConstrain:
		fmt.Fprintf(b, "    function.def @constrain(%s) attributes {allow_constraint} {\n",
			strings.Join(args, ", "))
	}
	for _, op := range f.Ops {
		switch op.Kind {
		case ir.OpConst:
			fmt.Fprintf(b, "      %s = felt.const %s\n",
				valueName(f, op.ResultID), m.Field.ToBigInt(op.Value).String())
		case ir.OpAdd, ir.OpMul:
			fmt.Fprintf(b, "      %s = %v %s, %s\n",
				valueName(f, op.ResultID), op.Kind,
				valueName(f, op.Operands[0]), valueName(f, op.Operands[1]))
		case ir.OpNeg:
			fmt.Fprintf(b, "      %s = felt.neg %s\n",
				valueName(f, op.ResultID), valueName(f, op.Operands[0]))
		case ir.OpRead:
			fmt.Fprintf(b, "      %s = struct.readm %s[@%s] : !felt\n",
				valueName(f, op.ResultID), valueName(f, op.Operands[0]), op.Member)
		case ir.OpWrite:
			fmt.Fprintf(b, "      struct.writem %s[@%s] = %s\n",
				valueName(f, op.Operands[0]), op.Member, valueName(f, op.Operands[1]))
		case ir.OpNew:
			fmt.Fprintf(b, "      %s = struct.new : %s\n",
				valueName(f, op.ResultID), typeName(op.Type))
		case ir.OpAssertEq:
			fmt.Fprintf(b, "      constrain.eq %s, %s\n",
				valueName(f, op.Operands[0]), valueName(f, op.Operands[1]))
		}
	}
	b.WriteString("    }\n")
}

// Emit renders the module in its textual form.
func Emit(m *ir.Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "module field(%s) {\n", m.Field.Field().String())
	for _, s := range m.Structs {
		fmt.Fprintf(&b, "  struct.def @%s {\n", s.Name)
		for _, mem := range s.Members {
			if mem.Public {
				fmt.Fprintf(&b, "    member @%s : !felt public\n", mem.Name)
			} else {
				fmt.Fprintf(&b, "    member @%s : !felt\n", mem.Name)
			}
		}
		if s.Compute != nil {
			emitFunction(&b, m, s, s.Compute)
		}
		if s.Constrain != nil {
			emitFunction(&b, m, s, s.Constrain)
		}
		b.WriteString("  }\n")
	}
	b.WriteString("}\n")
	return b.String()
}
