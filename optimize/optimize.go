// Package optimize rewrites struct-IR functions to a fixed point: constant
// folding, algebraic identities, fusion of equality assertions against an
// explicit zero, common-subexpression elimination of member reads and
// constants, and dead-code elimination. Every rewrite preserves the solution
// set of constrain functions and the member values produced by compute
// functions; when no rule matches, the pass is the identity transform.
package optimize

import (
	"github.com/consensys/gnark/constraint"

	"github.com/veristruct/structc/field"
	"github.com/veristruct/structc/ir"
	"github.com/veristruct/structc/utils"
)

type Options struct {
	// EqualityFusion rewrites an assert of the form eq(t, 0) into a direct
	// equality between the two sides of t. Fusion is bounded to a single
	// assertion; independent constraints are never merged.
	EqualityFusion bool
}

func DefaultOptions() Options {
	return Options{EqualityFusion: true}
}

// Optimize rewrites the module in place and returns it.
func Optimize(m *ir.Module, opts Options) *ir.Module {
	for _, s := range m.Structs {
		optimizeFunction(m.Field, s.Compute, opts)
		optimizeFunction(m.Field, s.Constrain, opts)
	}
	return m
}

func optimizeFunction(f field.Field, fn *ir.Function, opts Options) {
	if fn == nil {
		return
	}
	for {
		changed := false
		if simplify(f, fn, opts) {
			changed = true
		}
		if unifyCommon(fn) {
			changed = true
		}
		if removeDead(fn) {
			changed = true
		}
		if !changed {
			return
		}
	}
}

// rewriter accumulates the rewritten operation table of one pass, assigning
// fresh sequential value ids.
type rewriter struct {
	nbArgs int
	ops    []ir.Operation
	// defOf[id] is the index in ops defining value id, or -1 for arguments
	defOf []int
}

func newRewriter(nbArgs int) *rewriter {
	r := &rewriter{nbArgs: nbArgs}
	for i := 0; i < nbArgs; i++ {
		r.defOf = append(r.defOf, -1)
	}
	return r
}

func (r *rewriter) push(op ir.Operation) int {
	if op.Kind.HasResult() {
		op.ResultID = len(r.defOf)
		r.defOf = append(r.defOf, len(r.ops))
	} else {
		op.ResultID = -1
	}
	r.ops = append(r.ops, op)
	return op.ResultID
}

// def returns the operation defining a value id in the rewritten table, or
// nil for arguments.
func (r *rewriter) def(id int) *ir.Operation {
	if idx := r.defOf[id]; idx >= 0 {
		return &r.ops[idx]
	}
	return nil
}

func (r *rewriter) constValue(id int) (constraint.Element, bool) {
	if op := r.def(id); op != nil && op.Kind == ir.OpConst {
		return op.Value, true
	}
	return constraint.Element{}, false
}

func (r *rewriter) isConstZero(id int) bool {
	v, ok := r.constValue(id)
	return ok && v.IsZero()
}

func isMinusOne(f field.Field, v constraint.Element) bool {
	return f.IsOne(f.Neg(v))
}

// countUses returns the number of operand references of every value.
func countUses(fn *ir.Function) []int {
	uses := make([]int, fn.NbValues())
	for _, op := range fn.Ops {
		for _, v := range op.Operands {
			uses[v]++
		}
	}
	return uses
}

// simplify performs constant folding, identity elimination and equality
// fusion in one forward rebuild. Returns whether anything changed.
func simplify(f field.Field, fn *ir.Function, opts Options) bool {
	uses := countUses(fn)
	r := newRewriter(len(fn.Args))
	remap := make([]int, len(fn.Args))
	for i := range remap {
		remap[i] = i
	}
	changed := false
	alias := func(target int) {
		remap = append(remap, target)
		changed = true
	}
	for _, op := range fn.Ops {
		var ro []int
		if len(op.Operands) > 0 {
			ro = make([]int, len(op.Operands))
		}
		for i, v := range op.Operands {
			ro[i] = remap[v]
		}
		switch op.Kind {
		case ir.OpAdd:
			ca, oka := r.constValue(ro[0])
			cb, okb := r.constValue(ro[1])
			switch {
			case oka && okb:
				remap = append(remap, r.push(ir.Operation{Kind: ir.OpConst, Value: f.Add(ca, cb)}))
				changed = true
			case oka && ca.IsZero():
				alias(ro[1])
			case okb && cb.IsZero():
				alias(ro[0])
			default:
				remap = append(remap, r.push(ir.Operation{Kind: ir.OpAdd, Operands: ro}))
			}
		case ir.OpMul:
			ca, oka := r.constValue(ro[0])
			cb, okb := r.constValue(ro[1])
			switch {
			case oka && okb:
				remap = append(remap, r.push(ir.Operation{Kind: ir.OpConst, Value: f.Mul(ca, cb)}))
				changed = true
			case oka && ca.IsZero():
				alias(ro[0])
			case okb && cb.IsZero():
				alias(ro[1])
			case oka && f.IsOne(ca):
				alias(ro[1])
			case okb && f.IsOne(cb):
				alias(ro[0])
			case oka && isMinusOne(f, ca):
				remap = append(remap, r.push(ir.Operation{Kind: ir.OpNeg, Operands: []int{ro[1]}}))
				changed = true
			case okb && isMinusOne(f, cb):
				remap = append(remap, r.push(ir.Operation{Kind: ir.OpNeg, Operands: []int{ro[0]}}))
				changed = true
			default:
				remap = append(remap, r.push(ir.Operation{Kind: ir.OpMul, Operands: ro}))
			}
		case ir.OpNeg:
			if c, ok := r.constValue(ro[0]); ok {
				remap = append(remap, r.push(ir.Operation{Kind: ir.OpConst, Value: f.Neg(c)}))
				changed = true
			} else if d := r.def(ro[0]); d != nil && d.Kind == ir.OpNeg {
				alias(d.Operands[0])
			} else {
				remap = append(remap, r.push(ir.Operation{Kind: ir.OpNeg, Operands: ro}))
			}
		case ir.OpAssertEq:
			if opts.EqualityFusion && r.fuseAssert(op, ro, uses) {
				changed = true
			} else {
				r.push(ir.Operation{Kind: ir.OpAssertEq, Operands: ro})
			}
		default:
			op.Operands = ro
			id := r.push(op)
			if op.Kind.HasResult() {
				remap = append(remap, id)
			}
		}
	}
	if changed {
		fn.Ops = r.ops
	}
	return changed
}

// fuseAssert rewrites eq(add(x, y), 0) into a direct equality. The addition
// must have the assert as its only use so the rewrite strictly reduces the
// operation count once dead code is swept. Returns whether it fused.
func (r *rewriter) fuseAssert(op ir.Operation, ro []int, uses []int) bool {
	lhs, addOld := ro[0], op.Operands[0]
	if r.isConstZero(ro[1]) {
		// lhs holds the expression
	} else if r.isConstZero(ro[0]) {
		lhs, addOld = ro[1], op.Operands[1]
	} else {
		return false
	}
	add := r.def(lhs)
	if add == nil || add.Kind != ir.OpAdd {
		return false
	}
	if uses[addOld] != 1 { // the addition feeds something besides this assert
		return false
	}
	x, y := add.Operands[0], add.Operands[1]
	if d := r.def(y); d != nil && d.Kind == ir.OpNeg {
		r.push(ir.Operation{Kind: ir.OpAssertEq, Operands: []int{x, d.Operands[0]}})
		return true
	}
	if d := r.def(x); d != nil && d.Kind == ir.OpNeg {
		r.push(ir.Operation{Kind: ir.OpAssertEq, Operands: []int{d.Operands[0], y}})
		return true
	}
	neg := r.push(ir.Operation{Kind: ir.OpNeg, Operands: []int{y}})
	r.push(ir.Operation{Kind: ir.OpAssertEq, Operands: []int{x, neg}})
	return true
}

// opKey identifies unifiable operations for common-subexpression
// elimination: member reads of the same (base, member) pair and equal
// constants.
type opKey struct {
	kind   ir.OpKind
	base   int
	member string
	value  constraint.Element
}

func (k opKey) HashCode() uint64 {
	h := uint64(k.kind) * 998244353
	h ^= uint64(k.base+1) * 1000000007
	for _, c := range k.member {
		h = h*31 + uint64(c)
	}
	h ^= k.value[0] ^ k.value[1] ^ k.value[2] ^ k.value[3] ^ k.value[4] ^ k.value[5]
	return h
}

func (k opKey) EqualI(o utils.Hashable) bool {
	return k == o.(opKey)
}

// unifyCommon merges duplicate member reads and constants. Reads are only
// unified when their base struct is never written inside the function, which
// keeps the rewrite sound for compute functions that fill an instance.
func unifyCommon(fn *ir.Function) bool {
	written := make(map[int]bool)
	for _, op := range fn.Ops {
		if op.Kind == ir.OpWrite {
			written[op.Operands[0]] = true
		}
	}
	seen := make(utils.Map)
	r := newRewriter(len(fn.Args))
	remap := make([]int, len(fn.Args))
	for i := range remap {
		remap[i] = i
	}
	changed := false
	for _, op := range fn.Ops {
		var ro []int
		if len(op.Operands) > 0 {
			ro = make([]int, len(op.Operands))
		}
		for i, v := range op.Operands {
			ro[i] = remap[v]
		}
		var key opKey
		unifiable := false
		switch op.Kind {
		case ir.OpRead:
			if !written[op.Operands[0]] {
				key = opKey{kind: ir.OpRead, base: ro[0], member: op.Member}
				unifiable = true
			}
		case ir.OpConst:
			key = opKey{kind: ir.OpConst, base: -1, value: op.Value}
			unifiable = true
		}
		if unifiable {
			if prev, ok := seen.Find(key); ok {
				remap = append(remap, prev.(int))
				changed = true
				continue
			}
		}
		op.Operands = ro
		id := r.push(op)
		if op.Kind.HasResult() {
			remap = append(remap, id)
		}
		if unifiable {
			seen.Set(key, id)
		}
	}
	if changed {
		fn.Ops = r.ops
	}
	return changed
}

// removeDead drops operations whose results nothing references. Writes,
// assertions and struct instantiations are always kept; everything else is
// kept only if a kept operation consumes it, following a single reverse
// sweep as the use information propagates backwards.
func removeDead(fn *ir.Function) bool {
	used := make([]bool, fn.NbValues())
	keep := make([]bool, len(fn.Ops))
	for i := len(fn.Ops) - 1; i >= 0; i-- {
		op := fn.Ops[i]
		k := false
		switch op.Kind {
		case ir.OpWrite, ir.OpAssertEq, ir.OpNew:
			k = true
		default:
			k = used[op.ResultID]
		}
		if k {
			keep[i] = true
			for _, v := range op.Operands {
				used[v] = true
			}
		}
	}
	changed := false
	r := newRewriter(len(fn.Args))
	remap := make([]int, len(fn.Args))
	for i := range remap {
		remap[i] = i
	}
	for i, op := range fn.Ops {
		if !keep[i] {
			if op.Kind.HasResult() {
				remap = append(remap, -1)
			}
			changed = true
			continue
		}
		var ro []int
		if len(op.Operands) > 0 {
			ro = make([]int, len(op.Operands))
		}
		for j, v := range op.Operands {
			ro[j] = remap[v]
		}
		op.Operands = ro
		id := r.push(op)
		if op.Kind.HasResult() {
			remap = append(remap, id)
		}
	}
	if changed {
		fn.Ops = r.ops
	}
	return changed
}
