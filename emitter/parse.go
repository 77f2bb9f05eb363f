package emitter

import (
	"bufio"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/veristruct/structc/field"
	"github.com/veristruct/structc/ir"
)

type parser struct {
	m      *ir.Module
	s      *ir.StructDef
	f      *ir.Function
	lineNo int
}

func (p *parser) errf(format string, a ...interface{}) error {
	return fmt.Errorf("line %d: %s", p.lineNo, fmt.Sprintf(format, a...))
}

// parseValue decodes "%argN" or "%N" into a value id.
func (p *parser) parseValue(tok string) (int, error) {
	tok = strings.TrimSpace(tok)
	if !strings.HasPrefix(tok, "%") {
		return 0, p.errf("expected a value reference, got %q", tok)
	}
	tok = tok[1:]
	isArg := strings.HasPrefix(tok, "arg")
	if isArg {
		tok = tok[3:]
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, p.errf("bad value reference %%%s", tok)
	}
	if isArg && (p.f == nil || n >= len(p.f.Args)) {
		return 0, p.errf("argument %%arg%d is out of range", n)
	}
	return n, nil
}

// parseType decodes "!felt" or "!struct<@Name>".
func (p *parser) parseType(tok string) (string, error) {
	tok = strings.TrimSpace(tok)
	if tok == "!felt" {
		return ir.TypeFelt, nil
	}
	if strings.HasPrefix(tok, "!struct<@") && strings.HasSuffix(tok, ">") {
		return tok[len("!struct<@") : len(tok)-1], nil
	}
	return "", p.errf("bad type %q", tok)
}

// parseAccess decodes "%base[@member]".
func (p *parser) parseAccess(tok string) (int, string, error) {
	open := strings.Index(tok, "[@")
	if open < 0 || !strings.HasSuffix(tok, "]") {
		return 0, "", p.errf("bad member access %q", tok)
	}
	base, err := p.parseValue(tok[:open])
	if err != nil {
		return 0, "", err
	}
	return base, tok[open+2 : len(tok)-1], nil
}

func (p *parser) parseFunctionHeader(line string) error {
	kind := ir.FuncCompute
	rest := strings.TrimPrefix(line, "function.def @compute(")
	if rest == line {
		rest = strings.TrimPrefix(line, "function.def @constrain(")
		if rest == line {
			return p.errf("bad function header %q", line)
		}
		kind = ir.FuncConstrain
	}
	close_ := strings.Index(rest, ")")
	if close_ < 0 {
		return p.errf("unterminated argument list")
	}
	f := &ir.Function{Kind: kind}
	argList := rest[:close_]
	if argList != "" {
		for i, a := range strings.Split(argList, ",") {
			parts := strings.SplitN(a, ":", 2)
			if len(parts) != 2 {
				return p.errf("bad argument %q", a)
			}
			name := strings.TrimSpace(parts[0])
			if name != fmt.Sprintf("%%arg%d", i) {
				return p.errf("argument %d must be named %%arg%d, got %q", i, i, name)
			}
			t, err := p.parseType(parts[1])
			if err != nil {
				return err
			}
			f.Args = append(f.Args, t)
		}
	}
	switch kind {
	case ir.FuncCompute:
		want := fmt.Sprintf(") -> %s attributes {allow_witness} {", typeName(p.s.Name))
		if rest[close_:] != want {
			return p.errf("compute header must end with %q", want)
		}
		p.s.Compute = f
	case ir.FuncConstrain:
		if rest[close_:] != ") attributes {allow_constraint} {" {
			return p.errf("constrain header must declare {allow_constraint}")
		}
		p.s.Constrain = f
	}
	p.f = f
	return nil
}

func (p *parser) parseOp(line string) error {
	f := p.f
	nextID := f.NbValues()
	if eq := strings.Index(line, " = "); eq > 0 && strings.HasPrefix(line, "%") {
		res, err := p.parseValue(line[:eq])
		if err != nil {
			return err
		}
		if res != nextID {
			return p.errf("result id %%%d is not sequential (want %%%d)", res, nextID)
		}
		rhs := line[eq+3:]
		switch {
		case strings.HasPrefix(rhs, "felt.const "):
			lit := strings.TrimSpace(strings.TrimPrefix(rhs, "felt.const "))
			v, ok := new(big.Int).SetString(lit, 10)
			if !ok {
				return p.errf("bad constant %q", lit)
			}
			f.Ops = append(f.Ops, ir.NewConstOperation(p.m.Field.FromInterface(v), res))
		case strings.HasPrefix(rhs, "felt.add "), strings.HasPrefix(rhs, "felt.mul "):
			kind := ir.OpAdd
			if strings.HasPrefix(rhs, "felt.mul ") {
				kind = ir.OpMul
			}
			operands, err := p.parseValueList(rhs[len("felt.add "):], 2)
			if err != nil {
				return err
			}
			f.Ops = append(f.Ops, ir.Operation{Kind: kind, Operands: operands, ResultID: res})
		case strings.HasPrefix(rhs, "felt.neg "):
			a, err := p.parseValue(rhs[len("felt.neg "):])
			if err != nil {
				return err
			}
			f.Ops = append(f.Ops, ir.NewNegOperation(a, res))
		case strings.HasPrefix(rhs, "struct.readm "):
			body := strings.TrimPrefix(rhs, "struct.readm ")
			colon := strings.Index(body, " : ")
			if colon < 0 {
				return p.errf("struct.readm is missing its result type")
			}
			base, member, err := p.parseAccess(strings.TrimSpace(body[:colon]))
			if err != nil {
				return err
			}
			f.Ops = append(f.Ops, ir.NewReadOperation(base, member, res))
		case strings.HasPrefix(rhs, "struct.new : "):
			t, err := p.parseType(strings.TrimPrefix(rhs, "struct.new : "))
			if err != nil {
				return err
			}
			f.Ops = append(f.Ops, ir.NewStructNewOperation(t, res))
		default:
			return p.errf("unknown operation %q", rhs)
		}
		return nil
	}
	switch {
	case strings.HasPrefix(line, "struct.writem "):
		body := strings.TrimPrefix(line, "struct.writem ")
		eq := strings.Index(body, " = ")
		if eq < 0 {
			return p.errf("struct.writem is missing the written value")
		}
		base, member, err := p.parseAccess(strings.TrimSpace(body[:eq]))
		if err != nil {
			return err
		}
		v, err := p.parseValue(body[eq+3:])
		if err != nil {
			return err
		}
		f.Ops = append(f.Ops, ir.NewWriteOperation(base, member, v))
	case strings.HasPrefix(line, "constrain.eq "):
		operands, err := p.parseValueList(strings.TrimPrefix(line, "constrain.eq "), 2)
		if err != nil {
			return err
		}
		f.Ops = append(f.Ops, ir.NewAssertEqOperation(operands[0], operands[1]))
	default:
		return p.errf("unknown statement %q", line)
	}
	return nil
}

func (p *parser) parseValueList(s string, want int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != want {
		return nil, p.errf("want %d operands, got %d", want, len(parts))
	}
	res := make([]int, len(parts))
	for i, part := range parts {
		v, err := p.parseValue(part)
		if err != nil {
			return nil, err
		}
		res[i] = v
	}
	return res, nil
}

// Parse reads the textual form back into a module and validates it.
func Parse(src string) (*ir.Module, error) {
	p := &parser{}
	sc := bufio.NewScanner(strings.NewReader(src))
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	for sc.Scan() {
		p.lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "module field("):
			if p.m != nil {
				return nil, p.errf("duplicate module header")
			}
			rest := strings.TrimPrefix(line, "module field(")
			close_ := strings.Index(rest, ")")
			if close_ < 0 || rest[close_:] != ") {" {
				return nil, p.errf("bad module header")
			}
			order, ok := new(big.Int).SetString(rest[:close_], 10)
			if !ok {
				return nil, p.errf("bad field order %q", rest[:close_])
			}
			p.m = &ir.Module{Field: field.GetFieldFromOrder(order)}
		case strings.HasPrefix(line, "struct.def @"):
			if p.m == nil {
				return nil, p.errf("struct.def outside a module")
			}
			if p.s != nil {
				return nil, p.errf("nested struct.def")
			}
			rest := strings.TrimPrefix(line, "struct.def @")
			if !strings.HasSuffix(rest, " {") {
				return nil, p.errf("bad struct.def header")
			}
			p.s = &ir.StructDef{Name: strings.TrimSuffix(rest, " {")}
		case strings.HasPrefix(line, "member @"):
			if p.s == nil || p.f != nil {
				return nil, p.errf("member outside a struct body")
			}
			rest := strings.TrimPrefix(line, "member @")
			public := false
			if strings.HasSuffix(rest, " public") {
				public = true
				rest = strings.TrimSuffix(rest, " public")
			}
			if !strings.HasSuffix(rest, " : !felt") {
				return nil, p.errf("member must have type !felt")
			}
			p.s.Members = append(p.s.Members, ir.Member{
				Name:   strings.TrimSuffix(rest, " : !felt"),
				Public: public,
			})
		case strings.HasPrefix(line, "function.def @"):
			if p.s == nil {
				return nil, p.errf("function.def outside a struct")
			}
			if p.f != nil {
				return nil, p.errf("nested function.def")
			}
			if err := p.parseFunctionHeader(line); err != nil {
				return nil, err
			}
		case line == "}":
			switch {
			case p.f != nil:
				p.f = nil
			case p.s != nil:
				p.m.Structs = append(p.m.Structs, p.s)
				p.s = nil
			case p.m == nil:
				return nil, p.errf("unmatched }")
			}
		default:
			if p.f == nil {
				return nil, p.errf("unexpected line %q", line)
			}
			if err := p.parseOp(line); err != nil {
				return nil, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if p.m == nil {
		return nil, fmt.Errorf("no module found")
	}
	if p.s != nil || p.f != nil {
		return nil, fmt.Errorf("unexpected end of input")
	}
	if err := ir.Validate(p.m); err != nil {
		return nil, fmt.Errorf("parsed module is invalid: %v", err)
	}
	return p.m, nil
}
