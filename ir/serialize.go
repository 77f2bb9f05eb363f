package ir

import (
	"fmt"

	"github.com/veristruct/structc/field"
	"github.com/veristruct/structc/utils"
)

// Binary module format, little endian. Field constants are stored as 32-byte
// canonical residues. Intended for tooling interchange; the textual form in
// the emitter package stays the human-facing format.

const serializeMagic uint32 = 0x53495232 // "2RIS"

func serializeFunction(o *utils.OutputBuf, m *Module, f *Function) {
	o.AppendUint32(uint32(f.Kind))
	o.AppendUint32(uint32(len(f.Args)))
	for _, t := range f.Args {
		o.AppendString(t)
	}
	o.AppendUint32(uint32(len(f.Ops)))
	for _, op := range f.Ops {
		o.AppendUint32(uint32(op.Kind))
		o.AppendUint64(uint64(int64(op.ResultID)))
		o.AppendUint32(uint32(len(op.Operands)))
		for _, v := range op.Operands {
			o.AppendUint64(uint64(v))
		}
		o.AppendString(op.Member)
		o.AppendString(op.Type)
		if op.Kind == OpConst {
			o.AppendBigInt(m.Field.ToBigInt(op.Value))
		}
	}
}

func (m *Module) Serialize() []byte {
	o := &utils.OutputBuf{}
	o.AppendUint32(serializeMagic)
	o.AppendBigInt(m.Field.Field())
	o.AppendUint32(uint32(len(m.Structs)))
	for _, s := range m.Structs {
		o.AppendString(s.Name)
		o.AppendUint32(uint32(len(s.Members)))
		for _, mem := range s.Members {
			o.AppendString(mem.Name)
			if mem.Public {
				o.AppendUint32(1)
			} else {
				o.AppendUint32(0)
			}
		}
		serializeFunction(o, m, s.Compute)
		serializeFunction(o, m, s.Constrain)
	}
	return o.Bytes()
}

func deserializeFunction(in *utils.InputBuf, m *Module) (*Function, error) {
	kind, err := in.ReadUint32()
	if err != nil {
		return nil, err
	}
	nbArgs, err := in.ReadUint32()
	if err != nil {
		return nil, err
	}
	f := &Function{Kind: FuncKind(kind)}
	for i := uint32(0); i < nbArgs; i++ {
		t, err := in.ReadString()
		if err != nil {
			return nil, err
		}
		f.Args = append(f.Args, t)
	}
	nbOps, err := in.ReadUint32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < nbOps; i++ {
		var op Operation
		kind, err := in.ReadUint32()
		if err != nil {
			return nil, err
		}
		op.Kind = OpKind(kind)
		res, err := in.ReadUint64()
		if err != nil {
			return nil, err
		}
		op.ResultID = int(int64(res))
		nbOperands, err := in.ReadUint32()
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < nbOperands; j++ {
			v, err := in.ReadUint64()
			if err != nil {
				return nil, err
			}
			op.Operands = append(op.Operands, int(v))
		}
		if op.Member, err = in.ReadString(); err != nil {
			return nil, err
		}
		if op.Type, err = in.ReadString(); err != nil {
			return nil, err
		}
		if op.Kind == OpConst {
			v, err := in.ReadBigInt()
			if err != nil {
				return nil, err
			}
			op.Value = m.Field.FromInterface(v)
		}
		f.Ops = append(f.Ops, op)
	}
	return f, nil
}

func Deserialize(data []byte) (*Module, error) {
	in := utils.NewInputBuf(data)
	magic, err := in.ReadUint32()
	if err != nil {
		return nil, err
	}
	if magic != serializeMagic {
		return nil, fmt.Errorf("bad module magic %08x", magic)
	}
	order, err := in.ReadBigInt()
	if err != nil {
		return nil, err
	}
	m := &Module{Field: field.GetFieldFromOrder(order)}
	nbStructs, err := in.ReadUint32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < nbStructs; i++ {
		s := &StructDef{}
		if s.Name, err = in.ReadString(); err != nil {
			return nil, err
		}
		nbMembers, err := in.ReadUint32()
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < nbMembers; j++ {
			var mem Member
			if mem.Name, err = in.ReadString(); err != nil {
				return nil, err
			}
			pub, err := in.ReadUint32()
			if err != nil {
				return nil, err
			}
			mem.Public = pub != 0
			s.Members = append(s.Members, mem)
		}
		if s.Compute, err = deserializeFunction(in, m); err != nil {
			return nil, err
		}
		if s.Constrain, err = deserializeFunction(in, m); err != nil {
			return nil, err
		}
		m.Structs = append(m.Structs, s)
	}
	if !in.IsEnd() {
		return nil, fmt.Errorf("trailing bytes after module")
	}
	if err := Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}
