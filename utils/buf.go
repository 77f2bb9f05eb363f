package utils

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// OutputBuf accumulates the little-endian binary encoding of a module.
type OutputBuf struct {
	buf []byte
}

func (o *OutputBuf) AppendBigInt(x *big.Int) {
	zbuf := make([]byte, 32)
	b := x.Bytes()
	for i := 0; i < len(b); i++ {
		zbuf[i] = b[len(b)-i-1]
	}
	for i := len(b); i < 32; i++ {
		zbuf[i] = 0
	}
	o.buf = append(o.buf, zbuf...)
}

func (o *OutputBuf) AppendUint32(x uint32) {
	o.buf = binary.LittleEndian.AppendUint32(o.buf, x)
}

func (o *OutputBuf) AppendUint64(x uint64) {
	o.buf = binary.LittleEndian.AppendUint64(o.buf, x)
}

func (o *OutputBuf) AppendString(s string) {
	o.AppendUint32(uint32(len(s)))
	o.buf = append(o.buf, s...)
}

func (o *OutputBuf) Bytes() []byte {
	return o.buf
}

// InputBuf decodes data written by OutputBuf. Reads fail with an error
// instead of panicking since the input may come from disk.
type InputBuf struct {
	buf []byte
}

func NewInputBuf(buf []byte) *InputBuf {
	return &InputBuf{buf: buf}
}

func (i *InputBuf) ReadUint32() (uint32, error) {
	if len(i.buf) < 4 {
		return 0, fmt.Errorf("input buffer underflow: need 4 bytes, have %d", len(i.buf))
	}
	x := binary.LittleEndian.Uint32(i.buf[:4])
	i.buf = i.buf[4:]
	return x, nil
}

func (i *InputBuf) ReadUint64() (uint64, error) {
	if len(i.buf) < 8 {
		return 0, fmt.Errorf("input buffer underflow: need 8 bytes, have %d", len(i.buf))
	}
	x := binary.LittleEndian.Uint64(i.buf[:8])
	i.buf = i.buf[8:]
	return x, nil
}

func (i *InputBuf) ReadBigInt() (*big.Int, error) {
	if len(i.buf) < 32 {
		return nil, fmt.Errorf("input buffer underflow: need 32 bytes, have %d", len(i.buf))
	}
	zbuf := make([]byte, 32)
	for j := 0; j < 32; j++ {
		zbuf[j] = i.buf[31-j]
	}
	x := new(big.Int).SetBytes(zbuf)
	i.buf = i.buf[32:]
	return x, nil
}

func (i *InputBuf) ReadString() (string, error) {
	n, err := i.ReadUint32()
	if err != nil {
		return "", err
	}
	if len(i.buf) < int(n) {
		return "", fmt.Errorf("input buffer underflow: need %d bytes, have %d", n, len(i.buf))
	}
	s := string(i.buf[:n])
	i.buf = i.buf[int(n):]
	return s, nil
}

func (i *InputBuf) IsEnd() bool {
	return len(i.buf) == 0
}
