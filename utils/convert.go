package utils

import (
	"fmt"
	"math/big"
)

// FromInterface converts common numeric representations into a big.Int.
// Panics on unsupported types since a bad literal is a programming error.
func FromInterface(i interface{}) big.Int {
	var val big.Int
	switch v := i.(type) {
	case big.Int:
		val.Set(&v)
	case *big.Int:
		val.Set(v)
	case uint64:
		val.SetUint64(v)
	case uint:
		val.SetUint64(uint64(v))
	case int64:
		val.SetInt64(v)
	case int:
		val.SetInt64(int64(v))
	case string:
		if _, ok := val.SetString(v, 10); !ok {
			panic(fmt.Sprintf("unable to parse %q as a decimal integer", v))
		}
	case []byte:
		val.SetBytes(v)
	default:
		panic(fmt.Sprintf("value of type %T is not convertible to a field element", i))
	}
	return val
}
