// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package types

import (
	"math"
	"unsafe"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
)

const (
	DateSize      int32 = 4
	DatetimeSize  int32 = 8
	TimestampSize int32 = 8
)

func EncodeSlice[T any](v []T) []byte {
	var t T
	sz := int(unsafe.Sizeof(t))
	if len(v) > 0 {
		return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*sz)[:len(v)*sz]
	}
	return nil
}

func DecodeSlice[T any](v []byte) []T {
	var t T
	sz := int(unsafe.Sizeof(t))

	if len(v)%sz != 0 {
		panic(moerr.NewInternalErrorNoCtx("decode slice that is not a multiple of element size"))
	}

	if len(v) > 0 {
		return unsafe.Slice((*T)(unsafe.Pointer(&v[0])), len(v)/sz)[:len(v)/sz]
	}
	return nil
}

// EncodeFixed returns a copy of the in-memory representation of v.
func EncodeFixed[T FixedSizeT](v T) []byte {
	sz := unsafe.Sizeof(v)
	buf := make([]byte, sz)
	copy(buf, unsafe.Slice((*byte)(unsafe.Pointer(&v)), sz))
	return buf
}

// DecodeFixed reads a T from the head of v, v must hold at least sizeof(T) bytes.
func DecodeFixed[T FixedSizeT](v []byte) T {
	var t T
	sz := int(unsafe.Sizeof(t))
	if len(v) < sz {
		panic(moerr.NewInternalErrorNoCtx("decode fixed from %d bytes, need %d", len(v), sz))
	}
	// copy instead of a pointer cast, v may sit at any offset of a block
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&t)), sz), v)
	return t
}

// PutFixed writes v into the head of dst.
func PutFixed[T FixedSizeT](dst []byte, v T) {
	sz := int(unsafe.Sizeof(v))
	if len(dst) < sz {
		panic(moerr.NewInternalErrorNoCtx("put fixed into %d bytes, need %d", len(dst), sz))
	}
	copy(dst, unsafe.Slice((*byte)(unsafe.Pointer(&v)), sz))
}

// DecodeValue decodes one raw value of typ into its go type.
func DecodeValue(typ Type, v []byte) any {
	switch typ.Oid {
	case T_bool:
		return DecodeFixed[bool](v)
	case T_int8:
		return DecodeFixed[int8](v)
	case T_int16:
		return DecodeFixed[int16](v)
	case T_int32:
		return DecodeFixed[int32](v)
	case T_int64:
		return DecodeFixed[int64](v)
	case T_uint8:
		return DecodeFixed[uint8](v)
	case T_uint16:
		return DecodeFixed[uint16](v)
	case T_uint32:
		return DecodeFixed[uint32](v)
	case T_uint64:
		return DecodeFixed[uint64](v)
	case T_float32:
		return DecodeFixed[float32](v)
	case T_float64:
		return DecodeFixed[float64](v)
	case T_date:
		return DecodeFixed[Date](v)
	case T_datetime:
		return DecodeFixed[Datetime](v)
	case T_timestamp:
		return DecodeFixed[Timestamp](v)
	}
	panic(moerr.NewNotSupportedNoCtx("decode value of type %s", typ))
}

// EncodeValue encodes v, which must be the go type of typ.
func EncodeValue(typ Type, v any) ([]byte, error) {
	switch typ.Oid {
	case T_bool:
		if x, ok := v.(bool); ok {
			return EncodeFixed(x), nil
		}
	case T_int8:
		if x, ok := v.(int8); ok {
			return EncodeFixed(x), nil
		}
	case T_int16:
		if x, ok := v.(int16); ok {
			return EncodeFixed(x), nil
		}
	case T_int32:
		if x, ok := v.(int32); ok {
			return EncodeFixed(x), nil
		}
	case T_int64:
		if x, ok := v.(int64); ok {
			return EncodeFixed(x), nil
		}
	case T_uint8:
		if x, ok := v.(uint8); ok {
			return EncodeFixed(x), nil
		}
	case T_uint16:
		if x, ok := v.(uint16); ok {
			return EncodeFixed(x), nil
		}
	case T_uint32:
		if x, ok := v.(uint32); ok {
			return EncodeFixed(x), nil
		}
	case T_uint64:
		if x, ok := v.(uint64); ok {
			return EncodeFixed(x), nil
		}
	case T_float32:
		if x, ok := v.(float32); ok {
			return EncodeFixed(x), nil
		}
	case T_float64:
		if x, ok := v.(float64); ok {
			return EncodeFixed(x), nil
		}
	case T_date:
		if x, ok := v.(Date); ok {
			return EncodeFixed(x), nil
		}
	case T_datetime:
		if x, ok := v.(Datetime); ok {
			return EncodeFixed(x), nil
		}
	case T_timestamp:
		if x, ok := v.(Timestamp); ok {
			return EncodeFixed(x), nil
		}
	default:
		return nil, moerr.NewNotSupportedNoCtx("encode value of type %s", typ)
	}
	return nil, moerr.NewInvalidInputNoCtx("value %v(%T) is not of type %s", v, v, typ)
}

// BitEqual reports whether two raw values are byte-for-byte identical.
// Floats compare by bit pattern so NaN equals itself and 0 differs from -0.
func BitEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// FloatBitsEqual64 the bitwise equality used for float64 runs.
func FloatBitsEqual64(a, b float64) bool {
	return math.Float64bits(a) == math.Float64bits(b)
}

// FloatBitsEqual32 the bitwise equality used for float32 runs.
func FloatBitsEqual32(a, b float32) bool {
	return math.Float32bits(a) == math.Float32bits(b)
}
