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

package vector

import (
	"bytes"
	"fmt"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/container/nulls"
	"github.com/matrixorigin/rleseg/pkg/container/types"
)

// Vector represent a fixed width column
type Vector struct {
	// type represent the type of column
	typ types.Type
	nsp *nulls.Nulls // nulls list

	data   []byte
	length int
}

func NewVector(typ types.Type) *Vector {
	if !typ.IsFixedLen() {
		panic(moerr.NewNotSupportedNoCtx("vector of type %s", typ))
	}
	return &Vector{
		typ: typ,
		nsp: &nulls.Nulls{},
	}
}

// NewVectorWithCapacity preallocates room for n values.
func NewVectorWithCapacity(typ types.Type, n int) *Vector {
	vec := NewVector(typ)
	vec.data = make([]byte, 0, n*typ.TypeSize())
	return vec
}

func (v *Vector) Length() int {
	return v.length
}

func (v *Vector) GetType() *types.Type {
	return &v.typ
}

func (v *Vector) GetNulls() *nulls.Nulls {
	return v.nsp
}

// Reset drops all values but keeps the buffer.
func (v *Vector) Reset() {
	v.data = v.data[:0]
	v.length = 0
	nulls.Reset(v.nsp)
}

func (v *Vector) checkRow(i int) {
	if i < 0 || i >= v.length {
		panic(moerr.NewInternalErrorNoCtx("vector row %d out of range [0, %d)", i, v.length))
	}
}

func (v *Vector) IsNull(i int) bool {
	v.checkRow(i)
	return nulls.Contains(v.nsp, uint32(i))
}

// GetRaw returns the raw bytes of row i, the slice aliases the vector.
func (v *Vector) GetRaw(i int) []byte {
	v.checkRow(i)
	sz := v.typ.TypeSize()
	return v.data[i*sz : (i+1)*sz]
}

// SetRaw overwrites row i.
func (v *Vector) SetRaw(i int, raw []byte, isNull bool) {
	v.checkRow(i)
	sz := v.typ.TypeSize()
	dst := v.data[i*sz : (i+1)*sz]
	if isNull {
		for j := range dst {
			dst[j] = 0
		}
		nulls.Add(v.nsp, uint32(i))
		return
	}
	copy(dst, raw)
	nulls.Del(v.nsp, uint32(i))
}

// AppendRaw appends one raw value, raw is ignored for nulls.
func (v *Vector) AppendRaw(raw []byte, isNull bool) {
	sz := v.typ.TypeSize()
	if isNull {
		for j := 0; j < sz; j++ {
			v.data = append(v.data, 0)
		}
		nulls.Add(v.nsp, uint32(v.length))
	} else {
		if len(raw) != sz {
			panic(moerr.NewInternalErrorNoCtx("append %d bytes to a %s vector", len(raw), v.typ))
		}
		v.data = append(v.data, raw...)
	}
	v.length++
}

// AppendRawN appends the same raw value n times.
func (v *Vector) AppendRawN(raw []byte, isNull bool, n int) {
	if n <= 0 {
		return
	}
	start := v.length
	if isNull {
		v.data = append(v.data, make([]byte, n*v.typ.TypeSize())...)
		nulls.AddRange(v.nsp, uint64(start), uint64(start+n))
	} else {
		for i := 0; i < n; i++ {
			v.data = append(v.data, raw...)
		}
	}
	v.length += n
}

// Extend appends n zeroed non-null values.
func (v *Vector) Extend(n int) {
	if n <= 0 {
		return
	}
	v.data = append(v.data, make([]byte, n*v.typ.TypeSize())...)
	v.length += n
}

// Get returns the decoded value of row i, nil for nulls.
func (v *Vector) Get(i int) any {
	if v.IsNull(i) {
		return nil
	}
	return types.DecodeValue(v.typ, v.GetRaw(i))
}

// Append appends a decoded value, v must be of the vector's go type unless isNull.
func (v *Vector) Append(val any, isNull bool) error {
	if isNull {
		v.AppendRaw(nil, true)
		return nil
	}
	raw, err := types.EncodeValue(v.typ, val)
	if err != nil {
		return err
	}
	v.AppendRaw(raw, false)
	return nil
}

// Window returns a copy of rows [start, end).
func (v *Vector) Window(start, end int) *Vector {
	if start < 0 || end > v.length || start > end {
		panic(moerr.NewInternalErrorNoCtx("window [%d, %d) out of range [0, %d)", start, end, v.length))
	}
	sz := v.typ.TypeSize()
	w := NewVectorWithCapacity(v.typ, end-start)
	w.data = append(w.data, v.data[start*sz:end*sz]...)
	w.length = end - start
	nulls.Range(v.nsp, uint64(start), uint64(end), w.nsp)
	return w
}

// Equals compares type, values and null positions.
func (v *Vector) Equals(o *Vector) bool {
	if !v.typ.Eq(o.typ) || v.length != o.length {
		return false
	}
	if !bytes.Equal(v.data[:v.length*v.typ.TypeSize()], o.data[:o.length*o.typ.TypeSize()]) {
		return false
	}
	return nulls.String(v.nsp) == nulls.String(o.nsp)
}

func (v *Vector) String() string {
	var w bytes.Buffer
	_, _ = fmt.Fprintf(&w, "%s[", v.typ)
	for i := 0; i < v.length; i++ {
		if i > 0 {
			_ = w.WriteByte(' ')
		}
		if v.IsNull(i) {
			_, _ = w.WriteString("null")
			continue
		}
		_, _ = fmt.Fprintf(&w, "%v", v.Get(i))
	}
	_ = w.WriteByte(']')
	return w.String()
}

// MustFixedCol returns the data of a fixed width vector as a typed slice.
func MustFixedCol[T types.FixedSizeT](v *Vector) []T {
	if v.length == 0 {
		return nil
	}
	return types.DecodeSlice[T](v.data[:v.length*v.typ.TypeSize()])
}

func AppendFixed[T types.FixedSizeT](v *Vector, val T, isNull bool) {
	if isNull {
		v.AppendRaw(nil, true)
		return
	}
	v.AppendRaw(types.EncodeFixed(val), false)
}

// NewFromFixed builds a vector from values, rows listed in nullRows are null.
func NewFromFixed[T types.FixedSizeT](typ types.Type, vals []T, nullRows ...uint32) *Vector {
	vec := NewVectorWithCapacity(typ, len(vals))
	isNull := make(map[uint32]bool, len(nullRows))
	for _, r := range nullRows {
		isNull[r] = true
	}
	for i, val := range vals {
		AppendFixed(vec, val, isNull[uint32(i)])
	}
	return vec
}
