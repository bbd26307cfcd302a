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

package index

import (
	"fmt"
	"sync"

	hll "github.com/axiomhq/hyperloglog"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/container/types"
	"github.com/matrixorigin/rleseg/pkg/container/vector"
)

// ZoneMap tracks min, max, null count, row count and an approximate
// distinct count of the values of one segment.
type ZoneMap struct {
	sync.RWMutex
	typ     types.Type
	inited  bool
	min     []byte
	max     []byte
	nullCnt uint64
	rowCnt  uint64
	sketch  *hll.Sketch
}

func NewZoneMap(typ types.Type) *ZoneMap {
	return &ZoneMap{
		typ:    typ,
		min:    make([]byte, typ.TypeSize()),
		max:    make([]byte, typ.TypeSize()),
		sketch: hll.New(),
	}
}

func (zm *ZoneMap) GetType() types.Type {
	return zm.typ
}

func (zm *ZoneMap) Update(v []byte) {
	zm.Lock()
	defer zm.Unlock()
	zm.rowCnt++
	zm.sketch.Insert(v)
	// NaN never passes a bounded filter, keep it out of min and max
	if types.IsNaN(types.DecodeValue(zm.typ, v)) {
		return
	}
	if !zm.inited {
		copy(zm.min, v)
		copy(zm.max, v)
		zm.inited = true
		return
	}
	if types.CompareRaw(zm.typ, v, zm.min) < 0 {
		copy(zm.min, v)
	}
	if types.CompareRaw(zm.typ, v, zm.max) > 0 {
		copy(zm.max, v)
	}
}

func (zm *ZoneMap) UpdateNull() {
	zm.Lock()
	defer zm.Unlock()
	zm.rowCnt++
	zm.nullCnt++
}

// BatchUpdate feeds rows [offset, offset+length) of vec, length -1 means to the end.
func (zm *ZoneMap) BatchUpdate(vec *vector.Vector, offset, length int) error {
	if !vec.GetType().Eq(zm.typ) {
		return moerr.NewInvalidInputNoCtx("update %s zonemap with %s vector", zm.typ, vec.GetType())
	}
	if length < 0 {
		length = vec.Length() - offset
	}
	if offset < 0 || offset+length > vec.Length() {
		return moerr.NewInvalidInputNoCtx("batch [%d, %d) out of vector length %d", offset, offset+length, vec.Length())
	}
	for i := offset; i < offset+length; i++ {
		if vec.IsNull(i) {
			zm.UpdateNull()
			continue
		}
		zm.Update(vec.GetRaw(i))
	}
	return nil
}

func (zm *ZoneMap) Inited() bool {
	zm.RLock()
	defer zm.RUnlock()
	return zm.inited
}

// GetMin returns the decoded min value, nil before any non-null update.
func (zm *ZoneMap) GetMin() any {
	zm.RLock()
	defer zm.RUnlock()
	if !zm.inited {
		return nil
	}
	return types.DecodeValue(zm.typ, zm.min)
}

func (zm *ZoneMap) GetMax() any {
	zm.RLock()
	defer zm.RUnlock()
	if !zm.inited {
		return nil
	}
	return types.DecodeValue(zm.typ, zm.max)
}

func (zm *ZoneMap) NullCount() uint64 {
	zm.RLock()
	defer zm.RUnlock()
	return zm.nullCnt
}

func (zm *ZoneMap) RowCount() uint64 {
	zm.RLock()
	defer zm.RUnlock()
	return zm.rowCnt
}

// DistinctEstimate approximate number of distinct non-null values.
func (zm *ZoneMap) DistinctEstimate() uint64 {
	zm.RLock()
	defer zm.RUnlock()
	return zm.sketch.Estimate()
}

// MayContainsKey returns false only when key is outside [min, max].
func (zm *ZoneMap) MayContainsKey(key any) (bool, error) {
	raw, err := types.EncodeValue(zm.typ, key)
	if err != nil {
		return false, err
	}
	zm.RLock()
	defer zm.RUnlock()
	if !zm.inited {
		return false, nil
	}
	return types.CompareRaw(zm.typ, raw, zm.min) >= 0 && types.CompareRaw(zm.typ, raw, zm.max) <= 0, nil
}

// MayContainsRange returns false only when no value in [lo, hi] can exist.
// A nil bound is open.
func (zm *ZoneMap) MayContainsRange(lo, hi any) bool {
	zm.RLock()
	defer zm.RUnlock()
	if !zm.inited {
		return false
	}
	if lo != nil && types.CompareValue(types.DecodeValue(zm.typ, zm.max), lo) < 0 {
		return false
	}
	if hi != nil && types.CompareValue(types.DecodeValue(zm.typ, zm.min), hi) > 0 {
		return false
	}
	return true
}

func (zm *ZoneMap) String() string {
	zm.RLock()
	defer zm.RUnlock()
	if !zm.inited {
		return fmt.Sprintf("ZM(%s)[-,-] nulls=%d rows=%d", zm.typ, zm.nullCnt, zm.rowCnt)
	}
	return fmt.Sprintf("ZM(%s)[%v,%v] nulls=%d rows=%d ndv~%d", zm.typ,
		types.DecodeValue(zm.typ, zm.min), types.DecodeValue(zm.typ, zm.max),
		zm.nullCnt, zm.rowCnt, zm.sketch.Estimate())
}
