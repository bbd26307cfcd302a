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

package rle

import (
	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/container/vector"
	v2 "github.com/matrixorigin/rleseg/pkg/util/metric/v2"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/filter"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/iface/txnif"
)

// Select scans vector vectorIndex into result and narrows sel[:approved],
// offsets into the scanned vector, to the rows passing every filter. A nil
// sel selects the whole vector.
func (seg *Segment) Select(
	reader txnif.TxnReader,
	state *ScanState,
	vectorIndex int,
	result *vector.Vector,
	sel []uint32,
	approved int,
	filters []filter.Filter) ([]uint32, int) {
	seg.RLock()
	defer seg.RUnlock()
	return seg.SelectLocked(reader, state, vectorIndex, result, sel, approved, filters)
}

func (seg *Segment) SelectLocked(
	reader txnif.TxnReader,
	state *ScanState,
	vectorIndex int,
	result *vector.Vector,
	sel []uint32,
	approved int,
	filters []filter.Filter) ([]uint32, int) {
	offset := result.Length()
	seg.ScanLocked(reader, state, vectorIndex, result)
	count := result.Length() - offset
	if sel == nil {
		sel = make([]uint32, count)
		for i := range sel {
			sel[i] = uint32(i)
		}
		approved = count
	}
	if approved > len(sel) {
		seg.fatal(moerr.NewOutOfRangeNoCtx("selection", "approved %d of %d", approved, len(sel)))
	}
	v2.RLESelectInputCounter.Add(float64(approved))
	if len(filters) == 0 {
		v2.RLESelectApprovedCounter.Add(float64(approved))
		return sel, approved
	}
	out := sel[:0]
	for _, idx := range sel[:approved] {
		if int(idx) >= count {
			seg.fatal(moerr.NewOutOfRangeNoCtx("selection", "row %d of a %d row vector", idx, count))
		}
		pos := offset + int(idx)
		isNull := result.IsNull(pos)
		var v any
		if !isNull {
			v = result.Get(pos)
		}
		if evalFilters(filters, v, isNull) {
			out = append(out, idx)
		}
	}
	v2.RLESelectApprovedCounter.Add(float64(len(out)))
	return out, len(out)
}

// evalFilters stops at the first rejecting filter. Nulls fail a filter
// that does not accept them without evaluating it.
func evalFilters(filters []filter.Filter, v any, isNull bool) bool {
	for _, f := range filters {
		if isNull && !f.AcceptsNull() {
			return false
		}
		if !f.Eval(v, isNull) {
			return false
		}
	}
	return true
}
