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
	"unsafe"

	"github.com/RoaringBitmap/roaring"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/container/nulls"
	"github.com/matrixorigin/rleseg/pkg/container/types"
	"github.com/matrixorigin/rleseg/pkg/container/vector"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/index"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/updates"
)

type appendFunc func(seg *Segment, stats index.StatsSink, vec *vector.Vector, offset, count int) int

type updateFunc func(stats index.StatsSink, vec *vector.Vector, payload *updates.Payload)

type fetchUpdateInfoFunc func(payload *updates.Payload, slot int, result *vector.Vector, pos int)

type mergeUpdateFunc func(node *updates.UpdateNode, cache updates.SpillCache, start, end uint32, result *vector.Vector, resultOffset int, done *roaring.Bitmap)

type decompressFunc func(seg *Segment, state *ScanState, start uint32, count int, result *vector.Vector)

// dispatch the per type functions of a segment, bound once on creation.
type dispatch struct {
	append          appendFunc
	update          updateFunc
	fetchUpdateInfo fetchUpdateInfoFunc
	mergeUpdate     mergeUpdateFunc
	decompress      decompressFunc
}

func getDispatch(typ types.Type) *dispatch {
	switch typ.Oid {
	case types.T_bool:
		return newDispatch[bool](equal[bool])
	case types.T_int8:
		return newDispatch[int8](equal[int8])
	case types.T_int16:
		return newDispatch[int16](equal[int16])
	case types.T_int32:
		return newDispatch[int32](equal[int32])
	case types.T_int64:
		return newDispatch[int64](equal[int64])
	case types.T_uint8:
		return newDispatch[uint8](equal[uint8])
	case types.T_uint16:
		return newDispatch[uint16](equal[uint16])
	case types.T_uint32:
		return newDispatch[uint32](equal[uint32])
	case types.T_uint64:
		return newDispatch[uint64](equal[uint64])
	case types.T_float32:
		return newDispatch[float32](types.FloatBitsEqual32)
	case types.T_float64:
		return newDispatch[float64](types.FloatBitsEqual64)
	case types.T_date:
		return newDispatch[types.Date](equal[types.Date])
	case types.T_datetime:
		return newDispatch[types.Datetime](equal[types.Datetime])
	case types.T_timestamp:
		return newDispatch[types.Timestamp](equal[types.Timestamp])
	}
	panic(moerr.NewInternalErrorNoCtx("rle segment of unsupported type %s", typ))
}

// IsSupported reports whether a segment can hold values of typ.
func IsSupported(typ types.Type) bool {
	switch typ.Oid {
	case types.T_bool,
		types.T_int8, types.T_int16, types.T_int32, types.T_int64,
		types.T_uint8, types.T_uint16, types.T_uint32, types.T_uint64,
		types.T_float32, types.T_float64,
		types.T_date, types.T_datetime, types.T_timestamp:
		return true
	}
	return false
}

func equal[T types.FixedSizeT](a, b T) bool {
	return a == b
}

func newDispatch[T types.FixedSizeT](eq func(a, b T) bool) *dispatch {
	return &dispatch{
		append:          appendRuns[T](eq),
		update:          updateValues[T],
		fetchUpdateInfo: fetchUpdateInfo[T],
		mergeUpdate:     mergeUpdate[T],
		decompress:      decompress[T],
	}
}

// appendRuns cuts the input into maximal runs and merges each into the
// store, extending the last run when value and nullness match.
func appendRuns[T types.FixedSizeT](eq func(a, b T) bool) appendFunc {
	return func(seg *Segment, stats index.StatsSink, vec *vector.Vector, offset, count int) int {
		rs := seg.store
		vals := vector.MustFixedCol[T](vec)
		nsp := vec.GetNulls()
		raw := make([]byte, rs.width)
		end := offset + count
		appended := 0
		for i := offset; i < end; {
			room := rs.maxRows - rs.rowCount
			if room == 0 {
				break
			}
			isNull := nulls.Contains(nsp, uint32(i))
			j := i + 1
			for j < end && nulls.Contains(nsp, uint32(j)) == isNull && (isNull || eq(vals[j], vals[i])) {
				j++
			}
			n := uint32(j - i)
			if n > room {
				n = room
			}
			var v T
			if !isNull {
				v = vals[i]
			}
			types.PutFixed(raw, v)
			if !rs.tryExtendLast(raw, isNull, n) {
				if !rs.hasRoom() {
					break
				}
				rs.appendRun(raw, isNull, n)
			}
			for k := uint32(0); k < n; k++ {
				if isNull {
					stats.UpdateNull()
				} else {
					stats.Update(raw)
				}
			}
			appended += int(n)
			i += int(n)
		}
		return appended
	}
}

// updateValues copies the replacement values into the payload.
func updateValues[T types.FixedSizeT](stats index.StatsSink, vec *vector.Vector, payload *updates.Payload) {
	var zero T
	w := int(unsafe.Sizeof(zero))
	src := vector.MustFixedCol[T](vec)
	dst := types.DecodeSlice[T](payload.Vals)
	nsp := vec.GetNulls()
	for i := range src {
		if nulls.Contains(nsp, uint32(i)) {
			dst[i] = zero
			payload.Nulls.Add(uint32(i))
			stats.UpdateNull()
			continue
		}
		dst[i] = src[i]
		stats.Update(payload.Vals[i*w : (i+1)*w])
	}
}

func fetchUpdateInfo[T types.FixedSizeT](payload *updates.Payload, slot int, result *vector.Vector, pos int) {
	out := vector.MustFixedCol[T](result)
	if payload.Nulls.Contains(uint32(slot)) {
		var zero T
		out[pos] = zero
		nulls.Add(result.GetNulls(), uint32(pos))
		return
	}
	out[pos] = types.DecodeSlice[T](payload.Vals)[slot]
	nulls.Del(result.GetNulls(), uint32(pos))
}

// mergeUpdate writes the rows of node in [start, end) onto result, where
// result[resultOffset] holds row start. Rows in done were written by a newer
// node and are skipped.
func mergeUpdate[T types.FixedSizeT](node *updates.UpdateNode, cache updates.SpillCache, start, end uint32, result *vector.Vector, resultOffset int, done *roaring.Bitmap) {
	lo, hi := node.SlotRange(start, end)
	if lo == hi {
		return
	}
	payload := node.GetPayloadCachedLocked(cache)
	vals := types.DecodeSlice[T](payload.Vals)
	out := vector.MustFixedCol[T](result)
	nsp := result.GetNulls()
	rows := node.GetRows()
	for slot := lo; slot < hi; slot++ {
		row := rows[slot]
		if !done.CheckedAdd(row) {
			continue
		}
		pos := resultOffset + int(row-start)
		if payload.Nulls.Contains(uint32(slot)) {
			var zero T
			out[pos] = zero
			nulls.Add(nsp, uint32(pos))
			continue
		}
		out[pos] = vals[slot]
		nulls.Del(nsp, uint32(pos))
	}
}

// decompress appends rows [start, start+count) to result, resuming from
// state when start is the row following the previous call.
func decompress[T types.FixedSizeT](seg *Segment, state *ScanState, start uint32, count int, result *vector.Vector) {
	rs := seg.store
	base := result.Length()
	result.Extend(count)
	out := vector.MustFixedCol[T](result)[base:]
	nsp := result.GetNulls()
	idx, off := rs.seek(state, start)
	for pos := 0; pos < count; {
		runLen := rs.runLen(idx)
		n := int(runLen - off)
		if n > count-pos {
			n = count - pos
		}
		if rs.runIsNull(idx) {
			nulls.AddRange(nsp, uint64(base+pos), uint64(base+pos+n))
		} else {
			v := types.DecodeFixed[T](rs.value(idx))
			for k := pos; k < pos+n; k++ {
				out[k] = v
			}
		}
		pos += n
		off += uint32(n)
		if off == runLen {
			idx++
			off = 0
		}
	}
	state.advance(idx, off, start+uint32(count))
}
