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
	"github.com/RoaringBitmap/roaring"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/container/vector"
	v2 "github.com/matrixorigin/rleseg/pkg/util/metric/v2"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/iface/txnif"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/updates"
)

// ScanState the decode cursor of a sequential scan. It is owned by one
// reader and resumes decoding where the previous vector stopped.
type ScanState struct {
	inited    bool
	runIdx    int
	runOffset uint32
	nextRow   uint32
}

func (state *ScanState) advance(runIdx int, runOffset, nextRow uint32) {
	state.inited = true
	state.runIdx = runIdx
	state.runOffset = runOffset
	state.nextRow = nextRow
}

// FetchState caches the run of the last fetched row.
type FetchState struct {
	valid    bool
	runIdx   int
	runStart uint32
	runEnd   uint32
}

// InitializeScan positions state at the first row of the segment.
func (seg *Segment) InitializeScan(state *ScanState) {
	state.advance(0, 0, 0)
}

func (seg *Segment) vectorRangeLocked(vectorIndex int) (uint32, int) {
	size := seg.opts.StorageCfg.VectorSize
	rows := seg.store.rowCount
	if vectorIndex < 0 || uint64(vectorIndex)*uint64(size) >= uint64(rows) {
		seg.fatal(moerr.NewOutOfRangeNoCtx("vector", "vector %d of %s with %d rows",
			vectorIndex, seg.id.SegmentString(), rows))
	}
	start := uint32(vectorIndex) * size
	count := rows - start
	if count > size {
		count = size
	}
	return start, int(count)
}

// Scan appends the rows of vector vectorIndex as visible to reader.
func (seg *Segment) Scan(reader txnif.TxnReader, state *ScanState, vectorIndex int, result *vector.Vector) {
	seg.RLock()
	defer seg.RUnlock()
	seg.ScanLocked(reader, state, vectorIndex, result)
}

// ScanLocked is Scan for a caller holding the segment lock.
func (seg *Segment) ScanLocked(reader txnif.TxnReader, state *ScanState, vectorIndex int, result *vector.Vector) {
	start, count := seg.vectorRangeLocked(vectorIndex)
	offset := result.Length()
	seg.fns.decompress(seg, state, start, count, result)
	v2.RLEScanBaseCounter.Inc()
	end := start + uint32(count)
	if !seg.chain.HasUpdatesInRangeLocked(start, end) {
		return
	}
	seg.mergeUpdatesLocked(reader, start, end, result, offset)
	v2.RLEScanMergedCounter.Inc()
}

// FetchBaseData appends the committed base rows of vector vectorIndex,
// ignoring every update.
func (seg *Segment) FetchBaseData(state *ScanState, vectorIndex int, result *vector.Vector) {
	seg.RLock()
	defer seg.RUnlock()
	start, count := seg.vectorRangeLocked(vectorIndex)
	seg.fns.decompress(seg, state, start, count, result)
	v2.RLEScanBaseCounter.Inc()
}

// mergeUpdatesLocked applies the newest visible update of every row of
// [start, end) onto result, where result[offset] holds row start.
func (seg *Segment) mergeUpdatesLocked(reader txnif.TxnReader, start, end uint32, result *vector.Vector, offset int) {
	cache, err := seg.chain.LoadSpilledLocked(start, end)
	if err != nil {
		seg.fatal(moerr.NewInternalErrorNoCtx("load spilled payloads of %s: %v", seg.id.SegmentString(), err))
	}
	done := roaring.New()
	seg.chain.LoopVisibleLocked(reader, func(node *updates.UpdateNode) bool {
		if node.MaxRow() < start || node.MinRow() >= end {
			return true
		}
		seg.fns.mergeUpdate(node, cache, start, end, result, offset, done)
		return true
	})
}

func (seg *Segment) checkRowLocked(row uint32) {
	if row >= seg.store.rowCount {
		seg.fatal(moerr.NewOutOfRangeNoCtx("row", "row %d of %s with %d rows",
			row, seg.id.SegmentString(), seg.store.rowCount))
	}
}

// fetchBaseLocked appends the base value of row.
func (seg *Segment) fetchBaseLocked(state *FetchState, row uint32, result *vector.Vector) {
	rs := seg.store
	if !state.valid || row < state.runStart || row >= state.runEnd || state.runIdx >= rs.runCount {
		idx, off := rs.locateRun(row)
		state.valid = true
		state.runIdx = idx
		state.runStart = row - off
		state.runEnd = rs.runEnds[idx]
	}
	if rs.runIsNull(state.runIdx) {
		result.AppendRaw(nil, true)
		return
	}
	result.AppendRaw(rs.value(state.runIdx), false)
}

// fetchUpdatesLocked overwrites result[offset+i] with the newest update of
// rows[i] visible to reader. Rows without one keep their value.
func (seg *Segment) fetchUpdatesLocked(reader txnif.TxnReader, rows []uint32, result *vector.Vector, offset int) {
	if seg.chain.DepthLocked() == 0 {
		return
	}
	pending := roaring.BitmapOf(rows...)
	pending.And(seg.chain.UpdatedRowsLocked(0, seg.store.rowCount))
	if pending.IsEmpty() {
		return
	}
	cache, err := seg.chain.LoadSpilledLocked(pending.Minimum(), pending.Maximum()+1)
	if err != nil {
		seg.fatal(moerr.NewInternalErrorNoCtx("load spilled payloads of %s: %v", seg.id.SegmentString(), err))
	}
	positions := make(map[uint32][]int, pending.GetCardinality())
	for i, row := range rows {
		if pending.Contains(row) {
			positions[row] = append(positions[row], offset+i)
		}
	}
	seg.chain.LoopVisibleLocked(reader, func(node *updates.UpdateNode) bool {
		hit := roaring.And(pending, node.GetMask())
		if hit.IsEmpty() {
			return true
		}
		payload := node.GetPayloadCachedLocked(cache)
		it := hit.Iterator()
		for it.HasNext() {
			row := it.Next()
			slot, _ := node.SlotOf(row)
			for _, pos := range positions[row] {
				seg.fns.fetchUpdateInfo(payload, slot, result, pos)
			}
		}
		pending.AndNot(hit)
		return !pending.IsEmpty()
	})
}

// FetchRow appends the value of row as visible to reader.
func (seg *Segment) FetchRow(state *FetchState, reader txnif.TxnReader, row uint32, result *vector.Vector) {
	seg.RLock()
	defer seg.RUnlock()
	seg.FetchRowLocked(state, reader, row, result)
}

func (seg *Segment) FetchRowLocked(state *FetchState, reader txnif.TxnReader, row uint32, result *vector.Vector) {
	seg.checkRowLocked(row)
	seg.fetchBaseLocked(state, row, result)
	if val, isNull, ok := seg.chain.GetValueLocked(reader, row); ok {
		result.SetRaw(result.Length()-1, val, isNull)
	}
	v2.RLEFetchRowCounter.Inc()
}

// FetchUpdateData appends the values of rows as visible to reader, in the
// given order.
func (seg *Segment) FetchUpdateData(reader txnif.TxnReader, rows []uint32, result *vector.Vector) {
	seg.RLock()
	defer seg.RUnlock()
	seg.FetchUpdateDataLocked(reader, rows, result)
}

func (seg *Segment) FetchUpdateDataLocked(reader txnif.TxnReader, rows []uint32, result *vector.Vector) {
	offset := result.Length()
	state := new(FetchState)
	for _, row := range rows {
		seg.checkRowLocked(row)
		seg.fetchBaseLocked(state, row, result)
	}
	seg.fetchUpdatesLocked(reader, rows, result, offset)
}
