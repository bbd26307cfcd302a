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
	"encoding/binary"
	"sort"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/container/types"
	v2 "github.com/matrixorigin/rleseg/pkg/util/metric/v2"
)

// runHeaderSize bytes of the little endian run length of a record.
const runHeaderSize = 4

// runStore the packed runs of a segment block:
//
//	[null bitmap: bitmapSize bytes, bit i set when row i is null]
//	[run 0: length u32][value] [run 1: length u32][value] ...
//
// A run is either all null or all not null, null runs store zeroed bytes.
type runStore struct {
	buf        []byte
	bitmapSize int
	width      int
	recordSize int
	capacity   int
	maxRows    uint32
	linearRuns int

	runCount int
	rowCount uint32
	// runEnds[i] the row following run i
	runEnds []uint32
}

func newRunStore(buf []byte, bitmapSize, width int, maxRows uint32, linearRuns int) *runStore {
	recordSize := runHeaderSize + width
	return &runStore{
		buf:        buf,
		bitmapSize: bitmapSize,
		width:      width,
		recordSize: recordSize,
		capacity:   (len(buf) - bitmapSize) / recordSize,
		maxRows:    maxRows,
		linearRuns: linearRuns,
	}
}

func (rs *runStore) reset() {
	for i := 0; i < rs.bitmapSize; i++ {
		rs.buf[i] = 0
	}
	rs.runCount = 0
	rs.rowCount = 0
	rs.runEnds = rs.runEnds[:0]
}

// load rebuilds the run index from the first runCount records of the block.
func (rs *runStore) load(runCount int) error {
	if runCount < 0 || runCount > rs.capacity {
		return moerr.NewInternalErrorNoCtx("run count %d exceeds block capacity %d", runCount, rs.capacity)
	}
	rs.runCount = runCount
	rs.runEnds = make([]uint32, 0, runCount)
	var rows uint64
	for i := 0; i < runCount; i++ {
		n := rs.runLen(i)
		if n == 0 {
			return moerr.NewInternalErrorNoCtx("run %d is empty", i)
		}
		rows += uint64(n)
		if rows > uint64(rs.maxRows) {
			return moerr.NewInternalErrorNoCtx("runs cover %d rows, more than %d", rows, rs.maxRows)
		}
		rs.runEnds = append(rs.runEnds, uint32(rows))
	}
	rs.rowCount = uint32(rows)
	return nil
}

func (rs *runStore) record(i int) []byte {
	if i < 0 || i >= rs.runCount {
		panic(moerr.NewInternalErrorNoCtx("run %d out of range [0, %d)", i, rs.runCount))
	}
	off := rs.bitmapSize + i*rs.recordSize
	return rs.buf[off : off+rs.recordSize]
}

func (rs *runStore) runLen(i int) uint32 {
	return binary.LittleEndian.Uint32(rs.record(i))
}

func (rs *runStore) value(i int) []byte {
	return rs.record(i)[runHeaderSize:]
}

func (rs *runStore) runStart(i int) uint32 {
	if i == 0 {
		return 0
	}
	return rs.runEnds[i-1]
}

func (rs *runStore) isNullRow(row uint32) bool {
	return rs.buf[row>>3]&(1<<(row&7)) != 0
}

func (rs *runStore) runIsNull(i int) bool {
	return rs.isNullRow(rs.runStart(i))
}

func (rs *runStore) setNullRows(start, n uint32) {
	for row := start; row < start+n; row++ {
		rs.buf[row>>3] |= 1 << (row & 7)
	}
}

func (rs *runStore) hasRoom() bool {
	return rs.runCount < rs.capacity
}

// tryExtendLast grows the last run by n rows if it holds raw with the same
// nullness.
func (rs *runStore) tryExtendLast(raw []byte, isNull bool, n uint32) bool {
	last := rs.runCount - 1
	if last < 0 || rs.runIsNull(last) != isNull || !types.BitEqual(rs.value(last), raw) {
		return false
	}
	rec := rs.record(last)
	binary.LittleEndian.PutUint32(rec, binary.LittleEndian.Uint32(rec)+n)
	if isNull {
		rs.setNullRows(rs.rowCount, n)
	}
	rs.rowCount += n
	rs.runEnds[last] = rs.rowCount
	v2.RLERunExtendedCounter.Inc()
	return true
}

func (rs *runStore) appendRun(raw []byte, isNull bool, n uint32) {
	off := rs.bitmapSize + rs.runCount*rs.recordSize
	rec := rs.buf[off : off+rs.recordSize]
	binary.LittleEndian.PutUint32(rec, n)
	copy(rec[runHeaderSize:], raw)
	if isNull {
		rs.setNullRows(rs.rowCount, n)
	}
	rs.runCount++
	rs.rowCount += n
	rs.runEnds = append(rs.runEnds, rs.rowCount)
	v2.RLERunWrittenCounter.Inc()
}

// locateRun returns the run holding row and the offset of row in it.
func (rs *runStore) locateRun(row uint32) (int, uint32) {
	if row >= rs.rowCount {
		panic(moerr.NewOutOfRangeNoCtx("row", "row %d of %d", row, rs.rowCount))
	}
	if rs.runCount <= rs.linearRuns {
		var start uint32
		for i := 0; i < rs.runCount; i++ {
			n := rs.runLen(i)
			if row < start+n {
				return i, row - start
			}
			start += n
		}
		panic(moerr.NewInternalErrorNoCtx("row %d not covered by %d runs", row, rs.runCount))
	}
	i := sort.Search(rs.runCount, func(i int) bool {
		return rs.runEnds[i] > row
	})
	if i == rs.runCount {
		panic(moerr.NewInternalErrorNoCtx("row %d not covered by %d runs", row, rs.runCount))
	}
	return i, row - rs.runStart(i)
}

// seek resumes from state when it stopped right before row. A cursor left
// at the end of the store is relocated, appends may have extended the last
// run since.
func (rs *runStore) seek(state *ScanState, row uint32) (int, uint32) {
	if state.inited && state.nextRow == row && state.runIdx < rs.runCount &&
		rs.runStart(state.runIdx)+state.runOffset == row {
		return state.runIdx, state.runOffset
	}
	return rs.locateRun(row)
}
