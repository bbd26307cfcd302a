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
	"math"
	"sync"
	"testing"

	"github.com/prashantv/gostub"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/container/types"
	"github.com/matrixorigin/rleseg/pkg/container/vector"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/buffer"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/common"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/iface/txnif"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/index"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/options"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/txn/txnbase"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/updates"
)

var (
	int32Type   = types.T_int32.ToType()
	int64Type   = types.T_int64.ToType()
	float64Type = types.T_float64.ToType()
)

func testOptions(maxRows, blockSize uint64, vectorSize uint32) *options.Options {
	opts := &options.Options{
		StorageCfg: &options.StorageCfg{
			BlockSize:      blockSize,
			SegmentMaxRows: maxRows,
			VectorSize:     vectorSize,
		},
		BufferCfg: &options.BufferCfg{Capacity: 64 * blockSize},
	}
	return opts.FillDefaults()
}

func newTestSegmentWithManager(t *testing.T, typ types.Type, opts *options.Options, overflow updates.OverflowStore) (*Segment, buffer.Manager) {
	opts = opts.FillDefaults()
	mgr := buffer.NewManager(buffer.NewSimpleMemoryPool(opts.BufferCfg.Capacity, false), opts.StorageCfg.BlockSize)
	id := common.ID{TableID: 1, SegmentID: common.NextGlobalSeqNum()}
	seg, err := NewSegment(id, typ, 0, mgr, opts, overflow)
	require.NoError(t, err)
	return seg, mgr
}

func newTestSegment(t *testing.T, typ types.Type, opts *options.Options) *Segment {
	seg, _ := newTestSegmentWithManager(t, typ, opts, nil)
	return seg
}

func scanAll(seg *Segment, reader txnif.TxnReader) *vector.Vector {
	result := vector.NewVector(seg.GetType())
	state := new(ScanState)
	seg.InitializeScan(state)
	for i := 0; i < seg.VectorCount(); i++ {
		seg.Scan(reader, state, i, result)
	}
	return result
}

func TestAppendScan(t *testing.T) {
	defer gostub.Stub(&verifyOnAppend, true).Reset()
	seg := newTestSegment(t, int32Type, nil)
	defer seg.Close()

	vec := vector.NewFromFixed(int32Type, []int32{5, 5, 5, 7, 7, 2})
	zm := index.NewZoneMap(int32Type)
	require.Equal(t, 6, seg.Append(zm, vec, 0, vec.Length()))
	require.Equal(t, 3, seg.RunCount())
	require.Equal(t, uint32(6), seg.RowCount())

	runs := [][2]int32{{5, 3}, {7, 2}, {2, 1}}
	for i, run := range runs {
		require.Equal(t, run[0], types.DecodeFixed[int32](seg.store.value(i)))
		require.Equal(t, uint32(run[1]), seg.store.runLen(i))
	}
	require.Equal(t, int32(2), zm.GetMin())
	require.Equal(t, int32(7), zm.GetMax())
	require.Equal(t, uint64(6), zm.RowCount())

	reader := txnbase.NewSnapshotReader(0)
	result := scanAll(seg, reader)
	require.Equal(t, []int32{5, 5, 5, 7, 7, 2}, vector.MustFixedCol[int32](result))
	require.NoError(t, seg.Verify(reader))

	base := vector.NewVector(int32Type)
	seg.FetchBaseData(new(ScanState), 0, base)
	require.True(t, base.Equals(result))
	t.Log(seg.String())
}

func TestAppendEmpty(t *testing.T) {
	seg := newTestSegment(t, int32Type, nil)
	defer seg.Close()
	vec := vector.NewFromFixed(int32Type, []int32{1})
	require.Equal(t, 0, seg.Append(nil, vec, 0, 0))
	require.Equal(t, 0, seg.RunCount())
	require.Equal(t, 0, seg.VectorCount())
}

func TestRoundTripWithNulls(t *testing.T) {
	defer gostub.Stub(&verifyOnAppend, true).Reset()
	seg := newTestSegment(t, int64Type, testOptions(1024, 16*common.K, 8))
	defer seg.Close()

	vals := make([]int64, 0, 100)
	var nullRows []uint32
	for i := 0; i < 100; i++ {
		vals = append(vals, int64(i/7))
		if i%13 == 0 || (i >= 40 && i < 50) {
			nullRows = append(nullRows, uint32(i))
		}
	}
	vec := vector.NewFromFixed(int64Type, vals, nullRows...)
	zm := index.NewZoneMap(int64Type)

	// appended in uneven pieces so runs are extended across calls
	for offset := 0; offset < vec.Length(); {
		count := 9
		if offset+count > vec.Length() {
			count = vec.Length() - offset
		}
		require.Equal(t, count, seg.Append(zm, vec, offset, count))
		offset += count
	}
	require.Equal(t, uint64(len(nullRows)), zm.NullCount())
	require.Equal(t, 13, seg.VectorCount())

	reader := txnbase.NewSnapshotReader(0)
	result := scanAll(seg, reader)
	require.True(t, vec.Equals(result), result.String())

	// scanning the same vector twice decodes the same values
	first, second := vector.NewVector(int64Type), vector.NewVector(int64Type)
	seg.Scan(reader, new(ScanState), 5, first)
	state := new(ScanState)
	seg.InitializeScan(state)
	seg.Scan(reader, state, 4, vector.NewVector(int64Type))
	seg.Scan(reader, state, 5, second)
	require.True(t, first.Equals(second))
}

func TestFloatBitwiseRuns(t *testing.T) {
	seg := newTestSegment(t, float64Type, nil)
	defer seg.Close()
	nan := math.NaN()
	negZero := math.Copysign(0, -1)
	vec := vector.NewFromFixed(float64Type, []float64{nan, nan, 0, negZero, negZero, 1.5})
	require.Equal(t, 6, seg.Append(nil, vec, 0, vec.Length()))
	require.Equal(t, 4, seg.RunCount())

	result := scanAll(seg, txnbase.NewSnapshotReader(0))
	got := vector.MustFixedCol[float64](result)
	require.True(t, math.IsNaN(got[0]) && math.IsNaN(got[1]))
	require.False(t, math.Signbit(got[2]))
	require.True(t, math.Signbit(got[3]) && math.Signbit(got[4]))
	require.Equal(t, 1.5, got[5])
}

func TestMergeInvariant(t *testing.T) {
	defer gostub.Stub(&verifyOnAppend, true).Reset()
	seg := newTestSegment(t, int32Type, nil)
	defer seg.Close()

	appendVals := func(vals []int32, nullRows ...uint32) {
		vec := vector.NewFromFixed(int32Type, vals, nullRows...)
		require.Equal(t, len(vals), seg.Append(nil, vec, 0, len(vals)))
	}
	appendVals([]int32{1, 1})
	appendVals([]int32{1, 2})
	appendVals([]int32{9, 9}, 0, 1)
	appendVals([]int32{3, 2}, 0)
	appendVals([]int32{0, 0})
	// (1,3) (2,1) (null,3) (2,1) (0,2)
	require.Equal(t, 5, seg.RunCount())
	require.NoError(t, seg.Verify(txnbase.NewSnapshotReader(0)))

	result := scanAll(seg, txnbase.NewSnapshotReader(0))
	expect := vector.NewFromFixed(int32Type, []int32{1, 1, 1, 2, 0, 0, 0, 2, 0, 0}, 4, 5, 6)
	require.True(t, expect.Equals(result), result.String())
}

func TestAppendCapacity(t *testing.T) {
	// 8 bytes of bitmap and room for 3 int32 runs
	opts := testOptions(64, 32, 16)
	require.NoError(t, opts.Validate())
	seg := newTestSegment(t, int32Type, opts)
	defer seg.Close()

	vec := vector.NewFromFixed(int32Type, []int32{1, 1, 2, 3, 4, 5})
	require.Equal(t, 4, seg.Append(nil, vec, 0, vec.Length()))
	require.Equal(t, 3, seg.RunCount())
	// the last run still grows
	more := vector.NewFromFixed(int32Type, []int32{3, 3, 4})
	require.Equal(t, 2, seg.Append(nil, more, 0, more.Length()))
	require.Equal(t, uint32(6), seg.RowCount())

	// the row limit cuts a run
	seg2 := newTestSegment(t, int32Type, testOptions(10, 16*common.K, 4))
	defer seg2.Close()
	same := vector.NewFromFixed(int32Type, make([]int32, 15))
	require.Equal(t, 10, seg2.Append(nil, same, 0, same.Length()))
	require.True(t, seg2.IsFull())
	require.Equal(t, 0, seg2.Append(nil, same, 10, 5))
}

func TestLocateRun(t *testing.T) {
	for _, linear := range []uint32{1, 1024} {
		opts := testOptions(4096, 64*common.K, 32)
		opts.StorageCfg.LinearSearchRuns = linear
		seg := newTestSegment(t, int32Type, opts)

		vals := make([]int32, 0, 1000)
		for i := 0; i < 1000; i++ {
			vals = append(vals, int32(i/(1+i%5)))
		}
		vec := vector.NewFromFixed(int32Type, vals, 17, 500, 501, 999)
		require.Equal(t, len(vals), seg.Append(nil, vec, 0, len(vals)))

		reader := txnbase.NewSnapshotReader(0)
		state := new(FetchState)
		result := vector.NewVector(int32Type)
		for _, row := range []uint32{999, 0, 17, 500, 501, 502, 3, 4, 998} {
			seg.FetchRow(state, reader, row, result)
		}
		for i, row := range []uint32{999, 0, 17, 500, 501, 502, 3, 4, 998} {
			require.Equal(t, vec.Get(int(row)), result.Get(i), "row %d", row)
		}
		require.NoError(t, seg.Close())
	}
}

func TestOutOfRange(t *testing.T) {
	seg := newTestSegment(t, int32Type, testOptions(1024, 16*common.K, 4))
	defer seg.Close()
	vec := vector.NewFromFixed(int32Type, []int32{1, 2, 3, 4, 5})
	seg.Append(nil, vec, 0, vec.Length())
	reader := txnbase.NewSnapshotReader(0)

	require.NotPanics(t, func() { seg.Scan(reader, new(ScanState), 1, vector.NewVector(int32Type)) })
	require.Panics(t, func() { seg.Scan(reader, new(ScanState), 2, vector.NewVector(int32Type)) })
	require.Panics(t, func() { seg.Scan(reader, new(ScanState), -1, vector.NewVector(int32Type)) })
	require.Panics(t, func() { seg.FetchRow(new(FetchState), reader, 5, vector.NewVector(int32Type)) })
	require.Panics(t, func() { seg.FetchUpdateData(reader, []uint32{0, 9}, vector.NewVector(int32Type)) })
	require.Panics(t, func() { seg.Append(nil, vec, 3, 4) })
	require.Panics(t, func() {
		seg.Append(nil, vector.NewFromFixed(int64Type, []int64{1}), 0, 1)
	})
}

func TestUnsupportedType(t *testing.T) {
	require.False(t, IsSupported(types.T_varchar.ToType()))
	require.True(t, IsSupported(types.T_timestamp.ToType()))
	mgr := buffer.NewManager(buffer.NewSimpleMemoryPool(common.M, false), 64*common.K)
	opts := testOptions(1024, 64*common.K, 8)
	require.Panics(t, func() {
		_, _ = NewSegment(common.ID{}, types.T_varchar.ToType(), 0, mgr, opts, nil)
	})
}

func TestSegmentLifecycle(t *testing.T) {
	opts := testOptions(1024, 16*common.K, 4)
	seg, mgr := newTestSegmentWithManager(t, types.T_date.ToType(), opts, nil)
	vec := vector.NewFromFixed(types.T_date.ToType(), []types.Date{1, 1, 2, 3, 3, 4}, 2)
	require.Equal(t, 6, seg.Append(nil, vec, 0, vec.Length()))

	reader := txnbase.NewSnapshotReader(0)
	before := scanAll(seg, reader)
	blockID, runCount, err := seg.Unload()
	require.NoError(t, err)
	require.Equal(t, 4, runCount)
	_, _, err = seg.Unload()
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidState))

	seg2, err := OpenSegment(*seg.GetID(), types.T_date.ToType(), 100, mgr, opts, nil, blockID, runCount)
	require.NoError(t, err)
	require.Equal(t, uint64(100), seg2.RowStart())
	require.Equal(t, uint32(6), seg2.RowCount())
	require.True(t, before.Equals(scanAll(seg2, reader)))
	require.NoError(t, seg2.Verify(reader))

	// appends continue after the reopened runs
	require.Equal(t, 1, seg2.Append(nil, vector.NewFromFixed(types.T_date.ToType(), []types.Date{4}), 0, 1))
	require.Equal(t, 4, seg2.RunCount())

	require.NoError(t, seg2.Close())
	require.NoError(t, seg2.Close())
	require.Equal(t, uint64(0), mgr.GetUsage())

	_, err = OpenSegment(common.ID{}, int32Type, 0, mgr, opts, nil, blockID, 1)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrNotFound))
}

func TestOpenSegmentBadRuns(t *testing.T) {
	opts := testOptions(8, 1024, 4)
	seg, mgr := newTestSegmentWithManager(t, int32Type, opts, nil)
	seg.Append(nil, vector.NewFromFixed(int32Type, []int32{1, 2}), 0, 2)
	blockID, _, err := seg.Unload()
	require.NoError(t, err)
	// only two records were written, the third is empty
	_, err = OpenSegment(common.ID{}, int32Type, 0, mgr, opts, nil, blockID, 3)
	require.Error(t, err)
	_, err = OpenSegment(common.ID{}, int32Type, 0, mgr, opts, nil, blockID, 1<<20)
	require.Error(t, err)
}

func TestVerifyCorruption(t *testing.T) {
	seg := newTestSegment(t, int32Type, nil)
	defer seg.Close()
	seg.Append(nil, vector.NewFromFixed(int32Type, []int32{1, 2, 2}), 0, 3)
	reader := txnbase.NewSnapshotReader(0)
	require.NoError(t, seg.Verify(reader))

	// make both runs hold the same value
	copy(seg.store.value(1), seg.store.value(0))
	require.Error(t, seg.Verify(reader))
	types.PutFixed(seg.store.value(1), int32(2))
	require.NoError(t, seg.Verify(reader))

	rec := seg.store.record(1)
	binary.LittleEndian.PutUint32(rec, 5)
	require.Error(t, seg.Verify(reader))
}

func TestConcurrentScan(t *testing.T) {
	seg := newTestSegment(t, int32Type, testOptions(4096, 64*common.K, 64))
	defer seg.Close()
	vals := make([]int32, 2000)
	for i := range vals {
		vals[i] = int32(i / 10)
	}
	vec := vector.NewFromFixed(int32Type, vals)
	require.Equal(t, len(vals), seg.Append(nil, vec, 0, len(vals)))

	mgr := txnbase.NewTxnManager()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reader := txnbase.NewSnapshotReader(0)
			for j := 0; j < 10; j++ {
				if !vec.Equals(scanAll(seg, reader)) {
					t.Error("base scan changed under updates")
					return
				}
			}
		}()
	}
	for i := 0; i < 20; i++ {
		txn := mgr.StartTxn(nil)
		_, err := seg.Update(txn, nil, []uint32{uint32(i * 7)}, vector.NewFromFixed(int32Type, []int32{-1}))
		require.NoError(t, err)
		require.NoError(t, txn.Commit())
	}
	wg.Wait()
}
