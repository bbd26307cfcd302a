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
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/container/vector"
	v2 "github.com/matrixorigin/rleseg/pkg/util/metric/v2"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/common"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/index"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/txn/txnbase"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/updates"
)

func newScenarioSegment(t *testing.T) *Segment {
	seg := newTestSegment(t, int32Type, testOptions(1024, 16*common.K, 4))
	vec := vector.NewFromFixed(int32Type, []int32{5, 5, 5, 7, 7, 2})
	require.Equal(t, 6, seg.Append(nil, vec, 0, vec.Length()))
	return seg
}

func int32Vec(vals []int32, nullRows ...uint32) *vector.Vector {
	return vector.NewFromFixed(int32Type, vals, nullRows...)
}

func TestUpdateAndRollback(t *testing.T) {
	seg := newScenarioSegment(t)
	defer seg.Close()
	mgr := txnbase.NewTxnManager()

	early := mgr.StartTxn(nil)
	txnA := mgr.StartTxn(nil)
	zm := index.NewZoneMap(int32Type)
	node, err := seg.Update(txnA, zm, []uint32{3}, int32Vec([]int32{99}))
	require.NoError(t, err)
	require.Equal(t, int32(99), zm.GetMax())

	result := vector.NewVector(int32Type)
	seg.FetchUpdateData(txnA, []uint32{3}, result)
	require.Equal(t, []int32{99}, vector.MustFixedCol[int32](result))

	require.Equal(t, []int32{5, 5, 5, 7, 7, 2}, vector.MustFixedCol[int32](scanAll(seg, early)))
	require.Equal(t, []int32{5, 5, 5, 99, 7, 2}, vector.MustFixedCol[int32](scanAll(seg, txnA)))

	row := vector.NewVector(int32Type)
	seg.FetchRow(new(FetchState), early, 3, row)
	seg.FetchRow(new(FetchState), txnA, 3, row)
	require.Equal(t, []int32{7, 99}, vector.MustFixedCol[int32](row))

	seg.RollbackUpdate(node)
	require.True(t, node.IsRemoved())
	require.Equal(t, []int32{5, 5, 5, 7, 7, 2}, vector.MustFixedCol[int32](scanAll(seg, txnA)))
	require.Panics(t, func() { seg.RollbackUpdate(node) })

	// the rollback of the txn skips the node removed above
	require.NoError(t, txnA.Rollback())
	require.NoError(t, early.Commit())
}

func TestUpdateVisibility(t *testing.T) {
	seg := newScenarioSegment(t)
	defer seg.Close()
	mgr := txnbase.NewTxnManager()

	txn := mgr.StartTxn(nil)
	_, err := seg.Update(txn, nil, []uint32{5, 0, 4}, int32Vec([]int32{50, 0, 40}, 1))
	require.NoError(t, err)
	before := mgr.Now()
	require.NoError(t, txn.Commit())
	commitTS := txn.GetCommitTS()
	require.Greater(t, commitTS, before)

	expectOld := []int32{5, 5, 5, 7, 7, 2}
	require.Equal(t, expectOld, vector.MustFixedCol[int32](scanAll(seg, txnbase.NewSnapshotReader(commitTS-1))))

	for _, ts := range []uint64{commitTS, commitTS + 10} {
		result := scanAll(seg, txnbase.NewSnapshotReader(ts))
		expect := int32Vec([]int32{0, 5, 5, 7, 40, 50}, 0)
		require.True(t, expect.Equals(result), result.String())
	}

	result := vector.NewVector(int32Type)
	seg.FetchUpdateData(txnbase.NewSnapshotReader(commitTS), []uint32{5, 3, 0, 5}, result)
	expect := int32Vec([]int32{50, 7, 0, 50}, 2)
	require.True(t, expect.Equals(result), result.String())
	require.NoError(t, seg.Verify(txnbase.NewSnapshotReader(commitTS)))
}

func TestUpdateLayers(t *testing.T) {
	seg := newScenarioSegment(t)
	defer seg.Close()
	mgr := txnbase.NewTxnManager()

	txn1 := mgr.StartTxn(nil)
	_, err := seg.Update(txn1, nil, []uint32{1, 2}, int32Vec([]int32{11, 12}))
	require.NoError(t, err)
	require.NoError(t, txn1.Commit())
	ts1 := txn1.GetCommitTS()

	txn2 := mgr.StartTxn(nil)
	node2, err := seg.Update(txn2, nil, []uint32{2, 3}, int32Vec([]int32{22, 23}))
	require.NoError(t, err)
	payload := node2.GetPayloadLocked()
	// previous values are what txn2 saw
	require.Equal(t, []int32{12, 7}, vector.MustFixedCol[int32](vectorOf(payload.PrevVals)))

	require.Equal(t, []int32{5, 11, 22, 23, 7, 2}, vector.MustFixedCol[int32](scanAll(seg, txn2)))
	require.Equal(t, []int32{5, 11, 12, 7, 7, 2}, vector.MustFixedCol[int32](scanAll(seg, txnbase.NewSnapshotReader(ts1))))

	require.NoError(t, txn2.Rollback())
	require.Equal(t, []int32{5, 11, 12, 7, 7, 2}, vector.MustFixedCol[int32](scanAll(seg, txnbase.NewSnapshotReader(mgr.Now()))))
	l := seg.GetSharedLock()
	require.Equal(t, 1, seg.GetChain().DepthLocked())
	l.Unlock()
}

func vectorOf(raw []byte) *vector.Vector {
	vec := vector.NewVector(int32Type)
	for i := 0; i+4 <= len(raw); i += 4 {
		vec.AppendRaw(raw[i:i+4], false)
	}
	return vec
}

func TestUpdateSameTxnMerges(t *testing.T) {
	seg := newScenarioSegment(t)
	defer seg.Close()
	mgr := txnbase.NewTxnManager()

	txn := mgr.StartTxn(nil)
	node1, err := seg.Update(txn, nil, []uint32{1}, int32Vec([]int32{100}))
	require.NoError(t, err)
	node2, err := seg.Update(txn, nil, []uint32{4, 1}, int32Vec([]int32{400, 101}))
	require.NoError(t, err)
	require.Equal(t, node1, node2)
	require.Equal(t, []uint32{1, 4}, node2.GetRows())
	// row 1 keeps the value it had before the first update
	require.Equal(t, []int32{5, 7}, vector.MustFixedCol[int32](vectorOf(node2.GetPayloadLocked().PrevVals)))

	l := seg.GetSharedLock()
	require.Equal(t, 1, seg.GetChain().DepthLocked())
	l.Unlock()
	require.Equal(t, []int32{5, 101, 5, 7, 400, 2}, vector.MustFixedCol[int32](scanAll(seg, txn)))

	require.NoError(t, txn.Rollback())
	require.Equal(t, []int32{5, 5, 5, 7, 7, 2}, vector.MustFixedCol[int32](scanAll(seg, txnbase.NewSnapshotReader(mgr.Now()))))
}

func TestUpdateConflict(t *testing.T) {
	seg := newScenarioSegment(t)
	defer seg.Close()
	mgr := txnbase.NewTxnManager()

	txn1 := mgr.StartTxn(nil)
	txn2 := mgr.StartTxn(nil)
	_, err := seg.Update(txn1, nil, []uint32{1, 2}, int32Vec([]int32{1, 2}))
	require.NoError(t, err)

	_, err = seg.Update(txn2, nil, []uint32{2}, int32Vec([]int32{3}))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrTxnWWConflict))
	_, err = seg.Update(txn2, nil, []uint32{3}, int32Vec([]int32{3}))
	require.NoError(t, err)

	require.NoError(t, txn1.Commit())
	// committed after the snapshot of txn2
	_, err = seg.Update(txn2, nil, []uint32{1}, int32Vec([]int32{3}))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrTxnWWConflict))
	require.NoError(t, txn2.Rollback())

	txn3 := mgr.StartTxn(nil)
	_, err = seg.Update(txn3, nil, []uint32{1, 3}, int32Vec([]int32{9, 9}))
	require.NoError(t, err)
	require.NoError(t, txn3.Commit())
	require.Equal(t, []int32{5, 9, 2, 9, 7, 2}, vector.MustFixedCol[int32](scanAll(seg, txnbase.NewSnapshotReader(mgr.Now()))))

	_, err = seg.Update(txn3, nil, []uint32{0}, int32Vec([]int32{0}))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrTxnClosed))
	l := seg.GetSharedLock()
	require.Equal(t, 2, seg.GetChain().DepthLocked())
	l.Unlock()
}

func TestUpdateInvalid(t *testing.T) {
	seg := newScenarioSegment(t)
	defer seg.Close()
	mgr := txnbase.NewTxnManager()
	txn := mgr.StartTxn(nil)

	node, err := seg.Update(txn, nil, nil, int32Vec(nil))
	require.NoError(t, err)
	require.Nil(t, node)
	require.Panics(t, func() { _, _ = seg.Update(txn, nil, []uint32{6}, int32Vec([]int32{1})) })
	require.Panics(t, func() { _, _ = seg.Update(txn, nil, []uint32{1, 1}, int32Vec([]int32{1, 2})) })
	require.Panics(t, func() { _, _ = seg.Update(txn, nil, []uint32{1, 2}, int32Vec([]int32{1})) })
	require.Panics(t, func() {
		_, _ = seg.Update(txn, nil, []uint32{1}, vector.NewFromFixed(int64Type, []int64{1}))
	})
}

func TestUpdateSpill(t *testing.T) {
	store, err := updates.NewOverflowStore("")
	require.NoError(t, err)
	defer store.Close()
	opts := testOptions(1024, 16*common.K, 4)
	opts.DeltaCfg.InlineNodeLimit = 2
	seg, _ := newTestSegmentWithManager(t, int32Type, opts, store)
	vec := vector.NewFromFixed(int32Type, []int32{5, 5, 5, 7, 7, 2})
	require.Equal(t, 6, seg.Append(nil, vec, 0, vec.Length()))

	mgr := txnbase.NewTxnManager()
	var commits []uint64
	for i := 0; i < 5; i++ {
		txn := mgr.StartTxn(nil)
		_, err = seg.Update(txn, nil, []uint32{uint32(i)}, int32Vec([]int32{int32(100 + i)}))
		require.NoError(t, err)
		require.NoError(t, txn.Commit())
		commits = append(commits, txn.GetCommitTS())
	}
	l := seg.GetSharedLock()
	require.Equal(t, 2, seg.GetChain().InMemoryLocked())
	require.Equal(t, 5, seg.GetChain().DepthLocked())
	l.Unlock()
	require.Equal(t, 3, store.Count())

	// the spilled payloads of a vector are loaded once per scan
	loads := testutil.ToFloat64(v2.OverflowLoadCounter)
	require.Equal(t, []int32{100, 101, 102, 103, 104, 2},
		vector.MustFixedCol[int32](scanAll(seg, txnbase.NewSnapshotReader(mgr.Now()))))
	require.Equal(t, float64(3), testutil.ToFloat64(v2.OverflowLoadCounter)-loads)
	require.Equal(t, []int32{100, 101, 5, 7, 7, 2},
		vector.MustFixedCol[int32](scanAll(seg, txnbase.NewSnapshotReader(commits[1]))))

	result := vector.NewVector(int32Type)
	seg.FetchRow(new(FetchState), txnbase.NewSnapshotReader(mgr.Now()), 0, result)
	require.Equal(t, []int32{100}, vector.MustFixedCol[int32](result))

	require.NoError(t, seg.Close())
	require.Equal(t, 0, store.Count())
}

func TestUpdateCloseThenRollback(t *testing.T) {
	seg := newScenarioSegment(t)
	mgr := txnbase.NewTxnManager()
	txn := mgr.StartTxn(nil)
	node, err := seg.Update(txn, nil, []uint32{3}, int32Vec([]int32{99}))
	require.NoError(t, err)

	require.NoError(t, seg.Close())
	require.True(t, node.IsRemoved())
	require.NotPanics(t, func() { require.NoError(t, txn.Rollback()) })
}

// Updates of one txn share a node, so rolling back the node returned by the
// second update also undoes the first one.
func TestUpdateSameTxnRollbackNode(t *testing.T) {
	seg := newScenarioSegment(t)
	defer seg.Close()
	mgr := txnbase.NewTxnManager()

	txn := mgr.StartTxn(nil)
	_, err := seg.Update(txn, nil, []uint32{3}, int32Vec([]int32{99}))
	require.NoError(t, err)
	require.Equal(t, []int32{5, 5, 5, 99, 7, 2}, vector.MustFixedCol[int32](scanAll(seg, txn)))
	node, err := seg.Update(txn, nil, []uint32{3}, int32Vec([]int32{100}))
	require.NoError(t, err)
	require.Equal(t, []int32{5, 5, 5, 100, 7, 2}, vector.MustFixedCol[int32](scanAll(seg, txn)))

	seg.RollbackUpdate(node)
	require.Equal(t, []int32{5, 5, 5, 7, 7, 2}, vector.MustFixedCol[int32](scanAll(seg, txn)))
	require.NoError(t, txn.Rollback())
}
