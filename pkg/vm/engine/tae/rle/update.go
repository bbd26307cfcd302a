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
	"sort"

	"go.uber.org/zap"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/container/nulls"
	"github.com/matrixorigin/rleseg/pkg/container/vector"
	"github.com/matrixorigin/rleseg/pkg/logutil"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/iface/txnif"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/index"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/updates"
)

// Update replaces the values of rows for txn. vals[i] is the new value of
// rows[i]. The returned node is registered with txn and becomes visible to
// others once txn commits. Another writer holding or having committed any
// of rows after the snapshot of txn fails the update with a w-w conflict.
func (seg *Segment) Update(
	txn txnif.AsyncTxn,
	stats index.StatsSink,
	rows []uint32,
	vals *vector.Vector) (*updates.UpdateNode, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) != vals.Length() {
		seg.fatal(moerr.NewInternalErrorNoCtx("update %d rows with %d values", len(rows), vals.Length()))
	}
	if !vals.GetType().Eq(seg.typ) {
		seg.fatal(moerr.NewInternalErrorNoCtx("update a %s segment with %s values", seg.typ, vals.GetType()))
	}
	if stats == nil {
		stats = index.NoopSink{}
	}
	seg.Lock()
	defer seg.Unlock()

	sorted, sortedVals := seg.sortUpdate(rows, vals)
	if err := seg.chain.CheckConflictLocked(txn, sorted); err != nil {
		logutil.Debug("update conflict",
			zap.String("segment", seg.id.SegmentString()),
			zap.String("txn", txn.String()),
			zap.Error(err))
		return nil, err
	}

	payload := updates.NewPayload(len(sorted), seg.typ.TypeSize())
	seg.fns.update(stats, sortedVals, payload)
	prevs := vector.NewVectorWithCapacity(seg.typ, len(sorted))
	seg.FetchUpdateDataLocked(txn, sorted, prevs)
	w := seg.typ.TypeSize()
	for i := range sorted {
		copy(payload.PrevVals[i*w:], prevs.GetRaw(i))
		if prevs.IsNull(i) {
			payload.PrevNulls.Add(uint32(i))
		}
	}

	node := seg.chain.FindTxnNodeLocked(txn.GetID())
	if node != nil {
		seg.chain.MergeLocked(node, sorted, payload)
	} else {
		node = seg.chain.AddNodeLocked(txn, sorted, payload)
		if err := txn.LogTxnEntry(node); err != nil {
			seg.chain.DeleteNodeLocked(node)
			return nil, err
		}
	}
	if _, err := seg.chain.SpillLocked(); err != nil {
		logutil.Warn("spill update payloads",
			zap.String("segment", seg.id.SegmentString()),
			zap.Error(err))
	}
	return node, nil
}

// sortUpdate validates rows and orders rows and values by row.
func (seg *Segment) sortUpdate(rows []uint32, vals *vector.Vector) ([]uint32, *vector.Vector) {
	for _, row := range rows {
		seg.checkRowLocked(row)
	}
	perm := make([]int, len(rows))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		return rows[perm[i]] < rows[perm[j]]
	})
	sorted := make([]uint32, len(rows))
	inOrder := true
	for i, p := range perm {
		sorted[i] = rows[p]
		if p != i {
			inOrder = false
		}
		if i > 0 && sorted[i] == sorted[i-1] {
			seg.fatal(moerr.NewInvalidInputNoCtx("row %d updated twice in one call", sorted[i]))
		}
	}
	if inOrder {
		return sorted, vals
	}
	sortedVals := vector.NewVectorWithCapacity(seg.typ, len(rows))
	nsp := vals.GetNulls()
	for _, p := range perm {
		sortedVals.AppendRaw(vals.GetRaw(p), nulls.Contains(nsp, uint32(p)))
	}
	return sorted, sortedVals
}

// RollbackUpdate removes node from the chain. Rolling back a node twice is
// a fatal fault.
func (seg *Segment) RollbackUpdate(node *updates.UpdateNode) {
	seg.Lock()
	defer seg.Unlock()
	seg.chain.DeleteNodeLocked(node)
}
