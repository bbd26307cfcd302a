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

package updates

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/iface/txnif"
)

// NodeHandle addresses a node in the arena of its chain.
type NodeHandle uint32

const InvalidHandle NodeHandle = ^NodeHandle(0)

// Payload the replacement and previous values of a node, one fixed width
// slot per affected row, in row order. Null bitmaps hold slot positions.
type Payload struct {
	Vals      []byte
	Nulls     *roaring.Bitmap
	PrevVals  []byte
	PrevNulls *roaring.Bitmap
}

func NewPayload(rows, width int) *Payload {
	return &Payload{
		Vals:      make([]byte, rows*width),
		Nulls:     roaring.New(),
		PrevVals:  make([]byte, rows*width),
		PrevNulls: roaring.New(),
	}
}

func (p *Payload) size() int {
	return len(p.Vals) + len(p.PrevVals)
}

// UpdateNode one txn's replacements of a set of rows of a segment.
type UpdateNode struct {
	chain    *ColumnChain
	handle   NodeHandle
	txnID    uint64
	startTS  uint64
	commitTS uint64
	rows     []uint32
	mask     *roaring.Bitmap
	payload  *Payload
	spilled  *OverflowKey
	prev     NodeHandle
	next     NodeHandle
	removed  bool
}

func newUpdateNode(chain *ColumnChain, txn txnif.TxnReader, rows []uint32, payload *Payload) *UpdateNode {
	mask := roaring.New()
	mask.AddMany(rows)
	return &UpdateNode{
		chain:    chain,
		handle:   InvalidHandle,
		txnID:    txn.GetID(),
		startTS:  txn.GetStartTS(),
		commitTS: txnif.UncommitTS,
		rows:     rows,
		mask:     mask,
		payload:  payload,
		prev:     InvalidHandle,
		next:     InvalidHandle,
	}
}

func (n *UpdateNode) GetHandle() NodeHandle {
	return n.handle
}

func (n *UpdateNode) GetTxnID() uint64 {
	return n.txnID
}

func (n *UpdateNode) GetStartTS() uint64 {
	return n.startTS
}

func (n *UpdateNode) GetCommitTS() uint64 {
	return atomic.LoadUint64(&n.commitTS)
}

func (n *UpdateNode) IsCommitted() bool {
	return n.GetCommitTS() != txnif.UncommitTS
}

// IsRemoved reports whether the node has been rolled back.
func (n *UpdateNode) IsRemoved() bool {
	return n.removed
}

func (n *UpdateNode) IsSpilled() bool {
	return n.spilled != nil
}

// GetRows the affected rows, sorted, shared with the node.
func (n *UpdateNode) GetRows() []uint32 {
	return n.rows
}

func (n *UpdateNode) GetMask() *roaring.Bitmap {
	return n.mask
}

func (n *UpdateNode) MinRow() uint32 {
	return n.rows[0]
}

func (n *UpdateNode) MaxRow() uint32 {
	return n.rows[len(n.rows)-1]
}

// SlotOf returns the payload slot of row.
func (n *UpdateNode) SlotOf(row uint32) (int, bool) {
	if !n.mask.Contains(row) {
		return 0, false
	}
	i := sort.Search(len(n.rows), func(i int) bool { return n.rows[i] >= row })
	return i, true
}

// SlotRange returns the slots of the rows in [start, end).
func (n *UpdateNode) SlotRange(start, end uint32) (int, int) {
	lo := sort.Search(len(n.rows), func(i int) bool { return n.rows[i] >= start })
	hi := sort.Search(len(n.rows), func(i int) bool { return n.rows[i] >= end })
	return lo, hi
}

// IsVisible a node is always visible to its own txn, otherwise only once it
// committed at or before the reader's snapshot.
func (n *UpdateNode) IsVisible(reader txnif.TxnReader) bool {
	if reader.GetID() != 0 && reader.GetID() == n.txnID {
		return true
	}
	return n.GetCommitTS() <= reader.GetStartTS()
}

// CheckConflict the node blocks a writer if it is held by another active txn
// or committed after the writer's snapshot.
func (n *UpdateNode) CheckConflict(writer txnif.TxnReader) error {
	if writer.GetID() == n.txnID {
		return nil
	}
	commitTS := n.GetCommitTS()
	if commitTS == txnif.UncommitTS || commitTS > writer.GetStartTS() {
		return moerr.NewTxnWWConflictNoCtx(n.chain.id.SegmentID,
			fmt.Sprintf("rows [%d, %d] held by txn %d", n.MinRow(), n.MaxRow(), n.txnID))
	}
	return nil
}

// GetPayloadLocked returns the payload, loading it back from the overflow
// store when spilled. A loaded payload is not cached on the node.
func (n *UpdateNode) GetPayloadLocked() *Payload {
	if n.payload != nil {
		return n.payload
	}
	payload, err := n.chain.loadPayload(n)
	if err != nil {
		panic(moerr.NewInternalErrorNoCtx("load spilled payload of %s: %v", n.String(), err))
	}
	return payload
}

// SpillCache payloads of spilled nodes loaded ahead of a scan.
type SpillCache map[NodeHandle]*Payload

// GetPayloadCachedLocked is GetPayloadLocked served from cache when the
// payload was loaded ahead.
func (n *UpdateNode) GetPayloadCachedLocked(cache SpillCache) *Payload {
	if n.payload == nil {
		if payload, ok := cache[n.handle]; ok {
			return payload
		}
	}
	return n.GetPayloadLocked()
}

// ApplyCommit the node becomes visible to snapshots at or after ts.
func (n *UpdateNode) ApplyCommit(ts uint64) error {
	atomic.StoreUint64(&n.commitTS, ts)
	return nil
}

func (n *UpdateNode) String() string {
	commit := "uncommitted"
	if ts := n.GetCommitTS(); ts != txnif.UncommitTS {
		commit = fmt.Sprintf("%d", ts)
	}
	state := ""
	if n.spilled != nil {
		state = " spilled"
	}
	if n.removed {
		state += " removed"
	}
	return fmt.Sprintf("UpdateNode[%d][txn=%d,start=%d,commit=%s][rows=%d]%s",
		n.handle, n.txnID, n.startTS, commit, len(n.rows), state)
}
