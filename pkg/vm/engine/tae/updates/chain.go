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
	"bytes"
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/container/types"
	"github.com/matrixorigin/rleseg/pkg/logutil"
	v2 "github.com/matrixorigin/rleseg/pkg/util/metric/v2"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/common"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/iface/txnif"
)

// ColumnChain the update overlay of one column segment. Nodes live in an
// arena and are linked newest first. The chain shares the segment's lock:
// every method suffixed with Locked expects the caller to hold it.
type ColumnChain struct {
	*sync.RWMutex
	id    common.ID
	typ   types.Type
	width int

	nodes []*UpdateNode
	free  []NodeHandle
	head  NodeHandle
	tail  NodeHandle
	depth int

	// view holds every row shadowed by at least one node, refs the number
	// of nodes shadowing it
	view *roaring.Bitmap
	refs map[uint32]uint32

	inMemory    int
	inlineLimit int
	store       OverflowStore
}

func NewColumnChain(rwlocker *sync.RWMutex, id common.ID, typ types.Type, inlineLimit int, store OverflowStore) *ColumnChain {
	if rwlocker == nil {
		rwlocker = new(sync.RWMutex)
	}
	return &ColumnChain{
		RWMutex:     rwlocker,
		id:          id,
		typ:         typ,
		width:       int(typ.Size),
		head:        InvalidHandle,
		tail:        InvalidHandle,
		view:        roaring.New(),
		refs:        make(map[uint32]uint32),
		inlineLimit: inlineLimit,
		store:       store,
	}
}

func (chain *ColumnChain) GetID() *common.ID {
	return &chain.id
}

func (chain *ColumnChain) GetType() types.Type {
	return chain.typ
}

func (chain *ColumnChain) DepthLocked() int {
	return chain.depth
}

func (chain *ColumnChain) InMemoryLocked() int {
	return chain.inMemory
}

func (chain *ColumnChain) GetNodeLocked(h NodeHandle) *UpdateNode {
	if int(h) >= len(chain.nodes) || chain.nodes[h] == nil {
		panic(moerr.NewInternalErrorNoCtx("%s: bad node handle %d", chain.id.SegmentString(), h))
	}
	return chain.nodes[h]
}

func (chain *ColumnChain) allocHandle(node *UpdateNode) NodeHandle {
	var h NodeHandle
	if n := len(chain.free); n > 0 {
		h = chain.free[n-1]
		chain.free = chain.free[:n-1]
		chain.nodes[h] = node
	} else {
		h = NodeHandle(len(chain.nodes))
		chain.nodes = append(chain.nodes, node)
	}
	node.handle = h
	return h
}

func (chain *ColumnChain) ref(rows []uint32) {
	for _, row := range rows {
		if chain.refs[row] == 0 {
			chain.view.Add(row)
		}
		chain.refs[row]++
	}
}

func (chain *ColumnChain) unref(rows []uint32) {
	for _, row := range rows {
		cnt := chain.refs[row]
		if cnt <= 1 {
			delete(chain.refs, row)
			chain.view.Remove(row)
			continue
		}
		chain.refs[row] = cnt - 1
	}
}

// AddNodeLocked prepends a new uncommitted node of txn. rows must be sorted
// and unique, payload must hold one slot per row.
func (chain *ColumnChain) AddNodeLocked(txn txnif.TxnReader, rows []uint32, payload *Payload) *UpdateNode {
	chain.checkPayload(rows, payload)
	node := newUpdateNode(chain, txn, rows, payload)
	h := chain.allocHandle(node)
	node.next = chain.head
	if chain.head != InvalidHandle {
		chain.nodes[chain.head].prev = h
	} else {
		chain.tail = h
	}
	chain.head = h
	chain.depth++
	chain.inMemory++
	chain.ref(rows)
	v2.RLEUpdateNodeCounter.Inc()
	return node
}

func (chain *ColumnChain) checkPayload(rows []uint32, payload *Payload) {
	if len(payload.Vals) != len(rows)*chain.width || len(payload.PrevVals) != len(rows)*chain.width {
		panic(moerr.NewInternalErrorNoCtx("%s: payload of %d bytes for %d rows",
			chain.id.SegmentString(), len(payload.Vals), len(rows)))
	}
}

// MergeLocked folds rows into the uncommitted node of the same txn. A row
// already in the node takes the new value and keeps its first previous
// value.
func (chain *ColumnChain) MergeLocked(node *UpdateNode, rows []uint32, payload *Payload) {
	if node.removed || node.IsCommitted() || node.payload == nil {
		panic(moerr.NewInternalErrorNoCtx("%s: cannot merge into %s", chain.id.SegmentString(), node.String()))
	}
	chain.checkPayload(rows, payload)
	old, w := node.payload, chain.width
	merged := make([]uint32, 0, len(node.rows)+len(rows))
	out := NewPayload(0, 0)
	put := func(vals *Payload, vi int, prevs *Payload, pi int) {
		pos := uint32(len(merged) - 1)
		out.Vals = append(out.Vals, vals.Vals[vi*w:(vi+1)*w]...)
		if vals.Nulls.Contains(uint32(vi)) {
			out.Nulls.Add(pos)
		}
		out.PrevVals = append(out.PrevVals, prevs.PrevVals[pi*w:(pi+1)*w]...)
		if prevs.PrevNulls.Contains(uint32(pi)) {
			out.PrevNulls.Add(pos)
		}
	}
	var added []uint32
	i, j := 0, 0
	for i < len(node.rows) || j < len(rows) {
		switch {
		case j == len(rows) || (i < len(node.rows) && node.rows[i] < rows[j]):
			merged = append(merged, node.rows[i])
			put(old, i, old, i)
			i++
		case i == len(node.rows) || rows[j] < node.rows[i]:
			merged = append(merged, rows[j])
			added = append(added, rows[j])
			put(payload, j, payload, j)
			j++
		default:
			merged = append(merged, rows[j])
			put(payload, j, old, i)
			i++
			j++
		}
	}
	node.rows = merged
	node.mask.AddMany(added)
	node.payload = out
	chain.ref(added)
	v2.RLEUpdateMergedCounter.Inc()
}

// DeleteNodeLocked unlinks node and releases its handle. Deleting a node
// twice is a fatal fault.
func (chain *ColumnChain) DeleteNodeLocked(node *UpdateNode) {
	if node.removed || node.chain != chain {
		logutil.Error("delete removed update node",
			zap.String("segment", chain.id.SegmentString()),
			zap.String("node", node.String()))
		panic(moerr.NewInternalErrorNoCtx("%s: %s already removed", chain.id.SegmentString(), node.String()))
	}
	h := node.handle
	if node.prev != InvalidHandle {
		chain.nodes[node.prev].next = node.next
	} else {
		chain.head = node.next
	}
	if node.next != InvalidHandle {
		chain.nodes[node.next].prev = node.prev
	} else {
		chain.tail = node.prev
	}
	if node.spilled != nil {
		if err := chain.store.Delete(*node.spilled); err != nil {
			logutil.Warn("delete spilled payload",
				zap.String("key", node.spilled.String()),
				zap.Error(err))
		}
		node.spilled = nil
	} else {
		chain.inMemory--
	}
	chain.unref(node.rows)
	node.removed = true
	node.payload = nil
	node.prev, node.next = InvalidHandle, InvalidHandle
	chain.nodes[h] = nil
	chain.free = append(chain.free, h)
	chain.depth--
	v2.RLEUpdateRollbackCounter.Inc()
}

// ApplyRollback removes the node unless it was already rolled back
// explicitly.
func (n *UpdateNode) ApplyRollback() error {
	chain := n.chain
	chain.Lock()
	defer chain.Unlock()
	if n.removed {
		return nil
	}
	chain.DeleteNodeLocked(n)
	return nil
}

// LoopChainLocked walks the nodes newest first until fn returns false.
func (chain *ColumnChain) LoopChainLocked(fn func(node *UpdateNode) bool) {
	for h := chain.head; h != InvalidHandle; {
		node := chain.nodes[h]
		if !fn(node) {
			return
		}
		h = node.next
	}
}

// LoopVisibleLocked walks the nodes visible to reader, newest first.
func (chain *ColumnChain) LoopVisibleLocked(reader txnif.TxnReader, fn func(node *UpdateNode) bool) {
	chain.LoopChainLocked(func(node *UpdateNode) bool {
		if !node.IsVisible(reader) {
			return true
		}
		return fn(node)
	})
}

// FindTxnNodeLocked returns the uncommitted node of txnID, if any.
func (chain *ColumnChain) FindTxnNodeLocked(txnID uint64) (found *UpdateNode) {
	chain.LoopChainLocked(func(node *UpdateNode) bool {
		if node.txnID == txnID && !node.IsCommitted() {
			found = node
			return false
		}
		return true
	})
	return
}

// CheckConflictLocked checks the newest node shadowing each of rows against
// writer.
func (chain *ColumnChain) CheckConflictLocked(writer txnif.TxnReader, rows []uint32) (err error) {
	pending := roaring.New()
	pending.AddMany(rows)
	chain.LoopChainLocked(func(node *UpdateNode) bool {
		shadowed := roaring.And(pending, node.mask)
		if shadowed.IsEmpty() {
			return true
		}
		if err = node.CheckConflict(writer); err != nil {
			return false
		}
		pending.AndNot(shadowed)
		return !pending.IsEmpty()
	})
	if err != nil {
		v2.RLEUpdateConflictCounter.Inc()
	}
	return
}

// HasUpdatesInRangeLocked reports whether any node shadows a row of
// [start, end).
func (chain *ColumnChain) HasUpdatesInRangeLocked(start, end uint32) bool {
	if end <= start || chain.view.IsEmpty() {
		return false
	}
	cnt := chain.view.Rank(end - 1)
	if start > 0 {
		cnt -= chain.view.Rank(start - 1)
	}
	return cnt > 0
}

// UpdatedRowsLocked returns the shadowed rows of [start, end).
func (chain *ColumnChain) UpdatedRowsLocked(start, end uint32) *roaring.Bitmap {
	rows := roaring.New()
	if end > start {
		rows.AddRange(uint64(start), uint64(end))
		rows.And(chain.view)
	}
	return rows
}

// GetValueLocked returns the value of row in the newest node visible to
// reader. ok is false when no visible node shadows row.
func (chain *ColumnChain) GetValueLocked(reader txnif.TxnReader, row uint32) (val []byte, isNull bool, ok bool) {
	if !chain.view.Contains(row) {
		return
	}
	w := chain.width
	chain.LoopVisibleLocked(reader, func(node *UpdateNode) bool {
		slot, found := node.SlotOf(row)
		if !found {
			return true
		}
		payload := node.GetPayloadLocked()
		val = payload.Vals[slot*w : (slot+1)*w]
		isNull = payload.Nulls.Contains(uint32(slot))
		ok = true
		return false
	})
	return
}

// SpillLocked moves the payloads of the oldest committed nodes to the
// overflow store until at most inlineLimit payloads stay in memory.
func (chain *ColumnChain) SpillLocked() (spilled int, err error) {
	if chain.store == nil || chain.inlineLimit <= 0 {
		return
	}
	for h := chain.tail; h != InvalidHandle && chain.inMemory > chain.inlineLimit; {
		node := chain.nodes[h]
		h = node.prev
		if node.payload == nil || !node.IsCommitted() {
			continue
		}
		key := OverflowKey{
			SegmentID: chain.id.SegmentID,
			MinRow:    node.MinRow(),
			MaxRow:    node.MaxRow(),
			Handle:    node.handle,
		}
		if err = chain.store.Put(key, node.payload, chain.width); err != nil {
			return
		}
		node.spilled = &key
		node.payload = nil
		chain.inMemory--
		spilled++
	}
	if spilled > 0 {
		logutil.Debug("spill update payloads",
			zap.String("segment", chain.id.SegmentString()),
			zap.Int("spilled", spilled),
			zap.Int("in-memory", chain.inMemory))
	}
	return
}

func (chain *ColumnChain) loadPayload(node *UpdateNode) (*Payload, error) {
	if node.spilled == nil {
		return nil, moerr.NewInvalidStateNoCtx("%s has no payload", node.String())
	}
	return chain.store.Get(*node.spilled)
}

// SpilledRangeLocked returns the keys of spilled payloads overlapping
// [start, end).
func (chain *ColumnChain) SpilledRangeLocked(start, end uint32) (keys []OverflowKey) {
	if chain.store == nil {
		return
	}
	chain.store.Overlapping(chain.id.SegmentID, start, end, func(key OverflowKey) bool {
		keys = append(keys, key)
		return true
	})
	return
}

// LoadSpilledLocked loads the spilled payloads of the nodes overlapping
// [start, end) in one pass over the overflow index. Keys without a live
// node are skipped.
func (chain *ColumnChain) LoadSpilledLocked(start, end uint32) (SpillCache, error) {
	keys := chain.SpilledRangeLocked(start, end)
	if len(keys) == 0 {
		return nil, nil
	}
	cache := make(SpillCache, len(keys))
	for _, key := range keys {
		if int(key.Handle) >= len(chain.nodes) {
			continue
		}
		node := chain.nodes[key.Handle]
		if node == nil || node.spilled == nil || *node.spilled != key {
			continue
		}
		payload, err := chain.store.Get(key)
		if err != nil {
			return nil, err
		}
		cache[key.Handle] = payload
	}
	return cache, nil
}

// DropLocked releases every node and the spilled payloads of the segment.
// Dropped nodes are marked removed so a later txn rollback skips them.
func (chain *ColumnChain) DropLocked() error {
	for _, node := range chain.nodes {
		if node == nil {
			continue
		}
		node.removed = true
		node.payload = nil
		node.spilled = nil
		node.prev, node.next = InvalidHandle, InvalidHandle
	}
	chain.nodes = nil
	chain.free = nil
	chain.head, chain.tail = InvalidHandle, InvalidHandle
	chain.depth, chain.inMemory = 0, 0
	chain.view.Clear()
	chain.refs = make(map[uint32]uint32)
	if chain.store == nil {
		return nil
	}
	return chain.store.DropSegment(chain.id.SegmentID)
}

func (chain *ColumnChain) StringLocked() string {
	var w bytes.Buffer
	_, _ = w.WriteString(fmt.Sprintf("Chain%s[depth=%d,in-memory=%d,rows=%d]",
		chain.id.SegmentString(), chain.depth, chain.inMemory, chain.view.GetCardinality()))
	chain.LoopChainLocked(func(node *UpdateNode) bool {
		_ = w.WriteByte('\n')
		_, _ = w.WriteString(common.RepeatStr("", 1))
		_, _ = w.WriteString(node.String())
		return true
	})
	return w.String()
}

func (chain *ColumnChain) String() string {
	chain.RLock()
	defer chain.RUnlock()
	return chain.StringLocked()
}
