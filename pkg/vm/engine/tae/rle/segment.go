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
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/container/types"
	"github.com/matrixorigin/rleseg/pkg/logutil"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/buffer"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/common"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/options"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/updates"
)

// Segment a run length encoded column segment. It owns one pinned block
// holding the committed runs and the update chain layered above them.
type Segment struct {
	*sync.RWMutex
	id       common.ID
	typ      types.Type
	rowStart uint64
	opts     *options.Options

	mgr     buffer.Manager
	blockID buffer.BlockID
	handle  buffer.Handle

	store *runStore
	chain *updates.ColumnChain
	fns   *dispatch

	closed bool
}

// NewSegment allocates and pins a new block for a segment starting at
// rowStart of its column.
func NewSegment(
	id common.ID,
	typ types.Type,
	rowStart uint64,
	mgr buffer.Manager,
	opts *options.Options,
	overflow updates.OverflowStore) (*Segment, error) {
	blockID, err := mgr.Allocate()
	if err != nil {
		return nil, err
	}
	seg, err := openSegment(id, typ, rowStart, mgr, opts, overflow, blockID)
	if err != nil {
		_ = mgr.Free(blockID)
		return nil, err
	}
	seg.store.reset()
	logutil.Debug("new rle segment",
		zap.String("segment", seg.id.SegmentString()),
		zap.String("type", typ.String()),
		zap.Uint64("row-start", rowStart),
		zap.String("block", blockID.String()))
	return seg, nil
}

// OpenSegment attaches a segment to a block already holding runCount runs.
func OpenSegment(
	id common.ID,
	typ types.Type,
	rowStart uint64,
	mgr buffer.Manager,
	opts *options.Options,
	overflow updates.OverflowStore,
	blockID buffer.BlockID,
	runCount int) (*Segment, error) {
	seg, err := openSegment(id, typ, rowStart, mgr, opts, overflow, blockID)
	if err != nil {
		return nil, err
	}
	if err = seg.store.load(runCount); err != nil {
		mgr.Unpin(seg.handle)
		return nil, err
	}
	logutil.Debug("open rle segment",
		zap.String("segment", seg.id.SegmentString()),
		zap.Int("runs", runCount),
		zap.Uint32("rows", seg.store.rowCount))
	return seg, nil
}

func openSegment(
	id common.ID,
	typ types.Type,
	rowStart uint64,
	mgr buffer.Manager,
	opts *options.Options,
	overflow updates.OverflowStore,
	blockID buffer.BlockID) (*Segment, error) {
	opts = opts.FillDefaults()
	if !IsSupported(typ) {
		err := moerr.NewInternalErrorNoCtx("rle segment of unsupported type %s", typ)
		logutil.Error("open rle segment", zap.Error(err))
		panic(err)
	}
	fns := getDispatch(typ)
	handle, err := mgr.Pin(blockID)
	if err != nil {
		return nil, err
	}
	cfg := opts.StorageCfg
	bitmapSize := int(cfg.NullBitmapSize())
	width := typ.TypeSize()
	if len(handle.GetBuffer()) < bitmapSize+runHeaderSize+width {
		mgr.Unpin(handle)
		return nil, moerr.NewBadConfigNoCtx("block of %d bytes cannot hold the null bitmap of %d rows",
			len(handle.GetBuffer()), cfg.SegmentMaxRows)
	}
	rwlocker := new(sync.RWMutex)
	seg := &Segment{
		RWMutex:  rwlocker,
		id:       id,
		typ:      typ,
		rowStart: rowStart,
		opts:     opts,
		mgr:      mgr,
		blockID:  blockID,
		handle:   handle,
		store: newRunStore(handle.GetBuffer(), bitmapSize, width,
			uint32(cfg.SegmentMaxRows), int(cfg.LinearSearchRuns)),
		fns: fns,
	}
	seg.chain = updates.NewColumnChain(rwlocker, id, typ, opts.DeltaCfg.InlineNodeLimit, overflow)
	return seg, nil
}

func (seg *Segment) GetID() *common.ID {
	return &seg.id
}

func (seg *Segment) GetType() types.Type {
	return seg.typ
}

// RowStart the column row of the first row of the segment.
func (seg *Segment) RowStart() uint64 {
	return seg.rowStart
}

func (seg *Segment) RowCount() uint32 {
	seg.RLock()
	defer seg.RUnlock()
	return seg.store.rowCount
}

func (seg *Segment) RowCountLocked() uint32 {
	return seg.store.rowCount
}

func (seg *Segment) RunCount() int {
	seg.RLock()
	defer seg.RUnlock()
	return seg.store.runCount
}

// IsFull reports whether the segment can take no more rows.
func (seg *Segment) IsFull() bool {
	seg.RLock()
	defer seg.RUnlock()
	return seg.store.rowCount == seg.store.maxRows
}

// VectorSize rows per scan vector.
func (seg *Segment) VectorSize() int {
	return int(seg.opts.StorageCfg.VectorSize)
}

// VectorCount the number of scan vectors covering the committed rows.
func (seg *Segment) VectorCount() int {
	seg.RLock()
	defer seg.RUnlock()
	return seg.vectorCountLocked()
}

func (seg *Segment) vectorCountLocked() int {
	size := seg.opts.StorageCfg.VectorSize
	return int((seg.store.rowCount + size - 1) / size)
}

func (seg *Segment) GetBlockID() buffer.BlockID {
	return seg.blockID
}

func (seg *Segment) GetChain() *updates.ColumnChain {
	return seg.chain
}

func (seg *Segment) GetSharedLock() sync.Locker {
	return common.GetSharedLock(seg.RWMutex)
}

func (seg *Segment) GetExclusiveLock() sync.Locker {
	return common.GetExclusiveLock(seg.RWMutex)
}

// Unload detaches the segment from its block and returns what OpenSegment
// needs to attach it again. The update chain is dropped.
func (seg *Segment) Unload() (buffer.BlockID, int, error) {
	seg.Lock()
	defer seg.Unlock()
	if seg.closed {
		return 0, 0, moerr.NewInvalidStateNoCtx("%s is closed", seg.id.SegmentString())
	}
	runCount := seg.store.runCount
	err := seg.chain.DropLocked()
	seg.mgr.Unpin(seg.handle)
	seg.closed = true
	return seg.blockID, runCount, err
}

// Close drops the update chain and frees the block.
func (seg *Segment) Close() error {
	seg.Lock()
	defer seg.Unlock()
	if seg.closed {
		return nil
	}
	seg.closed = true
	if err := seg.chain.DropLocked(); err != nil {
		logutil.Warn("drop update chain", zap.String("segment", seg.id.SegmentString()), zap.Error(err))
	}
	seg.mgr.Unpin(seg.handle)
	if err := seg.mgr.Free(seg.blockID); err != nil {
		return err
	}
	logutil.Debug("close rle segment", zap.String("segment", seg.id.SegmentString()))
	return nil
}

func (seg *Segment) String() string {
	seg.RLock()
	defer seg.RUnlock()
	return fmt.Sprintf("RLESegment%s[%s][start=%d,rows=%d,runs=%d,updates=%d]",
		seg.id.SegmentString(), seg.typ, seg.rowStart, seg.store.rowCount,
		seg.store.runCount, seg.chain.DepthLocked())
}

// fatal logs and aborts on a broken invariant.
func (seg *Segment) fatal(err error) {
	logutil.Error("rle segment fault",
		zap.String("segment", seg.id.SegmentString()),
		zap.Error(err))
	panic(err)
}
