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

package tables

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/matrixorigin/rleseg/pkg/common/concurrent"
	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/container/types"
	"github.com/matrixorigin/rleseg/pkg/container/vector"
	"github.com/matrixorigin/rleseg/pkg/logutil"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/buffer"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/common"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/filter"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/iface/txnif"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/index"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/options"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/rle"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/updates"
)

type columnSegment struct {
	*rle.Segment
	zm *index.ZoneMap
}

// ColumnData one column stored as a chain of rle segments. It routes
// appends to the last segment, opening a new one when it fills up, and
// translates column rows into segment rows.
type ColumnData struct {
	sync.RWMutex
	id       common.ID
	typ      types.Type
	opts     *options.Options
	mgr      buffer.Manager
	overflow updates.OverflowStore

	segments []*columnSegment
	rows     uint64

	scanPool *ants.Pool
	executor concurrent.Executor
}

func NewColumnData(
	id common.ID,
	typ types.Type,
	mgr buffer.Manager,
	opts *options.Options,
	overflow updates.OverflowStore) (*ColumnData, error) {
	if !rle.IsSupported(typ) {
		return nil, moerr.NewNotSupportedNoCtx("rle column of type %s", typ)
	}
	opts = opts.FillDefaults()
	pool, err := ants.NewPool(opts.SchedulerCfg.ScanWorkers)
	if err != nil {
		return nil, err
	}
	return &ColumnData{
		id:       id,
		typ:      typ,
		opts:     opts,
		mgr:      mgr,
		overflow: overflow,
		scanPool: pool,
		executor: concurrent.NewExecutor(opts.SchedulerCfg.FilterWorkers),
	}, nil
}

func (c *ColumnData) GetType() types.Type {
	return c.typ
}

func (c *ColumnData) RowCount() uint64 {
	c.RLock()
	defer c.RUnlock()
	return c.rows
}

func (c *ColumnData) SegmentCount() int {
	c.RLock()
	defer c.RUnlock()
	return len(c.segments)
}

// GetSegment returns the i-th segment and its zone map.
func (c *ColumnData) GetSegment(i int) (*rle.Segment, *index.ZoneMap) {
	c.RLock()
	defer c.RUnlock()
	seg := c.segments[i]
	return seg.Segment, seg.zm
}

func (c *ColumnData) openSegmentLocked() (*columnSegment, error) {
	id := c.id.NextSegment(common.NextGlobalSeqNum())
	seg, err := rle.NewSegment(id, c.typ, c.rows, c.mgr, c.opts, c.overflow)
	if err != nil {
		return nil, err
	}
	cs := &columnSegment{Segment: seg, zm: index.NewZoneMap(c.typ)}
	c.segments = append(c.segments, cs)
	logutil.Info("open column segment",
		zap.String("column", c.id.ColumnString()),
		zap.String("segment", id.SegmentString()),
		zap.Uint64("row-start", c.rows))
	return cs, nil
}

// Append appends all of vec, spilling into new segments as they fill up.
func (c *ColumnData) Append(vec *vector.Vector) error {
	c.Lock()
	defer c.Unlock()
	offset, total := 0, vec.Length()
	for offset < total {
		var seg *columnSegment
		if n := len(c.segments); n > 0 && !c.segments[n-1].IsFull() {
			seg = c.segments[n-1]
		}
		fresh := false
		if seg == nil {
			var err error
			if seg, err = c.openSegmentLocked(); err != nil {
				return err
			}
			fresh = true
		}
		appended := seg.Append(seg.zm, vec, offset, total-offset)
		if appended == 0 {
			if fresh {
				return moerr.NewInternalErrorNoCtx("%s: empty segment took no rows", c.id.ColumnString())
			}
			if _, err := c.openSegmentLocked(); err != nil {
				return err
			}
			continue
		}
		offset += appended
		c.rows += uint64(appended)
	}
	return nil
}

// locateLocked returns the segment holding the column row and the row
// within the segment.
func (c *ColumnData) locateLocked(row uint64) (*columnSegment, uint32) {
	if row >= c.rows {
		panic(moerr.NewOutOfRangeNoCtx("row", "row %d of %s with %d rows", row, c.id.ColumnString(), c.rows))
	}
	i := sort.Search(len(c.segments), func(i int) bool {
		return c.segments[i].RowStart() > row
	}) - 1
	seg := c.segments[i]
	return seg, uint32(row - seg.RowStart())
}

// Update replaces the values of the column rows for txn.
func (c *ColumnData) Update(txn txnif.AsyncTxn, rows []uint64, vals *vector.Vector) ([]*updates.UpdateNode, error) {
	if len(rows) != vals.Length() {
		return nil, moerr.NewInvalidInputNoCtx("update %d rows with %d values", len(rows), vals.Length())
	}
	c.RLock()
	defer c.RUnlock()
	type batch struct {
		seg  *columnSegment
		rows []uint32
		vals *vector.Vector
	}
	var batches []*batch
	bySeg := make(map[*columnSegment]*batch)
	for i, row := range rows {
		seg, local := c.locateLocked(row)
		b, ok := bySeg[seg]
		if !ok {
			b = &batch{seg: seg, vals: vector.NewVector(c.typ)}
			bySeg[seg] = b
			batches = append(batches, b)
		}
		b.rows = append(b.rows, local)
		b.vals.AppendRaw(vals.GetRaw(i), vals.IsNull(i))
	}
	nodes := make([]*updates.UpdateNode, 0, len(batches))
	for _, b := range batches {
		node, err := b.seg.Update(txn, b.seg.zm, b.rows, b.vals)
		if err != nil {
			return nodes, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// FetchRows returns the values of the column rows as visible to reader.
func (c *ColumnData) FetchRows(reader txnif.TxnReader, rows []uint64) *vector.Vector {
	c.RLock()
	defer c.RUnlock()
	result := vector.NewVectorWithCapacity(c.typ, len(rows))
	states := make(map[*columnSegment]*rle.FetchState)
	for _, row := range rows {
		seg, local := c.locateLocked(row)
		state, ok := states[seg]
		if !ok {
			state = new(rle.FetchState)
			states[seg] = state
		}
		seg.FetchRow(state, reader, local, result)
	}
	return result
}

// Scan decodes the whole column as visible to reader, one segment per
// task of the scan pool.
func (c *ColumnData) Scan(ctx context.Context, reader txnif.TxnReader) (*vector.Vector, error) {
	c.RLock()
	segments := append([]*columnSegment(nil), c.segments...)
	c.RUnlock()

	parts := make([]*vector.Vector, len(segments))
	var wg sync.WaitGroup
	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		i, seg := i, seg
		wg.Add(1)
		err := c.scanPool.Submit(func() {
			defer wg.Done()
			parts[i] = scanSegment(seg.Segment, reader)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}
	wg.Wait()

	result := vector.NewVectorWithCapacity(c.typ, int(c.RowCount()))
	for _, part := range parts {
		for i := 0; i < part.Length(); i++ {
			result.AppendRaw(part.GetRaw(i), part.IsNull(i))
		}
	}
	return result, nil
}

func scanSegment(seg *rle.Segment, reader txnif.TxnReader) *vector.Vector {
	l := seg.GetSharedLock()
	defer l.Unlock()
	result := vector.NewVectorWithCapacity(seg.GetType(), int(seg.RowCountLocked()))
	state := new(rle.ScanState)
	seg.InitializeScan(state)
	size := int(seg.RowCountLocked())
	vectorSize := seg.VectorSize()
	for i := 0; i*vectorSize < size; i++ {
		seg.ScanLocked(reader, state, i, result)
	}
	return result
}

// skipSegment reports whether the zone map proves no row of seg passes
// filters.
func skipSegment(seg *columnSegment, filters []filter.Filter) bool {
	for _, f := range filters {
		rf, ok := f.(filter.RangeFilter)
		if !ok {
			continue
		}
		lo, hi, ok := rf.Bounds()
		if !ok {
			continue
		}
		if !seg.zm.MayContainsRange(lo, hi) {
			return true
		}
	}
	return false
}

// Filter returns the column rows passing every filter, in row order.
// Segments are filtered in parallel and skipped by their zone maps.
func (c *ColumnData) Filter(ctx context.Context, reader txnif.TxnReader, filters []filter.Filter) ([]uint64, error) {
	c.RLock()
	segments := append([]*columnSegment(nil), c.segments...)
	c.RUnlock()

	parts := make([][]uint64, len(segments))
	err := c.executor.ForEach(ctx, len(segments), func(ctx context.Context, i int) error {
		seg := segments[i]
		if skipSegment(seg, filters) {
			return nil
		}
		l := seg.GetSharedLock()
		defer l.Unlock()
		state := new(rle.ScanState)
		seg.InitializeScan(state)
		vectorSize := seg.VectorSize()
		rows := int(seg.RowCountLocked())
		var out []uint64
		for v := 0; v*vectorSize < rows; v++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			sel, approved := seg.SelectLocked(reader, state, v, vector.NewVector(c.typ), nil, 0, filters)
			base := seg.RowStart() + uint64(v*vectorSize)
			for _, idx := range sel[:approved] {
				out = append(out, base+uint64(idx))
			}
		}
		parts[i] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	var rows []uint64
	for _, part := range parts {
		rows = append(rows, part...)
	}
	return rows, nil
}

// Close releases the scan pool and every segment.
func (c *ColumnData) Close() error {
	c.Lock()
	defer c.Unlock()
	c.scanPool.Release()
	var err error
	for _, seg := range c.segments {
		if e := seg.Close(); e != nil && err == nil {
			err = e
		}
	}
	c.segments = nil
	return err
}

func (c *ColumnData) String() string {
	c.RLock()
	defer c.RUnlock()
	s := fmt.Sprintf("ColumnData%s[%s][rows=%d,segments=%d]", c.id.ColumnString(), c.typ, c.rows, len(c.segments))
	for _, seg := range c.segments {
		s = fmt.Sprintf("%s\n%s%s %s", s, common.RepeatStr("", 1), seg.Segment.String(), seg.zm.String())
	}
	return s
}
