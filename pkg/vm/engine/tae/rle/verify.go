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
	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/container/types"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/iface/txnif"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/updates"
)

// Verify checks the run store and the updates visible to reader.
func (seg *Segment) Verify(reader txnif.TxnReader) error {
	seg.RLock()
	defer seg.RUnlock()
	if err := seg.verifyStoreLocked(); err != nil {
		return err
	}
	return seg.verifyUpdatesLocked(reader)
}

func (seg *Segment) verifyStoreLocked() error {
	rs := seg.store
	if len(rs.runEnds) != rs.runCount {
		return moerr.NewInternalErrorNoCtx("%d run ends for %d runs", len(rs.runEnds), rs.runCount)
	}
	zero := make([]byte, rs.width)
	var rows uint32
	for i := 0; i < rs.runCount; i++ {
		n := rs.runLen(i)
		if n == 0 {
			return moerr.NewInternalErrorNoCtx("run %d is empty", i)
		}
		start := rows
		rows += n
		if rs.runEnds[i] != rows {
			return moerr.NewInternalErrorNoCtx("run %d ends at %d, indexed at %d", i, rows, rs.runEnds[i])
		}
		isNull := rs.isNullRow(start)
		for row := start + 1; row < rows; row++ {
			if rs.isNullRow(row) != isNull {
				return moerr.NewInternalErrorNoCtx("run %d mixes null and not null rows", i)
			}
		}
		if isNull && !types.BitEqual(rs.value(i), zero) {
			return moerr.NewInternalErrorNoCtx("null run %d holds a value", i)
		}
		if i > 0 && rs.runIsNull(i-1) == isNull && types.BitEqual(rs.value(i-1), rs.value(i)) {
			return moerr.NewInternalErrorNoCtx("runs %d and %d hold the same value", i-1, i)
		}
	}
	if rows != rs.rowCount {
		return moerr.NewInternalErrorNoCtx("runs cover %d rows, segment has %d", rows, rs.rowCount)
	}
	if rows > rs.maxRows {
		return moerr.NewInternalErrorNoCtx("%d rows exceed the segment capacity %d", rows, rs.maxRows)
	}
	return nil
}

func (seg *Segment) verifyUpdatesLocked(reader txnif.TxnReader) (err error) {
	rows := seg.store.rowCount
	seg.chain.LoopVisibleLocked(reader, func(node *updates.UpdateNode) bool {
		if node.MaxRow() >= rows {
			err = moerr.NewInternalErrorNoCtx("%s updates row %d of %d", node.String(), node.MaxRow(), rows)
			return false
		}
		return true
	})
	return
}
