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
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/google/btree"
	"go.uber.org/zap"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/logutil"
	v2 "github.com/matrixorigin/rleseg/pkg/util/metric/v2"
)

const OverflowKeySize = 20

// OverflowKey locates a spilled payload. Keys of one segment are contiguous
// and ordered by row range.
type OverflowKey struct {
	SegmentID uint64
	MinRow    uint32
	MaxRow    uint32
	Handle    NodeHandle
}

func (k OverflowKey) Encode() []byte {
	buf := make([]byte, OverflowKeySize)
	binary.BigEndian.PutUint64(buf[0:], k.SegmentID)
	binary.BigEndian.PutUint32(buf[8:], k.MinRow)
	binary.BigEndian.PutUint32(buf[12:], k.MaxRow)
	binary.BigEndian.PutUint32(buf[16:], uint32(k.Handle))
	return buf
}

func DecodeOverflowKey(buf []byte) OverflowKey {
	return OverflowKey{
		SegmentID: binary.BigEndian.Uint64(buf[0:]),
		MinRow:    binary.BigEndian.Uint32(buf[8:]),
		MaxRow:    binary.BigEndian.Uint32(buf[12:]),
		Handle:    NodeHandle(binary.BigEndian.Uint32(buf[16:])),
	}
}

func (k OverflowKey) String() string {
	return fmt.Sprintf("OVF<%d:%d-%d:%d>", k.SegmentID, k.MinRow, k.MaxRow, k.Handle)
}

// Less orders keys the same way their encodings sort.
func (k OverflowKey) Less(than btree.Item) bool {
	o := than.(OverflowKey)
	if k.SegmentID != o.SegmentID {
		return k.SegmentID < o.SegmentID
	}
	if k.MinRow != o.MinRow {
		return k.MinRow < o.MinRow
	}
	if k.MaxRow != o.MaxRow {
		return k.MaxRow < o.MaxRow
	}
	return k.Handle < o.Handle
}

// OverflowStore holds the payloads of update nodes evicted from memory.
type OverflowStore interface {
	Put(key OverflowKey, payload *Payload, width int) error
	Get(key OverflowKey) (*Payload, error)
	Delete(key OverflowKey) error
	// Overlapping calls fn with the keys of segID whose row range
	// intersects [start, end), in key order, until fn returns false.
	Overlapping(segID uint64, start, end uint32, fn func(OverflowKey) bool)
	DropSegment(segID uint64) error
	Count() int
	Close() error
}

type pebbleStore struct {
	db *pebble.DB
	mu sync.RWMutex
	// index mirrors the key set of db
	index *btree.BTree
}

// NewOverflowStore opens a pebble backed store in dir. An empty dir keeps
// everything in memory.
func NewOverflowStore(dir string) (OverflowStore, error) {
	opts := &pebble.Options{}
	if dir == "" {
		opts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, err
	}
	s := &pebbleStore{
		db:    db,
		index: btree.New(16),
	}
	if err = s.replay(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// replay drops the payloads left by a previous process. Update nodes only
// live in memory, so no segment can own them after a restart.
func (s *pebbleStore) replay() error {
	var orphans []OverflowKey
	iter := s.db.NewIter(&pebble.IterOptions{})
	for iter.First(); iter.Valid(); iter.Next() {
		if len(iter.Key()) != OverflowKeySize {
			continue
		}
		orphans = append(orphans, DecodeOverflowKey(iter.Key()))
	}
	err := iter.Error()
	if cerr := iter.Close(); err == nil {
		err = cerr
	}
	if err != nil || len(orphans) == 0 {
		return err
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	for _, key := range orphans {
		if err = batch.Delete(key.Encode(), nil); err != nil {
			return err
		}
	}
	if err = batch.Commit(pebble.Sync); err != nil {
		return err
	}
	logutil.Info("overflow store dropped orphan payloads", zap.Int("payloads", len(orphans)))
	return nil
}

func (s *pebbleStore) Put(key OverflowKey, payload *Payload, width int) error {
	raw, err := EncodePayload(payload, width)
	if err != nil {
		return err
	}
	data, err := compress(raw)
	if err != nil {
		return err
	}
	if err = s.db.Set(key.Encode(), data, pebble.NoSync); err != nil {
		return err
	}
	s.mu.Lock()
	s.index.ReplaceOrInsert(key)
	s.mu.Unlock()
	v2.OverflowSpillCounter.Inc()
	v2.OverflowRawBytesCounter.Add(float64(len(raw)))
	v2.OverflowCompressedBytesCounter.Add(float64(len(data)))
	return nil
}

func (s *pebbleStore) Get(key OverflowKey) (*Payload, error) {
	data, closer, err := s.db.Get(key.Encode())
	if err == pebble.ErrNotFound {
		return nil, moerr.NewNotFoundNoCtx()
	}
	if err != nil {
		return nil, err
	}
	raw, err := decompress(data)
	closer.Close()
	if err != nil {
		return nil, err
	}
	payload, _, err := DecodePayload(raw)
	if err != nil {
		return nil, err
	}
	v2.OverflowLoadCounter.Inc()
	return payload, nil
}

func (s *pebbleStore) Delete(key OverflowKey) error {
	if err := s.db.Delete(key.Encode(), pebble.NoSync); err != nil {
		return err
	}
	s.mu.Lock()
	s.index.Delete(key)
	s.mu.Unlock()
	v2.OverflowDeleteCounter.Inc()
	return nil
}

func (s *pebbleStore) Overlapping(segID uint64, start, end uint32, fn func(OverflowKey) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lo := OverflowKey{SegmentID: segID}
	hi := OverflowKey{SegmentID: segID, MinRow: end}
	s.index.AscendRange(lo, hi, func(item btree.Item) bool {
		key := item.(OverflowKey)
		if key.MaxRow < start {
			return true
		}
		return fn(key)
	})
}

// DropSegment removes every payload of segID.
func (s *pebbleStore) DropSegment(segID uint64) error {
	lo := OverflowKey{SegmentID: segID}
	hi := OverflowKey{SegmentID: segID + 1}
	if err := s.db.DeleteRange(lo.Encode(), hi.Encode(), pebble.NoSync); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var dropped []btree.Item
	s.index.AscendRange(lo, hi, func(item btree.Item) bool {
		dropped = append(dropped, item)
		return true
	})
	for _, item := range dropped {
		s.index.Delete(item)
	}
	v2.OverflowDeleteCounter.Add(float64(len(dropped)))
	return nil
}

func (s *pebbleStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Len()
}

func (s *pebbleStore) Close() error {
	return s.db.Close()
}
