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

package buffer

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/logutil"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/common"
)

type node struct {
	id   BlockID
	data []byte
	refs int32
}

type handle struct {
	n *node
}

func (h *handle) GetID() BlockID {
	return h.n.id
}

func (h *handle) GetBuffer() []byte {
	return h.n.data
}

type manager struct {
	sync.Mutex
	pool      MemoryPool
	blockSize uint64
	idAlloc   *common.IdAlloctor
	nodes     map[BlockID]*node
}

// NewManager creates a block manager of blockSize blocks over pool.
func NewManager(pool MemoryPool, blockSize uint64) Manager {
	return &manager{
		pool:      pool,
		blockSize: blockSize,
		idAlloc:   common.NewIdAlloctor(1),
		nodes:     make(map[BlockID]*node),
	}
}

func (mgr *manager) BlockSize() uint64 {
	return mgr.blockSize
}

func (mgr *manager) GetCapacity() uint64 {
	return mgr.pool.GetCapacity()
}

func (mgr *manager) GetUsage() uint64 {
	return mgr.pool.GetUsage()
}

func (mgr *manager) Allocate() (BlockID, error) {
	data := mgr.pool.Alloc(mgr.blockSize)
	if data == nil {
		logutil.Warn("buffer pool exhausted",
			zap.Uint64("usage", mgr.pool.GetUsage()),
			zap.Uint64("capacity", mgr.pool.GetCapacity()))
		return 0, moerr.NewOOMNoCtx()
	}
	id := BlockID(mgr.idAlloc.Alloc())
	mgr.Lock()
	mgr.nodes[id] = &node{id: id, data: data}
	mgr.Unlock()
	return id, nil
}

func (mgr *manager) Pin(id BlockID) (Handle, error) {
	mgr.Lock()
	defer mgr.Unlock()
	n, ok := mgr.nodes[id]
	if !ok {
		return nil, moerr.NewNotFoundNoCtx()
	}
	n.refs++
	return &handle{n: n}, nil
}

func (mgr *manager) Unpin(h Handle) {
	mgr.Lock()
	defer mgr.Unlock()
	n, ok := mgr.nodes[h.GetID()]
	if !ok || n.refs <= 0 {
		panic(moerr.NewInternalErrorNoCtx("logic error: unpin %s", h.GetID()))
	}
	n.refs--
}

func (mgr *manager) Free(id BlockID) error {
	mgr.Lock()
	n, ok := mgr.nodes[id]
	if !ok {
		mgr.Unlock()
		return moerr.NewNotFoundNoCtx()
	}
	if n.refs > 0 {
		mgr.Unlock()
		return moerr.NewInvalidStateNoCtx("free pinned block %s, refs %d", id, n.refs)
	}
	delete(mgr.nodes, id)
	mgr.Unlock()
	mgr.pool.Free(n.data)
	n.data = nil
	return nil
}

func (mgr *manager) String() string {
	mgr.Lock()
	defer mgr.Unlock()
	return fmt.Sprintf("BufferManager<blocks=%d, usage=%d/%d>",
		len(mgr.nodes), mgr.pool.GetUsage(), mgr.pool.GetCapacity())
}
