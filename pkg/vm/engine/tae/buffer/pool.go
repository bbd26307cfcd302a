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
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/logutil"
)

type simpleMemoryPool struct {
	capacity uint64
	usage    uint64
	mmap     bool
}

// NewSimpleMemoryPool creates a pool of capacity bytes. With useMmap the
// block memory comes from anonymous private mappings.
func NewSimpleMemoryPool(capacity uint64, useMmap bool) MemoryPool {
	pool := &simpleMemoryPool{
		capacity: capacity,
		mmap:     useMmap,
	}
	return pool
}

func (pool *simpleMemoryPool) GetCapacity() uint64 {
	return atomic.LoadUint64(&pool.capacity)
}

func (pool *simpleMemoryPool) SetCapacity(capacity uint64) error {
	if capacity < atomic.LoadUint64(&pool.capacity) {
		return moerr.NewInvalidInputNoCtx("shrink pool capacity from %d to %d", pool.GetCapacity(), capacity)
	}
	atomic.StoreUint64(&pool.capacity, capacity)
	return nil
}

func (pool *simpleMemoryPool) GetUsage() uint64 {
	return atomic.LoadUint64(&pool.usage)
}

// Alloc returns nil when the pool has no room for size bytes.
func (pool *simpleMemoryPool) Alloc(size uint64) []byte {
	capacity := atomic.LoadUint64(&pool.capacity)
	for {
		currsize := atomic.LoadUint64(&pool.usage)
		postsize := currsize + size
		if postsize > capacity {
			return nil
		}
		if atomic.CompareAndSwapUint64(&pool.usage, currsize, postsize) {
			break
		}
	}
	if !pool.mmap {
		return make([]byte, size)
	}
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		logutil.Warnf("mmap %d bytes failed: %v", size, err)
		atomic.AddUint64(&pool.usage, ^uint64(size-1))
		return nil
	}
	return data
}

func (pool *simpleMemoryPool) Free(data []byte) {
	size := uint64(cap(data))
	if size == 0 {
		return
	}
	if pool.mmap {
		if err := unix.Munmap(data[:cap(data)]); err != nil {
			panic(moerr.NewInternalErrorNoCtx("munmap: %v", err))
		}
	}
	usagesize := atomic.AddUint64(&pool.usage, ^uint64(size-1))
	if usagesize > pool.GetCapacity() {
		panic(moerr.NewInternalErrorNoCtx("logic error: pool usage underflow"))
	}
}
