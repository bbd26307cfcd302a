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
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/common"
)

func TestPool(t *testing.T) {
	pool := NewSimpleMemoryPool(4*common.K, false)
	buf := pool.Alloc(common.K)
	require.Equal(t, int(common.K), len(buf))
	require.Equal(t, common.K, pool.GetUsage())
	require.Nil(t, pool.Alloc(4*common.K))

	require.Error(t, pool.SetCapacity(common.K))
	require.NoError(t, pool.SetCapacity(8*common.K))
	require.NotNil(t, pool.Alloc(4*common.K))

	pool.Free(buf)
	require.Equal(t, 4*common.K, pool.GetUsage())
}

func TestMmapPool(t *testing.T) {
	pool := NewSimpleMemoryPool(64*common.K, true)
	buf := pool.Alloc(16 * common.K)
	require.NotNil(t, buf)
	buf[0], buf[len(buf)-1] = 1, 2
	require.Equal(t, byte(0), buf[100])
	pool.Free(buf)
	require.Equal(t, uint64(0), pool.GetUsage())
}

func TestManager(t *testing.T) {
	mgr := NewManager(NewSimpleMemoryPool(2*common.K, false), common.K)
	require.Equal(t, common.K, mgr.BlockSize())

	id1, err := mgr.Allocate()
	require.NoError(t, err)
	id2, err := mgr.Allocate()
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	_, err = mgr.Allocate()
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM))

	h, err := mgr.Pin(id1)
	require.NoError(t, err)
	require.Equal(t, id1, h.GetID())
	h.GetBuffer()[0] = 42

	h2, err := mgr.Pin(id1)
	require.NoError(t, err)
	require.Equal(t, byte(42), h2.GetBuffer()[0])

	err = mgr.Free(id1)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidState))
	mgr.Unpin(h)
	mgr.Unpin(h2)
	require.Panics(t, func() { mgr.Unpin(h) })

	require.NoError(t, mgr.Free(id1))
	require.True(t, moerr.IsMoErrCode(mgr.Free(id1), moerr.ErrNotFound))
	_, err = mgr.Pin(id1)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrNotFound))
	require.Equal(t, common.K, mgr.GetUsage())
	require.Contains(t, mgr.String(), "blocks=1")
}

func TestManagerConcurrentAllocate(t *testing.T) {
	mgr := NewManager(NewSimpleMemoryPool(64*common.K, false), common.K)
	var wg sync.WaitGroup
	ids := make(chan BlockID, 64)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				id, err := mgr.Allocate()
				if err == nil {
					ids <- id
				}
			}
		}()
	}
	wg.Wait()
	close(ids)
	seen := make(map[BlockID]bool)
	for id := range ids {
		require.False(t, seen[id])
		seen[id] = true
	}
	require.Equal(t, 64, len(seen))
	require.Equal(t, 64*common.K, mgr.GetUsage())
}
