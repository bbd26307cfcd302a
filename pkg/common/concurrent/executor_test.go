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

package concurrent

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/lni/goutils/leaktest"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
)

func TestExecute(t *testing.T) {
	defer leaktest.AfterTest(t)()
	e := NewExecutor(4)
	require.Equal(t, 4, e.Workers())

	seen := make([]int32, 10)
	var calls int32
	err := e.Execute(context.Background(), 10, func(_ context.Context, _ int, start, end int) error {
		atomic.AddInt32(&calls, 1)
		for i := start; i < end; i++ {
			atomic.AddInt32(&seen[i], 1)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, int32(4), calls)
	for _, cnt := range seen {
		require.Equal(t, int32(1), cnt)
	}

	calls = 0
	require.NoError(t, e.Execute(context.Background(), 2, func(context.Context, int, int, int) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))
	require.Equal(t, int32(2), calls)
	require.NoError(t, e.Execute(context.Background(), 0, nil))
}

func TestForEachError(t *testing.T) {
	defer leaktest.AfterTest(t)()
	e := NewExecutor(0)
	err := e.ForEach(context.Background(), 100, func(_ context.Context, i int) error {
		if i == 42 {
			return moerr.NewInternalErrorNoCtx("item %d", i)
		}
		return nil
	})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInternal))
}
