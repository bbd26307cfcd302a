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
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Executor splits n items into contiguous ranges, one per worker, and runs
// them in parallel. The first error cancels the context of the others.
type Executor struct {
	workers int
}

func NewExecutor(workers int) Executor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return Executor{workers: workers}
}

func (e Executor) Workers() int {
	return e.workers
}

func (e Executor) Execute(
	ctx context.Context,
	n int,
	fn func(ctx context.Context, worker int, start, end int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	size, rem := n/e.workers, n%e.workers
	start := 0
	for worker := 0; worker < e.workers; worker++ {
		end := start + size
		if worker < rem {
			end++
		}
		if end == start {
			break
		}
		worker, lo, hi := worker, start, end
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, worker, lo, hi)
		})
		start = end
	}
	return g.Wait()
}

// ForEach runs fn once per item.
func (e Executor) ForEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	return e.Execute(ctx, n, func(ctx context.Context, _ int, start, end int) error {
		for i := start; i < end; i++ {
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	})
}
