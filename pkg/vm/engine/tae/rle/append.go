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
	"github.com/matrixorigin/rleseg/pkg/container/vector"
	v2 "github.com/matrixorigin/rleseg/pkg/util/metric/v2"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/index"
)

// verifyOnAppend checks the whole store after every append.
var verifyOnAppend = false

// Append compresses vec[offset, offset+count) into the segment and returns
// how many values fit. A short count means the segment is full, the caller
// continues with a new segment.
func (seg *Segment) Append(stats index.StatsSink, vec *vector.Vector, offset, count int) int {
	if count == 0 {
		return 0
	}
	if !vec.GetType().Eq(seg.typ) {
		seg.fatal(moerr.NewInternalErrorNoCtx("append %s values to a %s segment", vec.GetType(), seg.typ))
	}
	if offset < 0 || count < 0 || offset+count > vec.Length() {
		seg.fatal(moerr.NewOutOfRangeNoCtx("vector", "append [%d, %d) of %d values",
			offset, offset+count, vec.Length()))
	}
	if stats == nil {
		stats = index.NoopSink{}
	}
	seg.Lock()
	defer seg.Unlock()
	appended := seg.fns.append(seg, stats, vec, offset, count)
	v2.RLEAppendRowsCounter.Add(float64(appended))
	if verifyOnAppend {
		if err := seg.verifyStoreLocked(); err != nil {
			seg.fatal(err)
		}
	}
	return appended
}
