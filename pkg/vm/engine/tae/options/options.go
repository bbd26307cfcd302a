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

package options

import (
	"math"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/logutil"
)

// runHeaderSize bytes of the run length prefix of a run record.
const runHeaderSize = 4

// maxValueSize widest fixed value a run record may carry.
const maxValueSize = 8

func (o *Options) FillDefaults() *Options {
	if o == nil {
		o = &Options{}
	}

	if o.StorageCfg == nil {
		o.StorageCfg = &StorageCfg{}
	}
	if o.StorageCfg.BlockSize == 0 {
		o.StorageCfg.BlockSize = DefaultBlockSize
	}
	if o.StorageCfg.SegmentMaxRows == 0 {
		o.StorageCfg.SegmentMaxRows = DefaultSegmentMaxRows
	}
	if o.StorageCfg.VectorSize == 0 {
		o.StorageCfg.VectorSize = DefaultVectorSize
	}
	if o.StorageCfg.LinearSearchRuns == 0 {
		o.StorageCfg.LinearSearchRuns = DefaultLinearSearchRuns
	}

	if o.BufferCfg == nil {
		o.BufferCfg = &BufferCfg{
			Capacity: DefaultBufferCapacity,
		}
	}

	if o.DeltaCfg == nil {
		o.DeltaCfg = &DeltaCfg{}
	}
	if o.DeltaCfg.InlineNodeLimit == 0 {
		o.DeltaCfg.InlineNodeLimit = DefaultInlineNodeLimit
	}

	if o.SchedulerCfg == nil {
		o.SchedulerCfg = &SchedulerCfg{
			ScanWorkers:   DefaultScanWorkers,
			FilterWorkers: DefaultFilterWorkers,
		}
	}

	if o.LogCfg == nil {
		o.LogCfg = &logutil.LogConfig{
			Level:  "info",
			Format: "console",
		}
	}
	return o
}

// NullBitmapSize bytes reserved at the head of a block for the null bitmap,
// rounded up to 8 bytes.
func (cfg *StorageCfg) NullBitmapSize() uint64 {
	n := (cfg.SegmentMaxRows + 7) / 8
	return (n + 7) &^ 7
}

func (o *Options) Validate() error {
	storage := o.StorageCfg
	if storage.SegmentMaxRows > math.MaxUint32 {
		return moerr.NewBadConfigNoCtx("segment-max-rows %d exceeds the run length range", storage.SegmentMaxRows)
	}
	if storage.NullBitmapSize()+runHeaderSize+maxValueSize > storage.BlockSize {
		return moerr.NewBadConfigNoCtx("block-size %d cannot hold the null bitmap of %d rows",
			storage.BlockSize, storage.SegmentMaxRows)
	}
	if o.BufferCfg.Capacity < storage.BlockSize {
		return moerr.NewBadConfigNoCtx("buffer capacity %d is smaller than one block", o.BufferCfg.Capacity)
	}
	if o.DeltaCfg.InlineNodeLimit < 0 {
		return moerr.NewBadConfigNoCtx("inline-node-limit %d", o.DeltaCfg.InlineNodeLimit)
	}
	if o.SchedulerCfg.ScanWorkers <= 0 || o.SchedulerCfg.FilterWorkers <= 0 {
		return moerr.NewBadConfigNoCtx("scheduler workers must be positive")
	}
	return nil
}

// LoadOptions reads a toml file, fills defaults and validates.
func LoadOptions(path string) (*Options, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, moerr.NewFileNotFound(moerr.Context(), path)
		}
		return nil, moerr.ConvertGoError(moerr.Context(), err)
	}
	opts := &Options{}
	if _, err := toml.DecodeFile(path, opts); err != nil {
		return nil, moerr.NewBadConfigNoCtx("decode %s: %v", path, err)
	}
	opts = opts.FillDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}
