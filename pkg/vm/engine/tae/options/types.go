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
	"github.com/matrixorigin/rleseg/pkg/logutil"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/common"
)

const (
	DefaultBlockSize        = 256 * common.K
	DefaultVectorSize       = uint32(8192)
	DefaultSegmentMaxRows   = uint64(DefaultVectorSize) * 15
	DefaultLinearSearchRuns = uint32(16)

	DefaultInlineNodeLimit = 8

	DefaultBufferCapacity = 1 * common.G

	DefaultScanWorkers   = 4
	DefaultFilterWorkers = 4
)

type Options struct {
	StorageCfg   *StorageCfg        `toml:"storage"`
	BufferCfg    *BufferCfg         `toml:"buffer"`
	DeltaCfg     *DeltaCfg          `toml:"delta"`
	SchedulerCfg *SchedulerCfg      `toml:"scheduler"`
	LogCfg       *logutil.LogConfig `toml:"log"`
}

type StorageCfg struct {
	// BlockSize bytes of one segment block
	BlockSize uint64 `toml:"block-size"`
	// SegmentMaxRows rows one segment may hold, bounds the null bitmap
	SegmentMaxRows uint64 `toml:"segment-max-rows"`
	// VectorSize rows decoded per scan vector
	VectorSize uint32 `toml:"vector-size"`
	// LinearSearchRuns run count up to which row lookup scans linearly
	LinearSearchRuns uint32 `toml:"linear-search-runs"`
}

type BufferCfg struct {
	// Capacity bytes the block pool may hand out
	Capacity uint64 `toml:"capacity"`
	// UseMmap backs blocks with anonymous mappings instead of the go heap
	UseMmap bool `toml:"use-mmap"`
}

type DeltaCfg struct {
	// InlineNodeLimit update payloads kept in memory per segment
	InlineNodeLimit int `toml:"inline-node-limit"`
	// OverflowDir directory of the overflow store, empty means in memory
	OverflowDir string `toml:"overflow-dir"`
}

type SchedulerCfg struct {
	ScanWorkers   int `toml:"scan-workers"`
	FilterWorkers int `toml:"filter-workers"`
}
