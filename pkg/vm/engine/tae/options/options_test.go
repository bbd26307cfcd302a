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
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
)

func TestFillDefaults(t *testing.T) {
	var o *Options
	o = o.FillDefaults()
	require.Equal(t, DefaultBlockSize, o.StorageCfg.BlockSize)
	require.Equal(t, DefaultSegmentMaxRows, o.StorageCfg.SegmentMaxRows)
	require.Equal(t, DefaultVectorSize, o.StorageCfg.VectorSize)
	require.Equal(t, DefaultLinearSearchRuns, o.StorageCfg.LinearSearchRuns)
	require.Equal(t, DefaultInlineNodeLimit, o.DeltaCfg.InlineNodeLimit)
	require.Equal(t, DefaultScanWorkers, o.SchedulerCfg.ScanWorkers)
	require.NoError(t, o.Validate())

	partial := &Options{StorageCfg: &StorageCfg{VectorSize: 4}}
	partial.FillDefaults()
	require.Equal(t, uint32(4), partial.StorageCfg.VectorSize)
	require.Equal(t, DefaultBlockSize, partial.StorageCfg.BlockSize)
}

func TestNullBitmapSize(t *testing.T) {
	cfg := &StorageCfg{SegmentMaxRows: 1}
	require.Equal(t, uint64(8), cfg.NullBitmapSize())
	cfg.SegmentMaxRows = 64
	require.Equal(t, uint64(8), cfg.NullBitmapSize())
	cfg.SegmentMaxRows = 65
	require.Equal(t, uint64(16), cfg.NullBitmapSize())
}

func TestValidate(t *testing.T) {
	o := (&Options{StorageCfg: &StorageCfg{BlockSize: 64, SegmentMaxRows: 1024}}).FillDefaults()
	err := o.Validate()
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))

	o = (&Options{StorageCfg: &StorageCfg{SegmentMaxRows: 1 << 33, BlockSize: 1 << 40}}).FillDefaults()
	require.True(t, moerr.IsMoErrCode(o.Validate(), moerr.ErrBadConfig))
}

func TestLoadOptions(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadOptions(path.Join(dir, "missing.toml"))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrFileNotFound))

	file := path.Join(dir, "rle.toml")
	content := `
[storage]
block-size = 4096
segment-max-rows = 1024
vector-size = 128

[delta]
inline-node-limit = 2
overflow-dir = "/tmp/overflow"

[log]
level = "debug"
format = "json"
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	o, err := LoadOptions(file)
	require.NoError(t, err)
	require.Equal(t, uint64(4096), o.StorageCfg.BlockSize)
	require.Equal(t, uint64(1024), o.StorageCfg.SegmentMaxRows)
	require.Equal(t, uint32(128), o.StorageCfg.VectorSize)
	require.Equal(t, DefaultLinearSearchRuns, o.StorageCfg.LinearSearchRuns)
	require.Equal(t, 2, o.DeltaCfg.InlineNodeLimit)
	require.Equal(t, "/tmp/overflow", o.DeltaCfg.OverflowDir)
	require.Equal(t, "debug", o.LogCfg.Level)
	require.Equal(t, DefaultScanWorkers, o.SchedulerCfg.ScanWorkers)

	bad := path.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[storage\n"), 0o644))
	_, err = LoadOptions(bad)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))
}
