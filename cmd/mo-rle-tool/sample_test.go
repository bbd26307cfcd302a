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

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunSample(t *testing.T) {
	args := sampleArgs{
		rows:      5000,
		runLength: 7,
		nullEvery: 5,
		batches:   3,
		txns:      8,
		workers:   4,
	}
	require.NoError(t, runSample(context.Background(), args))

	args.rows = 0
	require.Error(t, runSample(context.Background(), args))
}

func TestLoadOptions(t *testing.T) {
	opts, err := loadOptions("")
	require.NoError(t, err)
	require.NotZero(t, opts.StorageCfg.BlockSize)

	path := filepath.Join(t.TempDir(), "rle.toml")
	require.NoError(t, os.WriteFile(path, []byte("[storage]\nsegment-max-rows = 4096\nvector-size = 1024\n"), 0644))
	opts, err = loadOptions(path)
	require.NoError(t, err)
	require.Equal(t, uint64(4096), opts.StorageCfg.SegmentMaxRows)
	require.Equal(t, uint32(1024), opts.StorageCfg.VectorSize)

	_, err = loadOptions(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
