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
	"runtime/pprof"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/container/types"
	"github.com/matrixorigin/rleseg/pkg/container/vector"
	"github.com/matrixorigin/rleseg/pkg/logutil"
	v2 "github.com/matrixorigin/rleseg/pkg/util/metric/v2"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/buffer"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/common"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/filter"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/tables"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/txn/txnbase"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/updates"
)

type sampleArgs struct {
	config     string
	rows       int
	runLength  int
	nullEvery  int
	batches    int
	txns       int
	workers    int
	profileDir string
}

func sampleCommand() *cobra.Command {
	args := sampleArgs{}
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Run a sample workload over an rle column",
		Long:  "Append generated runs, update them from concurrent transactions, then scan and filter the column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSample(cmd.Context(), args)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&args.config, "config", "c", "", "toml config file")
	flags.IntVar(&args.rows, "rows", 1000000, "rows to append")
	flags.IntVar(&args.runLength, "run-length", 64, "rows per generated run")
	flags.IntVar(&args.nullEvery, "null-every", 0, "make every n-th run null, 0 for none")
	flags.IntVar(&args.batches, "batches", 10, "append batches")
	flags.IntVar(&args.txns, "txns", 100, "update transactions")
	flags.IntVar(&args.workers, "workers", 10, "update workers")
	flags.StringVar(&args.profileDir, "profile", "", "write cpu and heap profiles into this dir")
	return cmd
}

func startProfile(dir string) (func(), error) {
	if dir == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	f, err := os.Create(filepath.Join(dir, "cpuprofile"))
	if err != nil {
		return nil, err
	}
	if err = pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
		memf, err := os.Create(filepath.Join(dir, "memprofile"))
		if err != nil {
			logrus.Warnf("create memprofile: %v", err)
			return
		}
		defer memf.Close()
		_ = pprof.Lookup("heap").WriteTo(memf, 0)
	}, nil
}

func generate(args sampleArgs) *vector.Vector {
	typ := types.T_int64.ToType()
	vec := vector.NewVectorWithCapacity(typ, args.rows)
	for i := 0; i < args.rows; i++ {
		run := i / args.runLength
		isNull := args.nullEvery > 0 && run%args.nullEvery == args.nullEvery-1
		vector.AppendFixed(vec, int64(run), isNull)
	}
	return vec
}

func runSample(ctx context.Context, args sampleArgs) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if args.rows <= 0 || args.runLength <= 0 || args.batches <= 0 {
		return moerr.NewInvalidInputNoCtx("rows, run-length and batches must be positive")
	}
	opts, err := loadOptions(args.config)
	if err != nil {
		return err
	}
	logutil.SetupMOLogger(opts.LogCfg)

	mgr := buffer.NewManager(
		buffer.NewSimpleMemoryPool(opts.BufferCfg.Capacity, opts.BufferCfg.UseMmap),
		opts.StorageCfg.BlockSize)
	store, err := updates.NewOverflowStore(opts.DeltaCfg.OverflowDir)
	if err != nil {
		return err
	}
	defer store.Close()
	col, err := tables.NewColumnData(common.ID{TableID: 1}, types.T_int64.ToType(), mgr, opts, store)
	if err != nil {
		return err
	}
	defer col.Close()

	stop, err := startProfile(args.profileDir)
	if err != nil {
		return err
	}
	defer stop()

	vec := generate(args)
	now := time.Now()
	size := (args.rows + args.batches - 1) / args.batches
	for start := 0; start < args.rows; start += size {
		end := start + size
		if end > args.rows {
			end = args.rows
		}
		if err = col.Append(vec.Window(start, end)); err != nil {
			return err
		}
	}
	logrus.Infof("Append %d rows into %d segments takes: %s", col.RowCount(), col.SegmentCount(), time.Since(now))

	txnMgr := txnbase.NewTxnManager()
	if err = runUpdates(col, txnMgr, args); err != nil {
		return err
	}

	reader := txnbase.NewSnapshotReader(txnMgr.Now())
	now = time.Now()
	result, err := col.Scan(ctx, reader)
	if err != nil {
		return err
	}
	logrus.Infof("Scan %d rows takes: %s", result.Length(), time.Since(now))

	now = time.Now()
	target := int64(args.rows / args.runLength / 2)
	selected, err := col.Filter(ctx, reader, []filter.Filter{filter.NewEqual(target)})
	if err != nil {
		return err
	}
	logrus.Infof("Filter %d rows equal to %d takes: %s", len(selected), target, time.Since(now))

	for i := 0; i < col.SegmentCount(); i++ {
		seg, zm := col.GetSegment(i)
		if err = seg.Verify(reader); err != nil {
			return err
		}
		logrus.Infof("%s runs=%d %s", seg.String(), seg.RunCount(), zm.String())
	}
	logrus.Infof("overflow payloads: %d", store.Count())
	return printMetrics()
}

// runUpdates commits args.txns transactions in parallel, each updating one
// row of every run it owns.
func runUpdates(col *tables.ColumnData, txnMgr *txnbase.TxnManager, args sampleArgs) error {
	if args.txns <= 0 {
		return nil
	}
	pool, err := ants.NewPool(args.workers)
	if err != nil {
		return err
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}
	runs := (args.rows + args.runLength - 1) / args.runLength
	doUpdate := func(id int) func() {
		return func() {
			defer wg.Done()
			txn := txnMgr.StartTxn(nil)
			var rows []uint64
			for run := id; run < runs; run += args.txns {
				rows = append(rows, uint64(run*args.runLength))
			}
			if len(rows) == 0 {
				setErr(txn.Rollback())
				return
			}
			vals := vector.NewVectorWithCapacity(types.T_int64.ToType(), len(rows))
			for _, row := range rows {
				vector.AppendFixed(vals, -int64(row), false)
			}
			if _, err := col.Update(txn, rows, vals); err != nil {
				setErr(err)
				setErr(txn.Rollback())
				return
			}
			setErr(txn.Commit())
		}
	}
	now := time.Now()
	for i := 0; i < args.txns; i++ {
		wg.Add(1)
		if err = pool.Submit(doUpdate(i)); err != nil {
			wg.Done()
			setErr(err)
			break
		}
	}
	wg.Wait()
	logrus.Infof("%d update txns take: %s", args.txns, time.Since(now))
	return firstErr
}

func printMetrics() error {
	families, err := v2.GetPrometheusGatherer().Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels string
			for _, l := range m.GetLabel() {
				labels += l.GetName() + "=" + l.GetValue() + " "
			}
			logrus.Infof("%s{%s} %v", mf.GetName(), labels, m.GetCounter().GetValue())
		}
	}
	return nil
}
