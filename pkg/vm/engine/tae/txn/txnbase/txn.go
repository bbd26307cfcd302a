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

package txnbase

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/iface/txnif"
)

type Txn struct {
	sync.Mutex
	Mgr      *TxnManager
	ID       uint64
	StartTS  uint64
	commitTS uint64
	state    int32
	Info     []byte
	entries  []txnif.TxnEntry
}

func NewTxn(mgr *TxnManager, id, startTS uint64, info []byte) *Txn {
	return &Txn{
		Mgr:      mgr,
		ID:       id,
		StartTS:  startTS,
		commitTS: txnif.UncommitTS,
		Info:     info,
	}
}

func (txn *Txn) GetID() uint64 {
	return txn.ID
}

func (txn *Txn) GetStartTS() uint64 {
	return txn.StartTS
}

func (txn *Txn) GetCommitTS() uint64 {
	return atomic.LoadUint64(&txn.commitTS)
}

func (txn *Txn) GetTxnState() txnif.TxnState {
	return txnif.TxnState(atomic.LoadInt32(&txn.state))
}

func (txn *Txn) setState(state txnif.TxnState) {
	atomic.StoreInt32(&txn.state, int32(state))
}

func (txn *Txn) String() string {
	return fmt.Sprintf("Txn[%d][%d->%d][%s]", txn.ID, txn.StartTS, txn.GetCommitTS(), txn.GetTxnState())
}

// LogTxnEntry registers entry to be applied when the txn ends.
func (txn *Txn) LogTxnEntry(entry txnif.TxnEntry) error {
	if txn.GetTxnState() != txnif.TxnStateActive {
		return moerr.NewTxnClosed(moerr.Context(), txn.ID)
	}
	txn.entries = append(txn.entries, entry)
	return nil
}

func (txn *Txn) Commit() error {
	return txn.Mgr.commit(txn)
}

func (txn *Txn) Rollback() error {
	return txn.Mgr.rollback(txn)
}

// applyCommitLocked stamps ts on the txn and every entry.
func (txn *Txn) applyCommitLocked(ts uint64) {
	txn.setState(txnif.TxnStateCommitting)
	atomic.StoreUint64(&txn.commitTS, ts)
	for _, entry := range txn.entries {
		if err := entry.ApplyCommit(ts); err != nil {
			panic(err)
		}
	}
	txn.setState(txnif.TxnStateCommitted)
}

func (txn *Txn) applyRollbackLocked() (err error) {
	txn.setState(txnif.TxnStateRollbacking)
	for i := len(txn.entries) - 1; i >= 0; i-- {
		if err = txn.entries[i].ApplyRollback(); err != nil {
			return
		}
	}
	txn.setState(txnif.TxnStateRollbacked)
	return
}

type snapshotReader struct {
	ts uint64
}

// NewSnapshotReader returns a reader that sees everything committed at or
// before ts and owns no writes.
func NewSnapshotReader(ts uint64) txnif.TxnReader {
	return &snapshotReader{ts: ts}
}

func (r *snapshotReader) GetID() uint64 {
	return 0
}

func (r *snapshotReader) GetStartTS() uint64 {
	return r.ts
}

func (r *snapshotReader) GetCommitTS() uint64 {
	return txnif.UncommitTS
}

func (r *snapshotReader) GetTxnState() txnif.TxnState {
	return txnif.TxnStateActive
}

func (r *snapshotReader) String() string {
	return fmt.Sprintf("Snapshot[%d]", r.ts)
}
