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
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/common"
	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/iface/txnif"
)

type TxnManager struct {
	sync.RWMutex
	Active           map[uint64]*Txn
	IdAlloc, TsAlloc *common.IdAlloctor
}

func NewTxnManager() *TxnManager {
	return &TxnManager{
		Active:  make(map[uint64]*Txn),
		IdAlloc: common.NewIdAlloctor(1),
		TsAlloc: common.NewIdAlloctor(1),
	}
}

func (mgr *TxnManager) Init(prevTxnId uint64, prevTs uint64) error {
	mgr.IdAlloc.SetStart(prevTxnId)
	mgr.TsAlloc.SetStart(prevTs)
	return nil
}

// StartTxn starts a txn whose snapshot is every commit applied so far.
func (mgr *TxnManager) StartTxn(info []byte) txnif.AsyncTxn {
	mgr.Lock()
	defer mgr.Unlock()
	txnId := mgr.IdAlloc.Alloc()
	startTs := mgr.TsAlloc.Alloc()

	txn := NewTxn(mgr, txnId, startTs, info)
	mgr.Active[txnId] = txn
	return txn
}

func (mgr *TxnManager) GetTxn(id uint64) txnif.AsyncTxn {
	mgr.RLock()
	defer mgr.RUnlock()
	txn, ok := mgr.Active[id]
	if !ok {
		return nil
	}
	return txn
}

func (mgr *TxnManager) ActiveCount() int {
	mgr.RLock()
	defer mgr.RUnlock()
	return len(mgr.Active)
}

// Now returns the latest allocated ts.
func (mgr *TxnManager) Now() uint64 {
	return mgr.TsAlloc.Get()
}

// commit allocates the commit ts and applies all entries under the manager
// lock, so a txn started afterwards sees every entry committed.
func (mgr *TxnManager) commit(txn *Txn) error {
	now := time.Now()
	txn.Lock()
	defer txn.Unlock()
	if txn.GetTxnState() != txnif.TxnStateActive {
		return moerr.NewTxnClosed(moerr.Context(), txn.ID)
	}
	mgr.Lock()
	ts := mgr.TsAlloc.Alloc()
	txn.applyCommitLocked(ts)
	delete(mgr.Active, txn.ID)
	mgr.Unlock()
	logrus.Debugf("%s Commit %d entries Takes: %s", txn.String(), len(txn.entries), time.Since(now))
	return nil
}

func (mgr *TxnManager) rollback(txn *Txn) error {
	txn.Lock()
	defer txn.Unlock()
	if txn.GetTxnState() != txnif.TxnStateActive {
		return moerr.NewTxnClosed(moerr.Context(), txn.ID)
	}
	err := txn.applyRollbackLocked()
	mgr.Lock()
	delete(mgr.Active, txn.ID)
	mgr.Unlock()
	if err != nil {
		logrus.Warnf("%s Rollback failed: %v", txn.String(), err)
		return err
	}
	logrus.Debugf("%s Rollback %d entries", txn.String(), len(txn.entries))
	return nil
}
