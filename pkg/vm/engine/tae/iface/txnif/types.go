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

package txnif

import (
	"sync"
)

// TxnReader is what a reader exposes to visibility checks: its identity
// and its snapshot.
type TxnReader interface {
	GetID() uint64
	GetStartTS() uint64
	GetCommitTS() uint64
	GetTxnState() TxnState
	String() string
}

// TxnEntry a change registered with a txn, applied once the txn ends.
type TxnEntry interface {
	ApplyCommit(ts uint64) error
	ApplyRollback() error
}

type AsyncTxn interface {
	sync.Locker
	TxnReader
	LogTxnEntry(entry TxnEntry) error
	Commit() error
	Rollback() error
}
