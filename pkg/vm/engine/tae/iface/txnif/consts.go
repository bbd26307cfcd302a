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

import "math"

// UncommitTS the commit ts of an entry whose txn has not committed.
const UncommitTS uint64 = math.MaxUint64

type TxnState int32

const (
	TxnStateActive TxnState = iota
	TxnStateCommitting
	TxnStateRollbacking
	//TxnStateCommitted and TxnStateRollbacked are final states.
	TxnStateCommitted
	TxnStateRollbacked
)

func (s TxnState) String() string {
	switch s {
	case TxnStateActive:
		return "Active"
	case TxnStateCommitting:
		return "Committing"
	case TxnStateRollbacking:
		return "Rollbacking"
	case TxnStateCommitted:
		return "Committed"
	case TxnStateRollbacked:
		return "Rollbacked"
	}
	return "Unknown"
}
