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

package buffer

import "fmt"

type BlockID uint64

func (id BlockID) String() string {
	return fmt.Sprintf("BLK<%d>", uint64(id))
}

// Handle a pinned block. The buffer stays valid until the handle is unpinned.
type Handle interface {
	GetID() BlockID
	GetBuffer() []byte
}

// Manager hands out fixed size blocks and tracks their pins.
type Manager interface {
	Allocate() (BlockID, error)
	Pin(id BlockID) (Handle, error)
	Unpin(h Handle)
	Free(id BlockID) error
	BlockSize() uint64
	GetCapacity() uint64
	GetUsage() uint64
	String() string
}

// MemoryPool accounts the bytes handed out to blocks.
type MemoryPool interface {
	GetCapacity() uint64
	SetCapacity(uint64) error
	GetUsage() uint64
	Alloc(size uint64) []byte
	Free(data []byte)
}
