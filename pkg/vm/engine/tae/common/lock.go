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

package common

import (
	"sync"
)

type sharedLock struct {
	locker *sync.RWMutex
}

func (lock *sharedLock) Lock() {
	lock.locker.RLock()
}

func (lock *sharedLock) Unlock() {
	lock.locker.RUnlock()
}

// NewSharedLock wraps the read side of locker as a sync.Locker.
func NewSharedLock(locker *sync.RWMutex) sync.Locker {
	return &sharedLock{
		locker: locker,
	}
}

// GetSharedLock acquires the read lock and returns the held locker.
func GetSharedLock(locker *sync.RWMutex) sync.Locker {
	l := NewSharedLock(locker)
	l.Lock()
	return l
}

// GetExclusiveLock acquires the write lock and returns the held locker.
func GetExclusiveLock(locker *sync.RWMutex) sync.Locker {
	locker.Lock()
	return locker
}

const (
	K uint64 = 1024
	M uint64 = 1024 * K
	G uint64 = 1024 * M
)
