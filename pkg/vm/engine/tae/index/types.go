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

package index

// StatsSink receives every value written to a column segment, one call per
// value. Implementations are never read back by the writer.
type StatsSink interface {
	Update(v []byte)
	UpdateNull()
}

// NoopSink drops all values.
type NoopSink struct{}

func (NoopSink) Update([]byte) {}
func (NoopSink) UpdateNull()   {}
