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
	"fmt"
)

// ID identifies one column segment.
type ID struct {
	// Internal table id
	TableID uint64
	// Column index within the table
	ColumnIdx uint16
	// Internal segment id
	SegmentID uint64
}

func (id *ID) String() string {
	return fmt.Sprintf("<%d-%d-%d>", id.TableID, id.ColumnIdx, id.SegmentID)
}

func (id *ID) ColumnString() string {
	return fmt.Sprintf("COL<%d-%d>", id.TableID, id.ColumnIdx)
}

func (id *ID) SegmentString() string {
	return fmt.Sprintf("SEG<%d-%d-%d>", id.TableID, id.ColumnIdx, id.SegmentID)
}

// NextSegment returns the id of the following segment of the same column.
func (id *ID) NextSegment(segmentID uint64) ID {
	return ID{
		TableID:   id.TableID,
		ColumnIdx: id.ColumnIdx,
		SegmentID: segmentID,
	}
}
