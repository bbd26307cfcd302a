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

package types

import (
	"fmt"
	"time"

	"golang.org/x/exp/constraints"
)

type T uint8

const (
	// any family
	T_any T = 0

	// bool family
	T_bool T = 10

	// numeric/integer family
	T_int8   T = 20
	T_int16  T = 21
	T_int32  T = 22
	T_int64  T = 23
	T_uint8  T = 25
	T_uint16 T = 26
	T_uint32 T = 27
	T_uint64 T = 28

	// numeric/float family
	T_float32 T = 30
	T_float64 T = 31

	// date family
	T_date      T = 50
	T_datetime  T = 51
	T_timestamp T = 52

	// string family
	T_char    T = 60
	T_varchar T = 61
)

// Date days since the unix epoch.
type Date int32

// Datetime microseconds since the unix epoch, no time zone.
type Datetime int64

// Timestamp microseconds since the unix epoch in UTC.
type Timestamp int64

// FixedSizeT the go types a fixed width column is decoded into.
type FixedSizeT interface {
	~bool | constraints.Integer | constraints.Float
}

// OrderedT the fixed width types that have a natural order.
type OrderedT interface {
	constraints.Integer | constraints.Float
}

type Type struct {
	Oid T
	// Size of the decoded value in bytes, 0 for variable length types.
	Size int32
}

var typeSizes = map[T]int32{
	T_bool:      1,
	T_int8:      1,
	T_int16:     2,
	T_int32:     4,
	T_int64:     8,
	T_uint8:     1,
	T_uint16:    2,
	T_uint32:    4,
	T_uint64:    8,
	T_float32:   4,
	T_float64:   8,
	T_date:      DateSize,
	T_datetime:  DatetimeSize,
	T_timestamp: TimestampSize,
	T_char:      0,
	T_varchar:   0,
}

func New(oid T) Type {
	return Type{Oid: oid, Size: typeSizes[oid]}
}

func (t T) ToType() Type {
	return New(t)
}

func (t T) String() string {
	switch t {
	case T_any:
		return "ANY"
	case T_bool:
		return "BOOL"
	case T_int8:
		return "TINYINT"
	case T_int16:
		return "SMALLINT"
	case T_int32:
		return "INT"
	case T_int64:
		return "BIGINT"
	case T_uint8:
		return "TINYINT UNSIGNED"
	case T_uint16:
		return "SMALLINT UNSIGNED"
	case T_uint32:
		return "INT UNSIGNED"
	case T_uint64:
		return "BIGINT UNSIGNED"
	case T_float32:
		return "FLOAT"
	case T_float64:
		return "DOUBLE"
	case T_date:
		return "DATE"
	case T_datetime:
		return "DATETIME"
	case T_timestamp:
		return "TIMESTAMP"
	case T_char:
		return "CHAR"
	case T_varchar:
		return "VARCHAR"
	}
	return fmt.Sprintf("unexpected type: %d", uint8(t))
}

func (t Type) String() string {
	return t.Oid.String()
}

func (t Type) TypeSize() int {
	return int(t.Size)
}

func (t Type) IsFixedLen() bool {
	return t.Size > 0
}

func (t Type) Eq(b Type) bool {
	return t.Oid == b.Oid && t.Size == b.Size
}

func (d Date) String() string {
	return time.Unix(int64(d)*secsPerDay, 0).UTC().Format("2006-01-02")
}

func (dt Datetime) String() string {
	return time.UnixMicro(int64(dt)).UTC().Format("2006-01-02 15:04:05.000000")
}

func (ts Timestamp) String() string {
	return time.UnixMicro(int64(ts)).UTC().Format("2006-01-02 15:04:05.000000 UTC")
}

const secsPerDay = 24 * 60 * 60

// DateFromTime truncates t to its UTC day.
func DateFromTime(t time.Time) Date {
	return Date(t.UTC().Unix() / secsPerDay)
}
