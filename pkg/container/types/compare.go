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
	"golang.org/x/exp/constraints"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
)

func compareOrdered[T OrderedT](a, b T) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// compareFloat orders NaN after +Inf and equal to itself.
func compareFloat[T constraints.Float](a, b T) int {
	aNaN, bNaN := a != a, b != b
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	}
	return compareOrdered(a, b)
}

// IsNaN reports whether v is a float NaN.
func IsNaN(v any) bool {
	switch x := v.(type) {
	case float32:
		return x != x
	case float64:
		return x != x
	}
	return false
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

// CompareValue compares two decoded values of the same go type. Floats
// follow a total order with NaN last.
func CompareValue(a, b any) int {
	switch x := a.(type) {
	case bool:
		return compareBool(x, b.(bool))
	case int8:
		return compareOrdered(x, b.(int8))
	case int16:
		return compareOrdered(x, b.(int16))
	case int32:
		return compareOrdered(x, b.(int32))
	case int64:
		return compareOrdered(x, b.(int64))
	case uint8:
		return compareOrdered(x, b.(uint8))
	case uint16:
		return compareOrdered(x, b.(uint16))
	case uint32:
		return compareOrdered(x, b.(uint32))
	case uint64:
		return compareOrdered(x, b.(uint64))
	case float32:
		return compareFloat(x, b.(float32))
	case float64:
		return compareFloat(x, b.(float64))
	case Date:
		return compareOrdered(x, b.(Date))
	case Datetime:
		return compareOrdered(x, b.(Datetime))
	case Timestamp:
		return compareOrdered(x, b.(Timestamp))
	}
	panic(moerr.NewNotSupportedNoCtx("compare %T", a))
}

// CompareRaw compares two raw values of typ.
func CompareRaw(typ Type, a, b []byte) int {
	return CompareValue(DecodeValue(typ, a), DecodeValue(typ, b))
}
