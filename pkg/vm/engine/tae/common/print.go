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

	"github.com/matrixorigin/rleseg/pkg/container/types"
)

type PPLevel int8

const (
	PPL0 PPLevel = iota
	PPL1
	PPL2
	PPL3
)

func RepeatStr(str string, times int) string {
	for i := 0; i < times; i++ {
		str = fmt.Sprintf("%s\t", str)
	}
	return str
}

func TypeStringValue(t types.Type, v any) string {
	if v == nil {
		return "null"
	}
	switch t.Oid {
	case types.T_bool, types.T_int8, types.T_int16, types.T_int32,
		types.T_int64, types.T_uint8, types.T_uint16, types.T_uint32,
		types.T_uint64, types.T_float32, types.T_float64:
		return fmt.Sprintf("%v", v)
	case types.T_date:
		return v.(types.Date).String()
	case types.T_datetime:
		return v.(types.Datetime).String()
	case types.T_timestamp:
		return v.(types.Timestamp).String()
	default:
		return fmt.Sprintf("unsupported type to string: %v", t.String())
	}
}

// TypeStringRaw formats one raw fixed width value.
func TypeStringRaw(t types.Type, raw []byte, isNull bool) string {
	if isNull {
		return "null"
	}
	return TypeStringValue(t, types.DecodeValue(t, raw))
}
