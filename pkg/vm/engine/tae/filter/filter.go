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

package filter

import (
	"fmt"

	"github.com/matrixorigin/rleseg/pkg/container/types"
)

type CompareOp uint8

const (
	OpEq CompareOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	}
	return "?"
}

type compareFilter struct {
	op    CompareOp
	value any
}

// NewCompare returns "column op value". value must be the decoded go type
// of the column.
func NewCompare(op CompareOp, value any) RangeFilter {
	return &compareFilter{op: op, value: value}
}

func NewEqual(value any) RangeFilter {
	return NewCompare(OpEq, value)
}

func (f *compareFilter) AcceptsNull() bool {
	return false
}

func (f *compareFilter) Eval(v any, isNull bool) bool {
	if isNull {
		return false
	}
	// NaN is unordered: it only passes "!="
	if types.IsNaN(v) || types.IsNaN(f.value) {
		return f.op == OpNe
	}
	c := types.CompareValue(v, f.value)
	switch f.op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	}
	return false
}

func (f *compareFilter) Bounds() (lo, hi any, ok bool) {
	switch f.op {
	case OpEq:
		return f.value, f.value, true
	case OpLt, OpLe:
		return nil, f.value, true
	case OpGt, OpGe:
		return f.value, nil, true
	}
	return nil, nil, false
}

func (f *compareFilter) String() string {
	return fmt.Sprintf("col %s %v", f.op, f.value)
}

type nullFilter struct {
	not bool
}

func IsNull() Filter {
	return &nullFilter{}
}

func IsNotNull() Filter {
	return &nullFilter{not: true}
}

func (f *nullFilter) AcceptsNull() bool {
	return !f.not
}

func (f *nullFilter) Eval(_ any, isNull bool) bool {
	return isNull != f.not
}

func (f *nullFilter) String() string {
	if f.not {
		return "col is not null"
	}
	return "col is null"
}

// Conjunction formats filters joined by and.
func Conjunction(filters []Filter) string {
	s := ""
	for i, f := range filters {
		if i > 0 {
			s += " and "
		}
		s += f.String()
	}
	return s
}
