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

//go:generate mockgen -source=types.go -destination=mock_filter/filter_mock.go -package=mock_filter

// Filter a predicate pushed down into a segment scan.
type Filter interface {
	// AcceptsNull reports whether a null row can satisfy the predicate.
	AcceptsNull() bool
	// Eval reports whether v satisfies the predicate, v is nil when isNull.
	Eval(v any, isNull bool) bool
	String() string
}

// RangeFilter a filter whose accepted values lie in [lo, hi], used to skip
// segments by their zone map. A nil bound is open.
type RangeFilter interface {
	Filter
	Bounds() (lo, hi any, ok bool)
}
