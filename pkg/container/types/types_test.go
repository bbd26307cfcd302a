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
	"math"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
)

func TestTypeSize(t *testing.T) {
	convey.Convey("fixed type sizes", t, func() {
		cases := []struct {
			oid  T
			size int
		}{
			{T_bool, 1},
			{T_int8, 1},
			{T_int16, 2},
			{T_int32, 4},
			{T_int64, 8},
			{T_uint8, 1},
			{T_uint16, 2},
			{T_uint32, 4},
			{T_uint64, 8},
			{T_float32, 4},
			{T_float64, 8},
			{T_date, 4},
			{T_datetime, 8},
			{T_timestamp, 8},
		}
		for _, c := range cases {
			typ := c.oid.ToType()
			convey.So(typ.TypeSize(), convey.ShouldEqual, c.size)
			convey.So(typ.IsFixedLen(), convey.ShouldBeTrue)
		}
		convey.So(T_varchar.ToType().IsFixedLen(), convey.ShouldBeFalse)
	})
}

func TestEncodeDecodeValue(t *testing.T) {
	convey.Convey("encode and decode single values", t, func() {
		values := map[T]any{
			T_bool:      true,
			T_int8:      int8(-3),
			T_int16:     int16(300),
			T_int32:     int32(-70000),
			T_int64:     int64(math.MaxInt64),
			T_uint8:     uint8(250),
			T_uint16:    uint16(65000),
			T_uint32:    uint32(4000000000),
			T_uint64:    uint64(math.MaxUint64),
			T_float32:   float32(1.5),
			T_float64:   float64(-2.25),
			T_date:      Date(19000),
			T_datetime:  Datetime(1234567890),
			T_timestamp: Timestamp(987654321),
		}
		for oid, v := range values {
			typ := oid.ToType()
			buf, err := EncodeValue(typ, v)
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(buf), convey.ShouldEqual, typ.TypeSize())
			convey.So(DecodeValue(typ, buf), convey.ShouldEqual, v)
		}

		_, err := EncodeValue(T_int32.ToType(), int64(1))
		convey.So(err, convey.ShouldNotBeNil)
		_, err = EncodeValue(T_varchar.ToType(), "x")
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestDecodeFixedShortBuffer(t *testing.T) {
	require.Panics(t, func() { DecodeFixed[int64]([]byte{1, 2}) })
	require.Panics(t, func() { PutFixed(make([]byte, 1), int32(1)) })
	require.Panics(t, func() { DecodeSlice[int32]([]byte{1, 2, 3}) })
}

func TestSliceEncoding(t *testing.T) {
	xs := []int32{1, -2, 3}
	buf := EncodeSlice(xs)
	require.Equal(t, 12, len(buf))
	require.Equal(t, xs, DecodeSlice[int32](buf))
	require.Nil(t, EncodeSlice([]int32{}))
}

func TestCompareValue(t *testing.T) {
	require.Equal(t, -1, CompareValue(int32(1), int32(2)))
	require.Equal(t, 0, CompareValue(uint64(7), uint64(7)))
	require.Equal(t, 1, CompareValue(float64(2.5), float64(-1)))
	require.Equal(t, -1, CompareValue(false, true))
	require.Equal(t, 1, CompareValue(Date(2), Date(1)))
	require.Equal(t, 0, CompareRaw(T_int16.ToType(), EncodeFixed(int16(9)), EncodeFixed(int16(9))))
	require.Panics(t, func() { CompareValue("a", "b") })

	nan := math.NaN()
	require.Equal(t, 1, CompareValue(nan, math.Inf(1)))
	require.Equal(t, -1, CompareValue(float32(1), float32(nan)))
	require.Equal(t, 0, CompareValue(nan, nan))
	require.True(t, IsNaN(float32(nan)))
	require.False(t, IsNaN(int32(0)))
}

func TestBitEqual(t *testing.T) {
	nan := math.NaN()
	require.True(t, BitEqual(EncodeFixed(nan), EncodeFixed(nan)))
	require.False(t, BitEqual(EncodeFixed(0.0), EncodeFixed(math.Copysign(0, -1))))
	require.True(t, FloatBitsEqual64(nan, nan))
	require.False(t, FloatBitsEqual32(0, float32(math.Copysign(0, -1))))
	require.False(t, BitEqual([]byte{1}, []byte{1, 2}))
}

func TestTemporalString(t *testing.T) {
	d := DateFromTime(time.Date(2022, 3, 4, 10, 0, 0, 0, time.UTC))
	require.Equal(t, "2022-03-04", d.String())
	dt := Datetime(time.Date(2022, 3, 4, 10, 11, 12, 0, time.UTC).UnixMicro())
	require.Equal(t, "2022-03-04 10:11:12.000000", dt.String())
	require.Equal(t, "INT", T_int32.ToType().String())
}
