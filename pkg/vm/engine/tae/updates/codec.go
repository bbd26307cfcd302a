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

package updates

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/RoaringBitmap/roaring"
	"github.com/pierrec/lz4"

	"github.com/matrixorigin/rleseg/pkg/common/moerr"
)

// EncodePayload lays out a payload as
// [count u32][width u32][vals][prevVals][nulls len u32][nulls][prevNulls len u32][prevNulls].
func EncodePayload(p *Payload, width int) ([]byte, error) {
	count := 0
	if width > 0 {
		count = len(p.Vals) / width
	}
	var w bytes.Buffer
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(count))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(width))
	w.Write(hdr[:])
	w.Write(p.Vals)
	w.Write(p.PrevVals)
	for _, bm := range []*roaring.Bitmap{p.Nulls, p.PrevNulls} {
		buf, err := bm.ToBytes()
		if err != nil {
			return nil, err
		}
		binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(buf)))
		w.Write(hdr[:4])
		w.Write(buf)
	}
	return w.Bytes(), nil
}

// DecodePayload is the inverse of EncodePayload.
func DecodePayload(buf []byte) (*Payload, int, error) {
	if len(buf) < 8 {
		return nil, 0, moerr.NewUnexpectedEOF(moerr.Context(), "payload header")
	}
	count := int(binary.LittleEndian.Uint32(buf[0:]))
	width := int(binary.LittleEndian.Uint32(buf[4:]))
	buf = buf[8:]
	size := count * width
	if len(buf) < 2*size {
		return nil, 0, moerr.NewUnexpectedEOF(moerr.Context(), "payload values")
	}
	p := &Payload{
		Vals:     append([]byte(nil), buf[:size]...),
		PrevVals: append([]byte(nil), buf[size:2*size]...),
	}
	buf = buf[2*size:]
	bms := make([]*roaring.Bitmap, 2)
	for i := range bms {
		if len(buf) < 4 {
			return nil, 0, moerr.NewUnexpectedEOF(moerr.Context(), "payload nulls")
		}
		n := int(binary.LittleEndian.Uint32(buf))
		buf = buf[4:]
		if len(buf) < n {
			return nil, 0, moerr.NewUnexpectedEOF(moerr.Context(), "payload nulls")
		}
		bms[i] = roaring.New()
		if err := bms[i].UnmarshalBinary(buf[:n]); err != nil {
			return nil, 0, err
		}
		buf = buf[n:]
	}
	p.Nulls, p.PrevNulls = bms[0], bms[1]
	return p, width, nil
}

func compress(raw []byte) ([]byte, error) {
	var w bytes.Buffer
	zw := lz4.NewWriter(&w)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
}
