/*
 * Copyright 2026 Enigma Bridge Ltd.
 *
 * This file is part of the EnigmaBridge Go client.
 *
 * Licensed under the Apache License, Version 2.0 (the "License").
 * You may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *     http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES, CONDITIONS, OR OTHER LICENSES OF ANY KIND, either
 * express or implied. See the License for the specific language governing
 * permissions and limitations under the License.
 */

// Package codec implements the bit-granular buffers and hex helpers the framing code is built upon.
package codec

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/enigmabridge/goeb/errors"
)

// Bits is an immutable bit string. The trailing unused bits of the last byte are always zero.
type Bits struct {
	data   []byte
	bitLen int
}

// NewBits returns a byte aligned bit string holding a copy of b.
func NewBits(b []byte) Bits {
	return Bits{data: append([]byte(nil), b...), bitLen: len(b) * 8}
}

// NewBitsLen returns the first bitLen bits of b.
func NewBitsLen(b []byte, bitLen int) (Bits, error) {
	if bitLen < 0 || bitLen > len(b)*8 {
		return Bits{}, errors.New(errors.EbInvalidEncoding).
			AppendMessage(fmt.Sprintf("Bit length %d out of range of %d bytes.", bitLen, len(b)))
	}
	return NewBits(b).Slice(0, bitLen)
}

// BitsFromHex decodes a hex string (case insensitive, even length).
func BitsFromHex(s string) (Bits, error) {
	b, err := DecodeHex(s)
	if err != nil {
		return Bits{}, err
	}
	return Bits{data: b, bitLen: len(b) * 8}, nil
}

// BitLen returns the length in bits.
func (b Bits) BitLen() int {
	return b.bitLen
}

// ByteLen returns the number of bytes needed to hold the bits.
func (b Bits) ByteLen() int {
	return (b.bitLen + 7) / 8
}

// IsByteAligned reports whether the length is a multiple of 8.
func (b Bits) IsByteAligned() bool {
	return b.bitLen%8 == 0
}

// Bytes returns a copy of the underlying bytes. Unused trailing bits are zero.
func (b Bits) Bytes() []byte {
	return append([]byte(nil), b.data[:b.ByteLen()]...)
}

// Slice returns the bits in the half open range [from, to).
func (b Bits) Slice(from, to int) (Bits, error) {
	if from < 0 || to < from || to > b.bitLen {
		return Bits{}, errors.New(errors.EbInvalidEncoding).
			AppendMessage(fmt.Sprintf("Bit range [%d, %d) out of bounds (%d).", from, to, b.bitLen))
	}

	n := to - from
	out := make([]byte, (n+7)/8)
	shift := uint(from % 8)
	first := from / 8
	for i := range out {
		v := b.data[first+i] << shift
		if shift != 0 && first+i+1 < len(b.data) {
			v |= b.data[first+i+1] >> (8 - shift)
		}
		out[i] = v
	}
	if rem := n % 8; rem != 0 {
		out[len(out)-1] &= 0xff << uint(8-rem)
	}
	return Bits{data: out, bitLen: n}, nil
}

// Extract returns n (at most 64) bits starting at from as a big-endian unsigned value.
func (b Bits) Extract(from, n int) (uint64, error) {
	if n < 0 || n > 64 {
		return 0, errors.New(errors.EbInvalidArgumentError).AppendMessage("At most 64 bits can be extracted.")
	}
	s, err := b.Slice(from, from+n)
	if err != nil {
		return 0, err
	}

	var v uint64
	for i := 0; i < n; i++ {
		bit := (s.data[i/8] >> uint(7-i%8)) & 1
		v = v<<1 | uint64(bit)
	}
	return v, nil
}

// Concat returns the concatenation of b and o.
func (b Bits) Concat(o Bits) Bits {
	if b.IsByteAligned() {
		return Bits{data: append(b.Bytes(), o.Bytes()...), bitLen: b.bitLen + o.bitLen}
	}

	out := make([]byte, (b.bitLen+o.bitLen+7)/8)
	copy(out, b.data)
	for i := 0; i < o.bitLen; i++ {
		if (o.data[i/8]>>uint(7-i%8))&1 == 1 {
			pos := b.bitLen + i
			out[pos/8] |= 0x80 >> uint(pos%8)
		}
	}
	return Bits{data: out, bitLen: b.bitLen + o.bitLen}
}

// Equal reports whether both bit strings have the same length and content.
func (b Bits) Equal(o Bits) bool {
	return b.bitLen == o.bitLen && bytes.Equal(b.data[:b.ByteLen()], o.data[:o.ByteLen()])
}

// Hex returns the lower case hex encoding of the bytes.
func (b Bits) Hex() string {
	return hex.EncodeToString(b.data[:b.ByteLen()])
}

// String implements fmt.Stringer.
func (b Bits) String() string {
	if b.IsByteAligned() {
		return b.Hex()
	}
	return fmt.Sprintf("%s/%d", b.Hex(), b.bitLen)
}

// DecodeHex decodes a hex string, the failure is reported as EbInvalidEncoding.
func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.New(errors.EbInvalidEncoding).SetExtError(err).AppendMessage("Invalid hex string.")
	}
	return b, nil
}
