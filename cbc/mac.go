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

package cbc

import (
	"crypto/cipher"
	"crypto/subtle"
	"fmt"

	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/padding"
)

// MAC is the CBC-MAC computation object. The tag is the last block of the CBC encryption of the padded message
// under a zero chaining value.
type MAC struct {
	block     cipher.Block
	blockSize int
	pad       padding.Scheme
	// Buffered message.
	buf []byte
}

// MACOpt is the CBC-MAC configuration option.
type MACOpt func(*MAC) error

// MACOptBlockSize sets the block size in bytes. Only 16 is supported.
func MACOptBlockSize(n int) MACOpt {
	return func(m *MAC) error {
		if n != BlockSize {
			return errors.New(errors.EbConfigError).AppendMessage(fmt.Sprintf("Unsupported MAC block size: %d.", n))
		}
		m.blockSize = n
		return nil
	}
}

// MACOptPadding sets the message padding scheme. The default is padding.Identity.
func MACOptPadding(p padding.Scheme) MACOpt {
	return func(m *MAC) error {
		if p == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing padding scheme.")
		}
		m.pad = p
		return nil
	}
}

// NewMAC returns a new CBC-MAC bound to the block cipher.
func NewMAC(block cipher.Block, opts ...MACOpt) (*MAC, error) {
	if block == nil {
		return nil, errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing block cipher.")
	}
	if block.BlockSize() != BlockSize {
		return nil, errors.New(errors.EbConfigError).AppendMessage("Unsupported cipher block size.")
	}

	tmp := &MAC{
		block:     block,
		blockSize: BlockSize,
		pad:       padding.Identity{},
	}
	for _, setter := range opts {
		if setter == nil {
			return nil, errors.New(errors.EbInvalidArgumentError).AppendMessage("Provided option is nil.")
		}
		if err := setter(tmp); err != nil {
			return nil, errors.EbErr(err).AppendMessage("Unable to apply CBC-MAC option.")
		}
	}
	return tmp, nil
}

// Sum returns the tag of data. It does not use nor change the buffered message.
func (m *MAC) Sum(data []byte) ([]byte, error) {
	if m == nil || m.block == nil {
		return nil, errors.New(errors.EbInvalidArgumentError)
	}

	padded, err := m.pad.Pad(data, m.blockSize)
	if err != nil {
		return nil, err
	}
	if len(padded)%m.blockSize != 0 {
		return nil, errors.New(errors.EbConfigError).AppendMessage("MAC input is not block aligned.")
	}

	tag := make([]byte, m.blockSize)
	for i := 0; i < len(padded); i += m.blockSize {
		subtle.XORBytes(tag, tag, padded[i:i+m.blockSize])
		m.block.Encrypt(tag, tag)
	}
	return tag, nil
}

// Verify recomputes the tag of data and compares it with tag in constant time.
func (m *MAC) Verify(data, tag []byte) error {
	exp, err := m.Sum(data)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(exp, tag) != 1 {
		return errors.New(errors.EbCorruptMac).AppendMessage("Message authentication failed.")
	}
	return nil
}

// Write (via the embedded io.Writer interface) adds more data to the running MAC.
// In case of EbInvalidArgumentError error (e.g. m is nil) function returns non
// standard -1 as count of bytes written.
func (m *MAC) Write(p []byte) (int, error) {
	if m == nil || m.block == nil {
		return -1, errors.New(errors.EbInvalidArgumentError)
	}
	m.buf = append(m.buf, p...)
	return len(p), nil
}

// Tag returns the tag of the data written so far.
// It does not change the underlying state.
func (m *MAC) Tag() ([]byte, error) {
	if m == nil || m.block == nil {
		return nil, errors.New(errors.EbInvalidArgumentError)
	}
	return m.Sum(m.buf)
}

// Size returns the tag length in bytes.
func (m *MAC) Size() int {
	if m == nil {
		return 0
	}
	return m.blockSize
}

// Reset resets the MAC to its initial state.
func (m *MAC) Reset() {
	if m == nil {
		return
	}
	m.buf = m.buf[:0]
}
