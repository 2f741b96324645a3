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

// Package padding implements the padding schemes used by the block cipher and RSA framings.
package padding

import (
	"crypto/subtle"
	"fmt"

	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/random"
)

// Scheme is a reversible padding scheme.
type Scheme interface {
	// Name returns the scheme name.
	Name() string
	// Pad returns a padded copy of data. blockLen is in bytes.
	Pad(data []byte, blockLen int) ([]byte, error)
	// Unpad validates and removes the padding.
	Unpad(data []byte, blockLen int) ([]byte, error)
}

// Identity is the no-op padding.
type Identity struct{}

// Name implements Scheme interface.
func (Identity) Name() string { return "identity" }

// Pad implements Scheme interface.
func (Identity) Pad(data []byte, _ int) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

// Unpad implements Scheme interface.
func (Identity) Unpad(data []byte, _ int) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

// PKCS7 padding. Only 16 byte blocks are supported.
type PKCS7 struct{}

// Name implements Scheme interface.
func (PKCS7) Name() string { return "pkcs7" }

// Pad implements Scheme interface.
func (PKCS7) Pad(data []byte, blockLen int) ([]byte, error) {
	if blockLen != 16 {
		return nil, unsupportedBlockLen(blockLen)
	}
	n := blockLen - len(data)%blockLen
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	for i := 0; i < n; i++ {
		out = append(out, byte(n))
	}
	return out, nil
}

// Unpad implements Scheme interface.
func (PKCS7) Unpad(data []byte, blockLen int) ([]byte, error) {
	if blockLen != 16 {
		return nil, unsupportedBlockLen(blockLen)
	}
	if len(data) == 0 || len(data)%blockLen != 0 {
		return nil, corrupt()
	}

	n := int(data[len(data)-1])
	if n == 0 || n > blockLen {
		return nil, corrupt()
	}
	good := 1
	for _, b := range data[len(data)-n:] {
		good &= subtle.ConstantTimeByteEq(b, byte(n))
	}
	if good != 1 {
		return nil, corrupt()
	}
	return append([]byte(nil), data[:len(data)-n]...), nil
}

// Minimal number of filler bytes in a PKCS#1 v1.5 block.
const pkcs15MinFill = 8

// PKCS15 is the PKCS#1 v1.5 block formatting. The block length is the modulus size in bytes.
//
// Mode 1 fills with 0xff bytes, mode 2 with non-zero bytes drawn from Rand.
type PKCS15 struct {
	Mode byte
	Rand random.Source
}

// Name implements Scheme interface.
func (p PKCS15) Name() string { return fmt.Sprintf("pkcs15-%d", p.Mode) }

// Pad implements Scheme interface.
func (p PKCS15) Pad(data []byte, blockLen int) ([]byte, error) {
	if p.Mode != 1 && p.Mode != 2 {
		return nil, errors.New(errors.EbConfigError).AppendMessage(fmt.Sprintf("Unsupported PKCS#1 v1.5 mode %d.", p.Mode))
	}
	fill := blockLen - len(data) - 3
	if fill < pkcs15MinFill {
		return nil, errors.New(errors.EbConfigError).AppendMessage("Data too long for PKCS#1 v1.5 block.")
	}

	out := make([]byte, blockLen)
	out[1] = p.Mode
	ps := out[2 : 2+fill]
	switch p.Mode {
	case 1:
		for i := range ps {
			ps[i] = 0xff
		}
	case 2:
		if err := random.NonZero(p.Rand, ps); err != nil {
			return nil, err
		}
	}
	copy(out[3+fill:], data)
	return out, nil
}

// Unpad implements Scheme interface.
func (p PKCS15) Unpad(data []byte, blockLen int) ([]byte, error) {
	if len(data) != blockLen || len(data) < pkcs15MinFill+3 || data[0] != 0 || data[1] != p.Mode {
		return nil, corrupt()
	}

	i := 2
	for ; i < len(data); i++ {
		if data[i] == 0 {
			break
		}
		if p.Mode == 1 && data[i] != 0xff {
			return nil, corrupt()
		}
	}
	if i == len(data) || i-2 < pkcs15MinFill {
		return nil, corrupt()
	}
	return append([]byte(nil), data[i+1:]...), nil
}

func unsupportedBlockLen(n int) error {
	return errors.New(errors.EbConfigError).AppendMessage(fmt.Sprintf("Unsupported block length: %d.", n))
}

func corrupt() error {
	return errors.New(errors.EbCorruptPadding).AppendMessage("Invalid padding.")
}
