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

package uo

import (
	"crypto/rsa"
	"math/big"
	"strings"

	"golang.org/x/crypto/cryptobyte"

	"github.com/enigmabridge/goeb/asn1"
	"github.com/enigmabridge/goeb/codec"
	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/padding"
	"github.com/enigmabridge/goeb/random"
)

// Tags of the EB import key encoding: 0x81 <len16> <exponent> 0x82 <len16> <modulus>.
const (
	tagExponent = 0x81
	tagModulus  = 0x82
)

// ImportKey is the RSA key the template transport keys are wrapped with.
type ImportKey struct {
	ID   []byte
	Type string
	Key  *rsa.PublicKey
}

// NewImportKey parses an import key as delivered in the template. The key is either in the EB TLV encoding or
// a DER encoded PKCS#1 / SubjectPublicKeyInfo structure, all hex encoded.
func NewImportKey(id, typ, key string) (*ImportKey, error) {
	rawID, err := codec.DecodeHex(id)
	if err != nil {
		return nil, errors.New(errors.EbConfigError).SetExtError(err).AppendMessage("Invalid import key ID.")
	}
	rawKey, err := codec.DecodeHex(key)
	if err != nil {
		return nil, errors.New(errors.EbConfigError).SetExtError(err).AppendMessage("Invalid import key.")
	}
	pub, err := ParseImportKey(rawKey)
	if err != nil {
		return nil, err
	}
	return &ImportKey{ID: rawID, Type: strings.ToLower(typ), Key: pub}, nil
}

// ParseImportKey decodes the binary import key.
func ParseImportKey(raw []byte) (*rsa.PublicKey, error) {
	if len(raw) == 0 {
		return nil, errors.New(errors.EbConfigError).AppendMessage("Empty import key.")
	}
	if raw[0] != tagExponent {
		pub, err := asn1.ParseRSAPublicKey(raw)
		if err != nil {
			return nil, errors.New(errors.EbConfigError).SetExtError(err).AppendMessage("Invalid import key.")
		}
		return pub, nil
	}

	var (
		s             = cryptobyte.String(raw)
		tag           uint8
		exponent, mod cryptobyte.String
	)
	if !s.ReadUint8(&tag) || tag != tagExponent || !s.ReadUint16LengthPrefixed(&exponent) ||
		!s.ReadUint8(&tag) || tag != tagModulus || !s.ReadUint16LengthPrefixed(&mod) || !s.Empty() {
		return nil, errors.New(errors.EbConfigError).AppendMessage("Invalid import key encoding.")
	}

	e := new(big.Int).SetBytes(exponent)
	n := new(big.Int).SetBytes(mod)
	if n.Sign() == 0 || e.Sign() == 0 || !e.IsInt64() || e.Int64() > 1<<31-1 {
		return nil, errors.New(errors.EbConfigError).AppendMessage("Invalid import key values.")
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

// Size returns the modulus length in bytes.
func (k *ImportKey) Size() int {
	if k == nil || k.Key == nil {
		return 0
	}
	return (k.Key.N.BitLen() + 7) / 8
}

// Wrap encrypts data with the raw RSA operation after PKCS#1 v1.5 (block type 2) padding with bytes from src.
// The result is left padded to the modulus length.
func (k *ImportKey) Wrap(src random.Source, data []byte) ([]byte, error) {
	if k == nil || k.Key == nil {
		return nil, errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing import key.")
	}
	size := k.Size()
	em, err := padding.PKCS15{Mode: 2, Rand: src}.Pad(data, size)
	if err != nil {
		return nil, errors.EbErr(err).AppendMessage("Unable to pad wrapped keys.")
	}

	m := new(big.Int).SetBytes(em)
	if m.Cmp(k.Key.N) >= 0 {
		return nil, errors.New(errors.EbCryptoFailure).AppendMessage("Message representative out of range.")
	}
	c := new(big.Int).Exp(m, big.NewInt(int64(k.Key.E)), k.Key.N)
	return c.FillBytes(make([]byte, size)), nil
}
