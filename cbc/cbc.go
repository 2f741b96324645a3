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

// Package cbc implements the AES-CBC encryption and CBC-MAC primitives used by the request/response framing and
// the user object template encryption.
//
// Note that these are exact framings of the remote service protocol and not general purpose constructions. In
// particular the zero IV and the raw CBC-MAC are only sound because of how the service uses them.
package cbc

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/enigmabridge/goeb/codec"
	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/padding"
)

// BlockSize is the only supported cipher block size.
const BlockSize = aes.BlockSize

// KeySize is the size of the AES-256 keys used throughout the protocol.
const KeySize = 32

// ZeroIV returns the all-zero initialization vector.
func ZeroIV() []byte {
	return make([]byte, BlockSize)
}

// NewAES returns an AES-256 block cipher for the given key.
func NewAES(key []byte) (cipher.Block, error) {
	if len(key) != KeySize {
		return nil, errors.New(errors.EbConfigError).
			AppendMessage(fmt.Sprintf("Invalid AES key length: %d, expected %d.", len(key), KeySize))
	}
	b, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.New(errors.EbCryptoFailure).SetExtError(err)
	}
	return b, nil
}

// Encrypt encrypts plaintext in CBC mode. Unless noPad is set, the plaintext is PKCS#7 padded first. The
// associated data must be empty, CBC does not authenticate.
func Encrypt(block cipher.Block, plaintext, iv, assocData []byte, noPad bool) ([]byte, error) {
	if err := checkParams(block, iv, assocData); err != nil {
		return nil, err
	}

	var (
		data []byte
		err  error
	)
	if noPad {
		if len(plaintext)%BlockSize != 0 {
			return nil, errors.New(errors.EbConfigError).AppendMessage("Plaintext is not block aligned.")
		}
		data = append([]byte(nil), plaintext...)
	} else if data, err = (padding.PKCS7{}).Pad(plaintext, BlockSize); err != nil {
		return nil, err
	}

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(data, data)
	return data, nil
}

// EncryptBits is the Encrypt variant for bit strings. The input must be byte aligned.
func EncryptBits(block cipher.Block, plaintext codec.Bits, iv []byte, noPad bool) ([]byte, error) {
	if !plaintext.IsByteAligned() {
		return nil, errors.New(errors.EbConfigError).AppendMessage("Plaintext is not byte aligned.")
	}
	return Encrypt(block, plaintext.Bytes(), iv, nil, noPad)
}

// Decrypt decrypts ciphertext in CBC mode. Unless noPad is set, the PKCS#7 padding is validated and removed.
func Decrypt(block cipher.Block, ciphertext, iv, assocData []byte, noPad bool) ([]byte, error) {
	if err := checkParams(block, iv, assocData); err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%BlockSize != 0 {
		return nil, errors.New(errors.EbCorruptPadding).AppendMessage("Ciphertext block invalid.")
	}

	data := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(data, ciphertext)
	if noPad {
		return data, nil
	}
	return padding.PKCS7{}.Unpad(data, BlockSize)
}

func checkParams(block cipher.Block, iv, assocData []byte) error {
	if block == nil {
		return errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing block cipher.")
	}
	if block.BlockSize() != BlockSize {
		return errors.New(errors.EbConfigError).AppendMessage("Unsupported cipher block size.")
	}
	if len(iv) != BlockSize {
		return errors.New(errors.EbConfigError).AppendMessage("Invalid IV length.")
	}
	if len(assocData) != 0 {
		return errors.New(errors.EbInvalidModeError).AppendMessage("CBC mode can not authenticate associated data.")
	}
	return nil
}
