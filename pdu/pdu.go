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

// Package pdu implements the authenticated encryption framing of the EB service messages.
//
// A request packet has the following ASCII form:
//   Packet0_<TYPE>_<plain data length, 4 hex digits><plain data hex><encrypted data hex><MAC hex>
//
// The encrypted data is the AES-256-CBC (zero IV) encryption of the PKCS#7 padded buffer
//   <flag> || <user object ID, 4 bytes BE> || <nonce, 8 bytes> || <data>
// where flag is 0x1f for requests and 0xf1 for responses. The MAC is the CBC-MAC under a separate key, computed over
// the encrypted data, or over the PKCS#7 padded concatenation of the plain data and the encrypted data in case the
// plain data is present.
//
// The service response carries the same structure (without the Packet0 prefix) inside the JSON envelope result
// field. The nonce is echoed back mangled, see DemangleNonce().
package pdu

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"github.com/enigmabridge/goeb/cbc"
	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/padding"
)

const (
	// NonceSize is the freshness nonce length in bytes.
	NonceSize = 8
	// MaxUserObjectID is the largest user object ID the 4 byte wire field can carry.
	MaxUserObjectID = 0xffffffff
	// MaxPlainDataLen is the largest plain data length the 4 hex digit length field can carry.
	MaxPlainDataLen = 0xffff
	// MACSize is the length of the CBC-MAC tag.
	MACSize = cbc.BlockSize

	flagRequest  = 0x1f
	flagResponse = 0xf1
	// Length of flag, user object ID and nonce.
	headerLen = 1 + 4 + NonceSize
)

type framer struct {
	aes cipher.Block
	mac *cbc.MAC
}

func newFramer(aesKey, macKey []byte) (*framer, error) {
	aesBlock, err := cbc.NewAES(aesKey)
	if err != nil {
		return nil, errors.EbErr(err).AppendMessage("Invalid communication encryption key.")
	}
	macBlock, err := cbc.NewAES(macKey)
	if err != nil {
		return nil, errors.EbErr(err).AppendMessage("Invalid communication MAC key.")
	}
	mac, err := cbc.NewMAC(macBlock, cbc.MACOptPadding(padding.Identity{}))
	if err != nil {
		return nil, err
	}
	return &framer{aes: aesBlock, mac: mac}, nil
}

// seal returns the encrypted buffer and the MAC tag.
func (f *framer) seal(flag byte, userObjectID uint32, nonce, plainData, data []byte) ([]byte, []byte, error) {
	buf := make([]byte, headerLen, headerLen+len(data))
	buf[0] = flag
	binary.BigEndian.PutUint32(buf[1:5], userObjectID)
	copy(buf[5:headerLen], nonce)
	buf = append(buf, data...)

	padded, err := padding.PKCS7{}.Pad(buf, cbc.BlockSize)
	if err != nil {
		return nil, nil, err
	}
	encrypted, err := cbc.Encrypt(f.aes, padded, cbc.ZeroIV(), nil, true)
	if err != nil {
		return nil, nil, err
	}

	macInput, err := authInput(plainData, encrypted)
	if err != nil {
		return nil, nil, err
	}
	tag, err := f.mac.Sum(macInput)
	if err != nil {
		return nil, nil, err
	}
	return encrypted, tag, nil
}

// open verifies the tag and returns the decrypted buffer, including the padding.
func (f *framer) open(plainData, encrypted, tag []byte) ([]byte, error) {
	if len(encrypted) == 0 || len(encrypted)%cbc.BlockSize != 0 || len(tag) != MACSize {
		return nil, errIntegrity()
	}
	macInput, err := authInput(plainData, encrypted)
	if err != nil {
		return nil, err
	}
	if err := f.mac.Verify(macInput, tag); err != nil {
		return nil, errIntegrity()
	}
	return cbc.Decrypt(f.aes, encrypted, cbc.ZeroIV(), nil, true)
}

// unpadBody strips the sender's PKCS#7 framing of a decrypted buffer.
func unpadBody(decrypted []byte) ([]byte, error) {
	body, err := padding.PKCS7{}.Unpad(decrypted, cbc.BlockSize)
	if err != nil {
		return nil, err
	}
	if len(body) < headerLen {
		return nil, errors.New(errors.EbInvalidResponse).AppendMessage("Message body too short.")
	}
	return body, nil
}

func authInput(plainData, encrypted []byte) ([]byte, error) {
	if len(plainData) == 0 {
		return encrypted, nil
	}
	return padding.PKCS7{}.Pad(append(append([]byte(nil), plainData...), encrypted...), cbc.BlockSize)
}

func errIntegrity() error {
	return errors.New(errors.EbCorruptMac).AppendMessage("Message authentication failed.")
}

func plainLenField(n int) string {
	return fmt.Sprintf("%04X", n)
}
