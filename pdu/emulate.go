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

package pdu

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/enigmabridge/goeb/errors"
)

// SealResult produces the result field of a successful response the way the service does: the request nonce is
// mangled, the data is protected under the response flag. It is the counterpart of ResponseParser and is meant for
// service emulators and tests.
func SealResult(aesKey, macKey []byte, userObjectID uint32, nonce, plainData, data []byte) (string, error) {
	if len(nonce) != NonceSize {
		return "", errors.New(errors.EbConfigError).AppendMessage("Invalid nonce length.")
	}
	if len(plainData) > MaxPlainDataLen {
		return "", errors.New(errors.EbConfigError).AppendMessage("Plain data too long.")
	}
	f, err := newFramer(aesKey, macKey)
	if err != nil {
		return "", err
	}
	encrypted, tag, err := f.seal(flagResponse, userObjectID, MangleNonce(nonce), plainData, data)
	if err != nil {
		return "", err
	}

	out := make([]byte, 2, 2+len(plainData)+len(encrypted)+len(tag))
	binary.BigEndian.PutUint16(out, uint16(len(plainData)))
	out = append(out, plainData...)
	out = append(out, encrypted...)
	out = append(out, tag...)
	return hex.EncodeToString(out), nil
}

// OpenRequest is the service side inverse of (RequestBuilder).Build. It verifies the packet and returns the request
// type, user object ID, nonce, plain data and request data.
func OpenRequest(aesKey, macKey []byte, packet string) (*Request, error) {
	const prefix = "Packet0_"
	rest := strings.TrimPrefix(packet, prefix)
	if len(rest) == len(packet) {
		return nil, errors.New(errors.EbInvalidEncoding).AppendMessage("Missing packet prefix.")
	}
	sep := strings.IndexByte(rest, '_')
	if sep < 0 {
		return nil, errors.New(errors.EbInvalidEncoding).AppendMessage("Missing packet type.")
	}
	reqType := RequestType(rest[:sep])
	raw, err := hex.DecodeString(rest[sep+1:])
	if err != nil {
		return nil, errors.New(errors.EbInvalidEncoding).SetExtError(err).AppendMessage("Invalid packet data.")
	}
	if len(raw) < 2 {
		return nil, errors.New(errors.EbInvalidEncoding).AppendMessage("Packet too short.")
	}
	plainLen := int(binary.BigEndian.Uint16(raw))
	if len(raw) < 2+plainLen+MACSize {
		return nil, errors.New(errors.EbInvalidEncoding).AppendMessage("Packet too short.")
	}
	plainData := raw[2 : 2+plainLen]
	protected := raw[2+plainLen:]

	f, err := newFramer(aesKey, macKey)
	if err != nil {
		return nil, err
	}
	decrypted, err := f.open(plainData, protected[:len(protected)-MACSize], protected[len(protected)-MACSize:])
	if err != nil {
		return nil, err
	}
	if decrypted[0] != flagRequest {
		return nil, errors.New(errors.EbCorruptFlag).AppendMessage("Given data packet is not a request.")
	}
	body, err := unpadBody(decrypted)
	if err != nil {
		return nil, err
	}
	return &Request{
		Type:         reqType,
		UserObjectID: binary.BigEndian.Uint32(body[1:5]),
		Nonce:        append([]byte(nil), body[5:headerLen]...),
		PlainData:    append([]byte(nil), plainData...),
		Data:         append([]byte(nil), body[headerLen:]...),
	}, nil
}

// Request is a request packet opened by OpenRequest.
type Request struct {
	Type         RequestType
	UserObjectID uint32
	Nonce        []byte
	PlainData    []byte
	Data         []byte
}
