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
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/enigmabridge/goeb/cbc"
	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/log"
	"github.com/enigmabridge/goeb/random"
)

// RequestType is the packet type of the processed data request.
type RequestType string

// Supported request types.
const (
	TypePlainAES        RequestType = "PLAINAES"
	TypePlainAESDecrypt RequestType = "PLAINAESDECRYPT"
	TypeRSA1024         RequestType = "RSA1024"
	TypeRSA2048         RequestType = "RSA2048"
	TypeRandomData      RequestType = "RANDOMDATA"
)

// ParseRequestType maps a request type name onto RequestType. The name is case insensitive.
func ParseRequestType(s string) (RequestType, error) {
	t := RequestType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", errors.New(errors.EbConfigError).AppendMessage(fmt.Sprintf("Unknown request type: %q.", s))
	}
	return t, nil
}

// Valid reports whether the receiver is a known request type.
func (t RequestType) Valid() bool {
	switch t {
	case TypePlainAES, TypePlainAESDecrypt, TypeRSA1024, TypeRSA2048, TypeRandomData:
		return true
	}
	return false
}

// RequestDescriptor holds the parameters of a single request. A descriptor is consumed by exactly one Build call.
type RequestDescriptor struct {
	// UserObjectID must not exceed MaxUserObjectID.
	UserObjectID uint64
	// Nonce is the freshness nonce. In case it is empty, Build will generate and store it.
	Nonce []byte
	// AESKey and MACKey are the 32 byte communication keys of the user object.
	AESKey []byte
	MACKey []byte
	// Type defaults to TypePlainAES.
	Type RequestType
}

func (d *RequestDescriptor) validate() error {
	if d.UserObjectID > MaxUserObjectID {
		return errors.New(errors.EbConfigError).
			AppendMessage(fmt.Sprintf("User object ID %#x does not fit into 32 bits.", d.UserObjectID))
	}
	if len(d.Nonce) != 0 && len(d.Nonce) != NonceSize {
		return errors.New(errors.EbConfigError).
			AppendMessage(fmt.Sprintf("Invalid nonce length: %d, expected %d.", len(d.Nonce), NonceSize))
	}
	if len(d.AESKey) != cbc.KeySize || len(d.MACKey) != cbc.KeySize {
		return errors.New(errors.EbConfigError).AppendMessage("Communication keys must be 32 bytes long.")
	}
	if d.Type != "" && !d.Type.Valid() {
		return errors.New(errors.EbConfigError).AppendMessage(fmt.Sprintf("Unknown request type: %q.", d.Type))
	}
	return nil
}

// RequestBuilder builds the request packets.
type RequestBuilder struct {
	rand  random.Source
	trace bool
}

// BuilderOpt is the request builder configuration option.
type BuilderOpt func(*RequestBuilder) error

// BuilderOptRandom sets the source the missing nonces are drawn from. The default is random.System().
func BuilderOptRandom(src random.Source) BuilderOpt {
	return func(b *RequestBuilder) error {
		if src == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing random source.")
		}
		b.rand = src
		return nil
	}
}

// BuilderOptTrace enables debug logging of the build steps.
func BuilderOptTrace(enable bool) BuilderOpt {
	return func(b *RequestBuilder) error {
		b.trace = enable
		return nil
	}
}

// NewRequestBuilder returns a new request builder.
func NewRequestBuilder(opts ...BuilderOpt) (*RequestBuilder, error) {
	tmp := &RequestBuilder{rand: random.System()}
	for _, setter := range opts {
		if setter == nil {
			return nil, errors.New(errors.EbInvalidArgumentError).AppendMessage("Provided option is nil.")
		}
		if err := setter(tmp); err != nil {
			return nil, errors.EbErr(err).AppendMessage("Unable to setup request builder.")
		}
	}
	return tmp, nil
}

// GenerateNonce returns a fresh nonce drawn from the builder random source.
func (b *RequestBuilder) GenerateNonce() ([]byte, error) {
	if b == nil {
		return nil, errors.New(errors.EbInvalidArgumentError)
	}
	return random.Bytes(b.rand, NonceSize)
}

// Build returns the request packet. The plainData is authenticated only, requestData is encrypted and authenticated.
// In case desc.Nonce is empty a nonce is generated and stored into desc, so that the response can be bound to the
// request via (Response).CheckNonce().
func (b *RequestBuilder) Build(desc *RequestDescriptor, plainData, requestData []byte) (string, error) {
	if b == nil || desc == nil {
		return "", errors.New(errors.EbInvalidArgumentError)
	}
	if err := desc.validate(); err != nil {
		return "", err
	}
	if len(plainData) > MaxPlainDataLen {
		return "", errors.New(errors.EbConfigError).AppendMessage("Plain data too long.")
	}
	if len(desc.Nonce) == 0 {
		nonce, err := b.GenerateNonce()
		if err != nil {
			return "", err
		}
		desc.Nonce = nonce
	}
	reqType := desc.Type
	if reqType == "" {
		reqType = TypePlainAES
	}

	f, err := newFramer(desc.AESKey, desc.MACKey)
	if err != nil {
		return "", err
	}
	encrypted, tag, err := f.seal(flagRequest, uint32(desc.UserObjectID), desc.Nonce, plainData, requestData)
	if err != nil {
		return "", errors.EbErr(err).AppendMessage("Failed to protect request.")
	}
	b.tracef("uoid: %08x; nonce: %x; data len: %d", desc.UserObjectID, desc.Nonce, len(requestData))
	b.tracef("encrypted: %x, len=%d", encrypted, len(encrypted)*8)
	b.tracef("mac: %x", tag)

	var sb strings.Builder
	sb.WriteString("Packet0_")
	sb.WriteString(string(reqType))
	sb.WriteString("_")
	sb.WriteString(plainLenField(len(plainData)))
	sb.WriteString(hex.EncodeToString(plainData))
	sb.WriteString(hex.EncodeToString(encrypted))
	sb.WriteString(hex.EncodeToString(tag))
	b.tracef("request: %s", sb.String())
	return sb.String(), nil
}

func (b *RequestBuilder) tracef(format string, v ...interface{}) {
	if b.trace {
		log.Debugf(format, v...)
	}
}
