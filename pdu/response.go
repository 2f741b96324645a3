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
	"bytes"
	"crypto/subtle"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/enigmabridge/goeb/codec"
	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/log"
)

// StatusOK is the service status of a successfully processed request.
const StatusOK = 0x9000

// Envelope is the JSON envelope of the service responses.
type Envelope struct {
	Status       string          `json:"status"`
	StatusDetail string          `json:"statusdetail,omitempty"`
	Function     string          `json:"function"`
	Result       json.RawMessage `json:"result,omitempty"`
}

// Response is the parsed service response.
type Response struct {
	StatusCode   uint16
	StatusDetail string
	Function     string
	UserObjectID uint32
	// Nonce is the demangled echoed request nonce.
	Nonce []byte
	// Payload is the echoed plain data followed by the decrypted response data, sender framing included.
	Payload []byte

	plainLen  int
	decrypted []byte
}

// Success reports whether the service status is StatusOK.
func (r *Response) Success() bool {
	return r != nil && r.StatusCode == StatusOK
}

// Unpad returns the payload with the PKCS#7 framing of the decrypted part removed.
func (r *Response) Unpad() ([]byte, error) {
	if r == nil || r.decrypted == nil {
		return nil, errors.New(errors.EbInvalidStateError).AppendMessage("Response holds no decrypted data.")
	}
	body, err := unpadBody(r.decrypted)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, r.Payload[:r.plainLen]...), body[headerLen:]...), nil
}

// CheckNonce verifies that the response belongs to the request with the given nonce.
func (r *Response) CheckNonce(nonce []byte) error {
	if r == nil {
		return errors.New(errors.EbInvalidArgumentError)
	}
	if len(r.Nonce) != NonceSize || subtle.ConstantTimeCompare(r.Nonce, nonce) != 1 {
		return errors.New(errors.EbNonceMismatch).AppendMessage("Response does not match the request.")
	}
	return nil
}

// ResponseParser verifies and decrypts the service responses.
type ResponseParser struct {
	f     *framer
	trace bool
	unpad bool
}

// ParserOpt is the response parser configuration option.
type ParserOpt func(*ResponseParser) error

// ParserOptTrace enables debug logging of the parsing steps.
func ParserOptTrace(enable bool) ParserOpt {
	return func(p *ResponseParser) error {
		p.trace = enable
		return nil
	}
}

// ParserOptUnpad makes the parser strip the PKCS#7 framing of the decrypted data from the payload, see
// (Response).Unpad().
func ParserOptUnpad(enable bool) ParserOpt {
	return func(p *ResponseParser) error {
		p.unpad = enable
		return nil
	}
}

// NewResponseParser returns a parser bound to the communication keys of a user object.
func NewResponseParser(aesKey, macKey []byte, opts ...ParserOpt) (*ResponseParser, error) {
	f, err := newFramer(aesKey, macKey)
	if err != nil {
		return nil, err
	}
	tmp := &ResponseParser{f: f}
	for _, setter := range opts {
		if setter == nil {
			return nil, errors.New(errors.EbInvalidArgumentError).AppendMessage("Provided option is nil.")
		}
		if err := setter(tmp); err != nil {
			return nil, errors.EbErr(err).AppendMessage("Unable to setup response parser.")
		}
	}
	return tmp, nil
}

// Parse parses the raw JSON response.
func (p *ResponseParser) Parse(raw []byte) (*Response, error) {
	if p == nil {
		return nil, errors.New(errors.EbInvalidArgumentError)
	}
	env, err := DecodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	return p.ParseEnvelope(env)
}

// DecodeEnvelope decodes the JSON response envelope and checks its mandatory fields.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&env); err != nil {
		return nil, errors.New(errors.EbInvalidResponse).SetExtError(err).AppendMessage("Response data invalid.")
	}
	if env.Status == "" || env.Function == "" {
		return nil, errors.New(errors.EbInvalidResponse).AppendMessage("Response data invalid.")
	}
	return &env, nil
}

// StatusCode returns the numeric service status.
func (e *Envelope) StatusCode() (uint16, error) {
	if e == nil {
		return 0, errors.New(errors.EbInvalidArgumentError)
	}
	s := strings.TrimPrefix(strings.ToLower(e.Status), "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, errors.New(errors.EbInvalidResponse).SetExtError(err).AppendMessage("Invalid response status.")
	}
	return uint16(v), nil
}

// ResultString returns the result field as a string. Non string results are returned in their JSON form.
func (e *Envelope) ResultString() string {
	if e == nil || len(e.Result) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Result, &s); err == nil {
		return s
	}
	return string(e.Result)
}

// Err returns the service error for a non successful status, nil otherwise.
func (e *Envelope) Err() error {
	code, err := e.StatusCode()
	if err != nil {
		return err
	}
	if code == StatusOK {
		return nil
	}
	return errors.New(errors.EbServiceError).SetExtErrorCode(int(code)).
		AppendMessage(fmt.Sprintf("Error in processing, status: %04x, message: %s.", code, e.StatusDetail))
}

// ParseEnvelope verifies and decrypts an already decoded response envelope. In case the service status is not
// StatusOK, the returned response holds the status only and the error is of type errors.EbServiceError.
func (p *ResponseParser) ParseEnvelope(env *Envelope) (*Response, error) {
	if p == nil || env == nil {
		return nil, errors.New(errors.EbInvalidArgumentError)
	}
	code, err := env.StatusCode()
	if err != nil {
		return nil, err
	}
	resp := &Response{
		StatusCode:   code,
		StatusDetail: env.StatusDetail,
		Function:     env.Function,
	}
	if err := env.Err(); err != nil {
		p.tracef("status: %04x, detail: %s", code, env.StatusDetail)
		return resp, err
	}

	result := env.ResultString()
	if i := strings.IndexByte(result, '_'); i >= 0 {
		result = result[:i]
	}
	raw, err := codec.DecodeHex(result)
	if err != nil {
		return nil, errors.EbErr(err).AppendMessage("Invalid response result.")
	}
	if len(raw) < 2 {
		return nil, errors.New(errors.EbInvalidResponse).AppendMessage("Response result too short.")
	}
	plainLen := int(binary.BigEndian.Uint16(raw))
	if len(raw) < 2+plainLen+MACSize {
		return nil, errors.New(errors.EbInvalidResponse).AppendMessage("Response result too short.")
	}
	plainData := raw[2 : 2+plainLen]
	protected := raw[2+plainLen:]
	encrypted := protected[:len(protected)-MACSize]
	tag := protected[len(protected)-MACSize:]

	decrypted, err := p.f.open(plainData, encrypted, tag)
	if err != nil {
		return nil, err
	}
	p.tracef("decrypted len=%d", len(decrypted)*8)

	if decrypted[0] != flagResponse {
		return nil, errors.New(errors.EbCorruptFlag).AppendMessage("Given data packet is not a response.")
	}
	resp.UserObjectID = binary.BigEndian.Uint32(decrypted[1:5])
	resp.Nonce = DemangleNonce(decrypted[5:headerLen])
	p.tracef("returned user object: %08x, nonce: %x", resp.UserObjectID, resp.Nonce)

	resp.plainLen = len(plainData)
	resp.decrypted = decrypted
	resp.Payload = append(append([]byte{}, plainData...), decrypted[headerLen:]...)
	if p.unpad {
		if resp.Payload, err = resp.Unpad(); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (p *ResponseParser) tracef(format string, v ...interface{}) {
	if p.trace {
		log.Debugf(format, v...)
	}
}
