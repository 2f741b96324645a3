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

package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/pdu"
)

// FuncProcessData is the service function of the user object operations.
const FuncProcessData = "ProcessData"

// ProcessData is the user object operation request: the input is protected with the user object communication
// keys, processed by the user object and the response is verified and decrypted.
type ProcessData struct {
	base

	desc   *pdu.RequestDescriptor
	packet string
	resp   *pdu.Response
}

type processDataBody struct {
	Data string `json:"data"`
}

// Build implements Request.Build().
func (r *ProcessData) Build() error {
	if r == nil || r.srv == nil {
		return errors.New(errors.EbInvalidArgumentError)
	}
	p := &r.params

	builder, err := pdu.NewRequestBuilder(pdu.BuilderOptRandom(r.srv.rand), pdu.BuilderOptTrace(r.srv.trace))
	if err != nil {
		return err
	}
	desc := &pdu.RequestDescriptor{
		UserObjectID: p.userObjectID,
		Nonce:        append([]byte(nil), p.nonce...),
		AESKey:       p.aesKey,
		MACKey:       p.macKey,
		Type:         p.reqType,
	}
	packet, err := builder.Build(desc, p.plainData, p.data)
	if err != nil {
		return errors.EbErr(err).AppendMessage("Unable to build process data request.")
	}
	r.desc = desc
	r.packet = packet
	r.resp = nil
	return nil
}

// Send implements Request.Send().
//
// In case the service responds with a status other than 0x9000, an error with code errors.EbServiceError is
// returned and the status is available via Response().
func (r *ProcessData) Send(ctx context.Context) error {
	if r == nil || r.srv == nil {
		return errors.New(errors.EbInvalidArgumentError)
	}
	if r.packet == "" {
		return errNotBuilt()
	}

	body, err := json.Marshal(processDataBody{Data: r.packet})
	if err != nil {
		return errors.EbErr(err)
	}
	path := r.srv.path(FuncProcessData,
		fmt.Sprintf("%s%08x", r.srv.netClient.APIKey(), r.desc.UserObjectID),
		hex.EncodeToString(r.desc.Nonce))

	env, err := r.srv.send(ctx, r.callID, FuncProcessData, path, body)
	if err != nil {
		return err
	}

	// Service responses carry PKCS#7 framing.
	opts := []pdu.ParserOpt{pdu.ParserOptUnpad(true)}
	if r.srv.trace {
		opts = append(opts, pdu.ParserOptTrace(true))
	}
	parser, err := pdu.NewResponseParser(r.desc.AESKey, r.desc.MACKey, opts...)
	if err != nil {
		return err
	}
	resp, err := parser.ParseEnvelope(env)
	if err != nil {
		r.resp = resp
		return err
	}
	if err := resp.CheckNonce(r.desc.Nonce); err != nil {
		return err
	}
	if uint64(resp.UserObjectID) != r.desc.UserObjectID {
		return errors.New(errors.EbInvalidResponse).
			AppendMessage(fmt.Sprintf("Response user object %08x does not match the request.", resp.UserObjectID))
	}
	r.resp = resp
	return nil
}

// Nonce returns the request nonce, nil before Build.
func (r *ProcessData) Nonce() []byte {
	if r == nil || r.desc == nil {
		return nil
	}
	return r.desc.Nonce
}

// Packet returns the built request packet.
func (r *ProcessData) Packet() string {
	if r == nil {
		return ""
	}
	return r.packet
}

// Response returns the processed response, nil before a successful Send.
func (r *ProcessData) Response() *pdu.Response {
	if r == nil {
		return nil
	}
	return r.resp
}
