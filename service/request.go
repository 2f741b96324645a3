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
	"fmt"

	"github.com/google/uuid"

	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/pdu"
	"github.com/enigmabridge/goeb/uo"
)

// Request is the capability set shared by the service call variants (see ProcessData, GetTemplate, CreateUO).
//
// A request is configured, built and sent once. Send places the call towards the service, failing with
// errors.EbInvalidStateError in case the request has not been built. An instance must not be shared between
// goroutines.
type Request interface {
	// Configure applies the request options.
	Configure(opts ...RequestOpt) error
	// Build prepares the request body from the configured parameters.
	Build() error
	// Send places the call and processes the response.
	Send(ctx context.Context) error
}

// RequestOpt is the request parameter setter. Options not relevant to a request variant are ignored by it.
type RequestOpt func(*requestParams) error

type requestParams struct {
	// Process data.
	userObjectID uint64
	reqType      pdu.RequestType
	aesKey       []byte
	macKey       []byte
	nonce        []byte
	plainData    []byte
	data         []byte

	// Provisioning.
	tplReq   *TemplateRequest
	template *uo.Template
	keys     uo.Keys
}

// ReqOptUserObject sets the user object and its communication keys.
func ReqOptUserObject(id uint64, typ pdu.RequestType, aesKey, macKey []byte) RequestOpt {
	return func(p *requestParams) error {
		if typ != "" && !typ.Valid() {
			return errors.New(errors.EbConfigError).AppendMessage(fmt.Sprintf("Unknown request type: %q.", typ))
		}
		p.userObjectID = id
		p.reqType = typ
		p.aesKey = append([]byte(nil), aesKey...)
		p.macKey = append([]byte(nil), macKey...)
		return nil
	}
}

// ReqOptNonce sets the request nonce. By default a random nonce is generated.
func ReqOptNonce(nonce []byte) RequestOpt {
	return func(p *requestParams) error {
		if len(nonce) != pdu.NonceSize {
			return errors.New(errors.EbConfigError).AppendMessage(fmt.Sprintf("Invalid nonce length: %d.", len(nonce)))
		}
		p.nonce = append([]byte(nil), nonce...)
		return nil
	}
}

// ReqOptInput sets the process data input. The plainData is authenticated only, data is encrypted.
func ReqOptInput(plainData, data []byte) RequestOpt {
	return func(p *requestParams) error {
		if len(plainData) > pdu.MaxPlainDataLen {
			return errors.New(errors.EbConfigError).AppendMessage("Plain data too long.")
		}
		p.plainData = plainData
		p.data = data
		return nil
	}
}

// ReqOptTemplateRequest sets the parameters of the requested user object template.
func ReqOptTemplateRequest(r *TemplateRequest) RequestOpt {
	return func(p *requestParams) error {
		if r == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing template request.")
		}
		p.tplReq = r
		return nil
	}
}

// ReqOptTemplate sets the template the user object is created from.
func ReqOptTemplate(tpl *uo.Template) RequestOpt {
	return func(p *requestParams) error {
		if tpl == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing template.")
		}
		p.template = tpl
		return nil
	}
}

// ReqOptKeys sets the keys written into the user object template.
func ReqOptKeys(keys uo.Keys) RequestOpt {
	return func(p *requestParams) error {
		p.keys = keys
		return nil
	}
}

// base holds the parts common to the request variants.
type base struct {
	srv    *basicService
	params requestParams
	callID uuid.UUID
}

func newBase(srv *basicService, opts []RequestOpt) (base, error) {
	if srv == nil {
		return base{}, errors.New(errors.EbInvalidArgumentError)
	}
	b := base{srv: srv, callID: uuid.New()}
	if err := b.Configure(srv.defaults...); err != nil {
		return base{}, err
	}
	if err := b.Configure(opts...); err != nil {
		return base{}, err
	}
	return b, nil
}

// Configure implements Request.Configure().
func (b *base) Configure(opts ...RequestOpt) error {
	if b == nil {
		return errors.New(errors.EbInvalidArgumentError)
	}
	for _, setter := range opts {
		if setter == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Provided option is nil.")
		}
		if err := setter(&b.params); err != nil {
			return errors.EbErr(err).AppendMessage("Unable to configure request.")
		}
	}
	return nil
}

// CallID returns the identifier the request is logged with.
func (b *base) CallID() uuid.UUID {
	if b == nil {
		return uuid.Nil
	}
	return b.callID
}

func errNotBuilt() error {
	return errors.New(errors.EbInvalidStateError).AppendMessage("Request has not been built.")
}
