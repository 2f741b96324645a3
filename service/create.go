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
	"strconv"

	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/pdu"
	"github.com/enigmabridge/goeb/uo"
)

// FuncCreateUO is the service function creating user objects.
const FuncCreateUO = "CreateUserObject"

// CreateUO is the user object creation request. The template is filled with the keys, encrypted under fresh
// transport keys wrapped by the template import key and submitted to the service.
type CreateUO struct {
	base

	filled *uo.Result
	body   []byte
	result *CreateResult
}

type createBody struct {
	ObjectID      string `json:"objectid"`
	Object        string `json:"object"`
	Authorization string `json:"authorization,omitempty"`
}

type createResultJSON struct {
	Handle string `json:"handle"`
}

// CreateResult describes the created user object.
type CreateResult struct {
	// Handle is the API key followed by the hex encoded user object ID and type.
	Handle       string
	UserObjectID uint32
	Type         uint32
	// Keys are the keys written into the user object, generated ones included.
	Keys uo.Keys
}

// Descriptor returns the process data descriptor of the created user object.
func (r *CreateResult) Descriptor(typ pdu.RequestType) *pdu.RequestDescriptor {
	if r == nil {
		return nil
	}
	return &pdu.RequestDescriptor{
		UserObjectID: uint64(r.UserObjectID),
		AESKey:       r.Keys[uo.KeyCommEnc],
		MACKey:       r.Keys[uo.KeyCommMAC],
		Type:         typ,
	}
}

// Build implements Request.Build().
func (r *CreateUO) Build() error {
	if r == nil || r.srv == nil {
		return errors.New(errors.EbInvalidArgumentError)
	}
	tpl := r.params.template
	if tpl == nil {
		return errors.New(errors.EbConfigError).AppendMessage("Missing user object template.")
	}

	filler, err := uo.NewFiller(uo.FillerOptRandom(r.srv.rand), uo.FillerOptTrace(r.srv.trace))
	if err != nil {
		return err
	}
	res, err := filler.Build(tpl, r.params.keys)
	if err != nil {
		return errors.EbErr(err).AppendMessage("Unable to build user object.")
	}
	body, err := json.Marshal(createBody{
		ObjectID:      fmt.Sprintf("%08x", tpl.ObjectID),
		Object:        hex.EncodeToString(res.UO),
		Authorization: tpl.Authorization,
	})
	if err != nil {
		return errors.EbErr(err)
	}
	r.filled = res
	r.body = body
	r.result = nil
	return nil
}

// Send implements Request.Send().
func (r *CreateUO) Send(ctx context.Context) error {
	if r == nil || r.srv == nil {
		return errors.New(errors.EbInvalidArgumentError)
	}
	if r.body == nil {
		return errNotBuilt()
	}

	env, err := r.srv.send(ctx, r.callID, FuncCreateUO, r.srv.path(FuncCreateUO), r.body)
	if err != nil {
		return err
	}
	if err := env.Err(); err != nil {
		return err
	}

	var raw createResultJSON
	if err := json.Unmarshal(env.Result, &raw); err != nil {
		return errors.New(errors.EbInvalidResponse).SetExtError(err).AppendMessage("Invalid create result.")
	}
	res, err := parseHandle(raw.Handle)
	if err != nil {
		return err
	}
	res.Keys = r.filled.Keys
	r.result = res
	return nil
}

// parseHandle splits the handle into the user object ID and type, both 8 hex digits at its end.
func parseHandle(handle string) (*CreateResult, error) {
	if len(handle) < 16 {
		return nil, errors.New(errors.EbInvalidResponse).AppendMessage(fmt.Sprintf("Invalid handle: %q.", handle))
	}
	tail := handle[len(handle)-16:]
	id, err := strconv.ParseUint(tail[:8], 16, 32)
	if err != nil {
		return nil, errors.New(errors.EbInvalidResponse).SetExtError(err).AppendMessage(fmt.Sprintf("Invalid handle: %q.", handle))
	}
	typ, err := strconv.ParseUint(tail[8:], 16, 32)
	if err != nil {
		return nil, errors.New(errors.EbInvalidResponse).SetExtError(err).AppendMessage(fmt.Sprintf("Invalid handle: %q.", handle))
	}
	return &CreateResult{Handle: handle, UserObjectID: uint32(id), Type: uint32(typ)}, nil
}

// UserObject returns the filled user object, nil before Build.
func (r *CreateUO) UserObject() *uo.Result {
	if r == nil {
		return nil
	}
	return r.filled
}

// Result returns the created user object, nil before a successful Send.
func (r *CreateUO) Result() *CreateResult {
	if r == nil {
		return nil
	}
	return r.result
}
