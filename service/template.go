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
	"encoding/json"

	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/uo"
)

// FuncGetTemplate is the service function returning user object templates.
const FuncGetTemplate = "GetUserObjectTemplate"

// Key generation parties of the template request.
const (
	GenClient = "client"
	GenServer = "server"
)

// Generation selects which party generates the key groups of the new user object.
type Generation struct {
	CommKey    string `json:"commkey"`
	BillingKey string `json:"billingkey"`
	AppKey     string `json:"appkey"`
}

// TemplateRequest describes the requested user object template.
type TemplateRequest struct {
	Format      int        `json:"format"`
	Protocol    int        `json:"protocol"`
	Environment string     `json:"environment"`
	MaxTPS      string     `json:"maxtps"`
	Core        string     `json:"core"`
	Persistence string     `json:"persistence"`
	Priority    string     `json:"priority"`
	Separation  string     `json:"separation"`
	BCR         string     `json:"bcr"`
	Unlimited   string     `json:"unlimited"`
	ClientIV    string     `json:"clientiv"`
	ClientDIV   string     `json:"clientdiv"`
	Resource    string     `json:"resource"`
	Credit      int        `json:"credit"`
	Generation  Generation `json:"generation"`
	// Type is the user object function type.
	Type uint32 `json:"type"`
}

// DefaultTemplateRequest returns the template request of a development user object of the given type. The
// communication and application keys are provided by the client, the billing key by the server.
func DefaultTemplateRequest(objType uint32) *TemplateRequest {
	return &TemplateRequest{
		Format:      1,
		Protocol:    1,
		Environment: "dev",
		MaxTPS:      "one",
		Core:        "empty",
		Persistence: "1_minute",
		Priority:    "default",
		Separation:  "time",
		BCR:         "yes",
		Unlimited:   "yes",
		ClientIV:    "yes",
		ClientDIV:   "no",
		Resource:    "global",
		Credit:      32767,
		Generation: Generation{
			CommKey:    GenClient,
			BillingKey: GenServer,
			AppKey:     GenClient,
		},
		Type: objType,
	}
}

// GetTemplate is the user object template request.
type GetTemplate struct {
	base

	body     []byte
	template *uo.Template
}

// Build implements Request.Build().
func (r *GetTemplate) Build() error {
	if r == nil || r.srv == nil {
		return errors.New(errors.EbInvalidArgumentError)
	}
	if r.params.tplReq == nil {
		return errors.New(errors.EbConfigError).AppendMessage("Missing template request.")
	}
	body, err := json.Marshal(r.params.tplReq)
	if err != nil {
		return errors.EbErr(err).AppendMessage("Unable to encode template request.")
	}
	r.body = body
	r.template = nil
	return nil
}

// Send implements Request.Send().
func (r *GetTemplate) Send(ctx context.Context) error {
	if r == nil || r.srv == nil {
		return errors.New(errors.EbInvalidArgumentError)
	}
	if r.body == nil {
		return errNotBuilt()
	}

	env, err := r.srv.send(ctx, r.callID, FuncGetTemplate, r.srv.path(FuncGetTemplate), r.body)
	if err != nil {
		return err
	}
	if err := env.Err(); err != nil {
		return err
	}
	tpl, err := uo.ParseTemplate(env.Result)
	if err != nil {
		return errors.EbErr(err).AppendMessage("Invalid template received.")
	}
	r.template = tpl
	return nil
}

// Template returns the received template, nil before a successful Send.
func (r *GetTemplate) Template() *uo.Template {
	if r == nil {
		return nil
	}
	return r.template
}
