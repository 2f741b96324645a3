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

// Package service implements the calls towards the EB service: user object operations (ProcessData) and user
// object provisioning (GetTemplate, CreateUO).
//
// Every call is a Request variant: it is configured with RequestOpt values, built and sent. The Client offers
// shorthand methods running the whole sequence.
//
//	c, err := service.New(
//		service.OptEndpoint("https://site2.enigmabridge.com:11180", "TEST_API"),
//		service.OptRetry(retry.OptMaxAttempts(3)),
//	)
//	...
//	resp, err := c.ProcessData(ctx, nil, input,
//		service.ReqOptUserObject(0xee01, pdu.TypePlainAES, aesKey, macKey))
package service

import (
	"context"

	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/net"
	"github.com/enigmabridge/goeb/pdu"
	"github.com/enigmabridge/goeb/uo"
)

// Client is the EB service client. It can be shared between goroutines, the requests it creates can not.
type Client struct {
	srv *basicService
}

// New creates a new service client. The endpoint is mandatory, see OptEndpoint, OptNetClient or OptConfig.
func New(opts ...Option) (*Client, error) {
	srv, err := newService(opts...)
	if err != nil {
		return nil, err
	}
	return &Client{srv: srv}, nil
}

// Endpoint returns the network endpoint of the client.
func (c *Client) Endpoint() net.Endpoint {
	if c == nil || c.srv == nil {
		return nil
	}
	return c.srv.netClient
}

// NewProcessData returns a new process data request.
func (c *Client) NewProcessData(opts ...RequestOpt) (*ProcessData, error) {
	if c == nil {
		return nil, errors.New(errors.EbInvalidArgumentError)
	}
	b, err := newBase(c.srv, opts)
	if err != nil {
		return nil, err
	}
	return &ProcessData{base: b}, nil
}

// NewGetTemplate returns a new template request.
func (c *Client) NewGetTemplate(opts ...RequestOpt) (*GetTemplate, error) {
	if c == nil {
		return nil, errors.New(errors.EbInvalidArgumentError)
	}
	b, err := newBase(c.srv, opts)
	if err != nil {
		return nil, err
	}
	return &GetTemplate{base: b}, nil
}

// NewCreateUO returns a new user object creation request.
func (c *Client) NewCreateUO(opts ...RequestOpt) (*CreateUO, error) {
	if c == nil {
		return nil, errors.New(errors.EbInvalidArgumentError)
	}
	b, err := newBase(c.srv, opts)
	if err != nil {
		return nil, err
	}
	return &CreateUO{base: b}, nil
}

// ProcessData processes the input with the user object (see ReqOptUserObject) and returns the verified response.
func (c *Client) ProcessData(ctx context.Context, plainData, data []byte, opts ...RequestOpt) (*pdu.Response, error) {
	req, err := c.NewProcessData(append(opts, ReqOptInput(plainData, data))...)
	if err != nil {
		return nil, err
	}
	if err := run(ctx, req); err != nil {
		return req.Response(), err
	}
	return req.Response(), nil
}

// GetTemplate returns the user object template matching the request.
func (c *Client) GetTemplate(ctx context.Context, tplReq *TemplateRequest) (*uo.Template, error) {
	req, err := c.NewGetTemplate(ReqOptTemplateRequest(tplReq))
	if err != nil {
		return nil, err
	}
	if err := run(ctx, req); err != nil {
		return nil, err
	}
	return req.Template(), nil
}

// CreateUO fetches the template matching tplReq, fills it with keys and creates the user object.
func (c *Client) CreateUO(ctx context.Context, tplReq *TemplateRequest, keys uo.Keys) (*CreateResult, error) {
	tpl, err := c.GetTemplate(ctx, tplReq)
	if err != nil {
		return nil, err
	}
	req, err := c.NewCreateUO(ReqOptTemplate(tpl), ReqOptKeys(keys))
	if err != nil {
		return nil, err
	}
	if err := run(ctx, req); err != nil {
		return nil, err
	}
	return req.Result(), nil
}

func run(ctx context.Context, req Request) error {
	if err := req.Build(); err != nil {
		return err
	}
	return req.Send(ctx)
}
