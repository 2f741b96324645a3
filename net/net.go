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

// Package net provides an interface for network I/O towards the service endpoint.
package net

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/enigmabridge/goeb/errors"
)

// Client is abstract network client.
type Client interface {
	Endpoint

	// RequestCount returns next available request ID value.
	RequestCount() uint64
	// Post places the request body towards the endpoint path and returns the response body.
	// In case the context does not have a deadline set, the Client's default timeout is used.
	Post(ctx context.Context, path string, body []byte) ([]byte, error)
}

// Endpoint is the abstract network endpoint.
type Endpoint interface {
	URI() string
	// APIKey is the client identifier, part of every request path.
	APIKey() string
}

// ClientOpt is the configuration option for the network provider.
type ClientOpt func(Client) error

// ReadLimiter is interface for network clients whose read data amount can be limited.
type ReadLimiter interface {
	// SetReadLimit sets a read limit in bytes for a network client.
	//
	// In order to disable the limiter, set 'limit' to 0.
	SetReadLimit(uint32) error
}

// RequestTimeouter is interface for network client whose request time can be limited.
type RequestTimeouter interface {
	// SetTimeout sets the request timeout.
	//
	// In order to disable the timeout, set the duration to 0.
	SetTimeout(time.Duration) error
}

// ResponseVerifier is interface for network client whose read data should be verified.
//
// The provided function verifies whether the read byte stream contains a complete response. If in case of a false
// result the optional error is set, it will be returned from the network client as errors.EbTransportError with
// the extended error set (see (EbError).ExtError()).
//
// In order to disable the consistency verification, set the verification function to nil.
type ResponseVerifier interface {
	// SetVerifier applies the verifier function.
	SetVerifier(ResponseVerifierFunc) error
}

// ResponseVerifierFunc is the function header definition for using in response consistency verification.
// The input is a byte stream to be verified. Output is the verification result and an optional error for failure details.
type ResponseVerifierFunc func([]byte) (bool, error)

// NewClient returns a new network client instance for the endpoint base URI (eg. https://site.host:11180).
func NewClient(uri, apiKey string, options ...ClientOpt) (Client, error) {
	if len(uri) == 0 {
		return nil, errors.New(errors.EbConfigError).AppendMessage("Missing endpoint URI.")
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, errors.New(errors.EbConfigError).SetExtError(err).
			AppendMessage("Unable to parse URI.")
	}
	if u.Host == "" {
		return nil, errors.New(errors.EbConfigError).AppendMessage("Missing endpoint host.")
	}

	var tmp Client
	switch u.Scheme {
	case "http", "https":
		u.Path = strings.TrimRight(u.Path, "/")
		httpClient := newHTTPClient(u.String())
		httpClient.apiKey = apiKey
		tmp = httpClient
	default:
		return nil, errors.New(errors.EbConfigError).AppendMessage(fmt.Sprintf("Unknown URI scheme: %q.", u.Scheme))
	}

	// Apply options.
	for _, setter := range options {
		if err := setOption(tmp, setter); err != nil {
			return nil, err
		}
	}

	return tmp, nil
}

func setOption(t Client, opt ClientOpt) error {
	if t == nil {
		return errors.New(errors.EbInvalidArgumentError)
	}
	if opt == nil {
		return errors.New(errors.EbInvalidArgumentError).AppendMessage("Provided option is nil.")
	}

	if err := opt(t); err != nil {
		return errors.EbErr(err).AppendMessage("Unable to apply network option.")
	}
	return nil
}

// ClientOptReadLimit is option that specifies the limit for the amount of data received.
//
// Note that network client must implement ReadLimiter interface.
func ClientOptReadLimit(limit uint32) ClientOpt {
	return func(t Client) error {
		if t == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing network client base object.")
		}

		c, ok := t.(ReadLimiter)
		if !ok {
			return errors.New(errors.EbNotImplemented).AppendMessage(
				fmt.Sprintf("Network client %s does not implement ReadLimiter interface.", reflect.TypeOf(t)))
		}
		if err := c.SetReadLimit(limit); err != nil {
			return errors.EbErr(err).AppendMessage("Unable to set read limit.")
		}

		return nil
	}
}

// DefaultRequestTimeout is the request timeout applied unless changed with ClientOptRequestTimeout.
const DefaultRequestTimeout = 10 * time.Second

// ClientOptRequestTimeout is option that specifies request timeout duration.
//
// Note that network client must implement RequestTimeouter interface.
func ClientOptRequestTimeout(timeout time.Duration) ClientOpt {
	return func(t Client) error {
		if t == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing network client base object.")
		}

		c, ok := t.(RequestTimeouter)
		if !ok {
			return errors.New(errors.EbNotImplemented).AppendMessage(
				fmt.Sprintf("Network client %s does not implement RequestTimeouter interface.", reflect.TypeOf(t)))
		}
		if err := c.SetTimeout(timeout); err != nil {
			return errors.EbErr(err).AppendMessage("Unable to set timeout.")
		}
		return nil
	}
}

// ClientOptResponseVerifier is option that specifies the response completeness verifier.
//
// Setting the verifier to nil will disable the completeness verification for read data.
//
// The default verifier ensures the response is a well formed JSON document.
//
// Note that network client must implement ResponseVerifier interface.
func ClientOptResponseVerifier(verifier ResponseVerifierFunc) ClientOpt {
	return func(t Client) error {
		if t == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing network client base object.")
		}

		c, ok := t.(ResponseVerifier)
		if !ok {
			return errors.New(errors.EbNotImplemented).AppendMessage(
				fmt.Sprintf("Network client %s does not support response verification.", reflect.TypeOf(t)))
		}
		if err := c.SetVerifier(verifier); err != nil {
			return errors.EbErr(err).AppendMessage("Unable to set verifier.")
		}
		return nil
	}
}

func isJSONComplete(data []byte) (bool, error) {
	return json.Valid(data), nil
}
