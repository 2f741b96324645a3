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
	"github.com/enigmabridge/goeb/config"
	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/net"
	"github.com/enigmabridge/goeb/pdu"
	"github.com/enigmabridge/goeb/random"
	"github.com/enigmabridge/goeb/retry"
)

type factory struct {
	// Reference to the service under initialization.
	srv *basicService
}

// Factory method for service construction.
func newService(opts ...Option) (*basicService, error) {
	if len(opts) == 0 {
		return nil, errors.New(errors.EbInvalidArgumentError)
	}

	f := factory{srv: newBasicService()}
	if err := f.initialize(opts...); err != nil {
		return nil, err
	}
	if err := f.srv.verify(); err != nil {
		return nil, err
	}
	return f.srv, nil
}

func (f *factory) initialize(opts ...Option) error {
	if f == nil {
		return errors.New(errors.EbInvalidArgumentError)
	}

	// Apply options.
	for _, optSetter := range opts {
		if optSetter == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Provided option is nil.")
		}
		if err := optSetter(f); err != nil {
			return errors.EbErr(err).AppendMessage("Unable to initialize new service.")
		}
	}
	return nil
}

// Option service is functional option setter.
type Option func(*factory) error

// OptEndpoint is configuration method for the service endpoint.
//  * uri is the endpoint base URI, eg. https://site2.enigmabridge.com:11180,
//  * apiKey is the client identifier,
//  * opts are applied to the network client (eg. net.ClientOptRequestTimeout()).
func OptEndpoint(uri, apiKey string, opts ...net.ClientOpt) Option {
	return func(f *factory) error {
		if f == nil || f.srv == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing service factory base object.")
		}

		client, err := net.NewClient(uri, apiKey, opts...)
		if err != nil {
			return err
		}
		return f.srv.initialize(srvOptNetClient(client))
	}
}

// OptNetClient is setter for the custom network client which implements the net.Client interface.
// For alternative, see OptEndpoint.
func OptNetClient(client net.Client) Option {
	return func(f *factory) error {
		if client == nil {
			return errors.New(errors.EbInvalidArgumentError)
		}
		if f == nil || f.srv == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing service factory base object.")
		}
		return f.srv.initialize(srvOptNetClient(client))
	}
}

// OptAPIVersion sets the API version path element. The default is DefaultAPIVersion.
func OptAPIVersion(v string) Option {
	return func(f *factory) error {
		if f == nil || f.srv == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing service factory base object.")
		}
		if v == "" {
			return errors.New(errors.EbConfigError).AppendMessage("Missing API version.")
		}
		f.srv.apiVersion = v
		return nil
	}
}

// OptRetry sets the options of the retry controller created for every call. By default failing calls are retried
// with retry.New() defaults, ie. without an attempt limit.
func OptRetry(opts ...retry.Option) Option {
	return func(f *factory) error {
		if f == nil || f.srv == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing service factory base object.")
		}
		// Fail early on invalid options.
		if _, err := retry.New(opts...); err != nil {
			return err
		}
		f.srv.retryOpts = append(f.srv.retryOpts, opts...)
		return nil
	}
}

// OptRandom sets the source of nonces and generated keys. The default is random.System().
func OptRandom(src random.Source) Option {
	return func(f *factory) error {
		if f == nil || f.srv == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing service factory base object.")
		}
		if src == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing random source.")
		}
		f.srv.rand = src
		return nil
	}
}

// OptTrace enables debug logging of the request building and response parsing steps.
func OptTrace(enable bool) Option {
	return func(f *factory) error {
		if f == nil || f.srv == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing service factory base object.")
		}
		f.srv.trace = enable
		return nil
	}
}

// OptDefaults sets request options applied to every request created by the client (eg. ReqOptUserObject()).
func OptDefaults(opts ...RequestOpt) Option {
	return func(f *factory) error {
		if f == nil || f.srv == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing service factory base object.")
		}
		for _, o := range opts {
			if o == nil {
				return errors.New(errors.EbInvalidArgumentError).AppendMessage("Provided option is nil.")
			}
		}
		f.srv.defaults = append(f.srv.defaults, opts...)
		return nil
	}
}

// OptConfig applies the configuration: endpoint, request timeout, API version, retry policy and, if its keys are
// set, the default user object.
func OptConfig(cfg config.Config) Option {
	return func(f *factory) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		opts := []Option{
			OptEndpoint(cfg.Endpoint, cfg.APIKey, net.ClientOptRequestTimeout(cfg.RequestTimeout)),
			OptAPIVersion(cfg.APIVersion),
			OptRetry(
				retry.OptStartInterval(cfg.Retry.StartInterval),
				retry.OptMaxInterval(cfg.Retry.MaxInterval),
				retry.OptMaxAttempts(cfg.Retry.MaxAttempts),
			),
		}
		if cfg.UO.AESKey != "" || cfg.UO.MACKey != "" {
			aesKey, macKey, err := cfg.Keys()
			if err != nil {
				return err
			}
			typ := pdu.TypePlainAES
			if cfg.UO.Type != "" {
				if typ, err = pdu.ParseRequestType(cfg.UO.Type); err != nil {
					return err
				}
			}
			opts = append(opts, OptDefaults(ReqOptUserObject(uint64(cfg.UO.ID), typ, aesKey, macKey)))
		}
		return f.initialize(opts...)
	}
}
