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
	"strings"

	"github.com/google/uuid"

	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/log"
	"github.com/enigmabridge/goeb/net"
	"github.com/enigmabridge/goeb/pdu"
	"github.com/enigmabridge/goeb/random"
	"github.com/enigmabridge/goeb/retry"
)

// DefaultAPIVersion is the service API version used unless changed with OptAPIVersion.
const DefaultAPIVersion = "1.0"

// basicService is the abstraction of the EB service endpoint.
type basicService struct {
	// Service endpoint.
	netClient  net.Client
	apiVersion string
	// Options of the per call retry controller.
	retryOpts []retry.Option
	// Source of nonces, generated keys and padding.
	rand  random.Source
	trace bool

	// Request parameters applied to every request before the request specific ones.
	defaults []RequestOpt
}

func newBasicService() *basicService {
	return &basicService{
		apiVersion: DefaultAPIVersion,
		rand:       random.System(),
	}
}

// basicService option.
type srvOption func(*basicService) error

func (s *basicService) initialize(opts ...srvOption) error {
	if s == nil {
		return errors.New(errors.EbInvalidArgumentError)
	}

	// Apply options.
	for _, optSetter := range opts {
		if optSetter == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Provided option is nil.")
		}
		if err := optSetter(s); err != nil {
			return errors.EbErr(err).AppendMessage("Unable to apply factory option.")
		}
	}
	return nil
}

// verify checks the mandatory members after all the options have been applied.
func (s *basicService) verify() error {
	if s == nil {
		return errors.New(errors.EbInvalidArgumentError)
	}
	// Network client is mandatory.
	if s.netClient == nil {
		return errors.New(errors.EbInvalidStateError).AppendMessage("Network client has not been created.")
	}
	if s.netClient.APIKey() == "" {
		return errors.New(errors.EbConfigError).AppendMessage("Missing API key.")
	}
	return nil
}

// srvOptNetClient is setter for the network client.
func srvOptNetClient(client net.Client) srvOption {
	return func(s *basicService) error {
		if s == nil || client == nil {
			return errors.New(errors.EbInvalidArgumentError)
		}
		s.netClient = client
		return nil
	}
}

// path returns the API path for the elements, eg. /1.0/API_KEY/GetUserObjectTemplate.
func (s *basicService) path(elems ...string) string {
	return "/" + strings.Join(append([]string{s.apiVersion, s.netClient.APIKey()}, elems...), "/")
}

// send places the call and returns the decoded response envelope. Transport failures are retried according to the
// service retry policy. The service status is not evaluated.
func (s *basicService) send(ctx context.Context, callID uuid.UUID, function, path string, body []byte) (*pdu.Envelope, error) {
	if s == nil || s.netClient == nil {
		return nil, errors.New(errors.EbInvalidArgumentError)
	}

	ctrl, err := retry.New(s.retryOpts...)
	if err != nil {
		return nil, err
	}

	var (
		env      *pdu.Envelope
		attempts int
	)
	err = ctrl.Do(ctx, func(ctx context.Context) error {
		attempts++
		log.Info(fmt.Sprintf("[%s] %s #%d: %s", callID, function, attempts, path))

		raw, respErr := s.netClient.Post(ctx, path, body)
		if respErr != nil {
			// Prefer the service status carried in the body of an HTTP error response.
			if e, err := pdu.DecodeEnvelope(raw); err == nil {
				if _, err := e.StatusCode(); err == nil {
					env = e
					return nil
				}
			}
			log.Notice(fmt.Sprintf("[%s] %s failed: %s", callID, function, respErr))
			return respErr
		}

		e, err := pdu.DecodeEnvelope(raw)
		if err != nil {
			return err
		}
		env = e
		return nil
	})
	if err != nil {
		log.Error(fmt.Sprintf("[%s] %s failed: %s", callID, function, err))
		return nil, err
	}
	log.Info(fmt.Sprintf("[%s] %s status: %s", callID, function, env.Status))
	return env, nil
}
