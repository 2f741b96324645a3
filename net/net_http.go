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

package net

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/atomic"

	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/log"
)

type httpClient struct {
	url          string
	apiKey       string
	timeout      time.Duration
	requestCount atomic.Uint64
	readLimit    uint32
	isComplete   ResponseVerifierFunc
	client       *http.Client
}

func newHTTPClient(url string) *httpClient {
	return &httpClient{
		url:        url,
		timeout:    DefaultRequestTimeout,
		readLimit:  0,
		isComplete: isJSONComplete,
		client:     setupClient(),
	}
}

// setupClient returns a new HTTP Client.
//
// ## Proxy Configuration ##
// To use a proxy, set the system environment variable: `https_proxy=user:pass@server:port`.
func setupClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}
}

// Post implements Client.Post().
func (c *httpClient) Post(ctx context.Context, path string, request []byte) (b []byte, e error) {
	if c == nil {
		return nil, errors.New(errors.EbInvalidArgumentError)
	}

	target := c.url + "/" + strings.TrimLeft(path, "/")
	log.Debug(fmt.Sprintf("HTTP send (%s): %s", target, request))

	if ctx == nil {
		ctx = context.Background()
	}
	// Create a deadline Context for the request.
	if c.timeout > 0 {
		// Check that no deadline is already set.
		if _, ok := ctx.Deadline(); !ok {
			var reqCancel context.CancelFunc
			ctx, reqCancel = context.WithTimeout(ctx, c.timeout)
			defer reqCancel()
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(request))
	if err != nil {
		return nil, errors.New(errors.EbTransportError).SetExtError(err)
	}
	httpReq.Header.Set("User-Agent", "EB HTTP Client")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.New(errors.EbTransportError).SetExtError(err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Error("Closing HTTP response body returned error: ", err)
		}
	}()

	// Create a data buffer and, if specified, the limit of data to be read.
	buf := bytes.Buffer{}
	reader := io.Reader(resp.Body)
	// (Buffer).ReadFrom can panic if the amount of data gets to large.
	defer func() {
		if r := recover(); r != nil {
			ebErr := errors.New(errors.EbTransportError).AppendMessage("Panic while reading HTTP response.")
			if err, ok := r.(error); ok {
				e = ebErr.SetExtError(err)
			} else {
				e = ebErr.AppendMessage(fmt.Sprintf("%s", r))
			}
		}
	}()
	if c.readLimit > 0 {
		reader = io.LimitReader(resp.Body, int64(c.readLimit))
	}
	if _, err = buf.ReadFrom(reader); err != nil {
		return nil, errors.New(errors.EbTransportError).SetExtError(err).
			AppendMessage("Failed to read response body.")
	}
	log.Debug(fmt.Sprintf("HTTP received (%s): %d %s", target, resp.StatusCode, buf.Bytes()))

	if resp.StatusCode >= 400 && resp.StatusCode < 600 {
		// The body is returned as is, it may still carry the service status of the failure.
		return buf.Bytes(), errors.New(errors.EbHttpError).SetExtErrorCode(resp.StatusCode).
			AppendMessage(resp.Status)
	}
	if c.isComplete != nil {
		if ok, err := c.isComplete(buf.Bytes()); !ok {
			log.Error(fmt.Sprintf("Failed to read response from HTTP connection (%s): %s", target, buf.Bytes()))
			return nil, errors.New(errors.EbTransportError).SetExtError(err).
				AppendMessage("Failed to read data from HTTP connection.")
		}
	}
	return buf.Bytes(), nil
}

// RequestCount implements Client.RequestCount().
func (c *httpClient) RequestCount() uint64 {
	if c == nil {
		return 0
	}
	return c.requestCount.Inc()
}

// URI implements Endpoint.URI().
func (c *httpClient) URI() string {
	if c == nil {
		return ""
	}
	return c.url
}

// APIKey implements Endpoint.APIKey().
func (c *httpClient) APIKey() string {
	if c == nil {
		return ""
	}
	return c.apiKey
}

// SetReadLimit implements ReadLimiter interface.
func (c *httpClient) SetReadLimit(limit uint32) error {
	if c == nil {
		return errors.New(errors.EbInvalidArgumentError)
	}
	c.readLimit = limit
	return nil
}

// SetTimeout implements RequestTimeouter interface.
func (c *httpClient) SetTimeout(d time.Duration) error {
	if c == nil || d < 0 {
		return errors.New(errors.EbInvalidArgumentError)
	}
	c.timeout = d
	return nil
}

// SetVerifier implements ResponseVerifier interface.
func (c *httpClient) SetVerifier(v ResponseVerifierFunc) error {
	if c == nil {
		return errors.New(errors.EbInvalidArgumentError)
	}
	c.isComplete = v
	return nil
}
