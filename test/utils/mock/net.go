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

package mock

import (
	"context"
	"os"
	"sync"

	"go.uber.org/atomic"

	"github.com/enigmabridge/goeb/log"
)

// RequestCounterClient implements net.(Client) interface.
// Returns the preset response and records every request.
type RequestCounterClient struct {
	count atomic.Uint64

	mu    sync.Mutex
	resp  []byte
	err   error
	paths []string
	body  []byte
}

func (c *RequestCounterClient) RequestCount() uint64 { return c.count.Inc() }
func (c *RequestCounterClient) URI() string          { return "mock://" }
func (c *RequestCounterClient) APIKey() string       { return "MOCK_API" }
func (c *RequestCounterClient) Post(_ context.Context, path string, body []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
	c.body = body
	return c.resp, c.err
}

// Helper methods for setting desired response to be returned via Post() method.
func (c *RequestCounterClient) SetResp(r []byte, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resp = r
	c.err = err
}

// Paths returns the request paths in the order of arrival.
func (c *RequestCounterClient) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

// Body returns the last request body.
func (c *RequestCounterClient) Body() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.body
}

// FileReaderClient implements net.(Client) interface. Enables to return responses from files on the filesystem.
// The request counter is always 1.
type FileReaderClient struct {
	uri string
	key string
}

func NewFileReaderClient(path, apiKey string) *FileReaderClient {
	return &FileReaderClient{
		uri: path,
		key: apiKey,
	}
}

func (c *FileReaderClient) RequestCount() uint64 { return 1 }
func (c *FileReaderClient) URI() string          { return c.uri }
func (c *FileReaderClient) APIKey() string       { return c.key }
func (c *FileReaderClient) Post(_ context.Context, _ string, _ []byte) ([]byte, error) {
	log.Debug("Response path: ", c.uri)
	return os.ReadFile(c.uri)
}
