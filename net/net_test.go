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
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/enigmabridge/goeb/errors"
)

func TestUnitNetClientHTTP(t *testing.T) {
	client, err := NewClient("https://some.url:11180", "TEST_API")
	if err != nil {
		t.Fatal("Failed to create network client: ", err)
	}
	if client == nil {
		t.Fatal("Valid network client must be returned.")
	}
	c, ok := client.(*httpClient)
	if !ok {
		t.Fatal("Wrong network client returned.")
	}
	if c.timeout != DefaultRequestTimeout {
		t.Fatal("Default timeout not applied: ", c.timeout)
	}
	if client.APIKey() != "TEST_API" {
		t.Fatal("Wrong API key: ", client.APIKey())
	}
}

func TestUnitNetClientHTTPreadLimitOpt(t *testing.T) {
	client, err := NewClient("http://some.url", "key", ClientOptReadLimit(4000))
	if err != nil {
		t.Fatal("Failed to create network client: ", err)
	}

	c, ok := client.(*httpClient)
	if !ok {
		t.Fatal("Wrong network client returned.")
	}
	if c.readLimit != 4000 {
		t.Fatal(fmt.Sprintf("Size limit is %v but expecting 4000!", c.readLimit))
	}
}

func TestUnitNetClientTimeoutOpt(t *testing.T) {
	client, err := NewClient("http://some.url", "key", ClientOptRequestTimeout(3*time.Second))
	if err != nil {
		t.Fatal("Failed to create network client: ", err)
	}
	if c := client.(*httpClient); c.timeout != 3*time.Second {
		t.Fatal("Wrong timeout: ", c.timeout)
	}

	if _, err := NewClient("http://some.url", "key", ClientOptRequestTimeout(-1)); err == nil {
		t.Fatal("Negative timeout must fail.")
	}
}

func TestUnitNetHttpClientUri(t *testing.T) {
	client, err := NewClient("http://some.url:1234/api/", "key")
	if err != nil {
		t.Fatal("Failed to create network client: ", err)
	}
	if client.URI() != "http://some.url:1234/api" {
		t.Fatal("Wrong URI: ", client.URI())
	}
}

func TestUnitNetClientOptionNil(t *testing.T) {
	client, err := NewClient("http://some.url", "key", nil)
	if err == nil {
		t.Fatal("Nil option must fail.")
	}
	if client != nil {
		t.Fatal("Network client must be nil.")
	}
}

func TestUnitNetOptionReadLimitWithNilReceiver(t *testing.T) {
	opt := ClientOptReadLimit(123456)
	if err := opt(nil); err == nil {
		t.Fatal("Should not be possible to set read limit to nil client.")
	}
}

func TestUnitNetClientFailUrls(t *testing.T) {
	for _, uri := range []string{
		"",
		"tcp://some.url",
		"eb+http://some.url",
		"some.url",
		"http://",
		"http://some.url:port",
	} {
		client, err := NewClient(uri, "key")
		if err == nil {
			t.Fatal("Should fail with URI: ", uri)
		}
		if errors.CodeOf(err) != errors.EbConfigError {
			t.Fatal("Wrong error code for URI: ", uri, err)
		}
		if client != nil {
			t.Fatal("Network client must be nil.")
		}
	}
}

func TestUnitNetClientRequestCount(t *testing.T) {
	client, err := NewClient("http://some.url", "key")
	if err != nil {
		t.Fatal("Failed to create network client: ", err)
	}
	for i := uint64(1); i <= 3; i++ {
		if c := client.RequestCount(); c != i {
			t.Fatal("Wrong request count: ", c)
		}
	}

	var nilClient *httpClient
	if nilClient.RequestCount() != 0 || nilClient.URI() != "" || nilClient.APIKey() != "" {
		t.Fatal("Nil client must return zero values.")
	}
}

func TestUnitNetHttpPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Error("Wrong method: ", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Error("Wrong content type: ", ct)
		}
		body, _ := io.ReadAll(r.Body)
		fmt.Fprintf(w, `{"path":%q,"body":%s}`, r.URL.Path, body)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL+"/", "key")
	if err != nil {
		t.Fatal("Failed to create network client: ", err)
	}
	resp, err := client.Post(context.Background(), "/1.0/key/ProcessData", []byte(`{"data":"x"}`))
	if err != nil {
		t.Fatal("Request failed: ", err)
	}
	if string(resp) != `{"path":"/1.0/key/ProcessData","body":{"data":"x"}}` {
		t.Fatal("Wrong response: ", string(resp))
	}
}

func TestUnitNetHttpError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"8000"}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "key")
	if err != nil {
		t.Fatal("Failed to create network client: ", err)
	}
	resp, err := client.Post(nil, "GetUserObjectTemplate", []byte("{}"))
	if err == nil {
		t.Fatal("HTTP error must be returned.")
	}
	ebErr, ok := err.(*errors.EbError)
	if !ok {
		t.Fatal("Must fail with EbError.")
	}
	if ebErr.Code() != errors.EbHttpError || ebErr.ExtCode() != http.StatusServiceUnavailable {
		t.Fatal("Wrong error: ", ebErr)
	}
	if !errors.IsRetryable(err) {
		t.Fatal("HTTP error must be retryable.")
	}
	if string(resp) != `{"status":"8000"}` {
		t.Fatal("Response body must be returned: ", string(resp))
	}
}

func TestUnitNetHttpIncompleteResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "key")
	if err != nil {
		t.Fatal("Failed to create network client: ", err)
	}
	if _, err := client.Post(context.Background(), "x", nil); errors.CodeOf(err) != errors.EbTransportError {
		t.Fatal("Incomplete response must fail: ", err)
	}

	// With the verifier disabled the data is returned as is.
	client, err = NewClient(srv.URL, "key", ClientOptResponseVerifier(nil))
	if err != nil {
		t.Fatal("Failed to create network client: ", err)
	}
	resp, err := client.Post(context.Background(), "x", nil)
	if err != nil || string(resp) != `{"status":` {
		t.Fatal("Unexpected result: ", string(resp), err)
	}
}

func TestUnitNetHttpReadLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":"` + strings.Repeat("a", 100) + `"}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "key", ClientOptReadLimit(16))
	if err != nil {
		t.Fatal("Failed to create network client: ", err)
	}
	if _, err := client.Post(context.Background(), "x", nil); errors.CodeOf(err) != errors.EbTransportError {
		t.Fatal("Truncated response must fail: ", err)
	}
}

func TestUnitNetHttpTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client, err := NewClient(srv.URL, "key", ClientOptRequestTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatal("Failed to create network client: ", err)
	}
	_, err = client.Post(context.Background(), "x", nil)
	if errors.CodeOf(err) != errors.EbTransportError {
		t.Fatal("Timeout must fail with transport error: ", err)
	}
	if !errors.IsRetryable(err) {
		t.Fatal("Transport error must be retryable.")
	}
}
