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

package retry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/log"
	"github.com/enigmabridge/goeb/random"
)

// zeroSource yields zero jitter.
type zeroSource struct{}

func (zeroSource) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func newTestController(t *testing.T, mock *clock.Mock, opts ...Option) *Controller {
	t.Helper()
	c, err := New(append([]Option{OptClock(mock), OptRandom(zeroSource{})}, opts...)...)
	require.NoError(t, err)
	return c
}

func TestUnitRetryBackoff(t *testing.T) {
	mock := clock.NewMock()
	c := newTestController(t, mock, OptMaxInterval(3*time.Second))

	var fired int
	expected := []time.Duration{250 * time.Millisecond, 500 * time.Millisecond, time.Second, 2 * time.Second,
		3 * time.Second, 3 * time.Second}
	for i, exp := range expected {
		d, ok := c.Retry(func() { fired++ })
		require.True(t, ok)
		require.Equal(t, exp, d, "attempt %d", i)
		require.Equal(t, i+1, c.NumAttempts())

		mock.Add(d - time.Millisecond)
		require.Equal(t, i, fired)
		mock.Add(time.Millisecond)
		require.Equal(t, i+1, fired)
	}
	require.False(t, c.LimitReached())

	c.Reset()
	require.Equal(t, 0, c.NumAttempts())
	require.Equal(t, DefaultStartInterval, c.Interval())
}

func TestUnitRetryJitter(t *testing.T) {
	mock := clock.NewMock()
	c, err := New(OptClock(mock), OptRandom(random.NewSeeded([]byte("jitter"))))
	require.NoError(t, err)

	prev := c.Interval()
	for i := 0; i < 5; i++ {
		_, ok := c.Retry(func() {})
		require.True(t, ok)
		next := c.Interval()
		require.GreaterOrEqual(t, next, 2*prev)
		require.LessOrEqual(t, next, 2*prev+time.Second)
		prev = next
	}
	c.Cancel()
}

func TestUnitRetryLimit(t *testing.T) {
	mock := clock.NewMock()
	var (
		failed *Controller
		lines  []string
	)
	c, err := New(
		OptClock(mock),
		OptRandom(random.NewSeeded([]byte("limit"))),
		OptStartInterval(250*time.Millisecond),
		OptMaxAttempts(3),
		OptOnFail(func(c *Controller) { failed = c }),
		OptLogger(log.Func(func(v ...interface{}) { lines = append(lines, fmt.Sprint(v...)) })),
	)
	require.NoError(t, err)

	var prev time.Duration
	for i := 0; i < 3; i++ {
		d, ok := c.Retry(func() {})
		require.True(t, ok)
		if i == 0 {
			require.Equal(t, 250*time.Millisecond, d)
		} else {
			require.GreaterOrEqual(t, d, 2*prev, "attempt %d", i)
			require.LessOrEqual(t, d, 2*prev+time.Second, "attempt %d", i)
		}
		require.Equal(t, i+1, c.NumAttempts())
		prev = d
	}
	require.True(t, c.LimitReached())
	require.Nil(t, failed)

	d, ok := c.Retry(func() { t.Fatal("Must not be called.") })
	require.False(t, ok)
	require.Zero(t, d)
	require.Equal(t, c, failed)
	require.Equal(t, 3, c.NumAttempts())
	require.Len(t, lines, 4)
	require.True(t, strings.HasPrefix(lines[0], "[N] Retry: next attempt in: 250ms"))
	require.True(t, strings.HasPrefix(lines[3], "[W] Retry: max number reached"))

	// The last armed timer is still running.
	mock.Add(time.Minute)

	c.Reset()
	require.False(t, c.LimitReached())
}

func TestUnitRetryZeroLimit(t *testing.T) {
	c := newTestController(t, clock.NewMock(), OptMaxAttempts(0))
	require.True(t, c.LimitReached())
	_, ok := c.Retry(func() {})
	require.False(t, ok)
}

func TestUnitRetryCancel(t *testing.T) {
	mock := clock.NewMock()
	c := newTestController(t, mock)

	var fired int
	_, ok := c.Retry(func() { fired++ })
	require.True(t, ok)
	c.Cancel()
	c.Cancel()
	mock.Add(time.Minute)
	require.Equal(t, 0, fired)
	require.Equal(t, 1, c.NumAttempts())

	// A new timer replaces the armed one.
	_, ok = c.Retry(func() { fired += 10 })
	require.True(t, ok)
	_, ok = c.Retry(func() { fired++ })
	require.True(t, ok)
	mock.Add(time.Minute)
	require.Equal(t, 1, fired)
}

func TestUnitRetryNil(t *testing.T) {
	var c *Controller
	_, ok := c.Retry(func() {})
	require.False(t, ok)
	c.Cancel()
	c.Reset()
	require.Equal(t, 0, c.NumAttempts())
	require.False(t, c.LimitReached())
	require.Equal(t, errors.EbInvalidArgumentError, errors.CodeOf(c.Do(context.Background(), nil)))
}

func TestUnitRetryInvalidOptions(t *testing.T) {
	for _, opt := range []Option{nil, OptStartInterval(-1), OptMaxInterval(-1), OptClock(nil), OptRandom(nil)} {
		_, err := New(opt)
		require.Equal(t, errors.EbInvalidArgumentError, errors.CodeOf(err))
	}
}

// runDo runs Do in the background and advances the mock clock until it returns.
func runDo(t *testing.T, mock *clock.Mock, c *Controller, ctx context.Context, op func(context.Context) error) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- c.Do(ctx, op) }()
	for i := 0; i < 1000; i++ {
		select {
		case err := <-done:
			return err
		default:
			mock.Add(time.Minute)
		}
	}
	t.Fatal("Do did not return.")
	return nil
}

func TestUnitRetryDo(t *testing.T) {
	mock := clock.NewMock()
	c := newTestController(t, mock, OptMaxAttempts(5))

	var (
		mu    sync.Mutex
		calls int
	)
	err := runDo(t, mock, c, context.Background(), func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			return errors.New(errors.EbTransportError)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, 0, c.NumAttempts(), "Controller is reset after success.")
}

func TestUnitRetryDoExhausted(t *testing.T) {
	mock := clock.NewMock()
	c := newTestController(t, mock, OptMaxAttempts(2))

	var calls int
	last := errors.New(errors.EbHttpError).SetExtErrorCode(503)
	err := runDo(t, mock, c, context.Background(), func(context.Context) error {
		calls++
		return last
	})
	require.Equal(t, errors.EbExhaustedRetries, errors.CodeOf(err))
	require.Equal(t, last, err.(*errors.EbError).ExtError())
	require.Equal(t, 3, calls)
}

func TestUnitRetryDoNotRetryable(t *testing.T) {
	c := newTestController(t, clock.NewMock())

	var calls int
	err := c.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New(errors.EbCorruptMac)
	})
	require.Equal(t, errors.EbCorruptMac, errors.CodeOf(err))
	require.Equal(t, 1, calls)
	require.Equal(t, 0, c.NumAttempts())
}

func TestUnitRetryDoContext(t *testing.T) {
	c := newTestController(t, clock.NewMock())

	ctx, cancel := context.WithCancel(context.Background())
	err := c.Do(ctx, func(context.Context) error {
		cancel()
		return errors.New(errors.EbTransportError)
	})
	require.Equal(t, errors.EbExternalError, errors.CodeOf(err))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, c.NumAttempts())
}
