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

// Package retry implements an exponential back-off controller with jitter.
//
// The initial wait is 250ms; after each scheduled attempt the interval doubles and a random jitter of up to one
// second is added, until MaxInterval is reached. With a non-negative attempt limit the controller gives up once
// the limit is reached and calls the OnFail callback.
package retry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/log"
	"github.com/enigmabridge/goeb/random"
)

// Default controller settings.
const (
	DefaultStartInterval = 250 * time.Millisecond
	DefaultMaxInterval   = 60 * time.Second
	// DefaultMaxAttempts disables the attempt limit.
	DefaultMaxAttempts = -1

	maxJitter = 1000 // ms
)

// Controller schedules retries with back-off. It is safe for concurrent use; at most one timer is armed at a time.
type Controller struct {
	mu sync.Mutex

	clock  clock.Clock
	rand   random.Source
	logger log.Logger
	onFail func(*Controller)

	startInterval time.Duration
	maxInterval   time.Duration
	maxAttempts   int

	interval time.Duration
	attempts int
	timer    *clock.Timer
	// canceled is closed when the armed timer is canceled.
	canceled chan struct{}
}

// Option is the retry controller configuration option.
type Option func(*Controller) error

// OptStartInterval sets the first wait interval.
func OptStartInterval(d time.Duration) Option {
	return func(c *Controller) error {
		if d < 0 {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Negative start interval.")
		}
		c.startInterval = d
		return nil
	}
}

// OptMaxInterval sets the upper bound of the wait interval.
func OptMaxInterval(d time.Duration) Option {
	return func(c *Controller) error {
		if d < 0 {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Negative max interval.")
		}
		c.maxInterval = d
		return nil
	}
}

// OptMaxAttempts sets the number of attempts after which the controller gives up. Negative value disables the limit.
func OptMaxAttempts(n int) Option {
	return func(c *Controller) error {
		c.maxAttempts = n
		return nil
	}
}

// OptOnFail sets the callback invoked when the attempt limit has been reached.
func OptOnFail(fn func(*Controller)) Option {
	return func(c *Controller) error {
		c.onFail = fn
		return nil
	}
}

// OptLogger sets the logger of the controller events. By default the package level logger is used.
func OptLogger(l log.Logger) Option {
	return func(c *Controller) error {
		c.logger = l
		return nil
	}
}

// OptClock sets the clock the timers are armed on.
func OptClock(clk clock.Clock) Option {
	return func(c *Controller) error {
		if clk == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing clock.")
		}
		c.clock = clk
		return nil
	}
}

// OptRandom sets the jitter source.
func OptRandom(src random.Source) Option {
	return func(c *Controller) error {
		if src == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing random source.")
		}
		c.rand = src
		return nil
	}
}

// New returns a new retry controller.
func New(opts ...Option) (*Controller, error) {
	tmp := &Controller{
		clock:         clock.New(),
		rand:          random.System(),
		startInterval: DefaultStartInterval,
		maxInterval:   DefaultMaxInterval,
		maxAttempts:   DefaultMaxAttempts,
	}
	for _, setter := range opts {
		if setter == nil {
			return nil, errors.New(errors.EbInvalidArgumentError).AppendMessage("Provided option is nil.")
		}
		if err := setter(tmp); err != nil {
			return nil, errors.EbErr(err).AppendMessage("Unable to setup retry controller.")
		}
	}
	tmp.interval = tmp.startInterval
	return tmp, nil
}

// Retry arms a timer invoking fn after the current interval and advances the back-off. Returns the armed interval,
// or false in case the attempt limit has been reached, in which case the OnFail callback is invoked instead.
func (c *Controller) Retry(fn func()) (time.Duration, bool) {
	d, _, ok := c.arm(fn)
	return d, ok
}

func (c *Controller) arm(fn func()) (time.Duration, <-chan struct{}, bool) {
	if c == nil {
		return 0, nil, false
	}

	c.mu.Lock()
	if c.limitReached() {
		onFail := c.onFail
		c.mu.Unlock()

		c.warning("Retry: max number reached.")
		if onFail != nil {
			onFail(c)
		}
		return 0, nil, false
	}

	c.cancel()
	cur := c.interval
	c.canceled = make(chan struct{})
	c.timer = c.clock.AfterFunc(cur, fn)
	c.attempts++
	c.interval = c.nextInterval()
	canceled := c.canceled
	c.mu.Unlock()

	c.notice(fmt.Sprintf("Retry: next attempt in: %s.", cur))
	return cur, canceled, true
}

// Cancel stops the armed timer, if any.
func (c *Controller) Cancel() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()
}

func (c *Controller) cancel() {
	if c.timer == nil {
		return
	}
	c.timer.Stop()
	close(c.canceled)
	c.timer = nil
	c.canceled = nil
}

// Reset cancels the armed timer and restores the initial interval and attempt counter (eg. after a successful call).
func (c *Controller) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.cancel()
	c.interval = c.startInterval
	c.attempts = 0
	c.mu.Unlock()
}

// NumAttempts returns the number of attempts scheduled since the last reset.
func (c *Controller) NumAttempts() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// LimitReached reports whether the maximum number of attempts has been reached.
func (c *Controller) LimitReached() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limitReached()
}

func (c *Controller) limitReached() bool {
	return c.maxAttempts >= 0 && c.maxAttempts <= c.attempts
}

// Interval returns the interval the next Retry call will wait.
func (c *Controller) Interval() time.Duration {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

func (c *Controller) nextInterval() time.Duration {
	// A failing jitter source only removes the jitter.
	jitter, _ := random.Uint64n(c.rand, maxJitter+1)
	next := c.interval*2 + time.Duration(jitter)*time.Millisecond
	if next > c.maxInterval {
		return c.maxInterval
	}
	return next
}

// Do runs op until it succeeds, returns a non-retryable error or the attempt limit is reached. Between the attempts
// it waits for the back-off interval or ctx. After a success the controller is reset.
//
// When the limit is reached an error with code EbExhaustedRetries is returned, wrapping the last failure.
func (c *Controller) Do(ctx context.Context, op func(context.Context) error) error {
	if c == nil || op == nil {
		return errors.New(errors.EbInvalidArgumentError)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		err := op(ctx)
		if err == nil {
			c.Reset()
			return nil
		}
		if !errors.IsRetryable(err) {
			return err
		}

		fired := make(chan struct{})
		_, canceled, ok := c.arm(func() { close(fired) })
		if !ok {
			return errors.New(errors.EbExhaustedRetries).SetExtError(err).
				AppendMessage(fmt.Sprintf("Giving up after %d attempts.", c.NumAttempts()))
		}

		select {
		case <-fired:
		case <-canceled:
			return errors.New(errors.EbExhaustedRetries).SetExtError(err).AppendMessage("Retry canceled.")
		case <-ctx.Done():
			c.Cancel()
			return errors.EbErr(ctx.Err()).AppendMessage("Retry wait interrupted.")
		}
	}
}

func (c *Controller) notice(msg string) {
	if c.logger != nil {
		c.logger.Notice(msg)
		return
	}
	log.Notice(msg)
}

func (c *Controller) warning(msg string) {
	if c.logger != nil {
		c.logger.Warning(msg)
		return
	}
	log.Warning(msg)
}
