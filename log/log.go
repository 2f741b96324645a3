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

// Package log implements a logger interface that is used for logging the EB client internals.
//
// In order to enable logging a logger must be registered fist by invoking SetLogger() with an Interface implementation.
// Logging can be disabled by calling SetLogger(nil).
//
// Package provides also a basic logging implementation WriterLogger, that generates lines of formatted output to an
// io.Writer.
//
// Note that secret key material must never be passed to the logger.
package log

import (
	"fmt"
	"sync"
)

var (
	mu     sync.RWMutex
	logger Logger
)

// SetLogger initialize a global logger.
// In order to disable logging set the parameter l to nil.
func SetLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Current returns the registered logger, nil if logging is disabled.
func Current() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug for debug level logging. Events generated to aid in debugging,
// application flow and detailed service troubleshooting.
func Debug(v ...interface{}) {
	if l := Current(); l != nil {
		l.Debug(v...)
	}
}

// Debugf is the formatted variant of Debug. The arguments are not evaluated when logging is disabled.
func Debugf(format string, v ...interface{}) {
	if l := Current(); l != nil {
		l.Debug(fmt.Sprintf(format, v...))
	}
}

// Info for info level logging. Events that have no effect on service,
// but can aid in performance, status and statistics monitoring.
func Info(v ...interface{}) {
	if l := Current(); l != nil {
		l.Info(v...)
	}
}

// Notice for info level logging. Changes in state that do not necessarily
// cause service degradation.
func Notice(v ...interface{}) {
	if l := Current(); l != nil {
		l.Notice(v...)
	}
}

// Warning for warning level logging. Changes in state that affects the
// service degradation.
func Warning(v ...interface{}) {
	if l := Current(); l != nil {
		l.Warning(v...)
	}
}

// Error for error level logging. Unrecoverable fatal errors only - gasp of
// death - code cannot continue and will terminate.
func Error(v ...interface{}) {
	if l := Current(); l != nil {
		l.Error(v...)
	}
}
