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

package log

// Logger is the logger interface.
type Logger interface {
	// Debug for debug priority logging. Request/response building steps, decoder traces.
	Debug(v ...interface{})
	// Info for info priority logging. Calls placed towards the service and their outcome.
	Info(v ...interface{})
	// Notice for notice priority logging. Changes in state that do not necessarily
	// cause service degradation (eg. a retry being scheduled).
	Notice(v ...interface{})
	// Warning for warning priority logging. Changes in state that affects the service
	// degradation (eg. retry limit reached).
	Warning(v ...interface{})
	// Error for error priority logging. Failures the caller can not recover from.
	Error(v ...interface{})
}

// Func adapts a plain line logging function (eg. testing.T.Log) to the Logger interface. Every priority is forwarded.
type Func func(v ...interface{})

// Debug implements Logger interface.
func (f Func) Debug(v ...interface{}) { f.call("[D]", v...) }

// Info implements Logger interface.
func (f Func) Info(v ...interface{}) { f.call("[I]", v...) }

// Notice implements Logger interface.
func (f Func) Notice(v ...interface{}) { f.call("[N]", v...) }

// Warning implements Logger interface.
func (f Func) Warning(v ...interface{}) { f.call("[W]", v...) }

// Error implements Logger interface.
func (f Func) Error(v ...interface{}) { f.call("[E]", v...) }

func (f Func) call(marker string, v ...interface{}) {
	if f == nil {
		return
	}
	f(append([]interface{}{marker + " "}, v...)...)
}
