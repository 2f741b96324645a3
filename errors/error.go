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

// Package errors implements functions to manipulate EB errors.
//
// Every error returned by the module is of type *EbError. Besides the category code it carries a stack of human
// readable messages, an optional low-level error (eg. from the std library) and the stack trace of the place where
// the error was registered.
package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// EbError is the error type used throughout the module.
type EbError struct {
	errorCode    ErrorCode
	message      []string
	extError     error
	extErrorCode int
	errorStack   string
}

// New construct a new EbError.
func New(code ErrorCode) *EbError {
	return &EbError{
		errorCode:  code,
		errorStack: stack(),
	}
}

// EbErr wraps the provided error into EbError, if the input is not EbError. By default the error code is set to
// EbExternalError. In case the 'err' parameter is of type EbError, the original error is returned without any
// modification.
//
// Optionally an error code can be provided, which will be applied in case of external error. Note, despite the fact
// that 'code' parameter is a variadic value, only one error code should be provided.
func EbErr(err error, code ...ErrorCode) *EbError {
	if err == nil {
		return nil
	}

	errCode := EbExternalError
	if len(code) != 0 {
		errCode = code[0]
	}

	ebErr, ok := err.(*EbError)
	if !ok {
		ebErr = New(errCode).SetExtError(err)
	}
	return ebErr
}

// IsRetryable reports whether err is an EbError of a retryable category (see ErrorCode.Retryable()).
func IsRetryable(err error) bool {
	ebErr, ok := err.(*EbError)
	if !ok || ebErr == nil {
		return false
	}
	return ebErr.errorCode.Retryable()
}

// CodeOf returns the error code of err, or EbExternalError for foreign errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return EbNoError
	}
	if ebErr, ok := err.(*EbError); ok {
		return ebErr.Code()
	}
	return EbExternalError
}

func stack() string {
	buf := make([]byte, 1024)
	n := 0
	for {
		n = runtime.Stack(buf, false)
		if n < len(buf) {
			break
		}
		buf = make([]byte, 2*len(buf))
	}

	return string(buf[:n])
}

// Error implements error interface.
func (e *EbError) Error() string {
	if e == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%04x/%d] %s.\n", uint16(e.errorCode), e.extErrorCode, e.errorCode.String()))

	if len(e.message) > 0 {
		b.WriteString("Error message:")
		for i := len(e.message); i > 0; i-- {
			b.WriteString(fmt.Sprintf("\n  %d: %s", i, e.message[i-1]))
		}
		b.WriteString("\n")
	}

	if e.extError != nil {
		b.WriteString(fmt.Sprintf("Extended error: %s\n", e.extError))
	}

	if len(e.errorStack) != 0 {
		b.WriteString(e.errorStack)
	}

	b.WriteString("\n")
	return b.String()
}

// Unwrap returns the extended error, so that the std library errors.Is() and errors.As() can look through EbError.
func (e *EbError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.extError
}

// AppendMessage allows to add an additional descriptive message to the error.
// Returns an updated reference of the receiver EbError.
func (e *EbError) AppendMessage(msg string) *EbError {
	if e == nil {
		return nil
	}
	e.message = append(e.message, msg)
	return e
}

// SetExtError allows to set an additional low-level error.
// Returns an updated reference of the receiver EbError.
func (e *EbError) SetExtError(err error) *EbError {
	if e == nil {
		return nil
	}
	e.extError = err
	return e
}

// SetExtErrorCode allows to set an additional low-level error code.
// Returns an updated reference of the receiver EbError.
func (e *EbError) SetExtErrorCode(c int) *EbError {
	if e == nil {
		return nil
	}
	e.extErrorCode = c
	return e
}

// Code returns the error code.
func (e *EbError) Code() ErrorCode {
	if e == nil {
		return EbNoError
	}
	return e.errorCode
}

// Stack returns the stack trace where the error occurred.
func (e *EbError) Stack() string {
	if e == nil {
		return ""
	}
	return e.errorStack
}

// ExtCode returns extended error code.
func (e *EbError) ExtCode() int {
	if e == nil {
		return 0
	}
	return e.extErrorCode
}

// ExtError returns extended error.
func (e *EbError) ExtError() error {
	if e == nil {
		return nil
	}
	return e.extError
}

// Message returns additional appended messages.
func (e *EbError) Message() []string {
	if e == nil {
		return nil
	}
	return e.message
}
