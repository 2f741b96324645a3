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

package errors

// ErrorCode represent the error code value.
type ErrorCode uint16

const (
	// EbNoError represent a successful result.
	EbNoError = ErrorCode(0)

	/*
		Syntax and configuration errors
	*/

	// EbInvalidArgumentError is in case of invalid function input argument (eg. nil pointer).
	EbInvalidArgumentError = ErrorCode(0x100)
	// EbConfigError is set in case of a malformed descriptor or template, wrong key length or an unsupported
	// block size.
	EbConfigError = ErrorCode(0x101)
	// EbInvalidModeError is set in case a cipher mode is asked to do something it can not (eg. authenticate
	// associated data in CBC mode).
	EbInvalidModeError = ErrorCode(0x102)
	// EbBufferOverflow is set in case of buffer or value overflow.
	EbBufferOverflow = ErrorCode(0x104)
	// EbInvalidStateError is set in case the objects used are in an invalid state (eg. missing mandatory member value).
	EbInvalidStateError = ErrorCode(0x10a)

	/*
		Integrity errors. All of them fail closed.
	*/

	// EbCorruptPadding is set in case padding validation failed.
	EbCorruptPadding = ErrorCode(0x200)
	// EbCorruptMac is set in case the message authentication tag does not match.
	EbCorruptMac = ErrorCode(0x201)
	// EbCorruptFlag is set in case the decrypted response does not carry the response flag.
	EbCorruptFlag = ErrorCode(0x202)
	// EbInvalidEncoding is set in case a binary structure (eg. ASN.1 DER) can not be decoded.
	EbInvalidEncoding = ErrorCode(0x203)
	// EbTemplateMismatch is set in case key material does not fit the template slot.
	EbTemplateMismatch = ErrorCode(0x204)
	// EbInvalidResponse is set in case the response envelope is malformed.
	EbInvalidResponse = ErrorCode(0x205)
	// EbNonceMismatch is set in case the response nonce does not match the request nonce.
	EbNonceMismatch = ErrorCode(0x206)
	// EbCryptoFailure is set in case cryptographic operation could not be performed. Likely causes are unsupported
	// cryptographic algorithms, invalid keys and lack of resources.
	EbCryptoFailure = ErrorCode(0x20d)

	/*
		Transport errors
	*/

	// EbTransportError is set in case a network error occurred.
	EbTransportError = ErrorCode(0x300)
	// EbHttpError is set in case an HTTP error has been received.
	EbHttpError = ErrorCode(0x301)
	// EbExhaustedRetries is set in case the retry controller gave up.
	EbExhaustedRetries = ErrorCode(0x302)
	// EbExternalError is set in case external error from 3rd party API (eg std library) is returned and wrapped
	// automatically inside EbError.
	EbExternalError = ErrorCode(0x314)

	/*
		Service errors
	*/

	// EbServiceError is set in case the service responded with a status other than 0x9000. The service status is
	// available via (EbError).ExtCode().
	EbServiceError = ErrorCode(0x400)

	// EbNotImplemented indicates an invalid API state.
	EbNotImplemented = ErrorCode(0xffff)
)

var errStrings = map[ErrorCode]string{
	EbNoError: "No Error",

	EbInvalidArgumentError: "Invalid Argument",
	EbConfigError:          "Configuration error",
	EbInvalidModeError:     "Invalid cipher mode usage",
	EbBufferOverflow:       "Buffer overflow",
	EbInvalidStateError:    "Invalid State",

	EbCorruptPadding:   "Corrupt padding",
	EbCorruptMac:       "Message authentication failed",
	EbCorruptFlag:      "Unexpected message flag",
	EbInvalidEncoding:  "Invalid encoding",
	EbTemplateMismatch: "Key material does not match the template",
	EbInvalidResponse:  "Invalid response",
	EbNonceMismatch:    "Nonce mismatch",
	EbCryptoFailure:    "Cryptographic failure",

	EbTransportError:   "Transport error",
	EbHttpError:        "HTTP error",
	EbExhaustedRetries: "Retry attempts exhausted",
	EbExternalError:    "Common external error from 3rd party API",

	EbServiceError: "Service returned an error status",

	EbNotImplemented: "Not Implemented",
}

func (c ErrorCode) String() string {
	return errStrings[c]
}

// Retryable reports whether a failure with the receiver code may succeed if the same call is repeated. Only
// transport failures qualify, retrying a failed integrity check with identical input can not change its validity.
func (c ErrorCode) Retryable() bool {
	switch c {
	case EbTransportError, EbHttpError:
		return true
	}
	return false
}
