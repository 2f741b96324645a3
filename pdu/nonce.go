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

package pdu

import (
	"encoding/binary"
)

// The service increments every byte of the echoed nonce. The arithmetic is done on big-endian 32-bit words (with
// carries between the bytes of a word), a trailing partial word of k bytes uses the k byte mask.
const nonceMangleMask = 0x01010101

// DemangleNonce recovers the request nonce from the nonce echoed in a response.
func DemangleNonce(mangled []byte) []byte {
	return mangleNonce(mangled, false)
}

// MangleNonce is the inverse of DemangleNonce, ie. the transformation done by the service.
func MangleNonce(nonce []byte) []byte {
	return mangleNonce(nonce, true)
}

func mangleNonce(in []byte, add bool) []byte {
	out := make([]byte, len(in))
	i := 0
	for ; i+4 <= len(in); i += 4 {
		w := binary.BigEndian.Uint32(in[i:])
		if add {
			w += nonceMangleMask
		} else {
			w -= nonceMangleMask
		}
		binary.BigEndian.PutUint32(out[i:], w)
	}

	k := len(in) - i
	if k == 0 {
		return out
	}
	var w, mask uint32
	for j := 0; j < k; j++ {
		w = w<<8 | uint32(in[i+j])
		mask = mask<<8 | 0x01
	}
	if add {
		w += mask
	} else {
		w -= mask
	}
	for j := k - 1; j >= 0; j-- {
		out[i+j] = byte(w)
		w >>= 8
	}
	return out
}
