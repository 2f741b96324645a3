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

// Package random provides the randomness capability injected into the request builder, the template filler and
// the retry controller.
//
// Production code uses System(), tests and golden vectors use NewSeeded() which yields a reproducible stream.
package random

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"sync"

	"golang.org/x/crypto/chacha20"

	"github.com/enigmabridge/goeb/errors"
)

// Source is the source of random bytes.
type Source = io.Reader

// System returns the operating system CSPRNG.
func System() Source {
	return rand.Reader
}

type seeded struct {
	mu     sync.Mutex
	stream *chacha20.Cipher
}

// NewSeeded returns a deterministic Source. The stream is the ChaCha20 key stream under the key SHA-256(seed) with
// an all-zero nonce. It must never be used for production key material.
func NewSeeded(seed []byte) Source {
	key := sha256.Sum256(seed)
	// Key and nonce lengths are fixed, the constructor can not fail.
	stream, err := chacha20.NewUnauthenticatedCipher(key[:], make([]byte, chacha20.NonceSize))
	if err != nil {
		panic(err)
	}
	return &seeded{stream: stream}
}

func (s *seeded) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range p {
		p[i] = 0
	}
	s.stream.XORKeyStream(p, p)
	return len(p), nil
}

// Bytes reads n random bytes from src.
func Bytes(src Source, n int) ([]byte, error) {
	if src == nil {
		return nil, errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing random source.")
	}
	if n < 0 {
		return nil, errors.New(errors.EbInvalidArgumentError).AppendMessage("Negative length.")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(src, buf); err != nil {
		return nil, errors.New(errors.EbCryptoFailure).SetExtError(err).AppendMessage("Failed to read random bytes.")
	}
	return buf, nil
}

// NonZero fills buf with random bytes none of which is zero.
func NonZero(src Source, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	tmp, err := Bytes(src, len(buf))
	if err != nil {
		return err
	}
	one := make([]byte, 1)
	for i := range buf {
		for tmp[i] == 0 {
			if _, err := io.ReadFull(src, one); err != nil {
				return errors.New(errors.EbCryptoFailure).SetExtError(err).AppendMessage("Failed to read random bytes.")
			}
			tmp[i] = one[0]
		}
		buf[i] = tmp[i]
	}
	return nil
}

// Uint64n returns a uniform value in [0, n). Zero is returned for n == 0.
func Uint64n(src Source, n uint64) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	// Rejection sampling over the largest multiple of n.
	limit := ^uint64(0) - (^uint64(0) % n)
	for {
		b, err := Bytes(src, 8)
		if err != nil {
			return 0, err
		}
		v := binary.BigEndian.Uint64(b)
		if v < limit {
			return v % n, nil
		}
	}
}
