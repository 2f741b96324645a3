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

package random

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/enigmabridge/goeb/errors"
)

func TestUnitSeededStream(t *testing.T) {
	src := NewSeeded([]byte("goeb"))

	b, err := Bytes(src, 16)
	require.NoError(t, err)
	require.Equal(t, "4056c56d2bb39f02ec9a563e0d3c257c", hex.EncodeToString(b))

	b, err = Bytes(src, 8)
	require.NoError(t, err)
	require.Equal(t, "4dac746d56f9fdbf", hex.EncodeToString(b))
}

func TestUnitSeededStreamSplitReads(t *testing.T) {
	whole, err := Bytes(NewSeeded([]byte("goeb")), 24)
	require.NoError(t, err)

	src := NewSeeded([]byte("goeb"))
	var parts []byte
	for _, n := range []int{1, 7, 3, 13} {
		b, err := Bytes(src, n)
		require.NoError(t, err)
		parts = append(parts, b...)
	}
	require.Equal(t, whole, parts)
}

func TestUnitSystemSource(t *testing.T) {
	a, err := Bytes(System(), 32)
	require.NoError(t, err)
	b, err := Bytes(System(), 32)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestUnitBytesInvalidInput(t *testing.T) {
	_, err := Bytes(nil, 4)
	require.Equal(t, errors.EbInvalidArgumentError, errors.CodeOf(err))

	_, err = Bytes(System(), -1)
	require.Equal(t, errors.EbInvalidArgumentError, errors.CodeOf(err))

	_, err = Bytes(bytes.NewReader([]byte{1, 2}), 4)
	require.Equal(t, errors.EbCryptoFailure, errors.CodeOf(err))
}

func TestUnitNonZero(t *testing.T) {
	src := bytes.NewReader([]byte{0x00, 0x05, 0x00, 0x07, 0x00, 0x00, 0x09})
	buf := make([]byte, 3)

	require.NoError(t, NonZero(src, buf))
	// Zero bytes are replaced by the following stream bytes in order.
	require.Equal(t, []byte{0x07, 0x05, 0x09}, buf)

	require.Equal(t, errors.EbCryptoFailure, errors.CodeOf(NonZero(bytes.NewReader([]byte{0, 0}), make([]byte, 2))))
}

func TestUnitUint64n(t *testing.T) {
	src := NewSeeded([]byte("jitter"))
	for i := 0; i < 1000; i++ {
		v, err := Uint64n(src, 1001)
		require.NoError(t, err)
		require.Less(t, v, uint64(1001))
	}

	v, err := Uint64n(src, 0)
	require.NoError(t, err)
	require.Zero(t, v)
}
