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

package asn1

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	stdasn1 "encoding/asn1"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/enigmabridge/goeb/codec"
	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/log"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestUnitParseSequence(t *testing.T) {
	n, err := Parse(mustHex(t, "30060201050201ff"))
	require.NoError(t, err)

	require.True(t, n.Is(ClassUniversal, TagSequence))
	require.True(t, n.Constructed)
	require.Equal(t, 8, n.ByteLength)
	require.Len(t, n.Children, 2)
	require.Equal(t, 3, n.Children[0].ByteLength)

	v, err := n.Children[0].Int()
	require.NoError(t, err)
	require.Equal(t, int64(5), v.Int64())
	v, err = n.Children[1].Int()
	require.NoError(t, err)
	require.Equal(t, int64(-1), v.Int64())
}

func TestUnitParseTrailingData(t *testing.T) {
	n, err := Parse(mustHex(t, "020101deadbeef"))
	require.NoError(t, err)
	require.Equal(t, 3, n.ByteLength)
}

func TestUnitParseHighTagNumber(t *testing.T) {
	n, err := Parse(mustHex(t, "1f810001aa"))
	require.NoError(t, err)
	require.Equal(t, ClassUniversal, n.Class)
	require.Equal(t, uint64(128), n.Tag)
	require.Equal(t, "aa", n.Contents.Hex())
	require.Equal(t, 5, n.ByteLength)

	n, err = Parse(mustHex(t, "7f1f00"))
	require.NoError(t, err)
	require.Equal(t, ClassApplication, n.Class)
	require.True(t, n.Constructed)
	require.Equal(t, uint64(31), n.Tag)
	require.Equal(t, 3, n.ByteLength)
	require.Empty(t, n.Children)

	_, err = Parse(mustHex(t, "1f8181818181818181818100"))
	require.Equal(t, errors.EbInvalidEncoding, errors.CodeOf(err))
}

func TestUnitParseLongLength(t *testing.T) {
	der := append(mustHex(t, "048180"), bytes.Repeat([]byte{0x42}, 128)...)
	n, err := Parse(der)
	require.NoError(t, err)
	require.Equal(t, 131, n.ByteLength)
	require.Equal(t, 128, n.Contents.ByteLen())

	der = append(mustHex(t, "04820100"), bytes.Repeat([]byte{0x42}, 256)...)
	n, err = Parse(der)
	require.NoError(t, err)
	require.Equal(t, 260, n.ByteLength)
}

func TestUnitParseIndefiniteLength(t *testing.T) {
	n, err := Parse(mustHex(t, "3080020101000002"))
	require.NoError(t, err)
	require.Equal(t, 7, n.ByteLength)
	require.Equal(t, "020101", n.Contents.Hex())
	require.Len(t, n.Children, 1)
	require.True(t, n.Children[0].Is(ClassUniversal, TagInteger))

	_, err = Parse(mustHex(t, "3080020101"))
	require.Equal(t, errors.EbInvalidEncoding, errors.CodeOf(err))
}

func TestUnitParseBitString(t *testing.T) {
	// Encapsulated INTEGER.
	n, err := Parse(mustHex(t, "030400020107"))
	require.NoError(t, err)
	require.Equal(t, 24, n.Contents.BitLen())
	require.Len(t, n.Children, 1)
	v, err := n.Children[0].Int()
	require.NoError(t, err)
	require.Equal(t, int64(7), v.Int64())

	// Unused bits are cut off, such a value is never expanded.
	n, err = Parse(mustHex(t, "030204f0"))
	require.NoError(t, err)
	require.Equal(t, 4, n.Contents.BitLen())
	require.Equal(t, []byte{0xf0}, n.Contents.Bytes())
	require.Empty(t, n.Children)

	// Content that is not a complete encoding stays a leaf.
	n, err = Parse(mustHex(t, "030300ffff"))
	require.NoError(t, err)
	require.Equal(t, "ffff", n.Contents.Hex())
	require.Empty(t, n.Children)

	n, err = Parse(mustHex(t, "03050002010700"))
	require.NoError(t, err)
	require.Empty(t, n.Children)

	for _, in := range []string{"0300", "030108", "03020800", "030104"} {
		_, err = Parse(mustHex(t, in))
		require.Equal(t, errors.EbInvalidEncoding, errors.CodeOf(err), in)
	}
}

func TestUnitParseInvalid(t *testing.T) {
	for _, in := range []string{
		"",
		"30",
		"3005020101",
		"3003020501",
		"0489010000000000000000",
		"0484ffffffff00",
		"04820100",
	} {
		_, err := Parse(mustHex(t, in))
		require.Equal(t, errors.EbInvalidEncoding, errors.CodeOf(err), in)
	}
}

func TestUnitParseUnaligned(t *testing.T) {
	b, err := codec.NewBitsLen([]byte{0x05, 0x00}, 12)
	require.NoError(t, err)
	_, err = NewDecoder().Parse(b)
	require.Equal(t, errors.EbInvalidEncoding, errors.CodeOf(err))
}

func TestUnitMaxDepth(t *testing.T) {
	der := mustHex(t, "300430023000")

	_, err := NewDecoder(DecoderOptMaxDepth(2)).Parse(codec.NewBits(der))
	require.NoError(t, err)

	_, err = NewDecoder(DecoderOptMaxDepth(1)).Parse(codec.NewBits(der))
	require.Equal(t, errors.EbInvalidEncoding, errors.CodeOf(err))
}

func TestUnitDecoderTrace(t *testing.T) {
	var lines []string
	log.SetLogger(log.Func(func(v ...interface{}) {
		lines = append(lines, fmt.Sprint(v...))
	}))
	defer log.SetLogger(nil)

	_, err := NewDecoder(DecoderOptTrace(true)).Parse(codec.NewBits(mustHex(t, "3003020101")))
	require.NoError(t, err)
	trace := strings.Join(lines, "\n")
	require.Contains(t, trace, "[D] |Parsing: 3003020101")
	require.Contains(t, trace, "|--Parsing: 020101")
	require.Contains(t, trace, "Bytes left: 0")

	lines = nil
	_, err = Parse(mustHex(t, "3003020101"))
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestUnitWalkAndFind(t *testing.T) {
	n, err := Parse(mustHex(t, "300c3004020101050003040002010a"))
	require.NoError(t, err)

	var visited []string
	n.Walk(func(node *Node, depth int) bool {
		visited = append(visited, fmt.Sprintf("%d:%d", depth, node.Tag))
		return true
	})
	require.Equal(t, []string{"0:16", "1:16", "2:2", "2:5", "1:3", "2:2"}, visited)

	i := n.Find(ClassUniversal, TagInteger)
	require.NotNil(t, i)
	require.Equal(t, "01", i.Contents.Hex())
	require.NotNil(t, n.Find(ClassUniversal, TagNull))
	require.Nil(t, n.Find(ClassContextSpecific, 0))

	visited = nil
	n.Walk(func(node *Node, depth int) bool {
		visited = append(visited, fmt.Sprintf("%d:%d", depth, node.Tag))
		return depth == 0
	})
	require.Equal(t, []string{"0:16", "1:16", "1:3"}, visited)
}

func TestUnitInt(t *testing.T) {
	for in, exp := range map[string]int64{
		"020100":   0,
		"02020080": 128,
		"020180":   -128,
		"0202ff7f": -129,
	} {
		n, err := Parse(mustHex(t, in))
		require.NoError(t, err)
		v, err := n.Int()
		require.NoError(t, err)
		require.Equal(t, exp, v.Int64(), in)
	}

	n, err := Parse(mustHex(t, "0400"))
	require.NoError(t, err)
	_, err = n.Int()
	require.Equal(t, errors.EbInvalidArgumentError, errors.CodeOf(err))

	n, err = Parse(mustHex(t, "0200"))
	require.NoError(t, err)
	_, err = n.Int()
	require.Equal(t, errors.EbInvalidEncoding, errors.CodeOf(err))
}

func TestUnitMarshalRoundTrip(t *testing.T) {
	type inner struct {
		A int
		B []byte
		C stdasn1.BitString
	}
	type outer struct {
		I inner
		S string `asn1:"utf8"`
		T int `asn1:"tag:200,explicit"`
		O stdasn1.ObjectIdentifier
	}
	std, err := stdasn1.Marshal(outer{
		I: inner{A: -300, B: bytes.Repeat([]byte{7}, 200), C: stdasn1.BitString{Bytes: []byte{0xa0}, BitLength: 3}},
		S: "goeb",
		T: 1,
		O: stdasn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1},
	})
	require.NoError(t, err)

	for _, der := range [][]byte{
		std,
		mustHex(t, "30060201050201ff"),
		mustHex(t, "1f810001aa"),
		mustHex(t, "030400020107"),
		mustHex(t, "030204f0"),
	} {
		n, err := Parse(der)
		require.NoError(t, err)
		out, err := Marshal(n)
		require.NoError(t, err)
		require.Equal(t, der, out)
	}

	// Indefinite length input is re-encoded in the definite form.
	n, err := Parse(mustHex(t, "3080020101000002"))
	require.NoError(t, err)
	out, err := Marshal(n)
	require.NoError(t, err)
	require.Equal(t, mustHex(t, "3003020101"), out)
}

func TestUnitMarshalBuild(t *testing.T) {
	out, err := Marshal(&Node{
		Class:       ClassContextSpecific,
		Constructed: true,
		Tag:         1,
		Children: []*Node{
			{Tag: TagInteger, Contents: codec.NewBits([]byte{0x01})},
			{Tag: TagNull},
		},
	})
	require.NoError(t, err)
	require.Equal(t, mustHex(t, "a1050201010500"), out)

	_, err = Marshal(nil)
	require.Equal(t, errors.EbInvalidArgumentError, errors.CodeOf(err))
	_, err = Marshal(&Node{Class: 4})
	require.Equal(t, errors.EbInvalidArgumentError, errors.CodeOf(err))
}

func TestUnitParseRSAPublicKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	spki, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	for _, der := range [][]byte{x509.MarshalPKCS1PublicKey(&key.PublicKey), spki} {
		pub, err := ParseRSAPublicKey(der)
		require.NoError(t, err)
		require.Equal(t, 0, pub.N.Cmp(key.N))
		require.Equal(t, key.E, pub.E)
	}
}

func TestUnitParseRSAPublicKeyInvalid(t *testing.T) {
	ecOID, err := stdasn1.Marshal(struct {
		Algo struct{ OID stdasn1.ObjectIdentifier }
		Key  stdasn1.BitString
	}{
		Algo: struct{ OID stdasn1.ObjectIdentifier }{stdasn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}},
		Key:  stdasn1.BitString{Bytes: mustHex(t, "3006020105020103"), BitLength: 64},
	})
	require.NoError(t, err)

	negative, err := stdasn1.Marshal(struct{ N, E *big.Int }{big.NewInt(-5), big.NewInt(3)})
	require.NoError(t, err)

	for _, der := range [][]byte{
		ecOID,
		negative,
		mustHex(t, "3003020105"),
		mustHex(t, "3006040105020103"),
		mustHex(t, "300a"),
	} {
		_, err := ParseRSAPublicKey(der)
		require.Error(t, err)
		require.Contains(t, []errors.ErrorCode{errors.EbInvalidEncoding, errors.EbInvalidArgumentError}, errors.CodeOf(err))
	}
}
