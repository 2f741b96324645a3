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
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/enigmabridge/goeb/cbc"
	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/random"
)

var (
	testAESKey = mustHex("e134567890123456789012345678901234567890123456789012345678901234")
	testMACKey = mustHex("e224262820223456789012345678901234567890123456789012345678901234")
	testNonce  = mustHex("da3903ed1894e307")
	testData   = mustHex("6bc1bee22e409f96e93d7e117393172a")

	testUOID = uint64(0xee01)

	testPacket      = "Packet0_PLAINAES_0000a83d7c7200e54ab8c47b81931a675bcf8ebcb9c68aa7b8519e49aefd1bfb3525b55f531fe5b2d7ab30ed4fdd2c13bd52"
	testPacketPlain = "Packet0_PLAINAES_0004cafebabea83d7c7200e54ab8c47b81931a675bcf8ebcb9c68aa7b8519e49aefd1bfb35258e98afa1422bb11db3f251fa3f9fccc1"

	testRespPayload = mustHex("3ad77bb40d7a3660a89ecaf32466ef97")
	testResult      = "00008c3d57e96e40dbea7454beff65bfccc345e5600ee7875db4774a2ecbdef8c10c3efa27203c153a4a2588a83c212fed1c_a1b2"
	testResultPlain = "000201028c3d57e96e40dbea7454beff65bfccc345e5600ee7875db4774a2ecbdef8c10c455a33691e6a42ec324a518dfecc232f"
)

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func testDescriptor() *RequestDescriptor {
	return &RequestDescriptor{
		UserObjectID: testUOID,
		Nonce:        append([]byte(nil), testNonce...),
		AESKey:       testAESKey,
		MACKey:       testMACKey,
		Type:         TypePlainAES,
	}
}

func envelope(status, result string) []byte {
	return []byte(fmt.Sprintf(`{"status":%q,"statusdetail":"(OK)SW_STAT_OK","function":"ProcessData","result":%q}`, status, result))
}

func TestUnitBuildGolden(t *testing.T) {
	b, err := NewRequestBuilder()
	require.NoError(t, err)

	packet, err := b.Build(testDescriptor(), nil, testData)
	require.NoError(t, err)
	require.Equal(t, testPacket, packet)

	// Deterministic for identical input.
	again, err := b.Build(testDescriptor(), []byte{}, testData)
	require.NoError(t, err)
	require.Equal(t, packet, again)
}

func TestUnitBuildWithPlainData(t *testing.T) {
	b, err := NewRequestBuilder(BuilderOptTrace(true))
	require.NoError(t, err)

	packet, err := b.Build(testDescriptor(), mustHex("cafebabe"), testData)
	require.NoError(t, err)
	require.Equal(t, testPacketPlain, packet)
}

func TestUnitBuildGeneratesNonce(t *testing.T) {
	b, err := NewRequestBuilder(BuilderOptRandom(random.NewSeeded([]byte("goeb"))))
	require.NoError(t, err)

	desc := testDescriptor()
	desc.Nonce = nil
	desc.Type = ""
	packet, err := b.Build(desc, nil, testData)
	require.NoError(t, err)
	require.Equal(t, mustHex("4056c56d2bb39f02"), desc.Nonce)
	require.True(t, strings.HasPrefix(packet, "Packet0_PLAINAES_0000"))

	req, err := OpenRequest(testAESKey, testMACKey, packet)
	require.NoError(t, err)
	require.Equal(t, desc.Nonce, req.Nonce)
}

func TestUnitBuildValidation(t *testing.T) {
	b, err := NewRequestBuilder()
	require.NoError(t, err)

	for name, mod := range map[string]func(*RequestDescriptor){
		"uoid overflow": func(d *RequestDescriptor) { d.UserObjectID = MaxUserObjectID + 1 },
		"short aes key": func(d *RequestDescriptor) { d.AESKey = d.AESKey[:16] },
		"missing mac":   func(d *RequestDescriptor) { d.MACKey = nil },
		"nonce length":  func(d *RequestDescriptor) { d.Nonce = d.Nonce[:7] },
		"request type":  func(d *RequestDescriptor) { d.Type = "AES" },
	} {
		desc := testDescriptor()
		mod(desc)
		_, err := b.Build(desc, nil, testData)
		require.Equal(t, errors.EbConfigError, errors.CodeOf(err), name)
	}

	_, err = b.Build(testDescriptor(), make([]byte, MaxPlainDataLen+1), testData)
	require.Equal(t, errors.EbConfigError, errors.CodeOf(err))

	_, err = b.Build(nil, nil, testData)
	require.Equal(t, errors.EbInvalidArgumentError, errors.CodeOf(err))

	// The largest user object ID is still accepted.
	desc := testDescriptor()
	desc.UserObjectID = MaxUserObjectID
	_, err = b.Build(desc, nil, nil)
	require.NoError(t, err)

	_, err = NewRequestBuilder(BuilderOptRandom(nil))
	require.Equal(t, errors.EbInvalidArgumentError, errors.CodeOf(err))
}

func TestUnitRequestType(t *testing.T) {
	for _, s := range []string{"plainaes", "PLAINAESDECRYPT", "rsa1024", "RSA2048", " randomdata "} {
		rt, err := ParseRequestType(s)
		require.NoError(t, err, s)
		require.True(t, rt.Valid())
	}
	_, err := ParseRequestType("CBC")
	require.Equal(t, errors.EbConfigError, errors.CodeOf(err))
}

func TestUnitOpenRequest(t *testing.T) {
	req, err := OpenRequest(testAESKey, testMACKey, testPacketPlain)
	require.NoError(t, err)
	require.Equal(t, TypePlainAES, req.Type)
	require.Equal(t, uint32(testUOID), req.UserObjectID)
	require.Equal(t, testNonce, req.Nonce)
	require.Equal(t, mustHex("cafebabe"), req.PlainData)
	require.Equal(t, testData, req.Data)

	for _, in := range []string{"Packet1_PLAINAES_00", "Packet0_PLAINAES", "Packet0_X_zz", "Packet0_X_00"} {
		_, err = OpenRequest(testAESKey, testMACKey, in)
		require.Equal(t, errors.EbInvalidEncoding, errors.CodeOf(err), in)
	}

	_, err = OpenRequest(testAESKey, testAESKey, testPacket)
	require.Equal(t, errors.EbCorruptMac, errors.CodeOf(err))
}

func TestUnitParseGolden(t *testing.T) {
	p, err := NewResponseParser(testAESKey, testMACKey, ParserOptTrace(true))
	require.NoError(t, err)

	resp, err := p.Parse(envelope("9000", testResult))
	require.NoError(t, err)
	require.True(t, resp.Success())
	require.Equal(t, "ProcessData", resp.Function)
	require.Equal(t, "(OK)SW_STAT_OK", resp.StatusDetail)
	require.Equal(t, uint32(testUOID), resp.UserObjectID)
	require.Equal(t, testNonce, resp.Nonce)
	require.Equal(t, append(append([]byte{}, testRespPayload...), 3, 3, 3), resp.Payload)
	require.NoError(t, resp.CheckNonce(testNonce))
	payload, err := resp.Unpad()
	require.NoError(t, err)
	require.Equal(t, testRespPayload, payload)

	resp, err = p.Parse(envelope("9000", testResultPlain))
	require.NoError(t, err)
	require.Equal(t, append(mustHex("0102"), append(append([]byte{}, testRespPayload...), 3, 3, 3)...), resp.Payload)

	unpadding, err := NewResponseParser(testAESKey, testMACKey, ParserOptUnpad(true))
	require.NoError(t, err)
	resp, err = unpadding.Parse(envelope("9000", testResultPlain))
	require.NoError(t, err)
	require.Equal(t, append(mustHex("0102"), testRespPayload...), resp.Payload)
}

func TestUnitSealResultMatchesGolden(t *testing.T) {
	result, err := SealResult(testAESKey, testMACKey, uint32(testUOID), testNonce, nil, testRespPayload)
	require.NoError(t, err)
	require.Equal(t, strings.Split(testResult, "_")[0], result)

	result, err = SealResult(testAESKey, testMACKey, uint32(testUOID), testNonce, mustHex("0102"), testRespPayload)
	require.NoError(t, err)
	require.Equal(t, testResultPlain, result)
}

func TestUnitParseRoundTrip(t *testing.T) {
	src := random.NewSeeded([]byte("round trip"))
	p, err := NewResponseParser(testAESKey, testMACKey)
	require.NoError(t, err)
	unpadding, err := NewResponseParser(testAESKey, testMACKey, ParserOptUnpad(true))
	require.NoError(t, err)

	for _, sizes := range [][2]int{{0, 0}, {0, 3}, {1, 15}, {5, 16}, {40, 100}} {
		plain, err := random.Bytes(src, sizes[0])
		require.NoError(t, err)
		data, err := random.Bytes(src, sizes[1])
		require.NoError(t, err)
		nonce, err := random.Bytes(src, NonceSize)
		require.NoError(t, err)

		result, err := SealResult(testAESKey, testMACKey, 0xcafe, nonce, plain, data)
		require.NoError(t, err)
		resp, err := p.Parse(envelope("9000", result))
		require.NoError(t, err, sizes)
		require.Equal(t, uint32(0xcafe), resp.UserObjectID)
		require.NoError(t, resp.CheckNonce(nonce))

		// The raw payload keeps the framing up to the block boundary.
		want := append(append([]byte{}, plain...), data...)
		framed := headerLen + len(data)
		padLen := 16 - framed%16
		require.Len(t, resp.Payload, len(want)+padLen, sizes)
		require.Equal(t, want, resp.Payload[:len(want)])
		require.Equal(t, bytes.Repeat([]byte{byte(padLen)}, padLen), resp.Payload[len(want):])

		payload, err := resp.Unpad()
		require.NoError(t, err, sizes)
		require.Equal(t, want, payload)

		resp, err = unpadding.Parse(envelope("9000", result))
		require.NoError(t, err, sizes)
		require.Equal(t, want, resp.Payload)
	}
}

func TestUnitParseTampered(t *testing.T) {
	p, err := NewResponseParser(testAESKey, testMACKey)
	require.NoError(t, err)
	valid := strings.Split(testResult, "_")[0]

	flip := func(s string, pos int) string {
		c := byte('0')
		if s[pos] == '0' {
			c = '1'
		}
		return s[:pos] + string(c) + s[pos+1:]
	}
	for _, pos := range []int{4, 20, 40, len(valid) - 1} {
		_, err := p.Parse(envelope("9000", flip(valid, pos)))
		require.Equal(t, errors.EbCorruptMac, errors.CodeOf(err), pos)
	}

	// Wrong MAC key.
	other, err := NewResponseParser(testAESKey, testAESKey)
	require.NoError(t, err)
	_, err = other.Parse(envelope("9000", valid))
	require.Equal(t, errors.EbCorruptMac, errors.CodeOf(err))

	// Truncated ciphertext.
	_, err = p.Parse(envelope("9000", valid[:len(valid)-34]))
	require.Equal(t, errors.EbCorruptMac, errors.CodeOf(err))
}

func TestUnitParseRequestAsResponse(t *testing.T) {
	p, err := NewResponseParser(testAESKey, testMACKey)
	require.NoError(t, err)

	_, err = p.Parse(envelope("9000", strings.TrimPrefix(testPacket, "Packet0_PLAINAES_")))
	require.Equal(t, errors.EbCorruptFlag, errors.CodeOf(err))
}

func TestUnitParseCorruptBody(t *testing.T) {
	f, err := newFramer(testAESKey, testMACKey)
	require.NoError(t, err)
	p, err := NewResponseParser(testAESKey, testMACKey)
	require.NoError(t, err)

	seal := func(buf []byte) string {
		enc, err := cbc.Encrypt(f.aes, buf, cbc.ZeroIV(), nil, true)
		require.NoError(t, err)
		tag, err := f.mac.Sum(enc)
		require.NoError(t, err)
		return "0000" + hex.EncodeToString(enc) + hex.EncodeToString(tag)
	}

	unpadding, err := NewResponseParser(testAESKey, testMACKey, ParserOptUnpad(true))
	require.NoError(t, err)

	// An authentic body without PKCS#7 framing is returned as is.
	unframed := append([]byte{flagResponse, 0, 0, 0xee, 0x01}, MangleNonce(testNonce)...)
	unframed = append(unframed, 0x41, 0x42, 0x43)
	resp, err := p.Parse(envelope("9000", seal(unframed)))
	require.NoError(t, err)
	require.Equal(t, uint32(testUOID), resp.UserObjectID)
	require.NoError(t, resp.CheckNonce(testNonce))
	require.Equal(t, []byte("ABC"), resp.Payload)
	_, err = resp.Unpad()
	require.Equal(t, errors.EbCorruptPadding, errors.CodeOf(err))
	_, err = unpadding.Parse(envelope("9000", seal(unframed)))
	require.Equal(t, errors.EbCorruptPadding, errors.CodeOf(err))

	badPad := append([]byte{flagResponse, 0, 0, 0xee, 0x01}, bytes.Repeat([]byte{0x11}, 11)...)
	badPad[15] = 0
	_, err = unpadding.Parse(envelope("9000", seal(badPad)))
	require.Equal(t, errors.EbCorruptPadding, errors.CodeOf(err))

	short := append([]byte{flagResponse, 0, 0, 0xee, 0x01}, bytes.Repeat([]byte{0x04}, 11)...)
	_, err = unpadding.Parse(envelope("9000", seal(short)))
	require.Equal(t, errors.EbInvalidResponse, errors.CodeOf(err))

	var empty *Response
	_, err = empty.Unpad()
	require.Equal(t, errors.EbInvalidStateError, errors.CodeOf(err))
}

func TestUnitParseServiceError(t *testing.T) {
	p, err := NewResponseParser(testAESKey, testMACKey)
	require.NoError(t, err)

	resp, err := p.Parse([]byte(`{"status":"a001","statusdetail":"Invalid user object","function":"ProcessData"}`))
	require.Equal(t, errors.EbServiceError, errors.CodeOf(err))
	require.Equal(t, 0xa001, err.(*errors.EbError).ExtCode())
	require.NotNil(t, resp)
	require.False(t, resp.Success())
	require.Equal(t, uint16(0xa001), resp.StatusCode)
	require.Nil(t, resp.Payload)
}

func TestUnitParseInvalidEnvelope(t *testing.T) {
	p, err := NewResponseParser(testAESKey, testMACKey)
	require.NoError(t, err)

	for name, tc := range map[string]struct {
		raw  string
		code errors.ErrorCode
	}{
		"not json":       {`<html>`, errors.EbInvalidResponse},
		"no status":      {`{"function":"ProcessData","result":"00"}`, errors.EbInvalidResponse},
		"no function":    {`{"status":"9000","result":"00"}`, errors.EbInvalidResponse},
		"bad status":     {`{"status":"ok","function":"ProcessData"}`, errors.EbInvalidResponse},
		"short result":   {`{"status":"9000","function":"ProcessData","result":"00"}`, errors.EbInvalidResponse},
		"hex":            {`{"status":"9000","function":"ProcessData","result":"zz_00"}`, errors.EbInvalidEncoding},
		"missing cipher": {`{"status":"9000","function":"ProcessData","result":"0002aabb"}`, errors.EbInvalidResponse},
	} {
		_, err := p.Parse([]byte(tc.raw))
		require.Equal(t, tc.code, errors.CodeOf(err), name)
	}

	_, err = NewResponseParser(testAESKey[:31], testMACKey)
	require.Equal(t, errors.EbConfigError, errors.CodeOf(err))
}

func TestUnitCheckNonce(t *testing.T) {
	resp := &Response{Nonce: testNonce}
	require.NoError(t, resp.CheckNonce(testNonce))
	require.Equal(t, errors.EbNonceMismatch, errors.CodeOf(resp.CheckNonce(mustHex("da3903ed1894e306"))))
	require.Equal(t, errors.EbNonceMismatch, errors.CodeOf((&Response{}).CheckNonce(nil)))
}

func TestUnitNonceMangling(t *testing.T) {
	require.Equal(t, mustHex("db3a04ee1995e408"), MangleNonce(testNonce))
	require.Equal(t, testNonce, DemangleNonce(mustHex("db3a04ee1995e408")))

	// Borrows propagate inside a 32-bit word.
	require.Equal(t, mustHex("ffffffff"), DemangleNonce(mustHex("01010100")))
	require.Equal(t, mustHex("00ffffff"), DemangleNonce(mustHex("02010100")))

	// Trailing partial words use a mask of their own length.
	require.Equal(t, mustHex("ffffffffff"), DemangleNonce(mustHex("0101010000")))
	require.Equal(t, mustHex("fefeff"), DemangleNonce(mustHex("000000")))
	require.Equal(t, mustHex("000000"), MangleNonce(mustHex("fefeff")))

	src := random.NewSeeded([]byte("nonce"))
	for n := 0; n < 12; n++ {
		in, err := random.Bytes(src, n)
		require.NoError(t, err)
		require.Equal(t, in, DemangleNonce(MangleNonce(in)), n)
	}
}
