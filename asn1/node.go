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
	"crypto/rsa"
	"math/big"

	"golang.org/x/crypto/cryptobyte"

	"github.com/enigmabridge/goeb/errors"
)

// OID 1.2.840.113549.1.1.1 (rsaEncryption) in DER form.
var oidRSAEncryption = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x01}

// Walk visits the node and its descendants in depth first pre-order. Returning false from fn skips the children of
// the visited node.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if n == nil || fn == nil {
		return
	}
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Find returns the first node (in Walk order) with the given class and tag number, or nil.
func (n *Node) Find(c Class, tag uint64) *Node {
	var found *Node
	n.Walk(func(node *Node, _ int) bool {
		if found != nil {
			return false
		}
		if node.Is(c, tag) {
			found = node
			return false
		}
		return true
	})
	return found
}

// Int returns the value of an INTEGER node.
func (n *Node) Int() (*big.Int, error) {
	if !n.Is(ClassUniversal, TagInteger) || n.Constructed {
		return nil, errors.New(errors.EbInvalidArgumentError).AppendMessage("Node is not an INTEGER.")
	}
	b := n.Contents.Bytes()
	if len(b) == 0 {
		return nil, errors.New(errors.EbInvalidEncoding).AppendMessage("Empty INTEGER.")
	}

	v := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		// Two's complement negative value.
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return v, nil
}

// Marshal returns the DER encoding (definite lengths only) of the node. Children, when present, take precedence
// over Contents for constructed nodes and BIT STRINGs.
func Marshal(n *Node) ([]byte, error) {
	if n == nil {
		return nil, errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing node.")
	}
	if n.Class > ClassPrivate {
		return nil, errors.New(errors.EbInvalidArgumentError).AppendMessage("Invalid tag class.")
	}

	var content []byte
	switch {
	case len(n.Children) != 0 && (n.Constructed || n.isBitString()):
		var buf bytes.Buffer
		if n.isBitString() {
			buf.WriteByte(0)
		}
		for _, c := range n.Children {
			tmp, err := Marshal(c)
			if err != nil {
				return nil, err
			}
			buf.Write(tmp)
		}
		content = buf.Bytes()
	case n.isBitString():
		unused := (8 - n.Contents.BitLen()%8) % 8
		content = append([]byte{byte(unused)}, n.Contents.Bytes()...)
	default:
		if !n.Contents.IsByteAligned() {
			return nil, errors.New(errors.EbInvalidArgumentError).AppendMessage("Contents are not byte aligned.")
		}
		content = n.Contents.Bytes()
	}

	b := cryptobyte.NewBuilder(nil)
	id := byte(n.Class) << 6
	if n.Constructed {
		id |= 0x20
	}
	if n.Tag < 0x1f {
		b.AddUint8(id | byte(n.Tag))
	} else {
		b.AddUint8(id | 0x1f)
		b.AddBytes(base128(n.Tag))
	}
	addLength(b, len(content))
	b.AddBytes(content)
	return b.Bytes()
}

func base128(v uint64) []byte {
	out := []byte{byte(v & 0x7f)}
	for v >>= 7; v > 0; v >>= 7 {
		out = append([]byte{byte(v&0x7f) | 0x80}, out...)
	}
	return out
}

func addLength(b *cryptobyte.Builder, l int) {
	if l < 0x80 {
		b.AddUint8(byte(l))
		return
	}
	var lb []byte
	for v := l; v > 0; v >>= 8 {
		lb = append([]byte{byte(v)}, lb...)
	}
	b.AddUint8(0x80 | byte(len(lb)))
	b.AddBytes(lb)
}

// ParseRSAPublicKey decodes a PKCS#1 RSAPublicKey or an X.509 SubjectPublicKeyInfo holding an RSA key.
func ParseRSAPublicKey(der []byte) (*rsa.PublicKey, error) {
	root, err := Parse(der)
	if err != nil {
		return nil, err
	}
	if !root.Is(ClassUniversal, TagSequence) || len(root.Children) != 2 {
		return nil, errInvalidKey()
	}

	keySeq := root
	if root.Children[0].Is(ClassUniversal, TagSequence) {
		// SubjectPublicKeyInfo: AlgorithmIdentifier followed by the key in a BIT STRING.
		oid := root.Children[0].Find(ClassUniversal, TagOID)
		if oid == nil || !bytes.Equal(oid.Contents.Bytes(), oidRSAEncryption) {
			return nil, errors.New(errors.EbInvalidEncoding).AppendMessage("Not an RSA public key.")
		}
		bits := root.Children[1]
		if !bits.isBitString() || len(bits.Children) != 1 {
			return nil, errInvalidKey()
		}
		keySeq = bits.Children[0]
		if !keySeq.Is(ClassUniversal, TagSequence) || len(keySeq.Children) != 2 {
			return nil, errInvalidKey()
		}
	}

	modulus, err := keySeq.Children[0].Int()
	if err != nil {
		return nil, err
	}
	exponent, err := keySeq.Children[1].Int()
	if err != nil {
		return nil, err
	}
	if modulus.Sign() <= 0 || exponent.Sign() <= 0 || !exponent.IsInt64() || exponent.Int64() > 1<<31-1 {
		return nil, errInvalidKey()
	}
	return &rsa.PublicKey{N: modulus, E: int(exponent.Int64())}, nil
}

func errInvalidKey() error {
	return errors.New(errors.EbInvalidEncoding).AppendMessage("Invalid RSA public key structure.")
}
