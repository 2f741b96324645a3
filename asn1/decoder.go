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

// Package asn1 implements a recursive descent decoder of ASN.1 DER (and the indefinite length BER form) structures.
//
// The decoder produces a generic tree of Node values. Unlike encoding/asn1 it does not need a Go type describing the
// structure, which makes it suitable for inspecting key metadata of unknown shape. BIT STRING values that contain
// a complete DER encoding (eg. the public key of a SubjectPublicKeyInfo) are expanded into child nodes.
package asn1

import (
	"fmt"
	"strings"

	"github.com/enigmabridge/goeb/codec"
	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/log"
)

// Class is the ASN.1 tag class.
type Class uint8

// Tag classes.
const (
	ClassUniversal Class = iota
	ClassApplication
	ClassContextSpecific
	ClassPrivate
)

// Universal tag numbers used by this package.
const (
	TagInteger     = 0x02
	TagBitString   = 0x03
	TagOctetString = 0x04
	TagNull        = 0x05
	TagOID         = 0x06
	TagSequence    = 0x10
	TagSet         = 0x11
)

const (
	defaultMaxDepth = 64
	// Maximal number of long form length bytes.
	maxLengthBytes = 8
	// Maximal number of base-128 tag number bytes that fit into uint64.
	maxTagBytes = 9
)

// Node is a decoded ASN.1 element.
type Node struct {
	Class       Class
	Constructed bool
	Tag         uint64
	// Contents holds the content octets. For BIT STRING the leading unused-bits octet is removed and the trailing
	// unused bits are cut off.
	Contents codec.Bits
	Children []*Node
	// ByteLength is the number of bytes consumed by the element: identifier, length, contents and the end-of-contents
	// marker of the indefinite form.
	ByteLength int
}

// Is reports whether the node has the given class and tag number.
func (n *Node) Is(c Class, tag uint64) bool {
	return n != nil && n.Class == c && n.Tag == tag
}

func (n *Node) isBitString() bool {
	return n.Is(ClassUniversal, TagBitString) && !n.Constructed
}

// Decoder is the ASN.1 decoder.
type Decoder struct {
	maxDepth int
	trace    bool
}

// DecoderOpt is the decoder configuration option.
type DecoderOpt func(*Decoder)

// DecoderOptTrace enables the debug level parsing trace.
func DecoderOptTrace(enable bool) DecoderOpt {
	return func(d *Decoder) { d.trace = enable }
}

// DecoderOptMaxDepth limits the nesting depth. Deeper structures are rejected with errors.EbInvalidEncoding.
func DecoderOptMaxDepth(n int) DecoderOpt {
	return func(d *Decoder) {
		if n > 0 {
			d.maxDepth = n
		}
	}
}

// NewDecoder returns a new decoder.
func NewDecoder(opts ...DecoderOpt) *Decoder {
	d := &Decoder{maxDepth: defaultMaxDepth}
	for _, o := range opts {
		if o != nil {
			o(d)
		}
	}
	return d
}

// Parse decodes the DER encoded element at the beginning of der. Trailing bytes are ignored, the consumed length is
// available via (Node).ByteLength.
func Parse(der []byte) (*Node, error) {
	return NewDecoder().Parse(codec.NewBits(der))
}

// Parse decodes the element at the beginning of the bit string. The input must be byte aligned.
func (d *Decoder) Parse(b codec.Bits) (*Node, error) {
	if d == nil {
		return nil, errors.New(errors.EbInvalidArgumentError)
	}
	if !b.IsByteAligned() {
		return nil, errors.New(errors.EbInvalidEncoding).AppendMessage("Input is not byte aligned.")
	}

	n, err := d.parse(b.Bytes(), 0)
	if err != nil {
		return nil, errors.EbErr(err).AppendMessage("Failed to decode ASN.1 structure.")
	}
	return n, nil
}

func (d *Decoder) tracef(depth int, format string, v ...interface{}) {
	if !d.trace {
		return
	}
	log.Debug("|" + strings.Repeat("--", depth) + fmt.Sprintf(format, v...))
}

func (d *Decoder) parse(buf []byte, depth int) (*Node, error) {
	if depth > d.maxDepth {
		return nil, errors.New(errors.EbInvalidEncoding).AppendMessage("Maximum nesting depth exceeded.")
	}
	d.tracef(depth, "Parsing: %x", buf)

	r := reader{buf: buf}
	id, err := r.byte()
	if err != nil {
		return nil, err
	}
	node := &Node{
		Class:       Class(id >> 6),
		Constructed: id&0x20 != 0,
		Tag:         uint64(id & 0x1f),
	}
	if node.Tag == 0x1f {
		if node.Tag, err = r.highTag(); err != nil {
			return nil, err
		}
	}

	first, err := r.byte()
	if err != nil {
		return nil, err
	}
	var contents []byte
	switch {
	case first == 0x80:
		end := indexEOC(buf[r.pos:])
		if end < 0 {
			return nil, errors.New(errors.EbInvalidEncoding).AppendMessage("Missing end-of-contents marker.")
		}
		contents = buf[r.pos : r.pos+end]
		node.ByteLength = r.pos + end + 2
	case first < 0x80:
		if contents, err = r.bytes(int(first)); err != nil {
			return nil, err
		}
		node.ByteLength = r.pos
	default:
		l, err := r.longLength(int(first & 0x7f))
		if err != nil {
			return nil, err
		}
		if contents, err = r.bytes(l); err != nil {
			return nil, err
		}
		node.ByteLength = r.pos
	}
	node.Contents = codec.NewBits(contents)

	if node.isBitString() {
		if err := d.bitString(node, contents, depth); err != nil {
			return nil, err
		}
		return node, nil
	}

	d.tracef(depth, "Cur: tag: %02d, cls: %02d, struct: %t, len: %04d", node.Tag, node.Class, node.Constructed, len(contents))
	if node.Constructed {
		if node.Children, err = d.parseAll(contents, depth+1); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (d *Decoder) bitString(node *Node, contents []byte, depth int) error {
	if len(contents) == 0 {
		return errors.New(errors.EbInvalidEncoding).AppendMessage("Missing BIT STRING unused bits octet.")
	}
	unused := int(contents[0])
	if unused > 7 || (unused != 0 && len(contents) == 1) {
		return errors.New(errors.EbInvalidEncoding).AppendMessage("Invalid BIT STRING unused bits count.")
	}

	var err error
	if node.Contents, err = codec.NewBitsLen(contents[1:], (len(contents)-1)*8-unused); err != nil {
		return err
	}
	d.tracef(depth, "Cur: tag: %02d, cls: %02d, struct: %t, len: %04d", node.Tag, node.Class, node.Constructed, len(contents)-1)

	// Encapsulated structures are recognized only when the content decodes completely.
	if unused == 0 && len(contents) > 1 {
		if children, err := d.parseAll(contents[1:], depth+1); err == nil {
			node.Children = children
		} else {
			d.tracef(depth, "BIT STRING kept as leaf")
		}
	}
	return nil
}

func (d *Decoder) parseAll(buf []byte, depth int) ([]*Node, error) {
	var children []*Node
	for idx := 0; len(buf) > 0; idx++ {
		d.tracef(depth-1, "Parsing sub: %d", idx)
		child, err := d.parse(buf, depth)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
		buf = buf[child.ByteLength:]
		d.tracef(depth-1, "Bytes left: %d", len(buf))
	}
	return children, nil
}

func indexEOC(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == 0 && b[i+1] == 0 {
			return i
		}
	}
	return -1
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) byte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, errTruncated()
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || n > len(r.buf)-r.pos {
		return nil, errTruncated()
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) highTag() (uint64, error) {
	var tag uint64
	for i := 0; i < maxTagBytes; i++ {
		b, err := r.byte()
		if err != nil {
			return 0, err
		}
		tag = tag<<7 | uint64(b&0x7f)
		if b&0x80 == 0 {
			return tag, nil
		}
	}
	return 0, errors.New(errors.EbInvalidEncoding).AppendMessage("Tag number too large.")
}

func (r *reader) longLength(n int) (int, error) {
	if n > maxLengthBytes {
		return 0, errors.New(errors.EbInvalidEncoding).AppendMessage(fmt.Sprintf("Unsupported length of length: %d.", n))
	}
	lb, err := r.bytes(n)
	if err != nil {
		return 0, err
	}
	var l uint64
	for _, b := range lb {
		l = l<<8 | uint64(b)
	}
	if l > uint64(len(r.buf)-r.pos) {
		return 0, errTruncated()
	}
	return int(l), nil
}

func errTruncated() error {
	return errors.New(errors.EbInvalidEncoding).AppendMessage("Read past the end of the input.")
}
