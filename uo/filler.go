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

package uo

import (
	"encoding/binary"
	"fmt"

	"github.com/enigmabridge/goeb/cbc"
	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/log"
	"github.com/enigmabridge/goeb/padding"
	"github.com/enigmabridge/goeb/random"
)

// Tags of the user object blob parts.
const (
	tagWrappedKeys = 0xa1
	tagEncTemplate = 0xa2
)

// Keys is a key bundle indexed by key type.
type Keys map[KeyType][]byte

// Result is the output of the template filler.
type Result struct {
	// UO is the blob to be submitted to the CreateUserObject call.
	UO []byte
	// Keys holds the key material written into the template, generated keys included.
	Keys Keys
	// EncKey and MacKey are the template transport keys.
	EncKey []byte
	MacKey []byte
	// Filled is the template blob with the keys and flags written, before encryption.
	Filled []byte
}

// Filler fills user object templates.
type Filler struct {
	rand  random.Source
	trace bool
}

// FillerOpt is the template filler configuration option.
type FillerOpt func(*Filler) error

// FillerOptRandom sets the source of the generated keys and padding. The default is random.System().
func FillerOptRandom(src random.Source) FillerOpt {
	return func(f *Filler) error {
		if src == nil {
			return errors.New(errors.EbInvalidArgumentError).AppendMessage("Missing random source.")
		}
		f.rand = src
		return nil
	}
}

// FillerOptTrace enables debug logging of the fill steps. Key material is never logged.
func FillerOptTrace(enable bool) FillerOpt {
	return func(f *Filler) error {
		f.trace = enable
		return nil
	}
}

// NewFiller returns a new template filler.
func NewFiller(opts ...FillerOpt) (*Filler, error) {
	tmp := &Filler{rand: random.System()}
	for _, setter := range opts {
		if setter == nil {
			return nil, errors.New(errors.EbInvalidArgumentError).AppendMessage("Provided option is nil.")
		}
		if err := setter(tmp); err != nil {
			return nil, errors.EbErr(err).AppendMessage("Unable to setup template filler.")
		}
	}
	return tmp, nil
}

// Build fills the template with the keys and produces the user object blob.
//
// Communication keys missing from keys are generated, missing application and billing keys are left for the server
// to generate. Keys of a type the template has no slot for are rejected.
func (f *Filler) Build(tpl *Template, keys Keys) (*Result, error) {
	if f == nil || tpl == nil {
		return nil, errors.New(errors.EbInvalidArgumentError)
	}
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	if len(tpl.ImportKeys) == 0 {
		return nil, errors.New(errors.EbConfigError).AppendMessage("Template has no import key.")
	}
	for k := range keys {
		if _, ok := tpl.Slot(k); !ok {
			return nil, errors.New(errors.EbTemplateMismatch).AppendMessage(fmt.Sprintf("Template has no %q key slot.", k))
		}
	}

	blob := append([]byte(nil), tpl.Blob...)
	final := make(Keys)
	var clear uint16
	for _, slot := range tpl.KeySlots {
		key, err := f.slotKey(slot, keys[slot.Type])
		if err != nil {
			return nil, err
		}
		if key == nil {
			f.tracef("key %s left to the server", slot.Type)
			continue
		}

		start := slot.Offset / 8
		copy(blob[start:start+len(key)], key)
		if slot.TLVType != 0 {
			binary.BigEndian.PutUint16(blob[start-tlvHeaderLen:start], uint16(len(key)))
		}
		final[slot.Type] = key
		clear |= slot.Type.flag()
		f.tracef("key %s written at %d, len %d", slot.Type, start, len(key))
	}

	flagPos := tpl.FlagOffset / 8
	flags := binary.BigEndian.Uint16(blob[flagPos:])
	binary.BigEndian.PutUint16(blob[flagPos:], flags&^clear)
	f.tracef("flags %04x -> %04x", flags, flags&^clear)

	encKey, err := random.Bytes(f.rand, cbc.KeySize)
	if err != nil {
		return nil, err
	}
	macKey, err := random.Bytes(f.rand, cbc.KeySize)
	if err != nil {
		return nil, err
	}

	encTemplate, err := encryptTemplate(blob, tpl.EncryptionOffset/8, encKey, macKey)
	if err != nil {
		return nil, errors.EbErr(err).AppendMessage("Failed to encrypt template.")
	}
	wrapped, err := tpl.ImportKeys[0].Wrap(f.rand, append(append([]byte(nil), encKey...), macKey...))
	if err != nil {
		return nil, err
	}
	f.tracef("wrapped keys len %d, encrypted template len %d", len(wrapped), len(encTemplate))

	uo := make([]byte, 0, 6+len(wrapped)+len(encTemplate))
	uo = appendTLV(uo, tagWrappedKeys, wrapped)
	uo = appendTLV(uo, tagEncTemplate, encTemplate)
	return &Result{
		UO:     uo,
		Keys:   final,
		EncKey: encKey,
		MacKey: macKey,
		Filled: blob,
	}, nil
}

// slotKey returns the key to be written into the slot, nil if the slot is left for the server.
func (f *Filler) slotKey(slot KeySlot, key []byte) ([]byte, error) {
	size := slot.Length / 8
	if key != nil {
		if len(key) != size {
			return nil, errors.New(errors.EbTemplateMismatch).
				AppendMessage(fmt.Sprintf("Key %q length %d does not match slot length %d.", slot.Type, len(key), size))
		}
		return append([]byte(nil), key...), nil
	}
	if !slot.Type.IsCommunication() {
		return nil, nil
	}
	return random.Bytes(f.rand, size)
}

// encryptTemplate returns PKCS7(blob[:offset] || AES-CBC(PKCS7(blob[offset:]))) || CBC-MAC.
func encryptTemplate(blob []byte, offset int, encKey, macKey []byte) ([]byte, error) {
	encBlock, err := cbc.NewAES(encKey)
	if err != nil {
		return nil, err
	}
	encrypted, err := cbc.Encrypt(encBlock, blob[offset:], cbc.ZeroIV(), nil, false)
	if err != nil {
		return nil, err
	}
	body, err := padding.PKCS7{}.Pad(append(append([]byte(nil), blob[:offset]...), encrypted...), cbc.BlockSize)
	if err != nil {
		return nil, err
	}

	macBlock, err := cbc.NewAES(macKey)
	if err != nil {
		return nil, err
	}
	mac, err := cbc.NewMAC(macBlock)
	if err != nil {
		return nil, err
	}
	tag, err := mac.Sum(body)
	if err != nil {
		return nil, err
	}
	return append(body, tag...), nil
}

func appendTLV(dst []byte, tag byte, value []byte) []byte {
	dst = append(dst, tag, byte(len(value)>>8), byte(len(value)))
	return append(dst, value...)
}

func (f *Filler) tracef(format string, v ...interface{}) {
	if f.trace {
		log.Debugf(format, v...)
	}
}
