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

// Package uo implements the user object (UO) provisioning blobs.
//
// The service hands out a template of a user object: a binary blob with named offsets, key slots and RSA import
// keys. The client fills the key slots with its key material, encrypts the template under fresh transport keys and
// wraps those with the import key. The resulting blob is submitted to the CreateUserObject call.
//
// All offsets and lengths of the template are expressed in bits, as delivered by the service.
package uo

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/enigmabridge/goeb/codec"
	"github.com/enigmabridge/goeb/errors"
)

// KeyType identifies the key slot of a template.
type KeyType string

// Key slot types.
const (
	KeyCommK      KeyType = "commk"
	KeyCommEnc    KeyType = "comenc"
	KeyCommMAC    KeyType = "commac"
	KeyCommNxtEnc KeyType = "comnextenc"
	KeyCommNxtMAC KeyType = "comnextmac"
	KeyApp        KeyType = "app"
	KeyBilling    KeyType = "billing"
)

// Generation flags of the template flag word. A set flag asks the server to generate the key group.
const (
	FlagGenCommKeys    uint16 = 0x0010
	FlagGenCommNxtKeys uint16 = 0x0008
	FlagGenAppKey      uint16 = 0x0004
	FlagGenBillingKey  uint16 = 0x0002
)

// Valid reports whether the receiver is a known key type.
func (k KeyType) Valid() bool {
	return k.flag() != 0
}

// IsCommunication reports whether the key is one of the communication keys, which are always provided by the client.
func (k KeyType) IsCommunication() bool {
	f := k.flag()
	return f == FlagGenCommKeys || f == FlagGenCommNxtKeys
}

func (k KeyType) flag() uint16 {
	switch k {
	case KeyCommK, KeyCommEnc, KeyCommMAC:
		return FlagGenCommKeys
	case KeyCommNxtEnc, KeyCommNxtMAC:
		return FlagGenCommNxtKeys
	case KeyApp:
		return FlagGenAppKey
	case KeyBilling:
		return FlagGenBillingKey
	}
	return 0
}

// Length of the length field preceding TLV key slots. The type byte before it is part of the template.
const tlvHeaderLen = 2

// KeySlot is a key position in the template blob.
type KeySlot struct {
	// Offset and Length in bits.
	Offset int
	Length int
	Type   KeyType
	// TLVType is non-zero for TLV encoded slots, the key is then preceded by its 16-bit big-endian byte length.
	TLVType byte
}

func (s KeySlot) byteRange() (int, int) {
	start := s.Offset / 8
	end := start + s.Length/8
	if s.TLVType != 0 {
		start -= tlvHeaderLen
	}
	return start, end
}

// Template is the user object template.
type Template struct {
	ObjectID uint32
	// Offsets in bits.
	EncryptionOffset int
	FlagOffset       int
	PolicyOffset     int
	ScriptOffset     int

	Blob []byte
	// BlobHS is the template with the handshake header, as delivered by the service.
	BlobHS        []byte
	KeySlots      []KeySlot
	ImportKeys    []*ImportKey
	Authorization string
}

type templateJSON struct {
	ObjectID         string          `json:"objectid"`
	EncryptionOffset int             `json:"encryptionoffset"`
	FlagOffset       int             `json:"flagoffset"`
	PolicyOffset     int             `json:"policyoffset"`
	ScriptOffset     int             `json:"scriptoffset"`
	Template         string          `json:"template"`
	TemplateHS       string          `json:"templatehs,omitempty"`
	ImportKeys       []importKeyJSON `json:"importkeys"`
	KeyOffsets       []keySlotJSON   `json:"keyoffsets"`
	Authorization    string          `json:"authorization"`
}

type importKeyJSON struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Key  string `json:"key"`
}

type keySlotJSON struct {
	Offset  int    `json:"offset"`
	Length  int    `json:"length"`
	TLVType byte   `json:"tlvtype,omitempty"`
	Type    string `json:"type"`
}

// ParseTemplate decodes the result of the GetUserObjectTemplate call.
func ParseTemplate(data []byte) (*Template, error) {
	var raw templateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(errors.EbConfigError).SetExtError(err).AppendMessage("Invalid template JSON.")
	}

	objectID, err := strconv.ParseUint(raw.ObjectID, 16, 32)
	if err != nil {
		return nil, errors.New(errors.EbConfigError).SetExtError(err).AppendMessage("Invalid template object ID.")
	}
	blob, err := codec.DecodeHex(raw.Template)
	if err != nil {
		return nil, errors.New(errors.EbConfigError).SetExtError(err).AppendMessage("Invalid template blob.")
	}
	var blobHS []byte
	if raw.TemplateHS != "" {
		if blobHS, err = codec.DecodeHex(raw.TemplateHS); err != nil {
			return nil, errors.New(errors.EbConfigError).SetExtError(err).AppendMessage("Invalid template blob.")
		}
	}

	tpl := &Template{
		ObjectID:         uint32(objectID),
		EncryptionOffset: raw.EncryptionOffset,
		FlagOffset:       raw.FlagOffset,
		PolicyOffset:     raw.PolicyOffset,
		ScriptOffset:     raw.ScriptOffset,
		Blob:             blob,
		BlobHS:           blobHS,
		Authorization:    raw.Authorization,
	}
	for _, s := range raw.KeyOffsets {
		tpl.KeySlots = append(tpl.KeySlots, KeySlot{
			Offset:  s.Offset,
			Length:  s.Length,
			Type:    KeyType(s.Type),
			TLVType: s.TLVType,
		})
	}
	for _, k := range raw.ImportKeys {
		ik, err := NewImportKey(k.ID, k.Type, k.Key)
		if err != nil {
			return nil, err
		}
		tpl.ImportKeys = append(tpl.ImportKeys, ik)
	}

	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	return tpl, nil
}

// Validate checks the template invariants: offsets are byte aligned and inside the blob, key slots do not overlap
// (TLV headers included).
func (t *Template) Validate() error {
	if t == nil {
		return errors.New(errors.EbInvalidArgumentError)
	}
	blobBits := len(t.Blob) * 8

	if t.EncryptionOffset%8 != 0 || t.EncryptionOffset < 0 || t.EncryptionOffset > blobBits {
		return errInvalidTemplate(fmt.Sprintf("Invalid encryption offset: %d.", t.EncryptionOffset))
	}
	if t.FlagOffset%8 != 0 || t.FlagOffset < 0 || t.FlagOffset+16 > blobBits {
		return errInvalidTemplate(fmt.Sprintf("Invalid flag offset: %d.", t.FlagOffset))
	}
	flagStart := t.FlagOffset / 8

	type span struct {
		start, end int
		name       string
	}
	spans := []span{{flagStart, flagStart + 2, "flags"}}
	seen := make(map[KeyType]bool)
	for _, s := range t.KeySlots {
		if !s.Type.Valid() {
			return errInvalidTemplate(fmt.Sprintf("Unknown key type: %q.", s.Type))
		}
		if seen[s.Type] {
			return errInvalidTemplate(fmt.Sprintf("Duplicate key slot: %q.", s.Type))
		}
		seen[s.Type] = true
		if s.Offset%8 != 0 || s.Length%8 != 0 || s.Length <= 0 {
			return errInvalidTemplate(fmt.Sprintf("Key slot %q is not byte aligned.", s.Type))
		}
		if s.TLVType != 0 && s.Length/8 > 0xffff {
			return errInvalidTemplate(fmt.Sprintf("Key slot %q too long for TLV.", s.Type))
		}
		start, end := s.byteRange()
		if start < 0 || end > len(t.Blob) {
			return errInvalidTemplate(fmt.Sprintf("Key slot %q out of template bounds.", s.Type))
		}
		spans = append(spans, span{start, end, string(s.Type)})
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			return errInvalidTemplate(fmt.Sprintf("Key slots %q and %q overlap.", spans[i-1].name, spans[i].name))
		}
	}
	return nil
}

// Slot returns the key slot of the given type.
func (t *Template) Slot(k KeyType) (KeySlot, bool) {
	if t == nil {
		return KeySlot{}, false
	}
	for _, s := range t.KeySlots {
		if s.Type == k {
			return s, true
		}
	}
	return KeySlot{}, false
}

func errInvalidTemplate(msg string) error {
	return errors.New(errors.EbConfigError).AppendMessage("Invalid user object template.").AppendMessage(msg)
}
