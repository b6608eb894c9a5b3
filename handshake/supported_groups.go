// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package handshake

import (
	"encoding/binary"

	"github.com/kvaas/tls13/format"
)

// NamedGroup IDs from [rfc8446:4.2.7]. Only X25519 and SECP256R1 have a
// matching KeyShare implementation in this module; the others are recognized
// in the supported_groups list (so a ClientHello that only advertises them
// is rejected with ErrNoMutualGroup instead of silently ignored) but never
// selected.
const (
	SupportedGroupSECP256R1 uint16 = 0x0017
	SupportedGroupSECP384R1 uint16 = 0x0018
	SupportedGroupSECP521R1 uint16 = 0x0019
	SupportedGroupX25519    uint16 = 0x001D
	SupportedGroupX448      uint16 = 0x001E
)

// after parsing, slices inside point to datagram, so must not be retained
type SupportedGroups struct {
	X25519    bool
	SECP256R1 bool
	SECP384R1 bool
	SECP521R1 bool
	X448      bool
}

func (msg *SupportedGroups) parseInside(body []byte) (err error) {
	offset := 0
	for offset < len(body) {
		var group uint16
		if offset, group, err = format.ParserReadUint16(body, offset); err != nil {
			return err
		}
		switch group { // skip unknown
		case SupportedGroupX25519:
			msg.X25519 = true
		case SupportedGroupSECP256R1:
			msg.SECP256R1 = true
		case SupportedGroupSECP384R1:
			msg.SECP384R1 = true
		case SupportedGroupSECP521R1:
			msg.SECP521R1 = true
		case SupportedGroupX448:
			msg.X448 = true
		}
	}
	return nil
}

func (msg *SupportedGroups) Parse(body []byte) (err error) {
	offset := 0
	var insideBody []byte
	if offset, insideBody, err = format.ParserReadUint16Length(body, offset); err != nil {
		return err
	}
	if err := msg.parseInside(insideBody); err != nil {
		return err
	}
	return format.ParserReadFinish(body, offset)
}

func (msg *SupportedGroups) Write(body []byte) []byte {
	body, mark := format.MarkUint16Offset(body)
	if msg.X25519 {
		body = binary.BigEndian.AppendUint16(body, SupportedGroupX25519)
	}
	if msg.SECP256R1 {
		body = binary.BigEndian.AppendUint16(body, SupportedGroupSECP256R1)
	}
	if msg.SECP384R1 {
		body = binary.BigEndian.AppendUint16(body, SupportedGroupSECP384R1)
	}
	if msg.SECP521R1 {
		body = binary.BigEndian.AppendUint16(body, SupportedGroupSECP521R1)
	}
	if msg.X448 {
		body = binary.BigEndian.AppendUint16(body, SupportedGroupX448)
	}
	format.FillUint16Offset(body, mark)
	return body
}
