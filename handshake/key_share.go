// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package handshake

import (
	"encoding/binary"
	"errors"

	"github.com/kvaas/tls13/format"
)

var ErrKeyShareX25519WrongFormat = errors.New("key_share: X25519 key_exchange must be 32 bytes")
var ErrKeyShareSECP256R1WrongFormat = errors.New("key_share: SECP256R1 key_exchange must be 65 bytes, uncompressed")
var ErrKeyShareHRRWrongFormat = errors.New("key_share: HelloRetryRequest key_share must be exactly one named group")

// KeyShare holds whatever key_share entries were present on the wire: several
// for a ClientHello (one per group the client is willing to try), exactly one
// for a ServerHello, and a bare selected group for a HelloRetryRequest.
//
// after parsing, slices inside point to datagram, so must not be retained
type KeyShare struct {
	X25519Set    bool
	X25519Key    [32]byte
	SECP256R1Set bool
	// uncompressed point per [rfc8446:4.2.8.2]: 0x04 || X || Y, 65 bytes.
	SECP256R1Key [65]byte

	HRRSelectedGroupSet bool
	HRRSelectedGroup    uint16
}

func (msg *KeyShare) parseOneEntry(body []byte, offset int) (_ int, err error) {
	var group uint16
	if offset, group, err = format.ParserReadUint16(body, offset); err != nil {
		return offset, err
	}
	var key []byte
	if offset, key, err = format.ParserReadUint16Length(body, offset); err != nil {
		return offset, err
	}
	switch group { // skip unknown/unsupported groups
	case SupportedGroupX25519:
		if len(key) != 32 {
			return offset, ErrKeyShareX25519WrongFormat
		}
		copy(msg.X25519Key[:], key)
		msg.X25519Set = true
	case SupportedGroupSECP256R1:
		if len(key) != 65 {
			return offset, ErrKeyShareSECP256R1WrongFormat
		}
		copy(msg.SECP256R1Key[:], key)
		msg.SECP256R1Set = true
	}
	return offset, nil
}

func (msg *KeyShare) parseInsideList(body []byte) (err error) {
	offset := 0
	for offset < len(body) {
		if offset, err = msg.parseOneEntry(body, offset); err != nil {
			return err
		}
	}
	return nil
}

func (msg *KeyShare) Parse(body []byte, isServerHello bool, isHelloRetryRequest bool) (err error) {
	offset := 0
	switch {
	case isHelloRetryRequest:
		if offset, msg.HRRSelectedGroup, err = format.ParserReadUint16(body, offset); err != nil {
			return err
		}
		msg.HRRSelectedGroupSet = true
		if offset != len(body) {
			return ErrKeyShareHRRWrongFormat
		}
		return nil
	case isServerHello:
		if offset, err = msg.parseOneEntry(body, offset); err != nil {
			return err
		}
		return format.ParserReadFinish(body, offset)
	default:
		var insideBody []byte
		if offset, insideBody, err = format.ParserReadUint16Length(body, offset); err != nil {
			return err
		}
		if err := msg.parseInsideList(insideBody); err != nil {
			return err
		}
		return format.ParserReadFinish(body, offset)
	}
}

func (msg *KeyShare) writeEntry(body []byte, group uint16, key []byte) []byte {
	body = binary.BigEndian.AppendUint16(body, group)
	body, mark := format.MarkUint16Offset(body)
	body = append(body, key...)
	format.FillUint16Offset(body, mark)
	return body
}

func (msg *KeyShare) Write(body []byte, isServerHello bool, isHelloRetryRequest bool) []byte {
	if isHelloRetryRequest {
		return binary.BigEndian.AppendUint16(body, msg.HRRSelectedGroup)
	}
	if isServerHello {
		switch {
		case msg.X25519Set:
			return msg.writeEntry(body, SupportedGroupX25519, msg.X25519Key[:])
		case msg.SECP256R1Set:
			return msg.writeEntry(body, SupportedGroupSECP256R1, msg.SECP256R1Key[:])
		}
		panic("KeyShare.Write: server hello requires exactly one selected key share")
	}
	body, mark := format.MarkUint16Offset(body)
	if msg.X25519Set {
		body = msg.writeEntry(body, SupportedGroupX25519, msg.X25519Key[:])
	}
	if msg.SECP256R1Set {
		body = msg.writeEntry(body, SupportedGroupSECP256R1, msg.SECP256R1Key[:])
	}
	format.FillUint16Offset(body, mark)
	return body
}
