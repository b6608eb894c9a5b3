// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package handshake

import (
	"encoding/binary"
	"errors"

	"github.com/kvaas/tls13/format"
)

var ErrClientHelloLegacyVersion = errors.New("client hello wrong legacy version")
var ErrClientHelloLegacySessionIDTooLong = errors.New("client hello legacy_session_id longer than 32 bytes")
var ErrClientHelloLegacyCompressionMethods = errors.New("client hello legacy_compression_methods must contain null compression")

// legacyCompressionMethods is the only legal [rfc8446:4.1.2]
// legacy_compression_methods value: a single "null" entry.
var legacyCompressionMethods = []byte{0}

// MsgClientHello is [rfc8446:4.1.2]'s ClientHello. legacy_session_id is kept
// (not just checked) because a middlebox-compatibility-mode server echoes it
// back in ServerHello [rfc8446:appendix-D.4].
//
// after parsing, slices inside point to datagram, so must not be retained
type MsgClientHello struct {
	Random          [32]byte
	LegacySessionID []byte
	CipherSuites    CipherSuites
	Extensions      ExtensionsSet
}

func (msg *MsgClientHello) MessageKind() string { return "handshake" }
func (msg *MsgClientHello) MessageName() string { return "ClientHello" }

func (msg *MsgClientHello) Parse(body []byte) (err error) {
	offset := 0
	if offset, err = format.ParserReadUint16Const(body, offset, 0x0303, ErrClientHelloLegacyVersion); err != nil {
		return err
	}
	if offset, err = format.ParserReadFixedBytes(body, offset, msg.Random[:]); err != nil {
		return err
	}
	if offset, msg.LegacySessionID, err = format.ParserReadByteLength(body, offset); err != nil {
		return err
	}
	if len(msg.LegacySessionID) > 32 {
		return ErrClientHelloLegacySessionIDTooLong
	}
	var cipherSuitesBody []byte
	if offset, cipherSuitesBody, err = format.ParserReadUint16Length(body, offset); err != nil {
		return err
	}
	if err = msg.CipherSuites.Parse(cipherSuitesBody); err != nil {
		return err
	}
	var compressionMethods []byte
	if offset, compressionMethods, err = format.ParserReadByteLength(body, offset); err != nil {
		return err
	}
	found := false
	for _, m := range compressionMethods {
		if m == 0 {
			found = true
		}
	}
	if !found {
		return ErrClientHelloLegacyCompressionMethods
	}
	var bindersListLength int
	return msg.Extensions.Parse(body[offset:], false, false, false, &bindersListLength)
}

func (msg *MsgClientHello) Write(body []byte) []byte {
	body = binary.BigEndian.AppendUint16(body, 0x0303)

	body = append(body, msg.Random[:]...)

	body, mark := format.MarkByteOffset(body)
	body = append(body, msg.LegacySessionID...)
	format.FillByteOffset(body, mark)

	body, mark = format.MarkUint16Offset(body)
	body = msg.CipherSuites.Write(body)
	format.FillUint16Offset(body, mark)

	body, mark = format.MarkByteOffset(body)
	body = append(body, legacyCompressionMethods...)
	format.FillByteOffset(body, mark)

	var bindersListLength int
	body = msg.Extensions.Write(body, false, false, false, &bindersListLength)

	return body
}
