// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package handshake

import (
	"encoding/binary"
	"errors"

	"github.com/kvaas/tls13/ciphersuite"
	"github.com/kvaas/tls13/format"
)

var ErrServerHelloLegacyVersion = errors.New("server hello wrong legacy version")
var ErrServerHelloLegacySessionIDTooLong = errors.New("server hello legacy_session_id longer than 32 bytes")
var ErrServerHelloLegacyCompressionMethod = errors.New("server hello wrong legacy compression method")

// helloRetryRequestRandom is the fixed Random value that marks a ServerHello
// as a HelloRetryRequest, SHA-256("HelloRetryRequest") [rfc8446:4.1.3].
var helloRetryRequestRandom = [32]byte{
	0xCF, 0x21, 0xAD, 0x74, 0xE5, 0x9A, 0x61, 0x11, 0xBE, 0x1D, 0x8C, 0x02, 0x1E, 0x65, 0xB8, 0x91,
	0xC2, 0xA2, 0x11, 0x16, 0x7A, 0xBB, 0x8C, 0x5E, 0x07, 0x9E, 0x09, 0xE2, 0xC8, 0xA8, 0x33, 0x9C,
}

// MsgServerHello is [rfc8446:4.1.3]'s ServerHello, reused as a HelloRetryRequest
// by setting Random to helloRetryRequestRandom. legacy_session_id echoes the
// client's legacy_session_id back under middlebox-compatibility mode
// [rfc8446:appendix-D.4]; a server not in that mode leaves it empty.
//
// after parsing, slices inside point to datagram, so must not be retained
type MsgServerHello struct {
	Random          [32]byte
	LegacySessionID []byte
	CipherSuite     ciphersuite.ID
	Extensions      ExtensionsSet
}

func (msg *MsgServerHello) MessageKind() string { return "handshake" }
func (msg *MsgServerHello) MessageName() string {
	if msg.IsHelloRetryRequest() {
		return "HelloRetryRequest"
	}
	return "ServerHello"
}

func (msg *MsgServerHello) SetHelloRetryRequest() {
	msg.Random = helloRetryRequestRandom
}

func (msg *MsgServerHello) IsHelloRetryRequest() bool {
	return msg.Random == helloRetryRequestRandom
}

func (msg *MsgServerHello) Parse(body []byte) (err error) {
	offset := 0
	if offset, err = format.ParserReadUint16Const(body, offset, TLS_VERSION_12, ErrServerHelloLegacyVersion); err != nil {
		return err
	}
	if offset, err = format.ParserReadFixedBytes(body, offset, msg.Random[:]); err != nil {
		return err
	}
	if offset, msg.LegacySessionID, err = format.ParserReadByteLength(body, offset); err != nil {
		return err
	}
	if len(msg.LegacySessionID) > 32 {
		return ErrServerHelloLegacySessionIDTooLong
	}
	var cipherSuite uint16
	if offset, cipherSuite, err = format.ParserReadUint16(body, offset); err != nil {
		return err
	}
	msg.CipherSuite = ciphersuite.ID(cipherSuite)
	if offset, err = format.ParserReadByteConst(body, offset, 0, ErrServerHelloLegacyCompressionMethod); err != nil {
		return err
	}
	var bindersListLength int
	return msg.Extensions.Parse(body[offset:], false, true, msg.IsHelloRetryRequest(), &bindersListLength)
}

func (msg *MsgServerHello) Write(body []byte) []byte {
	body = binary.BigEndian.AppendUint16(body, TLS_VERSION_12)
	body = append(body, msg.Random[:]...)

	body, mark := format.MarkByteOffset(body)
	body = append(body, msg.LegacySessionID...)
	format.FillByteOffset(body, mark)

	body = binary.BigEndian.AppendUint16(body, uint16(msg.CipherSuite))
	body = append(body, 0) // legacy_compression_method

	var bindersListLength int
	body = msg.Extensions.Write(body, false, true, msg.IsHelloRetryRequest(), &bindersListLength)
	return body
}
