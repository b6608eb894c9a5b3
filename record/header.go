// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

// Package record implements the [rfc8446:5] TLSPlaintext/TLSCiphertext record
// framing shared by both directions of a connection: the fixed 5-byte header,
// the per-direction sequence counter used to build the AEAD nonce, and the
// inner-plaintext content-type/padding trailer applied once records are
// protected. The AEAD seal/open itself, including the buffer-chain handling
// needed for scatter-gather writers, lives in package aead.
package record

import (
	"encoding/binary"
	"errors"

	"github.com/kvaas/tls13/constants"
)

// HeaderSize is the fixed [rfc8446:5.1] record header: 1-byte content type,
// 2-byte legacy_record_version, 2-byte length.
const HeaderSize = 5

// [rfc8446:5.1] ContentType registry values this module cares about.
const (
	TypeChangeCipherSpec byte = 20 // middlebox-compatibility only, never protected
	TypeAlert            byte = 21
	TypeHandshake        byte = 22
	TypeApplicationData  byte = 23
)

// LegacyVersion is the fixed wire value of the header's version field.
// TLS 1.3 negotiates its real version via the supported_versions extension.
var LegacyVersion = [2]byte{0x03, 0x03}

var (
	ErrHeaderTooShort  = errors.New("record header too short")
	ErrBodyTruncated   = errors.New("record body shorter than declared length")
	ErrBodyTooLong     = errors.New("record body exceeds maximum length")
	ErrWrongLegacyVers = errors.New("record legacy_record_version mismatch")
)

// Header is a parsed [rfc8446:5.1] record header. Length is not stored;
// callers use the returned body slice instead.
type Header struct {
	ContentType byte
}

// Parse reads one record from datagram and returns the body slice (aliasing
// datagram) and n, the offset just past the end of the record (header plus
// body), with the body length bounded by maxBody
// (MaxPlaintextRecordLength for cleartext records, MaxCiphertextRecordLength
// once protection is active).
func (h *Header) Parse(datagram []byte, maxBody int) (body []byte, n int, err error) {
	if len(datagram) < HeaderSize {
		return nil, 0, ErrHeaderTooShort
	}
	if datagram[1] != LegacyVersion[0] || datagram[2] != LegacyVersion[1] {
		return nil, 0, ErrWrongLegacyVers
	}
	h.ContentType = datagram[0]
	length := int(binary.BigEndian.Uint16(datagram[3:5]))
	if length > maxBody {
		return nil, 0, ErrBodyTooLong
	}
	end := HeaderSize + length
	if len(datagram) < end {
		return nil, 0, ErrBodyTruncated
	}
	return datagram[HeaderSize:end], end, nil
}

// Write appends the 5-byte header for a body of the given length.
func (h Header) Write(dst []byte, bodyLength int) []byte {
	dst = append(dst, h.ContentType, LegacyVersion[0], LegacyVersion[1])
	return binary.BigEndian.AppendUint16(dst, uint16(bodyLength))
}

// MaxPlaintextRecordLength and MaxCiphertextRecordLength are re-exported from
// package constants so callers parsing records need only import this package.
const (
	MaxPlaintextRecordLength  = constants.MaxPlaintextRecordLength
	MaxCiphertextRecordLength = constants.MaxCiphertextRecordLength
)
