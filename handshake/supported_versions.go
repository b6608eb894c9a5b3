// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package handshake

import (
	"encoding/binary"

	"github.com/kvaas/tls13/format"
)

const (
	TLS_VERSION_12 = 0x0303
	TLS_VERSION_13 = 0x0304
)

// after parsing, slices inside point to datagram, so must not be retained
type SupportedVersions struct {
	TLS_12 bool
	TLS_13 bool

	SelectedVersion uint16
}

func (msg *SupportedVersions) parseInside(body []byte) (err error) {
	offset := 0
	for offset < len(body) {
		var version uint16
		if offset, version, err = format.ParserReadUint16(body, offset); err != nil {
			return err
		}
		switch version { // skip unknown
		case TLS_VERSION_12:
			msg.TLS_12 = true
		case TLS_VERSION_13:
			msg.TLS_13 = true
		}
	}
	return nil
}

func (msg *SupportedVersions) Parse(body []byte, isServerHello bool) (err error) {
	offset := 0
	if isServerHello {
		if offset, msg.SelectedVersion, err = format.ParserReadUint16(body, offset); err != nil {
			return err
		}
		return format.ParserReadFinish(body, offset)
	}
	var insideBody []byte
	if offset, insideBody, err = format.ParserReadByteLength(body, offset); err != nil {
		return err
	}
	if err := msg.parseInside(insideBody); err != nil {
		return err
	}
	return format.ParserReadFinish(body, offset)
}

func (msg *SupportedVersions) Write(body []byte, isServerHello bool) []byte {
	if isServerHello {
		body = binary.BigEndian.AppendUint16(body, msg.SelectedVersion)
		return body
	}
	body, mark := format.MarkByteOffset(body)
	if msg.TLS_13 {
		body = binary.BigEndian.AppendUint16(body, TLS_VERSION_13)
	}
	if msg.TLS_12 {
		body = binary.BigEndian.AppendUint16(body, TLS_VERSION_12)
	}
	format.FillByteOffset(body, mark)
	return body
}
