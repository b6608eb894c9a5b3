// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package handshake

import (
	"encoding/binary"
	"hash"

	"github.com/kvaas/tls13/format"
	"github.com/kvaas/tls13/safecast"
)

// HeaderSize is the [rfc8446:4] Handshake header: 1-byte msg_type, 3-byte length.
// Unlike DTLS, TLS 1.3 handshake messages carry no message-sequence or
// fragment-offset/length fields: the record layer runs over a reliable
// stream, so reassembly is just "keep reading until Length bytes arrive".
const HeaderSize = 4

// Message is one decoded handshake message. Body is the message body only
// (the 4-byte header is not included and is not retained past serialization).
type Message struct {
	MsgType MsgType
	Body    []byte
}

func (msg *Message) Len32() uint32 {
	return safecast.Cast[uint32](len(msg.Body))
}

// AddToHash feeds this message's wire form (header + body) into the running
// transcript hash, per [rfc8446:4.4.1].
func (msg *Message) AddToHash(transcriptHasher hash.Hash) {
	if len(msg.Body) > 0xFFFFFF {
		panic("handshake message body too large")
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], (uint32(msg.MsgType)<<24)+uint32(len(msg.Body)))
	transcriptHasher.Write(header[:])
	transcriptHasher.Write(msg.Body)
}

// Parse reads one handshake message from record (the decrypted handshake
// record's body, which may hold several consecutive handshake messages).
// Body aliases record and must be copied or fully consumed before record is reused.
func (msg *Message) Parse(record []byte) (n int, err error) {
	if len(record) < HeaderSize {
		return 0, ErrHandshakeMsgTooShort
	}
	msg.MsgType = MsgType(record[0])
	length := binary.BigEndian.Uint32(record[0:4]) & 0xFFFFFF
	end := HeaderSize + int(length)
	if len(record) < end {
		return 0, ErrHandshakeMsgTooShort
	}
	msg.Body = record[HeaderSize:end]
	return end, nil
}

// Write appends this message's wire form (header + body) to datagram.
func (msg *Message) Write(datagram []byte) []byte {
	datagram = append(datagram, byte(msg.MsgType))
	datagram = format.AppendUint24(datagram, msg.Len32())
	return append(datagram, msg.Body...)
}
