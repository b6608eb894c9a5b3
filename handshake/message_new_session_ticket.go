// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package handshake

import (
	"encoding/binary"

	"github.com/kvaas/tls13/format"
)

// MsgNewSessionTicket is [rfc8446:4.6.1]: a post-handshake message issuing a
// resumption ticket. TicketNonce is mixed into PSK derivation so a server
// that issues several tickets off one resumption_master_secret gets
// independent PSKs for each; Ticket is the opaque identifier the collaborator
// TicketStore handed back from Store.
type MsgNewSessionTicket struct {
	TicketLifetime uint32
	TicketAgeAdd   uint32
	TicketNonce    []byte
	Ticket         []byte

	Extensions ExtensionsSet // EarlyDataSet carries max_early_data_size when 0-RTT is offered
}

func (msg *MsgNewSessionTicket) MessageKind() string { return "handshake" }
func (msg *MsgNewSessionTicket) MessageName() string { return "NewSessionTicket" }

func (msg *MsgNewSessionTicket) Parse(body []byte) (err error) {
	offset := 0
	if offset, msg.TicketLifetime, err = format.ParserReadUint32(body, offset); err != nil {
		return err
	}
	if offset, msg.TicketAgeAdd, err = format.ParserReadUint32(body, offset); err != nil {
		return err
	}
	var nonce, ticket []byte
	if offset, nonce, err = format.ParserReadByteLength(body, offset); err != nil {
		return err
	}
	msg.TicketNonce = append([]byte(nil), nonce...)
	if offset, ticket, err = format.ParserReadUint16Length(body, offset); err != nil {
		return err
	}
	msg.Ticket = append([]byte(nil), ticket...)
	var extensionsBody []byte
	if offset, extensionsBody, err = format.ParserReadUint16Length(body, offset); err != nil {
		return err
	}
	if err = msg.Extensions.parseInside(extensionsBody, true, false, false, nil); err != nil {
		return err
	}
	return format.ParserReadFinish(body, offset)
}

func (msg *MsgNewSessionTicket) Write(body []byte) []byte {
	body = binary.BigEndian.AppendUint32(body, msg.TicketLifetime)
	body = binary.BigEndian.AppendUint32(body, msg.TicketAgeAdd)
	body, mark := format.MarkByteOffset(body)
	body = append(body, msg.TicketNonce...)
	format.FillByteOffset(body, mark)
	body, mark = format.MarkUint16Offset(body)
	body = append(body, msg.Ticket...)
	format.FillUint16Offset(body, mark)
	return msg.Extensions.Write(body, true, false, false, nil)
}
