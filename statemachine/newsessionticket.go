// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package statemachine

import (
	"context"
	"encoding/binary"

	"github.com/kvaas/tls13/ciphersuite"
	"github.com/kvaas/tls13/collaborators"
	"github.com/kvaas/tls13/handshake"
	"github.com/kvaas/tls13/record"
	"github.com/kvaas/tls13/tlserrors"
)

// handleWriteNewSessionTicket issues one post-handshake resumption ticket,
// per [rfc8446:4.6.1]. The ticket's own PSK is resumption_master_secret
// expanded with a per-ticket nonce; this module stores the already-expanded
// secret directly as collaborators.ResumptionState.ResumptionMasterSecret,
// one simplification over the wire protocol's HKDF-Expand-Label(nonce)
// step, recorded in DESIGN.md.
func (m *Machine) handleWriteNewSessionTicket(ctx context.Context, ev EventWriteNewSessionTicket) []Action {
	if m.State.Phase != PhaseAcceptingData {
		return m.fail(tlserrors.ErrUnexpectedMessage)
	}

	nonce := make([]byte, 8)
	binary.BigEndian.PutUint64(nonce, m.nextTicketNonce())
	pskSecret := deriveTicketPSK(m.State.CipherSuite, m.State.ResumptionMasterSecret, nonce)

	state := collaborators.ResumptionState{
		Type:                   collaborators.PSKTypeResumption,
		CipherSuite:            uint16(m.State.CipherSuite.ID()),
		ALPN:                   m.State.ALPN,
		ResumptionMasterSecret: pskSecret,
		CreatedAt:              m.Opts.Clock(),
		MaxEarlyDataSize:       m.Opts.MaxEarlyDataSize,
	}
	ticketID, storeErr := m.Opts.TicketStore.Store(ctx, state)
	if storeErr != nil {
		return m.fail(tlserrors.ErrCryptoBackendFailure)
	}

	var ageAddBytes [4]byte
	m.Opts.Rnd.Read(ageAddBytes[:])
	nst := handshake.MsgNewSessionTicket{
		TicketLifetime: ev.Lifetime,
		TicketAgeAdd:   binary.BigEndian.Uint32(ageAddBytes[:]),
		TicketNonce:    nonce,
		Ticket:         ticketID,
	}
	if m.Opts.AllowEarlyData && m.Opts.MaxEarlyDataSize > 0 {
		nst.Extensions.EarlyDataSet = true
		nst.Extensions.EarlyDataMaxSize = m.Opts.MaxEarlyDataSize
	}

	msg := handshake.Message{MsgType: handshake.HandshakeTypeNewSessionTicket, Body: nst.Write(nil)}
	serialized := msg.Write(nil)
	rec, protectErr := m.State.WriteRecordLayer.Protect(nil, record.TypeHandshake, serialized, 0)
	if protectErr != nil {
		return m.fail(tlserrors.ErrCryptoBackendFailure)
	}
	return []Action{WriteToSocket{Bytes: rec}}
}

// nextTicketNonce returns a nonce distinguishing tickets issued off the same
// resumption_master_secret, per [rfc8446:4.6.1]'s "ticket_nonce" field.
func (m *Machine) nextTicketNonce() uint64 {
	n := m.State.ticketNonce
	m.State.ticketNonce++
	return n
}

// deriveTicketPSK implements [rfc8446:4.6.1]'s
// HKDF-Expand-Label(resumption_master_secret, "resumption", ticket_nonce, Hash.length).
func deriveTicketPSK(suite ciphersuite.Suite, resumptionMasterSecret ciphersuite.Hash, nonce []byte) []byte {
	out := make([]byte, suite.HashLength())
	hmacSecret := suite.NewHMAC(resumptionMasterSecret.GetValue())
	ciphersuite.HKDFExpandLabel(out, hmacSecret, "resumption", nonce)
	return out
}
