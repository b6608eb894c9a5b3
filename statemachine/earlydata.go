// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package statemachine

import (
	"github.com/kvaas/tls13/constants"
	"github.com/kvaas/tls13/tlserrors"
)

// handleEarlyAppData delivers one 0-RTT application-data record while
// Phase == AcceptingEarlyData, per the transition table's "early app data
// record" row. If accepting the record would push the connection past
// constants.MaxEarlyDataRecords or the ticket's advertised
// max_early_data_size, it instead takes the "max_early_data exceeded ->
// reject remaining, skip to ExpectingFinished" transition and drops this
// record and everything still to come.
func (m *Machine) handleEarlyAppData(ev EventEarlyAppData) []Action {
	if m.State.Phase != PhaseAcceptingEarlyData {
		return m.fail(tlserrors.ErrUnexpectedMessage)
	}

	nextRecords := m.State.earlyDataRecordsReceived + 1
	nextBytes := m.State.earlyDataBytesReceived + uint64(len(ev.Bytes))
	if nextRecords > constants.MaxEarlyDataRecords ||
		(m.State.earlyDataMaxSize > 0 && nextBytes > uint64(m.State.earlyDataMaxSize)) {
		return m.rejectRemainingEarlyData()
	}

	m.State.earlyDataRecordsReceived = nextRecords
	m.State.earlyDataBytesReceived = nextBytes
	return []Action{DeliverAppData{Bytes: ev.Bytes}}
}

// rejectRemainingEarlyData implements the "max_early_data exceeded" row of
// the AcceptingEarlyData transitions: it restores the parked handshake read
// layer exactly as handleEndOfEarlyData does, but without adding anything to
// the transcript, since no real EndOfEarlyData message has arrived. The
// client's own Finished will cover its actual EndOfEarlyData, so the
// server's transcript now permanently disagrees with it and Finished
// verification fails downstream, making this a reject in substance even
// though no alert is raised here.
func (m *Machine) rejectRemainingEarlyData() []Action {
	if m.State.HandshakeReadRecordLayer == nil {
		return m.fail(tlserrors.ErrUnexpectedMessage)
	}

	*m.State.ReadRecordLayer = *m.State.HandshakeReadRecordLayer
	m.State.HandshakeReadRecordLayer = nil
	m.State.Phase = PhaseExpectingFinished

	return []Action{SetReadRecordLayer{Layer: m.State.ReadRecordLayer}}
}

// handleEndOfEarlyData implements the AcceptingEarlyData -> ExpectingFinished
// transition: restore the parked handshake read layer (installed back when
// 0-RTT was accepted) so the client's Certificate/CertificateVerify/Finished
// that follow decrypt under the handshake traffic key, not the early one.
func (m *Machine) handleEndOfEarlyData(ev EventEndOfEarlyData) []Action {
	if m.State.Phase != PhaseAcceptingEarlyData {
		return m.fail(tlserrors.ErrUnexpectedMessage)
	}
	if m.State.HandshakeReadRecordLayer == nil {
		return m.fail(tlserrors.ErrUnexpectedMessage)
	}

	m.State.HandshakeContext.AddMessage(ev.Serialized)
	*m.State.ReadRecordLayer = *m.State.HandshakeReadRecordLayer
	m.State.HandshakeReadRecordLayer = nil
	m.State.Phase = PhaseExpectingFinished

	return []Action{SetReadRecordLayer{Layer: m.State.ReadRecordLayer}}
}
