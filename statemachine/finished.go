// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package statemachine

import (
	"crypto/hmac"

	"github.com/kvaas/tls13/keys"
	"github.com/kvaas/tls13/tlserrors"
)

// handleFinished implements the ExpectingFinished -> AcceptingData
// transition: verify the client's Finished HMAC over the transcript,
// install both directions' application traffic keys, derive the
// resumption master secret (ready for a later WriteNewSessionTicket), and
// report handshake success.
func (m *Machine) handleFinished(ev EventFinished) []Action {
	if m.State.Phase != PhaseExpectingFinished {
		return m.fail(tlserrors.ErrUnexpectedMessage)
	}

	preFinishedTranscript := m.State.HandshakeContext.CurrentDigest()
	expected := keys.ComputeFinished(m.State.CipherSuite, m.State.ClientHandshakeSecret, preFinishedTranscript)
	if !hmac.Equal(expected.GetValue(), ev.Message.VerifyData) {
		return m.fail(tlserrors.ErrFinishedVerificationFailed)
	}
	m.State.HandshakeContext.AddMessage(ev.Serialized)

	transcriptHash := m.State.HandshakeContext.CurrentDigest()
	cAPSecret, cAPKey, cAPIV := m.State.KeyScheduler.DeriveTrafficKey("c ap traffic", transcriptHash)
	sAPSecret, sAPKey, sAPIV := m.State.KeyScheduler.DeriveTrafficKey("s ap traffic", transcriptHash)
	m.State.clientAppSecret = cAPSecret
	m.State.serverAppSecret = sAPSecret
	m.State.ResumptionMasterSecret = m.State.KeyScheduler.DeriveResumptionMasterSecret(transcriptHash)

	cAEAD, cErr := m.State.CipherSuite.NewAEAD(cAPKey)
	if cErr != nil {
		return m.fail(tlserrors.ErrCryptoBackendFailure)
	}
	sAEAD, sErr := m.State.CipherSuite.NewAEAD(sAPKey)
	if sErr != nil {
		return m.fail(tlserrors.ErrCryptoBackendFailure)
	}

	m.State.ReadRecordLayer.Install(cAEAD, cAPIV)
	m.State.WriteRecordLayer.Install(sAEAD, sAPIV)
	m.State.HandshakeReadRecordLayer = nil
	m.State.Phase = PhaseAcceptingData

	return []Action{
		SetReadRecordLayer{Layer: m.State.ReadRecordLayer},
		SetWriteRecordLayer{Layer: m.State.WriteRecordLayer},
		ReportHandshakeSuccess{},
	}
}
