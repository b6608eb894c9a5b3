// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package statemachine

import (
	"context"

	"github.com/kvaas/tls13/handshake"
	"github.com/kvaas/tls13/signature"
	"github.com/kvaas/tls13/tlserrors"
)

// handleCertificate implements the ExpectingCertificate -> ExpectingCertificateVerify
// transition: store the client's (possibly empty) certificate chain, failing
// immediately if it is empty (client auth was required to reach this phase
// at all, so an empty chain is always a decline of a mandatory request).
func (m *Machine) handleCertificate(ctx context.Context, ev EventCertificate) []Action {
	if m.State.Phase != PhaseExpectingCertificate {
		return m.fail(tlserrors.ErrUnexpectedMessage)
	}

	m.State.HandshakeContext.AddMessage(ev.Serialized)

	msg := ev.Message
	if msg.CertificatesLength == 0 {
		return m.fail(tlserrors.ErrCertificateChainEmpty)
	}

	chain := make([][]byte, msg.CertificatesLength)
	for i := 0; i < msg.CertificatesLength; i++ {
		chain[i] = msg.Certificates[i].CertData
	}
	m.State.UnverifiedCertChain = chain
	m.State.Phase = PhaseExpectingCertificateVerify

	return []Action{WaitForData{}}
}

// handleCertificateVerify implements the ExpectingCertificateVerify ->
// ExpectingFinished transition: hand the unverified chain to the configured
// Verifier for trust-chain validation, then verify the client's signature
// over the transcript covered content (per [rfc8446:4.4.3], client role).
func (m *Machine) handleCertificateVerify(ctx context.Context, ev EventCertificateVerify) []Action {
	if m.State.Phase != PhaseExpectingCertificateVerify {
		return m.fail(tlserrors.ErrUnexpectedMessage)
	}

	chain := m.State.UnverifiedCertChain
	if len(chain) == 0 {
		return m.fail(tlserrors.ErrUnexpectedMessage)
	}

	peer, verifyErr := m.Opts.Verifier.Verify(ctx, chain, "")
	if verifyErr != nil {
		return m.fail(tlserrors.ErrCertificateVerifyInvalid)
	}

	certVerifyTranscriptHash := m.State.HandshakeContext.CurrentDigest()
	msg := ev.Message

	var sigMessageStorage [128]byte
	var sigMessage []byte
	if msg.SignatureScheme == handshake.SignatureAlgorithm_ED25519 {
		sigMessage = signature.CalculateCoveredContent(false, certVerifyTranscriptHash.GetValue(), sigMessageStorage[:0])
	} else {
		sigMessage = signature.CalculateCoveredContentHash(suiteHasherFor(m.State.CipherSuite), false, certVerifyTranscriptHash.GetValue(), sigMessageStorage[:0])
	}
	if verifyErr := signature.VerifyCertificateChain(peer.Leaf, msg.SignatureScheme, sigMessage, msg.Signature); verifyErr != nil {
		return m.fail(tlserrors.ErrCertificateVerifyInvalid)
	}

	m.State.HandshakeContext.AddMessage(ev.Serialized)
	m.State.ClientCert = &peer
	m.State.UnverifiedCertChain = nil
	m.State.Phase = PhaseExpectingFinished

	return []Action{WaitForData{}}
}
