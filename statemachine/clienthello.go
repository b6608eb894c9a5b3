// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package statemachine

import (
	"context"
	"crypto/sha256"

	"github.com/kvaas/tls13/ciphersuite"
	"github.com/kvaas/tls13/handshake"
	"github.com/kvaas/tls13/keyexchange"
	"github.com/kvaas/tls13/keys"
	"github.com/kvaas/tls13/record"
	"github.com/kvaas/tls13/signature"
	"github.com/kvaas/tls13/tlserrors"
)

// handleClientHello implements the ExpectingClientHello/ExpectingClientHelloRetry
// transitions: version and cipher-suite negotiation, the HelloRetryRequest
// branch, PSK binder validation, ephemeral key exchange, the key schedule up
// through the handshake traffic secrets, and the server's response flight
// (ServerHello .. Finished, or just ServerHello/HelloRetryRequest).
//
// Grounded on the teacher's transport/statemachine/client_hello.go
// (OnClientHello/OnClientHello2 split, GenerateStatelessHRR,
// generateEncryptedExtensions/generateServerCertificate/
// generateServerCertificateVerify), generalized from DTLS's stateless-cookie
// retry onto TLS 1.3's in-transcript HelloRetryRequest and from one hardcoded
// suite onto ciphersuite.Suite.
func (m *Machine) handleClientHello(ctx context.Context, ev EventClientHello) []Action {
	ch := ev.Message

	version, err := negotiateVersion(ch)
	if err != nil {
		return m.fail(err.(*tlserrors.Error))
	}
	suite, err := negotiateCipherSuite(ch, m.Opts)
	if err != nil {
		return m.fail(err.(*tlserrors.Error))
	}

	switch m.State.Phase {
	case PhaseExpectingClientHello:
		return m.handleFirstClientHello(ctx, ev, version, suite)
	case PhaseExpectingClientHelloRetry:
		return m.handleSecondClientHello(ctx, ev, version, suite)
	default:
		return m.fail(tlserrors.ErrUnexpectedMessage)
	}
}

func (m *Machine) handleFirstClientHello(ctx context.Context, ev EventClientHello, version uint16, suite ciphersuite.Suite) []Action {
	ch := ev.Message

	group, share, matched, hrrGroup, hrrPossible := negotiateGroup(ch, m.Opts)
	if !matched {
		if !hrrPossible {
			return m.fail(tlserrors.ErrNoMutualGroup)
		}
		return m.sendHelloRetryRequest(ev, suite, hrrGroup)
	}

	hctx := keys.NewHandshakeContext(suite)
	ch1Digest, psk, err := m.feedClientHelloAndValidateBinder(ctx, hctx, ev, suite)
	if err != nil {
		return m.fail(err)
	}

	m.State.Version = version
	m.State.CipherSuite = suite
	m.State.NamedGroup = group
	m.State.KeyExchangeType = KeyExchangeNormal
	m.State.HandshakeContext = hctx
	m.State.KeyScheduler = keys.NewScheduler(suite)

	return m.finishClientHelloNegotiation(ctx, ch, suite, group, share, psk, ch1Digest, true)
}

func (m *Machine) handleSecondClientHello(ctx context.Context, ev EventClientHello, version uint16, suite ciphersuite.Suite) []Action {
	ch := ev.Message

	if !ch.Extensions.KeyShareSet || !keyexchange.PeerOffersGroup(ch.Extensions.KeyShare, m.State.hrrSelectedGroup) {
		return m.fail(tlserrors.ErrSecondClientHelloBadKeyShare)
	}
	group := m.State.hrrSelectedGroup
	share := ch.Extensions.KeyShare

	hctx := m.State.HandshakeContext
	_, psk, err := m.feedClientHelloAndValidateBinder(ctx, hctx, ev, suite)
	if err != nil {
		return m.fail(err)
	}

	m.State.Version = version
	m.State.CipherSuite = suite
	m.State.NamedGroup = group
	m.State.KeyExchangeType = KeyExchangeHelloRetry
	m.State.KeyScheduler = keys.NewScheduler(suite)

	// 0-RTT is never offered across a retry: the client cannot have learned
	// the server's selected group in time to have sent early data under it.
	return m.finishClientHelloNegotiation(ctx, ch, suite, group, share, psk, ciphersuite.Hash{}, false)
}

// feedClientHelloAndValidateBinder adds ev's serialized ClientHello to hctx,
// splitting the write around the pre_shared_key binders list (per
// [rfc8446:4.2.11.2]) so the binder can be validated against the transcript
// hash of everything up to (not including) the binders, while hctx still
// ends up holding the complete message once this returns. fullDigest is the
// transcript hash immediately after this ClientHello (used for the 0-RTT
// early traffic secret on the first, non-retried ClientHello only).
func (m *Machine) feedClientHelloAndValidateBinder(ctx context.Context, hctx *keys.HandshakeContext, ev EventClientHello, suite ciphersuite.Suite) (fullDigest ciphersuite.Hash, psk pskResult, err *tlserrors.Error) {
	ch := ev.Message
	if !ch.Extensions.PreSharedKeySet {
		hctx.AddMessage(ev.Serialized)
		return hctx.CurrentDigest(), pskResult{}, nil
	}

	cut := len(ev.Serialized) - binderListByteLength(ch.Extensions.PreSharedKey)
	if cut < 0 || cut > len(ev.Serialized) {
		return ciphersuite.Hash{}, pskResult{}, tlserrors.ErrMessageBodyTooShort
	}
	hctx.AddMessage(ev.Serialized[:cut])
	truncatedDigest := hctx.CurrentDigest()

	result, lookupErr := negotiatePSK(ctx, ch, suite, truncatedDigest, m.Opts, m.now())
	if lookupErr != nil {
		return ciphersuite.Hash{}, pskResult{}, tlserrors.ErrCryptoBackendFailure
	}

	hctx.AddMessage(ev.Serialized[cut:])
	return hctx.CurrentDigest(), result, nil
}

// now returns the server's notion of current time for PSK clock-skew
// bookkeeping. Split out so it can be overridden by tests.
func (m *Machine) now() int64 {
	return m.Opts.Clock()
}

func (m *Machine) sendHelloRetryRequest(ev EventClientHello, suite ciphersuite.Suite, group keyexchange.Group) []Action {
	hrr := handshake.MsgServerHello{CipherSuite: suite.ID()}
	hrr.SetHelloRetryRequest()
	hrr.Extensions.SupportedVersionsSet = true
	hrr.Extensions.SupportedVersions.SelectedVersion = handshake.TLS_VERSION_13
	hrr.Extensions.KeyShareSet = true
	hrr.Extensions.KeyShare.HRRSelectedGroupSet = true
	hrr.Extensions.KeyShare.HRRSelectedGroup = uint16(group)
	if m.Opts.MiddleboxCompatibility {
		hrr.LegacySessionID = ev.Message.LegacySessionID
	}

	msg := handshake.Message{MsgType: handshake.HandshakeTypeServerHello, Body: hrr.Write(nil)}
	serialized := msg.Write(nil)

	hctx := keys.NewHandshakeContext(suite)
	hctx.AddMessage(ev.Serialized)
	hctx.ReplaceWithMessageHash()
	hctx.AddMessage(serialized)

	m.State.HandshakeContext = hctx
	m.State.hrrSelectedGroup = group
	m.State.Phase = PhaseExpectingClientHelloRetry

	protected, protectErr := m.State.WriteRecordLayer.Protect(nil, record.TypeHandshake, serialized, 0)
	if protectErr != nil {
		return m.fail(tlserrors.ErrCryptoBackendFailure)
	}
	return []Action{WriteToSocket{Bytes: protected}}
}

// finishClientHelloNegotiation runs the negotiation steps that are common to
// both the direct-match and post-HelloRetryRequest paths once the named
// group and key share are settled: ALPN, signature scheme (when a
// certificate will actually be sent), early data, the (EC)DHE shared secret,
// ServerHello, handshake traffic keys, and the rest of the server's flight.
func (m *Machine) finishClientHelloNegotiation(ctx context.Context, ch *handshake.MsgClientHello, suite ciphersuite.Suite, group keyexchange.Group, share handshake.KeyShare, psk pskResult, ch1Digest ciphersuite.Hash, earlyDataEligible bool) []Action {
	alpn, err := negotiateALPN(ch, m.Opts)
	if err != nil {
		return m.fail(err)
	}

	m.State.PSKType = PSKTypeNotAttempted
	if ch.Extensions.PreSharedKeySet {
		m.State.PSKType = PSKTypeRejected
	}
	if psk.accepted {
		m.State.PSKType = PSKTypeResumption
		m.State.ReplayResult = psk.replay
		m.State.ClientClockSkew = psk.clockSkew
	}

	var scheme uint16
	if !psk.accepted {
		scheme, err = negotiateSignatureScheme(ch.Extensions.SignatureAlgorithms, m.Opts)
		if err != nil {
			return m.fail(err)
		}
	}
	m.State.SignatureScheme = scheme
	m.State.ALPN = alpn

	earlyDataType := EarlyDataNotAttempted
	if earlyDataEligible {
		earlyDataType = negotiateEarlyData(ch, psk, suite, alpn, m.Opts)
	} else if ch.Extensions.EarlyDataSet {
		earlyDataType = EarlyDataRejected
	}
	m.State.EarlyDataType = earlyDataType

	ephemeral, genErr := keyexchange.Generate(m.Opts.Rnd, group)
	if genErr != nil {
		return m.fail(tlserrors.ErrCryptoBackendFailure)
	}
	dhShared, dhErr := ephemeral.SharedSecret(share)
	if dhErr != nil {
		return m.fail(tlserrors.ErrPeerKeyShareInvalid)
	}

	var pskBytes []byte
	if psk.accepted {
		pskBytes = psk.state.ResumptionMasterSecret
	}
	m.State.KeyScheduler.InitialSecret(pskBytes)
	m.State.KeyScheduler.HandshakeSecret(dhShared)

	var actions []Action

	sh := handshake.MsgServerHello{CipherSuite: suite.ID()}
	sh.Extensions.SupportedVersionsSet = true
	sh.Extensions.SupportedVersions.SelectedVersion = handshake.TLS_VERSION_13
	sh.Extensions.KeyShareSet = true
	sh.Extensions.KeyShare = ephemeral.PublicKeyShare()
	if psk.accepted {
		sh.Extensions.PreSharedKeySet = true
		sh.Extensions.PreSharedKey.SelectedIdentity = uint16(psk.identityID)
	}
	if m.Opts.MiddleboxCompatibility {
		sh.LegacySessionID = ch.LegacySessionID
	}
	shMsg := handshake.Message{MsgType: handshake.HandshakeTypeServerHello, Body: sh.Write(nil)}
	shBytes := shMsg.Write(nil)
	m.State.HandshakeContext.AddMessage(shBytes)

	shRecord, err2 := m.State.WriteRecordLayer.Protect(nil, record.TypeHandshake, shBytes, 0)
	if err2 != nil {
		return m.fail(tlserrors.ErrCryptoBackendFailure)
	}
	actions = append(actions, WriteToSocket{Bytes: shRecord})

	if m.Opts.MiddleboxCompatibility {
		ccsRecord, ccsErr := m.State.WriteRecordLayer.Protect(nil, record.TypeChangeCipherSpec, []byte{1}, 0)
		if ccsErr != nil {
			return m.fail(tlserrors.ErrCryptoBackendFailure)
		}
		actions = append(actions, WriteToSocket{Bytes: ccsRecord})
	}

	transcriptHash := m.State.HandshakeContext.CurrentDigest()
	cHSSecret, cHSKey, cHSIV := m.State.KeyScheduler.DeriveTrafficKey("c hs traffic", transcriptHash)
	sHSSecret, sHSKey, sHSIV := m.State.KeyScheduler.DeriveTrafficKey("s hs traffic", transcriptHash)
	m.State.ClientHandshakeSecret = cHSSecret

	sAEAD, aeadErr := suite.NewAEAD(sHSKey)
	if aeadErr != nil {
		return m.fail(tlserrors.ErrCryptoBackendFailure)
	}
	cAEAD, aeadErr := suite.NewAEAD(cHSKey)
	if aeadErr != nil {
		return m.fail(tlserrors.ErrCryptoBackendFailure)
	}
	m.State.WriteRecordLayer.Install(sAEAD, sHSIV)
	actions = append(actions, SetWriteRecordLayer{Layer: m.State.WriteRecordLayer})

	if earlyDataType == EarlyDataAccepted {
		_, earlyKey, earlyIV := m.State.KeyScheduler.EarlyTrafficKey(ch1Digest)
		m.State.EarlyExporterMasterSecret = m.State.KeyScheduler.DeriveEarlyExporterMasterSecret(ch1Digest)
		earlyAEAD, earlyAEADErr := suite.NewAEAD(earlyKey)
		if earlyAEADErr != nil {
			return m.fail(tlserrors.ErrCryptoBackendFailure)
		}
		m.State.ReadRecordLayer.Install(earlyAEAD, earlyIV)
		m.State.HandshakeReadRecordLayer = &record.Layer{}
		m.State.HandshakeReadRecordLayer.Install(cAEAD, cHSIV)
		m.State.earlyDataMaxSize = psk.state.MaxEarlyDataSize
		m.State.earlyDataBytesReceived = 0
		m.State.earlyDataRecordsReceived = 0
		actions = append(actions, SetReadRecordLayer{Layer: m.State.ReadRecordLayer}, ReportEarlyHandshakeSuccess{})
		m.State.Phase = PhaseAcceptingEarlyData
	} else {
		m.State.ReadRecordLayer.Install(cAEAD, cHSIV)
		actions = append(actions, SetReadRecordLayer{Layer: m.State.ReadRecordLayer})
		m.State.Phase = PhaseExpectingFinished
	}

	flightActions, flightErr := m.buildServerFlight(ctx, alpn, earlyDataType, psk.accepted)
	if flightErr != nil {
		return m.fail(flightErr)
	}
	actions = append(actions, flightActions...)

	// The server's own Finished always closes its flight, per
	// [rfc8446:4.4.4], regardless of which of ExpectingFinished,
	// ExpectingCertificate (client auth requested), or AcceptingEarlyData
	// buildServerFlight/the branch above left Phase at.
	preFinishedTranscript := m.State.HandshakeContext.CurrentDigest()
	verifyData := keys.ComputeFinished(suite, sHSSecret, preFinishedTranscript)
	finMsg := handshake.Message{MsgType: handshake.HandshakeTypeFinished, Body: (&handshake.MsgFinished{VerifyData: verifyData.GetValue()}).Write(nil)}
	finBytes := finMsg.Write(nil)
	m.State.HandshakeContext.AddMessage(finBytes)
	finRecord, finErr := m.State.WriteRecordLayer.Protect(nil, record.TypeHandshake, finBytes, 0)
	if finErr != nil {
		return m.fail(tlserrors.ErrCryptoBackendFailure)
	}
	actions = append(actions, WriteToSocket{Bytes: finRecord})

	m.State.KeyScheduler.MasterSecret()
	m.State.ExporterMasterSecret = m.State.KeyScheduler.DeriveExporterMasterSecret(m.State.HandshakeContext.CurrentDigest())

	return actions
}

// buildServerFlight emits EncryptedExtensions, an optional
// CertificateRequest, and (unless a PSK was accepted, per spec scenario 3)
// Certificate/CertificateVerify. Finished is deliberately NOT included here:
// the spec's edge case "server Finished may need to be delayed behind an
// async sign" is honored by keeping Finished's own transcript/secret
// derivation in its own step, even though this module performs that step
// synchronously right after.
func (m *Machine) buildServerFlight(ctx context.Context, alpn string, earlyDataType EarlyDataType, pskAccepted bool) ([]Action, *tlserrors.Error) {
	var actions []Action
	write := func(body []byte, msgType handshake.MsgType) ([]byte, *tlserrors.Error) {
		msg := handshake.Message{MsgType: msgType, Body: body}
		serialized := msg.Write(nil)
		m.State.HandshakeContext.AddMessage(serialized)
		rec, err := m.State.WriteRecordLayer.Protect(nil, record.TypeHandshake, serialized, 0)
		if err != nil {
			return nil, tlserrors.ErrCryptoBackendFailure
		}
		return rec, nil
	}

	ee := handshake.ExtensionsSet{}
	if alpn != "" {
		if addErr := ee.ALPN.AddProtocol([]byte(alpn)); addErr != nil {
			return nil, tlserrors.ErrNoApplicationProtocol
		}
		ee.ALPNSet = true
	}
	if earlyDataType == EarlyDataAccepted {
		ee.EarlyDataSet = true
	}
	eeBody := ee.Write(nil, false, false, false, nil)
	eeRecord, err := write(eeBody, handshake.HandshakeTypeEncryptedExtensions)
	if err != nil {
		return nil, err
	}
	actions = append(actions, WriteToSocket{Bytes: eeRecord})

	if pskAccepted {
		return actions, nil
	}

	if m.Opts.RequireClientCertificate {
		cr := handshake.MsgCertificateRequest{}
		cr.Extensions.SignatureAlgorithmsSet = true
		for _, s := range m.Opts.SignatureSchemePreference {
			setSignatureAlgorithm(&cr.Extensions.SignatureAlgorithms, s)
		}
		crRecord, crErr := write(cr.Write(nil), handshake.HandshakeTypeCertificateRequest)
		if crErr != nil {
			return nil, crErr
		}
		actions = append(actions, WriteToSocket{Bytes: crRecord})
		m.State.Phase = PhaseExpectingCertificate
	}

	chain, signer, srcErr := m.Opts.CertificateSource.Chain("", alpnList(alpn), m.Opts.SignatureSchemePreference)
	if srcErr != nil {
		return nil, tlserrors.ErrNoServerCertificateConfigured
	}
	m.State.ServerCert = chain
	m.State.ServerSigner = signer

	certMsg := handshake.MsgCertificate{CertificatesLength: len(chain.Raw)}
	for i, der := range chain.Raw {
		certMsg.Certificates[i].CertData = der
	}
	certRecord, certErr := write(certMsg.Write(nil), handshake.HandshakeTypeCertificate)
	if certErr != nil {
		return nil, certErr
	}
	actions = append(actions, WriteToSocket{Bytes: certRecord})

	certVerifyTranscriptHash := m.State.HandshakeContext.CurrentDigest()
	var sigMessageStorage [128]byte
	var sigMessage []byte
	if m.State.SignatureScheme == handshake.SignatureAlgorithm_ED25519 {
		// Ed25519 is never pre-hashed: it signs the raw covered content.
		sigMessage = signature.CalculateCoveredContent(true, certVerifyTranscriptHash.GetValue(), sigMessageStorage[:0])
	} else {
		sigMessage = signature.CalculateCoveredContentHash(suiteHasherFor(m.State.CipherSuite), true, certVerifyTranscriptHash.GetValue(), sigMessageStorage[:0])
	}
	sig, signErr := signer.Sign(ctx, m.State.SignatureScheme, sigMessage)
	if signErr != nil {
		return nil, tlserrors.ErrCryptoBackendFailure
	}
	cv := handshake.MsgCertificateVerify{SignatureScheme: m.State.SignatureScheme, Signature: sig}
	cvRecord, cvErr := write(cv.Write(nil), handshake.HandshakeTypeCertificateVerify)
	if cvErr != nil {
		return nil, cvErr
	}
	actions = append(actions, WriteToSocket{Bytes: cvRecord})

	if m.State.Phase != PhaseExpectingCertificate {
		m.State.Phase = PhaseExpectingFinished
	}
	return actions, nil
}

// suiteHasherFor picks the hasher CalculateCoveredContentHash uses for every
// signature scheme but Ed25519, per [rfc8446:4.4.3].
func suiteHasherFor(suite ciphersuite.Suite) interface {
	Write(p []byte) (int, error)
	Sum(b []byte) []byte
	Reset()
	Size() int
	BlockSize() int
} {
	if suite == nil {
		return sha256.New()
	}
	return suite.NewHasher()
}

func alpnList(alpn string) []string {
	if alpn == "" {
		return nil
	}
	return []string{alpn}
}

func setSignatureAlgorithm(sa *handshake.SignatureAlgorithms, scheme uint16) {
	switch scheme {
	case handshake.SignatureAlgorithm_ECDSA_SECP256r1_SHA256:
		sa.ECDSA_SECP256r1_SHA256 = true
	case handshake.SignatureAlgorithm_ECDSA_SECP384r1_SHA384:
		sa.ECDSA_SECP384r1_SHA384 = true
	case handshake.SignatureAlgorithm_ECDSA_SECP512r1_SHA512:
		sa.ECDSA_SECP512r1_SHA512 = true
	case handshake.SignatureAlgorithm_ED25519:
		sa.ED25519 = true
	case handshake.SignatureAlgorithm_ED448:
		sa.ED448 = true
	case handshake.SignatureAlgorithm_RSA_PKCS1_SHA512:
		sa.RSA_PKCS1_SHA512 = true
	case handshake.SignatureAlgorithm_RSA_PKCS1_SHA384:
		sa.RSA_PKCS1_SHA384 = true
	case handshake.SignatureAlgorithm_RSA_PKCS1_SHA256:
		sa.RSA_PKCS1_SHA256 = true
	case handshake.SignatureAlgorithm_RSA_PSS_RSAE_SHA512:
		sa.RSA_PSS_RSAE_SHA512 = true
	case handshake.SignatureAlgorithm_RSA_PSS_PSS_SHA512:
		sa.RSA_PSS_PSS_SHA512 = true
	case handshake.SignatureAlgorithm_RSA_PSS_RSAE_SHA384:
		sa.RSA_PSS_RSAE_SHA384 = true
	case handshake.SignatureAlgorithm_RSA_PSS_PSS_SHA384:
		sa.RSA_PSS_PSS_SHA384 = true
	case handshake.SignatureAlgorithm_RSA_PSS_RSAE_SHA256:
		sa.RSA_PSS_RSAE_SHA256 = true
	case handshake.SignatureAlgorithm_RSA_PSS_PSS_SHA256:
		sa.RSA_PSS_PSS_SHA256 = true
	}
}
