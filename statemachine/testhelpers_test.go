// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package statemachine

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/kvaas/tls13/ciphersuite"
	"github.com/kvaas/tls13/collaborators"
	"github.com/kvaas/tls13/dtlsrand"
	"github.com/kvaas/tls13/handshake"
	"github.com/kvaas/tls13/keyexchange"
	"github.com/kvaas/tls13/keys"
	"github.com/kvaas/tls13/transport/options"
)

// selfSignedEd25519Source builds a throwaway self-signed certificate so
// tests can exercise the Certificate/CertificateVerify flight without
// loading fixtures from disk, grounded on the teacher's preference for
// generating test keys inline (keys_test.go) rather than checking in PEM
// files.
func selfSignedEd25519Source(t *testing.T) collaborators.CertificateSource {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test.invalid"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, priv)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	cert := tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
		Leaf:        leaf,
	}
	return collaborators.NewStaticCertificateSource(cert)
}

func newTestOptions(t *testing.T) *options.ServerOptions {
	t.Helper()
	opts := options.DefaultServerOptions(dtlsrand.FixedRand(), logrus.NewEntry(logrus.StandardLogger()))
	opts.SignatureSchemePreference = []uint16{handshake.SignatureAlgorithm_ED25519}
	return opts
}

// clientHelloFixture builds a minimal, wire-valid ClientHello offering
// TLS_AES_128_GCM_SHA256, X25519, and Ed25519, with a real (curve-valid)
// X25519 key share produced via keyexchange.Generate rather than hand-rolled
// bytes, per the fixture-construction approach the corpus's keyexchange
// package already tests against (keyexchange_test.go generates through the same
// dtlsrand.Rand abstraction).
func clientHelloFixture(t *testing.T) *handshake.MsgClientHello {
	t.Helper()
	client, err := keyexchange.Generate(dtlsrand.FixedRand(), keyexchange.GroupX25519)
	require.NoError(t, err)

	ch := &handshake.MsgClientHello{}
	var suiteBytes []byte
	suiteBytes = append(suiteBytes, byte(ciphersuite.TLS_AES_128_GCM_SHA256>>8), byte(ciphersuite.TLS_AES_128_GCM_SHA256&0xff))
	require.NoError(t, ch.CipherSuites.Parse(suiteBytes))

	ch.Extensions.SupportedVersionsSet = true
	ch.Extensions.SupportedVersions.TLS_13 = true

	ch.Extensions.SupportedGroupsSet = true
	ch.Extensions.SupportedGroups.X25519 = true

	ch.Extensions.SignatureAlgorithmsSet = true
	ch.Extensions.SignatureAlgorithms.ED25519 = true

	ch.Extensions.KeyShareSet = true
	ch.Extensions.KeyShare = client.PublicKeyShare()

	return ch
}

// clientHelloEvent serializes ch the way server.Conn's decodeHandshakeEvent
// would, so tests exercise the same transcript bytes the wire would carry.
func clientHelloEvent(ch *handshake.MsgClientHello) EventClientHello {
	body := ch.Write(nil)
	msg := handshake.Message{MsgType: handshake.HandshakeTypeClientHello, Body: body}
	return EventClientHello{Message: ch, Serialized: msg.Write(nil)}
}

// buildAcceptingDataMachine drives a full handshake to PhaseAcceptingData so
// post-handshake tests (AppWrite, KeyUpdate, CloseNotify, NewSessionTicket)
// exercise a Machine whose installed AEADs and application traffic secrets
// are mutually consistent, rather than hand-assembling mismatched state.
func buildAcceptingDataMachine(t *testing.T) *Machine {
	t.Helper()
	opts := newTestOptions(t)
	opts.CertificateSource = selfSignedEd25519Source(t)
	m := NewMachine(opts)

	ch := clientHelloFixture(t)
	m.Handle(context.Background(), clientHelloEvent(ch))
	require.Equal(t, PhaseExpectingFinished, m.State.Phase)

	preFinished := m.State.HandshakeContext.CurrentDigest()
	verifyData := keys.ComputeFinished(m.State.CipherSuite, m.State.ClientHandshakeSecret, preFinished)
	finMsg := handshake.Message{
		MsgType: handshake.HandshakeTypeFinished,
		Body:    (&handshake.MsgFinished{VerifyData: verifyData.GetValue()}).Write(nil),
	}
	m.Handle(context.Background(), EventFinished{
		Message:    &handshake.MsgFinished{VerifyData: verifyData.GetValue()},
		Serialized: finMsg.Write(nil),
	})
	require.Equal(t, PhaseAcceptingData, m.State.Phase)
	return m
}

func requireNoFail(t *testing.T, m *Machine, actions []Action) {
	t.Helper()
	for _, a := range actions {
		if reportErr, ok := a.(ReportError); ok {
			t.Fatalf("unexpected ReportError: %v", reportErr.Err)
		}
	}
	require.NotEqual(t, PhaseError, m.State.Phase)
}
