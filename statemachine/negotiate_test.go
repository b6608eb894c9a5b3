// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvaas/tls13/ciphersuite"
	"github.com/kvaas/tls13/handshake"
)

func TestNegotiateVersionRequiresTLS13(t *testing.T) {
	ch := clientHelloFixture(t)
	v, err := negotiateVersion(ch)
	require.NoError(t, err)
	assert.Equal(t, uint16(handshake.TLS_VERSION_13), v)

	ch.Extensions.SupportedVersionsSet = false
	_, err = negotiateVersion(ch)
	assert.Error(t, err)
}

func TestNegotiateCipherSuiteHonorsClientOrderWithinServerAllowlist(t *testing.T) {
	ch := clientHelloFixture(t)
	// offer CHACHA20 before AES_128_GCM; server allows both, client order wins.
	var body []byte
	body = append(body, byte(ciphersuite.TLS_CHACHA20_POLY1305_SHA256>>8), byte(ciphersuite.TLS_CHACHA20_POLY1305_SHA256&0xff))
	body = append(body, byte(ciphersuite.TLS_AES_128_GCM_SHA256>>8), byte(ciphersuite.TLS_AES_128_GCM_SHA256&0xff))
	ch.CipherSuites = handshake.CipherSuites{}
	require.NoError(t, ch.CipherSuites.Parse(body))

	opts := newTestOptions(t)
	suite, err := negotiateCipherSuite(ch, opts)
	require.NoError(t, err)
	assert.Equal(t, ciphersuite.TLS_CHACHA20_POLY1305_SHA256, suite.ID())
}

func TestNegotiateCipherSuiteNoMutualSuite(t *testing.T) {
	ch := clientHelloFixture(t)
	opts := newTestOptions(t)
	opts.CipherSuitePreference = []ciphersuite.ID{ciphersuite.TLS_AES_256_GCM_SHA384}
	_, err := negotiateCipherSuite(ch, opts)
	assert.Error(t, err)
}

func TestNegotiateGroupDirectMatch(t *testing.T) {
	ch := clientHelloFixture(t)
	opts := newTestOptions(t)
	group, _, matched, _, hrrPossible := negotiateGroup(ch, opts)
	assert.True(t, matched)
	assert.False(t, hrrPossible)
	assert.EqualValues(t, handshake.SupportedGroupX25519, group)
}

func TestNegotiateGroupFallsBackToHelloRetryRequest(t *testing.T) {
	ch := clientHelloFixture(t)
	// client's key_share offers nothing the server prefers, but
	// supported_groups says it could do X25519 if asked again.
	ch.Extensions.KeyShare = handshake.KeyShare{}
	ch.Extensions.SupportedGroupsSet = true
	ch.Extensions.SupportedGroups.X25519 = true

	opts := newTestOptions(t)
	_, _, matched, hrrGroup, hrrPossible := negotiateGroup(ch, opts)
	assert.False(t, matched)
	assert.True(t, hrrPossible)
	assert.EqualValues(t, handshake.SupportedGroupX25519, hrrGroup)
}

func TestNegotiateGroupNoKeyShareExtension(t *testing.T) {
	ch := clientHelloFixture(t)
	ch.Extensions.KeyShareSet = false
	opts := newTestOptions(t)
	_, _, matched, _, hrrPossible := negotiateGroup(ch, opts)
	assert.False(t, matched)
	assert.False(t, hrrPossible)
}

func TestNegotiateALPNServerOrderWithinOffered(t *testing.T) {
	ch := clientHelloFixture(t)
	ch.Extensions.ALPNSet = true
	require.NoError(t, ch.Extensions.ALPN.AddProtocol([]byte("http/1.1")))
	require.NoError(t, ch.Extensions.ALPN.AddProtocol([]byte("h2")))

	opts := newTestOptions(t)
	opts.ALPNPreference = []string{"h2", "http/1.1"}
	proto, err := negotiateALPN(ch, opts)
	require.NoError(t, err)
	assert.Equal(t, "h2", proto)
}

func TestNegotiateALPNNoOverlap(t *testing.T) {
	ch := clientHelloFixture(t)
	ch.Extensions.ALPNSet = true
	require.NoError(t, ch.Extensions.ALPN.AddProtocol([]byte("ftp")))

	opts := newTestOptions(t)
	opts.ALPNPreference = []string{"h2"}
	_, err := negotiateALPN(ch, opts)
	assert.Error(t, err)
}

func TestNegotiateSignatureSchemeServerPreferenceOrderWins(t *testing.T) {
	ch := clientHelloFixture(t)
	ch.Extensions.SignatureAlgorithms.ECDSA_SECP256r1_SHA256 = true
	ch.Extensions.SignatureAlgorithms.ED25519 = true

	opts := newTestOptions(t)
	opts.SignatureSchemePreference = []uint16{
		handshake.SignatureAlgorithm_ED25519,
		handshake.SignatureAlgorithm_ECDSA_SECP256r1_SHA256,
	}
	scheme, err := negotiateSignatureScheme(ch.Extensions.SignatureAlgorithms, opts)
	require.NoError(t, err)
	assert.EqualValues(t, handshake.SignatureAlgorithm_ED25519, scheme)
}

func TestNegotiateSignatureSchemeNoMutualScheme(t *testing.T) {
	opts := newTestOptions(t)
	opts.SignatureSchemePreference = []uint16{handshake.SignatureAlgorithm_RSA_PSS_RSAE_SHA256}
	_, err := negotiateSignatureScheme(handshake.SignatureAlgorithms{}, opts)
	assert.Error(t, err)
}
