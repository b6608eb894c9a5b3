// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package keys

import (
	"bytes"
	"testing"

	"github.com/kvaas/tls13/ciphersuite"
)

func TestSchedulerDerivesDistinctTrafficSecrets(t *testing.T) {
	suite, ok := ciphersuite.GetSuite(ciphersuite.TLS_AES_128_GCM_SHA256)
	if !ok {
		t.Fatal("suite not registered")
	}
	ks := NewScheduler(suite)
	ks.InitialSecret(nil)
	ks.HandshakeSecret(bytes.Repeat([]byte{0x07}, 32))
	ks.MasterSecret()

	var transcriptHash ciphersuite.Hash
	transcriptHash.SetValue(bytes.Repeat([]byte{0x09}, suite.HashLength()))

	clientSecret, clientKey, clientIV := ks.DeriveTrafficKey("c hs traffic", transcriptHash)
	serverSecret, serverKey, serverIV := ks.DeriveTrafficKey("s hs traffic", transcriptHash)

	if clientSecret.Equal(serverSecret) {
		t.Error("client and server handshake traffic secrets must differ")
	}
	if bytes.Equal(clientKey, serverKey) {
		t.Error("client and server write keys must differ")
	}
	if bytes.Equal(clientIV, serverIV) {
		t.Error("client and server write IVs must differ")
	}
	if len(clientKey) != suite.KeyLength() || len(clientIV) != suite.IVLength() {
		t.Errorf("key/iv length = %d/%d, want %d/%d", len(clientKey), len(clientIV), suite.KeyLength(), suite.IVLength())
	}
}

func TestFinishedVerifyDataDeterministic(t *testing.T) {
	suite, _ := ciphersuite.GetSuite(ciphersuite.TLS_AES_128_GCM_SHA256)
	var secret, transcript ciphersuite.Hash
	secret.SetValue(bytes.Repeat([]byte{0x01}, suite.HashLength()))
	transcript.SetValue(bytes.Repeat([]byte{0x02}, suite.HashLength()))

	a := ComputeFinished(suite, secret, transcript)
	b := ComputeFinished(suite, secret, transcript)
	if !a.Equal(b) {
		t.Error("ComputeFinished must be deterministic over the same inputs")
	}

	var otherTranscript ciphersuite.Hash
	otherTranscript.SetValue(bytes.Repeat([]byte{0x03}, suite.HashLength()))
	c := ComputeFinished(suite, secret, otherTranscript)
	if a.Equal(c) {
		t.Error("ComputeFinished must depend on the transcript hash")
	}
}

func TestReplaceWithMessageHashChangesDigest(t *testing.T) {
	suite, _ := ciphersuite.GetSuite(ciphersuite.TLS_AES_128_GCM_SHA256)
	hc := NewHandshakeContext(suite)
	hc.AddMessage([]byte("ClientHello1"))
	beforeHRR := hc.CurrentDigest()

	hc.ReplaceWithMessageHash()
	afterSubstitution := hc.CurrentDigest()
	if beforeHRR.Equal(afterSubstitution) {
		t.Error("ReplaceWithMessageHash must change the running digest")
	}

	hc.AddMessage([]byte("HelloRetryRequest"))
	hc.AddMessage([]byte("ClientHello2"))
	finalDigest := hc.CurrentDigest()
	if finalDigest.Equal(afterSubstitution) {
		t.Error("adding messages after substitution must keep advancing the digest")
	}
}

func TestNextApplicationTrafficSecretAdvances(t *testing.T) {
	suite, _ := ciphersuite.GetSuite(ciphersuite.TLS_AES_128_GCM_SHA256)
	var secret ciphersuite.Hash
	secret.SetValue(bytes.Repeat([]byte{0x04}, suite.HashLength()))

	next := NextApplicationTrafficSecret(suite, secret)
	if next.Equal(secret) {
		t.Error("KeyUpdate must produce a new traffic secret")
	}
	again := NextApplicationTrafficSecret(suite, secret)
	if !next.Equal(again) {
		t.Error("NextApplicationTrafficSecret must be deterministic")
	}
}
