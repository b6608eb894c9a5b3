// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package signature

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"testing"

	"github.com/kvaas/tls13/handshake"
)

func TestRSAPSSRoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	content := CalculateCoveredContent(true, []byte("transcript-hash"), nil)
	digest := sha256.Sum256(content)

	sig, err := Sign(handshake.SignatureAlgorithm_RSA_PSS_RSAE_SHA256, priv, digest[:])
	if err != nil {
		t.Fatal(err)
	}
	if err := Verify(handshake.SignatureAlgorithm_RSA_PSS_RSAE_SHA256, &priv.PublicKey, digest[:], sig); err != nil {
		t.Errorf("verify failed: %v", err)
	}
}

func TestECDSARoundTrip(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	content := CalculateCoveredContent(true, []byte("transcript-hash"), nil)
	digest := sha256.Sum256(content)

	sig, err := Sign(handshake.SignatureAlgorithm_ECDSA_SECP256r1_SHA256, priv, digest[:])
	if err != nil {
		t.Fatal(err)
	}
	if err := Verify(handshake.SignatureAlgorithm_ECDSA_SECP256r1_SHA256, &priv.PublicKey, digest[:], sig); err != nil {
		t.Errorf("verify failed: %v", err)
	}
}

func TestEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	content := CalculateCoveredContent(false, []byte("transcript-hash"), nil)

	sig, err := Sign(handshake.SignatureAlgorithm_ED25519, priv, content)
	if err != nil {
		t.Fatal(err)
	}
	if err := Verify(handshake.SignatureAlgorithm_ED25519, pub, content, sig); err != nil {
		t.Errorf("verify failed: %v", err)
	}
}

func TestVerifyRejectsWrongKeyType(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	err = Verify(handshake.SignatureAlgorithm_ECDSA_SECP256r1_SHA256, pub, []byte("x"), []byte("y"))
	if err != ErrCertificateWrongPublicKeyType {
		t.Errorf("got %v, want ErrCertificateWrongPublicKeyType", err)
	}
}
