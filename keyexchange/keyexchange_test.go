// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package keyexchange

import (
	"bytes"
	"testing"

	"github.com/kvaas/tls13/dtlsrand"
)

func TestX25519SharedSecretMatchesBothSides(t *testing.T) {
	client, err := Generate(dtlsrand.CryptoRand(), GroupX25519)
	if err != nil {
		t.Fatal(err)
	}
	server, err := Generate(dtlsrand.CryptoRand(), GroupX25519)
	if err != nil {
		t.Fatal(err)
	}

	clientShared, err := client.SharedSecret(server.PublicKeyShare())
	if err != nil {
		t.Fatal(err)
	}
	serverShared, err := server.SharedSecret(client.PublicKeyShare())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(clientShared, serverShared) {
		t.Error("X25519 shared secrets disagree between client and server")
	}
	if len(clientShared) != 32 {
		t.Errorf("X25519 shared secret length = %d, want 32", len(clientShared))
	}
}

func TestSECP256R1SharedSecretMatchesBothSides(t *testing.T) {
	client, err := Generate(dtlsrand.CryptoRand(), GroupSECP256R1)
	if err != nil {
		t.Fatal(err)
	}
	server, err := Generate(dtlsrand.CryptoRand(), GroupSECP256R1)
	if err != nil {
		t.Fatal(err)
	}

	clientShared, err := client.SharedSecret(server.PublicKeyShare())
	if err != nil {
		t.Fatal(err)
	}
	serverShared, err := server.SharedSecret(client.PublicKeyShare())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(clientShared, serverShared) {
		t.Error("P-256 shared secrets disagree between client and server")
	}
}

func TestSharedSecretRejectsMismatchedGroup(t *testing.T) {
	client, err := Generate(dtlsrand.CryptoRand(), GroupX25519)
	if err != nil {
		t.Fatal(err)
	}
	server, err := Generate(dtlsrand.CryptoRand(), GroupSECP256R1)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.SharedSecret(server.PublicKeyShare()); err != ErrNoKeyShare {
		t.Errorf("SharedSecret across mismatched groups: got %v, want ErrNoKeyShare", err)
	}
}

func TestPeerOffersGroup(t *testing.T) {
	secret, err := Generate(dtlsrand.CryptoRand(), GroupX25519)
	if err != nil {
		t.Fatal(err)
	}
	share := secret.PublicKeyShare()
	if !PeerOffersGroup(share, GroupX25519) {
		t.Error("PeerOffersGroup(X25519) = false, want true")
	}
	if PeerOffersGroup(share, GroupSECP256R1) {
		t.Error("PeerOffersGroup(SECP256R1) = true, want false")
	}
}
