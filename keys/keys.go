// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

// Package keys implements the [rfc8446:7] key schedule: the
// Early/Handshake/Master secret chain, traffic secret derivation per
// direction and phase, Finished-key HMACs, resumption/exporter secrets, and
// the [rfc8446:7.2] KeyUpdate re-derivation. Generalized from the teacher's
// fixed SHA-256/AES-128-GCM keys.go (an earlier generation of the same
// derivation chain, hardcoded to one suite) onto the three-suite
// ciphersuite.Suite abstraction.
package keys

import (
	"github.com/kvaas/tls13/ciphersuite"
)

// Scheduler holds the running secret chain of [rfc8446:7.1]'s key schedule
// diagram for one connection. Early/Handshake/Master secrets are kept
// individually (not just the "current" link) because resumption and
// exporter secrets are derived from the Master Secret long after the chain
// has advanced past it.
type Scheduler struct {
	suite ciphersuite.Suite

	earlySecret     ciphersuite.Hash
	handshakeSecret ciphersuite.Hash
	masterSecret    ciphersuite.Hash
}

func NewScheduler(suite ciphersuite.Suite) *Scheduler {
	return &Scheduler{suite: suite}
}

// deriveSecret implements [rfc8446:7.1]'s Derive-Secret(Secret, Label,
// Messages), with transcriptHash already computed by the caller (the empty
// transcript hash for the "derived" links in the chain).
func deriveSecret(suite ciphersuite.Suite, secret ciphersuite.Hash, label string, transcriptHash ciphersuite.Hash) ciphersuite.Hash {
	hmacSecret := suite.NewHMAC(secret.GetValue())
	var out ciphersuite.Hash
	out.SetZero(hmacSecret.Size())
	ciphersuite.HKDFExpandLabel(out.GetValue(), hmacSecret, label, transcriptHash.GetValue())
	return out
}

// InitialSecret installs the Early Secret from psk (external or resumption
// PSK), or from an all-zero IKM of the suite's hash length when no PSK was
// negotiated, per [rfc8446:7.1].
func (ks *Scheduler) InitialSecret(psk []byte) {
	if len(psk) == 0 {
		psk = make([]byte, ks.suite.HashLength())
	}
	ks.earlySecret = ciphersuite.HKDFExtract(ks.suite.NewHMAC(nil), psk)
}

// HandshakeSecret advances the chain to the Handshake Secret using the
// (EC)DHE shared secret.
func (ks *Scheduler) HandshakeSecret(dhShared []byte) {
	derived := deriveSecret(ks.suite, ks.earlySecret, "derived", ks.suite.EmptyHash())
	ks.handshakeSecret = ciphersuite.HKDFExtract(ks.suite.NewHMAC(derived.GetValue()), dhShared)
}

// MasterSecret advances the chain to the Master Secret.
func (ks *Scheduler) MasterSecret() {
	derived := deriveSecret(ks.suite, ks.handshakeSecret, "derived", ks.suite.EmptyHash())
	zeros := make([]byte, ks.suite.HashLength())
	ks.masterSecret = ciphersuite.HKDFExtract(ks.suite.NewHMAC(derived.GetValue()), zeros)
}

// parentSecret maps a [rfc8446:7.1] traffic-secret label to the secret it is
// derived from in the key schedule diagram.
func (ks *Scheduler) parentSecret(secretLabel string) ciphersuite.Hash {
	switch secretLabel {
	case "ext binder", "res binder", "c e traffic", "e exp master":
		return ks.earlySecret
	case "c hs traffic", "s hs traffic":
		return ks.handshakeSecret
	case "c ap traffic", "s ap traffic", "exp master", "res master":
		return ks.masterSecret
	default:
		panic("keys: unknown traffic secret label " + secretLabel)
	}
}

// DeriveTrafficKey derives the named traffic secret (see parentSecret for
// the accepted labels) over transcriptHash, then expands it into an
// AEAD key and IV for the connection's cipher suite.
func (ks *Scheduler) DeriveTrafficKey(secretLabel string, transcriptHash ciphersuite.Hash) (secret ciphersuite.Hash, key, iv []byte) {
	secret = deriveSecret(ks.suite, ks.parentSecret(secretLabel), secretLabel, transcriptHash)
	key = make([]byte, ks.suite.KeyLength())
	iv = make([]byte, ks.suite.IVLength())
	hmacSecret := ks.suite.NewHMAC(secret.GetValue())
	ciphersuite.HKDFExpandLabel(key, hmacSecret, "key", nil)
	ciphersuite.HKDFExpandLabel(iv, hmacSecret, "iv", nil)
	return secret, key, iv
}

// BinderKey derives the PSK binder key ("ext binder" for an externally
// provisioned PSK, "res binder" for a resumption ticket) used to validate
// the pre_shared_key extension's binder value.
func (ks *Scheduler) BinderKey(label string) ciphersuite.Hash {
	return deriveSecret(ks.suite, ks.earlySecret, label, ks.suite.EmptyHash())
}

// EarlyTrafficKey derives the client's 0-RTT traffic secret/key/IV over the
// transcript hash of ClientHello1.
func (ks *Scheduler) EarlyTrafficKey(transcriptHash ciphersuite.Hash) (secret ciphersuite.Hash, key, iv []byte) {
	return ks.DeriveTrafficKey("c e traffic", transcriptHash)
}

// DeriveResumptionMasterSecret derives the secret NewSessionTicket's ticket
// is issued from, over the transcript hash that includes the client's Finished.
func (ks *Scheduler) DeriveResumptionMasterSecret(transcriptHash ciphersuite.Hash) ciphersuite.Hash {
	return deriveSecret(ks.suite, ks.masterSecret, "res master", transcriptHash)
}

// DeriveExporterMasterSecret derives the secret [rfc8446:7.5] exporters are
// computed from, over the transcript hash up to (not including) the
// client's Finished.
func (ks *Scheduler) DeriveExporterMasterSecret(transcriptHash ciphersuite.Hash) ciphersuite.Hash {
	return deriveSecret(ks.suite, ks.masterSecret, "exp master", transcriptHash)
}

// DeriveEarlyExporterMasterSecret is the 0-RTT analogue of
// DeriveExporterMasterSecret, derived from the Early Secret.
func (ks *Scheduler) DeriveEarlyExporterMasterSecret(transcriptHash ciphersuite.Hash) ciphersuite.Hash {
	return deriveSecret(ks.suite, ks.earlySecret, "e exp master", transcriptHash)
}

// DeriveExporter implements [rfc8446:7.5]'s exporter_value computation from
// an exporter master secret (ordinary or early), an application-chosen
// label, and application-chosen context.
func (ks *Scheduler) DeriveExporter(exporterMasterSecret ciphersuite.Hash, label string, context []byte, length int) []byte {
	derivedLabelSecret := deriveSecret(ks.suite, exporterMasterSecret, label, ks.suite.EmptyHash())

	contextHasher := ks.suite.NewHasher()
	contextHasher.Write(context)
	var contextHash ciphersuite.Hash
	contextHash.SetSum(contextHasher)

	out := make([]byte, length)
	hmacSecret := ks.suite.NewHMAC(derivedLabelSecret.GetValue())
	ciphersuite.HKDFExpandLabel(out, hmacSecret, "exporter", contextHash.GetValue())
	return out
}
