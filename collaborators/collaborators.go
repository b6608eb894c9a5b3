// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

// Package collaborators defines the narrow interfaces the handshake state
// machine calls out to for everything spec §1 keeps out of scope: loading a
// certificate chain and signing with its key, ticket storage, replay
// detection, and early-data application-token validation. None of these are
// implemented by the core; `statemachine` only ever holds these interfaces.
package collaborators

import (
	"context"
	"crypto/x509"
)

// CertificateSource selects a certificate chain and its signer for a given
// ClientHello's SNI/ALPN/offered signature schemes. The returned Signer's
// lifetime matches the chain's.
type CertificateSource interface {
	Chain(sni string, alpn []string, offeredSchemes []uint16) (Chain, Signer, error)
}

// Chain is a shared-immutable certificate chain, leaf first.
type Chain struct {
	Raw  [][]byte // DER-encoded, as placed on the wire
	Leaf *x509.Certificate
}

// Signer performs the private-key operation behind a CertificateVerify.
// scheme is one of handshake's SignatureAlgorithm_* IDs; transcriptDigest is
// the covered-content hash (or, for Ed25519, the raw covered content) from
// the signature package. Sign is async because the private key may live
// behind an HSM or remote KMS call.
type Signer interface {
	Sign(ctx context.Context, scheme uint16, transcriptDigest []byte) ([]byte, error)
}

// PeerCert is the result of verifying a client certificate chain.
type PeerCert struct {
	Leaf *x509.Certificate
}

// Verifier checks a client certificate chain against the server's trust policy.
type Verifier interface {
	Verify(ctx context.Context, chain [][]byte, sni string) (PeerCert, error)
}

// PSKType mirrors statemachine's psk_type field, duplicated here so
// collaborators does not import statemachine (it would be the only reverse
// edge in the dependency graph).
type PSKType int

const (
	PSKTypeNotAttempted PSKType = iota
	PSKTypeResumption
	PSKTypeExternal
)

// ResumptionState is what a ticket decrypts to, and what gets re-encoded
// into a new ticket when the server issues one.
type ResumptionState struct {
	Type                 PSKType
	CipherSuite          uint16
	ALPN                 string
	ResumptionMasterSecret []byte
	CreatedAt            int64 // unix seconds; used to compute obfuscated_ticket_age
	MaxEarlyDataSize     uint32
}

// TicketStore persists and retrieves resumption tickets. Both operations are
// async: a real store is typically a database or distributed cache.
type TicketStore interface {
	Lookup(ctx context.Context, ticketID []byte) (ResumptionState, bool, error)
	Store(ctx context.Context, state ResumptionState) (ticketID []byte, err error)
}

// ReplayResult is the outcome of checking a PSK binder hash against the
// replay cache, per spec §6.
type ReplayResult int

const (
	ReplayUnknown ReplayResult = iota
	ReplayAccepted
	ReplayDuplicate
)

// ReplayCache is shared across connections and must be concurrency-safe
// internally; the core treats it as an opaque synchronous check.
type ReplayCache interface {
	Check(pskBinderHash []byte) (ReplayResult, error)
}

// AppTokenValidator gates 0-RTT acceptance on application-level policy (e.g.
// idempotency of the early request) beyond what the replay cache alone can tell.
type AppTokenValidator interface {
	Validate(state ResumptionState) bool
}
