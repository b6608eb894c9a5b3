// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

// Package statemachine implements the server-side TLS 1.3 handshake core:
// the phase graph driving ClientHello negotiation, HelloRetryRequest,
// certificate exchange, PSK resumption and 0-RTT early data, Finished
// verification, and post-handshake application data/KeyUpdate/CloseNotify
// handling. Generalized from the teacher's dtlscore connection/sm_handshake
// generation (cooperative single-threaded per-connection state, one state
// struct mutated only by transition methods) onto RFC 8446 semantics instead
// of DTLS 1.2-style cookie/flight retransmission.
package statemachine

import (
	"crypto/x509"

	"github.com/kvaas/tls13/ciphersuite"
	"github.com/kvaas/tls13/collaborators"
	"github.com/kvaas/tls13/keyexchange"
	"github.com/kvaas/tls13/keys"
	"github.com/kvaas/tls13/record"
)

// Phase is one of the handshake core's states. The spec's overview counts
// eleven states while only naming ten explicitly; the eleventh is
// PhaseExpectingClientHelloRetry, the HRR "retry latch" the transition table
// describes as "ExpectingClientHello (with retry latch)" rather than naming
// outright. Modeling it as its own Phase rather than a bool flag on
// PhaseExpectingClientHello keeps every phase-dependent switch exhaustive
// and keeps the zero value (PhaseUninitialized) meaningful.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseExpectingClientHello
	PhaseExpectingClientHelloRetry // HRR sent; waiting for the client's second ClientHello
	PhaseExpectingCertificate
	PhaseExpectingCertificateVerify
	PhaseAcceptingEarlyData
	PhaseExpectingFinished
	PhaseAcceptingData
	PhaseExpectingCloseNotify
	PhaseClosed
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "Uninitialized"
	case PhaseExpectingClientHello:
		return "ExpectingClientHello"
	case PhaseExpectingClientHelloRetry:
		return "ExpectingClientHelloRetry"
	case PhaseExpectingCertificate:
		return "ExpectingCertificate"
	case PhaseExpectingCertificateVerify:
		return "ExpectingCertificateVerify"
	case PhaseAcceptingEarlyData:
		return "AcceptingEarlyData"
	case PhaseExpectingFinished:
		return "ExpectingFinished"
	case PhaseAcceptingData:
		return "AcceptingData"
	case PhaseExpectingCloseNotify:
		return "ExpectingCloseNotify"
	case PhaseClosed:
		return "Closed"
	case PhaseError:
		return "Error"
	default:
		return "<unknown phase>"
	}
}

// Terminal reports whether p accepts no further transitions, per spec
// invariant 5.
func (p Phase) Terminal() bool {
	return p == PhaseClosed || p == PhaseError
}

type PSKType int

const (
	PSKTypeNotAttempted PSKType = iota
	PSKTypeRejected
	PSKTypeResumption
	PSKTypeExternal
)

type KeyExchangeType int

const (
	KeyExchangeNone KeyExchangeType = iota
	KeyExchangeNormal
	KeyExchangeHelloRetry
)

type EarlyDataType int

const (
	EarlyDataNotAttempted EarlyDataType = iota
	EarlyDataRejected
	EarlyDataAccepted
	EarlyDataReplay
)

// ReplayCacheResult mirrors collaborators.ReplayResult plus the "not
// consulted" case, recorded on State for diagnostics.
type ReplayCacheResult int

const (
	ReplayCacheNotConsulted ReplayCacheResult = iota
	ReplayCacheUnknown
	ReplayCacheAccepted
	ReplayCacheDuplicate
)

// HandshakeLogging holds ClientHello fields captured for diagnostics only;
// per spec §9's open question, nothing relies on it being populated.
type HandshakeLogging struct {
	ServerName     string
	OfferedSuites  []ciphersuite.ID
	OfferedGroups  []uint16
	OfferedALPN    []string
	ClientRandom   [32]byte
}

// State is one connection's handshake state (spec §3's "Handshake state").
// It has a single owner and is mutated only by transition methods in this
// package; fields beyond Phase are documented "populated once, never
// cleared" (invariant 1) and are zero/empty until their deciding
// transition runs.
type State struct {
	Phase Phase

	// Negotiated parameters.
	Version         uint16
	CipherSuite     ciphersuite.Suite
	NamedGroup      keyexchange.Group
	SignatureScheme uint16
	PSKType         PSKType
	PSKMode         uint16 // handshake.PSK_Mode_PSK_ONLY or PSK_Mode_ECDHE
	KeyExchangeType KeyExchangeType
	EarlyDataType   EarlyDataType
	ALPN            string
	ReplayResult    ReplayCacheResult

	// Crypto state.
	KeyScheduler             *keys.Scheduler
	ReadRecordLayer          *record.Layer
	WriteRecordLayer         *record.Layer
	HandshakeReadRecordLayer *record.Layer // parked read layer while AcceptingEarlyData
	HandshakeContext         *keys.HandshakeContext

	// Early-data accounting, live only while Phase == AcceptingEarlyData.
	// earlyDataMaxSize is the ticket's advertised max_early_data_size
	// (collaborators.ResumptionState.MaxEarlyDataSize), captured once when
	// 0-RTT is accepted; zero means the ticket advertised no allowance and
	// the byte cap is skipped, leaving constants.MaxEarlyDataRecords as the
	// only backstop. earlyDataBytesReceived/earlyDataRecordsReceived track
	// what's actually arrived, per spec's "max_early_data exceeded" row.
	earlyDataMaxSize         uint32
	earlyDataBytesReceived   uint64
	earlyDataRecordsReceived int

	// Identity.
	ServerCert          collaborators.Chain
	ServerSigner        collaborators.Signer
	ClientCert          *collaborators.PeerCert
	UnverifiedCertChain [][]byte // non-nil only while Phase == ExpectingCertificateVerify

	// Exported secrets.
	ClientHandshakeSecret     ciphersuite.Hash
	ResumptionMasterSecret    ciphersuite.Hash
	EarlyExporterMasterSecret ciphersuite.Hash
	ExporterMasterSecret      ciphersuite.Hash

	// Current application traffic secrets, ratcheted forward by KeyUpdate
	// per [rfc8446:7.2]. Populated once Phase reaches AcceptingData.
	clientAppSecret ciphersuite.Hash
	serverAppSecret ciphersuite.Hash

	// ticketNonce counts NewSessionTickets issued on this connection, per
	// [rfc8446:4.6.1]'s ticket_nonce field.
	ticketNonce uint64

	// Observability.
	Logging         *HandshakeLogging
	ClientClockSkew int64 // seconds; client's claimed ticket age minus server's measured age

	// Key-exchange secret retained from ClientHello processing until the
	// second ClientHello (after HelloRetryRequest) or immediately consumed.
	ephemeralSecret keyexchange.Secret

	// HelloRetryRequest bookkeeping: the group selected in the HRR, checked
	// against the second ClientHello's key_share.
	hrrSelectedGroup keyexchange.Group

	// pendingAsync guards re-entry while a transition is suspended on a
	// collaborator call (ticket lookup, certificate verify, async sign),
	// per spec §5. Resume is driven by calling the continuation the
	// suspending transition returned, not by re-delivering the event.
	//
	// No transition in this package currently sets it: every collaborator
	// call (TicketStore.Lookup, Verifier.Verify, Signer.Sign) is made
	// synchronously within Handle, threading the context.Context Handle
	// receives, matching the ordinary Go convention of one goroutine per
	// connection blocking on IO rather than callback-style suspension.
	// The field and Resume stay in place for a driver that wants to run
	// those calls on a worker pool instead and resume asynchronously.
	pendingAsync bool
	resume       func() []Action
}

// leafCertificate returns the parsed leaf of ServerCert, or nil if no
// certificate has been selected yet.
func (s *State) leafCertificate() *x509.Certificate {
	return s.ServerCert.Leaf
}

// NewState returns a fresh handshake state in PhaseUninitialized, per spec's
// transition table entry "Uninitialized -> accept() -> ExpectingClientHello".
// CipherSuite is decided later, by the ClientHello transition, so it starts
// nil.
func NewState() *State {
	return &State{
		Phase:            PhaseUninitialized,
		ReadRecordLayer:  &record.Layer{},
		WriteRecordLayer: &record.Layer{},
	}
}

// Accept implements the Uninitialized -> ExpectingClientHello transition.
func (s *State) Accept() {
	if s.Phase != PhaseUninitialized {
		panic("statemachine: Accept called outside PhaseUninitialized")
	}
	s.Phase = PhaseExpectingClientHello
}

// PendingAsync reports whether the state machine is currently suspended
// awaiting a collaborator call, per spec §5's re-entry guard.
func (s *State) PendingAsync() bool {
	return s.pendingAsync
}
