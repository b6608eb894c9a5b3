// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

// Package options holds server-side policy for the TLS 1.3 handshake core:
// which versions, cipher suites, groups, and signature schemes the server is
// willing to negotiate, in preference order, plus the collaborators
// (certificate source, ticket store, replay cache) the state machine calls
// out to.
package options

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kvaas/tls13/ciphersuite"
	"github.com/kvaas/tls13/collaborators"
	"github.com/kvaas/tls13/constants"
	"github.com/kvaas/tls13/dtlsrand"
	"github.com/kvaas/tls13/handshake"
)

// ServerOptions is server-side policy plus the collaborator wiring the
// handshake state machine needs. A *ServerOptions is shared read-only across
// connections once constructed; nothing here is mutated per-connection.
type ServerOptions struct {
	Rnd    dtlsrand.Rand
	Logger *logrus.Entry

	// Clock returns the server's notion of the current unix time, used to
	// measure clock skew against a resumed PSK identity's
	// obfuscated_ticket_age [rfc8446:4.2.11.1]. This core runs over a
	// reliable stream with no retransmission, so it has no need for the
	// teacher's timer-wheel Clock; a function value is enough.
	Clock func() int64

	Preallocate bool // most data structures are allocated up front, not grown lazily

	SocketReadErrorDelay  time.Duration
	SocketWriteErrorDelay time.Duration
	MaxConnections        int

	// Negotiation preference lists. For groups, signature schemes and ALPN,
	// entries are in decreasing preference order and the first entry present
	// in the ClientHello's corresponding list wins. CipherSuitePreference is
	// an allow-list: the first suite in the ClientHello's own list that
	// appears in it wins, per spec's negotiation rule 2.
	CipherSuitePreference     []ciphersuite.ID
	GroupPreference           []uint16
	SignatureSchemePreference []uint16
	ALPNPreference            []string

	// PSK / 0-RTT policy.
	AllowPSKResumption bool
	AllowEarlyData     bool
	MaxEarlyDataSize   uint32

	// MiddleboxCompatibility makes the server echo the ClientHello's
	// legacy_session_id and emit a single change_cipher_spec record after
	// ServerHello, per [rfc8446:appendixD.4].
	MiddleboxCompatibility bool

	ServerCertificate tls.Certificate // convenience default CertificateSource

	CertificateSource collaborators.CertificateSource
	TicketStore       collaborators.TicketStore
	ReplayCache       collaborators.ReplayCache
	AppTokenValidator collaborators.AppTokenValidator

	// RequireClientCertificate makes the server send CertificateRequest and
	// fail the handshake if the client sends an empty certificate chain.
	RequireClientCertificate bool
	Verifier                 collaborators.Verifier
}

// DefaultServerOptions returns policy matching the conservative defaults a
// new deployment should start with: the three mandatory RFC 8446 cipher
// suites, X25519 and P-256 groups, no PSK/early-data until the caller wires
// a TicketStore and ReplayCache.
func DefaultServerOptions(rnd dtlsrand.Rand, logger *logrus.Entry) *ServerOptions {
	return &ServerOptions{
		Rnd:                   rnd,
		Logger:                logger,
		Clock:                 func() int64 { return time.Now().Unix() },
		Preallocate:           true,
		SocketReadErrorDelay:  50 * time.Millisecond,
		SocketWriteErrorDelay: 5 * time.Millisecond,
		MaxConnections:        100_000,
		CipherSuitePreference: append([]ciphersuite.ID{}, ciphersuite.Preferred...),
		GroupPreference: []uint16{
			handshake.SupportedGroupX25519,
			handshake.SupportedGroupSECP256R1,
		},
		SignatureSchemePreference: []uint16{
			handshake.SignatureAlgorithm_ECDSA_SECP256r1_SHA256,
			handshake.SignatureAlgorithm_ED25519,
			handshake.SignatureAlgorithm_RSA_PSS_RSAE_SHA256,
		},
		AllowPSKResumption:     false,
		AllowEarlyData:         false,
		MiddleboxCompatibility: true,
	}
}

// LoadServerCertificate loads a certificate chain and private key from PEM
// files and installs them as both ServerCertificate and (if no
// CertificateSource is already set) the default CertificateSource.
func (opts *ServerOptions) LoadServerCertificate(certificatePath string, privateKeyPEMPath string) error {
	cert, err := tls.LoadX509KeyPair(certificatePath, privateKeyPEMPath)
	if err != nil {
		return fmt.Errorf("error loading x509 key pair: %w", err)
	}
	if len(cert.Certificate) == 0 {
		return fmt.Errorf("loaded x509 pem file contains no certificates")
	}
	if len(cert.Certificate) > constants.MaxCertificateChainLength {
		return fmt.Errorf("loaded x509 pem file contains too many (%d) certificates, only %d are supported", len(cert.Certificate), constants.MaxCertificateChainLength)
	}
	if cert.Leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
		return fmt.Errorf("error parsing leaf x509 certificate: %w", err)
	}
	opts.ServerCertificate = cert
	if opts.CertificateSource == nil {
		opts.CertificateSource = collaborators.NewStaticCertificateSource(cert)
	}
	return nil
}

// Validate checks the options are internally consistent enough to serve
// connections. It does not repeat the checks LoadServerCertificate already
// performed.
func (opts *ServerOptions) Validate() error {
	if len(opts.ServerCertificate.Certificate) == 0 && opts.CertificateSource == nil {
		return fmt.Errorf("tls server requires a certificate source (ServerCertificate or CertificateSource)")
	}
	if opts.MaxConnections < 1 {
		return fmt.Errorf("MaxConnections (%d) should be > 0", opts.MaxConnections)
	}
	if len(opts.CipherSuitePreference) == 0 {
		return fmt.Errorf("at least one cipher suite must be offered")
	}
	if len(opts.GroupPreference) == 0 {
		return fmt.Errorf("at least one named group must be offered")
	}
	if len(opts.SignatureSchemePreference) == 0 {
		return fmt.Errorf("at least one signature scheme must be offered")
	}
	if opts.AllowEarlyData && opts.TicketStore == nil {
		return fmt.Errorf("AllowEarlyData requires a TicketStore")
	}
	if opts.AllowPSKResumption && (opts.TicketStore == nil || opts.ReplayCache == nil) {
		return fmt.Errorf("AllowPSKResumption requires both a TicketStore and a ReplayCache")
	}
	if opts.RequireClientCertificate && opts.Verifier == nil {
		return fmt.Errorf("RequireClientCertificate requires a Verifier")
	}
	return nil
}
