// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package collaborators

import (
	"context"
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"errors"

	"github.com/kvaas/tls13/signature"
)

// staticCertificateSource serves one fixed certificate chain regardless of
// SNI/ALPN/offered schemes. It is the default CertificateSource installed by
// options.ServerOptions.LoadServerCertificate; deployments that need
// per-SNI selection (SANs, multiple domains) supply their own
// CertificateSource instead.
type staticCertificateSource struct {
	chain  Chain
	signer crypto.Signer
}

// NewStaticCertificateSource wraps a crypto/tls.Certificate (as produced by
// tls.LoadX509KeyPair) as a CertificateSource and Signer pair.
func NewStaticCertificateSource(cert tls.Certificate) CertificateSource {
	leaf := cert.Leaf
	if leaf == nil {
		// LoadX509KeyPair does not always populate Leaf; parse lazily here
		// rather than failing construction.
		if parsed, err := x509.ParseCertificate(cert.Certificate[0]); err == nil {
			leaf = parsed
		}
	}
	signer, _ := cert.PrivateKey.(crypto.Signer)
	return &staticCertificateSource{
		chain:  Chain{Raw: cert.Certificate, Leaf: leaf},
		signer: signer,
	}
}

var errStaticSourceNoSigner = errors.New("static certificate source: private key is not a crypto.Signer")

func (s *staticCertificateSource) Chain(sni string, alpn []string, offeredSchemes []uint16) (Chain, Signer, error) {
	if s.signer == nil {
		return Chain{}, nil, errStaticSourceNoSigner
	}
	return s.chain, &staticSigner{signer: s.signer}, nil
}

type staticSigner struct {
	signer crypto.Signer
}

func (s *staticSigner) Sign(ctx context.Context, scheme uint16, transcriptDigest []byte) ([]byte, error) {
	return signature.Sign(scheme, s.signer, transcriptDigest)
}
