// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package signature

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"errors"

	"github.com/kvaas/tls13/handshake"
)

var ErrSignerSchemeMismatch = errors.New("signer key type does not match requested signature scheme")

// Sign produces a CertificateVerify signature over message using signer,
// dispatched on scheme. For every scheme but Ed25519, message must be the
// covered-content hash from CalculateCoveredContentHash; for Ed25519, message
// must be the raw covered content from CalculateCoveredContent. signer is the
// collaborators.Signer's private key (crypto/tls.Certificate.PrivateKey
// satisfies crypto.Signer for every key type this module supports).
func Sign(scheme uint16, signer crypto.Signer, message []byte) ([]byte, error) {
	switch scheme {
	case handshake.SignatureAlgorithm_ECDSA_SECP256r1_SHA256,
		handshake.SignatureAlgorithm_ECDSA_SECP384r1_SHA384,
		handshake.SignatureAlgorithm_ECDSA_SECP512r1_SHA512:
		if _, ok := signer.Public().(*ecdsa.PublicKey); !ok {
			return nil, ErrSignerSchemeMismatch
		}
		return signer.Sign(rand.Reader, message, crypto.Hash(0))
	case handshake.SignatureAlgorithm_ED25519:
		if _, ok := signer.Public().(ed25519.PublicKey); !ok {
			return nil, ErrSignerSchemeMismatch
		}
		return signer.Sign(rand.Reader, message, crypto.Hash(0))
	case handshake.SignatureAlgorithm_RSA_PSS_RSAE_SHA256, handshake.SignatureAlgorithm_RSA_PSS_PSS_SHA256:
		return signRSAPSS(signer, crypto.SHA256, message)
	case handshake.SignatureAlgorithm_RSA_PSS_RSAE_SHA384, handshake.SignatureAlgorithm_RSA_PSS_PSS_SHA384:
		return signRSAPSS(signer, crypto.SHA384, message)
	case handshake.SignatureAlgorithm_RSA_PSS_RSAE_SHA512, handshake.SignatureAlgorithm_RSA_PSS_PSS_SHA512:
		return signRSAPSS(signer, crypto.SHA512, message)
	default:
		return nil, ErrUnsupportedSignatureScheme
	}
}

func signRSAPSS(signer crypto.Signer, hash crypto.Hash, message []byte) ([]byte, error) {
	if _, ok := signer.Public().(*rsa.PublicKey); !ok {
		return nil, ErrSignerSchemeMismatch
	}
	opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: hash}
	return signer.Sign(rand.Reader, message, opts)
}
