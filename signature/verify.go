// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package signature

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"errors"

	"github.com/kvaas/tls13/handshake"
)

var ErrUnsupportedSignatureScheme = errors.New("unsupported signature scheme")
var ErrCertificateWrongPublicKeyType = errors.New("certificate public key does not match signature scheme")

// Verify checks sig over message using pub, dispatched on scheme. For every
// scheme but Ed25519, message is the covered-content hash produced by
// CalculateCoveredContentHash; for Ed25519 (which is never pre-hashed),
// message is the raw covered content from CalculateCoveredContent.
func Verify(scheme uint16, pub crypto.PublicKey, message []byte, sig []byte) error {
	switch scheme {
	case handshake.SignatureAlgorithm_ECDSA_SECP256r1_SHA256:
		return verifyECDSA(pub, elliptic_P256Bits, message, sig)
	case handshake.SignatureAlgorithm_ECDSA_SECP384r1_SHA384:
		return verifyECDSA(pub, elliptic_P384Bits, message, sig)
	case handshake.SignatureAlgorithm_ECDSA_SECP512r1_SHA512:
		return verifyECDSA(pub, elliptic_P521Bits, message, sig)
	case handshake.SignatureAlgorithm_ED25519:
		return verifyEd25519(pub, message, sig)
	case handshake.SignatureAlgorithm_RSA_PSS_RSAE_SHA256, handshake.SignatureAlgorithm_RSA_PSS_PSS_SHA256:
		return verifyRSAPSS(pub, crypto.SHA256, message, sig)
	case handshake.SignatureAlgorithm_RSA_PSS_RSAE_SHA384, handshake.SignatureAlgorithm_RSA_PSS_PSS_SHA384:
		return verifyRSAPSS(pub, crypto.SHA384, message, sig)
	case handshake.SignatureAlgorithm_RSA_PSS_RSAE_SHA512, handshake.SignatureAlgorithm_RSA_PSS_PSS_SHA512:
		return verifyRSAPSS(pub, crypto.SHA512, message, sig)
	default:
		return ErrUnsupportedSignatureScheme
	}
}

// VerifyCertificateChain checks leafCert's signature over the CertificateVerify
// covered content, for scheme as negotiated via signature_algorithms.
func VerifyCertificateChain(leafCert *x509.Certificate, scheme uint16, coveredContentHash []byte, sig []byte) error {
	return Verify(scheme, leafCert.PublicKey, coveredContentHash, sig)
}

const (
	elliptic_P256Bits = 256
	elliptic_P384Bits = 384
	elliptic_P521Bits = 521
)

func verifyECDSA(pub crypto.PublicKey, wantBits int, message []byte, sig []byte) error {
	ecdsaKey, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return ErrCertificateWrongPublicKeyType
	}
	if ecdsaKey.Curve.Params().BitSize != wantBits {
		return ErrCertificateWrongPublicKeyType
	}
	if !ecdsa.VerifyASN1(ecdsaKey, message, sig) {
		return ErrCertificateVerifyFailed
	}
	return nil
}

func verifyEd25519(pub crypto.PublicKey, message []byte, sig []byte) error {
	ed25519Key, ok := pub.(ed25519.PublicKey)
	if !ok {
		return ErrCertificateWrongPublicKeyType
	}
	if !ed25519.Verify(ed25519Key, message, sig) {
		return ErrCertificateVerifyFailed
	}
	return nil
}

func verifyRSAPSS(pub crypto.PublicKey, hash crypto.Hash, message []byte, sig []byte) error {
	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return ErrCertificateWrongPublicKeyType
	}
	opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: hash}
	if err := rsa.VerifyPSS(rsaKey, hash, message, sig, opts); err != nil {
		return ErrCertificateVerifyFailed
	}
	return nil
}

var ErrCertificateVerifyFailed = errors.New("signature verification failed")
