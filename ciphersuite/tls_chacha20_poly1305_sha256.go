// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package ciphersuite

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"hash"

	"golang.org/x/crypto/chacha20poly1305"
)

type impl_TLS_CHACHA20_POLY1305_SHA256 struct{}

func (s *impl_TLS_CHACHA20_POLY1305_SHA256) ID() ID { return TLS_CHACHA20_POLY1305_SHA256 }

func (s *impl_TLS_CHACHA20_POLY1305_SHA256) KeyLength() int { return chacha20poly1305.KeySize }

func (s *impl_TLS_CHACHA20_POLY1305_SHA256) IVLength() int { return chacha20poly1305.NonceSize }

func (s *impl_TLS_CHACHA20_POLY1305_SHA256) HashLength() int { return sha256.Size }

func (s *impl_TLS_CHACHA20_POLY1305_SHA256) ProtectionLimit() uint64 {
	// [rfc8446:5.5] ChaCha20/Poly1305 may protect up to 2^36 records.
	return 1 << 36
}

func (s *impl_TLS_CHACHA20_POLY1305_SHA256) NewHasher() hash.Hash {
	return sha256.New()
}

func (s *impl_TLS_CHACHA20_POLY1305_SHA256) NewHMAC(key []byte) hash.Hash {
	return hmac.New(sha256.New, key)
}

func (s *impl_TLS_CHACHA20_POLY1305_SHA256) NewAEAD(key []byte) (cipher.AEAD, error) {
	return chacha20poly1305.New(key)
}

func (s *impl_TLS_CHACHA20_POLY1305_SHA256) EmptyHash() Hash {
	return emptySha256Hash
}
