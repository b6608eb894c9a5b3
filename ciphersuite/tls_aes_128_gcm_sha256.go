// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package ciphersuite

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"hash"
)

type impl_TLS_AES_128_GCM_SHA256 struct{}

var emptySha256Hash = Hash{}

func init() {
	emptySha256Hash.SetSum(sha256.New())
}

func (s *impl_TLS_AES_128_GCM_SHA256) ID() ID { return TLS_AES_128_GCM_SHA256 }

func (s *impl_TLS_AES_128_GCM_SHA256) KeyLength() int { return 16 }

func (s *impl_TLS_AES_128_GCM_SHA256) IVLength() int { return 12 }

func (s *impl_TLS_AES_128_GCM_SHA256) HashLength() int { return sha256.Size }

func (s *impl_TLS_AES_128_GCM_SHA256) ProtectionLimit() uint64 {
	return 1 << 36
}

func (s *impl_TLS_AES_128_GCM_SHA256) NewHasher() hash.Hash {
	return sha256.New()
}

func (s *impl_TLS_AES_128_GCM_SHA256) NewHMAC(key []byte) hash.Hash {
	return hmac.New(sha256.New, key)
}

func (s *impl_TLS_AES_128_GCM_SHA256) NewAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (s *impl_TLS_AES_128_GCM_SHA256) EmptyHash() Hash {
	return emptySha256Hash
}
