// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package ciphersuite

import (
	"crypto/cipher"
	"hash"
)

// Suite is a [rfc8446:9.1] mandatory-or-recommended cipher suite: a hash
// (transcript hash and HKDF), an HMAC built on that hash, and an AEAD used
// to protect records once traffic keys are derived.
type Suite interface {
	ID() ID
	// KeyLength is the AEAD key size in bytes.
	KeyLength() int
	// IVLength is the AEAD nonce size in bytes; always 12 for every suite here [rfc8446:5.3].
	IVLength() int
	// HashLength is the transcript/HKDF hash output size in bytes.
	HashLength() int
	// ProtectionLimit: when we protect or deprotect this many records with one set of
	// traffic keys, we should ask for a KeyUpdate; past 2x this, the connection must close.
	ProtectionLimit() uint64
	// NewHasher returns a fresh transcript/HKDF hash instance. Allocates.
	NewHasher() hash.Hash
	// NewHMAC returns an HMAC over this suite's hash, keyed with key. Allocates.
	NewHMAC(key []byte) hash.Hash
	// NewAEAD constructs the record-protection AEAD from a traffic key. Allocates.
	NewAEAD(key []byte) (cipher.AEAD, error)
	// EmptyHash returns the hash of the zero-length string, used as the transcript seed.
	EmptyHash() Hash
}

type ID uint16

const (
	// [rfc8446:4.5.3] AEAD Limits - 2^36 limit for 3 ciphers at the top
	TLS_AES_128_GCM_SHA256       ID = 0x1301
	TLS_AES_256_GCM_SHA384       ID = 0x1302
	TLS_CHACHA20_POLY1305_SHA256 ID = 0x1303

	// ciphers below are not recommended to be implemented
	TLS_AES_128_CCM_SHA256   ID = 0x1304
	TLS_AES_128_CCM_8_SHA256 ID = 0x1305
)

func (id ID) String() string {
	switch id {
	case TLS_AES_128_GCM_SHA256:
		return "TLS_AES_128_GCM_SHA256"
	case TLS_AES_256_GCM_SHA384:
		return "TLS_AES_256_GCM_SHA384"
	case TLS_CHACHA20_POLY1305_SHA256:
		return "TLS_CHACHA20_POLY1305_SHA256"
	default:
		return "UNKNOWN_SUITE"
	}
}

var suite_TLS_AES_128_GCM_SHA256 Suite = &impl_TLS_AES_128_GCM_SHA256{}
var suite_TLS_AES_256_GCM_SHA384 Suite = &impl_TLS_AES_256_GCM_SHA384{}
var suite_TLS_CHACHA20_POLY1305_SHA256 Suite = &impl_TLS_CHACHA20_POLY1305_SHA256{}

// Preferred lists the suites this module supports, in the order a server
// should prefer them when several are mutually supported.
var Preferred = []ID{
	TLS_AES_128_GCM_SHA256,
	TLS_AES_256_GCM_SHA384,
	TLS_CHACHA20_POLY1305_SHA256,
}

func GetSuite(num ID) (Suite, bool) {
	switch num {
	case TLS_AES_128_GCM_SHA256:
		return suite_TLS_AES_128_GCM_SHA256, true
	case TLS_AES_256_GCM_SHA384:
		return suite_TLS_AES_256_GCM_SHA384, true
	case TLS_CHACHA20_POLY1305_SHA256:
		return suite_TLS_CHACHA20_POLY1305_SHA256, true
	}
	return nil, false
}
