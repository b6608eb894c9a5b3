// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package keys

import (
	"hash"

	"github.com/kvaas/tls13/ciphersuite"
)

// HandshakeContext is the running [rfc8446:4.4.1] transcript hash: every
// handshake message, in its serialized wire form, is fed in as it is sent
// or received, and CurrentDigest reports the hash so far without disturbing
// accumulation.
type HandshakeContext struct {
	suite  ciphersuite.Suite
	hasher hash.Hash
}

func NewHandshakeContext(suite ciphersuite.Suite) *HandshakeContext {
	return &HandshakeContext{suite: suite, hasher: suite.NewHasher()}
}

// AddMessage appends one handshake message's serialized bytes to the transcript.
func (hc *HandshakeContext) AddMessage(serialized []byte) {
	hc.hasher.Write(serialized)
}

// CurrentDigest returns the transcript hash over every message added so far.
func (hc *HandshakeContext) CurrentDigest() ciphersuite.Hash {
	var out ciphersuite.Hash
	out.SetSum(hc.hasher)
	return out
}

// ReplaceWithMessageHash implements [rfc8446:4.4.1]'s transcript
// substitution for a HelloRetryRequest: the hash transitions from
// ClientHello1's running hash to
//
//	Hash(message_hash || Hash(ClientHello1) || HelloRetryRequest || ClientHello2 || ...)
//
// by resetting the hasher and feeding it a synthetic handshake header
// (msg_type = message_hash(254), 3-byte length) followed by the digest of
// everything accumulated so far.
func (hc *HandshakeContext) ReplaceWithMessageHash() {
	digest := hc.CurrentDigest()
	hc.hasher = hc.suite.NewHasher()
	hc.hasher.Write([]byte{254, 0, 0, byte(digest.Len())})
	hc.hasher.Write(digest.GetValue())
}
