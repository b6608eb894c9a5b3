// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

// Package signature implements [rfc8446:4.4.3]'s CertificateVerify content
// construction and the signature schemes [rfc8446:4.2.3] lists, dispatched
// by SignatureScheme ID.
package signature

import "hash"

// coveredContentPrefix is 64 spaces followed by the context string and a
// zero byte, per [rfc8446:4.4.3]. The server and client roles use distinct
// context strings so a signature produced for one role can never be replayed
// as the other's.
var (
	serverCoveredContentPrefix = append(append([]byte{}, spaces64...), []byte("TLS 1.3, server CertificateVerify\x00")...)
	clientCoveredContentPrefix = append(append([]byte{}, spaces64...), []byte("TLS 1.3, client CertificateVerify\x00")...)
)

var spaces64 = []byte("                                                                ")

// CalculateCoveredContent builds the raw covered content a CertificateVerify
// signs or verifies: 64 spaces, a role-specific context string, a zero byte,
// and the transcript hash up to (but not including) CertificateVerify
// itself. Ed25519 signs this directly (it is already randomized, so it is
// never pre-hashed); every other scheme hashes it first via
// CalculateCoveredContentHash.
func CalculateCoveredContent(isServerRole bool, certVerifyTranscriptHash []byte, data []byte) []byte {
	if isServerRole {
		data = append(data, serverCoveredContentPrefix...)
	} else {
		data = append(data, clientCoveredContentPrefix...)
	}
	return append(data, certVerifyTranscriptHash...)
}

// CalculateCoveredContentHash hashes the covered content (see
// CalculateCoveredContent) with hasher, for every signature scheme except
// Ed25519. Like hash.Sum, it appends the digest to data and returns it.
func CalculateCoveredContentHash(hasher hash.Hash, isServerRole bool, certVerifyTranscriptHash []byte, data []byte) []byte {
	if isServerRole {
		hasher.Write(serverCoveredContentPrefix)
	} else {
		hasher.Write(clientCoveredContentPrefix)
	}
	hasher.Write(certVerifyTranscriptHash)
	return hasher.Sum(data)
}
