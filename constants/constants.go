// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package constants

// We want fixed-size storage for hashes, as we want to do as few allocations as possible.
// SHA-384 is the largest hash used by a standard TLS 1.3 cipher suite.
const MaxHashLength = 48

// Limited as a protection against too much work for signature checking.
const MaxCertificateChainLength = 16

// [rfc8446:5.1] plaintext records carry at most 2^14 bytes of payload.
const MaxPlaintextRecordLength = 16384

// [rfc8446:5.2] encrypted records may carry up to 2^14+256 bytes (payload, content-type, padding, tag).
const MaxCiphertextRecordLength = MaxPlaintextRecordLength + 256

// AEADSealSize is the authentication tag length for every cipher suite this module supports.
const AEADSealSize = 16

// MaxPSKIdentities bounds the pre_shared_key extension's identity list, to avoid
// unbounded allocation while parsing a hostile ClientHello.
const MaxPSKIdentities = 8

// MaxALPNProtocolsLength bounds the protocol_name_list in a client's ALPN
// extension, to avoid unbounded allocation while parsing a hostile ClientHello.
const MaxALPNProtocolsLength = 16

// MaxCipherSuites bounds a ClientHello's cipher_suites list, to avoid
// unbounded allocation while parsing a hostile ClientHello.
const MaxCipherSuites = 64

// ShareUnshareThreshold (K in spec §4.1): a chain with up to this many shared
// fragments is fixed up by copying only the shared fragments; above it, the
// kernel allocates a single fresh output chain instead.
const ShareUnshareThreshold = 4

// MaxEarlyDataRecords bounds how many 0-RTT application-data records a server
// will deliver; past it the remaining early data is rejected and the
// handshake moves on to ExpectingFinished.
const MaxEarlyDataRecords = 1 << 16

// MaxHandshakeMessageLength bounds a single handshake message body, matching
// the 24-bit length field in the handshake message header.
const MaxHandshakeMessageLength = 1 << 24

// MaxCertificateMessageLength bounds in-memory reassembly of a Certificate
// message's wire body before parsing.
const MaxCertificateMessageLength = 1 << 20
