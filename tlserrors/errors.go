// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

// Package tlserrors holds the static error values the handshake core returns.
// Every error is allocated once at init time, so the hot decode/transition
// path never allocates on the error-return side, following the teacher's
// dtlserrors package.
package tlserrors

import (
	"fmt"

	"github.com/kvaas/tls13/alert"
)

// Category partitions errors per spec §7.
type Category int

const (
	CategoryProtocol Category = iota // remote-caused, always carries an alert
	CategoryLocal                    // misconfiguration or crypto backend failure
	CategoryPolicy                   // not an error: a negotiation outcome (see state fields)
)

type Error struct {
	Category Category
	Alert    alert.Description
	text     string
}

func (e *Error) Error() string {
	switch e.Category {
	case CategoryProtocol:
		return fmt.Sprintf("tls13 protocol error (alert=%d): %s", e.Alert, e.text)
	case CategoryLocal:
		return fmt.Sprintf("tls13 local error: %s", e.text)
	default:
		return fmt.Sprintf("tls13: %s", e.text)
	}
}

func newProtocol(a alert.Description, text string) *Error {
	return &Error{Category: CategoryProtocol, Alert: a, text: text}
}

func newLocal(text string) *Error {
	return &Error{Category: CategoryLocal, Alert: alert.InternalError, text: text}
}

// Decode / framing errors.
var (
	ErrRecordTooLong              = newProtocol(alert.RecordOverflow, "record exceeds maximum length")
	ErrRecordHeaderTooShort       = newProtocol(alert.DecodeError, "record header too short")
	ErrRecordBodyTruncated        = newProtocol(alert.DecodeError, "record body shorter than declared length")
	ErrUnknownRecordType          = newProtocol(alert.UnexpectedMessage, "unknown record content type")
	ErrHandshakeMessageTooLong    = newProtocol(alert.DecodeError, "handshake message exceeds maximum length")
	ErrHandshakeMessageTruncated  = newProtocol(alert.DecodeError, "handshake message body truncated")
	ErrMessageBodyTooShort        = newProtocol(alert.DecodeError, "message body too short for field")
	ErrMessageBodyExcessBytes     = newProtocol(alert.DecodeError, "message body has trailing excess bytes")
	ErrCipherTextAllZeroPadding   = newProtocol(alert.UnexpectedMessage, "ciphertext inner plaintext has no non-zero content type byte")
)

// State-machine / negotiation errors.
var (
	ErrUnexpectedMessage          = newProtocol(alert.UnexpectedMessage, "message not valid in current handshake phase")
	ErrNoMutualVersion             = newProtocol(alert.ProtocolVersion, "no mutually supported TLS version")
	ErrNoMutualCipherSuite         = newProtocol(alert.HandshakeFailure, "no mutually supported cipher suite")
	ErrNoMutualGroup               = newProtocol(alert.HandshakeFailure, "no mutually supported key-exchange group")
	ErrSecondClientHelloBadKeyShare = newProtocol(alert.HandshakeFailure, "second ClientHello missing the requested key share")
	ErrPeerKeyShareInvalid         = newProtocol(alert.IllegalParameter, "key_share key_exchange point is not a valid curve point")
	ErrNoApplicationProtocol       = newProtocol(alert.NoApplicationProtocol, "no mutually supported ALPN protocol")
	ErrPSKBinderInvalid            = newProtocol(alert.DecryptError, "pre_shared_key binder verification failed")
	ErrFinishedVerificationFailed  = newProtocol(alert.DecryptError, "Finished message verify_data mismatch")
	ErrCertificateVerifyInvalid    = newProtocol(alert.DecryptError, "CertificateVerify signature verification failed")
	ErrCertificateChainEmpty       = newProtocol(alert.CertificateRequired, "client certificate chain is empty but client authentication is required")
	ErrUnsupportedSignatureScheme  = newProtocol(alert.HandshakeFailure, "no mutually supported signature scheme")
	ErrBadRecordMAC                = newProtocol(alert.BadRecordMAC, "record authentication failed")
	ErrSequenceNumberOverflow      = newLocal("record sequence number would overflow")
	ErrPendingAsync                = newLocal("handshake transition already suspended on an async collaborator call")
	ErrTerminalPhase               = newLocal("state machine is in a terminal phase and accepts no further events")
	ErrServerMustNotSendPSKModes   = newProtocol(alert.IllegalParameter, "server must not send psk_key_exchange_modes") // [rfc8446:4.2.9]
)

// Local/misconfiguration errors.
var (
	ErrNoServerCertificateConfigured = newLocal("no server certificate configured for this SNI/ALPN combination")
	ErrCertificateLoadFailed         = newLocal("failed to parse certificate from collaborator")
	ErrCryptoBackendFailure          = newLocal("crypto backend operation failed unexpectedly")
	ErrInputTooLargeForAEAD          = newLocal("plaintext exceeds 2^31-1 bytes, cannot be sealed")
)
