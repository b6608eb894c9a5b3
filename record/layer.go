// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package record

import (
	"crypto/cipher"
	"errors"

	"github.com/kvaas/tls13/aead"
)

// Layer is one direction (read or write) of a protected connection: the
// AEAD instance for the installed traffic key, its static IV, and the
// sequence counter the AEAD nonce is built from. A zero Layer is valid and
// represents the unprotected (plaintext) state before any keys are
// installed, matching the tagged {Plaintext, Encrypted} variant spec §9
// calls for — Protect/Deprotect branch on whether aeadImpl is nil.
type Layer struct {
	aeadImpl cipher.AEAD
	iv       [MaxIVLength]byte
	seq      Number
}

var ErrRecordTooLong = errors.New("record: plaintext exceeds maximum record length")

// Install replaces the layer's key material and resets the sequence
// counter, per spec invariant 6 ("reset exactly when new keys are
// installed"). Called once per key-schedule epoch (handshake traffic,
// application traffic, KeyUpdate, early traffic).
func (l *Layer) Install(a cipher.AEAD, iv []byte) {
	l.aeadImpl = a
	copy(l.iv[:], iv)
	l.seq.Reset()
}

// Installed reports whether traffic keys are active (false before the
// handshake installs the first set).
func (l *Layer) Installed() bool {
	return l.aeadImpl != nil
}

// Protect builds one TLSCiphertext record over plaintext (contentType is
// the real inner content type; paddingLength is additional zero padding
// before the tag), appending it to dst. It is the write path of spec §4.2.
func (l *Layer) Protect(dst []byte, contentType byte, plaintext []byte, paddingLength int) ([]byte, error) {
	if len(plaintext)+1+paddingLength > MaxPlaintextRecordLength {
		return nil, ErrRecordTooLong
	}
	if !l.Installed() {
		h := Header{ContentType: contentType}
		dst = h.Write(dst, len(plaintext))
		return append(dst, plaintext...), nil
	}
	seq, err := l.seq.Next()
	if err != nil {
		return nil, err
	}
	inner := AppendTrailer(append([]byte(nil), plaintext...), contentType, paddingLength)
	nonce := Nonce(nil, l.iv[:l.aeadImpl.NonceSize()], seq)

	h := Header{ContentType: TypeApplicationData}
	aad := h.Write(nil, len(inner)+l.aeadImpl.Overhead())

	sealed, err := aead.Seal(l.aeadImpl, nonce, aad, aead.Single(inner))
	if err != nil {
		return nil, err
	}
	dst = append(dst, aad...)
	return sealed.Gather(dst), nil
}

// Deprotect authenticates and decrypts one TLSCiphertext record body
// (everything after the 5-byte header, i.e. body as returned by
// Header.Parse), returning the real content type and unpadded content.
// header must be the same Header Parse produced, since it is re-serialized
// as associated data per [rfc8446:5.2].
func (l *Layer) Deprotect(header Header, body []byte) (content []byte, contentType byte, err error) {
	if !l.Installed() {
		return body, header.ContentType, nil
	}
	seq, err := l.seq.Next()
	if err != nil {
		return nil, 0, err
	}
	nonce := Nonce(nil, l.iv[:l.aeadImpl.NonceSize()], seq)
	aad := header.Write(nil, len(body))

	opened, err := aead.Open(l.aeadImpl, nonce, aad, aead.Single(body))
	if err != nil {
		return nil, 0, ErrBadRecordMAC
	}
	inner := opened.Gather(nil)
	content, contentType, ok := StripTrailer(inner)
	if !ok {
		return nil, 0, ErrBadRecordMAC
	}
	return content, contentType, nil
}

var ErrBadRecordMAC = errors.New("record: AEAD authentication failed")
