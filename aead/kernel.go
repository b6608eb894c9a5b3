// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package aead

import (
	"crypto/cipher"
	"errors"
)

// MaxSealInput bounds what Seal accepts: AEAD lengths are encoded in a
// signed 32-bit field by convention across cipher libraries, so anything
// beyond 2^31-1 is a programmer error, not a protocol error.
const MaxSealInput = 1<<31 - 1

var (
	ErrInputTooLarge = errors.New("aead: plaintext exceeds maximum seal input length")
	ErrAuthFailed    = errors.New("aead: authentication failed")
)

// Seal protects plaintext with a, returning a ciphertext chain whose total
// length is len(plaintext)+a.Overhead(), tag at the tail, per spec.md §4.1.
//
// plaintext is first run through Unshare so aliased fragments are not
// corrupted. When the fixed-up chain collapses to one fragment (the common
// case: either it started as one fragment, or Unshare collapsed a
// heavily-shared chain into one), Seal hands that fragment's backing array
// straight to the underlying cipher.AEAD, which itself appends in place when
// there is tail capacity for the tag and allocates a fresh backing array
// otherwise — exactly the tag-placement rule spec.md §4.1 describes, for
// free, because it is also how crypto/cipher's GCM and ChaCha20-Poly1305
// implementations grow their output slice.
func Seal(a cipher.AEAD, nonce, aad []byte, plaintext Chain) (Chain, error) {
	if plaintext.Len() > MaxSealInput {
		return nil, ErrInputTooLarge
	}
	work := Unshare(plaintext)
	if len(work) <= 1 {
		var in []byte
		if len(work) == 1 {
			in = work[0].Data
		}
		sealed := a.Seal(in[:0:cap(in)], nonce, in, aad)
		return Chain{{Data: sealed}}, nil
	}
	flat := work.Gather(make([]byte, 0, work.Len()))
	sealed := a.Seal(nil, nonce, flat, aad)
	tag := sealed[len(flat):]
	out := scatter(sealed[:len(flat)], work)
	return placeTag(out, tag), nil
}

// Open reverses Seal: ciphertext's last a.Overhead() bytes are the tag.
// Authentication failure returns ErrAuthFailed, never a decoded-but-wrong
// plaintext, matching spec.md §4.1's "decryption authentication failure
// returns None, not an error that propagates partial data".
func Open(a cipher.AEAD, nonce, aad []byte, ciphertext Chain) (Chain, error) {
	work := Unshare(ciphertext)
	if len(work) <= 1 {
		var in []byte
		if len(work) == 1 {
			in = work[0].Data
		}
		plain, err := a.Open(in[:0], nonce, in, aad)
		if err != nil {
			return nil, ErrAuthFailed
		}
		return Chain{{Data: plain}}, nil
	}
	flat := work.Gather(make([]byte, 0, work.Len()))
	plain, err := a.Open(nil, nonce, flat, aad)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return scatter(plain, work), nil
}

// placeTag appends tag to the last fragment of out if it has tail capacity
// for it, else chains a new fragment holding the tag. Mirrors spec.md
// §4.1's "tag placement on encrypt" rule for the multi-fragment gather/
// scatter path (the single-fragment path gets this from cipher.AEAD itself).
func placeTag(out Chain, tag []byte) Chain {
	if len(out) == 0 {
		return Chain{{Data: append([]byte{}, tag...)}}
	}
	last := &out[len(out)-1]
	if cap(last.Data)-len(last.Data) >= len(tag) {
		last.Data = append(last.Data, tag...)
		return out
	}
	return append(out, Fragment{Data: append([]byte{}, tag...)})
}
