// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

// Package aead implements the scatter-gather AEAD kernel described in
// spec.md §4.1: seal/open over a chain of possibly-shared fragments, with
// the shared-buffer fixup rule that avoids copying an entire datagram just
// to protect one record inside it. The underlying cipher primitive is
// crypto/cipher.AEAD (AES-GCM from crypto/aes, ChaCha20-Poly1305 from
// golang.org/x/crypto/chacha20poly1305, selected via ciphersuite.Suite);
// this package does not reimplement AEAD arithmetic, only the buffer
// plumbing around it, following the teacher's "reuse message bodies in a
// rope" TODOs that it never finished.
package aead

import "github.com/kvaas/tls13/constants"

// UnshareThreshold is K from spec.md §4.1: a chain with up to this many
// shared fragments is fixed up fragment-by-fragment; beyond it, the kernel
// allocates one fresh chain instead.
const UnshareThreshold = constants.ShareUnshareThreshold

// Fragment is one piece of a Chain. Shared marks that Data aliases a larger
// buffer the caller does not own exclusively (e.g. several TLS records
// delivered in one read), so writing into Data in place would corrupt
// neighboring records.
type Fragment struct {
	Data   []byte
	Shared bool
}

// Chain is an ordered sequence of fragments representing one logical
// plaintext or ciphertext buffer.
type Chain []Fragment

// Len returns the total byte length across all fragments.
func (c Chain) Len() int {
	n := 0
	for _, f := range c {
		n += len(f.Data)
	}
	return n
}

// sharedCount returns how many fragments in the chain are marked Shared.
func (c Chain) sharedCount() int {
	n := 0
	for _, f := range c {
		if f.Shared {
			n++
		}
	}
	return n
}

// Gather copies the chain's bytes into a single contiguous buffer, appending
// to dst. Used to hand plaintext/ciphertext to crypto/cipher.AEAD, which
// only accepts contiguous slices.
func (c Chain) Gather(dst []byte) []byte {
	for _, f := range c {
		dst = append(dst, f.Data...)
	}
	return dst
}

// Single returns a one-fragment chain wrapping an owned (non-shared) buffer.
func Single(data []byte) Chain {
	return Chain{{Data: data}}
}

// Unshare applies spec.md §4.1's shared-buffer fixup rule and returns a
// chain safe to encrypt or decrypt in place:
//
//   - zero shared fragments: the chain is returned unchanged, encryption
//     proceeds in place.
//   - up to UnshareThreshold shared fragments: each shared fragment is
//     replaced by a fresh copy of exactly its own length; unshared
//     fragments are left aliased as-is.
//   - more than UnshareThreshold shared fragments: the whole chain is
//     replaced by a single fresh fragment holding a copy of all the bytes,
//     and encryption proceeds out of place into that fragment.
func Unshare(c Chain) Chain {
	shared := c.sharedCount()
	if shared == 0 {
		return c
	}
	if shared <= UnshareThreshold {
		out := make(Chain, len(c))
		for i, f := range c {
			if !f.Shared {
				out[i] = f
				continue
			}
			fresh := make([]byte, len(f.Data))
			copy(fresh, f.Data)
			out[i] = Fragment{Data: fresh}
		}
		return out
	}
	fresh := make([]byte, 0, c.Len())
	fresh = c.Gather(fresh)
	return Chain{{Data: fresh}}
}

// scatter writes data into the fragment boundaries described by shape,
// splitting it back into a chain whose fragment lengths mirror shape's
// plaintext fragments, with any remainder (the tag) forming extra
// fragments. Every fragment in the result is freshly owned.
func scatter(data []byte, shape Chain) Chain {
	out := make(Chain, 0, len(shape)+1)
	offset := 0
	for _, f := range shape {
		n := len(f.Data)
		if offset+n > len(data) {
			n = len(data) - offset
		}
		out = append(out, Fragment{Data: data[offset : offset+n]})
		offset += n
	}
	if offset < len(data) {
		out = append(out, Fragment{Data: data[offset:]})
	}
	return out
}
