// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package record

import "encoding/binary"

// AppendTrailer appends the real content type byte and then zero padding
// bytes to reach the requested total length, forming the [rfc8446:5.2] inner
// plaintext that gets AEAD-sealed as the TLSCiphertext body.
func AppendTrailer(dst []byte, contentType byte, paddingLength int) []byte {
	dst = append(dst, contentType)
	for i := 0; i < paddingLength; i++ {
		dst = append(dst, 0)
	}
	return dst
}

// StripTrailer undoes AppendTrailer after AEAD decryption: it scans from the
// end for the last non-zero byte, which is the real content type, and
// returns the plaintext with the type byte and any padding removed.
// ok is false if the inner plaintext is all-zero, which [rfc8446:5.4] treats
// as a decryption failure (unexpected_message/bad_record_mac).
func StripTrailer(inner []byte) (content []byte, contentType byte, ok bool) {
	offset := len(inner)
	for ; offset > 8; offset -= 8 {
		slice := inner[offset-8 : offset]
		if binary.LittleEndian.Uint64(slice) != 0 {
			break
		}
	}
	for ; offset > 0; offset-- {
		b := inner[offset-1]
		if b != 0 {
			return inner[:offset-1], b, true
		}
	}
	return nil, 0, false
}
