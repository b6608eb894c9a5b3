// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package handshake

import (
	"encoding/binary"

	"github.com/kvaas/tls13/ciphersuite"
	"github.com/kvaas/tls13/constants"
	"github.com/kvaas/tls13/format"
)

// CipherSuites is the client's cipher_suites list, kept in the order it was
// offered: spec.md's negotiation rule ("pick the first cipher suite in the
// client's list that the server also supports") is order-sensitive, so this
// cannot be collapsed into a bool-per-suite set the way extensions are.
// Unknown suite IDs (including the two non-recommended CCM suites this
// module never implements) are kept too, so Negotiate can skip over them
// without losing the client's relative ordering of the suites it does know.
type CipherSuites struct {
	length int
	ids    [constants.MaxCipherSuites]ciphersuite.ID
}

func (msg *CipherSuites) Parse(body []byte) (err error) {
	offset := 0
	for offset < len(body) {
		var id uint16
		if offset, id, err = format.ParserReadUint16(body, offset); err != nil {
			return err
		}
		if msg.length < len(msg.ids) {
			msg.ids[msg.length] = ciphersuite.ID(id)
			msg.length++
		} // silently drop ids past the cap: a real client will never offer this many
	}
	return nil
}

func (msg *CipherSuites) Write(body []byte) []byte {
	for _, id := range msg.ids[:msg.length] {
		body = binary.BigEndian.AppendUint16(body, uint16(id))
	}
	return body
}

func (msg *CipherSuites) IDs() []ciphersuite.ID {
	return msg.ids[:msg.length]
}

// Negotiate implements spec.md's cipher-suite negotiation rule: the first
// suite in the client's list (this one) that the server also supports wins.
func (msg *CipherSuites) Negotiate() (ciphersuite.Suite, bool) {
	for _, id := range msg.ids[:msg.length] {
		if suite, ok := ciphersuite.GetSuite(id); ok {
			return suite, true
		}
	}
	return nil, false
}
