// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

// Package keyexchange computes the (EC)DHE shared secret [rfc8446:4.2.8]
// feeding keys.Scheduler.HandshakeSecret, for the two named groups
// handshake.KeyShare understands. X25519 is generalized from the teacher's
// keys.go ComputeKeyShare (raw golang.org/x/crypto/curve25519 scalar
// multiplication); SECP256R1 has no teacher equivalent and is grounded on
// crypto/ecdh instead, the same package the teacher's later statemachine
// generation switched to for X25519.
package keyexchange

import (
	"crypto/ecdh"
	"errors"

	"github.com/kvaas/tls13/dtlsrand"
	"github.com/kvaas/tls13/handshake"
	"golang.org/x/crypto/curve25519"
)

var ErrNoKeyShare = errors.New("keyexchange: key_share contains no group this server supports")
var ErrPeerKeyShareInvalid = errors.New("keyexchange: peer key_share point is invalid")

// Group identifies which of handshake.KeyShare's two supported groups a
// Secret was generated for.
type Group uint16

const (
	GroupX25519    = Group(handshake.SupportedGroupX25519)
	GroupSECP256R1 = Group(handshake.SupportedGroupSECP256R1)
)

// Secret is one side's ephemeral key-exchange secret for one group. Zero
// value is not usable; construct with Generate.
type Secret struct {
	group      Group
	x25519Priv [32]byte
	ecdhPriv   *ecdh.PrivateKey
}

// Generate creates a fresh ephemeral secret for group, reading randomness
// from rnd (dtlsrand.Rand, same abstraction the teacher uses so tests can
// fix it).
func Generate(rnd dtlsrand.Rand, group Group) (Secret, error) {
	switch group {
	case GroupX25519:
		var priv [32]byte
		rnd.Read(priv[:])
		return Secret{group: group, x25519Priv: priv}, nil
	case GroupSECP256R1:
		var scalar [32]byte
		rnd.Read(scalar[:])
		ecdhPriv, err := ecdh.P256().NewPrivateKey(scalar[:])
		if err != nil {
			// scalar landed outside [1, N-1]; redraw once rather than
			// threading a retry loop through for an astronomically rare case.
			rnd.Read(scalar[:])
			if ecdhPriv, err = ecdh.P256().NewPrivateKey(scalar[:]); err != nil {
				return Secret{}, err
			}
		}
		return Secret{group: group, ecdhPriv: ecdhPriv}, nil
	default:
		return Secret{}, ErrNoKeyShare
	}
}

// PublicKeyShare serializes Secret's public half into the wire form
// handshake.KeyShare expects in the group's slot.
func (s Secret) PublicKeyShare() handshake.KeyShare {
	var out handshake.KeyShare
	switch s.group {
	case GroupX25519:
		pub, err := curve25519.X25519(s.x25519Priv[:], curve25519.Basepoint)
		if err != nil {
			panic("keyexchange: curve25519.X25519 failed computing public key")
		}
		out.X25519Set = true
		copy(out.X25519Key[:], pub)
	case GroupSECP256R1:
		out.SECP256R1Set = true
		copy(out.SECP256R1Key[:], s.ecdhPriv.PublicKey().Bytes())
	}
	return out
}

// SharedSecret computes the (EC)DHE shared secret against the peer's half
// of KeyShare matching s's group. peer must carry the same group s.group was
// generated for.
func (s Secret) SharedSecret(peer handshake.KeyShare) ([]byte, error) {
	switch s.group {
	case GroupX25519:
		if !peer.X25519Set {
			return nil, ErrNoKeyShare
		}
		shared, err := curve25519.X25519(s.x25519Priv[:], peer.X25519Key[:])
		if err != nil {
			return nil, ErrPeerKeyShareInvalid
		}
		return shared, nil
	case GroupSECP256R1:
		if !peer.SECP256R1Set {
			return nil, ErrNoKeyShare
		}
		remotePublic, err := ecdh.P256().NewPublicKey(peer.SECP256R1Key[:])
		if err != nil {
			return nil, ErrPeerKeyShareInvalid
		}
		shared, err := s.ecdhPriv.ECDH(remotePublic)
		if err != nil {
			return nil, ErrPeerKeyShareInvalid
		}
		return shared, nil
	default:
		return nil, ErrNoKeyShare
	}
}

// PeerOffersGroup reports whether share carries a key for group, for the
// server's "pick the first client key share in our preferred groups" rule
// [rfc8446:4.2.8] (spec negotiation rule 3).
func PeerOffersGroup(share handshake.KeyShare, group Group) bool {
	switch group {
	case GroupX25519:
		return share.X25519Set
	case GroupSECP256R1:
		return share.SECP256R1Set
	default:
		return false
	}
}

// PeerSupportsGroup reports whether groups (a ClientHello's
// supported_groups extension) lists group at all, used to pick a
// HelloRetryRequest group when no key_share matched [rfc8446:4.2.8].
func PeerSupportsGroup(groups handshake.SupportedGroups, group Group) bool {
	switch group {
	case GroupX25519:
		return groups.X25519
	case GroupSECP256R1:
		return groups.SECP256R1
	default:
		return false
	}
}
