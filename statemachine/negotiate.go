// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package statemachine

import (
	"github.com/kvaas/tls13/ciphersuite"
	"github.com/kvaas/tls13/handshake"
	"github.com/kvaas/tls13/keyexchange"
	"github.com/kvaas/tls13/tlserrors"
	"github.com/kvaas/tls13/transport/options"
)

// negotiateVersion implements rule 1: pick highest mutually supported TLS
// 1.3 version. This module never negotiates TLS 1.2, so the only mutual
// outcome is 1.3 itself.
func negotiateVersion(ch *handshake.MsgClientHello) (uint16, error) {
	if ch.Extensions.SupportedVersionsSet && ch.Extensions.SupportedVersions.TLS_13 {
		return handshake.TLS_VERSION_13, nil
	}
	return 0, tlserrors.ErrNoMutualVersion
}

// negotiateCipherSuite implements rule 2: the first suite in the CLIENT's
// list that the server also supports wins. The client's order decides;
// opts.CipherSuitePreference only restricts which suites the server allows,
// and its own order is not used here.
func negotiateCipherSuite(ch *handshake.MsgClientHello, opts *options.ServerOptions) (ciphersuite.Suite, error) {
	serverAllows := func(id ciphersuite.ID) bool {
		for _, allowed := range opts.CipherSuitePreference {
			if allowed == id {
				return true
			}
		}
		return false
	}
	for _, id := range ch.CipherSuites.IDs() {
		if !serverAllows(id) {
			continue
		}
		if suite, ok := ciphersuite.GetSuite(id); ok {
			return suite, nil
		}
	}
	return nil, tlserrors.ErrNoMutualCipherSuite
}

// negotiateGroup implements rule 3: find the first client key_share entry
// in the SERVER's preferred groups. If none matches but the client's
// supported_groups lists a group the server supports, the caller should
// emit a HelloRetryRequest naming the server's most preferred such group
// instead of failing outright; hrrGroup reports that candidate.
func negotiateGroup(ch *handshake.MsgClientHello, opts *options.ServerOptions) (group keyexchange.Group, share handshake.KeyShare, matched bool, hrrGroup keyexchange.Group, hrrPossible bool) {
	if !ch.Extensions.KeyShareSet {
		return 0, handshake.KeyShare{}, false, 0, false
	}
	share = ch.Extensions.KeyShare
	for _, g := range opts.GroupPreference {
		candidate := keyexchange.Group(g)
		if keyexchange.PeerOffersGroup(share, candidate) {
			return candidate, share, true, 0, false
		}
	}
	if ch.Extensions.SupportedGroupsSet {
		for _, g := range opts.GroupPreference {
			candidate := keyexchange.Group(g)
			if keyexchange.PeerSupportsGroup(ch.Extensions.SupportedGroups, candidate) {
				return 0, share, false, candidate, true
			}
		}
	}
	return 0, share, false, 0, false
}

// negotiateALPN implements rule 6: intersect client-offered protocols with
// opts.ALPNPreference in the SERVER's preference order.
func negotiateALPN(ch *handshake.MsgClientHello, opts *options.ServerOptions) (string, error) {
	if !ch.Extensions.ALPNSet || len(opts.ALPNPreference) == 0 {
		return "", nil
	}
	offered := ch.Extensions.ALPN.GetProtocols()
	for _, preferred := range opts.ALPNPreference {
		for _, protocol := range offered {
			if string(protocol) == preferred {
				return preferred, nil
			}
		}
	}
	return "", tlserrors.ErrNoApplicationProtocol
}

// negotiateSignatureScheme picks the server's most preferred scheme the
// client's signature_algorithms lists. Spec gives no explicit ordering rule
// for this parameter (unlike cipher suites), so it follows the
// "deterministic tie-breaks" paragraph: server order wins, matching
// opts.SignatureSchemePreference being an ordered list and
// handshake.SignatureAlgorithms being an unordered presence set with no
// client order to honor in the first place.
func negotiateSignatureScheme(sa handshake.SignatureAlgorithms, opts *options.ServerOptions) (uint16, error) {
	clientHas := func(scheme uint16) bool {
		switch scheme {
		case handshake.SignatureAlgorithm_ECDSA_SECP256r1_SHA256:
			return sa.ECDSA_SECP256r1_SHA256
		case handshake.SignatureAlgorithm_ECDSA_SECP384r1_SHA384:
			return sa.ECDSA_SECP384r1_SHA384
		case handshake.SignatureAlgorithm_ECDSA_SECP512r1_SHA512:
			return sa.ECDSA_SECP512r1_SHA512
		case handshake.SignatureAlgorithm_ED25519:
			return sa.ED25519
		case handshake.SignatureAlgorithm_ED448:
			return sa.ED448
		case handshake.SignatureAlgorithm_RSA_PKCS1_SHA512:
			return sa.RSA_PKCS1_SHA512
		case handshake.SignatureAlgorithm_RSA_PKCS1_SHA384:
			return sa.RSA_PKCS1_SHA384
		case handshake.SignatureAlgorithm_RSA_PKCS1_SHA256:
			return sa.RSA_PKCS1_SHA256
		case handshake.SignatureAlgorithm_RSA_PSS_RSAE_SHA512:
			return sa.RSA_PSS_RSAE_SHA512
		case handshake.SignatureAlgorithm_RSA_PSS_PSS_SHA512:
			return sa.RSA_PSS_PSS_SHA512
		case handshake.SignatureAlgorithm_RSA_PSS_RSAE_SHA384:
			return sa.RSA_PSS_RSAE_SHA384
		case handshake.SignatureAlgorithm_RSA_PSS_PSS_SHA384:
			return sa.RSA_PSS_PSS_SHA384
		case handshake.SignatureAlgorithm_RSA_PSS_RSAE_SHA256:
			return sa.RSA_PSS_RSAE_SHA256
		case handshake.SignatureAlgorithm_RSA_PSS_PSS_SHA256:
			return sa.RSA_PSS_PSS_SHA256
		default:
			return false
		}
	}
	for _, scheme := range opts.SignatureSchemePreference {
		if clientHas(scheme) {
			return scheme, nil
		}
	}
	return 0, tlserrors.ErrUnsupportedSignatureScheme
}
