// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package statemachine

import (
	"context"
	"crypto/hmac"

	"github.com/kvaas/tls13/ciphersuite"
	"github.com/kvaas/tls13/collaborators"
	"github.com/kvaas/tls13/handshake"
	"github.com/kvaas/tls13/keys"
	"github.com/kvaas/tls13/transport/options"
)

// pskResult is the outcome of rule 4's PSK validation: which identity (if
// any) was accepted, the resumption state it named, and the clock skew
// between the client's claimed ticket age and the server's own measurement.
type pskResult struct {
	accepted   bool
	identityID int
	state      collaborators.ResumptionState
	clockSkew  int64
	replay     ReplayCacheResult
}

// validateBinder implements [rfc8446:4.2.11.2]: the binder over the
// truncated ClientHello (everything up to, but not including, the binders
// list) must match an HMAC computed with the PSK binder key.
//
// truncatedTranscriptHash is the transcript hash as of just before the
// binders list (the caller feeds the truncated serialized ClientHello into
// the connection's HandshakeContext and passes its digest here), per
// keys.HandshakeContext.CurrentDigest.
func validateBinder(suite ciphersuite.Suite, binderKey ciphersuite.Hash, truncatedTranscriptHash ciphersuite.Hash, binder []byte) bool {
	hmacImpl := suite.NewHMAC(binderKey.GetValue())
	hmacImpl.Write(truncatedTranscriptHash.GetValue())
	return hmac.Equal(binder, hmacImpl.Sum(nil))
}

// binderListByteLength returns the wire length of the pre_shared_key
// extension's binders list (the 2-byte list length field plus a 1-byte
// length prefix and the binder bytes for every identity), the suffix
// validateBinder's truncated transcript must exclude.
func binderListByteLength(psk handshake.PreSharedKey) int {
	total := 2
	for _, identity := range psk.GetIdentities() {
		total += 1 + len(identity.Binder)
	}
	return total
}

// negotiatePSK implements rule 4: for each identity in the client's
// pre_shared_key extension, in the order offered, look it up in the ticket
// store, validate its binder, and accept the first one that both resolves
// and verifies. Each identity names a different PSK, so the binder key
// (derived from that PSK's own Early Secret) is recomputed per identity
// rather than once for the whole extension.
func negotiatePSK(ctx context.Context, ch *handshake.MsgClientHello, suite ciphersuite.Suite, truncatedDigest ciphersuite.Hash, opts *options.ServerOptions, now int64) (pskResult, error) {
	if !opts.AllowPSKResumption || !ch.Extensions.PreSharedKeySet || opts.TicketStore == nil {
		return pskResult{}, nil
	}
	if !ch.Extensions.PskExchangeModesSet || !ch.Extensions.PskExchangeModes.ECDHE {
		return pskResult{}, nil
	}
	label := "res binder"
	for i, identity := range ch.Extensions.PreSharedKey.GetIdentities() {
		state, found, err := opts.TicketStore.Lookup(ctx, identity.Identity)
		if err != nil {
			continue
		}
		if !found {
			continue
		}
		binderScheduler := keys.NewScheduler(suite)
		binderScheduler.InitialSecret(state.ResumptionMasterSecret)
		binderKey := binderScheduler.BinderKey(label)
		if !validateBinder(suite, binderKey, truncatedDigest, identity.Binder) {
			continue
		}
		skew := now - int64(identity.ObfuscatedTicketAge) - state.CreatedAt
		replay := ReplayCacheNotConsulted
		if opts.ReplayCache != nil {
			result, err := opts.ReplayCache.Check(identity.Binder)
			if err == nil {
				switch result {
				case collaborators.ReplayAccepted:
					replay = ReplayCacheAccepted
				case collaborators.ReplayDuplicate:
					replay = ReplayCacheDuplicate
				default:
					replay = ReplayCacheUnknown
				}
			}
		}
		return pskResult{
			accepted:   true,
			identityID: i,
			state:      state,
			clockSkew:  skew,
			replay:     replay,
		}, nil
	}
	return pskResult{}, nil
}

// negotiateEarlyData implements rule 5: accept 0-RTT only if the PSK was
// accepted, the negotiated cipher suite and ALPN match what the ticket was
// issued for, and the app-token validator approves. A Duplicate replay
// result always rejects early data (it may still accept the PSK itself,
// per spec scenario 4).
func negotiateEarlyData(ch *handshake.MsgClientHello, psk pskResult, negotiatedSuite ciphersuite.Suite, negotiatedALPN string, opts *options.ServerOptions) EarlyDataType {
	if !ch.Extensions.EarlyDataSet || !opts.AllowEarlyData {
		return EarlyDataNotAttempted
	}
	if !psk.accepted {
		return EarlyDataRejected
	}
	if psk.replay == ReplayCacheDuplicate {
		return EarlyDataReplay
	}
	if psk.state.CipherSuite != uint16(negotiatedSuite.ID()) {
		return EarlyDataRejected
	}
	if psk.state.ALPN != "" && psk.state.ALPN != negotiatedALPN {
		return EarlyDataRejected
	}
	if opts.AppTokenValidator != nil && !opts.AppTokenValidator.Validate(psk.state) {
		return EarlyDataRejected
	}
	return EarlyDataAccepted
}
