// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package statemachine

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvaas/tls13/ciphersuite"
	"github.com/kvaas/tls13/collaborators"
	"github.com/kvaas/tls13/handshake"
	"github.com/kvaas/tls13/keys"
	"github.com/kvaas/tls13/transport/options"
)

// stubTicketStore resolves exactly one fixed ticket identity, enough to
// drive negotiatePSK's Lookup call without a real ticket-encryption layer.
type stubTicketStore struct {
	id    []byte
	state collaborators.ResumptionState
}

func (s *stubTicketStore) Lookup(ctx context.Context, ticketID []byte) (collaborators.ResumptionState, bool, error) {
	if !bytes.Equal(ticketID, s.id) {
		return collaborators.ResumptionState{}, false, nil
	}
	return s.state, true, nil
}

func (s *stubTicketStore) Store(ctx context.Context, state collaborators.ResumptionState) ([]byte, error) {
	return s.id, nil
}

// stubReplayCache always returns a fixed, pre-configured result, letting
// each scenario pick its own point on the Unknown/Accepted/Duplicate axis
// without a real sliding-window implementation.
type stubReplayCache struct {
	result collaborators.ReplayResult
}

func (c *stubReplayCache) Check(pskBinderHash []byte) (collaborators.ReplayResult, error) {
	return c.result, nil
}

// pskClientHelloEvent builds a wire-accurate ClientHello offering psk as its
// only identity, with a correctly computed binder, plus an early_data
// indication when withEarlyData is set. It mirrors
// feedClientHelloAndValidateBinder's own truncate/hash/compare steps:
// serialize once with a zero-valued placeholder binder (same length as a
// real one, so nothing upstream of the binders list shifts), hash the
// truncated prefix, compute the real binder via the same Scheduler/HMAC
// path negotiatePSK uses, write it into the identity, and serialize again
// for the final wire bytes.
func pskClientHelloEvent(t *testing.T, suite ciphersuite.Suite, identity []byte, pskSecret []byte, withEarlyData bool) EventClientHello {
	t.Helper()

	ch := clientHelloFixture(t)
	ch.Extensions.PskExchangeModesSet = true
	ch.Extensions.PskExchangeModes.ECDHE = true
	if withEarlyData {
		ch.Extensions.EarlyDataSet = true
	}

	ch.Extensions.PreSharedKeySet = true
	require.NoError(t, ch.Extensions.PreSharedKey.AddIdentity(identity))
	ch.Extensions.PreSharedKey.Identities[0].ObfuscatedTicketAge = 0
	ch.Extensions.PreSharedKey.Identities[0].Binder = make([]byte, suite.HashLength())

	serialize := func() []byte {
		body := ch.Write(nil)
		msg := handshake.Message{MsgType: handshake.HandshakeTypeClientHello, Body: body}
		return msg.Write(nil)
	}

	placeholder := serialize()
	cut := len(placeholder) - binderListByteLength(ch.Extensions.PreSharedKey)
	require.GreaterOrEqual(t, cut, 0)

	hctx := keys.NewHandshakeContext(suite)
	hctx.AddMessage(placeholder[:cut])
	truncatedDigest := hctx.CurrentDigest()

	binderScheduler := keys.NewScheduler(suite)
	binderScheduler.InitialSecret(pskSecret)
	binderKey := binderScheduler.BinderKey("res binder")
	hmacImpl := suite.NewHMAC(binderKey.GetValue())
	hmacImpl.Write(truncatedDigest.GetValue())
	ch.Extensions.PreSharedKey.Identities[0].Binder = hmacImpl.Sum(nil)

	final := serialize()
	return EventClientHello{Message: ch, Serialized: final}
}

// endOfEarlyDataEvent builds the (empty-body) EndOfEarlyData message a
// client sends to close out its 0-RTT data.
func endOfEarlyDataEvent() EventEndOfEarlyData {
	msg := handshake.Message{MsgType: handshake.HandshakeTypeEndOfEarlyData, Body: nil}
	return EventEndOfEarlyData{Serialized: msg.Write(nil)}
}

// finishedEventFromMachine computes the client's Finished over m's current
// transcript and handshake secret, the same way buildAcceptingDataMachine
// does for the non-PSK path.
func finishedEventFromMachine(m *Machine) EventFinished {
	preFinished := m.State.HandshakeContext.CurrentDigest()
	verifyData := keys.ComputeFinished(m.State.CipherSuite, m.State.ClientHandshakeSecret, preFinished)
	finMsg := handshake.Message{
		MsgType: handshake.HandshakeTypeFinished,
		Body:    (&handshake.MsgFinished{VerifyData: verifyData.GetValue()}).Write(nil),
	}
	return EventFinished{
		Message:    &handshake.MsgFinished{VerifyData: verifyData.GetValue()},
		Serialized: finMsg.Write(nil),
	}
}

var fixedResumptionSecret = bytes.Repeat([]byte{0x42}, 32)

func pskTestOptions(t *testing.T, ticketID []byte, maxEarlyDataSize uint32, replayResult collaborators.ReplayResult) *options.ServerOptions {
	t.Helper()
	opts := newTestOptions(t)
	opts.AllowPSKResumption = true
	opts.AllowEarlyData = true
	opts.TicketStore = &stubTicketStore{
		id: ticketID,
		state: collaborators.ResumptionState{
			Type:                   collaborators.PSKTypeResumption,
			CipherSuite:            uint16(ciphersuite.TLS_AES_128_GCM_SHA256),
			ALPN:                   "",
			ResumptionMasterSecret: fixedResumptionSecret,
			CreatedAt:              opts.Clock(),
			MaxEarlyDataSize:       maxEarlyDataSize,
		},
	}
	opts.ReplayCache = &stubReplayCache{result: replayResult}
	return opts
}

// TestFullHandshakeWithAcceptedPSKAnd0RTT drives spec scenario 3: ticket
// valid, ALPN/cipher match, replay cache says Unknown, 0-RTT accepted and
// delivered, EndOfEarlyData moves to ExpectingFinished, and the client's
// Finished completes the handshake into AcceptingData.
func TestFullHandshakeWithAcceptedPSKAnd0RTT(t *testing.T) {
	ticketID := []byte("ticket-scenario-3")
	opts := pskTestOptions(t, ticketID, 16384, collaborators.ReplayUnknown)
	m := NewMachine(opts)

	suite, ok := ciphersuite.GetSuite(ciphersuite.TLS_AES_128_GCM_SHA256)
	require.True(t, ok)

	ev := pskClientHelloEvent(t, suite, ticketID, fixedResumptionSecret, true)
	actions := m.Handle(context.Background(), ev)
	requireNoFail(t, m, actions)

	require.Equal(t, PSKTypeResumption, m.State.PSKType)
	require.Equal(t, EarlyDataAccepted, m.State.EarlyDataType)
	require.Equal(t, PhaseAcceptingEarlyData, m.State.Phase)

	earlyActions := m.Handle(context.Background(), EventEarlyAppData{Bytes: []byte("hello over 0-RTT")})
	requireNoFail(t, m, earlyActions)
	require.Equal(t, PhaseAcceptingEarlyData, m.State.Phase)
	foundDeliver := false
	for _, a := range earlyActions {
		if d, ok := a.(DeliverAppData); ok {
			require.Equal(t, []byte("hello over 0-RTT"), d.Bytes)
			foundDeliver = true
		}
	}
	require.True(t, foundDeliver)

	endActions := m.Handle(context.Background(), endOfEarlyDataEvent())
	requireNoFail(t, m, endActions)
	require.Equal(t, PhaseExpectingFinished, m.State.Phase)

	finActions := m.Handle(context.Background(), finishedEventFromMachine(m))
	requireNoFail(t, m, finActions)
	require.Equal(t, PhaseAcceptingData, m.State.Phase)
}

// TestPSKAcceptedButEarlyDataReplayed drives spec scenario 4: same ticket as
// scenario 3, but the replay cache reports Duplicate. The PSK is still
// accepted (binder is valid), but 0-RTT is rejected outright and the
// handshake goes straight to ExpectingFinished, never visiting
// AcceptingEarlyData.
func TestPSKAcceptedButEarlyDataReplayed(t *testing.T) {
	ticketID := []byte("ticket-scenario-4")
	opts := pskTestOptions(t, ticketID, 16384, collaborators.ReplayDuplicate)
	m := NewMachine(opts)

	suite, ok := ciphersuite.GetSuite(ciphersuite.TLS_AES_128_GCM_SHA256)
	require.True(t, ok)

	ev := pskClientHelloEvent(t, suite, ticketID, fixedResumptionSecret, true)
	actions := m.Handle(context.Background(), ev)
	requireNoFail(t, m, actions)

	require.Equal(t, PSKTypeResumption, m.State.PSKType)
	require.Equal(t, EarlyDataReplay, m.State.EarlyDataType)
	require.Equal(t, PhaseExpectingFinished, m.State.Phase)

	finActions := m.Handle(context.Background(), finishedEventFromMachine(m))
	requireNoFail(t, m, finActions)
	require.Equal(t, PhaseAcceptingData, m.State.Phase)
}

// TestEarlyDataCapRejectsRemainingRecords exercises the
// "AcceptingEarlyData | max_early_data exceeded" transition: once the
// ticket's advertised max_early_data_size is crossed, the server skips
// straight to ExpectingFinished instead of delivering further 0-RTT
// records, and the client's own (unreachable, in this test) Finished is
// never sent, matching "reject remaining".
func TestEarlyDataCapRejectsRemainingRecords(t *testing.T) {
	ticketID := []byte("ticket-cap")
	opts := pskTestOptions(t, ticketID, 8, collaborators.ReplayUnknown)
	m := NewMachine(opts)

	suite, ok := ciphersuite.GetSuite(ciphersuite.TLS_AES_128_GCM_SHA256)
	require.True(t, ok)

	ev := pskClientHelloEvent(t, suite, ticketID, fixedResumptionSecret, true)
	actions := m.Handle(context.Background(), ev)
	requireNoFail(t, m, actions)
	require.Equal(t, PhaseAcceptingEarlyData, m.State.Phase)

	firstActions := m.Handle(context.Background(), EventEarlyAppData{Bytes: []byte("12345")})
	requireNoFail(t, m, firstActions)
	require.Equal(t, PhaseAcceptingEarlyData, m.State.Phase)

	secondActions := m.Handle(context.Background(), EventEarlyAppData{Bytes: []byte("abcdef")})
	requireNoFail(t, m, secondActions)
	require.Equal(t, PhaseExpectingFinished, m.State.Phase)
	for _, a := range secondActions {
		_, isDeliver := a.(DeliverAppData)
		require.False(t, isDeliver, "record that pushed past max_early_data_size must not be delivered")
	}
}
