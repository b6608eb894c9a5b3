// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package statemachine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvaas/tls13/collaborators"
	"github.com/kvaas/tls13/handshake"
)

func TestAppWriteEncryptsUnderCurrentTrafficKey(t *testing.T) {
	m := buildAcceptingDataMachine(t)
	actions := m.Handle(context.Background(), EventAppWrite{Bytes: []byte("hello")})
	require.Len(t, actions, 1)
	w, ok := actions[0].(WriteToSocket)
	require.True(t, ok)
	assert.NotEmpty(t, w.Bytes)
}

func TestAppWriteBeforeHandshakeCompleteFails(t *testing.T) {
	opts := newTestOptions(t)
	m := NewMachine(opts)
	actions := m.Handle(context.Background(), EventAppWrite{Bytes: []byte("x")})
	assert.Equal(t, PhaseError, m.State.Phase)
	_, ok := actions[0].(ReportError)
	assert.True(t, ok)
}

// TestKeyUpdateRatchetsReadSecretAndEchoesWhenRequested covers [rfc8446:7.2]:
// receiving a KeyUpdate with update_requested=true ratchets the read secret
// forward and replies with the server's own KeyUpdate(update_requested=false).
func TestKeyUpdateRatchetsReadSecretAndEchoesWhenRequested(t *testing.T) {
	m := buildAcceptingDataMachine(t)
	before := m.State.clientAppSecret

	actions := m.Handle(context.Background(), EventKeyUpdate{
		Message: &handshake.MsgKeyUpdate{UpdateRequested: true},
	})
	requireNoFail(t, m, actions)
	assert.NotEqual(t, before, m.State.clientAppSecret)

	var sawSetRead, sawSetWrite, sawWrite bool
	for _, a := range actions {
		switch a.(type) {
		case SetReadRecordLayer:
			sawSetRead = true
		case SetWriteRecordLayer:
			sawSetWrite = true
		case WriteToSocket:
			sawWrite = true
		}
	}
	assert.True(t, sawSetRead)
	assert.True(t, sawSetWrite)
	assert.True(t, sawWrite)
}

// TestKeyUpdateWithoutRequestDoesNotRatchetWriteSide covers the
// update_requested=false branch: only the read side is ratcheted, nothing
// is sent back.
func TestKeyUpdateWithoutRequestDoesNotRatchetWriteSide(t *testing.T) {
	m := buildAcceptingDataMachine(t)
	beforeWrite := m.State.serverAppSecret

	actions := m.Handle(context.Background(), EventKeyUpdate{
		Message: &handshake.MsgKeyUpdate{UpdateRequested: false},
	})
	requireNoFail(t, m, actions)
	assert.Equal(t, beforeWrite, m.State.serverAppSecret)
	require.Len(t, actions, 1)
	_, ok := actions[0].(SetReadRecordLayer)
	assert.True(t, ok)
}

// TestCloseNotifyTransitionsToClosedAndEchoesAlert covers the
// AcceptingData -> Closed transition.
func TestCloseNotifyTransitionsToClosedAndEchoesAlert(t *testing.T) {
	m := buildAcceptingDataMachine(t)
	actions := m.Handle(context.Background(), EventCloseNotify{})
	assert.Equal(t, PhaseClosed, m.State.Phase)

	var sawWrite, sawEnd bool
	for _, a := range actions {
		switch a.(type) {
		case WriteToSocket:
			sawWrite = true
		case EndOfData:
			sawEnd = true
		}
	}
	assert.True(t, sawWrite)
	assert.True(t, sawEnd)
}

// TestAppCloseThenPeerCloseNotifyCompletesCleanClose covers the
// application-initiated close path: AppClose -> ExpectingCloseNotify, then
// the peer's own close_notify finishes the shutdown.
func TestAppCloseThenPeerCloseNotifyCompletesCleanClose(t *testing.T) {
	m := buildAcceptingDataMachine(t)
	closeActions := m.Handle(context.Background(), EventAppClose{})
	assert.Equal(t, PhaseExpectingCloseNotify, m.State.Phase)
	require.Len(t, closeActions, 1)
	_, ok := closeActions[0].(WriteToSocket)
	assert.True(t, ok)

	finalActions := m.Handle(context.Background(), EventCloseNotify{})
	assert.Equal(t, PhaseClosed, m.State.Phase)
	var sawEnd bool
	for _, a := range finalActions {
		if _, ok := a.(EndOfData); ok {
			sawEnd = true
		}
	}
	assert.True(t, sawEnd)
}

// TestNonCloseNotifyAlertIsFatal covers spec's "any -> fatal alert -> Error"
// row: any peer alert other than close_notify is treated as fatal, even a
// warning-level one.
func TestNonCloseNotifyAlertIsFatal(t *testing.T) {
	m := buildAcceptingDataMachine(t)
	actions := m.Handle(context.Background(), EventAlert{Level: 1, Description: 10}) // warning, unexpected_message
	assert.Equal(t, PhaseError, m.State.Phase)
	require.Len(t, actions, 1)
	_, ok := actions[0].(ReportError)
	assert.True(t, ok)
}

// TestWriteNewSessionTicketIssuesDistinctTicketsOffTheSameSecret covers
// [rfc8446:4.6.1]: each issued ticket gets its own nonce and ticket ID, even
// though both derive from the same resumption_master_secret.
func TestWriteNewSessionTicketIssuesDistinctTicketsOffTheSameSecret(t *testing.T) {
	m := buildAcceptingDataMachine(t)
	store := &recordingTicketStore{}
	m.Opts.TicketStore = store

	a1 := m.Handle(context.Background(), EventWriteNewSessionTicket{Lifetime: 7200})
	requireNoFail(t, m, a1)
	a2 := m.Handle(context.Background(), EventWriteNewSessionTicket{Lifetime: 7200})
	requireNoFail(t, m, a2)

	require.Len(t, store.stored, 2)
	assert.NotEqual(t, store.stored[0].ResumptionMasterSecret, store.stored[1].ResumptionMasterSecret)
}

type recordingTicketStore struct {
	stored []collaborators.ResumptionState
}

func (s *recordingTicketStore) Store(ctx context.Context, state collaborators.ResumptionState) ([]byte, error) {
	s.stored = append(s.stored, state)
	return []byte{byte(len(s.stored))}, nil
}

func (s *recordingTicketStore) Lookup(ctx context.Context, ticketID []byte) (collaborators.ResumptionState, bool, error) {
	return collaborators.ResumptionState{}, false, nil
}
