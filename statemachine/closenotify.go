// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package statemachine

import (
	"github.com/kvaas/tls13/alert"
	"github.com/kvaas/tls13/record"
	"github.com/kvaas/tls13/tlserrors"
)

// handleCloseNotify implements the AcceptingData -> Closed transition: the
// peer's close_notify has arrived; echo our own and report EndOfData.
func (m *Machine) handleCloseNotify() []Action {
	if m.State.Phase != PhaseAcceptingData && m.State.Phase != PhaseExpectingCloseNotify {
		return m.fail(tlserrors.ErrUnexpectedMessage)
	}

	actions := m.writeCloseNotify()
	m.State.Phase = PhaseClosed
	actions = append(actions, EndOfData{})
	return actions
}

// handleAlert reports any non-CloseNotify peer alert as a fatal protocol
// error, per spec §4.5's "any -> fatal alert -> Error" row; this core treats
// every peer-sent alert other than close_notify as fatal regardless of its
// advertised level, since it has no use for a warning-level alert once
// received.
func (m *Machine) handleAlert(ev EventAlert) []Action {
	m.State.Phase = PhaseError
	return []Action{ReportError{
		Alert: alert.Description(ev.Description),
		Kind:  ErrorKindProtocol,
		Err:   tlserrors.ErrUnexpectedMessage,
	}}
}

// handleAppClose implements the AcceptingData -> ExpectingCloseNotify
// transition: the application asked to close cleanly, so send our own
// close_notify and wait for the peer's.
func (m *Machine) handleAppClose() []Action {
	if m.State.Phase != PhaseAcceptingData {
		return m.fail(tlserrors.ErrUnexpectedMessage)
	}
	actions := m.writeCloseNotify()
	m.State.Phase = PhaseExpectingCloseNotify
	return actions
}

func (m *Machine) writeCloseNotify() []Action {
	a := alert.Alert{Level: alert.LevelWarning, Description: alert.CloseNotify}
	body := a.Write(nil)
	rec, err := m.State.WriteRecordLayer.Protect(nil, record.TypeAlert, body, 0)
	if err != nil {
		return nil
	}
	return []Action{WriteToSocket{Bytes: rec}}
}
