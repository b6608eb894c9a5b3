// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package statemachine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/kvaas/tls13/tlserrors"
	"github.com/kvaas/tls13/transport/options"
)

// Machine drives one connection's State through the phase graph. It holds
// no transport of its own — Handle returns the []Action the driver (not in
// scope here, per spec §6) must perform, grounded on the teacher's
// dtlscore.ConnectionHandler split between the state struct and the
// connection-level driver that owns the socket.
type Machine struct {
	State  *State
	Opts   *options.ServerOptions
	Logger *logrus.Entry
}

// NewMachine returns a Machine in PhaseUninitialized, immediately
// transitioned to PhaseExpectingClientHello per the "accept()" transition.
func NewMachine(opts *options.ServerOptions) *Machine {
	state := NewState()
	state.Accept()
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Machine{State: state, Opts: opts, Logger: logger}
}

// Handle delivers one Event to the machine in its current phase, returning
// the actions the driver must perform. It refuses re-entry while
// State.pendingAsync is set (spec §5's suspension guard) and refuses any
// event once Phase is terminal (spec invariant 5).
func (m *Machine) Handle(ctx context.Context, event Event) []Action {
	if m.State.pendingAsync {
		return []Action{ReportError{Alert: tlserrors.ErrPendingAsync.Alert, Kind: ErrorKindLocal, Err: tlserrors.ErrPendingAsync}}
	}
	if m.State.Phase.Terminal() {
		return []Action{ReportError{Alert: tlserrors.ErrTerminalPhase.Alert, Kind: ErrorKindLocal, Err: tlserrors.ErrTerminalPhase}}
	}
	switch ev := event.(type) {
	case EventClientHello:
		return m.handleClientHello(ctx, ev)
	case EventEarlyAppData:
		return m.handleEarlyAppData(ev)
	case EventEndOfEarlyData:
		return m.handleEndOfEarlyData(ev)
	case EventCertificate:
		return m.handleCertificate(ctx, ev)
	case EventCertificateVerify:
		return m.handleCertificateVerify(ctx, ev)
	case EventFinished:
		return m.handleFinished(ev)
	case EventKeyUpdate:
		return m.handleKeyUpdate(ev)
	case EventCloseNotify:
		return m.handleCloseNotify()
	case EventAlert:
		return m.handleAlert(ev)
	case EventAppWrite:
		return m.handleAppWrite(ev)
	case EventAppClose:
		return m.handleAppClose()
	case EventAppEarlyAccepted:
		return []Action{WaitForData{}}
	case EventWriteNewSessionTicket:
		return m.handleWriteNewSessionTicket(ctx, ev)
	default:
		return m.fail(tlserrors.ErrUnexpectedMessage)
	}
}

// Resume re-enters a suspended transition's continuation, clearing
// pendingAsync first so the continuation's own actions (if it suspends
// again) are honored. Per spec §5, suspension completion "resumes and
// emits actions atomically" — the driver must not interleave other events
// between Resume calls for the same suspension.
func (m *Machine) Resume() []Action {
	if !m.State.pendingAsync {
		return []Action{ReportError{Alert: tlserrors.ErrTerminalPhase.Alert, Kind: ErrorKindLocal, Err: tlserrors.ErrTerminalPhase}}
	}
	resume := m.State.resume
	m.State.pendingAsync = false
	m.State.resume = nil
	return resume()
}

// fail transitions to PhaseError and reports err, per spec §4.5/§7: a
// failed transition discards partial mutation by only ever setting Phase to
// PhaseError and returning a ReportError, never partially installing keys.
func (m *Machine) fail(err *tlserrors.Error) []Action {
	m.State.Phase = PhaseError
	return []Action{ReportError{Alert: err.Alert, Kind: categoryToKind(err.Category), Err: err}}
}

func categoryToKind(c tlserrors.Category) ErrorKind {
	switch c {
	case tlserrors.CategoryProtocol:
		return ErrorKindProtocol
	case tlserrors.CategoryLocal:
		return ErrorKindLocal
	default:
		return ErrorKindPolicy
	}
}

