// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package statemachine

import (
	"github.com/kvaas/tls13/record"
	"github.com/kvaas/tls13/tlserrors"
)

// handleAppWrite implements the AcceptingData -> AcceptingData self-loop:
// encrypt the application's bytes under the current write traffic key.
func (m *Machine) handleAppWrite(ev EventAppWrite) []Action {
	if m.State.Phase != PhaseAcceptingData {
		return m.fail(tlserrors.ErrUnexpectedMessage)
	}
	rec, err := m.State.WriteRecordLayer.Protect(nil, record.TypeApplicationData, ev.Bytes, 0)
	if err != nil {
		return m.fail(tlserrors.ErrCryptoBackendFailure)
	}
	return []Action{WriteToSocket{Bytes: rec}}
}
