// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package statemachine

import (
	"github.com/kvaas/tls13/handshake"
	"github.com/kvaas/tls13/keys"
	"github.com/kvaas/tls13/record"
	"github.com/kvaas/tls13/tlserrors"
)

// handleKeyUpdate implements the AcceptingData -> AcceptingData self-loop:
// ratchet the read-direction application traffic secret per
// [rfc8446:7.2], install the new key, and echo a KeyUpdate of our own if the
// peer requested one.
func (m *Machine) handleKeyUpdate(ev EventKeyUpdate) []Action {
	if m.State.Phase != PhaseAcceptingData {
		return m.fail(tlserrors.ErrUnexpectedMessage)
	}

	m.State.clientAppSecret = keys.NextApplicationTrafficSecret(m.State.CipherSuite, m.State.clientAppSecret)
	key, iv := keys.TrafficKeyFromSecret(m.State.CipherSuite, m.State.clientAppSecret)
	aead, err := m.State.CipherSuite.NewAEAD(key)
	if err != nil {
		return m.fail(tlserrors.ErrCryptoBackendFailure)
	}
	m.State.ReadRecordLayer.Install(aead, iv)

	actions := []Action{SetReadRecordLayer{Layer: m.State.ReadRecordLayer}}

	if ev.Message.UpdateRequested {
		m.State.serverAppSecret = keys.NextApplicationTrafficSecret(m.State.CipherSuite, m.State.serverAppSecret)
		sKey, sIV := keys.TrafficKeyFromSecret(m.State.CipherSuite, m.State.serverAppSecret)
		sAEAD, sErr := m.State.CipherSuite.NewAEAD(sKey)
		if sErr != nil {
			return m.fail(tlserrors.ErrCryptoBackendFailure)
		}
		m.State.WriteRecordLayer.Install(sAEAD, sIV)

		ku := handshake.MsgKeyUpdate{UpdateRequested: false}
		msg := handshake.Message{MsgType: handshake.HandshakeTypeKeyUpdate, Body: ku.Write(nil)}
		serialized := msg.Write(nil)
		rec, protectErr := m.State.WriteRecordLayer.Protect(nil, record.TypeHandshake, serialized, 0)
		if protectErr != nil {
			return m.fail(tlserrors.ErrCryptoBackendFailure)
		}
		actions = append(actions, SetWriteRecordLayer{Layer: m.State.WriteRecordLayer}, WriteToSocket{Bytes: rec})
	}

	return actions
}
