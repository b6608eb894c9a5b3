// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package statemachine

import "github.com/kvaas/tls13/handshake"

// Event is one member of spec §4.4's event alphabet: the protocol messages
// (ClientHello, EndOfEarlyData, Certificate, CertificateVerify, Finished,
// KeyUpdate, CloseNotify, Alert) plus the application-level events
// (AppWrite, AppClose, AppEarlyAccepted, WriteNewSessionTicket). A
// connection delivers exactly one Event per call to Machine.Handle.
type Event interface {
	eventMarker()
}

// EventClientHello carries a parsed ClientHello (first or, after HRR,
// second) plus its serialized form for transcript hashing.
type EventClientHello struct {
	Message    *handshake.MsgClientHello
	Serialized []byte
}

// EventEarlyAppData carries one 0-RTT application-data record received
// while Phase == PhaseAcceptingEarlyData.
type EventEarlyAppData struct {
	Bytes []byte
}

// EventEndOfEarlyData carries the client's EndOfEarlyData message.
type EventEndOfEarlyData struct {
	Serialized []byte
}

// EventCertificate carries the client's Certificate message (client
// authentication only).
type EventCertificate struct {
	Message    *handshake.MsgCertificate
	Serialized []byte
}

// EventCertificateVerify carries the client's CertificateVerify message.
type EventCertificateVerify struct {
	Message    *handshake.MsgCertificateVerify
	Serialized []byte
}

// EventFinished carries the client's Finished message.
type EventFinished struct {
	Message    *handshake.MsgFinished
	Serialized []byte
}

// EventKeyUpdate carries a peer KeyUpdate, received once traffic keys are
// installed (PhaseAcceptingData).
type EventKeyUpdate struct {
	Message *handshake.MsgKeyUpdate
}

// EventCloseNotify carries a peer close_notify alert.
type EventCloseNotify struct{}

// EventAlert carries any other peer alert (warning or fatal, non-CloseNotify).
type EventAlert struct {
	Level       byte
	Description byte
}

// EventAppWrite is the application asking to send data once the
// application traffic keys are installed.
type EventAppWrite struct {
	Bytes []byte
}

// EventAppClose is the application asking to close the connection cleanly.
type EventAppClose struct{}

// EventAppEarlyAccepted acks that the application has consumed a
// ReportEarlyHandshakeSuccess and is ready to keep accepting 0-RTT records.
type EventAppEarlyAccepted struct{}

// EventWriteNewSessionTicket is the application asking to issue a
// post-handshake resumption ticket once Phase == PhaseAcceptingData.
type EventWriteNewSessionTicket struct {
	Lifetime uint32
}

func (EventClientHello) eventMarker()           {}
func (EventEarlyAppData) eventMarker()          {}
func (EventEndOfEarlyData) eventMarker()        {}
func (EventCertificate) eventMarker()           {}
func (EventCertificateVerify) eventMarker()     {}
func (EventFinished) eventMarker()              {}
func (EventKeyUpdate) eventMarker()             {}
func (EventCloseNotify) eventMarker()           {}
func (EventAlert) eventMarker()                 {}
func (EventAppWrite) eventMarker()              {}
func (EventAppClose) eventMarker()              {}
func (EventAppEarlyAccepted) eventMarker()      {}
func (EventWriteNewSessionTicket) eventMarker() {}
