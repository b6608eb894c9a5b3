// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package statemachine

import (
	"github.com/kvaas/tls13/alert"
	"github.com/kvaas/tls13/record"
)

// Action is one member of spec §4.4's action alphabet: WriteToSocket,
// SetReadRecordLayer, SetWriteRecordLayer, ReportHandshakeSuccess,
// ReportEarlyHandshakeSuccess, DeliverAppData, ReportError, EndOfData,
// WaitForData. A transition returns a []Action in emission order; the
// driver applies them in that order (spec §5's ordering guarantee).
type Action interface {
	actionMarker()
}

// WriteToSocket carries plaintext bytes already framed into one or more
// TLS records (via the write record layer) for the driver to write to the
// transport.
type WriteToSocket struct {
	Bytes []byte
}

// SetReadRecordLayer installs a new read-direction record layer, always
// emitted before any action that depends on data decrypted under it.
type SetReadRecordLayer struct {
	Layer *record.Layer
}

// SetWriteRecordLayer installs a new write-direction record layer, always
// emitted before any WriteToSocket that must use it.
type SetWriteRecordLayer struct {
	Layer *record.Layer
}

// ReportHandshakeSuccess signals the driver that the full handshake
// completed: both directions' application traffic keys are installed and
// ExporterMasterSecret is populated.
type ReportHandshakeSuccess struct{}

// ReportEarlyHandshakeSuccess signals that 0-RTT early data was accepted
// and the application may already consume it, ahead of full completion.
type ReportEarlyHandshakeSuccess struct{}

// DeliverAppData carries decrypted application data (handshake or 0-RTT)
// up to the driver.
type DeliverAppData struct {
	Bytes []byte
}

// ErrorKind classifies a ReportError for driver-side handling/metrics; it is
// not sent on the wire (alert.Description is).
type ErrorKind int

const (
	ErrorKindProtocol ErrorKind = iota
	ErrorKindLocal
	ErrorKindPolicy
)

// ReportError signals a fatal failure; Phase has already transitioned to
// PhaseError. Alert is the code to send on the wire, if the write layer is
// usable (spec §7.2).
type ReportError struct {
	Alert alert.Description
	Kind  ErrorKind
	Err   error
}

// EndOfData signals the connection closed cleanly (CloseNotify exchanged on
// both sides); Phase has transitioned to PhaseClosed.
type EndOfData struct{}

// WaitForData signals the transition produced no output and the driver
// should simply keep reading; used for transitions that only update state
// (e.g. after a client Certificate or CertificateVerify has been processed).
type WaitForData struct{}

func (WriteToSocket) actionMarker()            {}
func (SetReadRecordLayer) actionMarker()       {}
func (SetWriteRecordLayer) actionMarker()      {}
func (ReportHandshakeSuccess) actionMarker()   {}
func (ReportEarlyHandshakeSuccess) actionMarker() {}
func (DeliverAppData) actionMarker()           {}
func (ReportError) actionMarker()              {}
func (EndOfData) actionMarker()                {}
func (WaitForData) actionMarker()              {}
