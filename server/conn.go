// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

// Package server drives one TCP connection's server-side TLS 1.3 handshake
// and steady-state data transfer, turning raw bytes from net.Conn into
// statemachine.Event values and statemachine.Action values back into bytes
// on the wire. Grounded on the teacher's root-level conn.go, which performs
// the analogous job for a DTLS/UDP transport (there, a net.Conn facade over
// a channel-buffered record queue fed by the UDP receiver); here the
// transport is already a reliable byte stream, so the driver reads TLS
// records directly off it instead of through an intermediate queue.
package server

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"net"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kvaas/tls13/alert"
	"github.com/kvaas/tls13/handshake"
	"github.com/kvaas/tls13/record"
	"github.com/kvaas/tls13/statemachine"
	"github.com/kvaas/tls13/transport/options"
)

// AppHandler is the application layer above the handshake: it receives
// decrypted application data (0-RTT or steady-state) and the connection it
// arrived on, so it can call Conn.Write or Conn.Close.
type AppHandler interface {
	OnHandshakeComplete(c *Conn)
	OnData(c *Conn, data []byte)
}

// Conn drives one accepted net.Conn through its TLS 1.3 server handshake
// and subsequent application traffic.
type Conn struct {
	nc      net.Conn
	r       *bufio.Reader
	machine *statemachine.Machine
	logger  *logrus.Entry
	app     AppHandler

	hsBuf []byte // accumulates decrypted handshake-content-type bytes across records
}

// NewConn wraps an accepted connection with a fresh handshake Machine.
func NewConn(nc net.Conn, opts *options.ServerOptions, app AppHandler) *Conn {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Conn{
		nc:      nc,
		r:       bufio.NewReaderSize(nc, record.MaxCiphertextRecordLength+record.HeaderSize),
		machine: statemachine.NewMachine(opts),
		logger:  logger.WithField("remote", nc.RemoteAddr()),
		app:     app,
	}
}

// Write encrypts and sends application data once the handshake has
// installed application traffic keys.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	return c.apply(ctx, c.machine.Handle(ctx, statemachine.EventAppWrite{Bytes: data}))
}

// Close sends close_notify and waits for the peer's own before returning,
// per [rfc8446:6.1].
func (c *Conn) Close(ctx context.Context) error {
	if err := c.apply(ctx, c.machine.Handle(ctx, statemachine.EventAppClose{})); err != nil {
		return err
	}
	return c.Run(ctx)
}

// Run pumps records off the wire until the connection closes or fails.
func (c *Conn) Run(ctx context.Context) error {
	for {
		content, contentType, err := c.readRecord()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "reading tls record")
		}

		switch contentType {
		case record.TypeChangeCipherSpec:
			continue // middlebox-compatibility filler, per [rfc8446:appendixD.4]

		case record.TypeAlert:
			a, ok := alert.Parse(content)
			if !ok {
				return errors.New("malformed alert record")
			}
			var ev statemachine.Event
			if a.Description == alert.CloseNotify {
				ev = statemachine.EventCloseNotify{}
			} else {
				ev = statemachine.EventAlert{Level: byte(a.Level), Description: byte(a.Description)}
			}
			if err := c.apply(ctx, c.machine.Handle(ctx, ev)); err != nil {
				return err
			}
			if c.machine.State.Phase.Terminal() {
				return nil
			}

		case record.TypeHandshake:
			if err := c.feedHandshakeBytes(ctx, content); err != nil {
				return err
			}
			if c.machine.State.Phase.Terminal() {
				return nil
			}

		case record.TypeApplicationData:
			if err := c.handleAppData(ctx, content); err != nil {
				return err
			}

		default:
			return errors.Errorf("unknown record content type %d", contentType)
		}
	}
}

// readRecord reads and deprotects exactly one TLS record.
func (c *Conn) readRecord() (content []byte, contentType byte, err error) {
	var hdr [record.HeaderSize]byte
	if _, err := io.ReadFull(c.r, hdr[:]); err != nil {
		return nil, 0, err
	}
	if hdr[1] != record.LegacyVersion[0] || hdr[2] != record.LegacyVersion[1] {
		return nil, 0, record.ErrWrongLegacyVers
	}
	length := int(binary.BigEndian.Uint16(hdr[3:5]))
	maxBody := record.MaxPlaintextRecordLength
	if c.machine.State.ReadRecordLayer.Installed() {
		maxBody = record.MaxCiphertextRecordLength
	}
	if length > maxBody {
		return nil, 0, record.ErrBodyTooLong
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(c.r, body); err != nil {
		return nil, 0, err
	}

	header := record.Header{ContentType: hdr[0]}
	return c.machine.State.ReadRecordLayer.Deprotect(header, body)
}

// feedHandshakeBytes appends newly decrypted handshake-content bytes to the
// reassembly buffer and dispatches every complete handshake message it can
// parse out of it, per [rfc8446:4]'s "keep reading until Length bytes
// arrive" framing (no fragment/offset fields over a reliable stream).
func (c *Conn) feedHandshakeBytes(ctx context.Context, content []byte) error {
	c.hsBuf = append(c.hsBuf, content...)
	for {
		var msg handshake.Message
		n, err := msg.Parse(c.hsBuf)
		if err != nil {
			return nil // not enough bytes yet for the next message
		}
		bodyCopy := append([]byte(nil), msg.Body...)
		serialized := (&handshake.Message{MsgType: msg.MsgType, Body: bodyCopy}).Write(nil)
		c.hsBuf = c.hsBuf[n:]

		ev, perr := c.decodeHandshakeEvent(msg.MsgType, bodyCopy, serialized)
		if perr != nil {
			return perr
		}
		if err := c.apply(ctx, c.machine.Handle(ctx, ev)); err != nil {
			return err
		}
		if c.machine.State.Phase.Terminal() {
			return nil
		}
	}
}

func (c *Conn) decodeHandshakeEvent(msgType handshake.MsgType, body, serialized []byte) (statemachine.Event, error) {
	switch msgType {
	case handshake.HandshakeTypeClientHello:
		m := &handshake.MsgClientHello{}
		if err := m.Parse(body); err != nil {
			return nil, errors.Wrap(err, "parsing ClientHello")
		}
		return statemachine.EventClientHello{Message: m, Serialized: serialized}, nil

	case handshake.HandshakeTypeEndOfEarlyData:
		return statemachine.EventEndOfEarlyData{Serialized: serialized}, nil

	case handshake.HandshakeTypeCertificate:
		m := &handshake.MsgCertificate{}
		if err := m.Parse(body); err != nil {
			return nil, errors.Wrap(err, "parsing Certificate")
		}
		return statemachine.EventCertificate{Message: m, Serialized: serialized}, nil

	case handshake.HandshakeTypeCertificateVerify:
		m := &handshake.MsgCertificateVerify{}
		if err := m.Parse(body); err != nil {
			return nil, errors.Wrap(err, "parsing CertificateVerify")
		}
		return statemachine.EventCertificateVerify{Message: m, Serialized: serialized}, nil

	case handshake.HandshakeTypeFinished:
		m := &handshake.MsgFinished{}
		if err := m.Parse(body); err != nil {
			return nil, errors.Wrap(err, "parsing Finished")
		}
		return statemachine.EventFinished{Message: m, Serialized: serialized}, nil

	case handshake.HandshakeTypeKeyUpdate:
		m := &handshake.MsgKeyUpdate{}
		if err := m.Parse(body); err != nil {
			return nil, errors.Wrap(err, "parsing KeyUpdate")
		}
		return statemachine.EventKeyUpdate{Message: m}, nil

	default:
		return nil, errors.Errorf("unexpected client handshake message type %d", msgType)
	}
}

// handleAppData routes one deprotected ApplicationData-type record: during
// 0-RTT it is delivered through the state machine (it can still be rejected
// by replay detection); once steady state is reached it is a plain
// self-loop the core does not model as an event, so it is handed straight
// to the application.
func (c *Conn) handleAppData(ctx context.Context, content []byte) error {
	switch c.machine.State.Phase {
	case statemachine.PhaseAcceptingEarlyData:
		return c.apply(ctx, c.machine.Handle(ctx, statemachine.EventEarlyAppData{Bytes: content}))
	case statemachine.PhaseAcceptingData:
		if c.app != nil {
			c.app.OnData(c, content)
		}
		return nil
	default:
		return c.apply(ctx, c.machine.Handle(ctx, statemachine.EventAlert{
			Level:       byte(alert.LevelFatal),
			Description: byte(alert.UnexpectedMessage),
		}))
	}
}

// apply executes one batch of actions in emission order, per spec §5's
// ordering guarantee.
func (c *Conn) apply(ctx context.Context, actions []statemachine.Action) error {
	for _, a := range actions {
		switch act := a.(type) {
		case statemachine.WriteToSocket:
			if _, err := c.nc.Write(act.Bytes); err != nil {
				return errors.Wrap(err, "writing tls record")
			}

		case statemachine.SetReadRecordLayer, statemachine.SetWriteRecordLayer:
			// Nothing to do: the driver already reads the layer pointers off
			// c.machine.State directly, and Install mutates them in place.

		case statemachine.ReportHandshakeSuccess:
			c.logger.Debug("handshake complete")
			if c.app != nil {
				c.app.OnHandshakeComplete(c)
			}

		case statemachine.ReportEarlyHandshakeSuccess:
			c.logger.Debug("0-RTT accepted")

		case statemachine.DeliverAppData:
			if c.app != nil {
				c.app.OnData(c, act.Bytes)
			}

		case statemachine.ReportError:
			c.logger.WithError(act.Err).WithField("alert", act.Alert).Warn("handshake failed")
			c.sendFatalAlert(act.Alert)
			return act.Err

		case statemachine.EndOfData:
			return io.EOF

		case statemachine.WaitForData:
			// nothing to do

		default:
			return errors.Errorf("unknown action %T", a)
		}
	}
	return nil
}

// sendFatalAlert best-effort notifies the peer before the connection is
// torn down; a failure to send it is not itself reported, since the
// connection is already being abandoned.
func (c *Conn) sendFatalAlert(d alert.Description) {
	body := alert.Fatal(d).Write(nil)
	rec, err := c.machine.State.WriteRecordLayer.Protect(nil, record.TypeAlert, body, 0)
	if err != nil {
		return
	}
	_, _ = c.nc.Write(rec)
}
