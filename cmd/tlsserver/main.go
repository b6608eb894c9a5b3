// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

// tlsserver is an example driver for the handshake core, grounded on the
// teacher's cmd/test_server/test_server.go: load a certificate, configure
// policy, accept connections, and echo whatever application data arrives.
// Production deployments wire their own AppHandler and TicketStore/
// ReplayCache; this one exists to exercise the whole module end to end.
package main

import (
	"context"
	"flag"
	"net"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kvaas/tls13/dtlsrand"
	"github.com/kvaas/tls13/server"
	"github.com/kvaas/tls13/transport/options"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:4433", "listen address")
	certPath := flag.String("cert", "server-cert.pem", "server certificate chain (PEM)")
	keyPath := flag.String("key", "server-key.pem", "server private key (PEM)")
	allowEarlyData := flag.Bool("early-data", false, "accept 0-RTT early data")
	allowResumption := flag.Bool("resumption", false, "issue and accept PSK resumption tickets")
	flag.Parse()

	logger := logrus.NewEntry(logrus.StandardLogger())

	if err := run(*addr, *certPath, *keyPath, *allowEarlyData, *allowResumption, logger); err != nil {
		logger.WithError(err).Fatal("tlsserver exited")
	}
}

func run(addr, certPath, keyPath string, allowEarlyData, allowResumption bool, logger *logrus.Entry) error {
	opts := options.DefaultServerOptions(dtlsrand.CryptoRand(), logger)

	if err := opts.LoadServerCertificate(certPath, keyPath); err != nil {
		return errors.Wrap(err, "loading server certificate")
	}

	if allowResumption || allowEarlyData {
		opts.TicketStore = server.NewMemoryTicketStore()
		opts.ReplayCache = server.NewMemoryReplayCache()
		opts.AllowPSKResumption = allowResumption
		opts.AllowEarlyData = allowEarlyData
		opts.MaxEarlyDataSize = 16384
	}

	if err := opts.Validate(); err != nil {
		return errors.Wrap(err, "invalid server options")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "listening")
	}
	defer ln.Close()
	logger.WithField("addr", addr).Info("tlsserver listening")

	app := &echoHandler{logger: logger}
	for {
		nc, err := ln.Accept()
		if err != nil {
			return errors.Wrap(err, "accepting connection")
		}
		go serveConn(nc, opts, app, logger)
	}
}

func serveConn(nc net.Conn, opts *options.ServerOptions, app server.AppHandler, logger *logrus.Entry) {
	defer nc.Close()
	c := server.NewConn(nc, opts, app)
	if err := c.Run(context.Background()); err != nil {
		logger.WithError(err).WithField("remote", nc.RemoteAddr()).Warn("connection ended")
	}
}

// echoHandler sends every byte it receives back to its sender, once the
// handshake has installed application traffic keys.
type echoHandler struct {
	logger *logrus.Entry
}

func (h *echoHandler) OnHandshakeComplete(c *server.Conn) {
	h.logger.Debug("handshake complete, ready for application data")
}

func (h *echoHandler) OnData(c *server.Conn, data []byte) {
	if err := c.Write(context.Background(), data); err != nil {
		h.logger.WithError(err).Warn("echo write failed")
	}
}
