// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package handshake

import "github.com/kvaas/tls13/format"

// MsgCertificateRequest is [rfc8446:4.3.2]: the server's request for client
// authentication. certificate_request_context is always empty when sent
// during the initial handshake (non-empty values are only meaningful for
// post-handshake authentication, which this module does not send).
type MsgCertificateRequest struct {
	RequestContextLength int
	RequestContext        [256]byte

	Extensions ExtensionsSet // must carry signature_algorithms [rfc8446:4.3.2]
}

func (msg *MsgCertificateRequest) MessageKind() string { return "handshake" }
func (msg *MsgCertificateRequest) MessageName() string { return "CertificateRequest" }

func (msg *MsgCertificateRequest) Parse(body []byte) (err error) {
	offset := 0
	var requestContextBody []byte
	if offset, requestContextBody, err = format.ParserReadByteLength(body, offset); err != nil {
		return err
	}
	msg.RequestContextLength = len(requestContextBody)
	copy(msg.RequestContext[:], requestContextBody)
	var extensionsBody []byte
	if offset, extensionsBody, err = format.ParserReadUint16Length(body, offset); err != nil {
		return err
	}
	if err = msg.Extensions.parseInside(extensionsBody, false, false, false, nil); err != nil {
		return err
	}
	return format.ParserReadFinish(body, offset)
}

func (msg *MsgCertificateRequest) Write(body []byte) []byte {
	body, mark := format.MarkByteOffset(body)
	body = append(body, msg.RequestContext[:msg.RequestContextLength]...)
	format.FillByteOffset(body, mark)
	return msg.Extensions.Write(body, false, false, false, nil)
}
