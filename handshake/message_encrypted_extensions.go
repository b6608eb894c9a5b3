// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package handshake

import "github.com/kvaas/tls13/format"

// MsgEncryptedExtensions is [rfc8446:4.3.1]: the server's extensions that
// must stay confidential, sent immediately after ServerHello once handshake
// traffic keys are installed. Body is just an extensions list, same shape
// ServerHello's extensions block uses.
type MsgEncryptedExtensions struct {
	Extensions ExtensionsSet
}

func (msg *MsgEncryptedExtensions) MessageKind() string { return "handshake" }
func (msg *MsgEncryptedExtensions) MessageName() string { return "EncryptedExtensions" }

func (msg *MsgEncryptedExtensions) Parse(body []byte) (err error) {
	offset := 0
	var extensionsBody []byte
	if offset, extensionsBody, err = format.ParserReadUint16Length(body, offset); err != nil {
		return err
	}
	if err = msg.Extensions.parseInside(extensionsBody, false, true, false, nil); err != nil {
		return err
	}
	return format.ParserReadFinish(body, offset)
}

func (msg *MsgEncryptedExtensions) Write(body []byte) []byte {
	return msg.Extensions.Write(body, false, true, false, nil)
}
