/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package ws

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"

	liberr "github.com/nabbar/golib/errors"

	libpro "github.com/nabbar/spmsg/protocol"
)

// acceptMagic is the fixed GUID of the RFC 6455 opening handshake.
const acceptMagic = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// handshakeMax bounds the whole opening request or reply; beyond it the
// handshake fails as too long.
const handshakeMax = 4096

// handshakeInit is the fixed first read; anything shorter cannot hold a
// request line.
const handshakeInit = 16

// subProtoPrefix carries the SP protocol id in the websocket subprotocol
// token, decimal with no leading zeros.
const subProtoPrefix = "SP-"

// The 400 reason lines a rejecting server sends.
const (
	reasonTooLong     = "Opening Handshake Too Long"
	reasonVersion     = "Unsupported WebSocket Version"
	reasonBody        = "Cannot Have Body"
	reasonHeaders     = "Missing Required Headers"
	reasonIncompat    = "Incompatible Socket Type"
	reasonUnknownType = "Unrecognized Socket Type"
)

// acceptKey computes Base64(SHA1(key || magic)). It is recomputed from the
// client key at the moment of use, never cached across parser states.
func acceptKey(clientKey string) string {
	h := sha1.Sum([]byte(clientKey + acceptMagic))
	return base64.StdEncoding.EncodeToString(h[:])
}

func newClientKey() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.StdEncoding.EncodeToString(b[:])
}

func subProtoToken(id libpro.ID) string {
	return subProtoPrefix + strconv.FormatUint(uint64(id), 10)
}

func parseSubProto(tok string) (libpro.ID, bool) {
	s, ok := strings.CutPrefix(tok, subProtoPrefix)
	if !ok || s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, false
	}

	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, false
	}

	return libpro.ID(n), true
}

// readUntilTerminator scans for CRLF-CRLF, reading a small fixed chunk
// first and then byte by byte so nothing past the handshake is consumed.
// The buffer is bounded by handshakeMax.
func readUntilTerminator(c net.Conn) ([]byte, error) {
	buf := make([]byte, 0, handshakeInit)
	one := make([]byte, 1)

	chunk := make([]byte, handshakeInit)
	n, err := io.ReadFull(c, chunk)
	if err != nil {
		return nil, err
	}

	buf = append(buf, chunk[:n]...)

	for !strings.Contains(string(buf), "\r\n\r\n") {
		if len(buf) >= handshakeMax {
			return nil, ErrorHandshakeTooLong.Error(nil)
		}

		if _, err = io.ReadFull(c, one); err != nil {
			return nil, err
		}

		buf = append(buf, one[0])
	}

	return buf, nil
}

// splitHeaders parses the lines after the start line into a lowercase-keyed
// header map. Values keep their case; a duplicate key is malformed.
func splitHeaders(lines []string) (map[string]string, bool) {
	hdr := make(map[string]string, len(lines))

	for _, l := range lines {
		k, v, ok := strings.Cut(l, ":")
		if !ok || k == "" || strings.ContainsAny(k, " \t") {
			return nil, false
		}

		key := strings.ToLower(k)
		if _, dup := hdr[key]; dup {
			return nil, false
		}

		hdr[key] = strings.TrimSpace(v)
	}

	return hdr, true
}

// clientHandshake sends the opening request for the given protocol and
// validates the reply, including the accept key.
func clientHandshake(c net.Conn, u string, self libpro.ID) error {
	key := newClientKey()

	req := strings.Join([]string{
		"GET / HTTP/1.1",
		"Host: " + u,
		"Upgrade: websocket",
		"Connection: Upgrade",
		"Sec-WebSocket-Key: " + key,
		"Sec-WebSocket-Version: 13",
		"Sec-WebSocket-Protocol: " + subProtoToken(self),
	}, "\r\n") + "\r\n\r\n"

	if _, err := c.Write([]byte(req)); err != nil {
		return err
	}

	raw, err := readUntilTerminator(c)
	if err != nil {
		return err
	}

	lines := strings.Split(strings.TrimSuffix(string(raw), "\r\n\r\n"), "\r\n")

	if !strings.HasPrefix(lines[0], "HTTP/1.1 101") {
		return ErrorHandshakeRejected.Error(errors.New(strings.TrimSpace(lines[0])))
	}

	hdr, ok := splitHeaders(lines[1:])
	if !ok {
		return ErrorHandshakeMalformed.Error(nil)
	}

	if !strings.EqualFold(hdr["upgrade"], "websocket") {
		return ErrorHandshakeMalformed.Error(nil)
	}

	if !connectionHasUpgrade(hdr["connection"]) {
		return ErrorHandshakeMalformed.Error(nil)
	}

	if hdr["sec-websocket-accept"] != acceptKey(key) {
		return ErrorHandshakeAccept.Error(nil)
	}

	return nil
}

func connectionHasUpgrade(v string) bool {
	for _, t := range strings.Split(v, ",") {
		if strings.EqualFold(strings.TrimSpace(t), "Upgrade") {
			return true
		}
	}

	return false
}

// serverHandshake parses and validates the opening request against the
// local protocol, then replies 101 or a single-line 400 with a specific
// reason.
func serverHandshake(c net.Conn, self libpro.ID) error {
	raw, err := readUntilTerminator(c)

	if err != nil {
		if hasCode(err, ErrorHandshakeTooLong) {
			reject(c, reasonTooLong)
		}

		return err
	}

	peerTok, fail := validateRequest(string(raw), self)

	if fail != nil {
		reject(c, reasonOf(fail))
		return fail
	}

	key := headerOf(string(raw), "sec-websocket-key")

	reply := strings.Join([]string{
		"HTTP/1.1 101 Switching Protocols",
		"Upgrade: websocket",
		"Connection: Upgrade",
		"Sec-WebSocket-Accept: " + acceptKey(key),
		"Sec-WebSocket-Protocol: " + peerTok,
	}, "\r\n") + "\r\n\r\n"

	if _, err = c.Write([]byte(reply)); err != nil {
		return err
	}

	return nil
}

// validateRequest applies the strict request grammar: GET with exactly one
// space on each side of the target, HTTP/1.1, version 13, no body, all
// required headers, and a subprotocol token naming a compatible peer. It
// returns the peer token to echo.
func validateRequest(raw string, self libpro.ID) (string, error) {
	lines := strings.Split(strings.TrimSuffix(raw, "\r\n\r\n"), "\r\n")

	parts := strings.Split(lines[0], " ")
	if len(parts) != 3 || parts[0] != "GET" || parts[2] != "HTTP/1.1" {
		return "", ErrorHandshakeMalformed.Error(nil)
	}

	hdr, ok := splitHeaders(lines[1:])
	if !ok {
		return "", ErrorHandshakeMalformed.Error(nil)
	}

	if hdr["content-length"] != "" || hdr["transfer-encoding"] != "" {
		return "", ErrorHandshakeBody.Error(nil)
	}

	if hdr["host"] == "" ||
		!strings.EqualFold(hdr["upgrade"], "websocket") ||
		!connectionHasUpgrade(hdr["connection"]) ||
		hdr["sec-websocket-key"] == "" ||
		hdr["sec-websocket-protocol"] == "" {
		return "", ErrorHandshakeHeaders.Error(nil)
	}

	if hdr["sec-websocket-version"] != "13" {
		return "", ErrorHandshakeVersion.Error(nil)
	}

	tok := hdr["sec-websocket-protocol"]

	peer, ok := parseSubProto(tok)
	if !ok || !peer.Known() {
		return "", ErrorHandshakeUnknownType.Error(nil)
	}

	if !self.Compatible(peer) {
		return "", ErrorHandshakeSocketType.Error(nil)
	}

	return tok, nil
}

func headerOf(raw string, key string) string {
	lines := strings.Split(strings.TrimSuffix(raw, "\r\n\r\n"), "\r\n")

	if hdr, ok := splitHeaders(lines[1:]); ok {
		return hdr[key]
	}

	return ""
}

func hasCode(err error, code liberr.CodeError) bool {
	if e, ok := err.(liberr.Error); ok {
		return e.HasCode(code)
	}

	return false
}

func reasonOf(err error) string {
	switch {
	case hasCode(err, ErrorHandshakeTooLong):
		return reasonTooLong
	case hasCode(err, ErrorHandshakeVersion):
		return reasonVersion
	case hasCode(err, ErrorHandshakeBody):
		return reasonBody
	case hasCode(err, ErrorHandshakeSocketType):
		return reasonIncompat
	case hasCode(err, ErrorHandshakeUnknownType):
		return reasonUnknownType
	}

	return reasonHeaders
}

func reject(c net.Conn, reason string) {
	_, _ = c.Write([]byte("HTTP/1.1 400 " + reason + "\r\n\r\n"))
}
