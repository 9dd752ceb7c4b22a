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

package transport

import (
	"encoding/binary"
	"io"
	"net"

	libmsg "github.com/nabbar/spmsg/message"
	libpro "github.com/nabbar/spmsg/protocol"
)

// PreambleSize is the SP connection preamble: two bytes of protocol id in
// network byte order followed by two reserved zero bytes. It is exchanged
// once, before any message.
const PreambleSize = 4

// frameLenSize prefixes every stream message with its total wire length.
const frameLenSize = 8

// EncodePreamble renders the SP preamble for the given protocol.
func EncodePreamble(self libpro.ID) [PreambleSize]byte {
	var b [PreambleSize]byte
	binary.BigEndian.PutUint16(b[:2], uint16(self))
	return b
}

// DecodePreamble validates the reserved bytes and extracts the peer id.
func DecodePreamble(b [PreambleSize]byte) (libpro.ID, bool) {
	if b[2] != 0 || b[3] != 0 {
		return 0, false
	}

	return libpro.ID(binary.BigEndian.Uint16(b[:2])), true
}

// NewStreamFramer returns the raw-stream codec: the 4-byte preamble, then
// each message as an 8-byte big-endian total length followed by header
// stack and body. Inbound messages above max are refused.
func NewStreamFramer(max int64) Framer {
	return &spFramer{max: max}
}

// spFramer keeps distinct length buffers because reads and writes run on
// different goroutines of the same connection.
type spFramer struct {
	max int64
	rbf [frameLenSize]byte
	wbf [frameLenSize]byte
}

func (o *spFramer) Preamble(c net.Conn, self libpro.ID) (libpro.ID, error) {
	snd := EncodePreamble(self)

	if _, err := c.Write(snd[:]); err != nil {
		return 0, err
	}

	var rcv [PreambleSize]byte

	if _, err := io.ReadFull(c, rcv[:]); err != nil {
		return 0, err
	}

	id, ok := DecodePreamble(rcv)
	if !ok {
		return 0, ErrorPreamble.Error(nil)
	}

	return id, nil
}

func (o *spFramer) WriteMsg(c net.Conn, m *libmsg.Message) error {
	binary.BigEndian.PutUint64(o.wbf[:], uint64(m.WireLen()))

	if _, err := c.Write(o.wbf[:]); err != nil {
		return err
	}

	if h := m.Header(); len(h) > 0 {
		if _, err := c.Write(h); err != nil {
			return err
		}
	}

	if b := m.Data(); len(b) > 0 {
		if _, err := c.Write(b); err != nil {
			return err
		}
	}

	return nil
}

func (o *spFramer) ReadMsg(c net.Conn) (*libmsg.Message, error) {
	if _, err := io.ReadFull(c, o.rbf[:]); err != nil {
		return nil, err
	}

	ln := binary.BigEndian.Uint64(o.rbf[:])

	if o.max > 0 && ln > uint64(o.max) {
		return nil, ErrorFrameTooBig.Error(nil)
	}

	m := libmsg.New(int(ln))

	if _, err := io.ReadFull(c, m.Data()); err != nil {
		m.Free()
		return nil, err
	}

	return m, nil
}
