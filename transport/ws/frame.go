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
	"encoding/binary"
	"io"
	"net"
	"sync"

	libmsg "github.com/nabbar/spmsg/message"
	libpro "github.com/nabbar/spmsg/protocol"
	libtpt "github.com/nabbar/spmsg/transport"
)

// RFC 6455 frame opcodes.
const (
	opContinuation = 0x0
	opText         = 0x1
	opBinary       = 0x2
	opClose        = 0x8
	opPing         = 0x9
	opPong         = 0xA
)

const (
	bitFin    = 0x80
	bitRsv    = 0x70
	bitMask   = 0x80
	maskLen7  = 0x7F
	len16Mark = 126
	len64Mark = 127
	ctrlMax   = 125
)

// newFramer returns the RFC 6455 codec carrying SP messages as binary
// frames. The client side masks every outbound frame with a fresh 32-bit
// key; the server side requires inbound masking and sends clear. An SP
// message spanning continuation frames is reassembled before delivery.
func newFramer(client bool, max int64) libtpt.Framer {
	return &framer{
		cli: client,
		max: max,
	}
}

type framer struct {
	cli bool
	max int64

	// wmu serializes whole-frame writes: the reader goroutine answers
	// pings while the writer goroutine sends messages
	wmu sync.Mutex
}

// Preamble sends the SP connection header as the first binary frame.
func (o *framer) Preamble(c net.Conn, self libpro.ID) (libpro.ID, error) {
	snd := libtpt.EncodePreamble(self)

	if err := o.writeFrame(c, opBinary, snd[:]); err != nil {
		return 0, err
	}

	pay, err := o.readAssembled(c)
	if err != nil {
		return 0, err
	}

	if len(pay) != libtpt.PreambleSize {
		return 0, ErrorFrameMalformed.Error(nil)
	}

	var rcv [libtpt.PreambleSize]byte
	copy(rcv[:], pay)

	id, ok := libtpt.DecodePreamble(rcv)
	if !ok {
		return 0, ErrorFrameMalformed.Error(nil)
	}

	return id, nil
}

func (o *framer) WriteMsg(c net.Conn, m *libmsg.Message) error {
	pay := make([]byte, 0, m.WireLen())
	pay = append(pay, m.Header()...)
	pay = append(pay, m.Data()...)

	return o.writeFrame(c, opBinary, pay)
}

func (o *framer) ReadMsg(c net.Conn) (*libmsg.Message, error) {
	pay, err := o.readAssembled(c)
	if err != nil {
		return nil, err
	}

	return libmsg.NewFromBytes(pay), nil
}

// writeFrame emits one unfragmented frame in a single connection write so
// concurrent control and data frames never interleave.
func (o *framer) writeFrame(c net.Conn, op byte, pay []byte) error {
	buf := make([]byte, 0, 14+len(pay))
	buf = append(buf, bitFin|op)

	ln := len(pay)

	switch {
	case ln <= ctrlMax:
		buf = append(buf, byte(ln))
	case ln <= 0xFFFF:
		buf = append(buf, len16Mark, 0, 0)
		binary.BigEndian.PutUint16(buf[2:4], uint16(ln))
	default:
		buf = append(buf, len64Mark, 0, 0, 0, 0, 0, 0, 0, 0)
		binary.BigEndian.PutUint64(buf[2:10], uint64(ln))
	}

	if o.cli {
		buf[1] |= bitMask

		var key [4]byte
		_, _ = rand.Read(key[:])
		buf = append(buf, key[:]...)

		at := len(buf)
		buf = append(buf, pay...)

		for i := range buf[at:] {
			buf[at+i] ^= key[i&3]
		}
	} else {
		buf = append(buf, pay...)
	}

	o.wmu.Lock()
	_, err := c.Write(buf)
	o.wmu.Unlock()

	return err
}

// readFrame decodes one frame header and payload, unmasking when the peer
// masks. The direction rule is enforced server-side: a clear client frame
// is malformed.
func (o *framer) readFrame(c net.Conn) (fin bool, op byte, pay []byte, err error) {
	var h [2]byte

	if _, err = io.ReadFull(c, h[:]); err != nil {
		return false, 0, nil, err
	}

	if h[0]&bitRsv != 0 {
		return false, 0, nil, ErrorFrameMalformed.Error(nil)
	}

	fin = h[0]&bitFin != 0
	op = h[0] & 0x0F
	masked := h[1]&bitMask != 0

	if !o.cli && !masked {
		return false, 0, nil, ErrorFrameMalformed.Error(nil)
	}

	ln := uint64(h[1] & maskLen7)

	switch ln {
	case len16Mark:
		var x [2]byte
		if _, err = io.ReadFull(c, x[:]); err != nil {
			return false, 0, nil, err
		}
		ln = uint64(binary.BigEndian.Uint16(x[:]))

	case len64Mark:
		var x [8]byte
		if _, err = io.ReadFull(c, x[:]); err != nil {
			return false, 0, nil, err
		}
		ln = binary.BigEndian.Uint64(x[:])
	}

	if op >= opClose && (ln > ctrlMax || !fin) {
		return false, 0, nil, ErrorFrameMalformed.Error(nil)
	}

	if o.max > 0 && ln > uint64(o.max) {
		return false, 0, nil, ErrorFrameTooBig.Error(nil)
	}

	var key [4]byte

	if masked {
		if _, err = io.ReadFull(c, key[:]); err != nil {
			return false, 0, nil, err
		}
	}

	pay = make([]byte, ln)

	if _, err = io.ReadFull(c, pay); err != nil {
		return false, 0, nil, err
	}

	if masked {
		for i := range pay {
			pay[i] ^= key[i&3]
		}
	}

	return fin, op, pay, nil
}

// readAssembled returns the next complete binary message, answering pings,
// ignoring pongs, and converting a close frame to EOF. Text frames are not
// part of the SP mapping.
func (o *framer) readAssembled(c net.Conn) ([]byte, error) {
	var (
		msg  []byte
		cont bool
	)

	for {
		fin, op, pay, err := o.readFrame(c)
		if err != nil {
			return nil, err
		}

		switch op {
		case opPing:
			if err = o.writeFrame(c, opPong, pay); err != nil {
				return nil, err
			}

		case opPong:

		case opClose:
			_ = o.writeFrame(c, opClose, nil)
			return nil, io.EOF

		case opBinary:
			if cont {
				return nil, ErrorFrameMalformed.Error(nil)
			}

			if fin {
				return pay, nil
			}

			msg = append(msg, pay...)
			cont = true

		case opContinuation:
			if !cont {
				return nil, ErrorFrameMalformed.Error(nil)
			}

			msg = append(msg, pay...)

			if o.max > 0 && int64(len(msg)) > o.max {
				return nil, ErrorFrameTooBig.Error(nil)
			}

			if fin {
				return msg, nil
			}

		case opText:
			return nil, ErrorFrameMalformed.Error(nil)

		default:
			return nil, ErrorFrameMalformed.Error(nil)
		}
	}
}
