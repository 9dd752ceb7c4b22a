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

package message

import (
	"encoding/binary"

	liberr "github.com/nabbar/golib/errors"
)

// HopSize is the wire size of one routing hop in the header stack.
const HopSize = 4

// Message is a framed payload moving through the stack. The zero value is an
// empty inline message. A Message is not safe for concurrent use; copies made
// with Dup or BulkCopy are independent values and may be used from different
// goroutines.
type Message struct {
	hdr []byte
	chk *chunk
	ln  int
	inl [InlineCapacity]byte
}

// Data returns the message body. The slice stays valid until Free.
func (m *Message) Data() []byte {
	if m.chk != nil {
		return m.chk.data()
	}

	return m.inl[:m.ln]
}

// Size returns the body length in bytes.
func (m *Message) Size() int {
	if m.chk != nil {
		return m.chk.size()
	}

	return m.ln
}

// Header returns the raw header stack, outermost hop first. The slice is the
// exact byte sequence written on the wire before the body.
func (m *Message) Header() []byte {
	return m.hdr
}

// HeaderPushHop prepends one routing hop to the header stack, making it the
// new outermost hop.
func (m *Message) HeaderPushHop(hop uint32) {
	b := make([]byte, HopSize, HopSize+len(m.hdr))
	binary.BigEndian.PutUint32(b, hop)
	m.hdr = append(b, m.hdr...)
}

// HeaderPopHop removes and returns the outermost hop of the header stack.
func (m *Message) HeaderPopHop() (uint32, bool) {
	if len(m.hdr) < HopSize {
		return 0, false
	}

	hop := binary.BigEndian.Uint32(m.hdr)
	m.hdr = m.hdr[HopSize:]

	return hop, true
}

// HeaderClear drops the whole header stack.
func (m *Message) HeaderClear() {
	m.hdr = nil
}

// Trim drops n bytes from the front of the body. Chunk storage only moves
// the start offset; inline storage shifts in place.
func (m *Message) Trim(n int) liberr.Error {
	if n < 0 || n > m.Size() {
		return ErrorTrimRange.Error(nil)
	}

	if m.chk != nil {
		m.chk.trim(n)
	} else {
		copy(m.inl[:], m.inl[n:m.ln])
		m.ln -= n
	}

	return nil
}

// PopHop reads one routing hop off the front of the body and trims it, the
// receive-side dual of HeaderPushHop.
func (m *Message) PopHop() (uint32, bool) {
	if m.Size() < HopSize {
		return 0, false
	}

	hop := binary.BigEndian.Uint32(m.Data())
	_ = m.Trim(HopSize)

	return hop, true
}

// Dup returns a shallow copy. Chunk-backed bodies are shared with one more
// reference; inline bodies are copied by value. Header stacks are copied so
// each message routes independently.
func (m *Message) Dup() *Message {
	d := &Message{
		chk: m.chk,
		ln:  m.ln,
		inl: m.inl,
	}

	if len(m.hdr) > 0 {
		d.hdr = append([]byte(nil), m.hdr...)
	}

	if m.chk != nil {
		m.chk.addRef(1)
	}

	return d
}

// BulkCopy returns k shallow copies for fan-out delivery. The chunk refcount
// is raised by k in one atomic step before any copy is handed out, so a
// consumer freeing early can never race the count to zero.
func (m *Message) BulkCopy(k int) []*Message {
	if k <= 0 {
		return nil
	}

	if m.chk != nil {
		m.chk.addRef(int32(k))
	}

	out := make([]*Message, k)

	for i := range out {
		d := &Message{
			chk: m.chk,
			ln:  m.ln,
			inl: m.inl,
		}

		if len(m.hdr) > 0 {
			d.hdr = append([]byte(nil), m.hdr...)
		}

		out[i] = d
	}

	return out
}

// Free releases this message's reference on the body. The payload of a
// chunk-backed message is freed once the last reference drops.
func (m *Message) Free() {
	if m.chk != nil {
		m.chk.unRef()
		m.chk = nil
	}

	m.hdr = nil
	m.ln = 0
}

// RefCount returns the body refcount, 1 for inline storage.
func (m *Message) RefCount() int {
	if m.chk != nil {
		return m.chk.refCount()
	}

	return 1
}

// Inline reports if the body lives inside the message value.
func (m *Message) Inline() bool {
	return m.chk == nil
}

// WireLen returns the total on-wire length, header stack plus body.
func (m *Message) WireLen() int {
	return len(m.hdr) + m.Size()
}
