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

// Package message provides the zero-copy message value exchanged between the
// protocol and transport layers.
//
// A message carries a body stored either inline (up to InlineCapacity bytes,
// optimizing the common tiny-frame case) or in a shared reference-counted
// chunk, plus an optional header stack of 32-bit routing hops built by the
// request/reply family. Callers of Data / Size cannot tell the two storage
// modes apart.
//
// Shallow copies (Dup, BulkCopy) share the chunk and bump its refcount;
// the payload is freed exactly once when the last copy is freed. Trim drops
// bytes from the front of the body without copying, which is how transports
// strip wire prefixes and how protocols peel routing hops.
package message

// InlineCapacity is the largest body stored inside the message value itself.
// One byte more and the body moves to a refcounted chunk.
const InlineCapacity = 32

// New returns a message with a zeroed body of the given size. The body is
// stored inline when size fits InlineCapacity.
func New(size int) *Message {
	m := &Message{}

	if size <= InlineCapacity {
		m.ln = size
	} else {
		m.chk = newChunk(size)
	}

	return m
}

// NewFromBytes returns a message whose body is a copy of p.
func NewFromBytes(p []byte) *Message {
	m := New(len(p))
	copy(m.Data(), p)
	return m
}

// NewFromForeign returns a message borrowing p as its body without copying.
// The release function, if not nil, is called with p once the last message
// referencing it is freed. Foreign payloads always use chunk storage so the
// release contract holds whatever the size.
func NewFromForeign(p []byte, rel FuncRelease) *Message {
	return &Message{
		chk: newChunkForeign(p, rel),
	}
}
