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

import "sync/atomic"

// FuncRelease is the deallocator attached to a foreign payload. It receives
// the original buffer once the last message referencing it has been freed.
type FuncRelease func(p []byte)

// chunk is the shared payload storage behind messages larger than the inline
// capacity. The refcount is the only field mutated from several goroutines:
// it equals the number of live messages pointing at this chunk plus any
// pending bulk-copy pre-increment.
type chunk struct {
	ref int32
	off int
	buf []byte
	rel FuncRelease
}

func newChunk(size int) *chunk {
	return &chunk{
		ref: 1,
		buf: make([]byte, size),
	}
}

func newChunkForeign(p []byte, rel FuncRelease) *chunk {
	return &chunk{
		ref: 1,
		buf: p,
		rel: rel,
	}
}

func (c *chunk) data() []byte {
	return c.buf[c.off:]
}

func (c *chunk) size() int {
	return len(c.buf) - c.off
}

// trim advances the payload start without reallocating.
func (c *chunk) trim(n int) {
	c.off += n
}

func (c *chunk) addRef(n int32) {
	atomic.AddInt32(&c.ref, n)
}

func (c *chunk) refCount() int {
	return int(atomic.LoadInt32(&c.ref))
}

// unRef drops one reference and frees the payload exactly once when the
// count reaches zero. A negative count is a refcount underflow: a bug, not a
// condition.
func (c *chunk) unRef() {
	n := atomic.AddInt32(&c.ref, -1)

	if n < 0 {
		panic("message: chunk refcount underflow")
	}

	if n == 0 {
		if c.rel != nil {
			c.rel(c.buf)
		}

		c.buf = nil
	}
}
