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

package event

import (
	"sync/atomic"
	"time"
)

// Timer delivers EvTimer to its machine under the given source tag. Start
// and Stop may be called from the reactor goroutine only. A stopped or
// restarted timer never delivers a stale firing: each arm bumps a
// generation and the reactor drops firings whose generation is old.
type Timer struct {
	mch *Machine
	src int
	gen uint64
	tim *time.Timer
}

// NewTimer returns a disarmed timer for the machine under source tag src.
func (o *Machine) NewTimer(src int) *Timer {
	return &Timer{
		mch: o,
		src: src,
	}
}

// Start arms the timer for d from now, rearming if already armed.
func (t *Timer) Start(d time.Duration) {
	g := atomic.AddUint64(&t.gen, 1)

	if t.tim != nil {
		t.tim.Stop()
	}

	r := t.mch.rea.(*reactor)

	t.tim = time.AfterFunc(d, func() {
		r.postTimer(t, g)
	})
}

// Stop disarms the timer. Any in-flight firing is dropped.
func (t *Timer) Stop() {
	atomic.AddUint64(&t.gen, 1)

	if t.tim != nil {
		t.tim.Stop()
		t.tim = nil
	}
}

func (t *Timer) live(gen uint64) bool {
	return atomic.LoadUint64(&t.gen) == gen
}
