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
	"sync"

	libatm "github.com/nabbar/golib/atomic"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
)

// item is one queued dispatch. A non-nil fn bypasses target dispatch; a
// non-nil tmr marks a timer firing checked against its generation before
// delivery.
type item struct {
	tgt Target
	src int
	ev  int
	pay any
	fn  func()
	tmr *Timer
	gen uint64
}

type reactor struct {
	mu   sync.Mutex
	qu   []item
	wake chan struct{}
	done chan struct{}
	fin  chan struct{}
	run  sync.Once
	cls  sync.Once
	on   libatm.Value[bool]
	log  libatm.Value[liblog.FuncLog]
}

// getLogger wraps a possibly nil FuncLog so callers always get a usable
// logger, falling back to the golib default.
func getLogger(fct liblog.FuncLog) liblog.FuncLog {
	return func() liblog.Logger {
		if fct != nil {
			if l := fct(); l != nil {
				return l
			}
		}

		return liblog.GetDefault()
	}
}

func (o *reactor) Start() {
	o.run.Do(func() {
		o.on.Store(true)
		go o.loop()
	})
}

func (o *reactor) Close() {
	o.cls.Do(func() {
		close(o.done)
	})

	<-o.fin
	o.on.Store(false)
}

func (o *reactor) Running() bool {
	return o.on.Load()
}

func (o *reactor) Post(t Target, src int, ev int, p any) {
	o.push(item{tgt: t, src: src, ev: ev, pay: p})
}

func (o *reactor) Exec(fn func()) {
	o.push(item{fn: fn})
}

func (o *reactor) postTimer(t *Timer, gen uint64) {
	o.push(item{tgt: t.mch, src: t.src, ev: EvTimer, tmr: t, gen: gen})
}

// push enqueues one item and wakes the loop. The queue is unbounded so a
// handler can always post without blocking the loop on itself.
func (o *reactor) push(it item) {
	o.mu.Lock()
	o.qu = append(o.qu, it)
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *reactor) loop() {
	defer close(o.fin)

	for {
		o.mu.Lock()
		batch := o.qu
		o.qu = nil
		o.mu.Unlock()

		for i := range batch {
			o.dispatch(batch[i])
		}

		if len(batch) > 0 {
			continue
		}

		select {
		case <-o.wake:
		case <-o.done:
			// drain whatever got queued before the close won the race
			o.mu.Lock()
			batch = o.qu
			o.qu = nil
			o.mu.Unlock()

			for i := range batch {
				o.dispatch(batch[i])
			}

			return
		}
	}
}

func (o *reactor) dispatch(it item) {
	if it.fn != nil {
		it.fn()
		return
	}

	if it.tmr != nil && !it.tmr.live(it.gen) {
		return
	}

	if it.tgt == nil || !it.tgt.Alive() {
		if l := o.log.Load(); l != nil {
			l().Entry(loglvl.DebugLevel, "dropping in-flight event for released machine").FieldAdd("event", it.ev).FieldAdd("source", it.src).Log()
		}
		return
	}

	it.tgt.Dispatch(it.src, it.ev, it.pay)
}
