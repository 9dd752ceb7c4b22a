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

// Package fairqueue implements round-robin input selection over the pipes of
// a socket: the next receive always comes from the longest-waiting ready
// pipe of the highest ready priority.
//
// The structure is not goroutine-safe; every call happens under the owning
// socket's lock.
package fairqueue

import (
	liberr "github.com/nabbar/golib/errors"

	libmsg "github.com/nabbar/spmsg/message"
	libpip "github.com/nabbar/spmsg/pipe"
	libsts "github.com/nabbar/spmsg/status"
)

// Priority bounds, highest first. Pipes default to DefPriority.
const (
	MinPriority = 1
	MaxPriority = 16
	DefPriority = 8
)

type ent struct {
	pip libpip.Pipe
	pri int
	que bool
}

// FairQueue rotates over ready input pipes, priority bins first.
type FairQueue struct {
	bin [MaxPriority + 1][]*ent
	mem map[uint32]*ent
}

// New returns an empty fair queue.
func New() *FairQueue {
	return &FairQueue{
		mem: make(map[uint32]*ent),
	}
}

func clampPriority(prio int) int {
	if prio < MinPriority {
		return DefPriority
	} else if prio > MaxPriority {
		return MaxPriority
	}

	return prio
}

// Add registers a pipe with the given priority.
func (o *FairQueue) Add(p libpip.Pipe, prio int) {
	o.mem[p.ID()] = &ent{
		pip: p,
		pri: clampPriority(prio),
	}
}

// Remove unregisters a pipe, dropping any pending queue position.
func (o *FairQueue) Remove(p libpip.Pipe) {
	e, ok := o.mem[p.ID()]
	if !ok {
		return
	}

	delete(o.mem, p.ID())

	if !e.que {
		return
	}

	bin := o.bin[e.pri]
	for i := range bin {
		if bin[i] == e {
			o.bin[e.pri] = append(bin[:i], bin[i+1:]...)
			break
		}
	}
}

// In marks a pipe ready for receive, appending it to its priority bin.
// Ignored for unknown or already queued pipes.
func (o *FairQueue) In(p libpip.Pipe) {
	e, ok := o.mem[p.ID()]
	if !ok || e.que {
		return
	}

	e.que = true
	o.bin[e.pri] = append(o.bin[e.pri], e)
}

// CanRecv reports if at least one pipe is ready.
func (o *FairQueue) CanRecv() bool {
	for i := MinPriority; i <= MaxPriority; i++ {
		if len(o.bin[i]) > 0 {
			return true
		}
	}

	return false
}

// Recv dequeues the front ready pipe and collects its message. The pipe
// re-enters the queue on its next In notification.
func (o *FairQueue) Recv() (*libmsg.Message, libpip.Pipe, liberr.Error) {
	for i := MinPriority; i <= MaxPriority; i++ {
		for len(o.bin[i]) > 0 {
			e := o.bin[i][0]
			o.bin[i] = o.bin[i][1:]
			e.que = false

			m, err := e.pip.Recv()
			if err != nil {
				// the pipe went away between notification and collect
				continue
			}

			return m, e.pip, nil
		}
	}

	return nil, nil, libsts.ErrorWouldBlock.Error(nil)
}
