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

// Package loadbalance implements output pipe selection: the send goes to the
// highest-priority pipe with a free slot, round-robin within a priority.
//
// Not goroutine-safe; every call happens under the owning socket's lock.
package loadbalance

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

// LoadBalance picks the next output pipe by priority then rotation.
type LoadBalance struct {
	bin [MaxPriority + 1][]*ent
	mem map[uint32]*ent
}

// New returns an empty balancer.
func New() *LoadBalance {
	return &LoadBalance{
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
func (o *LoadBalance) Add(p libpip.Pipe, prio int) {
	o.mem[p.ID()] = &ent{
		pip: p,
		pri: clampPriority(prio),
	}
}

// Remove unregisters a pipe, dropping any pending queue position.
func (o *LoadBalance) Remove(p libpip.Pipe) {
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

// Out marks a pipe's send slot free, appending it to its priority bin.
func (o *LoadBalance) Out(p libpip.Pipe) {
	e, ok := o.mem[p.ID()]
	if !ok || e.que {
		return
	}

	e.que = true
	o.bin[e.pri] = append(o.bin[e.pri], e)
}

// CanSend reports if at least one pipe has a free slot.
func (o *LoadBalance) CanSend() bool {
	for i := MinPriority; i <= MaxPriority; i++ {
		if len(o.bin[i]) > 0 {
			return true
		}
	}

	return false
}

// Send hands m to the best ready pipe and returns it. The pipe re-enters
// the rotation on its next Out notification.
func (o *LoadBalance) Send(m *libmsg.Message) (libpip.Pipe, liberr.Error) {
	for i := MinPriority; i <= MaxPriority; i++ {
		for len(o.bin[i]) > 0 {
			e := o.bin[i][0]
			o.bin[i] = o.bin[i][1:]
			e.que = false

			if err := e.pip.Send(m); err != nil {
				continue
			}

			return e.pip, nil
		}
	}

	return nil, libsts.ErrorWouldBlock.Error(nil)
}
