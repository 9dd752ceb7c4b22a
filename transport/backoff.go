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

import "time"

// Backoff doubles a retry interval up to its cap. A successful connection
// resets it to the initial value.
type Backoff struct {
	ivl time.Duration
	max time.Duration
	cur time.Duration
}

// NewBackoff returns a backoff starting at ivl and capped at max. Non
// positive arguments fall back to sane values.
func NewBackoff(ivl, max time.Duration) *Backoff {
	if ivl <= 0 {
		ivl = 100 * time.Millisecond
	}

	if max < ivl {
		max = ivl
	}

	return &Backoff{
		ivl: ivl,
		max: max,
	}
}

// Next returns the interval to wait before the coming retry and advances
// the doubling.
func (o *Backoff) Next() time.Duration {
	if o.cur == 0 {
		o.cur = o.ivl
	}

	d := o.cur

	if o.cur < o.max {
		o.cur *= 2

		if o.cur > o.max {
			o.cur = o.max
		}
	}

	return d
}

// Current returns the interval the next call to Next will produce.
func (o *Backoff) Current() time.Duration {
	if o.cur == 0 {
		return o.ivl
	}

	return o.cur
}

// Reset rewinds the doubling to the initial interval.
func (o *Backoff) Reset() {
	o.cur = 0
}
