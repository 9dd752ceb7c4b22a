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

// Package trie stores the byte-prefix subscriptions of a sub socket.
//
// Duplicate subscriptions are counted, so subscribing twice to a prefix
// needs two unsubscribes before the filter stops matching it. Match walks
// the message body and succeeds on the first subscribed prefix it covers;
// the empty prefix matches everything.
//
// Not goroutine-safe; every call happens under the owning socket's lock.
package trie

type node struct {
	cnt int
	sub map[byte]*node
}

// Trie is the subscription set of one sub socket.
type Trie struct {
	root node
}

// New returns an empty subscription set.
func New() *Trie {
	return &Trie{}
}

// Subscribe adds one count for the given prefix.
func (o *Trie) Subscribe(pfx []byte) {
	n := &o.root

	for _, b := range pfx {
		if n.sub == nil {
			n.sub = make(map[byte]*node)
		}

		c, ok := n.sub[b]
		if !ok {
			c = &node{}
			n.sub[b] = c
		}

		n = c
	}

	n.cnt++
}

// Unsubscribe drops one count for the given prefix, pruning empty branches.
// It reports false when the prefix was not subscribed.
func (o *Trie) Unsubscribe(pfx []byte) bool {
	path := make([]*node, 0, len(pfx)+1)
	n := &o.root
	path = append(path, n)

	for _, b := range pfx {
		c, ok := n.sub[b]
		if !ok {
			return false
		}

		n = c
		path = append(path, n)
	}

	if n.cnt == 0 {
		return false
	}

	n.cnt--

	// prune leaf-ward nodes left without counts or children
	for i := len(path) - 1; i > 0; i-- {
		n = path[i]
		if n.cnt > 0 || len(n.sub) > 0 {
			break
		}

		delete(path[i-1].sub, pfx[i-1])
	}

	return true
}

// Match reports if the body starts with any subscribed prefix.
func (o *Trie) Match(body []byte) bool {
	n := &o.root

	if n.cnt > 0 {
		return true
	}

	for _, b := range body {
		c, ok := n.sub[b]
		if !ok {
			return false
		}

		n = c

		if n.cnt > 0 {
			return true
		}
	}

	return false
}

// Empty reports if no prefix is subscribed.
func (o *Trie) Empty() bool {
	return o.root.cnt == 0 && len(o.root.sub) == 0
}
