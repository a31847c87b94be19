/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

import (
	"github.com/bits-and-blooms/bitset"
)

// Condition bit positions within a socket's desired-condition bitset.
const (
	Readable uint = iota
	Writable
	Acceptable
)

// Condition is the user-declared bitset of which operations the caller next
// intends to attempt. Zero value means "no interest, background progress
// only". It is a pure hint (spec §3); the socket may still signal readiness
// for reasons unrelated to it.
type Condition struct {
	bits *bitset.BitSet
}

// NewCondition builds a Condition from the given bit positions.
func NewCondition(bits ...uint) Condition {
	b := bitset.New(3)
	for _, p := range bits {
		b.Set(p)
	}
	return Condition{bits: b}
}

// Has reports whether the given bit is part of the condition.
func (c Condition) Has(bit uint) bool {
	if c.bits == nil {
		return false
	}
	return c.bits.Test(bit)
}

// IsZero reports whether the condition carries no bits at all.
func (c Condition) IsZero() bool {
	return c.bits == nil || c.bits.None()
}

// Clone returns an independent copy, so storing a Condition on a Socket never
// aliases the caller's bitset.
func (c Condition) Clone() Condition {
	if c.bits == nil {
		return Condition{}
	}
	return Condition{bits: c.bits.Clone()}
}

// Equal reports whether two conditions carry the same bits, used by Update
// to implement idempotence (spec §8: "update is idempotent given unchanged
// desired condition").
func (c Condition) Equal(o Condition) bool {
	switch {
	case c.bits == nil && o.bits == nil:
		return true
	case c.bits == nil || o.bits == nil:
		return c.IsZero() && o.IsZero()
	default:
		return c.bits.Equal(o.bits)
	}
}
