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
	"os"
	"sync"
)

// EventFD is the single fd a socket exposes to the user's own event loop.
// It is always reported readable, never writable, matching spec §6: the
// socket signals progress (toward the desired condition or toward
// background work) by making this fd's read side ready, level-triggered.
type EventFD struct {
	mu     sync.Mutex
	r      *os.File
	w      *os.File
	armed  bool
	closed bool
}

// NewEventFD allocates a pipe-backed readiness signal.
func NewEventFD() (*EventFD, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	return &EventFD{r: r, w: w}, nil
}

// Fd returns the read end, suitable for registering on poll/epoll/select.
func (e *EventFD) Fd() uintptr {
	return e.r.Fd()
}

// File exposes the read end as an *os.File for use with Go's netpoller
// (e.g. via golang.org/x/sys or the stdlib os.File poll integration).
func (e *EventFD) File() *os.File {
	return e.r
}

// Arm makes the fd readable. Calling Arm repeatedly before a Drain is a
// no-op after the first call: level-triggered, not edge-triggered.
func (e *EventFD) Arm() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.armed {
		return
	}
	e.armed = true
	_, _ = e.w.Write([]byte{0})
}

// Drain consumes the pending readiness byte, if any. After Drain the fd is
// not readable until the next Arm.
func (e *EventFD) Drain() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.armed {
		return
	}
	buf := make([]byte, 1)
	_, _ = e.r.Read(buf)
	e.armed = false
}

// Armed reports whether the fd currently carries a pending readiness byte.
func (e *EventFD) Armed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.armed
}

// Close releases both ends of the pipe. Safe to call more than once.
func (e *EventFD) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	_ = e.w.Close()
	return e.r.Close()
}
