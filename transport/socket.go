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

// Package transport implements the core of the XCM plugin framework: the
// process-wide transport registry (C1), the generic per-socket record and
// its dispatch skeleton (C2/C3). Concrete transports (ux, tcp, tls) and the
// utls hybrid transport plug into it by implementing Ops.
package transport

import (
	"sync"
	"sync/atomic"
)

// SocketType is the immutable role of a socket, fixed at creation.
type SocketType uint8

const (
	TypeServer SocketType = iota
	TypeConnection
)

func (t SocketType) String() string {
	if t == TypeServer {
		return "server"
	}
	return "connection"
}

// Counters are the monotonically non-decreasing byte/message counters of
// spec §3, updated with atomics so transports never need their own locking
// just to keep count.
type Counters struct {
	ToAppMsgs     uint64
	FromAppMsgs   uint64
	ToLowerMsgs   uint64
	FromLowerMsgs uint64
	ToAppBytes    uint64
	FromAppBytes  uint64
	ToLowerBytes  uint64
	FromLowerBytes uint64
}

func (c *Counters) AddToApp(bytes int)     { atomic.AddUint64(&c.ToAppMsgs, 1); atomic.AddUint64(&c.ToAppBytes, uint64(bytes)) }
func (c *Counters) AddFromApp(bytes int)   { atomic.AddUint64(&c.FromAppMsgs, 1); atomic.AddUint64(&c.FromAppBytes, uint64(bytes)) }
func (c *Counters) AddToLower(bytes int)   { atomic.AddUint64(&c.ToLowerMsgs, 1); atomic.AddUint64(&c.ToLowerBytes, uint64(bytes)) }
func (c *Counters) AddFromLower(bytes int) { atomic.AddUint64(&c.FromLowerMsgs, 1); atomic.AddUint64(&c.FromLowerBytes, uint64(bytes)) }

// Snapshot returns a copy safe to hand to a caller without races.
func (c *Counters) Snapshot() Counters {
	return Counters{
		ToAppMsgs:      atomic.LoadUint64(&c.ToAppMsgs),
		FromAppMsgs:    atomic.LoadUint64(&c.FromAppMsgs),
		ToLowerMsgs:    atomic.LoadUint64(&c.ToLowerMsgs),
		FromLowerMsgs:  atomic.LoadUint64(&c.FromLowerMsgs),
		ToAppBytes:     atomic.LoadUint64(&c.ToAppBytes),
		FromAppBytes:   atomic.LoadUint64(&c.FromAppBytes),
		ToLowerBytes:   atomic.LoadUint64(&c.ToLowerBytes),
		FromLowerBytes: atomic.LoadUint64(&c.FromLowerBytes),
	}
}

// CtlHandle is the narrow interface the socket core needs from the control
// channel package, kept here (rather than importing package ctl) to avoid a
// cyclic dependency: package ctl needs *Socket, so *Socket cannot need
// package ctl.
type CtlHandle interface {
	// Tick is called on (almost) every public socket op; it increments an
	// internal counter and, once the throttling threshold is reached,
	// services pending introspection clients.
	Tick()
	// Destroy tears the control channel down. owner=false is the post-fork
	// non-owner path: local state is dropped but the filesystem artifact is
	// left alone.
	Destroy(owner bool)
}

var nextID uint64

func allocID() uint64 {
	return atomic.AddUint64(&nextID, 1)
}

// Socket is the generic per-socket record (spec §3/"Socket"). Transports
// never see this struct's fields directly except through the accessors
// below and their own Private state.
type Socket struct {
	mu sync.Mutex

	id        uint64
	typ       SocketType
	desc      *Descriptor
	event     *EventFD
	blocking  atomic.Bool
	desired   Condition
	counters  Counters
	ctlHandle CtlHandle
	closed    atomic.Bool

	// Private is the transport-private tail (spec: "inline tail of
	// transport-private bytes whose size the transport declares"). In Go
	// this is simply a per-transport struct pointer rather than raw bytes.
	Private any

	// server is set on a connection socket accepted from, or connected
	// against, this descriptor; nil until resolved for sockets (like UTLS)
	// that only know their concrete transport after the handshake.
	resolvedTransport string
}

// newSocket allocates a core record and its event fd. It never fails except
// on event-fd exhaustion (too many open files), which is itself one of the
// few cases this framework lets bubble up as a raw OS error.
func newSocket(typ SocketType, desc *Descriptor) (*Socket, error) {
	return NewBoundSocket(typ, desc, nil)
}

// NewBoundSocket allocates a core record. When ev is non-nil the socket
// shares that event fd rather than allocating its own — this is how a
// composite transport (utls) creates sub-sockets registered on the same
// event fd as the parent (spec §4.5/"Init": "bound to the same event fd as
// the parent").
func NewBoundSocket(typ SocketType, desc *Descriptor, ev *EventFD) (*Socket, error) {
	if ev == nil {
		var err error
		ev, err = NewEventFD()
		if err != nil {
			return nil, err
		}
	}
	s := &Socket{
		id:    allocID(),
		typ:   typ,
		desc:  desc,
		event: ev,
	}
	return s, nil
}

func (s *Socket) ID() uint64         { return s.id }
func (s *Socket) Type() SocketType   { return s.typ }
func (s *Socket) Descriptor() *Descriptor { return s.desc }
func (s *Socket) Event() *EventFD    { return s.event }
func (s *Socket) Counters() *Counters { return &s.counters }

func (s *Socket) Blocking() bool      { return s.blocking.Load() }
func (s *Socket) SetBlocking(b bool)  { s.blocking.Store(b) }

func (s *Socket) Desired() Condition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desired
}

func (s *Socket) SetDesired(c Condition) {
	s.mu.Lock()
	s.desired = c.Clone()
	s.mu.Unlock()
}

func (s *Socket) SetCtl(h CtlHandle) {
	s.mu.Lock()
	s.ctlHandle = h
	s.mu.Unlock()
}

func (s *Socket) Ctl() CtlHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctlHandle
}

// SetResolvedTransport lets a composite transport (utls) record which
// concrete sub-transport a connection resolved to, for GetTransport.
func (s *Socket) SetResolvedTransport(name string) {
	s.mu.Lock()
	s.resolvedTransport = name
	s.mu.Unlock()
}

func (s *Socket) ResolvedTransport() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolvedTransport
}

func (s *Socket) IsClosed() bool { return s.closed.Load() }

// tickCtl runs the control-channel servicing step, if one is attached. It
// never returns an error: CTL failures are absorbed (spec §4.4/§7).
func (s *Socket) tickCtl() {
	if h := s.Ctl(); h != nil {
		h.Tick()
	}
}
