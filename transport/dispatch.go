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
	"context"

	liberr "github.com/nabbar/xcm/errors"
)

// Every public operation below follows the skeleton of spec §4.2:
//  1. tick the control channel (except update/get_*)
//  2. invoke the transport's op
//  3. on success, for ops that may change readiness, re-invoke Update

// Connect dials address through desc's transport and returns a connection socket.
func Connect(ctx context.Context, desc *Descriptor, address string, attrs map[string]any) (*Socket, liberr.Error) {
	s, err := newSocket(TypeConnection, desc)
	if err != nil {
		return nil, ErrorParamEmpty.Error(err)
	}
	if e := desc.Ops.Connect(ctx, s, address, attrs); e != nil {
		return nil, asLibErr(e)
	}
	if e := desc.Ops.Update(s); e != nil {
		return s, asLibErr(e)
	}
	return s, nil
}

// Server binds address through desc's transport and returns a server socket.
func Server(ctx context.Context, desc *Descriptor, address string, attrs map[string]any) (*Socket, liberr.Error) {
	s, err := newSocket(TypeServer, desc)
	if err != nil {
		return nil, ErrorParamEmpty.Error(err)
	}
	if e := desc.Ops.Server(ctx, s, address, attrs); e != nil {
		return nil, asLibErr(e)
	}
	if e := desc.Ops.Update(s); e != nil {
		return s, asLibErr(e)
	}
	return s, nil
}

// Accept produces a new connection socket from a server socket.
func Accept(ctx context.Context, server *Socket) (*Socket, liberr.Error) {
	server.tickCtl()

	conn, err := newSocket(TypeConnection, server.desc)
	if err != nil {
		return nil, ErrorParamEmpty.Error(err)
	}
	if e := server.desc.Ops.Accept(ctx, server, conn); e != nil {
		return nil, asLibErr(e)
	}
	if e := server.desc.Ops.Update(server); e != nil {
		return conn, asLibErr(e)
	}
	if e := server.desc.Ops.Update(conn); e != nil {
		return conn, asLibErr(e)
	}
	return conn, nil
}

// Send writes one message on a connection socket.
func (s *Socket) Send(msg []byte) liberr.Error {
	s.tickCtl()
	if e := s.desc.Ops.Send(s, msg); e != nil {
		return asLibErr(e)
	}
	return asLibErr(s.desc.Ops.Update(s))
}

// Receive reads one message from a connection socket.
func (s *Socket) Receive() ([]byte, liberr.Error) {
	s.tickCtl()
	msg, e := s.desc.Ops.Receive(s)
	if e != nil {
		return nil, asLibErr(e)
	}
	if ue := s.desc.Ops.Update(s); ue != nil {
		return msg, asLibErr(ue)
	}
	return msg, nil
}

// Finish lets buffered/background work (flush, handshake, CTL) progress
// without the caller attempting send/receive/accept. Spec §5: must be
// invoked after every readiness wakeup where none of those will be issued.
func (s *Socket) Finish() liberr.Error {
	s.tickCtl()
	if e := s.desc.Ops.Finish(s); e != nil {
		return asLibErr(e)
	}
	return asLibErr(s.desc.Ops.Update(s))
}

// Await records the caller's desired condition. It does not tick CTL or
// invoke Update: spec §4.2 exempts update/get_* from CTL ticking, and Await
// only caches a hint consumed by the next Update.
func (s *Socket) Await(c Condition) {
	s.SetDesired(c)
}

// Update asks the transport to reprogram its event-fd registration to
// reflect the current desired condition plus any internal state.
func (s *Socket) Update() liberr.Error {
	return asLibErr(s.desc.Ops.Update(s))
}

// Close releases the socket. A nil receiver is a documented no-op (spec §8).
func (s *Socket) Close() liberr.Error {
	if s == nil {
		return nil
	}
	if s.closed.Swap(true) {
		return nil
	}
	if h := s.Ctl(); h != nil {
		h.Destroy(true)
	}
	e := asLibErr(s.desc.Ops.Close(s))
	_ = s.event.Close()
	return e
}

// Cleanup releases purely local state after a fork, in the non-owner
// process; it never touches shared filesystem artifacts owned by the
// parent. Never blocks, never errors (spec §5/§8).
func (s *Socket) Cleanup() {
	if s == nil || s.closed.Swap(true) {
		return
	}
	if h := s.Ctl(); h != nil {
		h.Destroy(false)
	}
	s.desc.Ops.Cleanup(s)
	_ = s.event.Close()
}

// GetTransport implements the get_transport special case of spec §4.2: a
// transport that implements TransportNamer overrides the registered name.
func (s *Socket) GetTransport() string {
	if n, ok := s.desc.Ops.(TransportNamer); ok {
		return n.GetTransport(s)
	}
	return s.desc.Name
}

// SetLocalAddr is optional per transport; absent implementations report
// ErrorPermission, per spec §4.2.
func (s *Socket) SetLocalAddr(address string) liberr.Error {
	s.tickCtl()
	if setter, ok := s.desc.Ops.(LocalAddrSetter); ok {
		return asLibErr(setter.SetLocalAddr(s, address))
	}
	return ErrorPermission.Error(nil)
}

// GetCnt is optional; absent implementations fall back to the generic
// counters embedded in the socket record, per spec §4.2.
func (s *Socket) GetCnt() Counters {
	if p, ok := s.desc.Ops.(CounterProvider); ok {
		return p.GetCnt(s)
	}
	return s.counters.Snapshot()
}

func asLibErr(err error) liberr.Error {
	if err == nil {
		return nil
	}
	if le, ok := err.(liberr.Error); ok {
		return le
	}
	return ErrorProtocol.Error(err)
}
