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

// Package ctl implements the per-socket control channel (spec §4.4): a
// local-IPC introspection listener serving a small get-attr/get-all-attrs
// protocol, serviced inline from user API calls with no dedicated thread,
// throttled so it never inflates user-operation latency.
package ctl

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	libatr "github.com/nabbar/xcm/attr"
	liberr "github.com/nabbar/xcm/errors"
	liblog "github.com/nabbar/xcm/logger"
	libtrp "github.com/nabbar/xcm/transport"
	"golang.org/x/sync/semaphore"
)

const (
	ErrorParamEmpty liberr.CodeError = iota + liberr.MinPkgCtl
	ErrorListenerCreate
)

// DefaultDir is the control directory used when XCM_CTL is unset.
const DefaultDir = "/run/xcm/ctl"

// MaxClients bounds simultaneous introspection clients (spec §4.4).
const MaxClients = 2

// Directory resolves the control directory: XCM_CTL if set, else DefaultDir.
func Directory() string {
	if d := os.Getenv("XCM_CTL"); d != "" {
		return d
	}
	return DefaultDir
}

type clientState byte

const (
	stateRecv clientState = iota
	stateSend
	stateDead
)

type client struct {
	conn      *net.UnixConn
	state     clientState
	respBuf   []byte
	respOff   int
}

// Handle is the per-socket control channel instance (spec §3/"CTL state per
// socket"). It implements transport.CtlHandle.
type Handle struct {
	mu   sync.Mutex
	sock *libtrp.Socket
	log  liblog.Logger

	path     string
	listener *net.UnixListener
	sem      *semaphore.Weighted

	clients []*client

	ticks     uint64
	destroyed bool
}

// New lazily creates a control channel for sock, bound under Directory() at
// a path encoding <pid>-<sock_id>. If the directory doesn't exist or isn't a
// directory, the control channel is silently disabled (spec §4.4): New
// still returns a non-nil, inert Handle so callers don't need a nil check.
func New(sock *libtrp.Socket, log liblog.Logger) *Handle {
	h := &Handle{sock: sock, log: log, sem: semaphore.NewWeighted(MaxClients)}

	dir := Directory()
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		h.logDebug("control directory unavailable, ctl disabled for socket", nil)
		return h
	}

	path := filepath.Join(dir, fmt.Sprintf("%d-%d", os.Getpid(), sock.ID()))
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		h.logDebug("resolve ctl address failed", err)
		return h
	}

	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		h.logDebug("listen on ctl address failed", err)
		return h
	}

	h.path = path
	h.listener = ln
	return h
}

// Enable is the lazy, user-facing "turn the control interface on" operation
// (spec §3: "created lazily the first time the user enables the control
// interface"). It builds a Handle via New and attaches it to sock via
// Socket.SetCtl, so sock's own dispatch skeleton starts ticking it on every
// subsequent call.
//
// When sock's transport implements transport.ControlEnabler (spec §4.5.11:
// the utls composite socket owns sub-sockets that need their own
// listeners), enablement is propagated to each sub-socket first; the
// transport then reports whether sock itself should also get its own
// handle.
func Enable(sock *libtrp.Socket, log liblog.Logger) *Handle {
	own := true
	if ce, ok := sock.Descriptor().Ops.(libtrp.ControlEnabler); ok {
		own = ce.EnableControl(sock, func(sub *libtrp.Socket) {
			Enable(sub, log)
		})
	}
	if !own {
		return nil
	}

	h := New(sock, log)
	sock.SetCtl(h)
	return h
}

func (h *Handle) logDebug(msg string, err error) {
	if h.log != nil {
		h.log.Debug(msg, err)
	}
}

// threshold implements the table of spec §4.4.
func (h *Handle) threshold() uint64 {
	n := len(h.clients)
	// This module's concrete lower layers (ux/tcp/tls) are all plain stream
	// sockets, never a message-oriented kernel transport with costly
	// syscalls (that row of the table applies to transports this module
	// does not implement), so only the first two rows ever apply here.
	if n == 0 {
		return 64
	}
	return 8
}

// Tick implements transport.CtlHandle. It is called on nearly every public
// socket op; it returns immediately until the threshold has accumulated,
// then runs one service pass.
func (h *Handle) Tick() {
	h.mu.Lock()
	if h.listener == nil || h.destroyed {
		h.mu.Unlock()
		return
	}
	h.ticks++
	if h.ticks < h.threshold() {
		h.mu.Unlock()
		return
	}
	h.ticks = 0
	h.mu.Unlock()

	h.service()
}

// service accepts up to one new client (if room) and steps every existing
// client's state machine once (spec §4.4 "On service").
func (h *Handle) service() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sem.TryAcquire(1) {
		if c := h.tryAccept(); c != nil {
			h.clients = append(h.clients, c)
		} else {
			h.sem.Release(1)
		}
	}

restart:
	for i, c := range h.clients {
		if !h.step(c) {
			h.clients = append(h.clients[:i], h.clients[i+1:]...)
			h.sem.Release(1)
			goto restart
		}
	}
}

func (h *Handle) tryAccept() *client {
	_ = h.listener.SetDeadline(time.Now())
	conn, err := h.listener.AcceptUnix()
	if err != nil {
		return nil
	}
	return &client{conn: conn, state: stateRecv, respBuf: make([]byte, respSize)}
}

// step runs one iteration of a client's RECV/SEND/DEAD state machine.
// It returns false when the client should be collapsed (DEAD).
func (h *Handle) step(c *client) bool {
	switch c.state {
	case stateRecv:
		_ = c.conn.SetReadDeadline(time.Now())
		buf := make([]byte, reqSize)
		n, err := io.ReadFull(c.conn, buf)
		if err != nil {
			if isTimeout(err) && n == 0 {
				return true // nothing pending, stay RECV
			}
			_ = c.conn.Close()
			return false
		}
		req, derr := decodeRequest(buf)
		if derr != nil {
			_ = c.conn.Close()
			return false
		}
		resp := h.handle(req)
		c.respBuf = encodeResponse(resp)
		c.respOff = 0
		c.state = stateSend
		return true

	case stateSend:
		_ = c.conn.SetWriteDeadline(time.Now())
		n, err := c.conn.Write(c.respBuf[c.respOff:])
		c.respOff += n
		if c.respOff >= len(c.respBuf) {
			c.state = stateRecv
			return true
		}
		if err != nil && isTimeout(err) {
			return true // short write, stay SEND
		}
		if err != nil {
			_ = c.conn.Close()
			return false
		}
		return true

	default:
		return false
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func (h *Handle) handle(req Request) Response {
	switch req.Kind {
	case KindGetAttrReq:
		d, ok := libatr.Find(h.sock, req.Name)
		if !ok || !d.Readable() {
			return Response{Kind: KindGetAttrRej, Errno: int32(libatr.ErrorNotFound)}
		}
		v, err := d.Get(h.sock)
		if err != nil {
			return Response{Kind: KindGetAttrRej, Errno: int32(err.Code())}
		}
		return Response{
			Kind:  KindGetAttrCfm,
			Attrs: []WireAttr{{Name: d.Name, Type: toWireType(d.Type), Value: v}},
		}

	case KindGetAllAttrReq:
		var attrs []WireAttr
		libatr.GetAllAttrs(h.sock, func(name string, typ libatr.ValueType, value []byte) {
			if len(attrs) >= maxAttrs {
				return
			}
			attrs = append(attrs, WireAttr{Name: name, Type: toWireType(typ), Value: value})
		})
		return Response{Kind: KindGetAllAttrCfm, Attrs: attrs}

	default:
		return Response{Kind: KindGetAttrRej, Errno: int32(libatr.ErrorParamEmpty)}
	}
}

func toWireType(t libatr.ValueType) AttrValueType {
	switch t {
	case libatr.TypeBool:
		return VTBool
	case libatr.TypeInt64:
		return VTInt64
	case libatr.TypeString:
		return VTString
	default:
		return VTBinary
	}
}

// Destroy implements transport.CtlHandle. owner=true (the owning process)
// unlinks the listener's filesystem path; owner=false (post-fork non-owner)
// drops local state only, leaving the artifact for the owner (spec §4.4).
func (h *Handle) Destroy(owner bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.destroyed {
		return
	}
	h.destroyed = true

	for _, c := range h.clients {
		_ = c.conn.Close()
	}
	h.clients = nil

	if h.listener != nil {
		_ = h.listener.Close()
	}
	if owner && h.path != "" {
		_ = os.Remove(h.path)
	}
}

// Path returns the listener's filesystem path, or "" if ctl is disabled.
func (h *Handle) Path() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.path
}
