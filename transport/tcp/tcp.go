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

// Package tcp implements the framed TCP transport (spec §4.7 / C7): a
// length-prefixed message stream over net.TCPConn, with keepalive tuning
// exposed as attributes.
package tcp

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	libatr "github.com/nabbar/xcm/attr"
	liberr "github.com/nabbar/xcm/errors"
	libtrp "github.com/nabbar/xcm/transport"
	"github.com/nabbar/xcm/transport/frame"
)

// Name is this transport's registered name.
const Name = "tcp"

// Prefix is the address-family token.
const Prefix = "tcp"

const (
	ErrorAddrParse liberr.CodeError = iota + liberr.MinPkgTransportTCP
	ErrorConnect
	ErrorListen
	ErrorAccept
	ErrorIO
	ErrorClosed
)

// DefaultKeepaliveInterval matches the teacher's default socket tuning.
const DefaultKeepaliveInterval = 15 * time.Second

type private struct {
	mu sync.Mutex

	conn net.Conn
	ln   net.Listener

	localOverride string

	keepalive         bool
	keepaliveInterval time.Duration

	sticky liberr.Error
}

func priv(s *libtrp.Socket) *private {
	p, _ := s.Private.(*private)
	if p == nil {
		p = &private{keepalive: true, keepaliveInterval: DefaultKeepaliveInterval}
		s.Private = p
	}
	return p
}

// Transport implements transport.Ops for plain framed TCP.
type Transport struct{}

var _ libtrp.Ops = Transport{}
var _ libtrp.LocalAddrGetter = Transport{}
var _ libtrp.LocalAddrSetter = Transport{}
var _ libtrp.RemoteAddrGetter = Transport{}
var _ libtrp.MaxMsgSizer = Transport{}
var _ libatr.Provider = Transport{}

func Register() liberr.Error {
	return libtrp.DefaultRegistry.Register(Name, Transport{})
}

func init() {
	_ = Register()
}

// ParseAddress strips the "tcp:" prefix, leaving a dialable host:port.
func ParseAddress(addr string) (string, liberr.Error) {
	rest := strings.TrimPrefix(addr, Prefix+":")
	if rest == addr || rest == "" {
		return "", ErrorAddrParse.Error(nil)
	}
	return rest, nil
}

func mapDialErr(err error) liberr.Error {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return libtrp.ErrorTimeout.Error(err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return libtrp.ErrorConnRefused.Error(err)
	case strings.Contains(msg, "network is unreachable"), strings.Contains(msg, "no route to host"):
		return libtrp.ErrorUnreachable.Error(err)
	default:
		return libtrp.ErrorProtocol.Error(err)
	}
}

func (Transport) Connect(ctx context.Context, s *libtrp.Socket, address string, attrs map[string]any) error {
	hostport, perr := ParseAddress(address)
	if perr != nil {
		return perr
	}
	p := priv(s)

	d := net.Dialer{}
	if p.localOverride != "" {
		if la, e := net.ResolveTCPAddr("tcp", p.localOverride); e == nil {
			d.LocalAddr = la
		}
	}

	c, err := d.DialContext(ctx, "tcp", hostport)
	if err != nil {
		return mapDialErr(err)
	}

	applyKeepalive(c, p)

	p.mu.Lock()
	p.conn = c
	p.mu.Unlock()
	return nil
}

func applyKeepalive(c net.Conn, p *private) {
	tc, ok := c.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tc.SetKeepAlive(p.keepalive)
	if p.keepalive {
		_ = tc.SetKeepAlivePeriod(p.keepaliveInterval)
	}
}

func (Transport) Server(ctx context.Context, s *libtrp.Socket, address string, attrs map[string]any) error {
	hostport, perr := ParseAddress(address)
	if perr != nil {
		return perr
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", hostport)
	if err != nil {
		return ErrorListen.Error(err)
	}
	p := priv(s)
	p.mu.Lock()
	p.ln = ln
	p.mu.Unlock()
	return nil
}

func (Transport) Accept(ctx context.Context, server *libtrp.Socket, conn *libtrp.Socket) error {
	sp := priv(server)
	sp.mu.Lock()
	ln := sp.ln
	sp.mu.Unlock()
	if ln == nil {
		return ErrorClosed.Error(nil)
	}

	if !server.Blocking() {
		if tln, ok := ln.(*net.TCPListener); ok {
			_ = tln.SetDeadline(time.Now())
		}
	}

	c, err := ln.Accept()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return libtrp.ErrorWouldBlock.Error(nil)
		}
		return ErrorAccept.Error(err)
	}

	cp := priv(conn)
	applyKeepalive(c, cp)
	cp.mu.Lock()
	cp.conn = c
	cp.mu.Unlock()
	return nil
}

func (Transport) Send(s *libtrp.Socket, msg []byte) error {
	p := priv(s)
	p.mu.Lock()
	c, sticky := p.conn, p.sticky
	p.mu.Unlock()
	if sticky != nil {
		return sticky
	}
	if c == nil {
		return ErrorClosed.Error(nil)
	}

	if !s.Blocking() {
		_ = c.SetWriteDeadline(time.Now())
	} else {
		_ = c.SetWriteDeadline(time.Time{})
	}

	if err := frame.Write(c, msg); err != nil {
		return stick(p, mapIOErr(err))
	}
	s.Counters().AddToLower(len(msg))
	return nil
}

func (Transport) Receive(s *libtrp.Socket) ([]byte, error) {
	p := priv(s)
	p.mu.Lock()
	c, sticky := p.conn, p.sticky
	p.mu.Unlock()
	if sticky != nil {
		return nil, sticky
	}
	if c == nil {
		return nil, ErrorClosed.Error(nil)
	}

	if !s.Blocking() {
		_ = c.SetReadDeadline(time.Now())
	} else {
		_ = c.SetReadDeadline(time.Time{})
	}

	msg, err := frame.Read(c, 0)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, libtrp.ErrorWouldBlock.Error(nil)
		}
		return nil, stick(p, mapIOErr(err))
	}
	s.Counters().AddFromLower(len(msg))
	return msg, nil
}

func mapIOErr(err error) liberr.Error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "EOF"), strings.Contains(msg, "closed"):
		return libtrp.ErrorClosedByPeer.Error(err)
	case strings.Contains(msg, "reset by peer"):
		return libtrp.ErrorReset.Error(err)
	default:
		return ErrorIO.Error(err)
	}
}

func stick(p *private, e liberr.Error) liberr.Error {
	p.mu.Lock()
	if p.sticky == nil {
		p.sticky = e
	}
	p.mu.Unlock()
	return e
}

func (Transport) Finish(s *libtrp.Socket) error { return nil }

// Update has no real epoll integration to drive (see DESIGN.md): it keeps
// the socket's event fd armed whenever a desired condition is set and the
// socket is not closed, leaving would-block detection to Send/Receive/Accept
// themselves.
func (Transport) Update(s *libtrp.Socket) error {
	if s.IsClosed() {
		return nil
	}
	if !s.Desired().IsZero() {
		s.Event().Arm()
	}
	return nil
}

func (Transport) Close(s *libtrp.Socket) error {
	p := priv(s)
	p.mu.Lock()
	c, ln := p.conn, p.ln
	p.conn, p.ln = nil, nil
	p.mu.Unlock()
	if c != nil {
		_ = c.Close()
	}
	if ln != nil {
		_ = ln.Close()
	}
	return nil
}

func (Transport) Cleanup(s *libtrp.Socket) {
	_ = Transport{}.Close(s)
}

func (Transport) GetLocalAddr(s *libtrp.Socket) (string, bool) {
	p := priv(s)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return Prefix + ":" + p.conn.LocalAddr().String(), true
	}
	if p.ln != nil {
		return Prefix + ":" + p.ln.Addr().String(), true
	}
	return "", false
}

func (Transport) SetLocalAddr(s *libtrp.Socket, address string) error {
	hostport, perr := ParseAddress(address)
	if perr != nil {
		return perr
	}
	p := priv(s)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return libtrp.ErrorPermission.Error(nil)
	}
	p.localOverride = hostport
	return nil
}

func (Transport) GetRemoteAddr(s *libtrp.Socket) (string, bool) {
	p := priv(s)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return "", false
	}
	return Prefix + ":" + p.conn.RemoteAddr().String(), true
}

func (Transport) MaxMsgSize(s *libtrp.Socket) int64 {
	return frame.DefaultMaxSize
}

func (Transport) Attrs(s *libtrp.Socket) []libatr.Descriptor {
	p := priv(s)
	return []libatr.Descriptor{
		{
			Name: "tcp.keepalive",
			Type: libatr.TypeBool,
			Get: func(*libtrp.Socket) ([]byte, liberr.Error) {
				p.mu.Lock()
				defer p.mu.Unlock()
				return libatr.EncodeBool(p.keepalive), nil
			},
			Set: func(_ *libtrp.Socket, v []byte) liberr.Error {
				p.mu.Lock()
				p.keepalive = libatr.DecodeBool(v)
				c := p.conn
				p.mu.Unlock()
				if c != nil {
					applyKeepalive(c, p)
				}
				return nil
			},
		},
		{
			Name: "tcp.keepalive_interval",
			Type: libatr.TypeInt64,
			Set: func(_ *libtrp.Socket, v []byte) liberr.Error {
				p.mu.Lock()
				if p.conn != nil {
					p.mu.Unlock()
					return libtrp.ErrorPermission.Error(nil)
				}
				p.keepaliveInterval = time.Duration(libatr.DecodeInt64(v)) * time.Second
				p.mu.Unlock()
				return nil
			},
		},
	}
}
