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

// Package tls implements the framed TLS transport (spec §4.8 / C7): a
// length-prefixed message stream over a crypto/tls.Conn wrapping a
// net.TCPConn, configured through the certificates package.
package tls

import (
	"context"
	"crypto/tls"
	"net"
	"strings"
	"sync"
	"time"

	libatr "github.com/nabbar/xcm/attr"
	libcrt "github.com/nabbar/xcm/certificates"
	liberr "github.com/nabbar/xcm/errors"
	libtrp "github.com/nabbar/xcm/transport"
	"github.com/nabbar/xcm/transport/frame"
)

// Name is this transport's registered name.
const Name = "tls"

// Prefix is the address-family token.
const Prefix = "tls"

const (
	ErrorAddrParse liberr.CodeError = iota + liberr.MinPkgTransportTLS
	ErrorConnect
	ErrorListen
	ErrorAccept
	ErrorHandshake
	ErrorIO
	ErrorClosed
)

// AttrConfig is the attrs map key under which a caller supplies a
// pre-built certificates.TLSConfig (spec §9: transport-specific static
// configuration is typed, validated configuration). When absent, a
// default, unauthenticated certificates.New() config is used.
const AttrConfig = "tls.config"

type private struct {
	mu sync.Mutex

	conn *tls.Conn
	ln   net.Listener

	cfg *tls.Config

	sticky liberr.Error
}

func priv(s *libtrp.Socket) *private {
	p, _ := s.Private.(*private)
	if p == nil {
		p = &private{}
		s.Private = p
	}
	return p
}

// Transport implements transport.Ops for framed TLS streams.
type Transport struct{}

var _ libtrp.Ops = Transport{}
var _ libtrp.LocalAddrGetter = Transport{}
var _ libtrp.RemoteAddrGetter = Transport{}
var _ libtrp.MaxMsgSizer = Transport{}
var _ libatr.Provider = Transport{}

func Register() liberr.Error {
	return libtrp.DefaultRegistry.Register(Name, Transport{})
}

func init() {
	_ = Register()
}

func ParseAddress(addr string) (string, liberr.Error) {
	rest := strings.TrimPrefix(addr, Prefix+":")
	if rest == addr || rest == "" {
		return "", ErrorAddrParse.Error(nil)
	}
	return rest, nil
}

func resolveConfig(attrs map[string]any, serverName string) *tls.Config {
	if attrs != nil {
		if c, ok := attrs[AttrConfig].(*tls.Config); ok && c != nil {
			return c.Clone()
		}
		if c, ok := attrs[AttrConfig].(libcrt.TLSConfig); ok && c != nil {
			return c.TLS(serverName)
		}
	}
	return libcrt.New().TLS(serverName)
}

func hostOf(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return hostport
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
	case strings.Contains(msg, "tls:"), strings.Contains(msg, "certificate"):
		return libtrp.ErrorProtocol.Error(err)
	default:
		return libtrp.ErrorProtocol.Error(err)
	}
}

func (Transport) Connect(ctx context.Context, s *libtrp.Socket, address string, attrs map[string]any) error {
	hostport, perr := ParseAddress(address)
	if perr != nil {
		return perr
	}

	cfg := resolveConfig(attrs, hostOf(hostport))

	d := tls.Dialer{Config: cfg}
	c, err := d.DialContext(ctx, "tcp", hostport)
	if err != nil {
		return mapDialErr(err)
	}
	tc, ok := c.(*tls.Conn)
	if !ok {
		_ = c.Close()
		return ErrorConnect.Error(nil)
	}

	p := priv(s)
	p.mu.Lock()
	p.conn = tc
	p.cfg = cfg
	p.mu.Unlock()
	return nil
}

func (Transport) Server(ctx context.Context, s *libtrp.Socket, address string, attrs map[string]any) error {
	hostport, perr := ParseAddress(address)
	if perr != nil {
		return perr
	}
	cfg := resolveConfig(attrs, "")

	var lc net.ListenConfig
	inner, err := lc.Listen(ctx, "tcp", hostport)
	if err != nil {
		return ErrorListen.Error(err)
	}
	ln := tls.NewListener(inner, cfg)

	p := priv(s)
	p.mu.Lock()
	p.ln = ln
	p.cfg = cfg
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

	c, err := ln.Accept()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return libtrp.ErrorWouldBlock.Error(nil)
		}
		return ErrorAccept.Error(err)
	}
	tc, ok := c.(*tls.Conn)
	if !ok {
		_ = c.Close()
		return ErrorAccept.Error(nil)
	}

	if server.Blocking() {
		_ = tc.SetDeadline(time.Time{})
	} else {
		_ = tc.SetDeadline(time.Now().Add(5 * time.Second))
	}
	if err := tc.HandshakeContext(ctx); err != nil {
		_ = tc.Close()
		return ErrorHandshake.Error(err)
	}

	cp := priv(conn)
	cp.mu.Lock()
	cp.conn = tc
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

func (Transport) Finish(s *libtrp.Socket) error {
	p := priv(s)
	p.mu.Lock()
	c := p.conn
	p.mu.Unlock()
	if c == nil {
		return nil
	}
	if !c.ConnectionState().HandshakeComplete {
		if err := c.Handshake(); err != nil {
			return stick(p, ErrorHandshake.Error(err))
		}
	}
	return nil
}

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
			Name: "tls.cipher",
			Type: libatr.TypeString,
			Get: func(*libtrp.Socket) ([]byte, liberr.Error) {
				p.mu.Lock()
				c := p.conn
				p.mu.Unlock()
				if c == nil {
					return libatr.EncodeString(""), nil
				}
				return libatr.EncodeString(tls.CipherSuiteName(c.ConnectionState().CipherSuite)), nil
			},
		},
		{
			Name: "tls.peer_cn",
			Type: libatr.TypeString,
			Get: func(*libtrp.Socket) ([]byte, liberr.Error) {
				p.mu.Lock()
				c := p.conn
				p.mu.Unlock()
				if c == nil {
					return libatr.EncodeString(""), nil
				}
				cs := c.ConnectionState()
				if len(cs.PeerCertificates) == 0 {
					return libatr.EncodeString(""), nil
				}
				return libatr.EncodeString(cs.PeerCertificates[0].Subject.CommonName), nil
			},
		},
	}
}
