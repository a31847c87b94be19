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

// Package utls implements the UTLS hybrid transport (spec §4.5 / C6): one
// address family that transparently resolves to local-IPC when peers are
// co-resident, else falls back to TLS. It owns two sub-sockets internally
// and masquerades as whichever one wins.
package utls

import (
	"context"
	"strings"
	"sync"

	libatr "github.com/nabbar/xcm/attr"
	liberr "github.com/nabbar/xcm/errors"
	libtrp "github.com/nabbar/xcm/transport"
)

// Name is this transport's registered name.
const Name = "utls"

// private is the UTLS socket's private state (spec §3/"UTLS socket (C6)
// private state").
type private struct {
	mu sync.Mutex

	uxSub  *libtrp.Socket
	tlsSub *libtrp.Socket

	// localAddrBuf is the scratch buffer for the server socket's canonical
	// local address string (spec §3).
	localAddrBuf string

	// proxy is rebuilt lazily on every get-attrs call (spec §3/§4.5.10).
	proxy []proxyEntry
}

type proxyEntry struct {
	real *libtrp.Socket
	desc libatr.Descriptor
}

func priv(s *libtrp.Socket) *private {
	p, _ := s.Private.(*private)
	if p == nil {
		p = &private{}
		s.Private = p
	}
	return p
}

// Transport implements transport.Ops for the utls composite socket.
type Transport struct{}

var _ libtrp.Ops = Transport{}
var _ libtrp.TransportNamer = Transport{}
var _ libtrp.LocalAddrGetter = Transport{}
var _ libtrp.LocalAddrSetter = Transport{}
var _ libtrp.RemoteAddrGetter = Transport{}
var _ libtrp.MaxMsgSizer = Transport{}
var _ libtrp.CounterProvider = Transport{}
var _ libtrp.ControlEnabler = Transport{}
var _ libatr.Provider = Transport{}

func lookup(name string) (*libtrp.Descriptor, liberr.Error) {
	d, ok := libtrp.DefaultRegistry.ByName(name)
	if !ok {
		return nil, ErrorSubTransportMissing.Error(nil)
	}
	return d, nil
}

// Register adds the utls transport to the default registry. Called from
// an init() so the framework's documented initialization-ordering
// requirement (spec §4.1) is satisfied before any user call can reach it.
func Register() liberr.Error {
	return libtrp.DefaultRegistry.Register(Name, Transport{})
}

func init() {
	_ = Register()
}

// --- connect / server / accept (spec §4.5.2-§4.5.4) -------------------------------------------------

func (Transport) Connect(ctx context.Context, s *libtrp.Socket, address string, attrs map[string]any) error {
	host, port, perr := ParseAddress(address)
	if perr != nil {
		return perr
	}

	uxDesc, err := lookup("ux")
	if err != nil {
		return err
	}
	tlsDesc, err := lookup("tls")
	if err != nil {
		return err
	}

	p := priv(s)

	uxSock, uerr := libtrp.NewBoundSocket(libtrp.TypeConnection, uxDesc, s.Event())
	if uerr != nil {
		return uerr
	}
	cerr := uxDesc.Ops.Connect(ctx, uxSock, uxAddress(host, port), attrs)
	if cerr == nil {
		p.mu.Lock()
		p.uxSub = uxSock
		p.mu.Unlock()
		s.SetResolvedTransport("ux")
		return nil
	}
	if !isConnRefused(cerr) {
		return cerr
	}

	// Local-IPC probe refused: reliably means no local server. Fall back to TLS.
	tlsSock, terr := libtrp.NewBoundSocket(libtrp.TypeConnection, tlsDesc, s.Event())
	if terr != nil {
		return terr
	}
	if cerr2 := tlsDesc.Ops.Connect(ctx, tlsSock, tlsAddress(host, port), attrs); cerr2 != nil {
		return cerr2
	}
	p.mu.Lock()
	p.tlsSub = tlsSock
	p.mu.Unlock()
	s.SetResolvedTransport("tls")
	return nil
}

func (Transport) Server(ctx context.Context, s *libtrp.Socket, address string, attrs map[string]any) error {
	host, port, perr := ParseAddress(address)
	if perr != nil {
		return perr
	}

	uxDesc, err := lookup("ux")
	if err != nil {
		return err
	}
	tlsDesc, err := lookup("tls")
	if err != nil {
		return err
	}

	p := priv(s)

	tlsSock, terr := libtrp.NewBoundSocket(libtrp.TypeServer, tlsDesc, s.Event())
	if terr != nil {
		return terr
	}
	// TLS sub-server binds first: only after bind is a kernel-allocated
	// port (port "0") known (spec §4.5.3).
	if e := tlsDesc.Ops.Server(ctx, tlsSock, tlsAddress(host, port), attrs); e != nil {
		return e
	}

	if port == "0" {
		if g, ok := tlsDesc.Ops.(libtrp.LocalAddrGetter); ok {
			if addr, ok2 := g.GetLocalAddr(tlsSock); ok2 {
				if _, realPort, e := splitHostPort(addr); e == nil {
					port = realPort
				}
			}
		}
	}

	uxSock, uerr := libtrp.NewBoundSocket(libtrp.TypeServer, uxDesc, s.Event())
	if uerr != nil {
		_ = tlsDesc.Ops.Close(tlsSock)
		return uerr
	}
	if e := uxDesc.Ops.Server(ctx, uxSock, uxAddress(host, port), attrs); e != nil {
		_ = tlsDesc.Ops.Close(tlsSock)
		return e
	}

	p.mu.Lock()
	p.tlsSub = tlsSock
	p.uxSub = uxSock
	p.mu.Unlock()
	return nil
}

func (Transport) Accept(ctx context.Context, server *libtrp.Socket, conn *libtrp.Socket) error {
	p := priv(server)
	p.mu.Lock()
	uxSrv, tlsSrv := p.uxSub, p.tlsSub
	p.mu.Unlock()

	cp := priv(conn)

	if uxSrv != nil {
		uxDesc := uxSrv.Descriptor()
		uxConn, err := libtrp.NewBoundSocket(libtrp.TypeConnection, uxDesc, conn.Event())
		if err == nil && uxDesc.Ops.Accept(ctx, uxSrv, uxConn) == nil {
			cp.mu.Lock()
			cp.uxSub = uxConn
			cp.mu.Unlock()
			conn.SetResolvedTransport("ux")
			return nil
		}
	}

	if tlsSrv != nil {
		tlsDesc := tlsSrv.Descriptor()
		tlsConn, err := libtrp.NewBoundSocket(libtrp.TypeConnection, tlsDesc, conn.Event())
		if err == nil && tlsDesc.Ops.Accept(ctx, tlsSrv, tlsConn) == nil {
			cp.mu.Lock()
			cp.tlsSub = tlsConn
			cp.mu.Unlock()
			conn.SetResolvedTransport("tls")
			return nil
		}
	}

	return ErrorBothSubsFailed.Error(nil)
}

// --- send / receive / finish (spec §4.5.5) -------------------------------------------------

func (Transport) Send(s *libtrp.Socket, msg []byte) error {
	active, err := activeSub(s)
	if err != nil {
		return err
	}
	return active.Send(msg)
}

func (Transport) Receive(s *libtrp.Socket) ([]byte, error) {
	active, err := activeSub(s)
	if err != nil {
		return nil, err
	}
	return active.Receive()
}

func (Transport) Finish(s *libtrp.Socket) error {
	if s.Type() == libtrp.TypeServer {
		p := priv(s)
		p.mu.Lock()
		ux, tls := p.uxSub, p.tlsSub
		p.mu.Unlock()
		if ux != nil {
			_ = ux.Finish()
		}
		if tls != nil {
			_ = tls.Finish()
		}
		return nil
	}
	active, err := activeSub(s)
	if err != nil {
		return err
	}
	return active.Finish()
}

// --- update / close / cleanup (spec §4.5.6) -------------------------------------------------

func (Transport) Update(s *libtrp.Socket) error {
	cond := s.Desired()
	p := priv(s)
	p.mu.Lock()
	ux, tls := p.uxSub, p.tlsSub
	p.mu.Unlock()

	if s.Type() == libtrp.TypeServer {
		if ux != nil {
			ux.Await(cond)
			_ = ux.Update()
		}
		if tls != nil {
			tls.Await(cond)
			_ = tls.Update()
		}
		return nil
	}

	active, err := activeSub(s)
	if err != nil {
		return nil // not resolved yet: nothing to propagate to.
	}
	active.Await(cond)
	return active.Update()
}

func (Transport) Close(s *libtrp.Socket) error {
	p := priv(s)
	p.mu.Lock()
	ux, tls := p.uxSub, p.tlsSub
	p.uxSub, p.tlsSub = nil, nil
	p.mu.Unlock()

	if ux != nil {
		_ = ux.Close()
	}
	if tls != nil {
		_ = tls.Close()
	}
	return nil
}

func (Transport) Cleanup(s *libtrp.Socket) {
	p := priv(s)
	p.mu.Lock()
	ux, tls := p.uxSub, p.tlsSub
	p.uxSub, p.tlsSub = nil, nil
	p.mu.Unlock()

	if ux != nil {
		ux.Cleanup()
	}
	if tls != nil {
		tls.Cleanup()
	}
}

// --- get_transport / local/remote addr / max msg (spec §4.5.7-§4.5.9) -------------------------------------------------

func (Transport) GetTransport(s *libtrp.Socket) string {
	if s.Type() == libtrp.TypeServer {
		return Name
	}
	if active, err := activeSub(s); err == nil {
		return active.GetTransport()
	}
	return Name
}

func (Transport) GetLocalAddr(s *libtrp.Socket) (string, bool) {
	p := priv(s)
	if s.Type() == libtrp.TypeConnection {
		if active, err := activeSub(s); err == nil {
			if g, ok := active.Descriptor().Ops.(libtrp.LocalAddrGetter); ok {
				return g.GetLocalAddr(active)
			}
		}
		return "", false
	}

	p.mu.Lock()
	tls := p.tlsSub
	p.mu.Unlock()
	if tls == nil {
		return "", false
	}
	g, ok := tls.Descriptor().Ops.(libtrp.LocalAddrGetter)
	if !ok {
		return "", false
	}
	addr, ok := g.GetLocalAddr(tls)
	if !ok {
		return "", false
	}
	host, port, e := splitHostPort(addr)
	if e != nil {
		return "", false
	}
	p.mu.Lock()
	p.localAddrBuf = MakeAddress(host, port)
	buf := p.localAddrBuf
	p.mu.Unlock()
	return buf, true
}

func (Transport) SetLocalAddr(s *libtrp.Socket, address string) error {
	p := priv(s)
	p.mu.Lock()
	tls := p.tlsSub
	p.mu.Unlock()
	if tls == nil {
		return ErrorLocalAddrUnavailable.Error(nil)
	}
	host, port, perr := ParseAddress(address)
	if perr != nil {
		return perr
	}
	setter, ok := tls.Descriptor().Ops.(libtrp.LocalAddrSetter)
	if !ok {
		return ErrorLocalAddrUnavailable.Error(nil)
	}
	return setter.SetLocalAddr(tls, tlsAddress(host, port))
}

func (Transport) GetRemoteAddr(s *libtrp.Socket) (string, bool) {
	active, err := activeSub(s)
	if err != nil {
		return "", false
	}
	if g, ok := active.Descriptor().Ops.(libtrp.RemoteAddrGetter); ok {
		return g.GetRemoteAddr(active)
	}
	return "", false
}

func (Transport) MaxMsgSize(s *libtrp.Socket) int64 {
	active, err := activeSub(s)
	if err != nil {
		return 0
	}
	if m, ok := active.Descriptor().Ops.(libtrp.MaxMsgSizer); ok {
		return m.MaxMsgSize(active)
	}
	return 0
}

// GetCnt forwards to the active sub-socket (spec §4.5.5): all traffic is
// counted inside the sub-socket's own Send/Receive, so the composite's own
// Counters are never touched and would read all-zero otherwise.
func (Transport) GetCnt(s *libtrp.Socket) libtrp.Counters {
	active, err := activeSub(s)
	if err != nil {
		return libtrp.Counters{}
	}
	return active.GetCnt()
}

// EnableControl implements transport.ControlEnabler (spec §4.5.11). A
// server socket hands each bound sub-socket its own control listener in
// addition to the composite's, for three listeners total; a connection
// socket only hands its active sub a listener, since the composite merely
// forwards to it and has nothing of its own worth introspecting.
func (Transport) EnableControl(s *libtrp.Socket, enable func(*libtrp.Socket)) bool {
	if s.Type() == libtrp.TypeServer {
		p := priv(s)
		p.mu.Lock()
		ux, tls := p.uxSub, p.tlsSub
		p.mu.Unlock()
		if ux != nil {
			enable(ux)
		}
		if tls != nil {
			enable(tls)
		}
		return true
	}

	if active, err := activeSub(s); err == nil {
		enable(active)
	}
	return false
}

// --- attribute proxying (spec §4.5.10) -------------------------------------------------

func (Transport) Attrs(s *libtrp.Socket) []libatr.Descriptor {
	p := priv(s)
	p.mu.Lock()
	ux, tls := p.uxSub, p.tlsSub
	p.mu.Unlock()

	var proxies []proxyEntry
	var out []libatr.Descriptor

	addFrom := func(sub *libtrp.Socket) {
		if sub == nil {
			return
		}
		provider, ok := sub.Descriptor().Ops.(libatr.Provider)
		if !ok {
			return
		}
		for _, d := range provider.Attrs(sub) {
			idx := len(proxies)
			proxies = append(proxies, proxyEntry{real: sub, desc: d})
			out = append(out, buildProxy(d, idx, proxies))
		}
	}
	addFrom(ux)
	addFrom(tls)

	p.mu.Lock()
	p.proxy = proxies
	p.mu.Unlock()

	return out
}

// buildProxy copies d's descriptor, replacing any present get/set with a
// generic proxy that recovers {real_attr, real_socket} by array index and
// forwards the call (spec §4.5.10/§9).
func buildProxy(d libatr.Descriptor, idx int, table []proxyEntry) libatr.Descriptor {
	out := d
	if d.Get != nil {
		out.Get = func(*libtrp.Socket) ([]byte, liberr.Error) {
			e := table[idx]
			return e.desc.Get(e.real)
		}
	}
	if d.Set != nil {
		out.Set = func(_ *libtrp.Socket, v []byte) liberr.Error {
			e := table[idx]
			return e.desc.Set(e.real, v)
		}
	}
	return out
}

// --- helpers -------------------------------------------------

func activeSub(s *libtrp.Socket) (*libtrp.Socket, liberr.Error) {
	p := priv(s)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.uxSub != nil {
		return p.uxSub, nil
	}
	if p.tlsSub != nil {
		return p.tlsSub, nil
	}
	return nil, ErrorNoActiveSub.Error(nil)
}

func isConnRefused(err error) bool {
	type coder interface{ Code() uint16 }
	c, ok := err.(coder)
	if !ok {
		return false
	}
	return c.Code() == uint16(libtrp.ErrorConnRefused)
}

// splitHostPort extracts host:port from a sub-transport's local/remote
// address string, tolerating a leading "<proto>:" token so it works on
// both "tls:host:port" and bare "host:port" forms.
func splitHostPort(addr string) (host, port string, err liberr.Error) {
	rest := addr
	if i := strings.IndexByte(addr, ':'); i > 0 {
		if j := strings.LastIndexByte(addr, ':'); j > i {
			rest = addr[i+1:]
		}
	}
	i := strings.LastIndexByte(rest, ':')
	if i <= 0 || i == len(rest)-1 {
		return "", "", ErrorAddrParse.Error(nil)
	}
	return rest[:i], rest[i+1:], nil
}
