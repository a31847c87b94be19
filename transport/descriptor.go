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
	"strings"
	"sync"

	liberr "github.com/nabbar/xcm/errors"
)

// MaxTransportNameLen bounds a registered transport name, matching the
// leading "<name>:" token's maximum length in an XCM address.
const MaxTransportNameLen = 16

// maxTransports is the registry's fixed small capacity (spec §4.1):
// comfortably more than the built-in ux/tcp/tls/utls set.
const maxTransports = 16

// Ops is the vtable every transport implements; it is the "strict public
// contract" of spec §1. Accept is a method on the server socket's Ops
// because only a server socket's transport can produce new connections.
type Ops interface {
	Connect(ctx context.Context, s *Socket, address string, attrs map[string]any) error
	Server(ctx context.Context, s *Socket, address string, attrs map[string]any) error
	Accept(ctx context.Context, server *Socket, conn *Socket) error
	Send(s *Socket, msg []byte) error
	Receive(s *Socket) ([]byte, error)
	Finish(s *Socket) error
	Update(s *Socket) error
	Close(s *Socket) error
	Cleanup(s *Socket)
}

// TransportNamer is implemented by transports that must override
// get_transport (spec §4.2): currently only utls, to masquerade connection
// sockets as their resolved sub-transport.
type TransportNamer interface {
	GetTransport(s *Socket) string
}

// LocalAddrSetter is the optional set_local_addr hook (spec §4.2): absent
// transports report ErrorPermission.
type LocalAddrSetter interface {
	SetLocalAddr(s *Socket, address string) error
}

// LocalAddrGetter backs the xcm.local_addr read path.
type LocalAddrGetter interface {
	GetLocalAddr(s *Socket) (string, bool)
}

// RemoteAddrGetter backs the xcm.remote_addr read path (connection sockets only).
type RemoteAddrGetter interface {
	GetRemoteAddr(s *Socket) (string, bool)
}

// MaxMsgSizer backs the xcm.max_msg_size read path.
type MaxMsgSizer interface {
	MaxMsgSize(s *Socket) int64
}

// CounterProvider is the optional get_cnt hook (spec §4.2): when absent the
// framework returns the generic counters embedded in the socket record.
type CounterProvider interface {
	GetCnt(s *Socket) Counters
}

// ControlEnabler lets a composite transport (utls) propagate control-channel
// enablement to the sub-sockets it owns (spec §4.5.11): enable is called
// once per sub-socket that should get its own control listener. The
// returned ownHandle reports whether s itself should also get a handle.
type ControlEnabler interface {
	EnableControl(s *Socket, enable func(*Socket)) (ownHandle bool)
}

// Descriptor is the registry's entry: name + vtable (spec §3/"Transport descriptor").
type Descriptor struct {
	Name string
	Ops  Ops
}

// Registry is a process-wide table mapping transport name to Descriptor.
// It is populated exactly once per transport before any user call could
// reach it (spec §4.1); normal use is the package-level DefaultRegistry.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]*Descriptor
}

// NewRegistry builds an empty registry with the fixed built-in capacity.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Descriptor, maxTransports)}
}

// Register adds a transport, idempotent by name: registering the exact same
// name twice with the same Ops value is a no-op success; a different Ops
// under the same name is rejected.
func (r *Registry) Register(name string, ops Ops) liberr.Error {
	if name == "" {
		return ErrorParamEmpty.Error(nil)
	}
	if len(name) > MaxTransportNameLen {
		return ErrorNameTooLong.Error(nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.byID[name]; ok {
		if d.Ops == ops {
			return nil
		}
		return ErrorAlreadyRegistered.Error(nil)
	}

	if len(r.byID) >= maxTransports {
		return ErrorRegistryFull.Error(nil)
	}

	r.byID[name] = &Descriptor{Name: name, Ops: ops}
	return nil
}

// ByName performs an exact-match lookup.
func (r *Registry) ByName(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[name]
	return d, ok
}

// ByAddress extracts the leading "proto:" token of an XCM address and
// resolves it via ByName.
func (r *Registry) ByAddress(addr string) (*Descriptor, liberr.Error) {
	i := strings.IndexByte(addr, ':')
	if i <= 0 {
		return nil, ErrorAddrParse.Error(nil)
	}
	name := addr[:i]
	d, ok := r.ByName(name)
	if !ok {
		return nil, ErrorProtoNotAvailable.Error(nil)
	}
	return d, nil
}

// DefaultRegistry is the process-wide registry every built-in transport
// registers itself into from an init() function, per spec §4.1 and the
// framework's documented initialization-ordering responsibility.
var DefaultRegistry = NewRegistry()
