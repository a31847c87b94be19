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
	liberr "github.com/nabbar/xcm/errors"
)

// Error codes for the transport package: registry, socket core and dispatch.
// Every transport (ux, tcp, tls, utls) maps its own lower-layer failures onto
// one of these before returning, so nothing OS-specific leaks across the
// socket/dispatch boundary.
const (
	ErrorParamEmpty liberr.CodeError = iota + liberr.MinPkgTransport

	// ErrorWouldBlock - non-blocking op deferred; retry on readiness. Not sticky.
	ErrorWouldBlock

	// ErrorClosedByPeer - receive observed EOF / write observed broken pipe.
	ErrorClosedByPeer

	// ErrorConnRefused - no listener, or a sub-transport probe failed to connect.
	ErrorConnRefused

	// ErrorReset - peer reset the connection mid-stream.
	ErrorReset

	// ErrorTimeout - keepalive or user timeout exceeded.
	ErrorTimeout

	// ErrorUnreachable - host/network unreachable at connect or during.
	ErrorUnreachable

	// ErrorProtocol - non-recoverable framing, certificate or handshake failure.
	ErrorProtocol

	// ErrorAddrParse - malformed address given to connect/server/set_local_addr.
	ErrorAddrParse

	// ErrorProtoNotAvailable - unknown transport prefix in an address.
	ErrorProtoNotAvailable

	// ErrorOverflow - attribute get buffer too small.
	ErrorOverflow

	// ErrorPermission - op disallowed in the socket's current lifecycle.
	ErrorPermission

	// ErrorMessageTooLarge - send length exceeds the transport's max message size.
	ErrorMessageTooLarge

	// ErrorNotSupported - the transport does not implement this optional op.
	ErrorNotSupported

	// ErrorAlreadyRegistered - Register called twice for the same transport name.
	ErrorAlreadyRegistered

	// ErrorNameTooLong - transport name exceeds MaxTransportNameLen.
	ErrorNameTooLong

	// ErrorRegistryFull - the registry's fixed capacity is exhausted.
	ErrorRegistryFull

	// ErrorClosed - operation attempted on a socket that is already closed.
	ErrorClosed
)

// Sticky wraps err so that repeated calls against the same connection socket
// observe the identical failure, per spec: "errors on a connection socket
// that render it unusable are sticky".
type Sticky struct {
	Err liberr.Error
}

func (s *Sticky) Error() string {
	if s == nil || s.Err == nil {
		return ""
	}
	return s.Err.Error()
}
