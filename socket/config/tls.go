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

package config

import (
	libtls "github.com/nabbar/xcm/certificates"
)

// DefaultTLS records a fallback TLS configuration to merge in under the
// server's own settings the next time GetTLS is called (certificates.Config
// fields left unset on the server's own Config are filled from def).
func (s *Server) DefaultTLS(def libtls.TLSConfig) {
	s.TLS.def = def
}

// GetTLS reports whether TLS is enabled, and if so returns the merged
// stdlib-ready TLSConfig (the server's own Config layered over any
// DefaultTLS fallback).
func (s Server) GetTLS() (bool, libtls.TLSConfig) {
	if !s.TLS.Enable {
		return false, nil
	}
	cfg := s.TLS.Config
	return true, cfg.NewFrom(s.TLS.def)
}

// DefaultTLS records a fallback TLS configuration to merge in under the
// client's own settings the next time GetTLS is called.
func (c *Client) DefaultTLS(def libtls.TLSConfig) {
	c.TLS.def = def
}

// GetTLS reports whether TLS is enabled, and if so returns the merged
// stdlib-ready TLSConfig plus the server name to verify against.
func (c Client) GetTLS() (bool, libtls.TLSConfig, string) {
	if !c.TLS.Enabled {
		return false, nil, ""
	}
	cfg := c.TLS.Config
	return true, cfg.NewFrom(c.TLS.def), c.TLS.ServerName
}
