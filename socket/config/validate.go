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
	"net"
	"reflect"
	"runtime"

	libtls "github.com/nabbar/xcm/certificates"
	libptc "github.com/nabbar/xcm/network/protocol"
)

func resolveAddress(p libptc.NetworkProtocol, addr string) error {
	switch p {
	case libptc.NetworkTCP, libptc.NetworkTCP4, libptc.NetworkTCP6:
		_, err := net.ResolveTCPAddr(p.String(), addr)
		return err
	case libptc.NetworkUDP, libptc.NetworkUDP4, libptc.NetworkUDP6:
		_, err := net.ResolveUDPAddr(p.String(), addr)
		return err
	case libptc.NetworkUnix, libptc.NetworkUnixGram:
		if runtime.GOOS == "windows" {
			return ErrInvalidProtocol
		}
		_, err := net.ResolveUnixAddr("unix", addr)
		return err
	default:
		return ErrInvalidProtocol
	}
}

func isTCPFamily(p libptc.NetworkProtocol) bool {
	switch p {
	case libptc.NetworkTCP, libptc.NetworkTCP4, libptc.NetworkTCP6:
		return true
	default:
		return false
	}
}

func isEmptyTLSConfig(c libtls.Config) bool {
	return reflect.DeepEqual(c, libtls.Config{})
}

// Validate checks the protocol/address pair and, if TLS is enabled, that TLS
// is only requested over a TCP-family protocol with a usable configuration
// and a server name to verify.
func (c Client) Validate() error {
	if err := resolveAddress(c.Network, c.Address); err != nil {
		return err
	}

	if c.TLS.Enabled {
		if !isTCPFamily(c.Network) {
			return ErrInvalidTLSConfig
		}
		if isEmptyTLSConfig(c.TLS.Config) {
			return ErrInvalidTLSConfig
		}
		if c.TLS.ServerName == "" {
			return ErrInvalidTLSConfig
		}
	}

	return nil
}

// Validate checks the protocol/address pair, the Unix-socket permission
// fields, and, if TLS is enabled, that it is only requested over a
// TCP-family protocol with a usable configuration.
func (s Server) Validate() error {
	if err := resolveAddress(s.Network, s.Address); err != nil {
		return err
	}

	if s.GroupPerm > MaxGID {
		return ErrInvalidGroup
	}

	if s.TLS.Enable {
		if !isTCPFamily(s.Network) {
			return ErrInvalidTLSConfig
		}
		if isEmptyTLSConfig(s.TLS.Config) {
			return ErrInvalidTLSConfig
		}
	}

	return nil
}
