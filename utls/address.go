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

package utls

import (
	"strings"

	liberr "github.com/nabbar/xcm/errors"
)

// Prefix is the address-family token for this transport.
const Prefix = "utls"

// ParseAddress splits a "utls:host:port" address into host and port,
// tolerating bracketed IPv6 literals. Round-trips with MakeAddress (spec §8:
// "UTLS address round-trip: parse(make(host, port)) == (host, port)").
func ParseAddress(addr string) (host, port string, err liberr.Error) {
	rest := strings.TrimPrefix(addr, Prefix+":")
	if rest == addr {
		return "", "", ErrorAddrParse.Error(nil)
	}

	i := strings.LastIndexByte(rest, ':')
	if i <= 0 || i == len(rest)-1 {
		return "", "", ErrorAddrParse.Error(nil)
	}
	return rest[:i], rest[i+1:], nil
}

// MakeAddress is the inverse of ParseAddress.
func MakeAddress(host, port string) string {
	return Prefix + ":" + host + ":" + port
}

// tlsAddress derives the TLS sub-transport address from a UTLS one: same
// host+port, prefix swapped (spec §4.5/"Intent").
func tlsAddress(host, port string) string {
	return "tls:" + host + ":" + port
}

// uxAddress derives the local-IPC sub-transport address: the host+port
// substring becomes the abstract local-IPC name (spec §4.5/"Intent").
func uxAddress(host, port string) string {
	return "ux:" + host + ":" + port
}
