/***********************************************************************************************************************
 *
 *   MIT License
 *
 *   Copyright (c) 2022 Nicolas JUHEL
 *
 *   Permission is hereby granted, free of charge, to any person obtaining a copy
 *   of this software and associated documentation files (the "Software"), to deal
 *   in the Software without restriction, including without limitation the rights
 *   to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 *   copies of the Software, and to permit persons to whom the Software is
 *   furnished to do so, subject to the following conditions:
 *
 *   The above copyright notice and this permission notice shall be included in all
 *   copies or substantial portions of the Software.
 *
 *   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 *   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 *   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 *   AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 *   LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 *   OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 *   SOFTWARE.
 *
 *
 **********************************************************************************************************************/

// Package protocol enumerates the lower-layer network protocols the socket
// and transport packages can be bound to, with round-trip text, JSON, YAML,
// TOML and CBOR encodings so it can be embedded in typed configuration.
package protocol

import (
	"strconv"
	"strings"
)

// NetworkProtocol is a small enum identifying a kernel-level network
// protocol family. It is distinct from a transport name (ux/tcp/tls/utls):
// several transports can be layered over the same NetworkProtocol.
type NetworkProtocol uint8

const (
	NetworkEmpty NetworkProtocol = iota
	NetworkUnix
	NetworkTCP
	NetworkTCP4
	NetworkTCP6
	NetworkUDP
	NetworkUDP4
	NetworkUDP6
	NetworkIP
	NetworkIP4
	NetworkIP6
	NetworkUnixGram
)

var names = map[NetworkProtocol]string{
	NetworkUnix:     "unix",
	NetworkTCP:      "tcp",
	NetworkTCP4:     "tcp4",
	NetworkTCP6:     "tcp6",
	NetworkUDP:      "udp",
	NetworkUDP4:     "udp4",
	NetworkUDP6:     "udp6",
	NetworkIP:       "ip",
	NetworkIP4:      "ip4",
	NetworkIP6:      "ip6",
	NetworkUnixGram: "unixgram",
}

var byName = func() map[string]NetworkProtocol {
	m := make(map[string]NetworkProtocol, len(names))
	for k, v := range names {
		m[v] = k
	}
	return m
}()

// Parse decodes a protocol token, case-insensitively, tolerating surrounding
// whitespace and a single layer of matched quoting (", ' or `). Anything
// unrecognized, including the empty string, returns NetworkEmpty.
func Parse(s string) NetworkProtocol {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') ||
			(s[0] == '\'' && s[len(s)-1] == '\'') ||
			(s[0] == '`' && s[len(s)-1] == '`') {
			s = s[1 : len(s)-1]
		}
	}
	s = strings.TrimSpace(strings.ToLower(s))
	if p, ok := byName[s]; ok {
		return p
	}
	return NetworkEmpty
}

// String returns the canonical lower-case token for the protocol, or the
// empty string for NetworkEmpty and any unknown value.
func (p NetworkProtocol) String() string {
	return names[p]
}

// Code is an alias of String kept for symmetry with the other enum types in
// this module that expose both a String and a Code accessor.
func (p NetworkProtocol) Code() string {
	return p.String()
}

// Int64 returns the underlying ordinal, matching the iota declaration order.
func (p NetworkProtocol) Int64() int64 {
	return int64(p)
}

func (p NetworkProtocol) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *NetworkProtocol) UnmarshalText(b []byte) error {
	*p = Parse(string(b))
	return nil
}

func (p NetworkProtocol) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(p.String())), nil
}

func (p *NetworkProtocol) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		*p = NetworkEmpty
		return nil
	}
	s, err := strconv.Unquote(string(b))
	if err != nil {
		s = string(b)
	}
	*p = Parse(s)
	return nil
}

func (p NetworkProtocol) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

func (p *NetworkProtocol) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	*p = Parse(s)
	return nil
}

func (p NetworkProtocol) MarshalTOML() ([]byte, error) {
	return []byte(strconv.Quote(p.String())), nil
}

func (p *NetworkProtocol) UnmarshalTOML(i interface{}) error {
	if s, ok := i.(string); ok {
		*p = Parse(s)
	} else {
		*p = NetworkEmpty
	}
	return nil
}

func (p NetworkProtocol) MarshalCBOR() ([]byte, error) {
	return cborMarshalString(p.String())
}

func (p *NetworkProtocol) UnmarshalCBOR(b []byte) error {
	s, err := cborUnmarshalString(b)
	if err != nil {
		return err
	}
	*p = Parse(s)
	return nil
}

// IsStream reports whether the protocol carries a byte stream (as opposed to
// datagrams), which is what every XCM transport requires of its lower layer.
func (p NetworkProtocol) IsStream() bool {
	switch p {
	case NetworkTCP, NetworkTCP4, NetworkTCP6, NetworkUnix:
		return true
	default:
		return false
	}
}
