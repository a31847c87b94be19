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

package attr

import (
	liberr "github.com/nabbar/xcm/errors"
	libtrp "github.com/nabbar/xcm/transport"
)

// Common attribute names, shared across every transport (spec §4.3).
const (
	NameBlocking   = "xcm.blocking"
	NameType       = "xcm.type"
	NameTransport  = "xcm.transport"
	NameLocalAddr  = "xcm.local_addr"
	NameRemoteAddr = "xcm.remote_addr"
	NameMaxMsgSize = "xcm.max_msg_size"

	NameToAppMsgs      = "xcm.to_app_msgs"
	NameFromAppMsgs    = "xcm.from_app_msgs"
	NameToLowerMsgs    = "xcm.to_lower_msgs"
	NameFromLowerMsgs  = "xcm.from_lower_msgs"
	NameToAppBytes     = "xcm.to_app_bytes"
	NameFromAppBytes   = "xcm.from_app_bytes"
	NameToLowerBytes   = "xcm.to_lower_bytes"
	NameFromLowerBytes = "xcm.from_lower_bytes"
)

// CommonAttrs returns the generic attribute set for s's socket type,
// present on every socket regardless of transport (spec §4.3).
func CommonAttrs(s *libtrp.Socket) []Descriptor {
	out := []Descriptor{
		{
			Name: NameBlocking,
			Type: TypeBool,
			Get:  func(s *libtrp.Socket) ([]byte, liberr.Error) { return EncodeBool(s.Blocking()), nil },
			Set: func(s *libtrp.Socket, v []byte) liberr.Error {
				s.SetBlocking(DecodeBool(v))
				return nil
			},
			AttributeID: 0,
		},
		{
			Name:        NameType,
			Type:        TypeString,
			Get:         func(s *libtrp.Socket) ([]byte, liberr.Error) { return EncodeString(s.Type().String()), nil },
			AttributeID: 1,
		},
		{
			Name:        NameTransport,
			Type:        TypeString,
			Get:         func(s *libtrp.Socket) ([]byte, liberr.Error) { return EncodeString(s.GetTransport()), nil },
			AttributeID: 2,
		},
		{
			Name: NameLocalAddr,
			Type: TypeString,
			Get: func(s *libtrp.Socket) ([]byte, liberr.Error) {
				if g, ok := s.Descriptor().Ops.(libtrp.LocalAddrGetter); ok {
					if addr, ok2 := g.GetLocalAddr(s); ok2 {
						return EncodeString(addr), nil
					}
				}
				return nil, ErrorNotFound.Error(nil)
			},
			Set: func(s *libtrp.Socket, v []byte) liberr.Error {
				return s.SetLocalAddr(DecodeString(v))
			},
			AttributeID: 3,
		},
	}

	if s.Type() == libtrp.TypeConnection {
		out = append(out,
			Descriptor{
				Name: NameRemoteAddr,
				Type: TypeString,
				Get: func(s *libtrp.Socket) ([]byte, liberr.Error) {
					if g, ok := s.Descriptor().Ops.(libtrp.RemoteAddrGetter); ok {
						if addr, ok2 := g.GetRemoteAddr(s); ok2 {
							return EncodeString(addr), nil
						}
					}
					return nil, ErrorNotFound.Error(nil)
				},
				AttributeID: 4,
			},
			Descriptor{
				Name: NameMaxMsgSize,
				Type: TypeInt64,
				Get: func(s *libtrp.Socket) ([]byte, liberr.Error) {
					if m, ok := s.Descriptor().Ops.(libtrp.MaxMsgSizer); ok {
						return EncodeInt64(m.MaxMsgSize(s)), nil
					}
					return EncodeInt64(0), nil
				},
				AttributeID: 5,
			},
			counterAttr(NameToAppMsgs, 6, func(c libtrp.Counters) int64 { return int64(c.ToAppMsgs) }),
			counterAttr(NameFromAppMsgs, 7, func(c libtrp.Counters) int64 { return int64(c.FromAppMsgs) }),
			counterAttr(NameToLowerMsgs, 8, func(c libtrp.Counters) int64 { return int64(c.ToLowerMsgs) }),
			counterAttr(NameFromLowerMsgs, 9, func(c libtrp.Counters) int64 { return int64(c.FromLowerMsgs) }),
			counterAttr(NameToAppBytes, 10, func(c libtrp.Counters) int64 { return int64(c.ToAppBytes) }),
			counterAttr(NameFromAppBytes, 11, func(c libtrp.Counters) int64 { return int64(c.FromAppBytes) }),
			counterAttr(NameToLowerBytes, 12, func(c libtrp.Counters) int64 { return int64(c.ToLowerBytes) }),
			counterAttr(NameFromLowerBytes, 13, func(c libtrp.Counters) int64 { return int64(c.FromLowerBytes) }),
		)
	}

	return out
}

func counterAttr(name string, id int, pick func(libtrp.Counters) int64) Descriptor {
	return Descriptor{
		Name: name,
		Type: TypeInt64,
		Get: func(s *libtrp.Socket) ([]byte, liberr.Error) {
			return EncodeInt64(pick(s.GetCnt())), nil
		},
		AttributeID: id,
	}
}
