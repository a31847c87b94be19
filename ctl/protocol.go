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

package ctl

import (
	"encoding/binary"
	"errors"
)

// Wire format: fixed-size records over a message-preserving local-IPC
// socket (spec §4.4/§6). All integers are host byte order; this is a
// same-host, same-process-tree protocol, never routed. We pick
// binary.LittleEndian as a concrete, deterministic "host order" — every
// participant in this library runs on the same binary, so there is never a
// cross-endian peer.
var order = binary.LittleEndian

const (
	maxNameLen  = 64
	maxValueLen = 256
	maxAttrs    = 32
)

// Kind is the request/response discriminator of the first wire byte.
type Kind byte

const (
	KindGetAttrReq Kind = iota + 1
	KindGetAttrCfm
	KindGetAttrRej
	KindGetAllAttrReq
	KindGetAllAttrCfm
)

// reqSize is the fixed size of every request record.
const reqSize = 1 + 1 + maxNameLen // kind + namelen + name

// attrSize is the fixed size of one wire attribute.
const attrSize = 1 + maxNameLen + 1 + 2 + maxValueLen // namelen+name+vtype+vlen+value

// respSize is the fixed size of every response record: kind + errno +
// count + the compile-time maximum number of attributes (spec §4.4: "bounded
// by a compile-time maximum count").
const respSize = 1 + 4 + 1 + maxAttrs*attrSize

// AttrValueType mirrors attr.ValueType on the wire without importing
// package attr (keeps ctl's wire format independent of the in-process
// attribute framework's representation).
type AttrValueType byte

const (
	VTBool AttrValueType = iota
	VTInt64
	VTString
	VTBinary
)

// WireAttr is one attribute as carried on the wire.
type WireAttr struct {
	Name  string
	Type  AttrValueType
	Value []byte
}

// Request is a decoded incoming request.
type Request struct {
	Kind Kind
	Name string // only meaningful for KindGetAttrReq
}

func encodeRequest(r Request) []byte {
	buf := make([]byte, reqSize)
	buf[0] = byte(r.Kind)
	n := []byte(r.Name)
	if len(n) > maxNameLen-1 {
		n = n[:maxNameLen-1]
	}
	buf[1] = byte(len(n))
	copy(buf[2:], n)
	return buf
}

func decodeRequest(buf []byte) (Request, error) {
	if len(buf) != reqSize {
		return Request{}, errors.New("ctl: short request record")
	}
	r := Request{Kind: Kind(buf[0])}
	nl := int(buf[1])
	if nl > maxNameLen-1 {
		return Request{}, errors.New("ctl: corrupt request name length")
	}
	r.Name = string(buf[2 : 2+nl])
	return r, nil
}

// Response is a decoded/encoded outgoing response.
type Response struct {
	Kind  Kind
	Errno int32
	Attrs []WireAttr // one entry for GetAttrCfm, many for GetAllAttrCfm
}

func encodeAttr(buf []byte, a WireAttr) {
	n := []byte(a.Name)
	if len(n) > maxNameLen-1 {
		n = n[:maxNameLen-1]
	}
	buf[0] = byte(len(n))
	copy(buf[1:], n)
	buf[1+maxNameLen] = byte(a.Type)
	v := a.Value
	if len(v) > maxValueLen {
		v = v[:maxValueLen]
	}
	order.PutUint16(buf[1+maxNameLen+1:], uint16(len(v)))
	copy(buf[1+maxNameLen+1+2:], v)
}

func decodeAttr(buf []byte) WireAttr {
	nl := int(buf[0])
	if nl > maxNameLen-1 {
		nl = 0
	}
	name := string(buf[1 : 1+nl])
	typ := AttrValueType(buf[1+maxNameLen])
	vl := int(order.Uint16(buf[1+maxNameLen+1:]))
	if vl > maxValueLen {
		vl = maxValueLen
	}
	start := 1 + maxNameLen + 1 + 2
	value := append([]byte(nil), buf[start:start+vl]...)
	return WireAttr{Name: name, Type: typ, Value: value}
}

func encodeResponse(r Response) []byte {
	buf := make([]byte, respSize)
	buf[0] = byte(r.Kind)
	order.PutUint32(buf[1:], uint32(r.Errno))
	count := len(r.Attrs)
	if count > maxAttrs {
		count = maxAttrs
	}
	buf[5] = byte(count)
	for i := 0; i < count; i++ {
		off := 6 + i*attrSize
		encodeAttr(buf[off:off+attrSize], r.Attrs[i])
	}
	return buf
}

func decodeResponse(buf []byte) (Response, error) {
	if len(buf) != respSize {
		return Response{}, errors.New("ctl: short response record")
	}
	r := Response{Kind: Kind(buf[0]), Errno: int32(order.Uint32(buf[1:]))}
	count := int(buf[5])
	if count > maxAttrs {
		return Response{}, errors.New("ctl: corrupt response attr count")
	}
	for i := 0; i < count; i++ {
		off := 6 + i*attrSize
		r.Attrs = append(r.Attrs, decodeAttr(buf[off:off+attrSize]))
	}
	return r, nil
}
