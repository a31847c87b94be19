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

// Package attr implements the per-socket typed attribute framework (spec
// §4.3): a registry of named, typed get/set slots built from a generic
// common set plus whatever a transport contributes.
package attr

import (
	"encoding/binary"

	liberr "github.com/nabbar/xcm/errors"
	libtrp "github.com/nabbar/xcm/transport"
)

const (
	ErrorParamEmpty liberr.CodeError = iota + liberr.MinPkgAttr
	ErrorOverflow
	ErrorTypeMismatch
	ErrorNotFound
	ErrorReadOnly
	ErrorWriteOnly
)

// ValueType is the wire/native type of an attribute's value.
type ValueType uint8

const (
	TypeBool ValueType = iota
	TypeInt64
	TypeString
	TypeBinary
)

func (t ValueType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt64:
		return "int64"
	case TypeString:
		return "string"
	case TypeBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// GetFunc reads an attribute's current value into wire form.
type GetFunc func(s *libtrp.Socket) ([]byte, liberr.Error)

// SetFunc writes an attribute's value from wire form.
type SetFunc func(s *libtrp.Socket, value []byte) liberr.Error

// Descriptor is one named, typed attribute slot. An attribute is read-only,
// write-only or read-write depending on which of Get/Set is non-nil (spec
// §4.3). AttributeID is a small ordinal used by the UTLS proxy table (§4.5.10)
// to recover the originating descriptor by array index.
type Descriptor struct {
	Name         string
	Type         ValueType
	Get          GetFunc
	Set          SetFunc
	AttributeID  int
}

func (d Descriptor) Readable() bool { return d.Get != nil }
func (d Descriptor) Writable() bool { return d.Set != nil }

// Set applies a typed value, validating its wire length for fixed-width types.
func (d Descriptor) SetValue(s *libtrp.Socket, value []byte) liberr.Error {
	if d.Set == nil {
		return ErrorWriteOnly.Error(nil)
	}
	switch d.Type {
	case TypeBool:
		if len(value) != 1 {
			return ErrorTypeMismatch.Error(nil)
		}
	case TypeInt64:
		if len(value) != 8 {
			return ErrorTypeMismatch.Error(nil)
		}
	}
	return d.Set(s, value)
}

// GetValue reads the attribute's current wire-form value, failing with
// ErrorOverflow when it would not fit into cap bytes.
func (d Descriptor) GetValue(s *libtrp.Socket, capacity int) ([]byte, liberr.Error) {
	if d.Get == nil {
		return nil, ErrorReadOnly.Error(nil)
	}
	v, err := d.Get(s)
	if err != nil {
		return nil, err
	}
	if capacity > 0 && len(v) > capacity {
		return nil, ErrorOverflow.Error(nil)
	}
	return v, nil
}

// EncodeBool/EncodeInt64/EncodeString are the wire encodings attribute Get
// callbacks use; strings are NUL-terminated per spec §4.3.
func EncodeBool(b bool) []byte {
	if b {
		return []byte{1}
	}
	return []byte{0}
}

func DecodeBool(v []byte) bool {
	return len(v) == 1 && v[0] != 0
}

func EncodeInt64(i int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(i))
	return b
}

func DecodeInt64(v []byte) int64 {
	if len(v) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(v))
}

func EncodeString(s string) []byte {
	return append([]byte(s), 0)
}

func DecodeString(v []byte) string {
	if n := len(v); n > 0 && v[n-1] == 0 {
		v = v[:n-1]
	}
	return string(v)
}

// Provider is implemented by a transport's Ops value to contribute
// transport-specific attributes alongside the common set.
type Provider interface {
	Attrs(s *libtrp.Socket) []Descriptor
}

// Callback receives one attribute per invocation from GetAllAttrs.
type Callback func(name string, typ ValueType, value []byte)

// GetAllAttrs iterates the common set for the socket's type plus whatever
// the transport contributes, invoking cb once per attribute (spec §4.3).
func GetAllAttrs(s *libtrp.Socket, cb Callback) {
	for _, d := range CommonAttrs(s) {
		emit(s, d, cb)
	}
	if p, ok := s.Descriptor().Ops.(Provider); ok {
		for _, d := range p.Attrs(s) {
			emit(s, d, cb)
		}
	}
}

func emit(s *libtrp.Socket, d Descriptor, cb Callback) {
	if !d.Readable() {
		return
	}
	v, err := d.Get(s)
	if err != nil {
		return
	}
	cb(d.Name, d.Type, v)
}

// Find looks an attribute up by name across the common set and whatever the
// transport contributes.
func Find(s *libtrp.Socket, name string) (Descriptor, bool) {
	for _, d := range CommonAttrs(s) {
		if d.Name == name {
			return d, true
		}
	}
	if p, ok := s.Descriptor().Ops.(Provider); ok {
		for _, d := range p.Attrs(s) {
			if d.Name == name {
				return d, true
			}
		}
	}
	return Descriptor{}, false
}
