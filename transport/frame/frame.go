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

// Package frame implements the 4-byte big-endian length-prefixed message
// framing shared by the ux, tcp and tls stream transports (spec §4.8): every
// message is written as uint32(len) || payload, and a short read from the
// lower layer is retried internally so a caller never observes a partial
// message.
package frame

import (
	"encoding/binary"
	"io"
	"net"
)

// DefaultMaxSize bounds a single message so a corrupt/hostile length prefix
// can never trigger an unbounded allocation.
const DefaultMaxSize = 16 * 1024 * 1024

// Write sends payload as one length-prefixed frame.
func Write(conn net.Conn, payload []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := conn.Write(hdr[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := conn.Write(payload)
	return err
}

// Read reads one length-prefixed frame, rejecting any declared length over
// maxSize (0 selects DefaultMaxSize).
func Read(conn net.Conn, maxSize uint32) ([]byte, error) {
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}
	var hdr [4]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxSize {
		return nil, ErrFrameTooLarge
	}
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ErrFrameTooLarge is returned by Read when a frame's declared length
// exceeds the configured maximum.
var ErrFrameTooLarge = frameTooLarge{}

type frameTooLarge struct{}

func (frameTooLarge) Error() string { return "frame: declared length exceeds maximum" }
