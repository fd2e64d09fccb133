// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package textsocket

import (
	"crypto/rand"
	"fmt"
	"unicode/utf8"
)

// Constants defined by RFC 6455.
const (
	// All control frames MUST have a payload length of 125 bytes or less and
	// MUST NOT be fragmented.
	MaxControlFramePayloadSize = 125

	// DefaultMaxFramePayload is the payload size used to split outbound
	// messages when no other value is configured.
	DefaultMaxFramePayload = 4096
)

// OpCode represents operation code.
type OpCode byte

// Operation codes defined by RFC 6455.
// See https://tools.ietf.org/html/rfc6455#section-5.2
const (
	OpContinuation OpCode = 0x0
	OpText         OpCode = 0x1
	OpBinary       OpCode = 0x2
	OpClose        OpCode = 0x8
	OpPing         OpCode = 0x9
	OpPong         OpCode = 0xa
)

// IsControl checks whether the c is control operation code.
// See https://tools.ietf.org/html/rfc6455#section-5.5
func (c OpCode) IsControl() bool {
	// RFC6455: Control frames are identified by opcodes where
	// the most significant bit of the opcode is 1.
	//
	// Note that OpCode is only 4 bit length.
	return c&0x8 != 0
}

// IsData checks whether the c is data operation code.
func (c OpCode) IsData() bool {
	return c&0x8 == 0
}

// IsReserved checks whether the c is reserved operation code.
func (c OpCode) IsReserved() bool {
	// RFC6455:
	// %x3-7 are reserved for further non-control frames
	// %xB-F are reserved for further control frames
	return (0x3 <= c && c <= 0x7) || (0xb <= c && c <= 0xf)
}

func (c OpCode) String() string {
	switch c {
	case OpContinuation:
		return "continuation"
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	}
	return fmt.Sprintf("opcode(%#x)", byte(c))
}

// Header represents websocket frame header.
// See https://tools.ietf.org/html/rfc6455#section-5.2
type Header struct {
	Fin    bool
	Rsv    byte
	OpCode OpCode
	Masked bool
	Mask   [4]byte
	Length int64
}

// IsFirst reports whether the header opens a message.
func (h Header) IsFirst() bool { return h.OpCode == OpText || h.OpCode == OpBinary }

// IsFinal reports whether the header closes a message.
func (h Header) IsFinal() bool { return h.Fin }

// Frame represents websocket frame.
// See https://tools.ietf.org/html/rfc6455#section-5.2
type Frame struct {
	Header  Header
	Payload []byte
}

// DecodedFrame is an inbound frame with its payload already unmasked.
type DecodedFrame = Frame

// NewFrame creates frame with given operation code,
// flag of completeness and payload bytes.
func NewFrame(op OpCode, fin bool, p []byte) Frame {
	return Frame{
		Header: Header{
			Fin:    fin,
			OpCode: op,
			Length: int64(len(p)),
		},
		Payload: p,
	}
}

// NewTextFrame creates final text frame with p as payload.
func NewTextFrame(p []byte) Frame {
	return NewFrame(OpText, true, p)
}

// NewPingFrame creates ping frame with p as payload.
// Note that p is not copied.
func NewPingFrame(p []byte) Frame {
	return NewFrame(OpPing, true, p)
}

// NewPongFrame creates pong frame with p as payload.
// Note that p is not copied.
func NewPongFrame(p []byte) Frame {
	return NewFrame(OpPong, true, p)
}

// NewCloseFrame creates a new close frame with given close body.
// Note that p is not copied.
// Note that p must have length of MaxControlFramePayloadSize bytes or less
// due to RFC.
func NewCloseFrame(p []byte) Frame {
	return NewFrame(OpClose, true, p)
}

// Encode splits message into text frames carrying at most
// maxPayloadPerFrame bytes each. The first frame has OpText, the others
// OpContinuation, and only the last one has Fin set. An empty message
// results in a single empty final text frame.
func Encode(message string, maxPayloadPerFrame int) ([]Frame, error) {
	if maxPayloadPerFrame < 1 {
		return nil, ErrInvalidFrameSize
	}
	if !utf8.ValidString(message) {
		return nil, ErrEncoding
	}
	p := []byte(message)
	if len(p) == 0 {
		return []Frame{NewTextFrame(p)}, nil
	}

	// len(p)+maxPayloadPerFrame may overflow.
	frames := make([]Frame, 0, 1+(len(p)-1)/maxPayloadPerFrame)
	op := OpText
	for len(p) > 0 {
		n := min(maxPayloadPerFrame, len(p))
		frames = append(frames, NewFrame(op, n == len(p), p[:n]))
		p = p[n:]
		op = OpContinuation
	}
	return frames, nil
}

// MaskFrame masks frame and returns frame with masked payload and Mask
// header's field set. Note that it copies f payload to prevent collisions.
// For less allocations you could use MaskFrameInPlace or construct frame
// manually.
func MaskFrame(f Frame) Frame {
	return MaskFrameWith(f, NewMask())
}

// MaskFrameWith masks frame with given mask and returns frame
// with masked payload and Mask header's field set.
// Note that it copies f payload to prevent collisions.
func MaskFrameWith(f Frame, mask [4]byte) Frame {
	p := make([]byte, len(f.Payload))
	copy(p, f.Payload)
	f.Payload = p
	return MaskFrameInPlaceWith(f, mask)
}

// MaskFrameInPlace masks frame and returns frame with masked payload and Mask
// header's field set. Note that it applies xor cipher to f.Payload without
// copying, that is, it modifies f.Payload inplace.
func MaskFrameInPlace(f Frame) Frame {
	return MaskFrameInPlaceWith(f, NewMask())
}

// MaskFrameInPlaceWith masks frame with given mask and returns frame
// with masked payload and Mask header's field set.
// Note that it applies xor cipher to f.Payload without copying, that is, it
// modifies f.Payload inplace.
func MaskFrameInPlaceWith(f Frame, m [4]byte) Frame {
	f.Header.Masked = true
	f.Header.Mask = m
	Cipher(f.Payload, m, 0)
	return f
}

// NewMask creates new random mask.
func NewMask() (ret [4]byte) {
	if _, err := rand.Read(ret[:]); err != nil {
		panic(err)
	}
	return
}
