// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package textsocket

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// DefaultMaxFrameSize limits the payload of frames read by ReadFrame.
const DefaultMaxFrameSize = 16 << 20

// State represents state of websocket endpoint.
// It used by some functions to be more strict when checking compatibility
// with RFC6455.
type State uint8

const (
	// StateServerSide means that endpoint (caller) is a server.
	StateServerSide State = 0x1 << iota
	// StateClientSide means that endpoint (caller) is a client.
	StateClientSide
)

// ServerSide reports whether states represents server side.
func (s State) ServerSide() bool { return s&StateServerSide != 0 }

// ClientSide reports whether state represents client side.
func (s State) ClientSide() bool { return s&StateClientSide != 0 }

func (s State) String() string {
	if s.ClientSide() {
		return "client"
	}
	return "server"
}

// headerBase decodes the first two header bytes. Length holds the 7-bit
// length indicator; extra is the number of extended length and mask bytes
// which follow.
func headerBase(b0, b1 byte) (h Header, extra int) {
	h.Fin = b0&bit0 != 0
	h.Rsv = (b0 & 0x70) >> 4
	h.OpCode = OpCode(b0 & 0x0f)
	h.Masked = b1&bit0 != 0
	h.Length = int64(b1 & 0x7f)

	switch h.Length {
	case 126:
		extra = 2
	case 127:
		extra = 8
	}
	if h.Masked {
		extra += 4
	}
	return h, extra
}

// lengthSize returns number of extended length bytes of h decoded by
// headerBase.
func lengthSize(h Header) int {
	switch h.Length {
	case 126:
		return 2
	case 127:
		return 8
	}
	return 0
}

// headerRest completes h from the bytes following the first two header
// bytes. bts must hold at least the extended length field.
func headerRest(h *Header, bts []byte) error {
	switch lengthSize(*h) {
	case 2:
		if len(bts) < 2 {
			return ErrHeaderLengthUnexpected
		}
		h.Length = int64(binary.BigEndian.Uint16(bts[:2]))
		bts = bts[2:]
	case 8:
		if len(bts) < 8 {
			return ErrHeaderLengthUnexpected
		}
		if bts[0]&bit0 != 0 {
			return ErrHeaderLengthMSB
		}
		h.Length = int64(binary.BigEndian.Uint64(bts[:8]))
		bts = bts[8:]
	}
	if h.Masked {
		if len(bts) < 4 {
			return ErrTruncatedFrame
		}
		copy(h.Mask[:], bts[:4])
	}
	return nil
}

// CheckHeader checks h to contain valid header data for given state s.
// Only text, continuation and control frames are accepted.
func CheckHeader(h Header, s State) error {
	switch {
	case h.OpCode.IsReserved() || h.OpCode == OpBinary:
		return ErrUnsupportedOpCode
	case h.Rsv != 0:
		return ErrNonZeroRsv
	case h.OpCode.IsControl() && !h.Fin:
		return ErrControlFragmented
	case h.OpCode.IsControl() && h.Length > MaxControlFramePayloadSize:
		return ErrControlTooLarge
	// RFC6455: The server MUST close the connection upon receiving a frame
	// that is not masked. A client MUST close a connection if it detects a
	// masked frame.
	case s.ServerSide() && !h.Masked:
		return ErrUnmasked
	case s.ClientSide() && h.Masked:
		return &ProtocolError{Kind: ErrInvalidFrame, Reason: "server frame is masked"}
	}
	return nil
}

// Decode parses one client frame from the beginning of raw and unmasks its
// payload. It returns the frame and the number of bytes it occupied in raw,
// so a buffer holding several frames can be decoded in a loop.
//
// Payload of the returned frame does not share memory with raw.
func Decode(raw []byte) (f DecodedFrame, n int, err error) {
	return decode(raw, StateServerSide)
}

func decode(raw []byte, s State) (f Frame, n int, err error) {
	if len(raw) < MinHeaderSize {
		return f, 0, ErrTruncatedFrame
	}
	h, extra := headerBase(raw[0], raw[1])
	if len(raw)-MinHeaderSize < lengthSize(h) {
		return f, 0, ErrHeaderLengthUnexpected
	}
	rest := raw[MinHeaderSize:min(len(raw), MinHeaderSize+extra)]
	if err = headerRest(&h, rest); err != nil {
		return f, 0, err
	}
	if err = CheckHeader(h, s); err != nil {
		return f, 0, err
	}

	n = MinHeaderSize + extra
	if int64(len(raw)-n) < h.Length {
		return f, 0, ErrTruncatedFrame
	}
	f.Header = h
	f.Payload = make([]byte, h.Length)
	n += copy(f.Payload, raw[n:])
	if h.Masked {
		Cipher(f.Payload, h.Mask, 0)
	}
	return f, n, nil
}

// ReadHeader reads a frame header from r.
//
// It returns io.EOF if r is exhausted before the first header byte. Running
// out inside the extended length field is ErrHeaderLengthUnexpected, as in
// Decode; anywhere else inside the header it is ErrTruncatedFrame.
func ReadHeader(r io.Reader) (h Header, err error) {
	bts := make([]byte, MaxHeaderSize)

	if _, err = io.ReadFull(r, bts[:MinHeaderSize]); err != nil {
		return h, truncated(err)
	}
	h, extra := headerBase(bts[0], bts[1])
	if extra > 0 {
		n, err := io.ReadFull(r, bts[MinHeaderSize:MinHeaderSize+extra])
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				return h, err
			}
			if n < lengthSize(h) {
				return h, ErrHeaderLengthUnexpected
			}
			return h, ErrTruncatedFrame
		}
	}
	err = headerRest(&h, bts[MinHeaderSize:MinHeaderSize+extra])
	return h, err
}

// truncated maps a failed read of a frame start: io.EOF stays io.EOF, a
// partial read is reported as ErrTruncatedFrame.
func truncated(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncatedFrame
	}
	return err
}

// ReadFrame reads a client frame from r, limiting its payload to
// DefaultMaxFrameSize.
func ReadFrame(r io.Reader) (DecodedFrame, error) {
	fr := FrameReader{Source: r, State: StateServerSide, MaxFrameSize: DefaultMaxFrameSize}
	return fr.ReadFrame()
}

// FrameReader reads and validates whole frames from Source.
type FrameReader struct {
	Source io.Reader
	State  State

	// MaxFrameSize controls the maximum payload size of a single frame.
	// Zero means no limit; payloads are then read in bounded chunks.
	MaxFrameSize int64
}

// ReadFrame blocks until the next frame is read from the source. The
// payload is unmasked.
func (r *FrameReader) ReadFrame() (f Frame, err error) {
	h, err := ReadHeader(r.Source)
	if err != nil {
		return f, err
	}
	if err = CheckHeader(h, r.State); err != nil {
		return f, err
	}
	if r.MaxFrameSize > 0 && h.Length > r.MaxFrameSize {
		return f, ErrFrameTooLarge
	}

	f.Header = h
	if f.Payload, err = r.readPayload(h.Length); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return f, ErrTruncatedFrame
		}
		return f, err
	}
	if h.Masked {
		Cipher(f.Payload, h.Mask, 0)
	}
	return f, nil
}

// readChunk bounds the buffer allocated ahead of payload bytes which have not
// arrived yet.
const readChunk = 64 << 10

// readPayload reads n payload bytes. Without a frame size limit the declared
// length is not trusted for allocation: the payload grows while it is read.
func (r *FrameReader) readPayload(n int64) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	if r.MaxFrameSize > 0 || n <= readChunk {
		p := make([]byte, n)
		_, err := io.ReadFull(r.Source, p)
		return p, err
	}
	var buf bytes.Buffer
	buf.Grow(readChunk)
	m, err := io.CopyN(&buf, r.Source, n)
	if err == nil && m < n {
		err = io.ErrUnexpectedEOF
	}
	return buf.Bytes(), err
}

// MustReadFrame is like ReadFrame but panics if frame can not be read.
func MustReadFrame(r io.Reader) Frame {
	fr := FrameReader{Source: r, MaxFrameSize: DefaultMaxFrameSize}
	f, err := fr.ReadFrame()
	if err != nil {
		panic(err)
	}
	return f
}
