// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package textsocket

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/gobwas/pool/pbytes"
)

// Header size length bounds in bytes.
const (
	MaxHeaderSize = 14
	MinHeaderSize = 2
)

const (
	bit0 = 0x80

	len7  = int64(125)
	len16 = int64(^(uint16(0)))
)

// HeaderSize returns number of bytes that are needed to encode given header.
// It returns -1 if header is malformed.
func HeaderSize(h Header) (n int) {
	switch {
	case h.Length < 0:
		return -1
	case h.Length <= len7:
		n = 2
	case h.Length <= len16:
		n = 4
	default:
		n = 10
	}
	if h.Masked {
		n += len(h.Mask)
	}
	return n
}

// WriteHeader writes header binary representation into w.
func WriteHeader(w io.Writer, h Header) error {
	// Make slice of bytes with capacity 14 that could hold any header.
	bts := make([]byte, MaxHeaderSize)

	n, err := putHeader(bts, h)
	if err != nil {
		return err
	}
	_, err = w.Write(bts[:n])
	return err
}

func putHeader(bts []byte, h Header) (int, error) {
	if h.Fin {
		bts[0] |= bit0
	}
	bts[0] |= h.Rsv << 4
	bts[0] |= byte(h.OpCode)

	var n int
	switch {
	case h.Length < 0:
		return 0, ErrHeaderLengthNegative
	case h.Length <= len7:
		bts[1] = byte(h.Length)
		n = 2

	case h.Length <= len16:
		bts[1] = 126
		binary.BigEndian.PutUint16(bts[2:4], uint16(h.Length))
		n = 4

	default:
		bts[1] = 127
		binary.BigEndian.PutUint64(bts[2:10], uint64(h.Length))
		n = 10
	}

	if h.Masked {
		bts[1] |= bit0
		n += copy(bts[n:], h.Mask[:])
	}
	return n, nil
}

// WriteFrame writes frame binary representation into w. The payload is
// written as is, so a frame with Masked set must carry a masked payload
// (see MaskFrame).
func WriteFrame(w io.Writer, f Frame) error {
	f.Header.Length = int64(len(f.Payload))
	if err := WriteHeader(w, f.Header); err != nil {
		return err
	}
	_, err := w.Write(f.Payload)
	return err
}

// WriteMaskedFrame writes f masked with mask. The payload is ciphered in a
// pooled scratch buffer, f.Payload is left untouched.
func WriteMaskedFrame(w io.Writer, f Frame, mask [4]byte) error {
	f.Header.Masked = true
	f.Header.Mask = mask
	f.Header.Length = int64(len(f.Payload))
	if err := WriteHeader(w, f.Header); err != nil {
		return err
	}
	p := pbytes.GetLen(len(f.Payload))
	defer pbytes.Put(p)
	copy(p, f.Payload)
	Cipher(p, mask, 0)
	_, err := w.Write(p)
	return err
}

// MustWriteFrame is like WriteFrame but panics if frame can not be read.
func MustWriteFrame(w io.Writer, f Frame) {
	if err := WriteFrame(w, f); err != nil {
		panic(err)
	}
}

// CompileFrame returns byte representation of given frame.
// In terms of memory consumption it is useful to precompile static frames
// which are often used.
func CompileFrame(f Frame) (bts []byte, err error) {
	buf := bytes.NewBuffer(make([]byte, 0, MaxHeaderSize+len(f.Payload)))
	err = WriteFrame(buf, f)
	bts = buf.Bytes()
	return
}

// MustCompileFrame is like CompileFrame but panics if frame can not be
// encoded.
func MustCompileFrame(f Frame) []byte {
	bts, err := CompileFrame(f)
	if err != nil {
		panic(err)
	}
	return bts
}

// WriteMessage encodes text into frames of at most maxPayloadPerFrame bytes
// and writes them into w in order.
func WriteMessage(w io.Writer, text string, maxPayloadPerFrame int) error {
	frames, err := Encode(text, maxPayloadPerFrame)
	if err != nil {
		return err
	}
	for _, f := range frames {
		if err := WriteFrame(w, f); err != nil {
			return err
		}
	}
	return nil
}
