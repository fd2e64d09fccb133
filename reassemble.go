// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package textsocket

import (
	"errors"
	"iter"
	"unicode/utf8"
)

// Message is a reassembled text message.
type Message struct {
	Text string
}

// Reassembler joins data frames of one logical message. It is not safe for
// concurrent use; every connection owns its own.
type Reassembler struct {
	// MaxMessageSize limits the total payload of one message.
	// Zero means no limit.
	MaxMessageSize int64

	open bool
	buf  []byte
}

// Open reports whether a fragmented message is in progress.
func (r *Reassembler) Open() bool { return r.open }

// Buffered returns number of payload bytes of the message in progress.
func (r *Reassembler) Buffered() int { return len(r.buf) }

// Reset drops the message in progress.
func (r *Reassembler) Reset() {
	r.open = false
	r.buf = nil
}

// Push adds a data frame. When f completes a message it returns the message
// and true.
//
// A first frame received while a message is open returns
// ErrUnexpectedFirstFrame. The partial message is dropped and f starts the
// next one; if f is final, its message is returned together with the error.
func (r *Reassembler) Push(f DecodedFrame) (Message, bool, error) {
	if f.Header.IsFirst() && r.open {
		r.Reset()
		msg, ok, err := r.Push(f)
		if err != nil {
			return Message{}, false, errors.Join(ErrUnexpectedFirstFrame, err)
		}
		return msg, ok, ErrUnexpectedFirstFrame
	}

	switch {
	case f.Header.OpCode.IsControl():
		return Message{}, false, &ProtocolError{Kind: ErrInvalidFrame, Reason: "control frame in message stream"}
	case f.Header.IsFirst():
		r.open = true
		r.buf = nil
	case !r.open:
		return Message{}, false, ErrUnexpectedContinuation
	}

	if r.MaxMessageSize > 0 && int64(len(r.buf)+len(f.Payload)) > r.MaxMessageSize {
		r.Reset()
		return Message{}, false, ErrMessageTooLarge
	}
	r.buf = append(r.buf, f.Payload...)
	if !f.Header.Fin {
		return Message{}, false, nil
	}

	p := r.buf
	r.Reset()
	if !utf8.Valid(p) {
		return Message{}, false, ErrEncoding
	}
	if p == nil {
		return Message{}, true, nil
	}
	// p is owned by nobody else after Reset.
	return Message{Text: btsToString(p)}, true, nil
}

// Reassemble lazily turns a sequence of decoded frames into messages.
// Decode errors from frames and reassembly errors are yielded together with
// a zero Message; reassembly continues with the following frame. A message
// completed by the frame which broke the previous one is yielded after the
// error. Control frames are skipped.
func (r *Reassembler) Reassemble(frames iter.Seq2[DecodedFrame, error]) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		for f, err := range frames {
			if err != nil {
				if !yield(Message{}, err) {
					return
				}
				continue
			}
			if f.Header.OpCode.IsControl() {
				continue
			}
			msg, ok, err := r.Push(f)
			if err != nil {
				if !yield(Message{}, err) {
					return
				}
			}
			if ok && !yield(msg, nil) {
				return
			}
		}
	}
}

// Reassemble is a shortcut for a fresh Reassembler without limits.
func Reassemble(frames iter.Seq2[DecodedFrame, error]) iter.Seq2[Message, error] {
	var r Reassembler
	return r.Reassemble(frames)
}

// Frames returns a sequence of frames decoded from the raw buffers in order.
// Each buffer may contain several frames. A buffer which fails to decode
// yields the error and the rest of that buffer is skipped.
func Frames(raws ...[]byte) iter.Seq2[DecodedFrame, error] {
	return func(yield func(DecodedFrame, error) bool) {
		for _, raw := range raws {
			for len(raw) > 0 {
				f, n, err := Decode(raw)
				if err != nil {
					if !yield(f, err) {
						return
					}
					break
				}
				if !yield(f, nil) {
					return
				}
				raw = raw[n:]
			}
		}
	}
}
