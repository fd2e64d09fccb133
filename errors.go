// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package textsocket

import (
	"errors"
)

// Error kinds. Every error returned by this package is one of these or wraps
// one of them, so callers can branch with errors.Is.
var (
	ErrMissingKey           = errors.New("textsocket: missing Sec-WebSocket-Key")
	ErrTruncatedFrame       = errors.New("textsocket: truncated frame")
	ErrInvalidFrame         = errors.New("textsocket: invalid frame")
	ErrUnexpectedFirstFrame = errors.New("textsocket: first frame inside an open message")
	ErrEncoding             = errors.New("textsocket: invalid utf-8 text")
	ErrStreamClosed         = errors.New("textsocket: stream closed")
	ErrStreamFault          = errors.New("textsocket: stream fault")
)

// Detailed protocol errors.
var (
	ErrInvalidFrameSize       = errors.New("textsocket: max payload per frame must be at least 1")
	ErrHeaderLengthNegative   = &ProtocolError{Kind: ErrInvalidFrame, Reason: "negative header length"}
	ErrHeaderLengthUnexpected = &ProtocolError{Kind: ErrInvalidFrame, Reason: "extended length field is incomplete"}
	ErrHeaderLengthMSB        = &ProtocolError{Kind: ErrInvalidFrame, Reason: "most significant bit of 64-bit length is set"}
	ErrUnmasked               = &ProtocolError{Kind: ErrInvalidFrame, Reason: "client frame is not masked"}
	ErrNonZeroRsv             = &ProtocolError{Kind: ErrInvalidFrame, Reason: "non-zero rsv bits with no extension negotiated"}
	ErrUnsupportedOpCode      = &ProtocolError{Kind: ErrInvalidFrame, Reason: "unsupported opcode"}
	ErrControlFragmented      = &ProtocolError{Kind: ErrInvalidFrame, Reason: "control frame is fragmented"}
	ErrControlTooLarge        = &ProtocolError{Kind: ErrInvalidFrame, Reason: "control frame payload exceeds 125 bytes"}
	ErrFrameTooLarge          = &ProtocolError{Kind: ErrInvalidFrame, Reason: "frame payload exceeds limit"}
	ErrMessageTooLarge        = &ProtocolError{Kind: ErrInvalidFrame, Reason: "message exceeds limit"}
	ErrUnexpectedContinuation = &ProtocolError{Kind: ErrInvalidFrame, Reason: "continuation frame without a first frame"}
	ErrHandshakeTooLarge      = &ProtocolError{Kind: ErrStreamFault, Reason: "handshake header line is too long"}
)

// ProtocolError is a detailed error which reports Kind to errors.Is.
type ProtocolError struct {
	Kind   error
	Reason string
}

func (e *ProtocolError) Error() string {
	return e.Kind.Error() + ": " + e.Reason
}

func (e *ProtocolError) Is(target error) bool {
	return target == e.Kind
}

// StreamFaultError wraps an I/O error of the underlying stream.
type StreamFaultError struct {
	Op  string
	Err error
}

func (e *StreamFaultError) Error() string {
	return ErrStreamFault.Error() + ": " + e.Op + ": " + e.Err.Error()
}

func (e *StreamFaultError) Is(target error) bool {
	return target == ErrStreamFault
}

func (e *StreamFaultError) Unwrap() error {
	return e.Err
}

// StreamFault wraps err as a StreamFaultError. It returns nil if err is nil
// and err unchanged if it already is a stream error.
func StreamFault(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStreamFault) || errors.Is(err, ErrStreamClosed) {
		return err
	}
	return &StreamFaultError{Op: op, Err: err}
}

// IsFrameError reports whether err is a frame level protocol violation which
// requires the connection to be failed.
func IsFrameError(err error) bool {
	return errors.Is(err, ErrTruncatedFrame) ||
		errors.Is(err, ErrInvalidFrame) ||
		errors.Is(err, ErrUnexpectedFirstFrame) ||
		errors.Is(err, ErrEncoding)
}
