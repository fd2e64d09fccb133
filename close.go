// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package textsocket

import (
	"encoding/binary"
	"errors"
)

// StatusCode represents the encoded reason for closure of websocket
// connection.
//
// See https://tools.ietf.org/html/rfc6455#section-7.4
type StatusCode uint16

// Status codes defined by RFC 6455.
const (
	StatusNormalClosure           StatusCode = 1000
	StatusGoingAway               StatusCode = 1001
	StatusProtocolError           StatusCode = 1002
	StatusUnsupportedData         StatusCode = 1003
	StatusNoMeaningYet            StatusCode = 1004
	StatusNoStatusRcvd            StatusCode = 1005
	StatusAbnormalClosure         StatusCode = 1006
	StatusInvalidFramePayloadData StatusCode = 1007
	StatusPolicyViolation         StatusCode = 1008
	StatusMessageTooBig           StatusCode = 1009
	StatusMandatoryExt            StatusCode = 1010
	StatusInternalServerError     StatusCode = 1011
)

// Empty reports whether the code is empty.
// Empty code has no any meaning neither app level codes nor other.
// This method is useful just to check that code is golang default value 0.
func (s StatusCode) Empty() bool {
	return s == 0
}

// StatusFor returns the close status to send when failing a connection
// because of err.
func StatusFor(err error) StatusCode {
	switch {
	case err == nil:
		return StatusNormalClosure
	case errors.Is(err, ErrEncoding):
		return StatusInvalidFramePayloadData
	case errors.Is(err, ErrMessageTooLarge), errors.Is(err, ErrFrameTooLarge):
		return StatusMessageTooBig
	case errors.Is(err, ErrUnsupportedOpCode):
		return StatusUnsupportedData
	case IsFrameError(err):
		return StatusProtocolError
	}
	return StatusInternalServerError
}

// NewCloseFrameBody encodes a closure code and a reason into a binary
// representation.
//
// It returns slice which is at most MaxControlFramePayloadSize bytes length.
// If the reason is too big it will be cropped to fit the control frame limit.
func NewCloseFrameBody(code StatusCode, reason string) []byte {
	n := min(2+len(reason), MaxControlFramePayloadSize)
	p := make([]byte, n)
	binary.BigEndian.PutUint16(p, uint16(code))
	copy(p[2:], reason)
	return p
}

// ParseCloseFrameData parses close frame status code and closure reason if
// any provided. If there is no status code in the payload the empty status
// code is returned (code.Empty()) with empty string as a reason.
func ParseCloseFrameData(payload []byte) (code StatusCode, reason string) {
	if len(payload) < 2 {
		// We returning empty StatusCode here, preventing the situation
		// when endpoint really sent code 1005 and we should return ProtocolError on that.
		return
	}
	code = StatusCode(binary.BigEndian.Uint16(payload))
	reason = string(payload[2:])
	return
}
