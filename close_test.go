// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package textsocket

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	for _, test := range []struct {
		err  error
		code StatusCode
	}{
		{nil, StatusNormalClosure},
		{ErrEncoding, StatusInvalidFramePayloadData},
		{ErrMessageTooLarge, StatusMessageTooBig},
		{ErrFrameTooLarge, StatusMessageTooBig},
		{ErrUnsupportedOpCode, StatusUnsupportedData},
		{ErrTruncatedFrame, StatusProtocolError},
		{ErrUnmasked, StatusProtocolError},
		{ErrUnexpectedFirstFrame, StatusProtocolError},
		{StreamFault("read", errors.New("boom")), StatusInternalServerError},
	} {
		assert.Equal(t, test.code, StatusFor(test.err), "%v", test.err)
	}
}

func TestCloseFrameBody(t *testing.T) {
	body := NewCloseFrameBody(StatusGoingAway, "bye")
	assert.Equal(t, []byte{0x03, 0xe9, 'b', 'y', 'e'}, body)

	code, reason := ParseCloseFrameData(body)
	assert.Equal(t, StatusGoingAway, code)
	assert.Equal(t, "bye", reason)

	long := NewCloseFrameBody(StatusNormalClosure, strings.Repeat("r", 200))
	assert.Len(t, long, MaxControlFramePayloadSize)

	code, reason = ParseCloseFrameData(nil)
	assert.True(t, code.Empty())
	assert.Empty(t, reason)
}
