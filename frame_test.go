// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package textsocket

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	for _, test := range []struct {
		name     string
		message  string
		max      int
		payloads []string
		err      error
	}{
		{name: "empty", message: "", max: 10, payloads: []string{""}},
		{name: "single", message: "hello", max: 10, payloads: []string{"hello"}},
		{name: "exact", message: "hello", max: 5, payloads: []string{"hello"}},
		{name: "split", message: "hello", max: 2, payloads: []string{"he", "ll", "o"}},
		{name: "bytes", message: "abc", max: 1, payloads: []string{"a", "b", "c"}},
		{name: "max int", message: "hi", max: math.MaxInt, payloads: []string{"hi"}},
		{name: "max int empty", message: "", max: math.MaxInt, payloads: []string{""}},
		{name: "zero max", message: "hello", max: 0, err: ErrInvalidFrameSize},
		{name: "negative max", message: "hello", max: -3, err: ErrInvalidFrameSize},
		{name: "invalid utf8", message: "ab\xff", max: 10, err: ErrEncoding},
	} {
		t.Run(test.name, func(t *testing.T) {
			frames, err := Encode(test.message, test.max)
			if test.err != nil {
				assert.ErrorIs(t, err, test.err)
				assert.Nil(t, frames)
				return
			}
			require.NoError(t, err)
			require.Len(t, frames, len(test.payloads))
			for i, f := range frames {
				exp := OpContinuation
				if i == 0 {
					exp = OpText
				}
				assert.Equal(t, exp, f.Header.OpCode, "frame #%d", i)
				assert.Equal(t, i == len(frames)-1, f.Header.Fin, "frame #%d", i)
				assert.False(t, f.Header.Masked)
				assert.Equal(t, test.payloads[i], string(f.Payload))
				assert.Equal(t, int64(len(f.Payload)), f.Header.Length)
			}
		})
	}
}

func TestEncodeCopiesMessage(t *testing.T) {
	msg := strings.Repeat("x", 8)
	frames, err := Encode(msg, 4)
	require.NoError(t, err)
	MaskFrameInPlace(frames[0])
	assert.Equal(t, "xxxxxxxx", msg)
}

func TestOpCode(t *testing.T) {
	assert.True(t, OpPing.IsControl())
	assert.True(t, OpClose.IsControl())
	assert.False(t, OpText.IsControl())
	assert.True(t, OpContinuation.IsData())
	assert.True(t, OpCode(0x3).IsReserved())
	assert.True(t, OpCode(0xb).IsReserved())
	assert.False(t, OpPong.IsReserved())
	assert.Equal(t, "text", OpText.String())
	assert.Equal(t, "opcode(0x3)", OpCode(0x3).String())
}

func TestHeaderFirstFinal(t *testing.T) {
	assert.True(t, NewTextFrame(nil).Header.IsFirst())
	assert.True(t, NewTextFrame(nil).Header.IsFinal())
	assert.False(t, NewFrame(OpContinuation, false, nil).Header.IsFirst())
	assert.False(t, NewFrame(OpContinuation, false, nil).Header.IsFinal())
}

func TestMaskFrame(t *testing.T) {
	payload := []byte("Hello")
	f := MaskFrameWith(NewTextFrame(payload), [4]byte{0x37, 0xfa, 0x21, 0x3d})
	assert.True(t, f.Header.Masked)
	assert.Equal(t, []byte{0x7f, 0x9f, 0x4d, 0x51, 0x58}, f.Payload)
	assert.Equal(t, []byte("Hello"), payload)
}
