// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package textsocket

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wire encodes message into masked client frames, one buffer per frame.
func wire(t testing.TB, message string, max int) [][]byte {
	frames, err := Encode(message, max)
	require.NoError(t, err)
	raws := make([][]byte, len(frames))
	for i, f := range frames {
		raws[i] = MustCompileFrame(MaskFrame(f))
	}
	return raws
}

func collect(seq func(func(Message, error) bool)) (msgs []string, errs []error) {
	for m, err := range seq {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		msgs = append(msgs, m.Text)
	}
	return
}

func TestRoundTrip(t *testing.T) {
	messages := []string{
		"",
		"a",
		"hello world",
		"😀🎉 emoji",
		"日本語のテキスト",
		strings.Repeat("x", 125),
		strings.Repeat("y", 126),
		strings.Repeat("z", 65536),
	}
	for _, max := range []int{1, 3, 125, 4096, 1 << 20} {
		for i, msg := range messages {
			t.Run(fmt.Sprintf("%d/#%d", max, i), func(t *testing.T) {
				msgs, errs := collect(Reassemble(Frames(wire(t, msg, max)...)))
				assert.Empty(t, errs)
				require.Len(t, msgs, 1)
				assert.Equal(t, msg, msgs[0])
			})
		}
	}
}

func TestRoundTripSingleBuffer(t *testing.T) {
	var raw []byte
	for _, msg := range []string{"one", "two", "three"} {
		for _, b := range wire(t, msg, 2) {
			raw = append(raw, b...)
		}
	}
	msgs, errs := collect(Reassemble(Frames(raw)))
	assert.Empty(t, errs)
	assert.Equal(t, []string{"one", "two", "three"}, msgs)
}

func TestReassembleSkipsControl(t *testing.T) {
	raws := [][]byte{
		MustCompileFrame(MaskFrame(NewFrame(OpText, false, []byte("foo")))),
		MustCompileFrame(MaskFrame(NewPingFrame([]byte("ping")))),
		MustCompileFrame(MaskFrame(NewFrame(OpContinuation, true, []byte("bar")))),
	}
	msgs, errs := collect(Reassemble(Frames(raws...)))
	assert.Empty(t, errs)
	assert.Equal(t, []string{"foobar"}, msgs)
}

func TestReassembleUnexpectedFirstFrame(t *testing.T) {
	for _, test := range []struct {
		name   string
		frames []Frame
		msgs   []string
	}{
		{
			name: "final",
			frames: []Frame{
				NewFrame(OpText, false, []byte("ab")),
				NewFrame(OpText, true, []byte("cd")),
				NewFrame(OpText, true, []byte("ef")),
			},
			msgs: []string{"cd", "ef"},
		},
		{
			name: "fragmented",
			frames: []Frame{
				NewFrame(OpText, false, []byte("a")),
				NewFrame(OpText, false, []byte("b")),
				NewFrame(OpContinuation, true, []byte("c")),
				NewFrame(OpText, true, []byte("next")),
			},
			msgs: []string{"bc", "next"},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			raws := make([][]byte, 0, len(test.frames))
			for _, f := range test.frames {
				raws = append(raws, MustCompileFrame(MaskFrame(f)))
			}
			msgs, errs := collect(Reassemble(Frames(raws...)))
			// The partial message is dropped and the offending frame
			// starts the next one.
			require.Len(t, errs, 1)
			assert.ErrorIs(t, errs[0], ErrUnexpectedFirstFrame)
			assert.Equal(t, test.msgs, msgs)
		})
	}
}

func TestReassemblerPushUnexpectedFirstFrame(t *testing.T) {
	var r Reassembler
	_, _, err := r.Push(NewFrame(OpText, false, []byte("ab")))
	require.NoError(t, err)

	msg, ok, err := r.Push(NewFrame(OpText, true, []byte("cd")))
	assert.ErrorIs(t, err, ErrUnexpectedFirstFrame)
	assert.True(t, ok)
	assert.Equal(t, "cd", msg.Text)
	assert.False(t, r.Open())

	_, _, err = r.Push(NewFrame(OpText, false, []byte("x")))
	require.NoError(t, err)
	_, ok, err = r.Push(NewFrame(OpText, true, []byte{0xff}))
	assert.ErrorIs(t, err, ErrUnexpectedFirstFrame)
	assert.ErrorIs(t, err, ErrEncoding)
	assert.False(t, ok)
}

func TestReassemblerPush(t *testing.T) {
	var r Reassembler

	_, ok, err := r.Push(NewFrame(OpContinuation, true, []byte("x")))
	assert.ErrorIs(t, err, ErrInvalidFrame)
	assert.ErrorIs(t, err, ErrUnexpectedContinuation)
	assert.False(t, ok)

	_, ok, err = r.Push(NewFrame(OpText, false, []byte("he")))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, r.Open())
	assert.Equal(t, 2, r.Buffered())

	_, _, err = r.Push(NewPingFrame(nil))
	assert.ErrorIs(t, err, ErrInvalidFrame)

	msg, ok, err := r.Push(NewFrame(OpContinuation, true, []byte("llo")))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", msg.Text)
	assert.False(t, r.Open())
	assert.Zero(t, r.Buffered())
}

func TestReassemblerEncoding(t *testing.T) {
	var r Reassembler
	_, _, err := r.Push(NewFrame(OpText, true, []byte{0xff, 'a'}))
	assert.ErrorIs(t, err, ErrEncoding)

	// A sequence split across frames is valid once complete.
	p := []byte("😀")
	_, _, err = r.Push(NewFrame(OpText, false, p[:1]))
	require.NoError(t, err)
	msg, ok, err := r.Push(NewFrame(OpContinuation, true, p[1:]))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "😀", msg.Text)
}

func TestReassemblerMaxMessageSize(t *testing.T) {
	r := Reassembler{MaxMessageSize: 4}
	_, _, err := r.Push(NewFrame(OpText, false, []byte("abc")))
	require.NoError(t, err)
	_, _, err = r.Push(NewFrame(OpContinuation, true, []byte("de")))
	assert.ErrorIs(t, err, ErrMessageTooLarge)
	assert.False(t, r.Open())

	msg, ok, err := r.Push(NewFrame(OpText, true, []byte("abcd")))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abcd", msg.Text)
}

func TestFramesDecodeError(t *testing.T) {
	good := MustCompileFrame(MaskFrame(NewTextFrame([]byte("ok"))))
	bad := []byte{0x81, 0x05, 'h', 'e', 'l', 'l', 'o'}
	msgs, errs := collect(Reassemble(Frames(bad, good)))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrInvalidFrame)
	assert.Equal(t, []string{"ok"}, msgs)
}

func TestReassembleStop(t *testing.T) {
	var raws [][]byte
	for i := 0; i < 5; i++ {
		raws = append(raws, wire(t, fmt.Sprint(i), 10)...)
	}
	var got []string
	for m, err := range Reassemble(Frames(raws...)) {
		require.NoError(t, err)
		got = append(got, m.Text)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"0", "1"}, got)
}
