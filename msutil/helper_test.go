// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package msutil

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ts "github.com/cmacro/textsocket"
)

const sampleKey = "dGhlIHNhbXBsZSBub25jZQ=="

const sampleRequest = "GET /chat HTTP/1.1\r\n" +
	"Host: server.example.com\r\n" +
	"Upgrade: websocket\r\n" +
	"Connection: Upgrade\r\n" +
	"Sec-WebSocket-Key: " + sampleKey + "\r\n" +
	"Sec-WebSocket-Version: 13\r\n" +
	"\r\n"

// recorder is a ts.SessionHandler which keeps what it was told.
type recorder struct {
	echo    bool
	openErr error

	mu       sync.Mutex
	opened   []string
	sender   ts.Sender
	messages []string
	ready    chan struct{}
	closed   chan error
}

func newRecorder(echo bool) *recorder {
	return &recorder{echo: echo, ready: make(chan struct{}), closed: make(chan error, 1)}
}

func (r *recorder) OnOpen(id string, s ts.Sender) error {
	if r.openErr != nil {
		return r.openErr
	}
	r.mu.Lock()
	r.opened = append(r.opened, id)
	r.sender = s
	r.mu.Unlock()
	close(r.ready)
	return nil
}

func (r *recorder) OnMessage(id string, text string) error {
	r.mu.Lock()
	r.messages = append(r.messages, text)
	s := r.sender
	r.mu.Unlock()
	if r.echo {
		return s.Send("recv " + text)
	}
	return nil
}

func (r *recorder) OnClose(id string, err error) {
	r.closed <- err
}

// Sender waits for OnOpen and returns the sender it got.
func (r *recorder) Sender(t *testing.T) ts.Sender {
	t.Helper()
	select {
	case <-r.ready:
	case <-time.After(5 * time.Second):
		t.Fatal("OnOpen was not called")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sender
}

func (r *recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

// pipeSession runs a session on one end of a net.Pipe. The test plays the
// client on conn.
type pipeSession struct {
	s    *Session
	conn net.Conn
	br   *bufio.Reader
	done chan error
	rec  *recorder
}

func startSession(t *testing.T, ctx context.Context, rec *recorder, opts Options) *pipeSession {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { client.Close() })
	if opts.Host == "" {
		opts.Host, opts.Port = "server.example.com", "9001"
	}
	ps := &pipeSession{
		s:    NewSession("test", server, rec, ts.Noop, opts),
		conn: client,
		br:   bufio.NewReader(client),
		done: make(chan error, 1),
		rec:  rec,
	}
	go func() { ps.done <- ps.s.Run(ctx) }()
	return ps
}

// handshake sends sampleRequest and reads the response head.
func (ps *pipeSession) handshake(t *testing.T) ts.HandshakeRequest {
	t.Helper()
	_, err := io.WriteString(ps.conn, sampleRequest)
	require.NoError(t, err)
	head, err := ts.ReadHandshakeRequest(ps.br)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(head.RequestLine, "HTTP/1.1 101 "), head.RequestLine)
	return head
}

func (ps *pipeSession) write(t *testing.T, frames ...ts.Frame) {
	t.Helper()
	for _, f := range frames {
		require.NoError(t, ts.WriteFrame(ps.conn, ts.MaskFrame(f)))
	}
}

func (ps *pipeSession) read(t *testing.T) ts.Frame {
	t.Helper()
	fr := ts.FrameReader{Source: ps.br, State: ts.StateClientSide}
	f, err := fr.ReadFrame()
	require.NoError(t, err)
	return f
}

// readText reads frames until a complete text message.
func (ps *pipeSession) readText(t *testing.T) string {
	t.Helper()
	var r ts.Reassembler
	for {
		msg, ok, err := r.Push(ps.read(t))
		require.NoError(t, err)
		if ok {
			return msg.Text
		}
	}
}

func (ps *pipeSession) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-ps.done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
	}
	return nil
}

func (ps *pipeSession) waitClosed(t *testing.T) error {
	t.Helper()
	select {
	case err := <-ps.rec.closed:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("OnClose was not called")
	}
	return nil
}
