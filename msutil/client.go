// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package msutil

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/gbrlsnchs/uuid"
	"github.com/gobwas/httphead"

	ts "github.com/cmacro/textsocket"
)

var (
	ErrHandshakeStatus = errors.New("msutil: server did not answer with status 101")
	ErrAcceptMismatch  = errors.New("msutil: Sec-WebSocket-Accept does not match the key")
)

// Client is the client side of a text session. Outbound frames are masked.
type Client struct {
	conn net.Conn
	log  ts.Logger

	// MaxFramePayload splits outbound messages.
	MaxFramePayload int

	mu sync.Mutex
	fr ts.FrameReader
	rs ts.Reassembler

	closeOnce sync.Once
}

// Dial connects to addr, e.g. "tcp://localhost:9001", and performs the
// handshake for uri.
func Dial(ctx context.Context, addr, uri string, log ts.Logger) (*Client, error) {
	u, err := ts.ParserAddr(addr)
	if err != nil {
		return nil, err
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, u.Network, u.Address)
	if err != nil {
		return nil, err
	}
	host := u.Address
	if u.Network == "unix" {
		host = "localhost"
	}
	c, err := NewClient(ctx, conn, host, uri, log)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

// NewClient performs the handshake over conn. On error conn is left open.
func NewClient(ctx context.Context, conn net.Conn, host, uri string, log ts.Logger) (*Client, error) {
	if log == nil {
		log = ts.Noop
	}
	if uri == "" {
		uri = "/"
	}
	guid, err := uuid.GenerateV4(nil)
	if err != nil {
		return nil, err
	}
	key := base64.StdEncoding.EncodeToString(guid[:])

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	var sb strings.Builder
	sb.WriteString("GET " + uri + " HTTP/1.1\r\n")
	sb.WriteString("Host: " + host + "\r\n")
	sb.WriteString("Upgrade: websocket\r\n")
	sb.WriteString("Connection: Upgrade\r\n")
	sb.WriteString("Sec-WebSocket-Key: " + key + "\r\n")
	sb.WriteString("Sec-WebSocket-Version: 13\r\n\r\n")
	if _, err = io.WriteString(conn, sb.String()); err != nil {
		return nil, ts.StreamFault("write handshake", err)
	}

	br := bufio.NewReaderSize(conn, defaultBufferSize)
	head, err := ts.ReadHandshakeRequest(br)
	if err == nil {
		err = checkResponse(head, key)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	log.Debug("handshake done", head.RequestLine)

	return &Client{
		conn:            conn,
		log:             log,
		MaxFramePayload: ts.DefaultMaxFramePayload,
		fr:              ts.FrameReader{Source: br, State: ts.StateClientSide, MaxFrameSize: ts.DefaultMaxFrameSize},
	}, nil
}

func checkResponse(head ts.HandshakeRequest, key string) error {
	rl, ok := httphead.ParseResponseLine([]byte(head.RequestLine))
	if !ok || rl.Status != 101 {
		return fmt.Errorf("%w: %q", ErrHandshakeStatus, head.RequestLine)
	}
	accept, ok := ts.FindHeader(head.Lines[1:], "Sec-WebSocket-Accept")
	if !ok || !ts.CheckAcceptKey(key, accept) {
		return ErrAcceptMismatch
	}
	return nil
}

// Send writes text as masked frames.
func (c *Client) Send(text string) error {
	frames, err := ts.Encode(text, c.MaxFramePayload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range frames {
		if err = ts.WriteMaskedFrame(c.conn, f, ts.NewMask()); err != nil {
			return ts.StreamFault("write frame", err)
		}
	}
	return nil
}

// Receive blocks until the next text message arrives. Pings are answered;
// a close frame ends the session with ts.ErrStreamClosed.
func (c *Client) Receive() (string, error) {
	for {
		f, err := c.fr.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return "", ts.ErrStreamClosed
			}
			return "", err
		}
		switch f.Header.OpCode {
		case ts.OpPing:
			if err = c.writeControl(ts.NewPongFrame(f.Payload)); err != nil {
				return "", err
			}
			continue
		case ts.OpPong:
			continue
		case ts.OpClose:
			code, reason := ts.ParseCloseFrameData(f.Payload)
			c.log.Debugf("server closed: %d %q", code, reason)
			_ = c.writeControl(ts.NewCloseFrame(f.Payload))
			return "", fmt.Errorf("%w: status %d", ts.ErrStreamClosed, code)
		}
		msg, ok, err := c.rs.Push(f)
		if err != nil {
			return "", err
		}
		if ok {
			return msg.Text, nil
		}
	}
}

func (c *Client) writeControl(f ts.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ts.WriteMaskedFrame(c.conn, f, ts.NewMask())
}

// Ping sends a ping frame with payload p.
func (c *Client) Ping(p []byte) error {
	return c.writeControl(ts.NewPingFrame(p))
}

// Close sends a normal close frame and closes the connection.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.writeControl(ts.NewCloseFrame(ts.NewCloseFrameBody(ts.StatusNormalClosure, "")))
		err = c.conn.Close()
	})
	return err
}
