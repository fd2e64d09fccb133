// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package textsocket

import (
	"context"
	"net"
)

// ConnectHandler serves one accepted connection. Run blocks until the
// connection is done; the caller closes conn afterwards.
type ConnectHandler interface {
	Run(ctx context.Context, conn net.Conn)
}

// Sender is the outbound side of an open session.
type Sender interface {
	// Send encodes text into frames and writes them. Safe for concurrent use.
	Send(text string) error
	// Close sends a normal close frame and closes the stream.
	Close() error
}

// SessionHandler receives the events of every session served by a
// connecter.
type SessionHandler interface {
	// OnOpen is called after a successful handshake. Returning an error
	// closes the session before any frame is read.
	OnOpen(id string, s Sender) error
	// OnMessage is called for every reassembled text message, in order.
	// Returning an error closes the session.
	OnMessage(id string, text string) error
	// OnClose is called once for every session OnOpen accepted. err is nil
	// for a graceful close.
	OnClose(id string, err error)
}

// SessionHandlerFuncs adapts plain functions to SessionHandler. Nil fields
// are skipped.
type SessionHandlerFuncs struct {
	Open    func(id string, s Sender) error
	Message func(id string, text string) error
	Closed  func(id string, err error)
}

func (h SessionHandlerFuncs) OnOpen(id string, s Sender) error {
	if h.Open == nil {
		return nil
	}
	return h.Open(id, s)
}

func (h SessionHandlerFuncs) OnMessage(id string, text string) error {
	if h.Message == nil {
		return nil
	}
	return h.Message(id, text)
}

func (h SessionHandlerFuncs) OnClose(id string, err error) {
	if h.Closed != nil {
		h.Closed(id, err)
	}
}
