// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package msutil

import (
	"bufio"
	"strings"

	ts "github.com/cmacro/textsocket"
)

// Negotiator reads an upgrade request and prepares the response for the
// server reachable at host:port. It must not write anything.
type Negotiator interface {
	Negotiate(br *bufio.Reader, host, port string) (ts.HandshakeRequest, ts.HandshakeResponse, error)
}

// DefaultNegotiator reads the request head with ts.ReadHandshakeRequest and
// answers it with ts.Negotiate.
type DefaultNegotiator struct{}

func (DefaultNegotiator) Negotiate(br *bufio.Reader, host, port string) (ts.HandshakeRequest, ts.HandshakeResponse, error) {
	req, err := ts.ReadHandshakeRequest(br)
	if err != nil {
		return req, ts.HandshakeResponse{}, err
	}
	resp, err := ts.Negotiate(req.Lines, host, port)
	return req, resp, err
}

// DebugNegotiator is a wrapper around a Negotiator. It tracks the I/O of a
// WebSocket handshake.
//
// Note that it must not be used in production applications that requires
// the handshake to be efficient.
type DebugNegotiator struct {
	// Negotiator does the work. Nil means DefaultNegotiator.
	Negotiator Negotiator

	// OnRequest and OnResponse are the callbacks that will be called with the
	// request head and the response head respectively. OnResponse is not
	// called if negotiation fails.
	OnRequest, OnResponse func([]byte)
}

func (d *DebugNegotiator) Negotiate(br *bufio.Reader, host, port string) (ts.HandshakeRequest, ts.HandshakeResponse, error) {
	n := d.Negotiator
	if n == nil {
		n = DefaultNegotiator{}
	}
	req, resp, err := n.Negotiate(br, host, port)
	if onRequest := d.OnRequest; onRequest != nil && len(req.Lines) > 0 {
		onRequest([]byte(strings.Join(req.Lines, "\r\n") + "\r\n\r\n"))
	}
	if onResponse := d.OnResponse; onResponse != nil && err == nil {
		onResponse(resp.Bytes())
	}
	return req, resp, err
}
