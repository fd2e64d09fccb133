// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package msutil

import (
	"context"
	"errors"
	"net"

	"github.com/google/uuid"

	ts "github.com/cmacro/textsocket"
)

func NewConnecter(handler ts.SessionHandler, log ts.Logger, opts Options) *Connecter {
	if log == nil {
		log = ts.Noop
	}
	return &Connecter{
		log:     log,
		handler: handler,
		opts:    opts,
	}
}

// Connecter is a ts.ConnectHandler which runs a Session for every
// connection.
type Connecter struct {
	log     ts.Logger
	handler ts.SessionHandler
	opts    Options
}

func (c *Connecter) Run(ctx context.Context, conn net.Conn) {
	id := uuid.NewString()
	opts := c.opts
	if opts.Host == "" || opts.Port == "" {
		host, port := localHostPort(conn)
		if opts.Host == "" {
			opts.Host = host
		}
		if opts.Port == "" {
			opts.Port = port
		}
	}

	s := NewSession(id, conn, c.handler, c.log.Sub(id), opts)
	err := s.Run(ctx)
	switch {
	case err == nil:
		c.log.Info("closed", id)
	case errors.Is(err, ts.ErrStreamClosed):
		c.log.Debug("closed before handshake", id)
	case errors.Is(err, ts.ErrMissingKey):
		c.log.Warn("handshake refused", id, err)
	default:
		c.log.Error("session", id, s.State(), err)
	}
}

// localHostPort returns the address the peer reached. Non-IP addresses
// resolve to "localhost" with an empty port.
func localHostPort(conn net.Conn) (string, string) {
	addr := conn.LocalAddr()
	if addr == nil {
		return "localhost", ""
	}
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "localhost", ""
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		host = "localhost"
	}
	return host, port
}
