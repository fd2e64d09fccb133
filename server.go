// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package textsocket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

func NewServer(addr string, connhandler ConnectHandler, log Logger) *Server {
	if log == nil {
		log = Noop
	}
	return &Server{
		addr:        addr,
		Logger:      log,
		connHandler: connhandler,
		metrics:     &EmptyMetrics{},
		conns:       make(map[net.Conn]struct{}),
	}
}

// Server accepts connections and runs its ConnectHandler for each one in a
// separate goroutine.
type Server struct {
	Logger
	addr        string
	connHandler ConnectHandler
	metrics     Metrics

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	shutdown bool
}

// SetMetrics replaces the metrics sink. It must be called before Run.
func (s *Server) SetMetrics(m Metrics) {
	if m == nil {
		m = &EmptyMetrics{}
	}
	s.metrics = m
}

type Addr struct {
	Network string
	Address string
}

func (u *Addr) Data() (n string, a string) {
	return u.Network, u.Address
}

func (u *Addr) String() string {
	return u.Network + "://" + u.Address
}

// ParserAddr splits an address like "tcp://localhost:9001" or
// "unix:///tmp/ts.sock" into network and address parts.
func ParserAddr(a string) (*Addr, error) {
	network, address, ok := strings.Cut(a, "://")
	if !ok || network == "" {
		return nil, fmt.Errorf("textsocket: address %q has no network scheme", a)
	}
	return &Addr{Network: network, Address: address}, nil
}

func clearEnvConnect(scheme, path string) error {
	if scheme == "unix" {
		err := os.Remove(path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Run listens on the server address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	u, err := ParserAddr(s.addr)
	if err != nil {
		s.Error("failed addr parser ", s.addr, err)
		return err
	}
	if err := clearEnvConnect(u.Network, u.Address); err != nil {
		s.Error("Error removing socket file", err)
		return err
	}

	listener, err := net.Listen(u.Network, u.Address)
	if err != nil {
		s.Error("failed net listen ", s.addr, err)
		return err
	}
	s.Info("listening :", s.addr)
	defer func() { _ = clearEnvConnect(u.Network, u.Address) }()

	err = s.Serve(ctx, listener)
	s.Info("Server closed", s.addr)
	return err
}

// Serve accepts connections on ln until ctx is done or ln fails. Cancelling
// ctx closes ln and every live connection. Serve returns after all
// connection handlers have returned.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.shutdown = false
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.Error("listener closed", err)
		}
		s.closeConns()
	})
	defer stop()

	var wg sync.WaitGroup
	err := s.handleAccept(ctx, ln, &wg)
	cancel()
	wg.Wait()
	s.Info("listener closed.")
	return err
}

func (s *Server) handleAccept(ctx context.Context, ln net.Listener, wg *sync.WaitGroup) error {
	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.Info("Accept closed.")
				return nil
			}
			var ne net.Error
			if !errors.As(err, &ne) || !ne.Timeout() {
				s.Warn("handle accept failure", err)
				return err
			}
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay = min(2*delay, time.Second)
			}
			s.Warnf("accept error: %v; retrying in %v", err, delay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}
		delay = 0

		if !s.track(conn) {
			_ = conn.Close()
			continue
		}
		s.Info("conn open", conn.RemoteAddr().String())
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	s.metrics.AddConnection()
	defer func() {
		s.untrack(conn)
		s.metrics.RemoveConnection()
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.Error("conn close error.", err)
		} else {
			s.Info("conn close", conn.RemoteAddr().String())
		}
	}()
	s.connHandler.Run(ctx, conn)
}

// track registers conn. It returns false if the server is shutting down.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// Conns returns the number of live connections.
func (s *Server) Conns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) closeConns() {
	s.mu.Lock()
	s.shutdown = true
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}
