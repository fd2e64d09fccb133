// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package msutil

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/gobwas/pool/pbufio"

	ts "github.com/cmacro/textsocket"
)

// SessionState is the lifecycle state of a Session.
type SessionState int32

const (
	StateAwaitingHandshake SessionState = iota
	StateOpen
	StateClosed
	StateFaulted
)

func (s SessionState) String() string {
	switch s {
	case StateAwaitingHandshake:
		return "awaiting_handshake"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateFaulted:
		return "faulted"
	}
	return fmt.Sprintf("SessionState(%d)", int32(s))
}

// Terminal reports whether no further I/O happens in state s.
func (s SessionState) Terminal() bool {
	return s == StateClosed || s == StateFaulted
}

const defaultBufferSize = 4096

// Options configures sessions.
type Options struct {
	// Host and Port are advertised in the handshake response.
	Host string
	Port string

	// MaxFramePayload splits outbound messages. Zero means
	// ts.DefaultMaxFramePayload.
	MaxFramePayload int
	// MaxFrameSize limits the payload of an inbound frame. Zero means
	// ts.DefaultMaxFrameSize, a negative value means no limit.
	MaxFrameSize int64
	// MaxMessageSize limits a reassembled message. Zero means no limit.
	MaxMessageSize int64

	ReadBufferSize  int
	WriteBufferSize int

	// Negotiator performs the handshake. Nil means DefaultNegotiator.
	Negotiator Negotiator
	Metrics    ts.Metrics
}

// OptionsFromConfig maps the server configuration to session options.
func OptionsFromConfig(cfg ts.Config) Options {
	return Options{
		Host:            cfg.Host,
		Port:            cfg.Port,
		MaxFramePayload: cfg.MaxFramePayload,
		MaxFrameSize:    cfg.MaxFrameSize,
		MaxMessageSize:  cfg.MaxMessageSize,
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxFramePayload < 1 {
		o.MaxFramePayload = ts.DefaultMaxFramePayload
	}
	if o.MaxFrameSize == 0 {
		o.MaxFrameSize = ts.DefaultMaxFrameSize
	}
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = defaultBufferSize
	}
	if o.WriteBufferSize <= 0 {
		o.WriteBufferSize = defaultBufferSize
	}
	if o.Negotiator == nil {
		o.Negotiator = DefaultNegotiator{}
	}
	if o.Metrics == nil {
		o.Metrics = &ts.EmptyMetrics{}
	}
	return o
}

// Session serves one connection: handshake, then frames until the stream
// ends. A Session owns its stream; Run closes it.
type Session struct {
	id      string
	conn    net.Conn
	handler ts.SessionHandler
	log     ts.Logger
	opts    Options

	state     atomic.Int32
	closing   atomic.Bool
	closeOnce sync.Once

	// mu guards bw and serializes writers.
	mu sync.Mutex
	bw *bufio.Writer
	br *bufio.Reader
}

// NewSession returns a session for conn. Nothing is read until Run.
func NewSession(id string, conn net.Conn, handler ts.SessionHandler, log ts.Logger, opts Options) *Session {
	if log == nil {
		log = ts.Noop
	}
	return &Session{
		id:      id,
		conn:    conn,
		handler: handler,
		log:     log,
		opts:    opts.withDefaults(),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

// Run performs the handshake and then reads frames until the stream is
// closed, a protocol error occurs or ctx is done. It returns nil for a
// graceful close.
//
// Handshake errors are returned before any response byte is written, and
// the handler never sees such a session.
func (s *Session) Run(ctx context.Context) error {
	if s.State() != StateAwaitingHandshake {
		return ts.ErrStreamClosed
	}
	stop := context.AfterFunc(ctx, func() {
		s.log.Debug("context done, closing stream")
		s.closing.Store(true)
		s.closeStream()
	})
	defer stop()

	s.br = pbufio.GetReader(s.conn, s.opts.ReadBufferSize)
	s.mu.Lock()
	s.bw = pbufio.GetWriter(s.conn, s.opts.WriteBufferSize)
	s.mu.Unlock()

	if err := s.handshake(ctx); err != nil {
		st := StateFaulted
		if errors.Is(err, ts.ErrStreamClosed) {
			st = StateClosed
		}
		s.opts.Metrics.AddHandshakeFailed(ts.ErrorKind(err))
		s.finish(st)
		return err
	}

	if err := s.handler.OnOpen(s.id, s); err != nil {
		s.log.Info("session refused", err)
		_ = s.writeClose(ts.StatusPolicyViolation, "")
		s.finish(StateFaulted)
		return fmt.Errorf("open session: %w", err)
	}

	err := s.readLoop(ctx)
	if s.State() == StateOpen {
		if err == nil {
			s.finish(StateClosed)
		} else {
			s.finish(StateFaulted)
		}
	}
	s.handler.OnClose(s.id, err)
	return err
}

func (s *Session) handshake(ctx context.Context) error {
	host, port := s.opts.Host, s.opts.Port
	_, resp, err := s.opts.Negotiator.Negotiate(s.br, host, port)
	if err != nil {
		if ctx.Err() != nil {
			return ts.ErrStreamClosed
		}
		if errors.Is(err, ts.ErrMissingKey) || errors.Is(err, ts.ErrStreamClosed) ||
			errors.Is(err, ts.ErrStreamFault) {
			return err
		}
		return ts.StreamFault("read handshake", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err = resp.WriteTo(s.bw); err == nil {
		err = s.bw.Flush()
	}
	if err != nil {
		return ts.StreamFault("write handshake", err)
	}
	s.state.Store(int32(StateOpen))
	s.log.Debug("handshake done", resp.Location())
	return nil
}

func (s *Session) readLoop(ctx context.Context) error {
	fr := ts.FrameReader{
		Source:       s.br,
		State:        ts.StateServerSide,
		MaxFrameSize: max(s.opts.MaxFrameSize, 0),
	}
	asm := ts.Reassembler{MaxMessageSize: s.opts.MaxMessageSize}

	for {
		f, err := fr.ReadFrame()
		if err != nil {
			return s.readFailed(ctx, err)
		}
		if f.Header.OpCode.IsControl() {
			done, err := s.handleControl(f)
			if err != nil || done {
				return err
			}
			continue
		}

		msg, ok, err := asm.Push(f)
		if err != nil {
			return s.readFailed(ctx, err)
		}
		if !ok {
			continue
		}
		s.opts.Metrics.AddMessageReceived(len(msg.Text))
		if err = s.handler.OnMessage(s.id, msg.Text); err != nil {
			s.log.Warn("message handler", err)
			_ = s.writeClose(ts.StatusInternalServerError, "")
			return fmt.Errorf("handle message: %w", err)
		}
	}
}

// readFailed maps a read error to the session result. Frame errors are
// answered with a close frame; the stream is never resynchronized.
func (s *Session) readFailed(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil, s.closing.Load():
		return nil
	case errors.Is(err, io.EOF):
		s.log.Debug("peer closed stream")
		return nil
	case ts.IsFrameError(err):
		s.opts.Metrics.AddFrameError(ts.ErrorKind(err))
		s.log.Warn("frame error", err)
		if werr := s.writeClose(ts.StatusFor(err), ""); werr != nil {
			s.log.Debug("close frame not sent", werr)
		}
		return err
	}
	return ts.StreamFault("read frame", err)
}

// handleControl answers a control frame. It reports true when the session
// is finished.
func (s *Session) handleControl(f ts.Frame) (bool, error) {
	switch f.Header.OpCode {
	case ts.OpPing:
		return false, s.writeFrames(ts.NewPongFrame(f.Payload))
	case ts.OpPong:
		return false, nil
	case ts.OpClose:
		code, reason := ts.ParseCloseFrameData(f.Payload)
		s.log.Debugf("close frame received: %d %q", code, reason)
		var body []byte
		if !code.Empty() {
			body = ts.NewCloseFrameBody(code, "")
		}
		if err := s.writeFrames(ts.NewCloseFrame(body)); err != nil {
			s.log.Debug("close reply not sent", err)
		}
		s.finish(StateClosed)
		return true, nil
	}
	return false, ts.ErrUnsupportedOpCode
}

// Send encodes text and writes its frames. It is safe for concurrent use.
func (s *Session) Send(text string) error {
	frames, err := ts.Encode(text, s.opts.MaxFramePayload)
	if err != nil {
		return err
	}
	if err = s.writeFrames(frames...); err != nil {
		if errors.Is(err, ts.ErrStreamFault) {
			s.log.Error("send", err)
			s.closeStream()
		}
		return err
	}
	s.opts.Metrics.AddMessageSent(len(text))
	return nil
}

// Close sends a normal close frame and closes the stream. Run returns
// without error afterwards.
func (s *Session) Close() error {
	if s.State().Terminal() {
		return nil
	}
	s.closing.Store(true)
	err := s.writeClose(ts.StatusNormalClosure, "")
	s.closeStream()
	if errors.Is(err, ts.ErrStreamClosed) {
		return nil
	}
	return err
}

func (s *Session) writeClose(code ts.StatusCode, reason string) error {
	return s.writeFrames(ts.NewCloseFrame(ts.NewCloseFrameBody(code, reason)))
}

func (s *Session) writeFrames(frames ...ts.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bw == nil || s.State() != StateOpen {
		return ts.ErrStreamClosed
	}
	for _, f := range frames {
		if err := ts.WriteFrame(s.bw, f); err != nil {
			return ts.StreamFault("write frame", err)
		}
	}
	if err := s.bw.Flush(); err != nil {
		return ts.StreamFault("flush", err)
	}
	return nil
}

// finish moves the session to a terminal state, closes the stream and
// returns the pooled buffers. Only the first call has an effect.
func (s *Session) finish(st SessionState) {
	s.mu.Lock()
	if s.State().Terminal() {
		s.mu.Unlock()
		return
	}
	s.state.Store(int32(st))
	if s.bw != nil {
		pbufio.PutWriter(s.bw)
		s.bw = nil
	}
	s.mu.Unlock()

	s.closeStream()
	if s.br != nil {
		pbufio.PutReader(s.br)
		s.br = nil
	}
	s.opts.Metrics.AddSessionClosed(st.String())
}

func (s *Session) closeStream() {
	s.closeOnce.Do(func() {
		if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.log.Debug("close stream", err)
		}
	})
}
