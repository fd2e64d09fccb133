// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

// Package wsutil keeps track of open sessions so that applications can
// address them by id.
package wsutil

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	ts "github.com/cmacro/textsocket"
)

// ErrUnknownSession is returned when no open session has the given id.
var ErrUnknownSession = errors.New("wsutil: unknown session")

// MessageFunc handles a message of session id. The Container passed in can
// be used to reply or broadcast.
type MessageFunc func(c *Container, id string, text string) error

func NewContainer(onMessage MessageFunc, log ts.Logger) *Container {
	if log == nil {
		log = ts.Noop
	}
	return &Container{
		log:       log,
		onMessage: onMessage,
		items:     make(map[string]ts.Sender),
	}
}

// Container is a ts.SessionHandler which registers every open session.
type Container struct {
	log       ts.Logger
	onMessage MessageFunc

	mu    sync.RWMutex
	items map[string]ts.Sender
}

func (c *Container) OnOpen(id string, s ts.Sender) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; ok {
		return fmt.Errorf("wsutil: session %s is already registered", id)
	}
	c.items[id] = s
	c.log.Debug("open", id)
	return nil
}

func (c *Container) OnMessage(id string, text string) error {
	if c.onMessage == nil {
		return nil
	}
	return c.onMessage(c, id, text)
}

func (c *Container) OnClose(id string, err error) {
	c.mu.Lock()
	delete(c.items, id)
	c.mu.Unlock()
	if err != nil {
		c.log.Info("close", id, err)
	} else {
		c.log.Debug("close", id)
	}
}

func (c *Container) get(id string) (ts.Sender, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.items[id]
	return s, ok
}

// Send sends text to session id.
func (c *Container) Send(id string, text string) error {
	s, ok := c.get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return s.Send(text)
}

// Broadcast sends text to every open session and returns the joined errors
// of the sessions which failed.
func (c *Container) Broadcast(text string) error {
	var errs []error
	for id, s := range c.snapshot() {
		if err := s.Send(text); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes session id.
func (c *Container) Close(id string) error {
	s, ok := c.get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return s.Close()
}

// CloseAll closes every open session.
func (c *Container) CloseAll() {
	for id, s := range c.snapshot() {
		if err := s.Close(); err != nil {
			c.log.Debug("close", id, err)
		}
	}
}

// Len returns the number of open sessions.
func (c *Container) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// IDs returns the ids of open sessions in sorted order.
func (c *Container) IDs() []string {
	c.mu.RLock()
	ids := make([]string, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	c.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (c *Container) snapshot() map[string]ts.Sender {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m := make(map[string]ts.Sender, len(c.items))
	for id, s := range c.items {
		m[id] = s
	}
	return m
}
