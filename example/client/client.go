// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	ts "github.com/cmacro/textsocket"
	"github.com/cmacro/textsocket/msutil"
)

var (
	addr     = flag.String("listen", "tcp://127.0.0.1:9001", "server addr")
	uri      = flag.String("uri", "/", "request uri")
	logLevel = flag.String("log", "DEBUG", "log level")
)

var mainLog ts.Logger

// readLines sends every stdin line until ".q" or end of input.
func readLines(ctx context.Context, c *msutil.Client) error {
	readlog := ts.Stdout("Read", *logLevel, true)
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		text := sc.Text()
		if text == ".q" {
			readlog.Info("closed.")
			return nil
		}
		readlog.Debug("do send:", text)
		if err := c.Send(text); err != nil {
			return err
		}
	}
	return sc.Err()
}

func main() {
	log.SetFlags(log.Lshortfile)
	flag.Parse()

	mainLog = ts.Stdout("Main", *logLevel, true)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c, err := msutil.Dial(ctx, *addr, *uri, ts.Stdout("Client", *logLevel, true))
	if err != nil {
		mainLog.Fatalf("dial %s: %v", *addr, err)
	}
	defer c.Close()

	go func() {
		defer cancel()
		for {
			text, err := c.Receive()
			if err != nil {
				if !errors.Is(err, ts.ErrStreamClosed) {
					mainLog.Error("receive", err)
				}
				return
			}
			mainLog.Info("read payload:", text)
		}
	}()

	go func() {
		defer cancel()
		if err := readLines(ctx, c); err != nil {
			mainLog.Error("send message", err)
		}
	}()

	<-ctx.Done()
	mainLog.Info("closed.")
}
