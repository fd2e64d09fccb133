// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	ts "github.com/cmacro/textsocket"
	"github.com/cmacro/textsocket/msutil"
	"github.com/cmacro/textsocket/wsutil"
)

var (
	configPath = flag.String("config", "", "yaml config file")
	addr       = flag.String("listen", "", "addr to listen, overrides the config file")
	metrics    = flag.String("metrics", "", "prometheus listen addr, overrides the config file")
	debug      = flag.Bool("debug", false, "log handshake bytes")
)

var mainLog ts.Logger

func runSysSignal(ctx context.Context, cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			mainLog.Info("signal", s)
			cancel()
		case <-ctx.Done():
		}
	}()
}

func loadConfig() ts.Config {
	cfg := ts.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = ts.LoadConfig(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	if *addr != "" {
		cfg.Listen = *addr
	}
	if *metrics != "" {
		cfg.MetricsListen = *metrics
	}
	if *debug {
		cfg.Debug = true
		cfg.LogLevel = ts.LevelDebug.String()
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	return cfg
}

// handleMessage echoes text back. Messages starting with "all " are
// broadcast to every session.
func handleMessage(c *wsutil.Container, id string, text string) error {
	if rest, ok := strings.CutPrefix(text, "all "); ok {
		return c.Broadcast(id + ": " + rest)
	}
	return c.Send(id, "recv "+text)
}

func main() {
	log.SetFlags(log.Lshortfile)
	flag.Parse()
	cfg := loadConfig()

	mainLog = ts.Stdout("Main", cfg.LogLevel, cfg.LogColor)
	svrLog := ts.Stdout("Server", cfg.LogLevel, cfg.LogColor)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := ts.NewPrometheus(reg)

	opts := msutil.OptionsFromConfig(cfg)
	opts.Metrics = m
	if cfg.Debug {
		hsLog := svrLog.Sub("Handshake")
		opts.Negotiator = &msutil.DebugNegotiator{
			OnRequest:  func(b []byte) { hsLog.Debugf("request:\n%s", b) },
			OnResponse: func(b []byte) { hsLog.Debugf("response:\n%s", b) },
		}
	}

	sessions := wsutil.NewContainer(handleMessage, ts.Stdout("Sessions", cfg.LogLevel, cfg.LogColor))
	connecter := msutil.NewConnecter(sessions, svrLog.Sub("Connect"), opts)
	srv := ts.NewServer(cfg.Listen, connecter, svrLog)
	srv.SetMetrics(m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runSysSignal(ctx, cancel)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return srv.Run(ctx)
	})
	if cfg.MetricsListen != "" {
		hs := &http.Server{
			Addr:              cfg.MetricsListen,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			mainLog.Info("metrics on", cfg.MetricsListen)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			return hs.Shutdown(sctx)
		})
	}

	if err := g.Wait(); err != nil {
		mainLog.Fatalf("stopped: %v", err)
	}
	mainLog.Info("closed.")
}
