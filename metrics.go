// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package textsocket

import (
	"errors"
	"os"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects counters of the server and its sessions.
type Metrics interface {
	AddConnection()
	RemoveConnection()
	AddHandshakeFailed(reason string)
	AddMessageReceived(size int)
	AddMessageSent(size int)
	AddFrameError(kind string)
	AddSessionClosed(state string)
}

// EmptyMetrics drops everything.
type EmptyMetrics struct{}

func (m *EmptyMetrics) AddConnection()            {}
func (m *EmptyMetrics) RemoveConnection()         {}
func (m *EmptyMetrics) AddHandshakeFailed(string) {}
func (m *EmptyMetrics) AddMessageReceived(int)    {}
func (m *EmptyMetrics) AddMessageSent(int)        {}
func (m *EmptyMetrics) AddFrameError(string)      {}
func (m *EmptyMetrics) AddSessionClosed(string)   {}

// ErrorKind names the kind of err for metric labels.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrMissingKey):
		return "missing_key"
	case errors.Is(err, ErrTruncatedFrame):
		return "truncated_frame"
	case errors.Is(err, ErrUnexpectedFirstFrame):
		return "unexpected_first_frame"
	case errors.Is(err, ErrEncoding):
		return "encoding"
	case errors.Is(err, ErrInvalidFrame):
		return "invalid_frame"
	case errors.Is(err, ErrStreamClosed):
		return "stream_closed"
	case errors.Is(err, ErrStreamFault):
		return "stream_fault"
	}
	return "other"
}

var sizeBuckets = []float64{16, 64, 256, 1024, 4096, 16384, 65536, 262144, 1048576}

type Prometheus struct {
	TotalConnection      prometheus.Counter
	CurrentConnection    prometheus.Gauge
	HandshakeFailedTotal *prometheus.CounterVec
	MessageReceivedTotal prometheus.Counter
	MessageSentTotal     prometheus.Counter
	MessageReceivedBytes prometheus.Histogram
	MessageSentBytes     prometheus.Histogram
	FrameErrorTotal      *prometheus.CounterVec
	SessionClosedTotal   *prometheus.CounterVec
}

// NewPrometheus registers the collectors with reg. A nil reg means
// prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	hostname, _ := os.Hostname()
	labels := prometheus.Labels{
		"hostname": hostname,
		"os":       runtime.GOOS,
		"arch":     runtime.GOARCH,
	}
	f := promauto.With(reg)

	return &Prometheus{
		TotalConnection: f.NewCounter(prometheus.CounterOpts{
			Name:        "textsocket_connection_total",
			Help:        "The total number of accepted connections",
			ConstLabels: labels,
		}),
		CurrentConnection: f.NewGauge(prometheus.GaugeOpts{
			Name:        "textsocket_connection_current",
			Help:        "The current number of connections",
			ConstLabels: labels,
		}),
		HandshakeFailedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "textsocket_handshake_failed_total",
			Help:        "The total number of failed handshakes by reason",
			ConstLabels: labels,
		}, []string{"reason"}),
		MessageReceivedTotal: f.NewCounter(prometheus.CounterOpts{
			Name:        "textsocket_message_received_total",
			Help:        "The total number of reassembled inbound messages",
			ConstLabels: labels,
		}),
		MessageSentTotal: f.NewCounter(prometheus.CounterOpts{
			Name:        "textsocket_message_sent_total",
			Help:        "The total number of outbound messages",
			ConstLabels: labels,
		}),
		MessageReceivedBytes: f.NewHistogram(prometheus.HistogramOpts{
			Name:        "textsocket_message_received_size_bytes",
			Help:        "The size of inbound messages",
			Buckets:     sizeBuckets,
			ConstLabels: labels,
		}),
		MessageSentBytes: f.NewHistogram(prometheus.HistogramOpts{
			Name:        "textsocket_message_sent_size_bytes",
			Help:        "The size of outbound messages",
			Buckets:     sizeBuckets,
			ConstLabels: labels,
		}),
		FrameErrorTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "textsocket_frame_error_total",
			Help:        "The total number of frame errors by kind",
			ConstLabels: labels,
		}, []string{"kind"}),
		SessionClosedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "textsocket_session_closed_total",
			Help:        "The total number of finished sessions by final state",
			ConstLabels: labels,
		}, []string{"state"}),
	}
}

func (p *Prometheus) AddConnection() {
	p.TotalConnection.Inc()
	p.CurrentConnection.Inc()
}

func (p *Prometheus) RemoveConnection() { p.CurrentConnection.Dec() }

func (p *Prometheus) AddHandshakeFailed(reason string) {
	p.HandshakeFailedTotal.WithLabelValues(reason).Inc()
}

func (p *Prometheus) AddMessageReceived(size int) {
	p.MessageReceivedTotal.Inc()
	p.MessageReceivedBytes.Observe(float64(size))
}

func (p *Prometheus) AddMessageSent(size int) {
	p.MessageSentTotal.Inc()
	p.MessageSentBytes.Observe(float64(size))
}

func (p *Prometheus) AddFrameError(kind string) {
	p.FrameErrorTotal.WithLabelValues(kind).Inc()
}

func (p *Prometheus) AddSessionClosed(state string) {
	p.SessionClosedTotal.WithLabelValues(state).Inc()
}
