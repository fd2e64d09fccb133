// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package textsocket

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the server settings. It is usually loaded from a YAML file
// and overridden by command line flags.
type Config struct {
	// Listen is the listen address, e.g. "tcp://:9001" or "unix:///tmp/ts.sock".
	Listen string `yaml:"listen"`
	// Host and Port are advertised in the handshake response. Empty values
	// are taken from the local address of each connection.
	Host string `yaml:"host"`
	Port string `yaml:"port"`

	MaxFramePayload int   `yaml:"max_frame_payload"`
	MaxFrameSize    int64 `yaml:"max_frame_size"`
	MaxMessageSize  int64 `yaml:"max_message_size"`

	ReadBufferSize  int `yaml:"read_buffer_size"`
	WriteBufferSize int `yaml:"write_buffer_size"`

	LogLevel string `yaml:"log_level"`
	LogColor bool   `yaml:"log_color"`

	// MetricsListen is the address of the prometheus endpoint. Empty disables it.
	MetricsListen string `yaml:"metrics_listen"`

	// Debug logs raw handshake requests and responses.
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Listen:          "tcp://127.0.0.1:9001",
		MaxFramePayload: DefaultMaxFramePayload,
		MaxFrameSize:    DefaultMaxFrameSize,
		MaxMessageSize:  DefaultMaxFrameSize,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		LogLevel:        LevelInfo.String(),
	}
}

// LoadConfig reads the YAML file at path on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("textsocket: read config: %w", err)
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("textsocket: parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is empty"))
	} else if _, err := ParserAddr(c.Listen); err != nil {
		errs = append(errs, fmt.Errorf("listen address: %w", err))
	}
	if c.MaxFramePayload < 1 {
		errs = append(errs, fmt.Errorf("max_frame_payload %d: %w", c.MaxFramePayload, ErrInvalidFrameSize))
	}
	if c.MaxFrameSize < 0 {
		errs = append(errs, fmt.Errorf("max_frame_size %d is negative", c.MaxFrameSize))
	}
	if c.MaxMessageSize < 0 {
		errs = append(errs, fmt.Errorf("max_message_size %d is negative", c.MaxMessageSize))
	}
	if c.ReadBufferSize < 0 || c.WriteBufferSize < 0 {
		errs = append(errs, errors.New("buffer sizes must not be negative"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("textsocket: invalid config: %w", errors.Join(errs...))
}
