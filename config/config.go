// File: config/config.go
// Author: momentics <momentics@gmail.com>
//
// TOML configuration for the reactor, its sockets and logging.

package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
)

const (
	DefaultIdleCheckInterval = time.Second
	DefaultBufferSize        = 64 << 10
	DefaultMaxEvents         = 256
)

// Duration is a time.Duration written as a string, e.g. "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a time.ParseDuration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText renders the duration the way UnmarshalText reads it.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the whole configuration file.
type Config struct {
	Reactor ReactorConfig
	Socket  SocketConfig
	Logging LogConfig
}

// ReactorConfig describes the [reactor] block.
type ReactorConfig struct {
	Workers           int
	IdleTimeout       Duration `toml:"idle-timeout"`
	IdleCheckInterval Duration `toml:"idle-check-interval"`
	MaxEvents         int      `toml:"max-events"`
	CPU               *int     `toml:"cpu"` // pin the reactor thread; unset leaves it floating
}

// SocketConfig describes the [socket] block. ReadBuffer and WriteBuffer size
// the transport buffers; RecvBuffer and SendBuffer the kernel ones.
type SocketConfig struct {
	ReadBuffer      int       `toml:"read-buffer"`
	WriteBuffer     int       `toml:"write-buffer"`
	RecvBuffer      int       `toml:"recv-buffer"`
	SendBuffer      int       `toml:"send-buffer"`
	KeepAlive       bool      `toml:"keep-alive"`
	KeepAlivePeriod Duration  `toml:"keep-alive-period"`
	NoDelay         bool      `toml:"no-delay"`
	Backlog         int       `toml:"backlog"`
	IdleTimeout     *Duration `toml:"idle-timeout"`
}

// LogConfig describes the [logging] block.
type LogConfig struct {
	Level        string
	ReportCaller bool `toml:"report-caller"`
	Format       string
}

// Defaults returns the configuration used for anything a file leaves out.
func Defaults() Config {
	return Config{
		Reactor: ReactorConfig{
			Workers:           runtime.NumCPU(),
			IdleCheckInterval: Duration{DefaultIdleCheckInterval},
			MaxEvents:         DefaultMaxEvents,
		},
		Socket: SocketConfig{
			ReadBuffer:  DefaultBufferSize,
			WriteBuffer: DefaultBufferSize,
			NoDelay:     true,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and validates a configuration file over the defaults.
func Load(filename string) (Config, error) {
	conf := Defaults()
	if _, err := toml.DecodeFile(filename, &conf); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", filename, err)
	}
	if err := conf.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", filename, err)
	}
	return conf, nil
}

// Decode parses configuration text over the defaults and validates it.
func Decode(data string) (Config, error) {
	conf := Defaults()
	if _, err := toml.Decode(data, &conf); err != nil {
		return Config{}, err
	}
	if err := conf.Validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs *multierror.Error
	if c.Reactor.Workers < 0 {
		errs = multierror.Append(errs, fmt.Errorf("reactor.workers must not be negative, got %d", c.Reactor.Workers))
	}
	if c.Reactor.IdleTimeout.Duration < 0 {
		errs = multierror.Append(errs, fmt.Errorf("reactor.idle-timeout must not be negative, got %v", c.Reactor.IdleTimeout))
	}
	if c.Reactor.IdleCheckInterval.Duration < time.Millisecond {
		errs = multierror.Append(errs, fmt.Errorf("reactor.idle-check-interval must be at least 1ms, got %v", c.Reactor.IdleCheckInterval))
	}
	if c.Reactor.MaxEvents < 0 {
		errs = multierror.Append(errs, fmt.Errorf("reactor.max-events must not be negative, got %d", c.Reactor.MaxEvents))
	}
	if c.Reactor.CPU != nil && *c.Reactor.CPU < 0 {
		errs = multierror.Append(errs, fmt.Errorf("reactor.cpu must not be negative, got %d", *c.Reactor.CPU))
	}
	if c.Socket.ReadBuffer <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("socket.read-buffer must be positive, got %d", c.Socket.ReadBuffer))
	}
	if c.Socket.WriteBuffer <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("socket.write-buffer must be positive, got %d", c.Socket.WriteBuffer))
	}
	if c.Socket.RecvBuffer < 0 || c.Socket.SendBuffer < 0 {
		errs = multierror.Append(errs, fmt.Errorf("socket.recv-buffer and socket.send-buffer must not be negative"))
	}
	if c.Socket.IdleTimeout != nil && c.Socket.IdleTimeout.Duration < 0 {
		errs = multierror.Append(errs, fmt.Errorf("socket.idle-timeout must not be negative, got %v", *c.Socket.IdleTimeout))
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = multierror.Append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	return errs.ErrorOrNil()
}
