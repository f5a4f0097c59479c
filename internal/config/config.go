// Package config loads packetd settings from a TOML file, a .env file and
// PACKETD_* environment variables, in increasing order of precedence.
package config

import (
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PACKETD_"

// Config is the daemon configuration.
type Config struct {
	LogLevel string

	WebSocket WebSocketConfig
	TCP       TCPConfig
	Metrics   MetricsConfig
	Conn      ConnConfig
}

// WebSocketConfig controls the WebSocket listener.
type WebSocketConfig struct {
	Addr string
	Path string
}

// TCPConfig controls the raw TCP listener. An empty Addr disables it.
type TCPConfig struct {
	Addr           string
	ReadBufferSize int
}

// MetricsConfig controls the Prometheus endpoint on the WebSocket listener.
// An empty Path disables it.
type MetricsConfig struct {
	Path string
}

// ConnConfig holds per-connection limits.
type ConnConfig struct {
	MaxFrameSize int
	SendQueue    int
	WriteTimeout time.Duration
	Heartbeat    time.Duration
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		WebSocket: WebSocketConfig{
			Addr: ":8080",
			Path: "/ws",
		},
		TCP: TCPConfig{
			ReadBufferSize: 4096,
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
		Conn: ConnConfig{
			MaxFrameSize: 16 * 1024 * 1024,
			SendQueue:    256,
			WriteTimeout: 10 * time.Second,
			Heartbeat:    30 * time.Second,
		},
	}
}

type fileConfig struct {
	LogLevel  string `toml:"log_level"`
	WebSocket struct {
		Addr string `toml:"addr"`
		Path string `toml:"path"`
	} `toml:"websocket"`
	TCP struct {
		Addr           string `toml:"addr"`
		ReadBufferSize int    `toml:"read_buffer_size"`
	} `toml:"tcp"`
	Metrics struct {
		Path string `toml:"path"`
	} `toml:"metrics"`
	Conn struct {
		MaxFrameSize int    `toml:"max_frame_size"`
		SendQueue    int    `toml:"send_queue"`
		WriteTimeout string `toml:"write_timeout"`
		Heartbeat    string `toml:"heartbeat"`
	} `toml:"connection"`
}

// Load builds a Config from the defaults, the TOML file at path (skipped
// when path is empty) and the environment. Values already present in the
// process environment win over the .env file.
func Load(path string) (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return errors.Wrapf(err, "load %s", p)
		}
	}
	return nil
}

func (c *Config) decodeFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	if meta.IsDefined("log_level") {
		c.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("websocket", "addr") {
		c.WebSocket.Addr = strings.TrimSpace(raw.WebSocket.Addr)
	}
	if meta.IsDefined("websocket", "path") {
		c.WebSocket.Path = strings.TrimSpace(raw.WebSocket.Path)
	}

	if meta.IsDefined("tcp", "addr") {
		c.TCP.Addr = strings.TrimSpace(raw.TCP.Addr)
	}
	if meta.IsDefined("tcp", "read_buffer_size") {
		c.TCP.ReadBufferSize = raw.TCP.ReadBufferSize
	}

	if meta.IsDefined("metrics", "path") {
		c.Metrics.Path = strings.TrimSpace(raw.Metrics.Path)
	}

	if meta.IsDefined("connection", "max_frame_size") {
		c.Conn.MaxFrameSize = raw.Conn.MaxFrameSize
	}
	if meta.IsDefined("connection", "send_queue") {
		c.Conn.SendQueue = raw.Conn.SendQueue
	}
	if meta.IsDefined("connection", "write_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Conn.WriteTimeout))
		if err != nil {
			return errors.Wrap(err, "parse connection.write_timeout")
		}
		c.Conn.WriteTimeout = d
	}
	if meta.IsDefined("connection", "heartbeat") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Conn.Heartbeat))
		if err != nil {
			return errors.Wrap(err, "parse connection.heartbeat")
		}
		c.Conn.Heartbeat = d
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return errors.Errorf("load config: unknown key %q", undecoded[0].String())
	}
	return nil
}

func (c *Config) applyEnv() error {
	// LOG_LEVEL is honored for parity with other services; the prefixed
	// variable wins.
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		c.LogLevel = strings.TrimSpace(v)
	}
	lookupString("LOG_LEVEL", &c.LogLevel)
	lookupString("WS_ADDR", &c.WebSocket.Addr)
	lookupString("WS_PATH", &c.WebSocket.Path)
	lookupString("TCP_ADDR", &c.TCP.Addr)
	lookupString("METRICS_PATH", &c.Metrics.Path)

	if err := lookupInt("TCP_READ_BUFFER_SIZE", &c.TCP.ReadBufferSize); err != nil {
		return err
	}
	if err := lookupInt("MAX_FRAME_SIZE", &c.Conn.MaxFrameSize); err != nil {
		return err
	}
	if err := lookupInt("SEND_QUEUE", &c.Conn.SendQueue); err != nil {
		return err
	}
	if err := lookupDuration("WRITE_TIMEOUT", &c.Conn.WriteTimeout); err != nil {
		return err
	}
	return lookupDuration("HEARTBEAT", &c.Conn.Heartbeat)
}

func lookupString(key string, dst *string) {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func lookupInt(key string, dst *int) error {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return errors.Wrapf(err, "parse %s%s", EnvPrefix, key)
	}
	*dst = n
	return nil
}

func lookupDuration(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return errors.Wrapf(err, "parse %s%s", EnvPrefix, key)
	}
	*dst = d
	return nil
}

// Validate reports the first setting that cannot be served.
func (c Config) Validate() error {
	if c.WebSocket.Addr == "" && c.TCP.Addr == "" {
		return errors.New("config: no listener configured")
	}
	if c.WebSocket.Addr != "" && !strings.HasPrefix(c.WebSocket.Path, "/") {
		return errors.Errorf("config: websocket path %q must start with /", c.WebSocket.Path)
	}
	if c.Metrics.Path != "" && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.Errorf("config: metrics path %q must start with /", c.Metrics.Path)
	}
	if c.Conn.MaxFrameSize <= 0 {
		return errors.Errorf("config: max frame size %d must be positive", c.Conn.MaxFrameSize)
	}
	if c.Conn.SendQueue <= 0 {
		return errors.Errorf("config: send queue %d must be positive", c.Conn.SendQueue)
	}
	if c.Conn.WriteTimeout <= 0 {
		return errors.Errorf("config: write timeout %s must be positive", c.Conn.WriteTimeout)
	}
	if c.Conn.Heartbeat <= 0 {
		return errors.Errorf("config: heartbeat %s must be positive", c.Conn.Heartbeat)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels. Empty is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.Errorf("config: unknown log level %q", s)
	}
}
