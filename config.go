package dbus

import (
	"log"
	"time"
)

const (
	// DefaultAuthTimeout is the default timeout applied to the
	// authentication handshake.
	DefaultAuthTimeout = defaultAuthTimeout
	// DefaultCallTimeout is the default timeout applied to CallMethod
	// when the caller does not override it.
	DefaultCallTimeout = 3 * time.Second
	// DefaultReadBufferSize sizes the buffered reader placed over the
	// raw socket, reducing read syscalls the way the teacher's
	// DefaultConnectionReadSize does for its single-shot decode loop.
	DefaultReadBufferSize = 4096
)

// Config holds the options that govern how Dial connects and how a Conn
// behaves afterwards. Use the With* functions to build one; the zero
// value is not meant to be constructed directly by callers.
type Config struct {
	address     string
	systemBus   bool
	authTimeout time.Duration
	callTimeout time.Duration
	readBufSize int
	logger      *log.Logger
}

// Option configures a Config.
type Option func(*Config)

// WithAddress overrides bus address resolution with an explicit
// unix:path=... address.
func WithAddress(addr string) Option {
	return func(c *Config) { c.address = addr }
}

// WithSystemBus selects the system bus instead of the default session
// bus.
func WithSystemBus() Option {
	return func(c *Config) { c.systemBus = true }
}

// WithAuthTimeout overrides the authentication handshake timeout.
func WithAuthTimeout(d time.Duration) Option {
	return func(c *Config) { c.authTimeout = d }
}

// WithCallTimeout overrides the default CallMethod timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Config) { c.callTimeout = d }
}

// WithReadBufferSize sets the size of the buffer placed over the raw
// connection for inbound reads.
func WithReadBufferSize(n int) Option {
	return func(c *Config) { c.readBufSize = n }
}

// WithLogger sets the logger used to report non-fatal background
// failures (e.g. a RemoveMatch call failing on detach). The default is
// log.Default().
func WithLogger(l *log.Logger) Option {
	return func(c *Config) { c.logger = l }
}

func newConfig(opts []Option) Config {
	conf := Config{
		authTimeout: DefaultAuthTimeout,
		callTimeout: DefaultCallTimeout,
		readBufSize: DefaultReadBufferSize,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(&conf)
	}
	return conf
}
