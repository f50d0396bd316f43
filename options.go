package ftp

import (
	"log/slog"
	"time"

	"github.com/mistnet/ftp/connector"
	"github.com/mistnet/ftp/listparsers"
)

// Config carries the process-wide knobs the original design reads from
// the environment, as an explicit object so tests can inject values
// without mutating global state. The environment variables
// ACTIVE_DT_HOST_ADDRESS and DT_AUTO_NOOP_DELAY are still consulted as a
// fallback when the corresponding field is left zero.
type Config struct {
	// ActiveHostAddress overrides the local address advertised in PORT.
	// Must be a dotted IPv4 quad; invalid values are ignored with a
	// logged warning.
	ActiveHostAddress string

	// AutoNoopDelay is the keep-alive ticker's period during a transfer.
	// Zero disables the keep-alive ticker.
	AutoNoopDelay time.Duration
}

// Option configures a Client at Dial time.
type Option func(*Client) error

// WithTimeout sets the read/write deadline applied to every control- and
// data-channel operation.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		c.timeout = timeout
		return nil
	}
}

// WithLogger installs a structured logger for command/reply tracing.
// Without this option, the client logs nothing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// WithConnector overrides the transport connector. The default is
// connector.Direct (plain TCP for both channels).
func WithConnector(conn connector.Connector) Option {
	return func(c *Client) error {
		c.connector = conn
		return nil
	}
}

// WithConfig installs explicit values for the process-wide knobs
// (ACTIVE_DT_HOST_ADDRESS, DT_AUTO_NOOP_DELAY). A field left zero still
// falls back to its environment variable.
func WithConfig(cfg Config) Option {
	return func(c *Client) error {
		c.config = cfg
		return nil
	}
}

// WithActiveMode switches the session to active (PORT) mode. The default
// is passive (PASV) mode.
func WithActiveMode() Option {
	return func(c *Client) error {
		c.activeMode = true
		return nil
	}
}

// WithTransferType sets the session's default representation type.
func WithTransferType(t TransferType) Option {
	return func(c *Client) error {
		c.transferType = t
		return nil
	}
}

// WithTextualExtensionRecognizer overrides the extension-to-type table
// used to resolve TransferType Auto.
func WithTextualExtensionRecognizer(r TextualExtensionRecognizer) Option {
	return func(c *Client) error {
		c.recognizer = r
		return nil
	}
}

// WithListParsers replaces the registry's ordered list of dialect
// parsers. The default registers listparsers.Unix, listparsers.DOS,
// listparsers.EPLF and listparsers.NetWare, in that order.
func WithListParsers(parsers ...listparsers.Parser) Option {
	return func(c *Client) error {
		c.parsers = parsers
		return nil
	}
}
