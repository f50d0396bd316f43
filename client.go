package ftp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mistnet/ftp/connector"
	"github.com/mistnet/ftp/listparsers"
)

// Client is a single FTP session. Sessions are not reusable concurrently:
// exactly one command, including a transfer, may be in flight at a time.
// The exception is Abort, which is safe to call from another goroutine
// while a transfer is pumping bytes.
type Client struct {
	host string
	port string

	connector connector.Connector
	timeout   time.Duration
	logger    *slog.Logger
	config    Config

	control *controlChannel

	// mu is the session lock: every public command holds it for the
	// entire round trip, including any transfer it performs.
	mu            sync.Mutex
	connected     bool
	authenticated bool
	username      string
	password      string

	activeMode   bool
	transferType TransferType
	recognizer   TextualExtensionRecognizer

	features      map[string]string
	utf8Supported bool

	parsers      []listparsers.Parser
	cachedParser listparsers.Parser

	// commListeners are notified, in registration order, of every command
	// sent and every reply received on the control channel.
	commListeners []CommunicationListener

	// abortMu guards ongoing/aborted and the transient transfer streams,
	// independent of the session lock, so Abort can run concurrently
	// with a pump loop holding mu.
	abortMu  sync.Mutex
	ongoing  bool
	aborted  bool
	dataConn io.Closer
}

// Dial connects to host:port and returns a Client ready for Login. The
// default connector is connector.Direct (plain TCP).
func Dial(addr string, options ...Option) (*Client, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("ftp: invalid address %q: %w", addr, err)
	}

	c := &Client{
		host:         host,
		port:         port,
		timeout:      30 * time.Second,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		connector:    &connector.Direct{},
		transferType: Auto,
		recognizer:   defaultTextualExtensions{},
		parsers:      defaultParsers(),
	}

	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("ftp: applying option: %w", err)
		}
	}

	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	if c.connected {
		return &IllegalStateError{Op: "connect", Reason: "already connected"}
	}

	addr := net.JoinHostPort(c.host, c.port)
	ctx, cancel := context.WithTimeout(context.Background(), c.dialTimeout())
	defer cancel()

	conn, err := c.connector.DialControl(ctx, addr)
	if err != nil {
		return &IOError{Op: "connect", Err: err}
	}

	c.control = newControlChannel(conn, c.timeout, c.logger)
	c.control.listeners = c.commListeners

	reply, err := c.control.receive()
	if err != nil {
		conn.Close()
		return err
	}
	c.logger.Debug("ftp greeting", "code", reply.Code, "message", reply.Message())

	if !reply.Is2xx() {
		conn.Close()
		return serverError("connect", reply.Code, reply.Lines)
	}

	c.connected = true
	// cachedParser is cleared on every new connection.
	c.cachedParser = nil
	c.features = nil
	c.utf8Supported = false
	return nil
}

func (c *Client) dialTimeout() time.Duration {
	if c.timeout > 0 {
		return c.timeout
	}
	return 30 * time.Second
}

// Login authenticates with the server: USER, then PASS or ACCT as the
// server's replies direct, followed by the post-login feature probe.
func (c *Client) Login(username, password string, account ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return &IllegalStateError{Op: "login", Reason: "not connected"}
	}

	reply, err := c.control.exchange("USER", username)
	if err != nil {
		return err
	}

	switch reply.Code {
	case 230:
		// Logged in without a password.
	case 331:
		reply, err = c.control.exchange("PASS", password)
		if err != nil {
			return err
		}
		switch reply.Code {
		case 230:
		case 332:
			if len(account) == 0 {
				return serverError("PASS", reply.Code, reply.Lines)
			}
			if err := c.sendAccount(account[0]); err != nil {
				return err
			}
		default:
			return serverError("PASS", reply.Code, reply.Lines)
		}
	case 332:
		if len(account) == 0 {
			return serverError("USER", reply.Code, reply.Lines)
		}
		if err := c.sendAccount(account[0]); err != nil {
			return err
		}
	default:
		return serverError("USER", reply.Code, reply.Lines)
	}

	c.authenticated = true
	c.username = username
	c.password = password

	c.postLogin()
	return nil
}

func (c *Client) sendAccount(account string) error {
	reply, err := c.control.exchange("ACCT", account)
	if err != nil {
		return err
	}
	if reply.Code != 230 {
		return serverError("ACCT", reply.Code, reply.Lines)
	}
	return nil
}

// postLogin probes FEAT for UTF8 support and, if found, switches the
// control channel's charset and sends OPTS UTF8 ON. IllegalReply here is
// swallowed: the session remains usable without UTF-8.
func (c *Client) postLogin() {
	reply, err := c.control.exchange("FEAT")
	if err != nil || reply.Code != 211 {
		if err != nil {
			c.logger.Debug("FEAT probe failed", "error", err)
		}
		return
	}

	c.features = parseFeatureLines(reply.Lines)

	utf8 := false
	if len(reply.Lines) > 2 {
		for _, line := range reply.Lines[1 : len(reply.Lines)-1] {
			if strings.EqualFold(strings.TrimSpace(line), "UTF8") {
				utf8 = true
				break
			}
		}
	}
	if !utf8 {
		return
	}

	c.utf8Supported = true
	c.control.useCharset(utf8Charset)
	// Reply is consumed but not enforced, per the post-login sequence.
	_, _ = c.control.exchange("OPTS", "UTF8", "ON")
}

func parseFeatureLines(lines []string) map[string]string {
	features := make(map[string]string)
	for _, line := range lines {
		var featureLine string
		switch {
		case len(line) > 0 && line[0] == ' ':
			featureLine = strings.TrimSpace(line)
		case len(line) >= 4 && (line[3] == '-' || line[3] == ' '):
			continue
		default:
			continue
		}
		if featureLine == "" {
			continue
		}
		parts := strings.SplitN(featureLine, " ", 2)
		name := strings.ToUpper(parts[0])
		params := ""
		if len(parts) > 1 {
			params = parts[1]
		}
		features[name] = params
	}
	return features
}

// Features returns the server's advertised FEAT capabilities, probing if
// Login has not already populated the cache.
func (c *Client) Features() (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.features != nil {
		return c.features, nil
	}
	reply, err := c.control.exchange("FEAT")
	if err != nil {
		return nil, err
	}
	if reply.Code != 211 {
		return nil, serverError("FEAT", reply.Code, reply.Lines)
	}
	c.features = parseFeatureLines(reply.Lines)
	return c.features, nil
}

// HasFeature reports whether the server advertised the given FEAT token.
func (c *Client) HasFeature(feature string) bool {
	feats, err := c.Features()
	if err != nil {
		return false
	}
	_, ok := feats[strings.ToUpper(feature)]
	return ok
}

// Noop sends NOOP and expects a 2xx reply.
func (c *Client) Noop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expect2xx("NOOP")
}

// AddCommunicationListener registers l to be notified of every command
// sent and every reply received on the control channel, in addition order.
func (c *Client) AddCommunicationListener(l CommunicationListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commListeners = append(c.commListeners, l)
	if c.control != nil {
		c.control.listeners = c.commListeners
	}
}

// CommunicationListeners returns the currently registered communication
// listeners, in registration order.
func (c *Client) CommunicationListeners() []CommunicationListener {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commListeners
}

// Quote sends an arbitrary command and returns the raw reply, for commands
// this client does not wrap explicitly.
func (c *Client) Quote(command string, args ...string) (*Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.control.exchange(command, args...)
}

// Logout sends REIN, clearing authentication state but leaving the
// control connection open.
func (c *Client) Logout() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	reply, err := c.control.exchange("REIN")
	if err != nil {
		return err
	}
	if !reply.Is2xx() {
		return serverError("REIN", reply.Code, reply.Lines)
	}
	c.authenticated = false
	c.username = ""
	c.password = ""
	return nil
}

// Quit sends QUIT (expecting 2xx) and always closes the control
// connection, clearing connected.
func (c *Client) Quit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnect(true)
}

func (c *Client) disconnect(sendQuit bool) error {
	if !c.connected {
		return nil
	}

	var quitErr error
	if sendQuit {
		reply, err := c.control.exchange("QUIT")
		if err != nil {
			quitErr = err
		} else if !reply.Is2xx() {
			quitErr = serverError("QUIT", reply.Code, reply.Lines)
		}
	}

	closeErr := c.control.close()
	c.connected = false

	if quitErr != nil {
		return quitErr
	}
	if closeErr != nil {
		return &IOError{Op: "close control connection", Err: closeErr}
	}
	return nil
}

// AbruptlyCloseCommunication is a non-locking emergency shutdown: it
// closes the control socket outright. Subsequent in-flight commands will
// observe IOError.
func (c *Client) AbruptlyCloseCommunication() {
	if c.control != nil {
		_ = c.control.close()
	}
}

// expect2xx sends a command and requires a 2xx reply.
func (c *Client) expect2xx(command string, args ...string) error {
	reply, err := c.control.exchange(command, args...)
	if err != nil {
		return err
	}
	if !reply.Is2xx() {
		return serverError(command, reply.Code, reply.Lines)
	}
	return nil
}

func (c *Client) noopDelay() time.Duration {
	if c.config.AutoNoopDelay > 0 {
		return c.config.AutoNoopDelay
	}
	if ms, err := strconv.Atoi(os.Getenv("DT_AUTO_NOOP_DELAY")); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return 0
}
