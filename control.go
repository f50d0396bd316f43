package ftp

import (
	"bufio"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// controlChannel is the framed, charset-switchable send/receive half of a
// session: one command line out, one reply in, serialized by wireMu so
// that a command/reply pair is always contiguous on the wire even when the
// keep-alive ticker and a transfer's trailing-reply read are racing against
// each other.
type controlChannel struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
	logger  *slog.Logger

	wireMu    sync.Mutex
	enc       encoding.Encoding // nil means raw bytes (7-bit ASCII path)
	listeners []CommunicationListener
}

func newControlChannel(conn net.Conn, timeout time.Duration, logger *slog.Logger) *controlChannel {
	return &controlChannel{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: timeout,
		logger:  logger,
	}
}

// useCharset atomically swaps the channel's encoder/decoder pair. It must
// only be called between command/reply pairs, never while a send or
// receive is in flight; it does not take wireMu itself. postLogin calls it
// under the session lock, after the FEAT reply and before sending
// OPTS UTF8 ON.
func (cc *controlChannel) useCharset(enc encoding.Encoding) {
	cc.enc = enc
}

// utf8Charset is the encoding installed once the server advertises UTF8
// support in FEAT.
var utf8Charset encoding.Encoding = unicode.UTF8

func (cc *controlChannel) send(line string) error {
	cc.wireMu.Lock()
	defer cc.wireMu.Unlock()
	return cc.sendLocked(line)
}

func (cc *controlChannel) sendLocked(line string) error {
	payload := line + "\r\n"
	if cc.enc != nil {
		encoded, err := cc.enc.NewEncoder().String(payload)
		if err != nil {
			return &IOError{Op: "encode command", Err: err}
		}
		payload = encoded
	}
	if cc.timeout > 0 {
		if err := cc.conn.SetWriteDeadline(time.Now().Add(cc.timeout)); err != nil {
			return &IOError{Op: "send", Err: err}
		}
	}
	if _, err := cc.conn.Write([]byte(payload)); err != nil {
		return &IOError{Op: "send", Err: err}
	}
	if cc.logger != nil {
		cc.logger.Debug("ftp command", "line", line)
	}
	for _, l := range cc.listeners {
		l.Sent(line)
	}
	return nil
}

func (cc *controlChannel) receive() (*Reply, error) {
	cc.wireMu.Lock()
	defer cc.wireMu.Unlock()
	return cc.receiveLocked()
}

func (cc *controlChannel) receiveLocked() (*Reply, error) {
	if cc.timeout > 0 {
		if err := cc.conn.SetReadDeadline(time.Now().Add(cc.timeout)); err != nil {
			return nil, &IOError{Op: "receive", Err: err}
		}
	}
	reply, err := readReply(cc.reader)
	if err != nil {
		return nil, err
	}
	if cc.enc != nil {
		dec := cc.enc.NewDecoder()
		for i, l := range reply.Lines {
			if decoded, derr := dec.String(l); derr == nil {
				reply.Lines[i] = decoded
			}
		}
	}
	if cc.logger != nil {
		cc.logger.Debug("ftp response", "code", reply.Code, "message", reply.Message())
	}
	for _, l := range cc.listeners {
		l.Received(reply)
	}
	return reply, nil
}

// exchange sends a command and reads exactly one reply, holding wireMu for
// the whole round trip so the keep-alive ticker cannot interleave mid-reply.
func (cc *controlChannel) exchange(command string, args ...string) (*Reply, error) {
	line := command
	if len(args) > 0 {
		line = command + " " + strings.Join(args, " ")
	}

	cc.wireMu.Lock()
	defer cc.wireMu.Unlock()

	if err := cc.sendLocked(line); err != nil {
		return nil, err
	}
	return cc.receiveLocked()
}

func (cc *controlChannel) close() error {
	return cc.conn.Close()
}
