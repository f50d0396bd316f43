package ftp

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mistnet/ftp/listparsers"
)

// List returns the parsed contents of a remote directory. An empty path
// lists the current working directory. The listing dialect is detected on
// the first successful parse and cached for the life of the connection;
// see the listparsers package.
func (c *Client) List(path string) ([]listparsers.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines, err := c.retrieveLines("LIST", path)
	if err != nil {
		return nil, err
	}
	return c.parseListing(lines)
}

// NameList returns the bare names of a remote directory's contents via
// NLST, one per line with no further structure.
func (c *Client) NameList(path string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines, err := c.retrieveLines("NLST", path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(lines))
	for _, l := range lines {
		names = append(names, strings.TrimSpace(l))
	}
	return names, nil
}

// retrieveLines drives a LIST/NLST-shaped command: open a data endpoint,
// issue the command over control, read lines off the data connection, and
// consume the trailing control reply. It always runs in TYPE A, per RFC
// 959's requirement that listings be textual.
func (c *Client) retrieveLines(cmd, path string) ([]string, error) {
	if !c.connected {
		return nil, &IllegalStateError{Op: cmd, Reason: "not connected"}
	}

	if err := c.expect2xx("TYPE", "A"); err != nil {
		return nil, err
	}

	ctx := context.Background()
	provider, err := c.openDataEndpoint(ctx)
	if err != nil {
		return nil, err
	}

	var reply *Reply
	if path == "" {
		reply, err = c.control.exchange(cmd)
	} else {
		reply, err = c.control.exchange(cmd, path)
	}
	if err != nil {
		provider.dispose()
		return nil, err
	}
	if reply.Code != 150 && reply.Code != 125 {
		provider.dispose()
		// Many servers reply 450/550 for an empty or missing directory
		// rather than opening the data connection at all.
		return nil, serverError(cmd, reply.Code, reply.Lines)
	}

	dataConn, err := provider.open(ctx)
	if err != nil {
		return nil, err
	}

	var lines []string
	scanner := bufio.NewScanner(dataConn)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	scanErr := scanner.Err()
	closeErr := dataConn.Close()

	trailing, trailingErr := c.control.receive()

	if scanErr != nil {
		return nil, &DataTransferError{Err: scanErr}
	}
	if closeErr != nil {
		return nil, &IOError{Op: "close data connection", Err: closeErr}
	}
	if trailingErr != nil {
		return nil, trailingErr
	}
	if !trailing.Is2xx() {
		return nil, serverError(cmd, trailing.Code, trailing.Lines)
	}
	return lines, nil
}

// ChangeDir sets the current working directory.
func (c *Client) ChangeDir(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expect2xx("CWD", path)
}

// ChangeDirUp moves to the parent of the current working directory.
func (c *Client) ChangeDirUp() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expect2xx("CDUP")
}

// CurrentDir returns the current working directory, parsed from PWD's
// quoted-path reply per RFC 959 section 4.1.1.
func (c *Client) CurrentDir() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := c.control.exchange("PWD")
	if err != nil {
		return "", err
	}
	if reply.Code != 257 {
		return "", serverError("PWD", reply.Code, reply.Lines)
	}
	return parseQuotedPath("PWD", reply.Message())
}

// MakeDir creates a directory and returns its path as reported by the
// server's quoted MKD reply.
func (c *Client) MakeDir(path string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := c.control.exchange("MKD", path)
	if err != nil {
		return "", err
	}
	if reply.Code != 257 {
		return "", serverError("MKD", reply.Code, reply.Lines)
	}
	return parseQuotedPath("MKD", reply.Message())
}

// parseQuotedPath extracts the double-quoted path from a 257 reply,
// unescaping the doubled-quote convention RFC 959 uses to embed a literal
// quote in the pathname.
func parseQuotedPath(op, msg string) (string, error) {
	start := strings.IndexByte(msg, '"')
	if start == -1 {
		return "", &IllegalReplyError{Op: op, Detail: fmt.Sprintf("no quoted path in %q", msg)}
	}
	var b strings.Builder
	i := start + 1
	for i < len(msg) {
		if msg[i] == '"' {
			if i+1 < len(msg) && msg[i+1] == '"' {
				b.WriteByte('"')
				i += 2
				continue
			}
			return b.String(), nil
		}
		b.WriteByte(msg[i])
		i++
	}
	return "", &IllegalReplyError{Op: op, Detail: fmt.Sprintf("unterminated quoted path in %q", msg)}
}

// RemoveDir removes an empty directory.
func (c *Client) RemoveDir(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expect2xx("RMD", path)
}

// Delete removes a file.
func (c *Client) Delete(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expect2xx("DELE", path)
}

// Rename renames or moves a file or directory via the RNFR/RNTO sequence.
func (c *Client) Rename(from, to string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := c.control.exchange("RNFR", from)
	if err != nil {
		return err
	}
	if reply.Code != 350 {
		return serverError("RNFR", reply.Code, reply.Lines)
	}
	return c.expect2xx("RNTO", to)
}

// Size returns a file's size in bytes via the SIZE extension (RFC 3659).
// Servers must be in the correct TYPE for SIZE to be meaningful; this
// leaves the session's current TYPE untouched.
func (c *Client) Size(path string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := c.control.exchange("SIZE", path)
	if err != nil {
		return 0, err
	}
	if reply.Code != 213 {
		return 0, serverError("SIZE", reply.Code, reply.Lines)
	}
	size, perr := strconv.ParseInt(strings.TrimSpace(reply.Message()), 10, 64)
	if perr != nil {
		return 0, &IllegalReplyError{Op: "SIZE", Detail: fmt.Sprintf("non-numeric size %q", reply.Message())}
	}
	return size, nil
}

// ModTime returns a file's last-modified time via MDTM (RFC 3659), always
// in UTC.
func (c *Client) ModTime(path string) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := c.control.exchange("MDTM", path)
	if err != nil {
		return time.Time{}, err
	}
	if reply.Code != 213 {
		return time.Time{}, serverError("MDTM", reply.Code, reply.Lines)
	}
	return parseMDTM(reply.Message())
}

func parseMDTM(msg string) (time.Time, error) {
	timestamp := strings.TrimSpace(msg)
	// A handful of servers append fractional seconds (YYYYMMDDHHMMSS.sss);
	// truncate to whole seconds, which is all RFC 3659 guarantees.
	if dot := strings.IndexByte(timestamp, '.'); dot != -1 {
		timestamp = timestamp[:dot]
	}
	t, err := time.Parse("20060102150405", timestamp)
	if err != nil {
		return time.Time{}, &IllegalReplyError{Op: "MDTM", Detail: fmt.Sprintf("unparseable timestamp %q", msg)}
	}
	return t.UTC(), nil
}

// SetModTime sets a file's last-modified time via the MFMT extension
// (draft-somers-ftp-mfxx), a common but non-RFC 959/3659 addition several
// servers advertise in FEAT.
func (c *Client) SetModTime(path string, t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expect2xx("MFMT", t.UTC().Format("20060102150405"), path)
}
