package ftp

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
)

// direction distinguishes upload from download for the shared transfer
// skeleton.
type direction int

const (
	upload direction = iota
	download
)

// Store uploads r to remotePath in the session's configured
// representation type (TYPE A for TEXTUAL, TYPE I for BINARY/AUTO-binary).
func (c *Client) Store(remotePath string, r io.Reader, listener ...ProgressListener) error {
	return c.transfer(upload, "STOR", remotePath, r, nil, 0, pickListener(listener))
}

// Append appends r to remotePath, creating it if it does not exist.
func (c *Client) Append(remotePath string, r io.Reader, listener ...ProgressListener) error {
	return c.transfer(upload, "APPE", remotePath, r, nil, 0, pickListener(listener))
}

// Retrieve downloads remotePath into w.
func (c *Client) Retrieve(remotePath string, w io.Writer, listener ...ProgressListener) error {
	return c.transfer(download, "RETR", remotePath, nil, w, 0, pickListener(listener))
}

func pickListener(listeners []ProgressListener) ProgressListener {
	if len(listeners) > 0 && listeners[0] != nil {
		return listeners[0]
	}
	return noopListener{}
}

// RestartAt sends REST with the given offset as a standalone command. It
// does not carry over to a later transfer: Store, Append, Retrieve and
// RetrieveFrom each send their own REST (offset 0 for all but
// RetrieveFrom). A 502 when offset > 0 is translated to the fixed "resume
// not supported" ServerError; any other non-350 reply is a ServerError.
func (c *Client) RestartAt(offset int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restartAt(offset)
}

func (c *Client) restartAt(offset int64) error {
	reply, err := c.control.exchange("REST", fmt.Sprintf("%d", offset))
	if err != nil {
		return err
	}
	if reply.Code == 502 && offset > 0 {
		return serverError("REST", 502, []string{"Resume is not supported by this server"})
	}
	if reply.Code != 350 {
		return serverError("REST", reply.Code, reply.Lines)
	}
	return nil
}

// RetrieveFrom downloads remotePath into w starting at the given byte
// offset, using REST.
func (c *Client) RetrieveFrom(remotePath string, w io.Writer, offset int64, listener ...ProgressListener) error {
	return c.transfer(download, "RETR", remotePath, nil, w, offset, pickListener(listener))
}

func (c *Client) transfer(dir direction, cmd, remotePath string, r io.Reader, w io.Writer, offset int64, listener ProgressListener) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return &IllegalStateError{Op: cmd, Reason: "not connected"}
	}

	effType := c.effectiveType(c.transferType, remotePath)
	if err := c.expect2xx("TYPE", typeCode(effType)); err != nil {
		return err
	}

	// REST is sent unconditionally, restart_at defaulting to 0; only the
	// 502-vs-other-code distinction in restartAt depends on offset > 0.
	if err := c.restartAt(offset); err != nil {
		return err
	}

	ctx := context.Background()
	provider, err := c.openDataEndpoint(ctx)
	if err != nil {
		return err
	}

	reply, err := c.control.exchange(cmd, remotePath)
	if err != nil {
		provider.dispose()
		return err
	}
	if reply.Code != 150 && reply.Code != 125 {
		provider.dispose()
		return serverError(cmd, reply.Code, reply.Lines)
	}

	dataConn, err := provider.open(ctx)
	if err != nil {
		return err
	}

	c.abortMu.Lock()
	c.ongoing = true
	c.aborted = false
	c.dataConn = dataConn
	c.abortMu.Unlock()

	ticker := c.startKeepAlive()

	listener.Started()
	var pumpErr error
	if dir == upload {
		pumpErr = c.pumpUpload(dataConn, r, effType, listener)
	} else {
		pumpErr = c.pumpDownload(dataConn, w, effType, listener)
	}

	ticker.Stop()

	closeErr := dataConn.Close()

	c.abortMu.Lock()
	wasAborted := c.aborted
	c.ongoing = false
	c.dataConn = nil
	c.abortMu.Unlock()

	// The trailing reply must always be consumed to keep the control
	// channel aligned, regardless of how the pump ended.
	trailingReply, trailingErr := c.control.receive()

	if pumpErr != nil {
		if wasAborted {
			listener.Aborted()
			return &AbortedError{}
		}
		listener.Failed()
		return &DataTransferError{Err: pumpErr}
	}

	var merr *multierror.Error
	if closeErr != nil {
		merr = multierror.Append(merr, &IOError{Op: "close data connection", Err: closeErr})
	}
	if trailingErr != nil {
		// Design note (b): a failed trailing-reply read is logged and
		// swallowed, never escalated past a pump success.
		c.logger.Debug("trailing reply read failed", "error", trailingErr)
	} else if !trailingReply.Is2xx() {
		merr = multierror.Append(merr, serverError(cmd, trailingReply.Code, trailingReply.Lines))
	}

	if merr != nil {
		listener.Failed()
		return merr.ErrorOrNil()
	}

	listener.Completed()
	return nil
}

func (c *Client) pumpUpload(dataConn io.Writer, r io.Reader, t TransferType, listener ProgressListener) error {
	if t == Textual {
		return pumpTextualUpload(dataConn, r, listener)
	}
	return pumpBinary(dataConn, r, listener)
}

func (c *Client) pumpDownload(dataConn io.Reader, w io.Writer, t TransferType, listener ProgressListener) error {
	if t == Textual {
		return pumpTextualDownload(w, dataConn, listener)
	}
	return pumpBinary(w, dataConn, listener)
}

// pumpBinary copies through a fixed-size buffer, reporting each
// successful chunk to the listener.
func pumpBinary(dst io.Writer, src io.Reader, listener ProgressListener) error {
	buf := make([]byte, 1024)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
			listener.Transferred(int64(n))
		}
		if rerr != nil {
			if rerr == io.EOF {
				return nil
			}
			return rerr
		}
	}
}

// pumpTextualUpload re-encodes LF to CRLF as it copies, the NVT-ASCII
// convention for the wire representation of TYPE A.
func pumpTextualUpload(dst io.Writer, src io.Reader, listener ProgressListener) error {
	br := bufio.NewReader(src)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			text := line
			if text[len(text)-1] == '\n' {
				text = text[:len(text)-1] + "\r\n"
			}
			n, werr := io.WriteString(dst, text)
			if werr != nil {
				return werr
			}
			listener.Transferred(int64(n))
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// pumpTextualDownload decodes CRLF to LF as it copies.
func pumpTextualDownload(dst io.Writer, src io.Reader, listener ProgressListener) error {
	br := bufio.NewReader(src)
	for {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if b == '\r' {
			next, peekErr := br.Peek(1)
			if peekErr == nil && len(next) == 1 && next[0] == '\n' {
				continue
			}
		}
		if _, werr := dst.Write([]byte{b}); werr != nil {
			return werr
		}
		listener.Transferred(1)
	}
}

// Abort ends the ongoing transfer, if any. It sends ABOR (when
// sendAborCommand is true) and reads one reply, then closes the data
// stream so the blocked pump unblocks with an IOError the engine
// reinterprets as AbortedError.
func (c *Client) Abort(sendAborCommand bool) error {
	c.abortMu.Lock()
	defer c.abortMu.Unlock()

	if !c.ongoing || c.aborted {
		return nil
	}

	if sendAborCommand {
		_, _ = c.control.exchange("ABOR")
	}
	if c.dataConn != nil {
		_ = c.dataConn.Close()
	}
	c.aborted = true
	return nil
}
