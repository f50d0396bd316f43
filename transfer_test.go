package ftp

import (
	"bytes"
	"io"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	started, completed, aborted, failed bool
	transferred                         int64
}

func (l *recordingListener) Started()            { l.started = true }
func (l *recordingListener) Transferred(n int64)  { l.transferred += n }
func (l *recordingListener) Completed()           { l.completed = true }
func (l *recordingListener) Aborted()             { l.aborted = true }
func (l *recordingListener) Failed()              { l.failed = true }

func TestRetrieve_Binary(t *testing.T) {
	ms := newMockServer(t)
	content := bytes.Repeat([]byte("x"), 5000)

	ms.on("RETR", func(tc *textproto.Conn, _ string) {
		_ = tc.PrintfLine("150 opening data connection")
	})
	ms.servePASV(t, func(data net.Conn, control *textproto.Conn) {
		_, _ = data.Write(content)
		data.Close()
		_ = control.PrintfLine("226 transfer complete")
	})

	c := dialMock(t, ms)
	require.NoError(t, c.Login("anonymous", "guest"))

	var buf bytes.Buffer
	listener := &recordingListener{}
	require.NoError(t, c.Retrieve("file.bin", &buf, listener))

	assert.Equal(t, content, buf.Bytes())
	assert.True(t, listener.started)
	assert.True(t, listener.completed)
	assert.EqualValues(t, len(content), listener.transferred)
}

func TestStore_Binary(t *testing.T) {
	ms := newMockServer(t)
	content := bytes.Repeat([]byte("y"), 3000)

	received := make(chan []byte, 1)
	ms.on("STOR", func(tc *textproto.Conn, _ string) {
		_ = tc.PrintfLine("150 opening data connection")
	})
	ms.servePASV(t, func(data net.Conn, control *textproto.Conn) {
		buf, _ := io.ReadAll(data)
		received <- buf
		_ = control.PrintfLine("226 transfer complete")
	})

	c := dialMock(t, ms)
	require.NoError(t, c.Login("anonymous", "guest"))

	require.NoError(t, c.Store("file.bin", bytes.NewReader(content)))
	assert.Equal(t, content, <-received)
}

func TestRetrieve_TextualCRLFToLF(t *testing.T) {
	ms := newMockServer(t)
	wire := "line one\r\nline two\r\nline three\r\n"

	ms.on("RETR", func(tc *textproto.Conn, _ string) {
		_ = tc.PrintfLine("150 opening data connection")
	})
	ms.servePASV(t, func(data net.Conn, control *textproto.Conn) {
		_, _ = data.Write([]byte(wire))
		data.Close()
		_ = control.PrintfLine("226 transfer complete")
	})

	c := dialMock(t, ms, WithTransferType(Textual))
	require.NoError(t, c.Login("anonymous", "guest"))

	var buf bytes.Buffer
	require.NoError(t, c.Retrieve("file.txt", &buf))
	assert.Equal(t, "line one\nline two\nline three\n", buf.String())
}

func TestRestartAt_RejectsResumeNotSupported(t *testing.T) {
	ms := newMockServer(t)
	ms.on("REST", func(tc *textproto.Conn, _ string) {
		_ = tc.PrintfLine("502 resume not supported")
	})
	c := dialMock(t, ms)
	require.NoError(t, c.Login("anonymous", "guest"))

	err := c.RestartAt(100)
	require.Error(t, err)
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Contains(t, strings.Join(serverErr.Lines, ""), "Resume is not supported")
}

func TestAbort_StopsInFlightRetrieve(t *testing.T) {
	ms := newMockServer(t)
	dataOpened := make(chan net.Conn, 1)

	ms.on("RETR", func(tc *textproto.Conn, _ string) {
		_ = tc.PrintfLine("150 opening data connection")
	})
	ms.servePASV(t, func(data net.Conn, control *textproto.Conn) {
		_, _ = data.Write([]byte("partial"))
		dataOpened <- data
		// Hold the connection open; the client side is expected to close
		// it via Abort rather than the server ending the stream. Once it
		// does, send the trailing reply a real server sends for the
		// interrupted transfer, which the client always consumes.
		_, _ = io.Copy(io.Discard, data)
		_ = control.PrintfLine("426 transfer aborted")
	})

	c := dialMock(t, ms)
	require.NoError(t, c.Login("anonymous", "guest"))

	var buf bytes.Buffer
	errCh := make(chan error, 1)
	go func() { errCh <- c.Retrieve("big.bin", &buf) }()

	var dataConn net.Conn
	select {
	case dataConn = <-dataOpened:
	case <-time.After(time.Second):
		t.Fatal("data connection never opened")
	}
	t.Cleanup(func() { dataConn.Close() })

	// Give the pump a moment to read the first chunk before aborting.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, c.Abort(false))

	select {
	case err := <-errCh:
		var aborted *AbortedError
		require.ErrorAs(t, err, &aborted)
	case <-time.After(time.Second):
		t.Fatal("Retrieve never returned after Abort")
	}
}

func TestAbort_NoopWhenNoTransferInFlight(t *testing.T) {
	c := &Client{}
	require.NoError(t, c.Abort(false))
}

func TestStore_ServerRejectsTransfer(t *testing.T) {
	ms := newMockServer(t)
	ms.on("STOR", func(tc *textproto.Conn, _ string) {
		_ = tc.PrintfLine("550 permission denied")
	})
	ms.servePASV(t, func(data net.Conn, control *textproto.Conn) {
		data.Close()
	})

	c := dialMock(t, ms)
	require.NoError(t, c.Login("anonymous", "guest"))

	err := c.Store("file.bin", bytes.NewReader([]byte("data")))
	require.Error(t, err)
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, 550, serverErr.Code)
}
