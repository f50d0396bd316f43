package ftp

import (
	"net"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_UnixListing(t *testing.T) {
	ms := newMockServer(t)
	ms.on("LIST", func(tc *textproto.Conn, _ string) {
		_ = tc.PrintfLine("150 opening data connection")
	})
	ms.servePASV(t, func(data net.Conn, control *textproto.Conn) {
		lines := "drwxr-xr-x 2 owner group 4096 Jan 15 10:30 pub\r\n" +
			"-rw-r--r-- 1 owner group  128 Jan 15 10:31 readme.txt\r\n"
		_, _ = data.Write([]byte(lines))
		data.Close()
		_ = control.PrintfLine("226 transfer complete")
	})

	c := dialMock(t, ms)
	require.NoError(t, c.Login("anonymous", "guest"))

	entries, err := c.List("")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "pub", entries[0].Name)
	assert.Equal(t, "readme.txt", entries[1].Name)
}

func TestList_UnparseableListingFails(t *testing.T) {
	ms := newMockServer(t)
	ms.on("LIST", func(tc *textproto.Conn, _ string) {
		_ = tc.PrintfLine("150 opening data connection")
	})
	ms.servePASV(t, func(data net.Conn, control *textproto.Conn) {
		_, _ = data.Write([]byte("this is not any known listing dialect at all\r\n"))
		data.Close()
		_ = control.PrintfLine("226 transfer complete")
	})

	c := dialMock(t, ms)
	require.NoError(t, c.Login("anonymous", "guest"))

	_, err := c.List("")
	require.Error(t, err)
	var parseErr *ListParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestNameList(t *testing.T) {
	ms := newMockServer(t)
	ms.on("NLST", func(tc *textproto.Conn, _ string) {
		_ = tc.PrintfLine("150 opening data connection")
	})
	ms.servePASV(t, func(data net.Conn, control *textproto.Conn) {
		_, _ = data.Write([]byte("a.txt\r\nb.txt\r\n"))
		data.Close()
		_ = control.PrintfLine("226 transfer complete")
	})

	c := dialMock(t, ms)
	require.NoError(t, c.Login("anonymous", "guest"))

	names, err := c.NameList("")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)
}

func TestCurrentDir(t *testing.T) {
	ms := newMockServer(t)
	ms.on("PWD", func(tc *textproto.Conn, _ string) {
		_ = tc.PrintfLine(`257 "/home/user" is the current directory`)
	})
	c := dialMock(t, ms)
	require.NoError(t, c.Login("anonymous", "guest"))

	dir, err := c.CurrentDir()
	require.NoError(t, err)
	assert.Equal(t, "/home/user", dir)
}

func TestCurrentDir_EscapedQuote(t *testing.T) {
	ms := newMockServer(t)
	ms.on("PWD", func(tc *textproto.Conn, _ string) {
		_ = tc.PrintfLine(`257 "/home/user""s dir" is the current directory`)
	})
	c := dialMock(t, ms)
	require.NoError(t, c.Login("anonymous", "guest"))

	dir, err := c.CurrentDir()
	require.NoError(t, err)
	assert.Equal(t, `/home/user"s dir`, dir)
}

func TestMakeDir(t *testing.T) {
	ms := newMockServer(t)
	ms.on("MKD", func(tc *textproto.Conn, _ string) {
		_ = tc.PrintfLine(`257 "/home/user/newdir" created`)
	})
	c := dialMock(t, ms)
	require.NoError(t, c.Login("anonymous", "guest"))

	path, err := c.MakeDir("newdir")
	require.NoError(t, err)
	assert.Equal(t, "/home/user/newdir", path)
}

func TestRename(t *testing.T) {
	ms := newMockServer(t)
	ms.on("RNFR", func(tc *textproto.Conn, _ string) {
		_ = tc.PrintfLine("350 ready for RNTO")
	})
	ms.on("RNTO", func(tc *textproto.Conn, _ string) {
		_ = tc.PrintfLine("250 renamed")
	})
	c := dialMock(t, ms)
	require.NoError(t, c.Login("anonymous", "guest"))
	require.NoError(t, c.Rename("old.txt", "new.txt"))
}

func TestSize(t *testing.T) {
	ms := newMockServer(t)
	ms.on("SIZE", func(tc *textproto.Conn, _ string) {
		_ = tc.PrintfLine("213 1037794")
	})
	c := dialMock(t, ms)
	require.NoError(t, c.Login("anonymous", "guest"))

	size, err := c.Size("file.bin")
	require.NoError(t, err)
	assert.EqualValues(t, 1037794, size)
}

func TestModTime(t *testing.T) {
	ms := newMockServer(t)
	ms.on("MDTM", func(tc *textproto.Conn, _ string) {
		_ = tc.PrintfLine("213 20231220143000")
	})
	c := dialMock(t, ms)
	require.NoError(t, c.Login("anonymous", "guest"))

	modTime, err := c.ModTime("file.txt")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 20, 14, 30, 0, 0, time.UTC), modTime)
}

func TestDelete_ServerError(t *testing.T) {
	ms := newMockServer(t)
	ms.on("DELE", func(tc *textproto.Conn, _ string) {
		_ = tc.PrintfLine("550 file not found")
	})
	c := dialMock(t, ms)
	require.NoError(t, c.Login("anonymous", "guest"))

	err := c.Delete("missing.txt")
	require.Error(t, err)
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
}
