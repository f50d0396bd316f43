package ftp

import (
	"fmt"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
)

// mockServer scripts a minimal FTP server for exercising the client against
// real sockets instead of stubbing the control channel. Tests register a
// handler per command; unregistered commands fall back to a small set of
// defaults good enough to get through USER/PASS/TYPE/QUIT.
type mockServer struct {
	listener net.Listener
	addr     string

	handlers map[string]func(conn *textproto.Conn, args string)

	dataListener net.Listener

	done         chan struct{}
	controlReady chan struct{}
	control      *textproto.Conn
}

func newMockServer(t *testing.T) *mockServer {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	return &mockServer{
		listener:     l,
		addr:         l.Addr().String(),
		handlers:     make(map[string]func(*textproto.Conn, string)),
		done:         make(chan struct{}),
		controlReady: make(chan struct{}),
	}
}

func (s *mockServer) on(cmd string, fn func(conn *textproto.Conn, args string)) {
	s.handlers[strings.ToUpper(cmd)] = fn
}

func (s *mockServer) start() {
	go func() {
		defer close(s.done)
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		fmt.Fprint(conn, "220 mock FTP ready\r\n")

		tc := textproto.NewConn(conn)
		defer tc.Close()
		s.control = tc
		close(s.controlReady)

		for {
			line, err := tc.ReadLine()
			if err != nil {
				return
			}
			parts := strings.SplitN(line, " ", 2)
			cmd := strings.ToUpper(parts[0])
			args := ""
			if len(parts) > 1 {
				args = parts[1]
			}

			if handler, ok := s.handlers[cmd]; ok {
				handler(tc, args)
				continue
			}

			switch cmd {
			case "USER":
				_ = tc.PrintfLine("331 password please")
			case "PASS":
				_ = tc.PrintfLine("230 logged in")
			case "TYPE":
				_ = tc.PrintfLine("200 type set")
			case "REST":
				_ = tc.PrintfLine("350 restart position accepted")
			case "FEAT":
				_ = tc.PrintfLine("211-Features:\r\n UTF8\r\n211 END")
			case "OPTS":
				_ = tc.PrintfLine("200 UTF8 set to on")
			case "QUIT":
				_ = tc.PrintfLine("221 bye")
				return
			default:
				_ = tc.PrintfLine("502 not implemented")
			}
		}
	}()
}

func (s *mockServer) stop() {
	s.listener.Close()
	if s.dataListener != nil {
		s.dataListener.Close()
	}
	<-s.done
}

// servePASV registers a PASV handler that opens an ephemeral data listener
// on 127.0.0.1 and replies with its sextuple. onAccept receives the
// accepted data connection plus the control connection, so it can drive
// the data stream and then write the transfer's final control reply
// itself (mirroring how a real server interleaves the two).
func (s *mockServer) servePASV(t *testing.T, onAccept func(data net.Conn, control *textproto.Conn)) {
	dl, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s.dataListener = dl

	s.on("PASV", func(tc *textproto.Conn, _ string) {
		_, portStr, _ := net.SplitHostPort(dl.Addr().String())
		port, _ := strconv.Atoi(portStr)
		_ = tc.PrintfLine("227 Entering Passive Mode (127,0,0,1,%d,%d)", port/256, port%256)

		go func() {
			conn, err := dl.Accept()
			if err != nil {
				return
			}
			<-s.controlReady
			onAccept(conn, s.control)
		}()
	})
}
