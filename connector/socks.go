package connector

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/proxy"
)

// SOCKS dials the control channel through a SOCKS5 proxy. The data
// channel dials directly, since the PASV/PORT address negotiated with the
// server is not reachable from behind the proxy in the classic
// FTP-over-SOCKS deployment this mirrors.
type SOCKS struct {
	ProxyAddr string
	Auth      *proxy.Auth
	Dialer    net.Dialer
}

func (s *SOCKS) DialControl(ctx context.Context, addr string) (net.Conn, error) {
	dialer, err := proxy.SOCKS5("tcp", s.ProxyAddr, s.Auth, &s.Dialer)
	if err != nil {
		return nil, fmt.Errorf("connector: socks5 setup: %w", err)
	}
	if ctxDialer, ok := dialer.(proxy.ContextDialer); ok {
		return ctxDialer.DialContext(ctx, "tcp", addr)
	}
	return dialer.Dial("tcp", addr)
}

func (s *SOCKS) DialData(ctx context.Context, addr string) (net.Conn, error) {
	return s.Dialer.DialContext(ctx, "tcp", addr)
}
