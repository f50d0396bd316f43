package connector

import (
	"context"
	"crypto/tls"
	"net"
)

// TLS dials the control channel through a TLS handshake and the data
// channel as plain TCP, matching the historical FTPS connector shape:
// command-channel security does not imply data-channel security.
type TLS struct {
	Dialer net.Dialer
	Config *tls.Config
}

func (t *TLS) DialControl(ctx context.Context, addr string) (net.Conn, error) {
	conn, err := t.Dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	tlsConn := tls.Client(conn, t.Config)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

func (t *TLS) DialData(ctx context.Context, addr string) (net.Conn, error) {
	return t.Dialer.DialContext(ctx, "tcp", addr)
}
