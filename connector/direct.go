package connector

import (
	"context"
	"net"
)

// Direct dials plain TCP for both the control and data channels.
type Direct struct {
	Dialer net.Dialer
}

func (d *Direct) DialControl(ctx context.Context, addr string) (net.Conn, error) {
	return d.Dialer.DialContext(ctx, "tcp", addr)
}

func (d *Direct) DialData(ctx context.Context, addr string) (net.Conn, error) {
	return d.Dialer.DialContext(ctx, "tcp", addr)
}
