// Package connector provides the transport abstraction the ftp client
// dials through: a Connector only needs to hand back a byte-stream
// connection for the control channel and another for each data channel.
package connector

import (
	"context"
	"net"
)

// Connector abstracts the transport used to reach an FTP server. Provided
// implementations are Direct (plain TCP for both channels), TLS (TLS for
// the control channel, plain TCP for data — matching historical FTPS
// behavior), SOCKS (SOCKS5 proxy for the control channel) and HTTPProxy
// (HTTP CONNECT tunnel for the control channel).
//
// A Connector must be safe for repeated use: DialControl is called once
// per session, DialData once per transfer.
type Connector interface {
	DialControl(ctx context.Context, addr string) (net.Conn, error)
	DialData(ctx context.Context, addr string) (net.Conn, error)
}
