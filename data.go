package ftp

import (
	"context"
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// sextupleRegex matches the six comma-separated integers used by both PASV
// replies and PORT commands: h1,h2,h3,h4,p1,p2.
var sextupleRegex = regexp.MustCompile(`(\d{1,3}),(\d{1,3}),(\d{1,3}),(\d{1,3}),(\d{1,3}),(\d{1,3})`)

// dataProvider is the data endpoint factory's product: a one-shot producer
// of a single data connection. open may be called at most once; dispose is
// always safe and idempotent.
type dataProvider interface {
	open(ctx context.Context) (net.Conn, error)
	dispose()
}

// passiveProvider dials the address the server gave us in its PASV reply.
type passiveProvider struct {
	client *Client
	addr   string
	used   bool
}

func (p *passiveProvider) open(ctx context.Context) (net.Conn, error) {
	if p.used {
		return nil, &IllegalStateError{Op: "open data connection", Reason: "provider already used"}
	}
	p.used = true
	conn, err := p.client.connector.DialData(ctx, p.addr)
	if err != nil {
		return nil, &IOError{Op: "dial data connection", Err: err}
	}
	if p.client.timeout > 0 {
		return &deadlineConn{Conn: conn, timeout: p.client.timeout}, nil
	}
	return conn, nil
}

func (p *passiveProvider) dispose() {}

// activeProvider accepts exactly one inbound connection on an ephemeral
// listener the client bound and advertised via PORT.
type activeProvider struct {
	client   *Client
	listener net.Listener
	used     bool
}

func (a *activeProvider) open(ctx context.Context) (net.Conn, error) {
	if a.used {
		return nil, &IllegalStateError{Op: "open data connection", Reason: "provider already used"}
	}
	a.used = true
	defer a.listener.Close()

	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := a.listener.Accept()
		ch <- result{conn, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, &IOError{Op: "accept data connection", Err: r.err}
		}
		if a.client.timeout > 0 {
			return &deadlineConn{Conn: r.conn, timeout: a.client.timeout}, nil
		}
		return r.conn, nil
	case <-ctx.Done():
		a.listener.Close()
		return nil, &IOError{Op: "accept data connection", Err: ctx.Err()}
	}
}

func (a *activeProvider) dispose() {
	if !a.used {
		a.listener.Close()
	}
}

// openDataEndpoint negotiates a data endpoint per the session's active/
// passive flag, sending PASV or PORT and parsing the server's reply.
func (c *Client) openDataEndpoint(ctx context.Context) (dataProvider, error) {
	if c.activeMode {
		return c.openActiveEndpoint(ctx)
	}
	return c.openPassiveEndpoint(ctx)
}

func (c *Client) openPassiveEndpoint(ctx context.Context) (dataProvider, error) {
	reply, err := c.control.exchange("PASV")
	if err != nil {
		return nil, err
	}
	if !reply.Is2xx() {
		return nil, serverError("PASV", reply.Code, reply.Lines)
	}

	addr, err := parseSextuple(reply.Message())
	if err != nil {
		return nil, &IllegalReplyError{Op: "PASV", Detail: err.Error()}
	}
	addr = substituteZeroHost(addr, c.host)

	return &passiveProvider{client: c, addr: addr}, nil
}

func (c *Client) openActiveEndpoint(ctx context.Context) (dataProvider, error) {
	host := c.activeHostAddress()

	listener, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		listener, err = net.Listen("tcp", ":0")
		if err != nil {
			return nil, &IOError{Op: "listen for active data connection", Err: err}
		}
	}

	// Advertise the chosen host, which may be an override that is not a
	// local interface, with the port the listener actually bound.
	_, localPort, _ := net.SplitHostPort(listener.Addr().String())
	portCmd, err := formatPORT(net.JoinHostPort(host, localPort))
	if err != nil {
		listener.Close()
		return nil, &IllegalReplyError{Op: "PORT", Detail: err.Error()}
	}

	reply, err := c.control.exchange("PORT", portCmd)
	if err != nil {
		listener.Close()
		return nil, err
	}
	if !reply.Is2xx() {
		listener.Close()
		return nil, serverError("PORT", reply.Code, reply.Lines)
	}

	return &activeProvider{client: c, listener: listener}, nil
}

// activeHostAddress picks the local address to advertise in PORT: the
// ACTIVE_DT_HOST_ADDRESS override if set and valid, else the control
// connection's local interface address. Invalid overrides are ignored
// with a logged warning.
func (c *Client) activeHostAddress() string {
	override := c.config.ActiveHostAddress
	if override == "" {
		override = os.Getenv("ACTIVE_DT_HOST_ADDRESS")
	}
	if override != "" {
		if validDottedQuad(override) {
			return override
		}
		c.logger.Warn("ignoring invalid ACTIVE_DT_HOST_ADDRESS override", "value", override)
	}

	local := c.control.conn.LocalAddr().String()
	host, _, err := net.SplitHostPort(local)
	if err != nil {
		return "127.0.0.1"
	}
	return host
}

func validDottedQuad(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return false
		}
	}
	return true
}

// parseSextuple extracts the first h1,h2,h3,h4,p1,p2 run from a reply
// message and forms "host:port".
func parseSextuple(msg string) (string, error) {
	m := sextupleRegex.FindStringSubmatch(msg)
	if m == nil {
		return "", fmt.Errorf("no address sextuple found in %q", msg)
	}

	var octets [4]int
	for i := 0; i < 4; i++ {
		v, err := strconv.Atoi(m[i+1])
		if err != nil || v < 0 || v > 255 {
			return "", fmt.Errorf("invalid address octet %q", m[i+1])
		}
		octets[i] = v
	}
	p1, err1 := strconv.Atoi(m[5])
	p2, err2 := strconv.Atoi(m[6])
	if err1 != nil || err2 != nil || p1 < 0 || p1 > 255 || p2 < 0 || p2 > 255 {
		return "", fmt.Errorf("invalid port octets %q,%q", m[5], m[6])
	}

	host := fmt.Sprintf("%d.%d.%d.%d", octets[0], octets[1], octets[2], octets[3])
	port := p1*256 + p2
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// substituteZeroHost replaces a 0.0.0.0 PASV host with the control
// connection's host, a common NAT workaround.
func substituteZeroHost(addr, controlHost string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "0.0.0.0" {
		return net.JoinHostPort(controlHost, port)
	}
	return addr
}

// formatPORT renders a local listener address as the h1,h2,h3,h4,p1,p2
// argument to the PORT command.
func formatPORT(addr string) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return "", fmt.Errorf("invalid local address %q", host)
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return "", fmt.Errorf("PORT requires an IPv4 address, got %q", host)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("invalid local port %q", portStr)
	}
	return fmt.Sprintf("%d,%d,%d,%d,%d,%d", ip4[0], ip4[1], ip4[2], ip4[3], port/256, port%256), nil
}
