package ftp

// Help returns the server's HELP text, optionally for a single command.
func (c *Client) Help(command ...string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var reply *Reply
	var err error
	if len(command) > 0 {
		reply, err = c.control.exchange("HELP", command[0])
	} else {
		reply, err = c.control.exchange("HELP")
	}
	if err != nil {
		return "", err
	}
	if !reply.Is2xx() {
		return "", serverError("HELP", reply.Code, reply.Lines)
	}
	return reply.Message(), nil
}

// ServerStatus sends STAT and returns the status reply's text, with the
// reply-code markers stripped as Reply.Message does. With no
// argument this reports session state; with one, it behaves like LIST but
// over the control connection instead of a data connection.
func (c *Client) ServerStatus(path ...string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var reply *Reply
	var err error
	if len(path) > 0 {
		reply, err = c.control.exchange("STAT", path[0])
	} else {
		reply, err = c.control.exchange("STAT")
	}
	if err != nil {
		return "", err
	}
	if !reply.IsSuccess() {
		return "", serverError("STAT", reply.Code, reply.Lines)
	}
	return reply.Message(), nil
}

// SendSite issues a SITE subcommand, for server-specific extensions not
// otherwise wrapped (quotas, CHMOD, and the like).
func (c *Client) SendSite(args ...string) (*Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.control.exchange("SITE", args...)
}

// ChangeAccount sends a standalone ACCT command, for servers that accept a
// change of accounting information after login rather than only during it.
func (c *Client) ChangeAccount(account string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendAccount(account)
}
