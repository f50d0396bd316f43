package ftp

import "github.com/mistnet/ftp/listparsers"

// parseListing tries the cached parser first if one exists; on a fresh
// connection (no cached parser yet) it tries each registered parser in
// order and memoizes the first to succeed. Once a parser is cached, it is
// never re-probed: a later failure is reported outright, matching the
// canonical behavior this mirrors and avoiding dialect flipping between
// listings.
func (c *Client) parseListing(lines []string) ([]listparsers.Entry, error) {
	if c.cachedParser != nil {
		entries, err := c.cachedParser.Parse(lines)
		if err != nil {
			return nil, &ListParseError{Lines: lines}
		}
		return entries, nil
	}

	for _, p := range c.parsers {
		entries, err := p.Parse(lines)
		if err == nil {
			c.cachedParser = p
			return entries, nil
		}
	}
	return nil, &ListParseError{Lines: lines}
}

func defaultParsers() []listparsers.Parser {
	return []listparsers.Parser{
		listparsers.Unix{},
		listparsers.DOS{},
		listparsers.EPLF{},
		listparsers.NetWare{},
	}
}
