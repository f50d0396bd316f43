package listparsers

import "strconv"
import "strings"

// NetWare parses the Novell NetWare FTP server listing format:
// "d [RWCEAFMS] owner size month day time/year name" where the leading
// column is "d" for directories or "-" for files, followed by a bracketed
// rights mask.
type NetWare struct{}

func (NetWare) Parse(lines []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 7 {
			return nil, &ErrUnrecognized{Dialect: "netware"}
		}
		e, ok := parseNetWareLine(fields)
		if !ok {
			return nil, &ErrUnrecognized{Dialect: "netware"}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseNetWareLine(fields []string) (Entry, bool) {
	kindCol := fields[0]
	if kindCol != "d" && kindCol != "-" {
		return Entry{}, false
	}
	if !strings.HasPrefix(fields[1], "[") || !strings.HasSuffix(fields[1], "]") {
		return Entry{}, false
	}

	// fields: kind, [rights], owner, size, month, day, time/year, name...
	if len(fields) < 8 {
		return Entry{}, false
	}
	size, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return Entry{}, false
	}

	e := Entry{Size: size, Name: strings.Join(fields[7:], " ")}
	if kindCol == "d" {
		e.Kind = Dir
	} else {
		e.Kind = File
	}
	return e, true
}
