package listparsers

import "strconv"
import "strings"

// DOS parses the DOS/Windows style listing used by IIS and similar
// servers: "MM-DD-YY  HH:MMAM/PM  size|<DIR>  name".
type DOS struct{}

func (DOS) Parse(lines []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 4 || !isDOSDate(fields[0]) {
			return nil, &ErrUnrecognized{Dialect: "dos"}
		}
		e, ok := parseDOSLine(fields)
		if !ok {
			return nil, &ErrUnrecognized{Dialect: "dos"}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func isDOSDate(s string) bool {
	var parts []string
	switch {
	case strings.Contains(s, "-"):
		parts = strings.Split(s, "-")
	case strings.Contains(s, "/"):
		parts = strings.Split(s, "/")
	default:
		return false
	}
	if len(parts) != 3 {
		return false
	}
	for i, part := range parts {
		if len(part) < 1 || len(part) > 4 {
			return false
		}
		if i == 2 && len(part) != 2 && len(part) != 4 {
			return false
		}
		if i < 2 && len(part) > 2 {
			return false
		}
		for _, ch := range part {
			if ch < '0' || ch > '9' {
				return false
			}
		}
	}
	return true
}

func parseDOSLine(fields []string) (Entry, bool) {
	var e Entry
	if fields[2] == "<DIR>" {
		e.Kind = Dir
		e.Name = strings.Join(fields[3:], " ")
		return e, true
	}

	size, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return Entry{}, false
	}
	e.Kind = File
	e.Size = size
	e.Name = strings.Join(fields[3:], " ")
	return e, true
}
