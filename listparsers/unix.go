package listparsers

import "strconv"
import "strings"

// Unix parses the traditional `ls -l` style listing: 8- or 9-field lines
// with symbolic or numeric permissions, an optional group column, and
// "name -> target" for symlinks.
type Unix struct{}

func (Unix) Parse(lines []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 8 {
			return nil, &ErrUnrecognized{Dialect: "unix"}
		}
		e, ok := parseUnixLine(fields)
		if !ok {
			return nil, &ErrUnrecognized{Dialect: "unix"}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseUnixLine(fields []string) (Entry, bool) {
	perms := fields[0]

	isSymbolic := len(perms) >= 1 && strings.ContainsRune("-dlbcps", rune(perms[0]))
	isNumeric := len(perms) >= 3 && len(perms) <= 4
	for _, ch := range perms {
		if ch < '0' || ch > '7' {
			isNumeric = false
			break
		}
	}
	if !isSymbolic && !isNumeric {
		return Entry{}, false
	}

	var e Entry
	switch {
	case isSymbolic && perms[0] == 'd':
		e.Kind = Dir
	case isSymbolic && perms[0] == 'l':
		e.Kind = Link
	default:
		e.Kind = File
	}

	var sizeIdx, nameStartIdx int
	switch {
	case len(fields) >= 9 && isSize(fields[4]):
		sizeIdx, nameStartIdx = 4, 8
	case len(fields) >= 8 && isSize(fields[3]):
		sizeIdx, nameStartIdx = 3, 7
	default:
		return Entry{}, false
	}

	size, err := strconv.ParseUint(fields[sizeIdx], 10, 64)
	if err != nil {
		return Entry{}, false
	}
	e.Size = size

	fullName := strings.Join(fields[nameStartIdx:], " ")
	if e.Kind == Link {
		if before, after, ok := strings.Cut(fullName, " -> "); ok {
			e.Name, e.LinkTarget = before, after
		} else {
			e.Name = fullName
		}
	} else {
		e.Name = fullName
	}

	return e, true
}

func isSize(s string) bool {
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}
