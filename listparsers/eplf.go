package listparsers

import "strconv"
import "strings"

// EPLF parses the Easily Parsed List Format: "+facts\tname" where facts is
// a comma-separated run of single-letter tags (s=size, /=directory, and so
// on).
type EPLF struct{}

func (EPLF) Parse(lines []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if !strings.HasPrefix(line, "+") {
			return nil, &ErrUnrecognized{Dialect: "eplf"}
		}
		e, ok := parseEPLFLine(line)
		if !ok {
			return nil, &ErrUnrecognized{Dialect: "eplf"}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseEPLFLine(line string) (Entry, bool) {
	line = line[1:]

	idx := strings.IndexAny(line, "\t ")
	if idx == -1 {
		return Entry{}, false
	}
	facts := line[:idx]
	name := strings.TrimSpace(line[idx+1:])
	if name == "" {
		return Entry{}, false
	}

	e := Entry{Name: name, Kind: File}
	for _, fact := range strings.Split(facts, ",") {
		if fact == "" {
			continue
		}
		switch fact[0] {
		case '/':
			e.Kind = Dir
		case 's':
			if len(fact) > 1 {
				if size, err := strconv.ParseUint(fact[1:], 10, 64); err == nil {
					e.Size = size
				}
			}
		}
	}
	return e, true
}
