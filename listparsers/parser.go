// Package listparsers provides the directory-listing dialect parsers that
// back the FTP client's LIST parsing registry: Unix long format, DOS/Windows
// format, EPLF and NetWare.
package listparsers

import "time"

// EntryKind classifies a remote directory entry.
type EntryKind int

const (
	File EntryKind = iota
	Dir
	Link
)

// Entry is one remote file or directory, as produced by a Parser.
type Entry struct {
	Name       string
	Size       uint64
	Modified   *time.Time
	Kind       EntryKind
	LinkTarget string
}

// Parser is the list-parser contract: given the ordered, non-empty lines
// of a LIST reply, return the entries they describe, or fail if the lines
// are not in the dialect this parser recognizes.
type Parser interface {
	Parse(lines []string) ([]Entry, error)
}

// ErrUnrecognized is returned by a Parser when the listing is not in its
// dialect. The registry treats it as "try the next parser", not a fatal
// error.
type ErrUnrecognized struct {
	Dialect string
}

func (e *ErrUnrecognized) Error() string {
	return "listparsers: listing is not " + e.Dialect + " format"
}
