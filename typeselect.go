package ftp

import "strings"

// TransferType is the session's configured representation type.
type TransferType int

const (
	// Auto selects TEXTUAL or BINARY per-transfer from the filename
	// extension via the configured TextualExtensionRecognizer.
	Auto TransferType = iota
	Textual
	Binary
)

// TextualExtensionRecognizer decides whether a lowercased filename
// extension (without the leading dot) should be transferred as TYPE A.
// The extension-to-type table itself is a pluggable concern: callers
// needing anything beyond the small default below should supply their
// own recognizer via WithTextualExtensionRecognizer.
type TextualExtensionRecognizer interface {
	IsTextual(ext string) bool
}

// defaultTextualExtensions is a minimal usable default, not an exhaustive
// table; the recognizer is replaceable precisely because this table can
// never be complete.
type defaultTextualExtensions struct{}

var defaultExtensions = map[string]bool{
	"txt": true, "htm": true, "html": true, "xml": true, "csv": true,
	"json": true, "md": true, "log": true, "ini": true, "conf": true,
	"cfg": true, "yaml": true, "yml": true, "sql": true, "go": true,
	"c": true, "h": true, "java": true, "py": true, "sh": true,
}

func (defaultTextualExtensions) IsTextual(ext string) bool {
	return defaultExtensions[ext]
}

// effectiveType resolves the AUTO type for a given remote filename, or
// returns the explicitly configured type unchanged.
func (c *Client) effectiveType(configured TransferType, name string) TransferType {
	if configured != Auto {
		return configured
	}

	base := name
	if idx := strings.LastIndexByte(base, '/'); idx != -1 {
		base = base[idx+1:]
	}
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 || dot == len(base)-1 {
		return Binary
	}
	ext := strings.ToLower(base[dot+1:])
	if c.recognizer.IsTextual(ext) {
		return Textual
	}
	return Binary
}

func typeCode(t TransferType) string {
	if t == Textual {
		return "A"
	}
	return "I"
}
