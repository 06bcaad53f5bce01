package lexer

import (
	"fmt"
	"unicode/utf8"

	"liquidlint/internal/source"
	"liquidlint/internal/token"
)

const (
	EncodingUTF8    = "utf-8"
	EncodingUTF8BOM = "utf-8-bom"
)

// Unit is one scanned template file.
type Unit struct {
	File     *source.File
	Encoding string
	Start    uint32 // первый байт после BOM
	Tokens   []token.Token
	Regions  []token.Region
}

// Path returns the path of the underlying file.
func (u *Unit) Path() string { return u.File.Path }

// RegionAt returns the fenced region whose body contains off.
func (u *Unit) RegionAt(off uint32) (token.Region, bool) {
	for _, r := range u.Regions {
		if r.Body.Contains(off) {
			return r, true
		}
	}
	return token.Region{}, false
}

// RegionsOf returns regions of the given kind in source order.
func (u *Unit) RegionsOf(kind token.RegionKind) []token.Region {
	var out []token.Region
	for _, r := range u.Regions {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Text returns the source text covered by sp.
func (u *Unit) Text(sp source.Span) string { return u.File.Text(sp) }

// EncodingError aborts analysis of a single file whose bytes are not
// valid UTF-8 or contain NUL.
type EncodingError struct {
	Path   string
	Offset uint32
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: byte %d: %s", e.Path, e.Offset, e.Reason)
}

func checkEncoding(f *source.File) error {
	content := f.Content
	for off := 0; off < len(content); {
		b := content[off]
		if b == 0 {
			return &EncodingError{Path: f.Path, Offset: source.Off(off), Reason: "NUL byte"}
		}
		if b < utf8.RuneSelf {
			off++
			continue
		}
		r, size := utf8.DecodeRune(content[off:])
		if r == utf8.RuneError && size <= 1 {
			return &EncodingError{Path: f.Path, Offset: source.Off(off), Reason: "invalid UTF-8 sequence"}
		}
		off += size
	}
	return nil
}

// trimRange narrows [start, end) to exclude surrounding ASCII whitespace.
func trimRange(content []byte, start, end uint32) (uint32, uint32) {
	for start < end && isSpace(content[start]) {
		start++
	}
	for end > start && isSpace(content[end-1]) {
		end--
	}
	return start, end
}

func isNameStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isNameByte(b byte) bool {
	return isNameStart(b) || (b >= '0' && b <= '9')
}

// readName returns the end offset of the tag name starting at off.
func readName(content []byte, off, end uint32) uint32 {
	if off < end && content[off] == '#' {
		return off + 1
	}
	if off >= end || !isNameStart(content[off]) {
		return off
	}
	for off < end && isNameByte(content[off]) {
		off++
	}
	return off
}
