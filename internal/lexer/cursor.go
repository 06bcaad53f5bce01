package lexer

import (
	"bytes"
	"fmt"

	"fortio.org/safecast"

	"liquidlint/internal/source"
)

// Cursor представляет собой позицию в файле
type Cursor struct {
	File *source.File
	Off  uint32
	// Limit is the exclusive upper bound for Off; defaults to len(File.Content).
	Limit uint32
}

// NewCursor creates a new cursor for the provided file.
func NewCursor(f *source.File) Cursor {
	limit, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("len file content overflow: %w", err))
	}
	return Cursor{
		File:  f,
		Off:   0,
		Limit: limit,
	}
}

// EOF проверяет, достигнут ли конец файла
func (c *Cursor) EOF() bool {
	return c.Off >= c.Limit
}

// Peek читает текущий байт, если есть, иначе возвращает 0
func (c *Cursor) Peek() byte {
	if c.EOF() {
		return 0
	}
	return c.File.Content[c.Off]
}

// PeekAt читает байт по абсолютному смещению, 0 за пределами
func (c *Cursor) PeekAt(off uint32) byte {
	if off >= c.Limit {
		return 0
	}
	return c.File.Content[off]
}

// Bump перемещает курсор на один байт вперед и возвращает прочитанный байт
func (c *Cursor) Bump() byte {
	if c.EOF() {
		return 0
	}
	b := c.File.Content[c.Off]
	c.Off++
	return b
}

// Advance moves the cursor n bytes forward, stopping at Limit.
func (c *Cursor) Advance(n uint32) {
	c.Off = min(c.Off+n, c.Limit)
}

// Mark это метка, что бы быстро получать Span читаемого фрагмента
type Mark uint32

// Mark сохраняет текущую позицию курсора
func (c *Cursor) Mark() Mark {
	return Mark(c.Off)
}

// SpanFrom получает Span для фрагмента, начиная с метки
func (c *Cursor) SpanFrom(m Mark) source.Span {
	return source.Span{
		File:  c.File.ID,
		Start: uint32(m),
		End:   c.Off,
	}
}

// Reset возвращает курсор назад к метке
func (c *Cursor) Reset(m Mark) {
	c.Off = uint32(m)
}

// Eat consumes the next byte if it matches the provided byte.
func (c *Cursor) Eat(b byte) bool {
	if !c.EOF() && c.File.Content[c.Off] == b {
		c.Off++
		return true
	}
	return false
}

// HasPrefix reports whether the unread input starts with s.
func (c *Cursor) HasPrefix(s string) bool {
	return bytes.HasPrefix(c.File.Content[c.Off:c.Limit], []byte(s))
}

// Index returns the absolute offset of the next s at or after from, or -1.
func (c *Cursor) Index(from uint32, s string) int {
	if from >= c.Limit {
		return -1
	}
	i := bytes.Index(c.File.Content[from:c.Limit], []byte(s))
	if i < 0 {
		return -1
	}
	return int(from) + i
}

// SkipSpaces consumes ASCII whitespace.
func (c *Cursor) SkipSpaces() {
	for !c.EOF() && isSpace(c.File.Content[c.Off]) {
		c.Off++
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}
