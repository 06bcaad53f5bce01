package source

import (
	"fmt"
)

// Span is a half-open byte range [Start, End) inside one file.
type Span struct {
	File  FileID
	Start uint32 // в байтах включительно
	End   uint32 // в байтах не включительно
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Cover returns the smallest span containing both s and other.
func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

// Contains reports whether off lies inside the span.
func (s Span) Contains(off uint32) bool {
	return off >= s.Start && off < s.End
}

// Within reports whether s lies completely inside outer.
func (s Span) Within(outer Span) bool {
	return s.File == outer.File && s.Start >= outer.Start && s.End <= outer.End
}

// Overlaps reports whether two spans share at least one byte.
// Две пустые вставки в одну точку тоже считаются пересечением.
func (s Span) Overlaps(other Span) bool {
	if s.File != other.File {
		return false
	}
	if s.Empty() || other.Empty() {
		if s.Empty() && other.Empty() {
			return s.Start == other.Start
		}
		if s.Empty() {
			return s.Start > other.Start && s.Start < other.End
		}
		return other.Start > s.Start && other.Start < s.End
	}
	return s.Start < other.End && other.Start < s.End
}

// Sub returns the span of [start, end) relative to s.Start.
func (s Span) Sub(start, end int) Span {
	return Span{
		File:  s.File,
		Start: s.Start + Off(start),
		End:   s.Start + Off(end),
	}
}

func (s Span) ShiftRight(n uint32) Span {
	return Span{
		File:  s.File,
		Start: s.Start + n,
		End:   s.End + n,
	}
}
