package source

import (
	"bytes"
	"fmt"
	"path/filepath"

	"fortio.org/safecast"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMLen is the length of the UTF-8 byte order mark.
const BOMLen = 3

// HasBOM reports whether content starts with a UTF-8 byte order mark.
func HasBOM(content []byte) bool {
	return bytes.HasPrefix(content, utf8BOM)
}

// Off converts an int offset into the uint32 used by spans.
// Файлы больше 4GiB не поддерживаются, переполнение считается ошибкой программиста.
func Off(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("offset overflow: %w", err))
	}
	return v
}

func buildLineIndex(content []byte) []uint32 {
	out := make([]uint32, 0, bytes.Count(content, []byte{'\n'}))
	for i, b := range content {
		if b == '\n' {
			out = append(out, Off(i))
		}
	}
	return out
}

func toLineCol(lineIdx []uint32, off uint32) LineCol {
	// Если LineIdx пустой, то весь файл - одна строка
	if len(lineIdx) == 0 {
		return LineCol{Line: 1, Col: off + 1}
	}

	// бинпоиск: находим наибольший lineIdx[i] < off
	lo, hi := 0, len(lineIdx)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		if lineIdx[mid] < off {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	line := hi // индекс последнего \n перед off

	if line < 0 {
		return LineCol{Line: 1, Col: off + 1}
	}

	startOff := lineIdx[line] + 1
	return LineCol{Line: Off(line + 2), Col: off - startOff + 1}
}

func normalizePath(p string) string {
	// единый вид в кроссплатформенных дифах
	return filepath.ToSlash(filepath.Clean(p))
}
