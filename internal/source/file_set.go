package source

import (
	"crypto/sha256"
	"sync"
)

// FileSet manages a collection of source files and resolves spans into
// line/column positions. It is safe for concurrent use: files are
// immutable once added.
type FileSet struct {
	mu    sync.RWMutex
	files []*File
	index map[string]FileID // path -> latest id
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]*File, 0),
		index: make(map[string]FileID),
	}
}

// NewFile builds a standalone file that is not registered in any set.
func NewFile(id FileID, path string, content []byte, flags FileFlags) *File {
	if HasBOM(content) {
		flags |= FileHadBOM
	}
	return &File{
		ID:      id,
		Path:    normalizePath(path),
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	}
}

// Add stores a file, computes LineIdx and Hash, and returns a new FileID.
// It always creates a new FileID even if a file with the same path already exists.
func (fileSet *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	fileSet.mu.Lock()
	defer fileSet.mu.Unlock()

	id := FileID(Off(len(fileSet.files)))
	f := NewFile(id, path, content, flags)
	fileSet.files = append(fileSet.files, f)
	// Всегда обновляем индекс на последнюю версию файла
	fileSet.index[f.Path] = id
	return id
}

// AddVirtual adds a virtual file (stdin, test, or generated) with the FileVirtual flag.
func (fileSet *FileSet) AddVirtual(name string, content []byte) FileID {
	return fileSet.Add(name, content, FileVirtual)
}

// Get returns the file metadata for the given ID.
func (fileSet *FileSet) Get(id FileID) *File {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	return fileSet.files[id]
}

// Len returns the number of stored file versions.
func (fileSet *FileSet) Len() int {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	return len(fileSet.files)
}

// GetLatest returns the latest file ID for the given path, if it exists.
func (fileSet *FileSet) GetLatest(path string) (FileID, bool) {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	id, ok := fileSet.index[normalizePath(path)]
	return id, ok
}

// Resolve converts a span into line and column positions.
func (fileSet *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fileSet.Get(span.File)
	return f.Position(span.Start), f.Position(span.End)
}

// Position converts a byte offset into a line/column pair.
func (f *File) Position(off uint32) LineCol {
	return toLineCol(f.LineIdx, off)
}

// Len returns the content length as a span offset.
func (f *File) Len() uint32 {
	return Off(len(f.Content))
}

// Span returns a span of this file.
func (f *File) Span(start, end int) Span {
	return Span{File: f.ID, Start: Off(start), End: Off(end)}
}

// Text returns the bytes covered by span as a string.
// Выход за границы обрезается, а не паникует.
func (f *File) Text(span Span) string {
	end := min(span.End, f.Len())
	start := min(span.Start, end)
	return string(f.Content[start:end])
}

// GetLine возвращает строку с заданным номером (1-based) из файла.
// Если строка не существует, возвращает пустую строку.
func (f *File) GetLine(lineNum uint32) string {
	if lineNum == 0 {
		return ""
	}
	lenLineIdx := Off(len(f.LineIdx))
	lenContent := f.Len()

	var start, end uint32
	switch {
	case lineNum == 1:
		start = 0
	case lineNum-2 < lenLineIdx:
		start = f.LineIdx[lineNum-2] + 1
	default:
		return ""
	}

	if lineNum-1 < lenLineIdx {
		end = f.LineIdx[lineNum-1]
	} else {
		end = lenContent
	}
	if start > lenContent {
		return ""
	}
	line := f.Content[start:end]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return string(line)
}
