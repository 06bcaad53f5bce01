package source

type (
	// FileID uniquely identifies a source file within a FileSet.
	FileID uint32
	// FileFlags encodes metadata about a source file.
	FileFlags uint8
)

const (
	// FileVirtual indicates the file was added from memory (test, stdin, etc.).
	FileVirtual FileFlags = 1 << iota
	// FileHadBOM marks content that starts with a UTF-8 byte order mark.
	FileHadBOM
	// FileRewritten marks content produced by the auto-fix rewriter.
	FileRewritten
)

// File captures metadata and content for a single source file.
// Content is kept byte-for-byte: offsets in findings always point into it.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol represents a human-readable position in a source file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based, в байтах
}
