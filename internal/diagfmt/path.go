package diagfmt

import (
	"path/filepath"

	"liquidlint/internal/source"
)

func formatPath(f *source.File, mode PathMode, baseDir string) string {
	if f == nil {
		return "<unknown>"
	}
	if mode == PathModeBasename {
		return filepath.Base(filepath.FromSlash(f.Path))
	}
	if f.Flags&source.FileVirtual != 0 {
		// виртуальные файлы (stdin, тесты) к диску не привязаны
		return f.Path
	}
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(filepath.FromSlash(f.Path)); err == nil {
			return filepath.ToSlash(abs)
		}
	case PathModeRelative:
		base := baseDir
		if base == "" {
			base = "."
		}
		absBase, err1 := filepath.Abs(base)
		absPath, err2 := filepath.Abs(filepath.FromSlash(f.Path))
		if err1 == nil && err2 == nil {
			if rel, err := filepath.Rel(absBase, absPath); err == nil {
				return filepath.ToSlash(rel)
			}
		}
	}
	return f.Path
}
