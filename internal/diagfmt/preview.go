package diagfmt

import (
	"fmt"
	"sort"
	"strings"

	"fortio.org/safecast"

	"liquidlint/internal/diag"
	"liquidlint/internal/source"
)

type fixPreview struct {
	before []string
	after  []string
}

// buildFixPreview applies every edit of fix to the lines it touches.
func buildFixPreview(fs *source.FileSet, fix *diag.Fix) (fixPreview, error) {
	if fs == nil {
		return fixPreview{}, fmt.Errorf("nil FileSet")
	}
	if fix == nil || len(fix.Edits) == 0 {
		return fixPreview{}, fmt.Errorf("fix has no edits")
	}
	sp := fix.Span()
	file := fs.Get(sp.File)
	if file == nil {
		return fixPreview{}, fmt.Errorf("file %d not found in FileSet", sp.File)
	}

	startPos, endPos := fs.Resolve(sp)
	blockStart := lineStartOffset(file, startPos.Line)
	blockEnd := min(max(lineEndOffsetInclusive(file, endPos.Line), blockStart), file.Len())

	original := file.Content[blockStart:blockEnd]
	edits := append([]diag.FixEdit(nil), fix.Edits...)
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].Span.Start > edits[j].Span.Start })

	after := append([]byte(nil), original...)
	for _, e := range edits {
		relStart := int(e.Span.Start) - int(blockStart)
		relEnd := int(e.Span.End) - int(blockStart)
		if relStart < 0 || relEnd < relStart || relEnd > len(after) {
			return fixPreview{}, fmt.Errorf("edit span %s out of range for preview block", e.Span)
		}
		next := make([]byte, 0, len(after)+len(e.NewText))
		next = append(next, after[:relStart]...)
		next = append(next, e.NewText...)
		next = append(next, after[relEnd:]...)
		after = next
	}

	return fixPreview{
		before: splitPreviewLines(original),
		after:  splitPreviewLines(after),
	}, nil
}

func splitPreviewLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	// хвостовой \n даёт пустой последний элемент, срезаем
	lines := strings.Split(strings.TrimRight(string(content), "\r\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func lineStartOffset(f *source.File, line uint32) uint32 {
	if line <= 1 {
		return 0
	}
	idx := line - 2
	if int(idx) < len(f.LineIdx) {
		return f.LineIdx[idx] + 1
	}
	return contentLen(f)
}

func lineEndOffsetInclusive(f *source.File, line uint32) uint32 {
	if line == 0 {
		return 0
	}
	idx := line - 1
	if int(idx) < len(f.LineIdx) {
		return f.LineIdx[idx] + 1
	}
	return contentLen(f)
}

func contentLen(f *source.File) uint32 {
	n, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("len file content overflow: %w", err))
	}
	return n
}
