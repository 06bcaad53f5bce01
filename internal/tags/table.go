package tags

// tagKind classifies a tag name for the stack machine.
type tagKind uint8

const (
	kindUnknown tagKind = iota
	kindPaired
	kindSingle
	kindBranch
)

var tagTable = map[string]tagKind{
	// парные
	"if":         kindPaired,
	"unless":     kindPaired,
	"case":       kindPaired,
	"for":        kindPaired,
	"capture":    kindPaired,
	"tablerow":   kindPaired,
	"paginate":   kindPaired,
	"form":       kindPaired,
	"style":      kindPaired,
	"comment":    kindPaired,
	"schema":     kindPaired,
	"raw":        kindPaired,
	"javascript": kindPaired,
	"stylesheet": kindPaired,
	"doc":        kindPaired,
	"ifchanged":  kindPaired,
	// одиночные
	"assign":      kindSingle,
	"echo":        kindSingle,
	"include":     kindSingle,
	"render":      kindSingle,
	"break":       kindSingle,
	"continue":    kindSingle,
	"cycle":       kindSingle,
	"increment":   kindSingle,
	"decrement":   kindSingle,
	"section":     kindSingle,
	"sections":    kindSingle,
	"layout":      kindSingle,
	"liquid":      kindSingle,
	"content_for": kindSingle,
	"#":           kindSingle,
	// ветки
	"else":  kindBranch,
	"elsif": kindBranch,
	"when":  kindBranch,
}

// branchOwners lists the blocks each branch keyword may appear in.
var branchOwners = map[string][]string{
	"else":  {"if", "unless", "for", "case"},
	"elsif": {"if", "unless"},
	"when":  {"case"},
}

// IsConditional reports whether name opens a conditional block.
func IsConditional(name string) bool {
	return name == "if" || name == "unless" || name == "case"
}

// IsLoop reports whether name opens an iterating block.
func IsLoop(name string) bool {
	return name == "for" || name == "tablerow"
}

// Known reports whether name is a recognised tag (closers excluded).
func Known(name string) bool {
	_, ok := tagTable[name]
	return ok
}
