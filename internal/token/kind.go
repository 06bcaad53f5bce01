package token

// Kind represents the category of a template token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// Literal is plain markup between template delimiters.
	Literal
	// TagOpen is any {% name ... %} tag that is not a closer.
	TagOpen
	// TagClose is an {% endname %} tag.
	TagClose
	// Output is an {{ expression }} span.
	Output
	// FenceStart opens a fenced sub-language region ({% schema %}, ...).
	FenceStart
	// FenceEnd closes a fenced sub-language region.
	FenceEnd
)

var kindNames = [...]string{
	Invalid:    "Invalid",
	Literal:    "Literal",
	TagOpen:    "TagOpen",
	TagClose:   "TagClose",
	Output:     "Output",
	FenceStart: "FenceStart",
	FenceEnd:   "FenceEnd",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(?)"
}

// IsTag reports whether the kind is a {% %} delimited construct.
func (k Kind) IsTag() bool {
	switch k {
	case TagOpen, TagClose, FenceStart, FenceEnd:
		return true
	default:
		return false
	}
}

// RegionKind is the sub-language of a fenced region.
type RegionKind uint8

const (
	// RegionSchema holds a JSON settings schema.
	RegionSchema RegionKind = iota + 1
	// RegionStyle holds CSS that is not evaluated as template code.
	RegionStyle
	// RegionJavascript holds JavaScript that is not evaluated as template code.
	RegionJavascript
	// RegionRaw holds verbatim or commented-out text.
	RegionRaw
)

func (k RegionKind) String() string {
	switch k {
	case RegionSchema:
		return "schema"
	case RegionStyle:
		return "style"
	case RegionJavascript:
		return "javascript"
	case RegionRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// FenceKind maps a tag name to the kind of region it opens.
func FenceKind(tag string) (RegionKind, bool) {
	switch tag {
	case "schema":
		return RegionSchema, true
	case "stylesheet":
		return RegionStyle, true
	case "javascript":
		return RegionJavascript, true
	case "raw", "comment", "doc":
		return RegionRaw, true
	default:
		return 0, false
	}
}
