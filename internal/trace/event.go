package trace

import "time"

// Kind is the type of a trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindError
	KindHeartbeat
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindError:
		return "error"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Scope is the granularity of an event; lower values are coarser.
type Scope uint8

const (
	ScopeRun Scope = iota + 1
	ScopeFile
	ScopeValidator
)

func (s Scope) String() string {
	switch s {
	case ScopeRun:
		return "run"
	case ScopeFile:
		return "file"
	case ScopeValidator:
		return "validator"
	default:
		return "unknown"
	}
}

// Event is a single trace record.
type Event struct {
	Time     time.Time
	Seq      uint64 // монотонный, назначается при записи
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 для корня
	Name     string // "analyze", "sections/header.liquid", "schema"
	Detail   string
	Extra    map[string]string
}
