package engine

import "time"

// Stage is a step of one file's analysis.
type Stage string

const (
	StageScan     Stage = "scan"
	StageValidate Stage = "validate"
	StagePerf     Stage = "perf"
	StageFix      Stage = "fix"
)

// Status is the state of a file within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for a file, or for the run when File is empty.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. OnEvent is called from worker
// goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(ev Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- ev
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(ev Event) { f(ev) }

func (e *Engine) emit(ev Event) {
	if e.opts.Progress != nil {
		e.opts.Progress.OnEvent(ev)
	}
}
