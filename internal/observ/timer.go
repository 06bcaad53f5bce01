// Package observ measures how long each analysis stage takes.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase is one measured stage.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer tracks stages of one file. Validators running in parallel share it.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
}

func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// Begin starts a stage and returns its index.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End finishes the stage started by Begin.
func (t *Timer) End(idx int, note string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Track runs fn as a stage named name.
func (t *Timer) Track(name string, fn func()) {
	idx := t.Begin(name)
	fn()
	t.End(idx, "")
}

// PhaseReport is the serializable form of a Phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report: агрегированные данные таймера.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report summarizes the stages in the order they started. TotalMS is wall
// time from the first start to the last finish, so parallel stages are not
// counted twice.
func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.phases) == 0 {
		return Report{}
	}
	report := Report{Phases: make([]PhaseReport, len(t.phases))}
	first := t.phases[0].Start
	var last time.Time
	for i, p := range t.phases {
		if p.Start.Before(first) {
			first = p.Start
		}
		if end := p.Start.Add(p.Dur); end.After(last) {
			last = end
		}
		report.Phases[i] = PhaseReport{Name: p.Name, DurationMS: durationToMillis(p.Dur), Note: p.Note}
	}
	report.TotalMS = durationToMillis(last.Sub(first))
	return report
}

// Summary renders the report as aligned text.
func (r Report) Summary() string {
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range r.Phases {
		fmt.Fprintf(&b, "  %-20s %7.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			b.WriteString("  // " + p.Note)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "  %-20s %7.2f ms\n", "total", r.TotalMS)
	return b.String()
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
