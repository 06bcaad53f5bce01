package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLevelFiltersScopes(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelPhase, ScopeRun, true},
		{LevelPhase, ScopeFile, false},
		{LevelDetail, ScopeFile, true},
		{LevelDetail, ScopeValidator, false},
		{LevelDebug, ScopeValidator, true},
		{LevelError, ScopeRun, false},
		{LevelOff, ScopeRun, false},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(KindSpanBegin, tt.scope); got != tt.want {
			t.Errorf("%s/%s = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
	if !LevelError.ShouldEmit(KindError, ScopeValidator) {
		t.Error("error events must pass LevelError")
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"off", "ERROR", "phase", "Detail", "debug"} {
		if _, err := ParseLevel(s); err != nil {
			t.Errorf("ParseLevel(%q): %v", s, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("ParseLevel accepted verbose")
	}
}

func TestStreamNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelDetail, Output: &buf, Format: FormatNDJSON})
	if err != nil {
		t.Fatal(err)
	}
	ctx := WithTracer(context.Background(), tr)
	run := Begin(FromContext(ctx), ScopeRun, "analyze", 0)
	ctx = WithParent(ctx, run)
	file := Begin(FromContext(ctx), ScopeFile, "sections/a.liquid", ParentFrom(ctx))
	Begin(FromContext(ctx), ScopeValidator, "schema", file.ID()).End("")
	file.WithExtra("findings", "2").End("")
	Error(tr, ScopeFile, "sections/b.liquid", errors.New("boom"), run.ID())
	run.End("ok")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d events:\n%s", len(lines), buf.String())
	}
	var ev jsonEvent
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Scope != "file" || ev.ParentID != run.ID() || ev.Kind != "begin" {
		t.Errorf("file event = %+v", ev)
	}
	if err := json.Unmarshal([]byte(lines[2]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Extra["findings"] != "2" {
		t.Errorf("end event = %+v", ev)
	}
}

func TestRingWraps(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d"} {
		Point(r, ScopeRun, name, "", 0)
	}
	snap := r.Snapshot()
	if len(snap) != 3 || snap[0].Name != "b" || snap[2].Name != "d" {
		t.Errorf("snapshot = %+v", snap)
	}
	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatText); err != nil || strings.Count(buf.String(), "\n") != 3 {
		t.Errorf("dump = %q, %v", buf.String(), err)
	}
}

func TestNopAndOff(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr.Enabled() {
		t.Fatalf("off tracer: %v %v", tr, err)
	}
	if FromContext(context.Background()) != Nop {
		t.Error("empty context should give Nop")
	}
	s := Begin(Nop, ScopeRun, "x", 0)
	if s.ID() != 0 || s.End("") != 0 {
		t.Error("inert span emitted")
	}
	var h *Heartbeat
	h.Stop()
}
