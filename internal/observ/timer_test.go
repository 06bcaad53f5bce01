package observ

import (
	"strings"
	"sync"
	"testing"
)

func TestTimerConcurrentStages(t *testing.T) {
	tm := NewTimer()
	scan := tm.Begin("scan")
	tm.End(scan, "12 tokens")
	var wg sync.WaitGroup
	for _, name := range []string{"tags", "expr", "schema", "charsafe"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.Track(name, func() {})
		}()
	}
	wg.Wait()
	r := tm.Report()
	if len(r.Phases) != 5 || r.Phases[0].Name != "scan" || r.Phases[0].Note != "12 tokens" {
		t.Fatalf("report = %+v", r)
	}
	if r.TotalMS < 0 {
		t.Errorf("total = %v", r.TotalMS)
	}
	if s := r.Summary(); !strings.Contains(s, "scan") || !strings.Contains(s, "total") {
		t.Errorf("summary = %q", s)
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	if r := tm.Report(); len(r.Phases) != 0 {
		t.Errorf("report = %+v", r)
	}
}
