package trace

import (
	"fmt"
	"sync"
	"time"
)

// Heartbeat emits run-scope ticks while files are analyzed. A trace that
// keeps ticking without closing a file or validator span points at the
// template that hangs.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	stopCh   chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// StartHeartbeat starts ticking every interval (--trace-heartbeat). It
// returns nil when tracing is off or interval is not positive.
func StartHeartbeat(t Tracer, interval time.Duration) *Heartbeat {
	if t == nil || !t.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{tracer: t, interval: interval, stopCh: make(chan struct{})}
	h.wg.Add(1)
	go h.run()
	return h
}

func (h *Heartbeat) run() {
	defer h.wg.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for n := 1; ; n++ {
		select {
		case <-ticker.C:
			h.tracer.Emit(&Event{
				Time:   time.Now(),
				Kind:   KindHeartbeat,
				Scope:  ScopeRun,
				Name:   "heartbeat",
				Detail: fmt.Sprintf("#%d", n),
			})
		case <-h.stopCh:
			return
		}
	}
}

// Stop is called when the run ends. Safe on nil and repeated calls.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stopCh) })
	h.wg.Wait()
}
