package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"liquidlint/internal/engine"
	"liquidlint/internal/ui"
)

type outcome[T any] struct {
	result T
	err    error
}

// runWithUI runs work in the background while the progress model renders
// the events it emits. work receives the sink to pass to the engine.
func runWithUI[T any](title string, files []string, final engine.Stage, work func(sink engine.ProgressSink) (T, error)) (T, error) {
	events := make(chan engine.Event, 256)
	outcomeCh := make(chan outcome[T], 1)

	go func() {
		res, err := work(engine.ChannelSink{Ch: events})
		outcomeCh <- outcome[T]{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events, final)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithInput(nil))
	_, uiErr := program.Run()
	// модель могла выйти раньше (ошибка, прерывание), дочитываем канал сами
	go func() {
		for range events {
		}
	}()
	out := <-outcomeCh
	if uiErr != nil {
		return out.result, uiErr
	}
	return out.result, out.err
}
