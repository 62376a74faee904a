package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"weaver/internal/snapshot"
	"weaver/internal/ui"
	"weaver/internal/weave"
)

type weaveOutcome struct {
	result weave.Result
	err    error
}

// runWeaveWithUI weaves while a progress view consumes the events. Quitting
// the view cancels the run.
func runWeaveWithUI(ctx context.Context, title string, snap *snapshot.Snapshot, opts weave.Options) (weave.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	units := weave.Units(snap.Model, snap.Advice)
	events := make(chan weave.Event, 256)
	outcomeCh := make(chan weaveOutcome, 1)
	opts.Sink = weave.ChannelSink{Ch: events}

	go func() {
		res, err := weave.Run(ctx, snap.Model, snap.Advice, opts)
		outcomeCh <- weaveOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, units, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	cancel()
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
