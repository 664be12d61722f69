package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

var errInterrupted = errors.New("interrupted")

type labelMsg string

type workDoneMsg[T any] struct {
	result T
	err    error
}

// waitModel shows a spinner while work runs in the background.
type waitModel[T any] struct {
	spinner spinner.Model
	label   string
	work    func() (T, error)
	cancel  context.CancelFunc

	result T
	err    error
}

func (m *waitModel[T]) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		result, err := m.work()
		return workDoneMsg[T]{result, err}
	})
}

func (m *waitModel[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case workDoneMsg[T]:
		m.result, m.err = msg.result, msg.err
		return m, tea.Quit
	case labelMsg:
		m.label = string(msg)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.cancel()
			m.err = errInterrupted
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *waitModel[T]) View() string {
	if m.label == "" {
		return ""
	}
	return m.spinner.View() + " " + m.label + "\n"
}

// withSpinner runs work, showing label next to a spinner on stderr. The
// spinner is skipped when quiet or when stderr is not a terminal; report
// then does nothing.
func withSpinner[T any](
	ctx context.Context,
	label string,
	quiet bool,
	work func(ctx context.Context, report func(string)) (T, error),
) (T, error) {
	if quiet || !isErrTTY() {
		return work(ctx, func(string) {})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var p *tea.Program
	m := &waitModel[T]{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(stderrStyles().Spinner),
		),
		label:  label,
		cancel: cancel,
	}
	m.work = func() (T, error) {
		return work(ctx, func(s string) { p.Send(labelMsg(s)) })
	}

	opts := []tea.ProgramOption{tea.WithOutput(os.Stderr), tea.WithContext(ctx)}
	if !isInputTTY() {
		opts = append(opts, tea.WithInput(nil))
	}
	p = tea.NewProgram(m, opts...)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		var zero T
		return zero, err //nolint:wrapcheck
	}
	if m.err == nil && ctx.Err() != nil {
		m.err = errInterrupted
	}
	return m.result, m.err
}
