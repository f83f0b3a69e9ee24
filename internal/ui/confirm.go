package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ErrAborted is returned when the operator declines to confirm.
var ErrAborted = errors.New("aborted by operator")

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	hintStyle   = lipgloss.NewStyle().Faint(true)
)

// Terminal waits for operator confirmation on a terminal. A TTY gets a
// small bubbletea view; anything else gets a plain line prompt.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminal returns a Terminal bound to stdin and stderr.
func NewTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stderr}
}

// Confirm blocks until the operator presses ENTER. There is no timeout;
// cancelling ctx or pressing Ctrl+C/Esc returns early.
func (t *Terminal) Confirm(ctx context.Context, prompt string) error {
	if f, ok := t.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return t.confirmTUI(ctx, prompt)
	}
	return t.confirmLine(ctx, prompt)
}

func (t *Terminal) confirmTUI(ctx context.Context, prompt string) error {
	p := tea.NewProgram(newConfirmModel(prompt),
		tea.WithContext(ctx),
		tea.WithInput(t.In),
		tea.WithOutput(t.Out),
	)

	final, err := p.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return fmt.Errorf("running prompt: %w", err)
	}
	if m, ok := final.(confirmModel); !ok || !m.confirmed {
		return ErrAborted
	}
	return nil
}

func (t *Terminal) confirmLine(ctx context.Context, prompt string) error {
	fmt.Fprintf(t.Out, "%s ", prompt)

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(t.In).ReadString('\n')
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %w", ErrAborted, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type confirmModel struct {
	spinner   spinner.Model
	prompt    string
	confirmed bool
	aborted   bool
}

func newConfirmModel(prompt string) confirmModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return confirmModel{spinner: s, prompt: prompt}
}

func (m confirmModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			m.confirmed = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m confirmModel) View() string {
	switch {
	case m.confirmed:
		return promptStyle.Render("✓ continuing") + "\n"
	case m.aborted:
		return hintStyle.Render("aborted") + "\n"
	}
	return fmt.Sprintf("%s %s\n%s\n",
		m.spinner.View(),
		promptStyle.Render(m.prompt),
		hintStyle.Render("enter: continue • esc/ctrl+c: abort"),
	)
}
