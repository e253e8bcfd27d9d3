package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/runhost/engine"
	"github.com/wippyai/runhost/errors"
	"github.com/wippyai/runhost/runtime"
)

// maxHistory bounds the number of runs shown on screen.
const maxHistory = 8

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	outputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			PaddingLeft(4)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// interactiveModel only touches the runtime from commands, one at a time,
// and copies what View needs when a command reports back.
type interactiveModel struct {
	rt       *runtime.Runtime
	output   *bytes.Buffer
	initErr  *errors.Error
	lastErr  *errors.Error
	history  []runRecord
	input    textinput.Model
	state    runtime.State
	ready    bool
	running  bool
	quitting bool
}

type runRecord struct {
	err    *errors.Error
	path   string
	output string
}

type initMsg struct {
	err *errors.Error
}

type execDoneMsg struct {
	path   string
	output string
}

func newInteractiveModel(rt *runtime.Runtime, output *bytes.Buffer) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "path/to/module.wasm"
	ti.Prompt = "run> "
	ti.Width = 60
	ti.Focus()

	return &interactiveModel{
		rt:      rt,
		output:  output,
		input:   ti,
		state:   rt.State(),
		running: true, // initialization starts in Init
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initialize)
}

func (m *interactiveModel) initialize() tea.Msg {
	if err := m.rt.Initialize(context.Background()); err != nil {
		return initMsg{err: m.rt.LastError()}
	}
	return initMsg{}
}

// execute runs while input is disabled, so the runtime is never used from
// two goroutines at once.
func (m *interactiveModel) execute(path string) tea.Cmd {
	return func() tea.Msg {
		m.output.Reset()
		_ = m.rt.Execute(context.Background(), path)
		return execDoneMsg{path: path, output: m.output.String()}
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			// A run cannot be interrupted; quit once it reports back.
			if m.running {
				m.quitting = true
				return m, nil
			}
			return m, tea.Quit

		case "ctrl+r":
			if !m.ready && !m.running && m.initErr != nil && !m.initErr.Unrecoverable {
				m.running = true
				return m, m.initialize
			}
			return m, nil

		case "enter":
			path := strings.TrimSpace(m.input.Value())
			if !m.ready || m.running || path == "" {
				return m, nil
			}
			m.running = true
			m.input.Reset()
			return m, m.execute(path)
		}

	case initMsg:
		m.running = false
		m.initErr = msg.err
		m.ready = msg.err == nil
		m.state = m.rt.State()
		if m.quitting {
			return m, tea.Quit
		}

	case execDoneMsg:
		m.running = false
		m.lastErr = m.rt.LastError()
		m.history = append(m.history, runRecord{
			path:   msg.path,
			err:    m.lastErr,
			output: msg.output,
		})
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}
		if m.quitting {
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("WASM Runner"))
	b.WriteString(" ")
	b.WriteString(m.state.String())
	b.WriteString("\n\n")

	if m.initErr != nil {
		b.WriteString(errorStyle.Render("Initialization failed: " + m.initErr.Message()))
		b.WriteString("\n\n")
		if m.initErr.Unrecoverable {
			b.WriteString(helpStyle.Render("unrecoverable • esc quit"))
		} else {
			b.WriteString(helpStyle.Render("ctrl+r retry • esc quit"))
		}
		return b.String()
	}
	if !m.ready {
		return b.String() + "Initializing runtime..."
	}

	for _, rec := range m.history {
		b.WriteString(pathStyle.Render(rec.path))
		b.WriteString(" ")
		if rec.err != nil {
			b.WriteString(errorStyle.Render(rec.err.Message()))
		} else {
			b.WriteString(okStyle.Render("ok"))
		}
		b.WriteString("\n")
		if out := strings.TrimRight(rec.output, "\n"); out != "" {
			b.WriteString(outputStyle.Render(out))
			b.WriteString("\n")
		}
	}
	if len(m.history) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("Last error: ")
	if last := m.lastErr; last != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("%s (%s)", last.Message(), last.Path)))
	} else {
		b.WriteString(okStyle.Render("none"))
	}
	b.WriteString("\n\n")

	if m.running {
		b.WriteString("Running...\n")
	} else {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter run • esc quit"))

	return b.String()
}

func runInteractive(opts options) error {
	opts.verbose = false
	cfg, _, err := buildConfig(opts)
	if err != nil {
		return err
	}
	engine.SetLogger(zap.NewNop())

	// Guest output is captured and shown under each run instead of
	// writing over the TUI.
	output := &bytes.Buffer{}
	engCfg := *cfg.engine
	engCfg.Stdout = output
	engCfg.Stderr = output

	rt := runtime.NewWithConfig(&runtime.Config{
		Engine:        engine.NewFactory(&engCfg),
		Logger:        zap.NewNop(),
		PanicOnMisuse: cfg.panicOnMisuse,
	})

	p := tea.NewProgram(newInteractiveModel(rt, output), tea.WithAltScreen())
	_, runErr := p.Run()

	if rt.State() != runtime.StateDisposed {
		if err := rt.Close(context.Background()); err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}
