package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/five82/countdown/internal/logging"
	"github.com/five82/countdown/internal/prefs"
	"github.com/five82/countdown/internal/state"
)

// Options configures the UI.
type Options struct {
	Context    context.Context
	Store      *state.Store
	SourceName string
	Tick       time.Duration
	ThemeName  string
	PrefsPath  string
	Logger     *log.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx        context.Context
	store      *state.Store
	sourceName string
	prefsPath  string
	tick       time.Duration
	logger     *log.Logger

	theme  Theme
	keys   keyMap
	help   help.Model
	width  int
	height int
	ready  bool

	snapshot state.Snapshot
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	tick := opts.Tick
	if tick <= 0 {
		tick = time.Second
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	m := Model{
		ctx:        ctx,
		store:      opts.Store,
		sourceName: opts.SourceName,
		prefsPath:  prefsPath,
		tick:       tick,
		logger:     logger,
		theme:      GetTheme(opts.ThemeName),
		keys:       DefaultKeyMap(),
		help:       help.New(),
	}
	m.applyHelpStyles()
	if m.store != nil {
		m.snapshot = m.store.Snapshot()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.tick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store), waitForChange(m.ctx, m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case tickMsg:
		if m.ctx.Err() != nil {
			return m, tea.Quit
		}
		cmds := []tea.Cmd{tickCmd(m.tick)}
		if m.store != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.store))
		}
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		return m, nil

	case changedMsg:
		m.snapshot = state.Snapshot(msg)
		return m, waitForChange(m.ctx, m.store)
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	styles := m.theme.Styles()
	footer := m.renderFooter(styles)
	helpView := m.help.View(m.keys)

	bodyHeight := m.height - lipgloss.Height(footer) - lipgloss.Height(helpView)
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, m.renderBody(styles))

	return lipgloss.JoinVertical(lipgloss.Left, body, footer, helpView)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.applyHelpStyles()
		if err := prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name}); err != nil {
			m.logger.Warn("save prefs", "err", err)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) applyHelpStyles() {
	styles := m.theme.Styles()
	m.help.Styles.ShortKey = styles.MutedText
	m.help.Styles.ShortDesc = styles.FaintText
	m.help.Styles.ShortSeparator = styles.FaintText
	m.help.Styles.FullKey = styles.MutedText
	m.help.Styles.FullDesc = styles.FaintText
	m.help.Styles.FullSeparator = styles.FaintText
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// changedMsg carries a snapshot taken right after a store notification.
type changedMsg state.Snapshot

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// waitForChange blocks until the store reports an update or ctx ends.
func waitForChange(ctx context.Context, store *state.Store) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-store.Changed():
			return changedMsg(store.Snapshot())
		case <-ctx.Done():
			return nil
		}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if err != nil && m.ctx.Err() != nil {
		return nil
	}
	return err
}
