package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plexwrapped/internal/models"
	"github.com/desertthunder/plexwrapped/internal/shared"
	"github.com/desertthunder/plexwrapped/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LibraryListView ViewState = iota
	LoadingView
	SummaryView
	HistoryView
)

// Options configures [NewModel].
type Options struct {
	Engine *tasks.WrappedEngine
	Token  string
	Year   int // zero keeps every play
	Top    int
	Limit  int
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	opts         Options
	view         ViewState
	width        int
	height       int
	loading      bool
	libraryList  list.Model
	libraries    []models.MusicLibrary
	historyList  list.Model
	listsReady   [2]bool // libraryList, historyList; zero-value lists must not be updated
	selected     *models.MusicLibrary
	progressChan chan tasks.ProgressUpdate
	doneChan     chan wrappedComplete
	progress     tasks.ProgressUpdate
	result       *tasks.WrappedResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	return &Model{
		ctx:     ctx,
		opts:    opts,
		view:    LibraryListView,
		loading: true,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init initializes the TUI by listing music libraries.
func (m *Model) Init() tea.Cmd {
	return m.fetchLibraries()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.listsReady[0] {
			m.libraryList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.listsReady[1] {
			m.historyList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		if m.err != nil && m.view != SummaryView && key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		switch m.view {
		case LibraryListView:
			return m.handleLibraryListKeys(msg)
		case LoadingView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case SummaryView:
			return m.handleSummaryKeys(msg)
		case HistoryView:
			return m.handleHistoryKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLibrariesFetched:
		data := msg.data.(librariesFetched)
		m.loading = false
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.libraries = data.libraries
		items := make([]list.Item, len(data.libraries))
		for i, lib := range data.libraries {
			items[i] = libraryItem{library: lib}
		}
		m.libraryList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.libraryList.Title = "Music Libraries"
		m.libraryList.SetSize(m.width-4, m.height-8)
		m.listsReady[0] = true
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgWrappedComplete:
		data := msg.data.(wrappedComplete)
		m.progressChan = nil
		m.doneChan = nil
		m.result = data.result
		m.err = data.err
		m.view = SummaryView
		if data.result != nil {
			items := make([]list.Item, len(data.result.Records))
			for i, r := range data.result.Records {
				items[i] = playItem{record: r}
			}
			m.historyList = list.New(items, list.NewDefaultDelegate(), 0, 0)
			m.historyList.Title = fmt.Sprintf("Plays in '%s'", data.result.Library.Library.Title)
			m.historyList.SetSize(m.width-4, m.height-8)
			m.listsReady[1] = true
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != SummaryView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case LibraryListView:
		return m.renderLibraryList()
	case LoadingView:
		return m.renderLoading()
	case SummaryView:
		return m.renderSummary()
	case HistoryView:
		return m.renderHistory()
	default:
		return ""
	}
}

func (m *Model) handleLibraryListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loading || !m.listsReady[0] {
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		return m, nil
	}
	if m.libraryList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.enter):
			if item, ok := m.libraryList.SelectedItem().(libraryItem); ok {
				lib := item.library
				m.selected = &lib
				m.view = LoadingView
				return m, m.startWrapped()
			}
		}
	}

	var cmd tea.Cmd
	m.libraryList, cmd = m.libraryList.Update(msg)
	return m, cmd
}

func (m *Model) handleSummaryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.history):
		if m.result != nil && m.listsReady[1] {
			m.view = HistoryView
		}
		return m, nil
	case key.Matches(msg, m.keys.restart):
		m.view = LibraryListView
		m.selected = nil
		m.result = nil
		m.err = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) handleHistoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.historyList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.back):
			m.view = SummaryView
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.historyList, cmd = m.historyList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.view == LibraryListView && m.listsReady[0]:
		m.libraryList, cmd = m.libraryList.Update(msg)
	case m.view == HistoryView && m.listsReady[1]:
		m.historyList, cmd = m.historyList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchLibraries() tea.Cmd {
	return func() tea.Msg {
		libs, err := m.opts.Engine.Libraries(m.ctx, nil, m.opts.Token)
		return librariesFetchedMsg(libs, err)
	}
}

// startWrapped fetches history for the selected library in the background.
//
// The result is queued on doneChan before progressChan closes, so waitForProgress always finds it.
func (m *Model) startWrapped() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.doneChan = make(chan wrappedComplete, 1)
	progress, done := m.progressChan, m.doneChan
	lib, opts := *m.selected, m.opts

	go func() {
		result, err := runWrapped(m.ctx, progress, lib, opts)
		done <- wrappedComplete{result, err}
		close(progress)
	}()

	return m.waitForProgress()
}

func runWrapped(ctx context.Context, progress chan<- tasks.ProgressUpdate, lib models.MusicLibrary, opts Options) (*tasks.WrappedResult, error) {
	records, err := opts.Engine.History(ctx, progress, opts.Token, lib, opts.Limit)
	if err != nil {
		return nil, err
	}

	records = tasks.FilterByYear(records, opts.Year)
	summary := tasks.Summarize(records, opts.Top)
	summary.Year = opts.Year

	return &tasks.WrappedResult{Library: lib, Records: records, Summary: summary}, nil
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		if progress == nil {
			return wrappedCompleteMsg(nil, fmt.Errorf("%w: no recap in progress", shared.ErrInvalidInput))
		}

		update, ok := <-progress
		if !ok {
			r := <-done
			return wrappedCompleteMsg(r.result, r.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderLibraryList() string {
	if m.loading {
		return styles.title.Render("Plex Wrapped") + "\n" + styles.dim.Render("Finding music libraries...")
	}
	if len(m.libraries) == 0 {
		return styles.warn.Render("No music libraries found on any reachable server.\n\nPress q to quit")
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.libraryList.View(), helpView)
}

func (m *Model) renderLoading() string {
	title := styles.title.Render(fmt.Sprintf("Reading '%s'", m.selected.Library.Title))

	var phase string
	switch m.progress.Phase {
	case tasks.FetchHistory:
		phase = "Fetching play history..."
	case tasks.BuildSummary:
		phase = "Building your recap..."
	default:
		phase = "Working..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, styles.dim.Render(m.progress.Message))
}

func (m *Model) renderSummary() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Recap failed: %v\n\nPress r to pick another library, q to quit", m.err))
	}
	if m.result == nil {
		return styles.err.Render("No recap available\n\nPress r to pick another library, q to quit")
	}

	s := m.result.Summary
	heading := "Plex Wrapped"
	if s.Year != 0 {
		heading = fmt.Sprintf("Plex Wrapped %d", s.Year)
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(heading))
	fmt.Fprintf(&b, "\n%s on %s\n\n", m.result.Library.Library.Title, m.result.Library.Server.Name)

	if s.TotalPlays == 0 {
		b.WriteString(styles.warn.Render("No plays in this period."))
	} else {
		fmt.Fprintf(&b, "%s plays • %s listened\n", styles.ok.Render(fmt.Sprint(s.TotalPlays)), shared.FormatDuration(s.TotalDurationMs))
		fmt.Fprintf(&b, "%d artists • %d albums • %d tracks\n", s.UniqueArtists, s.UniqueAlbums, s.UniqueTracks)

		renderCounts(&b, "Top Artists", s.TopArtists)
		renderCounts(&b, "Top Albums", s.TopAlbums)
		renderCounts(&b, "Top Tracks", s.TopTracks)
	}

	helpKeys := []key.Binding{m.keys.history, m.keys.restart, m.keys.quit}
	fmt.Fprintf(&b, "\n\n%s", m.help.ShortHelpView(helpKeys))
	return b.String()
}

func renderCounts(b *strings.Builder, heading string, counts []tasks.Count) {
	if len(counts) == 0 {
		return
	}
	b.WriteString(styles.heading.Render(heading))
	for i, c := range counts {
		label := c.Name
		if c.Detail != "" {
			label = fmt.Sprintf("%s %s", c.Name, styles.dim.Render("by "+c.Detail))
		}
		fmt.Fprintf(b, "\n %2d. %s (%d)", i+1, label, c.Plays)
	}
	b.WriteString("\n")
}

func (m *Model) renderHistory() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.historyList.View(), helpView)
}
