package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/shared"
)

const (
	DefaultInterval = time.Second
	maxPollFailures = 5
	pollTimeout     = 10 * time.Second
	maxBarWidth     = 60
	genrePreview    = 6
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	WatchView ViewState = iota
	ResultView
)

// JobSource reports the status of an organize job. [services.APIClient] satisfies it.
type JobSource interface {
	OrganizeStatus(ctx context.Context, jobID string) (*models.Job, error)
}

// Options tunes the watcher.
type Options struct {
	// Interval between polls; defaults to [DefaultInterval].
	Interval time.Duration
	// ExitOnDone quits as soon as the job finishes instead of showing the playlist browser.
	ExitOnDone bool
	// Open launches a playlist URL; defaults to [shared.OpenBrowser].
	Open func(url string) error
}

// Model polls one organize job and renders its progress.
type Model struct {
	ctx        context.Context
	source     JobSource
	jobID      string
	opts       Options
	view       ViewState
	job        *models.Job
	err        error
	notice     string
	failures   int
	detached   bool
	showGenres bool
	width      int
	height     int
	spinner    spinner.Model
	progress   progress.Model
	playlists  list.Model
	help       help.Model
	keys       keyMap
}

// NewModel creates a watcher for jobID.
func NewModel(ctx context.Context, source JobSource, jobID string, opts Options) *Model {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Open == nil {
		opts.Open = shared.OpenBrowser
	}

	s := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.stage))
	return &Model{
		ctx:      ctx,
		source:   source,
		jobID:    jobID,
		opts:     opts,
		view:     WatchView,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Job returns the last polled snapshot, or nil before the first poll.
func (m *Model) Job() *models.Job { return m.job }

// Err returns the error that stopped the watcher, if any.
func (m *Model) Err() error { return m.err }

// Detached reports whether the user quit while the job was still running.
func (m *Model) Detached() bool { return m.detached }

// Init starts the spinner and the first poll.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-4, 10), maxBarWidth)
		if m.view == ResultView {
			m.playlists.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		if m.view != WatchView || m.finished() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == ResultView {
		var cmd tea.Cmd
		m.playlists, cmd = m.playlists.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPollDue:
		return m, m.poll()

	case MsgJobPolled:
		p := msg.data.(polled)
		if p.err != nil {
			return m.pollFailed(p.err)
		}
		m.failures = 0
		m.notice = ""
		m.job = p.job
		if m.finished() {
			return m.finish()
		}
		return m, m.schedule()

	case MsgOpened:
		if err, _ := msg.data.(error); err != nil {
			m.notice = fmt.Sprintf("could not open playlist: %v", err)
		}
	}
	return m, nil
}

// pollFailed retries transient errors and stops on ones a retry cannot fix.
func (m *Model) pollFailed(err error) (tea.Model, tea.Cmd) {
	if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrNotAuthenticated) {
		m.err = err
		return m, tea.Quit
	}

	m.failures++
	if m.failures >= maxPollFailures {
		m.err = fmt.Errorf("gave up after %d failed polls: %w", m.failures, err)
		return m, tea.Quit
	}
	m.notice = fmt.Sprintf("poll failed (%d/%d): %v", m.failures, maxPollFailures, err)
	return m, m.schedule()
}

// finish switches to the playlist browser, or quits when there is nothing to browse.
func (m *Model) finish() (tea.Model, tea.Cmd) {
	if m.opts.ExitOnDone || m.job.Status == models.JobFailed {
		return m, tea.Quit
	}

	items := playlistItems(m.job.Result)
	if len(items) == 0 {
		return m, tea.Quit
	}

	m.playlists = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.playlists.Title = "Organized Playlists"
	m.playlists.SetShowHelp(false)
	m.playlists.SetSize(max(m.width-4, 20), max(m.height-8, 10))
	m.view = ResultView
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view == ResultView && m.playlists.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.playlists, cmd = m.playlists.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		m.detached = !m.finished() && m.err == nil
		return m, tea.Quit
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.genres) && m.view == WatchView:
		m.showGenres = !m.showGenres
		return m, nil
	case key.Matches(msg, m.keys.open) && m.view == ResultView:
		if item, ok := m.playlists.SelectedItem().(playlistItem); ok && item.playlist.SpotifyURL != "" {
			return m, m.open(item.playlist.SpotifyURL)
		}
		return m, nil
	}

	if m.view == ResultView {
		var cmd tea.Cmd
		m.playlists, cmd = m.playlists.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) finished() bool {
	return m.job != nil && m.job.Status.Terminal()
}

func (m *Model) poll() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, pollTimeout)
		defer cancel()
		job, err := m.source.OrganizeStatus(ctx, m.jobID)
		return jobPolledMsg(job, err)
	}
}

func (m *Model) schedule() tea.Cmd {
	return tea.Tick(m.opts.Interval, func(time.Time) tea.Msg { return pollDueMsg() })
}

func (m *Model) open(url string) tea.Cmd {
	return func() tea.Msg {
		return openedMsg(m.opts.Open(url))
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	}

	switch m.view {
	case ResultView:
		return m.renderResult()
	default:
		return m.renderWatch()
	}
}

func (m *Model) renderWatch() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Organizing liked songs"))
	b.WriteString("\n")

	if m.job == nil {
		fmt.Fprintf(&b, "%s Waiting for job %s\n", m.spinner.View(), m.jobID)
		return m.withFooter(&b)
	}

	job := m.job
	switch job.Status {
	case models.JobCompleted:
		b.WriteString(styles.ok.Render("✓ " + summary(job)))
		b.WriteString("\n")
	case models.JobFailed:
		b.WriteString(styles.err.Render(fmt.Sprintf("✗ Failed while %s: %s", job.Stage, job.Error)))
		b.WriteString("\n")
	default:
		fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), styles.stage.Render(stageLabel(job)))
		if job.TotalSongs > 0 && (job.Status == models.JobFetching || job.Status == models.JobAnalyzing) {
			b.WriteString(m.progress.ViewAs(job.Progress()))
			b.WriteString("\n")
		}
	}

	if line := m.genresLine(job.GenresDiscovered); line != "" {
		b.WriteString("\n")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return m.withFooter(&b)
}

func (m *Model) renderResult() string {
	var b strings.Builder
	b.WriteString(styles.ok.Render("✓ " + summary(m.job)))
	b.WriteString("\n\n")
	b.WriteString(m.playlists.View())
	b.WriteString("\n")
	return m.withFooter(&b)
}

// withFooter appends the notice line and key help.
func (m *Model) withFooter(b *strings.Builder) string {
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(styles.warn.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) genresLine(genres []string) string {
	if len(genres) == 0 {
		return ""
	}
	label := styles.muted.Render(fmt.Sprintf("Genres (%d): ", len(genres)))
	if m.showGenres || len(genres) <= genrePreview {
		return label + strings.Join(genres, ", ")
	}
	rest := len(genres) - genrePreview
	return label + strings.Join(genres[:genrePreview], ", ") + styles.muted.Render(fmt.Sprintf(" +%d more", rest))
}

func stageLabel(job *models.Job) string {
	switch job.Status {
	case models.JobQueued:
		return "Queued"
	case models.JobFetching:
		return fmt.Sprintf("Fetching liked songs (%d/%d)", job.SongsProcessed, job.TotalSongs)
	case models.JobAnalyzing:
		return fmt.Sprintf("Classifying genres (%d/%d)", job.SongsProcessed, job.TotalSongs)
	case models.JobCreating:
		return fmt.Sprintf("Creating playlists for %d genres", len(job.GenresDiscovered))
	}
	return string(job.Status)
}

func summary(job *models.Job) string {
	if job == nil || job.Result == nil {
		return "Organize complete"
	}
	return fmt.Sprintf("Organized %d songs into %d playlists", job.Result.SongCount(), len(job.Result.Playlists))
}
