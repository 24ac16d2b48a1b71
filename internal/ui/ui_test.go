package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/shared"
)

type fakeSource struct {
	mu    sync.Mutex
	jobs  []*models.Job
	errs  []error
	calls int
}

func (f *fakeSource) OrganizeStatus(ctx context.Context, jobID string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.jobs) {
		i = len(f.jobs) - 1
	}
	return f.jobs[i], nil
}

func running(status models.JobStatus, processed, total int, genres ...string) *models.Job {
	return &models.Job{ID: "job-1", Status: status, Stage: status, SongsProcessed: processed, TotalSongs: total, GenresDiscovered: genres}
}

func completed(playlists ...models.PlaylistSummary) *models.Job {
	return &models.Job{
		ID:     "job-1",
		Status: models.JobCompleted,
		Stage:  models.JobCompleted,
		Result: &models.OrganizeResult{Playlists: playlists},
	}
}

func newWatcher(src *fakeSource, opts Options) *Model {
	m := NewModel(context.Background(), src, "job-1", opts)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

// pollOnce runs one poll against the source and feeds the result back into the model.
func pollOnce(m *Model) tea.Cmd {
	_, cmd := m.Update(m.poll()())
	return cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestWatcherProgress(t *testing.T) {
	src := &fakeSource{jobs: []*models.Job{
		running(models.JobFetching, 50, 200),
		running(models.JobAnalyzing, 20, 200, "Rock", "Jazz"),
		running(models.JobCreating, 200, 200, "Rock", "Jazz"),
	}}
	m := newWatcher(src, Options{})

	if m.Init() == nil {
		t.Fatal("Init() returned nil command")
	}

	tests := []struct {
		name string
		want string
	}{
		{name: "fetching", want: "Fetching liked songs (50/200)"},
		{name: "analyzing", want: "Classifying genres (20/200)"},
		{name: "creating", want: "Creating playlists for 2 genres"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := pollOnce(m)
			if cmd == nil || isQuit(cmd) {
				t.Fatal("expected another poll to be scheduled")
			}
			if view := m.View(); !strings.Contains(view, tt.want) {
				t.Errorf("View() missing %q:\n%s", tt.want, view)
			}
		})
	}
}

func TestWatcherGenres(t *testing.T) {
	genres := []string{"Rock", "Jazz", "Folk", "Blues", "Soul", "Metal", "Punk", "Disco"}
	src := &fakeSource{jobs: []*models.Job{running(models.JobAnalyzing, 10, 100, genres...)}}
	m := newWatcher(src, Options{})
	pollOnce(m)

	view := m.View()
	if !strings.Contains(view, "Genres (8)") || !strings.Contains(view, "+2 more") {
		t.Errorf("expected a truncated genre preview:\n%s", view)
	}
	if strings.Contains(view, "Disco") {
		t.Error("preview should hide genres past the limit")
	}

	m.Update(keyPress("g"))
	view = m.View()
	if !strings.Contains(view, "Disco") || strings.Contains(view, "more") {
		t.Errorf("expected every genre after toggling:\n%s", view)
	}
}

func TestWatcherCompletion(t *testing.T) {
	rock := models.PlaylistSummary{Name: "Rock by Organizer", Genre: "Rock", SpotifyID: "p1", SpotifyURL: "https://open.spotify.com/playlist/p1", SongCount: 12}
	jazz := models.PlaylistSummary{Name: "Jazz by Organizer", Genre: "Jazz", SpotifyID: "p2", SongCount: 3}

	t.Run("shows playlists", func(t *testing.T) {
		var opened []string
		src := &fakeSource{jobs: []*models.Job{completed(rock, jazz)}}
		m := newWatcher(src, Options{Open: func(url string) error {
			opened = append(opened, url)
			return nil
		}})

		if cmd := pollOnce(m); isQuit(cmd) {
			t.Fatal("completed job with playlists should stay open")
		}
		if m.view != ResultView {
			t.Fatalf("view = %v, want ResultView", m.view)
		}

		view := m.View()
		for _, want := range []string{"Organized 15 songs into 2 playlists", "Rock by Organizer", "12 songs"} {
			if !strings.Contains(view, want) {
				t.Errorf("View() missing %q", want)
			}
		}

		_, cmd := m.Update(keyPress("enter"))
		if cmd == nil {
			t.Fatal("expected an open command")
		}
		m.Update(cmd())
		if len(opened) != 1 || opened[0] != rock.SpotifyURL {
			t.Errorf("opened = %v, want [%s]", opened, rock.SpotifyURL)
		}
		if m.notice != "" {
			t.Errorf("unexpected notice %q", m.notice)
		}

		_, cmd = m.Update(keyPress("q"))
		if !isQuit(cmd) {
			t.Error("q should quit the result view")
		}
		if m.Detached() {
			t.Error("quitting a finished job is not a detach")
		}
	})

	t.Run("open failure is reported", func(t *testing.T) {
		src := &fakeSource{jobs: []*models.Job{completed(rock)}}
		m := newWatcher(src, Options{Open: func(string) error { return errors.New("no browser") }})
		pollOnce(m)

		_, cmd := m.Update(keyPress("enter"))
		m.Update(cmd())
		if !strings.Contains(m.View(), "no browser") {
			t.Errorf("expected the open error in the view:\n%s", m.View())
		}
	})

	t.Run("exit on done", func(t *testing.T) {
		src := &fakeSource{jobs: []*models.Job{completed(rock)}}
		m := newWatcher(src, Options{ExitOnDone: true})

		if cmd := pollOnce(m); !isQuit(cmd) {
			t.Fatal("expected quit")
		}
		if got := m.Job(); got == nil || got.Status != models.JobCompleted {
			t.Errorf("Job() = %+v, want completed", got)
		}
		if !strings.Contains(m.View(), "✓ Organized 12 songs into 1 playlists") {
			t.Errorf("unexpected view:\n%s", m.View())
		}
	})

	t.Run("empty library", func(t *testing.T) {
		src := &fakeSource{jobs: []*models.Job{completed()}}
		m := newWatcher(src, Options{})

		if cmd := pollOnce(m); !isQuit(cmd) {
			t.Fatal("nothing to browse should quit")
		}
	})

	t.Run("failed job", func(t *testing.T) {
		failed := &models.Job{ID: "job-1", Status: models.JobFailed, Stage: models.JobAnalyzing, Error: "classifier unavailable"}
		src := &fakeSource{jobs: []*models.Job{failed}}
		m := newWatcher(src, Options{})

		if cmd := pollOnce(m); !isQuit(cmd) {
			t.Fatal("expected quit")
		}
		if m.Err() != nil {
			t.Errorf("a failed job is not a watcher error: %v", m.Err())
		}
		if view := m.View(); !strings.Contains(view, "Failed while analyzing: classifier unavailable") {
			t.Errorf("unexpected view:\n%s", view)
		}
	})
}

func TestWatcherPollErrors(t *testing.T) {
	t.Run("unknown job stops", func(t *testing.T) {
		src := &fakeSource{errs: []error{fmt.Errorf("%w: job", shared.ErrNotFound)}}
		m := newWatcher(src, Options{})

		if cmd := pollOnce(m); !isQuit(cmd) {
			t.Fatal("expected quit")
		}
		if !errors.Is(m.Err(), shared.ErrNotFound) {
			t.Errorf("Err() = %v, want ErrNotFound", m.Err())
		}
		if !strings.Contains(m.View(), "Error:") {
			t.Errorf("unexpected view:\n%s", m.View())
		}
	})

	t.Run("transient errors retry", func(t *testing.T) {
		boom := fmt.Errorf("%w: 503", shared.ErrAPIRequest)
		src := &fakeSource{
			errs: []error{boom, boom, nil},
			jobs: []*models.Job{nil, nil, running(models.JobFetching, 1, 10)},
		}
		m := newWatcher(src, Options{})

		for range 2 {
			if cmd := pollOnce(m); cmd == nil || isQuit(cmd) {
				t.Fatal("transient failure should schedule a retry")
			}
		}
		if m.failures != 2 || !strings.Contains(m.View(), "poll failed (2/5)") {
			t.Errorf("failures = %d, view:\n%s", m.failures, m.View())
		}

		pollOnce(m)
		if m.failures != 0 || m.notice != "" {
			t.Error("a successful poll should reset the failure count")
		}
	})

	t.Run("gives up", func(t *testing.T) {
		boom := fmt.Errorf("%w: 503", shared.ErrAPIRequest)
		src := &fakeSource{errs: []error{boom, boom, boom, boom, boom}}
		m := newWatcher(src, Options{})

		var cmd tea.Cmd
		for range maxPollFailures {
			cmd = pollOnce(m)
		}
		if !isQuit(cmd) {
			t.Fatal("expected quit after repeated failures")
		}
		if !errors.Is(m.Err(), shared.ErrAPIRequest) {
			t.Errorf("Err() = %v, want ErrAPIRequest", m.Err())
		}
	})
}

func TestWatcherDetach(t *testing.T) {
	src := &fakeSource{jobs: []*models.Job{running(models.JobFetching, 5, 100)}}
	m := newWatcher(src, Options{})
	pollOnce(m)

	_, cmd := m.Update(keyPress("ctrl+c"))
	if !isQuit(cmd) {
		t.Fatal("expected quit")
	}
	if !m.Detached() {
		t.Error("quitting a running job should detach")
	}
}
