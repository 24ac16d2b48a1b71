package repositories

import (
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/shared"
	"golang.org/x/oauth2"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, db *sql.DB, id, product string) *models.User {
	t.Helper()
	user := &models.User{SpotifyID: id, DisplayName: "User " + id, Product: product}
	if err := NewUserRepository(db).Create(user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "managed_playlists")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "nonexistent"); err == nil {
		t.Error("expected error for missing sequence table")
	}
}

func TestUserRepository(t *testing.T) {
	t.Run("Create And Get", func(t *testing.T) {
		db := setupTestDB(t)
		createUser(t, db, "alice", "premium")

		user, err := NewUserRepository(db).Get("alice")
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if user.DisplayName != "User alice" || !user.Premium() {
			t.Errorf("unexpected user %+v", user)
		}
		if user.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", user.Sequence())
		}
	})

	t.Run("Validation Error", func(t *testing.T) {
		db := setupTestDB(t)

		err := NewUserRepository(db).Create(&models.User{})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Upsert Updates Profile", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)

		if err := repo.Upsert(&models.User{SpotifyID: "bob", Product: "free"}); err != nil {
			t.Fatalf("first upsert failed: %v", err)
		}
		if err := repo.Upsert(&models.User{SpotifyID: "bob", DisplayName: "Bob", Product: "premium"}); err != nil {
			t.Fatalf("second upsert failed: %v", err)
		}

		users, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list users: %v", err)
		}
		if len(users) != 1 {
			t.Fatalf("expected 1 user, got %d", len(users))
		}
		if users[0].DisplayName != "Bob" || users[0].Product != "premium" {
			t.Errorf("profile not updated: %+v", users[0])
		}
	})

	t.Run("Upsert Revives Deleted", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)
		createUser(t, db, "carol", "free")

		if err := repo.Delete("carol"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := repo.Get("carol"); !errors.Is(err, shared.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := repo.Upsert(&models.User{SpotifyID: "carol"}); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		if _, err := repo.Get("carol"); err != nil {
			t.Errorf("expected revived user, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)
		user := createUser(t, db, "dave", "free")

		user.Email = "dave@example.com"
		if err := repo.Update(user); err != nil {
			t.Fatalf("failed to update: %v", err)
		}

		users, err := repo.List(map[string]any{"email": "dave@example.com"})
		if err != nil || len(users) != 1 {
			t.Fatalf("expected 1 user by email, got %d (%v)", len(users), err)
		}

		missing := &models.User{SpotifyID: "nobody"}
		if err := repo.Update(missing); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete Twice", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)
		createUser(t, db, "erin", "free")

		if err := repo.Delete("erin"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if err := repo.Delete("erin"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	newSession := func(id string) *models.Session {
		return &models.Session{
			SessionID:    id,
			UserID:       "alice",
			AccessToken:  "access",
			RefreshToken: "refresh",
			TokenType:    "Bearer",
			Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		}
	}

	t.Run("Create And Get", func(t *testing.T) {
		db := setupTestDB(t)
		createUser(t, db, "alice", "free")
		repo := NewSessionRepository(db)

		if err := repo.Create(newSession("s1")); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		s, err := repo.Get("s1")
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}
		if s.UserID != "alice" || s.RefreshToken != "refresh" {
			t.Errorf("unexpected session %+v", s)
		}
		if !s.Expiry.Equal(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected expiry %v", s.Expiry)
		}
	})

	t.Run("Requires Known User", func(t *testing.T) {
		db := setupTestDB(t)

		if err := NewSessionRepository(db).Create(newSession("s1")); err == nil {
			t.Error("expected foreign key error")
		}
	})

	t.Run("UpdateToken Keeps Refresh Token", func(t *testing.T) {
		db := setupTestDB(t)
		createUser(t, db, "alice", "free")
		repo := NewSessionRepository(db)
		if err := repo.Create(newSession("s1")); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		if err := repo.UpdateToken("s1", &oauth2.Token{AccessToken: "new-access"}); err != nil {
			t.Fatalf("failed to update token: %v", err)
		}

		s, err := repo.Get("s1")
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}
		if s.AccessToken != "new-access" {
			t.Errorf("expected new access token, got %s", s.AccessToken)
		}
		if s.RefreshToken != "refresh" {
			t.Errorf("expected refresh token to be kept, got %s", s.RefreshToken)
		}
		if !s.Expiry.IsZero() {
			t.Errorf("expected zero expiry, got %v", s.Expiry)
		}
	})

	t.Run("UpdateToken Errors", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSessionRepository(db)

		if err := repo.UpdateToken("s1", nil); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if err := repo.UpdateToken("missing", &oauth2.Token{AccessToken: "a"}); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete And List", func(t *testing.T) {
		db := setupTestDB(t)
		createUser(t, db, "alice", "free")
		repo := NewSessionRepository(db)
		for _, id := range []string{"s1", "s2"} {
			if err := repo.Create(newSession(id)); err != nil {
				t.Fatalf("failed to create session: %v", err)
			}
		}

		if err := repo.Delete("s1"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := repo.Get("s1"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		sessions, err := repo.List(map[string]any{"user_id": "alice"})
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(sessions) != 1 || sessions[0].SessionID != "s2" {
			t.Errorf("unexpected sessions %+v", sessions)
		}
	})
}

func TestSettingsRepository(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		db := setupTestDB(t)
		createUser(t, db, "alice", "premium")

		settings, err := NewSettingsRepository(db).Get("alice")
		if err != nil {
			t.Fatalf("failed to get settings: %v", err)
		}
		if settings.NameTemplate != models.DefaultNameTemplate {
			t.Errorf("expected default name template, got %q", settings.NameTemplate)
		}
		if settings.DescriptionTemplate != models.DefaultDescriptionTemplate {
			t.Errorf("expected default description template, got %q", settings.DescriptionTemplate)
		}
		if !settings.IsPremium {
			t.Error("expected premium flag from product tier")
		}
	})

	t.Run("Unknown User Gets Defaults", func(t *testing.T) {
		db := setupTestDB(t)

		settings, err := NewSettingsRepository(db).Get("ghost")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if settings.IsPremium || settings.NameTemplate != models.DefaultNameTemplate {
			t.Errorf("unexpected settings %+v", settings)
		}
	})

	t.Run("Save And Overwrite", func(t *testing.T) {
		db := setupTestDB(t)
		createUser(t, db, "alice", "free")
		repo := NewSettingsRepository(db)

		for _, tmpl := range []string{"{genre} Mix", "{username}'s {genre}"} {
			s := &models.UserSettings{UserID: "alice", NameTemplate: tmpl, DescriptionTemplate: "since {year}", IsPremium: true}
			if err := repo.Save(s); err != nil {
				t.Fatalf("failed to save settings: %v", err)
			}
		}

		settings, err := repo.Get("alice")
		if err != nil {
			t.Fatalf("failed to get settings: %v", err)
		}
		if settings.NameTemplate != "{username}'s {genre}" || settings.DescriptionTemplate != "since {year}" {
			t.Errorf("unexpected settings %+v", settings)
		}
		if settings.IsPremium {
			t.Error("expected IsPremium to come from the user row, not the saved settings")
		}
	})

	t.Run("Rejects Template Without Genre", func(t *testing.T) {
		db := setupTestDB(t)
		createUser(t, db, "alice", "free")

		err := NewSettingsRepository(db).Save(&models.UserSettings{UserID: "alice", NameTemplate: "My Playlist"})
		if !errors.Is(err, shared.ErrInvalidTemplate) || !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidTemplate, got %v", err)
		}
	})
}

func TestPlaylistRepository(t *testing.T) {
	newPlaylist := func(id, genre string) *models.ManagedPlaylist {
		return &models.ManagedPlaylist{
			SpotifyID:  id,
			UserID:     "alice",
			Name:       genre + " by Organizer",
			Genre:      genre,
			SongCount:  10,
			SpotifyURL: "https://open.spotify.com/playlist/" + id,
		}
	}

	t.Run("Create And Get", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)

		if err := repo.Create(newPlaylist("pl1", "Rock")); err != nil {
			t.Fatalf("failed to create: %v", err)
		}

		p, err := repo.Get("pl1")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if p.Genre != "Rock" || p.SongCount != 10 || p.UserID != "alice" {
			t.Errorf("unexpected playlist %+v", p)
		}
		if p.LastSynced != nil || p.CustomName != nil {
			t.Error("expected nil optional fields")
		}
	})

	t.Run("Create Duplicate", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)

		if err := repo.Create(newPlaylist("pl1", "Rock")); err != nil {
			t.Fatalf("failed to create: %v", err)
		}
		if err := repo.Create(newPlaylist("pl1", "Rock")); !errors.Is(err, shared.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("Upsert Preserves Overrides", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)

		if err := repo.Upsert(newPlaylist("pl1", "Rock")); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}
		name := "Loud Stuff"
		if err := repo.SetOverrides("pl1", &name, nil); err != nil {
			t.Fatalf("failed to set overrides: %v", err)
		}

		updated := newPlaylist("pl1", "Rock")
		updated.SongCount = 42
		if err := repo.Upsert(updated); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		p, err := repo.Get("pl1")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if p.SongCount != 42 {
			t.Errorf("expected song count 42, got %d", p.SongCount)
		}
		if p.CustomName == nil || *p.CustomName != "Loud Stuff" {
			t.Errorf("expected custom name to survive upsert, got %v", p.CustomName)
		}
		if p.DisplayName() != "Loud Stuff" {
			t.Errorf("expected display name override, got %s", p.DisplayName())
		}
	})

	t.Run("SetOverrides Clears With Empty String", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)
		if err := repo.Create(newPlaylist("pl1", "Rock")); err != nil {
			t.Fatalf("failed to create: %v", err)
		}

		name, desc := "Custom", "Described"
		if err := repo.SetOverrides("pl1", &name, &desc); err != nil {
			t.Fatalf("failed to set overrides: %v", err)
		}
		empty := ""
		if err := repo.SetOverrides("pl1", &empty, nil); err != nil {
			t.Fatalf("failed to clear override: %v", err)
		}

		p, _ := repo.Get("pl1")
		if p.CustomName != nil {
			t.Errorf("expected custom name cleared, got %q", *p.CustomName)
		}
		if p.CustomDescription == nil || *p.CustomDescription != "Described" {
			t.Errorf("expected description unchanged, got %v", p.CustomDescription)
		}

		if err := repo.SetOverrides("missing", &name, nil); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("RecordSync", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)
		if err := repo.Create(newPlaylist("pl1", "Rock")); err != nil {
			t.Fatalf("failed to create: %v", err)
		}

		at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		if err := repo.RecordSync("pl1", 99, at); err != nil {
			t.Fatalf("failed to record sync: %v", err)
		}

		p, _ := repo.Get("pl1")
		if p.SongCount != 99 {
			t.Errorf("expected 99 songs, got %d", p.SongCount)
		}
		if p.LastSynced == nil || !p.LastSynced.Equal(at) {
			t.Errorf("expected last synced %v, got %v", at, p.LastSynced)
		}

		if err := repo.RecordSync("missing", 1, at); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("FindByGenre Returns Newest", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)
		for _, id := range []string{"old", "new"} {
			if err := repo.Create(newPlaylist(id, "Jazz")); err != nil {
				t.Fatalf("failed to create: %v", err)
			}
		}

		p, err := repo.FindByGenre("alice", "Jazz")
		if err != nil {
			t.Fatalf("failed to find: %v", err)
		}
		if p.SpotifyID != "new" {
			t.Errorf("expected newest playlist, got %s", p.SpotifyID)
		}

		if _, err := repo.FindByGenre("alice", "Polka"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := repo.FindByGenre("bob", "Jazz"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected other users to be excluded, got %v", err)
		}
	})

	t.Run("ListByUser Excludes Deleted", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)
		for _, p := range []*models.ManagedPlaylist{newPlaylist("a", "Rock"), newPlaylist("b", "Jazz"), newPlaylist("c", "Folk")} {
			if err := repo.Create(p); err != nil {
				t.Fatalf("failed to create: %v", err)
			}
		}
		other := newPlaylist("d", "Rock")
		other.UserID = "bob"
		if err := repo.Create(other); err != nil {
			t.Fatalf("failed to create: %v", err)
		}

		if err := repo.Delete("b"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}

		playlists, err := repo.ListByUser("alice")
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(playlists) != 2 || playlists[0].SpotifyID != "a" || playlists[1].SpotifyID != "c" {
			t.Errorf("unexpected playlists %+v", playlists)
		}

		rock, err := repo.List(map[string]any{"genre": "Rock"})
		if err != nil || len(rock) != 2 {
			t.Errorf("expected 2 rock playlists across users, got %d (%v)", len(rock), err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)
		p := newPlaylist("pl1", "Rock")
		if err := repo.Create(p); err != nil {
			t.Fatalf("failed to create: %v", err)
		}

		p.Name = "Rock Again"
		if err := repo.Update(p); err != nil {
			t.Fatalf("failed to update: %v", err)
		}
		got, _ := repo.Get("pl1")
		if got.Name != "Rock Again" {
			t.Errorf("expected updated name, got %s", got.Name)
		}

		if err := repo.Update(&models.ManagedPlaylist{SpotifyID: "x", UserID: "alice", Genre: "Rock"}); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := repo.Update(&models.ManagedPlaylist{SpotifyID: "x"}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Concurrent RecordSync", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)
		ids := []string{"a", "b", "c", "d", "e"}
		for _, id := range ids {
			if err := repo.Create(newPlaylist(id, "Genre "+id)); err != nil {
				t.Fatalf("failed to create: %v", err)
			}
		}

		var wg sync.WaitGroup
		errs := make(chan error, len(ids))
		for i, id := range ids {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- repo.RecordSync(id, i, time.Now())
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}
	})
}

func TestJobRepository(t *testing.T) {
	finished := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	newJob := func(id string, status models.JobStatus) models.Job {
		return models.Job{
			ID:             id,
			Status:         status,
			Stage:          models.JobCreating,
			TotalSongs:     100,
			SongsProcessed: 100,
			PlaylistCount:  5,
			Result: &models.OrganizeResult{Playlists: []models.PlaylistSummary{
				{Genre: "Rock", SongCount: 60},
				{Genre: "Jazz", SongCount: 40},
			}},
			CreatedAt:  finished.Add(-time.Minute),
			FinishedAt: &finished,
		}
	}

	t.Run("RecordJob And Get", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewJobRepository(db)

		if err := repo.RecordJob("alice", newJob("j1", models.JobCompleted)); err != nil {
			t.Fatalf("failed to record job: %v", err)
		}

		rec, err := repo.Get("j1")
		if err != nil {
			t.Fatalf("failed to get job: %v", err)
		}
		if rec.Status != models.JobCompleted || rec.PlaylistsCreated != 2 || rec.TotalSongs != 100 {
			t.Errorf("unexpected record %+v", rec)
		}
		if !rec.FinishedAt.Equal(finished) {
			t.Errorf("expected finished at %v, got %v", finished, rec.FinishedAt)
		}
		if rec.Error != "" {
			t.Errorf("expected no error message, got %q", rec.Error)
		}
	})

	t.Run("Rejects Running Jobs", func(t *testing.T) {
		db := setupTestDB(t)

		err := NewJobRepository(db).RecordJob("alice", newJob("j1", models.JobAnalyzing))
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewJobRepository(db)

		if err := repo.RecordJob("alice", newJob("j1", models.JobCompleted)); err != nil {
			t.Fatalf("failed to record job: %v", err)
		}
		if err := repo.RecordJob("alice", newJob("j1", models.JobCompleted)); !errors.Is(err, shared.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("ListByUser Newest First With Limit", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewJobRepository(db)

		for _, id := range []string{"j1", "j2", "j3"} {
			if err := repo.RecordJob("alice", newJob(id, models.JobCompleted)); err != nil {
				t.Fatalf("failed to record job: %v", err)
			}
		}
		failed := newJob("j4", models.JobFailed)
		failed.Error = "boom"
		if err := repo.RecordJob("bob", failed); err != nil {
			t.Fatalf("failed to record job: %v", err)
		}

		jobs, err := repo.ListByUser("alice", 2)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(jobs) != 2 || jobs[0].JobID != "j3" || jobs[1].JobID != "j2" {
			t.Errorf("unexpected jobs %+v", jobs)
		}

		byStatus, err := repo.List(map[string]any{"status": models.JobFailed})
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(byStatus) != 1 || byStatus[0].Error != "boom" {
			t.Errorf("unexpected failed jobs %+v", byStatus)
		}
	})

	t.Run("Update And Delete", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewJobRepository(db)
		if err := repo.RecordJob("alice", newJob("j1", models.JobCompleted)); err != nil {
			t.Fatalf("failed to record job: %v", err)
		}

		rec, _ := repo.Get("j1")
		rec.Status = models.JobFailed
		rec.Error = "rewritten"
		if err := repo.Update(rec); err != nil {
			t.Fatalf("failed to update: %v", err)
		}
		rec, _ = repo.Get("j1")
		if rec.Status != models.JobFailed || rec.Error != "rewritten" {
			t.Errorf("unexpected record %+v", rec)
		}

		if err := repo.Delete("j1"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := repo.Get("j1"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := repo.Delete("j1"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}
