package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/shared"
	tu "github.com/desertthunder/genrefy/internal/testing"
)

func TestAPIClient(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			c := NewAPIClient("http://example.com/", "s", customClient)

			if c.BaseURL() != "http://example.com" {
				t.Errorf("expected trailing slash to be trimmed, got %s", c.BaseURL())
			}
			if c.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Empty BaseURL And Nil Client", func(t *testing.T) {
			c := NewAPIClient("", "", nil)

			if c.BaseURL() != "http://127.0.0.1:3000" {
				t.Errorf("expected default baseURL, got %s", c.BaseURL())
			}
			if c.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})
	})

	t.Run("StartOrganize Sends Session And Body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/organize" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value != "sess-1" {
				t.Errorf("expected session cookie, got %v %v", cookie, err)
			}

			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if body["playlist_count"] != float64(12) || body["replace_existing"] != true {
				t.Errorf("unexpected body %v", body)
			}

			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"job_id": "job-1", "status": "queued"})
		}))
		defer server.Close()

		c := NewAPIClient(server.URL, "sess-1", nil)
		resp, err := c.StartOrganize(context.Background(), 12, true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.JobID != "job-1" || resp.Status != models.JobQueued {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("OrganizeStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/organize/job-1" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			json.NewEncoder(w).Encode(models.Job{ID: "job-1", Status: models.JobAnalyzing, SongsProcessed: 3, TotalSongs: 10})
		}))
		defer server.Close()

		job, err := NewAPIClient(server.URL, "", nil).OrganizeStatus(context.Background(), "job-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if job.Status != models.JobAnalyzing || job.SongsProcessed != 3 {
			t.Errorf("unexpected job %+v", job)
		}
	})

	t.Run("Error Statuses", func(t *testing.T) {
		tt := []struct {
			status int
			want   error
		}{
			{http.StatusBadRequest, shared.ErrInvalidArgument},
			{http.StatusUnauthorized, shared.ErrNotAuthenticated},
			{http.StatusNotFound, shared.ErrNotFound},
			{http.StatusConflict, shared.ErrConflict},
			{http.StatusBadGateway, shared.ErrExternalDependency},
			{http.StatusInternalServerError, shared.ErrInternal},
		}

		for _, tc := range tt {
			t.Run(http.StatusText(tc.status), func(t *testing.T) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tc.status)
					json.NewEncoder(w).Encode(map[string]string{"error": "boom"})
				}))
				defer server.Close()

				_, err := NewAPIClient(server.URL, "", nil).Playlists(context.Background())
				if !errors.Is(err, tc.want) {
					t.Errorf("expected %v, got %v", tc.want, err)
				}
			})
		}
	})

	t.Run("Delete Returns Warning", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				t.Errorf("expected DELETE, got %s", r.Method)
			}
			json.NewEncoder(w).Encode(map[string]string{"warning": "unfollow failed"})
		}))
		defer server.Close()

		warning, err := NewAPIClient(server.URL, "", nil).DeletePlaylist(context.Background(), "pl1")
		if err != nil || warning != "unfollow failed" {
			t.Errorf("got warning %q err %v", warning, err)
		}
	})

	t.Run("No Content", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		name := "Loud"
		warning, err := NewAPIClient(server.URL, "", nil).UpdatePlaylist(context.Background(), "pl1", PlaylistPatch{CustomName: &name})
		if err != nil || warning != "" {
			t.Errorf("got warning %q err %v", warning, err)
		}
	})

	t.Run("Transport Errors", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("network down"))}
		if _, err := NewAPIClient("http://example.com", "", client).SyncAll(context.Background()); err == nil {
			t.Error("expected transport error")
		}
	})

	t.Run("Body Read Errors", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: make(http.Header)}
		client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
		if _, err := NewAPIClient("http://example.com", "", client).SyncStatus(context.Background()); err == nil {
			t.Error("expected read error")
		}
	})

	t.Run("LibraryCount And Health", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/library/count":
				json.NewEncoder(w).Encode(map[string]int{"count": 1247})
			case "/health":
				if _, err := r.Cookie(SessionCookie); err == nil {
					t.Error("health should not need a session")
				}
				json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
			default:
				http.NotFound(w, r)
			}
		}))
		defer server.Close()

		c := NewAPIClient(server.URL, "sess-1", nil)
		if n, err := c.LibraryCount(context.Background()); err != nil || n != 1247 {
			t.Errorf("LibraryCount() = %d, %v", n, err)
		}
		if status, err := c.WithSession("").Health(context.Background()); err != nil || status != "ok" {
			t.Errorf("Health() = %q, %v", status, err)
		}
		if c.session != "sess-1" {
			t.Error("WithSession should not modify the original client")
		}
	})

	t.Run("LoginURL", func(t *testing.T) {
		c := NewAPIClient("http://127.0.0.1:3000", "", nil)

		if got := c.LoginURL(""); got != "http://127.0.0.1:3000/api/auth/login" {
			t.Errorf("unexpected url %s", got)
		}
		want := "http://127.0.0.1:3000/api/auth/login?redirect=http%3A%2F%2F127.0.0.1%3A4567%2Fcallback%3Fnonce%3Dn1"
		if got := c.LoginURL("http://127.0.0.1:4567/callback?nonce=n1"); got != want {
			t.Errorf("got %s, want %s", got, want)
		}
	})
}
