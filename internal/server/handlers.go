package server

import (
	"net/http"
	"strings"

	"github.com/desertthunder/genrefy/internal/formatter"
	"github.com/desertthunder/genrefy/internal/models"
	"github.com/go-chi/chi/v5"
)

type organizeRequest struct {
	PlaylistCount   int  `json:"playlist_count" validate:"required,min=1,max=50"`
	ReplaceExisting bool `json:"replace_existing"`
}

type organizeResponse struct {
	JobID  string           `json:"job_id"`
	Status models.JobStatus `json:"status"`
}

type jobsResponse struct {
	Jobs    []models.Job        `json:"jobs"`
	History []*models.JobRecord `json:"history"`
}

type settingsRequest struct {
	NameTemplate        string `json:"name_template" validate:"required,max=100"`
	DescriptionTemplate string `json:"description_template" validate:"max=300"`
}

type playlistPatch struct {
	CustomName        *string `json:"custom_name" validate:"omitnil,max=100"`
	CustomDescription *string `json:"custom_description" validate:"omitnil,max=300"`
}

type playlistsResponse struct {
	Playlists  []*models.ManagedPlaylist `json:"playlists"`
	TotalSongs int                       `json:"total_songs"`
}

type songCountResponse struct {
	SongCount int `json:"song_count"`
}

type warningResponse struct {
	Warning string `json:"warning"`
}

func (s *Server) handleStartOrganize(w http.ResponseWriter, r *http.Request) {
	var req organizeRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	p := caller(r)
	id, err := s.Jobs.StartJob(p.account, req.PlaylistCount, req.ReplaceExisting)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, organizeResponse{JobID: id, Status: models.JobQueued})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.Jobs.GetStatus(caller(r).user.SpotifyID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	userID := caller(r).user.SpotifyID

	resp := jobsResponse{Jobs: s.Jobs.Jobs(userID), History: []*models.JobRecord{}}
	if s.History != nil {
		history, err := s.History.ListByUser(userID, s.opts.HistoryLimit)
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		if history != nil {
			resp.History = history
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.Settings.Get(caller(r).user.SpotifyID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleSaveSettings replaces both templates. An empty description resets it to the default.
func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := formatter.ValidateNameTemplate(req.NameTemplate); err != nil {
		writeError(w, s.logger, err)
		return
	}

	userID := caller(r).user.SpotifyID
	desc := strings.TrimSpace(req.DescriptionTemplate)
	if desc == "" {
		desc = models.DefaultDescriptionTemplate
	}

	err := s.Settings.Save(&models.UserSettings{
		UserID:              userID,
		NameTemplate:        req.NameTemplate,
		DescriptionTemplate: desc,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	saved, err := s.Settings.Get(userID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, total, err := s.Reconciler.Playlists(caller(r).user.SpotifyID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if playlists == nil {
		playlists = []*models.ManagedPlaylist{}
	}
	writeJSON(w, http.StatusOK, playlistsResponse{Playlists: playlists, TotalSongs: total})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	n, err := s.Reconciler.RefreshOne(r.Context(), caller(r).account, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, songCountResponse{SongCount: n})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	n, err := s.Reconciler.RebuildOne(r.Context(), caller(r).account, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, songCountResponse{SongCount: n})
}

func (s *Server) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req playlistPatch
	if err := s.decode(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	warning, err := s.Reconciler.UpdatePlaylist(r.Context(), caller(r).account, chi.URLParam(r, "id"), req.CustomName, req.CustomDescription)
	s.writeOutcome(w, warning, err)
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	warning, err := s.Reconciler.DeletePlaylist(r.Context(), caller(r).account, chi.URLParam(r, "id"))
	s.writeOutcome(w, warning, err)
}

// writeOutcome answers 204 for a clean edit and 200 with a warning when only the local side succeeded.
func (s *Server) writeOutcome(w http.ResponseWriter, warning, err error) {
	switch {
	case err != nil:
		writeError(w, s.logger, err)
	case warning != nil:
		writeJSON(w, http.StatusOK, warningResponse{Warning: warning.Error()})
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	result, err := s.Reconciler.SyncAll(r.Context(), caller(r).account)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.Reconciler.SyncStatus(r.Context(), caller(r).account)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleLibraryCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.Reconciler.LibraryCount(r.Context(), caller(r).account)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}
