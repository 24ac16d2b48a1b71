package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/genrefy/internal/formatter"
	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/shared"
	"github.com/urfave/cli/v3"
)

// waitInterval is the poll period of organize --wait.
var waitInterval = time.Second

// Organize starts a job and optionally follows it.
func (r *Runner) Organize(ctx context.Context, cmd *cli.Command) error {
	count := cmd.Int("count")
	if count < 1 || count > 50 {
		return fmt.Errorf("%w: --count must be between 1 and 50", shared.ErrInvalidArgument)
	}

	r.logger.Info("starting organize job", "count", count, "replace", cmd.Bool("replace"))

	started, err := r.api.StartOrganize(ctx, count, cmd.Bool("replace"))
	if err != nil {
		return fmt.Errorf("failed to start job: %w", err)
	}

	switch {
	case cmd.Bool("watch"):
		return r.watch(ctx, started.JobID, time.Second, false)
	case cmd.Bool("wait"):
		job, err := r.waitForJob(ctx, started.JobID, waitInterval)
		if err != nil {
			return err
		}
		return r.writeJob(job, cmd.Bool("json"), cmd.Bool("pretty"))
	case cmd.Bool("json"):
		return r.writeJSON(started, cmd.Bool("pretty"))
	}

	if err := r.writePlain("✓ Job %s %s\n", started.JobID, started.Status); err != nil {
		return err
	}
	return r.writePlain("Follow it with: genrefy watch %s\n", started.JobID)
}

// waitForJob polls until the job is terminal.
func (r *Runner) waitForJob(ctx context.Context, jobID string, interval time.Duration) (*models.Job, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last models.JobStatus
	for {
		job, err := r.api.OrganizeStatus(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("failed to poll job: %w", err)
		}
		if job.Status != last {
			r.logger.Info("job progress", "job", jobID, "status", job.Status, "processed", job.SongsProcessed, "total", job.TotalSongs)
			last = job.Status
		}
		if job.Status.Terminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Status prints one snapshot of a job.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.StringArg("job-id")
	if jobID == "" {
		return fmt.Errorf("%w: job id is required", shared.ErrMissingArgument)
	}

	job, err := r.api.OrganizeStatus(ctx, jobID)
	if err != nil {
		return err
	}
	return r.writeJob(job, cmd.Bool("json"), cmd.Bool("pretty"))
}

func (r *Runner) writeJob(job *models.Job, useJSON, pretty bool) error {
	if useJSON {
		return r.writeJSON(job, pretty)
	}
	return r.writeBytes(formatter.ResultText(*job))
}

// Jobs lists retained jobs and recent history.
func (r *Runner) Jobs(ctx context.Context, cmd *cli.Command) error {
	resp, err := r.api.Jobs(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(resp, cmd.Bool("pretty"))
	}

	if len(resp.Jobs) == 0 && len(resp.History) == 0 {
		return r.writePlain("No jobs yet\n")
	}

	if len(resp.Jobs) > 0 {
		r.writePlainHeader("Active and recent")
		for _, job := range resp.Jobs {
			r.writePlain("%s  %-9s  %d/%d songs  %s\n",
				job.ID, job.Status, job.SongsProcessed, job.TotalSongs, job.CreatedAt.Local().Format(time.DateTime))
		}
	}

	if len(resp.History) > 0 {
		if len(resp.Jobs) > 0 {
			r.writePlain("\n")
		}
		r.writePlainHeader("History")
		for _, rec := range resp.History {
			r.writePlain("%s  %-9s  %d playlists  %s\n",
				rec.JobID, rec.Status, rec.PlaylistsCreated, rec.FinishedAt.Local().Format(time.DateTime))
			if rec.Error != "" {
				r.writePlain("  error: %s\n", rec.Error)
			}
		}
	}
	return nil
}
