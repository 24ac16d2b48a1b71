package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/genrefy/internal/formatter"
	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/shared"
	"github.com/desertthunder/genrefy/internal/ui"
	"github.com/urfave/cli/v3"
)

// Watch launches the interactive job watcher.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.StringArg("job-id")
	if jobID == "" {
		return fmt.Errorf("%w: job id is required", shared.ErrMissingArgument)
	}
	return r.watch(ctx, jobID, cmd.Duration("interval"), cmd.Bool("exit"))
}

func (r *Runner) watch(ctx context.Context, jobID string, interval time.Duration, exitOnDone bool) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	if path := r.config.Log.File; path != "" {
		fileLogger, closer, err := shared.NewFileLogger(path)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		defer closer.Close()
		r.SetLogger(fileLogger)
	}

	model := ui.NewModel(ctx, r.api, jobID, ui.Options{Interval: interval, ExitOnDone: exitOnDone})
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running watcher: %w", err)
	}

	if err := model.Err(); err != nil {
		return err
	}
	if model.Detached() {
		return r.writePlain("Detached; job %s keeps running. Check it with: genrefy status %s\n", jobID, jobID)
	}
	if job := model.Job(); job != nil {
		if err := r.writeBytes(formatter.ResultText(*job)); err != nil {
			return err
		}
		if job.Status == models.JobFailed {
			return fmt.Errorf("%w: job %s failed: %s", shared.ErrExternalDependency, job.ID, job.Error)
		}
	}
	return nil
}
