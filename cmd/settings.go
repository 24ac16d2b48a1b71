package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/genrefy/internal/formatter"
	"github.com/urfave/cli/v3"
)

// SettingsShow prints the naming templates.
func (r *Runner) SettingsShow(ctx context.Context, cmd *cli.Command) error {
	settings, err := r.api.Settings(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(settings, cmd.Bool("pretty"))
	}

	tier := "free"
	if settings.IsPremium {
		tier = "premium"
	}
	return r.writePlain("Name template:        %s\nDescription template: %s\nAccount:              %s\n",
		settings.NameTemplate, settings.DescriptionTemplate, tier)
}

// SettingsSet replaces the naming templates. The name template is checked locally
// before the request is sent.
func (r *Runner) SettingsSet(ctx context.Context, cmd *cli.Command) error {
	name := cmd.String("name")
	if err := formatter.ValidateNameTemplate(name); err != nil {
		return err
	}

	settings, err := r.api.SaveSettings(ctx, name, cmd.String("description"))
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return r.writePlain("✓ Settings saved\nName template:        %s\nDescription template: %s\n",
		settings.NameTemplate, settings.DescriptionTemplate)
}
