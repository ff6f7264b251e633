package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/comb/internal/core/config"
	"github.com/colonyops/comb/internal/core/styles"
	"github.com/colonyops/comb/pkg/iojson"
)

type ConfigValidateCmd struct {
	flags *Flags
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "comb config validate",
				Description: "Validates the configuration file, checking hook definitions, regex patterns, and file paths.",
				Action:      cmd.run,

			},
		},
	})

	return app
}

type validationIssue struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type validationReport struct {
	Valid    bool                       `json:"valid"`
	Errors   []validationIssue          `json:"errors,omitempty"`
	Warnings []config.ValidationWarning `json:"warnings,omitempty"`
}

func (cmd *ConfigValidateCmd) run(_ context.Context, c *cli.Command) error {
	cfg, err := config.Read(cmd.flags.ConfigPath, cmd.flags.DataDir)
	if err != nil {
		return err
	}
	report := validationReport{Warnings: cfg.Warnings()}

	if err := cfg.ValidateDeep(cmd.flags.ConfigPath); err != nil {
		report.Errors = issues(err)
	}
	report.Valid = len(report.Errors) == 0

	w := c.Root().Writer
	if cmd.flags.JSON {
		if err := iojson.WriteWith(w, c.Root().ErrWriter, report); err != nil {
			return err
		}
		if !report.Valid {
			return ErrReported
		}
		return nil
	}

	return outputText(w, cmd.flags.ConfigPath, report)
}

// issues flattens criterio field errors; any other error becomes one issue.
func issues(err error) []validationIssue {
	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return []validationIssue{{Message: err.Error()}}
	}

	out := make([]validationIssue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, validationIssue{Field: fe.Field, Message: fe.Err.Error()})
	}
	slices.SortStableFunc(out, func(a, b validationIssue) int {
		switch {
		case a.Field < b.Field:
			return -1
		case a.Field > b.Field:
			return 1
		}
		return 0
	})
	return out
}

func outputText(w io.Writer, path string, report validationReport) error {
	for _, warn := range report.Warnings {
		line := styles.WarningStyle.Render("warning") + " " + warn.Category + ": " + warn.Message
		if warn.Item != "" {
			line += " (" + warn.Item + ")"
		}
		_, _ = fmt.Fprintln(w, line)
	}

	for _, issue := range report.Errors {
		line := styles.ErrorStyle.Render("error") + " "
		if issue.Field != "" {
			line += issue.Field + ": "
		}
		_, _ = fmt.Fprintln(w, line+issue.Message)
	}

	if report.Valid {
		_, err := fmt.Fprintln(w, styles.SuccessStyle.Render("Configuration is valid: "+path))
		return err
	}
	return fmt.Errorf("%d error(s) found in %s", len(report.Errors), path)
}
