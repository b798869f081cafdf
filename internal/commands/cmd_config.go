package commands

import (
	"context"
	"errors"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/daybook/internal/core/config"
)

type ConfigCmd struct {
	flags  *Flags
	format string
	force  bool
}

// NewConfigCmd creates a new config command.
func NewConfigCmd(flags *Flags) *ConfigCmd {
	return &ConfigCmd{flags: flags}
}

// Register adds the config command group to the application.
func (cmd *ConfigCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "daybook config validate [options]",
				Description: "Validates the configuration file, checking every allocation, chunk, database and render setting and the data directory.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.runValidate,
			},
			{
				Name:        "init",
				Usage:       "Write a config file with the default settings",
				UsageText:   "daybook config init [--force]",
				Description: "Writes the default configuration to the --config path. An existing file is kept as <path>.bak when --force replaces it.",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "force",
						Usage:       "replace an existing config file",
						Destination: &cmd.force,
					},
				},
				Action: cmd.runInit,
			},
		},
	})

	return app
}

type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (cmd *ConfigCmd) runValidate(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	err := cfg.ValidateDeep(cmd.flags.ConfigPath)
	warnings := cfg.Warnings()

	if cmd.format == "json" {
		if jerr := cmd.outputJSON(c, err, warnings); jerr != nil {
			return jerr
		}
	} else {
		printf(c, "%s", newRenderer(c, cfg).Validation(err, warnings))
	}

	if err != nil {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *ConfigCmd) outputJSON(c *cli.Command, err error, warnings []config.ValidationWarning) error {
	out := struct {
		Valid    bool                       `json:"valid"`
		Errors   []validationError          `json:"errors,omitempty"`
		Warnings []config.ValidationWarning `json:"warnings,omitempty"`
	}{
		Valid:    err == nil,
		Warnings: warnings,
	}

	var fieldErrs criterio.FieldErrors
	switch {
	case err == nil:
	case errors.As(err, &fieldErrs):
		for _, fe := range fieldErrs {
			out.Errors = append(out.Errors, validationError{Field: fe.Field, Message: fe.Err.Error()})
		}
	default:
		out.Errors = append(out.Errors, validationError{Message: err.Error()})
	}

	return writeJSON(c, out)
}

func (cmd *ConfigCmd) runInit(ctx context.Context, c *cli.Command) error {
	backup, err := config.WriteDefault(cmd.flags.ConfigPath, cmd.force)
	if err != nil {
		return err
	}

	if backup != "" {
		printf(c, "backed up previous config to %s\n", backup)
	}
	printf(c, "wrote %s\n", cmd.flags.ConfigPath)
	return nil
}
