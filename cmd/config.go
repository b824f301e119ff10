package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/smazurov/jobsh/internal/config"
	"github.com/spf13/cobra"
)

// DefaultConfigPath returns $XDG_CONFIG_HOME/jobsh/config.toml, or "" when
// the user config directory is unknown.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "jobsh", "config.toml")
}

// LoadOptions fills opts from the config file and the environment, leaving
// flags set on cmd's command line alone, and validates the result.
func LoadOptions(cmd *cobra.Command, opts *config.Options) error {
	if opts.Config == "" {
		opts.Config = DefaultConfigPath()
	}
	if err := config.LoadConfig(opts, cmd); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// CreateConfigCmd creates the config command, which prints the effective
// configuration as TOML.
func CreateConfigCmd(opts *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Loads the configuration file, JOBSH_* environment variables and flags in that order ` +
			`and prints the result as TOML. The output is a valid configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := LoadOptions(cmd, opts); err != nil {
				return err
			}
			data, err := config.Marshal(*opts)
			if err != nil {
				return fmt.Errorf("render config: %w", err)
			}
			if opts.Config != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", opts.Config)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
