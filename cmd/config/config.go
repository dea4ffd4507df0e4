// Package config provides the config command for inspecting and migrating
// persisted matRad configurations.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Copani/matRad/internal/conf"
)

// Command creates and returns the config command
func Command(fs afero.Fs, config func() *conf.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and migrate configuration snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("please specify a subcommand: show, migrate")
		},
	}

	cmd.AddCommand(showCommand(config), migrateCommand(fs, config))
	return cmd
}

func showCommand(config func() *conf.Config) *cobra.Command {
	var profile, format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := config()
			if profile != "" {
				if err := c.ApplyProfile(conf.Profile(profile)); err != nil {
					return err
				}
			}
			return printSettings(cmd, c.Snapshot(), format)
		},
	}

	cmd.Flags().StringVarP(&profile, "profile", "p", "", "Apply a default profile first (production, testing)")
	cmd.Flags().StringVarP(&format, "format", "f", string(conf.FormatYAML), "Output format: yaml, toml or json")
	return cmd
}

func migrateCommand(fs afero.Fs, config func() *conf.Config) *cobra.Command {
	var outputPath, format string

	cmd := &cobra.Command{
		Use:   "migrate [snapshot file]",
		Short: "Merge a persisted snapshot into the current defaults",
		Long: `Migrate reads a configuration snapshot saved by any matRad version,
merges it into the current defaults and prints or saves the result.
Unknown fields are dropped and a version mismatch is reported as a warning.
The running configuration is left unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, fs, config(), args[0], outputPath, format)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Save the migrated snapshot here instead of printing it")
	cmd.Flags().StringVarP(&format, "format", "f", string(conf.FormatYAML), "Output format when printing: yaml, toml or json")
	return cmd
}

func runMigrate(cmd *cobra.Command, fs afero.Fs, c *conf.Config, snapshotPath, outputPath, format string) error {
	snapshot, err := conf.LoadSnapshot(fs, snapshotPath)
	if err != nil {
		return err
	}

	m, err := c.Migrate(snapshot)
	if err != nil {
		return err
	}
	c.Debug("Migrated %s: %d fields kept, %d overwritten, %d ignored, %d invalid",
		filepath.Base(snapshotPath), len(m.Kept), len(m.Overwritten), len(m.Ignored), len(m.Invalid))

	if outputPath == "" {
		return printSettings(cmd, m.Settings, format)
	}
	if err := conf.SaveSnapshot(fs, outputPath, &m.Settings); err != nil {
		return err
	}
	c.Info("Saved migrated configuration to %s", outputPath)
	return nil
}

func printSettings(cmd *cobra.Command, s conf.Settings, format string) error {
	f, err := conf.ParseFormat(format)
	if err != nil {
		return err
	}
	data, err := conf.Marshal(&s, f)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
