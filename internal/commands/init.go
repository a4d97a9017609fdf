package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/coinledger/internal/config"
)

func newInitCommand(g *globals) *cobra.Command {
	var dataDir string
	var userID string
	var fallback string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file and create the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if dataDir != "" {
				cfg.Storage.DataDir = dataDir
			}
			if userID != "" {
				cfg.UserID = userID
			}
			cfg.Storage.Fallback = fallback
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runInit(cmd, g.configPath, cfg, force)
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory for profile files")
	cmd.Flags().StringVar(&userID, "user", "", "user id for the remote store")
	cmd.Flags().StringVar(&fallback, "fallback", "local", "fallback storage: local or session")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, path string, cfg *config.Config, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config dir: %w", err)
		}
	}
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return err
	}
	if cfg.Storage.Fallback == "local" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (data in %s)\n", path, dataDir)
	return nil
}
