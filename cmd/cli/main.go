package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nickyhof/FlatDB"
	"github.com/nickyhof/FlatDB/auth"
	"github.com/nickyhof/FlatDB/config"
	"github.com/nickyhof/FlatDB/db"
	"github.com/nickyhof/FlatDB/ps"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCommand(&cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(cfg *config.Config) *cobra.Command {
	var scriptFile string
	var noAuth bool
	var memory bool

	cmd := &cobra.Command{
		Use:           "flatdb",
		Short:         "Interactive shell for FlatDB",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cfg.Logger(os.Stderr)
			slog.SetDefault(logger)

			instance, err := openInstance(cfg, memory)
			if err != nil {
				return err
			}
			instance.Logger = logger

			var store *auth.CredentialStore
			if !noAuth {
				store, err = auth.OpenCredentialStore(cfg.CredentialsFile)
				if err != nil {
					return err
				}
			}

			line := liner.NewLiner()
			defer line.Close()
			line.SetCtrlCAborts(true)

			cli := NewCLI(instance, store, line, os.Stdout)
			cli.historyFile = getHistoryPath()
			cli.remote = &db.RemoteConfig{
				AccessKey: cfg.S3.AccessKey,
				SecretKey: cfg.S3.SecretKey,
				Region:    cfg.S3.Region,
				Endpoint:  cfg.S3.Endpoint,
			}
			cli.journalAuth = journalAuth(cfg.Journal)
			cli.loadHistory(line)
			defer cli.saveHistory(line)

			if scriptFile != "" {
				return cli.RunScript(cmd.Context(), scriptFile)
			}

			printBanner(cli.out)
			cli.Run()
			return nil
		},
	}

	config.AddFlags(cmd.Flags(), cfg)
	cmd.Flags().StringVarP(&scriptFile, "file", "f", "", "Execute a statement script (local path, file://, http(s):// or s3://) and exit")
	cmd.Flags().BoolVar(&noAuth, "no-auth", false, "Skip the login menu")
	cmd.Flags().BoolVar(&memory, "memory", false, "Keep databases in memory instead of the base directory")

	return cmd
}

func openInstance(cfg *config.Config, memory bool) (*FlatDB.Instance, error) {
	var persistence *ps.Persistence
	var err error
	if memory {
		persistence, err = ps.NewMemoryPersistence()
	} else {
		persistence, err = ps.NewFilePersistence(cfg.BaseDir)
	}
	if err != nil {
		return nil, err
	}

	instance := FlatDB.Open(persistence)
	if cfg.History {
		if err := instance.EnableHistory(); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".flatdb_history")
}

// journalAuth picks token auth when a token is set, then an ssh key.
func journalAuth(cfg config.JournalConfig) *ps.RemoteAuth {
	switch {
	case cfg.Token != "":
		return &ps.RemoteAuth{Type: ps.AuthTypeToken, Token: cfg.Token}
	case cfg.SSHKey != "":
		return &ps.RemoteAuth{Type: ps.AuthTypeSSH, KeyPath: cfg.SSHKey, Passphrase: cfg.SSHPassphrase}
	default:
		return nil
	}
}
