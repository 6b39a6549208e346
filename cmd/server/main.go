package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nickyhof/FlatDB"
	"github.com/nickyhof/FlatDB/auth"
	"github.com/nickyhof/FlatDB/config"
	"github.com/nickyhof/FlatDB/core"
	"github.com/nickyhof/FlatDB/ps"
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

type serverFlags struct {
	memory  bool
	noAuth  bool
	tlsCert string
	tlsKey  string
}

func newRootCommand(cfg *config.Config) *cobra.Command {
	var flags serverFlags

	cmd := &cobra.Command{
		Use:          "flatdb-server",
		Short:        "TCP server for FlatDB, one statement per line",
		Version:      Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg, flags)
		},
	}

	config.AddFlags(cmd.Flags(), cfg)
	cmd.Flags().StringVar(&cfg.Server.Addr, "addr", cfg.Server.Addr, "TCP address to listen on")
	cmd.Flags().IntVar(&cfg.Server.MaxConnections, "max-connections", cfg.Server.MaxConnections, "Maximum concurrent connections (0 = unlimited)")
	cmd.Flags().StringVar(&cfg.Server.JWTSecret, "jwt-secret", cfg.Server.JWTSecret, "HS256 secret for session tokens")
	cmd.Flags().DurationVar(&cfg.Server.TokenTTL, "token-ttl", cfg.Server.TokenTTL, "Lifetime of tokens issued by LOGIN")
	cmd.Flags().StringVar(&cfg.Server.MetricsAddr, "metrics-addr", cfg.Server.MetricsAddr, "Address for the Prometheus /metrics endpoint")
	cmd.Flags().StringVar(&flags.tlsCert, "tls-cert", "", "TLS certificate file")
	cmd.Flags().StringVar(&flags.tlsKey, "tls-key", "", "TLS private key file")
	cmd.Flags().BoolVar(&flags.memory, "memory", false, "Keep databases in memory instead of the base directory")
	cmd.Flags().BoolVar(&flags.noAuth, "no-auth", false, "Accept statements without LOGIN or AUTH")

	return cmd
}

func buildOptions(cfg *config.Config, flags serverFlags, logger *slog.Logger) (Options, error) {
	opts := Options{
		MaxConnections: cfg.Server.MaxConnections,
		Logger:         logger,
	}
	if flags.noAuth {
		return opts, nil
	}

	store, err := auth.OpenCredentialStore(cfg.CredentialsFile)
	if err != nil {
		return Options{}, err
	}
	opts.Credentials = store
	if cfg.Server.JWTSecret != "" {
		opts.Tokens = auth.NewTokenIssuer(cfg.Server.JWTSecret, cfg.Server.TokenTTL)
	}
	return opts, nil
}

func run(cfg *config.Config, flags serverFlags) error {
	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)

	var persistence *ps.Persistence
	var err error
	if flags.memory {
		logger.Info("using memory persistence")
		persistence, err = ps.NewMemoryPersistence()
	} else {
		logger.Info("using file persistence", "base_dir", cfg.BaseDir)
		persistence, err = ps.NewFilePersistence(cfg.BaseDir)
	}
	if err != nil {
		return err
	}

	instance := FlatDB.Open(persistence)
	instance.Logger = logger
	if cfg.History {
		if err := instance.EnableHistory(); err != nil {
			return err
		}
	}

	opts, err := buildOptions(cfg, flags, logger)
	if err != nil {
		return err
	}

	identity := core.Identity{
		Name:  "FlatDB Server",
		Email: "server@flatdb.local",
	}
	server := NewServer(instance, identity, opts)

	if flags.tlsCert != "" || flags.tlsKey != "" {
		err = server.StartTLS(cfg.Server.Addr, flags.tlsCert, flags.tlsKey)
	} else {
		err = server.Start(cfg.Server.Addr)
	}
	if err != nil {
		return err
	}

	if cfg.Server.MetricsAddr != "" {
		if err := server.StartMetrics(cfg.Server.MetricsAddr); err != nil {
			server.Stop()
			return err
		}
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Printf("║   FlatDB Server v%-20s ║\n", Version)
	fmt.Println("║   Flat-file relational query engine   ║")
	fmt.Println("╚═══════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Listening on %s\n", server.Addr())
	fmt.Println("Send statements (one per line), 'quit' to disconnect")
	fmt.Println()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	server.Stop()
	logger.Info("server stopped")
	return nil
}
