package config

import "github.com/spf13/pflag"

// AddFlags registers the settings shared by every command. Flag defaults
// are the already loaded values, so a flag only wins when it is given.
func AddFlags(flags *pflag.FlagSet, cfg *Config) {
	flags.StringVar(&cfg.BaseDir, "base-dir", cfg.BaseDir, "Directory holding the databases")
	flags.StringVar(&cfg.CredentialsFile, "credentials", cfg.CredentialsFile, "User credential file")
	flags.BoolVar(&cfg.History, "history", cfg.History, "Journal applied writes to a git repository in the base directory")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (DEBUG, INFO, WARN, ERROR)")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text or json)")
	flags.StringVar(&cfg.S3.Region, "s3-region", cfg.S3.Region, "Region for s3:// locations")
	flags.StringVar(&cfg.S3.Endpoint, "s3-endpoint", cfg.S3.Endpoint, "S3-compatible endpoint")
}
