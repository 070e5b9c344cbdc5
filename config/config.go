package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// Config captures all command-line options required to run the importer.
type Config struct {
	Path            string
	CredentialsFile string
	TokenFile       string
	Label           string
	Recursive       bool
	CheckDuplicates bool
	DryRun          bool
	StateDir        string
	LogLevel        string
	LogDir          string
	IncludeHeader   []string
	IncludeBody     []string
	ExcludeHeader   []string
	ExcludeBody     []string
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	defaultStateDir, err := defaultStateDir()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	flags.StringP("credentials", "c", "credentials.json", "Path to the Gmail API OAuth client secret file")
	flags.String("token", "token.json", "Path to the cached OAuth token file")
	flags.StringP("label", "l", "", "Gmail label to apply to imported messages (created if absent)")
	flags.BoolP("recursive", "r", false, "Search for message files recursively in the given directory")
	flags.Bool("no-duplicates", false, "Skip duplicate checking (faster but may create duplicates)")
	flags.Bool("dry-run", false, "Walk the pipeline without any remote call")
	flags.String("state-dir", defaultStateDir, "Directory for the local import journal")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Directory for log files (also logs to stdout)")
	flags.StringArray("include-header", nil, "Regex allow-list applied to message headers (mutually exclusive with exclude flags)")
	flags.StringArray("include-body", nil, "Regex allow-list applied to message bodies (mutually exclusive with exclude flags)")
	flags.StringArray("exclude-header", nil, "Regex block-list applied to message headers (mutually exclusive with include flags)")
	flags.StringArray("exclude-body", nil, "Regex block-list applied to message bodies (mutually exclusive with include flags)")

	return nil
}

// LoadConfig converts the parsed Cobra flags into a Config struct with validation.
func LoadConfig(cmd *cobra.Command, args []string) (Config, error) {
	flags := cmd.Flags()

	credentials, err := flags.GetString("credentials")
	if err != nil {
		return Config{}, err
	}
	token, err := flags.GetString("token")
	if err != nil {
		return Config{}, err
	}
	label, err := flags.GetString("label")
	if err != nil {
		return Config{}, err
	}
	recursive, err := flags.GetBool("recursive")
	if err != nil {
		return Config{}, err
	}
	noDuplicates, err := flags.GetBool("no-duplicates")
	if err != nil {
		return Config{}, err
	}
	dryRun, err := flags.GetBool("dry-run")
	if err != nil {
		return Config{}, err
	}
	stateDir, err := flags.GetString("state-dir")
	if err != nil {
		return Config{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Config{}, err
	}
	logDir, err := flags.GetString("log-dir")
	if err != nil {
		return Config{}, err
	}
	includeHeader, err := flags.GetStringArray("include-header")
	if err != nil {
		return Config{}, err
	}
	includeBody, err := flags.GetStringArray("include-body")
	if err != nil {
		return Config{}, err
	}
	excludeHeader, err := flags.GetStringArray("exclude-header")
	if err != nil {
		return Config{}, err
	}
	excludeBody, err := flags.GetStringArray("exclude-body")
	if err != nil {
		return Config{}, err
	}

	if len(args) != 1 {
		return Config{}, fmt.Errorf("exactly one input path is required")
	}

	if stateDir == "" {
		stateDir, err = defaultStateDir()
		if err != nil {
			return Config{}, err
		}
	}

	logLevel = strings.ToLower(logLevel)
	if logLevel == "warning" {
		logLevel = "warn"
	}

	cfg := Config{
		Path:            args[0],
		CredentialsFile: credentials,
		TokenFile:       token,
		Label:           label,
		Recursive:       recursive,
		CheckDuplicates: !noDuplicates,
		DryRun:          dryRun,
		StateDir:        filepath.Clean(stateDir),
		LogLevel:        logLevel,
		LogDir:          logDir,
		IncludeHeader:   includeHeader,
		IncludeBody:     includeBody,
		ExcludeHeader:   excludeHeader,
		ExcludeBody:     excludeBody,
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	if cfg.Path == "" {
		return fmt.Errorf("input path is required")
	}
	if !cfg.DryRun && cfg.CredentialsFile == "" {
		return fmt.Errorf("--credentials is required")
	}
	if !cfg.DryRun && cfg.TokenFile == "" {
		return fmt.Errorf("--token is required")
	}

	includeActive := len(cfg.IncludeHeader) > 0 || len(cfg.IncludeBody) > 0
	excludeActive := len(cfg.ExcludeHeader) > 0 || len(cfg.ExcludeBody) > 0
	if includeActive && excludeActive {
		return fmt.Errorf("include and exclude flags are mutually exclusive")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}

func defaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".eml-to-gmail", "state"), nil
}
