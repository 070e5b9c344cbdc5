package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/emltools/eml-to-gmail/auth"
	"github.com/emltools/eml-to-gmail/batch"
	"github.com/emltools/eml-to-gmail/config"
	"github.com/emltools/eml-to-gmail/eml"
	"github.com/emltools/eml-to-gmail/filter"
	"github.com/emltools/eml-to-gmail/gmail"
	"github.com/emltools/eml-to-gmail/progress"
	"github.com/emltools/eml-to-gmail/state"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "eml-to-gmail [path]",
		Short: "Import .eml and .mbox message files into a Gmail mailbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cmd, args)
			if err != nil {
				return err
			}

			logger, cleanup, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = cleanup()
			}()

			slog.SetDefault(logger)
			logger.Info("starting eml-to-gmail", "path", cfg.Path, "label", cfg.Label, "dryRun", cfg.DryRun, "checkDuplicates", cfg.CheckDuplicates)

			return run(cmd.Context(), cfg, logger)
		},
	}

	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}

	registerStatsCmd(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	files, err := eml.Discover(cfg.Path, cfg.Recursive)
	if err != nil {
		return fmt.Errorf("eml.Discover: %w", err)
	}

	f, err := filter.New(filter.Options{
		IncludeHeader: cfg.IncludeHeader,
		IncludeBody:   cfg.IncludeBody,
		ExcludeHeader: cfg.ExcludeHeader,
		ExcludeBody:   cfg.ExcludeBody,
	})
	if err != nil {
		return fmt.Errorf("filter.New: %w", err)
	}

	var tracker state.Tracker
	if cfg.CheckDuplicates {
		ft, err := state.NewFileTracker(cfg.StateDir, !cfg.DryRun)
		if err != nil {
			return fmt.Errorf("state.NewFileTracker: %w", err)
		}
		defer func() {
			if err := ft.Close(); err != nil {
				logger.Warn("closing import journal failed", "error", err)
			}
		}()
		tracker = ft
	}

	var session gmail.Session
	if !cfg.DryRun {
		svc, err := auth.NewService(ctx, cfg.CredentialsFile, cfg.TokenFile)
		if err != nil {
			return fmt.Errorf("auth.NewService: %w", err)
		}
		session = gmail.NewSession(svc)
	}

	importer, err := gmail.NewImporter(session, tracker, gmail.Options{
		Label:           cfg.Label,
		CheckDuplicates: cfg.CheckDuplicates,
		DryRun:          cfg.DryRun,
	}, logger)
	if err != nil {
		return fmt.Errorf("gmail.NewImporter: %w", err)
	}

	bar := progress.New(eml.Count(files), cfg.LogLevel)

	b, err := batch.New(importer, f, bar, logger)
	if err != nil {
		return fmt.Errorf("batch.New: %w", err)
	}

	summary, err := b.Run(ctx, files)
	if err != nil {
		return err
	}

	progress.PrintReport(summary, cfg.CheckDuplicates)
	logger.Info("import finished", summary.LogAttrs()...)

	return nil
}

func setupLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	opts := &slog.HandlerOptions{Level: level}
	cleanup := func() error { return nil }

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, cleanup, err
		}

		logFilePath := filepath.Join(cfg.LogDir, fmt.Sprintf("eml-to-gmail-%s.log", time.Now().Format("20060102T150405")))
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}

		handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, file), opts)
		cleanup = func() error {
			return file.Close()
		}
		return slog.New(handler), cleanup, nil
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler), cleanup, nil
}
