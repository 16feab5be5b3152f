package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the warden CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warden",
		Short: "warden - credential and authentication security service",
		Long: `warden stores credentials, authenticates them with Argon2id,
locks accounts after repeated failures and runs password resets.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// newLogger builds the JSON logger used by every subcommand.
func newLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
