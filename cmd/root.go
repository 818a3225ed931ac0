// Package cmd implements the tripledb CLI commands using cobra.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/localfirst/tripledb"
)

var (
	versionStr string

	persistenceDir string // --dir flag value
	serverURL      string // --server flag value
	appID          string // --app-id flag value
	verbose        bool
	jsonOutput     bool

	client *tripledb.Client
)

// SetVersion sets the version string and enables --version.
func SetVersion(v string) {
	versionStr = v
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "tripledb",
	Short: "Local-first reactive triple store client",
	Long: `tripledb - a CLI over a local-first, reactive triple store.

Applies transactions, runs declarative queries, and watches live results
against a database that persists locally and syncs with a remote server
over a background duplex connection.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		return openClient()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeClient()
	},
}

// initLogFile redirects slog to a file if TRIPLEDB_LOG_FILE is set.
// Useful for debugging sync behavior while a command runs.
func initLogFile() *os.File {
	path := os.Getenv("TRIPLEDB_LOG_FILE")
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return f
}

// Execute runs the root command.
func Execute() {
	if f := initLogFile(); f != nil {
		defer f.Close()
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func defaultPersistenceDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tripledb"
	}
	return filepath.Join(home, ".tripledb")
}

func openClient() error {
	opts := []tripledb.Option{
		tripledb.WithPersistenceDir(persistenceDir),
		tripledb.WithVerboseLogging(verbose),
	}
	if serverURL != "" {
		opts = append(opts, tripledb.WithBaseURL(serverURL), tripledb.WithSyncEnabled(true))
	} else {
		opts = append(opts, tripledb.WithSyncEnabled(false))
	}

	c, err := tripledb.Init(appID, opts...)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	client = c
	return nil
}

func closeClient() {
	if client != nil {
		_ = client.Close()
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&persistenceDir, "dir", defaultPersistenceDir(), "local persistence directory")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "sync server base URL (sync disabled if empty)")
	rootCmd.PersistentFlags().StringVar(&appID, "app-id", "default", "application id namespacing the local store")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "data", Title: "Data Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}
