package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/lumberjack"
	"github.com/jward/lumberjack/internal/config"
	"github.com/jward/lumberjack/internal/store"
)

var (
	flagDB      string
	flagFormat  string
	flagConfig  string
	flagVerbose bool
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "lumberjack",
	Short:         "Compress syntax trees with Tree-BPE",
	Long:          "Lumberjack parses source code with tree-sitter, learns the most frequent parent/child node patterns, and collapses them into composite nodes. Fitted merge sequences are stored in SQLite or YAML artifacts and replayed on new code.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		return setup()
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "model database path (default: store.path from config, relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ./.lumberjack.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log every merge step")

	rootCmd.AddCommand(fitCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(modelsCmd)
}

// setup loads configuration and builds the logger used by every command.
func setup() error {
	c, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagVerbose {
		c.Logging.Level = "debug"
	}
	l, err := config.NewLogger(c.Logging, os.Stderr)
	if err != nil {
		return err
	}
	cfg, logger = c, l
	return nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the
// configured store path, anchoring relative paths at repoRoot.
func resolveDBPath(repoRoot string) string {
	path := flagDB
	if path == "" {
		path = cfg.Store.Path
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(repoRoot, path)
}

// openStore opens (creating if needed) the model database.
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	s, err := lumberjack.OpenStore(dbPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("opened model store", "path", dbPath)
	return s, nil
}
