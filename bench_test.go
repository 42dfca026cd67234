package lumberjack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// benchGoSource is a realistic Go file with functions, structs, interfaces
// and method calls, so the parsed trees have repeated shapes to merge.
const benchGoSource = `package bench

import (
	"fmt"
	"strings"
)

// Logger defines a logging interface.
type Logger interface {
	Log(msg string)
	Logf(format string, args ...interface{})
}

// Config holds application configuration.
type Config struct {
	Name     string
	Debug    bool
	MaxRetry int
	Tags     []string
}

// Validate checks the config for correctness.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.MaxRetry < 0 {
		return fmt.Errorf("max_retry must be non-negative")
	}
	return nil
}

func (c *Config) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

type App struct {
	config *Config
	log    Logger
}

func (a *App) Run() error {
	if err := a.config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for i := 0; i < a.config.MaxRetry; i++ {
		a.log.Logf("attempt %d", i)
	}
	return nil
}

func BuildGreeting(name string) string {
	return "Hello, " + strings.TrimSpace(name) + "!"
}

func CountWords(s string) int {
	return len(strings.Fields(s))
}
`

// benchDir writes n copies of benchGoSource into a temp directory.
func benchDir(b *testing.B, n int) string {
	b.Helper()
	dir := b.TempDir()
	for i := range n {
		name := filepath.Join(dir, fmt.Sprintf("bench%02d.go", i))
		if err := os.WriteFile(name, []byte(benchGoSource), 0o644); err != nil {
			b.Fatal(err)
		}
	}
	return dir
}

func benchForest(b *testing.B, dir string, functions bool) []Tree {
	b.Helper()
	trees, err := LoadForest(context.Background(), []string{dir}, LoadOptions{Functions: functions})
	if err != nil {
		b.Fatal(err)
	}
	return trees
}

// BenchmarkLoadForest_Go measures parsing and filtering a directory of Go
// files with the worker pool.
func BenchmarkLoadForest_Go(b *testing.B) {
	dir := benchDir(b, 32)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchForest(b, dir, false)
	}
}

// BenchmarkFit measures the greedy merge loop on per-function trees.
func BenchmarkFit(b *testing.B) {
	dir := benchDir(b, 32)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		trees := benchForest(b, dir, true)
		b.StartTimer()

		if _, err := New(WithNonMergeable("block")).Fit(trees, 200); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkTransform measures replaying a fitted sequence.
func BenchmarkTransform(b *testing.B) {
	dir := benchDir(b, 32)
	c := New(WithNonMergeable("block"))
	fit, err := c.Fit(benchForest(b, dir, true), 200)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		trees := benchForest(b, dir, true)
		b.StartTimer()

		if _, err := c.Transform(trees, fit.Sequence); err != nil {
			b.Fatal(err)
		}
	}
}
