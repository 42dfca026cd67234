package lumberjack

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/jward/lumberjack/internal/jsontree"
	"github.com/jward/lumberjack/internal/parse"
)

// defaultSkipDirs are never descended into when walking directories.
var defaultSkipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// LoadOptions controls how LoadForest discovers and converts inputs.
type LoadOptions struct {
	// TypePattern drops nodes whose type does not match. Empty means
	// `^[_a-zA-Z]+$`.
	TypePattern    string
	DropDocstrings bool
	NamedOnly      bool
	// ValidateJSON checks JSON-lines inputs against the tree schema.
	ValidateJSON bool

	// Functions splits source files into one tree per function, labeled by
	// the function's name subtokens. HideFunctionNames masks the name leaf.
	Functions         bool
	HideFunctionNames bool

	// Workers is the parse pool size; 0 means one per CPU.
	Workers int
	// SkipDirs adds directory names to skip while walking.
	SkipDirs []string
	// Git lists directory contents with git ls-files when possible, so
	// ignored files are skipped.
	Git bool

	Logger *slog.Logger
}

// LoadForest reads every supported input under paths: source files are
// parsed with tree-sitter and JSON-lines tree files (.jsonl, optionally .gz
// or .lz4 compressed) are decoded line by line. Directories are walked. The
// trees come back ordered by file path, then by position within the file.
// Files that fail are skipped; their errors are joined into the returned
// error alongside the trees that loaded.
func LoadForest(ctx context.Context, paths []string, opts LoadOptions) ([]Tree, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	files, err := listInputs(paths, opts)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	parser, err := parse.New(parse.Options{
		TypePattern:    opts.TypePattern,
		DropDocstrings: opts.DropDocstrings,
		NamedOnly:      opts.NamedOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("lumberjack: %w", err)
	}
	jsonOpts := jsontree.Options{
		TypePattern:    opts.TypePattern,
		DropDocstrings: opts.DropDocstrings,
		Validate:       opts.ValidateJSON,
	}

	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = max(1, min(numWorkers, len(files)))
	logger.Info("loading forest", "files", len(files), "workers", numWorkers)

	workCh := make(chan int, len(files))
	for i := range files {
		workCh <- i
	}
	close(workCh)

	results := make([][]Tree, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workCh {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					continue
				}
				results[i], errs[i] = loadFile(ctx, files[i], parser, jsonOpts, opts)
			}
		}()
	}
	wg.Wait()

	var trees []Tree
	var failed []error
	for i, path := range files {
		if errs[i] != nil {
			logger.Warn("skipping input", "path", path, "error", errs[i])
			failed = append(failed, fmt.Errorf("load %s: %w", path, errs[i]))
			continue
		}
		logger.Debug("loaded input", "path", path, "trees", len(results[i]))
		trees = append(trees, results[i]...)
	}
	return trees, errors.Join(failed...)
}

func loadFile(ctx context.Context, path string, parser *parse.Parser, jsonOpts jsontree.Options, opts LoadOptions) ([]Tree, error) {
	if isJSONTreeFile(path) {
		entries, err := jsontree.ReadFile(path, jsonOpts)
		if err != nil {
			return nil, err
		}
		trees := make([]Tree, len(entries))
		for i, e := range entries {
			label := e.Label
			if label == "" {
				label = fmt.Sprintf("%s:%d", path, e.Line)
			}
			trees[i] = Tree{Root: e.Root, Label: label}
		}
		return trees, nil
	}

	root, err := parser.ParseFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if !opts.Functions {
		return []Tree{{Root: root, Label: path}}, nil
	}
	fns := parse.Functions(root, opts.HideFunctionNames)
	trees := make([]Tree, len(fns))
	for i, fn := range fns {
		trees[i] = Tree{Root: fn.Root, Label: fn.Label}
	}
	return trees, nil
}

// isJSONTreeFile reports whether path is a (possibly compressed) JSON-lines
// tree file.
func isJSONTreeFile(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	name = strings.TrimSuffix(name, ".gz")
	name = strings.TrimSuffix(name, ".lz4")
	return strings.HasSuffix(name, ".jsonl") || strings.HasSuffix(name, ".json")
}

func isInputFile(path string) bool {
	if isJSONTreeFile(path) {
		return true
	}
	_, ok := parse.LanguageForFile(path)
	return ok
}

// listInputs expands paths into a sorted, duplicate-free list of files.
// Explicitly named files are kept even when their extension is unknown, so
// the caller hears about them.
func listInputs(paths []string, opts LoadOptions) ([]string, error) {
	skip := make(map[string]bool, len(defaultSkipDirs)+len(opts.SkipDirs))
	for name := range defaultSkipDirs {
		skip[name] = true
	}
	for _, name := range opts.SkipDirs {
		skip[name] = true
	}

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("lumberjack: %w", err)
		}
		if !info.IsDir() {
			files = append(files, filepath.Clean(p))
			continue
		}
		var found []string
		if opts.Git {
			found, err = gitListFiles(p)
		}
		if !opts.Git || err != nil {
			// Not a git repo or git not available; walk instead.
			found, err = walkListFiles(p, skip)
			if err != nil {
				return nil, err
			}
		}
		files = append(files, found...)
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) input files under root.
func gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		path := filepath.Join(root, line)
		if isInputFile(path) {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// walkListFiles discovers input files by walking the filesystem, skipping
// hidden directories and the names in skip.
func walkListFiles(root string, skip map[string]bool) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skip[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if isInputFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
