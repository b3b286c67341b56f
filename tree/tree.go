package tree

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/byte4ever/ksubst/manifest"
)

// Substituter rewrites one template. templating.Engine
// implements it.
type Substituter interface {
	Substitute(
		tpl string,
		vars map[string]string,
	) (string, error)
}

// Options holds all settings for a directory run.
type Options struct {
	// InputDir is the root of the templates.
	InputDir string

	// OutputDir receives each result at the same
	// relative path. It may equal InputDir.
	OutputDir string

	// Matcher selects files under InputDir.
	Matcher Matcher

	// Parallelism is the number of concurrent file
	// workers. Values below 1 mean 1.
	Parallelism int

	// KeepGoing attempts every file even after a
	// failure.
	KeepGoing bool

	// DryRun substitutes without writing.
	DryRun bool

	// ValidateManifests checks YAML outputs with
	// manifest.Validate before writing them.
	ValidateManifests bool
}

// Process substitutes every selected file of
// opts.InputDir and writes the results under
// opts.OutputDir. The returned Report is complete even
// when an error is returned; the error joins every file
// failure.
func Process(
	ctx context.Context,
	opts Options,
	sub Substituter,
	vars map[string]string,
) (Report, error) {
	const errCtx = "processing tree"

	rep := Report{DryRun: opts.DryRun}

	if err := opts.Matcher.Validate(); err != nil {
		return rep, fmt.Errorf("%s: %w", errCtx, err)
	}

	files, err := collect(opts)
	if err != nil {
		return rep, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Debug(
		"selected files",
		"input", opts.InputDir,
		"count", len(files),
	)

	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Each worker owns one slot of results.
	results := make([]Result, len(files))

	var wg sync.WaitGroup

	sem := make(chan struct{}, parallelism)

	for idx, rel := range files {
		if !acquire(runCtx, sem) {
			results[idx] = Result{
				Path:   rel,
				Status: StatusSkipped,
				Err:    runCtx.Err(),
			}

			continue
		}

		wg.Add(1)

		go func(idx int, rel string) {
			defer wg.Done()
			defer func() { <-sem }()

			res := processFile(opts, sub, vars, rel)

			slog.Debug(
				"processed file",
				"path", rel,
				"status", res.Status,
			)

			if res.Err != nil && !opts.KeepGoing {
				cancel()
			}

			results[idx] = res
		}(idx, rel)
	}

	wg.Wait()

	rep.Results = results

	var errs []error

	for _, res := range results {
		if res.Status == StatusFailed {
			errs = append(errs, res.Err)
		}
	}

	if ctx.Err() != nil {
		errs = append(errs, ctx.Err())
	}

	if len(errs) > 0 {
		return rep, fmt.Errorf(
			"%s: %w", errCtx, errors.Join(errs...),
		)
	}

	return rep, nil
}

// acquire takes a worker slot unless ctx is done first.
func acquire(ctx context.Context, sem chan struct{}) bool {
	select {
	case <-ctx.Done():
		return false
	case sem <- struct{}{}:
	}

	// Both cases may have been ready.
	if ctx.Err() != nil {
		<-sem

		return false
	}

	return true
}

// collect walks opts.InputDir and returns the selected
// regular files as slash-separated relative paths in
// lexical order. An output directory nested inside the
// input is not walked.
func collect(opts Options) ([]string, error) {
	const errCtx = "collecting files"

	root, err := filepath.Abs(opts.InputDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	nestedOut, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if nestedOut == root {
		nestedOut = ""
	}

	var files []string

	err = filepath.WalkDir(
		root,
		func(pa string, de fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if de.IsDir() {
				if pa != root && pa == nestedOut {
					return filepath.SkipDir
				}

				return nil
			}

			if !isRegular(pa, de) {
				return nil
			}

			rel, err := filepath.Rel(root, pa)
			if err != nil {
				return err
			}

			rel = filepath.ToSlash(rel)
			if opts.Matcher.Match(rel) {
				files = append(files, rel)
			}

			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return files, nil
}

// isRegular accepts regular files and symlinks to
// regular files.
func isRegular(pa string, de fs.DirEntry) bool {
	if de.Type().IsRegular() {
		return true
	}

	if de.Type()&fs.ModeSymlink == 0 {
		return false
	}

	fi, err := os.Stat(pa)

	return err == nil && fi.Mode().IsRegular()
}

// processFile runs one unit of work. It never returns an
// error directly: failures are recorded in the Result.
func processFile(
	opts Options,
	sub Substituter,
	vars map[string]string,
	rel string,
) Result {
	res := Result{Path: rel, Status: StatusFailed}

	src := filepath.Join(opts.InputDir, filepath.FromSlash(rel))
	dst := filepath.Join(opts.OutputDir, filepath.FromSlash(rel))

	fi, err := os.Stat(src)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", rel, err)
		return res
	}

	content, err := os.ReadFile(src) //nolint:gosec // path from walk
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", rel, err)
		return res
	}

	out, err := sub.Substitute(string(content), vars)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", rel, err)
		return res
	}

	res.Bytes = len(out)

	if opts.ValidateManifests && manifest.IsManifest(rel) {
		if err := manifest.Validate([]byte(out)); err != nil {
			res.Err = fmt.Errorf("%s: %w", rel, err)
			return res
		}
	}

	existing, err := os.ReadFile(dst) //nolint:gosec // path from walk
	if err == nil && bytes.Equal(existing, []byte(out)) {
		res.Status = StatusUnchanged
		return res
	}

	if opts.DryRun {
		res.Status = StatusPlanned
		return res
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil { //nolint:gosec // output tree
		res.Err = fmt.Errorf("%s: %w", rel, err)
		return res
	}

	if err := os.WriteFile( //nolint:gosec // output tree
		dst, []byte(out), fi.Mode().Perm(),
	); err != nil {
		res.Err = fmt.Errorf("%s: %w", rel, err)
		return res
	}

	res.Status = StatusWritten

	return res
}
