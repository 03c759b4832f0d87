// Package batch applies chains of nodediffs to nodelist files on disk, replacing each target only after its whole chain succeeds.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fidokit/nodediff/internal/nodediff"
	"github.com/fidokit/nodediff/internal/nodelist"
	"github.com/fidokit/nodediff/internal/simplelogger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var (
	ErrNoDiffs     = errors.New("no nodediffs given")
	ErrNoNodelists = errors.New("no nodelists found")
)

// Options configures file operations. The zero value uses CP866, one job, and temp files next to the target.
type Options struct {
	Encoding *charmap.Charmap
	Jobs     int
	TempDir  string
}

func (o Options) encoding() encoding.Encoding {
	if o.Encoding == nil {
		return charmap.CodePage866
	}
	return o.Encoding
}

func (o Options) tempDir(target string) string {
	if o.TempDir != "" {
		return o.TempDir
	}
	return filepath.Dir(target)
}

func (o Options) jobs() int {
	if o.Jobs <= 0 {
		return 1
	}
	return o.Jobs
}

// Step is one nodediff applied during a chain.
type Step struct {
	Diff   string
	Result nodediff.Result
}

// FileResult is the outcome of one chain.
type FileResult struct {
	Path  string
	Steps []Step // completed steps; on failure the target was not replaced
	Err   error
}

// Report lists per-file outcomes in name order.
type Report struct {
	Files []FileResult
}

// Failed counts files whose chain failed.
func (r Report) Failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// DefaultOutputPath names the result of applying diffPath to oldPath: the old list's base name with the diff's extension, so /srv/fido/NODELIST.283 +
// NODEDIFF.290 gives NODELIST.290. The name is relative, so the result lands in the working directory.
func DefaultOutputPath(oldPath, diffPath string) (string, error) {
	ext := filepath.Ext(diffPath)
	if len(ext) <= 1 {
		return "", fmt.Errorf("nodediff %q has no extension to name the output after", diffPath)
	}
	base := filepath.Base(oldPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + ext, nil
}

// ApplyFile applies diffPath to oldPath and writes the result to outPath. outPath is replaced only on success; outPath may equal oldPath.
func ApplyFile(ctx context.Context, oldPath, diffPath, outPath string, opts Options) (nodediff.Result, error) {
	if err := ctx.Err(); err != nil {
		return nodediff.Result{}, err
	}
	tmp, res, err := applyToTemp(oldPath, diffPath, opts.tempDir(outPath), opts.encoding())
	if err != nil {
		simplelogger.Log("apply %s + %s failed: %v", oldPath, diffPath, err)
		return res, err
	}
	if err := replaceFile(tmp, outPath); err != nil {
		_ = os.Remove(tmp)
		return res, err
	}
	simplelogger.Log("applied %s + %s = %s (crc %05d)", oldPath, diffPath, outPath, res.Checksum)
	return res, nil
}

// ApplyChain applies diffPaths to nodelistPath in order, each output feeding the next, then replaces nodelistPath with the final result. It stops at the first
// failing diff and leaves nodelistPath untouched. ctx is checked between diffs.
func ApplyChain(ctx context.Context, nodelistPath string, diffPaths []string, opts Options) ([]Step, error) {
	if len(diffPaths) == 0 {
		return nil, ErrNoDiffs
	}

	var temps []string
	defer func() {
		for _, t := range temps {
			_ = os.Remove(t)
		}
	}()

	var steps []Step
	cur := nodelistPath
	for _, diffPath := range diffPaths {
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		tmp, res, err := applyToTemp(cur, diffPath, opts.tempDir(nodelistPath), opts.encoding())
		if err != nil {
			simplelogger.Log("chain %s: %s failed: %v", nodelistPath, diffPath, err)
			return steps, fmt.Errorf("%s: %w", diffPath, err)
		}
		temps = append(temps, tmp)
		steps = append(steps, Step{Diff: diffPath, Result: res})
		simplelogger.Log("chain %s: applied %s (crc %05d)", nodelistPath, diffPath, res.Checksum)
		cur = tmp
	}

	if err := replaceFile(cur, nodelistPath); err != nil {
		return steps, err
	}
	return steps, nil
}

// Run applies diffPaths to path. If path is a directory, every regular file in it with a three-character extension is treated as a separate nodelist and
// chains run concurrently, at most opts.Jobs at a time. A failing file does not stop the others; all failures are joined into the returned error.
func Run(ctx context.Context, path string, diffPaths []string, opts Options) (Report, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Report{}, err
	}
	if !fi.IsDir() {
		steps, err := ApplyChain(ctx, path, diffPaths, opts)
		return Report{Files: []FileResult{{Path: path, Steps: steps, Err: err}}}, err
	}
	if len(diffPaths) == 0 {
		return Report{}, ErrNoDiffs
	}

	targets, err := nodelistsIn(path, diffPaths)
	if err != nil {
		return Report{}, err
	}
	if len(targets) == 0 {
		return Report{}, fmt.Errorf("%s: %w", path, ErrNoNodelists)
	}

	report := Report{Files: make([]FileResult, len(targets))}
	var g errgroup.Group
	g.SetLimit(opts.jobs())
	for i, target := range targets {
		report.Files[i].Path = target
		if err := ctx.Err(); err != nil {
			report.Files[i].Err = err
			continue
		}
		g.Go(func() error {
			steps, err := ApplyChain(ctx, target, diffPaths, opts)
			report.Files[i].Steps = steps
			report.Files[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, f := range report.Files {
		if f.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Path, f.Err))
		}
	}
	return report, errors.Join(errs...)
}

// nodelistsIn lists candidate nodelists in dir, sorted by name. The nodediffs themselves are never candidates.
func nodelistsIn(dir string, diffPaths []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	skip := make(map[string]bool, len(diffPaths))
	for _, d := range diffPaths {
		if abs, err := filepath.Abs(d); err == nil {
			skip[abs] = true
		}
	}

	var out []string
	for _, e := range entries {
		if len(filepath.Ext(e.Name())) != 4 {
			continue
		}
		p := filepath.Join(dir, e.Name())
		fi, err := os.Stat(p)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil && skip[abs] {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// applyToTemp applies diffPath to oldPath into a new temp file in dir and returns its name. The temp file is removed on failure.
func applyToTemp(oldPath, diffPath, dir string, enc encoding.Encoding) (string, nodediff.Result, error) {
	oldFile, err := os.Open(oldPath)
	if err != nil {
		return "", nodediff.Result{}, err
	}
	defer oldFile.Close()

	diffFile, err := os.Open(diffPath)
	if err != nil {
		return "", nodediff.Result{}, err
	}
	defer diffFile.Close()

	tmp, err := os.CreateTemp(dir, "nodelist-tmp-*")
	if err != nil {
		return "", nodediff.Result{}, err
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", nodediff.Result{}, err
	}

	res, err := nodediff.ApplyStreams(oldFile, diffFile, tmp, enc)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return "", res, err
	}
	return tmpName, res, nil
}

// rename is os.Rename; tests swap it to simulate a TempDir on another filesystem.
var rename = os.Rename

// replaceFile moves src over dst. When a rename is impossible (TempDir on another filesystem) src is copied to a temp file beside dst, which is then renamed
// over dst; dst is never left partially written.
func replaceFile(src, dst string) error {
	if err := rename(src, dst); err == nil {
		return nil
	}
	if err := copyOver(src, dst); err != nil {
		return fmt.Errorf("replace %s: %w", dst, err)
	}
	_ = os.Remove(src)
	return nil
}

func copyOver(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "nodelist-tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := rename(tmpName, dst); err != nil {
		return err
	}
	ok = true
	return nil
}

// GenerateTo writes the nodediff that turns oldPath into newPath to w.
func GenerateTo(oldPath, newPath string, w io.Writer, opts Options) (nodediff.GenerateResult, error) {
	oldFile, err := os.Open(oldPath)
	if err != nil {
		return nodediff.GenerateResult{}, err
	}
	defer oldFile.Close()

	newFile, err := os.Open(newPath)
	if err != nil {
		return nodediff.GenerateResult{}, err
	}
	defer newFile.Close()

	enc := opts.encoding()
	return nodediff.Generate(nodelist.NewReader(oldFile, enc), nodelist.NewReader(newFile, enc), nodelist.NewWriter(w, enc), enc)
}

// MakeDiff writes the nodediff that turns oldPath into newPath to outPath, which is replaced only on success.
func MakeDiff(ctx context.Context, oldPath, newPath, outPath string, opts Options) (nodediff.GenerateResult, error) {
	if err := ctx.Err(); err != nil {
		return nodediff.GenerateResult{}, err
	}
	tmp, err := os.CreateTemp(opts.tempDir(outPath), "nodediff-tmp-*")
	if err != nil {
		return nodediff.GenerateResult{}, err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return nodediff.GenerateResult{}, err
	}
	res, err := GenerateTo(oldPath, newPath, tmp, opts)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		simplelogger.Log("make %s -> %s failed: %v", oldPath, newPath, err)
		return res, err
	}
	if err := replaceFile(tmpName, outPath); err != nil {
		return res, err
	}
	simplelogger.Log("made %s from %s -> %s (%d commands)", outPath, oldPath, newPath, res.Commands)
	return res, nil
}
