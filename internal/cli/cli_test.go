package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fidokit/nodediff/internal/config"
	"github.com/fidokit/nodediff/internal/crc16"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useConfig(t *testing.T, load func() (config.Config, error)) {
	t.Helper()
	prev := loadConfig
	loadConfig = load
	t.Cleanup(func() { loadConfig = prev })
}

func useDefaults(t *testing.T) {
	useConfig(t, func() (config.Config, error) { return config.Defaults(), nil })
}

func runCLI(t *testing.T, args ...string) (int, string, string, error) {
	t.Helper()
	var out bytes.Buffer
	var errOut bytes.Buffer
	code, err := Run(append([]string{"nodediff"}, args...), &RunOptions{Out: &out, Err: &errOut})
	return code, out.String(), errOut.String(), err
}

func makeList(day int, body ...string) string {
	var b strings.Builder
	for _, l := range body {
		b.WriteString(l)
		b.WriteString("\r\n")
	}
	header := fmt.Sprintf(";A Test Nodelist -- Day number %d : %05d", day, crc16.Checksum([]byte(b.String())))
	return header + "\r\n" + b.String() + "\x1a"
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestRun_Help(t *testing.T) {
	code, out, errOut, err := runCLI(t, "-h")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "nodediff - Apply, verify and make Fidonet nodediffs.")
	for _, cmd := range []string{"apply", "batch", "config", "make", "verify", "version"} {
		assert.Contains(t, out, "  "+cmd+"\t")
	}
	assert.Empty(t, errOut)
}

func TestRun_NoCommand_IsUsageError(t *testing.T) {
	code, _, errOut, err := runCLI(t)
	require.Error(t, err)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "missing required subcommand")
}

func TestRun_Version(t *testing.T) {
	code, out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, Version+"\n", out)
}

func TestRun_Verify(t *testing.T) {
	useDefaults(t)
	dir := t.TempDir()

	t.Run("ok", func(t *testing.T) {
		path := writeFile(t, filepath.Join(dir, "NODELIST.290"), "H:21275\r\nL1\r\nL2\r\n\x1a")
		code, out, errOut, err := runCLI(t, "verify", path)
		require.NoError(t, err, errOut)
		assert.Equal(t, 0, code)
		assert.Equal(t, "Expected CRC: 21275, Calculated CRC: 21275\nCRC OK\n", out)
	})

	t.Run("mismatch", func(t *testing.T) {
		path := writeFile(t, filepath.Join(dir, "NODELIST.291"), "H:00001\r\nL1\r\nL2\r\n\x1a")
		code, out, _, err := runCLI(t, "crc", path)
		require.Error(t, err)
		assert.Equal(t, 1, code)
		assert.Equal(t, "Expected CRC: 00001, Calculated CRC: 21275\nCRC mismatch!\n", out)
		assert.NotContains(t, out, "\x1b[")
	})

	t.Run("unparseable header", func(t *testing.T) {
		path := writeFile(t, filepath.Join(dir, "NODELIST.292"), "no checksum here\r\nL1\r\n")
		code, _, errOut, _ := runCLI(t, "verify", path)
		assert.Equal(t, 1, code)
		assert.Contains(t, errOut, "cannot extract checksum from header")
	})

	t.Run("missing file", func(t *testing.T) {
		code, _, errOut, _ := runCLI(t, "verify", filepath.Join(dir, "missing"))
		assert.Equal(t, 1, code)
		assert.Contains(t, errOut, "missing")
	})

	t.Run("bad encoding flag", func(t *testing.T) {
		code, _, errOut, _ := runCLI(t, "verify", "-e", "utf-8", filepath.Join(dir, "NODELIST.290"))
		assert.Equal(t, 2, code)
		assert.Contains(t, errOut, "invalid --encoding")

		code, _, errOut, _ = runCLI(t, "verify", "-e", "windows-1251", filepath.Join(dir, "NODELIST.290"))
		assert.Equal(t, 2, code)
		assert.Contains(t, errOut, "byte 0x98 is undefined")
	})

	t.Run("wrong arg count", func(t *testing.T) {
		code, _, _, _ := runCLI(t, "verify")
		assert.Equal(t, 2, code)
	})
}

func TestRun_MakeThenApply(t *testing.T) {
	useDefaults(t)
	dir := t.TempDir()
	list1 := makeList(283, "Zone,2,Europe", "Host,50,Moscow")
	list2 := makeList(290, "Zone,2,Europe", "Host,50,Moscow", "Node,1,Alpha")
	old := writeFile(t, filepath.Join(dir, "NODELIST.283"), list1)
	newer := writeFile(t, filepath.Join(dir, "NEW.290"), list2)
	diff := filepath.Join(dir, "NODEDIFF.290")

	code, _, errOut, err := runCLI(t, "make", old, newer, diff)
	require.NoError(t, err, errOut)
	require.Equal(t, 0, code)

	// Without <output> the result is named after the old list and lands in the working directory.
	cwd := t.TempDir()
	t.Chdir(cwd)
	code, out, errOut, err := runCLI(t, "apply", old, diff)
	require.NoError(t, err, errOut)
	require.Equal(t, 0, code)
	assert.Equal(t, fmt.Sprintf("NODEDIFF applied successfully, %s + %s = NODELIST.290\n", old, diff), out)
	assert.Equal(t, list2, readFile(t, filepath.Join(cwd, "NODELIST.290")))
	_, statErr := os.Stat(filepath.Join(dir, "NODELIST.290"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
	assert.Equal(t, list1, readFile(t, old))

	explicit := filepath.Join(dir, "OUT")
	code, _, errOut, _ = runCLI(t, "apply", old, diff, explicit)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, list2, readFile(t, explicit))
}

func TestRun_MakeToStdout(t *testing.T) {
	useDefaults(t)
	dir := t.TempDir()
	list1 := makeList(1, "a")
	old := writeFile(t, filepath.Join(dir, "OLD"), list1)
	newer := writeFile(t, filepath.Join(dir, "NEW"), makeList(8, "a", "b"))

	code, out, errOut, err := runCLI(t, "make", old, newer)
	require.NoError(t, err, errOut)
	assert.Equal(t, 0, code)
	header, _, _ := strings.Cut(list1, "\r\n")
	assert.True(t, strings.HasPrefix(out, header+"\r\nD1\r\nA1\r\n"), out)
}

func TestRun_Apply_Errors(t *testing.T) {
	useDefaults(t)
	dir := t.TempDir()
	t.Chdir(dir)
	old := writeFile(t, filepath.Join(dir, "NODELIST.283"), makeList(283, "a"))
	noExt := writeFile(t, filepath.Join(dir, "NODEDIFF"), "H:0\r\n")

	code, _, errOut, _ := runCLI(t, "apply", old, noExt)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "no extension")

	mismatched := writeFile(t, filepath.Join(dir, "NODEDIFF.290"), "H:1\r\nC1\r\n")
	code, _, errOut, _ = runCLI(t, "apply", old, mismatched)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "header mismatch")
	_, statErr := os.Stat(filepath.Join(dir, "NODELIST.290"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRun_Batch(t *testing.T) {
	useDefaults(t)
	lists := t.TempDir()
	diffs := t.TempDir()
	list1 := makeList(283, "Zone,2,Europe")
	list2 := makeList(290, "Zone,2,Europe", "Host,50,Moscow")
	writeFile(t, filepath.Join(lists, "NODELIST.283"), list1)
	writeFile(t, filepath.Join(lists, "REGION50.283"), list1)
	newer := writeFile(t, filepath.Join(diffs, "NEW"), list2)
	diff := filepath.Join(diffs, "NODEDIFF.290")
	code, _, errOut, _ := runCLI(t, "make", filepath.Join(lists, "NODELIST.283"), newer, diff)
	require.Equal(t, 0, code, errOut)

	code, out, errOut, err := runCLI(t, "batch", "-j", "2", lists, diff)
	require.NoError(t, err, errOut)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "DIFFs successfully applied. Updated nodelist: "+filepath.Join(lists, "NODELIST.283"))
	assert.Contains(t, out, "DIFFs successfully applied. Updated nodelist: "+filepath.Join(lists, "REGION50.283"))
	assert.Contains(t, out, "NODELIST")
	assert.Contains(t, out, "2 updated, 0 failed")
	assert.Equal(t, list2, readFile(t, filepath.Join(lists, "REGION50.283")))

	// Applying the same diff again fails: the headers no longer match.
	code, out, errOut, _ = runCLI(t, "batch", lists, diff)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "0 updated, 2 failed")
	assert.Contains(t, errOut, "failed to update 2 of 2 nodelists")
	assert.Equal(t, list2, readFile(t, filepath.Join(lists, "NODELIST.283")))
}

func TestRun_Batch_SingleFileChain(t *testing.T) {
	useDefaults(t)
	dir := t.TempDir()
	list1 := makeList(1, "a")
	list2 := makeList(8, "a", "b")
	list3 := makeList(15, "b", "c")
	target := writeFile(t, filepath.Join(dir, "NODELIST"), list1)
	l2 := writeFile(t, filepath.Join(dir, "L2"), list2)
	l3 := writeFile(t, filepath.Join(dir, "L3"), list3)
	d1, d2 := filepath.Join(dir, "NODEDIFF.008"), filepath.Join(dir, "NODEDIFF.015")
	for _, args := range [][]string{{"make", target, l2, d1}, {"make", l2, l3, d2}} {
		code, _, errOut, _ := runCLI(t, args...)
		require.Equal(t, 0, code, errOut)
	}

	code, out, errOut, err := runCLI(t, "batch", target, d1, d2)
	require.NoError(t, err, errOut)
	assert.Equal(t, 0, code)
	assert.Equal(t, "DIFFs successfully applied. Updated nodelist: "+target+"\n", out)
	assert.Equal(t, list3, readFile(t, target))
}

func TestRun_Batch_BadJobs(t *testing.T) {
	useDefaults(t)
	code, _, errOut, _ := runCLI(t, "batch", "--jobs=-1", "a", "b")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "invalid --jobs")
}

func TestRun_Config(t *testing.T) {
	useDefaults(t)

	code, out, errOut, err := runCLI(t, "config")
	require.NoError(t, err, errOut)
	assert.Equal(t, 0, code)
	assert.JSONEq(t, `{"encoding": "cp866", "jobs": 1}`, out)

	code, out, _, _ = runCLI(t, "--encoding", "koi8-r", "config")
	assert.Equal(t, 0, code)
	assert.JSONEq(t, `{"encoding": "koi8-r", "jobs": 1}`, out)

	code, out, _, _ = runCLI(t, "config", "--providence", "-e", "koi8-u")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "encoding  flag\n")
	assert.Contains(t, out, "jobs      default\n")
}

func TestRun_ConfigLoadError(t *testing.T) {
	useConfig(t, func() (config.Config, error) { return config.Config{}, errors.New("bad config file") })

	code, _, errOut, err := runCLI(t, "config")
	require.Error(t, err)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "bad config file")
}
