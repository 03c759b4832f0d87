package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func runCLI(t *testing.T, root *Command, args ...string) (int, string, string) {
	t.Helper()
	var out bytes.Buffer
	var errOut bytes.Buffer
	code := Run(context.Background(), root, Options{
		Args: args,
		In:   strings.NewReader(""),
		Out:  &out,
		Err:  &errOut,
	})
	return code, out.String(), errOut.String()
}

func TestRun_SelectsDeepestCommandAndParsesFlagsInterspersed(t *testing.T) {
	root := &Command{Name: "prog"}
	enc := root.PersistentFlags().String("encoding", 'e', "cp866", "Encoding")

	lists := &Command{Name: "lists", Short: "Nodelist tools"}
	apply := &Command{Name: "apply", Aliases: []string{"patch"}, Args: RangeArgs(2, 3)}
	jobs := apply.Flags().Int("jobs", 'j', 1, "Jobs")
	dry := apply.Flags().Bool("dry-run", 0, false, "Dry run")

	var gotArgs []string
	apply.Run = func(c *Context) error {
		gotArgs = append([]string(nil), c.Args...)
		return nil
	}
	lists.AddCommand(apply)
	root.AddCommand(lists)

	code, stdout, stderr := runCLI(t, root, "-e", "koi8-r", "lists", "patch", "NODELIST.283", "--jobs=4", "NODEDIFF.290", "--dry-run")
	if code != 0 {
		t.Fatalf("code=%d stdout=%q stderr=%q", code, stdout, stderr)
	}
	if *enc != "koi8-r" {
		t.Fatalf("expected encoding=koi8-r, got %q", *enc)
	}
	if *jobs != 4 {
		t.Fatalf("expected jobs=4, got %d", *jobs)
	}
	if !*dry {
		t.Fatalf("expected dry-run=true")
	}
	if strings.Join(gotArgs, ",") != "NODELIST.283,NODEDIFF.290" {
		t.Fatalf("unexpected args: %v", gotArgs)
	}
}

func TestRun_FlagForms(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "long with space", args: []string{"--jobs", "3"}, want: 3},
		{name: "long with equals", args: []string{"--jobs=3"}, want: 3},
		{name: "short with space", args: []string{"-j", "3"}, want: 3},
		{name: "short with equals", args: []string{"-j=3"}, want: 3},
		{name: "single dash long", args: []string{"-jobs=3"}, want: 3},
		{name: "default", args: nil, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := &Command{Name: "prog"}
			jobs := root.Flags().Int("jobs", 'j', 1, "")
			root.Run = func(*Context) error { return nil }

			code, _, stderr := runCLI(t, root, tt.args...)
			if code != 0 {
				t.Fatalf("code=%d stderr=%q", code, stderr)
			}
			if *jobs != tt.want {
				t.Fatalf("expected jobs=%d, got %d", tt.want, *jobs)
			}
		})
	}
}

func TestRun_BoolFlagOnlyConsumesBoolLiterals(t *testing.T) {
	root := &Command{Name: "prog"}
	verbose := root.Flags().Bool("verbose", 'v', false, "")
	var got []string
	root.Run = func(c *Context) error {
		got = c.Args
		return nil
	}

	code, _, _ := runCLI(t, root, "-v", "file", "--verbose", "false")
	if code != 0 {
		t.Fatalf("code=%d", code)
	}
	if *verbose {
		t.Fatalf("expected verbose=false after explicit value")
	}
	if len(got) != 1 || got[0] != "file" {
		t.Fatalf("expected args=[file], got %v", got)
	}
}

func TestRun_DashDashEndsFlagParsing(t *testing.T) {
	root := &Command{Name: "prog"}
	root.Flags().Bool("verbose", 'v', false, "")
	var got []string
	root.Run = func(c *Context) error {
		got = c.Args
		return nil
	}

	code, _, stderr := runCLI(t, root, "a", "--", "-v", "-")
	if code != 0 {
		t.Fatalf("code=%d stderr=%q", code, stderr)
	}
	if strings.Join(got, ",") != "a,-v,-" {
		t.Fatalf("unexpected args: %v", got)
	}
}

func TestRun_HelpPrintsForDeepestSelectedCommandSoFar(t *testing.T) {
	root := &Command{Name: "prog", Short: "Root"}
	verify := &Command{Name: "verify", Short: "Verify a nodelist", Example: "prog verify NODELIST.290", Run: func(*Context) error { return nil }}
	root.AddCommand(verify)
	root.PersistentFlags().String("encoding", 'e', "", "Code page")

	code, stdout, stderr := runCLI(t, root, "verify", "--help")
	if code != 0 || stderr != "" {
		t.Fatalf("code=%d stderr=%q", code, stderr)
	}
	for _, want := range []string{"prog verify - Verify a nodelist", "Usage:", "prog verify [flags] [args]", "-e, --encoding <string>", "Example:", "  prog verify NODELIST.290"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected help to contain %q, got:\n%s", want, stdout)
		}
	}
}

func TestRun_RootHelpListsCommandsSorted(t *testing.T) {
	root := &Command{Name: "prog"}
	root.AddCommand(&Command{Name: "verify", Short: "V"}, &Command{Name: "apply", Short: "A"})

	_, stdout, _ := runCLI(t, root, "-h")
	a := strings.Index(stdout, "  apply\tA")
	v := strings.Index(stdout, "  verify\tV")
	if a < 0 || v < 0 || a > v {
		t.Fatalf("expected sorted command list, got:\n%s", stdout)
	}
	if !strings.Contains(stdout, "prog <command>") {
		t.Fatalf("expected namespace usage line, got:\n%s", stdout)
	}
}

func TestRun_UsageErrors(t *testing.T) {
	newRoot := func() *Command {
		root := &Command{Name: "prog"}
		apply := &Command{Name: "apply", Args: ExactArgs(2), Run: func(*Context) error { return nil }}
		apply.Flags().Int("jobs", 'j', 1, "")
		root.AddCommand(apply)
		return root
	}
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing subcommand", args: nil, want: "missing required subcommand"},
		{name: "unknown subcommand", args: []string{"bogus"}, want: "unknown subcommand: bogus"},
		{name: "unknown flag", args: []string{"apply", "--nope"}, want: "unknown flag: --nope"},
		{name: "local flag before command", args: []string{"--jobs=2", "apply", "a", "b"}, want: "unknown flag: --jobs=2"},
		{name: "missing flag value", args: []string{"apply", "a", "b", "--jobs"}, want: "flag needs a value: --jobs"},
		{name: "bad flag value", args: []string{"apply", "-j", "x", "a", "b"}, want: "invalid value for -j/--jobs"},
		{name: "wrong arg count", args: []string{"apply", "a"}, want: "expected 2 args, got 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, newRoot(), tt.args...)
			if code != 2 {
				t.Fatalf("expected code 2, got %d", code)
			}
			if stdout != "" {
				t.Fatalf("expected empty stdout, got %q", stdout)
			}
			if !strings.Contains(stderr, tt.want) || !strings.Contains(stderr, "Usage:") {
				t.Fatalf("expected stderr to contain %q and usage, got %q", tt.want, stderr)
			}
		})
	}
}

func TestRun_HandlerErrorDoesNotPrintUsage(t *testing.T) {
	root := &Command{Name: "prog", Run: func(*Context) error { return errors.New("CRC mismatch") }}

	code, _, stderr := runCLI(t, root)
	if code != 1 {
		t.Fatalf("expected code 1, got %d", code)
	}
	if stderr != "CRC mismatch\n" {
		t.Fatalf("unexpected stderr %q", stderr)
	}
}

func TestRun_HandlerExitCodes(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantUsage bool
	}{
		{name: "exit error", err: ExitError{Code: 3, Err: errors.New("three")}, wantCode: 3},
		{name: "wrapped exit error", err: ExitError{Code: 1, Err: errors.New("one")}, wantCode: 1},
		{name: "usage error", err: UsageError{Message: "bad path"}, wantCode: 2, wantUsage: true},
		{name: "exit zero is silent", err: ExitError{Code: 0}, wantCode: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := &Command{Name: "prog", Run: func(*Context) error { return tt.err }}
			code, _, stderr := runCLI(t, root)
			if code != tt.wantCode {
				t.Fatalf("expected code %d, got %d", tt.wantCode, code)
			}
			if got := strings.Contains(stderr, "Usage:"); got != tt.wantUsage {
				t.Fatalf("usage printed=%v, want %v (stderr=%q)", got, tt.wantUsage, stderr)
			}
		})
	}
}

func TestArgsHelpers(t *testing.T) {
	if err := NoArgs(nil); err != nil {
		t.Fatalf("NoArgs(nil) = %v", err)
	}
	if err := NoArgs([]string{"x"}); err == nil {
		t.Fatalf("NoArgs should reject args")
	}
	if err := MinimumArgs(2)([]string{"a"}); err == nil || err.Error() != "expected at least 2 args, got 1" {
		t.Fatalf("unexpected MinimumArgs error: %v", err)
	}
	if err := RangeArgs(2, 3)([]string{"a"}); err == nil || err.Error() != "expected 2-3 args, got 1" {
		t.Fatalf("unexpected RangeArgs error: %v", err)
	}
	if err := ExactArgs(1)([]string{"a", "b"}); err == nil || err.Error() != "expected 1 arg, got 2" {
		t.Fatalf("unexpected ExactArgs error: %v", err)
	}
	var ue UsageError
	if !errors.As(ExactArgs(1)(nil), &ue) {
		t.Fatalf("expected UsageError")
	}
}

func TestAddCommand_Panics(t *testing.T) {
	mustPanic := func(name string, f func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Fatalf("%s: expected panic", name)
			}
		}()
		f()
	}
	mustPanic("nil child", func() { (&Command{Name: "a"}).AddCommand(nil) })
	mustPanic("unnamed child", func() { (&Command{Name: "a"}).AddCommand(&Command{}) })
	mustPanic("reparent", func() {
		child := &Command{Name: "c"}
		(&Command{Name: "a"}).AddCommand(child)
		(&Command{Name: "b"}).AddCommand(child)
	})
	mustPanic("duplicate flag", func() {
		fs := (&Command{Name: "a"}).Flags()
		fs.Bool("x", 0, false, "")
		fs.Bool("x", 0, false, "")
	})
}
