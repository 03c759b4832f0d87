package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	qcli "github.com/fidokit/nodediff/internal/q/cli"
)

// Version is the nodediff version. It is a var (not a const) so build tooling can override it (for example via `-ldflags "-X .../internal/cli.Version=1.2.3"`).
var Version = "0.3.0"

// In/Out/Err override standard I/O. If nil, defaults are used. Overriding is useful for testing.
type RunOptions struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Run runs the CLI with args (typically you'd use os.Args).
//
// It returns a recommended exit code (0, 1, or 2) and an error, if any:
//   - 0 -> err == nil
//   - 1 -> err != nil, but the structure of args is sound (ex: a CRC mismatch or a nodediff that does not apply).
//   - 2 -> err != nil, args parse error or misuse of flags, etc.
//
// Note that in cases of errors, Run has already displayed an error message to opts.Err || Stderr. Callers may use os.Exit with the exit code.
func Run(args []string, opts *RunOptions) (int, error) {
	argv := args
	if len(argv) > 0 {
		argv = argv[1:]
	}

	root := newRootCommand()

	var in io.Reader = os.Stdin
	var out io.Writer = os.Stdout
	var errW io.Writer = os.Stderr
	if opts != nil {
		if opts.In != nil {
			in = opts.In
		}
		if opts.Out != nil {
			out = opts.Out
		}
		if opts.Err != nil {
			errW = opts.Err
		}
	}

	// internal/q/cli returns only an exit code, so we tee stderr to produce a non-nil error when exitCode != 0.
	var stderrBuf bytes.Buffer
	errTee := io.MultiWriter(errW, &stderrBuf)

	exitCode := qcli.Run(context.Background(), root, qcli.Options{
		Args: argv,
		In:   in,
		Out:  out,
		Err:  errTee,
	})

	if exitCode == 0 {
		return 0, nil
	}

	msg := strings.TrimSpace(stderrBuf.String())
	if msg == "" {
		msg = "command failed"
	}
	return exitCode, errors.New(msg)
}
