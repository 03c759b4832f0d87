package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Options configures Run.
type Options struct {
	// Args is argv without the program name (typically os.Args[1:]).
	Args []string

	// In/Out/Err default to the process's standard streams when nil.
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Context is handed to a RunFunc. Flag values are read through the pointers returned when the flags were registered.
type Context struct {
	context.Context

	Command *Command
	Args    []string

	In  io.Reader
	Out io.Writer
	Err io.Writer
}

var errHelpPrinted = errors.New("help printed")

// Run parses opts.Args against the tree rooted at root, runs the selected command, and returns the process exit code: 0 on success, 2 for usage errors, the
// ExitCoder's code if the handler returned one, and 1 otherwise. Errors are printed to opts.Err.
func Run(ctx context.Context, root *Command, opts Options) int {
	if root == nil || root.Name == "" {
		panic("cli: Run needs a named root command")
	}
	in, out, errOut := opts.In, opts.Out, opts.Err
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}

	cmd, args, err := parse(root, opts.Args)
	if errors.Is(err, errHelpPrinted) {
		writeHelp(out, cmd)
		return 0
	}
	if err != nil {
		printUsageError(errOut, cmd, err)
		return 2
	}

	if cmd.Run == nil {
		if len(args) == 0 {
			printUsageError(errOut, cmd, usageErrorf("missing required subcommand"))
		} else {
			printUsageError(errOut, cmd, usageErrorf("unknown subcommand: %s", args[0]))
		}
		return 2
	}

	if cmd.Args != nil {
		if err := cmd.Args(args); err != nil {
			var ec ExitCoder
			if !errors.As(err, &ec) {
				err = UsageError{Message: err.Error()}
			}
			return report(errOut, cmd, err)
		}
	}

	err = cmd.Run(&Context{Context: ctx, Command: cmd, Args: args, In: in, Out: out, Err: errOut})
	if err == nil {
		return 0
	}
	return report(errOut, cmd, err)
}

// parse walks argv selecting the deepest matching command and applying flags as they appear. Selection stops at the first token that is neither a flag nor a
// child command; "--" ends both selection and flag parsing.
func parse(root *Command, argv []string) (*Command, []string, error) {
	cmd := root
	selecting := true
	var positional []string

	for i := 0; i < len(argv); i++ {
		token := argv[i]
		switch {
		case token == "--":
			return cmd, append(positional, argv[i+1:]...), nil
		case token == "-h" || token == "--help":
			return cmd, nil, errHelpPrinted
		case strings.HasPrefix(token, "-") && token != "-":
			n, err := cmd.visibleFlags().parseFlag(argv[i:])
			if err != nil {
				return cmd, nil, err
			}
			i += n
		default:
			if selecting {
				if ch := cmd.child(token); ch != nil {
					cmd = ch
					continue
				}
				selecting = false
			}
			positional = append(positional, token)
		}
	}
	return cmd, positional, nil
}

// report prints err and returns its exit code.
func report(errOut io.Writer, cmd *Command, err error) int {
	code := 1
	var ec ExitCoder
	if errors.As(err, &ec) {
		code = ec.ExitCode()
	}
	switch code {
	case 0:
	case 2:
		printUsageError(errOut, cmd, err)
	default:
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(errOut, msg)
		}
	}
	return code
}

func printUsageError(errOut io.Writer, cmd *Command, err error) {
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(errOut, msg)
		fmt.Fprintln(errOut)
	}
	writeHelp(errOut, cmd)
}
