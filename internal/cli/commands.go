package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fidokit/nodediff/internal/batch"
	"github.com/fidokit/nodediff/internal/config"
	"github.com/fidokit/nodediff/internal/nodediff"
	"github.com/fidokit/nodediff/internal/nodelist"
	qcli "github.com/fidokit/nodediff/internal/q/cli"
	"github.com/fidokit/nodediff/internal/simplelogger"
)

var loadConfig = config.Load

type configState struct {
	once sync.Once
	cfg  config.Config
	err  error
}

func (s *configState) get() (config.Config, error) {
	s.once.Do(func() {
		s.cfg, s.err = loadConfig()
	})
	return s.cfg, s.err
}

func newRootCommand() *qcli.Command {
	cfgState := &configState{}

	root := &qcli.Command{
		Name:  "nodediff",
		Short: "Apply, verify and make Fidonet nodediffs.",
		Long: `nodediff keeps Fidonet nodelists current by applying weekly nodediffs (FTS-5000).

Settings are read from ~/.nodediff/config.json, the nearest .nodediff/config.json
above the working directory, and NODEDIFF_* environment variables, in that order.`,
	}
	encodingFlag := root.PersistentFlags().String("encoding", 'e', "", "Code page of nodelists and nodediffs (overrides config encoding; default cp866).")

	// runWithConfig resolves the configuration, applies --encoding, and hands the result to next.
	runWithConfig := func(next func(c *qcli.Context, cfg config.Config) error) qcli.RunFunc {
		return func(c *qcli.Context) error {
			cfg, err := cfgState.get()
			if err != nil {
				return qcli.ExitError{Code: 1, Err: err}
			}
			if err := cfg.OverrideEncoding(*encodingFlag); err != nil {
				return qcli.UsageError{Message: fmt.Sprintf("invalid --encoding: %v", err)}
			}
			return next(c, cfg)
		}
	}

	verifyCmd := &qcli.Command{
		Name:    "verify",
		Aliases: []string{"crc"},
		Short:   "Check the CRC declared in a nodelist header.",
		Args:    qcli.ExactArgs(1),
		Example: "nodediff verify NODELIST.290",
	}
	verifyCmd.Run = runWithConfig(func(c *qcli.Context, cfg config.Config) error {
		opts, err := batchOptions(cfg)
		if err != nil {
			return err
		}
		path := c.Args[0]
		v, err := nodelist.VerifyFile(path, opts.Encoding)
		if err != nil {
			simplelogger.Log("verify %s failed: %v", path, err)
			return fmt.Errorf("%s: %w", path, err)
		}
		simplelogger.Log("verify %s (%s): expected %05d, calculated %05d", path, nodelist.EncodingName(opts.Encoding), v.Declared, v.Computed)

		st := newStyler(c.Out)
		if _, err := fmt.Fprintf(c.Out, "Expected CRC: %05d, Calculated CRC: %05d\n", v.Declared, v.Computed); err != nil {
			return err
		}
		if v.OK {
			return writeStringln(c.Out, st.good("CRC OK"))
		}
		if err := writeStringln(c.Out, st.bad("CRC mismatch!")); err != nil {
			return err
		}
		return qcli.ExitError{Code: 1, Err: errors.New("")}
	})

	applyCmd := &qcli.Command{
		Name:  "apply",
		Short: "Apply one nodediff to a nodelist.",
		Long:  "If <output> is omitted, the result is written to the current directory, named after <nodelist> with the nodediff's extension.",
		Args:  qcli.RangeArgs(2, 3),
		Example: `nodediff apply NODELIST.283 NODEDIFF.290
nodediff apply NODELIST.283 NODEDIFF.290 /srv/fido/NODELIST`,
	}
	applyCmd.Run = runWithConfig(func(c *qcli.Context, cfg config.Config) error {
		opts, err := batchOptions(cfg)
		if err != nil {
			return err
		}
		oldPath, diffPath := c.Args[0], c.Args[1]
		outPath := ""
		if len(c.Args) == 3 {
			outPath = c.Args[2]
		} else {
			outPath, err = batch.DefaultOutputPath(oldPath, diffPath)
			if err != nil {
				return qcli.UsageError{Message: err.Error()}
			}
		}

		if _, err := batch.ApplyFile(c.Context, oldPath, diffPath, outPath, opts); err != nil {
			if nodediff.IsInvalidDiff(err) {
				return fmt.Errorf("%s does not apply to %s: %w", diffPath, oldPath, err)
			}
			return err
		}
		_, err = fmt.Fprintf(c.Out, "NODEDIFF applied successfully, %s + %s = %s\n", oldPath, diffPath, outPath)
		return err
	})

	batchCmd := &qcli.Command{
		Name:  "batch",
		Short: "Apply a chain of nodediffs to a nodelist, or to every nodelist in a directory.",
		Long: `Nodediffs are applied in the order given and the nodelist is replaced only if the whole chain succeeds.

If the first argument is a directory, every regular file in it with a three-character extension is updated independently.`,
		Args: qcli.MinimumArgs(2),
		Example: `nodediff batch NODELIST.283 NODEDIFF.290 NODEDIFF.297
nodediff batch -j 4 /srv/fido/nodelists NODEDIFF.290`,
	}
	batchJobs := batchCmd.Flags().Int("jobs", 'j', 0, "Nodelists to update at once in directory mode (default: config jobs).")
	batchCmd.Run = runWithConfig(func(c *qcli.Context, cfg config.Config) error {
		if *batchJobs < 0 {
			return qcli.UsageError{Message: fmt.Sprintf("invalid --jobs: must be > 0 (got %d)", *batchJobs)}
		}
		opts, err := batchOptions(cfg)
		if err != nil {
			return err
		}
		if *batchJobs > 0 {
			opts.Jobs = *batchJobs
		}

		target := c.Args[0]
		report, runErr := batch.Run(c.Context, target, c.Args[1:], opts)
		for _, f := range report.Files {
			if f.Err != nil {
				continue
			}
			if _, err := fmt.Fprintf(c.Out, "DIFFs successfully applied. Updated nodelist: %s\n", f.Path); err != nil {
				return err
			}
		}
		if fi, err := os.Stat(target); err == nil && fi.IsDir() && len(report.Files) > 0 {
			if err := writeSummary(c.Out, report, newStyler(c.Out)); err != nil {
				return err
			}
		}
		if runErr != nil {
			return fmt.Errorf("failed to update %d of %d nodelists: %w", max(report.Failed(), 1), max(len(report.Files), 1), runErr)
		}
		return nil
	})

	makeCmd := &qcli.Command{
		Name:    "make",
		Aliases: []string{"diff"},
		Short:   "Make the nodediff that turns one nodelist into another.",
		Long:    "If <output> is omitted, the nodediff is written to stdout.",
		Args:    qcli.RangeArgs(2, 3),
		Example: "nodediff make NODELIST.283 NODELIST.290 NODEDIFF.290",
	}
	makeCmd.Run = runWithConfig(func(c *qcli.Context, cfg config.Config) error {
		opts, err := batchOptions(cfg)
		if err != nil {
			return err
		}
		oldPath, newPath := c.Args[0], c.Args[1]
		if len(c.Args) == 2 {
			_, err := batch.GenerateTo(oldPath, newPath, c.Out, opts)
			return err
		}
		_, err = batch.MakeDiff(c.Context, oldPath, newPath, c.Args[2], opts)
		return err
	})

	configCmd := &qcli.Command{
		Name:  "config",
		Short: "Print the effective nodediff configuration.",
		Args:  qcli.NoArgs,
	}
	configProvidence := configCmd.Flags().Bool("providence", 0, false, "Print where each setting came from instead of the JSON document.")
	configCmd.Run = runWithConfig(func(c *qcli.Context, cfg config.Config) error {
		if !*configProvidence {
			return config.WriteJSON(c.Out, cfg)
		}
		rows := [][2]string{
			{"encoding", cfg.EncodingProvidence.String()},
			{"jobs", cfg.JobsProvidence.String()},
			{"tempdir", cfg.TempDirProvidence.String()},
		}
		for _, r := range rows {
			if _, err := fmt.Fprintf(c.Out, "%-9s %s\n", r[0], r[1]); err != nil {
				return err
			}
		}
		return nil
	})

	versionCmd := &qcli.Command{
		Name:  "version",
		Short: "Print nodediff version.",
		Args:  qcli.NoArgs,
		Run: func(c *qcli.Context) error {
			return writeStringln(c.Out, Version)
		},
	}

	root.AddCommand(verifyCmd, applyCmd, batchCmd, makeCmd, configCmd, versionCmd)
	return root
}

func batchOptions(cfg config.Config) (batch.Options, error) {
	cm, err := cfg.Charmap()
	if err != nil {
		return batch.Options{}, qcli.ExitError{Code: 1, Err: err}
	}
	return batch.Options{
		Encoding: cm,
		Jobs:     cfg.Jobs,
		TempDir:  cfg.TempDirPath(),
	}, nil
}

func writeStringln(w io.Writer, s string) error {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := fmt.Fprint(w, s)
	return err
}
