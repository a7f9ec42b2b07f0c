package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/emenda-labs/prmerge/core/cli"
	"github.com/emenda-labs/prmerge/core/merge"
	"github.com/emenda-labs/prmerge/core/resolver"
	gitdriver "github.com/emenda-labs/prmerge/drivers/git"
	"github.com/emenda-labs/prmerge/pkg/config"
	"github.com/emenda-labs/prmerge/pkg/github"
)

const version = "0.1.0"

const (
	exitSuccess = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runMerge := func(ctx context.Context, opts cli.MergeOptions) error {
		cfg, err := config.Load(opts.ConfigFile, opts.Flags)
		if err != nil {
			return err
		}
		logger := cfg.NewLogger()
		if cfg.File != "" {
			logger.Debug("using config file", "file", cfg.File)
		}

		scm := gitdriver.NewDriver(gitdriver.ExecRunner{}, cfg.Token, logger)
		res := resolver.New(
			github.NewClient(cfg.APIURL, cfg.Token),
			scm.RemoteURL,
			resolver.WithRemote(cfg.Remote),
			resolver.WithHost(cfg.Host),
			resolver.WithLogger(logger),
		)
		orch := merge.New(res, scm, merge.Config{
			CloneDepth:  cfg.CloneDepth,
			VersionFile: cfg.VersionFile,
			WorkDirBase: cfg.WorkDir,
			DryRun:      opts.DryRun,
		}, logger)

		out, err := orch.Run(ctx, opts.Repo, opts.Number)
		if err != nil {
			return err
		}

		printSuccess(os.Stdout, out)
		return nil
	}

	root := cli.NewRootCmd(version, runMerge)

	err := root.ExecuteContext(ctx)
	if err != nil {
		printError(os.Stderr, err)
		if cli.IsUsageError(err) {
			fmt.Fprintln(os.Stderr)
			fmt.Fprint(os.Stderr, root.UsageString())
		}
	}
	if code := exitCode(err); code != exitSuccess {
		stop()
		os.Exit(code)
	}
}

// exitCode maps the result of a run to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case cli.IsUsageError(err):
		return exitUsage
	default:
		return exitFailure
	}
}

func printSuccess(w io.Writer, out *merge.Outcome) {
	prefix := color.New(color.FgGreen, color.Bold).Sprint("success:")
	if !out.Published {
		fmt.Fprintf(w, "%s %s#%d merged into %s as %s (dry run, not pushed)\n", prefix, out.Repo, out.Number, out.Branch, out.Next)
		return
	}
	fmt.Fprintf(w, "%s %s#%d merged into %s as %s\n", prefix, out.Repo, out.Number, out.Branch, out.Next)
}

// printError writes a single "error:" line. Merge conflicts additionally get
// the merge tool's report so the user can see which files clashed.
func printError(w io.Writer, err error) {
	prefix := color.New(color.FgRed, color.Bold).Sprint("error:")
	msg, _, _ := strings.Cut(err.Error(), "\n")
	fmt.Fprintf(w, "%s %s\n", prefix, msg)

	var conflict *merge.MergeConflictError
	if errors.As(err, &conflict) && conflict.Detail != "" {
		for _, line := range strings.Split(conflict.Detail, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}
