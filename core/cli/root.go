package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// MergeOptions holds the parsed arguments and flags for a run.
type MergeOptions struct {
	// Repo is owner/name, or empty to infer it from the upstream remote.
	Repo       string
	Number     int
	DryRun     bool
	ConfigFile string
	// Flags carries the command's flags so configuration can bind to them.
	Flags *pflag.FlagSet
}

// RunFunc is the handler for the root command. It is injected by the wiring
// layer (cmd/prmerge/main.go).
type RunFunc func(ctx context.Context, opts MergeOptions) error

// NewRootCmd creates the prmerge command.
func NewRootCmd(version string, runFunc RunFunc) *cobra.Command {
	var opts MergeOptions

	cmd := &cobra.Command{
		Use:   "prmerge [-h] [REPO-NAME] PR-NUMBER",
		Short: "Merge a pull request and bump the project version",
		Long: `prmerge merges a pull request into its base branch and bumps the version in
version.sbt according to the request's classification label:

  breaking   0.x: bump minor   1.x+: bump major
  feature    0.x: bump patch   1.x+: bump minor
  revision   bump patch
  release    0.x: promote to 1.0.0 (rejected once stable)

REPO-NAME is owner/name. When omitted it is inferred from the upstream remote
of the repository in the current directory.`,
		Example: `  prmerge 42
  prmerge acme/widgets 42
  prmerge --dry-run acme/widgets 42`,
		Args: func(cmd *cobra.Command, args []string) error {
			repo, number, err := ParseArgs(args)
			if err != nil {
				return err
			}
			opts.Repo, opts.Number = repo, number
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Flags = cmd.Flags()
			return runFunc(cmd.Context(), opts)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.Version = version

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Merge and amend locally but do not push")
	cmd.Flags().StringVar(&opts.ConfigFile, "config", "", "Config file (default is $HOME/.prmerge.yaml)")
	cmd.Flags().String("remote", "", "Remote used to infer REPO-NAME (default \"upstream\")")
	cmd.Flags().String("log-level", "", "Log level: debug, info, warn, error (default \"warn\")")
	cmd.Flags().Int("clone-depth", 0, "History depth of the base branch clone (default 50)")
	cmd.Flags().String("version-file", "", "Version record path relative to the repository root (default \"version.sbt\")")
	cmd.Flags().String("api-url", "", "Hosting API base URL (default \"https://api.github.com\")")
	cmd.Flags().String("host", "", "Hosting domain recognized in remote URLs (default \"github.com\")")
	cmd.Flags().String("work-dir", "", "Directory for the scratch clone (default system temp dir)")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Msg: err.Error()}
	})

	return cmd
}

// IsUsageError reports whether err is a command-line usage problem.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}
