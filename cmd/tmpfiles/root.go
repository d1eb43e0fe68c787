package tmpfiles

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/arthur-debert/tmpfiles/internal/version"
	"github.com/arthur-debert/tmpfiles/pkg/config"
	"github.com/arthur-debert/tmpfiles/pkg/core"
	"github.com/arthur-debert/tmpfiles/pkg/display"
	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/arthur-debert/tmpfiles/pkg/filesystem"
	"github.com/arthur-debert/tmpfiles/pkg/layers"
	"github.com/arthur-debert/tmpfiles/pkg/logging"
	"github.com/arthur-debert/tmpfiles/pkg/types"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

// Process exit statuses
const (
	ExitOK      = 0
	ExitFailure = 1
	// ExitDataErr is used when configuration lines were rejected but
	// every accepted rule applied cleanly.
	ExitDataErr = 65
)

// ExitError reports a run whose result has already been rendered. It only
// carries the exit status.
type ExitError struct {
	Code   int
	Reason string
}

func (e *ExitError) Error() string {
	return e.Reason
}

// ExitCode maps an error returned by the root command to a process exit
// status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

type rootOptions struct {
	create, clean, remove bool
	boot, user            bool
	catConfig, dryRun     bool

	root            string
	prefixes        []string
	excludePrefixes []string
	configFile      string
	output          string
	verbosity       int
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "tmpfiles [flags] [CONFIG...]",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Example: MsgRootExample,
		Version: version.Version,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	flags := rootCmd.Flags()
	flags.BoolVar(&opts.create, "create", false, MsgFlagCreate)
	flags.BoolVar(&opts.clean, "clean", false, MsgFlagClean)
	flags.BoolVar(&opts.remove, "remove", false, MsgFlagRemove)
	flags.BoolVar(&opts.boot, "boot", false, MsgFlagBoot)
	flags.StringVar(&opts.root, "root", "", MsgFlagRoot)
	flags.StringArrayVar(&opts.prefixes, "prefix", nil, MsgFlagPrefix)
	flags.StringArrayVar(&opts.excludePrefixes, "exclude-prefix", nil, MsgFlagExcludePrefix)
	flags.BoolVar(&opts.user, "user", false, MsgFlagUser)
	flags.BoolVar(&opts.catConfig, "cat-config", false, MsgFlagCatConfig)
	flags.BoolVar(&opts.dryRun, "dry-run", false, MsgFlagDryRun)

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", MsgFlagConfig)
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "", MsgFlagOutput)
	rootCmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", MsgFlagVerbose)

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{config.FormatText, config.FormatJSON, config.FormatYAML, config.FormatTOML}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.MarkFlagDirname("root")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(newManCmd())

	return rootCmd
}

// loadToolConfig reads the tool configuration with the command line flags
// applied on top.
func loadToolConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	overrides := map[string]interface{}{}
	if cmd.Flags().Changed("root") {
		overrides["run.root"] = opts.root
	}
	if opts.boot {
		overrides["run.boot"] = true
	}
	if opts.output != "" {
		overrides["output.format"] = opts.output
	}
	if opts.verbosity > 0 {
		overrides["logging.verbosity"] = opts.verbosity
	}

	cfg, err := config.LoadConfiguration(config.LoadOptions{
		File:      opts.configFile,
		Overrides: overrides,
	})
	if err != nil {
		return nil, err
	}
	config.Initialize(cfg)
	return cfg, nil
}

func (o *rootOptions) mode() types.RunMode {
	var mode types.RunMode
	if o.create {
		mode |= types.ModeCreate
	}
	if o.clean {
		mode |= types.ModeClean
	}
	if o.remove {
		mode |= types.ModeRemove
	}
	return mode
}

func run(cmd *cobra.Command, args []string, opts *rootOptions) error {
	cfg, err := loadToolConfig(cmd, opts)
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Verbosity, cfg.Logging.File)
	logger := logging.GetLogger("cmd")

	mode := opts.mode()
	if mode == 0 && !opts.catConfig {
		return errors.New(errors.ErrInvalidInput, MsgErrNoMode)
	}

	dirs := args
	if len(dirs) == 0 {
		dirs = cfg.Dirs(opts.user)
	}
	logger.Debug().
		Str("mode", mode.String()).
		Str("root", cfg.Run.Root).
		Strs("dirs", dirs).
		Str("toolConfig", cfg.Source).
		Msg("Command started")

	ctx := cmd.Context()
	if cfg.Run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Run.Timeout)
		defer cancel()
	}

	configFS := filesystem.NewReadOnlyConfigFS(cfg.Run.Root)
	effective, err := core.Load(ctx, core.LoadOptions{
		Dirs:           dirs,
		FS:             configFS,
		User:           opts.user,
		Overrides:      cfg.Specifiers,
		CredentialsDir: cfg.Credentials.Dir,
	})
	if err != nil {
		return errors.Wrap(err, errors.GetErrorCode(err), MsgErrLoadConfig)
	}

	if opts.catConfig {
		return layers.Cat(cmd.OutOrStdout(), configFS, effective.Files)
	}

	report := core.Reconcile(ctx, effective, mode, core.Options{
		Env:             types.Env{Root: cfg.Run.Root},
		DryRun:          opts.dryRun,
		Boot:            cfg.Run.Boot,
		Prefixes:        opts.prefixes,
		ExcludePrefixes: append(append([]string(nil), cfg.Run.ExcludePrefixes...), opts.excludePrefixes...),
		Logger:          &logger,
	})

	format, err := display.ParseFormat(cfg.Output.Format)
	if err != nil {
		return errors.Wrap(err, errors.ErrInvalidInput, MsgErrFormat)
	}
	out := cmd.OutOrStdout()
	renderer, err := display.NewRenderer(out, display.Options{
		Format:  format,
		Color:   display.UseColor(out, cfg.Output.Color),
		Verbose: cfg.Logging.Verbosity > 0,
	})
	if err != nil {
		return err
	}
	if err := renderer.RenderReport(report); err != nil {
		return err
	}

	return exitStatus(report)
}

// exitStatus turns a rendered report into the command's result.
func exitStatus(report types.RunReport) error {
	switch {
	case report.HasFailures():
		return &ExitError{Code: ExitFailure, Reason: fmt.Sprintf(MsgErrRuleFailed, report.Summary.Failed)}
	case report.Cancelled:
		return &ExitError{Code: ExitFailure, Reason: MsgErrCancelled}
	case report.HasDiagnostics():
		return &ExitError{Code: ExitDataErr, Reason: fmt.Sprintf(MsgErrDiagnostics, len(report.Diagnostics))}
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: MsgVersionShort,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, MsgVersionFormat, version.Version)
			_, _ = fmt.Fprintf(out, MsgCommitFormat, version.Commit)
			_, _ = fmt.Fprintf(out, MsgBuiltFormat, version.Date)
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 MsgCompletionShort,
		Long:                  MsgCompletionLong,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}

func newManCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "man",
		Short:  MsgManShort,
		Args:   cobra.NoArgs,
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			header := &doc.GenManHeader{
				Title:   "TMPFILES",
				Section: "8",
				Source:  "tmpfiles " + version.Version,
				Manual:  "tmpfiles manual",
			}
			return doc.GenMan(cmd.Root(), header, cmd.OutOrStdout())
		},
	}
}
