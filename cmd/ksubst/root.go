package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/byte4ever/ksubst/config"
	"github.com/byte4ever/ksubst/logging"
	"github.com/byte4ever/ksubst/report"
	"github.com/byte4ever/ksubst/templating"
	"github.com/byte4ever/ksubst/tree"
	"github.com/byte4ever/ksubst/variables"
)

// options are the raw flag targets. Only flags the user
// actually set are handed to config.Load.
type options struct {
	configPath string
	recursive  bool
	input      string
	output     string
	list       bool
	verbosity  int

	envFiles     []string
	envVars      []string
	stampFiles   []string
	include      []string
	exclude      []string
	inheritEnv   bool
	keepGoing    bool
	validate     bool
	strict       bool
	dryRun       bool
	def          string
	startTag     string
	endTag       string
	parallelism  int
	reportKind   string
	reportFormat string
	logLevel     string
}

// overrides maps every changed flag to its config key.
func (o *options) overrides(
	changed func(string) bool,
) map[string]interface{} {
	out := make(map[string]interface{})

	set := func(flag, key string, val interface{}) {
		if changed(flag) {
			out[key] = val
		}
	}

	set("env-file", "env_files", o.envFiles)
	set("env-vars", "env_vars", o.envVars)
	set("stamp-info-file", "stamp_info_files", o.stampFiles)
	set("inherit-env", "inherit_env", o.inheritEnv)
	set("default", "default", o.def)
	set("start-tag", "start_tag", o.startTag)
	set("end-tag", "end_tag", o.endTag)
	set("filter", "include", o.include)
	set("exclude", "exclude", o.exclude)
	set("parallelism", "parallelism", o.parallelism)
	set("keep-going", "keep_going", o.keepGoing)
	set("validate-manifests", "validate_manifests", o.validate)
	set("strict", "strict", o.strict)
	set("dry-run", "dry_run", o.dryRun)
	set("report", "report", o.reportKind)
	set("report-format", "report_format", o.reportFormat)
	set("log-level", "log_level", o.logLevel)

	return out
}

//nolint:funlen // CLI flag setup is inherently long
func newRootCmd(
	stdin io.Reader,
	stdout io.Writer,
	stderr io.Writer,
	environ []string,
) *cobra.Command {
	var o options

	cmd := &cobra.Command{
		Use:   "ksubst [flags] [INPUT_DIR OUTPUT_DIR]",
		Short: "Substitute ${VAR} placeholders in text and file trees",
		Long: `ksubst replaces ${NAME}, ${NAME.} and ${NAME-} placeholders.

${NAME} requires NAME to be defined. ${NAME.} and ${NAME-} expand to the
value followed by "." or "-" when NAME is set and non-empty, and to nothing
otherwise, which makes them suitable as optional name prefixes.

Without -r the template is read from --input or stdin and written to
--output or stdout. With -r every selected file of INPUT_DIR is written to
the same relative path under OUTPUT_DIR.`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, &o, args, stdin, stdout, stderr, environ)
		},
	}

	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	fl := cmd.Flags()

	fl.StringVar(&o.configPath, "config", "", "YAML config file (default: "+config.DefaultFile+" if present)")
	fl.CountVarP(&o.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG)")
	fl.StringVar(&o.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	fl.StringArrayVar(&o.envFiles, "env-file", nil, "Path to a .env file (repeatable, later files win)")
	fl.StringArrayVar(&o.envVars, "env-vars", nil, "Comma-separated KEY=VALUE list (repeatable)")
	fl.StringArrayVar(&o.stampFiles, "stamp-info-file", nil, "Workspace status file of KEY VALUE lines (repeatable)")
	fl.BoolVar(&o.inheritEnv, "inherit-env", false, "Keep the process environment under explicit variable sources")
	fl.StringVar(&o.def, "default", "", "Value for undefined ${VAR} placeholders instead of failing")
	fl.BoolVar(&o.strict, "strict", false, `Reject variables and --default values containing "$", "{" or "}"`)

	fl.StringVar(&o.startTag, "start-tag", "${", "Placeholder start delimiter")
	fl.StringVar(&o.endTag, "end-tag", "}", "Placeholder end delimiter")

	fl.StringVarP(&o.input, "input", "i", "", "Template file (default: stdin)")
	fl.StringVarP(&o.output, "output", "o", "", "Output file (default: stdout)")
	fl.BoolVar(&o.list, "list", false, "Print the referenced variable names instead of substituting")

	fl.BoolVarP(&o.recursive, "recursive", "r", false, "Process INPUT_DIR into OUTPUT_DIR")
	fl.StringArrayVar(&o.include, "filter", nil, "Only process files matching this glob (repeatable)")
	fl.StringArrayVar(&o.exclude, "exclude", nil, "Skip files matching this glob (repeatable)")
	fl.IntVarP(&o.parallelism, "parallelism", "j", 4, "Number of files processed concurrently")
	fl.BoolVar(&o.keepGoing, "keep-going", false, "Process remaining files after a failure")
	fl.BoolVar(&o.validate, "validate-manifests", false, "Check Kubernetes names in substituted YAML files")
	fl.BoolVar(&o.dryRun, "dry-run", false, "Substitute without writing any file")
	fl.StringVar(&o.reportKind, "report", "text", "Report format for -r: text or json")
	fl.StringVar(&o.reportFormat, "report-format", "", "Text report line, e.g. '{status} {path}'")

	return cmd
}

func execute(
	cmd *cobra.Command,
	o *options,
	args []string,
	stdin io.Reader,
	stdout io.Writer,
	stderr io.Writer,
	environ []string,
) error {
	const errCtx = "ksubst"

	cfg, err := config.Load(
		o.configPath, o.overrides(cmd.Flags().Changed),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	logging.Setup(stderr, cfg.LogLevel, o.verbosity)

	vars, err := variables.Sources{
		EnvFiles:       cfg.EnvFiles,
		Pairs:          cfg.EnvVars,
		StampInfoFiles: cfg.StampInfoFiles,
		InheritEnv:     cfg.InheritEnv,
	}.Build(environ)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Debug("variables loaded", "count", len(vars))

	if cfg.Strict {
		if err := templating.ValidateVars(vars); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		if cfg.Default != nil {
			if err := templating.ValidateDefault(*cfg.Default); err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}
		}
	}

	en := &templating.Engine{
		StartTag: cfg.StartTag,
		EndTag:   cfg.EndTag,
		Default:  cfg.Default,
	}

	if o.recursive {
		err = runTree(cmd, cfg, o, args, en, vars, stdout)
	} else {
		err = runStream(o, args, en, vars, stdin, stdout)
	}

	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func runTree(
	cmd *cobra.Command,
	cfg *config.Config,
	o *options,
	args []string,
	en *templating.Engine,
	vars map[string]string,
	stdout io.Writer,
) error {
	if len(args) != 2 {
		return errors.New(
			"-r requires INPUT_DIR and OUTPUT_DIR",
		)
	}

	if o.list || o.input != "" || o.output != "" {
		return errors.New(
			"--list, --input and --output cannot be used with -r",
		)
	}

	rep, procErr := tree.Process(
		cmd.Context(),
		tree.Options{
			InputDir:  args[0],
			OutputDir: args[1],
			Matcher: tree.Matcher{
				Include: cfg.Include,
				Exclude: cfg.Exclude,
			},
			Parallelism:       cfg.Parallelism,
			KeepGoing:         cfg.KeepGoing,
			DryRun:            cfg.DryRun,
			ValidateManifests: cfg.ValidateManifests,
		},
		en,
		vars,
	)

	if rep.Results != nil {
		if err := report.Write(
			stdout, rep, cfg.Report, cfg.ReportFormat,
		); err != nil {
			return errors.Join(procErr, err)
		}
	}

	return procErr
}

func runStream(
	o *options,
	args []string,
	en *templating.Engine,
	vars map[string]string,
	stdin io.Reader,
	stdout io.Writer,
) error {
	if len(args) > 0 {
		return fmt.Errorf(
			"unexpected arguments %s (use -r for directories)",
			strings.Join(args, " "),
		)
	}

	tpl, err := readInput(o.input, stdin)
	if err != nil {
		return err
	}

	if o.list {
		for _, name := range en.Vars(tpl) {
			if _, err := fmt.Fprintln(stdout, name); err != nil {
				return fmt.Errorf("writing list: %w", err)
			}
		}

		return nil
	}

	out, err := en.Substitute(tpl, vars)
	if err != nil {
		return err
	}

	return writeOutput(o.output, out, stdout)
}

// readInput reads the template from a file path. If
// path is empty it reads from stdin.
func readInput(path string, stdin io.Reader) (string, error) {
	if path != "" {
		content, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}

		return string(content), nil
	}

	content, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}

	return string(content), nil
}

// writeOutput writes the result verbatim to path, or to
// stdout when path is empty.
func writeOutput(path string, out string, stdout io.Writer) error {
	if path != "" {
		if err := os.WriteFile( //nolint:gosec // path from CLI flag
			path, []byte(out), 0o666,
		); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}

		return nil
	}

	if _, err := io.WriteString(stdout, out); err != nil {
		return fmt.Errorf("writing to stdout: %w", err)
	}

	return nil
}
