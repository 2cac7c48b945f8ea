package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/yuanying/one2html/internal/config"
	"github.com/yuanying/one2html/internal/converter"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	exitOK      = 0
	exitFatal   = 1
	exitPartial = 2
)

// errPartialFailure reports a finished run in which some pages failed.
var errPartialFailure = errors.New("some pages could not be exported")

// cliOptions is everything the root command needs to run an export.
type cliOptions struct {
	converter.ConvertOptions

	ReportPath string
	NoColor    bool
	ConfigFile string
}

// flagKeys are the flags that are also config keys.
var flagKeys = []string{
	config.KeyOutput,
	config.KeyWorkers,
	config.KeyFailFast,
	config.KeyIndex,
	config.KeyMaxImageWidth,
	config.KeyJPEGQuality,
	config.KeyReport,
	config.KeyLogLevel,
	config.KeyLogFormat,
	config.KeyVerbose,
	config.KeyNoColor,
	config.KeyStrict,
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "one2html <input-file> [output-directory]",
		Short: "Convert notebook sections to static HTML pages",
		Long: `one2html converts an exported notebook section into one HTML file per
page. Images and attached files are extracted next to the pages and
referenced from them.

The input is either a section manifest (YAML or JSON) or a ZIP bundle
holding a section.yaml manifest and its payloads. Pages are written to
the output directory, out_html by default.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "Config file (default: ./one2html.yaml or ~/.config/one2html/one2html.yaml)")
	flags.StringP(config.KeyOutput, "o", config.DefaultOutput, "Output directory")
	flags.Int(config.KeyWorkers, 0, "Pages rendered concurrently (0: number of CPUs)")
	flags.Bool(config.KeyFailFast, false, "Stop at the first page that fails")
	flags.Bool(config.KeyIndex, false, "Write an index.html linking every page")
	flags.Int(config.KeyMaxImageWidth, 0, "Downsize images wider than this (0: keep images unchanged)")
	flags.Int(config.KeyJPEGQuality, config.DefaultJPEGQuality, "JPEG quality of downsized images (1-100)")
	flags.String(config.KeyReport, "", "Write a JSON run report to this path")
	flags.String(config.KeyLogLevel, config.DefaultLogLevel, "Log level: debug, info, warn, error")
	flags.String(config.KeyLogFormat, config.DefaultLogFormat, "Log format: text, json")
	flags.BoolP(config.KeyVerbose, "v", false, "Enable debug logging (overrides --log-level)")
	flags.Bool(config.KeyNoColor, false, "Disable colored output")
	flags.Bool(config.KeyStrict, false, "Reject manifest fields the reader does not know")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "one2html %s\n", version)
		},
	}
}

// readCLIOptions resolves flags, environment and config file into the
// options of one run. A second positional argument overrides --output.
func readCLIOptions(cmd *cobra.Command, args []string) (cliOptions, error) {
	v := config.New()
	for _, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(key)); err != nil {
			return cliOptions{}, fmt.Errorf("bind --%s: %w", key, err)
		}
	}
	configFile, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(v, configFile)
	if err != nil {
		return cliOptions{}, err
	}

	level := cfg.LogLevel
	if cfg.Verbose {
		level = "debug"
	}
	logger := buildLogger(cmd.ErrOrStderr(), level, cfg.LogFormat, cfg.NoColor)
	if cfg.File != "" {
		logger.Debug("config loaded", "file", cfg.File)
	}

	return cliOptions{
		ConvertOptions: converter.ConvertOptions{
			InputPath:     args[0],
			OutputDir:     defaultOutputPath(args, cfg.Output),
			Workers:       cfg.Workers,
			FailFast:      cfg.FailFast,
			WriteIndex:    cfg.Index,
			MaxImageWidth: cfg.MaxImageWidth,
			JPEGQuality:   cfg.JPEGQuality,
			Strict:        cfg.Strict,
			Logger:        logger,
		},
		ReportPath: cfg.Report,
		NoColor:    cfg.NoColor,
		ConfigFile: cfg.File,
	}, nil
}

// defaultOutputPath returns the positional output directory when present,
// the configured one otherwise.
func defaultOutputPath(args []string, configured string) string {
	if len(args) > 1 && strings.TrimSpace(args[1]) != "" {
		return args[1]
	}
	if configured == "" {
		return converter.DefaultOutputDir
	}
	return configured
}

// buildLogger creates the run logger. The text format is rendered by
// charmbracelet/log, json by the standard slog JSON handler.
func buildLogger(w io.Writer, level, format string, noColor bool) *slog.Logger {
	lvl := parseLevel(level)
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	}
	handler := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           log.Level(lvl),
	})
	if noColor {
		handler.SetColorProfile(termenv.Ascii)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run(ctx context.Context, out io.Writer, opts cliOptions) error {
	logger := opts.Logger
	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))
	if err != nil {
		logger.Warn("failed to set GOMAXPROCS", "error", err)
	}
	defer undo()

	logger.Info("converting", "input", opts.InputPath, "output", opts.OutputDir)
	report, err := converter.NewPipeline(opts.ConvertOptions).Convert(ctx)

	if report != nil && opts.ReportPath != "" {
		if werr := report.WriteJSON(opts.ReportPath); werr != nil {
			logger.Error("failed to write report", "path", opts.ReportPath, "error", werr)
			if err == nil {
				err = werr
			}
		} else {
			logger.Debug("report written", "path", opts.ReportPath)
		}
	}
	if report != nil {
		printSummary(out, report, opts.NoColor)
	}

	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}
	if report.HasFailures() {
		return errPartialFailure
	}
	return nil
}

// exitCode maps the outcome of the root command to the process exit code.
func exitCode(err error) int {
	var pageErr *converter.PageError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errPartialFailure), errors.As(err, &pageErr):
		return exitPartial
	default:
		return exitFatal
	}
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errPartialFailure) {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return exitCode(err)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
