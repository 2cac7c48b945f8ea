package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yuanying/one2html/internal/converter"
)

const sampleSection = `title: Trip
series:
  - pages:
      - title: Day 1
        contents:
          - kind: outline
            items:
              - element:
                  contents:
                    - kind: rich_text
                      text: Arrived & unpacked
      - contents:
          - kind: ink
            bbox: {x: 1, y: 2, width: 3, height: 4}
`

// isolateConfig keeps config files of the developer machine out of the test.
func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	return dir
}

func readCLIOptionsForTest(t *testing.T, flagArgs ...string) (cliOptions, error) {
	t.Helper()
	cmd := newRootCmd()
	if err := cmd.ParseFlags(flagArgs); err != nil {
		return cliOptions{}, err
	}
	return readCLIOptions(cmd, []string{"./input/section.yaml"})
}

func writeSection(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "section.yaml")
	if err := os.WriteFile(path, []byte(sampleSection), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestReadCLIOptions_Defaults(t *testing.T) {
	isolateConfig(t)
	opts, err := readCLIOptionsForTest(t)
	if err != nil {
		t.Fatalf("readCLIOptions() error = %v", err)
	}

	if opts.InputPath != "./input/section.yaml" {
		t.Fatalf("InputPath = %q", opts.InputPath)
	}
	if opts.OutputDir != converter.DefaultOutputDir {
		t.Fatalf("OutputDir = %q, want %q", opts.OutputDir, converter.DefaultOutputDir)
	}
	if opts.Workers != 0 || opts.FailFast || opts.WriteIndex {
		t.Fatalf("unexpected defaults: %+v", opts.ConvertOptions)
	}
	if opts.MaxImageWidth != 0 {
		t.Fatalf("MaxImageWidth = %d, want 0", opts.MaxImageWidth)
	}
	if opts.ReportPath != "" {
		t.Fatalf("ReportPath = %q, want empty", opts.ReportPath)
	}
	if opts.Logger == nil {
		t.Fatal("Logger is nil, want non-nil")
	}
	if !opts.Logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("Logger should be enabled at INFO level by default")
	}
	if opts.Logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("Logger should not be enabled at DEBUG level by default")
	}
}

func TestReadCLIOptions_CustomFlags(t *testing.T) {
	isolateConfig(t)
	opts, err := readCLIOptionsForTest(t,
		"--output", "./site",
		"--workers", "4",
		"--fail-fast",
		"--index",
		"--max-image-width", "720",
		"--jpeg-quality", "70",
		"--report", "run.json",
		"--log-level", "warn",
		"--no-color",
		"--strict",
		"--verbose",
	)
	if err != nil {
		t.Fatalf("readCLIOptions() error = %v", err)
	}

	if opts.OutputDir != "./site" {
		t.Fatalf("OutputDir = %q", opts.OutputDir)
	}
	if opts.Workers != 4 {
		t.Fatalf("Workers = %d", opts.Workers)
	}
	if !opts.FailFast || !opts.WriteIndex {
		t.Fatalf("FailFast = %v, WriteIndex = %v, want both true", opts.FailFast, opts.WriteIndex)
	}
	if opts.MaxImageWidth != 720 || opts.JPEGQuality != 70 {
		t.Fatalf("MaxImageWidth = %d, JPEGQuality = %d", opts.MaxImageWidth, opts.JPEGQuality)
	}
	if opts.ReportPath != "run.json" {
		t.Fatalf("ReportPath = %q", opts.ReportPath)
	}
	if !opts.NoColor {
		t.Fatal("NoColor = false, want true")
	}
	if !opts.Strict {
		t.Fatal("Strict = false, want true")
	}
	// --verbose overrides log-level to debug
	if !opts.Logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("Logger should be enabled at DEBUG level when --verbose is set")
	}
}

func TestReadCLIOptions_PositionalOutput(t *testing.T) {
	isolateConfig(t)
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--output", "ignored"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	opts, err := readCLIOptions(cmd, []string{"in.yaml", "pages"})
	if err != nil {
		t.Fatalf("readCLIOptions() error = %v", err)
	}
	if opts.OutputDir != "pages" {
		t.Fatalf("OutputDir = %q, want %q", opts.OutputDir, "pages")
	}
}

func TestReadCLIOptions_ConfigFile(t *testing.T) {
	dir := isolateConfig(t)
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("output: from-config\nworkers: 2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	opts, err := readCLIOptionsForTest(t, "--config", path, "--workers", "5")
	if err != nil {
		t.Fatalf("readCLIOptions() error = %v", err)
	}
	if opts.OutputDir != "from-config" {
		t.Fatalf("OutputDir = %q, want %q", opts.OutputDir, "from-config")
	}
	// flags take precedence over the config file
	if opts.Workers != 5 {
		t.Fatalf("Workers = %d, want 5", opts.Workers)
	}
	if opts.ConfigFile != path {
		t.Fatalf("ConfigFile = %q, want %q", opts.ConfigFile, path)
	}
}

func TestReadCLIOptions_Environment(t *testing.T) {
	isolateConfig(t)
	t.Setenv("ONE2HTML_INDEX", "true")

	opts, err := readCLIOptionsForTest(t)
	if err != nil {
		t.Fatalf("readCLIOptions() error = %v", err)
	}
	if !opts.WriteIndex {
		t.Fatal("WriteIndex = false, want true from ONE2HTML_INDEX")
	}
}

func TestReadCLIOptions_InvalidValues(t *testing.T) {
	tests := []struct {
		args []string
		flag string
	}{
		{args: []string{"--workers", "-1"}, flag: "--workers"},
		{args: []string{"--max-image-width", "-10"}, flag: "--max-image-width"},
		{args: []string{"--jpeg-quality", "0"}, flag: "--jpeg-quality"},
		{args: []string{"--log-level", "trace"}, flag: "--log-level"},
		{args: []string{"--log-format", "yaml"}, flag: "--log-format"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			isolateConfig(t)
			_, err := readCLIOptionsForTest(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.flag) {
				t.Fatalf("expected %s validation error, got %v", tt.flag, err)
			}
		})
	}
}

func TestBuildLogger_FormatNormalization(t *testing.T) {
	var buf bytes.Buffer
	logger := buildLogger(&buf, "info", "JSON", false)
	logger.Info("test message")
	// JSON format should produce JSON output (starts with '{')
	output := buf.String()
	if len(output) == 0 || output[0] != '{' {
		t.Fatalf("expected JSON output for format 'JSON', got: %s", output)
	}
}

func TestBuildLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := buildLogger(&buf, "warn", "text", true)
	logger.Info("hidden")
	logger.Warn("shown", "page", "Day 1")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Fatalf("info message logged at warn level: %s", output)
	}
	if !strings.Contains(output, "shown") || !strings.Contains(output, "Day 1") {
		t.Fatalf("expected warn message with attribute, got: %s", output)
	}
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		args       []string
		configured string
		want       string
	}{
		{args: []string{"in.yaml"}, configured: "", want: "out_html"},
		{args: []string{"in.yaml"}, configured: "site", want: "site"},
		{args: []string{"in.yaml", "pages"}, configured: "site", want: "pages"},
		{args: []string{"in.yaml", " "}, configured: "site", want: "site"},
	}
	for _, tt := range tests {
		if got := defaultOutputPath(tt.args, tt.configured); got != tt.want {
			t.Fatalf("defaultOutputPath(%q, %q) = %q, want %q", tt.args, tt.configured, got, tt.want)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: nil, want: exitOK},
		{err: errPartialFailure, want: exitPartial},
		{err: fmt.Errorf("conversion failed: %w", &converter.PageError{Stem: "a", Err: errors.New("boom")}), want: exitPartial},
		{err: errors.New("parse failed"), want: exitFatal},
		{err: context.Canceled, want: exitFatal},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Fatalf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestExecute_Success(t *testing.T) {
	dir := isolateConfig(t)
	input := writeSection(t, dir)
	out := filepath.Join(dir, "html")
	reportPath := filepath.Join(dir, "report.json")

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(),
		[]string{input, out, "--index", "--no-color", "--log-level", "error", "--report", reportPath},
		&stdout, &stderr)
	if code != exitOK {
		t.Fatalf("execute() = %d, stderr: %s", code, stderr.String())
	}

	for _, name := range []string{"Day 1.html", "page_1.html", "index.html"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	page, err := os.ReadFile(filepath.Join(out, "Day 1.html"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(page), "<p>Arrived &amp; unpacked</p>") {
		t.Fatalf("unexpected page content: %s", page)
	}
	if _, err := os.Stat(reportPath); err != nil {
		t.Fatalf("expected report: %v", err)
	}
	if !strings.Contains(stdout.String(), "2 of 2 pages exported") {
		t.Fatalf("unexpected summary: %s", stdout.String())
	}
}

func TestExecute_DefaultOutputDir(t *testing.T) {
	dir := isolateConfig(t)
	input := writeSection(t, dir)

	var stdout, stderr bytes.Buffer
	if code := execute(context.Background(), []string{input, "--log-level", "error"}, &stdout, &stderr); code != exitOK {
		t.Fatalf("execute() = %d, stderr: %s", code, stderr.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "out_html", "Day 1.html")); err != nil {
		t.Fatalf("expected page in out_html: %v", err)
	}
}

func TestExecute_PartialFailure(t *testing.T) {
	dir := isolateConfig(t)
	input := writeSection(t, dir)
	out := filepath.Join(dir, "html")
	blocked := filepath.Join(out, "Day 1.html")
	if err := os.MkdirAll(blocked, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(blocked, "keep"), nil, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), []string{input, out, "--log-level", "error"}, &stdout, &stderr)
	if code != exitPartial {
		t.Fatalf("execute() = %d, want %d", code, exitPartial)
	}
	if _, err := os.Stat(filepath.Join(out, "page_1.html")); err != nil {
		t.Fatalf("other pages should still be written: %v", err)
	}
	if !strings.Contains(stdout.String(), "1 pages failed") {
		t.Fatalf("summary should list failures: %s", stdout.String())
	}
}

func TestExecute_MissingInput(t *testing.T) {
	dir := isolateConfig(t)

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), []string{filepath.Join(dir, "missing.yaml")}, &stdout, &stderr)
	if code != exitFatal {
		t.Fatalf("execute() = %d, want %d", code, exitFatal)
	}
	if !strings.Contains(stderr.String(), "Error:") {
		t.Fatalf("expected diagnostic on stderr, got: %s", stderr.String())
	}
}

func TestExecute_NoArgs(t *testing.T) {
	isolateConfig(t)

	var stdout, stderr bytes.Buffer
	if code := execute(context.Background(), nil, &stdout, &stderr); code != exitFatal {
		t.Fatalf("execute() = %d, want %d", code, exitFatal)
	}
}

func TestVersionCmd(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := execute(context.Background(), []string{"version"}, &stdout, &stderr); code != exitOK {
		t.Fatalf("execute() = %d", code)
	}
	if got := stdout.String(); got != "one2html dev\n" {
		t.Fatalf("version output = %q", got)
	}
}
