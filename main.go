package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jadenpxrk/quotecount/internal/quietlog"
)

// version is the application version, set via ldflags.
var version string = "dev" // Default for local builds

// Exit statuses.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2 // bad path or bad flags
)

// exitError carries the process status a failed run should end with.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// options is the resolved configuration of one run: defaults < config file < env < flags.
type options struct {
	Path        string
	OnlyChinese bool

	// Output
	JSON      bool
	YAML      bool
	File      string
	Clipboard bool
	PDF       string
	PDFFont   string

	// Filtering
	Exclude   string
	MaxDepth  int
	MaxSize   int64
	Gitignore bool
	Encoding  string

	// Token estimation
	Tokens    bool
	Tokenizer TokenizerOptions

	Timeout     time.Duration
	Interactive bool
	Verbose     bool
}

// newRootCmd builds the command with its own viper instance, writing the
// report to stdout and diagnostics to stderr.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "quotecount",
		Short: "Count quoted strings and their characters in YAML files.",
		Long: `quotecount recursively scans a directory for .yml/.yaml files and counts the
quoted string literals in them and the characters they contain, optionally
only Chinese characters, to estimate localization volume.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(loadOptions(v), stdout, stderr)
		},
	}

	flags := cmd.Flags()
	bind := func(key, flag string) {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/quotecount/config.toml)")

	flags.StringP("path", "p", ".", "Directory path to scan (recursive); also accepts a git or HTTP URL")
	bind("path", "path")
	flags.BoolP("only-chinese", "z", false, "Count only Chinese characters")
	bind("only_chinese", "only-chinese")

	// Output
	flags.Bool("json", false, "Output machine-readable JSON")
	bind("json", "json")
	flags.Bool("yaml", false, "Output machine-readable YAML")
	bind("yaml", "yaml")
	flags.StringP("file", "f", "", "Save output to specified file")
	bind("file", "file")
	flags.BoolP("clipboard", "c", false, "Copy output to clipboard")
	bind("clipboard", "clipboard")
	flags.String("pdf", "", "Save the report as PDF")
	bind("pdf", "pdf")
	flags.String("pdf-font", "", "UTF-8 TrueType font used for the PDF report")
	bind("pdf_font", "pdf-font")

	// Filtering
	flags.StringP("exclude", "e", "", "Patterns to exclude (comma-separated, e.g. *_test.yml,vendor)")
	bind("exclude", "exclude")
	flags.Int("max-depth", 0, "Maximum directory depth to traverse (0 for no limit)")
	bind("max_depth", "max-depth")
	flags.Int64P("max-size", "s", 0, "Maximum file size in bytes (0 for no limit)")
	bind("max_size", "max-size")
	flags.Bool("gitignore", false, "Respect the .gitignore file of the scanned directory")
	bind("gitignore", "gitignore")
	flags.String("encoding", defaultEncoding, "Text encoding of the YAML files (e.g. utf-8, gbk, gb18030)")
	bind("encoding", "encoding")

	// Token estimation
	flags.Bool("tokens", false, "Estimate model tokens of the extracted strings")
	bind("tokens", "tokens")
	flags.String("tokenizer", "tiktoken", "Tokenizer to use: tiktoken or huggingface")
	bind("tokenizer", "tokenizer")
	flags.String("model", "", "Model name for tokenizer (e.g., gpt-4o, gpt2)")
	bind("model", "model")
	flags.String("tokenizer-file", "", "Path to local tokenizer file")
	bind("tokenizer_file", "tokenizer-file")

	flags.Duration("timeout", 30*time.Second, "HTTP timeout for remote sources")
	bind("timeout", "timeout")
	flags.Bool("interactive", false, "Pick the directory to scan interactively")
	bind("interactive", "interactive")
	flags.BoolP("verbose", "v", false, "Print debug diagnostics")
	bind("verbose", "verbose")

	return cmd
}

// initConfig reads in config file and ENV variables if set.
func initConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix("QUOTECOUNT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv() // read in environment variables that match QUOTECOUNT_*

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return &exitError{code: exitFailure, err: fmt.Errorf("error reading config file: %w", err)}
		}
		return nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "quotecount"))
	}
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return &exitError{code: exitFailure, err: fmt.Errorf("error reading config file: %w", err)}
		}
	}
	return nil
}

func loadOptions(v *viper.Viper) options {
	return options{
		Path:        v.GetString("path"),
		OnlyChinese: v.GetBool("only_chinese"),
		JSON:        v.GetBool("json"),
		YAML:        v.GetBool("yaml"),
		File:        v.GetString("file"),
		Clipboard:   v.GetBool("clipboard"),
		PDF:         v.GetString("pdf"),
		PDFFont:     v.GetString("pdf_font"),
		Exclude:     v.GetString("exclude"),
		MaxDepth:    v.GetInt("max_depth"),
		MaxSize:     v.GetInt64("max_size"),
		Gitignore:   v.GetBool("gitignore"),
		Encoding:    v.GetString("encoding"),
		Tokens:      v.GetBool("tokens"),
		Tokenizer: TokenizerOptions{
			Type:  v.GetString("tokenizer"),
			Model: v.GetString("model"),
			File:  v.GetString("tokenizer_file"),
		},
		Timeout:     v.GetDuration("timeout"),
		Interactive: v.GetBool("interactive"),
		Verbose:     v.GetBool("verbose"),
	}
}

func run(opts options, stdout, stderr io.Writer) error {
	logger := newLogger(stderr, opts.Verbose)
	defer func() { _ = logger.Sync() }()

	if opts.Interactive {
		selected, err := runInteractiveFinder()
		if err != nil {
			return &exitError{code: exitFailure, err: fmt.Errorf("interactive mode error: %w", err)}
		}
		if selected == "" {
			logger.Debug("interactive selection aborted")
			return nil
		}
		opts.Path = selected
	}

	scanner, err := newConfiguredScanner(opts, logger)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	if scanner.Tokenizer != nil {
		defer scanner.Tokenizer.Close()
	}

	res, err := scanSource(scanner, opts)
	if err != nil {
		return err
	}
	withTokens := scanner.Tokenizer != nil

	if opts.PDF != "" {
		if err := generatePDF(opts.Path, res, scanner.Mode, withTokens, opts.PDFFont, opts.PDF); err != nil {
			return &exitError{code: exitFailure, err: err}
		}
		logger.Debug("PDF report saved", zap.String("file", opts.PDF))
		return nil
	}

	var rendered string
	switch {
	case opts.JSON:
		rendered, err = renderJSON(res)
	case opts.YAML:
		rendered, err = renderYAML(res)
	default:
		rendered = renderText(opts.Path, res, scanner.Mode, withTokens)
	}
	if err != nil {
		return &exitError{code: exitFailure, err: err}
	}

	target := outputTarget{File: opts.File, Clipboard: opts.Clipboard}
	if err := writeOutput(stdout, target, rendered, logger); err != nil {
		return &exitError{code: exitFailure, err: err}
	}
	return nil
}

// newConfiguredScanner applies opts to a Scanner over the OS file system.
func newConfiguredScanner(opts options, logger *zap.Logger) (*Scanner, error) {
	enc, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	excludes := parsePatterns(opts.Exclude)
	if err := validatePatterns(excludes); err != nil {
		return nil, err
	}

	scanner := NewScanner(afero.NewOsFs(), logger)
	scanner.Encoding = enc
	scanner.Excludes = excludes
	scanner.MaxDepth = opts.MaxDepth
	scanner.MaxSize = opts.MaxSize
	scanner.Gitignore = opts.Gitignore
	if opts.OnlyChinese {
		scanner.Mode = CountChinese
	}

	if opts.Tokens {
		tokenizer, err := getTokenizer(opts.Tokenizer, logger)
		if err != nil {
			logger.Warn("token estimation disabled", zap.Error(err))
		} else {
			scanner.Tokenizer = tokenizer
		}
	}
	return scanner, nil
}

// scanSource scans opts.Path as a git repository, a web URL or a local directory.
func scanSource(scanner *Scanner, opts options) (*ScanResult, error) {
	switch {
	case isGitURL(opts.Path) && !isDir(scanner.Fs, opts.Path):
		tempDir, err := cloneGitRepo(opts.Path, scanner.Logger)
		if err != nil {
			return nil, &exitError{code: exitUsage, err: err}
		}
		defer func() {
			scanner.Logger.Debug("cleaning up temporary directory", zap.String("dir", tempDir))
			_ = os.RemoveAll(tempDir)
		}()
		// Paths are reported relative to the repository root.
		scanner.BaseDir = tempDir
		res, err := scanner.ScanDirectory(tempDir)
		if err != nil {
			return nil, &exitError{code: exitFailure, err: err}
		}
		return res, nil

	case isWebURL(opts.Path):
		res, err := scanner.ScanURL(&http.Client{Timeout: opts.Timeout}, opts.Path)
		if err != nil {
			return nil, &exitError{code: exitUsage, err: err}
		}
		return res, nil
	}

	if !isDir(scanner.Fs, opts.Path) {
		return nil, &exitError{code: exitUsage, err: fmt.Errorf("指定路径不是目录: %s", opts.Path)}
	}
	res, err := scanner.ScanDirectory(opts.Path)
	if err != nil {
		return nil, &exitError{code: exitFailure, err: err}
	}
	return res, nil
}

// isDir reports whether path exists and is a directory.
func isDir(fsys afero.Fs, path string) bool {
	ok, err := afero.IsDir(fsys, path)
	return err == nil && ok
}

// execute runs the command with args and returns the process exit status.
func execute(args []string, stdout, stderr io.Writer) int {
	if args == nil {
		args = []string{} // cobra falls back to os.Args on nil
	}
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			fmt.Fprintln(stderr, ee.err)
			return ee.code
		}
		// Flag and argument errors.
		fmt.Fprintln(stderr, "Error:", err)
		return exitUsage
	}
	return exitOK
}

func main() {
	quietlog.Restore(os.Stderr)
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
