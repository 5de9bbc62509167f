package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/atotto/clipboard"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/JoinTheAlliance/agentbrowser/pkg/browser"
	"github.com/JoinTheAlliance/agentbrowser/pkg/config"
	"github.com/JoinTheAlliance/agentbrowser/pkg/logging"
)

// Overridable in tests
var (
	launcher        browser.Launcher
	copyToClipboard = clipboard.WriteAll
)

type globalFlags struct {
	configPath     string
	headless       bool
	executablePath string
	readiness      string
	timeout        time.Duration
	logLevel       string
	verbose        bool
	copy           bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "agentbrowser",
		Short: "agentbrowser - headless browser control for agents",
		Long: `agentbrowser loads pages in a headless browser and reads them back.

Quick start:
  agentbrowser text https://example.com          # Cleaned body text
  agentbrowser html https://example.com          # Full document markup
  agentbrowser eval https://example.com 'document.title'
  agentbrowser screenshot https://example.com -o page.png
  agentbrowser repl < calls.xml                  # Execute XML tool calls`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Configuration file (default ~/.agentbrowser/config.yaml)")
	pf.BoolVar(&flags.headless, "headless", true, "Run the browser without a window")
	pf.StringVar(&flags.executablePath, "executable-path", "", "Browser executable to launch")
	pf.StringVar(&flags.readiness, "wait-until", "", "Navigation readiness: domcontentloaded, load, or networkidle")
	pf.DurationVar(&flags.timeout, "timeout", 0, "Navigation timeout (e.g. 30s)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, or error")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Shorthand for --log-level debug")
	pf.BoolVar(&flags.copy, "copy", false, "Also copy textual output to the clipboard")

	root.AddCommand(newContentCmds(flags)...)
	root.AddCommand(newEvalCmd(flags))
	root.AddCommand(newScreenshotCmd(flags))
	root.AddCommand(newReplCmd(flags))
	return root
}

// env is everything a command needs to talk to the browser.
type env struct {
	session *browser.Session
	logger  *logging.Logger
	section *config.BrowserSection
	metrics *prometheus.Registry
}

// close shuts the browser down and flushes the log.
func (e *env) close() {
	if err := e.session.Shutdown(); err != nil {
		e.logger.Errorf("shutdown: %v", err)
	}
	_ = e.logger.Close()
}

// setup loads configuration, applies flag overrides and builds the session.
func setup(cmd *cobra.Command, flags *globalFlags) (*env, error) {
	if err := config.Initialize(flags.configPath); err != nil {
		return nil, fmt.Errorf("failed to initialize configuration: %w", err)
	}
	section := config.GetBrowser()

	levelName := flags.logLevel
	if levelName == "" {
		levelName = section.GetLogLevel()
	}
	if flags.verbose {
		levelName = "debug"
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	logging.SetLevel(level)

	logger, err := logging.NewLogger("agentbrowser")
	if err != nil {
		// logger falls back to stderr
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}

	opts, err := section.SessionOptions()
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("invalid browser configuration: %w", err)
	}
	if err := applyFlags(cmd, flags, &opts); err != nil {
		_ = logger.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	metrics, err := browser.NewMetrics(registry)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	opts.Logger = logger.With("browser")
	opts.Metrics = metrics
	if launcher != nil {
		opts.Launcher = launcher
		opts.Locate = nil
	}

	session, err := browser.NewSession(opts)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	return &env{session: session, logger: logger, section: section, metrics: registry}, nil
}

// applyFlags overrides configured options with flags given on the command line.
func applyFlags(cmd *cobra.Command, flags *globalFlags, opts *browser.Options) error {
	changed := cmd.Flags().Changed

	if changed("headless") {
		opts.Headless = flags.headless
	}
	if flags.executablePath != "" {
		opts.ExecutablePath = flags.executablePath
	}
	if flags.readiness != "" {
		readiness, err := browser.ParseReadiness(flags.readiness)
		if err != nil {
			return err
		}
		opts.Readiness = readiness
	}
	if changed("timeout") {
		if flags.timeout <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		opts.NavigationTimeout = flags.timeout
	}
	return nil
}

// openPage starts the browser and loads url in a fresh page. A failed
// navigation is returned as an error since nothing useful can be printed.
func openPage(ctx context.Context, e *env, url string) (browser.PageID, error) {
	id, nav, err := e.session.CreatePage(ctx, url)
	if err != nil {
		return "", err
	}
	if nav.Failure != nil {
		return "", nav.Failure
	}
	e.logger.Infof("loaded %s (status %d)", nav.FinalURL, nav.Status)
	return id, nil
}

// emit prints text output and copies it to the clipboard when asked.
func emit(w io.Writer, flags *globalFlags, out string) error {
	if _, err := fmt.Fprintln(w, out); err != nil {
		return err
	}
	if flags.copy {
		if err := copyToClipboard(out); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
	}
	return nil
}
