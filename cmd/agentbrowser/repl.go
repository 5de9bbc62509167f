package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/JoinTheAlliance/agentbrowser/pkg/browser"
	"github.com/JoinTheAlliance/agentbrowser/pkg/tools"
	"github.com/JoinTheAlliance/agentbrowser/pkg/tools/browsertools"
)

func newReplCmd(flags *globalFlags) *cobra.Command {
	var (
		screenshotDir string
		metricsAddr   string
	)

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Execute XML tool calls read from stdin against one browser session",
		Long: `repl reads tool calls from standard input and executes each one as soon
as it is complete. Pages stay open between calls. Type 'exit' to quit.

  <tool>
  <tool_name>navigate</tool_name>
  <arguments>
    <url>https://example.com</url>
  </arguments>
  </tool>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer e.close()

			// ctx ends on Ctrl-C, which also stops the reaper and the input loop
			ctx, stop := browser.WatchSignals(cmd.Context(), e.session)
			defer stop()

			if metricsAddr != "" {
				srv := serveMetrics(e, metricsAddr)
				defer srv.Close()
			}
			if idle := e.section.GetIdleTimeout(); idle > 0 {
				go reapIdlePages(ctx, e, idle)
			}

			registry, err := browsertools.NewRegistry(e.session, screenshotDir)
			if err != nil {
				return err
			}
			return repl(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), registry, flags)
		},
	}
	cmd.Flags().StringVar(&screenshotDir, "screenshot-dir", os.TempDir(), "Directory for screenshots taken without a path")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

// repl executes tool calls from in until EOF, an exit command or ctx ends.
// Text outside tool calls is ignored. A done ctx ends the loop even while
// it waits for input.
func repl(ctx context.Context, in io.Reader, out io.Writer, registry *tools.Registry, flags *globalFlags) error {
	lines := make(chan string)
	var scanErr error
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr = scanner.Err()
	}()

	var pending strings.Builder
	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return scanErr
			}
			line = l
		}

		if pending.Len() == 0 {
			switch strings.TrimSpace(line) {
			case "exit", "quit":
				return nil
			case "":
				continue
			}
		}

		pending.WriteString(line)
		pending.WriteByte('\n')
		if !tools.HasToolCall(pending.String()) {
			continue
		}

		calls, err := tools.ParseToolCalls(pending.String())
		pending.Reset()
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n\n", err)
			continue
		}
		for _, call := range calls {
			if ctx.Err() != nil {
				return nil
			}
			if err := execute(ctx, out, registry, call, flags); err != nil {
				return err
			}
		}
	}
}

// execute runs one call. Tool failures are reported to out; only output
// errors abort the loop.
func execute(ctx context.Context, out io.Writer, registry *tools.Registry, call *tools.ToolCall, flags *globalFlags) error {
	result, _, err := registry.Execute(ctx, call)
	if err != nil {
		_, werr := fmt.Fprintf(out, "[%s] Error: %v\n\n", call.ToolName, err)
		return werr
	}
	return emit(out, flags, fmt.Sprintf("[%s]\n%s\n", call.ToolName, result))
}

// reapIdlePages closes pages unused for longer than idle until ctx ends.
func reapIdlePages(ctx context.Context, e *env, idle time.Duration) {
	interval := idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			closed, err := e.session.CloseIdlePages(ctx, idle)
			if err != nil && !errors.Is(err, browser.ErrProcessClosed) {
				e.logger.Warnf("idle cleanup: %v", err)
			}
			if len(closed) > 0 {
				e.logger.Infof("closed %d idle pages", len(closed))
			}
		}
	}
}

func serveMetrics(e *env, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.metrics, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Errorf("metrics server: %v", err)
		}
	}()
	e.logger.Infof("serving metrics on %s/metrics", addr)
	return srv
}
