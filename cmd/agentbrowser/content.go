package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JoinTheAlliance/agentbrowser/pkg/browser"
)

type contentReader func(s *browser.Session, ctx context.Context, id browser.PageID) (string, error)

func newContentCmds(flags *globalFlags) []*cobra.Command {
	commands := []struct {
		use   string
		short string
		read  contentReader
	}{
		{"text", "Print the page's cleaned body text", (*browser.Session).BodyText},
		{"raw-text", "Print the page's unfiltered body text", (*browser.Session).BodyTextRaw},
		{"document-text", "Print the text of the whole document", (*browser.Session).DocumentText},
		{"html", "Print the full document markup", (*browser.Session).DocumentHTML},
		{"body-html", "Print the body markup", (*browser.Session).BodyHTML},
		{"title", "Print the document title", (*browser.Session).Title},
	}

	cmds := make([]*cobra.Command, 0, len(commands))
	for _, c := range commands {
		read := c.read
		cmds = append(cmds, &cobra.Command{
			Use:   c.use + " <url>",
			Short: c.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runOnPage(cmd, flags, args[0], func(ctx context.Context, e *env, id browser.PageID) error {
					out, err := read(e.session, ctx, id)
					if err != nil {
						return err
					}
					return emit(cmd.OutOrStdout(), flags, out)
				})
			},
		})
	}
	return cmds
}

func newEvalCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <url> <code>",
		Short: "Evaluate JavaScript in the page and print the result as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnPage(cmd, flags, args[0], func(ctx context.Context, e *env, id browser.PageID) error {
				value, err := e.session.EvaluateScript(ctx, id, args[1])
				if err != nil {
					return err
				}
				out, err := json.MarshalIndent(value, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format result: %w", err)
				}
				return emit(cmd.OutOrStdout(), flags, string(out))
			})
		},
	}
}

func newScreenshotCmd(flags *globalFlags) *cobra.Command {
	var (
		output   string
		fullPage bool
	)

	cmd := &cobra.Command{
		Use:   "screenshot <url>",
		Short: "Save a PNG screenshot of the page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnPage(cmd, flags, args[0], func(ctx context.Context, e *env, id browser.PageID) error {
				png, err := e.session.Screenshot(ctx, id, browser.ScreenshotOptions{FullPage: fullPage})
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, png, 0600); err != nil {
					return fmt.Errorf("failed to write screenshot: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", output, len(png))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "screenshot.png", "File to write")
	cmd.Flags().BoolVar(&fullPage, "full-page", false, "Capture the full scrollable page")
	return cmd
}

// runOnPage sets up a session, loads url and hands the page to fn. The
// browser is shut down when fn returns or a shutdown signal arrives.
func runOnPage(cmd *cobra.Command, flags *globalFlags, url string, fn func(context.Context, *env, browser.PageID) error) error {
	e, err := setup(cmd, flags)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, stop := browser.WatchSignals(cmd.Context(), e.session)
	defer stop()

	id, err := openPage(ctx, e, url)
	if err != nil {
		return err
	}
	return fn(ctx, e, id)
}
