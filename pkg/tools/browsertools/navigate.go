package browsertools

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/JoinTheAlliance/agentbrowser/pkg/browser"
	"github.com/JoinTheAlliance/agentbrowser/pkg/tools"
)

// NavigateTool loads a URL in a page.
type NavigateTool struct {
	pageTool
}

func NewNavigateTool(session *browser.Session) *NavigateTool {
	return &NavigateTool{pageTool{session: session}}
}

func (t *NavigateTool) Name() string {
	return "navigate"
}

func (t *NavigateTool) Description() string {
	return "Load a URL in a browser page and wait until it is ready. A failed load (unreachable host, timeout) is reported in the result and leaves the page usable."
}

func (t *NavigateTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"url":        tools.StringProperty("URL to navigate to (must include protocol, e.g., https://example.com)"),
			"page_id":    pageIDProperty,
			"wait_until": tools.StringProperty("When to consider navigation complete: 'domcontentloaded' (default), 'load', or 'networkidle'"),
			"timeout":    tools.StringProperty("Maximum time to wait for the page, e.g. '30s'"),
		},
		[]string{"url"},
	)
}

type navigateArgs struct {
	XMLName xml.Name `xml:"arguments"`
	pageArgs
	URL       string `xml:"url"`
	WaitUntil string `xml:"wait_until"`
	Timeout   string `xml:"timeout"`
}

func (t *NavigateTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input navigateArgs
	if err := decodeArgs(argsXML, &input); err != nil {
		return "", nil, err
	}

	url := strings.TrimSpace(input.URL)
	if url == "" {
		return "", nil, fmt.Errorf("URL is required")
	}

	var opts browser.NavigateOptions
	if input.WaitUntil != "" {
		readiness, err := browser.ParseReadiness(input.WaitUntil)
		if err != nil {
			return "", nil, err
		}
		opts.Readiness = readiness
	}
	if input.Timeout != "" {
		d, err := time.ParseDuration(input.Timeout)
		if err != nil || d <= 0 {
			return "", nil, fmt.Errorf("invalid timeout %q: must be a positive duration such as '30s'", input.Timeout)
		}
		opts.Timeout = d
	}

	nav, err := t.session.Navigate(ctx, input.id(), url, opts)
	if err != nil {
		return "", nil, err
	}

	title := ""
	if nav.OK() {
		title, _ = t.session.Title(ctx, nav.PageID)
	}
	return describeNavigation(nav, title), navigationMetadata(nav), nil
}
