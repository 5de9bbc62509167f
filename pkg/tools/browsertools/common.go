package browsertools

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/JoinTheAlliance/agentbrowser/pkg/browser"
	"github.com/JoinTheAlliance/agentbrowser/pkg/config"
	"github.com/JoinTheAlliance/agentbrowser/pkg/tools"
)

// DefaultMaxLength caps content returned to the agent, in characters.
const DefaultMaxLength = 10000

// pageArgs is embedded by tools that address a page.
type pageArgs struct {
	PageID string `xml:"page_id"`
}

func (a pageArgs) id() browser.PageID {
	return browser.PageID(a.PageID)
}

var pageIDProperty = tools.StringProperty("Identifier of the page to use. Defaults to the current page.")

// browserEnabled reports whether the browser section allows these tools.
// Without loaded configuration the tools are enabled.
func browserEnabled() bool {
	b := config.GetBrowser()
	return b == nil || b.IsEnabled()
}

// pageTool is the shared base for tools that need an open page.
type pageTool struct {
	session *browser.Session
}

func (t pageTool) ShouldShow() bool {
	return browserEnabled() && len(t.session.Pages()) > 0
}

// managementTool is the shared base for tools that manage pages.
type managementTool struct {
	session *browser.Session
}

func (t managementTool) ShouldShow() bool {
	return browserEnabled()
}

func decodeArgs(argsXML []byte, v interface{}) error {
	if err := tools.UnmarshalXMLWithFallback(argsXML, v); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}

// emptyArgs is the argument struct for tools that take none.
type emptyArgs struct {
	XMLName xml.Name `xml:"arguments"`
}

// truncate shortens s to max runes, marking the cut.
func truncate(s string, max int) (string, bool) {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s, false
	}
	return string(runes[:max]) + "\n\n[content truncated]", true
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// describeNavigation renders a navigation outcome for the agent.
func describeNavigation(nav browser.NavigationResult, title string) string {
	if nav.Failure != nil {
		return fmt.Sprintf(`Navigation failed

- Page: %s
- URL: %s
- Reason: %s
- Detail: %s

The page is still open. You can retry the navigation or try another URL.`,
			nav.PageID, nav.Failure.URL, nav.Failure.Reason, nav.Failure.Message)
	}
	return fmt.Sprintf(`Navigation successful

- Page: %s
- URL: %s
- Status: %d
- Title: %s`,
		nav.PageID, nav.FinalURL, nav.Status, title)
}

func navigationMetadata(nav browser.NavigationResult) map[string]interface{} {
	meta := map[string]interface{}{
		"page_id": string(nav.PageID),
		"ok":      nav.OK(),
	}
	if nav.Failure != nil {
		meta["failure_reason"] = string(nav.Failure.Reason)
	} else {
		meta["url"] = nav.FinalURL
		meta["status"] = nav.Status
	}
	return meta
}
