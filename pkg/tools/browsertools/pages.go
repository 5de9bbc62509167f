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

// CreatePageTool opens a new page and makes it current.
type CreatePageTool struct {
	managementTool
}

func NewCreatePageTool(session *browser.Session) *CreatePageTool {
	return &CreatePageTool{managementTool{session: session}}
}

func (t *CreatePageTool) Name() string {
	return "create_page"
}

func (t *CreatePageTool) Description() string {
	return "Open a new browser page and make it the current page. Optionally load a URL right away. Returns the page identifier."
}

func (t *CreatePageTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"url": tools.StringProperty("Optional URL to load (must include protocol, e.g., https://example.com)"),
		},
		nil,
	)
}

type createPageArgs struct {
	XMLName xml.Name `xml:"arguments"`
	URL     string   `xml:"url"`
}

func (t *CreatePageTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input createPageArgs
	if err := decodeArgs(argsXML, &input); err != nil {
		return "", nil, err
	}

	id, nav, err := t.session.CreatePage(ctx, strings.TrimSpace(input.URL))
	if err != nil {
		return "", nil, err
	}

	if input.URL == "" {
		return fmt.Sprintf("Created page %s (now current).", id), map[string]interface{}{"page_id": string(id)}, nil
	}

	title := ""
	if nav.OK() {
		title, _ = t.session.Title(ctx, id)
	}
	return fmt.Sprintf("Created page %s (now current).\n\n%s", id, describeNavigation(nav, title)), navigationMetadata(nav), nil
}

// SwitchPageTool makes another page current.
type SwitchPageTool struct {
	pageTool
}

func NewSwitchPageTool(session *browser.Session) *SwitchPageTool {
	return &SwitchPageTool{pageTool{session: session}}
}

func (t *SwitchPageTool) Name() string {
	return "switch_page"
}

func (t *SwitchPageTool) Description() string {
	return "Make an open page the current page. Later tools that omit page_id act on it."
}

func (t *SwitchPageTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"page_id": tools.StringProperty("Identifier of the page to switch to"),
		},
		[]string{"page_id"},
	)
}

type switchPageArgs struct {
	XMLName xml.Name `xml:"arguments"`
	pageArgs
}

func (t *SwitchPageTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input switchPageArgs
	if err := decodeArgs(argsXML, &input); err != nil {
		return "", nil, err
	}
	if input.PageID == "" {
		return "", nil, fmt.Errorf("page_id is required")
	}

	if err := t.session.SwitchTo(input.id()); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Page %s is now current.", input.PageID), nil, nil
}

// ClosePageTool closes a page.
type ClosePageTool struct {
	pageTool
}

func NewClosePageTool(session *browser.Session) *ClosePageTool {
	return &ClosePageTool{pageTool{session: session}}
}

func (t *ClosePageTool) Name() string {
	return "close_page"
}

func (t *ClosePageTool) Description() string {
	return "Close a browser page. If it was the current page, the oldest remaining page becomes current."
}

func (t *ClosePageTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{"page_id": pageIDProperty}, nil)
}

type closePageArgs struct {
	XMLName xml.Name `xml:"arguments"`
	pageArgs
}

func (t *ClosePageTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input closePageArgs
	if err := decodeArgs(argsXML, &input); err != nil {
		return "", nil, err
	}

	id := input.id()
	if id == "" {
		current, err := t.session.CurrentPageID()
		if err != nil {
			return "", nil, err
		}
		id = current
	}

	if err := t.session.ClosePage(ctx, id); err != nil {
		return "", nil, err
	}

	result := fmt.Sprintf("Closed page %s.", id)
	if current, err := t.session.CurrentPageID(); err == nil {
		result += fmt.Sprintf(" Current page is now %s.", current)
	} else {
		result += " No pages remain open."
	}
	return result, nil, nil
}

// ListPagesTool lists open pages.
type ListPagesTool struct {
	managementTool
}

func NewListPagesTool(session *browser.Session) *ListPagesTool {
	return &ListPagesTool{managementTool{session: session}}
}

func (t *ListPagesTool) Name() string {
	return "list_pages"
}

func (t *ListPagesTool) Description() string {
	return "List open browser pages with their URLs, marking the current page."
}

func (t *ListPagesTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{}, nil)
}

func (t *ListPagesTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input emptyArgs
	if len(argsXML) > 0 {
		if err := decodeArgs(argsXML, &input); err != nil {
			return "", nil, err
		}
	}

	pages := t.session.Pages()
	if len(pages) == 0 {
		return "No open pages.\n\nUse create_page to open one.", map[string]interface{}{"count": 0}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Open pages: %d\n\n", len(pages))
	now := time.Now()
	for i, p := range pages {
		marker := ""
		if p.Current {
			marker = " (current)"
		}
		fmt.Fprintf(&b, "%d. %s%s\n   URL: %s\n   Age: %s\n   Last used: %s ago\n\n",
			i+1, p.ID, marker, p.URL,
			formatDuration(now.Sub(p.CreatedAt)),
			formatDuration(now.Sub(p.LastUsedAt)))
	}
	return strings.TrimRight(b.String(), "\n"), map[string]interface{}{"count": len(pages)}, nil
}
