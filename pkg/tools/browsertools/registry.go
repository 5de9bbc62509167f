package browsertools

import (
	"github.com/JoinTheAlliance/agentbrowser/pkg/browser"
	"github.com/JoinTheAlliance/agentbrowser/pkg/tools"
)

// All returns every browser tool bound to session, page management first.
func All(session *browser.Session, screenshotDir string) []tools.Tool {
	return []tools.Tool{
		NewCreatePageTool(session),
		NewListPagesTool(session),
		NewSwitchPageTool(session),
		NewClosePageTool(session),
		NewNavigateTool(session),
		NewPageContentTool(session),
		NewEvaluateTool(session),
		NewScreenshotTool(session, screenshotDir),
	}
}

// NewRegistry returns a tool registry holding every browser tool.
func NewRegistry(session *browser.Session, screenshotDir string) (*tools.Registry, error) {
	return tools.NewRegistry(All(session, screenshotDir)...)
}
