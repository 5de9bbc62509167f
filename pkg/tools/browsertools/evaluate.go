package browsertools

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/JoinTheAlliance/agentbrowser/pkg/browser"
	"github.com/JoinTheAlliance/agentbrowser/pkg/tools"
)

// EvaluateTool runs JavaScript in a page.
type EvaluateTool struct {
	pageTool
}

func NewEvaluateTool(session *browser.Session) *EvaluateTool {
	return &EvaluateTool{pageTool{session: session}}
}

func (t *EvaluateTool) Name() string {
	return "evaluate_script"
}

func (t *EvaluateTool) Description() string {
	return "Execute JavaScript in a browser page and return the result as JSON. The result must be JSON-serializable; DOM nodes and functions are rejected."
}

func (t *EvaluateTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"code":    tools.StringProperty("JavaScript expression or function to evaluate, e.g. 'document.title'"),
			"page_id": pageIDProperty,
		},
		[]string{"code"},
	)
}

type evaluateArgs struct {
	XMLName xml.Name `xml:"arguments"`
	pageArgs
	Code string `xml:"code"`
}

func (t *EvaluateTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input evaluateArgs
	if err := decodeArgs(argsXML, &input); err != nil {
		return "", nil, err
	}

	code := strings.TrimSpace(input.Code)
	if code == "" {
		return "", nil, fmt.Errorf("JavaScript code is required")
	}

	value, err := t.session.EvaluateScript(ctx, input.id(), code)
	if err != nil {
		return "", nil, err
	}

	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("failed to format result: %w", err)
	}
	return fmt.Sprintf("Result:\n%s", out), nil, nil
}
