package browsertools

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JoinTheAlliance/agentbrowser/pkg/browser"
	"github.com/JoinTheAlliance/agentbrowser/pkg/security/workspace"
	"github.com/JoinTheAlliance/agentbrowser/pkg/tools"
)

// ScreenshotTool saves a PNG of a page.
type ScreenshotTool struct {
	pageTool

	// dir confines every screenshot the tool writes
	dir string
}

// NewScreenshotTool creates the tool. Screenshots are written inside dir
// (the system temp directory when empty); paths outside it are refused.
func NewScreenshotTool(session *browser.Session, dir string) *ScreenshotTool {
	if dir == "" {
		dir = os.TempDir()
	}
	return &ScreenshotTool{pageTool: pageTool{session: session}, dir: dir}
}

func (t *ScreenshotTool) Name() string {
	return "screenshot"
}

func (t *ScreenshotTool) Description() string {
	return "Capture a PNG screenshot of a browser page and save it to a file."
}

func (t *ScreenshotTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"page_id": pageIDProperty,
			"path":    tools.StringProperty("PNG file to write, relative to the screenshot directory. Defaults to a new file there."),
			"full_page": map[string]interface{}{
				"type":        "boolean",
				"description": "Capture the full scrollable page instead of the viewport",
			},
		},
		nil,
	)
}

type screenshotArgs struct {
	XMLName xml.Name `xml:"arguments"`
	pageArgs
	Path     string `xml:"path"`
	FullPage bool   `xml:"full_page"`
}

func (t *ScreenshotTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input screenshotArgs
	if err := decodeArgs(argsXML, &input); err != nil {
		return "", nil, err
	}

	guard, err := workspace.NewGuard(t.dir, "*.png")
	if err != nil {
		return "", nil, err
	}
	target := ""
	if input.Path != "" {
		if target, err = guard.Resolve(input.Path); err != nil {
			return "", nil, err
		}
	}

	png, err := t.session.Screenshot(ctx, input.id(), browser.ScreenshotOptions{FullPage: input.FullPage})
	if err != nil {
		return "", nil, err
	}

	path, err := write(guard.Root(), target, png)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Screenshot saved to %s (%d bytes)", path, len(png)),
		map[string]interface{}{"path": path, "bytes": len(png)}, nil
}

// write stores data at path, or in a new file under dir when path is empty.
func write(dir, path string, data []byte) (string, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return "", fmt.Errorf("failed to create screenshot directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return "", fmt.Errorf("failed to write screenshot: %w", err)
		}
		return path, nil
	}

	f, err := os.CreateTemp(dir, "agentbrowser-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create screenshot file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return f.Name(), nil
}
