package browser

import (
	"context"
	"time"
)

// LaunchOptions configures a browser process launch.
type LaunchOptions struct {
	Headless bool

	// ExecutablePath overrides the engine's own browser resolution when set
	ExecutablePath string
}

// Launcher starts browser processes. It is the engine boundary the session
// depends on; PlaywrightLauncher is the production implementation.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Process, error)
}

// Process is one running browser process or connection.
type Process interface {
	// NewPage opens an isolated page in the process
	NewPage(ctx context.Context) (EnginePage, error)

	// Close terminates the process. Closing twice must not fail.
	Close() error
}

// GotoResult reports the outcome of a successful engine navigation.
type GotoResult struct {
	URL    string
	Status int
}

// EnginePage is a live page inside the engine.
type EnginePage interface {
	Goto(ctx context.Context, url string, readiness Readiness, timeout time.Duration) (GotoResult, error)
	Content(ctx context.Context) (string, error)
	InnerHTML(ctx context.Context, selector string) (string, error)
	TextContent(ctx context.Context, selector string) (string, error)
	Title(ctx context.Context) (string, error)
	URL() string

	// Evaluate runs code in the page and returns a JSON-compatible value,
	// or an error wrapping ErrNotSerializable for engine handles.
	Evaluate(ctx context.Context, code string) (any, error)

	Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error)
	Close() error
}
