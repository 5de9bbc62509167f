package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher launches Chromium through Playwright.
type PlaywrightLauncher struct {
	// Install downloads the driver (and bundled Chromium when no executable
	// override is given) before the first launch
	Install bool
}

// NewPlaywrightLauncher creates a launcher that installs the driver on first use.
func NewPlaywrightLauncher() *PlaywrightLauncher {
	return &PlaywrightLauncher{Install: true}
}

// Launch starts the Playwright driver and a Chromium process.
func (l *PlaywrightLauncher) Launch(ctx context.Context, opts LaunchOptions) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Discard driver output so it does not interleave with caller output
	runOpts := &playwright.RunOptions{
		Browsers:            []string{"chromium"},
		SkipInstallBrowsers: opts.ExecutablePath != "",
		Verbose:             false,
		Stdout:              io.Discard,
		Stderr:              io.Discard,
	}

	if l.Install {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.ExecutablePath != "" {
		launchOpts.ExecutablePath = playwright.String(opts.ExecutablePath)
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &playwrightProcess{pw: pw, browser: browser}, nil
}

type playwrightProcess struct {
	pw      *playwright.Playwright
	browser playwright.Browser

	closeOnce sync.Once
	closeErr  error
}

func (p *playwrightProcess) NewPage(ctx context.Context) (EnginePage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// One context per page keeps cookies and storage isolated between pages
	bctx, err := p.browser.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &playwrightPage{context: bctx, page: page}, nil
}

func (p *playwrightProcess) Close() error {
	p.closeOnce.Do(func() {
		var errs []error
		if err := p.browser.Close(); err != nil && !errors.Is(err, playwright.ErrTargetClosed) {
			errs = append(errs, err)
		}
		if err := p.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		p.closeErr = errors.Join(errs...)
	})
	return p.closeErr
}

type playwrightPage struct {
	context playwright.BrowserContext
	page    playwright.Page
}

// engineTimeout converts a timeout to Playwright milliseconds, shortened to
// the context deadline when one is set.
func engineTimeout(ctx context.Context, timeout time.Duration) *float64 {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil
	}
	return playwright.Float(float64(timeout.Milliseconds()))
}

func (p *playwrightPage) Goto(ctx context.Context, url string, readiness Readiness, timeout time.Duration) (GotoResult, error) {
	if err := ctx.Err(); err != nil {
		return GotoResult{}, err
	}

	waitUntil := playwright.WaitUntilState(readiness)
	resp, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: &waitUntil,
		Timeout:   engineTimeout(ctx, timeout),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return GotoResult{}, fmt.Errorf("%w: %v", ErrNavigationTimeout, err)
		}
		return GotoResult{}, err
	}

	result := GotoResult{URL: p.page.URL()}
	if resp != nil {
		result.Status = resp.Status()
	}
	return result, nil
}

func (p *playwrightPage) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Content()
}

func (p *playwrightPage) InnerHTML(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.InnerHTML(selector)
}

func (p *playwrightPage) TextContent(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.TextContent(selector)
}

func (p *playwrightPage) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Title()
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

// unserializableProbe is true for values Playwright would hand back as a
// live handle rather than a JSON value.
const unserializableProbe = `v => typeof v === 'function' || typeof v === 'symbol' || typeof v === 'bigint' || (typeof Node !== 'undefined' && v instanceof Node) || (typeof Window !== 'undefined' && v instanceof Window)`

func (p *playwrightPage) Evaluate(ctx context.Context, code string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	handle, err := p.page.EvaluateHandle(code)
	if err != nil {
		return nil, err
	}
	defer handle.Dispose()

	if handle.AsElement() != nil {
		return nil, ErrNotSerializable
	}

	probe, err := handle.Evaluate(unserializableProbe)
	if err != nil {
		return nil, err
	}
	if isHandle, _ := probe.(bool); isHandle {
		return nil, ErrNotSerializable
	}

	value, err := handle.JSONValue()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSerializable, err)
	}
	return value, nil
}

func (p *playwrightPage) Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(opts.FullPage),
	})
}

func (p *playwrightPage) Close() error {
	var errs []error
	if err := p.page.Close(); err != nil && !errors.Is(err, playwright.ErrTargetClosed) {
		errs = append(errs, err)
	}
	if err := p.context.Close(); err != nil && !errors.Is(err, playwright.ErrTargetClosed) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
