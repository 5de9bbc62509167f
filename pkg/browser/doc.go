// Package browser manages one shared headless browser process and the
// pages opened in it, on behalf of an agent that browses the web.
//
// # Overview
//
// A Session owns the browser process and a Registry of pages. The process
// is started lazily: the first CreatePage (or an explicit EnsureStarted)
// launches it, and concurrent callers share a single launch. Shutdown
// releases every page and the process; a later CreatePage starts a fresh
// one.
//
// Pages are addressed by PageID. The registry tracks a current page, which
// is the page an empty PageID refers to. Creating a page makes it current.
// Closing the current page hands the role to the oldest remaining page.
//
//	s, err := browser.NewSession(browser.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	defer s.Shutdown()
//
//	id, nav, err := s.CreatePage(ctx, "https://example.com")
//	if err != nil {
//		return err
//	}
//	if !nav.OK() {
//		log.Printf("load failed: %v", nav.Failure)
//	}
//	text, err := s.BodyText(ctx, id)
//
// # Errors
//
// Navigation failures (DNS, refused connections, timeouts) are ordinary
// outcomes and come back in NavigationResult.Failure; the page stays usable
// and the caller may retry. Everything else is a *OpError whose Kind is one
// of the package sentinels, so callers branch with errors.Is:
//
//	if errors.Is(err, browser.ErrPageNotFound) { ... }
//
// After Shutdown, operations addressed at pages fail with ErrProcessClosed,
// including operations that were in flight when the process went away.
//
// # Text extraction
//
// BodyText runs the body markup through a TextExtractor. The default
// DenylistExtractor drops scripts, styles, images, forms, headers, footers
// and any subtree whose id or class matches a denylist token, then
// collapses whitespace. BodyTextRaw returns the engine's unfiltered text.
//
// # Engines
//
// The session talks to the browser through the Launcher, Process and
// EnginePage interfaces. PlaywrightLauncher drives Chromium through
// playwright-go; tests substitute an in-memory engine.
package browser
