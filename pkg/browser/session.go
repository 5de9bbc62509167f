package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Options configures a Session. Start from DefaultOptions; zero values
// other than Headless fall back to package defaults.
type Options struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// ExecutablePath overrides the browser binary. When empty, Locate is consulted.
	ExecutablePath string

	// NavigationTimeout bounds each navigation unless the call overrides it
	NavigationTimeout time.Duration

	// Readiness is the default readiness policy for Navigate
	Readiness Readiness

	// MaxPages caps concurrently open pages (0 means unlimited)
	MaxPages int

	// Denylist holds id/class tokens stripped by the default extractor
	Denylist []string

	Launcher  Launcher
	Locate    LocatorFunc
	Extractor TextExtractor
	Logger    Logger
	Metrics   *Metrics
}

// DefaultOptions returns headless Playwright options with the default denylist.
func DefaultOptions() Options {
	return Options{
		Headless:          true,
		NavigationTimeout: DefaultNavigationTimeout,
		Readiness:         DefaultReadiness,
		Denylist:          DefaultDenylist,
		Locate:            LocateExecutable,
	}
}

// Session owns the single shared browser process and the page registry.
// The process is started lazily on the first call that needs it.
type Session struct {
	opts      Options
	launcher  Launcher
	extractor TextExtractor
	logger    Logger
	metrics   *Metrics

	registry *Registry
	starts   singleflight.Group

	mu   sync.RWMutex
	proc Process // nil until started
	gen  uint64  // bumped on every shutdown
	down bool    // shut down since the last start
}

// NewSession creates an unstarted session.
func NewSession(opts Options) (*Session, error) {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = DefaultNavigationTimeout
	}
	if opts.Readiness == "" {
		opts.Readiness = DefaultReadiness
	}
	if !opts.Readiness.Valid() {
		return nil, fmt.Errorf("invalid readiness: %s", opts.Readiness)
	}
	if opts.MaxPages < 0 {
		return nil, fmt.Errorf("max pages cannot be negative")
	}

	s := &Session{
		opts:      opts,
		launcher:  opts.Launcher,
		extractor: opts.Extractor,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		registry:  NewRegistry(),
	}
	if s.launcher == nil {
		s.launcher = NewPlaywrightLauncher()
	}
	if s.logger == nil {
		s.logger = NopLogger{}
	}
	if s.extractor == nil {
		denylist := opts.Denylist
		if denylist == nil {
			denylist = DefaultDenylist
		}
		extractor, err := NewDenylistExtractor(denylist)
		if err != nil {
			return nil, err
		}
		s.extractor = extractor
	}
	s.registry.SetLimit(opts.MaxPages)
	return s, nil
}

// Registry exposes the page registry.
func (s *Session) Registry() *Registry {
	return s.registry
}

// Started reports whether a browser process is running.
func (s *Session) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proc != nil
}

// EnsureStarted launches the browser process if none is running.
// Concurrent callers share one launch. On failure the session stays
// unstarted so a later call can retry.
func (s *Session) EnsureStarted(ctx context.Context) error {
	if s.Started() {
		return nil
	}

	_, err, _ := s.starts.Do("start", func() (interface{}, error) {
		if s.Started() {
			return nil, nil
		}

		path := s.opts.ExecutablePath
		if path == "" && s.opts.Locate != nil {
			path = s.opts.Locate()
		}

		s.logger.Infof("starting browser (headless=%v, executable=%q)", s.opts.Headless, path)
		start := time.Now()
		proc, err := s.launcher.Launch(ctx, LaunchOptions{
			Headless:       s.opts.Headless,
			ExecutablePath: path,
		})
		s.metrics.observe("start", start, err)
		if err != nil {
			s.logger.Errorf("browser start failed: %v", err)
			return nil, &OpError{Op: "start", Kind: ErrStartup, Err: err}
		}

		s.mu.Lock()
		s.proc = proc
		s.down = false
		s.mu.Unlock()

		s.logger.Infof("browser started in %s", time.Since(start))
		return nil, nil
	})
	return err
}

// Shutdown closes every page and the browser process. It is a no-op on a
// session that is not running. Operations still in flight fail with
// ErrProcessClosed.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	proc := s.proc
	if proc == nil {
		s.mu.Unlock()
		return nil
	}
	s.proc = nil
	s.gen++
	s.down = true
	// Drained under the lock so a concurrent CreatePage cannot register
	// a page of this process after the fact
	slots := s.registry.drain()
	s.mu.Unlock()

	s.metrics.setPages(0)

	err := proc.Close()

	// Wait for in-flight operations to drain before marking the slots dead
	for _, sl := range slots {
		sl.mu.Lock()
		sl.closed = true
		sl.mu.Unlock()
	}

	if err != nil {
		s.logger.Errorf("browser shutdown: %v", err)
		return fmt.Errorf("failed to close browser: %w", err)
	}
	s.logger.Infof("browser shut down (%d pages released)", len(slots))
	return nil
}

// begin captures the process generation for an operation, failing if the
// session has been shut down.
func (s *Session) begin(op string, id PageID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.down {
		return s.gen, opError(op, id, ErrProcessClosed, nil)
	}
	return s.gen, nil
}

// closedSince reports whether the process captured at gen has been shut down.
func (s *Session) closedSince(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen != gen
}

func (s *Session) process() Process {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proc
}

// fail builds the error for op, reporting ErrProcessClosed instead of kind
// when the process went away underneath the operation.
func (s *Session) fail(op string, id PageID, gen uint64, kind, err error) error {
	if s.closedSince(gen) {
		kind = ErrProcessClosed
	}
	return opError(op, id, kind, err)
}

// registryKind maps a registry error onto its sentinel.
func registryKind(err error) error {
	switch {
	case errors.Is(err, ErrNoActivePage):
		return ErrNoActivePage
	case errors.Is(err, ErrPageLimit):
		return ErrPageLimit
	default:
		return ErrPageNotFound
	}
}

// withPage resolves id, holds the page for the duration of fn and maps
// failures onto the error taxonomy. fn's error is reported with kind.
func (s *Session) withPage(op string, id PageID, kind error, fn func(sl *slot, gen uint64) error) error {
	start := time.Now()
	err := s.runOnPage(op, id, kind, fn)
	s.metrics.observe(op, start, err)
	if err != nil {
		s.logger.Debugf("%v", err)
	}
	return err
}

func (s *Session) runOnPage(op string, id PageID, kind error, fn func(sl *slot, gen uint64) error) error {
	gen, err := s.begin(op, id)
	if err != nil {
		return err
	}

	sl, err := s.registry.resolve(id)
	if err != nil {
		return s.fail(op, id, gen, registryKind(err), nil)
	}

	if err := sl.acquire(); err != nil {
		return s.fail(op, sl.id, gen, ErrPageNotFound, nil)
	}
	defer sl.release()

	if err := fn(sl, gen); err != nil {
		var opErr *OpError
		if errors.As(err, &opErr) {
			return err
		}
		return s.fail(op, sl.id, gen, kind, err)
	}
	return nil
}

// CreatePage opens a new page, registers it and makes it current, starting
// the browser first if needed. When targetURL is set the page is navigated
// with the session's default readiness and timeout before returning; a
// failed navigation is reported in the result and the page remains
// registered and current. A shutdown while the page is being opened fails
// the call with ErrProcessClosed and releases the page.
func (s *Session) CreatePage(ctx context.Context, targetURL string) (PageID, NavigationResult, error) {
	const op = "create_page"

	if err := s.EnsureStarted(ctx); err != nil {
		return "", NavigationResult{}, err
	}

	gen, err := s.begin(op, "")
	if err != nil {
		return "", NavigationResult{}, err
	}
	if s.registry.Full() {
		return "", NavigationResult{}, opError(op, "", ErrPageLimit, nil)
	}

	proc := s.process()
	if proc == nil {
		return "", NavigationResult{}, opError(op, "", ErrProcessClosed, nil)
	}

	start := time.Now()
	page, err := proc.NewPage(ctx)
	if err != nil {
		err = s.fail(op, "", gen, ErrEngine, err)
		s.metrics.observe(op, start, err)
		return "", NavigationResult{}, err
	}

	id, err := s.register(gen, page)
	if err != nil {
		_ = page.Close()
		if !errors.Is(err, ErrProcessClosed) {
			err = s.fail(op, "", gen, registryKind(err), err)
		}
		s.metrics.observe(op, start, err)
		return "", NavigationResult{}, err
	}
	s.metrics.observe(op, start, nil)
	s.metrics.setPages(s.registry.Len())
	s.logger.Debugf("created page %s", id)

	if targetURL == "" {
		return id, NavigationResult{PageID: id}, nil
	}

	result, err := s.Navigate(ctx, id, targetURL, NavigateOptions{})
	return id, result, err
}

// register adds page to the registry unless the process it came from was
// shut down after gen was captured.
func (s *Session) register(gen uint64, page EnginePage) (PageID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.gen != gen {
		return "", opError("create_page", "", ErrProcessClosed, nil)
	}
	return s.registry.Add(page)
}

// Page returns metadata for id, or for the current page when id is empty.
func (s *Session) Page(id PageID) (PageInfo, error) {
	const op = "get_page"
	gen, err := s.begin(op, id)
	if err != nil {
		return PageInfo{}, err
	}
	info, err := s.registry.Lookup(id)
	if err != nil {
		return PageInfo{}, s.fail(op, id, gen, registryKind(err), nil)
	}
	return info, nil
}

// CurrentPageID returns the current page identifier.
func (s *Session) CurrentPageID() (PageID, error) {
	const op = "current_page"
	gen, err := s.begin(op, "")
	if err != nil {
		return "", err
	}
	id, err := s.registry.Current()
	if err != nil {
		return "", s.fail(op, "", gen, ErrNoActivePage, nil)
	}
	return id, nil
}

// SwitchTo makes id the current page.
func (s *Session) SwitchTo(id PageID) error {
	const op = "switch_to"
	gen, err := s.begin(op, id)
	if err != nil {
		return err
	}
	if err := s.registry.SwitchTo(id); err != nil {
		return s.fail(op, id, gen, ErrPageNotFound, nil)
	}
	s.logger.Debugf("switched to page %s", id)
	return nil
}

// Pages lists open pages in creation order.
func (s *Session) Pages() []PageInfo {
	return s.registry.Info()
}

// ClosePage releases the page (the current page when id is empty) and
// removes it from the registry. In-flight operations on the page finish
// before the engine page is closed.
func (s *Session) ClosePage(ctx context.Context, id PageID) error {
	const op = "close_page"
	start := time.Now()

	gen, err := s.begin(op, id)
	if err != nil {
		return err
	}

	sl, err := s.registry.Remove(id)
	if err != nil {
		err = s.fail(op, id, gen, registryKind(err), nil)
		s.metrics.observe(op, start, err)
		return err
	}
	s.metrics.setPages(s.registry.Len())

	sl.mu.Lock()
	sl.closed = true
	closeErr := sl.page.Close()
	sl.mu.Unlock()

	if closeErr != nil {
		err = s.fail(op, sl.id, gen, ErrEngine, closeErr)
		s.logger.Warnf("%v", err)
		s.metrics.observe(op, start, err)
		return err
	}

	s.metrics.observe(op, start, nil)
	s.logger.Debugf("closed page %s", sl.id)
	return nil
}

// CloseIdlePages closes pages that have not been used for longer than maxIdle.
func (s *Session) CloseIdlePages(ctx context.Context, maxIdle time.Duration) ([]PageID, error) {
	now := time.Now()

	var closed []PageID
	var errs []error
	for _, info := range s.registry.Info() {
		if now.Sub(info.LastUsedAt) <= maxIdle {
			continue
		}
		if err := s.ClosePage(ctx, info.ID); err != nil {
			// Closed concurrently by someone else
			if errors.Is(err, ErrPageNotFound) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		closed = append(closed, info.ID)
	}

	if len(errs) > 0 {
		return closed, fmt.Errorf("errors during idle cleanup: %w", errors.Join(errs...))
	}
	return closed, nil
}
