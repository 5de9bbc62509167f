package browser

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const (
	unreachableURL = "http://unreachable.invalid/"
	slowURL        = "http://slow.test/"
)

// fixtureSite maps addresses to the documents the fake engine serves.
var fixtureSite = map[string]string{
	"http://example.test/": `<html><head><title>Example</title></head><body>` +
		`<script>var x=1;</script><div class="advertisement">Buy now</div>` +
		`<p>Hello <b>World</b></p></body></html>`,
	"http://other.test/": `<html><head><title>Other</title></head><body><main>Second page</main></body></html>`,
}

// fakeLauncher is an in-memory engine that serves fixtureSite.
type fakeLauncher struct {
	mu        sync.Mutex
	launches  int
	failures  int // number of upcoming launches that fail
	processes []*fakeProcess

	// gotoStarted receives once for every navigation that reaches the engine
	gotoStarted chan string

	// readiness records the policy of every navigation, in order
	readiness []Readiness

	// newPageGate, when set, holds the next NewPage after the page exists
	newPageGate chan struct{}
	newPageHeld chan struct{}
}

// holdNewPage makes the next NewPage create its page and then wait for
// gate to close before returning it. The returned channel closes once the
// call is waiting.
func (l *fakeLauncher) holdNewPage(gate chan struct{}) <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.newPageGate = gate
	l.newPageHeld = make(chan struct{})
	return l.newPageHeld
}

func (l *fakeLauncher) takeNewPageGate() (gate, held chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	gate, held = l.newPageGate, l.newPageHeld
	l.newPageGate, l.newPageHeld = nil, nil
	return gate, held
}

func (l *fakeLauncher) recordReadiness(r Readiness) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.readiness = append(l.readiness, r)
}

func (l *fakeLauncher) navigations() []Readiness {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Readiness(nil), l.readiness...)
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{gotoStarted: make(chan string, 64)}
}

func (l *fakeLauncher) Launch(ctx context.Context, opts LaunchOptions) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.launches++
	if l.failures > 0 {
		l.failures--
		return nil, errors.New("executable not found")
	}
	p := &fakeProcess{launcher: l, done: make(chan struct{})}
	l.processes = append(l.processes, p)
	return p, nil
}

func (l *fakeLauncher) launchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

func (l *fakeLauncher) pages() []*fakePage {
	l.mu.Lock()
	defer l.mu.Unlock()
	var pages []*fakePage
	for _, p := range l.processes {
		p.mu.Lock()
		pages = append(pages, p.pages...)
		p.mu.Unlock()
	}
	return pages
}

type fakeProcess struct {
	launcher *fakeLauncher

	mu     sync.Mutex
	pages  []*fakePage
	closed bool
	done   chan struct{}
}

func (p *fakeProcess) NewPage(ctx context.Context) (EnginePage, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.New("Target page, context or browser has been closed")
	}
	page := &fakePage{proc: p, url: "about:blank"}
	p.pages = append(p.pages, page)
	p.mu.Unlock()

	if gate, held := p.launcher.takeNewPageGate(); gate != nil {
		close(held)
		<-gate
	}
	return page, nil
}

func (p *fakeProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.done)
	}
	return nil
}

type fakePage struct {
	proc *fakeProcess

	mu     sync.Mutex
	url    string
	doc    string
	closed bool

	inflight atomic.Int32
	overlap  atomic.Bool
}

// enter records an engine call and flags overlapping calls on this page.
func (p *fakePage) enter() func() {
	if p.inflight.Add(1) > 1 {
		p.overlap.Store(true)
	}
	time.Sleep(time.Millisecond)
	return func() { p.inflight.Add(-1) }
}

func (p *fakePage) document() (*goquery.Document, error) {
	p.mu.Lock()
	doc := p.doc
	p.mu.Unlock()
	return goquery.NewDocumentFromReader(strings.NewReader(doc))
}

func (p *fakePage) Goto(ctx context.Context, target string, readiness Readiness, timeout time.Duration) (GotoResult, error) {
	defer p.enter()()
	p.proc.launcher.recordReadiness(readiness)
	select {
	case p.proc.launcher.gotoStarted <- target:
	default:
	}

	u, err := url.Parse(target)
	if err != nil {
		return GotoResult{}, fmt.Errorf("Protocol error (Page.navigate): Cannot navigate to invalid URL")
	}

	switch {
	case u.Host == "unreachable.invalid":
		return GotoResult{}, fmt.Errorf("net::ERR_NAME_NOT_RESOLVED at %s", target)
	case u.Host == "refused.test":
		return GotoResult{}, fmt.Errorf("net::ERR_CONNECTION_REFUSED at %s", target)
	case target == slowURL:
		select {
		case <-p.proc.done:
			return GotoResult{}, errors.New("Target page, context or browser has been closed")
		case <-ctx.Done():
			return GotoResult{}, ctx.Err()
		case <-time.After(timeout):
			return GotoResult{}, fmt.Errorf("%w: Timeout %dms exceeded", ErrNavigationTimeout, timeout.Milliseconds())
		}
	}

	doc, ok := fixtureSite[target]
	status := 200
	if !ok {
		doc = "<html><head><title>Not Found</title></head><body>404</body></html>"
		status = 404
	}

	p.mu.Lock()
	p.url = target
	p.doc = doc
	p.mu.Unlock()
	return GotoResult{URL: target, Status: status}, nil
}

func (p *fakePage) Content(ctx context.Context) (string, error) {
	defer p.enter()()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc, nil
}

func (p *fakePage) InnerHTML(ctx context.Context, selector string) (string, error) {
	defer p.enter()()
	doc, err := p.document()
	if err != nil {
		return "", err
	}
	return doc.Find(selector).First().Html()
}

func (p *fakePage) TextContent(ctx context.Context, selector string) (string, error) {
	defer p.enter()()
	doc, err := p.document()
	if err != nil {
		return "", err
	}
	return doc.Find(selector).First().Text(), nil
}

func (p *fakePage) Title(ctx context.Context) (string, error) {
	defer p.enter()()
	doc, err := p.document()
	if err != nil {
		return "", err
	}
	return doc.Find("title").Text(), nil
}

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *fakePage) Evaluate(ctx context.Context, code string) (any, error) {
	defer p.enter()()
	switch {
	case code == "1 + 2":
		return float64(3), nil
	case code == "document.title":
		doc, err := p.document()
		if err != nil {
			return nil, err
		}
		return doc.Find("title").Text(), nil
	case code == "document.body":
		return nil, ErrNotSerializable
	case code == "0 / 0":
		return math.NaN(), nil
	case code == "({a: [1, 'two']})":
		return map[string]any{"a": []any{float64(1), "two"}}, nil
	case strings.HasPrefix(code, "throw"):
		return nil, errors.New("Error: boom")
	}
	return nil, nil
}

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func (p *fakePage) Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error) {
	defer p.enter()()
	return append([]byte(nil), pngMagic...), nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePage) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// newTestSession creates a session backed by a fresh fake engine.
func newTestSession(t *testing.T, configure ...func(*Options)) (*Session, *fakeLauncher) {
	t.Helper()

	launcher := newFakeLauncher()
	opts := DefaultOptions()
	opts.Launcher = launcher
	opts.Locate = func() string { return "" }
	for _, fn := range configure {
		fn(&opts)
	}

	s, err := NewSession(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })
	return s, launcher
}
