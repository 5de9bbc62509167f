// Package browsertest provides an in-memory browser engine for tests of
// code built on package browser.
package browsertest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/JoinTheAlliance/agentbrowser/pkg/browser"
	"github.com/PuerkitoBio/goquery"
)

// Site maps addresses to the HTML documents served for them.
type Site map[string]string

// Launcher is a browser.Launcher serving a static Site. Hosts under
// .invalid fail name resolution; other unknown addresses get a 404 page.
type Launcher struct {
	Site Site

	// Scripts maps evaluated code to its result. An error value is
	// returned as a thrown exception.
	Scripts map[string]any

	// FailLaunches makes the next n launches fail
	FailLaunches int

	mu          sync.Mutex
	launches    int
	navigations []Navigation
}

// Navigation records one navigation that reached the engine.
type Navigation struct {
	URL       string
	Readiness browser.Readiness
	Timeout   time.Duration
}

// Navigations returns every navigation attempted so far, in order.
func (l *Launcher) Navigations() []Navigation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Navigation(nil), l.navigations...)
}

// New creates a launcher serving site.
func New(site Site) *Launcher {
	return &Launcher{Site: site, Scripts: map[string]any{}}
}

// Options returns session options that use l and skip executable lookup.
func Options(l *Launcher) browser.Options {
	opts := browser.DefaultOptions()
	opts.Launcher = l
	opts.Locate = nil
	return opts
}

// Launches reports how many launches were attempted.
func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.launches++
	if l.FailLaunches > 0 {
		l.FailLaunches--
		return nil, errors.New("browser executable not found")
	}
	return &process{launcher: l}, nil
}

type process struct {
	launcher *Launcher

	mu     sync.Mutex
	closed bool
}

func (p *process) NewPage(ctx context.Context) (browser.EnginePage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.New("browser has been closed")
	}
	return &page{launcher: p.launcher, url: "about:blank", doc: "<html><head></head><body></body></html>"}, nil
}

func (p *process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type page struct {
	launcher *Launcher

	mu  sync.Mutex
	url string
	doc string
}

func (p *page) document() (*goquery.Document, error) {
	p.mu.Lock()
	doc := p.doc
	p.mu.Unlock()
	return goquery.NewDocumentFromReader(strings.NewReader(doc))
}

func (p *page) Goto(ctx context.Context, target string, readiness browser.Readiness, timeout time.Duration) (browser.GotoResult, error) {
	p.launcher.mu.Lock()
	p.launcher.navigations = append(p.launcher.navigations, Navigation{URL: target, Readiness: readiness, Timeout: timeout})
	p.launcher.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return browser.GotoResult{}, err
	}
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return browser.GotoResult{}, fmt.Errorf("Cannot navigate to invalid URL %q", target)
	}
	if strings.HasSuffix(u.Hostname(), ".invalid") {
		return browser.GotoResult{}, fmt.Errorf("net::ERR_NAME_NOT_RESOLVED at %s", target)
	}

	doc, ok := p.launcher.Site[target]
	status := 200
	if !ok {
		doc = "<html><head><title>Not Found</title></head><body>Not Found</body></html>"
		status = 404
	}

	p.mu.Lock()
	p.url = target
	p.doc = doc
	p.mu.Unlock()
	return browser.GotoResult{URL: target, Status: status}, nil
}

func (p *page) Content(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc, nil
}

func (p *page) InnerHTML(ctx context.Context, selector string) (string, error) {
	doc, err := p.document()
	if err != nil {
		return "", err
	}
	return doc.Find(selector).First().Html()
}

func (p *page) TextContent(ctx context.Context, selector string) (string, error) {
	doc, err := p.document()
	if err != nil {
		return "", err
	}
	return doc.Find(selector).First().Text(), nil
}

func (p *page) Title(ctx context.Context) (string, error) {
	doc, err := p.document()
	if err != nil {
		return "", err
	}
	return doc.Find("title").First().Text(), nil
}

func (p *page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *page) Evaluate(ctx context.Context, code string) (any, error) {
	v, ok := p.launcher.Scripts[code]
	if !ok {
		return nil, fmt.Errorf("ReferenceError: %s is not defined", code)
	}
	if err, isErr := v.(error); isErr {
		return nil, err
	}
	return v, nil
}

func (p *page) Screenshot(ctx context.Context, opts browser.ScreenshotOptions) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.White)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *page) Close() error {
	return nil
}
