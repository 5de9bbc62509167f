package browser

import (
	"time"
)

// PageID is the opaque identifier the registry assigns to a page.
// The empty PageID addresses the current page.
type PageID string

// Readiness selects when a navigation is considered complete.
type Readiness string

const (
	// ReadinessContentLoaded returns once the DOM has been parsed (default)
	ReadinessContentLoaded Readiness = "domcontentloaded"

	// ReadinessNetworkIdle waits until there are no in-flight requests
	ReadinessNetworkIdle Readiness = "networkidle"

	// ReadinessLoad waits for the load event
	ReadinessLoad Readiness = "load"
)

// Valid reports whether r is a readiness policy the engine understands.
func (r Readiness) Valid() bool {
	switch r {
	case ReadinessContentLoaded, ReadinessNetworkIdle, ReadinessLoad:
		return true
	}
	return false
}

// ParseReadiness converts a configuration string into a Readiness.
// Empty input yields the default.
func ParseReadiness(s string) (Readiness, error) {
	if s == "" {
		return ReadinessContentLoaded, nil
	}
	r := Readiness(s)
	if !r.Valid() {
		return "", &invalidReadinessError{value: s}
	}
	return r, nil
}

type invalidReadinessError struct {
	value string
}

func (e *invalidReadinessError) Error() string {
	return "invalid readiness " + e.value + " (must be 'domcontentloaded', 'networkidle', or 'load')"
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// Readiness specifies when to consider navigation successful
	Readiness Readiness

	// Timeout aborts a stuck load without closing the page (0 means session default)
	Timeout time.Duration
}

// ScreenshotOptions configures page capture.
type ScreenshotOptions struct {
	// FullPage captures the full scrollable page instead of the viewport
	FullPage bool
}

// PageInfo contains metadata about a registered page.
type PageInfo struct {
	ID         PageID
	URL        string
	Current    bool
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// Default values for various operations
const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultReadiness         = ReadinessContentLoaded
)

// DefaultDenylist lists id/class tokens whose subtrees are treated as boilerplate.
var DefaultDenylist = []string{
	"sidebar",
	"footer",
	"advertisement",
	"popup",
	"modal",
	"cookie-banner",
	"newsletter",
}
