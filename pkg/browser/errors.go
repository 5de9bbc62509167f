package browser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStartup is returned when the browser process fails to launch.
	ErrStartup = errors.New("browser startup failed")

	// ErrPageNotFound is returned when an identifier is unknown to the registry.
	ErrPageNotFound = errors.New("page not found")

	// ErrNoActivePage is returned when no page was specified and none is current.
	ErrNoActivePage = errors.New("no active page")

	// ErrContentAccess wraps engine failures while reading page content.
	ErrContentAccess = errors.New("content access failed")

	// ErrNotSerializable is returned when a script result cannot leave the page.
	ErrNotSerializable = errors.New("script result is not serializable")

	// ErrProcessClosed is returned for operations attempted after shutdown.
	ErrProcessClosed = errors.New("browser process closed")

	// ErrPageLimit is returned when the configured page limit is reached.
	ErrPageLimit = errors.New("page limit reached")

	// ErrScript wraps exceptions thrown by evaluated scripts.
	ErrScript = errors.New("script evaluation failed")

	// ErrEngine wraps engine failures while opening or closing pages.
	ErrEngine = errors.New("browser engine error")
)

// OpError records a failed page operation with enough detail to diagnose it
// without source access.
type OpError struct {
	Op     string
	PageID PageID
	URL    string

	// Kind is one of the package sentinels
	Kind error

	// Err is the underlying engine error, if any
	Err error
}

func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.PageID != "" {
		fmt.Fprintf(&b, " page=%s", e.PageID)
	}
	if e.URL != "" {
		fmt.Fprintf(&b, " url=%s", e.URL)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the sentinel and the engine error to errors.Is/As.
func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func opError(op string, id PageID, kind, err error) *OpError {
	return &OpError{Op: op, PageID: id, Kind: kind, Err: err}
}

// FailureReason classifies a navigation failure.
type FailureReason string

const (
	FailureTimeout           FailureReason = "timeout"
	FailureDNS               FailureReason = "dns"
	FailureConnectionRefused FailureReason = "connection_refused"
	FailureAborted           FailureReason = "aborted"
	FailureEngine            FailureReason = "engine"
)

// NavigationFailure is the soft failure value reported by Navigate.
type NavigationFailure struct {
	Reason  FailureReason
	URL     string
	Message string
}

func (f *NavigationFailure) Error() string {
	return fmt.Sprintf("navigate %s: %s: %s", f.URL, f.Reason, f.Message)
}

// NavigationResult is the tagged outcome of a navigation. Exactly one of
// a successful load (Failure == nil) or a NavigationFailure is reported.
type NavigationResult struct {
	PageID PageID

	// URL is the requested address
	URL string

	// FinalURL is the page address after redirects (empty on failure)
	FinalURL string

	// Status is the main resource HTTP status, 0 when unknown
	Status int

	Failure *NavigationFailure
}

// OK reports whether the navigation succeeded.
func (r NavigationResult) OK() bool {
	return r.Failure == nil
}

var navigationMarkers = []struct {
	marker string
	reason FailureReason
}{
	{"ERR_NAME_NOT_RESOLVED", FailureDNS},
	{"ERR_NAME_RESOLUTION_FAILED", FailureDNS},
	{"NS_ERROR_UNKNOWN_HOST", FailureDNS},
	{"ERR_CONNECTION_REFUSED", FailureConnectionRefused},
	{"NS_ERROR_CONNECTION_REFUSED", FailureConnectionRefused},
	{"ERR_ABORTED", FailureAborted},
	{"NS_BINDING_ABORTED", FailureAborted},
	{"Timeout", FailureTimeout},
	{"ERR_TIMED_OUT", FailureTimeout},
}

// classifyNavigationError maps an engine error onto a FailureReason.
func classifyNavigationError(err error) FailureReason {
	if errors.Is(err, ErrNavigationTimeout) {
		return FailureTimeout
	}
	msg := err.Error()
	for _, m := range navigationMarkers {
		if strings.Contains(msg, m.marker) {
			return m.reason
		}
	}
	return FailureEngine
}

// ErrNavigationTimeout is reported by engines when a load exceeds its timeout.
var ErrNavigationTimeout = errors.New("navigation timeout")
