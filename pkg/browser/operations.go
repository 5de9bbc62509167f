package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Navigate directs the page (the current page when id is empty) to url.
//
// Navigation failures such as DNS errors, refused connections and timeouts
// are reported in the result and leave the page usable for a retry. The
// error return is reserved for registry and lifecycle failures.
func (s *Session) Navigate(ctx context.Context, id PageID, url string, opts NavigateOptions) (NavigationResult, error) {
	const op = "navigate"

	readiness := opts.Readiness
	if readiness == "" {
		readiness = s.opts.Readiness
	}
	if !readiness.Valid() {
		return NavigationResult{}, &OpError{Op: op, PageID: id, URL: url, Kind: ErrContentAccess, Err: &invalidReadinessError{value: string(readiness)}}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.opts.NavigationTimeout
	}

	result := NavigationResult{PageID: id, URL: url}
	err := s.withPage(op, id, ErrContentAccess, func(sl *slot, gen uint64) error {
		result.PageID = sl.id

		res, err := sl.page.Goto(ctx, url, readiness, timeout)
		if err == nil {
			result.FinalURL = res.URL
			result.Status = res.Status
			return nil
		}

		// A process closed underneath the load is terminal, not a retryable failure
		if s.closedSince(gen) {
			return err
		}

		reason := classifyNavigationError(err)
		if errors.Is(err, context.DeadlineExceeded) {
			reason = FailureTimeout
		}
		result.Failure = &NavigationFailure{Reason: reason, URL: url, Message: err.Error()}
		return nil
	})
	if err != nil {
		var opErr *OpError
		if errors.As(err, &opErr) {
			opErr.URL = url
		}
		return NavigationResult{}, err
	}

	if result.Failure != nil {
		s.metrics.navigationFailed(result.Failure.Reason)
		s.logger.Warnf("navigation to %s failed on page %s: %s", url, result.PageID, result.Failure.Message)
	} else {
		s.logger.Debugf("page %s navigated to %s (status %d)", result.PageID, result.FinalURL, result.Status)
	}
	return result, nil
}

// readString runs a string-returning content accessor against a page.
func (s *Session) readString(op string, id PageID, read func(p EnginePage) (string, error)) (string, error) {
	var out string
	err := s.withPage(op, id, ErrContentAccess, func(sl *slot, _ uint64) error {
		v, err := read(sl.page)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// DocumentHTML returns the serialized markup of the whole document.
func (s *Session) DocumentHTML(ctx context.Context, id PageID) (string, error) {
	return s.readString("get_document_html", id, func(p EnginePage) (string, error) {
		return p.Content(ctx)
	})
}

// BodyHTML returns the serialized markup of the body element.
func (s *Session) BodyHTML(ctx context.Context, id PageID) (string, error) {
	return s.readString("get_body_html", id, func(p EnginePage) (string, error) {
		return p.InnerHTML(ctx, "body")
	})
}

// BodyText returns the body text after the extraction policy has removed
// boilerplate, flattened structure and collapsed whitespace.
func (s *Session) BodyText(ctx context.Context, id PageID) (string, error) {
	return s.readString("get_body_text", id, func(p EnginePage) (string, error) {
		markup, err := p.InnerHTML(ctx, "body")
		if err != nil {
			return "", err
		}
		return s.extractor.CleanText(markup)
	})
}

// BodyTextRaw returns the unfiltered text content of the body.
func (s *Session) BodyTextRaw(ctx context.Context, id PageID) (string, error) {
	return s.readString("get_body_text_raw", id, func(p EnginePage) (string, error) {
		return p.TextContent(ctx, "body")
	})
}

// DocumentText returns the unfiltered text content of the whole document.
func (s *Session) DocumentText(ctx context.Context, id PageID) (string, error) {
	return s.readString("get_document_text", id, func(p EnginePage) (string, error) {
		return p.TextContent(ctx, "html")
	})
}

// Title returns the document title.
func (s *Session) Title(ctx context.Context, id PageID) (string, error) {
	return s.readString("get_title", id, func(p EnginePage) (string, error) {
		return p.Title(ctx)
	})
}

// URL returns the address the page is currently showing.
func (s *Session) URL(id PageID) (string, error) {
	return s.readString("get_url", id, func(p EnginePage) (string, error) {
		return p.URL(), nil
	})
}

// EvaluateScript runs code in the page's script context and returns its
// JSON-compatible result. Code runs with the page's full privileges; never
// pass untrusted input.
func (s *Session) EvaluateScript(ctx context.Context, id PageID, code string) (interface{}, error) {
	const op = "evaluate_script"

	var out interface{}
	err := s.withPage(op, id, ErrScript, func(sl *slot, _ uint64) error {
		v, err := sl.page.Evaluate(ctx, code)
		if errors.Is(err, ErrNotSerializable) {
			return opError(op, sl.id, ErrNotSerializable, engineDetail(err))
		}
		if err != nil {
			return err
		}
		if _, err := json.Marshal(v); err != nil {
			return opError(op, sl.id, ErrNotSerializable, err)
		}
		out = v
		return nil
	})
	return out, err
}

// engineDetail drops a bare sentinel so it is not reported twice.
func engineDetail(err error) error {
	if err == ErrNotSerializable {
		return nil
	}
	return err
}

// Screenshot captures the page's current rendering as PNG bytes.
func (s *Session) Screenshot(ctx context.Context, id PageID, opts ScreenshotOptions) ([]byte, error) {
	var out []byte
	err := s.withPage("screenshot", id, ErrContentAccess, func(sl *slot, _ uint64) error {
		buf, err := sl.page.Screenshot(ctx, opts)
		if err != nil {
			return err
		}
		out = buf
		return nil
	})
	return out, err
}

// String renders a result for logs and tool output.
func (r NavigationResult) String() string {
	if r.Failure != nil {
		return fmt.Sprintf("navigation failed (%s): %s", r.Failure.Reason, r.Failure.Message)
	}
	return fmt.Sprintf("navigated to %s (status %d)", r.FinalURL, r.Status)
}
