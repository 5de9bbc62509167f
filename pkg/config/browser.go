package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/JoinTheAlliance/agentbrowser/pkg/browser"
)

const (
	// SectionIDBrowser is the identifier for the browser settings section
	SectionIDBrowser = "browser"

	defaultIdleTimeout = 30 * time.Minute
)

// BrowserSection holds the settings used to build a browser session.
type BrowserSection struct {
	Enabled           bool
	Headless          bool
	ExecutablePath    string
	Readiness         string
	NavigationTimeout time.Duration
	MaxPages          int

	// IdleTimeout closes pages unused for this long (0 disables the sweep)
	IdleTimeout time.Duration

	Denylist []string
	LogLevel string

	mu sync.RWMutex
}

// NewBrowserSection creates a browser section with default settings.
func NewBrowserSection() *BrowserSection {
	s := &BrowserSection{}
	s.reset()
	return s
}

func (s *BrowserSection) ID() string {
	return SectionIDBrowser
}

func (s *BrowserSection) Title() string {
	return "Browser"
}

func (s *BrowserSection) Description() string {
	return "Headless browser process, navigation defaults, page limits and text extraction denylist."
}

func (s *BrowserSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"enabled":            s.Enabled,
		"headless":           s.Headless,
		"executable_path":    s.ExecutablePath,
		"readiness":          s.Readiness,
		"navigation_timeout": s.NavigationTimeout.String(),
		"max_pages":          s.MaxPages,
		"idle_timeout":       s.IdleTimeout.String(),
		"denylist":           append([]string(nil), s.Denylist...),
		"log_level":          s.LogLevel,
	}
}

func (s *BrowserSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "enabled":
			err = setBool(&s.Enabled, key, value)
		case "headless":
			err = setBool(&s.Headless, key, value)
		case "executable_path":
			err = setString(&s.ExecutablePath, key, value)
		case "readiness":
			err = setString(&s.Readiness, key, value)
		case "log_level":
			err = setString(&s.LogLevel, key, value)
		case "navigation_timeout":
			err = setDuration(&s.NavigationTimeout, key, value)
		case "idle_timeout":
			err = setDuration(&s.IdleTimeout, key, value)
		case "max_pages":
			err = setInt(&s.MaxPages, key, value)
		case "denylist":
			err = setStrings(&s.Denylist, key, value)
		default:
			// Ignore unknown keys for forward compatibility
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *BrowserSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := browser.ParseReadiness(s.Readiness); err != nil {
		return err
	}
	if s.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation_timeout must be positive, got %v", s.NavigationTimeout)
	}
	if s.MaxPages < 0 {
		return fmt.Errorf("max_pages cannot be negative, got %d", s.MaxPages)
	}
	if s.IdleTimeout < 0 {
		return fmt.Errorf("idle_timeout cannot be negative, got %v", s.IdleTimeout)
	}
	if _, err := browser.NewDenylistExtractor(s.Denylist); err != nil {
		return err
	}
	return nil
}

func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *BrowserSection) reset() {
	s.Enabled = true
	s.Headless = true
	s.ExecutablePath = ""
	s.Readiness = string(browser.DefaultReadiness)
	s.NavigationTimeout = browser.DefaultNavigationTimeout
	s.MaxPages = 0
	s.IdleTimeout = defaultIdleTimeout
	s.Denylist = append([]string(nil), browser.DefaultDenylist...)
	s.LogLevel = "info"
}

// IsEnabled reports whether browser tools should be offered.
func (s *BrowserSection) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Enabled
}

// GetIdleTimeout returns the idle page timeout.
func (s *BrowserSection) GetIdleTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.IdleTimeout
}

// GetLogLevel returns the configured log level name.
func (s *BrowserSection) GetLogLevel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LogLevel
}

// SessionOptions converts the section into session options. Engine, logger
// and metrics fields are left for the caller.
func (s *BrowserSection) SessionOptions() (browser.Options, error) {
	if err := s.Validate(); err != nil {
		return browser.Options{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	readiness, _ := browser.ParseReadiness(s.Readiness)
	opts := browser.DefaultOptions()
	opts.Headless = s.Headless
	opts.ExecutablePath = s.ExecutablePath
	opts.Readiness = readiness
	opts.NavigationTimeout = s.NavigationTimeout
	opts.MaxPages = s.MaxPages
	// An empty, non-nil denylist disables token filtering
	opts.Denylist = make([]string, len(s.Denylist))
	copy(opts.Denylist, s.Denylist)
	return opts, nil
}

func setBool(dst *bool, key string, value interface{}) error {
	v, ok := value.(bool)
	if !ok {
		return fmt.Errorf("invalid value type for %s: expected bool, got %T", key, value)
	}
	*dst = v
	return nil
}

func setString(dst *string, key string, value interface{}) error {
	v, ok := value.(string)
	if !ok {
		return fmt.Errorf("invalid value type for %s: expected string, got %T", key, value)
	}
	*dst = v
	return nil
}

// setInt accepts JSON numbers (float64) as well as YAML integers.
func setInt(dst *int, key string, value interface{}) error {
	switch v := value.(type) {
	case int:
		*dst = v
	case int64:
		*dst = int(v)
	case float64:
		if v != float64(int(v)) {
			return fmt.Errorf("invalid value for %s: %v is not a whole number", key, v)
		}
		*dst = int(v)
	default:
		return fmt.Errorf("invalid value type for %s: expected number, got %T", key, value)
	}
	return nil
}

// setDuration accepts duration strings ("30s") or nanosecond counts.
func setDuration(dst *time.Duration, key string, value interface{}) error {
	switch v := value.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration string for %s: %w", key, err)
		}
		*dst = d
	case float64:
		*dst = time.Duration(v)
	case int:
		*dst = time.Duration(v)
	case int64:
		*dst = time.Duration(v)
	default:
		return fmt.Errorf("invalid value type for %s: expected string or number, got %T", key, value)
	}
	return nil
}

func setStrings(dst *[]string, key string, value interface{}) error {
	switch v := value.(type) {
	case []string:
		*dst = append([]string(nil), v...)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return fmt.Errorf("invalid entry in %s: expected string, got %T", key, item)
			}
			out = append(out, str)
		}
		*dst = out
	default:
		return fmt.Errorf("invalid value type for %s: expected list of strings, got %T", key, value)
	}
	return nil
}
