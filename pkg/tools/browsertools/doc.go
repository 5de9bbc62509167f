// Package browsertools exposes a browser.Session to an agent as tools.
//
// Page management:
//   - create_page: open a page (optionally loading a URL) and make it current
//   - switch_page: make another open page current
//   - close_page: close a page; the oldest remaining page becomes current
//   - list_pages: list open pages with their URLs and idle times
//
// Page interaction (offered once a page is open):
//   - navigate: load a URL in a page
//   - get_page_content: read cleaned text, raw text or markup
//   - evaluate_script: run JavaScript in a page and return its JSON result
//   - screenshot: save a PNG of a page
//
// Every page tool takes an optional page_id; when omitted the current page
// is used. Navigation failures are reported as results, not errors, so an
// agent can read the reason and retry.
package browsertools
