package browsertools

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/JoinTheAlliance/agentbrowser/pkg/browser"
	"github.com/JoinTheAlliance/agentbrowser/pkg/tools"
)

// Content formats accepted by get_page_content.
const (
	FormatText         = "text"
	FormatRawText      = "raw_text"
	FormatDocumentText = "document_text"
	FormatBodyHTML     = "body_html"
	FormatHTML         = "html"
)

// PageContentTool reads a page's text or markup.
type PageContentTool struct {
	pageTool
}

func NewPageContentTool(session *browser.Session) *PageContentTool {
	return &PageContentTool{pageTool{session: session}}
}

func (t *PageContentTool) Name() string {
	return "get_page_content"
}

func (t *PageContentTool) Description() string {
	return "Read content from a browser page. The default 'text' format strips scripts, navigation chrome, ads and other boilerplate and collapses whitespace."
}

func (t *PageContentTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"page_id": pageIDProperty,
			"format": tools.StringProperty("One of 'text' (default, cleaned body text), 'raw_text' (unfiltered body text), " +
				"'document_text' (all document text), 'body_html', or 'html' (whole document)"),
			"max_length": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum content length in characters. Default: 10000",
			},
		},
		nil,
	)
}

type pageContentArgs struct {
	XMLName xml.Name `xml:"arguments"`
	pageArgs
	Format    string `xml:"format"`
	MaxLength *int   `xml:"max_length"`
}

func (t *PageContentTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input pageContentArgs
	if err := decodeArgs(argsXML, &input); err != nil {
		return "", nil, err
	}

	maxLength := DefaultMaxLength
	if input.MaxLength != nil {
		if *input.MaxLength < 100 || *input.MaxLength > 100000 {
			return "", nil, fmt.Errorf("max_length must be between 100 and 100000")
		}
		maxLength = *input.MaxLength
	}

	format := input.Format
	if format == "" {
		format = FormatText
	}

	read, err := t.reader(format)
	if err != nil {
		return "", nil, err
	}
	content, err := read(ctx, input.id())
	if err != nil {
		return "", nil, err
	}

	info, err := t.session.Page(input.id())
	if err != nil {
		return "", nil, err
	}

	content, truncated := truncate(content, maxLength)
	result := fmt.Sprintf("Page: %s\nURL: %s\nFormat: %s\nLength: %d characters\n\n---\n\n%s",
		info.ID, info.URL, format, len([]rune(content)), content)

	return result, map[string]interface{}{
		"page_id":   string(info.ID),
		"format":    format,
		"truncated": truncated,
	}, nil
}

func (t *PageContentTool) reader(format string) (func(context.Context, browser.PageID) (string, error), error) {
	switch format {
	case FormatText:
		return t.session.BodyText, nil
	case FormatRawText:
		return t.session.BodyTextRaw, nil
	case FormatDocumentText:
		return t.session.DocumentText, nil
	case FormatBodyHTML:
		return t.session.BodyHTML, nil
	case FormatHTML:
		return t.session.DocumentHTML, nil
	}
	return nil, fmt.Errorf("invalid format: %s (must be 'text', 'raw_text', 'document_text', 'body_html', or 'html')", format)
}
