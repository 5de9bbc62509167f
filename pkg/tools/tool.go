// Package tools defines the contract between an agent and the capabilities
// it can invoke, plus the XML tool-call format agents emit.
package tools

import (
	"context"
	"encoding/xml"
)

// Tool is a capability an agent invokes through an XML tool call:
//
//	<tool>
//	<tool_name>navigate</tool_name>
//	<arguments>
//	  <url>https://example.com</url>
//	</arguments>
//	</tool>
type Tool interface {
	// Name returns the unique identifier used in <tool_name>
	Name() string

	Description() string

	// Schema returns a JSON schema describing the tool's arguments
	Schema() map[string]interface{}

	// Execute runs the tool with the <arguments> element as raw XML. The
	// metadata map is optional structured output alongside the text result.
	Execute(ctx context.Context, argumentsXML []byte) (string, map[string]interface{}, error)
}

// ConditionallyVisible is implemented by tools that are only offered in
// some states, such as page tools that need an open page.
type ConditionallyVisible interface {
	ShouldShow() bool
}

// ToolCall is a parsed tool invocation.
type ToolCall struct {
	XMLName    xml.Name       `xml:"tool"`
	ServerName string         `xml:"server_name"`
	ToolName   string         `xml:"tool_name"`
	Arguments  ArgumentsBlock `xml:"arguments"`
}

// ArgumentsBlock holds the raw XML of the arguments element
type ArgumentsBlock struct {
	InnerXML []byte `xml:",innerxml"`
}

// GetArgumentsXML returns the arguments wrapped in <arguments> tags.
func (tc *ToolCall) GetArgumentsXML() []byte {
	const prefix = "<arguments>"
	const suffix = "</arguments>"

	result := make([]byte, 0, len(prefix)+len(tc.Arguments.InnerXML)+len(suffix))
	result = append(result, prefix...)
	result = append(result, tc.Arguments.InnerXML...)
	result = append(result, suffix...)
	return result
}

// BaseToolSchema builds an object schema with the given properties.
func BaseToolSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// StringProperty is a schema property of type string.
func StringProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}
