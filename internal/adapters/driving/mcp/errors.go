// Package mcp provides an MCP (Model Context Protocol) server adapter for ragkit.
// It lets AI assistants retrieve from the local index and hold grounded
// conversations over it.
package mcp

import "errors"

var (
	// ErrMissingRetriever is returned when the retriever is not provided.
	ErrMissingRetriever = errors.New("mcp: retriever is required")

	// ErrGenerationUnavailable is returned by ask when no generation model is configured.
	ErrGenerationUnavailable = errors.New("mcp: no generation model configured")
)
