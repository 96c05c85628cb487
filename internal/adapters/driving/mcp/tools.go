package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query    string            `json:"query" jsonschema:"natural language query"`
	K        int               `json:"k,omitempty" jsonschema:"maximum number of chunks to return (default from settings)"`
	Category string            `json:"category,omitempty" jsonschema:"only return chunks from documents in this category"`
	Filter   map[string]string `json:"filter,omitempty" jsonschema:"metadata key/value pairs every chunk must match"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Chunks []ChunkOutput `json:"chunks"`
	Count  int           `json:"count"`
}

// ChunkOutput represents a single retrieved chunk.
type ChunkOutput struct {
	ChunkID    string            `json:"chunk_id"`
	DocumentID string            `json:"document_id"`
	Source     string            `json:"source"`
	Category   string            `json:"category"`
	Score      float64           `json:"score"`
	Text       string            `json:"text"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
	Session  string `json:"session,omitempty" jsonschema:"conversation handle from a previous ask; omit to start a new conversation"`
	K        int    `json:"k,omitempty" jsonschema:"number of chunks placed in the prompt (default from settings)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string        `json:"answer"`
	Query   string        `json:"query"`
	Session string        `json:"session,omitempty"`
	Sources []ChunkOutput `json:"sources"`
}

// ResetInput is the input schema for the reset tool.
type ResetInput struct {
	Session string `json:"session" jsonschema:"conversation handle to clear"`
}

// ResetOutput is the output schema for the reset tool.
type ResetOutput struct {
	Session string `json:"session"`
	Cleared bool   `json:"cleared"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find the indexed document chunks most relevant to a query",
	}, s.handleRetrieve)

	if s.ports.Ask == nil && s.ports.Sessions == nil {
		return
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the indexed documents. Pass the returned session to ask follow-up questions",
	}, s.handleAsk)

	if s.ports.Sessions != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "reset",
			Description: "Clear the history of a conversation",
		}, s.handleReset)
	}
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	opts := retrieveOptions(input.K, input.Category, input.Filter)

	chunks, err := s.ports.Retriever.Retrieve(ctx, input.Query, opts...)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	return nil, RetrieveOutput{Chunks: toChunkOutputs(chunks), Count: len(chunks)}, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Ask == nil && s.ports.Sessions == nil {
		return nil, AskOutput{}, ErrGenerationUnavailable
	}
	if strings.TrimSpace(input.Question) == "" {
		return nil, AskOutput{}, fmt.Errorf("question is required")
	}
	opts := retrieveOptions(input.K, "", nil)

	if s.ports.Sessions == nil {
		if input.Session != "" {
			return nil, AskOutput{}, fmt.Errorf("sessions are not enabled")
		}
		answer, err := s.ports.Ask.Ask(ctx, input.Question, opts...)
		if err != nil {
			return nil, AskOutput{}, err
		}
		return nil, toAskOutput(answer, ""), nil
	}

	handle := input.Session
	opened := handle == ""
	if opened {
		handle = s.ports.Sessions.Open()
	}
	conv, err := s.ports.Sessions.Get(handle)
	if err != nil {
		return nil, AskOutput{}, err
	}

	answer, err := conv.Ask(ctx, input.Question, opts...)
	if err != nil {
		// The caller never saw this handle.
		if opened {
			s.ports.Sessions.Close(handle)
		}
		return nil, AskOutput{}, err
	}
	return nil, toAskOutput(answer, handle), nil
}

// handleReset handles the reset tool invocation.
func (s *Server) handleReset(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ResetInput,
) (*mcp.CallToolResult, ResetOutput, error) {
	conv, err := s.ports.Sessions.Get(input.Session)
	if err != nil {
		return nil, ResetOutput{}, err
	}
	conv.Clear()
	return nil, ResetOutput{Session: input.Session, Cleared: true}, nil
}

func retrieveOptions(k int, category string, filter map[string]string) []domain.RetrieveOption {
	var opts []domain.RetrieveOption
	if k > 0 {
		opts = append(opts, domain.WithK(k))
	}

	equals := make(map[string]string, len(filter)+1)
	for key, v := range filter {
		equals[key] = v
	}
	if category != "" {
		equals[domain.MetaCategory] = category
	}
	if len(equals) > 0 {
		opts = append(opts, domain.WithFilter(domain.Filter{Equals: equals}))
	}
	return opts
}

func toChunkOutputs(chunks []domain.ScoredChunk) []ChunkOutput {
	out := make([]ChunkOutput, len(chunks))
	for i, c := range chunks {
		out[i] = ChunkOutput{
			ChunkID:    c.Chunk.ID,
			DocumentID: c.Chunk.DocumentID,
			Source:     c.Chunk.Metadata.Source,
			Category:   c.Chunk.Metadata.Category,
			Score:      c.Score,
			Text:       c.Chunk.Text,
			Extra:      c.Chunk.Metadata.Extra,
		}
	}
	return out
}

func toAskOutput(answer *domain.Answer, session string) AskOutput {
	return AskOutput{
		Answer:  answer.Text,
		Query:   answer.Query,
		Session: session,
		Sources: toChunkOutputs(answer.Sources),
	}
}
