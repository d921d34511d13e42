package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driving"
)

// defaultSearchLimit is used when the caller gives no k.
const defaultSearchLimit = 4

// errNoIngest is returned by insert_document when no ingest service is wired.
var errNoIngest = errors.New("mcp: file ingestion is not available")

// InsertInput is the input schema for the insert_document tool.
type InsertInput struct {
	Path    string `json:"path" jsonschema:"path of the PDF, text, markdown, HTML or DOCX file to index"`
	Replace bool   `json:"replace,omitempty" jsonschema:"re-index the file if it is already indexed"`
}

// SourceInput is the input schema for the remove_document tool.
type SourceInput struct {
	Source string `json:"source" jsonschema:"source id as shown by list_documents"`
}

// PageInput is the input schema for the remove_page tool.
type PageInput struct {
	Source string `json:"source" jsonschema:"source id as shown by list_documents"`
	Page   int    `json:"page" jsonschema:"1-based page number"`
}

// MatchInput is the input schema for the remove_matching tool.
type MatchInput struct {
	Query string `json:"query" jsonschema:"text to match, ignoring case"`
}

// EmptyInput is the input schema for tools without arguments.
type EmptyInput struct{}

// MutationOutput reports the outcome of a mutation.
type MutationOutput struct {
	OK          bool   `json:"ok"`
	Message     string `json:"message"`
	Affected    int    `json:"affected"`
	VectorCount int    `json:"vector_count"`
}

// DocumentsOutput is the output schema for the list_documents tool.
type DocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput is one indexed source with its pages.
type DocumentOutput struct {
	Source string `json:"source"`
	Pages  []int  `json:"pages"`
}

// StatsOutput is the output schema for the get_statistics tool.
type StatsOutput struct {
	TotalDocuments int `json:"total_documents"`
	TotalPages     int `json:"total_pages"`
	VectorCount    int `json:"vector_count"`
	Dimension      int `json:"dimension"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"text to find similar pages for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 4)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocID    string  `json:"doc_id"`
	Source   string  `json:"source"`
	Page     int     `json:"page"`
	Distance float32 `json:"distance"`
	Text     string  `json:"text"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"question to answer from the indexed pages"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string          `json:"answer"`
	Sources []domain.Source `json:"sources"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "insert_document",
			Description: "Extract a file page by page and add it to the index",
		}, s.handleInsert)
	}
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove_document",
		Description: "Remove every page of a source from the index",
	}, s.handleRemoveDocument)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove_page",
		Description: "Remove one page of a source from the index",
	}, s.handleRemovePage)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove_matching",
		Description: "Remove every page whose text contains the query, ignoring case",
	}, s.handleRemoveMatching)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove_all",
		Description: "Remove every page from the index",
	}, s.handleRemoveAll)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List indexed sources with their page numbers",
	}, s.handleListDocuments)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_statistics",
		Description: "Report document, page and vector counts of the index",
	}, s.handleStatistics)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the indexed pages most similar to a query",
	}, s.handleSearch)
	if s.ports.Answer != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask",
			Description: "Answer a question from the indexed pages",
		}, s.handleAsk)
	}
}

func (s *Server) handleInsert(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input InsertInput,
) (*mcp.CallToolResult, MutationOutput, error) {
	if s.ports.Ingest == nil {
		return nil, MutationOutput{}, errNoIngest
	}
	res, err := s.ports.Ingest.IngestFile(ctx, input.Path, driving.IngestOptions{Replace: input.Replace})
	return mutationResult(res, err)
}

func (s *Server) handleRemoveDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SourceInput,
) (*mcp.CallToolResult, MutationOutput, error) {
	source, err := s.sourceID(input.Source)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	return mutationResult(s.ports.Index.RemoveDocument(ctx, source))
}

func (s *Server) handleRemovePage(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PageInput,
) (*mcp.CallToolResult, MutationOutput, error) {
	source, err := s.sourceID(input.Source)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	return mutationResult(s.ports.Index.RemovePage(ctx, source, input.Page))
}

func (s *Server) handleRemoveMatching(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input MatchInput,
) (*mcp.CallToolResult, MutationOutput, error) {
	return mutationResult(s.ports.Index.RemoveMatching(ctx, input.Query))
}

func (s *Server) handleRemoveAll(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, MutationOutput, error) {
	return mutationResult(s.ports.Index.RemoveAll(ctx))
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, DocumentsOutput, error) {
	listing, err := s.ports.Index.EnumerateDocuments(ctx)
	if err != nil {
		return nil, DocumentsOutput{}, err
	}
	return nil, documentsOutput(listing), nil
}

func (s *Server) handleStatistics(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	stats, err := s.ports.Index.GetStatistics(ctx)
	if err != nil {
		return nil, StatsOutput{}, err
	}
	return nil, StatsOutput(stats), nil
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	hits, err := s.ports.Index.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(hits)),
		Count:   len(hits),
	}
	for i, h := range hits {
		output.Results[i] = SearchResultOutput{
			DocID:    h.Record.DocID,
			Source:   h.Record.Metadata.SourceID,
			Page:     h.Record.Metadata.PageNumber,
			Distance: h.Distance,
			Text:     h.Record.Text,
		}
	}

	return nil, output, nil
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Answer == nil {
		return nil, AskOutput{}, domain.ErrLLMUnavailable
	}
	answer, err := s.ports.Answer.Ask(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}
	sources := answer.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	return nil, AskOutput{Answer: answer.Text, Sources: sources}, nil
}

// sourceID normalises a user-supplied source the way ingestion does.
func (s *Server) sourceID(source string) (string, error) {
	if s.ports.Ingest == nil || source == "" {
		return source, nil
	}
	return s.ports.Ingest.SourceID(source)
}

func mutationResult(res domain.MutationResult, err error) (*mcp.CallToolResult, MutationOutput, error) {
	if err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, MutationOutput{
		OK:          res.OK,
		Message:     res.Message,
		Affected:    res.Affected,
		VectorCount: res.VectorCount,
	}, nil
}

func documentsOutput(listing domain.DocumentListing) DocumentsOutput {
	out := DocumentsOutput{Documents: make([]DocumentOutput, 0, len(listing))}
	for _, src := range listing.Sources() {
		out.Documents = append(out.Documents, DocumentOutput{Source: src, Pages: listing[src]})
	}
	out.Count = len(out.Documents)
	return out
}
