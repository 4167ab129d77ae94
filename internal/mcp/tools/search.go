package tools

import (
	"context"
	"strings"

	"github.com/courserate-sg/server/internal/domain/search"
	"github.com/mark3labs/mcp-go/mcp"
)

type Searcher interface {
	Professors(ctx context.Context, q string) ([]string, error)
	Courses(ctx context.Context, q string, exact bool) ([]search.CourseMatch, error)
}

// SearchTools exposes professor and course lookup.
type SearchTools struct {
	search Searcher
}

func NewSearchTools(searcher Searcher) *SearchTools {
	return &SearchTools{search: searcher}
}

func (t *SearchTools) SearchProfessorsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_professors",
		Description: "Find professor names containing the query (case-insensitive). Returns {data: [names]} sorted alphabetically.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Part of a professor's name",
				},
			},
			Required: []string{"query"},
		},
	}
}

func (t *SearchTools) SearchProfessorsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t == nil || t.search == nil {
		return mcp.NewToolResultError("search service not configured"), nil
	}

	args := struct {
		Query string `json:"query"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}

	names, err := t.search.Professors(ctx, args.Query)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to search professors", err), nil
	}
	if names == nil {
		names = []string{}
	}
	return toolResultJSON(dataEnvelope{Data: names})
}

func (t *SearchTools) SearchCoursesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_courses",
		Description: "Find courses by code. With exact=true (the default) only codes equal to the query match; otherwise any code containing it.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Course code, e.g. CS1010S",
				},
				"exact": map[string]any{
					"type":        "boolean",
					"description": "Require the whole code to match",
					"default":     true,
				},
			},
			Required: []string{"query"},
		},
	}
}

func (t *SearchTools) SearchCoursesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t == nil || t.search == nil {
		return mcp.NewToolResultError("search service not configured"), nil
	}

	args := struct {
		Query string `json:"query"`
		Exact *bool  `json:"exact"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	exact := true
	if args.Exact != nil {
		exact = *args.Exact
	}

	matches, err := t.search.Courses(ctx, strings.TrimSpace(args.Query), exact)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to search courses", err), nil
	}
	if matches == nil {
		matches = []search.CourseMatch{}
	}
	return toolResultJSON(dataEnvelope{Data: matches})
}
