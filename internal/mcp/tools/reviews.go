package tools

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/courserate-sg/server/internal/api/pagination"
	"github.com/courserate-sg/server/internal/domain/reviews"
	"github.com/mark3labs/mcp-go/mcp"
)

type ReviewLister interface {
	List(ctx context.Context, filters reviews.Filters, page pagination.Page) ([]reviews.Review, error)
}

type ReviewTools struct {
	reviews ReviewLister
}

func NewReviewTools(lister ReviewLister) *ReviewTools {
	return &ReviewTools{reviews: lister}
}

func (t *ReviewTools) ListReviewsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_reviews",
		Description: "List reviews, newest term first. Filters are case-insensitive exact matches.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"professor_name": map[string]any{
					"type":        "string",
					"description": "Professor's full name",
				},
				"course_code": map[string]any{
					"type":        "string",
					"description": "Course code, e.g. CS2030",
				},
				"university": map[string]any{
					"type":        "string",
					"description": "University name",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of reviews to return (1-100, default 20)",
					"default":     defaultReviewLimit,
				},
			},
		},
	}
}

const defaultReviewLimit = 20

func (t *ReviewTools) ListReviewsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t == nil || t.reviews == nil {
		return mcp.NewToolResultError("review service not configured"), nil
	}

	args := struct {
		ProfessorName string `json:"professor_name"`
		CourseCode    string `json:"course_code"`
		University    string `json:"university"`
		Limit         int    `json:"limit"`
	}{Limit: defaultReviewLimit}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}

	values := url.Values{}
	for key, value := range map[string]string{
		"professor_name": args.ProfessorName,
		"course_code":    args.CourseCode,
		"university":     args.University,
	} {
		if v := strings.TrimSpace(value); v != "" {
			values.Set(key, v)
		}
	}
	values.Set("limit", strconv.Itoa(args.Limit))

	filters, page, err := reviews.ParseFilters(values)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid filters", err), nil
	}

	items, err := t.reviews.List(ctx, filters, page)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to list reviews", err), nil
	}
	if items == nil {
		items = []reviews.Review{}
	}
	return toolResultJSON(items)
}
