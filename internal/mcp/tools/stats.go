package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/courserate-sg/server/internal/domain/courses"
	"github.com/courserate-sg/server/internal/domain/professors"
	"github.com/mark3labs/mcp-go/mcp"
)

type CourseStatter interface {
	Stats(ctx context.Context, id int64) (courses.Stats, error)
}

type ProfessorStatter interface {
	Stats(ctx context.Context, id int64) (professors.Stats, error)
}

// StatsTools reports the same aggregates as the course and professor stats endpoints.
type StatsTools struct {
	courses    CourseStatter
	professors ProfessorStatter
}

func NewStatsTools(courseStats CourseStatter, professorStats ProfessorStatter) *StatsTools {
	return &StatsTools{courses: courseStats, professors: professorStats}
}

func (t *StatsTools) CourseStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "course_stats",
		Description: "Rating averages, distribution and professors for one course.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"course_id": map[string]any{
					"type":        "integer",
					"description": "Course ID",
					"minimum":     1,
				},
			},
			Required: []string{"course_id"},
		},
	}
}

func (t *StatsTools) CourseStatsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t == nil || t.courses == nil {
		return mcp.NewToolResultError("course service not configured"), nil
	}

	args := struct {
		CourseID int64 `json:"course_id"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	if args.CourseID <= 0 {
		return mcp.NewToolResultError("course_id must be greater than 0"), nil
	}

	stats, err := t.courses.Stats(ctx, args.CourseID)
	if err != nil {
		if errors.Is(err, courses.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Course with ID %d not found", args.CourseID)), nil
		}
		return mcp.NewToolResultErrorFromErr("failed to compute course stats", err), nil
	}
	return toolResultJSON(stats)
}

func (t *StatsTools) ProfessorStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "professor_stats",
		Description: "Rating averages and distribution for one professor.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"professor_id": map[string]any{
					"type":        "integer",
					"description": "Professor ID",
					"minimum":     1,
				},
			},
			Required: []string{"professor_id"},
		},
	}
}

func (t *StatsTools) ProfessorStatsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t == nil || t.professors == nil {
		return mcp.NewToolResultError("professor service not configured"), nil
	}

	args := struct {
		ProfessorID int64 `json:"professor_id"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	if args.ProfessorID <= 0 {
		return mcp.NewToolResultError("professor_id must be greater than 0"), nil
	}

	stats, err := t.professors.Stats(ctx, args.ProfessorID)
	if err != nil {
		if errors.Is(err, professors.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Professor with ID %d not found", args.ProfessorID)), nil
		}
		return mcp.NewToolResultErrorFromErr("failed to compute professor stats", err), nil
	}
	return toolResultJSON(stats)
}
