package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	summarizeCoursePrompt   = "summarize_course"
	compareProfessorsPrompt = "compare_professors"
)

type PromptTemplates struct{}

func NewPromptTemplates() *PromptTemplates {
	return &PromptTemplates{}
}

func (p *PromptTemplates) SummarizeCoursePrompt() mcp.Prompt {
	return mcp.NewPrompt(
		summarizeCoursePrompt,
		mcp.WithPromptDescription("Summarize what students say about a course using its reviews and stats"),
		mcp.WithArgument("course_code", mcp.ArgumentDescription("Course code, e.g. CS2040S"), mcp.RequiredArgument()),
		mcp.WithArgument("university", mcp.ArgumentDescription("University offering the course")),
	)
}

func (p *PromptTemplates) CompareProfessorsPrompt() mcp.Prompt {
	return mcp.NewPrompt(
		compareProfessorsPrompt,
		mcp.WithPromptDescription("Compare the professors who have taught a course"),
		mcp.WithArgument("course_code", mcp.ArgumentDescription("Course code"), mcp.RequiredArgument()),
		mcp.WithArgument("university", mcp.ArgumentDescription("University offering the course")),
	)
}

func (p *PromptTemplates) SummarizeCourseHandler(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := request.Params.Arguments
	code := strings.TrimSpace(args["course_code"])
	if code == "" {
		return nil, fmt.Errorf("course_code is required")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Use search_courses with query %q to find the course", code)
	if university := strings.TrimSpace(args["university"]); university != "" {
		fmt.Fprintf(&b, " at %s", university)
	}
	b.WriteString(". Then call course_stats with its ID and list_reviews filtered by the course code. ")
	b.WriteString("Summarize the average ratings, the most common praise and complaints, and how the workload has changed across recent semesters.")

	return &mcp.GetPromptResult{
		Description: "Summarize reviews for " + code,
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(b.String()),
			},
		},
	}, nil
}

func (p *PromptTemplates) CompareProfessorsHandler(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := request.Params.Arguments
	code := strings.TrimSpace(args["course_code"])
	if code == "" {
		return nil, fmt.Errorf("course_code is required")
	}
	university := strings.TrimSpace(args["university"])
	if university == "" {
		university = "any university"
	}

	text := fmt.Sprintf("Call course_stats for %s (%s) to get the professors who taught it. For each professor, call list_reviews with professor_name and course_code %s and compare their overall, difficulty and workload ratings. Note when a professor has too few reviews to judge.", code, university, code)

	return &mcp.GetPromptResult{
		Description: "Compare professors for " + code,
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(text),
			},
		},
	}, nil
}
