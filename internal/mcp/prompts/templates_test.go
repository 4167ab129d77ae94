package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func promptRequest(name string, args map[string]string) mcp.GetPromptRequest {
	return mcp.GetPromptRequest{
		Params: mcp.GetPromptParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func messageText(t *testing.T, result *mcp.GetPromptResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("result is nil")
	}
	if len(result.Messages) != 1 {
		t.Fatalf("Messages count = %d, want 1", len(result.Messages))
	}
	if result.Messages[0].Role != mcp.RoleUser {
		t.Errorf("Role = %v, want %v", result.Messages[0].Role, mcp.RoleUser)
	}
	text, ok := result.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("Content type = %T, want mcp.TextContent", result.Messages[0].Content)
	}
	return text.Text
}

func TestPromptDefinitions(t *testing.T) {
	p := NewPromptTemplates()

	tests := []struct {
		prompt   mcp.Prompt
		wantName string
		wantArgs int
	}{
		{prompt: p.SummarizeCoursePrompt(), wantName: summarizeCoursePrompt, wantArgs: 2},
		{prompt: p.CompareProfessorsPrompt(), wantName: compareProfessorsPrompt, wantArgs: 2},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			if tt.prompt.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", tt.prompt.Name, tt.wantName)
			}
			if len(tt.prompt.Arguments) != tt.wantArgs {
				t.Errorf("Arguments count = %d, want %d", len(tt.prompt.Arguments), tt.wantArgs)
			}
			if !tt.prompt.Arguments[0].Required {
				t.Error("course_code should be required")
			}
		})
	}
}

func TestSummarizeCourseHandler(t *testing.T) {
	p := NewPromptTemplates()
	ctx := context.Background()

	tests := []struct {
		name         string
		args         map[string]string
		wantContains []string
		wantErr      bool
	}{
		{
			name:         "course and university",
			args:         map[string]string{"course_code": "CS2040S", "university": "NUS"},
			wantContains: []string{`"CS2040S"`, "at NUS", "course_stats", "list_reviews"},
		},
		{
			name:         "course only",
			args:         map[string]string{"course_code": "MA1521"},
			wantContains: []string{`"MA1521"`},
		},
		{name: "missing course", args: map[string]string{"university": "NUS"}, wantErr: true},
		{name: "nil arguments", args: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.SummarizeCourseHandler(ctx, promptRequest(summarizeCoursePrompt, tt.args))
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			text := messageText(t, result)
			for _, want := range tt.wantContains {
				if !strings.Contains(text, want) {
					t.Errorf("text %q missing %q", text, want)
				}
			}
			if strings.Contains(text, " at ") && tt.args["university"] == "" {
				t.Errorf("text %q should not mention a university", text)
			}
		})
	}
}

func TestCompareProfessorsHandler(t *testing.T) {
	p := NewPromptTemplates()

	result, err := p.CompareProfessorsHandler(context.Background(), promptRequest(compareProfessorsPrompt, map[string]string{"course_code": "CS1231S"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := messageText(t, result)
	if !strings.Contains(text, "CS1231S (any university)") {
		t.Errorf("text %q should default the university", text)
	}
	if result.Description != "Compare professors for CS1231S" {
		t.Errorf("Description = %q", result.Description)
	}

	if _, err := p.CompareProfessorsHandler(context.Background(), promptRequest(compareProfessorsPrompt, nil)); err == nil {
		t.Error("expected error without course_code")
	}
}
