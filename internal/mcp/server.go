package mcp

import (
	"context"

	"github.com/courserate-sg/server/internal/mcp/prompts"
	"github.com/courserate-sg/server/internal/mcp/resources"
	"github.com/courserate-sg/server/internal/mcp/tools"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Services are the read-side domain services the MCP tools call into.
type Services struct {
	Search     tools.Searcher
	Courses    tools.CourseStatter
	Professors tools.ProfessorStatter
	Reviews    tools.ReviewLister
}

type Config struct {
	Name      string
	Version   string
	BaseURL   string
	Transport TransportType
	// OpenAPI supplies the document served as the schema://openapi resource.
	OpenAPI resources.DocumentLoader
}

// Server wraps the MCP server with CourseRate tools, resources and prompts.
type Server struct {
	mcp      *mcpserver.MCPServer
	cfg      Config
	services Services
}

func NewServer(cfg Config, services Services) *Server {
	mcpServer := mcpserver.NewMCPServer(
		cfg.Name,
		cfg.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, true),
		mcpserver.WithPromptCapabilities(true),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions("CourseRate SG: search Singapore university courses and professors and read student reviews and rating statistics."),
	)

	srv := &Server{
		mcp:      mcpServer,
		cfg:      cfg,
		services: services,
	}
	srv.registerTools()
	srv.registerResources()
	srv.registerPrompts()
	return srv
}

// MCPServer returns the underlying MCP server for use with transports.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

func (s *Server) registerTools() {
	searchTools := tools.NewSearchTools(s.services.Search)
	s.mcp.AddTool(searchTools.SearchProfessorsTool(), searchTools.SearchProfessorsHandler)
	s.mcp.AddTool(searchTools.SearchCoursesTool(), searchTools.SearchCoursesHandler)

	statsTools := tools.NewStatsTools(s.services.Courses, s.services.Professors)
	s.mcp.AddTool(statsTools.CourseStatsTool(), statsTools.CourseStatsHandler)
	s.mcp.AddTool(statsTools.ProfessorStatsTool(), statsTools.ProfessorStatsHandler)

	reviewTools := tools.NewReviewTools(s.services.Reviews)
	s.mcp.AddTool(reviewTools.ListReviewsTool(), reviewTools.ListReviewsHandler)
}

func (s *Server) registerResources() {
	schema := resources.NewSchemaResources(s.cfg.OpenAPI)
	s.mcp.AddResource(schema.OpenAPIResource(), schema.OpenAPIReadHandler())
	s.mcp.AddResource(schema.InfoResource(), schema.InfoReadHandler(resources.ServerInfo{
		Name:      s.cfg.Name,
		Version:   s.cfg.Version,
		BaseURL:   s.cfg.BaseURL,
		Transport: string(s.cfg.Transport),
		Capabilities: resources.ServerCapabilities{
			Tools:     true,
			Resources: true,
			Prompts:   true,
		},
	}))
	s.mcp.AddResource(resources.SemestersResource(), resources.SemestersReadHandler())
}

func (s *Server) registerPrompts() {
	templates := prompts.NewPromptTemplates()
	s.mcp.AddPrompt(templates.SummarizeCoursePrompt(), templates.SummarizeCourseHandler)
	s.mcp.AddPrompt(templates.CompareProfessorsPrompt(), templates.CompareProfessorsHandler)
}

// Shutdown is a hook for releasing transport state; nothing is held today.
func (s *Server) Shutdown(ctx context.Context) error {
	return nil
}
