package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	schemaMIMEType     = "application/json"
	openAPIResource    = "schema://openapi"
	serverInfoResource = "info://server"
)

type ServerCapabilities struct {
	Tools     bool `json:"tools"`
	Resources bool `json:"resources"`
	Prompts   bool `json:"prompts"`
}

type ServerInfo struct {
	Name         string             `json:"name"`
	Version      string             `json:"version,omitempty"`
	BaseURL      string             `json:"base_url,omitempty"`
	Transport    string             `json:"transport,omitempty"`
	Capabilities ServerCapabilities `json:"capabilities"`
}

// DocumentLoader returns the OpenAPI document as JSON.
type DocumentLoader func() ([]byte, error)

type readHandler = func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error)

// lazyText computes a resource body on first read and serves it unchanged after,
// including a failure.
type lazyText struct {
	once sync.Once
	load func() ([]byte, error)
	text string
	err  error
}

func (l *lazyText) get() (string, error) {
	l.once.Do(func() {
		data, err := l.load()
		l.text, l.err = string(data), err
	})
	return l.text, l.err
}

// SchemaResources exposes the API description and server metadata.
type SchemaResources struct {
	openAPI lazyText
}

func NewSchemaResources(loader DocumentLoader) *SchemaResources {
	r := &SchemaResources{}
	r.openAPI.load = func() ([]byte, error) {
		if loader == nil {
			return nil, errors.New("no document loader configured")
		}
		return loader()
	}
	return r
}

func (r *SchemaResources) OpenAPIResource() mcp.Resource {
	return mcp.NewResource(openAPIResource, "OpenAPI Schema",
		mcp.WithResourceDescription("OpenAPI description of the CourseRate HTTP API"),
		mcp.WithMIMEType(schemaMIMEType),
	)
}

func (r *SchemaResources) InfoResource() mcp.Resource {
	return mcp.NewResource(serverInfoResource, "Server Info",
		mcp.WithResourceDescription("MCP server metadata and capabilities"),
		mcp.WithMIMEType(schemaMIMEType),
	)
}

func (r *SchemaResources) OpenAPIReadHandler() readHandler {
	return textHandler(openAPIResource, "load openapi", &r.openAPI)
}

func (r *SchemaResources) InfoReadHandler(info ServerInfo) readHandler {
	return textHandler(serverInfoResource, "load server info", &lazyText{
		load: func() ([]byte, error) { return json.Marshal(info) },
	})
}

func textHandler(uri, op string, body *lazyText) readHandler {
	return func(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := body.get()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return textContents(request, uri, schemaMIMEType, text), nil
	}
}

// textContents echoes the requested URI when the client sent one.
func textContents(request mcp.ReadResourceRequest, uri, mimeType, text string) []mcp.ResourceContents {
	if request.Params.URI != "" {
		uri = request.Params.URI
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: mimeType, Text: text},
	}
}
