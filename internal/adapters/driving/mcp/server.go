// Package mcp exposes propdocs to AI assistants over the Model Context
// Protocol: search, analysis and cited answers as tools, documents and
// analyses as resources.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
)

var (
	// ErrMissingSearchService is returned by NewServer without a search port.
	ErrMissingSearchService = errors.New("mcp: search service is required")

	// errServiceUnavailable is returned by tools whose port was not wired.
	errServiceUnavailable = errors.New("service not available")
)

const instructions = `Every tool and resource is scoped to a property (owner_id).
Use search_documents to find passages, ask for a cited answer, and
analyze_document for a full report on one document.`

const shutdownGrace = 5 * time.Second

// Ports are the services the server drives. Search is required; tools
// and resources backed by a missing port report it as unavailable.
type Ports struct {
	Search    driving.SearchService
	Documents driving.DocumentService
	Analysis  driving.AnalysisService
	Chat      driving.ChatService
	Entities  driving.EntityService
}

// Validate checks the required ports.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}

// Server is the propdocs MCP server.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer registers the tools and resources for ports. version is
// reported to clients during initialisation.
func NewServer(ports *Ports, version string) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	if version == "" {
		version = "dev"
	}

	s := &Server{
		ports: ports,
		server: mcp.NewServer(
			&mcp.Implementation{Name: "propdocs", Version: version},
			&mcp.ServerOptions{Instructions: instructions},
		),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves a single client over stdio until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler serves the streamable HTTP transport.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP listens on addr and serves Handler until ctx ends.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
