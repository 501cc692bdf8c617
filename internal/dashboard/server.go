// Package dashboard serves the agent console: the agent pages, the live
// Market Research task history, the report viewer with MCC finalization,
// and the site preview.
package dashboard

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rotisserie/eris"

	"github.com/sells-group/agent-console/internal/catalog"
	"github.com/sells-group/agent-console/internal/httpx"
	"github.com/sells-group/agent-console/internal/pager"
	"github.com/sells-group/agent-console/pkg/agentapi"
	"github.com/sells-group/agent-console/pkg/compliance"
)

// Config holds the console settings the handlers need.
type Config struct {
	// PageSize is the task history page size.
	PageSize int
	// Operator is recorded as selected_by on MCC decisions.
	Operator string
	// ProxyBase is the compliance backend that serves the preview proxy.
	ProxyBase string
}

// Server serves the console pages.
type Server struct {
	agents     agentapi.Client
	compliance compliance.Client
	catalog    *catalog.Catalog
	hub        *Hub
	views      *renderer
	pageSize   int
	operator   string
	proxyBase  string
	router     chi.Router
}

// NewServer wires the console routes.
func NewServer(cfg Config, agents agentapi.Client, comp compliance.Client, cat *catalog.Catalog, hub *Hub) (*Server, error) {
	if agents == nil || comp == nil || cat == nil {
		return nil, eris.New("dashboard: agents, compliance and catalog are required")
	}
	views, err := newRenderer()
	if err != nil {
		return nil, err
	}
	if hub == nil {
		hub = NewHub()
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = pager.DefaultLimit
	}
	if cfg.Operator == "" {
		cfg.Operator = "operator"
	}

	s := &Server{
		agents:     agents,
		compliance: comp,
		catalog:    cat,
		hub:        hub,
		views:      views,
		pageSize:   cfg.PageSize,
		operator:   cfg.Operator,
		proxyBase:  cfg.ProxyBase,
		router:     chi.NewRouter(),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httpx.RequestLogger("dashboard"))

	r.Get("/health", httpx.Health)
	r.Get("/", s.handleIndex)

	r.Route("/agents/{slug}", func(r chi.Router) {
		r.Get("/", s.handleAgent)
		r.Post("/tasks", s.handleCreateTask)
		r.Get("/export.xlsx", s.handleExport)
	})

	r.Get("/tasks/{id}/report", s.handleReport)
	r.Post("/tasks/{id}/mcc", s.handleFinalizeMcc)

	r.Get("/preview", s.handlePreview)
	r.Method(http.MethodGet, "/ws", s.hub)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.renderError(w, http.StatusNotFound, "Not found", "The page you asked for does not exist.")
	})
}

// Hub returns the event hub pages subscribe to.
func (s *Server) Hub() *Hub { return s.hub }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type errorView struct {
	Pages   []catalog.Page
	Title   string
	Message string
}

func (s *Server) renderError(w http.ResponseWriter, status int, title, msg string) {
	s.views.render(w, status, "error.html", errorView{Pages: s.catalog.Pages(), Title: title, Message: msg})
}

// upstreamStatus maps a backend error onto the status the console answers
// with.
func upstreamStatus(err error) int {
	var ae *agentapi.StatusError
	if errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound {
		return http.StatusNotFound
	}
	var ce *compliance.StatusError
	if errors.As(err, &ce) && ce.StatusCode < http.StatusInternalServerError {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}
