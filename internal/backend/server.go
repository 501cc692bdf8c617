// Package backend is the reference agent and compliance backend the console
// talks to: the task API, the MCC reference list and finalization, the
// preview proxy, and the worker that runs queued scans.
package backend

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sells-group/agent-console/internal/httpx"
	"github.com/sells-group/agent-console/internal/model"
	"github.com/sells-group/agent-console/internal/store"
	"github.com/sells-group/agent-console/pkg/compliance"
)

// MaxPageSize caps the limit a task listing may ask for.
const MaxPageSize = 100

// DefaultAction is recorded when a submission names no action.
const DefaultAction = model.ActionSiteScan

// Server serves the backend API.
type Server struct {
	store  store.Store
	proxy  http.Handler
	router chi.Router
}

// NewServer wires the API routes. proxy serves the preview route; nil
// disables it.
func NewServer(st store.Store, proxy http.Handler) *Server {
	s := &Server{store: st, proxy: proxy, router: chi.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httpx.RequestLogger("backend"))
	r.Use(httpx.CORS(nil))

	r.Get("/health", httpx.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/agents", s.handleListAgents)
		r.Post("/agents/{type}/execute", s.handleExecute)

		r.Get("/tasks", s.handleListTasks)
		r.Get("/tasks/{id}", s.handleGetTask)
		r.Get("/tasks/{id}/mcc", s.handleGetMccDecision)
		r.Post("/tasks/{id}/mcc", s.handleFinalizeMcc)

		r.Get("/mccs", s.handleListMccs)
	})

	if s.proxy != nil {
		r.Method(http.MethodGet, compliance.ProxyPath, s.proxy)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
