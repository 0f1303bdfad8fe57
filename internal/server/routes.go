package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Jobs
	mux.HandleFunc("/api/jobs", s.app.JobHandler.CreateJobHandler) // POST - create analysis job
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes)                // GET/POST /{id} and subpaths

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler) // GET - service health

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not found", http.StatusNotFound)
	})

	return mux
}

// handleJobRoutes routes /api/jobs/{id} requests to the appropriate handler
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// POST /api/jobs/{id}/enrich
	if r.Method == "POST" && strings.HasSuffix(path, "/enrich") {
		s.app.JobHandler.EnrichJobHandler(w, r)
		return
	}

	// POST /api/jobs/{id}/paid
	if r.Method == "POST" && strings.HasSuffix(path, "/paid") {
		s.app.JobHandler.MarkPaidHandler(w, r)
		return
	}

	// GET /api/jobs/{id}
	if r.Method == "GET" && len(path) > len("/api/jobs/") {
		s.app.JobHandler.GetJobHandler(w, r)
		return
	}

	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}
