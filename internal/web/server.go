// Package web provides an HTTP status server for the heatmon daemon.
// Besides the status page it serves each exposed variable on its own path,
// so pollers can read zone_events and the counters without MQTT.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/heatmon/internal/status"
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	log        *logrus.Entry
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{tracker: tracker, log: log.WithField("component", "web")}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("GET /v1/variables", s.handleVariables)
	mux.HandleFunc("GET /v1/variables/{name}", s.handleVariable)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		s.log.WithError(err).Warn("render status page")
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// VariablesJSON lists the exposed variables and their types.
type VariablesJSON struct {
	Variables map[string]string `json:"variables"`
}

// VariableJSON is the response for a single variable.
type VariableJSON struct {
	Name   string `json:"name"`
	Result any    `json:"result"`
}

func (s *Server) handleVariables(w http.ResponseWriter, r *http.Request) {
	vars := status.Variables(s.tracker.Snapshot())
	out := VariablesJSON{Variables: make(map[string]string, len(vars))}
	for _, v := range vars {
		out.Variables[v.Name] = typeName(v.Value)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleVariable(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	v, ok := status.Lookup(s.tracker.Snapshot(), name)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "variable not found",
			"name":  name,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, VariableJSON{Name: v.Name, Result: v.Value})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.WithError(err).Warn("write response")
	}
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case int64:
		return "int64"
	default:
		return "int32"
	}
}
