// Package api exposes the HTTP chat endpoint that drives the advisory
// conversation flow. It owns conversation lookup, per-id serialization, and
// the mapping of flow errors to HTTP responses; the flow semantics live in
// internal/advisor/flow.
package api

import (
	"net/http"
	"sync"

	"github.com/FinMentor-core-poc-v1/server/internal/advisor/flow"
	"github.com/FinMentor-core-poc-v1/server/internal/advisor/model"
)

type Server struct {
	store   model.ConversationStore
	machine *flow.Machine
	mux     *http.ServeMux

	// Concurrent requests against the same conversation id must be
	// serialized; the state is not designed for concurrent mutation.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewServer(store model.ConversationStore, machine *flow.Machine) *Server {
	s := &Server{
		store:   store,
		machine: machine,
		mux:     http.NewServeMux(),
		locks:   make(map[string]*sync.Mutex),
	}
	s.mux.HandleFunc("/chat", s.chatHandler)
	s.mux.HandleFunc("/health", s.healthHandler)
	return s
}

// Handler returns the root http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// lockConversation acquires the per-conversation mutex and returns its
// release function. Distinct ids proceed fully in parallel.
func (s *Server) lockConversation(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
