package server

import (
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/lakeops/bridge/internal/job"
	"github.com/lakeops/bridge/internal/workspace"
)

// sessionCookie names the cookie that ties a browser to its run
const sessionCookie = "bridge_session"

// session is the explicit per-session context object: the active run plus
// the most recent result of each step. It is resolved per request and
// passed to the operations that need it.
type session struct {
	id string

	mu            sync.Mutex
	lastAnalyze   *job.Result
	lastTranspile *job.Result
}

func (sn *session) recordResult(result job.Result) {
	sn.mu.Lock()
	defer sn.mu.Unlock()
	// Each invocation supersedes the previous result for its step
	switch result.Step {
	case job.StepAnalyze:
		sn.lastAnalyze = &result
	case job.StepTranspile:
		sn.lastTranspile = &result
	}
}

func (sn *session) results() (analyze, transpile *job.Result) {
	sn.mu.Lock()
	defer sn.mu.Unlock()
	return sn.lastAnalyze, sn.lastTranspile
}

// resolveSession finds or creates the request's session, setting the
// session cookie on first contact.
func (s *Server) resolveSession(w http.ResponseWriter, r *http.Request) *session {
	var id string
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		id = cookie.Value
	} else {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		return existing
	}
	created := &session{id: id}
	s.sessions[id] = created
	return created
}

// sessionRun resolves the session's run workspace, allocating one when the
// session has none yet.
func (s *Server) sessionRun(sn *session) (*workspace.Run, error) {
	return s.manager.CreateOrGet(sn.id)
}
