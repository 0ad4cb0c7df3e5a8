package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	sessionCookie = "site_session"
	sessionTTL    = 24 * time.Hour
)

// session is one browser's server-side state: its CSRF token, the chat
// session it accumulates history under, and whether the admin logged in.
type session struct {
	ID        string
	CSRFToken string
	ChatID    string
	Admin     bool
	CreatedAt time.Time
}

type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
	now      func() time.Time
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// ensure returns the request's session, creating one and setting the cookie
// when the browser has none. Expired sessions are replaced.
func (st *sessionStore) ensure(w http.ResponseWriter, r *http.Request) *session {
	if sess, ok := st.lookup(r); ok {
		return sess
	}

	sess := &session{
		ID:        uuid.NewString(),
		CSRFToken: uuid.NewString(),
		ChatID:    uuid.NewString(),
		CreatedAt: st.now(),
	}

	st.mu.Lock()
	st.prune()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// lookup returns the live session for the request's cookie, if any.
func (st *sessionStore) lookup(r *http.Request) (*session, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}

	st.mu.RLock()
	sess, ok := st.sessions[cookie.Value]
	st.mu.RUnlock()
	if !ok || st.now().Sub(sess.CreatedAt) > sessionTTL {
		return nil, false
	}
	return sess, true
}

func (st *sessionStore) setAdmin(id string, admin bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if sess, ok := st.sessions[id]; ok {
		sess.Admin = admin
	}
}

// prune drops expired sessions. Caller holds the write lock.
func (st *sessionStore) prune() {
	cutoff := st.now().Add(-sessionTTL)
	for id, sess := range st.sessions {
		if sess.CreatedAt.Before(cutoff) {
			delete(st.sessions, id)
		}
	}
}
