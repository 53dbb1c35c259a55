package session

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Session is one registry entry. Its fields may only be touched while the session is locked.
type Session struct {
	mu    sync.Mutex
	State *State
	// Flash holds notices produced by an action, shown on the next render.
	Flash []Notice
}

// TakeFlash returns and clears the pending notices.
func (s *Session) TakeFlash() []Notice {
	notices := s.Flash
	s.Flash = nil
	return notices
}

// Registry keeps session state in memory. Idle sessions expire after the TTL.
type Registry struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{cache: cache.New(ttl, 10*time.Minute)}
}

// Lock returns the session for id, creating it on first use, and holds its lock
// until release is called. Events for one session are therefore handled one at a time.
func (r *Registry) Lock(id string) (sess *Session, release func()) {
	r.mu.Lock()
	if x, found := r.cache.Get(id); found {
		sess = x.(*Session)
	} else {
		sess = &Session{State: NewState()}
	}
	r.cache.Set(id, sess, cache.DefaultExpiration)
	r.mu.Unlock()

	sess.mu.Lock()
	return sess, sess.mu.Unlock
}

func (r *Registry) Delete(id string) {
	r.cache.Delete(id)
}

func (r *Registry) Len() int {
	return r.cache.ItemCount()
}
