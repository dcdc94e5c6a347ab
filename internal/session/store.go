// Package session keeps live login sessions in memory.
package session

import (
	"time"

	"github.com/jellydator/ttlcache/v3"

	"cm-admin/internal/domain"
)

var _ domain.SessionStore = (*Store)(nil)

// Store is a domain.SessionStore backed by a TTL cache. Reads do not extend
// a session's lifetime.
type Store struct {
	cache *ttlcache.Cache[string, domain.Session]
}

// NewStore creates an empty store. defaultTTL applies to Put calls with a
// zero ttl.
func NewStore(defaultTTL time.Duration) *Store {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, domain.Session](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, domain.Session](),
	)
	return &Store{cache: cache}
}

// Get returns the live session with id.
func (s *Store) Get(id string) (domain.Session, bool) {
	item := s.cache.Get(id)
	if item == nil {
		return domain.Session{}, false
	}
	return item.Value(), true
}

// Put stores sess under its id.
func (s *Store) Put(sess domain.Session, ttl time.Duration) {
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}
	s.cache.Set(sess.ID, sess, ttl)
}

// Delete removes the session with id, if any.
func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

// DeleteExpired drops every expired session.
func (s *Store) DeleteExpired() {
	s.cache.DeleteExpired()
}

// Len returns the number of stored sessions, expired ones included until the
// next sweep.
func (s *Store) Len() int {
	return s.cache.Len()
}
