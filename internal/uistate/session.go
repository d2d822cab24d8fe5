package uistate

import (
	"sync"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/session/domain"
)

// SessionNotifier returns a session listener that posts a notification when the session is
// established or lost. Intermediate updates (loading, refresh) are ignored.
func SessionNotifier(s *Store) func(*domain.Session) {
	var mu sync.Mutex
	last := domain.StatusUnauthenticated
	return func(sess *domain.Session) {
		mu.Lock()
		prev := last
		last = sess.Status
		mu.Unlock()
		if prev == sess.Status {
			return
		}
		switch {
		case sess.Status == domain.StatusAuthenticated && prev == domain.StatusUnauthenticated:
			name := ""
			if sess.User != nil {
				name = sess.User.FullName
			}
			s.Notify(LevelSuccess, "Signed in", name)
		case sess.Status == domain.StatusUnauthenticated:
			s.Notify(LevelWarning, "Signed out", "Your session has ended. Sign in again to continue.")
		}
	}
}
