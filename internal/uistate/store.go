// Package uistate holds the front end's view state: sidebar, theme and notifications.
// Each front end creates its own Store; there is no package-level instance.
package uistate

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Theme is the colour scheme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// ParseTheme accepts light, dark or system in any case.
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, nil
	}
	return "", ErrInvalidTheme
}

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

var (
	ErrInvalidTheme         = errors.New("uistate: theme must be light, dark or system")
	ErrNotificationNotFound = errors.New("uistate: notification not found")
)

// Notification is one entry of the notification tray.
type Notification struct {
	ID        string
	Level     Level
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
}

// Snapshot is a copy of the store's state. Notifications are newest first.
type Snapshot struct {
	SidebarOpen   bool
	Theme         Theme
	Notifications []Notification
	Unread        int
	Version       uint64
}

// Listener is called after every change, outside the store's lock.
type Listener func(Snapshot)

// Options configures a Store.
type Options struct {
	// MaxNotifications caps the tray; the oldest entries are dropped first. Default 50.
	MaxNotifications int
	Theme            Theme
	Now              func() time.Time
}

// Store is safe for concurrent use.
type Store struct {
	max int
	now func() time.Time

	mu            sync.Mutex
	sidebarOpen   bool
	theme         Theme
	notifications []Notification
	version       uint64
	listeners     map[int]Listener
	nextID        int
}

// New returns a Store with the sidebar open and the given theme (system by default).
func New(opts Options) *Store {
	if opts.MaxNotifications <= 0 {
		opts.MaxNotifications = 50
	}
	if opts.Theme == "" {
		opts.Theme = ThemeSystem
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		max:         opts.MaxNotifications,
		now:         opts.Now,
		sidebarOpen: true,
		theme:       opts.Theme,
		listeners:   make(map[int]Listener),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		SidebarOpen:   s.sidebarOpen,
		Theme:         s.theme,
		Notifications: make([]Notification, 0, len(s.notifications)),
		Version:       s.version,
	}
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if !n.Read {
			snap.Unread++
		}
		snap.Notifications = append(snap.Notifications, n)
	}
	return snap
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// update runs fn under the lock; when fn reports a change the version is bumped and
// listeners are notified.
func (s *Store) update(fn func() bool) {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return
	}
	s.version++
	snap := s.snapshotLocked()
	fns := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		fns = append(fns, l)
	}
	s.mu.Unlock()
	for _, l := range fns {
		l(snap)
	}
}

// ToggleSidebar flips the sidebar between open and collapsed.
func (s *Store) ToggleSidebar() {
	s.update(func() bool {
		s.sidebarOpen = !s.sidebarOpen
		return true
	})
}

// SetSidebarOpen opens or collapses the sidebar.
func (s *Store) SetSidebarOpen(open bool) {
	s.update(func() bool {
		if s.sidebarOpen == open {
			return false
		}
		s.sidebarOpen = open
		return true
	})
}

// SetTheme changes the theme.
func (s *Store) SetTheme(t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	s.update(func() bool {
		if s.theme == t {
			return false
		}
		s.theme = t
		return true
	})
	return nil
}

// Notify adds an unread notification and returns its ID.
func (s *Store) Notify(level Level, title, body string) string {
	if level == "" {
		level = LevelInfo
	}
	n := Notification{
		ID:        uuid.New().String(),
		Level:     level,
		Title:     title,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}
	s.update(func() bool {
		s.notifications = append(s.notifications, n)
		if over := len(s.notifications) - s.max; over > 0 {
			s.notifications = append([]Notification(nil), s.notifications[over:]...)
		}
		return true
	})
	return n.ID
}

// MarkRead marks one notification read.
func (s *Store) MarkRead(id string) error {
	err := ErrNotificationNotFound
	s.update(func() bool {
		i := s.indexLocked(id)
		if i < 0 {
			return false
		}
		err = nil
		if s.notifications[i].Read {
			return false
		}
		s.notifications[i].Read = true
		return true
	})
	return err
}

// MarkAllRead marks every notification read.
func (s *Store) MarkAllRead() {
	s.update(func() bool {
		changed := false
		for i := range s.notifications {
			if !s.notifications[i].Read {
				s.notifications[i].Read = true
				changed = true
			}
		}
		return changed
	})
}

// Dismiss removes one notification.
func (s *Store) Dismiss(id string) error {
	err := ErrNotificationNotFound
	s.update(func() bool {
		i := s.indexLocked(id)
		if i < 0 {
			return false
		}
		err = nil
		s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
		return true
	})
	return err
}

// Clear removes every notification.
func (s *Store) Clear() {
	s.update(func() bool {
		if len(s.notifications) == 0 {
			return false
		}
		s.notifications = nil
		return true
	})
}

func (s *Store) indexLocked(id string) int {
	for i, n := range s.notifications {
		if n.ID == id {
			return i
		}
	}
	return -1
}
