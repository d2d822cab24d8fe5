package service

import (
	"context"
	"time"
)

// Start runs the background refresher until ctx is cancelled or Stop is called. While the session
// is authenticated it calls Refresh when the token pair reaches its refresh point (RefreshInterval
// after it was obtained); a session change reschedules the timer.
// Calling Start while running is a no-op.
func (m *Manager) Start(ctx context.Context) {
	m.bgMu.Lock()
	defer m.bgMu.Unlock()
	if m.bgCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.bgCancel = cancel
	m.bgDone = done
	go func() {
		defer close(done)
		m.run(ctx)
	}()
}

// Stop stops the background refresher and waits for it to exit.
func (m *Manager) Stop() {
	m.bgMu.Lock()
	cancel, done := m.bgCancel, m.bgDone
	m.bgCancel, m.bgDone = nil, nil
	m.bgMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *Manager) run(ctx context.Context) {
	for {
		var tick <-chan time.Time
		var timer *time.Timer
		m.mu.Lock()
		if m.session.IsAuthenticated() {
			timer = time.NewTimer(m.nextRefreshIn(m.session.Tokens))
			tick = timer.C
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-m.changed:
			if timer != nil {
				timer.Stop()
			}
		case <-tick:
			m.Refresh(ctx)
		}
	}
}
