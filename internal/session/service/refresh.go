package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/security"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/session/domain"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/telemetry"
)

// minRefreshInterval keeps a tiny or bogus lifetime from spinning the refresher.
const minRefreshInterval = 10 * time.Millisecond

// Refresh validates the session and renews the token pair when needed. It never fails: success
// leaves the session authenticated, any failure (rejection or network error) clears it.
//
// The access token is probed with GET /me. When the probe is rejected, or the token has passed
// its refresh point, exactly one POST /refresh is made and the new token is probed again.
// Concurrent calls share one execution. Refresh is a no-op without stored credentials.
// Cancelling ctx stops the wait, not the shared execution.
func (m *Manager) Refresh(ctx context.Context) {
	m.mu.Lock()
	has := m.session.HasCredentials()
	m.mu.Unlock()
	if !has {
		return
	}
	ch := m.refreshGroup.DoChan("refresh", func() (interface{}, error) {
		m.refresh(context.WithoutCancel(ctx))
		return nil, nil
	})
	select {
	case <-ch:
	case <-ctx.Done():
	}
}

func (m *Manager) refresh(ctx context.Context) {
	ctx, span := m.tracer.Start(ctx, "session.refresh")
	defer span.End()

	m.mu.Lock()
	cur := m.session.Clone()
	epoch := m.epoch
	m.mu.Unlock()
	if !cur.HasCredentials() {
		return
	}

	m.setLoading(1)
	defer m.setLoading(-1)

	tokens := cur.Tokens
	user, probeErr := m.auth.Me(ctx, tokens.AccessToken)
	rotated := false
	if probeErr != nil || m.due(tokens) {
		if probeErr != nil {
			m.logger.Debug("session: access token rejected; refreshing", zap.Error(probeErr))
		}
		next, err := m.auth.Refresh(ctx, tokens.RefreshToken)
		if err != nil {
			m.failRefresh(ctx, epoch, cur, "refresh", err)
			span.SetStatus(codes.Error, "refresh rejected")
			return
		}
		next.ObtainedAt = m.now().UTC()
		if user, err = m.auth.Me(ctx, next.AccessToken); err != nil {
			m.failRefresh(ctx, epoch, cur, "revalidate", err)
			span.SetStatus(codes.Error, "revalidation failed")
			return
		}
		tokens = next
		rotated = true
	}

	updated := &domain.Session{
		User:         user,
		Organization: cur.Organization,
		Tokens:       tokens,
		Status:       domain.StatusAuthenticated,
		ValidatedAt:  m.now().UTC(),
	}
	if !m.applyIfCurrent(ctx, epoch, updated) {
		m.logger.Debug("session: discarding refresh result for a replaced session")
		return
	}
	span.SetAttributes(attribute.Bool("session.rotated", rotated))
	m.refreshs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "success"), attribute.Bool("rotated", rotated)))
	if rotated {
		m.emit(ctx, telemetry.EventRefresh, updated, "", nil)
	}
}

// applyIfCurrent persists and installs s unless a login, logout or other refresh replaced the
// session since epoch was read. A persistence failure clears the session.
func (m *Manager) applyIfCurrent(ctx context.Context, epoch uint64, s *domain.Session) bool {
	m.writeMu.Lock()
	m.mu.Lock()
	stale := m.epoch != epoch
	m.mu.Unlock()
	if stale {
		m.writeMu.Unlock()
		return false
	}
	if err := m.repo.Save(ctx, s); err != nil {
		m.writeMu.Unlock()
		m.logger.Error("session: persist refreshed session", zap.Error(err))
		m.clear(ctx, "persist_failure")
		return false
	}
	m.mu.Lock()
	m.session = s
	m.epoch++
	m.mu.Unlock()
	m.writeMu.Unlock()

	m.notify()
	m.signalChanged()
	return true
}

func (m *Manager) failRefresh(ctx context.Context, epoch uint64, cur *domain.Session, stage string, err error) {
	m.refreshs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failure"), attribute.String("stage", stage)))
	m.emit(ctx, telemetry.EventRefreshFailure, cur, err.Error(), map[string]string{"stage": stage})

	m.mu.Lock()
	stale := m.epoch != epoch
	m.mu.Unlock()
	if stale {
		m.logger.Debug("session: refresh failed for a replaced session; keeping the new one", zap.Error(err))
		return
	}
	m.logger.Warn("session: refresh failed; signing out", zap.String("stage", stage), zap.Error(err))
	m.clear(ctx, "refresh_failure")
}

// lifetime is expires_in when given, else the JWT exp claim relative to when the pair was obtained,
// else the configured default.
func (m *Manager) lifetime(t *domain.Tokens) time.Duration {
	if d := t.Lifetime(); d > 0 {
		return d
	}
	if exp, err := security.PeekExpiry(t.AccessToken); err == nil {
		from := t.ObtainedAt
		if from.IsZero() {
			from = m.now()
		}
		if d := exp.Sub(from); d > 0 {
			return d
		}
	}
	return m.ttl
}

// RefreshInterval is RefreshRatio times the lifetime of t.
func (m *Manager) RefreshInterval(t *domain.Tokens) time.Duration {
	d := time.Duration(float64(m.lifetime(t)) * m.ratio)
	if d < minRefreshInterval {
		d = minRefreshInterval
	}
	return d
}

// nextRefreshIn is the time left until t reaches its refresh point, or a full interval when the
// age of t is unknown.
func (m *Manager) nextRefreshIn(t *domain.Tokens) time.Duration {
	interval := m.RefreshInterval(t)
	if t.ObtainedAt.IsZero() {
		return interval
	}
	d := t.ObtainedAt.Add(interval).Sub(m.now())
	if d < minRefreshInterval {
		d = minRefreshInterval
	}
	return d
}

// due reports whether t has reached its refresh point. Pairs of unknown age are never due.
func (m *Manager) due(t *domain.Tokens) bool {
	if t.ObtainedAt.IsZero() {
		return false
	}
	return !m.now().Before(t.ObtainedAt.Add(m.RefreshInterval(t)))
}
