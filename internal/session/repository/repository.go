package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/session/domain"
)

// Persisted session keys. Values are JSON documents.
const (
	KeyTokens       = "singlebrief.tokens"
	KeyUser         = "singlebrief.user"
	KeyOrganization = "singlebrief.organization"
)

// SessionKeys lists every key the session occupies.
var SessionKeys = []string{KeyTokens, KeyUser, KeyOrganization}

// ErrCorruptSession is returned by Load when stored entries cannot be decoded or are incomplete.
var ErrCorruptSession = errors.New("stored session is corrupt or incomplete")

// Batch is a set of writes and deletes applied atomically by a KV.
type Batch struct {
	Set    map[string]string
	Delete []string
}

// KV is a durable, string-keyed key-value store. Write must apply the whole batch or none of it.
type KV interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Write(ctx context.Context, b Batch) error
	Close() error
}

// Repository persists the session.
type Repository interface {
	// Load returns the stored session, or nil when nothing is stored.
	Load(ctx context.Context) (*domain.Session, error)
	// Save replaces the stored session atomically.
	Save(ctx context.Context, s *domain.Session) error
	// Clear removes every session key atomically.
	Clear(ctx context.Context) error
}

// KVRepository implements Repository on top of a KV.
type KVRepository struct {
	kv KV
}

// NewKVRepository returns a session repository backed by kv.
func NewKVRepository(kv KV) *KVRepository {
	return &KVRepository{kv: kv}
}

// Load reads the three session keys. Missing tokens and user means no session.
func (r *KVRepository) Load(ctx context.Context) (*domain.Session, error) {
	rawTokens, hasTokens, err := r.kv.Get(ctx, KeyTokens)
	if err != nil {
		return nil, err
	}
	rawUser, hasUser, err := r.kv.Get(ctx, KeyUser)
	if err != nil {
		return nil, err
	}
	if !hasTokens && !hasUser {
		return nil, nil
	}
	if !hasTokens || !hasUser {
		return nil, ErrCorruptSession
	}
	var tokens domain.Tokens
	if err := json.Unmarshal([]byte(rawTokens), &tokens); err != nil || !tokens.Valid() {
		return nil, ErrCorruptSession
	}
	var user domain.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil || user.ID == "" {
		return nil, ErrCorruptSession
	}
	s := &domain.Session{User: &user, Tokens: &tokens, Status: domain.StatusRestored}

	rawOrg, hasOrg, err := r.kv.Get(ctx, KeyOrganization)
	if err != nil {
		return nil, err
	}
	if hasOrg {
		var org domain.Organization
		if err := json.Unmarshal([]byte(rawOrg), &org); err != nil {
			return nil, ErrCorruptSession
		}
		s.Organization = &org
	}
	return s, nil
}

// Save writes tokens, user and organization in one batch. A nil organization deletes the stored one.
func (r *KVRepository) Save(ctx context.Context, s *domain.Session) error {
	if s == nil || !s.HasCredentials() {
		return errors.New("repository: session without tokens or user cannot be saved")
	}
	b := Batch{Set: make(map[string]string, 3)}
	if err := putJSON(b.Set, KeyTokens, s.Tokens); err != nil {
		return err
	}
	if err := putJSON(b.Set, KeyUser, s.User); err != nil {
		return err
	}
	if s.Organization != nil {
		if err := putJSON(b.Set, KeyOrganization, s.Organization); err != nil {
			return err
		}
	} else {
		b.Delete = []string{KeyOrganization}
	}
	return r.kv.Write(ctx, b)
}

// Clear deletes all session keys in one batch.
func (r *KVRepository) Clear(ctx context.Context) error {
	return r.kv.Write(ctx, Batch{Delete: SessionKeys})
}

func putJSON(m map[string]string, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("repository: encode %s: %w", key, err)
	}
	m[key] = string(raw)
	return nil
}
