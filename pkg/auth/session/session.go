// Package session keeps one refresh session per issued access token in
// redis. The access token's jti is the key; the refresh token itself is only
// stored as a SHA-256 digest.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/secretoheladeria/heladeria-backend/pkg/config"
	pkgredis "github.com/secretoheladeria/heladeria-backend/pkg/redis"
)

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errMissingAccessID     = errors.New("access id is required")
)

// AccessSessionChecker is what request authentication needs: a token whose
// session was revoked or rotated away must be refused.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

type entry struct {
	UserID     uuid.UUID `json:"user_id"`
	Digest     string    `json:"digest"`
	IssuedAt   time.Time `json:"issued_at"`
	Generation int       `json:"generation"`
}

// Rotation is the outcome of a successful refresh.
type Rotation struct {
	AccessID     string
	RefreshToken string
	UserID       uuid.UUID
}

type Manager struct {
	store store
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(client *pkgredis.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("session: redis client is required")
	}
	return newManager(client, cfg)
}

func newManager(s store, cfg config.JWTConfig) (*Manager, error) {
	ttl := cfg.RefreshTokenTTL()
	switch {
	case ttl <= 0:
		return nil, errors.New("session: refresh token ttl must be positive")
	case ttl <= cfg.AccessTokenTTL():
		return nil, fmt.Errorf("session: refresh ttl %s must outlive access ttl %s", ttl, cfg.AccessTokenTTL())
	}
	return &Manager{store: s, ttl: ttl, now: time.Now}, nil
}

// NewAccessID mints the jti that keys a session.
func NewAccessID() string {
	return uuid.NewString()
}

// Issue opens a session for accessID and returns the refresh token the
// client must present to rotate it.
func (m *Manager) Issue(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", errors.New("session: user id is required")
	}
	return m.issue(ctx, accessID, userID, 0)
}

// Rotate trades a valid (accessID, refresh token) pair for a new pair. The
// old session is removed, so each refresh token works exactly once.
func (m *Manager) Rotate(ctx context.Context, accessID, refreshToken string) (Rotation, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return Rotation{}, ErrInvalidRefreshToken
	}
	current, err := m.load(ctx, accessID)
	if err != nil {
		return Rotation{}, err
	}
	if subtle.ConstantTimeCompare([]byte(current.Digest), []byte(digest(refreshToken))) != 1 {
		return Rotation{}, ErrInvalidRefreshToken
	}

	next := NewAccessID()
	token, err := m.issue(ctx, next, current.UserID, current.Generation+1)
	if err != nil {
		return Rotation{}, err
	}
	if err := m.store.Del(ctx, m.store.AccessSessionKey(accessID)); err != nil {
		return Rotation{}, fmt.Errorf("drop rotated session: %w", err)
	}
	return Rotation{AccessID: next, RefreshToken: token, UserID: current.UserID}, nil
}

// Revoke ends the session; revoking an unknown id is not an error.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errMissingAccessID
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	_, err := m.load(ctx, accessID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrInvalidRefreshToken):
		return false, nil
	default:
		return false, err
	}
}

func (m *Manager) issue(ctx context.Context, accessID string, userID uuid.UUID, generation int) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errMissingAccessID
	}
	token, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(entry{
		UserID:     userID,
		Digest:     digest(token),
		IssuedAt:   m.now().UTC(),
		Generation: generation,
	})
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(payload), m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// load maps a missing or unreadable session to ErrInvalidRefreshToken.
func (m *Manager) load(ctx context.Context, accessID string) (entry, error) {
	if strings.TrimSpace(accessID) == "" {
		return entry{}, ErrInvalidRefreshToken
	}
	raw, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	if errors.Is(err, goredis.Nil) {
		return entry{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return entry{}, err
	}
	var e entry
	if json.Unmarshal([]byte(raw), &e) != nil || e.Digest == "" {
		return entry{}, ErrInvalidRefreshToken
	}
	return e, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
