// Package session authenticates principals and gates operations by role.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/and161185/timetill/internal/crypto"
	"github.com/and161185/timetill/internal/errs"
	"github.com/and161185/timetill/internal/limiter"
	"github.com/and161185/timetill/internal/model"
	"github.com/and161185/timetill/internal/store"
)

// Manager verifies credentials and issues/validates session tokens.
// A token stands in for the browser tab session of the original: it expires
// on its own and is never written into the persisted document.
type Manager struct {
	store    *store.Store
	verifier crypto.Verifier
	lim      limiter.Limiter
	signKey  []byte
	ttl      time.Duration
	log      *zap.Logger
}

// NewManager constructs a session manager with required dependencies.
func NewManager(st *store.Store, verifier crypto.Verifier, lim limiter.Limiter, signKey []byte, ttl time.Duration, log *zap.Logger) *Manager {
	return &Manager{store: st, verifier: verifier, lim: lim, signKey: signKey, ttl: ttl, log: log}
}

type claims struct {
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
	jwt.RegisteredClaims
}

// Login authenticates username/password from the given source (terminal,
// host) and returns a signed session token plus the principal. Lookup
// failures and wrong passwords are both reported as ErrUnauthorized so the
// existence of an account is not revealed.
func (m *Manager) Login(ctx context.Context, username, password, source string) (string, model.Session, error) {
	srcHash := limiter.HashSource(source)

	allowed, _, err := m.lim.Allow(ctx, username, srcHash)
	if err != nil {
		return "", model.Session{}, err
	}
	if !allowed {
		return "", model.Session{}, errs.ErrRateLimited
	}

	doc := m.store.Snapshot()
	u := doc.UserByName(username)
	if u == nil || len(u.CredentialHash) == 0 ||
		!m.verifier.Verify([]byte(password), u.Salt, u.CredentialHash) {
		if blocked, _, ferr := m.lim.Failure(ctx, username, srcHash); ferr == nil && blocked {
			return "", model.Session{}, errs.ErrRateLimited
		}
		return "", model.Session{}, fmt.Errorf("%w: bad credentials", errs.ErrUnauthorized)
	}

	_ = m.lim.Success(ctx, username, srcHash)

	token, sess, err := m.issue(u)
	if err != nil {
		return "", model.Session{}, err
	}
	m.log.Info("login", zap.String("username", username), zap.Bool("admin", u.IsAdmin))
	return token, sess, nil
}

// Verify validates a session token and reconstructs the principal.
func (m *Manager) Verify(token string) (model.Session, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return model.Session{}, fmt.Errorf("%w: invalid session", errs.ErrUnauthorized)
	}
	uid, err := castSubject(c.Subject)
	if err != nil {
		return model.Session{}, fmt.Errorf("%w: invalid session subject", errs.ErrUnauthorized)
	}
	return model.Session{
		UserID:    uid,
		Username:  c.Username,
		IsAdmin:   c.Admin,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// issue creates a signed HS256 JWT for the given user.
func (m *Manager) issue(u *model.User) (string, model.Session, error) {
	now := time.Now()
	exp := now.Add(m.ttl)
	jti, err := uuid.NewV4()
	if err != nil {
		return "", model.Session{}, err
	}
	c := claims{
		Username: u.Username,
		Admin:    u.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", u.ID),
			ID:        jti.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := tok.SignedString(m.signKey)
	if err != nil {
		return "", model.Session{}, err
	}
	return signed, model.Session{UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin, ExpiresAt: exp}, nil
}

func castSubject(sub string) (int64, error) {
	var id int64
	_, err := fmt.Sscanf(sub, "%d", &id)
	return id, err
}

// RequireUser fails closed when there is no authenticated principal.
func RequireUser(s *model.Session) error {
	if s == nil {
		return fmt.Errorf("%w: login required", errs.ErrUnauthorized)
	}
	return nil
}

// RequireAdmin fails closed when the principal is absent or not an admin.
func RequireAdmin(s *model.Session) error {
	if s == nil || !s.IsAdmin {
		return fmt.Errorf("%w: admin role required", errs.ErrUnauthorized)
	}
	return nil
}
