package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/timetill/internal/crypto"
	"github.com/and161185/timetill/internal/errs"
	"github.com/and161185/timetill/internal/ids"
	"github.com/and161185/timetill/internal/model"
	"github.com/and161185/timetill/internal/session"
	"github.com/and161185/timetill/internal/store"
)

// Users manages accounts and their access-time allowances.
type Users struct {
	store    *store.Store
	verifier crypto.Verifier
	ids      ids.Generator
	log      *zap.Logger
}

// NewUsers constructs the user service with required dependencies.
func NewUsers(st *store.Store, verifier crypto.Verifier, gen ids.Generator, log *zap.Logger) *Users {
	return &Users{store: st, verifier: verifier, ids: gen, log: log}
}

// Create registers a new regular user with the allowance resolved from sel.
// Open to self-registration, so no role guard. Rules:
//   - username at least 3 characters, exact-match unique (case-sensitive)
//   - password at least 4 characters
func (s *Users) Create(username, password string, sel Selection) (model.User, error) {
	if len(username) < 3 {
		return model.User{}, fmt.Errorf("%w: username must be at least 3 characters", errs.ErrValidation)
	}
	if len(password) < 4 {
		return model.User{}, fmt.Errorf("%w: password must be at least 4 characters", errs.ErrValidation)
	}

	salt, err := crypto.RandBytes(16)
	if err != nil {
		return model.User{}, err
	}

	var created model.User
	err = s.store.Update(func(doc *model.Document) error {
		if doc.UserByName(username) != nil {
			return fmt.Errorf("%w: username %q", errs.ErrAlreadyExists, username)
		}
		allowance, err := ResolveAllowance(sel, doc.Plans)
		if err != nil {
			return err
		}
		created = model.User{
			ID:               s.ids.Next(),
			Username:         username,
			CredentialHash:   s.verifier.Hash([]byte(password), salt),
			Salt:             salt,
			AllowanceMinutes: allowance,
			IsAdmin:          false,
			CreatedAt:        time.Now().UTC(),
		}
		doc.Users = append(doc.Users, created)
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	s.log.Info("user created", zap.String("username", username), zap.Int64("allowanceMinutes", created.AllowanceMinutes))
	return created, nil
}

// EnsureAdmin seeds the bootstrap admin account if no admin exists yet.
func (s *Users) EnsureAdmin(username, password string) error {
	if len(username) < 3 || len(password) < 4 {
		return fmt.Errorf("%w: bootstrap admin credentials too short", errs.ErrValidation)
	}
	salt, err := crypto.RandBytes(16)
	if err != nil {
		return err
	}
	return s.store.Update(func(doc *model.Document) error {
		for i := range doc.Users {
			if doc.Users[i].IsAdmin {
				return nil
			}
		}
		if doc.UserByName(username) != nil {
			return fmt.Errorf("%w: username %q", errs.ErrAlreadyExists, username)
		}
		doc.Users = append(doc.Users, model.User{
			ID:               s.ids.Next(),
			Username:         username,
			CredentialHash:   s.verifier.Hash([]byte(password), salt),
			Salt:             salt,
			AllowanceMinutes: 1,
			IsAdmin:          true,
			CreatedAt:        time.Now().UTC(),
		})
		return nil
	})
}

// Delete hard-removes a user. Admin only.
func (s *Users) Delete(principal *model.Session, username string) error {
	if err := session.RequireAdmin(principal); err != nil {
		return err
	}
	err := s.store.Update(func(doc *model.Document) error {
		for i := range doc.Users {
			if doc.Users[i].Username == username {
				doc.Users = append(doc.Users[:i], doc.Users[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: user %q", errs.ErrNotFound, username)
	})
	if err == nil {
		s.log.Info("user deleted", zap.String("username", username), zap.String("by", principal.Username))
	}
	return err
}

// SetAllowance overrides a user's allowance in minutes. Admin only;
// minutes must be at least 1.
func (s *Users) SetAllowance(principal *model.Session, username string, minutes int64) error {
	if err := session.RequireAdmin(principal); err != nil {
		return err
	}
	if minutes < 1 {
		return fmt.Errorf("%w: allowance must be at least 1 minute", errs.ErrValidation)
	}
	return s.store.Update(func(doc *model.Document) error {
		u := doc.UserByName(username)
		if u == nil {
			return fmt.Errorf("%w: user %q", errs.ErrNotFound, username)
		}
		u.AllowanceMinutes = minutes
		return nil
	})
}

// SetPassword re-hashes the credential with a fresh salt. A user may change
// their own password; admins may change anyone's.
func (s *Users) SetPassword(principal *model.Session, username, newPassword string) error {
	if err := session.RequireUser(principal); err != nil {
		return err
	}
	if !principal.IsAdmin && principal.Username != username {
		return fmt.Errorf("%w: cannot change another user's password", errs.ErrUnauthorized)
	}
	if len(newPassword) < 4 {
		return fmt.Errorf("%w: password must be at least 4 characters", errs.ErrValidation)
	}
	salt, err := crypto.RandBytes(16)
	if err != nil {
		return err
	}
	return s.store.Update(func(doc *model.Document) error {
		u := doc.UserByName(username)
		if u == nil {
			return fmt.Errorf("%w: user %q", errs.ErrNotFound, username)
		}
		u.Salt = salt
		u.CredentialHash = s.verifier.Hash([]byte(newPassword), salt)
		return nil
	})
}

// List returns all users.
func (s *Users) List() []model.User {
	doc := s.store.Snapshot()
	return doc.Users
}

// Export writes the full users collection, pretty-printed, into dir.
// The filename carries the current date. Admin only. Returns the file path.
func (s *Users) Export(principal *model.Session, dir string) (string, error) {
	if err := session.RequireAdmin(principal); err != nil {
		return "", err
	}
	doc := s.store.Snapshot()
	b, err := json.MarshalIndent(doc.Users, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: encode users: %v", errs.ErrPersistence, err)
	}
	name := fmt.Sprintf("users-export-%s.json", time.Now().Format("2006-01-02"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	s.log.Info("users exported", zap.String("path", path), zap.Int("count", len(doc.Users)))
	return path, nil
}
