package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/client"
	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/common"
	"github.com/dmitrijs2005/fieldmate/internal/logging"
)

// AuthAPI is the part of the backend the auth flows need.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (models.Credentials, error)
	Refresh(ctx context.Context, refreshToken string) (models.Credentials, error)
	Logout(ctx context.Context) error
	GetBusinessProfile(ctx context.Context) (models.BusinessProfile, error)
}

// CredentialStore is implemented by securestore.Store.
type CredentialStore interface {
	Identity
	RefreshToken() string
	HasPin() bool
	SaveSession(ctx context.Context, c models.Credentials) error
	ClearSession(ctx context.Context) error
	Clear(ctx context.Context) error
	SavePin(ctx context.Context, pin string) error
	VerifyPin(pin string) (bool, error)
	SetPinUnlockRequired(ctx context.Context, required bool) error
	IsTokenExpired(ctx context.Context, now time.Time) bool
	SaveProfile(ctx context.Context, p models.BusinessProfile) error
}

// Wiper drops user-bound local data on logout.
type Wiper interface {
	Clear(ctx context.Context) error
}

// AuthService drives login, logout and the PIN gate. Navigation follows
// from the store mutations it makes; it never routes screens itself.
type AuthService struct {
	api    AuthAPI
	store  CredentialStore
	wipers []Wiper
	log    logging.Logger
	now    func() time.Time
}

func NewAuthService(api AuthAPI, store CredentialStore, log logging.Logger, wipers ...Wiper) *AuthService {
	if log == nil {
		log = logging.Nop()
	}
	return &AuthService{api: api, store: store, wipers: wipers, log: log, now: time.Now}
}

// Login authenticates against the backend and stores the session. The
// business profile is fetched afterwards; its failure does not fail login.
func (s *AuthService) Login(ctx context.Context, email, password string) error {
	creds, err := s.api.Login(ctx, email, password)
	if err != nil {
		if client.IsRejected(err) {
			return fmt.Errorf("login: %w", common.ErrorUnauthorized)
		}
		return fmt.Errorf("login: %w", err)
	}
	if creds.Email == "" {
		creds.Email = email
	}
	if err := s.store.SaveSession(ctx, creds); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := s.store.SetPinUnlockRequired(ctx, false); err != nil {
		return err
	}

	if err := s.RefreshProfile(ctx); err != nil {
		s.log.Warn(ctx, "business profile not refreshed", "error", err)
	}
	s.log.Info(ctx, "logged in", "user_id", creds.UserID)
	return nil
}

// Logout revokes the session remotely when reachable and wipes local
// credentials, the PIN and user-bound queues.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil {
		s.log.Warn(ctx, "remote logout failed", "error", err)
	}
	for _, w := range s.wipers {
		if err := w.Clear(ctx); err != nil {
			return fmt.Errorf("wipe local data: %w", err)
		}
	}
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// SetupPin stores the first PIN for a logged-in user.
func (s *AuthService) SetupPin(ctx context.Context, pin string) error {
	if _, err := currentUser(s.store); err != nil {
		return err
	}
	return s.store.SavePin(ctx, pin)
}

// Unlock verifies the PIN and, when the access token has expired, refreshes
// it first. A refused refresh token ends the session; an unreachable
// backend leaves the app locked.
func (s *AuthService) Unlock(ctx context.Context, pin string) error {
	if _, err := currentUser(s.store); err != nil {
		return err
	}
	ok, err := s.store.VerifyPin(pin)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrInvalidPin
	}

	if s.store.IsTokenExpired(ctx, s.now()) {
		if err := s.refresh(ctx); err != nil {
			return err
		}
	}
	return s.store.SetPinUnlockRequired(ctx, false)
}

func (s *AuthService) refresh(ctx context.Context) error {
	rt := s.store.RefreshToken()
	if rt == "" {
		if err := s.store.ClearSession(ctx); err != nil {
			return err
		}
		return common.ErrNoRefreshToken
	}

	creds, err := s.api.Refresh(ctx, rt)
	if err == nil {
		return s.store.SaveSession(ctx, creds)
	}
	if client.IsRejected(err) || errors.Is(err, common.ErrInvalidToken) {
		s.log.Warn(ctx, "refresh token rejected, signing out", "error", err)
		if cerr := s.store.ClearSession(ctx); cerr != nil {
			return cerr
		}
		return fmt.Errorf("%w: %v", common.ErrRefreshRejected, err)
	}
	if errors.Is(err, common.ErrorUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrorUnavailable, err)
}

// Lock forces the PIN screen. Without a PIN there is nothing to lock.
func (s *AuthService) Lock(ctx context.Context) error {
	if !s.store.HasPin() {
		return common.ErrPinNotSet
	}
	return s.store.SetPinUnlockRequired(ctx, true)
}

// RefreshProfile caches the business profile for offline use.
func (s *AuthService) RefreshProfile(ctx context.Context) error {
	p, err := s.api.GetBusinessProfile(ctx)
	if err != nil {
		return err
	}
	return s.store.SaveProfile(ctx, p)
}
