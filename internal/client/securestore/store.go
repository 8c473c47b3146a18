package securestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/client/repositories/keyvalue"
	"github.com/dmitrijs2005/fieldmate/internal/client/watch"
	"github.com/dmitrijs2005/fieldmate/internal/common"
	"github.com/dmitrijs2005/fieldmate/internal/cryptox"
	"github.com/dmitrijs2005/fieldmate/internal/dbx"
	"github.com/dmitrijs2005/fieldmate/internal/logging"
)

// Field names.
const (
	KeyAccessToken       = "access_token"
	KeyRefreshToken      = "refresh_token"
	KeyUserID            = "user_id"
	KeyEmail             = "email"
	KeyTokenExpiresAt    = "token_expires_at"
	KeyPinUnlockRequired = "pin_unlock_required"
	KeyPinHash           = "pin_hash"
	KeyPinSalt           = "pin_salt"
	KeyDisplayName       = "display_name"
	KeyBusinessHours     = "business_hours"
)

var sessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUserID, KeyEmail, KeyTokenExpiresAt}

var pinPattern = regexp.MustCompile(`^[0-9]{4,8}$`)

// Store is the secure credential store.
type Store struct {
	db      *sql.DB
	newRepo func(dbx.DBTX) keyvalue.Repository
	key     []byte
	log     logging.Logger

	mu     sync.RWMutex
	values map[string][]byte
	state  *watch.Value[State]
}

// Open loads and decrypts every stored field. Values that fail to decrypt
// are dropped and logged; a missing field reads as empty.
func Open(ctx context.Context, db *sql.DB, key []byte, log logging.Logger) (*Store, error) {
	if len(key) != cryptox.StoreKeyLength {
		return nil, common.ErrMissingStoreKey
	}
	if log == nil {
		log = logging.Nop()
	}
	s := &Store{
		db:      db,
		newRepo: func(tx dbx.DBTX) keyvalue.Repository { return keyvalue.NewSQLiteRepository(tx) },
		key:     key,
		log:     log,
		values:  make(map[string][]byte),
	}

	records, err := s.newRepo(db).List(ctx)
	if err != nil {
		return nil, err
	}
	var corrupt []string
	for _, rec := range records {
		plain, err := cryptox.Open(key, rec.Nonce, rec.Value, []byte(rec.Key))
		if err != nil {
			log.Warn(ctx, "dropping unreadable secure store field", "key", rec.Key, "error", err)
			corrupt = append(corrupt, rec.Key)
			continue
		}
		s.values[rec.Key] = plain
	}
	if len(corrupt) > 0 {
		if err := s.newRepo(db).Delete(ctx, corrupt...); err != nil {
			return nil, err
		}
	}

	s.state = watch.NewValue(s.snapshotLocked())

	// legacy sessions stored no explicit expiry
	if _, ok := s.explicitExpiry(); !ok && s.Get(KeyAccessToken) != "" {
		if _, err := s.TokenExpiresAt(ctx); err != nil {
			log.Warn(ctx, "token expiry unavailable", "error", err)
		}
	}
	return s, nil
}

// Get returns the decrypted field or "".
func (s *Store) Get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return string(s.values[key])
}

// Set writes a single field.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.apply(ctx, map[string][]byte{key: []byte(value)}, nil)
}

// Delete removes fields.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	return s.apply(ctx, nil, keys)
}

// Clear wipes every field, including the PIN and cached profile.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.newRepo(s.db).Clear(ctx); err != nil {
		return err
	}
	for k, v := range s.values {
		common.WipeByteArray(v)
		delete(s.values, k)
	}
	s.state.Set(s.snapshotLocked())
	return nil
}

// apply writes sets and deletes in one transaction and then publishes a
// single snapshot.
func (s *Store) apply(ctx context.Context, sets map[string][]byte, deletes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed := make([]keyvalue.Record, 0, len(sets))
	for k, v := range sets {
		ct, nonce, err := cryptox.Seal(s.key, v, []byte(k))
		if err != nil {
			return fmt.Errorf("seal %s: %w", k, err)
		}
		sealed = append(sealed, keyvalue.Record{Key: k, Nonce: nonce, Value: ct})
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.newRepo(tx)
		for _, rec := range sealed {
			if err := repo.Set(ctx, rec); err != nil {
				return err
			}
		}
		return repo.Delete(ctx, deletes...)
	})
	if err != nil {
		return err
	}

	for k, v := range sets {
		s.values[k] = append([]byte(nil), v...)
	}
	for _, k := range deletes {
		if v, ok := s.values[k]; ok {
			common.WipeByteArray(v)
			delete(s.values, k)
		}
	}
	s.state.Set(s.snapshotLocked())
	return nil
}

// Credentials returns the stored session.
func (s *Store) Credentials() models.Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := models.Credentials{
		AccessToken:  string(s.values[KeyAccessToken]),
		RefreshToken: string(s.values[KeyRefreshToken]),
		UserID:       string(s.values[KeyUserID]),
		Email:        string(s.values[KeyEmail]),
	}
	if exp, ok := s.explicitExpiryLocked(); ok {
		c.ExpiresAt = exp.Unix()
	}
	return c
}

func (s *Store) AccessToken() string  { return s.Get(KeyAccessToken) }
func (s *Store) RefreshToken() string { return s.Get(KeyRefreshToken) }
func (s *Store) UserID() string       { return s.Get(KeyUserID) }
func (s *Store) Email() string        { return s.Get(KeyEmail) }
func (s *Store) DisplayName() string  { return s.Get(KeyDisplayName) }

// SaveSession persists a login or refresh result atomically. A zero
// ExpiresAt removes the explicit expiry, so it is derived from the token.
// Empty refresh token, user id and email leave the stored values in place.
func (s *Store) SaveSession(ctx context.Context, c models.Credentials) error {
	if c.AccessToken == "" {
		return common.ErrInvalidToken
	}
	sets := map[string][]byte{KeyAccessToken: []byte(c.AccessToken)}
	var deletes []string
	if c.RefreshToken != "" {
		sets[KeyRefreshToken] = []byte(c.RefreshToken)
	}
	if c.UserID != "" {
		sets[KeyUserID] = []byte(c.UserID)
	}
	if c.Email != "" {
		sets[KeyEmail] = []byte(c.Email)
	}
	if c.ExpiresAt > 0 {
		sets[KeyTokenExpiresAt] = []byte(strconv.FormatInt(c.ExpiresAt, 10))
	} else if exp, err := expiryFromToken(c.AccessToken); err == nil {
		sets[KeyTokenExpiresAt] = []byte(strconv.FormatInt(exp.Unix(), 10))
	} else {
		deletes = append(deletes, KeyTokenExpiresAt)
	}
	return s.apply(ctx, sets, deletes)
}

// ClearSession removes the tokens, identity and unlock flag atomically. The
// PIN and cached profile are kept.
func (s *Store) ClearSession(ctx context.Context) error {
	return s.apply(ctx, nil, append(append([]string(nil), sessionKeys...), KeyPinUnlockRequired))
}

// SetTokenExpiry records an explicit access token expiry.
func (s *Store) SetTokenExpiry(ctx context.Context, t time.Time) error {
	return s.Set(ctx, KeyTokenExpiresAt, strconv.FormatInt(t.Unix(), 10))
}

// SetPinUnlockRequired sets or clears the forced-lock flag.
func (s *Store) SetPinUnlockRequired(ctx context.Context, required bool) error {
	return s.Set(ctx, KeyPinUnlockRequired, strconv.FormatBool(required))
}

// PinUnlockRequired reports the forced-lock flag.
func (s *Store) PinUnlockRequired() bool {
	v, _ := strconv.ParseBool(s.Get(KeyPinUnlockRequired))
	return v
}

// TokenExpiresAt returns the explicit expiry or, for records that lack one,
// the exp claim of the access token, which is then stored. It fails when no
// expiry can be determined.
func (s *Store) TokenExpiresAt(ctx context.Context) (time.Time, error) {
	if exp, ok := s.explicitExpiry(); ok {
		return exp, nil
	}
	token := s.AccessToken()
	if token == "" {
		return time.Time{}, common.ErrNotLoggedIn
	}
	exp, err := expiryFromToken(token)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.SetTokenExpiry(ctx, exp); err != nil {
		s.log.Warn(ctx, "failed to backfill token expiry", "error", err)
	}
	return exp, nil
}

// IsTokenExpired is true when no expiry is known or now has reached it.
func (s *Store) IsTokenExpired(ctx context.Context, now time.Time) bool {
	exp, err := s.TokenExpiresAt(ctx)
	if err != nil {
		return true
	}
	return !now.Before(exp)
}

func (s *Store) explicitExpiry() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.explicitExpiryLocked()
}

func (s *Store) explicitExpiryLocked() (time.Time, bool) {
	raw := string(s.values[KeyTokenExpiresAt])
	if raw == "" {
		return time.Time{}, false
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

// SavePin stores a new PIN verifier and clears the forced-lock flag.
func (s *Store) SavePin(ctx context.Context, pin string) error {
	if !pinPattern.MatchString(pin) {
		return common.ErrPinFormat
	}
	salt, err := cryptox.GenerateSalt(cryptox.PinSaltLength)
	if err != nil {
		return err
	}
	hash, err := cryptox.HashPin(pin, salt)
	if err != nil {
		return err
	}
	return s.apply(ctx, map[string][]byte{
		KeyPinSalt:           salt,
		KeyPinHash:           hash,
		KeyPinUnlockRequired: []byte("false"),
	}, nil)
}

// VerifyPin checks pin against the stored verifier.
func (s *Store) VerifyPin(pin string) (bool, error) {
	s.mu.RLock()
	salt := append([]byte(nil), s.values[KeyPinSalt]...)
	hash := append([]byte(nil), s.values[KeyPinHash]...)
	s.mu.RUnlock()

	if len(salt) == 0 || len(hash) == 0 {
		return false, common.ErrPinNotSet
	}
	return cryptox.VerifyPin(pin, salt, hash), nil
}

// HasPin is true once both salt and hash are stored.
func (s *Store) HasPin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasPinLocked()
}

func (s *Store) hasPinLocked() bool {
	return len(s.values[KeyPinSalt]) > 0 && len(s.values[KeyPinHash]) > 0
}

// ClearPin removes the PIN verifier.
func (s *Store) ClearPin(ctx context.Context) error {
	return s.Delete(ctx, KeyPinSalt, KeyPinHash)
}

// SaveProfile caches the display name and business hours.
func (s *Store) SaveProfile(ctx context.Context, p models.BusinessProfile) error {
	hours, err := json.Marshal(p.BusinessHours)
	if err != nil {
		return err
	}
	name := p.DisplayName
	if name == "" {
		name = p.Name
	}
	return s.apply(ctx, map[string][]byte{KeyDisplayName: []byte(name), KeyBusinessHours: hours}, nil)
}

// BusinessHours returns the cached schedule; an empty schedule imposes no
// restriction.
func (s *Store) BusinessHours() models.BusinessHours {
	raw := s.Get(KeyBusinessHours)
	var h models.BusinessHours
	if raw == "" {
		return h
	}
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		s.log.Warn(context.Background(), "cached business hours unreadable", "error", err)
		return models.BusinessHours{}
	}
	return h
}

// State returns the current snapshot.
func (s *Store) State() State {
	return s.state.Get()
}

// Subscribe streams snapshots, starting with the current one, until ctx is
// done.
func (s *Store) Subscribe(ctx context.Context) <-chan State {
	return s.state.Subscribe(ctx)
}

func (s *Store) snapshotLocked() State {
	st := State{
		IsLoggedIn: len(s.values[KeyAccessToken]) > 0,
		HasPin:     s.hasPinLocked(),
	}
	st.PinUnlockRequired, _ = strconv.ParseBool(string(s.values[KeyPinUnlockRequired]))
	if exp, ok := s.explicitExpiryLocked(); ok {
		st.TokenExpiresAt = exp
	} else if st.IsLoggedIn {
		if exp, err := expiryFromToken(string(s.values[KeyAccessToken])); err == nil {
			st.TokenExpiresAt = exp
		}
	}
	return st
}
