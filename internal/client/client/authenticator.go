package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/client/session"
	"github.com/dmitrijs2005/fieldmate/internal/common"
	"github.com/dmitrijs2005/fieldmate/internal/logging"
	"golang.org/x/sync/singleflight"
)

// TokenStore is the part of the credential store the Authenticator uses.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SaveSession(ctx context.Context, c models.Credentials) error
	SetPinUnlockRequired(ctx context.Context, required bool) error
}

// Refresher exchanges a refresh token for a new session.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.Credentials, error)
}

// EventPublisher receives gate events.
type EventPublisher interface {
	Publish(e session.Event)
}

// Authenticator is an http.RoundTripper that adds the bearer token and
// recovers from a 401 with one silent refresh.
//
// Concurrent 401s share a single in-flight refresh. Each request is retried
// at most once. When the backend rejects the refresh token, the session is
// locked behind the PIN (credentials stay in place) and
// EventRequirePinUnlock is published.
//
// A transient refresh failure (transport error or 5xx) does not lock: it
// fails only the current request with common.ErrorUnavailable, and the next
// 401 tries the refresh again.
type Authenticator struct {
	base      http.RoundTripper
	store     TokenStore
	refresher Refresher
	events    EventPublisher
	log       logging.Logger
	group     singleflight.Group
}

func NewAuthenticator(base http.RoundTripper, store TokenStore, refresher Refresher, events EventPublisher, log logging.Logger) *Authenticator {
	if base == nil {
		base = http.DefaultTransport
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Authenticator{base: base, store: store, refresher: refresher, events: events, log: log}
}

func (a *Authenticator) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := bufferBody(req); err != nil {
		return nil, err
	}

	token := a.store.AccessToken()
	resp, err := a.base.RoundTrip(withBearer(req, token))
	if err != nil || resp.StatusCode != http.StatusUnauthorized || token == "" {
		return resp, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	fresh, err := a.refresh(req.Context(), token)
	if err != nil {
		return nil, err
	}

	retry := withBearer(req, fresh)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	return a.base.RoundTrip(retry)
}

// refresh returns a valid access token, rotating the session unless a
// concurrent cycle already replaced stale.
func (a *Authenticator) refresh(ctx context.Context, stale string) (string, error) {
	v, err, shared := a.group.Do("refresh", func() (any, error) {
		ctx := context.WithoutCancel(ctx)

		if current := a.store.AccessToken(); current != "" && current != stale {
			return current, nil
		}

		rt := a.store.RefreshToken()
		if rt == "" {
			a.lock(ctx, common.ErrNoRefreshToken)
			return "", fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrNoRefreshToken)
		}

		creds, err := a.refresher.Refresh(ctx, rt)
		if err != nil {
			if IsRejected(err) || errors.Is(err, common.ErrInvalidToken) {
				a.lock(ctx, err)
				return "", fmt.Errorf("%w: %w: %v", common.ErrorUnauthorized, common.ErrRefreshRejected, err)
			}
			a.log.Warn(ctx, "token refresh failed", "error", err)
			if errors.Is(err, common.ErrorUnavailable) {
				return "", err
			}
			return "", fmt.Errorf("%w: %v", common.ErrorUnavailable, err)
		}

		if err := a.store.SaveSession(ctx, creds); err != nil {
			return "", fmt.Errorf("save refreshed session: %w", err)
		}
		a.log.Info(ctx, "access token refreshed")
		return creds.AccessToken, nil
	})
	if shared {
		a.log.Debug(ctx, "joined in-flight token refresh")
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (a *Authenticator) lock(ctx context.Context, cause error) {
	a.log.Warn(ctx, "session rejected, PIN unlock required", "error", cause)
	if err := a.store.SetPinUnlockRequired(ctx, true); err != nil {
		a.log.Error(ctx, "failed to set pin unlock flag", "error", err)
	}
	if a.events != nil {
		a.events.Publish(session.EventRequirePinUnlock)
	}
}

func withBearer(req *http.Request, token string) *http.Request {
	r := req.Clone(req.Context())
	if token != "" {
		r.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	return r
}

// bufferBody makes the body replayable for the retry.
func bufferBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return err
	}
	req.Body = io.NopCloser(bytes.NewReader(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return nil
}
