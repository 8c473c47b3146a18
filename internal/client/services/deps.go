package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/common"
)

// Identity supplies the signed-in user.
type Identity interface {
	UserID() string
}

// Reporter receives errors worth a report to the backend sink.
type Reporter interface {
	Report(ctx context.Context, where string, err error, info map[string]any)
}

type nopReporter struct{}

func (nopReporter) Report(context.Context, string, error, map[string]any) {}

func currentUser(id Identity) (string, error) {
	uid := id.UserID()
	if uid == "" {
		return "", common.ErrNotLoggedIn
	}
	return uid, nil
}

func utcNow() time.Time { return time.Now().UTC() }
