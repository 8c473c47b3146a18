package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/session"
	"github.com/dmitrijs2005/fieldmate/internal/common"
)

func (a *App) Notifications(ctx context.Context) error {
	a.setScreen(session.Notifications())
	if err := a.d.Notifications.Refresh(ctx); err != nil {
		a.printf("Showing cached notifications: %s\n", common.PublicMessage(err))
	}
	list, err := a.d.Notifications.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.println("No notifications.")
		return nil
	}
	for _, n := range list {
		mark := " "
		if !n.Read {
			mark = "*"
		}
		a.printf("%s %s  %s  %s\n", mark, n.ID, n.CreatedAt.Local().Format(time.DateTime), n.Title)
		if n.Message != "" {
			a.printf("    %s\n", n.Message)
		}
	}
	return nil
}

// Read marks one notification, or all of them for "all".
func (a *App) Read(ctx context.Context, id string) error {
	if id == "all" {
		return a.d.Notifications.MarkAllRead(ctx)
	}
	return a.d.Notifications.MarkRead(ctx, id, true)
}

func (a *App) Delete(ctx context.Context, id string) error {
	return a.d.Notifications.Delete(ctx, id)
}
