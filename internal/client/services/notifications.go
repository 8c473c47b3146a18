package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/client/repositories/notifications"
	"github.com/dmitrijs2005/fieldmate/internal/client/watch"
	"github.com/dmitrijs2005/fieldmate/internal/logging"
)

type NotificationsAPI interface {
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationsRead(ctx context.Context, ids []string, read bool) error
	DeleteNotification(ctx context.Context, id string) error
}

// NotificationService applies read and delete optimistically to the cache
// and rolls the change back when the backend refuses it.
type NotificationService struct {
	api     NotificationsAPI
	repo    notifications.Repository
	id      Identity
	log     logging.Logger
	changes *watch.Notifier
}

func NewNotificationService(api NotificationsAPI, repo notifications.Repository, id Identity, log logging.Logger) *NotificationService {
	if log == nil {
		log = logging.Nop()
	}
	return &NotificationService{api: api, repo: repo, id: id, log: log, changes: watch.NewNotifier()}
}

// Refresh replaces the cache with the backend's list.
func (s *NotificationService) Refresh(ctx context.Context) error {
	uid, err := currentUser(s.id)
	if err != nil {
		return err
	}
	items, err := s.api.ListNotifications(ctx, uid)
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}
	if err := s.repo.ReplaceAll(ctx, uid, items); err != nil {
		return err
	}
	s.changes.Notify()
	return nil
}

func (s *NotificationService) List(ctx context.Context) ([]models.Notification, error) {
	uid, err := currentUser(s.id)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, uid)
}

func (s *NotificationService) UnreadCount(ctx context.Context) (int, error) {
	uid, err := currentUser(s.id)
	if err != nil {
		return 0, err
	}
	return s.repo.UnreadCount(ctx, uid)
}

// MarkRead sets the read flag of one notification.
func (s *NotificationService) MarkRead(ctx context.Context, id string, read bool) error {
	prev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if prev.Read == read {
		return nil
	}
	if err := s.repo.SetRead(ctx, id, read); err != nil {
		return err
	}
	s.changes.Notify()

	if err := s.api.MarkNotificationsRead(ctx, []string{id}, read); err != nil {
		if rerr := s.repo.SetRead(ctx, id, prev.Read); rerr != nil {
			s.log.Error(ctx, "notification revert failed", "id", id, "error", rerr)
		}
		s.changes.Notify()
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context) error {
	uid, err := currentUser(s.id)
	if err != nil {
		return err
	}
	changed, err := s.repo.SetAllRead(ctx, uid)
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return nil
	}
	s.changes.Notify()

	if err := s.api.MarkNotificationsRead(ctx, changed, true); err != nil {
		for _, id := range changed {
			if rerr := s.repo.SetRead(ctx, id, false); rerr != nil {
				s.log.Error(ctx, "notification revert failed", "id", id, "error", rerr)
			}
		}
		s.changes.Notify()
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// Delete removes a notification; the row is restored if the backend
// delete fails.
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	prev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.changes.Notify()

	if err := s.api.DeleteNotification(ctx, id); err != nil {
		if rerr := s.repo.Upsert(ctx, *prev); rerr != nil {
			s.log.Error(ctx, "notification restore failed", "id", id, "error", rerr)
		}
		s.changes.Notify()
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

func (s *NotificationService) Watch(ctx context.Context) <-chan []models.Notification {
	return watch.Project(ctx, s.changes, s.List, func(err error) {
		s.log.Error(ctx, "notification reload failed", "error", err)
	})
}
