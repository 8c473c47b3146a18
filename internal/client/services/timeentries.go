package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/client/repositories/timeentries"
	"github.com/dmitrijs2005/fieldmate/internal/client/watch"
	"github.com/dmitrijs2005/fieldmate/internal/common"
	"github.com/dmitrijs2005/fieldmate/internal/logging"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

type TimeEntriesAPI interface {
	ListTimeEntries(ctx context.Context, userID string) ([]models.TimeEntry, error)
	CreateTimeEntry(ctx context.Context, e models.TimeEntry) (models.TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, e models.TimeEntry) (models.TimeEntry, error)
}

// TimeEntryService runs the job timer. A user has at most one active entry;
// a second Start is rejected with common.ErrActiveEntryExists.
type TimeEntryService struct {
	api      TimeEntriesAPI
	repo     timeentries.Repository
	id       Identity
	reporter Reporter
	log      logging.Logger
	changes  *watch.Notifier
	now      func() time.Time

	// serializes writes so the active-entry check and insert cannot
	// interleave
	mu sync.Mutex
}

func NewTimeEntryService(api TimeEntriesAPI, repo timeentries.Repository, id Identity, reporter Reporter, log logging.Logger) *TimeEntryService {
	if reporter == nil {
		reporter = nopReporter{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &TimeEntryService{
		api:      api,
		repo:     repo,
		id:       id,
		reporter: reporter,
		log:      log,
		changes:  watch.NewNotifier(),
		now:      utcNow,
	}
}

// Start opens a new entry for jobID. The entry is saved locally even when
// the backend is unreachable, with Synced=false.
func (s *TimeEntryService) Start(ctx context.Context, jobID, notes string) (models.TimeEntry, error) {
	uid, err := currentUser(s.id)
	if err != nil {
		return models.TimeEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.repo.Active(ctx, uid)
	if err != nil {
		return models.TimeEntry{}, err
	}
	if active != nil {
		return models.TimeEntry{}, common.ErrActiveEntryExists
	}

	now := s.now()
	e := models.TimeEntry{
		ID:        uuid.NewString(),
		UserID:    uid,
		JobID:     jobID,
		StartTime: now,
		Notes:     notes,
		UpdatedAt: now,
	}
	if _, err := s.api.CreateTimeEntry(ctx, e); err != nil {
		s.log.Warn(ctx, "time entry kept offline", "entry_id", e.ID, "error", err)
	} else {
		e.Synced = true
	}

	if err := s.repo.Insert(ctx, e); err != nil {
		return models.TimeEntry{}, err
	}
	s.changes.Notify()
	return e, nil
}

// Stop finishes the active entry. If the backend has never seen the entry
// the full record is created instead; if that fails too the entry stays
// unsynced and the failure is reported once.
func (s *TimeEntryService) Stop(ctx context.Context, notes string) (models.TimeEntry, error) {
	uid, err := currentUser(s.id)
	if err != nil {
		return models.TimeEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.repo.Active(ctx, uid)
	if err != nil {
		return models.TimeEntry{}, err
	}
	if active == nil {
		return models.TimeEntry{}, common.ErrNoActiveEntry
	}

	e := *active
	now := s.now()
	e.Finish(now)
	if notes != "" {
		e.Notes = notes
	}
	e.UpdatedAt = now
	e.Synced = s.pushFinished(ctx, e)

	if err := s.repo.Upsert(ctx, e); err != nil {
		return models.TimeEntry{}, err
	}
	s.changes.Notify()
	return e, nil
}

func (s *TimeEntryService) pushFinished(ctx context.Context, e models.TimeEntry) bool {
	_, err := s.api.UpdateTimeEntry(ctx, e)
	if err == nil {
		return true
	}
	if !errors.Is(err, common.ErrorNotFound) {
		s.log.Warn(ctx, "time entry stop kept offline", "entry_id", e.ID, "error", err)
		return false
	}

	if _, err := s.api.CreateTimeEntry(ctx, e); err != nil {
		s.reporter.Report(ctx, "time_entry.stop", err, map[string]any{
			"entryId": e.ID,
			"jobId":   e.JobID,
		})
		return false
	}
	return true
}

// Sync uploads every unsynced entry. Uploads are idempotent by id and run
// outside the write lock.
func (s *TimeEntryService) Sync(ctx context.Context) error {
	uid, err := currentUser(s.id)
	if err != nil {
		return err
	}

	pending, err := s.repo.ListUnsynced(ctx, uid)
	if err != nil {
		return err
	}
	var errs error
	changed := false
	for _, e := range pending {
		if _, err := s.api.CreateTimeEntry(ctx, e); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("upload %s: %w", e.ID, err))
			continue
		}
		ok, err := s.settle(ctx, e)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		changed = changed || ok
	}
	if changed {
		s.changes.Notify()
	}
	return errs
}

// settle marks the uploaded version e synced. When the row moved on during
// the upload it is left, or put back, unsynced for the next pass.
func (s *TimeEntryService) settle(ctx context.Context, e models.TimeEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.repo.GetByID(ctx, e.ID)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if sameVersion(*cur, e) {
		return true, s.repo.MarkSynced(ctx, e.ID)
	}
	if cur.Synced {
		cur.Synced = false
		return true, s.repo.Upsert(ctx, *cur)
	}
	return false, nil
}

func sameVersion(a, b models.TimeEntry) bool {
	return a.UpdatedAt.Equal(b.UpdatedAt) && a.Active() == b.Active() && a.Notes == b.Notes
}

// Refresh pulls the remote entries. Unsynced local rows are kept.
func (s *TimeEntryService) Refresh(ctx context.Context) error {
	uid, err := currentUser(s.id)
	if err != nil {
		return err
	}
	remote, err := s.api.ListTimeEntries(ctx, uid)
	if err != nil {
		return fmt.Errorf("list time entries: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.MergeRemote(ctx, uid, remote); err != nil {
		return err
	}
	s.changes.Notify()
	return nil
}

// Active returns the running entry or nil.
func (s *TimeEntryService) Active(ctx context.Context) (*models.TimeEntry, error) {
	uid, err := currentUser(s.id)
	if err != nil {
		return nil, err
	}
	return s.repo.Active(ctx, uid)
}

// List returns the user's entries, newest first.
func (s *TimeEntryService) List(ctx context.Context) ([]models.TimeEntry, error) {
	uid, err := currentUser(s.id)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, uid)
}

func (s *TimeEntryService) Watch(ctx context.Context) <-chan []models.TimeEntry {
	return watch.Project(ctx, s.changes, s.List, func(err error) {
		s.log.Error(ctx, "time entry reload failed", "error", err)
	})
}
