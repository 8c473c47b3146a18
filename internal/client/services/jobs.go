package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/client/repositories/jobs"
	"github.com/dmitrijs2005/fieldmate/internal/client/watch"
	"github.com/dmitrijs2005/fieldmate/internal/logging"
)

type JobsAPI interface {
	ListAssignments(ctx context.Context, workerID string) ([]models.JobAssignment, error)
	ListJobs(ctx context.Context, ids []string) ([]json.RawMessage, error)
	GetJob(ctx context.Context, id string) (json.RawMessage, error)
}

// JobService mirrors the jobs assigned to the signed-in worker.
type JobService struct {
	api     JobsAPI
	repo    jobs.Repository
	id      Identity
	log     logging.Logger
	changes *watch.Notifier
	now     func() time.Time
}

func NewJobService(api JobsAPI, repo jobs.Repository, id Identity, log logging.Logger) *JobService {
	if log == nil {
		log = logging.Nop()
	}
	return &JobService{api: api, repo: repo, id: id, log: log, changes: watch.NewNotifier(), now: utcNow}
}

// Refresh replaces the cached list with the worker's current assignments.
// Documents that cannot be parsed are skipped.
func (s *JobService) Refresh(ctx context.Context) error {
	uid, err := currentUser(s.id)
	if err != nil {
		return err
	}
	assignments, err := s.api.ListAssignments(ctx, uid)
	if err != nil {
		return fmt.Errorf("list assignments: %w", err)
	}

	seen := make(map[string]struct{}, len(assignments))
	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		if _, ok := seen[a.JobID]; ok || a.JobID == "" {
			continue
		}
		seen[a.JobID] = struct{}{}
		ids = append(ids, a.JobID)
	}

	var list []models.Job
	if len(ids) > 0 {
		raw, err := s.api.ListJobs(ctx, ids)
		if err != nil {
			return fmt.Errorf("list jobs: %w", err)
		}
		list = make([]models.Job, 0, len(raw))
		for _, payload := range raw {
			job, err := models.JobFromPayload(payload)
			if err != nil || job.ID == "" {
				s.log.Warn(ctx, "skipping malformed job", "error", err)
				continue
			}
			list = append(list, job)
		}
	}

	if err := s.repo.ReplaceAll(ctx, list); err != nil {
		return err
	}
	s.changes.Notify()
	return nil
}

func (s *JobService) List(ctx context.Context) ([]models.Job, error) {
	return s.repo.List(ctx)
}

// Search matches query against number, title, location and status.
func (s *JobService) Search(ctx context.Context, query string) ([]models.Job, error) {
	return s.repo.Search(ctx, query)
}

func (s *JobService) Get(ctx context.Context, id string) (*models.Job, error) {
	return s.repo.GetByID(ctx, id)
}

// Detail returns the cached full document of a job.
func (s *JobService) Detail(ctx context.Context, id string) (*models.JobDetail, error) {
	return s.repo.GetDetail(ctx, id)
}

// RefreshDetail fetches the full document and updates both the detail and
// the listing row.
func (s *JobService) RefreshDetail(ctx context.Context, id string) (*models.JobDetail, error) {
	payload, err := s.api.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	detail := models.JobDetail{ID: id, Payload: payload, FetchedAt: s.now()}
	if err := s.repo.SaveDetail(ctx, detail); err != nil {
		return nil, err
	}
	if job, err := models.JobFromPayload(payload); err == nil && job.ID == id {
		if err := s.repo.Upsert(ctx, job); err != nil {
			return nil, err
		}
		s.changes.Notify()
	}
	return &detail, nil
}

// Watch emits the cached list now and after every refresh.
func (s *JobService) Watch(ctx context.Context) <-chan []models.Job {
	return watch.Project(ctx, s.changes, s.repo.List, func(err error) {
		s.log.Error(ctx, "job list reload failed", "error", err)
	})
}
