package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/client/repositories/documents"
	"github.com/dmitrijs2005/fieldmate/internal/client/watch"
	"github.com/dmitrijs2005/fieldmate/internal/filex"
	"github.com/dmitrijs2005/fieldmate/internal/logging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

type DocumentsAPI interface {
	ListDocuments(ctx context.Context, jobID string) ([]models.JobDocument, error)
	CreateDocument(ctx context.Context, d models.JobDocument) (models.JobDocument, error)
}

// BlobStore is implemented by blobstore.S3Store.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

var errNoBlobStore = errors.New("document storage not configured")

// DocumentService attaches files to jobs. Files are staged under the data
// directory first so a pending upload survives the source being removed.
type DocumentService struct {
	api     DocumentsAPI
	repo    documents.Repository
	blobs   BlobStore
	staging string
	log     logging.Logger
	changes *watch.Notifier
	now     func() time.Time
}

// NewDocumentService builds the service. blobs may be nil, in which case
// every new document stays pending.
func NewDocumentService(api DocumentsAPI, repo documents.Repository, blobs BlobStore, stagingDir string, log logging.Logger) *DocumentService {
	if log == nil {
		log = logging.Nop()
	}
	return &DocumentService{
		api:     api,
		repo:    repo,
		blobs:   blobs,
		staging: stagingDir,
		log:     log,
		changes: watch.NewNotifier(),
		now:     utcNow,
	}
}

// Add stages src and tries to upload it. The document is recorded either
// way; Synced tells which happened.
func (s *DocumentService) Add(ctx context.Context, jobID, src string) (models.JobDocument, error) {
	id := uuid.NewString()
	name := filepath.Base(src)
	local, err := filex.CopyInto(filepath.Join(s.staging, jobID), id+"-"+name, src)
	if err != nil {
		return models.JobDocument{}, fmt.Errorf("stage document: %w", err)
	}

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(local); err == nil {
		contentType = mt.String()
	}

	doc := models.JobDocument{
		ID:          id,
		JobID:       jobID,
		Name:        name,
		ContentType: contentType,
		LocalPath:   local,
		CreatedAt:   s.now(),
	}
	if err := s.upload(ctx, &doc); err != nil {
		s.log.Warn(ctx, "document kept pending", "document_id", id, "error", err)
	}
	if err := s.repo.Upsert(ctx, doc); err != nil {
		return models.JobDocument{}, err
	}
	s.changes.Notify()
	return doc, nil
}

// upload stores the bytes and registers the document. A stored blob is not
// uploaded again when only the registration failed.
func (s *DocumentService) upload(ctx context.Context, doc *models.JobDocument) error {
	if doc.RemoteURL == "" {
		if s.blobs == nil {
			return errNoBlobStore
		}
		data, err := os.ReadFile(doc.LocalPath)
		if err != nil {
			return err
		}
		key := path.Join("jobs", doc.JobID, doc.ID, doc.Name)
		url, err := s.blobs.Put(ctx, key, doc.ContentType, data)
		if err != nil {
			return fmt.Errorf("store blob: %w", err)
		}
		doc.RemoteURL = url
	}
	if _, err := s.api.CreateDocument(ctx, *doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	doc.Synced = true
	return nil
}

// Sync uploads pending documents.
func (s *DocumentService) Sync(ctx context.Context) error {
	pending, err := s.repo.ListUnsynced(ctx)
	if err != nil {
		return err
	}
	var errs error
	for _, doc := range pending {
		uerr := s.upload(ctx, &doc)
		if uerr != nil {
			errs = multierr.Append(errs, fmt.Errorf("document %s: %w", doc.ID, uerr))
		}
		if err := s.repo.Upsert(ctx, doc); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if len(pending) > 0 {
		s.changes.Notify()
	}
	return errs
}

// Refresh merges the job's remote documents. Pending rows are kept.
func (s *DocumentService) Refresh(ctx context.Context, jobID string) error {
	remote, err := s.api.ListDocuments(ctx, jobID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	if err := s.repo.MergeRemote(ctx, jobID, remote); err != nil {
		return err
	}
	s.changes.Notify()
	return nil
}

func (s *DocumentService) List(ctx context.Context, jobID string) ([]models.JobDocument, error) {
	return s.repo.ListByJob(ctx, jobID)
}

func (s *DocumentService) Watch(ctx context.Context, jobID string) <-chan []models.JobDocument {
	load := func(ctx context.Context) ([]models.JobDocument, error) {
		return s.repo.ListByJob(ctx, jobID)
	}
	return watch.Project(ctx, s.changes, load, func(err error) {
		s.log.Error(ctx, "document reload failed", "error", err)
	})
}
