package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/fieldmate/internal/common"
)

var errNoDocuments = errors.New("documents are not available")

func (a *App) Docs(ctx context.Context, jobID string) error {
	if a.d.Documents == nil {
		return errNoDocuments
	}
	if err := a.d.Documents.Refresh(ctx, jobID); err != nil {
		a.printf("Showing cached documents: %s\n", common.PublicMessage(err))
	}
	docs, err := a.d.Documents.List(ctx, jobID)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		a.println("No documents.")
		return nil
	}
	for _, d := range docs {
		state := "synced"
		if !d.Synced {
			state = "pending"
		}
		a.printf("%s  %s  %s  [%s]  %s\n", d.ID, d.Name, d.ContentType, state, d.DisplayLocation())
	}
	return nil
}

func (a *App) AddDoc(ctx context.Context, jobID, path string) error {
	if a.d.Documents == nil {
		return errNoDocuments
	}
	d, err := a.d.Documents.Add(ctx, jobID, path)
	if err != nil {
		return err
	}
	if d.Synced {
		a.printf("Uploaded %s (%s)\n", d.Name, d.ContentType)
	} else {
		a.printf("Saved %s locally, it will upload on the next sync\n", d.Name)
	}
	return nil
}
