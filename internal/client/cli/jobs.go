package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/client/session"
	"github.com/dmitrijs2005/fieldmate/internal/common"
)

// Jobs refreshes the assigned jobs and prints the cached list. A failed
// refresh still shows the cache.
func (a *App) Jobs(ctx context.Context) error {
	a.setScreen(session.Home())
	if err := a.d.Jobs.Refresh(ctx); err != nil {
		a.printf("Showing cached jobs: %s\n", common.PublicMessage(err))
	}
	jobs, err := a.d.Jobs.List(ctx)
	if err != nil {
		return err
	}
	a.printJobs(jobs)
	return nil
}

func (a *App) Search(ctx context.Context, query string) error {
	jobs, err := a.d.Jobs.Search(ctx, query)
	if err != nil {
		return err
	}
	a.printJobs(jobs)
	return nil
}

// Job shows one job with its full backend document.
func (a *App) Job(ctx context.Context, id string) error {
	job, err := a.d.Jobs.Get(ctx, id)
	if err != nil {
		return err
	}
	a.setScreen(session.JobDetail(id))

	detail, err := a.d.Jobs.RefreshDetail(ctx, id)
	if err != nil {
		if detail, err = a.d.Jobs.Detail(ctx, id); err != nil {
			detail = nil
		}
	}

	a.printf("%s  %s\n", job.Number, job.Title)
	a.printf("Status:   %s\n", job.Status)
	a.printf("Customer: %s\n", job.CustomerName)
	a.printf("Location: %s\n", job.Location)
	if job.ScheduledStart != nil {
		a.printf("Start:    %s\n", job.ScheduledStart.Local().Format(time.DateTime))
	}
	if job.ScheduledEnd != nil {
		a.printf("End:      %s\n", job.ScheduledEnd.Local().Format(time.DateTime))
	}
	if detail != nil {
		var pretty any
		if json.Unmarshal(detail.Payload, &pretty) == nil {
			b, _ := json.MarshalIndent(pretty, "", "  ")
			a.printf("Fetched %s\n%s\n", detail.FetchedAt.Local().Format(time.DateTime), b)
		}
	}
	return nil
}

func (a *App) printJobs(jobs []models.Job) {
	if len(jobs) == 0 {
		a.println("No jobs.")
		return
	}
	outMu.Lock()
	defer outMu.Unlock()
	w := tabwriter.NewWriter(a.d.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNUMBER\tTITLE\tSTATUS\tSTART")
	for _, j := range jobs {
		start := ""
		if j.ScheduledStart != nil {
			start = j.ScheduledStart.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", j.ID, j.Number, j.Title, j.Status, start)
	}
	w.Flush()
}
