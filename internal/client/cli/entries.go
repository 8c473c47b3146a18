package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/session"
)

func (a *App) Start(ctx context.Context, jobID, notes string) error {
	e, err := a.d.TimeEntries.Start(ctx, jobID, notes)
	if err != nil {
		return err
	}
	a.printf("Timer started for job %s at %s", e.JobID, e.StartTime.Local().Format(time.TimeOnly))
	if !e.Synced {
		a.printf(" (offline, will sync)")
	}
	a.println()
	return nil
}

func (a *App) Stop(ctx context.Context, notes string) error {
	e, err := a.d.TimeEntries.Stop(ctx, notes)
	if err != nil {
		return err
	}
	a.printf("Timer stopped: %s", time.Duration(e.DurationSeconds)*time.Second)
	if !e.Synced {
		a.printf(" (offline, will sync)")
	}
	a.println()
	return nil
}

// Entries lists time entries, newest first, with the running one marked.
func (a *App) Entries(ctx context.Context) error {
	a.setScreen(session.TimeEntries())
	entries, err := a.d.TimeEntries.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		a.println("No time entries.")
		return nil
	}

	now := time.Now()
	outMu.Lock()
	defer outMu.Unlock()
	w := tabwriter.NewWriter(a.d.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tSTART\tDURATION\tSYNCED\tNOTES")
	for _, e := range entries {
		d := e.Elapsed(now).Truncate(time.Second).String()
		if e.Active() {
			d += " *"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", e.JobID, e.StartTime.Local().Format(time.DateTime), d, e.Synced, e.Notes)
	}
	return w.Flush()
}
