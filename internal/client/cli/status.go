package cli

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/metrics"
	"github.com/dmitrijs2005/fieldmate/internal/client/repositories/syncstate"
	"github.com/dmitrijs2005/fieldmate/internal/client/workers"
)

// Sync runs the reconcile worker in the foreground.
func (a *App) Sync(ctx context.Context) error {
	if err := a.d.Scheduler.RunNow(ctx, workers.ReconcileJob); err != nil {
		return err
	}
	a.println("Everything is up to date.")
	return nil
}

// Update checks the release manifest and downloads a newer build into
// DownloadDir.
func (a *App) Update(ctx context.Context) error {
	if a.d.Updates == nil {
		a.println("Update checks are not configured.")
		return nil
	}
	m, err := a.d.Updates.Fetch(ctx)
	if err != nil {
		return err
	}
	if !m.Available(a.d.AppVersionCode) {
		a.printf("You are on the latest version (%d).\n", a.d.AppVersionCode)
		return nil
	}

	name := "fieldmate-" + m.VersionName
	if u, err := url.Parse(m.APKURL); err == nil && path.Base(u.Path) != "/" && path.Base(u.Path) != "." {
		name = path.Base(u.Path)
	}
	dst := filepath.Join(a.d.DownloadDir, name)
	a.printf("Downloading %s...\n", m.VersionName)
	if err := a.d.Updates.Download(ctx, m, dst); err != nil {
		return err
	}
	a.printf("Version %s saved to %s\n", m.VersionName, dst)
	return nil
}

// Status prints connectivity, session, backlog and worker counters.
func (a *App) Status(ctx context.Context) error {
	if a.d.Net != nil {
		a.printf("Mode:     %s\n", a.d.Net.Mode())
	}
	a.printf("Screen:   %s\n", a.Screen())
	if a.d.Session != nil {
		st := a.d.Session.State()
		a.printf("User:     %s\n", a.d.Session.Email())
		if !st.TokenExpiresAt.IsZero() {
			a.printf("Token:    expires %s\n", st.TokenExpiresAt.Local().Format(time.DateTime))
		}
	}
	if a.d.TimeEntries != nil {
		if e, err := a.d.TimeEntries.Active(ctx); err == nil && e != nil {
			a.printf("Timer:    job %s, %s\n", e.JobID, time.Since(e.StartTime).Truncate(time.Second))
		}
	}
	if a.d.Notifications != nil {
		if n, err := a.d.Notifications.UnreadCount(ctx); err == nil {
			a.printf("Unread:   %d\n", n)
		}
	}
	if a.d.Locations != nil {
		if n, err := a.d.Locations.Pending(ctx); err == nil {
			a.printf("Queued:   %d locations\n", n)
		}
	}
	if a.d.Runs != nil {
		if runs, err := a.d.Runs.List(ctx); err == nil {
			for _, r := range runs {
				a.printf("Last %s: %s\n", r.Worker, describeRun(r))
			}
		}
	}

	if a.d.Metrics == nil {
		return nil
	}
	stats, err := metrics.Summary(a.d.Metrics)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		return nil
	}
	outMu.Lock()
	defer outMu.Unlock()
	w := tabwriter.NewWriter(a.d.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WORKER\tOK\tFAILED\tSKIPPED\tTIME")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%.0f\t%.0f\t%.0f\t%.2fs\n", s.Worker, s.Success, s.Failure, s.Skipped, s.Duration)
	}
	return w.Flush()
}

func describeRun(r syncstate.Run) string {
	s := "never succeeded"
	if r.LastSuccessAt != nil {
		s = "ok at " + r.LastSuccessAt.Local().Format(time.DateTime)
	}
	if r.LastError != "" {
		s += ", last attempt failed at " + r.LastAttemptAt.Local().Format(time.DateTime)
	}
	return s
}
