package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/metrics"
	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/client/services"
	"go.uber.org/multierr"
)

// Names of the built-in jobs, usable with Scheduler.Kick and RunNow.
const (
	NotificationsJob = "notifications"
	LocationsJob     = "locations"
	ReconcileJob     = "reconcile"
)

type NotificationSource interface {
	Refresh(ctx context.Context) error
	List(ctx context.Context) ([]models.Notification, error)
}

// Alerter raises a local alert for a notification.
type Alerter interface {
	Alert(ctx context.Context, n models.Notification)
}

// NotificationPoller refreshes notifications and alerts once per unread
// item.
type NotificationPoller struct {
	src     NotificationSource
	alerter Alerter

	mu      sync.Mutex
	alerted map[string]struct{}
}

func NewNotificationPoller(src NotificationSource, alerter Alerter) *NotificationPoller {
	return &NotificationPoller{src: src, alerter: alerter, alerted: map[string]struct{}{}}
}

func (p *NotificationPoller) Name() string { return NotificationsJob }

func (p *NotificationPoller) Run(ctx context.Context) error {
	if err := p.src.Refresh(ctx); err != nil {
		return err
	}
	items, err := p.src.List(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	current := make(map[string]struct{}, len(items))
	for _, n := range items {
		if n.Read {
			continue
		}
		current[n.ID] = struct{}{}
		if _, done := p.alerted[n.ID]; done {
			continue
		}
		if p.alerter != nil {
			p.alerter.Alert(ctx, n)
		}
	}
	p.alerted = current
	return nil
}

type LocationQueue interface {
	Flush(ctx context.Context) (services.FlushResult, error)
	Pending(ctx context.Context) (int, error)
}

type HoursSource interface {
	BusinessHours() models.BusinessHours
}

// LocationFlusher drains the location queue during business hours.
type LocationFlusher struct {
	queue   LocationQueue
	hours   HoursSource
	metrics *metrics.WorkerMetrics
	now     func() time.Time
}

func NewLocationFlusher(q LocationQueue, hours HoursSource, m *metrics.WorkerMetrics) *LocationFlusher {
	return &LocationFlusher{queue: q, hours: hours, metrics: m, now: time.Now}
}

func (f *LocationFlusher) Name() string { return LocationsJob }

func (f *LocationFlusher) Run(ctx context.Context) error {
	if f.hours != nil && !f.hours.BusinessHours().IsOpen(f.now()) {
		return nil
	}
	_, err := f.queue.Flush(ctx)
	if n, cerr := f.queue.Pending(ctx); cerr == nil {
		f.metrics.SetPending("locations", n)
	}
	return err
}

// Step is one reconciliation action, such as uploading unsynced entries.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Reconciler runs every step and combines their errors, so one failing
// step does not skip the rest.
type Reconciler struct {
	steps []Step
}

func NewReconciler(steps ...Step) *Reconciler {
	return &Reconciler{steps: steps}
}

func (r *Reconciler) Name() string { return ReconcileJob }

func (r *Reconciler) Run(ctx context.Context) error {
	var errs error
	for _, s := range r.steps {
		if ctx.Err() != nil {
			return multierr.Append(errs, ctx.Err())
		}
		if err := s.Run(ctx); err != nil {
			errs = multierr.Append(errs, &StepError{Step: s.Name, Err: err})
		}
	}
	return errs
}

// StepError names the reconciliation step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + ": " + e.Err.Error() }
func (e *StepError) Unwrap() error { return e.Err }
