package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/client/repositories/syncstate"
	"github.com/dmitrijs2005/fieldmate/internal/client/securestore"
	"github.com/dmitrijs2005/fieldmate/internal/client/services"
	"github.com/dmitrijs2005/fieldmate/internal/client/session"
	"github.com/dmitrijs2005/fieldmate/internal/client/tracking"
	"github.com/dmitrijs2005/fieldmate/internal/client/updates"
	"github.com/dmitrijs2005/fieldmate/internal/client/workers"
	"github.com/prometheus/client_golang/prometheus"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	SetupPin(ctx context.Context, pin string) error
	Unlock(ctx context.Context, pin string) error
	Lock(ctx context.Context) error
}

type JobService interface {
	Refresh(ctx context.Context) error
	List(ctx context.Context) ([]models.Job, error)
	Search(ctx context.Context, query string) ([]models.Job, error)
	Get(ctx context.Context, id string) (*models.Job, error)
	Detail(ctx context.Context, id string) (*models.JobDetail, error)
	RefreshDetail(ctx context.Context, id string) (*models.JobDetail, error)
}

type TimeEntryService interface {
	Start(ctx context.Context, jobID, notes string) (models.TimeEntry, error)
	Stop(ctx context.Context, notes string) (models.TimeEntry, error)
	Active(ctx context.Context) (*models.TimeEntry, error)
	List(ctx context.Context) ([]models.TimeEntry, error)
}

type NotificationService interface {
	Refresh(ctx context.Context) error
	List(ctx context.Context) ([]models.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string, read bool) error
	MarkAllRead(ctx context.Context) error
	Delete(ctx context.Context, id string) error
}

type DocumentService interface {
	Add(ctx context.Context, jobID, src string) (models.JobDocument, error)
	List(ctx context.Context, jobID string) ([]models.JobDocument, error)
	Refresh(ctx context.Context, jobID string) error
}

type LocationQueue interface {
	Flush(ctx context.Context) (services.FlushResult, error)
	Pending(ctx context.Context) (int, error)
}

type Tracker interface {
	Accept(ctx context.Context, fix models.LocationFix) (tracking.Decision, error)
}

type Scheduler interface {
	RunNow(ctx context.Context, name string) error
}

type UpdateChecker interface {
	Fetch(ctx context.Context) (updates.Manifest, error)
	Download(ctx context.Context, m updates.Manifest, dst string) error
}

type Connectivity interface {
	Mode() workers.Mode
}

// RunHistory lists the last run of each background worker.
type RunHistory interface {
	List(ctx context.Context) ([]syncstate.Run, error)
}

// Session is the read side of the credential store.
type Session interface {
	Email() string
	DisplayName() string
	State() securestore.State
}

// Triggers receives lifecycle signals for the session gate.
type Triggers interface {
	Notify(t session.Trigger)
}

// Deps wires the App. Optional collaborators may be nil; the commands that
// need them report that the feature is unavailable.
type Deps struct {
	Auth          AuthService
	Jobs          JobService
	TimeEntries   TimeEntryService
	Notifications NotificationService
	Documents     DocumentService
	Locations     LocationQueue
	Tracker       Tracker
	Scheduler     Scheduler
	Updates       UpdateChecker
	Net           Connectivity
	Session       Session
	Gate          Triggers
	Runs          RunHistory
	Metrics       prometheus.Gatherer

	AppVersionCode int
	DownloadDir    string

	In  io.Reader
	Out io.Writer
}

// App is the REPL state. It is safe for the gate goroutine to call Navigate
// while a command runs.
type App struct {
	d      Deps
	reader *bufio.Reader

	mu     sync.Mutex
	screen session.Destination
}

func NewApp(d Deps) *App {
	if d.In == nil {
		d.In = os.Stdin
	}
	if d.Out == nil {
		d.Out = os.Stdout
	}
	return &App{d: d, reader: bufio.NewReader(d.In)}
}

// Current implements session.Navigator.
func (a *App) Current() session.Destination {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.screen
}

// Navigate implements session.Navigator.
func (a *App) Navigate(to session.Destination) {
	a.mu.Lock()
	a.screen = to
	a.mu.Unlock()

	switch to.Kind() {
	case session.KindLogin:
		a.println("Please sign in with 'login'.")
	case session.KindPinSetup:
		a.println("Choose a PIN for this device with 'pin'.")
	case session.KindPinUnlock:
		a.println("Session locked. Enter your PIN with 'unlock'.")
	case session.KindHome:
		a.println("Ready. Type 'help' for commands.")
	}
}

func (a *App) setScreen(to session.Destination) {
	a.mu.Lock()
	a.screen = to
	a.mu.Unlock()
}

// Screen returns the current destination.
func (a *App) Screen() session.Destination {
	return a.Current()
}

// Alert implements workers.Alerter.
func (a *App) Alert(_ context.Context, n models.Notification) {
	a.printf("\n[notification] %s", n.Title)
	if n.Message != "" {
		a.printf(": %s", n.Message)
	}
	a.println()
}

func (a *App) status() string {
	s := ""
	if a.d.Session != nil {
		if name := a.d.Session.DisplayName(); name != "" {
			s = name + " "
		} else if email := a.d.Session.Email(); email != "" {
			s = email + " "
		}
	}
	if a.d.Net != nil {
		s += string(a.d.Net.Mode())
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

var outMu sync.Mutex

func (a *App) printf(format string, args ...any) {
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintf(a.d.Out, format, args...)
}

func (a *App) println(args ...any) {
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintln(a.d.Out, args...)
}
