package cli

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/dmitrijs2005/fieldmate/internal/client/session"
	"github.com/dmitrijs2005/fieldmate/internal/common"
)

type fakeExec struct {
	screen session.Destination

	calls       []string
	foregrounds int
	err         error
}

func (f *fakeExec) Screen() session.Destination { return f.screen }
func (f *fakeExec) Foreground()                 { f.foregrounds++ }

func (f *fakeExec) call(name string, args ...string) error {
	f.calls = append(f.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	return f.err
}

func (f *fakeExec) Login(context.Context) error {
	f.screen = session.PinSetup()
	return f.call("login")
}
func (f *fakeExec) SetupPin(context.Context) error {
	f.screen = session.Home()
	return f.call("pin")
}
func (f *fakeExec) Unlock(context.Context) error {
	f.screen = session.Home()
	return f.call("unlock")
}
func (f *fakeExec) Lock(context.Context) error {
	f.screen = session.PinUnlock()
	return f.call("lock")
}
func (f *fakeExec) Logout(context.Context) error {
	f.screen = session.Login()
	return f.call("logout")
}
func (f *fakeExec) Jobs(context.Context) error               { return f.call("jobs") }
func (f *fakeExec) Search(_ context.Context, q string) error { return f.call("search", q) }
func (f *fakeExec) Job(_ context.Context, id string) error   { return f.call("job", id) }
func (f *fakeExec) Start(_ context.Context, jobID, notes string) error {
	return f.call("start", jobID, notes)
}
func (f *fakeExec) Stop(_ context.Context, notes string) error { return f.call("stop", notes) }
func (f *fakeExec) Entries(context.Context) error              { return f.call("entries") }
func (f *fakeExec) Notifications(context.Context) error        { return f.call("notifications") }
func (f *fakeExec) Read(_ context.Context, id string) error    { return f.call("read", id) }
func (f *fakeExec) Delete(_ context.Context, id string) error  { return f.call("delete", id) }
func (f *fakeExec) Docs(_ context.Context, jobID string) error { return f.call("docs", jobID) }
func (f *fakeExec) AddDoc(_ context.Context, jobID, path string) error {
	return f.call("adddoc", jobID, path)
}
func (f *fakeExec) Fix(_ context.Context, args []string) error { return f.call("fix", args...) }
func (f *fakeExec) Flush(context.Context) error                { return f.call("flush") }
func (f *fakeExec) Sync(context.Context) error                 { return f.call("sync") }
func (f *fakeExec) Update(context.Context) error               { return f.call("update") }
func (f *fakeExec) Status(context.Context) error               { return f.call("status") }

func capturePrints(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, fmt.Sprint(a...))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	capturePrints(t)

	input := strings.Join([]string{
		"help",
		"jobs",
		"login",
		"jobs",
		"pin",
		"jobs",
		"search roof leak",
		"job J1",
		"start J1 fix pump",
		"stop done",
		"read all",
		"adddoc J1 /tmp/site photo.jpg",
		"fix 56.9 24.1",
		"sync",
		"foobar",
		"exit",
		"jobs",
	}, "\n")

	exec := &fakeExec{screen: session.Login()}
	runREPL(context.Background(), exec, func() string { return "status" }, rdr(input))

	want := []string{
		"login",
		"pin",
		"jobs",
		"search roof leak",
		"job J1",
		"start J1 fix pump",
		"stop done",
		"read all",
		"adddoc J1 /tmp/site photo.jpg",
		"fix 56.9 24.1",
		"sync",
	}
	if fmt.Sprint(exec.calls) != fmt.Sprint(want) {
		t.Fatalf("calls mismatch:\n got %v\nwant %v", exec.calls, want)
	}
	if exec.foregrounds != 16 {
		t.Fatalf("foreground signals: got %d, want 16", exec.foregrounds)
	}
}

func TestRunREPL_LockedScreenAllowsOnlyUnlock(t *testing.T) {
	lines := capturePrints(t)

	exec := &fakeExec{screen: session.PinUnlock()}
	runREPL(context.Background(), exec, func() string { return "" }, rdr("jobs\nstatus\nunlock\njobs\n"))

	if fmt.Sprint(exec.calls) != fmt.Sprint([]string{"status", "unlock", "jobs"}) {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
	found := false
	for _, l := range *lines {
		if strings.HasPrefix(l, "Not available now.") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected gate message in %v", *lines)
	}
}

func TestRunREPL_UsageAndQuit(t *testing.T) {
	capturePrints(t)

	exec := &fakeExec{screen: session.Home()}
	runREPL(context.Background(), exec, func() string { return "s" }, rdr("job\nstart\nread\nadddoc J1\nquit\n"))

	if len(exec.calls) != 0 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
}

func TestRunREPL_PrintsPublicMessage(t *testing.T) {
	lines := capturePrints(t)

	exec := &fakeExec{screen: session.Home(), err: fmt.Errorf("stop: %w", common.ErrNoActiveEntry)}
	runREPL(context.Background(), exec, func() string { return "" }, rdr("stop"))

	got := strings.Join(*lines, "\n")
	if !strings.Contains(got, "No timer is running.") {
		t.Fatalf("missing public message in %q", got)
	}
}
