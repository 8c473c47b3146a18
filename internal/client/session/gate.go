// Package session implements the session gate: the checkpoint between an
// authenticated user and the usable app.
//
// The gate watches credential snapshots, network events and lifecycle
// triggers, and whenever any of them fires it re-derives the screen the user
// must be on. Evaluation is level-triggered: it only looks at the current
// state, never at what changed, so repeated or reordered signals are
// harmless.
package session

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/securestore"
	"github.com/dmitrijs2005/fieldmate/internal/logging"
)

// Trigger is an app lifecycle signal.
type Trigger int

const (
	TriggerResume Trigger = iota + 1
	TriggerForeground
)

// StateSource provides credential snapshots.
type StateSource interface {
	State() securestore.State
	Subscribe(ctx context.Context) <-chan securestore.State
}

// Navigator is implemented by the UI.
type Navigator interface {
	Current() Destination
	Navigate(to Destination)
}

// Target returns the screen state requires at now. forced treats the
// unlock flag as set. The boolean is false when the user may stay anywhere
// in the main app.
func Target(st securestore.State, now time.Time, forced bool) (Destination, bool) {
	if forced {
		st.PinUnlockRequired = true
	}
	switch {
	case !st.IsLoggedIn:
		return Login(), true
	case st.NeedsPinSetup():
		return PinSetup(), true
	case st.RequiresPinUnlock(now):
		return PinUnlock(), true
	}
	return Home(), false
}

// Decide returns where to navigate from current, or false to stay.
func Decide(st securestore.State, now time.Time, forced bool, current Destination) (Destination, bool) {
	target, gated := Target(st, now, forced)
	if target.Kind() == current.Kind() {
		return Destination{}, false
	}
	if !gated && current.Kind() != 0 && !current.IsGate() {
		return Destination{}, false
	}
	return target, true
}

// Locker is the part of the credential store LockOnLaunch needs.
type Locker interface {
	State() securestore.State
	SetPinUnlockRequired(ctx context.Context, required bool) error
}

// LockOnLaunch requires a PIN unlock on a cold start of a signed-in user
// who has a PIN, so relaunching the app never skips the gate.
func LockOnLaunch(ctx context.Context, l Locker) error {
	st := l.State()
	if !st.IsLoggedIn || !st.HasPin {
		return nil
	}
	return l.SetPinUnlockRequired(ctx, true)
}

// Gate drives the Navigator from session state.
type Gate struct {
	store    StateSource
	bus      *Bus
	nav      Navigator
	clock    Clock
	log      logging.Logger
	triggers chan Trigger
}

func NewGate(store StateSource, bus *Bus, nav Navigator, clock Clock, log logging.Logger) *Gate {
	if clock == nil {
		clock = RealClock()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Gate{
		store:    store,
		bus:      bus,
		nav:      nav,
		clock:    clock,
		log:      log,
		triggers: make(chan Trigger, busBuffer),
	}
}

// Notify queues a lifecycle trigger for the running gate.
func (g *Gate) Notify(t Trigger) {
	select {
	case g.triggers <- t:
	default:
	}
}

// Run evaluates the gate until ctx is done. The expiry timer is armed for
// the exact remaining time and re-armed whenever the expiry changes.
func (g *Gate) Run(ctx context.Context) error {
	states := g.store.Subscribe(ctx)
	var events <-chan Event
	if g.bus != nil {
		events = g.bus.Subscribe(ctx)
	}

	expired := make(chan struct{}, 1)
	var (
		timer    Timer
		armedFor time.Time
		current  = g.store.State()
		// latched holds a bus-forced lock the store could not record yet.
		latched bool
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	rearm := func(exp time.Time) {
		if exp.Equal(armedFor) {
			return
		}
		if timer != nil {
			timer.Stop()
			timer = nil
		}
		armedFor = exp
		if exp.IsZero() {
			return
		}
		d := exp.Sub(g.clock.Now())
		if d <= 0 {
			return
		}
		timer = g.clock.AfterFunc(d, func() {
			select {
			case expired <- struct{}{}:
			default:
			}
		})
		g.log.Debug(ctx, "expiry lock armed", "in", d)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st, ok := <-states:
			if !ok {
				return ctx.Err()
			}
			current = st
			if st.PinUnlockRequired || !st.IsLoggedIn {
				latched = false
			}
			rearm(st.TokenExpiresAt)
			g.evaluate(ctx, current, latched, "state")
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev == EventRequirePinUnlock && current.IsLoggedIn {
				if g.persistLock(ctx) {
					current.PinUnlockRequired = true
				} else {
					latched = true
				}
			}
			g.evaluate(ctx, current, latched, ev.String())
		case <-g.triggers:
			if latched && g.persistLock(ctx) {
				current.PinUnlockRequired = true
				latched = false
			}
			g.evaluate(ctx, current, latched, "lifecycle")
		case <-expired:
			g.evaluate(ctx, current, latched, "expiry")
		}
	}
}

// persistLock records the unlock requirement when the state source can
// store it, and reports whether it did.
func (g *Gate) persistLock(ctx context.Context) bool {
	l, ok := g.store.(Locker)
	if !ok {
		return false
	}
	if err := l.SetPinUnlockRequired(ctx, true); err != nil {
		g.log.Warn(ctx, "failed to persist forced lock", "error", err)
		return false
	}
	return true
}

func (g *Gate) evaluate(ctx context.Context, st securestore.State, forced bool, cause string) {
	from := g.nav.Current()
	to, ok := Decide(st, g.clock.Now(), forced, from)
	if !ok {
		return
	}
	g.log.Info(ctx, "session gate navigation", "from", from.String(), "to", to.String(), "cause", cause)
	g.nav.Navigate(to)
}
