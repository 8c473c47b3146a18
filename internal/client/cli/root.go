package cli

import (
	"context"

	"github.com/dmitrijs2005/fieldmate/internal/client/session"
)

// SetGate connects the session gate once it has been built around a.
func (a *App) SetGate(g Triggers) {
	a.d.Gate = g
}

// Foreground signals the gate that the user is interacting with the app.
func (a *App) Foreground() {
	if a.d.Gate != nil {
		a.d.Gate.Notify(session.TriggerForeground)
	}
}

// Root runs the interactive loop until the input ends or the user exits.
func (a *App) Root(ctx context.Context) {
	a.println("Welcome to FieldMate (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader)
}
