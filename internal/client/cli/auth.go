package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fieldmate/internal/common"
)

// Login asks for email and password and signs in.
func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", a.d.Out)
	if err != nil {
		return err
	}
	password, err := GetSecret(a.reader, "Password", a.d.Out)
	if err != nil {
		return err
	}
	if email == "" || password == "" {
		return fmt.Errorf("email and password are required: %w", common.ErrorUnauthorized)
	}
	if err := a.d.Auth.Login(ctx, email, password); err != nil {
		return err
	}
	a.println("Signed in.")
	return nil
}

// SetupPin asks for a new PIN twice.
func (a *App) SetupPin(ctx context.Context) error {
	pin, err := GetSecret(a.reader, "New PIN (4-6 digits)", a.d.Out)
	if err != nil {
		return err
	}
	again, err := GetSecret(a.reader, "Repeat PIN", a.d.Out)
	if err != nil {
		return err
	}
	if pin != again {
		a.println("PINs do not match.")
		return nil
	}
	if err := a.d.Auth.SetupPin(ctx, pin); err != nil {
		return err
	}
	a.println("PIN saved.")
	return nil
}

func (a *App) Unlock(ctx context.Context) error {
	pin, err := GetSecret(a.reader, "PIN", a.d.Out)
	if err != nil {
		return err
	}
	return a.d.Auth.Unlock(ctx, pin)
}

func (a *App) Lock(ctx context.Context) error {
	return a.d.Auth.Lock(ctx)
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.d.Auth.Logout(ctx); err != nil {
		return err
	}
	a.println("Signed out.")
	return nil
}
