package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfeidau/worktable/cmd/tablectl/internal/session"
	"github.com/wolfeidau/worktable/internal/models"
)

type SignupCmd struct {
	Email    string `arg:"" help:"Account email"`
	Password string `help:"Account password, prompted for when empty" env:"WORKTABLE_PASSWORD"`
	Org      string `help:"Name of the first organization, defaults to the email's local part"`
}

func (s *SignupCmd) Run(ctx context.Context, globals *Globals) error {
	password, err := readPassword(s.Password)
	if err != nil {
		return err
	}

	c, save, err := globals.login()
	if err != nil {
		return err
	}

	user, org, err := c.Signup(ctx, s.Email, password, s.Org)
	if err != nil {
		return fmt.Errorf("failed to sign up: %w", err)
	}
	if err := save(user.Email); err != nil {
		return err
	}

	globals.printf("Signed up as %s\n", user.Email)
	globals.printf("Active organization: %s (%s)\n", org.Name, org.OrgID)
	return nil
}

type LoginCmd struct {
	Email    string `arg:"" help:"Account email"`
	Password string `help:"Account password, prompted for when empty" env:"WORKTABLE_PASSWORD"`
}

func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	password, err := readPassword(l.Password)
	if err != nil {
		return err
	}

	c, save, err := globals.login()
	if err != nil {
		return err
	}

	user, err := c.Login(ctx, l.Email, password)
	if err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}
	if err := save(user.Email); err != nil {
		return err
	}

	globals.printf("Logged in as %s\n", user.Email)
	return nil
}

type LogoutCmd struct {
	All bool `help:"End every session of the account, not just this one"`
}

func (l *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	c, store, err := globals.connect()
	if errors.Is(err, session.ErrNoSession) {
		globals.printf("Not logged in\n")
		return nil
	}
	if err != nil {
		return err
	}

	if l.All {
		n, err := c.LogoutEverywhere(ctx)
		if err != nil {
			return fmt.Errorf("failed to log out: %w", err)
		}
		if err := store.Clear(); err != nil {
			return err
		}
		globals.printf("Logged out of %d sessions\n", n)
		return nil
	}

	if err := c.Logout(ctx); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	if err := store.Clear(); err != nil {
		return err
	}

	globals.printf("Logged out\n")
	return nil
}

type WhoamiCmd struct{}

func (w *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	c, _, err := globals.connect()
	if err != nil {
		return err
	}

	user, err := c.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	globals.printf("%s\n", user.Email)
	printMemberships(globals, user)
	return nil
}

func printMemberships(globals *Globals, user *models.User) {
	for _, m := range user.Memberships {
		marker := " "
		if user.ActiveOrgID != nil && *user.ActiveOrgID == m.OrgID {
			marker = "*"
		}
		globals.printf("%s %s\t%s\t%s\n", marker, m.OrgID, m.Role, m.Name)
	}
}
