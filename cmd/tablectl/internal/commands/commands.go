package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/worktable/cmd/tablectl/internal/session"
	"github.com/wolfeidau/worktable/internal/client"
	"github.com/wolfeidau/worktable/internal/models"
	"golang.org/x/term"
)

const defaultServer = "http://localhost:8080"

type Globals struct {
	Debug     bool
	Version   string
	Server    string
	ConfigDir string

	// Out receives command output. Defaults to stdout.
	Out io.Writer
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Globals) printf(format string, args ...any) {
	fmt.Fprintf(g.out(), format, args...)
}

func (g *Globals) newClient(server string) (*client.Client, error) {
	cfg := client.DefaultConfig()
	cfg.ServerURL = server
	cfg.Timeout = 30 * time.Second

	c, err := client.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return c, nil
}

// connect restores the saved session. The --server flag wins over the server
// the session was created against.
func (g *Globals) connect() (*client.Client, *session.Store, error) {
	store, err := session.NewStore(g.ConfigDir)
	if err != nil {
		return nil, nil, err
	}

	profile, err := store.Load()
	if err != nil {
		return nil, nil, err
	}

	server := profile.Server
	if g.Server != "" {
		server = g.Server
	}

	c, err := g.newClient(server)
	if err != nil {
		return nil, nil, err
	}
	c.SetSessionToken(profile.SessionToken)

	return c, store, nil
}

// login builds a client for a fresh session and returns a function that saves
// it once the server has accepted the credentials.
func (g *Globals) login() (*client.Client, func(email string) error, error) {
	store, err := session.NewStore(g.ConfigDir)
	if err != nil {
		return nil, nil, err
	}

	server := g.Server
	if server == "" {
		server = defaultServer
	}

	c, err := g.newClient(server)
	if err != nil {
		return nil, nil, err
	}

	save := func(email string) error {
		token := c.SessionToken()
		if token == "" {
			return errors.New("server did not issue a session, Secure cookies need an https server url")
		}
		return store.Save(session.Profile{
			Server:       server,
			Email:        email,
			SessionToken: token,
		})
	}

	return c, save, nil
}

// resolveOrg finds an organization of user by id or by name. An empty ref
// selects the active organization.
func resolveOrg(user *models.User, ref string) (uuid.UUID, error) {
	if ref == "" {
		if user.ActiveOrgID == nil {
			return uuid.Nil, errors.New("no active organization, run tablectl switch")
		}
		return *user.ActiveOrgID, nil
	}

	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}

	for _, m := range user.Memberships {
		if strings.EqualFold(m.Name, ref) {
			return m.OrgID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("no organization named %q", ref)
}

func currentOrg(ctx context.Context, c *client.Client, ref string) (uuid.UUID, error) {
	user, err := c.CurrentUser(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return resolveOrg(user, ref)
}

// readPassword returns password, or prompts for one when stdin is a terminal.
func readPassword(password string) (string, error) {
	if password != "" {
		return password, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password is required (--password or WORKTABLE_PASSWORD)")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(data), nil
}
