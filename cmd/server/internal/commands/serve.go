package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"filippo.io/csrf"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/worktable/internal/api"
	"github.com/wolfeidau/worktable/internal/auth"
	httpmiddleware "github.com/wolfeidau/worktable/internal/http"
	"github.com/wolfeidau/worktable/internal/logger"
	"github.com/wolfeidau/worktable/internal/store"
	memorystore "github.com/wolfeidau/worktable/internal/store/memory"
	postgresstore "github.com/wolfeidau/worktable/internal/store/postgres"
	"github.com/wolfeidau/worktable/internal/telemetry"
	"github.com/wolfeidau/worktable/internal/workspace"
)

type ServeCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"WORKTABLE_LISTEN"`
	Cert   string `help:"path to TLS cert file, serves plain HTTP when empty" default:"" env:"WORKTABLE_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"WORKTABLE_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for browser clients" default:"http://localhost:3000" env:"WORKTABLE_CORS_ORIGINS"`

	// Session configuration
	SessionTTL        time.Duration `help:"session TTL" default:"24h" env:"WORKTABLE_SESSION_TTL"`
	SecureCookies     bool          `help:"mark session cookies Secure, always on when --cert is set" default:"false" env:"WORKTABLE_SECURE_COOKIES"`
	SessionReapPeriod time.Duration `help:"how often expired sessions are removed" default:"15m" env:"WORKTABLE_SESSION_REAP_PERIOD"`

	Tracing bool `help:"enable tracing and metrics export" default:"false" env:"WORKTABLE_TRACING"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"WORKTABLE_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (c *ServeCmd) Validate() error {
	if (c.Cert == "") != (c.Key == "") {
		return errors.New("--cert and --key must be set together")
	}
	if c.StoreType == "postgres" {
		return c.PostgresStore.Validate()
	}
	return nil
}

type stores struct {
	users         store.UserStore
	organizations store.OrganizationStore
	sessions      store.SessionStore
	documents     store.DocumentStore
	close         func()
}

// secureCookies reports whether session cookies carry the Secure attribute.
// Clients drop Secure cookies received over plain HTTP, so it is only forced
// on when the server terminates TLS itself.
func (c *ServeCmd) secureCookies() bool {
	return c.SecureCookies || c.Cert != ""
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	zerolog.DefaultContextLogger = &log

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
			ServiceName: "worktable-server",
			Version:     globals.Version,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	st, err := c.openStores(ctx, log)
	if err != nil {
		return err
	}
	defer st.close()

	sessionManager := auth.NewSessionManager(auth.SessionConfig{
		Sessions: st.sessions,
		TTL:      c.SessionTTL,
		Secure:   c.secureCookies(),
	})
	accounts := workspace.NewAccountService(workspace.AccountConfig{
		Users:         st.users,
		Organizations: st.organizations,
		Sessions:      st.sessions,
	})
	documents := workspace.NewDocumentService(st.documents)

	go reapSessions(ctx, st.sessions, c.SessionReapPeriod, log)

	// Cookie-authenticated state changes are rejected unless they come from
	// the same origin or one of the CORS origins.
	protection := csrf.New()
	for _, origin := range c.CORSOrigins {
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return fmt.Errorf("invalid CORS origin %q: %w", origin, err)
		}
	}

	var handler http.Handler = api.NewServer(accounts, documents, sessionManager).Handler()
	handler = protection.Handler(handler)
	handler = withCORS(c.CORSOrigins, handler)
	handler = httpmiddleware.ClientIPMiddleware()(handler)
	handler = logger.RequestLogger(log)(handler)

	srv := configureHTTPServer(c.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Bool("tls", c.Cert != "").Str("store", c.StoreType).Msg("Listening")
		if c.Cert != "" {
			errCh <- srv.ListenAndServeTLS(c.Cert, c.Key)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (c *ServeCmd) openStores(ctx context.Context, log zerolog.Logger) (*stores, error) {
	switch c.StoreType {
	case "postgres":
		pool, err := postgresstore.NewPool(ctx, c.PostgresStore.PoolConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		if c.PostgresStore.AutoMigrate {
			log.Info().Msg("Database migrations completed")
		}
		log.Info().Msg("Using PostgreSQL stores with shared connection pool")

		return &stores{
			users:         postgresstore.NewUserStore(pool),
			organizations: postgresstore.NewOrganizationStore(pool),
			sessions:      postgresstore.NewSessionStore(pool),
			documents:     postgresstore.NewDocumentStore(pool),
			close:         pool.Close,
		}, nil

	default:
		log.Warn().Msg("Using in-memory stores, data is lost on restart")
		return &stores{
			users:         memorystore.NewUserStore(),
			organizations: memorystore.NewOrganizationStore(),
			sessions:      memorystore.NewSessionStore(),
			documents:     memorystore.NewDocumentStore(),
			close:         func() {},
		}, nil
	}
}

func reapSessions(ctx context.Context, sessions store.SessionStore, period time.Duration, log zerolog.Logger) {
	if period <= 0 {
		return
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to remove expired sessions")
				continue
			}
			if n > 0 {
				log.Debug().Int("count", n).Msg("Removed expired sessions")
			}
		}
	}
}

// withCORS allows browser clients on the configured origins to call the API with cookies.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: true, // Required for cookie-based authentication
		MaxAge:           600,
	})
	return middleware.Handler(h)
}
