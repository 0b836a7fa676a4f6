package commands

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"filippo.io/csrf"
	"github.com/stretchr/testify/require"
)

func TestServeCmdValidate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     ServeCmd
		wantErr bool
	}{
		{name: "memory defaults", cmd: ServeCmd{StoreType: "memory"}},
		{name: "cert without key", cmd: ServeCmd{StoreType: "memory", Cert: "cert.pem"}, wantErr: true},
		{name: "postgres without connection string", cmd: ServeCmd{StoreType: "postgres"}, wantErr: true},
		{
			name: "postgres with connection string",
			cmd: ServeCmd{
				StoreType:     "postgres",
				PostgresStore: PostgresStoreFlags{ConnString: "postgres://localhost/worktable"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestServeCmdSecureCookies(t *testing.T) {
	tests := []struct {
		name string
		cmd  ServeCmd
		want bool
	}{
		{name: "plain http by default", cmd: ServeCmd{}, want: false},
		{name: "tls forces secure", cmd: ServeCmd{Cert: "cert.pem", Key: "key.pem"}, want: true},
		{name: "explicit behind a tls proxy", cmd: ServeCmd{SecureCookies: true}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.cmd.secureCookies())
		})
	}
}

func TestPostgresStoreFlagsPoolConfig(t *testing.T) {
	flags := PostgresStoreFlags{ConnString: "postgres://db/worktable", MaxConns: 4, MinConns: 1, AutoMigrate: true}
	cfg := flags.PoolConfig()
	require.Equal(t, "postgres://db/worktable", cfg.ConnString)
	require.EqualValues(t, 4, cfg.MaxConns)
	require.True(t, cfg.AutoMigrate)
}

func TestMiddlewareChain(t *testing.T) {
	protection := csrf.New()
	require.NoError(t, protection.AddTrustedOrigin("https://app.example.com"))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := withCORS([]string{"https://app.example.com"}, protection.Handler(next))

	tests := []struct {
		name   string
		method string
		origin string
		status int
	}{
		{name: "same origin read", method: http.MethodGet, status: http.StatusNoContent},
		{name: "trusted cross origin write", method: http.MethodPut, origin: "https://app.example.com", status: http.StatusNoContent},
		{name: "untrusted cross origin write", method: http.MethodPut, origin: "https://evil.example.com", status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "http://api.example.com/api/v1/workspace/document", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			require.Equal(t, tt.status, w.Code)
		})
	}

	t.Run("preflight from trusted origin", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "http://api.example.com/api/v1/workspace/document", nil)
		r.Header.Set("Origin", "https://app.example.com")
		r.Header.Set("Access-Control-Request-Method", http.MethodPut)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		require.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})
}
