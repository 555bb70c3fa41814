package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/shared"
)

// Opts configures a [MockBackend].
type Opts struct {
	SessionTTL time.Duration // SessionTTL is the access cookie lifetime
	RefreshTTL time.Duration // RefreshTTL is the refresh cookie lifetime
	Gateway    bool          // Gateway answers unauthenticated API calls with a login page
	Logger     *log.Logger
}

// Stats counts calls per route since the backend started.
type Stats struct {
	Logins          int64 `json:"logins"`
	Refreshes       int64 `json:"refreshes"`
	RefreshFailures int64 `json:"refresh_failures"`
	MeCalls         int64 `json:"me_calls"`
	Logouts         int64 `json:"logouts"`
	APICalls        int64 `json:"api_calls"`
}

// MockBackend is an in-process stand-in for the charging station backend's session API.
type MockBackend struct {
	sessions *sessionStore
	gateway  atomic.Bool
	logger   *log.Logger
	router   *BasicRouter

	logins          atomic.Int64
	refreshes       atomic.Int64
	refreshFailures atomic.Int64
	meCalls         atomic.Int64
	logouts         atomic.Int64
	apiCalls        atomic.Int64
}

// NewMockBackend creates a [MockBackend] with its routes registered.
func NewMockBackend(opts Opts) *MockBackend {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 2 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	b := &MockBackend{
		sessions: newSessionStore(opts.SessionTTL, opts.RefreshTTL),
		logger:   opts.Logger,
		router:   NewBasicRouter(),
	}
	b.gateway.Store(opts.Gateway)

	b.router.Use(Recover(b.logger), RequestID(), Logging(b.logger))

	b.router.HandleFunc(http.MethodGet, "/auth/login", func(w http.ResponseWriter, _ *http.Request) { writeLoginPage(w) })
	b.router.HandleFunc(http.MethodPost, "/auth/login", b.login)
	b.router.HandleFunc(http.MethodPost, "/auth/refresh", b.refresh)
	b.router.HandleFunc(http.MethodGet, "/auth/me", b.me)
	b.router.HandleFunc(http.MethodPost, "/auth/logout", b.logout)
	b.router.HandleFunc("", "/api/", b.api)

	b.router.HandleFunc(http.MethodPost, "/admin/expire", b.expire)
	b.router.HandleFunc(http.MethodPost, "/admin/gateway", b.setGateway)
	b.router.HandleFunc(http.MethodGet, "/admin/stats", b.stats)

	return b
}

// ServeHTTP implements [http.Handler].
func (b *MockBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

// SetGateway toggles gateway mode.
func (b *MockBackend) SetGateway(on bool) {
	b.gateway.Store(on)
}

// ExpireSessions ends every access token. Refresh tokens stay valid.
func (b *MockBackend) ExpireSessions() int {
	return b.sessions.expireAccess()
}

// RevokeSessions ends every access and refresh token.
func (b *MockBackend) RevokeSessions() {
	b.sessions.revokeAll()
}

// Stats returns a snapshot of the call counters.
func (b *MockBackend) Stats() Stats {
	return Stats{
		Logins:          b.logins.Load(),
		Refreshes:       b.refreshes.Load(),
		RefreshFailures: b.refreshFailures.Load(),
		MeCalls:         b.meCalls.Load(),
		Logouts:         b.logouts.Load(),
		APICalls:        b.apiCalls.Load(),
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (b *MockBackend) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return b.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (b *MockBackend) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           b,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		b.logger.Infof("mock backend listening on %v", ln.Addr())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
