package session

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/shared"
)

// Terminator executes the side effects of ending a session.
type Terminator interface {
	// Terminate performs a best-effort logout, clears local session state and navigates to login.
	Terminate(ctx context.Context, cause error)
	// Navigate only sends the user to the login surface.
	Navigate(ctx context.Context)
}

// Navigator sends the user to the login surface.
type Navigator interface {
	NavigateToLogin(ctx context.Context) error
}

// LocalState is client-side session data wiped on forced logout.
type LocalState interface {
	Clear(ctx context.Context) error
}

// TerminatorOpts configures a [SessionTerminator].
type TerminatorOpts struct {
	Transport  Transport
	LogoutPath string
	Local      []LocalState
	Navigator  Navigator
	Logger     *log.Logger
}

// SessionTerminator is the default [Terminator].
//
// Logout goes straight to the [Transport] so it can never re-enter refresh coordination.
type SessionTerminator struct {
	transport  Transport
	logoutPath string
	local      []LocalState
	navigator  Navigator
	logger     *log.Logger

	logouts     atomic.Int64
	navigations atomic.Int64
}

// NewSessionTerminator creates a [SessionTerminator].
func NewSessionTerminator(opts TerminatorOpts) *SessionTerminator {
	if opts.LogoutPath == "" {
		opts.LogoutPath = "/auth/logout"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Navigator == nil {
		opts.Navigator = NewLogNavigator("", opts.Logger)
	}

	return &SessionTerminator{
		transport:  opts.Transport,
		logoutPath: opts.LogoutPath,
		local:      opts.Local,
		navigator:  opts.Navigator,
		logger:     opts.Logger,
	}
}

// Terminate implements [Terminator]. Every step is best effort.
func (t *SessionTerminator) Terminate(ctx context.Context, cause error) {
	t.logger.Warn("ending session", "cause", cause)

	if err := t.Logout(ctx); err != nil {
		t.logger.Debug("logout incomplete", "error", err)
	}

	t.Navigate(ctx)
}

// Logout tells the backend to end the session and clears every local state.
//
// All steps run even when one fails. The first failure is returned.
func (t *SessionTerminator) Logout(ctx context.Context) error {
	var first error

	if t.transport != nil {
		req := NewRequest(http.MethodPost, t.logoutPath, nil)
		req.SkipAuthRefresh = true
		t.logouts.Add(1)
		if _, err := t.transport.Do(ctx, req); err != nil {
			first = fmt.Errorf("logout call failed: %w", err)
		}
	}

	for _, state := range t.local {
		if err := state.Clear(ctx); err != nil {
			t.logger.Warn("failed to clear local session state", "error", err)
			if first == nil {
				first = err
			}
		}
	}

	return first
}

// Navigate implements [Terminator].
func (t *SessionTerminator) Navigate(ctx context.Context) {
	t.navigations.Add(1)
	if err := t.navigator.NavigateToLogin(ctx); err != nil {
		t.logger.Warn("failed to navigate to login", "error", err)
	}
}

// Logouts returns the number of logout calls attempted.
func (t *SessionTerminator) Logouts() int64 { return t.logouts.Load() }

// Navigations returns the number of login navigations performed.
func (t *SessionTerminator) Navigations() int64 { return t.navigations.Load() }

// BrowserNavigator opens the login URL in the system browser.
type BrowserNavigator struct {
	url  string
	open func(string) error
}

// NewBrowserNavigator creates a [BrowserNavigator] for loginURL.
func NewBrowserNavigator(loginURL string) *BrowserNavigator {
	return &BrowserNavigator{url: loginURL, open: shared.OpenBrowser}
}

// NavigateToLogin implements [Navigator].
func (b *BrowserNavigator) NavigateToLogin(context.Context) error {
	return b.open(b.url)
}

// LogNavigator tells the user where to sign in without leaving the terminal.
type LogNavigator struct {
	url    string
	logger *log.Logger
}

// NewLogNavigator creates a [LogNavigator].
func NewLogNavigator(loginURL string, logger *log.Logger) *LogNavigator {
	return &LogNavigator{url: loginURL, logger: logger}
}

// NavigateToLogin implements [Navigator].
func (l *LogNavigator) NavigateToLogin(context.Context) error {
	if l.url == "" {
		l.logger.Error("session ended, sign in again")
		return nil
	}
	l.logger.Error("session ended, sign in again", "url", l.url)
	return nil
}
