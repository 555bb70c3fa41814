package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/shared"
	tu "github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/testing"
)

func TestSessionTerminator(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("Terminate", func(t *testing.T) {
		backend := newFakeBackend(func(req *Request, n int) (*Response, error) {
			if req.Method != http.MethodPost {
				t.Errorf("expected POST logout, got %s", req.Method)
			}
			if !req.SkipAuthRefresh {
				t.Error("expected logout to skip auth refresh")
			}
			return &Response{StatusCode: http.StatusNoContent}, nil
		})
		nav := &tu.RecordingNavigator{}
		profiles := &tu.RecordingClearer{}
		cookies := &tu.RecordingClearer{}

		term := NewSessionTerminator(TerminatorOpts{
			Transport:  backend,
			LogoutPath: "/auth/logout",
			Local:      []LocalState{profiles, cookies},
			Navigator:  nav,
			Logger:     logger,
		})
		term.Terminate(context.Background(), shared.ErrSessionEnded)

		if backend.count("/auth/logout") != 1 {
			t.Errorf("expected 1 logout call, got %d", backend.count("/auth/logout"))
		}
		if profiles.Cleared() != 1 || cookies.Cleared() != 1 {
			t.Error("expected every local state to be cleared")
		}
		if nav.Count() != 1 || term.Navigations() != 1 {
			t.Errorf("expected 1 navigation, got %d", nav.Count())
		}
		if term.Logouts() != 1 {
			t.Errorf("expected 1 logout, got %d", term.Logouts())
		}
	})

	t.Run("Best Effort", func(t *testing.T) {
		backend := newFakeBackend(func(*Request, int) (*Response, error) {
			return nil, errors.New("connection reset")
		})
		nav := &tu.RecordingNavigator{Err: errors.New("no browser")}
		failing := &tu.RecordingClearer{Err: errors.New("locked")}
		after := &tu.RecordingClearer{}

		term := NewSessionTerminator(TerminatorOpts{
			Transport: backend,
			Local:     []LocalState{failing, after},
			Navigator: nav,
			Logger:    logger,
		})
		term.Terminate(context.Background(), shared.ErrSessionEnded)

		if backend.count("/auth/logout") != 1 {
			t.Error("expected default logout path to be used")
		}
		if after.Cleared() != 1 {
			t.Error("expected clearing to continue past failures")
		}
		if nav.Count() != 1 {
			t.Error("expected navigation despite earlier failures")
		}
	})

	t.Run("Navigate Only", func(t *testing.T) {
		backend := newFakeBackend(func(*Request, int) (*Response, error) {
			return &Response{StatusCode: http.StatusOK}, nil
		})
		nav := &tu.RecordingNavigator{}
		local := &tu.RecordingClearer{}

		term := NewSessionTerminator(TerminatorOpts{Transport: backend, Local: []LocalState{local}, Navigator: nav, Logger: logger})
		term.Navigate(context.Background())

		if backend.count("/auth/logout") != 0 || local.Cleared() != 0 {
			t.Error("expected Navigate to skip logout and clearing")
		}
		if nav.Count() != 1 {
			t.Errorf("expected 1 navigation, got %d", nav.Count())
		}
	})

	t.Run("Without Transport", func(t *testing.T) {
		nav := &tu.RecordingNavigator{}
		term := NewSessionTerminator(TerminatorOpts{Navigator: nav, Logger: logger})
		term.Terminate(context.Background(), shared.ErrSessionEnded)

		if term.Logouts() != 0 {
			t.Error("expected no logout without a transport")
		}
		if nav.Count() != 1 {
			t.Error("expected navigation")
		}
	})
}

func TestNavigators(t *testing.T) {
	t.Run("BrowserNavigator", func(t *testing.T) {
		var opened string
		nav := NewBrowserNavigator("http://127.0.0.1:3000/auth/login")
		nav.open = func(u string) error {
			opened = u
			return nil
		}

		if err := nav.NavigateToLogin(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if opened != "http://127.0.0.1:3000/auth/login" {
			t.Errorf("expected login url to be opened, got %q", opened)
		}
	})

	t.Run("LogNavigator", func(t *testing.T) {
		nav := NewLogNavigator("http://127.0.0.1:3000/auth/login", shared.NewLogger(io.Discard))
		if err := nav.NavigateToLogin(context.Background()); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestSessionTerminatorLogout(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("Does Not Navigate", func(t *testing.T) {
		backend := newFakeBackend(func(*Request, int) (*Response, error) {
			return &Response{StatusCode: http.StatusNoContent}, nil
		})
		nav := &tu.RecordingNavigator{}
		local := &tu.RecordingClearer{}

		term := NewSessionTerminator(TerminatorOpts{Transport: backend, Local: []LocalState{local}, Navigator: nav, Logger: logger})
		if err := term.Logout(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if backend.count("/auth/logout") != 1 || local.Cleared() != 1 {
			t.Error("expected logout call and cleared state")
		}
		if nav.Count() != 0 {
			t.Error("expected no navigation on explicit logout")
		}
	})

	t.Run("Reports First Failure", func(t *testing.T) {
		backend := newFakeBackend(func(*Request, int) (*Response, error) {
			return nil, errors.New("connection reset")
		})
		local := &tu.RecordingClearer{}

		term := NewSessionTerminator(TerminatorOpts{Transport: backend, Local: []LocalState{local}, Logger: logger})
		err := term.Logout(context.Background())
		if err == nil || !strings.Contains(err.Error(), "logout call failed") {
			t.Errorf("expected logout call error, got %v", err)
		}
		if local.Cleared() != 1 {
			t.Error("expected local state to be cleared despite the failed call")
		}
	})
}
