package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sync"
	"testing"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/shared"
)

func TestCoordinatorDecide(t *testing.T) {
	coord := NewCoordinator(CoordinatorOpts{Logger: shared.NewLogger(nil)})

	retried := NewRequest(http.MethodGet, "/api/stations", nil)
	retried.retried = true

	skipped := NewRequest(http.MethodPost, "/auth/logout", nil)
	skipped.SkipAuthRefresh = true

	tc := []struct {
		name     string
		req      *Request
		err      error
		critical bool
		want     Outcome
	}{
		{
			name: "fresh 401 refreshes",
			req:  NewRequest(http.MethodGet, "/api/stations", nil),
			err:  &StatusError{StatusCode: http.StatusUnauthorized},
			want: Refresh,
		},
		{
			name: "disguised auth refreshes",
			req:  NewRequest(http.MethodGet, "/api/stations", nil),
			err:  &AuthRedirectError{Path: "/api/stations"},
			want: Refresh,
		},
		{
			name:     "critical mode rejects",
			req:      NewRequest(http.MethodGet, "/api/stations", nil),
			err:      &StatusError{StatusCode: http.StatusUnauthorized},
			critical: true,
			want:     Reject,
		},
		{
			name:     "critical mode rejects even a retried request",
			req:      retried,
			err:      &StatusError{StatusCode: http.StatusUnauthorized},
			critical: true,
			want:     Reject,
		},
		{
			name: "missing descriptor rejects",
			req:  nil,
			err:  &StatusError{StatusCode: http.StatusUnauthorized},
			want: Reject,
		},
		{
			name: "skip auth refresh rejects",
			req:  skipped,
			err:  &StatusError{StatusCode: http.StatusUnauthorized},
			want: Reject,
		},
		{
			name: "non auth status rejects",
			req:  NewRequest(http.MethodGet, "/api/stations", nil),
			err:  &StatusError{StatusCode: http.StatusForbidden},
			want: Reject,
		},
		{
			name: "transport error rejects",
			req:  NewRequest(http.MethodGet, "/api/stations", nil),
			err:  fmt.Errorf("%w: connection refused", shared.ErrTransport),
			want: Reject,
		},
		{
			name: "refresh call rejects",
			req:  NewRequest(http.MethodPost, "/auth/refresh", nil),
			err:  &StatusError{StatusCode: http.StatusUnauthorized},
			want: Reject,
		},
		{
			name: "retried request logs out",
			req:  retried,
			err:  &StatusError{StatusCode: http.StatusUnauthorized},
			want: RejectAndLogout,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			flag := coord.critical.(*Flag)
			if tt.critical {
				flag.Enter()
			}
			defer flag.Exit()

			got := coord.Decide(tt.req, tt.err)
			if got.Outcome != tt.want {
				t.Errorf("Decide() = %v, want %v", got.Outcome, tt.want)
			}
			if got.Outcome != Refresh && got.Err != tt.err {
				t.Errorf("Decide() err = %v, want original %v", got.Err, tt.err)
			}
		})
	}
}

func TestCoordinator(t *testing.T) {
	t.Run("Concurrent Failures Share One Refresh", func(t *testing.T) {
		for _, n := range []int{1, 3, 16} {
			t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
				session := &sessionBackend{release: make(chan struct{})}
				backend := newFakeBackend(func(req *Request, _ int) (*Response, error) {
					switch req.Path {
					case "/auth/refresh":
						<-session.release
						session.valid.Store(true)
						return &Response{StatusCode: http.StatusNoContent, Headers: http.Header{}}, nil
					default:
						return session.api(req)
					}
				})
				env := newTestEnv(t, backend, RedirectOnDisguisedAuth)

				var wg sync.WaitGroup
				errs := make(chan error, n)
				for i := 0; i < n; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, err := env.client.Get(context.Background(), "/api/stations")
						errs <- err
					}()
				}

				waitForWaiters(t, env.coord, n-1)
				close(session.release)
				wg.Wait()
				close(errs)

				for err := range errs {
					if err != nil {
						t.Errorf("expected replay to succeed, got %v", err)
					}
				}

				if got := backend.count("/auth/refresh"); got != 1 {
					t.Errorf("expected exactly one refresh call, got %d", got)
				}
				if got := backend.count("/api/stations"); got != 2*n {
					t.Errorf("expected %d calls (each request replayed once), got %d", 2*n, got)
				}
				if stats := env.coord.Stats(); stats.Replays != int64(n) {
					t.Errorf("expected %d replays, got %d", n, stats.Replays)
				}
				if env.coord.Refreshing() {
					t.Error("refreshing flag should be cleared")
				}
				if terms, navs := env.terminator.counts(); terms != 0 || navs != 0 {
					t.Errorf("expected no session termination, got %d terminations, %d navigations", terms, navs)
				}
			})
		}
	})

	t.Run("Second Failure After Replay Logs Out", func(t *testing.T) {
		backend := newFakeBackend(func(req *Request, _ int) (*Response, error) {
			if req.Path == "/auth/refresh" {
				return jsonResponse(`{}`), nil
			}
			return nil, statusErr(req, http.StatusUnauthorized)
		})
		env := newTestEnv(t, backend, RedirectOnDisguisedAuth)

		req := NewRequest(http.MethodGet, "/api/reservations/42", nil)
		_, err := env.client.Do(context.Background(), req)

		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected the second 401 to surface, got %v", err)
		}
		if !req.Retried() {
			t.Error("expected request to be marked retried")
		}
		if got := backend.count("/auth/refresh"); got != 1 {
			t.Errorf("expected one refresh call, got %d", got)
		}
		if got := backend.count("/api/reservations/42"); got != 2 {
			t.Errorf("expected original + one replay, got %d", got)
		}
		if terms, _ := env.terminator.counts(); terms != 1 {
			t.Errorf("expected one termination, got %d", terms)
		}
	})

	t.Run("Critical Mode Suppresses Everything", func(t *testing.T) {
		backend := newFakeBackend(func(req *Request, _ int) (*Response, error) {
			return nil, statusErr(req, http.StatusUnauthorized)
		})
		env := newTestEnv(t, backend, RedirectOnDisguisedAuth)
		env.critical.Enter()

		_, err := env.client.Get(context.Background(), "/api/payments/confirm")
		if !errors.Is(err, shared.ErrUnauthorized) {
			t.Fatalf("expected original 401, got %v", err)
		}

		for _, path := range []string{"/auth/refresh", "/auth/me", "/auth/logout"} {
			if got := backend.count(path); got != 0 {
				t.Errorf("expected no calls to %s, got %d", path, got)
			}
		}
		if terms, navs := env.terminator.counts(); terms != 0 || navs != 0 {
			t.Errorf("expected no side effects, got %d terminations, %d navigations", terms, navs)
		}
	})

	t.Run("Liveness Success Recovers Failed Refresh", func(t *testing.T) {
		session := &sessionBackend{release: make(chan struct{})}
		backend := newFakeBackend(func(req *Request, _ int) (*Response, error) {
			switch req.Path {
			case "/auth/refresh":
				<-session.release
				return nil, statusErr(req, http.StatusInternalServerError)
			case "/auth/me":
				session.valid.Store(true)
				return jsonResponse(`{"id":"u1"}`), nil
			default:
				return session.api(req)
			}
		})
		env := newTestEnv(t, backend, RedirectOnDisguisedAuth)

		const n = 3
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.client.Get(context.Background(), "/api/vehicles")
				errs <- err
			}()
		}

		waitForWaiters(t, env.coord, n-1)
		close(session.release)
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				t.Errorf("expected replay after liveness success, got %v", err)
			}
		}
		if got := backend.count("/auth/me"); got != 1 {
			t.Errorf("expected one liveness call, got %d", got)
		}
		if got := backend.count("/auth/logout"); got != 0 {
			t.Errorf("expected no logout, got %d", got)
		}
		if terms, _ := env.terminator.counts(); terms != 0 {
			t.Errorf("expected no termination, got %d", terms)
		}
	})

	t.Run("Refresh And Liveness Failure Ends Session Once", func(t *testing.T) {
		release := make(chan struct{})
		backend := newFakeBackend(func(req *Request, _ int) (*Response, error) {
			switch req.Path {
			case "/auth/refresh":
				<-release
				return nil, statusErr(req, http.StatusUnauthorized)
			default:
				return nil, statusErr(req, http.StatusUnauthorized)
			}
		})
		env := newTestEnv(t, backend, RedirectOnDisguisedAuth)

		const n = 4
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.client.Get(context.Background(), "/api/stations/7/ports")
				errs <- err
			}()
		}

		waitForWaiters(t, env.coord, n-1)
		close(release)
		wg.Wait()
		close(errs)

		for err := range errs {
			if !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected refresh error for every caller, got %v", err)
			}
		}
		if terms, _ := env.terminator.counts(); terms != 1 {
			t.Errorf("expected exactly one termination, got %d", terms)
		}
		if got := backend.count("/api/stations/7/ports"); got != n {
			t.Errorf("expected no replays, got %d calls", got)
		}
	})

	t.Run("Replays Failing Again End Session Once", func(t *testing.T) {
		release := make(chan struct{})
		backend := newFakeBackend(func(req *Request, _ int) (*Response, error) {
			switch req.Path {
			case "/auth/refresh":
				<-release
				return jsonResponse(`{}`), nil
			default:
				return nil, statusErr(req, http.StatusUnauthorized)
			}
		})
		env := newTestEnv(t, backend, RedirectOnDisguisedAuth)

		const n = 8
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.client.Get(context.Background(), "/api/stations")
				errs <- err
			}()
		}

		waitForWaiters(t, env.coord, n-1)
		close(release)
		wg.Wait()
		close(errs)

		for err := range errs {
			if !errors.Is(err, shared.ErrUnauthorized) {
				t.Errorf("expected 401 after replay for every caller, got %v", err)
			}
		}
		if got := backend.count("/auth/refresh"); got != 1 {
			t.Errorf("expected 1 refresh, got %d", got)
		}
		if got := backend.count("/api/stations"); got != 2*n {
			t.Errorf("expected every request to replay once, got %d calls", got)
		}
		if terms, _ := env.terminator.counts(); terms != 1 {
			t.Errorf("expected exactly one termination, got %d", terms)
		}
	})

	t.Run("Each Failed Cycle Ends Session", func(t *testing.T) {
		backend := newFakeBackend(func(req *Request, _ int) (*Response, error) {
			if req.Path == "/auth/refresh" {
				return jsonResponse(`{}`), nil
			}
			return nil, statusErr(req, http.StatusUnauthorized)
		})
		env := newTestEnv(t, backend, RedirectOnDisguisedAuth)

		for i := 0; i < 2; i++ {
			if _, err := env.client.Get(context.Background(), "/api/stations"); !errors.Is(err, shared.ErrUnauthorized) {
				t.Fatalf("call %d: expected 401, got %v", i, err)
			}
		}

		if got := backend.count("/auth/refresh"); got != 2 {
			t.Errorf("expected 2 refresh cycles, got %d", got)
		}
		if terms, _ := env.terminator.counts(); terms != 2 {
			t.Errorf("expected one termination per cycle, got %d", terms)
		}
	})

	t.Run("Non Terminal Liveness Failure Keeps Session", func(t *testing.T) {
		backend := newFakeBackend(func(req *Request, _ int) (*Response, error) {
			switch req.Path {
			case "/auth/refresh":
				return nil, statusErr(req, http.StatusBadGateway)
			case "/auth/me":
				return nil, statusErr(req, http.StatusServiceUnavailable)
			default:
				return nil, statusErr(req, http.StatusUnauthorized)
			}
		})
		env := newTestEnv(t, backend, RedirectOnDisguisedAuth)

		_, err := env.client.Get(context.Background(), "/api/stations")
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected refresh error, got %v", err)
		}
		if StatusOf(err) != http.StatusBadGateway {
			t.Errorf("expected refresh status to be preserved, got %d", StatusOf(err))
		}
		if terms, _ := env.terminator.counts(); terms != 0 {
			t.Errorf("expected no termination, got %d", terms)
		}
	})

	t.Run("Critical Mode Entered During Refresh Blocks Logout", func(t *testing.T) {
		var env *testEnv
		backend := newFakeBackend(func(req *Request, _ int) (*Response, error) {
			if req.Path == "/auth/refresh" {
				env.critical.Enter()
			}
			return nil, statusErr(req, http.StatusUnauthorized)
		})
		env = newTestEnv(t, backend, RedirectOnDisguisedAuth)

		_, err := env.client.Get(context.Background(), "/api/stations")
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected refresh error, got %v", err)
		}
		if terms, _ := env.terminator.counts(); terms != 0 {
			t.Errorf("expected no termination under critical mode, got %d", terms)
		}
	})

	t.Run("Configurable Terminal Statuses", func(t *testing.T) {
		backend := newFakeBackend(func(req *Request, _ int) (*Response, error) {
			if req.Path == "/auth/me" {
				return nil, statusErr(req, http.StatusBadRequest)
			}
			return nil, statusErr(req, http.StatusUnauthorized)
		})
		term := &recordingTerminator{}
		coord := NewCoordinator(CoordinatorOpts{
			Terminator:       term,
			TerminalStatuses: []int{http.StatusUnauthorized, http.StatusForbidden},
			Logger:           shared.NewLogger(nil),
		})
		client := NewClient(ClientOpts{Transport: backend, Coordinator: coord, Terminator: term})

		if _, err := client.Get(context.Background(), "/api/stations"); err == nil {
			t.Fatal("expected error")
		}
		if terms, _ := term.counts(); terms != 0 {
			t.Errorf("400 is not terminal in this configuration, got %d terminations", terms)
		}
	})

	t.Run("Refresh Endpoint Never Recurses", func(t *testing.T) {
		backend := newFakeBackend(func(req *Request, _ int) (*Response, error) {
			return nil, statusErr(req, http.StatusUnauthorized)
		})
		env := newTestEnv(t, backend, RedirectOnDisguisedAuth)

		_, err := env.client.Post(context.Background(), "/auth/refresh", nil)
		if StatusOf(err) != http.StatusUnauthorized {
			t.Fatalf("expected original 401, got %v", err)
		}
		if got := backend.count("/auth/refresh"); got != 1 {
			t.Errorf("expected only the caller's own refresh call, got %d", got)
		}
		if stats := env.coord.Stats(); stats.Refreshes != 0 {
			t.Errorf("expected no refresh cycle, got %d", stats.Refreshes)
		}
	})

	t.Run("Skip Auth Refresh Passes Through", func(t *testing.T) {
		backend := newFakeBackend(func(req *Request, _ int) (*Response, error) {
			return nil, statusErr(req, http.StatusUnauthorized)
		})
		env := newTestEnv(t, backend, RedirectOnDisguisedAuth)

		req := NewRequest(http.MethodGet, "/api/stations", nil)
		req.SkipAuthRefresh = true
		if _, err := env.client.Do(context.Background(), req); StatusOf(err) != http.StatusUnauthorized {
			t.Fatalf("expected original 401, got %v", err)
		}
		if got := backend.count("/auth/refresh"); got != 0 {
			t.Errorf("expected no refresh, got %d", got)
		}
	})

	t.Run("Transport Errors Pass Through", func(t *testing.T) {
		boom := fmt.Errorf("%w: dial tcp: connection refused", shared.ErrTransport)
		backend := newFakeBackend(func(req *Request, _ int) (*Response, error) {
			return nil, boom
		})
		env := newTestEnv(t, backend, RedirectOnDisguisedAuth)

		if _, err := env.client.Get(context.Background(), "/api/stations"); err != boom {
			t.Fatalf("expected transport error unchanged, got %v", err)
		}
		if got := backend.count("/auth/refresh"); got != 0 {
			t.Errorf("expected no refresh, got %d", got)
		}
	})

	t.Run("Standalone Refresh", func(t *testing.T) {
		backend := newFakeBackend(func(req *Request, _ int) (*Response, error) {
			return jsonResponse(`{}`), nil
		})
		env := newTestEnv(t, backend, RedirectOnDisguisedAuth)

		if err := env.coord.Refresh(context.Background()); err != nil {
			t.Fatalf("expected refresh to succeed, got %v", err)
		}
		if stats := env.coord.Stats(); stats.Refreshes != 1 || stats.Replays != 0 {
			t.Errorf("unexpected stats %+v", stats)
		}
	})

	t.Run("Waiter Stops Waiting On Cancel", func(t *testing.T) {
		release := make(chan struct{})
		backend := newFakeBackend(func(req *Request, _ int) (*Response, error) {
			if req.Path == "/auth/refresh" {
				<-release
				return jsonResponse(`{}`), nil
			}
			return jsonResponse(`{}`), nil
		})
		env := newTestEnv(t, backend, RedirectOnDisguisedAuth)

		leader := make(chan error, 1)
		go func() { leader <- env.coord.Refresh(context.Background()) }()
		waitForWaiters(t, env.coord, 0)

		ctx, cancel := context.WithCancel(context.Background())
		follower := make(chan error, 1)
		go func() { follower <- env.coord.Refresh(ctx) }()
		waitForWaiters(t, env.coord, 1)

		cancel()
		if err := <-follower; !errors.Is(err, context.Canceled) {
			t.Errorf("expected canceled waiter, got %v", err)
		}

		close(release)
		if err := <-leader; err != nil {
			t.Errorf("expected leader refresh to finish, got %v", err)
		}
		if env.coord.Refreshing() {
			t.Error("refreshing flag should be cleared")
		}
	})
}

func TestCoordinatorSettle(t *testing.T) {
	coord := NewCoordinator(CoordinatorOpts{Logger: shared.NewLogger(nil)})

	t.Run("Drains Queue With Shared Outcome", func(t *testing.T) {
		coord.refreshing = true
		waiters := []*waiter{
			{done: make(chan error, 1)},
			{done: make(chan error, 1)},
			{done: make(chan error, 1)},
		}
		coord.waiters = append(coord.waiters, waiters...)

		failure := errors.New("refresh failed")
		coord.settle(Decision{Outcome: Reject, Err: failure})

		if coord.refreshing {
			t.Error("expected refreshing to be cleared")
		}
		if len(coord.waiters) != 0 {
			t.Errorf("expected empty queue, got %d", len(coord.waiters))
		}
		for i, w := range waiters {
			if err := <-w.done; err != failure {
				t.Errorf("waiter %d got %v, want %v", i, err, failure)
			}
		}
	})

	t.Run("Resolves Waiters In Enqueue Order", func(t *testing.T) {
		const n = 6
		coord.refreshing = true
		coord.waiters = nil
		cases := make([]reflect.SelectCase, n)
		for i := range n {
			// Unbuffered so each send completes before settle moves on.
			w := &waiter{done: make(chan error)}
			coord.waiters = append(coord.waiters, w)
			cases[i] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(w.done)}
		}

		settled := make(chan struct{})
		go func() {
			coord.settle(Decision{Outcome: Replay})
			close(settled)
		}()

		var order []int
		for len(order) < n {
			chosen, _, _ := reflect.Select(cases)
			order = append(order, chosen)
			cases[chosen].Chan = reflect.Value{}
		}
		<-settled

		for i, got := range order {
			if got != i {
				t.Fatalf("expected enqueue order 0..%d, got %v", n-1, order)
			}
		}
	})

	t.Run("Queues Late Arrivals At The Tail", func(t *testing.T) {
		const n = 4
		coord.refreshing = true
		coord.waiters = nil

		var wg sync.WaitGroup
		var prev []*waiter
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				coord.cycle(context.Background())
			}()
			waitForWaiters(t, coord, i+1)

			coord.mu.Lock()
			snapshot := append([]*waiter(nil), coord.waiters...)
			coord.mu.Unlock()
			for j := range prev {
				if snapshot[j] != prev[j] {
					t.Fatalf("arrival %d reordered the queue at position %d", i, j)
				}
			}
			prev = snapshot
		}

		coord.settle(Decision{Outcome: Replay})
		wg.Wait()
	})

	t.Run("Replay Resolves With Nil", func(t *testing.T) {
		coord.refreshing = true
		w := &waiter{done: make(chan error, 1)}
		coord.waiters = []*waiter{w}

		coord.settle(Decision{Outcome: Replay})

		if err := <-w.done; err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})
}
