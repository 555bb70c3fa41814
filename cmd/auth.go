package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/urfave/cli/v3"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/models"
	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/session"
	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/shared"
	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/ui"
)

// AuthLogin posts credentials to the login path. The backend's cookies land in the persisted jar.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	password := cmd.String("password")
	if password == "" {
		return fmt.Errorf("%w: --password or EVCS_PASSWORD is required", shared.ErrMissingArgument)
	}

	s, err := r.open(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	req := session.NewRequest(http.MethodPost, r.config.Client.Paths.Login, body)
	req.SkipAuthRefresh = true

	r.logger.Info("signing in", "email", email, "request_id", req.ID)
	if _, err := s.client.Do(ctx, req); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	profile, err := r.fetchProfile(ctx, s)
	if err != nil {
		r.logger.Warn("signed in but failed to fetch profile", "error", err)
		return r.writePlain("%s signed in as %s\n", r.palette.OK("✓"), email)
	}

	return r.writePlain("%s signed in as %s (%s)\n", r.palette.OK("✓"), profile.Email, profile.Role)
}

// AuthStatus prints local session state, optionally checking it against the backend.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	s, err := r.open(ctx)
	if err != nil {
		return err
	}

	summary := ui.SessionSummary{
		BaseURL:  r.config.Client.BaseURL,
		Critical: s.critical.Active(),
	}

	if base, err := url.Parse(r.config.Client.BaseURL); err == nil {
		for _, c := range s.jar.Cookies(base) {
			summary.Cookies = append(summary.Cookies, c.Name)
		}
	}
	summary.SignedIn = len(summary.Cookies) > 0

	profile, err := s.profiles.Get(ctx)
	switch {
	case err == nil:
		summary.Email, summary.Role, summary.FetchedAt = profile.Email, profile.Role, profile.FetchedAt
	case !errors.Is(err, shared.ErrProfileNotFound):
		r.logger.Warn("failed to read cached profile", "error", err)
	}

	if cmd.Bool("check") {
		req := session.NewRequest(http.MethodGet, r.config.Client.Paths.Me, nil)
		req.SkipAuthRefresh = true
		_, err := s.client.Do(ctx, req)
		summary.SignedIn = err == nil
		if err != nil {
			r.logger.Info("session check failed", "status", session.StatusOf(err), "error", err)
		}
	}

	return r.writePlain("%s", summary.Render(r.palette))
}

// AuthWhoami fetches the profile through the session client, refreshing if needed, and caches it.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	s, err := r.open(ctx)
	if err != nil {
		return err
	}

	profile, err := r.fetchProfile(ctx, s)
	if err != nil {
		return err
	}

	var raw any
	if err := json.Unmarshal(profile.Raw, &raw); err != nil {
		return r.writeJSON(profile, cmd.Bool("pretty"))
	}
	return r.writeJSON(raw, cmd.Bool("pretty"))
}

// AuthRefresh runs a refresh cycle without a triggering request.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	s, err := r.open(ctx)
	if err != nil {
		return err
	}

	if s.critical.Active() {
		return fmt.Errorf("%w: refresh suspended", shared.ErrCriticalActive)
	}

	if err := s.client.Coordinator().Refresh(ctx); err != nil {
		return err
	}

	stats := s.client.Coordinator().Stats()
	r.logger.Debug("refresh finished", "liveness_calls", stats.LivenessCalls)
	return r.writePlain("%s session refreshed\n", r.palette.OK("✓"))
}

// AuthLogout ends the session on the backend and wipes local state.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	s, err := r.open(ctx)
	if err != nil {
		return err
	}

	if err := s.terminator.Logout(ctx); err != nil {
		r.logger.Warn("logout incomplete", "error", err)
		return r.writePlain("%s local session cleared, backend logout failed\n", r.palette.Warn("!"))
	}
	return r.writePlain("%s signed out\n", r.palette.OK("✓"))
}

// AuthImport seeds the cookie jar from a browser "Copy as cURL" command.
func (r *Runner) AuthImport(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}
	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	var (
		parsed *shared.CurlSession
		err    error
	)
	if curlFile != "" {
		parsed, err = shared.ParseCurlFile(curlFile)
	} else {
		parsed, err = shared.ParseCurlCommand(curlCmd)
	}
	if err != nil {
		return fmt.Errorf("failed to parse cURL command: %w", err)
	}
	if len(parsed.Cookies) == 0 {
		return fmt.Errorf("%w: cURL command carries no cookies", shared.ErrInvalidInput)
	}

	if parsed.URL != nil && parsed.URL.Host != "" {
		if base, err := url.Parse(r.config.Client.BaseURL); err == nil && base.Host != parsed.URL.Host {
			r.logger.Warn("cURL host differs from client.base_url", "curl", parsed.URL.Host, "base_url", base.Host)
		}
	}

	s, err := r.open(ctx)
	if err != nil {
		return err
	}
	if err := s.jar.Import(parsed.Cookies); err != nil {
		return fmt.Errorf("failed to store cookies: %w", err)
	}

	r.logger.Info("imported cookies", "count", len(parsed.Cookies))
	return r.writePlain("%s imported %d cookies\n", r.palette.OK("✓"), len(parsed.Cookies))
}

// fetchProfile calls the profile endpoint through the client and caches the result.
func (r *Runner) fetchProfile(ctx context.Context, s *stack) (*models.Profile, error) {
	resp, err := s.client.Get(ctx, r.config.Client.Paths.Me)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	profile, err := models.ParseProfile(resp.Body)
	if err != nil {
		return nil, err
	}

	if err := s.profiles.Save(ctx, profile); err != nil {
		r.logger.Warn("failed to cache profile", "error", err)
	}
	return profile, nil
}
