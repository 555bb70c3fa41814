package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/cache"
	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/models"
	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/repositories"
	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/session"
	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/shared"
)

// stack is the session client wiring shared by the auth, api and critical commands.
type stack struct {
	db         *sql.DB
	redis      *redis.Client
	state      *repositories.StateRepository
	profiles   models.ProfileStore
	jar        *session.CookieJar
	critical   *session.StoredFlag
	transport  *session.HTTPTransport
	terminator *session.SessionTerminator
	client     *session.Client
}

// open builds the session stack from config once per process:
// database → state → cookie jar → transport → terminator → coordinator → client.
func (r *Runner) open(ctx context.Context) (*stack, error) {
	if r.stack != nil {
		return r.stack, nil
	}

	cfg := r.config
	s := &stack{}

	db, err := shared.OpenDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	s.db = db
	s.state = repositories.NewStateRepository(db)

	switch cfg.Cache.Backend {
	case "redis":
		rdb, err := cache.NewClient(ctx, cfg.Cache)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.redis = rdb
		s.profiles = cache.NewProfileCache(rdb, cfg.Cache.RedisPrefix, cfg.Cache.TTL.Duration)
	default:
		s.profiles = repositories.NewProfileRepository(db)
	}

	if s.jar, err = session.NewCookieJar(cfg.Client.BaseURL, s.state); err != nil {
		s.Close()
		return nil, err
	}
	s.jar.WithLogger(r.logger)
	if s.critical, err = session.NewStoredFlag(s.state); err != nil {
		s.Close()
		return nil, err
	}

	httpClient := r.httpClient
	if httpClient == nil {
		httpClient = session.NewHTTPClient(cfg.Client.Timeout.Duration, cfg.Client.SendCredentials, s.jar)
	}
	s.transport = session.NewHTTPTransport(cfg.Client.BaseURL, httpClient).WithUserAgent(cfg.Client.UserAgent)

	var nav session.Navigator = session.NewLogNavigator(cfg.Client.LoginURL, r.logger)
	if cfg.Client.OpenBrowser {
		nav = session.NewBrowserNavigator(cfg.Client.LoginURL)
	}

	s.terminator = session.NewSessionTerminator(session.TerminatorOpts{
		Transport:  s.transport,
		LogoutPath: cfg.Client.Paths.Logout,
		Local:      []session.LocalState{s.profiles, s.jar},
		Navigator:  nav,
		Logger:     r.logger,
	})

	s.client = session.NewClient(session.ClientOpts{
		Transport:     s.transport,
		Critical:      s.critical,
		Terminator:    s.terminator,
		DisguisedAuth: session.DisguisedAuthPolicy(cfg.Client.DisguisedAuth),
		Logger:        r.logger,
		Paths: session.Paths{
			Refresh: cfg.Client.Paths.Refresh,
			Me:      cfg.Client.Paths.Me,
		},
		TerminalStatuses: cfg.Client.TerminalStatuses,
	})

	r.stack = s
	return s, nil
}

// Close releases the database and the Redis client.
func (s *stack) Close() error {
	var errs []error
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
