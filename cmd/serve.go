package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/server"
)

// Serve runs the mock backend until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server

	host := cfg.Host
	if h := cmd.String("host"); h != "" {
		host = h
	}
	port := cfg.Port
	if p := int(cmd.Int("port")); p > 0 {
		port = p
	}
	sessionTTL := cfg.SessionTTL.Duration
	if ttl := cmd.Duration("session-ttl"); ttl > 0 {
		sessionTTL = ttl
	}

	backend := server.NewMockBackend(server.Opts{
		SessionTTL: sessionTTL,
		RefreshTTL: cfg.RefreshTTL.Duration,
		Gateway:    cmd.Bool("gateway"),
		Logger:     r.logger,
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	r.writePlain("%s mock backend on http://%s (access cookies last %s)\n", r.palette.OK("→"), addr, sessionTTL)
	r.writePlain("%s\n", r.palette.Help("POST /admin/expire to expire every session, ?revoke=true to end refresh tokens too"))

	if err := backend.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("mock backend stopped: %w", err)
	}

	stats := backend.Stats()
	r.logger.Info("mock backend stopped", "logins", stats.Logins, "refreshes", stats.Refreshes, "api_calls", stats.APICalls)
	return nil
}
