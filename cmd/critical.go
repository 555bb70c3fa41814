package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// CriticalOn enters critical mode for this profile.
func (r *Runner) CriticalOn(ctx context.Context, cmd *cli.Command) error {
	return r.setCritical(ctx, true)
}

// CriticalOff leaves critical mode.
func (r *Runner) CriticalOff(ctx context.Context, cmd *cli.Command) error {
	return r.setCritical(ctx, false)
}

// CriticalStatus prints whether critical mode is active.
func (r *Runner) CriticalStatus(ctx context.Context, cmd *cli.Command) error {
	s, err := r.open(ctx)
	if err != nil {
		return err
	}

	if s.critical.Active() {
		return r.writePlain("%s\n", r.palette.Warn("critical mode on: refresh and logout suspended"))
	}
	return r.writePlain("critical mode off\n")
}

func (r *Runner) setCritical(ctx context.Context, on bool) error {
	s, err := r.open(ctx)
	if err != nil {
		return err
	}

	if err := s.critical.Set(on); err != nil {
		return err
	}

	r.logger.Info("critical mode updated", "active", on)
	if on {
		return r.writePlain("%s critical mode on\n", r.palette.Warn("!"))
	}
	return r.writePlain("%s critical mode off\n", r.palette.OK("✓"))
}
