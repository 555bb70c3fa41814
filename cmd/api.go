package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/formatter"
	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/session"
	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/shared"
	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/tasks"
	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/ui"
)

// APIGet issues a GET through the session client.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	return r.call(ctx, cmd, http.MethodGet)
}

// APIPost issues a POST with the --data body.
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	return r.call(ctx, cmd, http.MethodPost)
}

// APIPut issues a PUT with the --data body.
func (r *Runner) APIPut(ctx context.Context, cmd *cli.Command) error {
	return r.call(ctx, cmd, http.MethodPut)
}

// APIDelete issues a DELETE through the session client.
func (r *Runner) APIDelete(ctx context.Context, cmd *cli.Command) error {
	return r.call(ctx, cmd, http.MethodDelete)
}

func (r *Runner) call(ctx context.Context, cmd *cli.Command, method string) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path is required", shared.ErrMissingArgument)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var body []byte
	if data := cmd.String("data"); data != "" {
		body = []byte(data)
		if err := shared.ValidateJSON(body); err != nil {
			return err
		}
	}

	s, err := r.open(ctx)
	if err != nil {
		return err
	}

	req := session.NewRequest(method, path, body)
	if cmd.Bool("text") {
		req.Expect = session.ExpectText
	}
	req.SkipAuthRefresh = cmd.Bool("no-refresh")

	r.logger.Debug("calling backend", "method", method, "path", path, "request_id", req.ID)

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if cmd.Bool("text") {
		return r.writePlain("%s\n", resp.Body)
	}
	return r.writeBody(resp.Body, cmd.Bool("pretty"))
}

// APIBatch sends many requests concurrently through one session client so that
// an expired session is refreshed once for the whole batch.
func (r *Runner) APIBatch(ctx context.Context, cmd *cli.Command) error {
	var (
		jobs []tasks.BatchJob
		err  error
	)

	if file := cmd.String("file"); file != "" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("failed to open batch file: %w", err)
		}
		jobs, err = tasks.ParseJobs(f)
		f.Close()
		if err != nil {
			return err
		}
	} else {
		count := int(cmd.Int("count"))
		if count <= 0 {
			return fmt.Errorf("%w: --count must be positive", shared.ErrInvalidArgument)
		}
		jobs = tasks.Repeat(count, tasks.BatchJob{
			Method: strings.ToUpper(cmd.String("method")),
			Path:   cmd.String("path"),
		})
	}

	if len(jobs) == 0 {
		return fmt.Errorf("%w: no requests to send", shared.ErrInvalidInput)
	}

	opts := tasks.BatchOpts{
		Concurrency: r.config.Batch.Concurrency,
		RateLimit:   r.config.Batch.RateLimit,
	}
	if c := int(cmd.Int("concurrency")); c > 0 {
		opts.Concurrency = c
	}
	if rl := cmd.Float("rate"); rl > 0 {
		opts.RateLimit = rl
	}

	s, err := r.open(ctx)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, len(jobs)*2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()

	r.logger.Info("starting batch", "requests", len(jobs), "concurrency", opts.Concurrency, "rate", opts.RateLimit)
	report, err := tasks.NewBatchRunner(s.client, opts).Run(ctx, progress, jobs)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	stats := s.client.Coordinator().Stats()
	summary := ui.BatchSummary{
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
		Elapsed:   report.Elapsed,
		Refreshes: stats.Refreshes,
		Replays:   stats.Replays,
	}
	for _, res := range report.Results {
		summary.Lines = append(summary.Lines, ui.BatchLine{
			Method:   res.Job.Method,
			Path:     res.Job.Path,
			Status:   res.Status,
			Duration: res.Duration,
			Err:      res.Err,
		})
	}

	if err := r.writePlain("%s", summary.Render(r.palette)); err != nil {
		return err
	}

	if path := cmd.String("export"); path != "" {
		if err := formatter.WriteReport(report, path); err != nil {
			return err
		}
		r.logger.Info("batch report written", "path", path)
	}
	if report.Failed > 0 {
		return fmt.Errorf("%w: %d of %d requests failed", shared.ErrAPIRequest, report.Failed, report.Total)
	}
	return nil
}
