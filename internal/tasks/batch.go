// package tasks implements concurrent request batches over the session client.
package tasks

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/session"
	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/shared"
)

// Doer sends a single request. [session.Client] implements it.
type Doer interface {
	Do(ctx context.Context, req *session.Request) (*session.Response, error)
}

// BatchJob is one request of a batch.
type BatchJob struct {
	Method string
	Path   string
	Body   []byte
}

// BatchResult is the outcome of one [BatchJob].
type BatchResult struct {
	Index     int
	Job       BatchJob
	RequestID string
	Status    int
	Duration  time.Duration
	Err       error
}

// BatchReport summarizes a batch run. Results keep the order of the submitted jobs.
type BatchReport struct {
	Total     int
	Succeeded int
	Failed    int
	Elapsed   time.Duration
	Results   []BatchResult
}

// BatchOpts configures a [BatchRunner].
type BatchOpts struct {
	Concurrency int     // Concurrent requests (default: 8)
	RateLimit   float64 // Requests per second, 0 for unlimited
}

// BatchRunner sends jobs through a [Doer] concurrently.
type BatchRunner struct {
	client Doer
	opts   BatchOpts
}

// NewBatchRunner creates a [BatchRunner].
func NewBatchRunner(client Doer, opts BatchOpts) *BatchRunner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	return &BatchRunner{client: client, opts: opts}
}

// Run sends every job and waits for all of them.
//
// Individual failures are reported in the results. Run itself only fails when the client is missing
// or ctx ends before every job was dispatched.
func (r *BatchRunner) Run(ctx context.Context, prog chan<- ProgressUpdate, jobs []BatchJob) (*BatchReport, error) {
	if r.client == nil {
		return nil, fmt.Errorf("%w: client not initialized", shared.ErrServiceUnavailable)
	}

	limit := rate.Inf
	if r.opts.RateLimit > 0 {
		limit = rate.Limit(r.opts.RateLimit)
	}
	limiter := rate.NewLimiter(limit, 1)

	report := &BatchReport{Total: len(jobs), Results: make([]BatchResult, len(jobs))}
	start := time.Now()

	var completed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for i, job := range jobs {
		if err := limiter.Wait(gctx); err != nil {
			_ = g.Wait()
			return nil, fmt.Errorf("batch interrupted after %d of %d requests: %w", i, len(jobs), err)
		}

		sendProgress(prog, dispatchUpdate(i+1, len(jobs), job))

		g.Go(func() error {
			res := r.send(gctx, i, job)
			report.Results[i] = res

			step := int(completed.Add(1))
			if res.Err != nil {
				sendProgress(prog, failedUpdate(step, len(jobs), res))
			} else {
				sendProgress(prog, doneUpdate(step, len(jobs), res))
			}
			return nil
		})
	}

	_ = g.Wait()
	report.Elapsed = time.Since(start)

	for _, res := range report.Results {
		if res.Err != nil {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}

	return report, nil
}

func (r *BatchRunner) send(ctx context.Context, i int, job BatchJob) BatchResult {
	req := session.NewRequest(job.Method, job.Path, job.Body)
	res := BatchResult{Index: i, Job: job, RequestID: req.ID}

	start := time.Now()
	resp, err := r.client.Do(ctx, req)
	res.Duration = time.Since(start)

	if err != nil {
		res.Err = err
		res.Status = session.StatusOf(err)
		return res
	}
	res.Status = resp.StatusCode
	return res
}

// Repeat builds n identical jobs.
func Repeat(n int, job BatchJob) []BatchJob {
	jobs := make([]BatchJob, n)
	for i := range jobs {
		jobs[i] = job
	}
	return jobs
}

// ParseJobs reads one job per line in the form METHOD PATH [JSON body].
func ParseJobs(r io.Reader) ([]BatchJob, error) {
	var jobs []BatchJob

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.SplitN(text, " ", 3)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: line %d: expected METHOD PATH", shared.ErrInvalidInput, line)
		}

		method := strings.ToUpper(fields[0])
		switch method {
		case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			return nil, fmt.Errorf("%w: line %d: unsupported method %s", shared.ErrInvalidInput, line, fields[0])
		}
		if !strings.HasPrefix(fields[1], "/") {
			return nil, fmt.Errorf("%w: line %d: path must start with /", shared.ErrInvalidInput, line)
		}

		job := BatchJob{Method: method, Path: fields[1]}
		if len(fields) == 3 {
			body := []byte(strings.TrimSpace(fields[2]))
			if err := shared.ValidateJSON(body); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			job.Body = body
		}
		jobs = append(jobs, job)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read jobs: %w", err)
	}
	return jobs, nil
}
