// Package tasks runs batches of backend requests through the session client.
//
// # Batch Runs
//
// [BatchRunner.Run] sends a list of [BatchJob] values concurrently:
//   - concurrency is capped with an errgroup limit
//   - dispatch is paced by a token-bucket limiter
//   - a failed request is recorded in its [BatchResult] and never cancels the rest
//
// Firing many requests right after a session expires is the easiest way to watch the client
// share one refresh between every caller.
//
// # Progress Reporting
//
// Updates are sent on an optional channel with select/default so a slow consumer never blocks requests.
//
// # Job Files
//
// [ParseJobs] reads one request per line: METHOD PATH [JSON body]. Blank lines and # comments are skipped.
package tasks
