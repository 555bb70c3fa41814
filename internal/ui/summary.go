package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func itoa(n int) string { return strconv.Itoa(n) }

// SessionSummary is what `evcs auth status` prints.
type SessionSummary struct {
	BaseURL   string
	SignedIn  bool
	Email     string
	Role      string
	Critical  bool
	Cookies   []string
	FetchedAt time.Time
}

// Render lays the summary out as labelled rows.
func (s SessionSummary) Render(p *Palette) string {
	var b strings.Builder

	b.WriteString(p.Title("Session"))
	b.WriteString("\n")
	b.WriteString(p.Row("backend", s.BaseURL) + "\n")

	if s.SignedIn {
		b.WriteString(p.Row("status", p.OK("signed in")) + "\n")
	} else {
		b.WriteString(p.Row("status", p.Err("signed out")) + "\n")
	}
	if s.Email != "" {
		b.WriteString(p.Row("user", fmt.Sprintf("%s (%s)", s.Email, s.Role)) + "\n")
	}
	if !s.FetchedAt.IsZero() {
		b.WriteString(p.Row("profile from", s.FetchedAt.Format(time.RFC3339)) + "\n")
	}

	if s.Critical {
		b.WriteString(p.Row("critical", p.Warn("on: refresh and logout suspended")) + "\n")
	} else {
		b.WriteString(p.Row("critical", "off") + "\n")
	}

	if len(s.Cookies) == 0 {
		b.WriteString(p.Row("cookies", p.Help("none")) + "\n")
	} else {
		b.WriteString(p.Row("cookies", strings.Join(s.Cookies, ", ")) + "\n")
	}

	return b.String()
}

// BatchLine is one finished request of a batch.
type BatchLine struct {
	Method   string
	Path     string
	Status   int
	Duration time.Duration
	Err      error
}

// BatchSummary is the footer printed after `evcs api batch`.
type BatchSummary struct {
	Lines     []BatchLine
	Succeeded int
	Failed    int
	Elapsed   time.Duration
	Refreshes int64
	Replays   int64
}

// Render prints one line per request and a totals block.
func (s BatchSummary) Render(p *Palette) string {
	var b strings.Builder

	b.WriteString(p.Title("Batch"))
	b.WriteString("\n")
	for _, line := range s.Lines {
		fmt.Fprintf(&b, "%s %-6s %s %s", p.Status(line.Status), line.Method, line.Path, p.Help(line.Duration.Round(time.Millisecond).String()))
		if line.Err != nil {
			fmt.Fprintf(&b, " %s", p.Err(line.Err.Error()))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(p.Row("succeeded", p.OK(itoa(s.Succeeded))) + "\n")
	if s.Failed > 0 {
		b.WriteString(p.Row("failed", p.Err(itoa(s.Failed))) + "\n")
	} else {
		b.WriteString(p.Row("failed", "0") + "\n")
	}
	b.WriteString(p.Row("refreshes", strconv.FormatInt(s.Refreshes, 10)) + "\n")
	b.WriteString(p.Row("replays", strconv.FormatInt(s.Replays, 10)) + "\n")
	b.WriteString(p.Row("elapsed", s.Elapsed.Round(time.Millisecond).String()) + "\n")

	return b.String()
}
