package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/shared"
)

// DisguisedAuthPolicy selects how a 2xx login page is handled outside critical mode.
type DisguisedAuthPolicy string

const (
	// RedirectOnDisguisedAuth navigates to login and fails the call.
	RedirectOnDisguisedAuth DisguisedAuthPolicy = "redirect"
	// RefreshOnDisguisedAuth coordinates the failure exactly like a 401.
	RefreshOnDisguisedAuth DisguisedAuthPolicy = "refresh"
)

// ClientOpts configures a [Client].
type ClientOpts struct {
	Transport     Transport
	Coordinator   *Coordinator
	Critical      CriticalMode
	Terminator    Terminator
	DisguisedAuth DisguisedAuthPolicy
	Logger        *log.Logger

	// Paths and TerminalStatuses configure the default coordinator. They are ignored when Coordinator is set.
	Paths            Paths
	TerminalStatuses []int
}

// Client is the entry point application code uses for every backend call.
//
// Each response passes through [Classify]. Failures are handed to the
// [Coordinator], whose replay-or-reject result is returned to the caller.
type Client struct {
	transport     Transport
	coordinator   *Coordinator
	critical      CriticalMode
	terminator    Terminator
	disguisedAuth DisguisedAuthPolicy
	logger        *log.Logger
}

// NewClient creates a [Client] and binds its coordinator to it.
//
// A nil Coordinator gets a default one sharing the client's critical mode and terminator.
func NewClient(opts ClientOpts) *Client {
	if opts.Transport == nil {
		opts.Transport = NewHTTPTransport("", nil)
	}
	if opts.Critical == nil {
		opts.Critical = &Flag{}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.DisguisedAuth == "" {
		opts.DisguisedAuth = RedirectOnDisguisedAuth
	}
	if opts.Coordinator == nil {
		opts.Coordinator = NewCoordinator(CoordinatorOpts{
			Critical:         opts.Critical,
			Terminator:       opts.Terminator,
			Paths:            opts.Paths,
			TerminalStatuses: opts.TerminalStatuses,
			Logger:           opts.Logger,
		})
	}

	c := &Client{
		transport:     opts.Transport,
		coordinator:   opts.Coordinator,
		critical:      opts.Critical,
		terminator:    opts.Terminator,
		disguisedAuth: opts.DisguisedAuth,
		logger:        shared.WithLogger(opts.Logger, "component", "client"),
	}
	c.coordinator.bind(c)

	return c
}

// Coordinator returns the client's refresh coordinator.
func (c *Client) Coordinator() *Coordinator {
	return c.coordinator
}

// Do sends req, recovering from an expired session when possible.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", shared.ErrInvalidInput)
	}
	if req.ID == "" {
		req.ID = shared.GenerateID()
	}

	resp, err := c.transport.Do(ctx, req)
	if err == nil {
		if Classify(req, resp) == Pass {
			return resp, nil
		}

		err = c.disguised(ctx, req, resp)
		if !c.coordinated(req, err) {
			return nil, err
		}
	}

	c.logger.Debug("request failed", "method", req.Method, "path", req.Path, "status", StatusOf(err), "request_id", req.ID)
	return c.coordinator.HandleFailure(ctx, req, err)
}

// disguised turns a 2xx login page into an [*AuthRedirectError], navigating
// to login when the failure is terminal.
func (c *Client) disguised(ctx context.Context, req *Request, resp *Response) error {
	redirectErr := &AuthRedirectError{Path: req.Path, ContentType: resp.ContentType()}

	switch {
	case c.critical.Active():
		redirectErr.Blocked = true
		c.logger.Warn("login redirect blocked during critical operation", "path", req.Path)
	case req.SkipAuthRefresh, c.disguisedAuth == RefreshOnDisguisedAuth:
	default:
		c.logger.Warn("auth gateway returned a login page", "path", req.Path)
		if c.terminator != nil {
			c.terminator.Navigate(ctx)
		}
	}

	return redirectErr
}

// coordinated reports whether a disguised failure still goes through the coordinator.
func (c *Client) coordinated(req *Request, err error) bool {
	redirectErr, ok := err.(*AuthRedirectError)
	if !ok {
		return true
	}
	return redirectErr.Blocked || req.SkipAuthRefresh || c.disguisedAuth == RefreshOnDisguisedAuth
}

// Get issues a GET expecting JSON.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodGet, path, nil))
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body []byte) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodPost, path, body))
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body []byte) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodPut, path, body))
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodDelete, path, nil))
}

// GetJSON issues a GET and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%w: failed to decode %s: %v", shared.ErrAPIRequest, path, err)
	}
	return nil
}
