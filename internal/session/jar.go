package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/net/publicsuffix"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/shared"
)

const cookieStateKey = "cookies"

// StateStore persists small string values across process runs.
type StateStore interface {
	GetState(key string) (string, bool, error)
	SetState(key, value string) error
	DeleteState(key string) error
}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CookieJar is a public-suffix aware [cookiejar.Jar] whose cookies for the
// backend origin are written through to a [StateStore].
type CookieJar struct {
	mu     sync.Mutex
	jar    *cookiejar.Jar
	base   *url.URL
	store  StateStore
	logger *log.Logger
}

// NewCookieJar creates a jar for baseURL and restores any cookies saved in store.
//
// A nil store yields an in-memory jar.
func NewCookieJar(baseURL string, store StateStore) (*CookieJar, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	j := &CookieJar{jar: jar, base: base, store: store, logger: shared.NewLogger(nil)}
	if err := j.restore(); err != nil {
		return nil, err
	}

	return j, nil
}

// WithLogger sets the logger used to report persistence failures.
func (j *CookieJar) WithLogger(l *log.Logger) *CookieJar {
	if l != nil {
		j.logger = shared.WithLogger(l, "component", "cookie_jar")
	}
	return j
}

// SetCookies implements [http.CookieJar].
//
// [http.CookieJar] cannot report errors, so a failed write to the store is
// logged and the cookies are kept in memory only.
func (j *CookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)
	if err := j.persist(); err != nil {
		j.logger.Warn("failed to persist session cookies", "host", u.Host, "count", len(cookies), "error", err)
	}
}

// Cookies implements [http.CookieJar].
func (j *CookieJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// Import seeds the jar with cookies for the backend origin, e.g. from a browser session.
func (j *CookieJar) Import(cookies []*http.Cookie) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(j.base, cookies)
	return j.persist()
}

// Clear drops every cookie held for the backend origin.
func (j *CookieJar) Clear(context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	var expired []*http.Cookie
	for _, c := range j.jar.Cookies(j.base) {
		expired = append(expired, &http.Cookie{Name: c.Name, Value: "", Path: "/", MaxAge: -1})
	}
	j.jar.SetCookies(j.base, expired)

	if j.store == nil {
		return nil
	}
	return j.store.DeleteState(cookieStateKey)
}

func (j *CookieJar) persist() error {
	if j.store == nil {
		return nil
	}

	var saved []storedCookie
	for _, c := range j.jar.Cookies(j.base) {
		saved = append(saved, storedCookie{Name: c.Name, Value: c.Value})
	}

	data, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}
	if err := j.store.SetState(cookieStateKey, string(data)); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}
	return nil
}

func (j *CookieJar) restore() error {
	if j.store == nil {
		return nil
	}

	value, ok, err := j.store.GetState(cookieStateKey)
	if err != nil {
		return fmt.Errorf("failed to load cookies: %w", err)
	}
	if !ok {
		return nil
	}

	var saved []storedCookie
	if err := json.Unmarshal([]byte(value), &saved); err != nil {
		return fmt.Errorf("failed to decode cookies: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(saved))
	for _, c := range saved {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	j.jar.SetCookies(j.base, cookies)
	return nil
}
