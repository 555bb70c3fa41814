package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

const loginPage = `<!DOCTYPE html>
<html>
<head><title>Sign in | EV Charging</title></head>
<body>
    <form method="post" action="/auth/login">
        <input name="email" type="email" placeholder="Email">
        <input name="password" type="password" placeholder="Password">
        <button type="submit">Sign in</button>
    </form>
</body>
</html>
`

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeLoginPage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, loginPage)
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (b *MockBackend) setSessionCookies(w http.ResponseWriter, access, refresh string) {
	http.SetCookie(w, &http.Cookie{Name: AccessCookie, Value: access, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Value: refresh, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	}
}

// login accepts JSON or form credentials. Any non-empty password signs in.
func (b *MockBackend) login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
	} else {
		creds.Email = r.FormValue("email")
		creds.Password = r.FormValue("password")
	}

	if creds.Email == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	role := "DRIVER"
	if strings.HasPrefix(creds.Email, "admin") {
		role = "ADMIN"
	}
	name := creds.Name
	if name == "" {
		name, _, _ = strings.Cut(creds.Email, "@")
	}

	user := b.sessions.user(creds.Email, name, role)
	access, refresh, err := b.sessions.issue(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue session")
		return
	}
	b.logins.Add(1)

	b.setSessionCookies(w, access, refresh)
	writeJSON(w, http.StatusOK, user)
}

func (b *MockBackend) refresh(w http.ResponseWriter, r *http.Request) {
	b.refreshes.Add(1)

	user, access, refresh, ok := b.sessions.rotate(cookieValue(r, RefreshCookie))
	if !ok {
		b.refreshFailures.Add(1)
		writeError(w, http.StatusUnauthorized, "refresh token invalid or expired")
		return
	}

	b.setSessionCookies(w, access, refresh)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "userId": user.ID})
}

func (b *MockBackend) me(w http.ResponseWriter, r *http.Request) {
	b.meCalls.Add(1)

	user, ok := b.sessions.authenticate(cookieValue(r, AccessCookie))
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (b *MockBackend) logout(w http.ResponseWriter, r *http.Request) {
	b.logouts.Add(1)
	b.sessions.revoke(cookieValue(r, AccessCookie), cookieValue(r, RefreshCookie))
	clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// api echoes protected calls. A "status" query parameter forces the response status.
func (b *MockBackend) api(w http.ResponseWriter, r *http.Request) {
	b.apiCalls.Add(1)

	user, ok := b.sessions.authenticate(cookieValue(r, AccessCookie))
	if !ok {
		if b.gateway.Load() {
			writeLoginPage(w)
			return
		}
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if forced := r.URL.Query().Get("status"); forced != "" {
		if code, err := strconv.Atoi(forced); err == nil && code >= 200 && code <= 599 {
			writeError(w, code, http.StatusText(code))
			return
		}
	}

	var body any
	if data, err := io.ReadAll(r.Body); err == nil && len(data) > 0 {
		if err := json.Unmarshal(data, &body); err != nil {
			body = string(data)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"method":     r.Method,
		"path":       r.URL.Path,
		"user":       user,
		"body":       body,
		"request_id": RequestIDFrom(r.Context()),
	})
}

func (b *MockBackend) expire(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("revoke") == "true" {
		b.sessions.revokeAll()
		writeJSON(w, http.StatusOK, map[string]any{"revoked": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expired": b.sessions.expireAccess()})
}

func (b *MockBackend) setGateway(w http.ResponseWriter, r *http.Request) {
	on, err := strconv.ParseBool(r.URL.Query().Get("on"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "on must be true or false")
		return
	}
	b.SetGateway(on)
	writeJSON(w, http.StatusOK, map[string]any{"gateway": on})
}

func (b *MockBackend) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, b.Stats())
}
