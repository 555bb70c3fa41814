// Package server provides a mock of the charging station backend's cookie session API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns internally.
//
// # Mock Backend
//
// [MockBackend] serves the routes the session client depends on:
//   - POST /auth/login : issues access and refresh cookies
//   - POST /auth/refresh : rotates both cookies when the refresh cookie is valid
//   - GET /auth/me : returns the signed-in profile (the liveness check)
//   - POST /auth/logout : revokes the session and expires both cookies
//   - /api/... : protected routes echoing the request back as JSON
//
// Access cookies are short-lived so refresh coordination can be observed from the CLI. Gateway mode
// answers unauthenticated API calls with a 200 HTML login page instead of a 401, the way an auth proxy
// in front of the backend does.
//
// # Admin Routes
//
// The /admin/ routes expire sessions, toggle gateway mode and report call counters. They are unauthenticated
// and exist for demos and end-to-end tests only.
package server
