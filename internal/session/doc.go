// Package session implements the authenticated HTTP client used to talk to the charging station backend.
//
// # Request Flow
//
// Every call goes through [Client.Do]:
//  1. The [Transport] performs the HTTP exchange with the backend's session cookies.
//  2. Successful responses pass through [Classify], which flags HTML pages returned where JSON was
//     expected (a gateway redirecting to its login page).
//  3. Failures are handed to the [Coordinator], which decides whether to refresh, replay, or give up.
//
// # Refresh Coordination
//
// The [Coordinator] runs at most one refresh cycle at a time. Requests failing with 401 while a cycle
// is underway queue up and are settled in arrival order once it finishes. A failed refresh is followed by
// a liveness check against the profile endpoint; only a definitive rejection ends the session.
//
// Decisions are computed by [Coordinator.Decide] and returned as a [Decision]. Side effects live in a
// [Terminator] so the coordinator itself never touches cookies, caches or the browser.
//
// # Critical Mode
//
// While a [CriticalMode] is active (payments, reservation confirmation) the client never refreshes,
// logs out or navigates. Auth failures surface to the caller unchanged. [StoredFlag] persists the flag
// in a [StateStore] so it holds across CLI invocations.
//
// # Credentials
//
// [CookieJar] keeps the backend's cookies and writes them through to a [StateStore]. Pass it to
// [NewHTTPClient] when credentials should be sent.
package session
