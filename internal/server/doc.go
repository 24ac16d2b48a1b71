// Package server exposes the organizer's engines over HTTP.
//
// # API Router
//
// [Server.Handler] builds a chi router. Every request passes RequestID, RealIP,
// [RequestLogger], Recoverer and CORS. Routes under /api other than login and callback
// require a session.
//
// # Sessions
//
// A session is an opaque id issued at the end of the OAuth callback. Clients send it as the
// "session" cookie or as a bearer token. The session middleware loads the session and its
// user and asks the [AccountFactory] for provider handles bound to the stored token.
// A missing or unknown session answers 401 {"error":"not authenticated"}.
//
// # Login
//
//  1. GET /api/auth/login sets a state cookie and redirects to Spotify
//  2. GET /api/auth/callback checks the state, exchanges the code, upserts the user and
//     opens a session
//  3. The browser is sent to the CLI's loopback address, the frontend, or shown the session
//
// A CLI login starts a [BasicRouter] on a loopback port with a [SessionCatcher] and passes
// its address as the redirect parameter of step 1. The catcher accepts one callback.
//
// # Errors
//
// Handlers answer {"error": "..."} with a status taken from the shared error taxonomy:
// 400 invalid argument, 401 not authenticated, 404 not found, 409 conflict,
// 502 external dependency, 500 otherwise.
package server
