package server

import (
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/desertthunder/genrefy/internal/shared"
)

var resultPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: {{if .Failed}}#d9534f{{else}}#1DB954{{end}}; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0 0 0.5rem 0; }
        code { background: #eee; padding: 0.25rem 0.5rem; border-radius: 4px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
        {{if .Session}}<p>Session: <code>{{.Session}}</code></p>{{end}}
    </div>
</body>
</html>
`))

type pageData struct {
	Title   string
	Message string
	Session string
	Failed  bool
}

func renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = resultPage.Execute(w, data)
}

// LoginResult is what the organizer server hands back to a CLI login.
type LoginResult struct {
	Session string
	err     error
}

func (l LoginResult) Error() error {
	return l.err
}

// SessionCatcher receives the session id the organizer server redirects to after a CLI
// login. It serves a single callback; later requests are rejected.
type SessionCatcher struct {
	nonce      string
	resultChan chan LoginResult
	once       sync.Once

	mu  sync.Mutex
	hit bool
}

// NewSessionCatcher creates a catcher that only accepts callbacks carrying nonce.
func NewSessionCatcher(nonce string) *SessionCatcher {
	return &SessionCatcher{
		nonce:      nonce,
		resultChan: make(chan LoginResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (c *SessionCatcher) Routes() []string {
	return []string{"/callback"}
}

func (c *SessionCatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	if c.hit {
		c.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	c.hit = true
	c.mu.Unlock()

	q := r.URL.Query()
	if q.Get("nonce") != c.nonce {
		c.Send(LoginResult{err: shared.ErrStateMismatch})
		renderPage(w, http.StatusBadRequest, pageData{Title: "Login Failed", Message: "The login link did not match this terminal.", Failed: true})
		return
	}

	if reason := q.Get("error"); reason != "" {
		c.Send(LoginResult{err: fmt.Errorf("%w: %s", shared.ErrAuthFailed, reason)})
		renderPage(w, http.StatusBadRequest, pageData{Title: "Login Failed", Message: reason, Failed: true})
		return
	}

	session := q.Get("session")
	if session == "" {
		c.Send(LoginResult{err: fmt.Errorf("%w: no session in callback", shared.ErrAuthFailed)})
		renderPage(w, http.StatusBadRequest, pageData{Title: "Login Failed", Message: "No session was returned.", Failed: true})
		return
	}

	c.Send(LoginResult{Session: session})
	renderPage(w, http.StatusOK, pageData{
		Title:   "✓ Authorization Successful",
		Message: "You can close this window and return to the terminal.",
	})
}

// Send delivers the result once.
func (c *SessionCatcher) Send(result LoginResult) {
	c.once.Do(func() {
		c.resultChan <- result
		close(c.resultChan)
	})
}

// Result receives exactly one result and is then closed.
func (c *SessionCatcher) Result() <-chan LoginResult {
	return c.resultChan
}
