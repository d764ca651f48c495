// Package login receives the OAuth redirect that completes a browser login.
package login

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultAddr is where the callback listener binds by default.
	DefaultAddr = "127.0.0.1:8080"
	// DefaultTimeout bounds how long a login waits for the browser.
	DefaultTimeout = 5 * time.Minute

	shutdownTimeout = 2 * time.Second
)

// ErrTimeout is returned when no callback arrives before the deadline.
var ErrTimeout = errors.New("login timed out")

// Result is the outcome of waiting for a callback: a token, or an error
// (ErrTimeout, a context error, or a listener failure).
type Result struct {
	Token string
	Err   error
}

// Listener is a single-use HTTP listener for the OAuth redirect. The server
// redirects the browser to it with a ?token= query parameter.
type Listener struct {
	ln     net.Listener
	logger *zap.Logger
}

// Listen binds addr (host:port; port 0 picks a free port).
func Listen(addr string, logger *zap.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{ln: ln, logger: logger}, nil
}

// Port returns the bound TCP port.
func (l *Listener) Port() int {
	return l.ln.Addr().(*net.TCPAddr).Port
}

// RedirectURL is the URL the server should send the browser back to.
func (l *Listener) RedirectURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", l.Port())
}

// Close releases the listener without waiting. Wait closes it on its own.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Wait serves callbacks until one carries a token, the timeout elapses or ctx
// is cancelled, then shuts the server down. Requests without a token get an
// error page and waiting continues.
func (l *Listener) Wait(ctx context.Context, timeout time.Duration) Result {
	tokenCh := make(chan string, 1)

	r := chi.NewRouter()
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			l.logger.Debug("callback without token", zap.String("path", r.URL.Path))
			writePage(w, http.StatusBadRequest, failurePage)
			return
		}
		select {
		case tokenCh <- token:
			writePage(w, http.StatusOK, successPage)
		default:
			writePage(w, http.StatusConflict, successPage)
		}
	})

	srv := &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var token string
	g, gctx := errgroup.WithContext(waitCtx)
	g.Go(func() error {
		if err := srv.Serve(l.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("callback server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer scancel()
			if err := srv.Shutdown(sctx); err != nil {
				l.logger.Debug("callback server shutdown", zap.Error(err))
			}
		}()
		select {
		case token = <-tokenCh:
			return nil
		case <-gctx.Done():
			return gctx.Err()
		}
	})

	err := g.Wait()
	switch {
	case err == nil:
		return Result{Token: token}
	case ctx.Err() != nil:
		return Result{Err: ctx.Err()}
	case errors.Is(err, context.DeadlineExceeded):
		return Result{Err: fmt.Errorf("%w after %s", ErrTimeout, timeout)}
	default:
		return Result{Err: err}
	}
}

func writePage(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

const successPage = `<!DOCTYPE html>
<html>
<head>
  <title>Login Successful</title>
  <style>
    body { font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; text-align: center; }
    h1 { color: #2c7be5; }
  </style>
</head>
<body>
  <h1>Login Successful!</h1>
  <p>Authentication complete. You can now close this window and return to the CLI.</p>
  <script>window.close();</script>
</body>
</html>
`

const failurePage = `<!DOCTYPE html>
<html>
<head>
  <title>Login Failed</title>
  <style>
    body { font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; text-align: center; }
    h1 { color: #e53e3e; }
  </style>
</head>
<body>
  <h1>Login Failed</h1>
  <p>No token received. Please try again.</p>
  <button onclick="window.close()">Close Window</button>
</body>
</html>
`
