package preview

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ErrBadAccessKey is reported when a request lacks the access key.
var ErrBadAccessKey = errors.New("preview: bad access key")

// HTTPError is a guard error that carries its own status code.
type HTTPError interface {
	error
	StatusCode() int
}

// StatusError pairs an error with an HTTP status.
type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// KeyGuard admits requests whose "key" query parameter equals key.
func KeyGuard(key string) GuardFunc {
	return func(r *http.Request) error {
		got := r.URL.Query().Get(accessKeyParam)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			return StatusError{Code: http.StatusForbidden, Err: ErrBadAccessKey}
		}
		return nil
	}
}

func (c *Component) guard(next http.Handler) http.Handler {
	if c.opts.Guard == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := c.opts.Guard(r); err != nil {
			c.served.WithLabelValues("denied").Inc()
			writeGuardError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// serveFile streams the file behind {id}. Revoked and unknown ids are 404.
func (c *Component) serveFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, ok := c.lookup(id)
	if !ok {
		c.served.WithLabelValues("not_found").Inc()
		http.NotFound(w, r)
		return
	}

	file, err := os.Open(entry.file.Path)
	if err != nil {
		c.served.WithLabelValues("error").Inc()
		c.opts.Logger.Warn("preview file unavailable",
			zap.String("id", id),
			zap.String("path", entry.file.Path),
			zap.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusGone), http.StatusGone)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		c.served.WithLabelValues("error").Inc()
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	c.served.WithLabelValues("ok").Inc()
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, entry.file.Name, info.ModTime(), file)
}

func writeGuardError(w http.ResponseWriter, err error) {
	code := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.StatusCode()
	}
	http.Error(w, http.StatusText(code), code)
}
