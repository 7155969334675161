package preview

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/goliatone/go-rentadmin/pkg/media"
)

const accessKeyParam = "key"

// ErrNoBaseURL is returned by Issue before the component knows where it is
// served from.
var ErrNoBaseURL = errors.New("preview: base url not set")

type entry struct {
	file   media.File
	issued time.Time
}

// Component serves selected local files over HTTP under revocable URLs and
// exposes Prometheus metrics. It implements media.URLIssuer.
type Component struct {
	opts Options

	mu      sync.RWMutex
	base    string
	entries map[string]entry

	served *prometheus.CounterVec
	active prometheus.Gauge
	router chi.Router
}

var _ media.URLIssuer = (*Component)(nil)

// New constructs a component with default options plus any overrides.
func New(fns ...OptionFn) *Component {
	opts := NewOptions(fns...)
	factory := promauto.With(opts.Registry)
	c := &Component{
		opts:    opts,
		base:    strings.TrimRight(opts.BaseURL, "/"),
		entries: make(map[string]entry),
		served: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rentadmin",
			Subsystem: "preview",
			Name:      "requests_total",
			Help:      "Preview requests by result.",
		}, []string{"result"}),
		active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "rentadmin",
			Subsystem: "preview",
			Name:      "active_urls",
			Help:      "Preview URLs currently issued.",
		}),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(c.guard)
	r.Get(mountPath("", opts.RoutePath)+"/{id}", c.serveFile)
	r.Method(http.MethodGet, mountPath("", opts.MetricsPath), promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	c.router = r
	return c
}

// Handler returns the component router.
func (c *Component) Handler() http.Handler {
	return c.router
}

// SetBaseURL sets the prefix of issued URLs.
func (c *Component) SetBaseURL(base string) {
	c.mu.Lock()
	c.base = strings.TrimRight(base, "/")
	c.mu.Unlock()
}

// BaseURL returns the prefix of issued URLs.
func (c *Component) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base
}

// Issue implements media.URLIssuer.
func (c *Component) Issue(f media.File) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.base == "" {
		return "", ErrNoBaseURL
	}
	id := uuid.NewString()
	c.entries[id] = entry{file: f, issued: time.Now()}
	c.active.Set(float64(len(c.entries)))
	u := c.base + mountPath("", c.opts.RoutePath) + "/" + id
	if c.opts.AccessKey != "" {
		u += "?" + url.Values{accessKeyParam: {c.opts.AccessKey}}.Encode()
	}
	return u, nil
}

// Revoke implements media.URLIssuer. Unknown URLs are ignored.
func (c *Component) Revoke(previewURL string) {
	prefix := mountPath("", c.opts.RoutePath) + "/"
	idx := strings.LastIndex(previewURL, prefix)
	if idx < 0 {
		return
	}
	id, _, _ := strings.Cut(previewURL[idx+len(prefix):], "?")

	c.mu.Lock()
	delete(c.entries, id)
	c.active.Set(float64(len(c.entries)))
	c.mu.Unlock()
}

// Active reports how many URLs are live.
func (c *Component) Active() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Component) lookup(id string) (entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e, ok
}

// Start listens on addr and serves in the background until ctx is done or
// the returned stop function is called. The base URL is taken from the
// listener when none was configured.
func (c *Component) Start(ctx context.Context, addr string) (func(context.Context) error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("preview: listen %s: %w", addr, err)
	}
	if c.BaseURL() == "" {
		c.SetBaseURL("http://" + ln.Addr().String())
	}

	server := &http.Server{
		Handler:           c.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		c.opts.Logger.Info("preview server listening", zap.String("address", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.opts.Logger.Error("preview server stopped", zap.Error(err))
		}
	}()

	var once sync.Once
	stop := func(shutdownCtx context.Context) error {
		var err error
		once.Do(func() {
			err = server.Shutdown(shutdownCtx)
		})
		return err
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = stop(shutdownCtx)
	}()
	return stop, nil
}
