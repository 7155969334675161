package preview

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// GuardFunc rejects a request by returning an error. Errors implementing
// HTTPError choose the status code; anything else is 403.
type GuardFunc func(r *http.Request) error

type Options struct {
	RoutePath   string
	MetricsPath string
	// BaseURL is prefixed to issued URLs. Start fills it from the listener
	// address when empty.
	BaseURL string
	// AccessKey is appended to issued URLs and required on every request.
	AccessKey string
	Guard     GuardFunc
	Logger    *zap.Logger
	Registry  *prometheus.Registry
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		RoutePath:   "/previews",
		MetricsPath: "/metrics",
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.RoutePath == "" {
		opts.RoutePath = "/previews"
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.AccessKey != "" {
		opts.Guard = KeyGuard(opts.AccessKey)
	}
	return opts
}

func WithBaseURL(base string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.BaseURL = base
	}
}

func WithAccessKey(key string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.AccessKey = key
	}
}

func WithLogger(logger *zap.Logger) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Logger = logger
	}
}

// WithRegistry exposes reg on the metrics route. Collectors registered by
// other packages (the API client) show up there too.
func WithRegistry(reg *prometheus.Registry) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Registry = reg
	}
}
