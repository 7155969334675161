// Package nav carries route changes out of controllers.
package nav

import "sync"

// Well-known routes.
const (
	RouteHome   = "/"
	RouteLogin  = "/login"
	RouteSignup = "/signup"
)

// Navigator receives route changes.
type Navigator interface {
	Navigate(route string)
}

// Func adapts a function to Navigator.
type Func func(route string)

// Navigate implements Navigator.
func (f Func) Navigate(route string) {
	if f != nil {
		f(route)
	}
}

// Discard ignores every route change.
var Discard Navigator = Func(nil)

// Recorder remembers every route it was sent.
type Recorder struct {
	mu     sync.Mutex
	routes []string
}

// Navigate implements Navigator.
func (r *Recorder) Navigate(route string) {
	r.mu.Lock()
	r.routes = append(r.routes, route)
	r.mu.Unlock()
}

// Routes returns the recorded routes in order.
func (r *Recorder) Routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.routes...)
}

// Last returns the most recent route, or "".
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.routes) == 0 {
		return ""
	}
	return r.routes[len(r.routes)-1]
}
