package api

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

// Operation identifiers understood by the client.
const (
	OpListCars          = "listCars"
	OpGetCar            = "getCar"
	OpCreateCar         = "createCar"
	OpUpdateCar         = "updateCar"
	OpRemoveCar         = "removeCar"
	OpListDecorations   = "listDecorations"
	OpGetDecoration     = "getDecoration"
	OpCreateDecoration  = "createDecoration"
	OpUpdateDecoration  = "updateDecoration"
	OpRemoveDecoration  = "removeDecoration"
	OpLogin             = "login"
	OpSignup            = "signup"
	OpLogout            = "logout"
	resultsExtensionKey = "x-results-path"
)

// ErrUnknownOperation is returned when a route table has no entry for an
// operationId.
var ErrUnknownOperation = errors.New("api: unknown operation")

//go:embed openapi.yaml
var defaultDocument []byte

// Route is one backend endpoint resolved from the OpenAPI document.
type Route struct {
	OperationID string
	Method      string
	Path        string
	// ResultsPath names the response property holding list items.
	ResultsPath string
	// Secured reports whether the operation declares a bearer requirement.
	Secured bool
}

// Expand substitutes {name} placeholders with escaped values.
func (r Route) Expand(params map[string]string) (string, error) {
	path := r.Path
	for name, value := range params {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	if strings.Contains(path, "{") {
		return "", fmt.Errorf("api: %s: unresolved path parameter in %s", r.OperationID, path)
	}
	return path, nil
}

// Routes maps operationIds to routes.
type Routes struct {
	byID map[string]Route
}

// Lookup returns the route registered for id.
func (r *Routes) Lookup(id string) (Route, error) {
	if r == nil {
		return Route{}, fmt.Errorf("%w: %s", ErrUnknownOperation, id)
	}
	route, ok := r.byID[id]
	if !ok {
		return Route{}, fmt.Errorf("%w: %s", ErrUnknownOperation, id)
	}
	return route, nil
}

// IDs returns the sorted operationIds.
func (r *Routes) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadRoutes parses an OpenAPI 3 document (JSON or YAML) into a route table.
// Operations without an operationId are skipped.
func LoadRoutes(ctx context.Context, raw []byte) (*Routes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("api: openapi document is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("api: load openapi document: %w", err)
	}
	if doc.Paths == nil || doc.Paths.Len() == 0 {
		return nil, errors.New("api: openapi document does not contain any paths")
	}

	routes := &Routes{byID: make(map[string]Route)}
	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		routes.collect("GET", path, item.Get)
		routes.collect("PUT", path, item.Put)
		routes.collect("POST", path, item.Post)
		routes.collect("DELETE", path, item.Delete)
		routes.collect("PATCH", path, item.Patch)
	}
	if len(routes.byID) == 0 {
		return nil, errors.New("api: no operations extracted")
	}
	return routes, nil
}

func (r *Routes) collect(method, path string, operation *openapi3.Operation) {
	if operation == nil || operation.OperationID == "" {
		return
	}
	route := Route{
		OperationID: operation.OperationID,
		Method:      method,
		Path:        path,
		Secured:     operation.Security != nil && len(*operation.Security) > 0,
	}
	if value, ok := operation.Extensions[resultsExtensionKey].(string); ok {
		route.ResultsPath = strings.TrimSpace(value)
	}
	r.byID[route.OperationID] = route
}

var (
	defaultRoutesOnce sync.Once
	defaultRoutes     *Routes
	defaultRoutesErr  error
)

// DefaultRoutes returns the route table of the embedded backend contract.
func DefaultRoutes() (*Routes, error) {
	defaultRoutesOnce.Do(func() {
		defaultRoutes, defaultRoutesErr = LoadRoutes(context.Background(), defaultDocument)
	})
	return defaultRoutes, defaultRoutesErr
}
