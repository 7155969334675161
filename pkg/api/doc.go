// Package api is the HTTP client for the rental listings backend.
//
// Routes are resolved by operationId from an embedded OpenAPI document, so a
// backend that moves an endpoint only needs a new document (see
// WithRoutes and LoadRoutes). Every failure is returned as *Error with a Kind
// that controllers switch on: validation, auth_expired, network or server.
package api
