package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goliatone/go-rentadmin/pkg/listing"
)

// Page is one page of a list response.
type Page struct {
	Success    bool
	Message    string
	Items      []listing.Entity
	TotalPages int
}

type entityOps struct {
	list, get, create, update, remove string
}

func (c *Client) opsFor(t listing.EntityType) (entityOps, error) {
	switch t {
	case listing.TypeCar:
		return entityOps{OpListCars, OpGetCar, OpCreateCar, OpUpdateCar, OpRemoveCar}, nil
	case listing.TypeDecoration:
		update := OpUpdateDecoration
		if c.legacyDecorUpdate {
			update = OpUpdateCar
		}
		return entityOps{OpListDecorations, OpGetDecoration, OpCreateDecoration, update, OpRemoveDecoration}, nil
	default:
		return entityOps{}, fmt.Errorf("api: unknown entity type %q", t)
	}
}

type listEnvelope struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Pagination struct {
		TotalPages int `json:"totalPages"`
	} `json:"pagination"`
}

// ListPage fetches one page of entities. A body reporting success=false is
// returned as a Page with Success unset rather than as an error.
func (c *Client) ListPage(ctx context.Context, t listing.EntityType, page, limit int) (Page, error) {
	ops, err := c.opsFor(t)
	if err != nil {
		return Page{}, err
	}
	route, err := c.routes.Lookup(ops.list)
	if err != nil {
		return Page{}, err
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	resp, err := c.do(ctx, request{op: ops.list, query: query})
	if err != nil {
		return Page{}, err
	}
	if resp.status == http.StatusUnauthorized {
		return Page{}, classify(ops.list, resp.status, resp.body)
	}

	var envelope listEnvelope
	if err := json.Unmarshal(resp.body, &envelope); err != nil {
		if resp.status >= 300 {
			return Page{}, classify(ops.list, resp.status, resp.body)
		}
		return Page{}, &Error{Kind: KindServer, Operation: ops.list, Status: resp.status, Message: "malformed list response", Err: err}
	}
	if envelope.Message == notAuthorized {
		return Page{}, classify(ops.list, http.StatusUnauthorized, resp.body)
	}

	result := Page{
		Success:    envelope.Success,
		Message:    envelope.Message,
		TotalPages: envelope.Pagination.TotalPages,
	}
	if !envelope.Success {
		return result, nil
	}

	resultsPath := route.ResultsPath
	if resultsPath == "" {
		resultsPath = "items"
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(resp.body, &raw); err != nil {
		return Page{}, &Error{Kind: KindServer, Operation: ops.list, Status: resp.status, Message: "malformed list response", Err: err}
	}
	var items []json.RawMessage
	if data, ok := raw[resultsPath]; ok && string(data) != "null" {
		if err := json.Unmarshal(data, &items); err != nil {
			return Page{}, &Error{Kind: KindServer, Operation: ops.list, Status: resp.status, Message: "malformed list items", Err: err}
		}
	}

	result.Items = make([]listing.Entity, 0, len(items))
	for _, item := range items {
		entity, err := decodeEntity(t, item)
		if err != nil {
			return Page{}, &Error{Kind: KindServer, Operation: ops.list, Status: resp.status, Message: "malformed list item", Err: err}
		}
		result.Items = append(result.Items, entity)
	}
	return result, nil
}

// Get fetches one entity by identifier.
func (c *Client) Get(ctx context.Context, t listing.EntityType, id string) (listing.Entity, error) {
	ops, err := c.opsFor(t)
	if err != nil {
		return nil, err
	}
	body, err := c.call(ctx, request{op: ops.get, params: map[string]string{"id": id}})
	if err != nil {
		return nil, err
	}
	entity, err := decodeEntity(t, body)
	if err != nil {
		return nil, &Error{Kind: KindServer, Operation: ops.get, Message: "malformed entity", Err: err}
	}
	return entity, nil
}

// Create submits a new entity. The session token is required.
func (c *Client) Create(ctx context.Context, payload Payload) error {
	if payload.Entity == nil {
		return fmt.Errorf("api: create: payload has no entity")
	}
	ops, err := c.opsFor(payload.Entity.Type())
	if err != nil {
		return err
	}
	body, contentType, err := payload.encode()
	if err != nil {
		return err
	}
	respBody, err := c.call(ctx, request{op: ops.create, stream: body, contentType: contentType})
	if err != nil {
		return err
	}
	return rejectedBody(ops.create, respBody)
}

// Update replaces the entity identified by id.
func (c *Client) Update(ctx context.Context, id string, payload Payload) error {
	if payload.Entity == nil {
		return fmt.Errorf("api: update: payload has no entity")
	}
	ops, err := c.opsFor(payload.Entity.Type())
	if err != nil {
		return err
	}
	body, contentType, err := payload.encode()
	if err != nil {
		return err
	}
	respBody, err := c.call(ctx, request{
		op:          ops.update,
		params:      map[string]string{"id": id},
		stream:      body,
		contentType: contentType,
	})
	if err != nil {
		return err
	}
	return rejectedBody(ops.update, respBody)
}

// Delete removes the entity identified by id and returns the backend's
// confirmation message.
func (c *Client) Delete(ctx context.Context, t listing.EntityType, id string) (string, error) {
	ops, err := c.opsFor(t)
	if err != nil {
		return "", err
	}
	body, err := c.call(ctx, request{op: ops.remove, params: map[string]string{"id": id}})
	if err != nil {
		return "", err
	}
	var status struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return "", &Error{Kind: KindServer, Operation: ops.remove, Message: "malformed delete response", Err: err}
	}
	if !status.Success {
		message := status.Message
		if message == "" {
			message = "Unknown error"
		}
		if message == notAuthorized {
			return "", &Error{Kind: KindAuthExpired, Operation: ops.remove, Message: message}
		}
		return "", &Error{Kind: KindServer, Operation: ops.remove, Message: message}
	}
	return status.Message, nil
}

func decodeEntity(t listing.EntityType, data []byte) (listing.Entity, error) {
	entity, err := listing.New(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// rejectedBody reports a 2xx body that still says success=false.
func rejectedBody(op string, body []byte) error {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Success == nil || *parsed.Success {
		return nil
	}
	return classify(op, http.StatusBadRequest, body)
}
