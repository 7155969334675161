package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Credentials are sent to the login and signup endpoints.
type Credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	return c.exchange(ctx, OpLogin, creds)
}

// Signup registers an account and returns its session token.
func (c *Client) Signup(ctx context.Context, creds Credentials) (string, error) {
	return c.exchange(ctx, OpSignup, creds)
}

func (c *Client) exchange(ctx context.Context, op string, creds Credentials) (string, error) {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return "", &Error{Kind: KindValidation, Operation: op, Message: "email and password are required"}
	}
	body, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("api: %s: encode credentials: %w", op, err)
	}
	resp, err := c.do(ctx, request{op: op, body: body, contentType: "application/json"})
	if err != nil {
		return "", err
	}
	// Rejected credentials come back as 401; that is a validation failure
	// here, not an expired session.
	if resp.status < 200 || resp.status >= 300 {
		apiErr := classify(op, resp.status, resp.body)
		if apiErr.Kind == KindAuthExpired {
			apiErr.Kind = KindValidation
			if msg := bodyMessage(resp.body); msg != "" {
				apiErr.Message = msg
			} else {
				apiErr.Message = "invalid credentials"
			}
		}
		return "", apiErr
	}

	var parsed tokenResponse
	if err := json.Unmarshal(resp.body, &parsed); err != nil {
		return "", &Error{Kind: KindServer, Operation: op, Status: resp.status, Message: "malformed token response", Err: err}
	}
	if !parsed.Success || parsed.Token == "" {
		message := parsed.Message
		if message == "" {
			message = DefaultErrorMessage
		}
		return "", &Error{Kind: KindValidation, Operation: op, Status: resp.status, Message: message}
	}
	return parsed.Token, nil
}

// Logout ends the session on the backend. It reports the backend's success
// flag; clearing local state is the caller's decision.
func (c *Client) Logout(ctx context.Context) (bool, error) {
	body, err := c.call(ctx, request{op: OpLogout})
	if err != nil {
		return false, err
	}
	var parsed struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, &Error{Kind: KindServer, Operation: OpLogout, Message: "malformed logout response", Err: err}
	}
	return parsed.Success, nil
}

func bodyMessage(body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if len(parsed.Errors) > 0 && parsed.Errors[0].Msg != "" {
		return parsed.Errors[0].Msg
	}
	if parsed.Message == notAuthorized {
		return ""
	}
	return parsed.Message
}
