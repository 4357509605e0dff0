package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Valid bool       `json:"valid"`
	Token flexString `json:"login_session_token"`
}

// Login authenticates email/password and returns the session token. The
// token is also installed on the client. A valid=false answer yields
// ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	const op = "login"
	var resp loginResponse
	if err := c.sendJSON(ctx, op, http.MethodPut, "/api/user/login", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return "", err
	}
	if !resp.Valid {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	token := first(resp.Token)
	c.SetToken(token)
	return token, nil
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupResponse struct {
	Valid bool       `json:"valid"`
	Token flexString `json:"session_token"`
	Error string     `json:"error"`
}

// Signup creates an account and returns its session token. A rejected signup
// returns a *SignupError, which matches ErrSignupRejected.
func (c *Client) Signup(ctx context.Context, name, email, password string) (string, error) {
	const op = "signup"
	var resp signupResponse
	if err := c.sendJSON(ctx, op, http.MethodPost, "/api/user/signup", signupRequest{Name: name, Email: email, Password: password}, &resp); err != nil {
		return "", err
	}
	if !resp.Valid {
		return "", &SignupError{Reason: strings.TrimSpace(resp.Error)}
	}
	token := first(resp.Token)
	c.SetToken(token)
	return token, nil
}

type logoutRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// Logout ends the session on the backend and drops the client's token even
// when the request fails.
func (c *Client) Logout(ctx context.Context, email, token string) error {
	defer c.SetToken("")
	return c.sendJSON(ctx, "logout", http.MethodPut, "/api/user/logout", logoutRequest{Email: email, Token: token}, nil)
}
