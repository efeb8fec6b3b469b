package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/notekeeper/notekeeper/pkg/models"
)

// SignUp creates a new user account and keeps its token for later calls.
func (c *Client) SignUp(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	req := SignUpRequest{
		Email:    email,
		Password: password,
		Name:     name,
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/signup", req)
	if err != nil {
		return nil, fmt.Errorf("signup request failed: %w", err)
	}

	var result AuthResponse
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	c.SetAuthToken(result.Token)

	return &result, nil
}

// SignIn authenticates an existing user and keeps the token for later calls.
func (c *Client) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	req := SignInRequest{
		Email:    email,
		Password: password,
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/signin", req)
	if err != nil {
		return nil, fmt.Errorf("signin request failed: %w", err)
	}

	var result AuthResponse
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	c.SetAuthToken(result.Token)

	return &result, nil
}

// Me returns the identity behind the current token.
func (c *Client) Me(ctx context.Context) (*models.Identity, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("get current user request failed: %w", err)
	}

	var result models.Identity
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}
