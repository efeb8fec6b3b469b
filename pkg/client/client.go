// Package client is a Go client for the notekeeper HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/notekeeper/notekeeper/pkg/models"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

func (c *Client) SetAuthToken(token string) {
	c.authToken = token
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	return c.httpClient.Do(req)
}

// decodeResponse decodes a success body into target, or returns an *APIError.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(body))
		}
		return apiErr
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}

	var result HealthResponse
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Note operations

func (c *Client) CreateNote(ctx context.Context, title, content string) (*models.Note, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/notes", NoteRequest{Title: title, Content: content})
	if err != nil {
		return nil, err
	}

	var result NoteResponse
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return result.Note, nil
}

func (c *Client) GetNote(ctx context.Context, id string) (*models.Note, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/notes/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var result NoteResponse
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return result.Note, nil
}

func (c *Client) ListNotes(ctx context.Context, opts ListOptions) (*ListNotesResponse, error) {
	query := url.Values{}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Query != "" {
		query.Set("query", opts.Query)
	}
	path := "/api/notes"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var result ListNotesResponse
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) UpdateNote(ctx context.Context, id, title, content string) (*models.Note, error) {
	resp, err := c.doRequest(ctx, http.MethodPut, "/api/notes/"+url.PathEscape(id), NoteRequest{Title: title, Content: content})
	if err != nil {
		return nil, err
	}

	var result NoteResponse
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return result.Note, nil
}

func (c *Client) DeleteNote(ctx context.Context, id string) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, "/api/notes/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}

	return decodeResponse(resp, nil)
}
