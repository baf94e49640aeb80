// Package client talks to the expense API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"expense-tracker-server/src/models"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%d): %s", e.Message, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// Unauthorized reports whether the API rejected the caller's token.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type SignUpResult struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type UpdateResult struct {
	Message        string         `json:"message"`
	UpdatedExpense models.Expense `json:"updatedExpense"`
}

func (c *Client) SignUp(ctx context.Context, req models.SignUpRequest) (*SignUpResult, error) {
	var out SignUpResult
	if err := c.do(ctx, http.MethodPost, "/auth/signup", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SignIn(ctx context.Context, username, password string) (*models.AuthResult, error) {
	var out models.AuthResult
	req := models.SignInRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/signin", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.AuthResult, error) {
	var out models.AuthResult
	req := map[string]string{"refreshToken": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/signout", accessToken, nil, nil)
}

func (c *Client) ValidateToken(ctx context.Context, accessToken string) (*Identity, error) {
	var out Identity
	if err := c.do(ctx, http.MethodPost, "/auth/validate-token", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListExpenses(ctx context.Context, accessToken string) ([]models.Expense, error) {
	var out []models.Expense
	if err := c.do(ctx, http.MethodGet, "/expenses", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateExpense sends fields as given; amount may be a number or a string.
func (c *Client) CreateExpense(ctx context.Context, accessToken string, fields map[string]any) (*models.Expense, error) {
	var out models.Expense
	if err := c.do(ctx, http.MethodPost, "/expenses", accessToken, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateExpense(ctx context.Context, accessToken, id string, fields map[string]any) (*UpdateResult, error) {
	var out UpdateResult
	if err := c.do(ctx, http.MethodPatch, "/expenses/"+url.PathEscape(id), accessToken, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteExpense(ctx context.Context, accessToken, id string) error {
	return c.do(ctx, http.MethodDelete, "/expenses/"+url.PathEscape(id), accessToken, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Message != "" {
			apiErr.Message = payload.Message
			apiErr.Detail = payload.Error
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
