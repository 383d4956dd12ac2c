// Package keyvault is a small client for the keyvault HTTP API.
package keyvault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

type Option func(*Client)

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
}

type APIError struct {
	StatusCode   int
	Message      string
	SecurityNote string
	RequestID    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Message)
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

func NewClient(baseURL string, options ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base URL must include scheme and host")
	}

	client := &Client{
		baseURL: parsed,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

func (c *Client) SetToken(token string) {
	c.token = strings.TrimSpace(token)
}

// Access resolves a slash-delimited path. Pass environment to decrypt key
// values; leave it empty to browse metadata only.
func (c *Client) Access(ctx context.Context, secretPath, environment string) (AccessResult, error) {
	var result AccessResult
	query := url.Values{}
	query.Set("path", secretPath)
	if environment != "" {
		query.Set("environment", environment)
	}
	if err := c.do(ctx, http.MethodGet, "/v1/access", query, nil, http.StatusOK, &result); err != nil {
		return AccessResult{}, err
	}
	return result, nil
}

func (c *Client) GetKey(ctx context.Context, id, environment string) (Key, error) {
	var key Key
	var query url.Values
	if environment != "" {
		query = url.Values{}
		query.Set("environment", environment)
	}
	if err := c.do(ctx, http.MethodGet, path.Join("/v1/keys", id), query, nil, http.StatusOK, &key); err != nil {
		return Key{}, err
	}
	return key, nil
}

func (c *Client) CreateKey(ctx context.Context, request CreateKeyRequest) (Key, error) {
	var key Key
	if err := c.do(ctx, http.MethodPost, "/v1/keys", nil, request, http.StatusCreated, &key); err != nil {
		return Key{}, err
	}
	return key, nil
}

func (c *Client) DeleteKey(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, path.Join("/v1/keys", id), nil, nil, http.StatusNoContent, nil)
}

func (c *Client) CreateFolder(ctx context.Context, request CreateFolderRequest) (CreatedFolder, error) {
	var folder CreatedFolder
	if err := c.do(ctx, http.MethodPost, "/v1/folders", nil, request, http.StatusCreated, &folder); err != nil {
		return CreatedFolder{}, err
	}
	return folder, nil
}

func (c *Client) ListRootFolders(ctx context.Context) ([]FolderSummary, error) {
	var response struct {
		Items []FolderSummary `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/folders", nil, nil, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return response.Items, nil
}

func (c *Client) CreateToken(ctx context.Context, request CreateTokenRequest) (CreatedToken, error) {
	var created CreatedToken
	if err := c.do(ctx, http.MethodPost, "/v1/tokens", nil, request, http.StatusCreated, &created); err != nil {
		return CreatedToken{}, err
	}
	return created, nil
}

func (c *Client) ListTokens(ctx context.Context) ([]*Token, error) {
	var response struct {
		Items []*Token `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/tokens", nil, nil, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return response.Items, nil
}

func (c *Client) RevokeToken(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, path.Join("/v1/tokens", id), nil, nil, http.StatusNoContent, nil)
}

func (c *Client) do(ctx context.Context, method, resourcePath string, query url.Values, requestBody any, expectedStatus int, output any) error {
	var body io.Reader
	if requestBody != nil {
		payload, err := json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	requestURL := *c.baseURL
	requestURL.Path = path.Join(c.baseURL.Path, resourcePath)
	if query != nil {
		requestURL.RawQuery = query.Encode()
	}

	httpRequest, err := http.NewRequestWithContext(ctx, method, requestURL.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpRequest.Header.Set("Accept", "application/json")
	if requestBody != nil {
		httpRequest.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(c.token) == "" {
		return fmt.Errorf("API token is required")
	}
	httpRequest.Header.Set("Authorization", "Bearer "+c.token)

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return fmt.Errorf("call API: %w", err)
	}
	defer httpResponse.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(httpResponse.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if httpResponse.StatusCode != expectedStatus {
		return parseAPIError(httpResponse.StatusCode, responseBody)
	}
	if output == nil || len(responseBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(responseBody, output); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

func parseAPIError(statusCode int, body []byte) error {
	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(statusCode)
	}

	apiErr := &APIError{StatusCode: statusCode, Message: message}
	var structured struct {
		Error        string `json:"error"`
		SecurityNote string `json:"security_note"`
		RequestID    string `json:"request_id"`
	}
	if err := json.Unmarshal(body, &structured); err == nil && structured.Error != "" {
		apiErr.Message = structured.Error
		apiErr.SecurityNote = structured.SecurityNote
		apiErr.RequestID = structured.RequestID
	}
	return apiErr
}
