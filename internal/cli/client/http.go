package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envAPIURL   = "SUPPORTHUB_API_URL"
	envTenant   = "SUPPORTHUB_TENANT"
	envUserID   = "SUPPORTHUB_USER_ID"
	envUserName = "SUPPORTHUB_USER_NAME"
	envRole     = "SUPPORTHUB_ROLE"

	defaultAPIURL = "http://localhost:8080"
	defaultRole   = "engineer"
)

// Identity is sent on every request in the X-Tenant-Id and X-User-* headers.
type Identity struct {
	TenantID string
	UserID   string
	UserName string
	Role     string
}

type APIClient struct {
	baseURL    string
	identity   Identity
	httpClient *http.Client
}

// AddGlobalFlags registers the connection and output flags shared by every
// command.
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool("output", false, "Output as JSON")
	cmd.PersistentFlags().String("api-url", "", "API base URL (overrides "+envAPIURL+")")
	cmd.PersistentFlags().String("tenant", "", "Tenant ID (overrides "+envTenant+")")
	cmd.PersistentFlags().String("user-id", "", "Acting user ID (overrides "+envUserID+")")
	cmd.PersistentFlags().String("user-name", "", "Acting user display name (overrides "+envUserName+")")
	cmd.PersistentFlags().String("role", "", "Acting user role: engineer, admin or customer (overrides "+envRole+")")
}

// NewAPIClientWithCmd resolves settings flag → env → default.
// If cmd is nil, only env and defaults are consulted.
func NewAPIClientWithCmd(cmd *cobra.Command) (*APIClient, error) {
	_ = godotenv.Load()

	baseURL := resolve(cmd, "api-url", envAPIURL, defaultAPIURL)
	id := Identity{
		TenantID: resolve(cmd, "tenant", envTenant, ""),
		UserID:   resolve(cmd, "user-id", envUserID, ""),
		UserName: resolve(cmd, "user-name", envUserName, ""),
		Role:     resolve(cmd, "role", envRole, defaultRole),
	}

	if id.UserID == "" {
		return nil, fmt.Errorf("%s not set (use --user-id or set the environment variable)", envUserID)
	}

	return NewAPIClientWithConfig(baseURL, id), nil
}

func resolve(cmd *cobra.Command, flag, env, fallback string) string {
	if cmd != nil {
		if v, err := cmd.Flags().GetString(flag); err == nil && v != "" {
			return v
		}
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return fallback
}

func NewAPIClientWithConfig(baseURL string, id Identity) *APIClient {
	return &APIClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		identity: id,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIResponse represents the standard API response format.
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Decode unmarshals the data field into v.
func (r *APIResponse) Decode(v interface{}) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("response has no data")
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Get performs a GET request.
func (c *APIClient) Get(path string) (*APIResponse, error) {
	return c.do(http.MethodGet, path, nil)
}

// Post performs a POST request with JSON body.
func (c *APIClient) Post(path string, body interface{}) (*APIResponse, error) {
	return c.do(http.MethodPost, path, body)
}

// Put performs a PUT request with JSON body.
func (c *APIClient) Put(path string, body interface{}) (*APIResponse, error) {
	return c.do(http.MethodPut, path, body)
}

// Delete performs a DELETE request.
func (c *APIClient) Delete(path string) (*APIResponse, error) {
	return c.do(http.MethodDelete, path, nil)
}

func (c *APIClient) do(method, path string, body interface{}) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	setHeader(req, "X-Tenant-Id", c.identity.TenantID)
	setHeader(req, "X-User-Id", c.identity.UserID)
	setHeader(req, "X-User-Name", c.identity.UserName)
	setHeader(req, "X-User-Role", c.identity.Role)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
		if resp.StatusCode >= 400 {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return &APIResponse{}, nil
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Message:    string(respBody),
			}
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    apiResp.Error,
		}
	}

	return &apiResp, nil
}

func setHeader(req *http.Request, key, value string) {
	if value != "" {
		req.Header.Set(key, value)
	}
}

// UploadFile PUTs a local file to a presigned URL.
func (c *APIClient) UploadFile(uploadURL, filePath, contentType string, onProgress ProgressFunc) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	return c.UploadReader(uploadURL, file, stat.Size(), contentType, onProgress)
}

// UploadReader PUTs size bytes from reader to a presigned URL. The identity
// headers are not sent; the URL carries its own signature.
func (c *APIClient) UploadReader(uploadURL string, reader io.Reader, size int64, contentType string, onProgress ProgressFunc) error {
	if onProgress != nil {
		reader = &progressReader{
			reader:     reader,
			total:      size,
			onProgress: onProgress,
		}
	}

	req, err := http.NewRequest(http.MethodPut, uploadURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.ContentLength = size

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// ProgressFunc is a callback for reporting upload progress.
type ProgressFunc func(current, total int64)

type progressReader struct {
	reader     io.Reader
	total      int64
	current    int64
	onProgress ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	if pr.onProgress != nil {
		pr.onProgress(pr.current, pr.total)
	}
	return n, err
}
