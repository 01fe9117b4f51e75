package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"timelapse/internal/api"
	"timelapse/internal/jobs"
	"timelapse/internal/services"
)

const defaultRequestTimeout = 15 * time.Second

// StatusError is returned for non-2xx responses. It unwraps to the matching
// services marker so callers can use errors.Is.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("daemon returned %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusBadRequest:
		return services.ErrValidation
	case http.StatusNotFound:
		return services.ErrNotFound
	case http.StatusConflict:
		return services.ErrConflict
	default:
		return nil
	}
}

// Client talks to the timelapse daemon HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken sets the bearer token sent with /api requests.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// NewClient constructs a client for the daemon at baseURL. Transfers are
// bounded by the caller's context; JSON calls also get a default timeout.
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// BaseURLFromBind turns a listen address into a URL the CLI can dial.
// Wildcard hosts are replaced with loopback.
func BaseURLFromBind(bind string) string {
	bind = strings.TrimSpace(bind)
	if strings.HasPrefix(bind, "http://") || strings.HasPrefix(bind, "https://") {
		return strings.TrimRight(bind, "/")
	}
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return "http://" + bind
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Health checks daemon liveness.
func (c *Client) Health(ctx context.Context) error {
	var resp api.HealthResponse
	return c.getJSON(ctx, "/health", &resp)
}

// Status fetches the daemon runtime summary.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var resp api.DaemonStatus
	err := c.getJSON(ctx, "/api/status", &resp)
	return resp, err
}

// Upload streams the given image files into a new job.
func (c *Client) Upload(ctx context.Context, paths []string) (api.UploadResponse, error) {
	var empty api.UploadResponse
	if len(paths) == 0 {
		return empty, errors.New("upload: no files given")
	}

	body, writer := io.Pipe()
	mw := multipart.NewWriter(writer)
	go func() {
		writer.CloseWithError(writeParts(mw, paths))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload", body)
	if err != nil {
		_ = body.Close()
		return empty, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp api.UploadResponse
	if err := c.do(req, &resp); err != nil {
		return empty, err
	}
	return resp, nil
}

func writeParts(mw *multipart.Writer, paths []string) error {
	for _, path := range paths {
		if err := writePart(mw, path); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writePart(mw *multipart.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	part, err := mw.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("send %s: %w", path, err)
	}
	return nil
}

// Create submits an uploaded job for encoding.
func (c *Client) Create(ctx context.Context, req api.CreateRequest) (api.CreateResponse, error) {
	var resp api.CreateResponse
	payload, err := json.Marshal(req)
	if err != nil {
		return resp, fmt.Errorf("encode request: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/create-timelapse", bytes.NewReader(payload))
	if err != nil {
		return resp, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	err = c.do(httpReq, &resp)
	return resp, err
}

// JobStatus polls one job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (jobs.StatusView, error) {
	var view jobs.StatusView
	err := c.getJSON(ctx, "/api/job-status/"+url.PathEscape(jobID), &view)
	return view, err
}

// Jobs lists every job the daemon knows about.
func (c *Client) Jobs(ctx context.Context) ([]api.JobEntry, error) {
	var resp api.JobListResponse
	if err := c.getJSON(ctx, "/api/jobs", &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Remove deletes a job and its files.
func (c *Client) Remove(ctx context.Context, jobID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return err
	}
	var resp api.RemoveResponse
	return c.do(req, &resp)
}

// Download copies the finished video into w and returns the byte count.
func (c *Client) Download(ctx context.Context, jobID string, w io.Writer) (int64, error) {
	return c.stream(ctx, "/api/download/"+url.PathEscape(jobID), w)
}

// Preview copies the index-th frame into w.
func (c *Client) Preview(ctx context.Context, jobID string, index int, w io.Writer) (int64, error) {
	return c.stream(ctx, "/api/preview/"+url.PathEscape(jobID)+"/"+strconv.Itoa(index), w)
}

func (c *Client) stream(ctx context.Context, path string, w io.Writer) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, decodeStatusError(resp)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("read %s: %w", path, err)
	}
	return n, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if c.baseURL == "" {
		return nil, errors.New("daemon url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeStatusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func decodeStatusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload api.ErrorResponse
	message := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		message = payload.Error
	}
	return &StatusError{Code: resp.StatusCode, Message: message}
}
