package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Client talks to the cm-admin REST API.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient returns a client for baseURL with a 30s request timeout.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-success answer from the server.
type APIError struct {
	HTTPStatus int
	Status     string // envelope status, empty for bare JSON errors
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.HTTPStatus, e.Status)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.HTTPStatus)
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Do sends one request. body may be nil.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// call posts in as JSON and decodes the envelope's data into out. A FAIL or
// ERROR envelope, or a non-2xx status, becomes an *APIError.
func (c *Client) call(ctx context.Context, method, path string, in, out any) (string, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return "", fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	resp, err := c.Do(ctx, method, path, body, "application/json")
	if err != nil {
		return "", err
	}
	return decodeEnvelope(resp, out)
}

func decodeEnvelope(resp *http.Response, out any) (string, error) {
	defer resp.Body.Close() //nolint:errcheck

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", &APIError{HTTPStatus: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if resp.StatusCode >= 300 || (env.Status != "" && env.Status != "SUCCESS") {
		return "", &APIError{HTTPStatus: resp.StatusCode, Status: env.Status, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", fmt.Errorf("decode response data: %w", err)
		}
	}
	return env.Message, nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, user, password string) (string, error) {
	b, err := json.Marshal(map[string]string{"user_name": user, "password": password})
	if err != nil {
		return "", err
	}
	resp, err := c.Do(ctx, http.MethodPost, "/auth/login", bytes.NewReader(b), "application/json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	var out struct {
		Token string `json:"token"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || resp.StatusCode != http.StatusOK {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &APIError{HTTPStatus: resp.StatusCode, Message: msg}
	}
	return out.Token, nil
}

// Logout ends the current session on the server.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.Do(ctx, http.MethodPost, "/auth/logout", nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		var out struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return &APIError{HTTPStatus: resp.StatusCode, Message: out.Error}
	}
	return nil
}

// Dataset is one loader configuration as returned by getDataLoadersConf.
type Dataset struct {
	ID             int64     `json:"id"`
	DonorName      string    `json:"imsi_donor_name"`
	Name           string    `json:"data_set_name"`
	StagingTable   string    `json:"temp_table_name"`
	PermanentTable string    `json:"permanent_table_name"`
	Versions       []Version `json:"versionslist"`
}

// Version is one committed dataset version.
type Version struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Datasets lists every dataset with its versions, newest first.
func (c *Client) Datasets(ctx context.Context) ([]Dataset, error) {
	var out []Dataset
	if _, err := c.call(ctx, http.MethodPost, "/upload/getDataLoadersConf", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindDataset resolves a dataset by numeric ID or by name.
func (c *Client) FindDataset(ctx context.Context, ref string) (*Dataset, error) {
	all, err := c.Datasets(ctx)
	if err != nil {
		return nil, err
	}
	id, idErr := strconv.ParseInt(ref, 10, 64)
	for i := range all {
		if (idErr == nil && all[i].ID == id) || strings.EqualFold(all[i].Name, ref) {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("dataset %q not found", ref)
}

// UploadOptions describes one file upload.
type UploadOptions struct {
	DatasetID    int64
	StagingTable string
	Label        string
	File         string
	SkipRows     *int
}

// UploadResult is the server's answer to a successful upload.
type UploadResult struct {
	VersionID   int64  `json:"id"`
	VersionName string `json:"versionName"`
	Rows        int64  `json:"rows"`
	Message     string `json:"-"`
}

// Upload sends a file as multipart form data to /upload/uploadFile.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) (*UploadResult, error) {
	f, err := os.Open(opts.File)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(opts.File))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	fields := map[string]string{
		"tableId":     strconv.FormatInt(opts.DatasetID, 10),
		"tableName":   opts.StagingTable,
		"versionName": opts.Label,
	}
	if opts.SkipRows != nil {
		fields["skipRows"] = strconv.Itoa(*opts.SkipRows)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	resp, err := c.Do(ctx, http.MethodPost, "/upload/uploadFile", &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	var res UploadResult
	msg, err := decodeEnvelope(resp, &res)
	if err != nil {
		return nil, err
	}
	res.Message = msg
	return &res, nil
}
