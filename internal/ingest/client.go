package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/waghmarepb/consolidate/internal/logging"
)

const userAgent = "Consolidate-Go/0.1.0"

const (
	uploadPath    = "/api/files/upload"
	listPath      = "/api/data/list"
	deleteAllPath = "/api/data/delete-all"
)

// maxErrorBody bounds how much of a failure response is read for a message.
const maxErrorBody = 64 * 1024

// Client talks to the ingestion service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a client for the given base URL. A zero timeout disables
// the request deadline.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.WithComponent(logger, "ingest"),
	}
}

// UploadError carries the descriptive failure text of a rejected upload.
// Error returns the bare message so it can be stored on a record verbatim.
type UploadError struct {
	StatusCode int
	Message    string
}

func (e *UploadError) Error() string {
	return e.Message
}

// Upload performs exactly one multipart transfer of a file's bytes. Success
// requires an HTTP 200 response whose body parses as JSON; anything else is
// a failure with a human-readable message, preferring the "error" field of a
// parsed error body. No retries are attempted.
func (c *Client) Upload(ctx context.Context, fileName string, data []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	header.Set("Content-Type", spreadsheetContentType(fileName))
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, &body)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.Debug("uploading file",
		logging.String("file_name", fileName),
		logging.Int("size_bytes", len(data)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", fileName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("read upload response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &UploadError{
			StatusCode: resp.StatusCode,
			Message:    errorMessageFromBody(raw, resp.StatusCode),
		}
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &UploadError{
			StatusCode: resp.StatusCode,
			Message:    "ingestion service returned an unreadable response",
		}
	}
	return nil
}

// ListPage is one page of ingested rows.
type ListPage struct {
	Data       []map[string]any `json:"data"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	TotalPages int              `json:"total_pages"`
}

// List fetches a page of ingested rows.
func (c *Client) List(ctx context.Context, page, perPage int) (*ListPage, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		query.Set("per_page", strconv.Itoa(perPage))
	}
	endpoint := c.baseURL + listPath
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list data: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read list response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list data: %s", errorMessageFromBody(raw, resp.StatusCode))
	}

	var pageData ListPage
	if err := json.Unmarshal(raw, &pageData); err != nil {
		return nil, fmt.Errorf("parse list response: %w", err)
	}
	return &pageData, nil
}

// DeleteAll clears every ingested row and returns the number deleted.
func (c *Client) DeleteAll(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+deleteAllPath, nil)
	if err != nil {
		return 0, fmt.Errorf("build delete request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("delete data: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return 0, fmt.Errorf("read delete response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("delete data: %s", errorMessageFromBody(raw, resp.StatusCode))
	}

	var payload struct {
		RecordsDeleted int `json:"records_deleted"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, fmt.Errorf("parse delete response: %w", err)
	}
	return payload.RecordsDeleted, nil
}

// errorMessageFromBody prefers the "error" field of a parsed JSON body and
// falls back to a generic description of the status.
func errorMessageFromBody(raw []byte, statusCode int) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if message := strings.TrimSpace(payload.Error); message != "" {
			return message
		}
	}
	return fmt.Sprintf("request failed with status %d", statusCode)
}

func spreadsheetContentType(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xls":
		return "application/vnd.ms-excel"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}
