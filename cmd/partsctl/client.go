package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dakshin/partsquote/internal/core/domain"
)

type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func newAPIClient(baseURL, token string, httpClient *http.Client) *apiClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Message)
}

func (c *apiClient) importFile(ctx context.Context, filename string, body io.Reader) (*domain.ImportResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	var result domain.ImportResult
	if err := c.do(ctx, http.MethodPost, "/v1/parts-lists/import", mw.FormDataContentType(), &buf, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *apiClient) listImports(ctx context.Context, limit int) ([]domain.ImportBatch, error) {
	path := "/v1/imports"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var payload struct {
		Imports []domain.ImportBatch `json:"imports"`
	}
	if err := c.do(ctx, http.MethodGet, path, "", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Imports, nil
}

func (c *apiClient) getImport(ctx context.Context, id string) (*domain.ImportBatch, error) {
	var batch domain.ImportBatch
	if err := c.do(ctx, http.MethodGet, "/v1/imports/"+url.PathEscape(id), "", nil, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

func (c *apiClient) listQueue(ctx context.Context, status, batchID string, limit int) (*domain.QueueSnapshot, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if batchID != "" {
		query.Set("batch_id", batchID)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/queue"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var snapshot domain.QueueSnapshot
	if err := c.do(ctx, http.MethodGet, path, "", nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (c *apiClient) retry(ctx context.Context, id string) (*domain.QueueEntry, error) {
	var entry domain.QueueEntry
	if err := c.do(ctx, http.MethodPost, "/v1/queue/"+url.PathEscape(id)+"/retry", "", nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *apiClient) clear(ctx context.Context, scope string) (map[string]any, error) {
	var result map[string]any
	if err := c.do(ctx, http.MethodDelete, "/v1/queue?scope="+url.QueryEscape(scope), "", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *apiClient) control(ctx context.Context, action string) (*domain.OrchestratorState, error) {
	var state domain.OrchestratorState
	if err := c.do(ctx, http.MethodPost, "/v1/queue/"+action, "", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *apiClient) requeueParts(ctx context.Context, partNumbers []string, force bool) (*domain.RequeueResult, error) {
	raw, err := json.Marshal(map[string]any{"part_numbers": partNumbers, "force": force})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	var result domain.RequeueResult
	if err := c.do(ctx, http.MethodPost, "/v1/parts/enrich", "application/json", bytes.NewReader(raw), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *apiClient) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
			payload.Error = strings.TrimSpace(string(raw))
		}
		return &apiError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
