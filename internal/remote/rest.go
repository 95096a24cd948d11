package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/bhadrakali/chit-ledger/internal/model"
	"github.com/bhadrakali/chit-ledger/pkg/logger"
)

// RESTConfig points at a PostgREST-compatible endpoint (Supabase or
// self-hosted). The snapshot lives in a single row of Table, keyed RowID.
type RESTConfig struct {
	BaseURL    string
	APIKey     string
	Table      string
	RowID      int
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	MaxConns   int
}

// RESTStore talks the PostgREST row contract: GET with an id filter to
// fetch, PATCH the existing row or POST a fresh one to upsert.
type RESTStore struct {
	config RESTConfig
	client *fasthttp.Client
}

// snapshotRow is the wire shape of the remote row. data carries the full
// dataset blob; updated_at mirrors the blob's lastUpdated for cheap
// comparison on the remote side.
type snapshotRow struct {
	ID        int             `json:"id"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewRESTStore(config RESTConfig) (*RESTStore, error) {
	if config.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if config.Table == "" {
		config.Table = "ledger_snapshots"
	}
	if config.RowID == 0 {
		config.RowID = 1
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 500 * time.Millisecond
	}
	if config.MaxConns == 0 {
		config.MaxConns = 16
	}

	s := &RESTStore{
		config: config,
		client: &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
	}
	logger.Info("remote REST store initialized", "url", config.BaseURL, "table", config.Table)
	return s, nil
}

func (s *RESTStore) rowURL() string {
	return fmt.Sprintf("%s/rest/v1/%s?id=eq.%d", s.config.BaseURL, s.config.Table, s.config.RowID)
}

// Fetch retrieves the snapshot row. A missing row is ErrNoSnapshot; a row
// whose blob does not parse degrades to defaults rather than failing the
// sync cycle.
func (s *RESTStore) Fetch(ctx context.Context) (*model.Dataset, error) {
	url := s.rowURL() + "&select=id,data,updated_at"
	body, _, err := s.doRequest(ctx, fasthttp.MethodGet, url, nil, "")
	if err != nil {
		return nil, err
	}

	var rows []snapshotRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoSnapshot
	}

	ds := model.DecodeDataset(rows[0].Data)
	if ds.LastUpdated.IsZero() {
		ds.LastUpdated = rows[0].UpdatedAt
	}
	return ds, nil
}

// Upsert pushes the snapshot: PATCH the row, and when the filter matched
// nothing, POST it into existence. PostgREST reports the matched rows in
// the representation, which is how the miss is detected.
func (s *RESTStore) Upsert(ctx context.Context, ds *model.Dataset) error {
	blob, err := ds.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	row := snapshotRow{ID: s.config.RowID, Data: blob, UpdatedAt: ds.LastUpdated}
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot row: %w", err)
	}

	patched, _, err := s.doRequest(ctx, fasthttp.MethodPatch, s.rowURL(), payload, "return=representation")
	if err != nil {
		return err
	}

	var matched []json.RawMessage
	if len(patched) > 0 {
		if err := json.Unmarshal(patched, &matched); err != nil {
			return fmt.Errorf("failed to unmarshal patch response: %w", err)
		}
	}
	if len(matched) > 0 {
		return nil
	}

	postURL := fmt.Sprintf("%s/rest/v1/%s", s.config.BaseURL, s.config.Table)
	_, _, err = s.doRequest(ctx, fasthttp.MethodPost, postURL, payload, "return=minimal")
	return err
}

// doRequest performs one HTTP call with the retry loop around transient
// failures. Non-2xx responses are terminal for the attempt, not the call.
func (s *RESTStore) doRequest(ctx context.Context, method, url string, body []byte, prefer string) ([]byte, int, error) {
	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(s.config.RetryDelay):
			}
		}

		result, status, err := s.doOnce(ctx, method, url, body, prefer)
		if err == nil {
			return result, status, nil
		}
		lastErr = err
		logger.Warn("remote request failed, retrying", "error", err, "method", method, "attempt", attempt+1)
	}
	return nil, 0, fmt.Errorf("remote request failed after %d attempts: %w", s.config.MaxRetries+1, lastErr)
}

func (s *RESTStore) doOnce(ctx context.Context, method, url string, body []byte, prefer string) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if s.config.APIKey != "" {
		req.Header.Set("apikey", s.config.APIKey)
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(s.config.Timeout)
	}
	if err := s.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode < fasthttp.StatusOK || statusCode >= fasthttp.StatusMultipleChoices {
		return nil, statusCode, fmt.Errorf("unexpected status code: %d, body: %s", statusCode, resp.Body())
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())
	return result, statusCode, nil
}
