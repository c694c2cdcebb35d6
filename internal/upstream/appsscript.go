package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dennisdiepolder/activations/backend/internal/metrics"
	"github.com/dennisdiepolder/activations/backend/internal/parser"
	"github.com/dennisdiepolder/activations/backend/internal/types"
	"github.com/rs/zerolog"
)

// maxBodySize caps how much of an upstream response is read
const maxBodySize = 16 << 20

// AppsScriptClient reads sheets through a deployed Apps Script web app
type AppsScriptClient struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewAppsScriptClient creates a client for the web app at baseURL
func NewAppsScriptClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *AppsScriptClient {
	return &AppsScriptClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With().Str("component", "apps_script").Logger(),
	}
}

// ListSources calls ?action=getSheets
func (c *AppsScriptClient) ListSources(ctx context.Context) ([]types.SheetDescriptor, error) {
	const op = "fetch sheet list"

	body, err := c.get(ctx, op, url.Values{"action": {"getSheets"}})
	if err != nil {
		return nil, err
	}

	var sheets []types.SheetDescriptor
	if err := json.Unmarshal(body, &sheets); err != nil || sheets == nil {
		return nil, fmt.Errorf("%s: %w", op, &parser.FormatError{Reason: "expected array of sheets"})
	}
	return sheets, nil
}

// FetchRows calls ?action=getData&sheet=<name>
func (c *AppsScriptClient) FetchRows(ctx context.Context, sheetName string) ([]types.RawRow, error) {
	const op = "fetch sheet data"

	body, err := c.get(ctx, op, url.Values{"action": {"getData"}, "sheet": {sheetName}})
	if err != nil {
		return nil, err
	}

	rows, err := parser.DecodeRows(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rows, nil
}

func (c *AppsScriptClient) get(ctx context.Context, op string, query url.Values) ([]byte, error) {
	m := metrics.Get()

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse apps script URL: %w", err)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		m.RecordUpstreamFetch(true)
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		m.RecordUpstreamFetch(true)
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		m.RecordUpstreamFetch(true)
		return nil, &TransportError{Op: op, Err: err}
	}
	m.RecordUpstreamFetch(false)

	c.logger.Debug().
		Str("action", query.Get("action")).
		Str("sheet", query.Get("sheet")).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("upstream fetch completed")

	return body, nil
}
