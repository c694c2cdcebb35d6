package upstream

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dennisdiepolder/activations/backend/internal/metrics"
	"github.com/dennisdiepolder/activations/backend/internal/types"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// sheetColumns covers every column either schema reads
const sheetColumns = "A:I"

// periodLayouts are the sheet title formats recognised as dates
var periodLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"02.01.2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// SheetsClient reads sheets directly through the Google Sheets v4 API
type SheetsClient struct {
	svc           *gsheet.Service
	spreadsheetID string
	timeout       time.Duration
	logger        zerolog.Logger
}

// NewSheetsClient creates a Sheets client using a service account key file,
// or application default credentials when credentialsFile is empty.
func NewSheetsClient(ctx context.Context, spreadsheetID, credentialsFile string, timeout time.Duration, logger zerolog.Logger) (*SheetsClient, error) {
	var creds *google.Credentials
	var err error
	if credentialsFile != "" {
		b, rerr := os.ReadFile(credentialsFile)
		if rerr != nil {
			return nil, fmt.Errorf("read credentials file: %w", rerr)
		}
		creds, err = google.CredentialsFromJSON(ctx, b, gsheet.SpreadsheetsReadonlyScope)
	} else {
		creds, err = google.FindDefaultCredentials(ctx, gsheet.SpreadsheetsReadonlyScope)
	}
	if err != nil {
		return nil, fmt.Errorf("google credentials: %w", err)
	}

	return newSheetsClient(ctx, spreadsheetID, timeout, logger, option.WithCredentials(creds))
}

func newSheetsClient(ctx context.Context, spreadsheetID string, timeout time.Duration, logger zerolog.Logger, opts ...option.ClientOption) (*SheetsClient, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &SheetsClient{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		timeout:       timeout,
		logger:        logger.With().Str("component", "sheets_api").Logger(),
	}, nil
}

// ListSources reads the sheet titles of the spreadsheet
func (c *SheetsClient) ListSources(ctx context.Context) ([]types.SheetDescriptor, error) {
	const op = "fetch sheet list"

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	metrics.Get().RecordUpstreamFetch(err != nil)
	if err != nil {
		return nil, transportError(op, err)
	}

	sheets := make([]types.SheetDescriptor, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties == nil {
			continue
		}
		title := s.Properties.Title
		sheets = append(sheets, types.SheetDescriptor{Name: title, PeriodLabel: PeriodLabel(title)})
	}
	return sheets, nil
}

// FetchRows reads the unformatted values of one sheet
func (c *SheetsClient) FetchRows(ctx context.Context, sheetName string) ([]types.RawRow, error) {
	const op = "fetch sheet data"

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheetRange(sheetName)).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	metrics.Get().RecordUpstreamFetch(err != nil)
	if err != nil {
		return nil, transportError(op, err)
	}

	rows := make([]types.RawRow, len(resp.Values))
	for i, v := range resp.Values {
		rows[i] = types.RawRow(v)
	}

	c.logger.Debug().
		Str("sheet", sheetName).
		Int("rows", len(rows)).
		Dur("duration", time.Since(start)).
		Msg("upstream fetch completed")

	return rows, nil
}

func (c *SheetsClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// PeriodLabel returns the canonical date label for a sheet title. Titles
// that are not recognised dates, the master sheet included, are kept as-is.
func PeriodLabel(title string) string {
	trimmed := strings.TrimSpace(title)
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return title
}

func sheetRange(sheetName string) string {
	return "'" + strings.ReplaceAll(sheetName, "'", "''") + "'!" + sheetColumns
}

func transportError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &TransportError{Op: op, StatusCode: gerr.Code, Err: err}
	}
	return &TransportError{Op: op, Err: err}
}
