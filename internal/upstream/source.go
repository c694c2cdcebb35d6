package upstream

import (
	"context"
	"fmt"

	"github.com/dennisdiepolder/activations/backend/internal/config"
	"github.com/dennisdiepolder/activations/backend/internal/types"
	"github.com/rs/zerolog"
)

// Source is a spreadsheet-backed data source
type Source interface {
	// ListSources enumerates the available sheets, the master sheet included
	ListSources(ctx context.Context) ([]types.SheetDescriptor, error)

	// FetchRows returns the raw positional rows of one sheet
	FetchRows(ctx context.Context, sheetName string) ([]types.RawRow, error)
}

// TransportError is returned when the upstream call fails or answers non-OK
type TransportError struct {
	Op         string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP error! status: %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// New creates the source selected by configuration
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Source, error) {
	switch cfg.UpstreamMode {
	case config.UpstreamSheets:
		return NewSheetsClient(ctx, cfg.SpreadsheetID, cfg.GoogleCredentialsFile, cfg.FetchTimeout, logger)
	case config.UpstreamAppsScript:
		return NewAppsScriptClient(cfg.AppsScriptURL, cfg.FetchTimeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown upstream mode %q", cfg.UpstreamMode)
	}
}
