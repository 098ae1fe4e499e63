// Package sheets appends exported rows to spreadsheet-like sinks.
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"

	"github.com/hochfrequenz/booking-export/internal/config"
)

// Sink appends rows to a tab of a spreadsheet. Implementations write header
// first when the tab is still empty.
type Sink interface {
	Append(ctx context.Context, sheetID, tab string, header []interface{}, rows [][]interface{}) error
}

// New returns the sink selected by cfg.Sink
func New(ctx context.Context, cfg config.SheetsConfig) (Sink, error) {
	switch cfg.Sink {
	case "google":
		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		return NewGoogleSink(ctx, opts...)
	case "csv", "":
		if cfg.CSVDir == "" {
			return nil, fmt.Errorf("sheets.csv_dir is required for the csv sink")
		}
		return NewCSVSink(cfg.CSVDir), nil
	default:
		return nil, fmt.Errorf("unknown sheets sink: %q", cfg.Sink)
	}
}
