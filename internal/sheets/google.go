package sheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleSink appends rows through the Google Sheets v4 API
type GoogleSink struct {
	svc *sheets.Service
}

// NewGoogleSink creates a sink. Without options, application default credentials are used.
func NewGoogleSink(ctx context.Context, opts ...option.ClientOption) (*GoogleSink, error) {
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsScope))
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return &GoogleSink{svc: svc}, nil
}

// Append appends rows after the last non-empty row of the tab
func (g *GoogleSink) Append(ctx context.Context, sheetID, tab string, header []interface{}, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	values := rows
	if len(header) > 0 {
		empty, err := g.tabEmpty(ctx, sheetID, tab)
		if err != nil {
			return err
		}
		if empty {
			values = append([][]interface{}{header}, rows...)
		}
	}

	_, err := g.svc.Spreadsheets.Values.
		Append(sheetID, a1Range(tab, "A1"), &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("appending to %s/%s: %w", sheetID, tab, err)
	}
	return nil
}

func (g *GoogleSink) tabEmpty(ctx context.Context, sheetID, tab string) (bool, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(sheetID, a1Range(tab, "A1:A1")).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("reading %s/%s: %w", sheetID, tab, err)
	}
	return len(resp.Values) == 0, nil
}

// a1Range quotes the tab name so spaces, '!' and apostrophes survive A1 notation
func a1Range(tab, cells string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'!" + cells
}
