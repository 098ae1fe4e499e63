package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// CSVSink appends rows to <dir>/<sheetID>/<tab>.csv
type CSVSink struct {
	dir string
	mu  sync.Mutex
}

// NewCSVSink creates a sink rooted at dir
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{dir: dir}
}

// Path returns the file a sheet tab is written to
func (c *CSVSink) Path(sheetID, tab string) string {
	return filepath.Join(c.dir, sheetID, tab+".csv")
}

// Append writes rows, preceded by header when the file is new or empty
func (c *CSVSink) Append(ctx context.Context, sheetID, tab string, header []interface{}, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.Path(sheetID, tab)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 && len(header) > 0 {
		if err := w.Write(toStrings(header)); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := w.Write(toStrings(row)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Sync()
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = fmt.Sprint(v)
	}
	return out
}
