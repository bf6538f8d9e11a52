// file: internals/features/migration/sheets/google_source.go
package sheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// GoogleSource reads a public/readable spreadsheet through the Sheets API
// with an API key (no OAuth; the source sheet is link-readable).
type GoogleSource struct {
	spreadsheetID string
	svc           *gsheets.Service
}

func NewGoogleSource(ctx context.Context, spreadsheetID, apiKey string) (*GoogleSource, error) {
	svc, err := gsheets.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &GoogleSource{spreadsheetID: spreadsheetID, svc: svc}, nil
}

func (s *GoogleSource) GetSheetData(ctx context.Context, sheetName string) ([]map[string]string, error) {
	resp, err := s.svc.Spreadsheets.Values.
		Get(s.spreadsheetID, sheetName).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("fetch sheet %q: %w", sheetName, err)
	}
	if len(resp.Values) == 0 {
		return []map[string]string{}, nil
	}

	header := make([]string, 0, len(resp.Values[0]))
	for _, cell := range resp.Values[0] {
		header = append(header, strings.TrimSpace(cellString(cell)))
	}

	rows := make([]map[string]string, 0, len(resp.Values)-1)
	for _, raw := range resp.Values[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(raw) {
				row[name] = cellString(raw[i])
			} else {
				// short rows: trailing blank cells are omitted by the API
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cellString(cell interface{}) string {
	if cell == nil {
		return ""
	}
	if s, ok := cell.(string); ok {
		return s
	}
	return fmt.Sprint(cell)
}
