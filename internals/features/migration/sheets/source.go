// file: internals/features/migration/sheets/source.go
package sheets

import "context"

// Source is the pluggable row source for the migration pipeline. One
// implementation talks to Google Sheets; tests plug in a fake. Rows come back
// in sheet order as header-keyed string maps (first sheet row = header).
//
// No pagination here: the batch processor imposes it by slicing the full
// result, re-fetching on every batch (simplicity over redundant calls).
type Source interface {
	GetSheetData(ctx context.Context, sheetName string) ([]map[string]string, error)
}
