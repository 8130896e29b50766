package export

import (
	"context"

	"fintrack/internal/storage"
)

// TransactionWriter is the outbound port the worker pushes exported rows
// through. The Google Sheets adapter is the production implementation.
type TransactionWriter interface {
	Append(ctx context.Context, row storage.ExportRow) (rowRef string, err error)
}
