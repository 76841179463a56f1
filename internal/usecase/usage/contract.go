package usage

import "context"

// LedgerReader provides read access to the accumulated token spend.
type LedgerReader interface {
	Daily(ctx context.Context) (int64, error)
	Monthly(ctx context.Context) (int64, error)
}
