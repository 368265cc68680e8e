package ports

import (
	"context"

	"sitewatch/internal/domain"
)

// Fetcher retrieves raw bodies for all sources of one run. It returns
// exactly one outcome per input source; individual failures surface as
// error outcomes and never abort the remaining fetches.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []domain.Source) []domain.FetchOutcome
}

// StateStore persists the URL -> fingerprint mapping between runs.
// Load returns an empty map when no prior state exists. Save overwrites
// the whole store in one atomic operation.
type StateStore interface {
	Load(ctx context.Context) (map[string]domain.FingerprintRecord, error)
	Save(ctx context.Context, records map[string]domain.FingerprintRecord) error
}

// SubscriptionSource resolves the label -> recipient mapping from the
// external subscription table, filtered to active rows.
type SubscriptionSource interface {
	Resolve(ctx context.Context) (map[string]map[string]struct{}, error)
}

// Mailer dispatches one message per call via the external transport.
type Mailer interface {
	Send(ctx context.Context, msg domain.Mail) error
}
