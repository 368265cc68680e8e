// Package detect implements the per-URL change state machine.
package detect

import (
	"time"

	"sitewatch/internal/domain"
)

// Result is the resolution for one source: the state it landed in, the
// record to persist, and the change event when one was produced.
type Result struct {
	State  domain.CheckState
	Record domain.FingerprintRecord
	Event  *domain.ChangeEvent
}

// Check resolves one fetch outcome against the stored record. A zero
// stored record (empty fingerprint) means the URL has never been fetched
// successfully. Invariants:
//   - a failed fetch keeps the stored fingerprint untouched
//   - the first successful fetch is a baseline, never a change
//   - only a present-and-different stored fingerprint emits an event
func Check(stored domain.FingerprintRecord, src domain.Source, fetchErr, fresh string, now time.Time) Result {
	ts := now.Unix()

	if fetchErr != "" {
		return Result{
			State: domain.StateFailed,
			Record: domain.FingerprintRecord{
				Fingerprint: stored.Fingerprint,
				CheckedAt:   ts,
				LastError:   fetchErr,
			},
		}
	}

	record := domain.FingerprintRecord{Fingerprint: fresh, CheckedAt: ts}

	switch {
	case stored.Fingerprint == "":
		return Result{State: domain.StateBaseline, Record: record}
	case stored.Fingerprint == fresh:
		return Result{State: domain.StateUnchanged, Record: record}
	default:
		return Result{
			State:  domain.StateChanged,
			Record: record,
			Event:  &domain.ChangeEvent{Label: src.Label, URL: src.URL},
		}
	}
}
