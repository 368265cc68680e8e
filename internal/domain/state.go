package domain

// FingerprintRecord is the persisted per-URL state. The fingerprint is
// retained across failed fetches so an outage cannot manufacture a
// spurious first-seen transition on recovery. Records are never deleted;
// URLs dropped from the source list simply stop being updated.
type FingerprintRecord struct {
	Fingerprint string `json:"fp,omitempty"`
	CheckedAt   int64  `json:"ts"`
	LastError   string `json:"error,omitempty"`
}

// CheckState classifies one source after a run.
type CheckState string

const (
	StateFailed    CheckState = "failed"
	StateBaseline  CheckState = "baseline"
	StateUnchanged CheckState = "unchanged"
	StateChanged   CheckState = "changed"
)
