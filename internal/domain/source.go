package domain

// Source is one monitored (label, URL) pair from the source list.
// Identity is the URL; one label may own several section URLs.
type Source struct {
	Label string
	URL   string
}

// FetchOutcome is the per-run result for one source. Exactly one of
// Body/Err carries meaning: a failed fetch has Err set and no body.
type FetchOutcome struct {
	Source      Source
	Body        []byte
	ContentType string
	Err         string
}

// Failed reports whether the fetch ended in an error.
func (o FetchOutcome) Failed() bool {
	return o.Err != ""
}

// ChangeEvent is emitted when a source's fingerprint differs from a
// previously stored one. First sight of a URL never produces an event.
type ChangeEvent struct {
	Label string
	URL   string
}
