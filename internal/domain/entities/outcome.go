package entities

// FailureKind classifies a failed download attempt
type FailureKind string

const (
	// FailureNone means the attempt did not fail
	FailureNone FailureKind = ""

	// FailureTransient covers timeouts, connection resets, 5xx and redirect overflow
	FailureTransient FailureKind = "transient"

	// FailureRateLimited means the upstream answered 429
	FailureRateLimited FailureKind = "rate_limited"

	// FailureNotFound means the upstream answered 404
	FailureNotFound FailureKind = "not_found"

	// FailureFatal covers auth failures, other 4xx and local write errors
	FailureFatal FailureKind = "fatal"
)

// OutcomeKind tags a DownloadOutcome
type OutcomeKind string

const (
	OutcomeSuccess            OutcomeKind = "success"
	OutcomeSkippedInvalidSize OutcomeKind = "skipped_invalid_size"
	OutcomeSkippedNotFound    OutcomeKind = "skipped_not_found"
	OutcomeFailed             OutcomeKind = "failed"
)

// DownloadOutcome is the terminal result for one identifier
type DownloadOutcome struct {
	Identifier   SampleIdentifier `json:"identifier"`
	Kind         OutcomeKind      `json:"kind"`
	BytesWritten int64            `json:"bytes_written,omitempty"`
	Path         string           `json:"path,omitempty"`
	SHA256       string           `json:"sha256,omitempty"`
	Reason       string           `json:"reason,omitempty"`
	Attempts     int              `json:"attempts"`
	Failure      FailureKind      `json:"failure,omitempty"`
}

// Succeeded builds a Success outcome
func Succeeded(id SampleIdentifier, written int64, path string, attempts int) DownloadOutcome {
	return DownloadOutcome{Identifier: id, Kind: OutcomeSuccess, BytesWritten: written, Path: path, Attempts: attempts}
}

// InvalidSize builds a SkippedInvalidSize outcome
func InvalidSize(id SampleIdentifier, written int64, attempts int) DownloadOutcome {
	return DownloadOutcome{Identifier: id, Kind: OutcomeSkippedInvalidSize, BytesWritten: written, Attempts: attempts}
}

// NotFound builds a SkippedNotFound outcome
func NotFound(id SampleIdentifier, attempts int) DownloadOutcome {
	return DownloadOutcome{Identifier: id, Kind: OutcomeSkippedNotFound, Attempts: attempts, Failure: FailureNotFound}
}

// Failed builds a Failed outcome
func Failed(id SampleIdentifier, kind FailureKind, reason string, attempts int) DownloadOutcome {
	return DownloadOutcome{Identifier: id, Kind: OutcomeFailed, Reason: reason, Attempts: attempts, Failure: kind}
}

// FailureDetail records why a single item failed
type FailureDetail struct {
	Identifier SampleIdentifier `json:"identifier"`
	Reason     string           `json:"reason"`
	Attempts   int              `json:"attempts"`
}

// RunSummary aggregates outcomes across a run
type RunSummary struct {
	Success            int             `json:"success"`
	SkippedInvalidSize int             `json:"skipped_invalid_size"`
	SkippedNotFound    int             `json:"skipped_not_found"`
	Failed             int             `json:"failed"`
	RateLimited        int             `json:"rate_limited"`
	Failures           []FailureDetail `json:"failures,omitempty"`
}

// Add folds one outcome into the summary
func (s *RunSummary) Add(o DownloadOutcome) {
	switch o.Kind {
	case OutcomeSuccess:
		s.Success++
	case OutcomeSkippedInvalidSize:
		s.SkippedInvalidSize++
	case OutcomeSkippedNotFound:
		s.SkippedNotFound++
	case OutcomeFailed:
		s.Failed++
		if o.Failure == FailureRateLimited {
			s.RateLimited++
		}
		s.Failures = append(s.Failures, FailureDetail{
			Identifier: o.Identifier,
			Reason:     o.Reason,
			Attempts:   o.Attempts,
		})
	}
}

// Total returns the number of outcomes folded in
func (s *RunSummary) Total() int {
	return s.Success + s.SkippedInvalidSize + s.SkippedNotFound + s.Failed
}
