package sitesnap

import (
	"fmt"
	"time"
)

// Default column labels, matching the headers of the stock worklist.
const (
	DefaultIndexLabel   = "序号"
	DefaultNameLabel    = "网站名称"
	DefaultAddressLabel = "网站域名"
)

// Field is a labeled value carried from the worklist into page documents.
type Field struct {
	Label string
	Value string
}

// Labels names the three core fields in output. Empty labels use the defaults.
type Labels struct {
	Index   string
	Name    string
	Address string
}

// DefaultLabels returns the stock worklist headers.
func DefaultLabels() Labels {
	return Labels{Index: DefaultIndexLabel, Name: DefaultNameLabel, Address: DefaultAddressLabel}
}

// WithDefaults fills empty labels from DefaultLabels.
func (l Labels) WithDefaults() Labels {
	d := DefaultLabels()
	if l.Index == "" {
		l.Index = d.Index
	}
	if l.Name == "" {
		l.Name = d.Name
	}
	if l.Address == "" {
		l.Address = d.Address
	}
	return l
}

// Record is one worklist row. Index is the external identity of the record;
// Extra holds passthrough columns in input order.
type Record struct {
	Index   int
	Name    string
	Address string
	Extra   []Field
	Labels  Labels
}

// Validate checks the fields every capture needs.
func (r Record) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: record %d", ErrEmptyName, r.Index)
	}
	if r.Address == "" {
		return fmt.Errorf("%w: record %d (%s)", ErrEmptyAddress, r.Index, r.Name)
	}
	return nil
}

// Outcome is the terminal state of a capture task.
type Outcome int

const (
	// OutcomeSuccess means a real screenshot was written.
	OutcomeSuccess Outcome = iota
	// OutcomeFallback means the placeholder image was written instead.
	OutcomeFallback
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFallback:
		return "fallback"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// CaptureResult is the single output of one capture task.
type CaptureResult struct {
	Record       Record
	Outcome      Outcome
	ArtifactPath string
	Attempts     int
	FinalURL     string        // address the renderer ended on, after redirects
	Redirected   bool          // FinalURL differs from the address requested
	Err          error         // last error seen; nil on a first-try success
	Duration     time.Duration // wall time of the whole task
	WorkerID     int
}

// Report summarizes a finished (or aborted) run.
type Report struct {
	RunID      string
	Stats      StatsSnapshot
	Pages      []string // page documents written, in first-touch order
	PDFs       []string // PDF exports that succeeded
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
