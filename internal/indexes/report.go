package indexes

import (
	"time"

	"go.uber.org/multierr"
)

// Status is the result for a single index.
type Status string

const (
	StatusCreated  Status = "created"
	StatusPresent  Status = "present"
	StatusMissing  Status = "missing"
	StatusConflict Status = "conflict"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
)

// Outcome records what happened to one index.
type Outcome struct {
	Spec     Spec
	Status   Status
	Duration time.Duration
	Err      error
}

// Report collects the outcomes of a run, in catalog order.
type Report struct {
	Database string
	Started  time.Time
	Duration time.Duration
	Outcomes []Outcome
}

// Err combines every outcome error; nil when all indexes are in place.
func (r *Report) Err() error {
	if r == nil {
		return nil
	}
	var err error
	for _, o := range r.Outcomes {
		err = multierr.Append(err, o.Err)
	}
	return err
}

// Count returns the number of outcomes with status s.
func (r *Report) Count(s Status) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// OK reports whether every index is created or present.
func (r *Report) OK() bool {
	if r == nil || len(r.Outcomes) == 0 {
		return false
	}
	for _, o := range r.Outcomes {
		if o.Status != StatusCreated && o.Status != StatusPresent {
			return false
		}
	}
	return true
}
