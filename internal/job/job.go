package job

import (
	"time"
)

// Status is the lifecycle stage of a download job. Jobs walk the stages in
// order; a failure at any stage jumps straight to StatusDone with the error
// recorded on the result.
type Status string

const (
	StatusPending    Status = "pending"
	StatusResolving  Status = "resolving"
	StatusFetching   Status = "fetching"
	StatusAssembling Status = "assembling"
	StatusDone       Status = "done"
)

// Request describes one title download.
type Request struct {
	// Locator is the title page URL.
	Locator string
	// SceneNumber selects a single scene; zero means the whole title.
	SceneNumber int
	// PaddingSeconds widens a scene range on both sides.
	PaddingSeconds float64
	// StartSegment and EndSegment, when non-nil, override the derived
	// segment range.
	StartSegment *int
	EndSegment   *int
	// RequestedHeight picks the variant: zero for the lowest rung, negative
	// for the highest, anything else nearest-lower.
	RequestedHeight int
	// ForceHeight fails the job unless RequestedHeight is offered exactly.
	ForceHeight bool
}

// Result is the terminal report of one job. Err is nil on success. Outcomes
// are deliberately binary: every stage either completes for the whole selected
// range or cancels the job, so a partially fetched job is a failed one whose
// segments stay on disk for resume.
type Result struct {
	ID         string
	Locator    string
	Scene      int
	Title      string
	Height     int
	OutputPath string
	Status     Status
	Err        error
	Elapsed    time.Duration
}

// Succeeded reports whether the job produced its output.
func (r Result) Succeeded() bool { return r.Err == nil }
