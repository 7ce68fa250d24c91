package domain

import (
	"fmt"
	"strings"
	"time"
)

// AnalysisStatus is a state in the per-document analysis lifecycle.
type AnalysisStatus string

// Analysis states. StatusUnsupported is only ever returned in snapshots and never persisted.
const (
	StatusQueued      AnalysisStatus = "queued"
	StatusExtracting  AnalysisStatus = "extracting"
	StatusAnalyzing   AnalysisStatus = "analyzing"
	StatusSaving      AnalysisStatus = "saving"
	StatusCompleted   AnalysisStatus = "completed"
	StatusFailed      AnalysisStatus = "failed"
	StatusUnsupported AnalysisStatus = "unsupported"
)

// transitions lists the legal next states for each non-terminal state.
var transitions = map[AnalysisStatus][]AnalysisStatus{
	StatusQueued:     {StatusExtracting, StatusFailed},
	StatusExtracting: {StatusAnalyzing, StatusFailed},
	StatusAnalyzing:  {StatusSaving, StatusFailed},
	StatusSaving:     {StatusCompleted, StatusFailed},
}

// IsTerminal returns true for completed and failed.
func (s AnalysisStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether the status may move to next.
func (s AnalysisStatus) CanTransition(next AnalysisStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Progress milestones reported while an analysis runs.
const (
	ProgressQueued     = 0
	ProgressFetched    = 10
	ProgressExtracting = 20
	ProgressOCR        = 30
	ProgressAnalyzing  = 50
	ProgressAnalyzed   = 80
	ProgressSaving     = 90
	ProgressComplete   = 100
)

// Usage is the token metering returned by a generation call.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Add accumulates another call's usage.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}

// AnalysisRecord is the deep-analysis lifecycle object for one document.
//
// Invariants: StatusCompleted implies a non-empty Result and Progress 100;
// StatusFailed implies a non-empty Error. Progress never decreases within a run.
type AnalysisRecord struct {
	// DocumentID identifies the analysed document; also the record key.
	DocumentID string

	// Status is the current lifecycle state.
	Status AnalysisStatus

	// Progress is a percentage in [0, 100].
	Progress int

	// Message is a human-readable progress line.
	Message string

	// Result is the generated analysis. Survives a failed refresh.
	Result string

	// Error is the failure detail when Status is failed.
	Error string

	// Usage is the token usage of the run that produced Result.
	Usage Usage

	// StartedAt is when the current run was queued.
	StartedAt time.Time

	// CompletedAt is when Result was last produced.
	CompletedAt time.Time

	// UpdatedAt is when the record last changed.
	UpdatedAt time.Time
}

// NewAnalysisRecord creates a queued record.
func NewAnalysisRecord(documentID string, now time.Time) *AnalysisRecord {
	return &AnalysisRecord{
		DocumentID: documentID,
		Status:     StatusQueued,
		Progress:   ProgressQueued,
		Message:    "Queued for analysis",
		StartedAt:  now,
		UpdatedAt:  now,
	}
}

// HasResult returns true if the record holds a usable completed result.
func (r *AnalysisRecord) HasResult() bool {
	return r.Status == StatusCompleted && strings.TrimSpace(r.Result) != ""
}

// Reset re-queues the record for a new run. Result and CompletedAt are kept
// so a failed refresh never loses the previous answer.
func (r *AnalysisRecord) Reset(now time.Time) {
	r.Status = StatusQueued
	r.Progress = ProgressQueued
	r.Message = "Queued for analysis"
	r.Error = ""
	r.StartedAt = now
	r.UpdatedAt = now
}

// Transition moves the record to next, enforcing the state graph.
func (r *AnalysisRecord) Transition(next AnalysisStatus, now time.Time) error {
	if !r.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, next)
	}
	r.Status = next
	r.UpdatedAt = now
	return nil
}

// Advance raises progress to pct with a message. Lower values are ignored.
func (r *AnalysisRecord) Advance(pct int, message string, now time.Time) {
	if pct > ProgressComplete {
		pct = ProgressComplete
	}
	if pct > r.Progress {
		r.Progress = pct
	}
	if message != "" {
		r.Message = message
	}
	r.UpdatedAt = now
}

// Complete stores the result and moves saving -> completed.
func (r *AnalysisRecord) Complete(result string, usage Usage, now time.Time) error {
	if strings.TrimSpace(result) == "" {
		return fmt.Errorf("%w: empty analysis result", ErrInvalidInput)
	}
	if err := r.Transition(StatusCompleted, now); err != nil {
		return err
	}
	r.Result = result
	r.Usage = usage
	r.Progress = ProgressComplete
	r.Message = "Analysis complete"
	r.Error = ""
	r.CompletedAt = now
	return nil
}

// Fail moves any non-terminal record to failed with a reason.
func (r *AnalysisRecord) Fail(reason string, now time.Time) {
	if reason == "" {
		reason = "analysis failed"
	}
	if !r.Status.IsTerminal() {
		r.Status = StatusFailed
	}
	r.Error = reason
	r.Message = "Analysis failed"
	r.UpdatedAt = now
}

// Snapshot returns a copy safe to hand to callers.
func (r *AnalysisRecord) Snapshot() AnalysisSnapshot {
	return AnalysisSnapshot{
		DocumentID:  r.DocumentID,
		Status:      r.Status,
		Progress:    r.Progress,
		Message:     r.Message,
		Result:      r.Result,
		Error:       r.Error,
		Usage:       r.Usage,
		CompletedAt: r.CompletedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// AnalysisSnapshot is the read-only view of an AnalysisRecord.
type AnalysisSnapshot struct {
	DocumentID  string         `json:"documentId"`
	Status      AnalysisStatus `json:"status"`
	Progress    int            `json:"progress"`
	Message     string         `json:"message,omitempty"`
	Result      string         `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	Usage       Usage          `json:"usage"`
	CompletedAt time.Time      `json:"completedAt,omitempty"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// UnsupportedSnapshot reports that a document type has no analysis prompt.
func UnsupportedSnapshot(documentID string, docType DocumentType) AnalysisSnapshot {
	return AnalysisSnapshot{
		DocumentID: documentID,
		Status:     StatusUnsupported,
		Message:    fmt.Sprintf("Analysis is not available for %s documents", docType),
		UpdatedAt:  time.Now(),
	}
}

// ProgressFunc receives coarse progress milestones from long-running stages.
type ProgressFunc func(pct int, message string)
