package model

import "time"

// RunStats tracks the pipeline funnel for one run. Counters are set once per
// stage by the orchestrator after the stage's worker pool has joined; they
// are never mutated concurrently.
type RunStats struct {
	RunID string `json:"run_id"`

	Collected       int `json:"collected"`
	AfterDedup1     int `json:"after_dedup1"`
	AfterFilter     int `json:"after_filter"`
	AfterDedup2     int `json:"after_dedup2"`
	AfterValidation int `json:"after_validation"`
	FinalOutput     int `json:"final_output"`

	RegulatoryFound    int `json:"regulatory_found"`
	RegulatoryRetained int `json:"regulatory_retained"`

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Finalize stamps the end time. Idempotent.
func (s *RunStats) Finalize(now time.Time) {
	if s.EndedAt == nil {
		s.EndedAt = &now
	}
}

// RetentionViolated reports whether regulatory articles were lost after
// classification. A true result must surface as a non-zero process exit.
func (s RunStats) RetentionViolated() bool {
	return s.RegulatoryRetained < s.RegulatoryFound
}
