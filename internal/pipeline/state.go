package pipeline

import "contractiq/internal/model"

// Progress checkpoints reported while an attempt runs. Text extraction,
// structured extraction and scoring each end at a fixed value so clients
// can interpret the number without knowing the internals.
const (
	ProgressStarted    = 0
	ProgressExtracted  = 33
	ProgressStructured = 66
	ProgressComplete   = 100
)

// ValidTransition reports whether a status change is allowed by the job
// lifecycle. Terminal states have no outbound transitions, a retry keeps
// the job in processing rather than returning it to pending, and every
// terminal outcome passes through processing first.
func ValidTransition(from, to model.JobStatus) bool {
	switch from {
	case model.StatusPending:
		return to == model.StatusProcessing
	case model.StatusProcessing:
		return to == model.StatusProcessing || to == model.StatusCompleted || to == model.StatusFailed
	default:
		return false
	}
}
