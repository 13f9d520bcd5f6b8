package model

import "time"

// JobStatus represents the current state of a contract processing job
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether a status has no outbound transitions.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ErrorKind classifies a processing failure. The kind decides whether the
// executor retries the job or fails it outright.
type ErrorKind string

const (
	KindUnreadable        ErrorKind = "Unreadable"
	KindCorrupt           ErrorKind = "Corrupt"
	KindTransient         ErrorKind = "Transient"
	KindPermanent         ErrorKind = "Permanent"
	KindMalformedResponse ErrorKind = "MalformedResponse"
	KindRetriesExhausted  ErrorKind = "RetriesExhausted"
	KindCancelled         ErrorKind = "Cancelled"
)

// JobError is the classified failure recorded on a failed job
type JobError struct {
	Kind    ErrorKind `bson:"kind" json:"kind"`
	Message string    `bson:"message" json:"message"`
}

// JobRecord is the persisted state for one uploaded contract's processing
// lifecycle. It is mutated only by the worker holding its lease; everything
// else reads snapshots.
type JobRecord struct {
	ID          string    `bson:"_id" json:"id"`
	Filename    string    `bson:"filename" json:"filename"`
	FileSize    int64     `bson:"file_size" json:"file_size"`
	ContentType string    `bson:"content_type" json:"content_type"`
	Status      JobStatus `bson:"status" json:"status"`
	Progress    int       `bson:"progress" json:"progress"`

	// RawDocumentRef is the document store key for the uploaded bytes.
	// The record never holds the bytes themselves.
	RawDocumentRef string `bson:"raw_document_ref" json:"raw_document_ref"`

	AttemptCount    int        `bson:"attempt_count" json:"attempt_count"`
	CancelRequested bool       `bson:"cancel_requested" json:"cancel_requested"`
	LeaseOwner      string     `bson:"lease_owner,omitempty" json:"-"`
	LeaseExpiresAt  *time.Time `bson:"lease_expires_at,omitempty" json:"-"`
	RetryAt         *time.Time `bson:"retry_at,omitempty" json:"-"`

	ExtractedText string        `bson:"extracted_text,omitempty" json:"extracted_text,omitempty"`
	ContractData  *ContractData `bson:"contract_data,omitempty" json:"contract_data,omitempty"`

	Score          float64         `bson:"score" json:"score"`
	ScoreBreakdown *ScoreBreakdown `bson:"score_breakdown,omitempty" json:"score_breakdown,omitempty"`
	MissingFields  []string        `bson:"missing_fields" json:"missing_fields"`

	Error *JobError `bson:"error,omitempty" json:"error,omitempty"`

	CreatedAt             time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `bson:"updated_at" json:"updated_at"`
	CompletedAt           *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	ProcessingTimeSeconds float64    `bson:"processing_time_seconds,omitempty" json:"processing_time_seconds,omitempty"`
}
