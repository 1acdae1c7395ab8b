package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypePriceCorrection JobType = "price_correction"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// PriceCorrectionJobPayload asks the pricing worker to recompute visible
// pricing for a scope after a subscription cancellation. CorrelationID is
// also the job id, so redundant emissions collapse in the queue.
type PriceCorrectionJobPayload struct {
	Scope         string `json:"scope"`
	CorrelationID string `json:"correlation_id"`
}

// ToMap converts the payload to a map for storage
func (p PriceCorrectionJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"scope":          p.Scope,
		"correlation_id": p.CorrelationID,
	}
}

// PriceCorrectionJobPayloadFromMap creates a payload from a map
func PriceCorrectionJobPayloadFromMap(data map[string]interface{}) (*PriceCorrectionJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload PriceCorrectionJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}
