package core

import "github.com/google/uuid"

// WorkItem is the broker payload that carries a job id and an optional
// repository access credential from the Submitter to a worker. It is
// ephemeral: it exists only between enqueue and acknowledgment and is never
// persisted outside the Task Broker.
type WorkItem struct {
	JobID      uuid.UUID `json:"job_id"`
	Credential string    `json:"credential,omitempty"`
	Variant    Variant   `json:"variant"`
}
