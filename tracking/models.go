package tracking

import "time"

// RunStatus is the lifecycle state of a tracked run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "RUNNING"
	RunStatusFinished RunStatus = "FINISHED"
	RunStatusFailed   RunStatus = "FAILED"
)

// RunInfo is the stored metadata of one run.
type RunInfo struct {
	RunID      string            `json:"run_id"`
	Experiment string            `json:"experiment"`
	RunName    string            `json:"run_name"`
	Status     RunStatus         `json:"status"`
	StartTime  time.Time         `json:"start_time"`
	EndTime    *time.Time        `json:"end_time,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// ModelVersion is one registered version of a named model.
type ModelVersion struct {
	Name      string    `json:"name"`
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
}
