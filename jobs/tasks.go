package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGovernanceAudit runs the governance consistency checker.
	TaskGovernanceAudit = "governance:audit"
)

// GovernanceAuditPayload describes a governance audit request.
type GovernanceAuditPayload struct {
	RunID   string `json:"run_id,omitempty"`
	Trigger string `json:"trigger"`
}

// NewGovernanceAuditTask constructs an Asynq task.
func NewGovernanceAuditTask(payload GovernanceAuditPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGovernanceAudit, data), nil
}
