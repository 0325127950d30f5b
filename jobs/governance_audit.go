package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/buildtrust/govern/internal/jobs"
	"github.com/buildtrust/govern/internal/observability"
	"github.com/buildtrust/govern/internal/rbac"
)

// GovernanceAuditJob re-runs the consistency checker and publishes the result.
type GovernanceAuditJob struct {
	service *rbac.Service
	metrics *observability.Metrics
	jobs    *jobmetrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewGovernanceAuditJob constructs the job. Both metrics sinks may be nil.
func NewGovernanceAuditJob(service *rbac.Service, metrics *observability.Metrics, jobs *jobmetrics.Metrics, logger *slog.Logger) *GovernanceAuditJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &GovernanceAuditJob{service: service, metrics: metrics, jobs: jobs, logger: logger, now: time.Now}
}

// Run executes one audit.
func (j *GovernanceAuditJob) Run(ctx context.Context, payload GovernanceAuditPayload) (rbac.AuditRecord, error) {
	runID := payload.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	rec, err := j.service.RefreshAudit(ctx, runID)
	if err != nil {
		return rbac.AuditRecord{}, err
	}
	kinds := rbac.ViolationKinds()
	names := make([]string, 0, len(kinds))
	counts := make(map[string]int, len(kinds))
	for _, kind := range kinds {
		names = append(names, string(kind))
		counts[string(kind)] = rec.Report.Count(kind)
	}
	j.metrics.ObserveAudit(names, counts, j.now())
	j.logger.Info("governance audit executed",
		slog.String("job", TaskGovernanceAudit),
		slog.String("run_id", runID),
		slog.String("trigger", payload.Trigger),
		slog.Int("violations", len(rec.Report.Violations)),
		slog.String("fingerprint", rec.Fingerprint),
	)
	return rec, nil
}

// Handle processes TaskGovernanceAudit tasks.
func (j *GovernanceAuditJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload GovernanceAuditPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.jobs.Track(TaskGovernanceAudit)
	_, err := j.Run(ctx, payload)
	return tracker.End(err)
}
